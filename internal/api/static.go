package api

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
)

// documentRootHandler serves files below dir.
//
// Directories are served only when they contain index.html; there is no
// directory listing. Missing files are a JSON 404 like every other miss.
func documentRootHandler(dir string) http.Handler {
	fileSystem := noListingFS{http.Dir(dir)}
	fileServer := http.FileServer(fileSystem)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upath := path.Clean("/" + r.URL.Path)

		f, err := fileSystem.Open(upath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				writeNotFound(w, "not found")
				return
			}
			writeInternalError(w, "failed to open file")
			return
		}
		f.Close() //nolint:errcheck // Read-only probe

		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		fileServer.ServeHTTP(w, r)
	})
}

// noListingFS hides directories that have no index.html.
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck // Error path
		return nil, err
	}
	if info.IsDir() {
		index, err := n.fs.Open(path.Join(name, "index.html"))
		if err != nil {
			f.Close() //nolint:errcheck // Error path
			return nil, fs.ErrNotExist
		}
		index.Close() //nolint:errcheck // Existence probe
	}
	return f, nil
}
