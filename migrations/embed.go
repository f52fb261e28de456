// Package migrations embeds the SQL schema migrations into the binary so the
// service can migrate without the files on disk.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var files embed.FS

// FS returns the embedded migrations, rooted at the directory of .sql files.
func FS() fs.FS {
	return files
}
