// Package route matches HTTP method and path pairs against URI patterns.
//
// Pattern syntax:
//
//	/atom/            literal segments; trailing slash is ignored
//	/atom/:id         named parameter, exactly one non-empty segment
//	/atom/*id         trailing wildcard, one or more remaining segments
//	/files/*          unnamed wildcard, captured under "*"
//
// Patterns are compiled onto a chi radix tree. When several patterns match a
// path the most specific wins regardless of registration order: segments are
// compared left to right and a literal beats a parameter, which beats a
// wildcard.
package route

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

var (
	// ErrMalformedPattern is returned for patterns that cannot be parsed.
	ErrMalformedPattern = errors.New("route: malformed pattern")

	// ErrDuplicateRoute is returned when a method and pattern shape is bound twice.
	ErrDuplicateRoute = errors.New("route: duplicate route")
)

// WildcardParam is the parameter name used by an unnamed trailing wildcard.
const WildcardParam = "*"

// methods accepted by AddRoute. chi panics on anything else.
var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

type entry[T any] struct {
	pattern  string
	wildcard string // name the chi "*" param is reported under
	target   T
}

// Match is the result of a successful lookup.
type Match[T any] struct {
	Target  T
	Pattern string
	Params  map[string]string
}

// Table holds routes for any target type.
//
// Thread Safety: AddRoute is for startup only. Match is safe for concurrent
// use once registration has finished.
type Table[T any] struct {
	mux *chi.Mux

	// keyed by method + " " + chi pattern
	entries map[string]*entry[T]
	shapes  map[string]string
}

// NewTable creates an empty route table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		mux:     chi.NewMux(),
		entries: make(map[string]*entry[T]),
		shapes:  make(map[string]string),
	}
}

// AddRoute binds method and pattern to target.
func (t *Table[T]) AddRoute(method, pattern string, target T) error {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return fmt.Errorf("%w: empty method for %q", ErrMalformedPattern, pattern)
	}
	if !methods[method] {
		return fmt.Errorf("%w: unsupported method %q for %q", ErrMalformedPattern, method, pattern)
	}

	c, err := compile(pattern)
	if err != nil {
		return err
	}

	shapeKey := method + " " + c.shape
	if existing, ok := t.shapes[shapeKey]; ok {
		return fmt.Errorf("%w: %s %s conflicts with %s", ErrDuplicateRoute, method, pattern, existing)
	}
	t.shapes[shapeKey] = pattern

	t.entries[method+" "+c.chiPattern] = &entry[T]{
		pattern:  pattern,
		wildcard: c.wildcard,
		target:   target,
	}
	t.mux.Method(method, c.chiPattern, http.NotFoundHandler())
	return nil
}

// Match finds the most specific route for method and path.
// Query strings must already be stripped from path.
func (t *Table[T]) Match(method, path string) (Match[T], bool) {
	method = strings.ToUpper(method)

	rctx := chi.NewRouteContext()
	found := t.mux.Find(rctx, method, normalize(path))
	if found == "" {
		return Match[T]{}, false
	}
	e, ok := t.entries[method+" "+found]
	if !ok {
		return Match[T]{}, false
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		if k == WildcardParam {
			if rctx.URLParams.Values[i] == "" {
				return Match[T]{}, false
			}
			k = e.wildcard
		}
		params[k] = rctx.URLParams.Values[i]
	}
	return Match[T]{Target: e.target, Pattern: e.pattern, Params: params}, true
}

// Len returns the number of registered routes.
func (t *Table[T]) Len() int {
	return len(t.entries)
}

type compiled struct {
	chiPattern string
	shape      string // chi pattern with parameter names erased
	wildcard   string
}

// compile validates pattern and rewrites it into chi syntax.
func compile(pattern string) (compiled, error) {
	if !strings.HasPrefix(pattern, "/") {
		return compiled{}, fmt.Errorf("%w: %q must start with '/'", ErrMalformedPattern, pattern)
	}
	if strings.ContainsAny(pattern, "?#{}") {
		return compiled{}, fmt.Errorf("%w: %q contains a reserved character", ErrMalformedPattern, pattern)
	}

	parts := splitPath(pattern)
	chiParts := make([]string, 0, len(parts))
	shapeParts := make([]string, 0, len(parts))
	names := make(map[string]bool)
	var c compiled
	for i, p := range parts {
		switch {
		case p == "":
			return compiled{}, fmt.Errorf("%w: %q has an empty segment", ErrMalformedPattern, pattern)
		case p[0] == '*':
			if i != len(parts)-1 {
				return compiled{}, fmt.Errorf("%w: %q wildcard must be the last segment", ErrMalformedPattern, pattern)
			}
			name := p[1:]
			if name == "" {
				name = WildcardParam
			}
			if names[name] || strings.ContainsAny(name, ":*") {
				return compiled{}, fmt.Errorf("%w: %q has a bad wildcard name %q", ErrMalformedPattern, pattern, name)
			}
			c.wildcard = name
			chiParts = append(chiParts, "*")
			shapeParts = append(shapeParts, "*")
		case p[0] == ':':
			name := p[1:]
			if name == "" {
				return compiled{}, fmt.Errorf("%w: %q has an unnamed parameter", ErrMalformedPattern, pattern)
			}
			if names[name] || name == WildcardParam || strings.ContainsAny(name, ":*") {
				return compiled{}, fmt.Errorf("%w: %q repeats or misnames parameter %q", ErrMalformedPattern, pattern, name)
			}
			names[name] = true
			chiParts = append(chiParts, "{"+name+"}")
			shapeParts = append(shapeParts, "{}")
		default:
			if strings.ContainsAny(p, ":*") {
				return compiled{}, fmt.Errorf("%w: %q has a misplaced ':' or '*' in %q", ErrMalformedPattern, pattern, p)
			}
			chiParts = append(chiParts, p)
			shapeParts = append(shapeParts, p)
		}
	}
	c.chiPattern = "/" + strings.Join(chiParts, "/")
	c.shape = "/" + strings.Join(shapeParts, "/")
	return c, nil
}

// normalize drops trailing slashes so "/atom/" and "/atom" resolve alike.
func normalize(path string) string {
	path = strings.TrimRight(path, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// splitPath drops one leading and one trailing slash and splits the rest.
// "/" and "" both yield no segments.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
