package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cogweb/cogweb-core/internal/route"
)

// healthCheckTimeout bounds component checks made by /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
//
// chi handles the fixed endpoints and middleware; atom, list and command
// paths are resolved by the route tables so the most specific pattern wins.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no route for request")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no route for request")
	})

	r.Route("/api/{version}", func(r chi.Router) {
		r.Use(s.versionMiddleware)

		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/ws", s.handleWebSocket)

		r.HandleFunc("/*", s.serveTable(s.apiRoutes, func(r *http.Request) string {
			return "/" + chi.URLParam(r, "*")
		}))
	})

	if prefix := uiPrefix(s.cfg.UIPrefix); prefix != "" {
		ui := s.serveTable(s.uiRoutes, func(r *http.Request) string {
			return strings.TrimPrefix(r.URL.Path, prefix)
		})
		r.HandleFunc(prefix, ui)
		r.HandleFunc(prefix+"/*", ui)
	}

	if s.cfg.DocumentRoot != "" {
		r.Handle("/*", documentRootHandler(s.cfg.DocumentRoot))
	}

	return r
}

// buildAPIRoutes registers the versioned REST surface.
func (s *Server) buildAPIRoutes() (*route.Table[routeFunc], error) {
	return newRouteTable([]routeDef{
		{http.MethodGet, "/atom/:id", s.handleEntity},
		{http.MethodGet, "/atom/:id/incoming", s.handleIncoming},
		{http.MethodGet, "/atom/", s.handleEntity},
		{http.MethodGet, "/atom/type/:type", s.handleList},
		{http.MethodPost, "/atom/", s.handleCreate},
		{http.MethodPut, "/atom/", s.handleCreate},
		{http.MethodGet, "/list/", s.handleList},
		{http.MethodGet, "/list/:type", s.handleList},
		{http.MethodPost, "/server/request/:operation", s.handleCommand},
	})
}

// buildUIRoutes registers the browse routes mounted under the UI prefix.
// They reuse the REST handlers and accept either GET or POST for commands.
func (s *Server) buildUIRoutes() (*route.Table[routeFunc], error) {
	return newRouteTable([]routeDef{
		{http.MethodGet, "/atom", s.handleEntity},
		{http.MethodGet, "/atom/*id", s.handleEntity},
		{http.MethodGet, "/atom/:id/incoming", s.handleIncoming},
		{http.MethodGet, "/atom/type/:type", s.handleList},
		{http.MethodGet, "/list", s.handleList},
		{http.MethodGet, "/list/*type", s.handleList},
		{http.MethodGet, "/request/:operation", s.handleCommand},
		{http.MethodPost, "/request/:operation", s.handleCommand},
	})
}

type routeDef struct {
	method  string
	pattern string
	handler routeFunc
}

func newRouteTable(defs []routeDef) (*route.Table[routeFunc], error) {
	t := route.NewTable[routeFunc]()
	for _, d := range defs {
		if err := t.AddRoute(d.method, d.pattern, d.handler); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// serveTable resolves a request against table. path extracts the part of
// the URL the table matches against. No match, including a method
// mismatch, is a 404.
func (s *Server) serveTable(table *route.Table[routeFunc], path func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := table.Match(r.Method, path(r))
		if !ok {
			writeNotFound(w, "no route for "+r.Method+" "+r.URL.Path)
			return
		}
		m.Target(w, r, m.Params)
	}
}

// versionMiddleware rejects API versions that are not configured.
// An empty version list accepts any version.
func (s *Server) versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := chi.URLParam(r, "version")
		if len(s.cfg.Versions) > 0 && !slices.Contains(s.cfg.Versions, version) {
			writeNotFound(w, "unsupported api version "+version)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// uiPrefix normalises the configured prefix to "/name" or "".
func uiPrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// handleHealth returns the server health status.
// It reports "degraded" when an enabled component is unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     "ok",
		Version:    s.version,
		Components: map[string]string{},
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			resp.Components["database"] = err.Error()
			resp.Status = "degraded"
		} else {
			resp.Components["database"] = "ok"
		}
	}
	if s.mqtt != nil {
		if s.mqtt.IsConnected() {
			resp.Components["mqtt"] = "ok"
		} else {
			resp.Components["mqtt"] = "disconnected"
			resp.Status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
