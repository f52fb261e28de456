package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cogweb/cogweb-core/internal/atomspace"
	"github.com/cogweb/cogweb-core/internal/command"
	"github.com/cogweb/cogweb-core/internal/engine"
)

// routeFunc serves one matched route. params holds the path parameters.
type routeFunc func(w http.ResponseWriter, r *http.Request, params map[string]string)

// dispatch builds a command for op and submits it through the bridge.
// This is the only path by which handlers reach engine data.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, op string, params command.Params) {
	cmd, err := s.registry.Create(op, params)
	if err != nil {
		writeOutcome(w, outcomeFromError(err))
		return
	}

	start := time.Now()
	outcome, err := s.bridge.Submit(cmd)
	if err != nil {
		s.logger.Warn("dispatch failed",
			"operation", op,
			"command_id", cmd.ID,
			"error", err,
			"request_id", requestID(r),
		)
		writeOutcome(w, outcomeFromError(err))
		return
	}

	s.logger.Debug("dispatch complete",
		"operation", op,
		"command_id", cmd.ID,
		"outcome", outcome.Kind.String(),
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID(r),
	)
	writeOutcome(w, outcome)
}

// handleEntity looks up one atom by handle.
//
// The handle comes from the "id" path parameter or, failing that, the
// "handle" query parameter.
func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request, params map[string]string) {
	raw := params["id"]
	if raw == "" {
		raw = r.URL.Query().Get("handle")
	}
	if raw == "" {
		writeBadRequest(w, "atom handle is required")
		return
	}
	if _, err := atomspace.ParseHandle(raw); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	s.dispatch(w, r, engine.OpGetAtom, command.Params{"handle": raw})
}

// handleIncoming lists the links whose outgoing set contains the "id" atom.
func (s *Server) handleIncoming(w http.ResponseWriter, r *http.Request, params map[string]string) {
	raw := params["id"]
	if _, err := atomspace.ParseHandle(raw); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.dispatch(w, r, engine.OpIncoming, command.Params{"handle": raw})
}

// handleList lists atoms, optionally filtered by type.
//
// The type comes from the "type" path parameter or query parameter.
// "name" and "limit" query parameters narrow the list further.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request, params map[string]string) {
	query := r.URL.Query()
	p := command.Params{}

	atomType := params["type"]
	if atomType == "" {
		atomType = query.Get("type")
	}
	if atomType != "" {
		p["type"] = atomType
	}
	if name := query.Get("name"); name != "" {
		p["name"] = name
	}
	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		p["limit"] = limit
	}

	s.dispatch(w, r, engine.OpGetList, p)
}

// createRequest is the JSON body accepted by handleCreate.
type createRequest struct {
	Type       string                `json:"type"`
	Name       string                `json:"name"`
	Outgoing   []atomspace.Handle    `json:"outgoing"`
	TruthValue *atomspace.TruthValue `json:"truthvalue"`
}

// handleCreate adds a node or link.
//
// A JSON body is used when Content-Type is application/json; otherwise the
// form body and query string supply type, name, outgoing, strength and
// confidence.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	p, err := createParams(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.dispatch(w, r, engine.OpCreateAtom, p)
}

// createParams extracts create-atom parameters from r.
func createParams(r *http.Request) (command.Params, error) {
	p := command.Params{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // Empty on failure
	if mediaType == "application/json" {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.New("invalid JSON body")
		}
		p["type"] = req.Type
		if req.Name != "" {
			p["name"] = req.Name
		}
		if len(req.Outgoing) > 0 {
			handles := make([]string, len(req.Outgoing))
			for i, h := range req.Outgoing {
				handles[i] = h.String()
			}
			p["outgoing"] = strings.Join(handles, ",")
		}
		if tv := req.TruthValue; tv != nil {
			p["strength"] = strconv.FormatFloat(tv.Strength, 'g', -1, 64)
			p["confidence"] = strconv.FormatFloat(tv.Confidence, 'g', -1, 64)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, errors.New("invalid form body")
		}
		p = command.ParamsFromValues(r.Form)
	}

	if p.Get("type") == "" {
		return nil, errors.New("atom type is required")
	}
	if _, err := atomspace.ParseHandles(p.Get("outgoing")); err != nil {
		return nil, err
	}
	for _, key := range []string{"strength", "confidence"} {
		if _, err := p.Float(key, 0); err != nil {
			return nil, fmt.Errorf("%s must be a number", key)
		}
	}
	return p, nil
}

// handleCommand invokes any registered operation by name.
//
// The operation is the last path segment; every query parameter is
// forwarded verbatim as a command parameter.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, params map[string]string) {
	op := params["operation"]
	if op == "" {
		writeNotFound(w, "operation is required")
		return
	}
	s.dispatch(w, r, op, command.ParamsFromValues(r.URL.Query()))
}
