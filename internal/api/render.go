package api

import (
	"errors"
	"net/http"

	"github.com/cogweb/cogweb-core/internal/atomspace"
	"github.com/cogweb/cogweb-core/internal/bridge"
	"github.com/cogweb/cogweb-core/internal/command"
)

// statusEntry is the wire status for one outcome kind.
type statusEntry struct {
	status int
	code   string
}

// outcomeStatus is the single mapping from outcome kind to HTTP status.
var outcomeStatus = map[command.Kind]statusEntry{
	command.KindSuccess:     {http.StatusOK, ""},
	command.KindBadRequest:  {http.StatusBadRequest, ErrCodeBadRequest},
	command.KindNotFound:    {http.StatusNotFound, ErrCodeNotFound},
	command.KindTimeout:     {http.StatusInternalServerError, ErrCodeInternal},
	command.KindEngineError: {http.StatusInternalServerError, ErrCodeInternal},
	command.KindUnavailable: {http.StatusInternalServerError, ErrCodeInternal},
}

// ResultResponse wraps the payload of a successful entity or command call.
type ResultResponse struct {
	Result any `json:"result"`
}

// ListResponse is the body of a successful list call.
type ListResponse struct {
	Atoms []atomspace.Atom `json:"atoms"`
	Count int              `json:"count"`
}

// Render converts an outcome to its HTTP status and response body.
//
// Successful []atomspace.Atom payloads become a ListResponse; every other
// success payload is wrapped in a ResultResponse. Failures become an Error.
func Render(o command.Outcome) (int, any) {
	entry, ok := outcomeStatus[o.Kind]
	if !ok {
		entry = statusEntry{http.StatusInternalServerError, ErrCodeInternal}
	}

	if o.Kind == command.KindSuccess {
		if atoms, isList := o.Payload.([]atomspace.Atom); isList {
			if atoms == nil {
				atoms = []atomspace.Atom{}
			}
			return entry.status, ListResponse{Atoms: atoms, Count: len(atoms)}
		}
		return entry.status, ResultResponse{Result: o.Payload}
	}

	msg := o.Message
	if msg == "" {
		msg = http.StatusText(entry.status)
	}
	return entry.status, Error{Status: entry.status, Code: entry.code, Message: msg}
}

// writeOutcome renders an outcome to w.
func writeOutcome(w http.ResponseWriter, o command.Outcome) {
	status, body := Render(o)
	writeJSON(w, status, body)
}

// outcomeFromError maps a dispatch setup error to an outcome.
// Unknown operations are 404; an unavailable engine is a 500.
func outcomeFromError(err error) command.Outcome {
	switch {
	case errors.Is(err, command.ErrUnknownOperation):
		return command.NotFound(err.Error())
	case errors.Is(err, bridge.ErrEngineUnavailable):
		return command.Unavailable(bridge.ErrEngineUnavailable.Error())
	default:
		return command.EngineError(err.Error())
	}
}
