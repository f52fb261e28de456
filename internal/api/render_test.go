package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/cogweb/cogweb-core/internal/atomspace"
	"github.com/cogweb/cogweb-core/internal/bridge"
	"github.com/cogweb/cogweb-core/internal/command"
)

func TestRender(t *testing.T) {
	atom := &atomspace.Atom{Handle: 42, Type: "ConceptNode", Name: "cat"}

	tests := []struct {
		name       string
		outcome    command.Outcome
		wantStatus int
		check      func(t *testing.T, body any)
	}{
		{
			name:       "entity",
			outcome:    command.Success(atom),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body any) {
				r, ok := body.(ResultResponse)
				if !ok || r.Result != atom {
					t.Errorf("body = %#v", body)
				}
			},
		},
		{
			name:       "list",
			outcome:    command.Success([]atomspace.Atom{*atom}),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body any) {
				l, ok := body.(ListResponse)
				if !ok || l.Count != 1 || l.Atoms[0].Handle != 42 {
					t.Errorf("body = %#v", body)
				}
			},
		},
		{
			name:       "nil list",
			outcome:    command.Success([]atomspace.Atom(nil)),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body any) {
				l, ok := body.(ListResponse)
				if !ok || l.Atoms == nil || l.Count != 0 {
					t.Errorf("body = %#v", body)
				}
			},
		},
		{
			name:       "bad request",
			outcome:    command.BadRequest("limit must be a number"),
			wantStatus: http.StatusBadRequest,
			check:      wantError(ErrCodeBadRequest, "limit must be a number"),
		},
		{
			name:       "not found",
			outcome:    command.NotFound("no such operation"),
			wantStatus: http.StatusNotFound,
			check:      wantError(ErrCodeNotFound, "no such operation"),
		},
		{
			name:       "timeout",
			outcome:    command.Timeout(),
			wantStatus: http.StatusInternalServerError,
			check:      wantErrorCode(ErrCodeInternal),
		},
		{
			name:       "engine error",
			outcome:    command.EngineError("atom not found"),
			wantStatus: http.StatusInternalServerError,
			check:      wantError(ErrCodeInternal, "atom not found"),
		},
		{
			name:       "unavailable",
			outcome:    command.Unavailable("engine unavailable"),
			wantStatus: http.StatusInternalServerError,
			check:      wantError(ErrCodeInternal, "engine unavailable"),
		},
		{
			name:       "empty message",
			outcome:    command.EngineError(""),
			wantStatus: http.StatusInternalServerError,
			check:      wantError(ErrCodeInternal, http.StatusText(http.StatusInternalServerError)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Render(tt.outcome)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			tt.check(t, body)
		})
	}
}

func wantErrorCode(code string) func(*testing.T, any) {
	return func(t *testing.T, body any) {
		t.Helper()
		e, ok := body.(Error)
		if !ok || e.Code != code || e.Message == "" {
			t.Errorf("body = %#v, want code %s", body, code)
		}
	}
}

func wantError(code, message string) func(*testing.T, any) {
	return func(t *testing.T, body any) {
		t.Helper()
		e, ok := body.(Error)
		if !ok || e.Code != code || e.Message != message {
			t.Errorf("body = %#v, want %s %q", body, code, message)
		}
	}
}

func TestOutcomeFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want command.Kind
	}{
		{"unknown operation", fmt.Errorf("%w: nope", command.ErrUnknownOperation), command.KindNotFound},
		{"engine unavailable", fmt.Errorf("%w: queue closed", bridge.ErrEngineUnavailable), command.KindUnavailable},
		{"other", errors.New("boom"), command.KindEngineError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcomeFromError(tt.err); got.Kind != tt.want {
				t.Errorf("kind = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}
