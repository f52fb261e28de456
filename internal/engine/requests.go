package engine

import (
	"context"
	"fmt"

	"github.com/cogweb/cogweb-core/internal/atomspace"
	"github.com/cogweb/cogweb-core/internal/command"
)

// Built-in operation names.
const (
	OpGetAtom    = "get-atom"
	OpGetList    = "get-list"
	OpIncoming   = "get-incoming"
	OpCreateAtom = "create-atom"
	OpHelp       = "help"
	OpStats      = "stats"
	OpPing       = "ping"
)

// CreateResult is the payload of create-atom.
type CreateResult struct {
	Atom    *atomspace.Atom `json:"atom"`
	Created bool            `json:"created"`
}

// RegisterBuiltins binds the standard operations.
func (e *Engine) RegisterBuiltins() error {
	builtins := []struct {
		name    string
		factory command.Factory
	}{
		{OpGetAtom, func() command.Request { return &getAtomRequest{space: e.space} }},
		{OpGetList, func() command.Request { return &getListRequest{space: e.space} }},
		{OpIncoming, func() command.Request { return &incomingRequest{space: e.space} }},
		{OpCreateAtom, func() command.Request { return &createAtomRequest{engine: e} }},
		{OpHelp, func() command.Request { return &helpRequest{registry: e.registry} }},
		{OpStats, func() command.Request { return &statsRequest{space: e.space} }},
		{OpPing, func() command.Request { return command.RequestFunc(ping) }},
	}
	for _, b := range builtins {
		if err := e.Register(b.name, b.factory); err != nil {
			return fmt.Errorf("registering %s: %w", b.name, err)
		}
	}
	return nil
}

// getAtomRequest returns one atom by its "handle" parameter.
type getAtomRequest struct {
	space *atomspace.AtomSpace
}

func (r *getAtomRequest) Execute(_ context.Context, p command.Params) (any, error) {
	raw := p.Get("handle")
	if raw == "" {
		return nil, fmt.Errorf("%w: handle", ErrMissingParam)
	}
	h, err := atomspace.ParseHandle(raw)
	if err != nil {
		return nil, err
	}
	return r.space.Get(h)
}

// incomingRequest returns the links that point at the "handle" atom, in
// creation order.
type incomingRequest struct {
	space *atomspace.AtomSpace
}

func (r *incomingRequest) Execute(_ context.Context, p command.Params) (any, error) {
	raw := p.Get("handle")
	if raw == "" {
		return nil, fmt.Errorf("%w: handle", ErrMissingParam)
	}
	h, err := atomspace.ParseHandle(raw)
	if err != nil {
		return nil, err
	}
	handles, err := r.space.Incoming(h)
	if err != nil {
		return nil, err
	}
	links := make([]atomspace.Atom, 0, len(handles))
	for _, lh := range handles {
		link, err := r.space.Get(lh)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, nil
}

// getListRequest returns atoms filtered by optional type, name and limit.
type getListRequest struct {
	space *atomspace.AtomSpace
}

func (r *getListRequest) Execute(_ context.Context, p command.Params) (any, error) {
	limit, err := p.Int("limit", 0)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", command.ErrInvalidParam)
	}
	return r.space.List(atomspace.Filter{
		Type:  p.Get("type"),
		Name:  p.Get("name"),
		Limit: limit,
	}), nil
}

// createAtomRequest adds a node or link.
//
// Parameters: type, name, outgoing (comma-separated handles), strength,
// confidence. Missing truth value components take the defaults.
type createAtomRequest struct {
	engine *Engine
}

func (r *createAtomRequest) Execute(ctx context.Context, p command.Params) (any, error) {
	atomType := p.Get("type")
	if atomType == "" {
		return nil, fmt.Errorf("%w: type", ErrMissingParam)
	}
	outgoing, err := atomspace.ParseHandles(p.Get("outgoing"))
	if err != nil {
		return nil, err
	}
	strength, err := p.Float("strength", atomspace.DefaultTruthValue.Strength)
	if err != nil {
		return nil, err
	}
	confidence, err := p.Float("confidence", atomspace.DefaultTruthValue.Confidence)
	if err != nil {
		return nil, err
	}

	atom, created, err := r.engine.space.Add(ctx, atomspace.Atom{
		Type:       atomType,
		Name:       p.Get("name"),
		Outgoing:   outgoing,
		TruthValue: atomspace.TruthValue{Strength: strength, Confidence: confidence},
	})
	if err != nil {
		return nil, err
	}
	if created {
		r.engine.atomCreated(atom)
	}
	return CreateResult{Atom: atom, Created: created}, nil
}

// helpRequest lists the registered operation names.
type helpRequest struct {
	registry *command.Registry
}

func (r *helpRequest) Execute(context.Context, command.Params) (any, error) {
	return r.registry.Names(), nil
}

type statsRequest struct {
	space *atomspace.AtomSpace
}

func (r *statsRequest) Execute(context.Context, command.Params) (any, error) {
	return r.space.Stats(), nil
}

func ping(context.Context, command.Params) (any, error) {
	return "pong", nil
}
