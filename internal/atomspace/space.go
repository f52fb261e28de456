package atomspace

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the AtomSpace.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Filter selects atoms for List. Zero values match everything.
type Filter struct {
	Type  string
	Name  string
	Limit int
}

// Stats summarises the contents of an AtomSpace.
type Stats struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// AtomSpace is an in-memory hypergraph with optional write-through persistence.
//
// All public methods are thread-safe. Returned atoms are copies; callers can
// safely modify them.
type AtomSpace struct {
	mu       sync.RWMutex
	atoms    map[Handle]*Atom
	index    map[string]Handle   // identity key -> handle
	incoming map[Handle][]Handle // target -> links pointing at it
	next     Handle
	repo     Repository
	logger   Logger
}

// New creates an empty AtomSpace.
func New() *AtomSpace {
	return &AtomSpace{
		atoms:    make(map[Handle]*Atom),
		index:    make(map[string]Handle),
		incoming: make(map[Handle][]Handle),
		next:     1,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the space.
func (s *AtomSpace) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Load replaces the contents of the space with the atoms stored in repo and
// attaches repo for write-through persistence of later additions.
func (s *AtomSpace) Load(ctx context.Context, repo Repository) error {
	atoms, err := repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading atoms: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.atoms = make(map[Handle]*Atom, len(atoms))
	s.index = make(map[string]Handle, len(atoms))
	s.incoming = make(map[Handle][]Handle)
	s.next = 1

	// Repositories return atoms in handle order, so every link's targets
	// are already present when it is inserted.
	for i := range atoms {
		a := atoms[i].Clone()
		a.Class = ClassOf(a.Type)
		s.insertLocked(a)
		if a.Handle >= s.next {
			s.next = a.Handle + 1
		}
	}
	s.repo = repo

	s.logger.Info("atomspace loaded", "count", len(atoms))
	return nil
}

// Add inserts an atom and returns the stored copy.
//
// Adding an atom whose identity already exists returns the existing atom and
// created=false; the truth value of the existing atom is left unchanged.
// The supplied Handle is ignored; handles are assigned by the space.
func (s *AtomSpace) Add(ctx context.Context, atom Atom) (stored *Atom, created bool, err error) {
	a := atom.Clone()
	a.Handle = 0
	a.Class = ClassOf(a.Type)
	if a.TruthValue == (TruthValue{}) {
		a.TruthValue = DefaultTruthValue
	}
	if err := a.Validate(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.index[a.key()]; ok {
		return s.atoms[h].Clone(), false, nil
	}

	for _, target := range a.Outgoing {
		if _, ok := s.atoms[target]; !ok {
			return nil, false, fmt.Errorf("%w: outgoing handle %d does not exist", ErrInvalidAtom, target)
		}
	}

	a.Handle = s.next
	if s.repo != nil {
		if err := s.repo.Save(ctx, a); err != nil {
			return nil, false, fmt.Errorf("persisting atom: %w", err)
		}
	}
	s.next++
	s.insertLocked(a)

	s.logger.Debug("atom added", "handle", a.Handle, "type", a.Type)
	return a.Clone(), true, nil
}

// insertLocked stores a and updates indexes. Caller holds mu.
func (s *AtomSpace) insertLocked(a *Atom) {
	s.atoms[a.Handle] = a
	s.index[a.key()] = a.Handle
	for _, target := range a.Outgoing {
		// A link lists a repeated target once.
		if in := s.incoming[target]; len(in) > 0 && in[len(in)-1] == a.Handle {
			continue
		}
		s.incoming[target] = append(s.incoming[target], a.Handle)
	}
}

// Get returns the atom with the given handle.
// Returns ErrAtomNotFound if the handle does not exist.
func (s *AtomSpace) Get(h Handle) (*Atom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.atoms[h]
	if !ok {
		return nil, ErrAtomNotFound
	}
	return a.Clone(), nil
}

// List returns atoms matching f, ordered by handle.
func (s *AtomSpace) List(f Filter) []Atom {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handles := make([]Handle, 0, len(s.atoms))
	for h, a := range s.atoms {
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Name != "" && a.Name != f.Name {
			continue
		}
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	if f.Limit > 0 && len(handles) > f.Limit {
		handles = handles[:f.Limit]
	}

	atoms := make([]Atom, 0, len(handles))
	for _, h := range handles {
		atoms = append(atoms, *s.atoms[h].Clone())
	}
	return atoms
}

// Incoming returns the handles of links whose outgoing set contains h.
func (s *AtomSpace) Incoming(h Handle) ([]Handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.atoms[h]; !ok {
		return nil, ErrAtomNotFound
	}
	in := make([]Handle, len(s.incoming[h]))
	copy(in, s.incoming[h])
	return in, nil
}

// Count returns the number of atoms.
func (s *AtomSpace) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.atoms)
}

// Stats returns total and per-type atom counts.
func (s *AtomSpace) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Total:  len(s.atoms),
		ByType: make(map[string]int),
	}
	for _, a := range s.atoms {
		st.ByType[a.Type]++
	}
	return st
}
