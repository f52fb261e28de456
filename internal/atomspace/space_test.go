package atomspace

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func mustAdd(t *testing.T, s *AtomSpace, a Atom) *Atom {
	t.Helper()
	stored, _, err := s.Add(context.Background(), a)
	if err != nil {
		t.Fatalf("Add(%+v) error: %v", a, err)
	}
	return stored
}

func TestAdd_AssignsMonotonicHandles(t *testing.T) {
	s := New()

	cat := mustAdd(t, s, Atom{Type: "ConceptNode", Name: "cat"})
	dog := mustAdd(t, s, Atom{Type: "ConceptNode", Name: "dog"})

	if cat.Handle != 1 {
		t.Errorf("first handle = %d, want 1", cat.Handle)
	}
	if dog.Handle != 2 {
		t.Errorf("second handle = %d, want 2", dog.Handle)
	}
	if cat.Class != ClassNode {
		t.Errorf("class = %q, want %q", cat.Class, ClassNode)
	}
	if cat.TruthValue != DefaultTruthValue {
		t.Errorf("truth value = %+v, want default", cat.TruthValue)
	}
}

func TestAdd_DeduplicatesNodes(t *testing.T) {
	s := New()

	first, created, err := s.Add(context.Background(), Atom{Type: "WordNode", Name: "run"})
	if err != nil || !created {
		t.Fatalf("first Add: created=%v err=%v", created, err)
	}

	second, created, err := s.Add(context.Background(), Atom{
		Type:       "WordNode",
		Name:       "run",
		TruthValue: TruthValue{Strength: 0.2, Confidence: 0.9},
	})
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if created {
		t.Error("second Add reported created=true for existing node")
	}
	if second.Handle != first.Handle {
		t.Errorf("handle = %d, want %d", second.Handle, first.Handle)
	}
	if second.TruthValue != first.TruthValue {
		t.Error("existing truth value was modified")
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestAdd_PreservesNameBytes(t *testing.T) {
	s := New()
	name := "  Ünïcode <b>&\"quoted\"\t"

	a := mustAdd(t, s, Atom{Type: "ConceptNode", Name: name})
	got, err := s.Get(a.Handle)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != name {
		t.Errorf("Name = %q, want %q", got.Name, name)
	}
}

func TestAdd_Links(t *testing.T) {
	s := New()
	cat := mustAdd(t, s, Atom{Type: "ConceptNode", Name: "cat"})
	animal := mustAdd(t, s, Atom{Type: "ConceptNode", Name: "animal"})

	link := mustAdd(t, s, Atom{Type: "InheritanceLink", Outgoing: []Handle{cat.Handle, animal.Handle}})
	if link.Class != ClassLink {
		t.Errorf("class = %q, want %q", link.Class, ClassLink)
	}

	dup, created, err := s.Add(context.Background(), Atom{Type: "InheritanceLink", Outgoing: []Handle{cat.Handle, animal.Handle}})
	if err != nil {
		t.Fatalf("duplicate link Add: %v", err)
	}
	if created || dup.Handle != link.Handle {
		t.Errorf("duplicate link: created=%v handle=%d, want false/%d", created, dup.Handle, link.Handle)
	}

	reversed := mustAdd(t, s, Atom{Type: "InheritanceLink", Outgoing: []Handle{animal.Handle, cat.Handle}})
	if reversed.Handle == link.Handle {
		t.Error("links with different outgoing order must be distinct")
	}

	in, err := s.Incoming(cat.Handle)
	if err != nil {
		t.Fatalf("Incoming: %v", err)
	}
	if len(in) != 2 {
		t.Errorf("Incoming(cat) = %v, want 2 links", in)
	}

	self := mustAdd(t, s, Atom{Type: "ListLink", Outgoing: []Handle{cat.Handle, animal.Handle, cat.Handle}})
	in, _ = s.Incoming(cat.Handle)
	if len(in) != 3 || in[2] != self.Handle {
		t.Errorf("Incoming(cat) = %v, want the list link once at the end", in)
	}
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name string
		atom Atom
	}{
		{name: "unknown type", atom: Atom{Type: "Concept", Name: "x"}},
		{name: "bare suffix", atom: Atom{Type: "Node", Name: "x"}},
		{name: "node without name", atom: Atom{Type: "ConceptNode"}},
		{name: "node with outgoing", atom: Atom{Type: "ConceptNode", Name: "x", Outgoing: []Handle{1}}},
		{name: "link without outgoing", atom: Atom{Type: "ListLink"}},
		{name: "link with name", atom: Atom{Type: "ListLink", Name: "x", Outgoing: []Handle{1}}},
		{name: "link to missing atom", atom: Atom{Type: "ListLink", Outgoing: []Handle{99}}},
		{name: "truth value out of range", atom: Atom{Type: "ConceptNode", Name: "x", TruthValue: TruthValue{Strength: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			_, _, err := s.Add(context.Background(), tt.atom)
			if !errors.Is(err, ErrInvalidAtom) {
				t.Errorf("Add() error = %v, want ErrInvalidAtom", err)
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	s := New()
	if _, err := s.Get(42); !errors.Is(err, ErrAtomNotFound) {
		t.Errorf("Get(42) error = %v, want ErrAtomNotFound", err)
	}
	if _, err := s.Incoming(42); !errors.Is(err, ErrAtomNotFound) {
		t.Errorf("Incoming(42) error = %v, want ErrAtomNotFound", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := New()
	a := mustAdd(t, s, Atom{Type: "ConceptNode", Name: "a"})
	b := mustAdd(t, s, Atom{Type: "ConceptNode", Name: "b"})
	l := mustAdd(t, s, Atom{Type: "ListLink", Outgoing: []Handle{a.Handle, b.Handle}})

	got, _ := s.Get(l.Handle)
	got.Outgoing[0] = 999
	got.Name = "mutated"

	again, _ := s.Get(l.Handle)
	if again.Outgoing[0] != a.Handle {
		t.Error("mutating a returned atom changed the space")
	}
}

func TestList_FilterAndOrder(t *testing.T) {
	s := New()
	mustAdd(t, s, Atom{Type: "WordNode", Name: "b"})
	mustAdd(t, s, Atom{Type: "ConceptNode", Name: "x"})
	mustAdd(t, s, Atom{Type: "WordNode", Name: "a"})
	mustAdd(t, s, Atom{Type: "WordNode", Name: "c"})

	words := s.List(Filter{Type: "WordNode"})
	if len(words) != 3 {
		t.Fatalf("len(words) = %d, want 3", len(words))
	}
	for i := 1; i < len(words); i++ {
		if words[i-1].Handle >= words[i].Handle {
			t.Errorf("list not ordered by handle: %v", words)
		}
	}

	limited := s.List(Filter{Type: "WordNode", Limit: 2})
	if len(limited) != 2 {
		t.Errorf("len(limited) = %d, want 2", len(limited))
	}

	byName := s.List(Filter{Name: "x"})
	if len(byName) != 1 || byName[0].Type != "ConceptNode" {
		t.Errorf("List(name=x) = %v", byName)
	}

	if all := s.List(Filter{}); len(all) != 4 {
		t.Errorf("len(all) = %d, want 4", len(all))
	}
	if none := s.List(Filter{Type: "NumberNode"}); len(none) != 0 {
		t.Errorf("List(NumberNode) = %v, want empty", none)
	}
}

func TestStats(t *testing.T) {
	s := New()
	mustAdd(t, s, Atom{Type: "WordNode", Name: "a"})
	mustAdd(t, s, Atom{Type: "WordNode", Name: "b"})
	mustAdd(t, s, Atom{Type: "ConceptNode", Name: "c"})

	st := s.Stats()
	if st.Total != 3 {
		t.Errorf("Total = %d, want 3", st.Total)
	}
	if st.ByType["WordNode"] != 2 || st.ByType["ConceptNode"] != 1 {
		t.Errorf("ByType = %v", st.ByType)
	}
}

func TestAdd_Concurrent(t *testing.T) {
	s := New()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every goroutine adds the same node; exactly one creates it.
			_, _, _ = s.Add(context.Background(), Atom{Type: "ConceptNode", Name: "shared"})
		}()
	}
	wg.Wait()

	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestParseHandle(t *testing.T) {
	tests := []struct {
		input   string
		want    Handle
		wantErr bool
	}{
		{input: "42", want: 42},
		{input: " 7 ", want: 7},
		{input: "0", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHandle(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHandle) {
					t.Errorf("ParseHandle(%q) error = %v, want ErrInvalidHandle", tt.input, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseHandle(%q) = %d, %v; want %d", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestParseHandles(t *testing.T) {
	got, err := ParseHandles("1, 2,3")
	if err != nil {
		t.Fatalf("ParseHandles: %v", err)
	}
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("ParseHandles = %v", got)
	}

	if empty, err := ParseHandles(""); err != nil || len(empty) != 0 {
		t.Errorf("ParseHandles(\"\") = %v, %v", empty, err)
	}

	if _, err := ParseHandles("1,x"); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("ParseHandles(1,x) error = %v", err)
	}
}

func TestClassOf(t *testing.T) {
	tests := map[string]Class{
		"ConceptNode":     ClassNode,
		"InheritanceLink": ClassLink,
		"Node":            "",
		"Link":            "",
		"Something":       "",
	}
	for typ, want := range tests {
		if got := ClassOf(typ); got != want {
			t.Errorf("ClassOf(%q) = %q, want %q", typ, got, want)
		}
	}
}
