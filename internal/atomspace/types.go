package atomspace

import (
	"fmt"
	"strconv"
	"strings"
)

// Handle uniquely identifies an atom within an AtomSpace.
// Zero is never assigned.
type Handle uint64

// String returns the decimal form of the handle.
func (h Handle) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// ParseHandle parses a decimal handle. Zero, negative and non-numeric
// values are rejected with ErrInvalidHandle.
func ParseHandle(s string) (Handle, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHandle, s)
	}
	return Handle(v), nil
}

// ParseHandles parses a comma-separated list of handles.
// An empty string yields an empty list.
func ParseHandles(s string) ([]Handle, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	handles := make([]Handle, 0, len(parts))
	for _, p := range parts {
		h, err := ParseHandle(p)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Type suffixes that classify atom types.
const (
	nodeSuffix = "Node"
	linkSuffix = "Link"
)

// Class is the structural class of an atom type.
type Class string

// Atom classes.
const (
	ClassNode Class = "node"
	ClassLink Class = "link"
)

// ClassOf returns the class of an atom type name, or "" for unknown types.
func ClassOf(typeName string) Class {
	switch {
	case len(typeName) > len(nodeSuffix) && strings.HasSuffix(typeName, nodeSuffix):
		return ClassNode
	case len(typeName) > len(linkSuffix) && strings.HasSuffix(typeName, linkSuffix):
		return ClassLink
	default:
		return ""
	}
}

// TruthValue is a simple (strength, confidence) pair.
type TruthValue struct {
	Strength   float64 `json:"strength"`
	Confidence float64 `json:"confidence"`
}

// DefaultTruthValue is assigned when an atom is created without one.
var DefaultTruthValue = TruthValue{Strength: 1, Confidence: 0}

// Valid reports whether both components lie in [0, 1].
func (tv TruthValue) Valid() bool {
	return tv.Strength >= 0 && tv.Strength <= 1 && tv.Confidence >= 0 && tv.Confidence <= 1
}

// Atom is a node or link in the hypergraph.
//
// Name is kept byte-for-byte as supplied; no case folding or trimming
// is applied so identity strings round-trip exactly.
type Atom struct {
	Handle     Handle     `json:"handle"`
	Type       string     `json:"type"`
	Class      Class      `json:"class"`
	Name       string     `json:"name,omitempty"`
	Outgoing   []Handle   `json:"outgoing,omitempty"`
	TruthValue TruthValue `json:"truthvalue"`
}

// Clone returns a deep copy of the atom.
func (a *Atom) Clone() *Atom {
	if a == nil {
		return nil
	}
	c := *a
	if a.Outgoing != nil {
		c.Outgoing = make([]Handle, len(a.Outgoing))
		copy(c.Outgoing, a.Outgoing)
	}
	return &c
}

// key returns the identity key used for de-duplication.
// Nodes are identified by (type, name), links by (type, outgoing).
func (a *Atom) key() string {
	var b strings.Builder
	b.WriteString(a.Type)
	b.WriteByte(0)
	if a.Class == ClassNode {
		b.WriteString(a.Name)
		return b.String()
	}
	for i, h := range a.Outgoing {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(h.String())
	}
	return b.String()
}

// maxNameLength bounds node names.
const maxNameLength = 4096

// Validate checks structural rules that do not depend on other atoms.
// Outgoing existence is checked by the AtomSpace.
func (a *Atom) Validate() error {
	switch ClassOf(a.Type) {
	case ClassNode:
		if a.Name == "" {
			return fmt.Errorf("%w: node %s requires a name", ErrInvalidAtom, a.Type)
		}
		if len(a.Name) > maxNameLength {
			return fmt.Errorf("%w: name exceeds %d bytes", ErrInvalidAtom, maxNameLength)
		}
		if len(a.Outgoing) > 0 {
			return fmt.Errorf("%w: node %s cannot have outgoing atoms", ErrInvalidAtom, a.Type)
		}
	case ClassLink:
		if len(a.Outgoing) == 0 {
			return fmt.Errorf("%w: link %s requires outgoing atoms", ErrInvalidAtom, a.Type)
		}
		if a.Name != "" {
			return fmt.Errorf("%w: link %s cannot have a name", ErrInvalidAtom, a.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAtom, a.Type)
	}
	if !a.TruthValue.Valid() {
		return fmt.Errorf("%w: truth value out of range", ErrInvalidAtom)
	}
	return nil
}
