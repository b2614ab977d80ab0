// Package classify implements sensitivity labels and clearance checks
// for stored artifacts. Labels form a configurable total order; an
// actor's clearance is a label on the same scale, and access requires
// clearance rank >= label rank.
package classify

import (
	"fmt"
	"strings"
)

// Label is a sensitivity tag on an artifact, or a clearance level held
// by an actor. Ordering is defined by the Scheme, never by string
// comparison.
type Label string

// Default label order, least to most sensitive.
const (
	Public       Label = "public"
	Internal     Label = "internal"
	Confidential Label = "confidential"
	Restricted   Label = "restricted"
)

// Scheme defines a total order over labels and the label applied to
// artifacts written without one.
type Scheme struct {
	order []Label
	rank  map[Label]int
	deflt Label
}

// DefaultScheme returns the standard four-level scheme with Public as
// the default label.
func DefaultScheme() Scheme {
	s, _ := NewScheme([]Label{Public, Internal, Confidential, Restricted}, Public)
	return s
}

// NewScheme builds a scheme from an ordered label list (least sensitive
// first) and a default label that must appear in the list.
func NewScheme(order []Label, deflt Label) (Scheme, error) {
	if len(order) == 0 {
		return Scheme{}, fmt.Errorf("label order is empty")
	}
	rank := make(map[Label]int, len(order))
	for i, l := range order {
		if _, dup := rank[l]; dup {
			return Scheme{}, fmt.Errorf("duplicate label %q in order", l)
		}
		rank[l] = i
	}
	if _, ok := rank[deflt]; !ok {
		return Scheme{}, fmt.Errorf("default label %q not in order", deflt)
	}
	return Scheme{order: order, rank: rank, deflt: deflt}, nil
}

// Default returns the label applied when a write specifies none.
func (s Scheme) Default() Label {
	return s.deflt
}

// Labels returns the configured order, least sensitive first.
func (s Scheme) Labels() []Label {
	out := make([]Label, len(s.order))
	copy(out, s.order)
	return out
}

// Rank returns the position of a label in the configured order.
func (s Scheme) Rank(l Label) (int, error) {
	r, ok := s.rank[l]
	if !ok {
		return 0, fmt.Errorf("unknown label: %q", l)
	}
	return r, nil
}

// Known reports whether the label exists in this scheme.
func (s Scheme) Known(l Label) bool {
	_, ok := s.rank[l]
	return ok
}

// Allows reports whether an actor with the given clearance may access
// data carrying the given label. Unknown labels never grant access.
func (s Scheme) Allows(clearance, label Label) bool {
	cr, ok := s.rank[clearance]
	if !ok {
		return false
	}
	lr, ok := s.rank[label]
	if !ok {
		return false
	}
	return cr >= lr
}

// Parse normalizes a string to a label in this scheme.
func (s Scheme) Parse(v string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(v)))
	if !s.Known(l) {
		return "", fmt.Errorf("unknown label: %q", v)
	}
	return l, nil
}
