package andersen

import (
	"fmt"
	"strings"
)

// Constraint is a set-inclusion constraint between the points-to sets of
// variables. The concrete kinds are [Base], [Simple] and [Complex]. All of
// them are comparable values, so two constraints with equal fields are the
// same constraint.
type Constraint interface {
	// method used to seal the constraint kinds
	constraintTag()
	fmt.Stringer
}

type ctag struct{}

func (ctag) constraintTag() {}

// Base models Super = &Sub, i.e. Sub ∈ pts(Super).
type Base struct {
	ctag
	Super, Sub string
}

func (c Base) String() string {
	return fmt.Sprintf("%s ⊇ {%s}", c.Super, c.Sub)
}

// Simple models Super = Sub, i.e. pts(Sub) ⊆ pts(Super).
type Simple struct {
	ctag
	Sub, Super string
}

func (c Simple) String() string {
	return fmt.Sprintf("%s ⊇ %s", c.Super, c.Sub)
}

// Complex is a constraint with one level of dereference.
// When SubDereferenced is set it models the load Super = *Sub,
// otherwise the store *Super = Sub.
type Complex struct {
	ctag
	Sub, Super      string
	SubDereferenced bool
}

func (c Complex) String() string {
	if c.SubDereferenced {
		return fmt.Sprintf("%s ⊇ *%s", c.Super, c.Sub)
	}
	return fmt.Sprintf("*%s ⊇ %s", c.Super, c.Sub)
}

// Load returns the constraint for super = *sub.
func Load(sub, super string) Complex {
	return Complex{Sub: sub, Super: super, SubDereferenced: true}
}

// Store returns the constraint for *super = sub.
func Store(sub, super string) Complex {
	return Complex{Sub: sub, Super: super}
}

// Sink receives constraints. Both scopes implement it.
type Sink interface {
	Add(c Constraint)
}

// ConstraintSet is an append-only, de-duplicated collection of constraints
// that remembers insertion order.
// The zero value is an empty set ready to use.
type ConstraintSet struct {
	list []Constraint
	seen map[Constraint]struct{}
}

// Add inserts c and reports whether it was not already present.
func (s *ConstraintSet) Add(c Constraint) bool {
	if _, found := s.seen[c]; found {
		return false
	}

	if s.seen == nil {
		s.seen = make(map[Constraint]struct{})
	}

	s.seen[c] = struct{}{}
	s.list = append(s.list, c)
	return true
}

func (s *ConstraintSet) Has(c Constraint) bool {
	_, found := s.seen[c]
	return found
}

func (s *ConstraintSet) Len() int { return len(s.list) }

// Constraints returns the constraints in insertion order.
// The returned slice must not be modified.
func (s *ConstraintSet) Constraints() []Constraint {
	return s.list[:len(s.list):len(s.list)]
}

// Clone returns a copy of s that can be extended independently.
func (s *ConstraintSet) Clone() *ConstraintSet {
	c := &ConstraintSet{
		list: make([]Constraint, len(s.list)),
		seen: make(map[Constraint]struct{}, len(s.seen)),
	}
	copy(c.list, s.list)
	for k := range s.seen {
		c.seen[k] = struct{}{}
	}
	return c
}

func (s *ConstraintSet) String() string {
	var b strings.Builder
	for _, c := range s.list {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}
