// Package constraintfile reads and writes constraint sets as YAML documents
// of the form
//
//	constraints:
//	- base: {super: p, sub: a}     # p = &a
//	- simple: {sub: p, super: q}   # q = p
//	- load: {sub: q, super: r}     # r = *q
//	- store: {sub: r, super: p}    # *p = r
//
// The format exists for debugging and testing the solver.
package constraintfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/BarrensZeppelin/andersen"
	"sigs.k8s.io/yaml"
)

var ErrMalformed = errors.New("malformed constraint")

type pair struct {
	Sub   string `json:"sub"`
	Super string `json:"super"`
}

type entry struct {
	Base   *pair `json:"base,omitempty"`
	Simple *pair `json:"simple,omitempty"`
	Load   *pair `json:"load,omitempty"`
	Store  *pair `json:"store,omitempty"`
}

type file struct {
	Constraints []entry `json:"constraints"`
}

func (e entry) constraint() (andersen.Constraint, error) {
	var (
		res   andersen.Constraint
		p     *pair
		kinds int
	)

	if e.Base != nil {
		kinds++
		p, res = e.Base, andersen.Base{Super: e.Base.Super, Sub: e.Base.Sub}
	}
	if e.Simple != nil {
		kinds++
		p, res = e.Simple, andersen.Simple{Sub: e.Simple.Sub, Super: e.Simple.Super}
	}
	if e.Load != nil {
		kinds++
		p, res = e.Load, andersen.Load(e.Load.Sub, e.Load.Super)
	}
	if e.Store != nil {
		kinds++
		p, res = e.Store, andersen.Store(e.Store.Sub, e.Store.Super)
	}

	switch {
	case kinds != 1:
		return nil, fmt.Errorf("%w: expected exactly one kind, found %d", ErrMalformed, kinds)
	case p.Sub == "" || p.Super == "":
		return nil, fmt.Errorf("%w: %v has an empty identifier", ErrMalformed, res)
	}

	return res, nil
}

// Read decodes a constraint file. Unknown fields are rejected.
func Read(r io.Reader) ([]andersen.Constraint, error) {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(bytes)
}

func Parse(bytes []byte) ([]andersen.Constraint, error) {
	var f file
	if err := yaml.UnmarshalStrict(bytes, &f); err != nil {
		return nil, fmt.Errorf("parsing constraint file: %w", err)
	}

	res := make([]andersen.Constraint, len(f.Constraints))
	for i, e := range f.Constraints {
		c, err := e.constraint()
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		res[i] = c
	}
	return res, nil
}

// Write encodes the given constraints in the format accepted by Read.
func Write(w io.Writer, constraints []andersen.Constraint) error {
	f := file{Constraints: make([]entry, len(constraints))}
	for i, c := range constraints {
		switch c := c.(type) {
		case andersen.Base:
			f.Constraints[i].Base = &pair{Sub: c.Sub, Super: c.Super}
		case andersen.Simple:
			f.Constraints[i].Simple = &pair{Sub: c.Sub, Super: c.Super}
		case andersen.Complex:
			if c.SubDereferenced {
				f.Constraints[i].Load = &pair{Sub: c.Sub, Super: c.Super}
			} else {
				f.Constraints[i].Store = &pair{Sub: c.Sub, Super: c.Super}
			}
		default:
			return fmt.Errorf("unknown constraint kind %T", c)
		}
	}

	bytes, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	_, err = w.Write(bytes)
	return err
}
