package andersen

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/BarrensZeppelin/andersen/internal/maps"
	"github.com/BarrensZeppelin/andersen/internal/slices"
	log "github.com/sirupsen/logrus"
)

// vars returns the identifiers mentioned by c.
func vars(c Constraint) (string, string) {
	switch c := c.(type) {
	case Base:
		return c.Super, c.Sub
	case Simple:
		return c.Sub, c.Super
	case Complex:
		return c.Sub, c.Super
	default:
		log.Panicf("unknown constraint kind %T", c)
		return "", ""
	}
}

// naiveSolve computes the least solution of the constraints by applying
// every constraint until nothing changes.
func naiveSolve(constraints []Constraint) PointsTo {
	pts := map[string]map[string]bool{}
	get := func(v string) map[string]bool {
		if pts[v] == nil {
			pts[v] = map[string]bool{}
		}
		return pts[v]
	}

	for _, c := range constraints {
		a, b := vars(c)
		get(a)
		get(b)
	}

	// addAll adds pts(src) to pts(dst).
	addAll := func(dst, src string) bool {
		changed := false
		for _, x := range maps.Keys(pts[src]) {
			if d := get(dst); !d[x] {
				d[x] = true
				changed = true
			}
		}
		return changed
	}

	for changed := true; changed; {
		changed = false
		for _, c := range constraints {
			switch c := c.(type) {
			case Base:
				if d := get(c.Super); !d[c.Sub] {
					d[c.Sub] = true
					changed = true
				}
			case Simple:
				changed = addAll(c.Super, c.Sub) || changed
			case Complex:
				if c.SubDereferenced {
					for _, v := range maps.Keys(pts[c.Sub]) {
						changed = addAll(c.Super, v) || changed
					}
				} else {
					for _, v := range maps.Keys(pts[c.Super]) {
						changed = addAll(v, c.Sub) || changed
					}
				}
			}
		}
	}

	res := make(PointsTo, len(pts))
	for v, set := range pts {
		res[v] = maps.SortedKeys(set)
	}
	return res
}

func randomConstraints(rng *rand.Rand, numVars, n int) []Constraint {
	name := func() string { return fmt.Sprintf("v%d", rng.Intn(numVars)) }

	res := make([]Constraint, n)
	for i := range res {
		switch rng.Intn(4) {
		case 0:
			res[i] = Base{Super: name(), Sub: name()}
		case 1:
			res[i] = Simple{Sub: name(), Super: name()}
		case 2:
			res[i] = Load(name(), name())
		default:
			res[i] = Store(name(), name())
		}
	}
	return res
}

// checkSound verifies that pts satisfies every constraint.
func checkSound(t *testing.T, constraints []Constraint, pts PointsTo) {
	t.Helper()

	subset := func(a, b string, c Constraint) {
		if !slices.Subset(pts[a], pts[b]) {
			t.Errorf("%v violated: pts(%s) = %v ⊈ pts(%s) = %v", c, a, pts[a], b, pts[b])
		}
	}

	for _, c := range constraints {
		switch c := c.(type) {
		case Base:
			if !pts.Contains(c.Super, c.Sub) {
				t.Errorf("%v violated: pts(%s) = %v", c, c.Super, pts[c.Super])
			}
		case Simple:
			subset(c.Sub, c.Super, c)
		case Complex:
			if c.SubDereferenced {
				for _, v := range pts[c.Sub] {
					subset(v, c.Super, c)
				}
			} else {
				for _, v := range pts[c.Super] {
					subset(c.Sub, v, c)
				}
			}
		}
	}
}

// covers reports whether every points-to set in want is contained in the
// corresponding set in got.
func covers(t *testing.T, want, got PointsTo) {
	t.Helper()

	for _, v := range want.Vars() {
		if !slices.Subset(want[v], got[v]) {
			t.Errorf("pts(%s) = %v should include %v", v, got[v], want[v])
		}
	}
}

// dereferencedNonEmpty reports whether every dereferenced variable has a
// non-empty points-to set in pts.
func dereferencedNonEmpty(constraints []Constraint, pts PointsTo) bool {
	for _, c := range constraints {
		if c, ok := c.(Complex); ok {
			v := c.Super
			if c.SubDereferenced {
				v = c.Sub
			}
			if len(pts[v]) == 0 {
				return false
			}
		}
	}
	return true
}

func shuffled(rng *rand.Rand, constraints []Constraint) []Constraint {
	res := append([]Constraint(nil), constraints...)
	rng.Shuffle(len(res), func(i, j int) { res[i], res[j] = res[j], res[i] })
	return res
}
