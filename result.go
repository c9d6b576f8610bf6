package andersen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BarrensZeppelin/andersen/internal/maps"
)

// Result is the outcome of [Analyze].
type Result struct {
	PointsTo PointsTo
	Stats    Stats
}

// PointsTo maps every identifier mentioned by at least one constraint to the
// sorted members of its points-to set.
//
// Maps handed out by the scopes are shared with their cache and must not be
// modified.
type PointsTo map[string][]string

// Of returns the points-to set of v. It is empty for unknown identifiers.
func (p PointsTo) Of(v string) []string {
	return p[v]
}

// Contains reports whether v may point to target.
func (p PointsTo) Contains(v, target string) bool {
	members := p[v]
	i := sort.SearchStrings(members, target)
	return i < len(members) && members[i] == target
}

// MayAlias reports whether the points-to sets of a and b intersect.
func (p PointsTo) MayAlias(a, b string) bool {
	x, y := p[a], p[b]
	for i, j := 0, 0; i < len(x) && j < len(y); {
		switch {
		case x[i] == y[j]:
			return true
		case x[i] < y[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Vars returns the identifiers in p in sorted order.
func (p PointsTo) Vars() []string {
	return maps.SortedKeys(p)
}

// String renders p one identifier per line. The format is meant for
// debugging and may change.
func (p PointsTo) String() string {
	var b strings.Builder
	for _, v := range p.Vars() {
		fmt.Fprintf(&b, "%s ↦ {%s}\n", v, strings.Join(p[v], ", "))
	}
	return b.String()
}
