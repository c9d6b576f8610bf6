package andersen

import (
	"context"

	"github.com/BarrensZeppelin/andersen/internal/queue"
	log "github.com/sirupsen/logrus"
)

// Stats describes the work done by one call to [Analyze].
type Stats struct {
	Constraints int
	Nodes       int

	// Merges performed by the offline pass.
	HCDMerges int
	// Merges performed when the solver visited a node with a deferred
	// target recorded by the offline pass.
	DeferredMerges int
	// Merges of copy cycles found while solving.
	LCDMerges int
	// Number of searches for a copy cycle.
	CycleSearches int

	// Copy edges added for load and store constraints.
	DerivedEdges int
	// Nodes taken from the worklist.
	Iterations int
}

// Polling the context for every node is measurable on large inputs.
const pollInterval = 1024

type solver struct {
	g      *graph
	config Config

	work nodeset

	// Copy edges (n, z) that have already been searched for a cycle.
	tested map[[2]nodeid]struct{}

	stats Stats
}

// Analyze computes the least solution of the given constraints.
//
// An error is returned when config is invalid, or when ctx is done before
// the solver reaches a fixpoint.
func Analyze(ctx context.Context, constraints []Constraint, config Config) (Result, error) {
	if err := config.Validate(); err != nil {
		return Result{}, err
	}

	s := newSolver(constraints, config)
	if err := s.solve(ctx); err != nil {
		return Result{}, err
	}

	config.logger().WithFields(log.Fields{
		"constraints":     s.stats.Constraints,
		"nodes":           s.stats.Nodes,
		"hcd_merges":      s.stats.HCDMerges,
		"deferred_merges": s.stats.DeferredMerges,
		"lcd_merges":      s.stats.LCDMerges,
		"cycle_searches":  s.stats.CycleSearches,
		"derived_edges":   s.stats.DerivedEdges,
		"iterations":      s.stats.Iterations,
	}).Debug("Solved constraints")

	return Result{
		PointsTo: s.g.pointsTo(),
		Stats:    s.stats,
	}, nil
}

// newSolver builds the constraint graph and runs the offline pass unless
// it is disabled.
func newSolver(constraints []Constraint, config Config) *solver {
	g := buildGraph(constraints)
	s := &solver{
		g:      g,
		config: config,
		tested: make(map[[2]nodeid]struct{}),
		stats: Stats{
			Constraints: len(constraints),
			Nodes:       len(g.nodes),
		},
	}

	if !config.DisableHCD {
		s.stats.HCDMerges = g.collapseOffline(constraints)
	}
	return s
}

func (s *solver) solve(ctx context.Context) error {
	g := s.g

	for x := range g.nodes {
		n := nodeid(x)
		if g.seeds.has(n) {
			s.work.add(g.find(n))
			continue
		}

		if nd := g.nodes[n]; g.valid(n) &&
			(!nd.copyTo.IsEmpty() || len(nd.loads) != 0 || len(nd.stores) != 0) {
			s.work.add(n)
		}
	}

	var x int
	for s.work.TakeMin(&x) {
		s.stats.Iterations++
		if s.stats.Iterations%pollInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if n := nodeid(x); g.valid(n) {
			s.process(n)
		}
	}

	return nil
}

// process applies every rule attached to the representative n.
func (s *solver) process(n nodeid) {
	g := s.g

	if len(g.nodes[n].deferred) != 0 && !g.nodes[n].pts.IsEmpty() {
		if !s.mergeDeferred(n) {
			// n pointed to itself and has been merged away.
			return
		}
	}

	nd := g.nodes[n]
	nd.loads = g.compact(nd.loads)
	nd.stores = g.compact(nd.stores)
	pts := nd.pts.AppendTo(nil)

	for _, x := range pts {
		v := g.find(nodeid(x))

		// *n ⊆ a, so pts(v) ⊆ pts(a).
		for _, a := range nd.loads {
			if a != v && g.nodes[v].copyTo.add(a) {
				s.stats.DerivedEdges++
				s.work.add(v)
			}
		}

		// b ⊆ *n, so pts(b) ⊆ pts(v).
		for _, b := range nd.stores {
			if b != v && g.nodes[b].copyTo.add(v) {
				s.stats.DerivedEdges++
				s.work.add(b)
			}
		}
	}

	for _, x := range nd.copyTo.AppendTo(nil) {
		z := g.find(nodeid(x))
		if z == n {
			continue
		}

		zd := g.nodes[z]
		if zd.pts.Equals(&nd.pts.Sparse) {
			if s.config.DisableLCD || nd.pts.IsEmpty() {
				continue
			}

			edge := [2]nodeid{n, z}
			if _, done := s.tested[edge]; done {
				continue
			}
			s.tested[edge] = struct{}{}

			if cycle := s.findCycle(z, n); cycle != nil {
				s.collapse(cycle, n)
				s.work.add(n)
				// The rules of n changed. They are reapplied when n is
				// taken from the worklist again.
				return
			}
			continue
		}

		if zd.pts.addAll(&nd.pts) {
			s.work.add(z)
		}
	}
}

// mergeDeferred merges the pointees of n with the targets recorded for n by
// the offline pass. It reports whether n is still a representative.
func (s *solver) mergeDeferred(n nodeid) bool {
	g := s.g

	// The targets are all equivalent to any pointee of n.
	targets := g.nodes[n].deferred
	t := g.find(targets[0])
	merged := false
	for _, x := range targets[1:] {
		if r := g.find(x); r != t {
			g.merge(r, t)
			s.stats.DeferredMerges++
			merged = true
		}
	}

	for _, x := range g.nodes[n].pts.AppendTo(nil) {
		if r := g.find(nodeid(x)); r != t {
			g.merge(r, t)
			s.stats.DeferredMerges++
			merged = true
		}
	}

	if !g.valid(n) {
		s.work.add(t)
		return false
	}

	g.nodes[n].deferred = []nodeid{t}
	if merged && t != n {
		s.work.add(t)
	}
	return true
}

// findCycle searches the copy edges breadth-first for a path from `from` to
// `to`. It returns the representatives on the path, or nil if there is no
// path or the search visited more than the configured limit of nodes.
func (s *solver) findCycle(from, to nodeid) []nodeid {
	g := s.g
	s.stats.CycleSearches++

	pred := map[nodeid]nodeid{from: from}
	var q queue.Queue[nodeid]
	q.Push(from)

	var space []int
	for !q.Empty() {
		x := q.Pop()
		if x == to {
			var path []nodeid
			for ; x != from; x = pred[x] {
				path = append(path, x)
			}
			return append(path, from)
		}

		if limit := s.config.CycleSearchLimit; limit > 0 && len(pred) > limit {
			return nil
		}

		space = g.nodes[x].copyTo.AppendTo(space[:0])
		for _, y := range space {
			y := g.find(nodeid(y))
			if _, seen := pred[y]; !seen {
				pred[y] = x
				q.Push(y)
			}
		}
	}

	return nil
}

// collapse merges every node on the cycle into rep.
func (s *solver) collapse(cycle []nodeid, rep nodeid) {
	g := s.g
	for _, x := range cycle {
		if r := g.find(x); r != rep {
			g.merge(r, rep)
			s.stats.LCDMerges++
		}
	}
}
