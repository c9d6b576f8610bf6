package andersen

// Hybrid cycle detection, offline part.
//
// The offline graph has two vertices per node x: x itself and a ref vertex
// *x standing for the pointees of x. Edges are
//
//	Simple{sub, super}   sub → super
//	Load(sub, super)     *sub → super
//	Store(sub, super)    sub → *super
//
// Non-ref members of a strongly connected component end up with identical
// points-to sets and are merged right away. A ref member *x cannot be merged
// until pts(x) is known, so x records the component's representative and the
// solver performs the merge when it visits x with a non-empty points-to set.

// collapseOffline runs the offline pass over g and returns the number of
// merges performed.
func (g *graph) collapseOffline(constraints []Constraint) (merges int) {
	n := len(g.nodes)
	if n == 0 {
		return 0
	}

	ref := func(x nodeid) int { return n + int(x) }

	succ := make([][]int, 2*n)
	for _, c := range constraints {
		switch c := c.(type) {
		case Simple:
			sub, super := g.ids[c.Sub], g.ids[c.Super]
			succ[sub] = append(succ[sub], int(super))
		case Complex:
			sub, super := g.ids[c.Sub], g.ids[c.Super]
			if c.SubDereferenced {
				succ[ref(sub)] = append(succ[ref(sub)], int(super))
			} else {
				succ[sub] = append(succ[sub], ref(super))
			}
		}
	}

	var plain, refs []nodeid
	stronglyConnected(succ, func(scc []int) {
		if len(scc) < 2 {
			return
		}

		plain, refs = plain[:0], refs[:0]
		for _, v := range scc {
			if v < n {
				plain = append(plain, nodeid(v))
			} else {
				refs = append(refs, nodeid(v-n))
			}
		}

		// Ref vertices are only adjacent to non-ref vertices, so a
		// non-trivial component always has a non-ref member.
		if len(plain) == 0 {
			return
		}

		rep := g.find(plain[0])
		for _, x := range plain[1:] {
			if r := g.find(x); r != rep {
				g.merge(r, rep)
				merges++
			}
		}

		for _, x := range refs {
			r := g.find(x)
			g.nodes[r].deferred = append(g.nodes[r].deferred, rep)
		}
	})

	return merges
}

type sccFrame struct {
	v    int
	edge int // next successor of v to visit
}

// stronglyConnected runs Tarjan's algorithm over the graph given by the
// successor lists in succ, calling visit once for every component.
// Components are reported in reverse topological order. The slice passed to
// visit is only valid for the duration of the call.
//
// The search uses an explicit stack of frames instead of recursion, so the
// depth of the graph is not limited by the goroutine stack.
func stronglyConnected(succ [][]int, visit func(scc []int)) {
	n := len(succ)

	// Discovery indices start at 1; 0 means unvisited.
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)

	var (
		stack  []int
		frames []sccFrame
		next   = 1
	)

	push := func(v int) {
		index[v], lowlink[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		frames = append(frames, sccFrame{v: v})
	}

	for root := 0; root < n; root++ {
		if index[root] != 0 {
			continue
		}

		push(root)
		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			v := f.v

			if f.edge < len(succ[v]) {
				w := succ[v][f.edge]
				f.edge++

				if index[w] == 0 {
					push(w)
				} else if onStack[w] && index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
				continue
			}

			// All successors of v are done.
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				if p := frames[len(frames)-1].v; lowlink[v] < lowlink[p] {
					lowlink[p] = lowlink[v]
				}
			}

			if lowlink[v] == index[v] {
				i := len(stack) - 1
				for stack[i] != v {
					i--
				}

				scc := stack[i:]
				for _, w := range scc {
					onStack[w] = false
				}
				visit(scc)
				stack = stack[:i]
			}
		}
	}
}
