package andersen

import (
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/container/intsets"
)

// nodeid is an index into the node arena of a graph.
type nodeid int

type nodeset struct{ intsets.Sparse }

func (ns *nodeset) add(n nodeid) bool { return ns.Insert(int(n)) }

func (ns *nodeset) addAll(y *nodeset) bool { return ns.UnionWith(&y.Sparse) }

func (ns *nodeset) has(n nodeid) bool { return ns.Has(int(n)) }

type node struct {
	// The variable identifier this node was created for.
	name string

	// Points-to set. Its elements are the ids of the nodes created for the
	// pointed-to variables. They are labels, so they are never resolved
	// through the union-find table when the answer is read back.
	pts nodeset
	// Copy edges n → z, meaning pts(n) ⊆ pts(z).
	copyTo nodeset
	// Load targets: a such that a ⊇ *n.
	loads []nodeid
	// Store sources: b such that *n ⊇ b.
	stores []nodeid

	// Set by the offline pass: once pts(n) is non-empty, every member of
	// it is equivalent to each of these nodes.
	deferred []nodeid
}

// graph is the constraint graph. Nodes live in an arena and are merged
// through a union-find forwarding table. A node is valid iff it is its own
// representative.
type graph struct {
	nodes  []*node
	parent []nodeid
	ids    map[string]nodeid

	// Endpoints of base constraints.
	seeds nodeset
}

func newGraph() *graph {
	return &graph{ids: make(map[string]nodeid)}
}

// buildGraph materializes the given constraints.
func buildGraph(constraints []Constraint) *graph {
	g := newGraph()
	for _, c := range constraints {
		switch c := c.(type) {
		case Base:
			s, o := g.node(c.Super), g.node(c.Sub)
			g.nodes[s].pts.add(o)
			g.seeds.add(s)
			g.seeds.add(o)
		case Simple:
			sub, super := g.node(c.Sub), g.node(c.Super)
			g.nodes[sub].copyTo.add(super)
		case Complex:
			sub, super := g.node(c.Sub), g.node(c.Super)
			if c.SubDereferenced {
				g.nodes[sub].loads = append(g.nodes[sub].loads, super)
			} else {
				g.nodes[super].stores = append(g.nodes[super].stores, sub)
			}
		default:
			log.Panicf("unknown constraint kind %T", c)
		}
	}
	return g
}

// node returns the node for the given identifier, creating it if needed.
func (g *graph) node(name string) nodeid {
	if id, found := g.ids[name]; found {
		return id
	}

	id := nodeid(len(g.nodes))
	g.nodes = append(g.nodes, &node{name: name})
	g.parent = append(g.parent, id)
	g.ids[name] = id
	return id
}

func (g *graph) find(n nodeid) nodeid {
	root := n
	for g.parent[root] != root {
		root = g.parent[root]
	}

	for g.parent[n] != root {
		next := g.parent[n]
		g.parent[n] = root
		n = next
	}

	return root
}

func (g *graph) valid(n nodeid) bool {
	return g.parent[n] == n
}

// merge makes `b` the representative of `a`. All state attached to `a` is
// moved to `b`.
func (g *graph) merge(a, b nodeid) {
	if a == b {
		log.Panicf("self-merge of %s", g.nodes[a].name)
	}
	if !g.valid(a) || !g.valid(b) {
		log.Panicf("merge arguments should be representatives: %s, %s",
			g.nodes[a].name, g.nodes[b].name)
	}

	g.parent[a] = b

	na, nb := g.nodes[a], g.nodes[b]
	nb.pts.addAll(&na.pts)
	nb.copyTo.addAll(&na.copyTo)
	nb.loads = append(nb.loads, na.loads...)
	nb.stores = append(nb.stores, na.stores...)
	nb.deferred = append(nb.deferred, na.deferred...)

	na.pts.Clear()
	na.copyTo.Clear()
	na.loads, na.stores, na.deferred = nil, nil, nil
}

// compact replaces the members of an attachment list by their
// representatives and drops duplicates. The list is modified in place.
func (g *graph) compact(l []nodeid) []nodeid {
	for i, x := range l {
		l[i] = g.find(x)
	}
	if len(l) < 2 {
		return l
	}

	sort.Slice(l, func(i, j int) bool { return l[i] < l[j] })
	j := 1
	for _, x := range l[1:] {
		if x != l[j-1] {
			l[j] = x
			j++
		}
	}
	return l[:j]
}

// pointsTo reads back the answer for every identifier in the graph.
// Identifiers sharing a representative share the same (sorted) slice.
func (g *graph) pointsTo() PointsTo {
	res := make(PointsTo, len(g.ids))
	byRep := make(map[nodeid][]string)
	var space []int
	for name, id := range g.ids {
		rep := g.find(id)
		members, found := byRep[rep]
		if !found {
			space = g.nodes[rep].pts.AppendTo(space[:0])
			members = make([]string, len(space))
			for i, x := range space {
				members[i] = g.nodes[x].name
			}
			sort.Strings(members)
			byRep[rep] = members
		}
		res[name] = members
	}
	return res
}
