// Package relgraph is the in-memory form of a description's relation graph: a
// directed graph with at most one edge per ordered (subject, object) pair, whose
// nodes are entity mentions and whose edges carry predicate attributes.
package relgraph

import (
	"github.com/yungbote/termbase-backend/internal/domain/glossary"
)

type Node struct {
	ID   string
	Type *string
}

type EdgeAttrs struct {
	Predicate     string
	PredicateType *string
	Position      int
}

type Edge struct {
	Source string
	Target string
	EdgeAttrs
}

// Graph interns mention strings to slot indices. Removed slots stay dead; a
// re-added mention takes a fresh slot so iteration keeps insertion order.
type Graph struct {
	names []string
	types []*string
	alive []bool
	index map[string]int

	out      []map[int]*EdgeAttrs
	outOrder [][]int
	in       []map[int]struct{}

	nodes int
	edges int
}

func New() *Graph {
	return &Graph{index: map[string]int{}}
}

// Rebuild builds a graph from scratch, adding triples in order.
func Rebuild(triples []glossary.Triple) *Graph {
	g := New()
	for _, t := range triples {
		g.Add(t)
	}
	return g
}

func (g *Graph) NodeCount() int { return g.nodes }
func (g *Graph) EdgeCount() int { return g.edges }

func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// AddNode inserts id or, when present, overwrites its type.
func (g *Graph) AddNode(id string, typ *string) {
	if i, ok := g.index[id]; ok {
		g.types[i] = cloneStr(typ)
		return
	}
	i := len(g.names)
	g.names = append(g.names, id)
	g.types = append(g.types, cloneStr(typ))
	g.alive = append(g.alive, true)
	g.out = append(g.out, map[int]*EdgeAttrs{})
	g.outOrder = append(g.outOrder, nil)
	g.in = append(g.in, map[int]struct{}{})
	g.index[id] = i
	g.nodes++
}

// SetEdge inserts source->target or replaces the attributes of the existing
// edge in place. It reports whether a new edge was created.
func (g *Graph) SetEdge(source, target string, attrs EdgeAttrs) bool {
	if !g.HasNode(source) {
		g.AddNode(source, nil)
	}
	if !g.HasNode(target) {
		g.AddNode(target, nil)
	}
	s, t := g.index[source], g.index[target]
	attrs.PredicateType = cloneStr(attrs.PredicateType)
	if cur, ok := g.out[s][t]; ok {
		*cur = attrs
		return false
	}
	g.out[s][t] = &attrs
	g.outOrder[s] = append(g.outOrder[s], t)
	g.in[t][s] = struct{}{}
	g.edges++
	return true
}

// Add applies one relation: both endpoint nodes (types overwritten) and the
// subject->object edge. It reports whether a new edge was created.
func (g *Graph) Add(t glossary.Triple) bool {
	g.AddNode(t.Subject, t.SubjectType)
	g.AddNode(t.Object, t.ObjectType)
	return g.SetEdge(t.Subject, t.Object, EdgeAttrs{
		Predicate:     t.Predicate,
		PredicateType: t.PredicateType,
		Position:      t.Position,
	})
}

// Remove deletes the subject->object edge only when its predicate and
// predicate type both match the relation, then drops whichever endpoints are
// left without edges. It reports whether an edge was removed.
func (g *Graph) Remove(t glossary.Triple) bool {
	attrs, ok := g.Edge(t.Subject, t.Object)
	if !ok {
		return false
	}
	if attrs.Predicate != t.Predicate || !equalStr(attrs.PredicateType, t.PredicateType) {
		return false
	}
	s, o := g.index[t.Subject], g.index[t.Object]
	g.removeEdge(s, o)
	g.pruneIfIsolated(s)
	if o != s {
		g.pruneIfIsolated(o)
	}
	return true
}

func (g *Graph) Edge(source, target string) (EdgeAttrs, bool) {
	s, ok := g.index[source]
	if !ok {
		return EdgeAttrs{}, false
	}
	t, ok := g.index[target]
	if !ok {
		return EdgeAttrs{}, false
	}
	a, ok := g.out[s][t]
	if !ok {
		return EdgeAttrs{}, false
	}
	return *a, true
}

func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.Edge(source, target)
	return ok
}

func (g *Graph) InDegree(id string) int {
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.in[i])
}

func (g *Graph) OutDegree(id string) int {
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.out[i])
}

// Nodes lists live nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, g.nodes)
	for i, name := range g.names {
		if !g.alive[i] {
			continue
		}
		out = append(out, Node{ID: name, Type: cloneStr(g.types[i])})
	}
	return out
}

// Edges lists edges grouped by source in node order, each group in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for s, name := range g.names {
		if !g.alive[s] {
			continue
		}
		for _, t := range g.outOrder[s] {
			a := g.out[s][t]
			out = append(out, Edge{
				Source: name,
				Target: g.names[t],
				EdgeAttrs: EdgeAttrs{
					Predicate:     a.Predicate,
					PredicateType: cloneStr(a.PredicateType),
					Position:      a.Position,
				},
			})
		}
	}
	return out
}

func (g *Graph) removeEdge(s, t int) {
	delete(g.out[s], t)
	delete(g.in[t], s)
	order := g.outOrder[s]
	for k, v := range order {
		if v == t {
			g.outOrder[s] = append(order[:k:k], order[k+1:]...)
			break
		}
	}
	g.edges--
}

func (g *Graph) pruneIfIsolated(i int) {
	if !g.alive[i] || len(g.in[i]) > 0 || len(g.out[i]) > 0 {
		return
	}
	g.alive[i] = false
	delete(g.index, g.names[i])
	g.out[i] = nil
	g.in[i] = nil
	g.outOrder[i] = nil
	g.nodes--
}

// Equal reports structural equality: same nodes with the same types, same
// edges with the same attributes. Order is not compared.
func Equal(a, b *Graph) bool {
	if a.NodeCount() != b.NodeCount() || a.EdgeCount() != b.EdgeCount() {
		return false
	}
	for _, n := range a.Nodes() {
		i, ok := b.index[n.ID]
		if !ok || !equalStr(n.Type, b.types[i]) {
			return false
		}
	}
	for _, e := range a.Edges() {
		other, ok := b.Edge(e.Source, e.Target)
		if !ok || other.Predicate != e.Predicate || other.Position != e.Position || !equalStr(other.PredicateType, e.PredicateType) {
			return false
		}
	}
	return true
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
