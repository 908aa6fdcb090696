// Package vocab assembles the term hierarchy of one vocabulary from term,
// edge and closure rows: parent and child lists in display order, transitive
// ancestors, roots and depths. The hierarchy is loaded whole; descriptive
// rows (definitions, synonyms, cross references) are loaded per key range
// with LoadDetails.
package vocab

import (
	"cmp"
	"slices"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/lookup"
	"mgiindexer/pkg/smartalpha"
)

// Term is one input term row.
type Term struct {
	Key      int64
	ID       string // primary accession ID; empty when missing
	Label    string
	Obsolete bool
}

// Edge is a direct child → parent relationship.
type Edge struct {
	Child, Parent int64
	Label         string
}

// Link is one closure row.
type Link struct {
	Descendant, Ancestor int64
}

// TermNode is an assembled term.
type TermNode struct {
	Key       int64
	ID        string
	Label     string
	Obsolete  bool
	Parents   []int64
	Children  []int64
	Ancestors []int64
	Depth     int
}

// Graph is the assembled hierarchy. It is read-only once built.
type Graph struct {
	nodes   map[int64]*TermNode
	order   []int64
	keys    []int64 // ascending
	roots   []int64
	skipped []int64
	labels  map[edgeKey]string
}

type edgeKey struct{ child, parent int64 }

// Build assembles a Graph. Obsolete terms without an ID are skipped; a live
// term without an ID is an *indexer.AnomalyError. Edges and closure rows
// that reference unknown or skipped terms are ignored.
func Build(terms []Term, edges []Edge, closure []Link) (*Graph, error) {
	g := &Graph{nodes: make(map[int64]*TermNode, len(terms)), labels: make(map[edgeKey]string)}
	for _, t := range terms {
		if _, dup := g.nodes[t.Key]; dup {
			continue
		}
		if t.ID == "" {
			if t.Obsolete {
				g.skipped = append(g.skipped, t.Key)
				continue
			}
			return nil, &indexer.AnomalyError{Entity: "term", Key: t.Key, Reason: "missing primary ID"}
		}
		g.nodes[t.Key] = &TermNode{
			Key:      t.Key,
			ID:       t.ID,
			Label:    t.Label,
			Obsolete: t.Obsolete,
			Depth:    -1,
		}
		g.order = append(g.order, t.Key)
	}
	g.keys = slices.Clone(g.order)
	slices.Sort(g.keys)

	parents := lookup.New[int64, int64]()
	children := lookup.New[int64, int64]()
	for _, e := range edges {
		if !g.Has(e.Child) || !g.Has(e.Parent) || e.Child == e.Parent {
			continue
		}
		parents.Add(e.Child, e.Parent)
		children.Add(e.Parent, e.Child)
		if k := (edgeKey{e.Child, e.Parent}); g.labels[k] == "" {
			g.labels[k] = e.Label
		}
	}
	ancestors := lookup.New[int64, int64]()
	for _, l := range closure {
		if g.Has(l.Descendant) && g.Has(l.Ancestor) && l.Descendant != l.Ancestor {
			ancestors.Add(l.Descendant, l.Ancestor)
		}
	}

	for _, k := range g.order {
		n := g.nodes[k]
		n.Parents = g.byLabel(parents.Get(k))
		n.Children = g.byLabel(children.Get(k))
		n.Ancestors = slices.Clone(ancestors.Get(k))
		if len(n.Parents) == 0 {
			g.roots = append(g.roots, k)
		}
	}
	g.roots = g.byLabel(g.roots)
	g.depths()
	return g, nil
}

// byLabel returns keys ordered by smart-alpha label, then key.
func (g *Graph) byLabel(keys []int64) []int64 {
	out := slices.Clone(keys)
	slices.SortStableFunc(out, func(a, b int64) int {
		if c := smartalpha.Compare(g.nodes[a].Label, g.nodes[b].Label); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return out
}

// depths runs one breadth-first pass from every root. Terms only reachable
// through a cycle keep depth -1.
func (g *Graph) depths() {
	queue := make([]int64, 0, len(g.nodes))
	for _, r := range g.roots {
		g.nodes[r].Depth = 0
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		d := g.nodes[k].Depth
		for _, c := range g.nodes[k].Children {
			if n := g.nodes[c]; n.Depth < 0 {
				n.Depth = d + 1
				queue = append(queue, c)
			}
		}
	}
}

// Has reports whether k is a kept term.
func (g *Graph) Has(k int64) bool {
	_, ok := g.nodes[k]
	return ok
}

// Node returns the assembled term.
func (g *Graph) Node(k int64) (*TermNode, bool) {
	n, ok := g.nodes[k]
	return n, ok
}

// TermsIn returns the kept terms whose keys fall in r, in key order.
func (g *Graph) TermsIn(r chunk.Range) []*TermNode {
	lo, _ := slices.BinarySearch(g.keys, r.Start)
	hi, _ := slices.BinarySearch(g.keys, r.End)
	out := make([]*TermNode, 0, hi-lo)
	for _, k := range g.keys[lo:hi] {
		out = append(out, g.nodes[k])
	}
	return out
}

// Terms returns kept terms in input order.
func (g *Graph) Terms() []*TermNode {
	out := make([]*TermNode, len(g.order))
	for i, k := range g.order {
		out[i] = g.nodes[k]
	}
	return out
}

// Parents returns direct parents in display order.
func (g *Graph) Parents(k int64) []int64 {
	if n, ok := g.nodes[k]; ok {
		return n.Parents
	}
	return nil
}

// Children returns direct children in display order.
func (g *Graph) Children(k int64) []int64 {
	if n, ok := g.nodes[k]; ok {
		return n.Children
	}
	return nil
}

// Ancestors returns every transitive ancestor from the closure.
func (g *Graph) Ancestors(k int64) []int64 {
	if n, ok := g.nodes[k]; ok {
		return n.Ancestors
	}
	return nil
}

// HasChildren reports whether k has at least one child.
func (g *Graph) HasChildren(k int64) bool { return len(g.Children(k)) > 0 }

// Depth returns the shortest edge distance from a root, or -1.
func (g *Graph) Depth(k int64) int {
	if n, ok := g.nodes[k]; ok {
		return n.Depth
	}
	return -1
}

// Roots returns terms without parents in display order.
func (g *Graph) Roots() []int64 { return g.roots }

// Skipped returns the obsolete terms dropped for lack of an ID.
func (g *Graph) Skipped() []int64 { return g.skipped }

// EdgeLabel returns the relationship label between a child and a parent.
func (g *Graph) EdgeLabel(child, parent int64) (string, bool) {
	l, ok := g.labels[edgeKey{child, parent}]
	return l, ok
}

// Len returns the number of kept terms.
func (g *Graph) Len() int { return len(g.order) }
