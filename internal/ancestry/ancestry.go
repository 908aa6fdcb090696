// Package ancestry propagates expression observations up an anatomy
// ontology, producing one aggregated Cell per (entity, object, term) for the
// observed term and every one of its ancestors.
//
// Term keys are stage-specific throughout; translating them to their
// stage-independent equivalents is left to whoever emits the cells.
package ancestry

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome is the normalised result of one observation.
type Outcome int

const (
	Detected Outcome = iota + 1
	NotDetected
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Detected:
		return "detected"
	case NotDetected:
		return "not detected"
	case Ambiguous:
		return "ambiguous"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ParseOutcome maps a source strength to an Outcome. "Absent" and level 0
// are not detected, "Ambiguous" is ambiguous, and every graded strength
// (Present, Trace, Weak, Moderate, Strong, Very strong, Not Specified, or a
// positive level) counts as detected.
func ParseOutcome(s string) (Outcome, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "absent":
		return NotDetected, nil
	case "ambiguous":
		return Ambiguous, nil
	case "present", "trace", "weak", "moderate", "strong", "very strong", "not specified":
		return Detected, nil
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		if n == 0 {
			return NotDetected, nil
		}
		return Detected, nil
	}
	return 0, fmt.Errorf("unknown strength %q", s)
}

// ObjectType is the kind of object a cell is grouped under.
type ObjectType int

const (
	ObjectAllele ObjectType = iota + 1
	ObjectDriver
)

func (t ObjectType) String() string {
	switch t {
	case ObjectAllele:
		return "allele"
	case ObjectDriver:
		return "driver"
	default:
		return fmt.Sprintf("ObjectType(%d)", int(t))
	}
}

// CellKey identifies one aggregation bucket.
type CellKey struct {
	Entity     int64
	ObjectType ObjectType
	Object     int64
	Term       int64
}

// Cell holds the counts folded into one bucket.
type Cell struct {
	Key                     CellKey
	Detected                int
	NotDetected             int
	Ambiguous               int
	Children                int
	QuestionableDescendants bool
}

// Observation is one raw result.
type Observation struct {
	Entity     int64
	ObjectType ObjectType
	Object     int64
	Term       int64
	Outcome    Outcome
}

// AncestorFunc returns the transitive ancestors of a term, excluding the
// term itself.
type AncestorFunc func(term int64) []int64

// Aggregator folds observations into cells. It is not safe for concurrent
// use.
type Aggregator struct {
	ancestors AncestorFunc
	cells     map[CellKey]*Cell
	order     []CellKey
}

// New returns an Aggregator using ancestors as the closure. A nil func
// means no term has ancestors.
func New(ancestors AncestorFunc) *Aggregator {
	if ancestors == nil {
		ancestors = func(int64) []int64 { return nil }
	}
	return &Aggregator{ancestors: ancestors, cells: make(map[CellKey]*Cell)}
}

// Observe updates the cell of the observed term directly and the cell of
// every ancestor in ancestor mode.
func (a *Aggregator) Observe(o Observation) {
	key := CellKey{Entity: o.Entity, ObjectType: o.ObjectType, Object: o.Object, Term: o.Term}
	a.cell(key).apply(o.Outcome, false)
	for _, anc := range a.ancestors(o.Term) {
		if anc == o.Term {
			continue
		}
		key.Term = anc
		a.cell(key).apply(o.Outcome, true)
	}
}

func (a *Aggregator) cell(k CellKey) *Cell {
	c, ok := a.cells[k]
	if !ok {
		c = &Cell{Key: k}
		a.cells[k] = c
		a.order = append(a.order, k)
	}
	return c
}

func (c *Cell) apply(o Outcome, ancestor bool) {
	switch {
	case o == Detected:
		c.Detected++
		if ancestor {
			c.Children++
		}
	case ancestor:
		// negative or unclear evidence below; the ancestor's own counts stay put
		c.QuestionableDescendants = true
		c.Children++
	case o == NotDetected:
		c.NotDetected++
	case o == Ambiguous:
		c.Ambiguous++
	}
}

// Get returns a copy of one cell.
func (a *Aggregator) Get(k CellKey) (Cell, bool) {
	c, ok := a.cells[k]
	if !ok {
		return Cell{}, false
	}
	return *c, true
}

// Cells returns copies of every cell in first-observation order.
func (a *Aggregator) Cells() []Cell {
	out := make([]Cell, len(a.order))
	for i, k := range a.order {
		out[i] = *a.cells[k]
	}
	return out
}

// Len returns the number of cells.
func (a *Aggregator) Len() int { return len(a.order) }

// Reset discards every cell.
func (a *Aggregator) Reset() {
	a.cells = make(map[CellKey]*Cell)
	a.order = nil
}
