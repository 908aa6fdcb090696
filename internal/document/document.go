// Package document is the flattened record sent to a search index: an
// ordered set of named fields, each holding one scalar or a list of
// scalars.
//
// Documents are assembled once per primary entity and are write-once: the
// batch writer freezes them when they are queued, after which any mutation
// panics.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one named entry of a document.
type Field struct {
	Name   string
	Values []any
	Multi  bool
}

// Document is an ordered field map. Use New.
type Document struct {
	fields []Field
	index  map[string]int
	seen   map[pair]struct{}
	frozen bool
}

type pair struct {
	field string
	value any
}

// New returns an empty document.
func New() *Document {
	return &Document{
		index: make(map[string]int),
		seen:  make(map[pair]struct{}),
	}
}

// Set stores a single scalar value, replacing any previous value of the
// field. A nil value leaves the field unset.
func (d *Document) Set(name string, v any) {
	d.mustWritable()
	if v == nil {
		return
	}
	v = normalize(v)
	if i, ok := d.index[name]; ok {
		for _, old := range d.fields[i].Values {
			delete(d.seen, pair{name, old})
		}
		d.fields[i] = Field{Name: name, Values: []any{v}}
	} else {
		d.index[name] = len(d.fields)
		d.fields = append(d.fields, Field{Name: name, Values: []any{v}})
	}
	d.seen[pair{name, v}] = struct{}{}
}

// Add appends v to a multi-valued field. Adding a (field, value) pair that
// is already present is a no-op; nil is ignored.
func (d *Document) Add(name string, v any) {
	d.mustWritable()
	if v == nil {
		return
	}
	v = normalize(v)
	p := pair{name, v}
	if _, dup := d.seen[p]; dup {
		return
	}
	d.seen[p] = struct{}{}
	i, ok := d.index[name]
	if !ok {
		i = len(d.fields)
		d.index[name] = i
		d.fields = append(d.fields, Field{Name: name, Multi: true})
	}
	d.fields[i].Multi = true
	d.fields[i].Values = append(d.fields[i].Values, v)
}

// AddAll fans values out into a multi-valued field. With no values the field
// is left out of the document entirely.
func AddAll[V any](d *Document, name string, values []V) {
	for _, v := range values {
		d.Add(name, v)
	}
}

// Flag stores 1 when cond holds and 0 otherwise.
func (d *Document) Flag(name string, cond bool) {
	if cond {
		d.Set(name, int64(1))
		return
	}
	d.Set(name, int64(0))
}

// Rank stores an integer sort rank.
func (d *Document) Rank(name string, rank int) {
	d.Set(name, int64(rank))
}

// Get returns the values of a field, or nil when the field is unset.
func (d *Document) Get(name string) []any {
	if i, ok := d.index[name]; ok {
		return d.fields[i].Values
	}
	return nil
}

// Value returns the first value of a field.
func (d *Document) Value(name string) (any, bool) {
	vs := d.Get(name)
	if len(vs) == 0 {
		return nil, false
	}
	return vs[0], true
}

// Has reports whether the field is set.
func (d *Document) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Names returns field names in insertion order.
func (d *Document) Names() []string {
	out := make([]string, len(d.fields))
	for i, f := range d.fields {
		out[i] = f.Name
	}
	return out
}

// Fields returns a copy of the fields in insertion order.
func (d *Document) Fields() []Field {
	out := make([]Field, len(d.fields))
	for i, f := range d.fields {
		out[i] = Field{Name: f.Name, Multi: f.Multi, Values: append([]any(nil), f.Values...)}
	}
	return out
}

// Len returns the number of fields.
func (d *Document) Len() int { return len(d.fields) }

// Freeze marks the document read-only.
func (d *Document) Freeze() { d.frozen = true }

// Frozen reports whether Freeze has been called.
func (d *Document) Frozen() bool { return d.frozen }

func (d *Document) mustWritable() {
	if d.frozen {
		panic("document: mutation after freeze")
	}
}

// MarshalJSON encodes the document as a JSON object in field order. Scalar
// fields encode as JSON scalars and multi-valued fields as arrays.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		var value any = f.Values
		if !f.Multi {
			value = f.Values[0]
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// normalize folds the integer and float kinds together so that equal numbers
// collapse during deduplication, and renders anything non-scalar as text.
func normalize(v any) any {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
