package vocab

import (
	"context"
	"database/sql"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/lookup"
	"mgiindexer/internal/source"
	"mgiindexer/pkg/smartalpha"
)

const (
	termsQuery = `SELECT t.term_key, a.acc_id, t.term, t.is_obsolete
FROM voc_term t
LEFT JOIN acc_accession a ON a.object_key = t.term_key AND a.object_type = 'term' AND a.preferred = 1 AND a.private = 0
WHERE t.vocab_key = $1
ORDER BY t.sequence_num, t.term_key`

	edgesQuery = `SELECT e.child_key, e.parent_key, e.edge_label
FROM voc_edge e
JOIN voc_term t ON t.term_key = e.child_key
WHERE t.vocab_key = $1`

	closureQuery = `SELECT c.descendant_key, c.ancestor_key
FROM voc_closure c
JOIN voc_term t ON t.term_key = c.descendant_key
WHERE t.vocab_key = $1`

	definitionsQuery = `SELECT term_key, definition FROM voc_term
WHERE vocab_key = $1 AND term_key >= $2 AND term_key < $3 AND definition IS NOT NULL`

	synonymsQuery = `SELECT s.term_key, s.synonym
FROM voc_synonym s
JOIN voc_term t ON t.term_key = s.term_key
WHERE t.vocab_key = $1 AND s.term_key >= $2 AND s.term_key < $3`

	xrefsQuery = `SELECT a.object_key, a.acc_id
FROM acc_accession a
JOIN voc_term t ON t.term_key = a.object_key
WHERE a.object_type = 'term' AND a.preferred = 0 AND a.private = 0
  AND t.vocab_key = $1 AND a.object_key >= $2 AND a.object_key < $3
ORDER BY a.object_key, a.acc_id`
)

// Load reads one vocabulary and builds its Graph.
func Load(ctx context.Context, q source.Querier, vocabKey int64) (*Graph, error) {
	args := []any{vocabKey}
	var terms []Term
	err := source.Each(ctx, q, "vocab terms", termsQuery, args, func(rows *sql.Rows) error {
		var (
			t          Term
			id         sql.NullString
			isObsolete int64
		)
		if err := rows.Scan(&t.Key, &id, &t.Label, &isObsolete); err != nil {
			return err
		}
		t.ID = id.String
		t.Obsolete = isObsolete != 0
		terms = append(terms, t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var edges []Edge
	err = source.Each(ctx, q, "vocab edges", edgesQuery, args, func(rows *sql.Rows) error {
		var e Edge
		var label sql.NullString
		if err := rows.Scan(&e.Child, &e.Parent, &label); err != nil {
			return err
		}
		e.Label = label.String
		edges = append(edges, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var closure []Link
	err = source.Each(ctx, q, "vocab closure", closureQuery, args, func(rows *sql.Rows) error {
		var l Link
		if err := rows.Scan(&l.Descendant, &l.Ancestor); err != nil {
			return err
		}
		closure = append(closure, l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Build(terms, edges, closure)
}

// Details holds the descriptive rows of one key range of a vocabulary.
type Details struct {
	definitions *lookup.Map[int64, string]
	synonyms    *lookup.Map[int64, string]
	xrefs       *lookup.Map[int64, string]
}

// LoadDetails reads definitions, synonyms and cross references for the terms
// of one vocabulary whose keys fall in r.
func LoadDetails(ctx context.Context, q source.Querier, vocabKey int64, r chunk.Range) (*Details, error) {
	args := append([]any{vocabKey}, r.Args()...)
	var (
		d   Details
		err error
	)
	if d.definitions, err = lookup.Build(ctx, q, "vocab definitions", definitionsQuery, args, lookup.KeyString); err != nil {
		return nil, err
	}
	if d.synonyms, err = lookup.Build(ctx, q, "vocab synonyms", synonymsQuery, args, lookup.KeyString); err != nil {
		return nil, err
	}
	if d.xrefs, err = lookup.Build(ctx, q, "vocab xrefs", xrefsQuery, args, lookup.KeyString); err != nil {
		return nil, err
	}
	return &d, nil
}

// Definition returns the term's definition, or "".
func (d *Details) Definition(term int64) string {
	def, _ := d.definitions.First(term)
	return def
}

// Synonyms returns the term's distinct synonyms in smart-alpha order.
func (d *Details) Synonyms(term int64) []string {
	return d.synonyms.Sorted(term, smartalpha.Compare)
}

// XRefs returns the term's secondary accession IDs.
func (d *Details) XRefs(term int64) []string { return d.xrefs.Get(term) }
