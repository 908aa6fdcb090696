// Package indexers holds the concrete index rebuild jobs. Each job owns a
// fixed field vocabulary for its index.
package indexers

import (
	"context"
	"database/sql"
	"strings"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/document"
	"mgiindexer/internal/idformat"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/lookup"
	"mgiindexer/internal/source"
	"mgiindexer/pkg/smartalpha"
)

// All returns one instance of every job.
func All() []indexer.Job {
	return []indexer.Job{
		Allele{},
		Marker{},
		Reference{},
		Sequence{},
		Probe{},
		Homology{},
		VocabBrowser{},
		RecombinaseMatrix{},
	}
}

// NewRegistry registers every job.
func NewRegistry() (*indexer.Registry, error) {
	return indexer.NewRegistry(All()...)
}

const accIDsQuery = `SELECT object_key, logical_db, acc_id
FROM acc_accession
WHERE object_key >= $1 AND object_key < $2 AND object_type = $3 AND private = 0
ORDER BY object_key, preferred DESC, logical_db, acc_id`

// accIDs maps object keys in r to their public accession IDs, preferred
// IDs first.
func accIDs(ctx context.Context, q source.Querier, objectType string, r chunk.Range) (*lookup.Map[int64, idformat.Display], error) {
	return lookup.Build(ctx, q, objectType+" ids", accIDsQuery, append(r.Args(), objectType),
		func(rows *sql.Rows) (int64, idformat.Display, error) {
			var key int64
			var ldb, id string
			if err := rows.Scan(&key, &ldb, &id); err != nil {
				return 0, idformat.Display{}, err
			}
			return key, idformat.Of(objectType, ldb, id), nil
		})
}

// primaryID returns the first ID of the given kind.
func primaryID(ids []idformat.Display, kind idformat.Kind) (string, bool) {
	for _, d := range ids {
		if d.Kind == kind {
			return d.ID, true
		}
	}
	return "", false
}

// addIDs fans ids out into the accID, idDisplay and idURL fields.
func addIDs(d *document.Document, ids []idformat.Display) {
	for _, id := range ids {
		d.Add("accID", id.ID)
		d.Add("idDisplay", id.Text)
		if id.URL != "" {
			d.Add("idURL", id.URL)
		}
	}
}

// termIndex is the vocabulary data shared by the annotation-bearing jobs.
// It is small enough to load once per job.
type termIndex struct {
	labels    *lookup.Map[int64, string]
	ids       *lookup.Map[int64, string]
	synonyms  *lookup.Map[int64, string]
	ancestors *lookup.Map[int64, int64]
}

const (
	termLabelsQuery = `SELECT term_key, term FROM voc_term`

	termIDsQuery = `SELECT object_key, acc_id FROM acc_accession
WHERE object_type = 'term' AND preferred = 1 AND private = 0
ORDER BY object_key, acc_id`

	termSynonymsQuery = `SELECT term_key, synonym FROM voc_synonym ORDER BY term_key, synonym`

	termClosureQuery = `SELECT descendant_key, ancestor_key FROM voc_closure ORDER BY descendant_key, ancestor_key`
)

func loadTermIndex(ctx context.Context, q source.Querier) (*termIndex, error) {
	var (
		ti  termIndex
		err error
	)
	if ti.labels, err = lookup.Build(ctx, q, "term labels", termLabelsQuery, nil, lookup.KeyString); err != nil {
		return nil, err
	}
	if ti.ids, err = lookup.Build(ctx, q, "term ids", termIDsQuery, nil, lookup.KeyString); err != nil {
		return nil, err
	}
	if ti.synonyms, err = lookup.Build(ctx, q, "term synonyms", termSynonymsQuery, nil, lookup.KeyString); err != nil {
		return nil, err
	}
	if ti.ancestors, err = lookup.Build(ctx, q, "term closure", termClosureQuery, nil, lookup.KeyKey); err != nil {
		return nil, err
	}
	return &ti, nil
}

func (ti *termIndex) label(term int64) string {
	l, _ := ti.labels.First(term)
	return l
}

func (ti *termIndex) id(term int64) string {
	id, _ := ti.ids.First(term)
	return id
}

// labelsOf returns the labels of terms, smart-alpha sorted.
func (ti *termIndex) labelsOf(terms []int64) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if l := ti.label(t); l != "" {
			out = append(out, l)
		}
	}
	smartalpha.Sort(out)
	return out
}

// idsOf returns the primary IDs of terms.
func (ti *termIndex) idsOf(terms []int64) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if id := ti.id(t); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// splitAuthors splits a "A; B; C" author list.
func splitAuthors(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ";") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
