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

// Reference rebuilds the literature reference index.
type Reference struct{}

func (Reference) Name() string { return "reference" }

const (
	referenceBoundsQuery = `SELECT MIN(reference_key), MAX(reference_key) FROM bib_refs`

	referenceQuery = `SELECT reference_key, ref_type, title, journal, year, authors, citation
FROM bib_refs
WHERE reference_key >= $1 AND reference_key < $2
ORDER BY reference_key`

	referenceMarkersQuery = `SELECT r.reference_key, m.symbol
FROM mgi_reference_assoc r
JOIN mrk_marker m ON m.marker_key = r.object_key
WHERE r.object_type = 'marker' AND r.reference_key >= $1 AND r.reference_key < $2`

	referenceAllelesQuery = `SELECT r.reference_key, a.symbol
FROM mgi_reference_assoc r
JOIN all_allele a ON a.allele_key = r.object_key
WHERE r.object_type = 'allele' AND r.reference_key >= $1 AND r.reference_key < $2`
)

// referenceIDFieldOrder lists the single-valued ID fields of a reference.
var referenceIDFieldOrder = []string{"jnumID", "referenceID", "pubmedID", "doiID"}

// J numbers recorded under their own logical database beat J: IDs filed
// under MGI.
const (
	jnumFromJNumberDB lookup.Precedence = iota
	jnumFromMGIDB
)

// referenceIDFields picks one ID per field. Equal precedence keeps the first
// ID offered, which is the accession query's preferred-first order.
func referenceIDFields(ids []idformat.Display) *lookup.Preferred[string, string] {
	chosen := lookup.NewPreferred[string, string]()
	for _, id := range ids {
		switch {
		case id.LogicalDB == "J Number":
			chosen.Offer("jnumID", id.ID, jnumFromJNumberDB)
		case strings.HasPrefix(id.ID, "J:"):
			chosen.Offer("jnumID", id.ID, jnumFromMGIDB)
		case id.Kind == idformat.MGI:
			chosen.Offer("referenceID", id.ID, 0)
		case id.Kind == idformat.PubMed:
			chosen.Offer("pubmedID", id.ID, 0)
		case id.Kind == idformat.DOI:
			chosen.Offer("doiID", id.ID, 0)
		}
	}
	return chosen
}

func (Reference) Index(ctx context.Context, env *indexer.Env) error {
	return indexer.Chunked(ctx, env, "bib_refs", referenceBoundsQuery, nil, func(ctx context.Context, r chunk.Range) error {
		args := r.Args()
		ids, err := accIDs(ctx, env.DB, "reference", r)
		if err != nil {
			return err
		}
		markers, err := lookup.Build(ctx, env.DB, "reference markers", referenceMarkersQuery, args, lookup.KeyString)
		if err != nil {
			return err
		}
		alleles, err := lookup.Build(ctx, env.DB, "reference alleles", referenceAllelesQuery, args, lookup.KeyString)
		if err != nil {
			return err
		}

		n := 0
		err = source.Each(ctx, env.DB, "references", referenceQuery, args, func(rows *sql.Rows) error {
			var (
				key                        int64
				refType, title             string
				journal, authors, citation sql.NullString
				year                       sql.NullInt64
			)
			if err := rows.Scan(&key, &refType, &title, &journal, &year, &authors, &citation); err != nil {
				return err
			}
			n++
			d := document.New()
			d.Set("referenceKey", key)
			refIDs := ids.Get(key)
			chosen := referenceIDFields(refIDs)
			for _, field := range referenceIDFieldOrder {
				if id, ok := chosen.Get(field); ok {
					d.Set(field, id)
				}
			}
			d.Set("refType", refType)
			d.Set("title", title)
			if journal.Valid {
				d.Set("journal", journal.String)
			}
			if year.Valid {
				d.Set("year", year.Int64)
			}
			if citation.Valid {
				d.Set("citation", citation.String)
			}
			names := splitAuthors(authors.String)
			if len(names) > 0 {
				d.Set("firstAuthor", names[0])
				d.Set("lastAuthor", names[len(names)-1])
			}
			document.AddAll(d, "author", names)
			addIDs(d, refIDs)
			document.AddAll(d, "markerSymbol", markers.Sorted(key, smartalpha.Compare))
			document.AddAll(d, "alleleSymbol", alleles.Sorted(key, smartalpha.Compare))
			d.Flag("hasMarkers", markers.Has(key))
			d.Flag("hasAlleles", alleles.Has(key))
			return env.Emit(ctx, d)
		})
		env.Metrics.Rows(n)
		return err
	})
}
