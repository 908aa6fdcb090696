package indexers

import (
	"context"
	"database/sql"
	"slices"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/document"
	"mgiindexer/internal/idformat"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/lookup"
	"mgiindexer/internal/source"
	"mgiindexer/pkg/smartalpha"
)

// Allele rebuilds the allele index.
type Allele struct{}

func (Allele) Name() string { return "allele" }

const (
	alleleBoundsQuery = `SELECT MIN(allele_key), MAX(allele_key) FROM all_allele`

	alleleQuery = `SELECT allele_key, marker_key, symbol, name, allele_type, transmission, is_wild_type
FROM all_allele
WHERE allele_key >= $1 AND allele_key < $2
ORDER BY allele_key`

	alleleSynonymsQuery = `SELECT allele_key, synonym FROM all_synonym
WHERE allele_key >= $1 AND allele_key < $2
ORDER BY allele_key, synonym`

	alleleNotesQuery = `SELECT object_key, note FROM mgi_note
WHERE object_type = 'allele' AND object_key >= $1 AND object_key < $2
ORDER BY object_key, note_type, sequence_num`

	allelePhenotypesQuery = `SELECT object_key, term_key FROM voc_annot
WHERE object_type = 'allele' AND annot_type = 'MP' AND object_key >= $1 AND object_key < $2
ORDER BY object_key, term_key`

	alleleDiseasesQuery = `SELECT object_key, term_key FROM voc_annot
WHERE object_type = 'allele' AND annot_type = 'DO' AND (qualifier IS NULL OR qualifier <> 'NOT')
AND object_key >= $1 AND object_key < $2
ORDER BY object_key, term_key`

	diseaseTermsQuery = `SELECT t.term_key, t.term FROM voc_term t
JOIN voc_vocab v ON v.vocab_key = t.vocab_key
WHERE v.name = 'Disease Ontology' AND t.is_obsolete = 0`

	markerSymbolsQuery = `SELECT marker_key, symbol FROM mrk_marker WHERE organism = 'mouse'`
)

type diseaseTerm struct {
	key   int64
	label string
}

// diseaseRanks ranks disease terms by smart-alpha label.
func diseaseRanks(ctx context.Context, q source.Querier) (*lookup.Ranks[int64], error) {
	var terms []diseaseTerm
	err := source.Each(ctx, q, "disease terms", diseaseTermsQuery, nil, func(rows *sql.Rows) error {
		var t diseaseTerm
		if err := rows.Scan(&t.key, &t.label); err != nil {
			return err
		}
		terms = append(terms, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(terms, smartalpha.By(func(t diseaseTerm) string { return t.label }))
	keys := make([]int64, len(terms))
	for i, t := range terms {
		keys[i] = t.key
	}
	return lookup.RanksOf(keys), nil
}

type alleleChunk struct {
	synonyms   *lookup.Map[int64, string]
	ids        *lookup.Map[int64, idformat.Display]
	notes      *lookup.Map[int64, string]
	phenotypes *lookup.Map[int64, int64]
	diseases   *lookup.Map[int64, int64]
}

func loadAlleleChunk(ctx context.Context, q source.Querier, terms *termIndex, r chunk.Range) (*alleleChunk, error) {
	var (
		c   alleleChunk
		err error
	)
	args := r.Args()
	if c.synonyms, err = lookup.Build(ctx, q, "allele synonyms", alleleSynonymsQuery, args, lookup.KeyString); err != nil {
		return nil, err
	}
	if c.ids, err = accIDs(ctx, q, "allele", r); err != nil {
		return nil, err
	}
	if c.notes, err = lookup.Build(ctx, q, "allele notes", alleleNotesQuery, args, lookup.KeyString); err != nil {
		return nil, err
	}
	if c.phenotypes, err = lookup.Build(ctx, q, "allele phenotypes", allelePhenotypesQuery, args, lookup.KeyKey); err != nil {
		return nil, err
	}
	lookup.Expand(c.phenotypes, c.phenotypes, terms.ancestors)
	if c.diseases, err = lookup.Build(ctx, q, "allele diseases", alleleDiseasesQuery, args, lookup.KeyKey); err != nil {
		return nil, err
	}
	return &c, nil
}

func (Allele) Index(ctx context.Context, env *indexer.Env) error {
	terms, err := loadTermIndex(ctx, env.DB)
	if err != nil {
		return err
	}
	ranks, err := diseaseRanks(ctx, env.DB)
	if err != nil {
		return err
	}
	symbols, err := lookup.Build(ctx, env.DB, "marker symbols", markerSymbolsQuery, nil, lookup.KeyString)
	if err != nil {
		return err
	}

	return indexer.Chunked(ctx, env, "all_allele", alleleBoundsQuery, nil, func(ctx context.Context, r chunk.Range) error {
		c, err := loadAlleleChunk(ctx, env.DB, terms, r)
		if err != nil {
			return err
		}
		n := 0
		err = source.Each(ctx, env.DB, "alleles", alleleQuery, r.Args(), func(rows *sql.Rows) error {
			var (
				key, wildType      int64
				marker             sql.NullInt64
				symbol, name, kind string
				transmission       sql.NullString
			)
			if err := rows.Scan(&key, &marker, &symbol, &name, &kind, &transmission, &wildType); err != nil {
				return err
			}
			n++
			d := document.New()
			d.Set("alleleKey", key)
			ids := c.ids.Get(key)
			if id, ok := primaryID(ids, idformat.MGI); ok {
				d.Set("alleleID", id)
			}
			d.Set("symbol", symbol)
			d.Set("name", name)
			d.Set("alleleType", kind)
			if transmission.Valid {
				d.Set("transmission", transmission.String)
			}
			d.Flag("isWildType", wildType != 0)
			if marker.Valid {
				d.Set("markerKey", marker.Int64)
				if s, ok := symbols.First(marker.Int64); ok {
					d.Set("markerSymbol", s)
				}
			}
			document.AddAll(d, "synonym", c.synonyms.Sorted(key, smartalpha.Compare))
			addIDs(d, ids)
			document.AddAll(d, "note", c.notes.Get(key))

			pheno := c.phenotypes.Get(key)
			document.AddAll(d, "mpTerm", terms.labelsOf(pheno))
			document.AddAll(d, "mpID", terms.idsOf(pheno))
			d.Flag("hasPhenotype", len(pheno) > 0)

			diseases := c.diseases.Get(key)
			document.AddAll(d, "disease", terms.labelsOf(diseases))
			document.AddAll(d, "diseaseID", terms.idsOf(diseases))
			d.Flag("hasDisease", len(diseases) > 0)
			d.Rank("diseaseSort", ranks.Best(diseases))
			return env.Emit(ctx, d)
		})
		env.Metrics.Rows(n)
		return err
	})
}
