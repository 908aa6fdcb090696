package indexers

import (
	"context"
	"database/sql"
	"fmt"

	"mgiindexer/internal/ancestry"
	"mgiindexer/internal/chunk"
	"mgiindexer/internal/document"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/lookup"
	"mgiindexer/internal/source"
)

// RecombinaseMatrix rebuilds the recombinase activity matrix: one document
// per (driver, allele or driver, anatomy structure at a stage) cell, with
// results propagated up the stage-specific anatomy hierarchy.
type RecombinaseMatrix struct{}

func (RecombinaseMatrix) Name() string { return "recombinaseMatrix" }

const emapsClosureTable = "tmp_emaps_closure"

const (
	emapsClosureSelect = `SELECT c.descendant_key, c.ancestor_key
FROM voc_closure c
JOIN voc_term t ON t.term_key = c.descendant_key
JOIN voc_vocab v ON v.vocab_key = t.vocab_key
WHERE v.name = 'EMAPS'`

	emapsMappingQuery = `SELECT emaps_key, emapa_key, stage FROM emaps_mapping`

	recombinaseBoundsQuery = `SELECT MIN(driver_key), MAX(driver_key) FROM gxd_recombinase_result`

	recombinaseResultsQuery = `SELECT result_key, driver_key, allele_key, emaps_key, strength
FROM gxd_recombinase_result
WHERE driver_key >= $1 AND driver_key < $2
ORDER BY driver_key, allele_key, result_key`

	recombinaseClosureQuery = `SELECT c.descendant_key, c.ancestor_key
FROM ` + emapsClosureTable + ` c
WHERE c.descendant_key IN (
  SELECT emaps_key FROM gxd_recombinase_result WHERE driver_key >= $1 AND driver_key < $2)
ORDER BY c.descendant_key, c.ancestor_key`

	recombinaseAllelesQuery = `SELECT DISTINCT a.allele_key, a.symbol
FROM all_allele a
JOIN gxd_recombinase_result r ON r.allele_key = a.allele_key
WHERE r.driver_key >= $1 AND r.driver_key < $2`

	recombinaseDriversQuery = `SELECT marker_key, symbol FROM mrk_marker
WHERE marker_key >= $1 AND marker_key < $2`
)

// stageTerm is the stage-independent structure an EMAPS term maps onto.
type stageTerm struct {
	emapa int64
	stage int64
}

// matrixCells holds what is needed to turn cells into documents.
type matrixCells struct {
	terms   *termIndex
	mapping *lookup.Map[int64, stageTerm]
	alleles *lookup.Map[int64, string]
	drivers *lookup.Map[int64, string]
}

func (RecombinaseMatrix) Index(ctx context.Context, env *indexer.Env) error {
	if err := source.Materialize(ctx, env.DB, emapsClosureTable, emapsClosureSelect, "descendant_key"); err != nil {
		return err
	}
	terms, err := loadTermIndex(ctx, env.DB)
	if err != nil {
		return err
	}
	mapping, err := lookup.Build(ctx, env.DB, "emaps mapping", emapsMappingQuery, nil,
		func(rows *sql.Rows) (int64, stageTerm, error) {
			var emaps int64
			var st stageTerm
			err := rows.Scan(&emaps, &st.emapa, &st.stage)
			return emaps, st, err
		})
	if err != nil {
		return err
	}

	next := int64(1)
	return indexer.Chunked(ctx, env, "gxd_recombinase_result", recombinaseBoundsQuery, nil, func(ctx context.Context, r chunk.Range) error {
		var err error
		next, err = indexRecombinaseChunk(ctx, env, r, terms, mapping, next)
		return err
	})
}

// indexRecombinaseChunk aggregates and emits one chunk of drivers. next is
// the unique key of the first document; the next free key is returned.
func indexRecombinaseChunk(ctx context.Context, env *indexer.Env, r chunk.Range, terms *termIndex,
	mapping *lookup.Map[int64, stageTerm], next int64) (int64, error) {
	args := r.Args()
	closure, err := lookup.Build(ctx, env.DB, "emaps closure", recombinaseClosureQuery, args, lookup.KeyKey)
	if err != nil {
		return next, err
	}
	mc := matrixCells{terms: terms, mapping: mapping}
	if mc.alleles, err = lookup.Build(ctx, env.DB, "recombinase alleles", recombinaseAllelesQuery, args, lookup.KeyString); err != nil {
		return next, err
	}
	if mc.drivers, err = lookup.Build(ctx, env.DB, "recombinase drivers", recombinaseDriversQuery, args, lookup.KeyString); err != nil {
		return next, err
	}

	agg := ancestry.New(closure.Get)
	n := 0
	err = source.Each(ctx, env.DB, "recombinase results", recombinaseResultsQuery, args, func(rows *sql.Rows) error {
		var (
			result, driver, allele, emaps int64
			strength                      string
		)
		if err := rows.Scan(&result, &driver, &allele, &emaps, &strength); err != nil {
			return err
		}
		n++
		outcome, err := ancestry.ParseOutcome(strength)
		if err != nil {
			return &indexer.AnomalyError{Entity: "recombinase result", Key: result, Reason: err.Error()}
		}
		agg.Observe(ancestry.Observation{Entity: driver, ObjectType: ancestry.ObjectAllele, Object: allele, Term: emaps, Outcome: outcome})
		agg.Observe(ancestry.Observation{Entity: driver, ObjectType: ancestry.ObjectDriver, Object: driver, Term: emaps, Outcome: outcome})
		return nil
	})
	env.Metrics.Rows(n)
	if err != nil {
		return next, err
	}

	for _, c := range agg.Cells() {
		d, err := mc.document(c, next)
		if err != nil {
			return next, err
		}
		if err := env.Emit(ctx, d); err != nil {
			return next, err
		}
		next++
	}
	return next, nil
}

// document renders one finished cell. The stage-specific term is mapped to
// its stage-independent structure here and nowhere earlier.
func (mc matrixCells) document(c ancestry.Cell, uniqueKey int64) (*document.Document, error) {
	k := c.Key
	st, ok := mc.mapping.First(k.Term)
	if !ok {
		return nil, &indexer.AnomalyError{Entity: "emaps term", Key: k.Term, Reason: "no EMAPA mapping"}
	}
	d := document.New()
	d.Set("uniqueKey", uniqueKey)
	d.Set("driverKey", k.Entity)
	if s, ok := mc.drivers.First(k.Entity); ok {
		d.Set("driver", s)
	}
	d.Set("objectType", k.ObjectType.String())
	d.Set("objectKey", k.Object)
	var symbol string
	switch k.ObjectType {
	case ancestry.ObjectAllele:
		symbol, _ = mc.alleles.First(k.Object)
	case ancestry.ObjectDriver:
		symbol, _ = mc.drivers.First(k.Object)
	default:
		panic(fmt.Sprintf("recombinase: unhandled object type %v", k.ObjectType))
	}
	if symbol != "" {
		d.Set("objectSymbol", symbol)
	}
	d.Set("emapsKey", k.Term)
	if id := mc.terms.id(k.Term); id != "" {
		d.Set("emapsID", id)
	}
	d.Set("structureKey", st.emapa)
	if id := mc.terms.id(st.emapa); id != "" {
		d.Set("structureID", id)
	}
	if label := mc.terms.label(st.emapa); label != "" {
		d.Set("structure", label)
	}
	d.Set("stage", st.stage)
	d.Set("detectedCount", c.Detected)
	d.Set("notDetectedCount", c.NotDetected)
	d.Set("ambiguousCount", c.Ambiguous)
	d.Set("childCount", c.Children)
	d.Flag("hasQuestionableDescendants", c.QuestionableDescendants)
	d.Flag("detected", c.Detected > 0)
	return d, nil
}
