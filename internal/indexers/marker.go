package indexers

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/document"
	"mgiindexer/internal/idformat"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/lookup"
	"mgiindexer/internal/source"
	"mgiindexer/pkg/smartalpha"
)

// Marker rebuilds the mouse marker index.
type Marker struct{}

func (Marker) Name() string { return "marker" }

// Marker location precedence: a genetic map position beats a cytoband,
// which beats a genome coordinate.
const (
	LocationCentimorgan lookup.Precedence = iota
	LocationCytoband
	LocationCoordinate
)

// location is the one position shown for a marker.
type location struct {
	kind       string
	chromosome string
	text       string
}

const (
	markerBoundsQuery = `SELECT MIN(marker_key), MAX(marker_key) FROM mrk_marker WHERE organism = 'mouse'`

	markerQuery = `SELECT marker_key, symbol, name, marker_type, chromosome, status
FROM mrk_marker
WHERE organism = 'mouse' AND marker_key >= $1 AND marker_key < $2
ORDER BY marker_key`

	markerSynonymsQuery = `SELECT marker_key, synonym FROM mrk_synonym
WHERE marker_key >= $1 AND marker_key < $2`

	markerLocationsQuery = `SELECT marker_key, location_type, chromosome, cm_offset, cytoband, start_coordinate, end_coordinate, strand
FROM mrk_location
WHERE marker_key >= $1 AND marker_key < $2`

	markerGOQuery = `SELECT object_key, term_key FROM voc_annot
WHERE object_type = 'marker' AND annot_type = 'GO' AND (qualifier IS NULL OR qualifier <> 'NOT')
AND object_key >= $1 AND object_key < $2
ORDER BY object_key, term_key`

	markerMPQuery = `SELECT a.marker_key, v.term_key
FROM voc_annot v
JOIN all_allele a ON a.allele_key = v.object_key
WHERE v.object_type = 'allele' AND v.annot_type = 'MP'
AND a.marker_key >= $1 AND a.marker_key < $2
ORDER BY a.marker_key, v.term_key`

	markerReferenceCountQuery = `SELECT object_key, COUNT(DISTINCT reference_key)
FROM mgi_reference_assoc
WHERE object_type = 'marker' AND object_key >= $1 AND object_key < $2
GROUP BY object_key`
)

type markerChunk struct {
	synonyms  *lookup.Map[int64, string]
	ids       *lookup.Map[int64, idformat.Display]
	locations *lookup.Preferred[int64, location]
	goTerms   *lookup.Map[int64, int64]
	goDirect  *lookup.Map[int64, int64]
	mpTerms   *lookup.Map[int64, int64]
	refCounts *lookup.Map[int64, int64]
}

func loadMarkerChunk(ctx context.Context, q source.Querier, terms *termIndex, r chunk.Range) (*markerChunk, error) {
	var (
		c   markerChunk
		err error
	)
	args := r.Args()
	if c.synonyms, err = lookup.Build(ctx, q, "marker synonyms", markerSynonymsQuery, args, lookup.KeyString); err != nil {
		return nil, err
	}
	if c.ids, err = accIDs(ctx, q, "marker", r); err != nil {
		return nil, err
	}
	if c.locations, err = markerLocations(ctx, q, r); err != nil {
		return nil, err
	}
	if c.goDirect, err = lookup.Build(ctx, q, "marker GO", markerGOQuery, args, lookup.KeyKey); err != nil {
		return nil, err
	}
	c.goTerms = lookup.New[int64, int64]()
	c.goTerms.Merge(c.goDirect)
	lookup.Expand(c.goTerms, c.goDirect, terms.ancestors)
	if c.mpTerms, err = lookup.Build(ctx, q, "marker MP", markerMPQuery, args, lookup.KeyKey); err != nil {
		return nil, err
	}
	lookup.Expand(c.mpTerms, c.mpTerms, terms.ancestors)
	if c.refCounts, err = lookup.Build(ctx, q, "marker reference counts", markerReferenceCountQuery, args, lookup.KeyKey); err != nil {
		return nil, err
	}
	return &c, nil
}

func markerLocations(ctx context.Context, q source.Querier, r chunk.Range) (*lookup.Preferred[int64, location], error) {
	locs := lookup.NewPreferred[int64, location]()
	err := source.Each(ctx, q, "marker locations", markerLocationsQuery, r.Args(), func(rows *sql.Rows) error {
		var (
			key          int64
			kind, chr    string
			cm           sql.NullFloat64
			band, strand sql.NullString
			start, end   sql.NullInt64
		)
		if err := rows.Scan(&key, &kind, &chr, &cm, &band, &start, &end, &strand); err != nil {
			return err
		}
		loc := location{kind: kind, chromosome: chr}
		switch kind {
		case "centimorgan":
			if !cm.Valid {
				return nil
			}
			loc.text = fmt.Sprintf("Chr%s %s cM", chr, strconv.FormatFloat(cm.Float64, 'f', 2, 64))
			locs.Offer(key, loc, LocationCentimorgan)
		case "cytoband":
			if !band.Valid {
				return nil
			}
			loc.text = fmt.Sprintf("Chr%s %s", chr, band.String)
			locs.Offer(key, loc, LocationCytoband)
		case "coordinate":
			if !start.Valid || !end.Valid {
				return nil
			}
			loc.text = fmt.Sprintf("Chr%s:%d-%d", chr, start.Int64, end.Int64)
			if strand.Valid && strand.String != "" {
				loc.text += " (" + strand.String + ")"
			}
			locs.Offer(key, loc, LocationCoordinate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return locs, nil
}

func (Marker) Index(ctx context.Context, env *indexer.Env) error {
	terms, err := loadTermIndex(ctx, env.DB)
	if err != nil {
		return err
	}
	return indexer.Chunked(ctx, env, "mrk_marker", markerBoundsQuery, nil, func(ctx context.Context, r chunk.Range) error {
		c, err := loadMarkerChunk(ctx, env.DB, terms, r)
		if err != nil {
			return err
		}
		n := 0
		err = source.Each(ctx, env.DB, "markers", markerQuery, r.Args(), func(rows *sql.Rows) error {
			var (
				key                              int64
				symbol, name, markerType, status string
				chromosome                       sql.NullString
			)
			if err := rows.Scan(&key, &symbol, &name, &markerType, &chromosome, &status); err != nil {
				return err
			}
			n++
			d := document.New()
			d.Set("markerKey", key)
			ids := c.ids.Get(key)
			if id, ok := primaryID(ids, idformat.MGI); ok {
				d.Set("markerID", id)
			} else {
				return &indexer.AnomalyError{Entity: "marker", Key: key, Reason: "missing MGI ID"}
			}
			d.Set("symbol", symbol)
			d.Set("name", name)
			d.Set("markerType", markerType)
			d.Set("status", status)
			if chromosome.Valid {
				d.Set("chromosome", chromosome.String)
			}
			if loc, ok := c.locations.Get(key); ok {
				d.Set("location", loc.text)
				d.Set("locationType", loc.kind)
			}
			document.AddAll(d, "synonym", c.synonyms.Sorted(key, smartalpha.Compare))
			addIDs(d, ids)

			goTerms := c.goTerms.Get(key)
			document.AddAll(d, "goTerm", terms.labelsOf(goTerms))
			document.AddAll(d, "goID", terms.idsOf(goTerms))
			for _, t := range goTerms {
				document.AddAll(d, "goSynonym", terms.synonyms.Get(t))
			}
			d.Flag("hasGO", c.goDirect.Has(key))

			mp := c.mpTerms.Get(key)
			document.AddAll(d, "mpTerm", terms.labelsOf(mp))
			document.AddAll(d, "mpID", terms.idsOf(mp))

			refs, _ := c.refCounts.First(key)
			d.Set("referenceCount", refs)
			return env.Emit(ctx, d)
		})
		env.Metrics.Rows(n)
		return err
	})
}
