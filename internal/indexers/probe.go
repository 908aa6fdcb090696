package indexers

import (
	"context"
	"database/sql"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/document"
	"mgiindexer/internal/idformat"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/lookup"
	"mgiindexer/internal/source"
	"mgiindexer/pkg/smartalpha"
)

// Probe rebuilds the molecular probe index.
type Probe struct{}

func (Probe) Name() string { return "probe" }

const (
	probeBoundsQuery = `SELECT MIN(probe_key), MAX(probe_key) FROM prb_probe`

	probeQuery = `SELECT probe_key, name, segment_type, vector_type
FROM prb_probe
WHERE probe_key >= $1 AND probe_key < $2
ORDER BY probe_key`

	probeMarkersQuery = `SELECT p.probe_key, m.symbol
FROM prb_marker p
JOIN mrk_marker m ON m.marker_key = p.marker_key
WHERE p.probe_key >= $1 AND p.probe_key < $2`

	probeReferencesQuery = `SELECT r.object_key, a.acc_id
FROM mgi_reference_assoc r
JOIN acc_accession a ON a.object_key = r.reference_key AND a.object_type = 'reference'
WHERE r.object_type = 'probe' AND a.logical_db = 'MGI' AND a.preferred = 1 AND a.private = 0
AND r.object_key >= $1 AND r.object_key < $2
ORDER BY r.object_key, a.acc_id`
)

func (Probe) Index(ctx context.Context, env *indexer.Env) error {
	return indexer.Chunked(ctx, env, "prb_probe", probeBoundsQuery, nil, func(ctx context.Context, r chunk.Range) error {
		args := r.Args()
		ids, err := accIDs(ctx, env.DB, "probe", r)
		if err != nil {
			return err
		}
		markers, err := lookup.Build(ctx, env.DB, "probe markers", probeMarkersQuery, args, lookup.KeyString)
		if err != nil {
			return err
		}
		refs, err := lookup.Build(ctx, env.DB, "probe references", probeReferencesQuery, args, lookup.KeyString)
		if err != nil {
			return err
		}

		n := 0
		err = source.Each(ctx, env.DB, "probes", probeQuery, args, func(rows *sql.Rows) error {
			var (
				key               int64
				name, segmentType string
				vectorType        sql.NullString
			)
			if err := rows.Scan(&key, &name, &segmentType, &vectorType); err != nil {
				return err
			}
			n++
			d := document.New()
			d.Set("probeKey", key)
			probeIDs := ids.Get(key)
			if id, ok := primaryID(probeIDs, idformat.MGI); ok {
				d.Set("probeID", id)
			}
			d.Set("name", name)
			d.Set("segmentType", segmentType)
			if vectorType.Valid {
				d.Set("vectorType", vectorType.String)
			}
			addIDs(d, probeIDs)
			document.AddAll(d, "markerSymbol", markers.Sorted(key, smartalpha.Compare))
			document.AddAll(d, "referenceID", refs.Get(key))
			return env.Emit(ctx, d)
		})
		env.Metrics.Rows(n)
		return err
	})
}
