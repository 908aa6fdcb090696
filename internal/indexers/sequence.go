package indexers

import (
	"context"
	"database/sql"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/document"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/lookup"
	"mgiindexer/internal/source"
	"mgiindexer/pkg/smartalpha"
)

// Sequence rebuilds the sequence index.
type Sequence struct{}

func (Sequence) Name() string { return "sequence" }

const (
	sequenceBoundsQuery = `SELECT MIN(sequence_key), MAX(sequence_key) FROM seq_sequence`

	sequenceQuery = `SELECT sequence_key, sequence_type, provider, length, description, organism
FROM seq_sequence
WHERE sequence_key >= $1 AND sequence_key < $2
ORDER BY sequence_key`

	sequenceMarkersQuery = `SELECT s.sequence_key, m.symbol
FROM seq_marker s
JOIN mrk_marker m ON m.marker_key = s.marker_key
WHERE s.sequence_key >= $1 AND s.sequence_key < $2`

	sequenceMarkerKeysQuery = `SELECT sequence_key, marker_key FROM seq_marker
WHERE sequence_key >= $1 AND sequence_key < $2
ORDER BY sequence_key, marker_key`
)

func (Sequence) Index(ctx context.Context, env *indexer.Env) error {
	return indexer.Chunked(ctx, env, "seq_sequence", sequenceBoundsQuery, nil, func(ctx context.Context, r chunk.Range) error {
		args := r.Args()
		ids, err := accIDs(ctx, env.DB, "sequence", r)
		if err != nil {
			return err
		}
		symbols, err := lookup.Build(ctx, env.DB, "sequence markers", sequenceMarkersQuery, args, lookup.KeyString)
		if err != nil {
			return err
		}
		markerKeys, err := lookup.Build(ctx, env.DB, "sequence marker keys", sequenceMarkerKeysQuery, args, lookup.KeyKey)
		if err != nil {
			return err
		}

		n := 0
		err = source.Each(ctx, env.DB, "sequences", sequenceQuery, args, func(rows *sql.Rows) error {
			var (
				key                         int64
				seqType, provider, organism string
				length                      sql.NullInt64
				description                 sql.NullString
			)
			if err := rows.Scan(&key, &seqType, &provider, &length, &description, &organism); err != nil {
				return err
			}
			n++
			d := document.New()
			d.Set("sequenceKey", key)
			seqIDs := ids.Get(key)
			if len(seqIDs) > 0 {
				d.Set("sequenceID", seqIDs[0].ID)
				d.Set("sequenceDisplay", seqIDs[0].Text)
			}
			d.Set("sequenceType", seqType)
			d.Set("provider", provider)
			if length.Valid {
				d.Set("length", length.Int64)
			}
			if description.Valid {
				d.Set("description", description.String)
			}
			d.Set("organism", organism)
			addIDs(d, seqIDs)
			document.AddAll(d, "markerKey", markerKeys.Get(key))
			document.AddAll(d, "markerSymbol", symbols.Sorted(key, smartalpha.Compare))
			return env.Emit(ctx, d)
		})
		env.Metrics.Rows(n)
		return err
	})
}
