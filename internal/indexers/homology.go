package indexers

import (
	"context"
	"database/sql"
	"slices"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/document"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/lookup"
	"mgiindexer/internal/source"
	"mgiindexer/pkg/smartalpha"
)

// Homology rebuilds the homology cluster index.
type Homology struct{}

func (Homology) Name() string { return "homology" }

// member is one marker in a homology cluster.
type member struct {
	symbol   string
	organism string
	id       string
}

func (m member) display() string { return m.symbol + " (" + m.organism + ")" }

const (
	homologyBoundsQuery = `SELECT MIN(cluster_key), MAX(cluster_key) FROM mrk_cluster`

	homologyQuery = `SELECT cluster_key, source
FROM mrk_cluster
WHERE cluster_key >= $1 AND cluster_key < $2
ORDER BY cluster_key`

	homologyMembersQuery = `SELECT c.cluster_key, m.symbol, m.organism, COALESCE(a.acc_id, '')
FROM mrk_clustermember c
JOIN mrk_marker m ON m.marker_key = c.marker_key
LEFT JOIN acc_accession a ON a.object_key = m.marker_key AND a.object_type = 'marker'
  AND a.preferred = 1 AND a.private = 0 AND a.acc_id LIKE 'MGI:%'
WHERE c.cluster_key >= $1 AND c.cluster_key < $2`
)

func (Homology) Index(ctx context.Context, env *indexer.Env) error {
	return indexer.Chunked(ctx, env, "mrk_cluster", homologyBoundsQuery, nil, func(ctx context.Context, r chunk.Range) error {
		args := r.Args()
		members, err := lookup.Build(ctx, env.DB, "homology members", homologyMembersQuery, args,
			func(rows *sql.Rows) (int64, member, error) {
				var key int64
				var m member
				err := rows.Scan(&key, &m.symbol, &m.organism, &m.id)
				return key, m, err
			})
		if err != nil {
			return err
		}

		n := 0
		err = source.Each(ctx, env.DB, "homology clusters", homologyQuery, args, func(rows *sql.Rows) error {
			var key int64
			var src string
			if err := rows.Scan(&key, &src); err != nil {
				return err
			}
			n++
			ms := members.Sorted(key, func(a, b member) int {
				if c := smartalpha.Compare(a.symbol, b.symbol); c != 0 {
					return c
				}
				return smartalpha.Compare(a.organism, b.organism)
			})
			d := document.New()
			d.Set("clusterKey", key)
			d.Set("source", src)
			organisms := make([]string, 0, len(ms))
			for _, m := range ms {
				d.Add("member", m.display())
				d.Add("memberSymbol", m.symbol)
				organisms = append(organisms, m.organism)
				if m.organism == "mouse" && m.id != "" {
					d.Add("mouseMarkerID", m.id)
				}
			}
			smartalpha.Sort(organisms)
			document.AddAll(d, "organism", slices.Compact(organisms))
			d.Set("memberCount", len(ms))
			d.Flag("hasMouse", slices.Contains(organisms, "mouse"))
			return env.Emit(ctx, d)
		})
		env.Metrics.Rows(n)
		return err
	})
}
