package indexers

import (
	"context"
	"database/sql"
	"fmt"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/document"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/source"
	"mgiindexer/internal/vocab"
)

// VocabBrowser rebuilds the vocabulary browser index: one document per
// live term of every vocabulary, carrying its place in the hierarchy.
type VocabBrowser struct{}

func (VocabBrowser) Name() string { return "vocabBrowser" }

const (
	vocabulariesQuery = `SELECT vocab_key, name FROM voc_vocab ORDER BY vocab_key`

	vocabTermBoundsQuery = `SELECT MIN(term_key), MAX(term_key) FROM voc_term WHERE vocab_key = $1`
)

type vocabulary struct {
	key  int64
	name string
}

func (VocabBrowser) Index(ctx context.Context, env *indexer.Env) error {
	var vocabs []vocabulary
	err := source.Each(ctx, env.DB, "vocabularies", vocabulariesQuery, nil, func(rows *sql.Rows) error {
		var v vocabulary
		if err := rows.Scan(&v.key, &v.name); err != nil {
			return err
		}
		vocabs = append(vocabs, v)
		return nil
	})
	if err != nil {
		return err
	}
	for _, v := range vocabs {
		if err := indexVocabulary(ctx, env, v); err != nil {
			return fmt.Errorf("vocabulary %s: %w", v.name, err)
		}
	}
	return nil
}

func indexVocabulary(ctx context.Context, env *indexer.Env, v vocabulary) error {
	g, err := vocab.Load(ctx, env.DB, v.key)
	if err != nil {
		return err
	}
	if skipped := g.Skipped(); len(skipped) > 0 {
		env.Log.Info("skipped obsolete terms without ID", "vocabulary", v.name, "count", len(skipped))
	}
	return indexer.Chunked(ctx, env, "voc_term", vocabTermBoundsQuery, []any{v.key}, func(ctx context.Context, r chunk.Range) error {
		terms := g.TermsIn(r)
		if len(terms) == 0 {
			return nil
		}
		details, err := vocab.LoadDetails(ctx, env.DB, v.key, r)
		if err != nil {
			return err
		}
		env.Metrics.Rows(len(terms))
		for _, t := range terms {
			if err := env.Emit(ctx, termDocument(g, details, v, t)); err != nil {
				return err
			}
		}
		return nil
	})
}

// termDocument renders one term. parent carries "ID|term" pairs in parent
// order; parentID and parentTerm are deduplicated value sets and need not
// line up with each other.
func termDocument(g *vocab.Graph, details *vocab.Details, v vocabulary, t *vocab.TermNode) *document.Document {
	d := document.New()
	d.Set("termKey", t.Key)
	d.Set("termID", t.ID)
	d.Set("term", t.Label)
	d.Set("vocabName", v.name)
	if def := details.Definition(t.Key); def != "" {
		d.Set("definition", def)
	}
	d.Flag("isObsolete", t.Obsolete)
	document.AddAll(d, "synonym", details.Synonyms(t.Key))
	document.AddAll(d, "xref", details.XRefs(t.Key))
	for _, p := range t.Parents {
		parent, ok := g.Node(p)
		if !ok {
			continue
		}
		d.Add("parent", parent.ID+"|"+parent.Label)
		d.Add("parentID", parent.ID)
		d.Add("parentTerm", parent.Label)
		if label, ok := g.EdgeLabel(t.Key, p); ok && label != "" {
			d.Add("edgeLabel", label)
		}
	}
	for _, a := range t.Ancestors {
		if anc, ok := g.Node(a); ok {
			d.Add("ancestorID", anc.ID)
		}
	}
	d.Set("childCount", len(t.Children))
	d.Flag("hasChildren", g.HasChildren(t.Key))
	d.Flag("isRoot", len(t.Parents) == 0)
	if depth := g.Depth(t.Key); depth >= 0 {
		d.Set("depth", depth)
	}
	return d
}
