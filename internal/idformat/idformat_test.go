package idformat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mgiindexer/internal/idformat"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		objectType, ldb, id string
		want                idformat.Kind
	}{
		{"Marker", "MGI", "MGI:97490", idformat.MGI},
		{"Reference", "MGI", "J:1234", idformat.MGI},
		{"Reference", "PubMed", "1684639", idformat.PubMed},
		{"Reference", "DOI", "10.1038/354522a0", idformat.DOI},
		{"Reference", "Journal Link", "10.1038/354522a0", idformat.DOI},
		{"Marker", "Journal Link", "x", idformat.Generic},
		{"Sequence", "GenBank", "X63963", idformat.GenBank},
		{"Sequence", "Sequence DB", "Y00864", idformat.GenBank},
		{"Sequence", "RefSeq", "NM_013627", idformat.RefSeq},
		{"Marker", "Ensembl Gene Model", "ENSMUSG00000027168", idformat.Ensembl},
		{"Marker", "Entrez Gene", "18508", idformat.EntrezGene},
		{"Sequence", "SWISS-PROT", "P63015", idformat.UniProt},
		{"Vocabulary Term", "Gene Ontology", "GO:0030182", idformat.Ontology},
		{"Marker", "HGNC", "HGNC:8620", idformat.Ontology},
		{"Marker", "MGI", "1234", idformat.Generic},
		{"Marker", "Some Lab", "abc 12", idformat.Generic},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, idformat.Classify(tc.objectType, tc.ldb, tc.id), "%s/%s/%s", tc.objectType, tc.ldb, tc.id)
	}
}

func TestFormat(t *testing.T) {
	d := idformat.Of("Reference", "PubMed", "1684639")
	assert.Equal(t, "PubMed:1684639", d.Text)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/1684639", d.URL)

	d = idformat.Of("Marker", "MGI", "MGI:97490")
	assert.Equal(t, "MGI:97490", d.Text)
	assert.Equal(t, idformat.MGI, d.Kind)

	assert.Contains(t, idformat.Format(idformat.RefSeq, "RefSeq", "NP_000271").URL, "/protein/")
	assert.Contains(t, idformat.Format(idformat.RefSeq, "RefSeq", "NM_013627").URL, "/nuccore/")

	g := idformat.Format(idformat.Generic, "Some Lab", "x1")
	assert.Equal(t, "Some Lab:x1", g.Text)
	assert.Empty(t, g.URL)
	assert.Equal(t, "x1", idformat.Format(idformat.Generic, "", "x1").Text)
}

func TestFormatIsPure(t *testing.T) {
	a := idformat.Of("Sequence", "GenBank", "X63963")
	b := idformat.Of("Sequence", "GenBank", "X63963")
	assert.Equal(t, a, b)
}

func TestEveryKindFormats(t *testing.T) {
	for k := idformat.Generic; k <= idformat.Ontology; k++ {
		assert.NotPanics(t, func() { idformat.Format(k, "db", "ID:1") }, k.String())
		assert.NotContains(t, k.String(), "Kind(")
	}
	assert.Panics(t, func() { idformat.Format(idformat.Kind(99), "", "") })
	assert.Equal(t, "Kind(99)", idformat.Kind(99).String())
}
