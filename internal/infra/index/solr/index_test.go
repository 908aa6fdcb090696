package solr_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mgiindexer/internal/document"
	"mgiindexer/internal/infra/index/solr"
)

type call struct {
	path, query, body string
}

func recorder(t *testing.T, status int) (*httptest.Server, *[]call) {
	t.Helper()
	var mu sync.Mutex
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, call{path: r.URL.Path, query: r.URL.RawQuery, body: string(b)})
		mu.Unlock()
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"msg":"undefined field foo"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestUpdateProtocol(t *testing.T) {
	srv, calls := recorder(t, http.StatusOK)
	idx, err := solr.New(srv.URL+"/solr/", "allele", srv.Client())
	require.NoError(t, err)
	ctx := context.Background()

	d := document.New()
	d.Set("alleleKey", 1000)
	d.Add("synonym", "Small eye")

	require.NoError(t, idx.Clear(ctx))
	require.NoError(t, idx.Add(ctx, []*document.Document{d}))
	require.NoError(t, idx.Commit(ctx))

	require.Len(t, *calls, 3)
	for _, c := range *calls {
		assert.Equal(t, "/solr/allele/update", c.path)
	}
	assert.JSONEq(t, `{"delete":{"query":"*:*"}}`, (*calls)[0].body)
	assert.JSONEq(t, `[{"alleleKey":1000,"synonym":["Small eye"]}]`, (*calls)[1].body)
	assert.Equal(t, "commit=true", (*calls)[2].query)
}

func TestNon2xxIsAnError(t *testing.T) {
	srv, _ := recorder(t, http.StatusBadRequest)
	idx, err := solr.New(srv.URL, "marker", srv.Client())
	require.NoError(t, err)
	err = idx.Add(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "undefined field foo")
}

func TestNewValidatesURL(t *testing.T) {
	for _, u := range []string{"ftp://solr", "://bad", ""} {
		_, err := solr.New(u, "x", nil)
		assert.Error(t, err, u)
	}
	_, err := solr.New("http://solr", "", nil)
	assert.Error(t, err)
	idx, err := solr.New("https://solr.example.org/solr", "vocabBrowser", nil)
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(idx.Name(), "vocabBrowser"))
}
