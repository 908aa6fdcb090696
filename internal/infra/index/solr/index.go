// Package solr delivers documents to a Solr core through its JSON update
// handler.
package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mgiindexer/internal/document"
)

const (
	excerptLen     = 512
	defaultTimeout = 5 * time.Minute
)

// Index posts to <base>/<core>/update.
type Index struct {
	name   string
	update string
	client *http.Client
}

// New returns an Index for core under baseURL. A nil client gets a default
// one with a generous timeout, as commits on large cores are slow.
func New(baseURL, core string, client *http.Client) (*Index, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("index url %q: scheme must be http or https", baseURL)
	}
	if core == "" {
		return nil, fmt.Errorf("index name required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	u = u.JoinPath(core, "update")
	return &Index{name: core, update: u.String(), client: client}, nil
}

// Name returns the core name.
func (x *Index) Name() string { return x.name }

// Clear deletes every document in the core.
func (x *Index) Clear(ctx context.Context) error {
	return x.post(ctx, "", []byte(`{"delete":{"query":"*:*"}}`))
}

// Add posts one batch as a JSON array.
func (x *Index) Add(ctx context.Context, docs []*document.Document) error {
	body, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	return x.post(ctx, "", body)
}

// Commit issues a hard commit.
func (x *Index) Commit(ctx context.Context) error {
	return x.post(ctx, "commit=true", []byte(`{}`))
}

func (x *Index) post(ctx context.Context, query string, body []byte) error {
	target := x.update
	if query != "" {
		target += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("solr %s: %w", x.name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, excerptLen))
		return fmt.Errorf("solr %s: status %d: %s", x.name, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
