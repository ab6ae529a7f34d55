package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><h1>Home</h1><a href="/docs">Docs</a><a href="/missing">Missing</a><a href="https://elsewhere.test/">Out</a></body></html>`)
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Read the docs</p><a href="/">Home</a></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStaticRendererRender(t *testing.T) {
	srv := newTestSite(t)
	scope, start, err := NewScope(srv.URL)
	require.NoError(t, err)

	r, err := NewStaticFactory(StaticOptions{})(context.Background(), scope)
	require.NoError(t, err)
	defer r.Close()

	page, err := r.Render(context.Background(), start)
	require.NoError(t, err)
	assert.Equal(t, "Home\nDocs\nMissing\nOut", page.Text)
	assert.Equal(t, []string{srv.URL + "/docs", srv.URL + "/missing"}, page.Links)

	_, err = r.Render(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestCrawlWithStaticRenderer(t *testing.T) {
	srv := newTestSite(t)

	results, err := New(NewStaticFactory(StaticOptions{})).Crawl(context.Background(), srv.URL, 10)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "Read the docs\nHome", results[srv.URL+"/docs"])
	assert.True(t, IsFailure(results[srv.URL+"/missing"]))
}
