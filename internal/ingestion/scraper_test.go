package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogPage = `<html><body>
<a href="/reports/vlr-2020.pdf">VLR 2020</a>
<a href="https://other.gov/docs/vlr-2021.PDF">VLR 2021</a>
<a href="/about">About us</a>
<a href="/reports/untitled.pdf">   </a>
</body></html>`

func TestFetchCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(catalogPage))
	}))
	defer server.Close()

	entries, err := NewScraper().FetchCatalog(context.Background(), server.URL+"/index.html")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "VLR 2020", entries[0].Title)
	assert.Equal(t, server.URL+"/reports/vlr-2020.pdf", entries[0].URL)

	// Absolute links pass through untouched.
	assert.Equal(t, "https://other.gov/docs/vlr-2021.PDF", entries[1].URL)

	// Empty link text falls back to the href.
	assert.Equal(t, "/reports/untitled.pdf", entries[2].Title)
}

func TestFetchCatalogBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewScraper().FetchCatalog(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestDownload(t *testing.T) {
	payload := []byte("%PDF-1.4 fake content")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, NewScraper().Download(context.Background(), server.URL+"/doc.pdf", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "doc.pdf")
	assert.Error(t, NewScraper().Download(context.Background(), server.URL, dest))
}
