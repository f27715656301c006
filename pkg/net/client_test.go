package net

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

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"files":[{"path":"donor/sv.tsv"}]}`))
	})
	mux.HandleFunc("/sv.tsv", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, clientAgent, r.Header.Get("User-Agent"))
		w.Write([]byte("a\tcoef\n1\t1\n"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetHTTPClient(t *testing.T) {
	client := GetHTTPClient()
	assert.NotNil(t, client)
	assert.Equal(t, reqTransport, client.Transport)
}

func TestDownload(t *testing.T) {
	srv := testServer(t)
	path := filepath.Join(t.TempDir(), "models", "sv.tsv")

	err := Download(context.Background(), srv.Client(), srv.URL+"/sv.tsv", path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\tcoef\n1\t1\n", string(b))
	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_Errors(t *testing.T) {
	srv := testServer(t)
	dir := t.TempDir()

	err := Download(context.Background(), srv.Client(), srv.URL+"/missing", filepath.Join(dir, "x"))
	assert.ErrorIs(t, err, ErrorURLNotFound)

	err = Download(context.Background(), srv.Client(), srv.URL+"/broken", filepath.Join(dir, "y"))
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "y"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGetJSON(t *testing.T) {
	srv := testServer(t)

	var m struct {
		Files []struct {
			Path string `json:"path"`
		} `json:"files"`
	}
	require.NoError(t, GetJSON(context.Background(), srv.Client(), srv.URL+"/manifest.json", &m))
	require.Len(t, m.Files, 1)
	assert.Equal(t, "donor/sv.tsv", m.Files[0].Path)

	err := GetJSON(context.Background(), srv.Client(), srv.URL+"/sv.tsv", &m)
	assert.Error(t, err)
}
