package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	useTempConfig(t)
	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")

	root := &cobra.Command{Use: "ragchat", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().Bool("output", false, "")
	root.PersistentFlags().String("api-key", "", "")
	root.PersistentFlags().String("api-url", "", "")
	root.AddCommand(sub)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAddCmd(t *testing.T) {
	var got CreateResourceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resources", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"r-1","chunk_count":2,"message":"Resource successfully created and embedded."}}`))
	}))
	defer srv.Close()

	out, err := runCommand(t, AddCmd(), "add", "--api-url", srv.URL, "I like tea. I like pizza.")
	require.NoError(t, err)
	assert.Equal(t, "I like tea. I like pizza.", got.Content)
	assert.Contains(t, out, "r-1 (2 chunks)")
}

func TestAddContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0600))

	content, err := addContent(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "from file", content)

	content, err = addContent([]string{"inline"}, "")
	require.NoError(t, err)
	assert.Equal(t, "inline", content)

	_, err = addContent([]string{"inline"}, path)
	assert.Error(t, err)

	_, err = addContent(nil, "")
	assert.Error(t, err)
}

func TestListCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"data":{"items":[{"id":"r-2","content":"second","created_at":"2026-01-02T00:00:00Z"}],"cursor":"abc","has_more":true}}`))
	}))
	defer srv.Close()

	out, err := runCommand(t, ListCmd(), "list", "--api-url", srv.URL, "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "r-2")
	assert.Contains(t, out, "--cursor abc")
}

func TestSearchCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"results":[{"content":"I like pizza","similarity":0.812}]}}`))
	}))
	defer srv.Close()

	out, err := runCommand(t, SearchCmd(), "search", "--api-url", srv.URL, "food")
	require.NoError(t, err)
	assert.Contains(t, out, "1. (0.812) I like pizza")
}

func TestStatsCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"resource_count":1,"chunk_count":2,"summary":"Found 1 resources and 2 embeddings"}}`))
	}))
	defer srv.Close()

	out, err := runCommand(t, StatsCmd(), "stats", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 resources and 2 embeddings")
}

func TestDeleteCmd_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"resource not found","code":"NOT_FOUND"}`))
	}))
	defer srv.Close()

	_, err := runCommand(t, DeleteCmd(), "delete", "--api-url", srv.URL, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource not found")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n b\tc", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
}
