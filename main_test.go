package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewport-preview/config"
)

func TestExportURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg"))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.ExportDir = t.TempDir()
	var out bytes.Buffer
	err := exportURLs(context.Background(), &out, cfg, []string{srv.URL + "/a.jpg", srv.URL + "/missing"})
	assert.Error(t, err)
	assert.Contains(t, out.String(), "image-1.jpg")
	assert.Contains(t, out.String(), "FAIL "+srv.URL+"/missing")

	data, err := os.ReadFile(filepath.Join(cfg.ExportDir, "image-1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
}

func TestExportCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")
	dir := t.TempDir()
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=warn\n"), 0644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"export", "--env-file", envFile, "--dir", dir, srv.URL + "/x"})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, filepath.Join(dir, "image-1.png"))
}
