package checkstyle

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func serveArchive(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchExtractsJavaSources(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"src/Main.java":  "public class Main {}",
		"src/Util.JAVA":  "public class Util {}",
		"README.md":      "docs",
		"build/out.jar":  "binary",
		"nested/a/B.java": "class B {}",
	})
	srv := serveArchive(t, archive)

	d := NewDownloader(t.TempDir(), 1)
	dir, count, err := d.Fetch(context.Background(), srv.URL, "analysis-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = os.Stat(filepath.Join(dir, "src", "Main.java"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "nested", "a", "B.java"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "README.md"))
	assert.True(t, os.IsNotExist(err), "non-Java entries must be skipped")

	require.NoError(t, d.Cleanup("analysis-1"))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestFetchRejectsTraversalEntry(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"../escape.java": "class Escape {}",
	})
	srv := serveArchive(t, archive)

	root := t.TempDir()
	d := NewDownloader(root, 1)
	_, _, err := d.Fetch(context.Background(), srv.URL, "analysis-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escape.java")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(root), "escape.java"))
	assert.True(t, os.IsNotExist(statErr), "traversal entry must not be written")
}

func TestFetchRejectsOversizedArchive(t *testing.T) {
	big := make([]byte, 2<<20)
	srv := serveArchive(t, big)

	d := NewDownloader(t.TempDir(), 1)
	_, _, err := d.Fetch(context.Background(), srv.URL, "analysis-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestFetchRejectsArchiveWithoutJava(t *testing.T) {
	archive := buildZip(t, map[string]string{"README.md": "docs"})
	srv := serveArchive(t, archive)

	d := NewDownloader(t.TempDir(), 1)
	_, _, err := d.Fetch(context.Background(), srv.URL, "analysis-4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Java sources")
}

func TestFetchRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	d := NewDownloader(t.TempDir(), 1)
	_, _, err := d.Fetch(context.Background(), srv.URL, "analysis-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchRejectsBadAnalysisID(t *testing.T) {
	srv := serveArchive(t, buildZip(t, map[string]string{"A.java": "class A {}"}))

	d := NewDownloader(t.TempDir(), 1)
	_, _, err := d.Fetch(context.Background(), srv.URL, "../sneaky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid analysis id")
}
