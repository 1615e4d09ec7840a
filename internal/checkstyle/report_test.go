package checkstyle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T) Result {
	t.Helper()
	res, err := ParseXML([]byte(sampleXML))
	require.NoError(t, err)
	return res
}

func TestReporterWritesReport(t *testing.T) {
	reportsDir := t.TempDir()
	r, err := NewReporter(reportsDir, t.TempDir())
	require.NoError(t, err)

	rel, err := r.Write(context.Background(), ReportData{
		ID:      "analysis-1",
		RepoURL: "https://example.com/repo.zip",
		Result:  sampleResult(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "analysis-1.html", rel)

	abs, err := r.ReportPath(rel)
	require.NoError(t, err)
	html, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Contains(t, string(html), "src/Main.java")
	assert.Contains(t, string(html), "MissingJavadocMethodCheck")
	assert.Contains(t, string(html), "1 error(s), 1 warning(s)")
}

func TestReporterRejectsTraversalID(t *testing.T) {
	r, err := NewReporter(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	_, err = r.Write(context.Background(), ReportData{ID: "../escape"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report id")
}

func TestReporterUsesCustomTemplate(t *testing.T) {
	templatesDir := t.TempDir()
	custom := filepath.Join(templatesDir, TemplateName)
	require.NoError(t, os.WriteFile(custom, []byte("CUSTOM {{.ID}}"), 0o644))

	r, err := NewReporter(t.TempDir(), templatesDir)
	require.NoError(t, err)

	rel, err := r.Write(context.Background(), ReportData{ID: "analysis-2", Result: Result{}})
	require.NoError(t, err)

	abs, err := r.ReportPath(rel)
	require.NoError(t, err)
	html, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM analysis-2", string(html))
}

func TestReporterReloadsOnTemplateChange(t *testing.T) {
	templatesDir := t.TempDir()
	r, err := NewReporter(t.TempDir(), templatesDir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Watch(ctx))
	defer r.Close()

	custom := filepath.Join(templatesDir, TemplateName)
	require.NoError(t, os.WriteFile(custom, []byte("RELOADED {{.ID}}"), 0o644))

	require.Eventually(t, func() bool {
		rel, err := r.Write(context.Background(), ReportData{ID: "analysis-3", Result: Result{}})
		if err != nil {
			return false
		}
		abs, err := r.ReportPath(rel)
		if err != nil {
			return false
		}
		html, err := os.ReadFile(abs)
		return err == nil && string(html) == "RELOADED analysis-3"
	}, 3*time.Second, 50*time.Millisecond)
}

func TestReporterInvalidCustomTemplate(t *testing.T) {
	templatesDir := t.TempDir()
	custom := filepath.Join(templatesDir, TemplateName)
	require.NoError(t, os.WriteFile(custom, []byte("{{.Unclosed"), 0o644))

	_, err := NewReporter(t.TempDir(), templatesDir)
	require.Error(t, err)
}
