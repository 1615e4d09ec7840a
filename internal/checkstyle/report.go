package checkstyle

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"

	"github.com/acadly/feedbackd/internal/fsutil"
	"github.com/acadly/feedbackd/internal/log"
)

// TemplateName is the report template looked up in the templates
// directory. Operators can drop in their own to restyle reports.
const TemplateName = "report.html.tmpl"

// defaultTemplate renders reports when no custom template is installed.
const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Checkstyle report {{.ID}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
.severity-error { color: #b00020; }
.severity-warning { color: #a06000; }
</style>
</head>
<body>
<h1>Checkstyle report</h1>
<p>Analysis <code>{{.ID}}</code> of <code>{{.RepoURL}}</code>, generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}.</p>
<p>{{.Errors}} error(s), {{.Warnings}} warning(s), {{.Infos}} info finding(s) across {{len .Result.Files}} file(s).</p>
{{range .Result.Files}}{{if .Violations}}
<h2>{{.Name}}</h2>
<table>
<tr><th>Line</th><th>Severity</th><th>Rule</th><th>Message</th></tr>
{{range .Violations}}<tr class="severity-{{.Severity}}"><td>{{.Line}}</td><td>{{.Severity}}</td><td>{{.Rule}}</td><td>{{.Message}}</td></tr>
{{end}}</table>
{{end}}{{end}}
</body>
</html>
`

// ReportData is the template input.
type ReportData struct {
	ID          string
	RepoURL     string
	GeneratedAt time.Time
	Result      Result
	Errors      int
	Warnings    int
	Infos       int
}

// Reporter renders analysis results into the reports directory. The
// template is re-read when the templates directory changes.
type Reporter struct {
	reportsDir   string
	templatesDir string

	mu   sync.RWMutex
	tmpl *template.Template

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewReporter loads the report template and returns the reporter.
func NewReporter(reportsDir, templatesDir string) (*Reporter, error) {
	r := &Reporter{
		reportsDir:   reportsDir,
		templatesDir: templatesDir,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the template from the templates directory, falling
// back to the built-in one when no custom template exists.
func (r *Reporter) Reload() error {
	source := defaultTemplate
	custom := filepath.Join(r.templatesDir, TemplateName)
	if data, err := os.ReadFile(custom); err == nil {
		source = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read report template: %w", err)
	}

	tmpl, err := template.New(TemplateName).Parse(source)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	r.mu.Lock()
	r.tmpl = tmpl
	r.mu.Unlock()
	return nil
}

// Watch reloads the template when the templates directory changes.
// It returns after starting the watcher goroutine; Close stops it.
func (r *Reporter) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	if err := watcher.Add(r.templatesDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch templates dir: %w", err)
	}
	r.watcher = watcher
	r.done = make(chan struct{})

	logger := log.WithComponent("checkstyle.report")
	go func() {
		defer close(r.done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != TemplateName {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if err := r.Reload(); err != nil {
					logger.Warn().Err(err).Msg("template reload failed, keeping previous template")
					continue
				}
				logger.Info().Str(log.FieldPath, event.Name).Msg("report template reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("template watcher error")
			}
		}
	}()
	return nil
}

// Close stops the watcher.
func (r *Reporter) Close() error {
	if r.watcher == nil {
		return nil
	}
	err := r.watcher.Close()
	<-r.done
	return err
}

// Write renders the report and writes it atomically. It returns the
// report path relative to the reports directory.
func (r *Reporter) Write(ctx context.Context, data ReportData) (string, error) {
	data.Errors, data.Warnings, data.Infos = data.Result.Counts()
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}

	relPath := data.ID + ".html"
	target, err := fsutil.ConfineRelPath(r.reportsDir, relPath)
	if err != nil {
		return "", fmt.Errorf("invalid report id: %w", err)
	}

	r.mu.RLock()
	tmpl := r.tmpl
	r.mu.RUnlock()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	pending, err := renameio.NewPendingFile(target)
	if err != nil {
		return "", fmt.Errorf("create pending report: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			log.FromContext(ctx).Debug().Err(err).Msg("cleanup pending report")
		}
	}()

	if _, err := pending.Write(buf.Bytes()); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("atomically replace report: %w", err)
	}

	logger := log.WithComponentFromContext(ctx, "checkstyle.report")
	logger.Info().
		Str(log.FieldReportPath, target).
		Str(log.FieldAnalysisID, data.ID).
		Msg("report written")
	return relPath, nil
}

// ReportPath resolves a stored report id to its absolute path.
func (r *Reporter) ReportPath(relPath string) (string, error) {
	return fsutil.ConfineRelPath(r.reportsDir, relPath)
}
