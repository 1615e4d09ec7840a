package checkstyle

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/acadly/feedbackd/internal/fsutil"
	"github.com/acadly/feedbackd/internal/log"
)

// Downloader fetches submission archives into the downloads directory.
type Downloader struct {
	downloadsDir string
	maxBytes     int64
	http         *http.Client
}

// NewDownloader creates a downloader confined to downloadsDir. maxMB
// caps the accepted archive size.
func NewDownloader(downloadsDir string, maxMB int) *Downloader {
	if maxMB <= 0 {
		maxMB = 64
	}
	return &Downloader{
		downloadsDir: downloadsDir,
		maxBytes:     int64(maxMB) << 20,
		http:         &http.Client{Timeout: 2 * time.Minute},
	}
}

// Fetch downloads a zip archive of Java sources and extracts it under
// downloads/<id>/. It returns the extraction directory and the number
// of .java files found.
func (d *Downloader) Fetch(ctx context.Context, archiveURL, id string) (string, int, error) {
	logger := log.WithComponentFromContext(ctx, "checkstyle.fetch")
	logger.Info().Str("url", archiveURL).Str(log.FieldAnalysisID, id).Msg("fetching submission archive")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return "", 0, err
	}
	res, err := d.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("fetch archive: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("fetch archive: unexpected status %d", res.StatusCode)
	}
	if res.ContentLength > d.maxBytes {
		return "", 0, fmt.Errorf("archive exceeds %d MB limit", d.maxBytes>>20)
	}

	// The zip reader needs random access, so buffer the body. Reading
	// one byte past the cap detects oversized archives without a
	// Content-Length header.
	data, err := io.ReadAll(io.LimitReader(res.Body, d.maxBytes+1))
	if err != nil {
		return "", 0, fmt.Errorf("read archive: %w", err)
	}
	if int64(len(data)) > d.maxBytes {
		return "", 0, fmt.Errorf("archive exceeds %d MB limit", d.maxBytes>>20)
	}

	destDir, err := fsutil.ConfineRelPath(d.downloadsDir, id)
	if err != nil {
		return "", 0, fmt.Errorf("invalid analysis id: %w", err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", 0, err
	}

	count, err := d.extract(data, destDir)
	if err != nil {
		return "", 0, err
	}

	logger.Info().Int("java_files", count).Str(log.FieldPath, destDir).Msg("archive extracted")
	return destDir, count, nil
}

// extract unpacks the .java entries of the archive. Every entry name is
// confined to the destination directory.
func (d *Downloader) extract(data []byte, destDir string) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}

	count := 0
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name), ".java") {
			continue
		}

		target, err := fsutil.ConfineRelPath(destDir, entry.Name)
		if err != nil {
			return 0, fmt.Errorf("archive entry %q: %w", entry.Name, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return 0, err
		}

		src, err := entry.Open()
		if err != nil {
			return 0, fmt.Errorf("open entry %q: %w", entry.Name, err)
		}
		dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			src.Close()
			return 0, err
		}
		// Limit each entry too; zip metadata lies about sizes.
		_, err = io.Copy(dst, io.LimitReader(src, d.maxBytes))
		src.Close()
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return 0, fmt.Errorf("extract entry %q: %w", entry.Name, err)
		}
		count++
	}

	if count == 0 {
		return 0, fmt.Errorf("archive contains no Java sources")
	}
	return count, nil
}

// Cleanup removes the extraction directory of an analysis.
func (d *Downloader) Cleanup(id string) error {
	dir, err := fsutil.ConfineRelPath(d.downloadsDir, id)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
