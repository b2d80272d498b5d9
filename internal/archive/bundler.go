// Package archive bundles per-table dataset files into one zip archive.
package archive

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/kyleking/lernspark/internal/dataset"
	"github.com/kyleking/lernspark/internal/errors"
	"github.com/kyleking/lernspark/internal/logging"
	"github.com/kyleking/lernspark/internal/schema"
)

const (
	dirPerm     = 0755
	entrySuffix = ".parquet"
)

// Result describes a written archive.
type Result struct {
	Path      string
	Entries   []string
	Summaries []*dataset.Summary
	Skipped   []string
	SizeBytes int64
}

// Bundler writes every table through a dataset writer and appends the files
// to one archive.
type Bundler struct {
	writer  *dataset.Writer
	tempDir string
	logger  *logging.Logger
}

// NewBundler creates a bundler. An empty tempDir uses the OS default.
func NewBundler(writer *dataset.Writer, tempDir string, logger *logging.Logger) *Bundler {
	if logger == nil {
		logger = logging.Discard()
	}

	return &Bundler{writer: writer, tempDir: tempDir, logger: logger}
}

// Bundle writes one <table>.parquet entry per table into destination. Tables
// without columns are skipped, and names that would collide (ignoring case)
// are rejected before anything is written. Entries already appended are left in place
// when a later table fails, so the archive may be incomplete on error.
func (b *Bundler) Bundle(ctx context.Context, tables []schema.Table, destination string) (*Result, error) {
	if err := checkEntryNames(tables); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(destination), dirPerm); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "create archive directory for %s", destination)
	}

	out, err := os.Create(destination)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "create archive %s", destination)
	}

	zw := zip.NewWriter(out)
	finished := false

	defer func() {
		if !finished {
			_ = zw.Close()
			_ = out.Close()
		}
	}()

	result := &Result{Path: destination}

	for _, table := range tables {
		if len(table.Columns) == 0 {
			b.logger.WithField("table", table.Name).Warn("Skipping table without columns")
			result.Skipped = append(result.Skipped, table.Name)

			continue
		}

		summary, err := b.appendTable(ctx, zw, table)
		if err != nil {
			return nil, err
		}

		result.Entries = append(result.Entries, table.Name+entrySuffix)
		result.Summaries = append(result.Summaries, summary)
	}

	finished = true

	if err := stderrors.Join(zw.Close(), out.Close()); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "finish archive %s", destination)
	}

	info, err := os.Stat(destination)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "stat %s", destination)
	}

	result.SizeBytes = info.Size()

	b.logger.WithFields(map[string]interface{}{
		"path":    destination,
		"entries": len(result.Entries),
		"bytes":   result.SizeBytes,
	}).Info("Archive written")

	return result, nil
}

func checkEntryNames(tables []schema.Table) error {
	seen := make(map[string]bool, len(tables))

	for _, table := range tables {
		key := strings.ToLower(table.Name)
		if seen[key] {
			return errors.Newf(errors.ErrTypeMalformedSchema, "duplicate archive entry %s%s", table.Name, entrySuffix)
		}

		seen[key] = true
	}

	return nil
}

// appendTable writes the table to a temp file, copies it into the archive
// and removes the temp file whether or not the copy worked.
func (b *Bundler) appendTable(ctx context.Context, zw *zip.Writer, table schema.Table) (*dataset.Summary, error) {
	tmp, err := os.CreateTemp(b.tempDir, "lernspark-*"+entrySuffix)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "create temp file")
	}

	tmpPath := tmp.Name()
	_ = tmp.Close()

	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			b.logger.WithField("path", tmpPath).Warnf("Failed to remove temp file: %v", err)
		}
	}()

	summary, err := b.writer.Write(ctx, table, tmpPath)
	if err != nil {
		return nil, err
	}

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:   table.Name + entrySuffix,
		Method: zip.Deflate,
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "add %s to archive", table.Name)
	}

	src, err := os.Open(tmpPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "open %s", tmpPath)
	}
	defer src.Close()

	if _, err := io.Copy(entry, src); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "copy %s into archive", table.Name)
	}

	// the temp file is gone once we return
	summary.Path = table.Name + entrySuffix

	return summary, nil
}
