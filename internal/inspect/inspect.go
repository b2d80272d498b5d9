// Package inspect reads generated parquet files back through DuckDB.
package inspect

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/kyleking/lernspark/internal/errors"
)

// ColumnInfo is one column as DuckDB sees it.
type ColumnInfo struct {
	Name string
	Type string
}

// FileSummary describes one parquet file.
type FileSummary struct {
	Name    string
	Rows    int64
	Columns []ColumnInfo
	Sample  []any
}

// Inspector runs queries on an in-memory DuckDB database.
type Inspector struct {
	db *sql.DB
}

// New opens an in-memory DuckDB instance.
func New() (*Inspector, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to open duckdb")
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to ping duckdb")
	}

	return &Inspector{db: db}, nil
}

// Close releases the database
func (i *Inspector) Close() error {
	return i.db.Close()
}

// quoteLiteral renders s as a SQL string literal
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Summarize counts rows, lists the schema and fetches one sample row.
func (i *Inspector) Summarize(ctx context.Context, path string) (*FileSummary, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "parquet file %s", path)
	}

	source := fmt.Sprintf("read_parquet(%s)", quoteLiteral(path))
	summary := &FileSummary{Name: filepath.Base(path)}

	if err := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+source).Scan(&summary.Rows); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeEncoding, "count rows of %s", path)
	}

	describe, err := i.queryAll(ctx, "DESCRIBE SELECT * FROM "+source)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeEncoding, "describe %s", path)
	}

	for _, row := range describe {
		if len(row) < 2 {
			continue
		}

		summary.Columns = append(summary.Columns, ColumnInfo{Name: fmt.Sprint(row[0]), Type: fmt.Sprint(row[1])})
	}

	sample, err := i.queryAll(ctx, "SELECT * FROM "+source+" LIMIT 1")
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeEncoding, "sample %s", path)
	}

	if len(sample) > 0 {
		summary.Sample = sample[0]
	}

	return summary, nil
}

// SummarizeArchive extracts every .parquet entry of a zip archive into a
// temp dir and summarizes it. The extracted files are removed afterwards.
func (i *Inspector) SummarizeArchive(ctx context.Context, archivePath, tempDir string) ([]*FileSummary, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "open archive %s", archivePath)
	}
	defer zr.Close()

	dir, err := os.MkdirTemp(tempDir, "lernspark-inspect-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "create extraction directory")
	}
	defer os.RemoveAll(dir)

	var summaries []*FileSummary

	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".parquet") {
			continue
		}

		path := filepath.Join(dir, filepath.Base(f.Name))
		if err := extract(f, path); err != nil {
			return nil, err
		}

		summary, err := i.Summarize(ctx, path)
		if err != nil {
			return nil, err
		}

		summary.Name = f.Name
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func extract(f *zip.File, path string) error {
	src, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeFileSystem, "open entry %s", f.Name)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeFileSystem, "create %s", path)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return errors.Wrapf(err, errors.ErrTypeFileSystem, "extract %s", f.Name)
	}

	if err := dst.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrTypeFileSystem, "close %s", path)
	}

	return nil
}

// queryAll scans every row into a slice of generic values
func (i *Inspector) queryAll(ctx context.Context, query string) ([][]any, error) {
	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))

		for j := range values {
			ptrs[j] = &values[j]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		out = append(out, values)
	}

	return out, rows.Err()
}
