package dataset

import (
	"bufio"
	stderrors "errors"
	"os"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/kyleking/lernspark/internal/errors"
	"github.com/kyleking/lernspark/internal/schema"
)

// Encoder receives rows in column order.
type Encoder interface {
	WriteRow(row []any) error
	Close() error
}

type parquetEncoder struct {
	writer *writer.CSVWriter
	buf    *bufio.Writer
	file   *os.File
}

// NewParquetEncoder creates path and returns a SNAPPY compressed parquet
// encoder for the table's columns.
func NewParquetEncoder(path string, table schema.Table, parallelWriters int64) (Encoder, error) {
	if len(table.Columns) == 0 {
		return nil, errors.Newf(errors.ErrTypeEncoding, "table %s has no columns", table.Name)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "create %s", path)
	}

	buf := bufio.NewWriter(file)

	w, err := writer.NewCSVWriterFromWriter(ParquetSchema(table), buf, max(parallelWriters, 1))
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, errors.ErrTypeEncoding, "build parquet schema for %s", table.Name)
	}

	w.CompressionType = parquet.CompressionCodec_SNAPPY

	return &parquetEncoder{writer: w, buf: buf, file: file}, nil
}

func (p *parquetEncoder) WriteRow(row []any) error {
	return p.writer.Write(row)
}

// Close writes the footer and closes the file. The file is closed even when
// the footer fails.
func (p *parquetEncoder) Close() error {
	var errs []error

	if err := p.writer.WriteStop(); err != nil {
		errs = append(errs, errors.Wrap(err, errors.ErrTypeEncoding, "finish parquet file"))
	}

	if err := p.buf.Flush(); err != nil {
		errs = append(errs, errors.Wrap(err, errors.ErrTypeFileSystem, "flush parquet file"))
	}

	if err := p.file.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, errors.ErrTypeFileSystem, "close parquet file"))
	}

	return stderrors.Join(errs...)
}
