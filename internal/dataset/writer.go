package dataset

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/errors"
	"github.com/kyleking/lernspark/internal/logging"
	"github.com/kyleking/lernspark/internal/monitor"
	"github.com/kyleking/lernspark/internal/schema"
	"github.com/kyleking/lernspark/internal/synth"
)

// Summary describes one written table.
type Summary struct {
	Table   string
	Path    string
	Columns []string
	Rows    int
	Batches int
	Example []any
	Elapsed time.Duration
}

// Writer fills tables with synthetic rows. Tables are written one at a time.
type Writer struct {
	cfg     config.DatasetConfig
	gen     *synth.Generator
	logger  *logging.Logger
	monitor *monitor.MemoryMonitor
}

// NewWriter creates a writer. A nil logger discards output.
func NewWriter(cfg config.DatasetConfig, gen *synth.Generator, logger *logging.Logger) *Writer {
	if logger == nil {
		logger = logging.Discard()
	}

	return &Writer{
		cfg:     cfg,
		gen:     gen,
		logger:  logger,
		monitor: monitor.NewMemoryMonitor(cfg.MemoryThresholdMB),
	}
}

// Monitor exposes the memory monitor sampled between batches.
func (w *Writer) Monitor() *monitor.MemoryMonitor {
	return w.monitor
}

// Write writes the table as a parquet file at path.
func (w *Writer) Write(ctx context.Context, table schema.Table, path string) (*Summary, error) {
	enc, err := NewParquetEncoder(path, table, w.cfg.ParallelWriters)
	if err != nil {
		return nil, err
	}

	summary, err := w.WriteTo(ctx, table, enc)
	if err != nil {
		_ = enc.Close()
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	summary.Path = path

	return summary, nil
}

// WriteTo draws a row count from the configured range and streams that many
// rows to enc in batches. enc is not closed.
func (w *Writer) WriteTo(ctx context.Context, table schema.Table, enc Encoder) (*Summary, error) {
	start := time.Now()
	rows := w.gen.IntRange(w.cfg.MinRows, w.cfg.MaxRows)

	batchSize := w.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = rows
	}

	summary := &Summary{
		Table:   table.Name,
		Columns: lo.Map(table.Columns, func(c schema.Column, _ int) string { return c.Name }),
		Rows:    rows,
	}

	logger := w.logger.WithField("table", table.Name)

	for written := 0; written < rows; {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeInternal, "writing %s interrupted after %d rows", table.Name, written)
		}

		n := min(batchSize, rows-written)

		columns, err := w.buildBatch(table, n)
		if err != nil {
			return nil, err
		}

		for i := 0; i < n; i++ {
			row := make([]any, len(columns))
			for c := range columns {
				row[c] = columns[c][i]
			}

			if summary.Example == nil {
				summary.Example = row
			}

			if err := enc.WriteRow(row); err != nil {
				return nil, errors.Wrapf(err, errors.ErrTypeEncoding, "write row %d of %s", written+i, table.Name)
			}
		}

		written += n
		summary.Batches++

		if w.monitor.Checkpoint() {
			logger.Debugf("Forced GC after batch %d: %s", summary.Batches, w.monitor.GetFormattedStats())
		}
	}

	summary.Elapsed = time.Since(start)

	logger.WithFields(map[string]interface{}{
		"rows":    summary.Rows,
		"batches": summary.Batches,
	}).Infof("Generated %s with %d rows, example row: %v", table.Name, summary.Rows, summary.Example)

	return summary, nil
}

// buildBatch fills one buffer per column and checks they all hold n values.
func (w *Writer) buildBatch(table schema.Table, n int) ([][]any, error) {
	columns := make([][]any, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = w.gen.Values(col, n)
	}

	for i, values := range columns {
		if len(values) != n {
			return nil, errors.Newf(errors.ErrTypeEncoding, "column %s of %s has %d values, expected %d",
				table.Columns[i].Name, table.Name, len(values), n)
		}
	}

	return columns, nil
}
