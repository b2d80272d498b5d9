package inspect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/lernspark/internal/archive"
	"github.com/kyleking/lernspark/internal/dataset"
	"github.com/kyleking/lernspark/internal/errors"
	"github.com/kyleking/lernspark/internal/schema"
	"github.com/kyleking/lernspark/internal/synth"
	"github.com/kyleking/lernspark/internal/testutil"
)

func newInspector(t *testing.T) *Inspector {
	t.Helper()

	i, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = i.Close() })

	return i
}

func TestSummarizeParquetFile(t *testing.T) {
	cfg := testutil.NewTestConfig(t)
	writer := dataset.NewWriter(cfg.Dataset, synth.New(testutil.TestSeed), nil)

	table := testutil.NewTestTable("people",
		testutil.WithColumn("id", schema.Int),
		testutil.WithColumn("email", schema.VarChar(100)),
		testutil.WithColumn("active", schema.Boolean),
	)

	path := filepath.Join(t.TempDir(), "people.parquet")
	written, err := writer.Write(context.Background(), table, path)
	require.NoError(t, err)

	summary, err := newInspector(t).Summarize(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "people.parquet", summary.Name)
	assert.EqualValues(t, written.Rows, summary.Rows)
	require.Len(t, summary.Columns, 3)
	assert.Equal(t, []string{"id", "email", "active"},
		[]string{summary.Columns[0].Name, summary.Columns[1].Name, summary.Columns[2].Name})
	assert.Equal(t, "INTEGER", summary.Columns[0].Type)
	assert.Equal(t, "BOOLEAN", summary.Columns[2].Type)
	assert.Len(t, summary.Sample, 3)
}

func TestSummarizeMissingFile(t *testing.T) {
	_, err := newInspector(t).Summarize(context.Background(), filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeFileSystem))
}

func TestSummarizeNotParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "o'brien.parquet")
	require.NoError(t, os.WriteFile(path, []byte("not parquet"), 0600))

	_, err := newInspector(t).Summarize(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeEncoding))
}

func TestSummarizeArchive(t *testing.T) {
	cfg := testutil.NewTestConfig(t)
	writer := dataset.NewWriter(cfg.Dataset, synth.New(testutil.TestSeed), nil)
	bundler := archive.NewBundler(writer, cfg.Dataset.TempDir, nil)

	tables, err := schema.Parse(testutil.HousesSchema)
	require.NoError(t, err)

	result, err := bundler.Bundle(context.Background(), tables, cfg.ArchivePath())
	require.NoError(t, err)

	summaries, err := newInspector(t).SummarizeArchive(context.Background(), result.Path, t.TempDir())
	require.NoError(t, err)
	require.Len(t, summaries, len(result.Summaries))

	for i, s := range summaries {
		assert.Equal(t, result.Summaries[i].Path, s.Name)
		assert.EqualValues(t, result.Summaries[i].Rows, s.Rows)
		assert.Len(t, s.Columns, len(tables[i].Columns))
	}
}

func TestSummarizeArchiveMissing(t *testing.T) {
	_, err := newInspector(t).SummarizeArchive(context.Background(), filepath.Join(t.TempDir(), "x.zip"), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeFileSystem))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'a''b'", quoteLiteral("a'b"))
	assert.Equal(t, "'plain'", quoteLiteral("plain"))
}
