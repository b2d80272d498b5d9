package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/dataset"
	"github.com/kyleking/lernspark/internal/errors"
	"github.com/kyleking/lernspark/internal/schema"
	"github.com/kyleking/lernspark/internal/synth"
)

func newTestBundler(t *testing.T) (*Bundler, string) {
	t.Helper()

	cfg := config.DefaultConfig().Dataset
	cfg.MinRows = 10
	cfg.MaxRows = 30
	cfg.ParallelWriters = 1

	tempDir := t.TempDir()
	writer := dataset.NewWriter(cfg, synth.New(21), nil)

	return NewBundler(writer, tempDir, nil), tempDir
}

func houses() []schema.Table {
	return []schema.Table{
		{Name: "Lanisters", Columns: []schema.Column{
			{Name: "ID", DataType: schema.Int},
			{Name: "King", DataType: schema.String},
		}},
		{Name: "Starks", Columns: []schema.Column{
			{Name: "ID", DataType: schema.Int},
			{Name: "IS_TRUE_KING", DataType: schema.Boolean},
		}},
	}
}

func TestBundleWritesOneEntryPerTable(t *testing.T) {
	bundler, tempDir := newTestBundler(t)
	dest := filepath.Join(t.TempDir(), "out", "examples.zip")

	result, err := bundler.Bundle(context.Background(), houses(), dest)
	require.NoError(t, err)

	assert.Equal(t, []string{"Lanisters.parquet", "Starks.parquet"}, result.Entries)
	assert.Len(t, result.Summaries, 2)
	assert.Positive(t, result.SizeBytes)

	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method)
		assert.Positive(t, f.UncompressedSize64)
	}

	assert.Equal(t, result.Entries, names)

	leftovers, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers, "no temp files may survive bundling")
}

func TestBundleSkipsTablesWithoutColumns(t *testing.T) {
	bundler, _ := newTestBundler(t)

	tables := append(houses(), schema.Table{Name: "empty"})

	result, err := bundler.Bundle(context.Background(), tables, filepath.Join(t.TempDir(), "examples.zip"))
	require.NoError(t, err)

	assert.Equal(t, []string{"empty"}, result.Skipped)
	assert.Len(t, result.Entries, 2)
}

func TestBundleFailureRemovesTempFile(t *testing.T) {
	bundler, tempDir := newTestBundler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bundler.Bundle(ctx, houses(), filepath.Join(t.TempDir(), "examples.zip"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	leftovers, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestBundleUnwritableDestination(t *testing.T) {
	bundler, _ := newTestBundler(t)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	_, err := bundler.Bundle(context.Background(), houses(), filepath.Join(blocker, "examples.zip"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeFileSystem))
}

func TestBundleRejectsDuplicateEntryNames(t *testing.T) {
	bundler, _ := newTestBundler(t)
	destination := filepath.Join(t.TempDir(), "examples.zip")

	tables := append(houses(), schema.Table{Name: "starks", Columns: []schema.Column{
		{Name: "ID", DataType: schema.Int},
	}})

	_, err := bundler.Bundle(context.Background(), tables, destination)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeMalformedSchema))
	assert.NoFileExists(t, destination)
}
