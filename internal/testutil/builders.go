package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/schema"
)

// HousesSchema is a two table schema with a leading comment line.
const HousesSchema = `-- SQL Database Schema
CREATE TABLE Lanisters (
    ID INT AUTO_INCREMENT PRIMARY KEY,
    King TEXT UNIQUE,
    Army INT NOT NULL,
    email VARCHAR(100)
);

CREATE TABLE Starks (
    ID UUID PRIMARY KEY,
    King TEXT NOT NULL,
    Army FLOAT NOT NULL,
    crowned DATE,
    IS_TRUE_KING BOOLEAN
);
`

// TableOption is a functional option for configuring test tables
type TableOption func(*schema.Table)

// WithColumn appends a column
func WithColumn(name string, dataType schema.DataType, constraints ...string) TableOption {
	return func(t *schema.Table) {
		if constraints == nil {
			constraints = []string{}
		}

		t.Columns = append(t.Columns, schema.Column{Name: name, DataType: dataType, Constraints: constraints})
	}
}

// NewTestTable creates a table. Without options it has an id and a name column.
func NewTestTable(name string, opts ...TableOption) schema.Table {
	table := schema.Table{Name: name}

	if len(opts) == 0 {
		opts = []TableOption{
			WithColumn("id", schema.Int, "PRIMARY", "KEY"),
			WithColumn("name", schema.VarChar(50)),
		}
	}

	for _, opt := range opts {
		opt(&table)
	}

	return table
}

// NewTestConfig returns defaults shrunk so generation and probes run fast,
// with files kept under t.TempDir().
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()

	cfg.Dataset.OutputDir = filepath.Join(dir, "examples")
	cfg.Dataset.TempDir = dir
	cfg.Dataset.MinRows = TestMinRows
	cfg.Dataset.MaxRows = TestMaxRows
	cfg.Dataset.Seed = TestSeed
	cfg.Dataset.ParallelWriters = 1

	cfg.Probe.MinUploads = TestMinUploads
	cfg.Probe.MaxUploads = TestMaxUploads
	cfg.Probe.MinSizeMiB = 1
	cfg.Probe.MaxSizeMiB = 1

	cfg.Logging.Output = "stderr"
	cfg.Logging.Level = "error"

	return cfg
}

// WriteSchemaFile writes text to data.sql in a temp dir and returns the path
func WriteSchemaFile(t *testing.T, text string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.sql")
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		t.Fatalf("write schema file: %v", err)
	}

	return path
}
