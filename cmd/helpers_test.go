package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/testutil"
)

// captureStdout runs fn with os.Stdout redirected and returns what it printed
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	runErr := fn()

	w.Close()
	os.Stdout = oldStdout

	return <-done, runErr
}

// newCommandConfig returns a fast test config pointing at a schema file with
// the houses tables, and isolates the config file lookup from the real home.
func newCommandConfig(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv("LERNSPARK_CONFIG", filepath.Join(t.TempDir(), "config.json"))

	cfg := testutil.NewTestConfig(t)
	cfg.Dataset.SchemaPath = testutil.WriteSchemaFile(t, testutil.HousesSchema)

	return cfg
}
