package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/formatter"
	"github.com/kyleking/lernspark/internal/inspect"
)

func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Read a generated archive or parquet file back through DuckDB",
		Description: `Count rows, list column types and show a sample row for every parquet file in
the archive (default: the configured archive path) or for a single parquet file.`,
		ArgsUsage: " [archive.zip | file.parquet]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   string(formatter.FormatShort),
				Usage:   "Output format (short, long)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() > 1 {
				return fmt.Errorf("expected at most 1 argument, got %d", args.Len())
			}

			cfg := getConfigFromContext(ctx)
			if cfg == nil {
				cfg = config.DefaultConfig()
			}

			path := args.First()
			if path == "" {
				path = cfg.ArchivePath()
			}

			return runInspect(ctx, path, cfg.Dataset.TempDir, formatter.ParseFormat(cmd.String("format")))
		},
	}
}

func runInspect(ctx context.Context, path, tempDir string, format formatter.OutputFormat) error {
	return runInspectWithInspector(ctx, path, tempDir, format, nil)
}

func runInspectWithInspector(
	ctx context.Context,
	path, tempDir string,
	format formatter.OutputFormat,
	inspector *inspect.Inspector,
) error {
	if inspector == nil {
		var err error

		inspector, err = inspect.New()
		if err != nil {
			return err
		}

		defer inspector.Close()
	}

	path = config.ExpandPath(path)

	var files []*inspect.FileSummary

	if strings.EqualFold(filepath.Ext(path), ".zip") {
		summaries, err := inspector.SummarizeArchive(ctx, path, config.ExpandPath(tempDir))
		if err != nil {
			return err
		}

		files = summaries
	} else {
		summary, err := inspector.Summarize(ctx, path)
		if err != nil {
			return err
		}

		files = []*inspect.FileSummary{summary}
	}

	fmt.Print(formatter.NewFormatter().FormatInspection(files, format))

	return nil
}
