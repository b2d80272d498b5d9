package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/lernspark/internal/archive"
	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/dataset"
	"github.com/kyleking/lernspark/internal/formatter"
	"github.com/kyleking/lernspark/internal/logging"
	"github.com/kyleking/lernspark/internal/schema"
	"github.com/kyleking/lernspark/internal/synth"
)

var generateConfigFlags = []string{"schema", "output-dir", "archive-name", "min-rows", "max-rows", "seed"}

func GenerateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Write a parquet file per schema table and bundle them into a zip archive",
		Description: `Parse the schema file, fill every table with a random number of synthetic rows
and write the tables as <table>.parquet entries of <output-dir>/<archive-name>.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "schema",
				Aliases: []string{"s"},
				Usage:   "SQL file with CREATE TABLE statements",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Directory for the archive",
			},
			&cli.StringFlag{
				Name:  "archive-name",
				Usage: "File name of the archive",
			},
			&cli.IntFlag{
				Name:  "min-rows",
				Usage: "Fewest rows per table",
			},
			&cli.IntFlag{
				Name:  "max-rows",
				Usage: "Most rows per table",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Seed for reproducible values (0 picks a random seed)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := commandConfig(ctx, cmd, generateConfigFlags...)
			if err != nil {
				return err
			}

			return runGenerate(ctx, cfg)
		},
	}
}

func runGenerate(ctx context.Context, cfg *config.Config) error {
	cfg.ExpandAllPaths()

	tables, err := schema.ParseFile(cfg.Dataset.SchemaPath)
	if err != nil {
		return err
	}

	logger := logging.GetLogger().WithField("schema", cfg.Dataset.SchemaPath)
	writer := dataset.NewWriter(cfg.Dataset, synth.New(cfg.Dataset.Seed), logger)
	bundler := archive.NewBundler(writer, cfg.Dataset.TempDir, logger)

	var result *archive.Result

	s := startSpinner(fmt.Sprintf("Writing %d tables", len(tables)))
	err = logging.LoggerMiddleware(logger, "generate", func() error {
		var bundleErr error
		result, bundleErr = bundler.Bundle(ctx, tables, cfg.ArchivePath())

		return bundleErr
	})
	s.Stop()

	if err != nil {
		return err
	}

	logger.Debugf("Memory after generation: %s", writer.Monitor().GetFormattedStats())

	fmt.Print(formatter.NewFormatter().FormatArchive(result))

	return nil
}
