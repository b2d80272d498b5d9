package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/formatter"
	"github.com/kyleking/lernspark/internal/schema"
)

func SchemaCommand() *cli.Command {
	return &cli.Command{
		Name:        "schema",
		Usage:       "Show the tables parsed from the schema file",
		Description: `Parse the schema file and list its tables. The long format shows each column's SQL type, parquet type and value generator.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "schema",
				Aliases: []string{"s"},
				Usage:   "SQL file with CREATE TABLE statements",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   string(formatter.FormatLong),
				Usage:   "Output format (short, long)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := commandConfig(ctx, cmd, "schema")
			if err != nil {
				return err
			}

			return runSchema(cfg, formatter.ParseFormat(cmd.String("format")))
		},
	}
}

func runSchema(cfg *config.Config, format formatter.OutputFormat) error {
	tables, err := schema.ParseFile(config.ExpandPath(cfg.Dataset.SchemaPath))
	if err != nil {
		return err
	}

	fmt.Print(formatter.NewFormatter().FormatSchema(tables, format))

	return nil
}
