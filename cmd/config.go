package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/errors"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file, environment variables, and command-line flags.`,
		Action: func(ctx context.Context, _ *cli.Command) error {
			return runConfig(getConfigFromContext(ctx))
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration to the config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing config file",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					return runConfigInit(cmd.Bool("force"))
				},
			},
		},
	}
}

func runConfig(cfg *config.Config) error {
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	fmt.Println("====================")
	fmt.Println("Active Configuration:")

	fmt.Println("\nDataset:")
	fmt.Printf("  Schema: %s\n", cfg.Dataset.SchemaPath)
	fmt.Printf("  Archive: %s\n", cfg.ArchivePath())
	fmt.Printf("  Rows: %d-%d per table\n", cfg.Dataset.MinRows, cfg.Dataset.MaxRows)
	fmt.Printf("  Batch Size: %d\n", cfg.Dataset.BatchSize)

	if cfg.Dataset.Seed != 0 {
		fmt.Printf("  Seed: %d\n", cfg.Dataset.Seed)
	} else {
		fmt.Println("  Seed: random")
	}

	fmt.Println("\nProbe:")
	fmt.Printf("  Bucket Prefix: %s\n", cfg.Probe.BucketPrefix)
	fmt.Printf("  Uploads: %d-%d\n", cfg.Probe.MinUploads, cfg.Probe.MaxUploads)
	fmt.Printf("  Object Size: %d-%d MiB\n", cfg.Probe.MinSizeMiB, cfg.Probe.MaxSizeMiB)

	if cfg.Probe.Concurrency > 0 {
		fmt.Printf("  Concurrency: %d\n", cfg.Probe.Concurrency)
	} else {
		fmt.Println("  Concurrency: one worker per upload")
	}

	fmt.Printf("  Call Timeout: %s\n", cfg.Probe.CallTimeout)

	fmt.Println("\nStorage:")
	fmt.Printf("  Provider: %s\n", cfg.Storage.Provider)
	fmt.Printf("  Region: %s\n", regionLabel(cfg))

	if cfg.Storage.Profile != "" {
		fmt.Printf("  Profile: %s\n", cfg.Storage.Profile)
	}

	if cfg.Storage.Endpoint != "" {
		fmt.Printf("  Endpoint: %s\n", cfg.Storage.Endpoint)
		fmt.Printf("  Use SSL: %t\n", cfg.Storage.UseSSL)
	}

	fmt.Printf("  Static Credentials: %t\n", cfg.Storage.AccessKeyID != "")

	fmt.Println("\nLogging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Printf("  File: %s\n", cfg.Logging.File)
	}

	fmt.Printf("  Add Source: %t\n", cfg.Logging.AddSource)

	fmt.Println("\nDebug:")
	fmt.Printf("  Enabled: %t\n", cfg.Debug.Enabled)
	fmt.Printf("  Verbose: %t\n", cfg.Debug.Verbose)

	// Show raw JSON if debug is enabled
	if cfg.Debug.Enabled {
		fmt.Println("\nRaw Configuration (JSON):")
		fmt.Println("==========================")

		jsonData, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}

		fmt.Println(string(jsonData))
	}

	return nil
}

func runConfigInit(force bool) error {
	path := config.ConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		return errors.Newf(errors.ErrTypeConfig, "config file %s already exists", path).
			WithSuggestion("Pass --force to overwrite it")
	}

	if err := config.SaveConfig(config.DefaultConfig()); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write config file")
	}

	fmt.Printf("Wrote default configuration to %s\n", path)

	return nil
}
