package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/errors"
	"github.com/kyleking/lernspark/internal/logging"
)

type configKey struct{}

// rootConfigFlags are the global flags that map onto config overrides
var rootConfigFlags = []string{"config-file", "log-level", "verbose", "debug"}

// NewApp builds the command tree
func NewApp() *cli.Command {
	return &cli.Command{
		Name:  "lernspark",
		Usage: "Generate sample datasets from SQL schemas and probe object storage",
		Description: `lernspark reads CREATE TABLE statements, fills every table with synthetic
rows, writes each table as a parquet file and bundles them into one zip archive.
It can also check that the configured S3 or MinIO credentials can create a bucket,
upload objects concurrently and tear everything down again.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-file",
				Usage: "Path to a JSON or YAML config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log at debug level",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Show debug output such as the raw configuration",
			},
		},
		Before: setupConfig,
		Commands: []*cli.Command{
			GenerateCommand(),
			SchemaCommand(),
			InspectCommand(),
			ProbeCommand(),
			CheckCommand(),
			ConfigCommand(),
		},
	}
}

// Execute runs the CLI with the process arguments
func Execute() error {
	err := NewApp().Run(context.Background(), os.Args)
	if err != nil {
		printError(err)
	}

	return err
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var structErr *errors.Error
	if stderrors.As(err, &structErr) {
		for _, suggestion := range structErr.Suggestions {
			fmt.Fprintf(os.Stderr, "  - %s\n", suggestion)
		}
	}
}

func setupConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.LoadConfigWithOverrides(flagOverrides(cmd, rootConfigFlags...))
	if err != nil {
		return ctx, errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration").
			WithSuggestion("Check the config file and the LERNSPARK_ environment variables")
	}

	if cfg.Debug.Verbose {
		cfg.Logging.Level = "debug"
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		logging.SetupFallbackLogger()
		logging.Warnf("Falling back to stderr logging: %v", err)
	}

	return context.WithValue(ctx, configKey{}, cfg), nil
}

// getConfigFromContext returns the config loaded by the root command, or
// loads it directly when the command runs outside the tree (tests).
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil
	}

	return cfg
}

// flagOverrides collects the named flags that were set on the command line
func flagOverrides(cmd *cli.Command, names ...string) map[string]interface{} {
	overrides := make(map[string]interface{})

	for _, name := range names {
		if cmd.IsSet(name) {
			overrides[name] = cmd.Value(name)
		}
	}

	return overrides
}

// commandConfig returns the root config, reloaded with the command's own flags
// when any of them were set.
func commandConfig(ctx context.Context, cmd *cli.Command, names ...string) (*config.Config, error) {
	local := flagOverrides(cmd, names...)
	if len(local) == 0 {
		if cfg := getConfigFromContext(ctx); cfg != nil {
			return cfg, nil
		}
	}

	overrides := flagOverrides(cmd.Root(), rootConfigFlags...)
	maps.Copy(overrides, local)

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration")
	}

	return cfg, nil
}
