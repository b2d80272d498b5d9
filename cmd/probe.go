package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/formatter"
	"github.com/kyleking/lernspark/internal/logging"
	"github.com/kyleking/lernspark/internal/objectstore"
	"github.com/kyleking/lernspark/internal/probe"
	"github.com/kyleking/lernspark/internal/synth"
)

func ProbeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Create a scratch bucket, upload random objects concurrently and tear it all down",
		Description: `Check what the configured credentials can do: create a bucket, report its
location and whether Glacier Deep Archive is offered there, upload a random number of
random-sized objects in parallel and report per-object throughput. The bucket and every
object are deleted afterwards, even when uploads fail or the command is interrupted.`,
		Flags: append(storageFlags(),
			&cli.StringFlag{
				Name:  "bucket-prefix",
				Usage: "Prefix of the scratch bucket name",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := commandConfig(ctx, cmd, append(storageConfigFlags, "bucket-prefix")...)
			if err != nil {
				return err
			}

			return runProbe(ctx, cfg)
		},
	}
}

func runProbe(ctx context.Context, cfg *config.Config) error {
	return runProbeWithClient(ctx, cfg, nil)
}

func runProbeWithClient(ctx context.Context, cfg *config.Config, client objectstore.Client) error {
	if client == nil {
		var err error

		client, err = initializeClient(cfg)
		if err != nil {
			return err
		}
	}

	logger := logging.GetLogger().WithFields(map[string]interface{}{
		"provider": cfg.Storage.Provider,
		"region":   regionLabel(cfg),
	})

	p := probe.New(client, probe.OptionsFromConfig(cfg.Probe), synth.New(cfg.Dataset.Seed), logger)

	s := startSpinner("Probing object storage")
	report, err := p.Run(ctx)
	s.Stop()

	if report != nil {
		fmt.Print(formatter.NewFormatter().FormatProbeReport(report))
	}

	return err
}
