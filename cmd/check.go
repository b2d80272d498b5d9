package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/formatter"
	"github.com/kyleking/lernspark/internal/objectstore"
	"github.com/kyleking/lernspark/internal/probe"
)

func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:        "check",
		Usage:       "Verify the configured credentials can list buckets",
		Description: `List the buckets visible to the configured credentials. Fails with an access denied error when the account lacks permission.`,
		Flags:       storageFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := commandConfig(ctx, cmd, storageConfigFlags...)
			if err != nil {
				return err
			}

			return runCheck(ctx, cfg)
		},
	}
}

func runCheck(ctx context.Context, cfg *config.Config) error {
	return runCheckWithClient(ctx, cfg, nil)
}

func runCheckWithClient(ctx context.Context, cfg *config.Config, client objectstore.Client) error {
	if client == nil {
		var err error

		client, err = initializeClient(cfg)
		if err != nil {
			return err
		}
	}

	buckets, err := probe.CheckAccess(ctx, client)
	if err != nil {
		return err
	}

	fmt.Printf("Access OK (%s, %s)\n", cfg.Storage.Provider, regionLabel(cfg))
	fmt.Print(formatter.NewFormatter().FormatBuckets(buckets))

	return nil
}
