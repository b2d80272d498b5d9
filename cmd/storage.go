package cmd

import (
	"github.com/urfave/cli/v3"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/objectstore"
)

var storageConfigFlags = []string{"provider", "region", "profile", "endpoint"}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Object storage backend (s3, minio)",
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "Region to create buckets in (default: AWS_REGION, the profile, then us-east-1)",
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "Shared credentials profile (s3 only)",
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "Custom endpoint, required for minio",
		},
	}
}

// initializeClient creates the object store client for the configured
// provider with every call bounded by the probe call timeout
func initializeClient(cfg *config.Config) (objectstore.Client, error) {
	return objectstore.New(cfg.Storage, cfg.CallTimeout())
}

// regionLabel shows an unset region as resolved by the SDK
func regionLabel(cfg *config.Config) string {
	if cfg.Storage.Region == "" {
		return "auto"
	}

	return cfg.Storage.Region
}
