package probe

import (
	"context"

	"github.com/kyleking/lernspark/internal/errors"
	"github.com/kyleking/lernspark/internal/objectstore"
)

// deepArchiveRegions offer the deep archive storage class. "" is how S3
// reports us-east-1, and EU is the legacy name for eu-west-1.
var deepArchiveRegions = map[string]struct{}{
	"":               {},
	"us-east-1":      {},
	"us-east-2":      {},
	"us-west-1":      {},
	"us-west-2":      {},
	"ca-central-1":   {},
	"sa-east-1":      {},
	"EU":             {},
	"eu-west-1":      {},
	"eu-west-2":      {},
	"eu-west-3":      {},
	"eu-central-1":   {},
	"eu-north-1":     {},
	"eu-south-1":     {},
	"ap-east-1":      {},
	"ap-south-1":     {},
	"ap-northeast-1": {},
	"ap-northeast-2": {},
	"ap-northeast-3": {},
	"ap-southeast-1": {},
	"ap-southeast-2": {},
	"me-south-1":     {},
	"af-south-1":     {},
}

// DeepArchiveAvailable reports whether a bucket location qualifies for the
// deep archive tier.
func DeepArchiveAvailable(location string) bool {
	_, ok := deepArchiveRegions[location]
	return ok
}

// CheckAccess lists buckets to confirm the credentials can reach the account.
func CheckAccess(ctx context.Context, client objectstore.Client) ([]objectstore.BucketInfo, error) {
	buckets, err := client.ListBuckets(ctx)
	if err == nil {
		return buckets, nil
	}

	if errors.IsAccessDenied(err) {
		return nil, errors.Wrap(err, errors.ErrTypeAccessDenied, "insufficient permissions to list buckets").
			WithSuggestion("Grant s3:ListAllMyBuckets to the configured identity")
	}

	return nil, errors.Wrap(err, errors.ErrTypeStorageList, "failed to list buckets").
		WithSuggestion("Check storage.region, storage.endpoint and network connectivity")
}
