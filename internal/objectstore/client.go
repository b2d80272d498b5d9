// Package objectstore wraps the object storage backends the probe talks to.
// Errors are returned with the backend's own text so callers can look for
// codes such as AccessDenied.
package objectstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/errors"
)

const (
	ProviderS3    = "s3"
	ProviderMinio = "minio"
)

// Client is the storage surface the probe needs. Implementations must be
// safe for concurrent use.
type Client interface {
	CreateBucket(ctx context.Context, bucket string) (*CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	DeleteObject(ctx context.Context, bucket, key string) error
	GetBucketLocation(ctx context.Context, bucket string) (string, error)
	ListBuckets(ctx context.Context) ([]BucketInfo, error)
}

// CreateBucketOutput carries the diagnostics a backend returns on creation.
type CreateBucketOutput struct {
	Location  string
	RequestID string
}

// BucketInfo is one entry of ListBuckets.
type BucketInfo struct {
	Name    string
	Created time.Time
}

// New builds the configured backend with every call bounded by timeout.
func New(cfg config.StorageConfig, timeout time.Duration) (Client, error) {
	var (
		client Client
		err    error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderS3, "":
		client, err = NewS3(cfg)
	case ProviderMinio:
		client, err = NewMinio(cfg)
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown storage provider %q", cfg.Provider), "storage.provider")
	}

	if err != nil {
		return nil, err
	}

	return WithTimeout(client, timeout), nil
}

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout bounds each call on next. A non-positive timeout returns next.
func WithTimeout(next Client, timeout time.Duration) Client {
	if timeout <= 0 {
		return next
	}

	return &timeoutClient{next: next, timeout: timeout}
}

func (c *timeoutClient) CreateBucket(ctx context.Context, bucket string) (*CreateBucketOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.next.CreateBucket(ctx, bucket)
}

func (c *timeoutClient) DeleteBucket(ctx context.Context, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.next.DeleteBucket(ctx, bucket)
}

func (c *timeoutClient) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.next.PutObject(ctx, bucket, key, data)
}

func (c *timeoutClient) DeleteObject(ctx context.Context, bucket, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.next.DeleteObject(ctx, bucket, key)
}

func (c *timeoutClient) GetBucketLocation(ctx context.Context, bucket string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.next.GetBucketLocation(ctx, bucket)
}

func (c *timeoutClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.next.ListBuckets(ctx)
}
