package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/errors"
)

// MinioClient talks to a MinIO server.
type MinioClient struct {
	client *minio.Client
	region string
}

// NewMinio connects to cfg.Endpoint. Without static keys the credentials
// come from the AWS_* or MINIO_* environment variables.
func NewMinio(cfg config.StorageConfig) (*MinioClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewConfigError("minio requires an endpoint", "storage.endpoint")
	}

	host, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)

	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
		})
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConfig, "create minio client for %s", cfg.Endpoint)
	}

	return &MinioClient{client: client, region: cfg.Region}, nil
}

// splitEndpoint accepts host:port or a URL. A URL scheme overrides useSSL.
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, useSSL
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint, useSSL
	}

	return u.Host, u.Scheme == "https"
}

// withCode puts the S3 error code in front of the message, since minio's
// error text only carries the human message.
func withCode(err error) error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "" {
		return err
	}

	return fmt.Errorf("%s: %w", resp.Code, err)
}

func (c *MinioClient) CreateBucket(ctx context.Context, bucket string) (*CreateBucketOutput, error) {
	if err := c.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return nil, withCode(err)
	}

	return &CreateBucketOutput{Location: c.region}, nil
}

func (c *MinioClient) DeleteBucket(ctx context.Context, bucket string) error {
	return withCode(c.client.RemoveBucket(ctx, bucket))
}

func (c *MinioClient) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	_, err := c.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})

	return withCode(err)
}

func (c *MinioClient) DeleteObject(ctx context.Context, bucket, key string) error {
	return withCode(c.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}))
}

func (c *MinioClient) GetBucketLocation(ctx context.Context, bucket string) (string, error) {
	location, err := c.client.GetBucketLocation(ctx, bucket)
	return location, withCode(err)
}

func (c *MinioClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	buckets, err := c.client.ListBuckets(ctx)
	if err != nil {
		return nil, withCode(err)
	}

	out := make([]BucketInfo, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, BucketInfo{Name: b.Name, Created: b.CreationDate})
	}

	return out, nil
}
