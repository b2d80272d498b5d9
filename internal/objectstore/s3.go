package objectstore

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/errors"
)

// defaultRegion needs no location constraint on CreateBucket.
const defaultRegion = "us-east-1"

// S3Client talks to AWS S3 or an S3 compatible endpoint.
type S3Client struct {
	svc    s3iface.S3API
	region string
}

// NewS3 builds a session from the shared AWS config. An empty region or
// profile leaves resolution to the SDK (AWS_REGION, then the profile), with
// us-east-1 as the last resort. Static keys win over the profile when set.
func NewS3(cfg config.StorageConfig) (*S3Client, error) {
	awsCfg := aws.NewConfig()

	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}

	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}

	if cfg.ForcePathStyle {
		awsCfg = awsCfg.WithS3ForcePathStyle(true)
	}

	if !cfg.UseSSL {
		awsCfg = awsCfg.WithDisableSSL(true)
	}

	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		Profile:           cfg.Profile,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "create AWS session").
			WithSuggestion("Check AWS_PROFILE or storage.profile and ~/.aws/config")
	}

	region := aws.StringValue(sess.Config.Region)
	if region == "" {
		region = defaultRegion
	}

	return NewS3WithAPI(s3.New(sess, aws.NewConfig().WithRegion(region)), region), nil
}

// Region is the region buckets are created in.
func (c *S3Client) Region() string {
	return c.region
}

// NewS3WithAPI wraps an existing S3 API implementation.
func NewS3WithAPI(svc s3iface.S3API, region string) *S3Client {
	return &S3Client{svc: svc, region: region}
}

func (c *S3Client) CreateBucket(ctx context.Context, bucket string) (*CreateBucketOutput, error) {
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if c.region != defaultRegion {
		input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(c.region),
		}
	}

	var requestID string
	captureID := func(r *request.Request) {
		r.Handlers.Complete.PushBack(func(r *request.Request) {
			requestID = r.RequestID
		})
	}

	out, err := c.svc.CreateBucketWithContext(ctx, input, captureID)
	if err != nil {
		return nil, err
	}

	return &CreateBucketOutput{
		Location:  aws.StringValue(out.Location),
		RequestID: requestID,
	}, nil
}

func (c *S3Client) DeleteBucket(ctx context.Context, bucket string) error {
	_, err := c.svc.DeleteBucketWithContext(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	return err
}

func (c *S3Client) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	_, err := c.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})

	return err
}

func (c *S3Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	return err
}

// GetBucketLocation returns "" for buckets in the default region.
func (c *S3Client) GetBucketLocation(ctx context.Context, bucket string) (string, error) {
	out, err := c.svc.GetBucketLocationWithContext(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(bucket)})
	if err != nil {
		return "", err
	}

	return aws.StringValue(out.LocationConstraint), nil
}

func (c *S3Client) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	out, err := c.svc.ListBucketsWithContext(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, err
	}

	buckets := make([]BucketInfo, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, BucketInfo{
			Name:    aws.StringValue(b.Name),
			Created: aws.TimeValue(b.CreationDate),
		})
	}

	return buckets, nil
}
