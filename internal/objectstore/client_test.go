package objectstore

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/errors"
)

// deadlineClient records whether each call saw a deadline.
type deadlineClient struct {
	sawDeadline []bool
}

func (d *deadlineClient) record(ctx context.Context) {
	_, ok := ctx.Deadline()
	d.sawDeadline = append(d.sawDeadline, ok)
}

func (d *deadlineClient) CreateBucket(ctx context.Context, _ string) (*CreateBucketOutput, error) {
	d.record(ctx)
	return &CreateBucketOutput{}, nil
}

func (d *deadlineClient) DeleteBucket(ctx context.Context, _ string) error {
	d.record(ctx)
	return nil
}

func (d *deadlineClient) PutObject(ctx context.Context, _, _ string, _ []byte) error {
	d.record(ctx)
	return nil
}

func (d *deadlineClient) DeleteObject(ctx context.Context, _, _ string) error {
	d.record(ctx)
	return nil
}

func (d *deadlineClient) GetBucketLocation(ctx context.Context, _ string) (string, error) {
	d.record(ctx)
	return "", nil
}

func (d *deadlineClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	d.record(ctx)
	return nil, nil
}

func TestWithTimeoutBoundsEveryCall(t *testing.T) {
	inner := &deadlineClient{}
	client := WithTimeout(inner, time.Minute)
	ctx := context.Background()

	_, _ = client.CreateBucket(ctx, "b")
	_ = client.PutObject(ctx, "b", "k", nil)
	_ = client.DeleteObject(ctx, "b", "k")
	_ = client.DeleteBucket(ctx, "b")
	_, _ = client.GetBucketLocation(ctx, "b")
	_, _ = client.ListBuckets(ctx)

	assert.Equal(t, []bool{true, true, true, true, true, true}, inner.sawDeadline)
}

func TestWithTimeoutDisabled(t *testing.T) {
	inner := &deadlineClient{}

	assert.Same(t, inner, WithTimeout(inner, 0))
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(config.StorageConfig{Provider: "gcs"}, time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	_, err = New(config.StorageConfig{Provider: ProviderMinio}, time.Second)
	require.Error(t, err, "minio without endpoint")
}

func TestNewAcceptsProviderInAnyCase(t *testing.T) {
	isolateAWSConfig(t)

	client, err := New(config.StorageConfig{Provider: "S3", Region: "us-west-2", AccessKeyID: "key"}, 0)
	require.NoError(t, err)
	assert.IsType(t, &S3Client{}, client)
}

// isolateAWSConfig keeps the SDK away from the developer's own AWS setup.
func isolateAWSConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")

	return filepath.Join(dir, "config")
}

func TestNewS3ResolvesRegion(t *testing.T) {
	tests := []struct {
		name      string
		region    string
		envRegion string
		profile   string
		expected  string
	}{
		{name: "configured region wins", region: "ap-south-1", envRegion: "eu-west-1", expected: "ap-south-1"},
		{name: "AWS_REGION", envRegion: "eu-west-1", expected: "eu-west-1"},
		{name: "profile region", profile: "lab", expected: "eu-central-1"},
		{name: "fallback", expected: defaultRegion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := isolateAWSConfig(t)
			require.NoError(t, os.WriteFile(configFile, []byte("[profile lab]\nregion = eu-central-1\n"), 0600))

			if tt.envRegion != "" {
				t.Setenv("AWS_REGION", tt.envRegion)
			}

			client, err := NewS3(config.StorageConfig{
				Region:      tt.region,
				Profile:     tt.profile,
				AccessKeyID: "key",
				UseSSL:      true,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, client.Region())
		})
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		host     string
		secure   bool
	}{
		{"localhost:9000", false, "localhost:9000", false},
		{"localhost:9000", true, "localhost:9000", true},
		{"http://localhost:9000", true, "localhost:9000", false},
		{"https://minio.example.com", false, "minio.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, secure := splitEndpoint(tt.endpoint, tt.useSSL)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestMinioErrorsCarryCode(t *testing.T) {
	err := withCode(minio.ErrorResponse{Code: "AccessDenied", Message: "Access Denied."})

	assert.True(t, errors.IsAccessDenied(err))
	assert.Nil(t, withCode(nil))

	plain := stderrors.New("connection refused")
	assert.Equal(t, plain, withCode(plain))
}

type fakeS3 struct {
	s3iface.S3API

	createInput *s3.CreateBucketInput
	createErr   error
	location    *string
	buckets     []*s3.Bucket
}

func (f *fakeS3) CreateBucketWithContext(_ aws.Context, in *s3.CreateBucketInput, _ ...request.Option) (*s3.CreateBucketOutput, error) {
	f.createInput = in
	if f.createErr != nil {
		return nil, f.createErr
	}

	return &s3.CreateBucketOutput{Location: aws.String("/" + aws.StringValue(in.Bucket))}, nil
}

func (f *fakeS3) GetBucketLocationWithContext(aws.Context, *s3.GetBucketLocationInput, ...request.Option) (*s3.GetBucketLocationOutput, error) {
	return &s3.GetBucketLocationOutput{LocationConstraint: f.location}, nil
}

func (f *fakeS3) ListBucketsWithContext(aws.Context, *s3.ListBucketsInput, ...request.Option) (*s3.ListBucketsOutput, error) {
	return &s3.ListBucketsOutput{Buckets: f.buckets}, nil
}

func TestS3CreateBucketLocationConstraint(t *testing.T) {
	tests := []struct {
		region     string
		constraint *string
	}{
		{"us-east-1", nil},
		{"eu-west-1", aws.String("eu-west-1")},
	}

	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			fake := &fakeS3{}
			client := NewS3WithAPI(fake, tt.region)

			out, err := client.CreateBucket(context.Background(), "probe-bucket")
			require.NoError(t, err)
			assert.Equal(t, "/probe-bucket", out.Location)

			if tt.constraint == nil {
				assert.Nil(t, fake.createInput.CreateBucketConfiguration)
			} else {
				require.NotNil(t, fake.createInput.CreateBucketConfiguration)
				assert.Equal(t, tt.constraint, fake.createInput.CreateBucketConfiguration.LocationConstraint)
			}
		})
	}
}

func TestS3ErrorsKeepBackendText(t *testing.T) {
	fake := &fakeS3{createErr: awserr.New("AccessDenied", "Access Denied", nil)}

	_, err := NewS3WithAPI(fake, "us-east-1").CreateBucket(context.Background(), "b")
	require.Error(t, err)
	assert.True(t, errors.IsAccessDenied(err))
}

func TestS3LocationAndList(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeS3{
		buckets: []*s3.Bucket{{Name: aws.String("a"), CreationDate: aws.Time(created)}},
	}
	client := NewS3WithAPI(fake, "us-east-1")

	location, err := client.GetBucketLocation(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, location, "default region reports no constraint")

	buckets, err := client.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []BucketInfo{{Name: "a", Created: created}}, buckets)
}
