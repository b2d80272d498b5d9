package objectstore_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/objectstore"
)

const (
	minioUser     = "lernspark"
	minioPassword = "lernspark-secret"
)

func setupMinio(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping docker test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}

	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "minio/minio",
		Tag:        "latest",
		Cmd:        []string{"server", "/data"},
		Env: []string{
			fmt.Sprintf("MINIO_ROOT_USER=%s", minioUser),
			fmt.Sprintf("MINIO_ROOT_PASSWORD=%s", minioPassword),
		},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge minio: %v", err)
		}
	})

	endpoint := fmt.Sprintf("localhost:%s", resource.GetPort("9000/tcp"))

	pool.MaxWait = time.Minute
	require.NoError(t, pool.Retry(func() error {
		resp, err := http.Get(fmt.Sprintf("http://%s/minio/health/live", endpoint))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("minio health status %d", resp.StatusCode)
		}

		return nil
	}))

	return endpoint
}

func TestMinioRoundTrip(t *testing.T) {
	endpoint := setupMinio(t)

	client, err := objectstore.New(config.StorageConfig{
		Provider:        objectstore.ProviderMinio,
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     minioUser,
		SecretAccessKey: minioPassword,
		UseSSL:          false,
	}, 30*time.Second)
	require.NoError(t, err)

	ctx := context.Background()
	bucket := "lernspark-integration"

	_, err = client.CreateBucket(ctx, bucket)
	require.NoError(t, err)

	require.NoError(t, client.PutObject(ctx, bucket, "probe-0-1MiB.bin", make([]byte, 1024)))

	buckets, err := client.ListBuckets(ctx)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, bucket, buckets[0].Name)

	_, err = client.GetBucketLocation(ctx, bucket)
	require.NoError(t, err)

	require.NoError(t, client.DeleteObject(ctx, bucket, "probe-0-1MiB.bin"))
	require.NoError(t, client.DeleteBucket(ctx, bucket))

	buckets, err = client.ListBuckets(ctx)
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestMinioBadCredentials(t *testing.T) {
	endpoint := setupMinio(t)

	client, err := objectstore.New(config.StorageConfig{
		Provider:        objectstore.ProviderMinio,
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     "nobody",
		SecretAccessKey: "wrong-password",
	}, 30*time.Second)
	require.NoError(t, err)

	_, err = client.ListBuckets(context.Background())
	assert.Error(t, err)
}
