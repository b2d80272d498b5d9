package probe

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kyleking/lernspark/internal/errors"
	"github.com/kyleking/lernspark/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixedSampler always returns the lower bound.
type fixedSampler struct{}

func (fixedSampler) IntRange(lo, _ int) int { return lo }

func newTestProbe(store *testutil.MockObjectStore, uploads int) *Probe {
	p := New(store, Options{
		BucketPrefix: testutil.TestBucketPrefix,
		MinUploads:   uploads,
		MaxUploads:   uploads,
		MinSizeMiB:   1,
		MaxSizeMiB:   1,
		Concurrency:  2,
	}, fixedSampler{}, nil)

	p.payload = func(uint64) ([]byte, error) { return []byte("payload"), nil }

	return p
}

func expectedKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = ObjectKey(i, 1)
	}

	return keys
}

// teardownCalls returns the delete calls in order and checks none of them
// happened before the last upload.
func teardownCalls(t *testing.T, store *testutil.MockObjectStore) []testutil.Call {
	t.Helper()

	calls := store.Calls()
	lastPut, firstDelete := -1, len(calls)

	var deletes []testutil.Call

	for i, c := range calls {
		switch c.Op {
		case testutil.OpPutObject:
			lastPut = i
		case testutil.OpDeleteObject, testutil.OpDeleteBucket:
			firstDelete = min(firstDelete, i)
			deletes = append(deletes, c)
		}
	}

	assert.Less(t, lastPut, firstDelete, "cleanup must start after every upload joined")

	return deletes
}

func TestRunSuccess(t *testing.T) {
	store := testutil.NewMockObjectStore(testutil.WithRequestID(testutil.TestRequestID))
	p := newTestProbe(store, 4)

	report, err := p.Run(testutil.TestContext(t))
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, strings.HasPrefix(report.Bucket, testutil.TestBucketPrefix+"-"))
	assert.Equal(t, testutil.TestRequestID, report.RequestID)
	assert.True(t, report.DeepArchive, "an empty location counts as the default region")
	assert.Equal(t, expectedKeys(4), report.ObjectKeys)
	assert.Len(t, report.Uploads, 4)
	assert.EqualValues(t, 4*mib, report.TotalBytes)
	assert.Len(t, report.PerObjectThroughput, 4)
	assert.Positive(t, report.Elapsed)
	assert.True(t, report.Succeeded())

	assert.Equal(t, expectedKeys(4), report.Cleanup.Deleted)
	assert.True(t, report.Cleanup.BucketDeleted)
	assert.False(t, store.BucketExists(report.Bucket))

	deletes := teardownCalls(t, store)
	require.Len(t, deletes, 5)

	for i, key := range expectedKeys(4) {
		assert.Equal(t, testutil.Call{Op: testutil.OpDeleteObject, Bucket: report.Bucket, Key: key}, deletes[i])
	}

	assert.Equal(t, testutil.OpDeleteBucket, deletes[4].Op, "bucket goes last")
}

func TestRunUploadFailureStillCleansUpOnce(t *testing.T) {
	store := testutil.NewMockObjectStore(
		testutil.WithError(testutil.OpPutObject, stderrors.New("InternalError: We encountered an internal error")),
	)
	p := newTestProbe(store, 3)

	report, err := p.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)

	assert.True(t, errors.IsType(report.UploadErr, errors.ErrTypeStorageUpload))
	assert.NoError(t, report.Cleanup.Err)
	assert.Empty(t, report.Uploads)

	assert.Equal(t, 3, store.GetCallCount(testutil.OpDeleteObject))
	assert.Equal(t, 1, store.GetCallCount(testutil.OpDeleteBucket))
	assert.True(t, report.Cleanup.BucketDeleted)
}

func TestRunUploadAccessDenied(t *testing.T) {
	store := testutil.NewMockObjectStore(
		testutil.WithError(testutil.OpPutObject, stderrors.New("AccessDenied: Access Denied")),
	)

	report, err := newTestProbe(store, 2).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(report.UploadErr, errors.ErrTypeAccessDenied))
}

func TestRunPanickingTaskBecomesJoinError(t *testing.T) {
	store := testutil.NewMockObjectStore(testutil.WithPanicOnPut(ObjectKey(1, 1)))
	p := newTestProbe(store, 3)

	report, err := p.Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.IsType(report.UploadErr, errors.ErrTypeStorageJoin))
	assert.Len(t, report.Uploads, 2)
	assert.Equal(t, expectedKeys(3), report.Cleanup.Deleted)
	assert.True(t, report.Cleanup.BucketDeleted)
	assert.Equal(t, 1, store.GetCallCount(testutil.OpDeleteBucket))
}

func TestRunCleanupStopsAtFirstFailedDelete(t *testing.T) {
	failing := ObjectKey(1, 1)
	store := testutil.NewMockObjectStore(
		testutil.WithKeyError(failing, stderrors.New("SlowDown: Please reduce your request rate")),
	)
	p := newTestProbe(store, 3)

	report, err := p.Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.IsType(report.Cleanup.Err, errors.ErrTypeStorageDelete))
	assert.True(t, errors.IsType(report.UploadErr, errors.ErrTypeStorageUpload), "put of the same key failed too")
	assert.ErrorIs(t, err, report.Cleanup.Err)
	assert.ErrorIs(t, err, report.UploadErr)

	assert.Equal(t, []string{ObjectKey(0, 1)}, report.Cleanup.Deleted)
	assert.False(t, report.Cleanup.BucketDeleted)
	assert.Equal(t, 0, store.GetCallCount(testutil.OpDeleteBucket))
	assert.Equal(t, 2, store.GetCallCount(testutil.OpDeleteObject))
}

func TestRunBucketDeleteFailure(t *testing.T) {
	store := testutil.NewMockObjectStore(
		testutil.WithError(testutil.OpDeleteBucket, stderrors.New("BucketNotEmpty: not empty")),
	)

	report, err := newTestProbe(store, 2).Run(context.Background())
	require.Error(t, err)

	assert.NoError(t, report.UploadErr)
	assert.True(t, errors.IsType(err, errors.ErrTypeStorageDelete))
	assert.Len(t, report.Cleanup.Deleted, 2)
	assert.False(t, report.Cleanup.BucketDeleted)
	assert.False(t, report.Succeeded())
}

func TestRunCreateFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected errors.ErrorType
	}{
		{"access denied", stderrors.New("AccessDenied: Access Denied\n\tstatus code: 403"), errors.ErrTypeAccessDenied},
		{"other", stderrors.New("BucketAlreadyExists: taken"), errors.ErrTypeStorageCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockObjectStore(testutil.WithError(testutil.OpCreateBucket, tt.err))

			report, err := newTestProbe(store, 2).Run(context.Background())
			require.Error(t, err)
			assert.Nil(t, report)
			assert.True(t, errors.IsType(err, tt.expected))

			assert.Equal(t, 0, store.GetCallCount(testutil.OpPutObject))
			assert.Equal(t, 0, store.GetCallCount(testutil.OpDeleteBucket))
		})
	}
}

func TestRunLocationFailureIsNotFatal(t *testing.T) {
	store := testutil.NewMockObjectStore(
		testutil.WithError(testutil.OpGetBucketLocation, stderrors.New("timeout")),
	)

	report, err := newTestProbe(store, 1).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.DeepArchive)
}

func TestRunRegionOutsideAllowList(t *testing.T) {
	store := testutil.NewMockObjectStore(testutil.WithLocation("cn-north-1"))

	report, err := newTestProbe(store, 1).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cn-north-1", report.Region)
	assert.False(t, report.DeepArchive)
}

func TestRunCancelledCallerStillTearsDown(t *testing.T) {
	store := testutil.NewMockObjectStore()
	p := newTestProbe(store, 5)
	p.opts.Concurrency = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	p.payload = func(uint64) ([]byte, error) {
		once.Do(cancel)
		return []byte("payload"), nil
	}

	report, err := p.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, expectedKeys(5), report.Cleanup.Deleted)
	assert.True(t, report.Cleanup.BucketDeleted)
	assert.False(t, store.BucketExists(report.Bucket))
}

func TestDeepArchiveAvailable(t *testing.T) {
	tests := []struct {
		location string
		expected bool
	}{
		{"", true},
		{"us-east-1", true},
		{"eu-west-1", true},
		{"EU", true},
		{"ap-southeast-2", true},
		{"cn-north-1", false},
		{"us-gov-west-1", false},
		{"moon-base-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeepArchiveAvailable(tt.location))
		})
	}
}

func TestCheckAccess(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		store := testutil.NewMockObjectStore(testutil.WithExistingBuckets("a", "b"))

		buckets, err := CheckAccess(context.Background(), store)
		require.NoError(t, err)
		assert.Len(t, buckets, 2)
	})

	t.Run("denied", func(t *testing.T) {
		store := testutil.NewMockObjectStore(
			testutil.WithError(testutil.OpListBuckets, stderrors.New("AccessDenied: Access Denied")),
		)

		_, err := CheckAccess(context.Background(), store)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeAccessDenied))
		assert.Contains(t, err.Error(), "insufficient permissions to list buckets")
	})

	t.Run("unreachable", func(t *testing.T) {
		store := testutil.NewMockObjectStore(
			testutil.WithError(testutil.OpListBuckets, stderrors.New("dial tcp: connection refused")),
		)

		_, err := CheckAccess(context.Background(), store)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeStorageList))
	})
}

func TestBucketName(t *testing.T) {
	name := BucketName("Lernspark-Probe")

	assert.True(t, strings.HasPrefix(name, "lernspark-probe-"))
	assert.Equal(t, strings.ToLower(name), name)
	assert.NotEqual(t, name, BucketName("Lernspark-Probe"))

	long := BucketName(strings.Repeat("x", 60))
	assert.LessOrEqual(t, len(long), maxBucketName)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestAverageThroughput(t *testing.T) {
	report := &Report{Uploads: []UploadResult{{Throughput: 10}, {Throughput: 30}}}
	assert.InDelta(t, 20.0, report.AverageThroughput(), 0.001)

	assert.Zero(t, (&Report{}).AverageThroughput())
}
