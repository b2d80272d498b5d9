package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/kyleking/lernspark/internal/objectstore"
)

// Operation names used as keys for error injection and call counts.
const (
	OpCreateBucket      = "CreateBucket"
	OpDeleteBucket      = "DeleteBucket"
	OpPutObject         = "PutObject"
	OpDeleteObject      = "DeleteObject"
	OpGetBucketLocation = "GetBucketLocation"
	OpListBuckets       = "ListBuckets"
)

// Call is one recorded client call.
type Call struct {
	Op     string
	Bucket string
	Key    string
}

// MockObjectStore implements objectstore.Client in memory with error injection
type MockObjectStore struct {
	mu sync.RWMutex

	buckets    map[string]map[string]int
	location   string
	requestID  string
	errors     map[string]error
	keyErrors  map[string]error
	panicKeys  map[string]bool
	callCounts map[string]int
	calls      []Call
}

// MockOption is a functional option for configuring MockObjectStore
type MockOption func(*MockObjectStore)

// WithLocation sets what GetBucketLocation and CreateBucket report
func WithLocation(location string) MockOption {
	return func(m *MockObjectStore) {
		m.location = location
	}
}

// WithRequestID sets the request id CreateBucket returns
func WithRequestID(id string) MockOption {
	return func(m *MockObjectStore) {
		m.requestID = id
	}
}

// WithExistingBuckets pre-creates empty buckets
func WithExistingBuckets(names ...string) MockOption {
	return func(m *MockObjectStore) {
		for _, name := range names {
			m.buckets[name] = make(map[string]int)
		}
	}
}

// WithError fails every call of an operation
func WithError(op string, err error) MockOption {
	return func(m *MockObjectStore) {
		m.errors[op] = err
	}
}

// WithKeyError fails PutObject and DeleteObject for one key
func WithKeyError(key string, err error) MockOption {
	return func(m *MockObjectStore) {
		m.keyErrors[key] = err
	}
}

// WithPanicOnPut makes PutObject panic for one key
func WithPanicOnPut(key string) MockOption {
	return func(m *MockObjectStore) {
		m.panicKeys[key] = true
	}
}

// NewMockObjectStore creates a new mock object store with the given options
func NewMockObjectStore(opts ...MockOption) *MockObjectStore {
	mock := &MockObjectStore{
		buckets:    make(map[string]map[string]int),
		errors:     make(map[string]error),
		keyErrors:  make(map[string]error),
		panicKeys:  make(map[string]bool),
		callCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

func (m *MockObjectStore) record(op, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts[op]++
	m.calls = append(m.calls, Call{Op: op, Bucket: bucket, Key: key})

	return m.errors[op]
}

func (m *MockObjectStore) CreateBucket(ctx context.Context, bucket string) (*objectstore.CreateBucketOutput, error) {
	if err := m.record(OpCreateBucket, bucket, ""); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.buckets[bucket] = make(map[string]int)

	return &objectstore.CreateBucketOutput{Location: m.location, RequestID: m.requestID}, nil
}

func (m *MockObjectStore) DeleteBucket(_ context.Context, bucket string) error {
	if err := m.record(OpDeleteBucket, bucket, ""); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.buckets[bucket]) > 0 {
		return &bucketNotEmptyError{bucket: bucket}
	}

	delete(m.buckets, bucket)

	return nil
}

func (m *MockObjectStore) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	if err := m.record(OpPutObject, bucket, key); err != nil {
		return err
	}

	m.mu.RLock()
	shouldPanic := m.panicKeys[key]
	keyErr := m.keyErrors[key]
	m.mu.RUnlock()

	if shouldPanic {
		panic("mock object store: put " + key)
	}

	if keyErr != nil {
		return keyErr
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		return errNoSuchBucket
	}

	objects[key] = len(data)

	return nil
}

func (m *MockObjectStore) DeleteObject(_ context.Context, bucket, key string) error {
	if err := m.record(OpDeleteObject, bucket, key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, exists := m.keyErrors[key]; exists {
		return err
	}

	// deleting a missing key succeeds, as on S3
	delete(m.buckets[bucket], key)

	return nil
}

func (m *MockObjectStore) GetBucketLocation(_ context.Context, bucket string) (string, error) {
	if err := m.record(OpGetBucketLocation, bucket, ""); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.location, nil
}

func (m *MockObjectStore) ListBuckets(_ context.Context) ([]objectstore.BucketInfo, error) {
	if err := m.record(OpListBuckets, "", ""); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]objectstore.BucketInfo, 0, len(m.buckets))
	for name := range m.buckets {
		out = append(out, objectstore.BucketInfo{Name: name})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

// GetCallCount returns the number of times an operation was called
func (m *MockObjectStore) GetCallCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.callCounts[op]
}

// Calls returns every recorded call in order
func (m *MockObjectStore) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]Call(nil), m.calls...)
}

// Objects returns the sizes of the objects currently stored in bucket
func (m *MockObjectStore) Objects(bucket string) map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int, len(m.buckets[bucket]))
	for k, v := range m.buckets[bucket] {
		out[k] = v
	}

	return out
}

// BucketExists reports whether the bucket is still present
func (m *MockObjectStore) BucketExists(bucket string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.buckets[bucket]

	return ok
}

var errNoSuchBucket = errors.New("NoSuchBucket: The specified bucket does not exist")

type bucketNotEmptyError struct {
	bucket string
}

func (e *bucketNotEmptyError) Error() string {
	return "BucketNotEmpty: The bucket you tried to delete is not empty: " + e.bucket
}

var _ objectstore.Client = (*MockObjectStore)(nil)
