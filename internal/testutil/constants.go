// Package testutil provides common constants and utilities for tests
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// ShortTestTimeout is a shorter timeout for quick operations
	ShortTestTimeout = 5 * time.Second

	// TestMinRows and TestMaxRows bound generated tables in tests
	TestMinRows = 20
	TestMaxRows = 40

	// TestMinUploads and TestMaxUploads bound probe runs in tests
	TestMinUploads = 3
	TestMaxUploads = 6

	// TestSeed makes generated values reproducible
	TestSeed = 42
)

// Common test strings
const (
	// TestBucketPrefix is the bucket prefix probe tests use
	TestBucketPrefix = "lernspark-test"

	// TestRequestID is what the mock store returns on CreateBucket
	TestRequestID = "REQ123"
)
