package probe

import (
	"time"

	"github.com/samber/lo"
)

// UploadTask is one payload to upload.
type UploadTask struct {
	Key       string
	SizeBytes uint64
}

// UploadResult is the timing of one finished upload.
type UploadResult struct {
	Key        string
	SizeBytes  uint64
	Generation time.Duration
	Upload     time.Duration
	Throughput float64 // bytes per second of the upload alone
}

// CleanupReport describes the teardown that ran after every upload joined.
type CleanupReport struct {
	Attempted     []string
	Deleted       []string
	BucketDeleted bool
	Err           error
}

// Report is the outcome of one probe run.
type Report struct {
	Bucket              string
	Location            string
	RequestID           string
	Region              string
	DeepArchive         bool
	ObjectKeys          []string
	Uploads             []UploadResult
	TotalBytes          uint64
	Elapsed             time.Duration
	PerObjectThroughput map[string]float64
	UploadErr           error
	Cleanup             CleanupReport
}

// AverageThroughput is the mean per-object throughput in bytes per second.
func (r *Report) AverageThroughput() float64 {
	if len(r.Uploads) == 0 {
		return 0
	}

	return lo.SumBy(r.Uploads, func(u UploadResult) float64 { return u.Throughput }) / float64(len(r.Uploads))
}

// Succeeded reports whether every upload and the whole teardown worked.
func (r *Report) Succeeded() bool {
	return r.UploadErr == nil && r.Cleanup.Err == nil && r.Cleanup.BucketDeleted
}
