// Package probe exercises an object storage account: it creates a bucket,
// uploads random payloads in parallel, measures throughput and always tears
// the bucket down again.
package probe

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kyleking/lernspark/internal/config"
	"github.com/kyleking/lernspark/internal/errors"
	"github.com/kyleking/lernspark/internal/logging"
	"github.com/kyleking/lernspark/internal/objectstore"
	"github.com/kyleking/lernspark/internal/workerpool"
)

const (
	mib           = 1024 * 1024
	maxBucketName = 63
)

// Sampler draws uniform integers from an inclusive range.
type Sampler interface {
	IntRange(lo, hi int) int
}

// Options sizes a probe run.
type Options struct {
	BucketPrefix string
	MinUploads   int
	MaxUploads   int
	MinSizeMiB   int
	MaxSizeMiB   int
	Concurrency  int
}

// OptionsFromConfig copies the probe settings.
func OptionsFromConfig(cfg config.ProbeConfig) Options {
	return Options{
		BucketPrefix: cfg.BucketPrefix,
		MinUploads:   cfg.MinUploads,
		MaxUploads:   cfg.MaxUploads,
		MinSizeMiB:   cfg.MinSizeMiB,
		MaxSizeMiB:   cfg.MaxSizeMiB,
		Concurrency:  cfg.Concurrency,
	}
}

// Probe runs the capability check against one client.
type Probe struct {
	client  objectstore.Client
	opts    Options
	sampler Sampler
	logger  *logging.Logger
	payload func(size uint64) ([]byte, error)
}

// New creates a probe. The client must be safe for concurrent use.
func New(client objectstore.Client, opts Options, sampler Sampler, logger *logging.Logger) *Probe {
	if logger == nil {
		logger = logging.Discard()
	}

	return &Probe{
		client:  client,
		opts:    opts,
		sampler: sampler,
		logger:  logger,
		payload: randomPayload,
	}
}

func randomPayload(size uint64) ([]byte, error) {
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		return nil, err
	}

	return data, nil
}

// BucketName returns prefix-<uuid>, lowercased and cut to the S3 limit.
func BucketName(prefix string) string {
	name := strings.ToLower(strings.Trim(prefix, "-") + "-" + uuid.NewString())
	if len(name) > maxBucketName {
		name = strings.TrimRight(name[:maxBucketName], "-")
	}

	return name
}

// ObjectKey encodes the payload size in the key.
func ObjectKey(index, sizeMiB int) string {
	return fmt.Sprintf("probe-%d-%dMiB.bin", index, sizeMiB)
}

// Run creates a bucket, uploads between MinUploads and MaxUploads random
// payloads and then deletes every object and the bucket. Once the bucket
// exists a report is always returned, and the error joins upload and
// cleanup failures.
func (p *Probe) Run(ctx context.Context) (report *Report, err error) {
	start := time.Now()
	bucket := BucketName(p.opts.BucketPrefix)
	logger := p.logger.WithField("bucket", bucket)

	created, err := p.client.CreateBucket(ctx, bucket)
	if err != nil {
		return nil, errors.ClassifyStorage(err, errors.ErrTypeStorageCreate, "create bucket "+bucket).
			WithSuggestion("Run 'lernspark check' to verify the credentials can reach the account")
	}

	report = &Report{
		Bucket:              bucket,
		Location:            created.Location,
		RequestID:           created.RequestID,
		PerObjectThroughput: make(map[string]float64),
	}

	logger.WithField("request_id", created.RequestID).Infof("Created bucket at %s", created.Location)

	// Only this goroutine appends to keys. The deferred cleanup reads the
	// slice when it runs, after the pool has joined every upload.
	var keys []string

	defer func() {
		if r := recover(); r != nil {
			report.UploadErr = stderrors.Join(report.UploadErr,
				errors.Newf(errors.ErrTypeStorageJoin, "probe orchestration panicked: %v", r))
		}

		report.ObjectKeys = keys
		report.Cleanup = p.cleanup(context.WithoutCancel(ctx), logger, bucket, keys)
		report.Elapsed = time.Since(start)

		err = stderrors.Join(report.UploadErr, report.Cleanup.Err)
	}()

	region, locErr := p.client.GetBucketLocation(ctx, bucket)
	if locErr != nil {
		logger.WithError(locErr).Warn("Could not read bucket location, assuming no deep archive")
	} else {
		report.Region = region
		report.DeepArchive = DeepArchiveAvailable(region)
	}

	count := p.sampler.IntRange(p.opts.MinUploads, p.opts.MaxUploads)
	tasks := make([]workerpool.Task[UploadResult], 0, count)

	for i := range count {
		sizeMiB := p.sampler.IntRange(p.opts.MinSizeMiB, p.opts.MaxSizeMiB)
		task := UploadTask{Key: ObjectKey(i, sizeMiB), SizeBytes: uint64(sizeMiB) * mib}

		keys = append(keys, task.Key)
		tasks = append(tasks, workerpool.Task[UploadResult]{
			ID: task.Key,
			Func: func(ctx context.Context) (UploadResult, error) {
				return p.upload(ctx, bucket, task)
			},
		})
	}

	logger.Infof("Uploading %d objects", len(tasks))

	results := workerpool.NewWorkerPool[UploadResult](p.opts.Concurrency).Execute(ctx, tasks)

	var uploadErrs []error

	for _, r := range results {
		if r.Error != nil {
			uploadErrs = append(uploadErrs, classifyTaskError(r.ID, r.Error))
			continue
		}

		report.Uploads = append(report.Uploads, r.Data)
		report.TotalBytes += r.Data.SizeBytes
		report.PerObjectThroughput[r.ID] = r.Data.Throughput
	}

	report.UploadErr = stderrors.Join(uploadErrs...)

	return report, nil
}

func classifyTaskError(key string, err error) error {
	var panicErr *workerpool.PanicError
	if stderrors.As(err, &panicErr) {
		return errors.Wrapf(err, errors.ErrTypeStorageJoin, "upload task %s failed to join", key)
	}

	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return err
	}

	// cancelled before the task started
	return errors.ClassifyStorage(err, errors.ErrTypeStorageUpload, "upload "+key)
}

func (p *Probe) upload(ctx context.Context, bucket string, task UploadTask) (UploadResult, error) {
	genStart := time.Now()

	data, err := p.payload(task.SizeBytes)
	if err != nil {
		return UploadResult{}, errors.Wrapf(err, errors.ErrTypeInternal, "generate payload for %s", task.Key)
	}

	generation := time.Since(genStart)
	uploadStart := time.Now()

	if err := p.client.PutObject(ctx, bucket, task.Key, data); err != nil {
		return UploadResult{}, errors.ClassifyStorage(err, errors.ErrTypeStorageUpload, "upload "+task.Key)
	}

	upload := time.Since(uploadStart)

	return UploadResult{
		Key:        task.Key,
		SizeBytes:  task.SizeBytes,
		Generation: generation,
		Upload:     upload,
		Throughput: throughput(task.SizeBytes, upload),
	}, nil
}

func throughput(size uint64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}

	return float64(size) / d.Seconds()
}

// cleanup deletes keys in order and stops at the first failure. The bucket
// is only deleted once every object is gone.
func (p *Probe) cleanup(ctx context.Context, logger *logging.Logger, bucket string, keys []string) CleanupReport {
	report := CleanupReport{Attempted: keys}

	for _, key := range keys {
		if err := p.client.DeleteObject(ctx, bucket, key); err != nil {
			report.Err = errors.Wrapf(err, errors.ErrTypeStorageDelete, "delete object %s", key).
				WithSuggestion(fmt.Sprintf("Remove bucket %s by hand", bucket))
			logger.ErrorWithErr("Cleanup stopped", err)

			return report
		}

		report.Deleted = append(report.Deleted, key)
	}

	if err := p.client.DeleteBucket(ctx, bucket); err != nil {
		report.Err = errors.Wrapf(err, errors.ErrTypeStorageDelete, "delete bucket %s", bucket)
		logger.ErrorWithErr("Bucket deletion failed", err)

		return report
	}

	report.BucketDeleted = true
	logger.Infof("Deleted %d objects and the bucket", len(report.Deleted))

	return report
}
