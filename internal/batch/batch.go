// Package batch drives the upload of a list of files.
//
// A batch runs one initial round over every file, then up to BatchRetries
// extra rounds over the files that failed in the previous round. Files that
// still fail are reported in BatchResult.Failed; the batch itself only
// returns an error when the context is cancelled.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/semaphore"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/keys"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// DefaultRetries is the number of extra rounds given to failed files.
const DefaultRetries = 3

// FileUploader uploads one file.
type FileUploader interface {
	Upload(ctx context.Context, file s3types.File, cfg *upload.Config) (*s3types.Result, error)
}

// Config controls a batch.
type Config struct {
	Bucket         string
	ChunkSize      int64
	ChunkCount     int
	PartRetries    int
	AbortOnFailure bool

	// BatchRetries is the number of extra rounds; negative means DefaultRetries
	BatchRetries int

	// FileConcurrency is the number of files uploaded at once; 0 or 1 is sequential
	FileConcurrency int

	// KeyStrategy derives destination keys; nil means content-addressed keys
	KeyStrategy s3types.KeyStrategy
}

// Orchestrator runs batches against a FileUploader.
type Orchestrator struct {
	uploader FileUploader
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(uploader FileUploader, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		uploader: uploader,
		logger:   logger,
	}
}

// task is the per-file state carried across rounds.
type task struct {
	index    int
	file     s3types.File
	key      string
	result   *s3types.Result
	err      error
	attempts int
}

// Run uploads files and returns the completed files in input order together
// with the files that failed every round.
func (o *Orchestrator) Run(ctx context.Context, files []s3types.File, cfg Config) (*s3types.BatchResult, error) {
	start := time.Now()

	strategy := cfg.KeyStrategy
	if strategy == nil {
		strategy = keys.NewContentStrategy()
	}
	retries := cfg.BatchRetries
	if retries < 0 {
		retries = DefaultRetries
	}

	tasks := make([]*task, len(files))
	var totalSize int64
	for i, f := range files {
		tasks[i] = &task{index: i, file: f, key: strategy.Key(f.Identity())}
		totalSize += f.Size
	}

	o.logger.InfoContext(ctx, "starting batch upload",
		"bucket", cfg.Bucket,
		"files", len(files),
		"size", humanize.IBytes(uint64(max(totalSize, 0))),
	)

	result := &s3types.BatchResult{}
	pending := tasks
	var runErr error
	for round := 0; round <= retries && len(pending) > 0; round++ {
		if err := ctx.Err(); err != nil {
			for _, t := range pending {
				if t.err == nil {
					t.err = err
				}
			}
			runErr = errors.NewError("upload", err).WithBucket(cfg.Bucket)
			break
		}

		result.Rounds++
		pending = o.runRound(ctx, pending, &cfg)

		if len(pending) > 0 {
			o.logger.DebugContext(ctx, "batch round finished with failures",
				"bucket", cfg.Bucket,
				"round", round,
				"failed", len(pending),
			)
		}
	}

	for _, t := range tasks {
		if t.result != nil {
			result.Completed = append(result.Completed, *t.result)
			continue
		}
		result.Failed = append(result.Failed, s3types.FailedFile{
			File:     t.file.Identity(),
			Key:      t.key,
			Err:      t.err,
			Attempts: t.attempts,
		})
		o.logger.WarnContext(ctx, "file upload failed",
			"bucket", cfg.Bucket,
			"key", t.key,
			"file", t.file.Name,
			"attempts", t.attempts,
			"error", t.err,
		)
	}
	result.Duration = time.Since(start)

	o.logger.InfoContext(ctx, "batch upload finished",
		"bucket", cfg.Bucket,
		"completed", len(result.Completed),
		"failed", len(result.Failed),
		"rounds", result.Rounds,
		"duration", result.Duration,
	)

	return result, runErr
}

// runRound uploads every pending task once and returns the tasks that failed.
func (o *Orchestrator) runRound(ctx context.Context, pending []*task, cfg *Config) []*task {
	limit := int64(max(cfg.FileConcurrency, 1))
	sem := semaphore.NewWeighted(limit)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	failed := make([]bool, len(pending))

	for i, t := range pending {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(pending); j++ {
				failed[j] = true
				pending[j].err = err
			}
			break
		}

		wg.Add(1)
		go func() {
			defer func() {
				sem.Release(1)
				wg.Done()
			}()

			t.attempts++
			res, err := o.uploader.Upload(ctx, t.file, &upload.Config{
				Bucket:         cfg.Bucket,
				Key:            t.key,
				ChunkSize:      cfg.ChunkSize,
				ChunkCount:     cfg.ChunkCount,
				PartRetries:    cfg.PartRetries,
				AbortOnFailure: cfg.AbortOnFailure,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.err = err
				failed[i] = true
				return
			}
			t.result = res
			t.err = nil
		}()
	}
	wg.Wait()

	var next []*task
	for i, t := range pending {
		if failed[i] {
			next = append(next, t)
		}
	}
	return next
}
