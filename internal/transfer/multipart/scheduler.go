package multipart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/backend"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

const (
	// DefaultConcurrency is the number of parts in flight per file.
	DefaultConcurrency = 3

	// DefaultRetries is the number of extra rounds given to failed parts.
	DefaultRetries = 3
)

// ProgressFunc receives the completed share of a file's parts in [0,100].
// Calls are serialized and never decrease.
type ProgressFunc func(percent float64)

// Scheduler uploads the parts of one session in rounds. Each round sends
// the pending parts with at most Concurrency in flight; parts that fail are
// deferred to the next round until the retry budget is spent.
type Scheduler struct {
	backend     backend.Backend
	concurrency int
	retries     int
	logger      *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithConcurrency sets the number of parts in flight.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRetries sets the number of retry rounds. Zero means a single round.
func WithRetries(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a Scheduler over a backend.
func NewScheduler(b backend.Backend, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		backend:     b,
		concurrency: DefaultConcurrency,
		retries:     DefaultRetries,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run uploads every chunk of body into session and returns one PartResult
// per chunk in completion order. When parts still fail after the last
// round, Run returns ErrPartsExhausted together with the per-part errors.
func (s *Scheduler) Run(
	ctx context.Context,
	session s3types.UploadSession,
	body io.ReaderAt,
	chunks []s3types.FileChunk,
	onProgress ProgressFunc,
) ([]s3types.PartResult, error) {
	total := len(chunks)
	t := &tracker{
		total:      total,
		onProgress: onProgress,
		results:    make([]s3types.PartResult, 0, total),
	}

	pending := chunks
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewObjectError("uploadParts", session.Bucket, session.Key, err)
		}

		failures := s.runRound(ctx, session, body, pending, t)
		if len(failures) == 0 {
			return t.results, nil
		}

		s.logger.DebugContext(ctx, "part upload round finished with failures",
			"key", session.Key,
			"round", round,
			"failed", len(failures),
			"total", total,
		)

		if round > s.retries {
			var merr *multierror.Error
			for _, f := range failures {
				merr = multierror.Append(merr, fmt.Errorf("part %d: %w", f.chunk.PartNumber, f.err))
			}
			return nil, errors.NewObjectError("uploadParts", session.Bucket, session.Key,
				fmt.Errorf("%w after %d rounds: %w", errors.ErrPartsExhausted, round, merr.ErrorOrNil()))
		}

		pending = make([]s3types.FileChunk, 0, len(failures))
		for _, f := range failures {
			pending = append(pending, f.chunk)
		}
	}
}

type partFailure struct {
	chunk s3types.FileChunk
	err   error
}

// runRound uploads chunks with bounded concurrency and returns the failures.
func (s *Scheduler) runRound(
	ctx context.Context,
	session s3types.UploadSession,
	body io.ReaderAt,
	chunks []s3types.FileChunk,
	t *tracker,
) []partFailure {
	var (
		mu       sync.Mutex
		failures []partFailure
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, c := range chunks {
		g.Go(func() error {
			etag, err := s.backend.UploadPart(ctx, &backend.UploadPartInput{
				Session:    session,
				PartNumber: c.PartNumber,
				Body:       io.NewSectionReader(body, c.Start, c.Len()),
				Size:       c.Len(),
			})
			if err != nil {
				mu.Lock()
				failures = append(failures, partFailure{chunk: c, err: err})
				mu.Unlock()
				return nil
			}
			t.done(s3types.PartResult{ETag: etag, PartNumber: c.PartNumber})
			return nil
		})
	}
	_ = g.Wait()

	return failures
}

// tracker records completed parts and reports progress.
type tracker struct {
	mu         sync.Mutex
	total      int
	results    []s3types.PartResult
	onProgress ProgressFunc
}

func (t *tracker) done(part s3types.PartResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.results = append(t.results, part)
	if t.onProgress != nil {
		t.onProgress(Percent(len(t.results), t.total))
	}
}

// Percent returns completed/total as a percentage rounded to two decimals.
func Percent(completed, total int) float64 {
	if total <= 0 {
		return 100
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}
