// Package upload handles the upload of a single file.
// This includes simple single-request uploads and chunked multipart uploads.
//
// Files at or below the chunk size are sent with one PutObject; larger files
// go through a multipart session whose parts are scheduled in retry rounds.
// Both paths probe the destination key first and skip the write on a hit.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/backend"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/keys"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/operations/probe"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/transfer/chunk"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/transfer/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// Emitter delivers progress and result events for a file.
type Emitter interface {
	Emit(file s3types.FileIdentity, percent float64, result *s3types.Result)
}

// Config controls the upload of one file.
type Config struct {
	Bucket string
	Key    string

	// ChunkSize is the part size and the simple-upload threshold
	ChunkSize int64

	// ChunkCount is the number of parts in flight
	ChunkCount int

	// PartRetries is the number of extra rounds given to failed parts
	PartRetries int

	// AbortOnFailure discards the multipart session when the upload fails
	AbortOnFailure bool
}

func (c *Config) chunkSize() int64 {
	if c.ChunkSize <= 0 {
		return chunk.DefaultSize
	}
	return c.ChunkSize
}

// Uploader uploads single files to a backend.
type Uploader struct {
	backend backend.Backend
	prober  *probe.Prober
	session *multipart.Session
	emitter Emitter
	logger  *slog.Logger
}

// New creates a new Uploader instance.
func New(b backend.Backend, emitter Emitter, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Uploader{
		backend: b,
		prober:  probe.New(b, logger),
		session: multipart.NewSession(b, logger),
		emitter: emitter,
		logger:  logger,
	}
}

// Upload uploads file to cfg.Bucket/cfg.Key.
// It uses a simple upload when the file fits in one chunk and a multipart
// upload otherwise.
func (u *Uploader) Upload(ctx context.Context, file s3types.File, cfg *Config) (*s3types.Result, error) {
	if file.Size <= cfg.chunkSize() {
		return u.Simple(ctx, file, cfg)
	}
	return u.Multipart(ctx, file, cfg)
}

// Simple uploads the whole file with one request.
func (u *Uploader) Simple(ctx context.Context, file s3types.File, cfg *Config) (*s3types.Result, error) {
	id := file.Identity()
	u.emit(id, 0, nil)

	if existing, ok := u.prober.Probe(ctx, id, cfg.Bucket, cfg.Key); ok {
		u.emit(id, 100, existing)
		return existing, nil
	}

	u.logger.DebugContext(ctx, "uploading object",
		"bucket", cfg.Bucket,
		"key", cfg.Key,
		"size", humanize.IBytes(uint64(max(file.Size, 0))),
	)

	etag, err := u.backend.PutObject(ctx, &backend.PutObjectInput{
		ObjectInput: objectInput(id, cfg),
		Body:        body(file, 0, file.Size),
		Size:        file.Size,
	})
	if err != nil {
		u.emit(id, 0, s3types.NewResult(id, "", "", s3types.StatusAbnormal))
		return nil, errors.NewObjectError("simpleUpload", cfg.Bucket, cfg.Key,
			fmt.Errorf("%w: %w", errors.ErrUploadFailed, err))
	}

	res := s3types.NewResult(id, cfg.Key, etag, s3types.StatusComplete)
	u.emit(id, 100, res)
	return res, nil
}

// Multipart uploads the file in parts through a multipart session.
// The session is created before the file is chunked; a failure to create
// it ends the attempt without uploading any part.
func (u *Uploader) Multipart(ctx context.Context, file s3types.File, cfg *Config) (*s3types.Result, error) {
	id := file.Identity()
	u.emit(id, 0, nil)

	if existing, ok := u.prober.Probe(ctx, id, cfg.Bucket, cfg.Key); ok {
		u.emit(id, 100, existing)
		return existing, nil
	}

	in := objectInput(id, cfg)
	session, err := u.session.Create(ctx, &in)
	if err != nil {
		u.emit(id, 0, s3types.NewResult(id, "", "", s3types.StatusAbnormal))
		return nil, err
	}

	chunks := chunk.Plan(file.Size, cfg.chunkSize())
	u.logger.DebugContext(ctx, "uploading object in parts",
		"bucket", cfg.Bucket,
		"key", cfg.Key,
		"size", humanize.IBytes(uint64(file.Size)),
		"parts", len(chunks),
		"upload_id", session.ID,
	)

	var reached float64
	scheduler := multipart.NewScheduler(u.backend,
		multipart.WithConcurrency(cfg.ChunkCount),
		multipart.WithRetries(cfg.PartRetries),
		multipart.WithLogger(u.logger),
	)
	parts, err := scheduler.Run(ctx, session, file.Body, chunks, func(percent float64) {
		reached = percent
		u.emit(id, percent, nil)
	})
	if err != nil {
		return nil, u.fail(ctx, id, session, reached, cfg.AbortOnFailure, err)
	}

	etag, err := u.session.Complete(ctx, session, parts)
	if err != nil {
		return nil, u.fail(ctx, id, session, reached, cfg.AbortOnFailure, err)
	}

	res := s3types.NewResult(id, cfg.Key, etag, s3types.StatusComplete)
	u.emit(id, 100, res)
	return res, nil
}

// fail reports the abnormal outcome at the last progress reached and, when
// requested, discards the session.
func (u *Uploader) fail(
	ctx context.Context,
	id s3types.FileIdentity,
	session s3types.UploadSession,
	reached float64,
	abort bool,
	err error,
) error {
	u.emit(id, reached, s3types.NewResult(id, "", "", s3types.StatusAbnormal))
	if abort {
		// Abort even when ctx is cancelled
		_ = u.session.Abort(context.WithoutCancel(ctx), session)
	}
	return err
}

func (u *Uploader) emit(id s3types.FileIdentity, percent float64, result *s3types.Result) {
	if u.emitter != nil {
		u.emitter.Emit(id, percent, result)
	}
}

func objectInput(id s3types.FileIdentity, cfg *Config) backend.ObjectInput {
	return backend.ObjectInput{
		Bucket:             cfg.Bucket,
		Key:                cfg.Key,
		ContentType:        id.Type,
		ContentDisposition: keys.ContentDisposition(id.Name),
		Metadata:           keys.Metadata(id),
	}
}

// body returns a reader over [off, off+n) of the file content.
func body(file s3types.File, off, n int64) io.Reader {
	if file.Body == nil || n <= 0 {
		return strings.NewReader("")
	}
	return io.NewSectionReader(file.Body, off, n)
}
