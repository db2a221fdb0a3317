package s3upload

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/go-multierror"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/batch"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/progress"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// DefaultContentType is used when content type detection fails.
const DefaultContentType = "application/octet-stream"

// Upload uploads files and returns the outcome of every file.
//
// The batch is validated first; a validation failure returns an
// *errors.ValidationError before any request is sent. Each file is then
// uploaded with a simple upload when it fits in one chunk, or in parts
// otherwise. Files already present at their key are not uploaded again.
// Files that fail are retried in later rounds; files that fail every round
// are listed in BatchResult.Failed and do not make Upload return an error.
//
// Returns:
//   - *BatchResult: the completed files in input order and the failed files
//   - error: a validation error, or the context error when ctx is cancelled
//
// Example:
//
//	result, err := client.Upload(ctx, files,
//	    s3upload.WithBucket("my-bucket"),
//	    s3upload.WithMaxSize(100),
//	    s3upload.WithAccept("image/*"),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := result.Err(); err != nil {
//	    log.Printf("some files failed: %v", err)
//	}
func (c *Client) Upload(
	ctx context.Context,
	files []s3types.File,
	opts ...s3types.UploadOption,
) (*s3types.BatchResult, error) {
	cfg := &s3types.UploadOptionConfig{
		Bucket:          c.config.DefaultBucket,
		ChunkSize:       c.config.ChunkSize,
		ChunkCount:      c.config.ChunkCount,
		PartRetries:     c.config.PartRetries,
		BatchRetries:    c.config.BatchRetries,
		FileConcurrency: c.config.FileConcurrency,
		KeyStrategy:     c.config.KeyStrategy,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validation.ValidateChunking(cfg.ChunkSize, cfg.ChunkCount); err != nil {
		return nil, err
	}
	if err := validation.Validate(files, validation.Rules{
		Bucket:     cfg.Bucket,
		Limit:      cfg.Limit,
		MaxSize:    cfg.MaxSize,
		Accept:     cfg.Accept,
		AcceptFunc: cfg.AcceptFunc,
	}); err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return &s3types.BatchResult{}, nil
	}

	// Client observers first, then the observers of this call
	events := progress.New(c.logger)
	events.Subscribe(s3types.ProgressFunc(c.progress.Emit))
	for _, o := range cfg.Observers {
		events.Subscribe(o)
	}

	orchestrator := batch.New(upload.New(c.backend, events, c.logger), c.logger)
	return orchestrator.Run(ctx, files, batch.Config{
		Bucket:          cfg.Bucket,
		ChunkSize:       cfg.ChunkSize,
		ChunkCount:      cfg.ChunkCount,
		PartRetries:     cfg.PartRetries,
		AbortOnFailure:  cfg.AbortOnFailure,
		BatchRetries:    cfg.BatchRetries,
		FileConcurrency: cfg.FileConcurrency,
		KeyStrategy:     cfg.KeyStrategy,
	})
}

// OpenFile opens a file on the client filesystem for upload.
// The returned closer releases the file and must be called once the upload
// has finished.
func (c *Client) OpenFile(path string) (s3types.File, io.Closer, error) {
	if path == "" {
		return s3types.File{}, nil, errors.NewError("openFile", errors.ErrInvalidInput).
			WithMessage("path cannot be empty")
	}

	fs := c.filesystem()
	info, err := fs.Stat(path)
	if err != nil {
		return s3types.File{}, nil, errors.NewError("openFile", err).WithKey(path)
	}
	if info.IsDir() {
		return s3types.File{}, nil, errors.NewError("openFile", errors.ErrInvalidInput).
			WithKey(path).
			WithMessage("path points to a directory, not a file")
	}

	f, err := fs.Open(path)
	if err != nil {
		return s3types.File{}, nil, errors.NewError("openFile", err).WithKey(path)
	}

	return s3types.File{
		Name:         info.Name(),
		Size:         info.Size(),
		Type:         detectContentType(f, path),
		LastModified: info.ModTime().UnixMilli(),
		Body:         f,
	}, f, nil
}

// UploadFiles opens every path on the client filesystem and uploads them as
// one batch.
func (c *Client) UploadFiles(
	ctx context.Context,
	paths []string,
	opts ...s3types.UploadOption,
) (*s3types.BatchResult, error) {
	files := make([]s3types.File, 0, len(paths))
	closers := make([]io.Closer, 0, len(paths))
	defer func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}()

	var merr *multierror.Error
	for _, p := range paths {
		f, closer, err := c.OpenFile(p)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		files = append(files, f)
		closers = append(closers, closer)
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	return c.Upload(ctx, files, opts...)
}

// UploadDir uploads every file under dir on the client filesystem that
// matches the WithInclude and WithExclude patterns, as one batch.
func (c *Client) UploadDir(
	ctx context.Context,
	dir string,
	opts ...s3types.UploadOption,
) (*s3types.BatchResult, error) {
	cfg := &s3types.UploadOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	paths, err := scanner.Scan(ctx, c.filesystem(), dir, scanner.Rules{
		Include: cfg.Include,
		Exclude: cfg.Exclude,
		Hidden:  cfg.Hidden,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("scanned directory", "dir", dir, "files", len(paths))

	return c.UploadFiles(ctx, paths, opts...)
}

// detectContentType determines the content type with mimetype, falling back
// to extension-based lookup when the content is not recognized.
func detectContentType(r io.ReaderAt, path string) string {
	mt, err := mimetype.DetectReader(io.NewSectionReader(r, 0, 3072))
	if err == nil && mt != nil && !mt.Is(DefaultContentType) {
		return mt.String()
	}
	return detectContentTypeFromExtension(path)
}

// detectContentTypeFromExtension detects content type from file extension
func detectContentTypeFromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}

	return DefaultContentType
}
