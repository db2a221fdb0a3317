// Package probe checks whether an object already exists at its destination key.
// A probe never fails: any error, including "not found", means "absent".
package probe

import (
	"context"
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/backend"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// Prober issues existence probes against a backend.
type Prober struct {
	backend backend.Backend
	logger  *slog.Logger
}

// New creates a Prober.
func New(b backend.Backend, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Prober{
		backend: b,
		logger:  logger,
	}
}

// Probe returns the Result of an existing object at bucket/key.
// The second return value is false when the object is absent or the probe failed.
func (p *Prober) Probe(ctx context.Context, file s3types.FileIdentity, bucket, key string) (*s3types.Result, bool) {
	etag, err := p.backend.HeadObject(ctx, bucket, key)
	if err != nil {
		if !errors.IsNotFound(err) {
			p.logger.DebugContext(ctx, "existence probe failed, treating as absent",
				"bucket", bucket,
				"key", key,
				"error", err,
			)
		}
		return nil, false
	}

	p.logger.DebugContext(ctx, "object already exists", "bucket", bucket, "key", key, "etag", etag)
	return s3types.NewResult(file, key, etag, s3types.StatusComplete), true
}
