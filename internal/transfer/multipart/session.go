// Package multipart handles multipart upload sessions and the concurrent,
// round-based upload of their parts.
package multipart

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/backend"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// Session opens, completes and aborts multipart uploads.
type Session struct {
	backend backend.Backend
	logger  *slog.Logger
}

// NewSession creates a Session over a backend.
func NewSession(b backend.Backend, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		backend: b,
		logger:  logger,
	}
}

// Create opens a session for the object described by in.
func (s *Session) Create(ctx context.Context, in *backend.ObjectInput) (s3types.UploadSession, error) {
	session, err := s.backend.CreateMultipartSession(ctx, in)
	if err != nil {
		return s3types.UploadSession{}, errors.NewObjectError("createSession", in.Bucket, in.Key,
			fmt.Errorf("%w: %w", errors.ErrSessionCreate, err))
	}
	if session.ID == "" {
		return s3types.UploadSession{}, errors.NewObjectError("createSession", in.Bucket, in.Key,
			fmt.Errorf("%w: empty upload id", errors.ErrSessionCreate))
	}

	s.logger.DebugContext(ctx, "multipart session created",
		"bucket", in.Bucket,
		"key", in.Key,
		"upload_id", session.ID,
	)
	return session, nil
}

// Complete assembles the parts in ascending part number order and returns
// the entity tag of the assembled object. parts is not modified.
func (s *Session) Complete(
	ctx context.Context,
	session s3types.UploadSession,
	parts []s3types.PartResult,
) (string, error) {
	sorted := SortParts(parts)

	etag, err := s.backend.CompleteMultipartSession(ctx, session, sorted)
	if err != nil {
		return "", errors.NewObjectError("completeSession", session.Bucket, session.Key,
			fmt.Errorf("%w: %w", errors.ErrSessionComplete, err))
	}

	s.logger.DebugContext(ctx, "multipart session completed",
		"bucket", session.Bucket,
		"key", session.Key,
		"parts", len(sorted),
	)
	return etag, nil
}

// Abort discards the session. Failures are logged and returned.
func (s *Session) Abort(ctx context.Context, session s3types.UploadSession) error {
	if err := s.backend.AbortMultipartSession(ctx, session); err != nil {
		s.logger.WarnContext(ctx, "failed to abort multipart session",
			"bucket", session.Bucket,
			"key", session.Key,
			"upload_id", session.ID,
			"error", err,
		)
		return err
	}
	return nil
}

// SortParts returns a copy of parts ordered by part number.
func SortParts(parts []s3types.PartResult) []s3types.PartResult {
	sorted := make([]s3types.PartResult, len(parts))
	copy(sorted, parts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PartNumber < sorted[j].PartNumber
	})
	return sorted
}
