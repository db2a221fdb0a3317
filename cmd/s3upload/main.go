// Command s3upload uploads local files to an S3-compatible bucket.
//
// Usage:
//
//	s3upload --bucket uploads [flags] FILE...
//
// Every flag can also be set through an S3UPLOAD_ environment variable
// (S3UPLOAD_BUCKET, S3UPLOAD_CHUNK_SIZE, ...) or a YAML config file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		stop()
		os.Exit(1)
	}
}

// formatError prefixes err with its classification.
func formatError(err error) string {
	code := s3errors.CodeOf(err)
	if code == s3errors.CodeUnknown || code == "" {
		return fmt.Sprintf("error: %v", err)
	}
	if code.Retryable() {
		return fmt.Sprintf("error [%s, retryable]: %v", code, err)
	}
	return fmt.Sprintf("error [%s]: %v", code, err)
}
