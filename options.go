// Package s3upload provides functional options for configuring the client and
// individual uploads. Client options set defaults; upload options override
// them for one call.
package s3upload

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/keys"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// WithRegion sets the AWS region.
// If not specified, uses the region from the credential chain.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom endpoint URL.
// This is used for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted style.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithMaxRetries sets the maximum number of SDK attempts per request.
// Default is 3.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the timeout of individual HTTP requests.
// Default is no timeout. Ignored when WithHTTPClient is used.
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithAWSConfig provides a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithCredentials sets static credentials instead of the default credential chain.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
		c.SessionToken = sessionToken
	}
}

// WithPresignedParts uploads parts by PUTting them to presigned URLs.
// A non-positive expiry keeps the default of five minutes.
func WithPresignedParts(expiry time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.PresignedParts = true
		c.PresignExpiry = expiry
	}
}

// WithMinioBackend uploads through the MinIO client instead of the AWS SDK.
// The endpoint set with WithEndpoint is required.
func WithMinioBackend() s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MinioBackend = true
	}
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.HTTPClient = client
	}
}

// WithDefaultBucket sets the bucket used when an upload does not name one.
func WithDefaultBucket(bucket string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.DefaultBucket = bucket
	}
}

// WithDefaultChunkSize sets the default part size and simple-upload threshold.
// Default is 5MB.
func WithDefaultChunkSize(size int64) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ChunkSize = size
	}
}

// WithDefaultChunkCount sets the default number of parts in flight per file.
// Default is 4.
func WithDefaultChunkCount(count int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ChunkCount = count
	}
}

// WithDefaultPartRetries sets the default number of extra rounds for failed parts.
func WithDefaultPartRetries(retries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if retries >= 0 {
			c.PartRetries = retries
		}
	}
}

// WithDefaultBatchRetries sets the default number of extra rounds for failed files.
func WithDefaultBatchRetries(retries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if retries >= 0 {
			c.BatchRetries = retries
		}
	}
}

// WithDefaultFileConcurrency sets how many files are uploaded at once.
// Default is 1, which uploads files sequentially.
func WithDefaultFileConcurrency(n int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if n > 0 {
			c.FileConcurrency = n
		}
	}
}

// WithDefaultKeyStrategy sets how destination keys are derived.
func WithDefaultKeyStrategy(strategy s3types.KeyStrategy) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.KeyStrategy = strategy
	}
}

// WithLogger sets the logger used by the client.
// If not specified, log output is discarded.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithFilesystem sets the filesystem used by OpenFile.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem billy.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithBucket sets the destination bucket of an upload.
func WithBucket(bucket string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.Bucket = bucket
	}
}

// WithChunkSize sets the part size and simple-upload threshold of an upload.
func WithChunkSize(size int64) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.ChunkSize = size
	}
}

// WithChunkCount sets the number of parts in flight per file.
func WithChunkCount(count int) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.ChunkCount = count
	}
}

// WithPartRetries sets the number of extra rounds for failed parts.
func WithPartRetries(retries int) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if retries >= 0 {
			c.PartRetries = retries
		}
	}
}

// WithBatchRetries sets the number of extra rounds for failed files.
func WithBatchRetries(retries int) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if retries >= 0 {
			c.BatchRetries = retries
		}
	}
}

// WithFileConcurrency sets how many files are uploaded at once.
// The per-file part concurrency still applies to each file.
func WithFileConcurrency(n int) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if n > 0 {
			c.FileConcurrency = n
		}
	}
}

// WithKeyStrategy sets how destination keys are derived.
func WithKeyStrategy(strategy s3types.KeyStrategy) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.KeyStrategy = strategy
	}
}

// WithKeyPrefix places content-addressed keys under prefix.
func WithKeyPrefix(prefix string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.KeyStrategy = keys.NewPrefixStrategy(prefix, c.KeyStrategy)
	}
}

// OnProgress registers a function observer for one upload.
func OnProgress(fn func(file s3types.FileIdentity, percent float64, result *s3types.Result)) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if fn != nil {
			c.Observers = append(c.Observers, s3types.ProgressFunc(fn))
		}
	}
}

// WithObserver registers an observer for one upload.
func WithObserver(observer s3types.Observer) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if observer != nil {
			c.Observers = append(c.Observers, observer)
		}
	}
}

// WithAbortOnFailure discards the multipart session of a file whose upload failed.
// By default uploaded parts are left for the bucket lifecycle policy.
func WithAbortOnFailure(abort bool) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.AbortOnFailure = abort
	}
}

// WithLimit rejects batches of more than limit files.
func WithLimit(limit int) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.Limit = limit
	}
}

// WithMaxSize rejects batches containing a file larger than maxSize MiB.
func WithMaxSize(maxSize float64) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.MaxSize = maxSize
	}
}

// WithAccept restricts the accepted formats: "*", "image/*", "video/*" or a
// list of extensions such as "pdf,docx".
func WithAccept(accept string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.Accept = accept
	}
}

// WithAcceptFunc decides per file whether it may be uploaded.
// A function that returns an error rejects the file.
func WithAcceptFunc(fn s3types.AcceptFunc) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.AcceptFunc = fn
	}
}

// WithInclude limits UploadDir to files matching at least one pattern.
func WithInclude(patterns ...string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.Include = append(c.Include, patterns...)
	}
}

// WithExclude skips UploadDir files matching any pattern.
func WithExclude(patterns ...string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.Exclude = append(c.Exclude, patterns...)
	}
}

// WithHidden makes UploadDir include dot files and dot directories.
func WithHidden(hidden bool) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.Hidden = hidden
	}
}
