// Package s3types provides shared type definitions for the upload module.
package s3types

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"
	"github.com/hashicorp/go-multierror"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/uri"
)

// Status reports where a file is in its upload lifecycle.
type Status string

// Upload statuses delivered to observers.
const (
	// StatusWait means the file is queued or paused
	StatusWait Status = "wait"

	// StatusProgress means the file is being transferred
	StatusProgress Status = "progress"

	// StatusComplete means the object is stored
	StatusComplete Status = "complete"

	// StatusAbnormal means the upload failed
	StatusAbnormal Status = "abnormal"
)

// FileIdentity is the immutable description of a file used to derive its storage key.
type FileIdentity struct {
	// Name is the file name including its extension
	Name string

	// Size is the file size in bytes
	Size int64

	// Type is the MIME type of the file
	Type string

	// LastModified is the modification time in milliseconds since the Unix epoch
	LastModified int64
}

// File is a file to upload: its identity plus random access to its content.
type File struct {
	Name         string
	Size         int64
	Type         string
	LastModified int64

	// Body provides the file content; parts are read as sections of it
	Body io.ReaderAt
}

// Identity returns the identity fields of the file.
func (f File) Identity() FileIdentity {
	return FileIdentity{
		Name:         f.Name,
		Size:         f.Size,
		Type:         f.Type,
		LastModified: f.LastModified,
	}
}

// FileChunk is one byte range of a file uploaded as a single part.
type FileChunk struct {
	// Start is the first byte offset of the chunk
	Start int64

	// End is the byte offset just past the chunk
	End int64

	// PartNumber is the 1-based part index
	PartNumber int32
}

// Len returns the chunk length in bytes.
func (c FileChunk) Len() int64 {
	return c.End - c.Start
}

// PartResult confirms that one part has been stored.
type PartResult struct {
	ETag       string
	PartNumber int32
}

// UploadSession identifies an open multipart upload.
type UploadSession struct {
	ID     string
	Key    string
	Bucket string
}

// Result is the terminal record emitted for a file.
type Result struct {
	Size int64
	Type string
	Name string

	// Path is "/<key>?name=<encoded name>", empty when nothing was stored
	Path string

	// ETag is the entity tag returned by the backend, if any
	ETag string

	Status Status
}

// NewResult builds a Result for a file stored (or not) at key.
// An empty key leaves Path empty.
func NewResult(file FileIdentity, key, etag string, status Status) *Result {
	res := &Result{
		Size:   file.Size,
		Type:   file.Type,
		Name:   file.Name,
		ETag:   etag,
		Status: status,
	}
	if key != "" {
		if !strings.HasPrefix(key, "/") {
			key = "/" + key
		}
		res.Path = key + "?name=" + uri.EncodeComponent(file.Name)
	}
	return res
}

// FailedFile describes a file that still failed after every batch round.
type FailedFile struct {
	// File is the identity of the file that failed
	File FileIdentity

	// Key is the destination key the file was uploaded to
	Key string

	// Err is the error from the last attempt
	Err error

	// Attempts is how many batch rounds tried this file
	Attempts int
}

// BatchResult contains the outcome of a batch upload.
type BatchResult struct {
	// Completed contains one Result per stored or already-present file
	Completed []Result

	// Failed contains the files that exhausted every batch round
	Failed []FailedFile

	// Rounds is the number of batch rounds that ran
	Rounds int

	// Duration is how long the batch took
	Duration time.Duration
}

// Err returns the errors of every failed file combined, or nil when all
// files completed.
func (r *BatchResult) Err() error {
	var merr *multierror.Error
	for _, f := range r.Failed {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", f.File.Name, f.Err))
	}
	return merr.ErrorOrNil()
}

// Observer receives progress and result events.
// Percent is in [0,100]; result is nil for intermediate progress.
type Observer interface {
	OnProgress(file FileIdentity, percent float64, result *Result)
}

// ProgressFunc adapts a function to the Observer interface.
type ProgressFunc func(file FileIdentity, percent float64, result *Result)

// OnProgress calls f.
func (f ProgressFunc) OnProgress(file FileIdentity, percent float64, result *Result) {
	f(file, percent, result)
}

// KeyStrategy derives the destination key of a file.
type KeyStrategy interface {
	Key(file FileIdentity) string
}

// AcceptFunc decides whether a file may be uploaded.
type AcceptFunc func(file FileIdentity) (bool, error)

// Configuration types for functional options

// ClientConfig holds configuration for the upload client.
type ClientConfig struct {
	Region          string
	Endpoint        string
	MaxRetries      int
	Timeout         time.Duration
	ForcePathStyle  bool
	CustomAWSConfig *aws.Config

	// Static credentials passed through to the SDK
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// PresignedParts uploads parts through presigned URLs instead of direct calls
	PresignedParts bool
	PresignExpiry  time.Duration
	HTTPClient     *http.Client

	// MinioBackend talks to Endpoint with the MinIO client instead of the AWS SDK
	MinioBackend bool

	DefaultBucket   string
	ChunkSize       int64
	ChunkCount      int
	PartRetries     int
	BatchRetries    int
	FileConcurrency int
	KeyStrategy     KeyStrategy
	Logger          *slog.Logger
	Filesystem      billy.Filesystem
}

// UploadOptionConfig holds configuration for a batch upload via functional options.
type UploadOptionConfig struct {
	Bucket          string
	ChunkSize       int64
	ChunkCount      int
	PartRetries     int
	BatchRetries    int
	FileConcurrency int
	KeyStrategy     KeyStrategy
	Observers       []Observer
	AbortOnFailure  bool

	// Validation rules applied before any network call
	Limit      int
	MaxSize    float64 // MiB
	Accept     string
	AcceptFunc AcceptFunc

	// Directory scan rules used by UploadDir
	Include []string
	Exclude []string
	Hidden  bool
}

// Option is a functional option for configuring the upload client.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring a batch upload.
	UploadOption func(*UploadOptionConfig)
)
