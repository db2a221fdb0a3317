// Package backend defines the storage capability consumed by the upload engine.
// The engine only needs five object-store operations; this package exposes them
// behind one interface so the direct and presigned variants share every code path.
package backend

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// Backend is the object-store capability used by the upload engine.
type Backend interface {
	// HeadObject returns the entity tag of an existing object
	HeadObject(ctx context.Context, bucket, key string) (string, error)

	// PutObject stores a whole object in one request and returns its entity tag
	PutObject(ctx context.Context, in *PutObjectInput) (string, error)

	// CreateMultipartSession opens a multipart upload
	CreateMultipartSession(ctx context.Context, in *ObjectInput) (s3types.UploadSession, error)

	// UploadPart stores one part of an open session and returns its entity tag
	UploadPart(ctx context.Context, in *UploadPartInput) (string, error)

	// CompleteMultipartSession assembles the parts in the given order
	CompleteMultipartSession(
		ctx context.Context,
		session s3types.UploadSession,
		parts []s3types.PartResult,
	) (string, error)

	// AbortMultipartSession discards an open session and its parts
	AbortMultipartSession(ctx context.Context, session s3types.UploadSession) error
}

// ObjectInput carries the attributes attached to a new object.
type ObjectInput struct {
	Bucket             string
	Key                string
	ContentType        string
	ContentDisposition string
	Metadata           map[string]string
}

// PutObjectInput is a single-request upload.
type PutObjectInput struct {
	ObjectInput

	Body io.Reader
	Size int64
}

// UploadPartInput is one part of a multipart upload.
type UploadPartInput struct {
	Session    s3types.UploadSession
	PartNumber int32
	Body       io.ReadSeeker
	Size       int64
}

// S3 implements Backend with direct SDK calls.
type S3 struct {
	s3Client s3api.S3API
}

// NewS3 creates a Backend over an S3 API client.
func NewS3(s3Client s3api.S3API) *S3 {
	return &S3{
		s3Client: s3Client,
	}
}

// HeadObject probes an object and returns its entity tag.
func (b *S3) HeadObject(ctx context.Context, bucket, key string) (string, error) {
	output, err := b.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return "", errors.NewObjectError("headObject", bucket, key, errors.ErrObjectNotFound)
		}
		return "", errors.NewObjectError("headObject", bucket, key, err)
	}
	return aws.ToString(output.ETag), nil
}

// PutObject uploads a whole object in one request.
func (b *S3) PutObject(ctx context.Context, in *PutObjectInput) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(in.Bucket),
		Key:           aws.String(in.Key),
		Body:          in.Body,
		ContentLength: aws.Int64(in.Size),
	}
	applyObjectAttributes(&in.ObjectInput, &input.ContentType, &input.ContentDisposition, &input.Metadata)

	output, err := b.s3Client.PutObject(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("putObject", in.Bucket, in.Key, err)
	}
	return aws.ToString(output.ETag), nil
}

// CreateMultipartSession opens a multipart upload for the object.
func (b *S3) CreateMultipartSession(ctx context.Context, in *ObjectInput) (s3types.UploadSession, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(in.Bucket),
		Key:    aws.String(in.Key),
	}
	applyObjectAttributes(in, &input.ContentType, &input.ContentDisposition, &input.Metadata)

	output, err := b.s3Client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return s3types.UploadSession{}, errors.NewObjectError("createMultipartSession", in.Bucket, in.Key, err)
	}

	return s3types.UploadSession{
		ID:     aws.ToString(output.UploadId),
		Key:    in.Key,
		Bucket: in.Bucket,
	}, nil
}

// UploadPart uploads one part directly.
func (b *S3) UploadPart(ctx context.Context, in *UploadPartInput) (string, error) {
	output, err := b.s3Client.UploadPart(ctx, partInput(in))
	if err != nil {
		return "", errors.NewObjectError("uploadPart", in.Session.Bucket, in.Session.Key, err)
	}
	return aws.ToString(output.ETag), nil
}

// CompleteMultipartSession asks the backend to assemble the parts in the
// order given. Gaps and duplicates are left for the backend to reject.
func (b *S3) CompleteMultipartSession(
	ctx context.Context,
	session s3types.UploadSession,
	parts []s3types.PartResult,
) (string, error) {
	completed := make([]awstypes.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, awstypes.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		})
	}

	output, err := b.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(session.Bucket),
		Key:      aws.String(session.Key),
		UploadId: aws.String(session.ID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return "", errors.NewObjectError("completeMultipartSession", session.Bucket, session.Key, err)
	}
	return aws.ToString(output.ETag), nil
}

// AbortMultipartSession discards the session.
func (b *S3) AbortMultipartSession(ctx context.Context, session s3types.UploadSession) error {
	_, err := b.s3Client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(session.Bucket),
		Key:      aws.String(session.Key),
		UploadId: aws.String(session.ID),
	})
	if err != nil {
		return errors.NewObjectError("abortMultipartSession", session.Bucket, session.Key, err)
	}
	return nil
}

func partInput(in *UploadPartInput) *s3.UploadPartInput {
	return &s3.UploadPartInput{
		Bucket:        aws.String(in.Session.Bucket),
		Key:           aws.String(in.Session.Key),
		UploadId:      aws.String(in.Session.ID),
		PartNumber:    aws.Int32(in.PartNumber),
		Body:          in.Body,
		ContentLength: aws.Int64(in.Size),
	}
}

func applyObjectAttributes(in *ObjectInput, contentType, disposition **string, metadata *map[string]string) {
	if in.ContentType != "" {
		*contentType = aws.String(in.ContentType)
	}
	if in.ContentDisposition != "" {
		*disposition = aws.String(in.ContentDisposition)
	}
	if len(in.Metadata) > 0 {
		*metadata = in.Metadata
	}
}

var _ Backend = (*S3)(nil)
