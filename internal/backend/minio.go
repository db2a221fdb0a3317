package backend

import (
	"context"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// MinioAPI is the subset of *minio.Core used by the MinIO backend.
type MinioAPI interface {
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(
		ctx context.Context,
		bucket, object string,
		data io.Reader,
		size int64,
		md5Base64, sha256Hex string,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	NewMultipartUpload(ctx context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error)
	PutObjectPart(
		ctx context.Context,
		bucket, object, uploadID string,
		partID int,
		data io.Reader,
		size int64,
		opts minio.PutObjectPartOptions,
	) (minio.ObjectPart, error)
	CompleteMultipartUpload(
		ctx context.Context,
		bucket, object, uploadID string,
		parts []minio.CompletePart,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error
}

// Minio implements Backend with the MinIO client.
type Minio struct {
	core MinioAPI
}

// NewMinio creates a Backend over a MinIO core client.
func NewMinio(core MinioAPI) *Minio {
	return &Minio{core: core}
}

// HeadObject probes an object and returns its entity tag.
func (b *Minio) HeadObject(ctx context.Context, bucket, key string) (string, error) {
	info, err := b.core.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return "", errors.NewObjectError("headObject", bucket, key, errors.ErrObjectNotFound)
		}
		return "", errors.NewObjectError("headObject", bucket, key, err)
	}
	return info.ETag, nil
}

// PutObject uploads a whole object in one request.
func (b *Minio) PutObject(ctx context.Context, in *PutObjectInput) (string, error) {
	info, err := b.core.PutObject(ctx, in.Bucket, in.Key, in.Body, in.Size, "", "", putOptions(&in.ObjectInput))
	if err != nil {
		return "", errors.NewObjectError("putObject", in.Bucket, in.Key, err)
	}
	return info.ETag, nil
}

// CreateMultipartSession opens a multipart upload for the object.
func (b *Minio) CreateMultipartSession(ctx context.Context, in *ObjectInput) (s3types.UploadSession, error) {
	id, err := b.core.NewMultipartUpload(ctx, in.Bucket, in.Key, putOptions(in))
	if err != nil {
		return s3types.UploadSession{}, errors.NewObjectError("createMultipartSession", in.Bucket, in.Key, err)
	}
	return s3types.UploadSession{ID: id, Key: in.Key, Bucket: in.Bucket}, nil
}

// UploadPart uploads one part.
func (b *Minio) UploadPart(ctx context.Context, in *UploadPartInput) (string, error) {
	part, err := b.core.PutObjectPart(ctx,
		in.Session.Bucket, in.Session.Key, in.Session.ID,
		int(in.PartNumber), in.Body, in.Size,
		minio.PutObjectPartOptions{},
	)
	if err != nil {
		return "", errors.NewObjectError("uploadPart", in.Session.Bucket, in.Session.Key, err)
	}
	return part.ETag, nil
}

// CompleteMultipartSession assembles the parts in the order given.
func (b *Minio) CompleteMultipartSession(
	ctx context.Context,
	session s3types.UploadSession,
	parts []s3types.PartResult,
) (string, error) {
	completed := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, minio.CompletePart{PartNumber: int(p.PartNumber), ETag: p.ETag})
	}

	info, err := b.core.CompleteMultipartUpload(ctx,
		session.Bucket, session.Key, session.ID, completed, minio.PutObjectOptions{})
	if err != nil {
		return "", errors.NewObjectError("completeMultipartSession", session.Bucket, session.Key, err)
	}
	return info.ETag, nil
}

// AbortMultipartSession discards the session.
func (b *Minio) AbortMultipartSession(ctx context.Context, session s3types.UploadSession) error {
	if err := b.core.AbortMultipartUpload(ctx, session.Bucket, session.Key, session.ID); err != nil {
		return errors.NewObjectError("abortMultipartSession", session.Bucket, session.Key, err)
	}
	return nil
}

func putOptions(in *ObjectInput) minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType:        in.ContentType,
		ContentDisposition: in.ContentDisposition,
		UserMetadata:       in.Metadata,
	}
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return resp.StatusCode == http.StatusNotFound
}

var _ Backend = (*Minio)(nil)
