// Package testutil provides test utilities and mocks for upload operations.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"context"
	"io"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/backend"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// MockS3Client is a mock implementation of the S3API interface for testing.
// It allows customization of each S3 operation through function fields.
type MockS3Client struct {
	HeadObjectFunc              func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObjectFunc               func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateMultipartUploadFunc   func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPartFunc              func(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUploadFunc func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUploadFunc    func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// HeadObject mocks the S3 HeadObject operation.
func (m *MockS3Client) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	optFns ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, params, optFns...)
	}
	return &s3.HeadObjectOutput{}, nil
}

// PutObject mocks the S3 PutObject operation.
func (m *MockS3Client) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

// CreateMultipartUpload mocks the S3 CreateMultipartUpload operation.
func (m *MockS3Client) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	if m.CreateMultipartUploadFunc != nil {
		return m.CreateMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CreateMultipartUploadOutput{}, nil
}

// UploadPart mocks the S3 UploadPart operation.
func (m *MockS3Client) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	optFns ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	if m.UploadPartFunc != nil {
		return m.UploadPartFunc(ctx, params, optFns...)
	}
	return &s3.UploadPartOutput{}, nil
}

// CompleteMultipartUpload mocks the S3 CompleteMultipartUpload operation.
func (m *MockS3Client) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	if m.CompleteMultipartUploadFunc != nil {
		return m.CompleteMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CompleteMultipartUploadOutput{}, nil
}

// AbortMultipartUpload mocks the S3 AbortMultipartUpload operation.
func (m *MockS3Client) AbortMultipartUpload(
	ctx context.Context,
	params *s3.AbortMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	if m.AbortMultipartUploadFunc != nil {
		return m.AbortMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.AbortMultipartUploadOutput{}, nil
}

// MockPresigner is a mock implementation of the Presigner interface.
type MockPresigner struct {
	PresignUploadPartFunc func(context.Context, *s3.UploadPartInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PresignUploadPart mocks presigning a part upload.
func (m *MockPresigner) PresignUploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	optFns ...func(*s3.PresignOptions),
) (*v4.PresignedHTTPRequest, error) {
	if m.PresignUploadPartFunc != nil {
		return m.PresignUploadPartFunc(ctx, params, optFns...)
	}
	return &v4.PresignedHTTPRequest{}, nil
}

// MockBackend is a mock implementation of the Backend interface.
// Unset functions succeed with empty entity tags, except HeadObject
// which reports every object as absent.
type MockBackend struct {
	HeadObjectFunc               func(ctx context.Context, bucket, key string) (string, error)
	PutObjectFunc                func(ctx context.Context, in *backend.PutObjectInput) (string, error)
	CreateMultipartSessionFunc   func(ctx context.Context, in *backend.ObjectInput) (s3types.UploadSession, error)
	UploadPartFunc               func(ctx context.Context, in *backend.UploadPartInput) (string, error)
	CompleteMultipartSessionFunc func(ctx context.Context, session s3types.UploadSession, parts []s3types.PartResult) (string, error)
	AbortMultipartSessionFunc    func(ctx context.Context, session s3types.UploadSession) error
}

// HeadObject mocks the existence probe.
func (m *MockBackend) HeadObject(ctx context.Context, bucket, key string) (string, error) {
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, bucket, key)
	}
	return "", errors.NewObjectError("headObject", bucket, key, errors.ErrObjectNotFound)
}

// PutObject mocks a single-request upload.
func (m *MockBackend) PutObject(ctx context.Context, in *backend.PutObjectInput) (string, error) {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, in)
	}
	return "", nil
}

// CreateMultipartSession mocks opening a session.
func (m *MockBackend) CreateMultipartSession(
	ctx context.Context,
	in *backend.ObjectInput,
) (s3types.UploadSession, error) {
	if m.CreateMultipartSessionFunc != nil {
		return m.CreateMultipartSessionFunc(ctx, in)
	}
	return s3types.UploadSession{ID: "upload-id", Bucket: in.Bucket, Key: in.Key}, nil
}

// UploadPart mocks a part upload.
func (m *MockBackend) UploadPart(ctx context.Context, in *backend.UploadPartInput) (string, error) {
	if m.UploadPartFunc != nil {
		return m.UploadPartFunc(ctx, in)
	}
	return "", nil
}

// CompleteMultipartSession mocks part assembly.
func (m *MockBackend) CompleteMultipartSession(
	ctx context.Context,
	session s3types.UploadSession,
	parts []s3types.PartResult,
) (string, error) {
	if m.CompleteMultipartSessionFunc != nil {
		return m.CompleteMultipartSessionFunc(ctx, session, parts)
	}
	return "", nil
}

// AbortMultipartSession mocks discarding a session.
func (m *MockBackend) AbortMultipartSession(ctx context.Context, session s3types.UploadSession) error {
	if m.AbortMultipartSessionFunc != nil {
		return m.AbortMultipartSessionFunc(ctx, session)
	}
	return nil
}

// MockMinio is a mock implementation of the MinioAPI interface.
type MockMinio struct {
	StatObjectFunc              func(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObjectFunc               func(ctx context.Context, bucket, object string, data io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	NewMultipartUploadFunc      func(ctx context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error)
	PutObjectPartFunc           func(ctx context.Context, bucket, object, uploadID string, partID int, data io.Reader, size int64) (minio.ObjectPart, error)
	CompleteMultipartUploadFunc func(ctx context.Context, bucket, object, uploadID string, parts []minio.CompletePart) (minio.UploadInfo, error)
	AbortMultipartUploadFunc    func(ctx context.Context, bucket, object, uploadID string) error
}

// StatObject mocks the object probe.
func (m *MockMinio) StatObject(
	ctx context.Context,
	bucket, object string,
	opts minio.StatObjectOptions,
) (minio.ObjectInfo, error) {
	if m.StatObjectFunc != nil {
		return m.StatObjectFunc(ctx, bucket, object, opts)
	}
	return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
}

// PutObject mocks a single-request upload.
func (m *MockMinio) PutObject(
	ctx context.Context,
	bucket, object string,
	data io.Reader,
	size int64,
	md5Base64, sha256Hex string,
	opts minio.PutObjectOptions,
) (minio.UploadInfo, error) {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, bucket, object, data, size, opts)
	}
	return minio.UploadInfo{}, nil
}

// NewMultipartUpload mocks opening a multipart upload.
func (m *MockMinio) NewMultipartUpload(
	ctx context.Context,
	bucket, object string,
	opts minio.PutObjectOptions,
) (string, error) {
	if m.NewMultipartUploadFunc != nil {
		return m.NewMultipartUploadFunc(ctx, bucket, object, opts)
	}
	return "upload-id", nil
}

// PutObjectPart mocks a part upload.
func (m *MockMinio) PutObjectPart(
	ctx context.Context,
	bucket, object, uploadID string,
	partID int,
	data io.Reader,
	size int64,
	opts minio.PutObjectPartOptions,
) (minio.ObjectPart, error) {
	if m.PutObjectPartFunc != nil {
		return m.PutObjectPartFunc(ctx, bucket, object, uploadID, partID, data, size)
	}
	return minio.ObjectPart{PartNumber: partID}, nil
}

// CompleteMultipartUpload mocks assembling the parts.
func (m *MockMinio) CompleteMultipartUpload(
	ctx context.Context,
	bucket, object, uploadID string,
	parts []minio.CompletePart,
	opts minio.PutObjectOptions,
) (minio.UploadInfo, error) {
	if m.CompleteMultipartUploadFunc != nil {
		return m.CompleteMultipartUploadFunc(ctx, bucket, object, uploadID, parts)
	}
	return minio.UploadInfo{}, nil
}

// AbortMultipartUpload mocks discarding a multipart upload.
func (m *MockMinio) AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error {
	if m.AbortMultipartUploadFunc != nil {
		return m.AbortMultipartUploadFunc(ctx, bucket, object, uploadID)
	}
	return nil
}

// Ensure mocks implement their interfaces
var (
	_ s3api.S3API      = (*MockS3Client)(nil)
	_ s3api.Presigner  = (*MockPresigner)(nil)
	_ backend.Backend  = (*MockBackend)(nil)
	_ backend.MinioAPI = (*MockMinio)(nil)
)
