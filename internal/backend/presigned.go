package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/s3api"
)

// DefaultPresignExpiry is how long a presigned part URL stays valid.
const DefaultPresignExpiry = 5 * time.Minute

// Presigned implements Backend by sending parts to presigned URLs.
// Every other operation is a direct SDK call.
type Presigned struct {
	*S3

	presigner  s3api.Presigner
	httpClient *retryablehttp.Client
	expiry     time.Duration
}

// PresignedConfig configures the presigned part transport.
type PresignedConfig struct {
	Expiry     time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewPresigned creates a Backend that uploads parts through presigned URLs.
func NewPresigned(s3Client s3api.S3API, presigner s3api.Presigner, cfg PresignedConfig) *Presigned {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.MaxRetries
	httpClient.Logger = nil
	if cfg.Logger != nil {
		httpClient.Logger = cfg.Logger
	}
	if cfg.HTTPClient != nil {
		httpClient.HTTPClient = cfg.HTTPClient
	}

	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}

	return &Presigned{
		S3:         NewS3(s3Client),
		presigner:  presigner,
		httpClient: httpClient,
		expiry:     expiry,
	}
}

// UploadPart signs the part request and PUTs the body to the signed URL.
func (b *Presigned) UploadPart(ctx context.Context, in *UploadPartInput) (string, error) {
	signed, err := b.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(in.Session.Bucket),
		Key:        aws.String(in.Session.Key),
		UploadId:   aws.String(in.Session.ID),
		PartNumber: aws.Int32(in.PartNumber),
	}, s3.WithPresignExpires(b.expiry))
	if err != nil {
		return "", errors.NewObjectError("presignUploadPart", in.Session.Bucket, in.Session.Key, err)
	}

	method := signed.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, signed.URL, in.Body)
	if err != nil {
		return "", errors.NewObjectError("uploadPart", in.Session.Bucket, in.Session.Key, err)
	}
	for name, values := range signed.SignedHeader {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.ContentLength = in.Size

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", errors.NewObjectError("uploadPart", in.Session.Bucket, in.Session.Key, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.NewObjectError("uploadPart", in.Session.Bucket, in.Session.Key,
			fmt.Errorf("unexpected status %d for part %d", resp.StatusCode, in.PartNumber))
	}

	return resp.Header.Get("ETag"), nil
}

var _ Backend = (*Presigned)(nil)
