package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

// LocalStack credentials accepted by every LocalStack container.
const (
	LocalStackAccessKey = "test"
	LocalStackSecretKey = "test"
	LocalStackRegion    = "us-east-1"
)

// LocalStack is a running LocalStack container serving S3.
type LocalStack struct {
	container *localstack.LocalStackContainer
	endpoint  string
	client    *s3.Client
}

// StartLocalStack starts a LocalStack container and registers its
// termination with t.Cleanup. The test is skipped in short mode.
func StartLocalStack(t *testing.T) *LocalStack {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := localstack.Run(ctx,
		"localstack/localstack:latest",
		testcontainers.WithEnv(map[string]string{"SERVICES": "s3"}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("failed to start LocalStack container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate LocalStack container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}
	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(LocalStackRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(LocalStackAccessKey, LocalStackSecretKey, ""),
		),
	)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	return &LocalStack{
		container: container,
		endpoint:  endpoint,
		client: s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = true
			o.BaseEndpoint = aws.String(endpoint)
		}),
	}
}

// Endpoint returns the S3 endpoint URL of the container.
func (l *LocalStack) Endpoint() string {
	return l.endpoint
}

// Client returns an SDK client for inspecting the container's buckets.
func (l *LocalStack) Client() *s3.Client {
	return l.client
}

// CreateBucket creates a uniquely named bucket and removes it, with its
// objects, when the test finishes.
func (l *LocalStack) CreateBucket(t *testing.T, prefix string) string {
	t.Helper()

	bucket := GenerateTestBucketName(prefix)
	ctx := context.Background()
	if _, err := l.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
	t.Cleanup(func() {
		if err := l.deleteBucket(context.Background(), bucket); err != nil {
			t.Logf("failed to delete bucket %s: %v", bucket, err)
		}
	})
	return bucket
}

func (l *LocalStack) deleteBucket(ctx context.Context, bucket string) error {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	for {
		out, err := l.client.ListObjectsV2(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		if len(out.Contents) > 0 {
			objects := make([]awstypes.ObjectIdentifier, 0, len(out.Contents))
			for _, obj := range out.Contents {
				objects = append(objects, awstypes.ObjectIdentifier{Key: obj.Key})
			}
			if _, err := l.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(bucket),
				Delete: &awstypes.Delete{Objects: objects},
			}); err != nil {
				return fmt.Errorf("failed to delete objects: %w", err)
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	if _, err := l.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}
	return nil
}

// GenerateTestBucketName returns a bucket name that is unique to the run.
func GenerateTestBucketName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
