//go:build integration

package s3upload_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// objectKey strips the leading slash and the name query from a result path.
func objectKey(path string) string {
	key, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "?")
	return key
}

func TestIntegrationUpload(t *testing.T) {
	ls := testutil.StartLocalStack(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts []s3types.Option
	}{
		{name: "direct parts"},
		{name: "presigned parts", opts: []s3types.Option{s3upload.WithPresignedParts(time.Minute)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket := ls.CreateBucket(t, "s3upload")

			opts := append([]s3types.Option{
				s3upload.WithRegion(testutil.LocalStackRegion),
				s3upload.WithEndpoint(ls.Endpoint()),
				s3upload.WithForcePathStyle(true),
				s3upload.WithCredentials(testutil.LocalStackAccessKey, testutil.LocalStackSecretKey, ""),
				s3upload.WithDefaultBucket(bucket),
			}, tt.opts...)
			client, err := s3upload.New(opts...)
			require.NoError(t, err)
			defer client.Close()

			const chunkSize = 5 * 1024 * 1024
			small := testutil.NewRandomFile("notes.txt", 1024)
			large := testutil.NewRandomFile("video.mp4", 2*chunkSize+1234)

			observer := &testutil.MockObserver{}
			result, err := client.Upload(ctx, []s3types.File{small, large},
				s3upload.WithChunkSize(chunkSize),
				s3upload.WithObserver(observer),
			)
			require.NoError(t, err)
			require.NoError(t, result.Err())
			require.Len(t, result.Completed, 2)

			for i, f := range []s3types.File{small, large} {
				res := result.Completed[i]
				assert.Equal(t, s3types.StatusComplete, res.Status)
				assert.Equal(t, f.Name, res.Name)

				head, err := ls.Client().HeadObject(ctx, &s3.HeadObjectInput{
					Bucket: aws.String(bucket),
					Key:    aws.String(objectKey(res.Path)),
				})
				require.NoError(t, err)
				assert.Equal(t, f.Size, aws.ToInt64(head.ContentLength))

				percents := observer.Percents(f.Name)
				require.NotEmpty(t, percents)
				assert.Equal(t, 100.0, percents[len(percents)-1])
			}

			// A second upload finds both objects and stores nothing new
			again, err := client.Upload(ctx, []s3types.File{small, large}, s3upload.WithChunkSize(chunkSize))
			require.NoError(t, err)
			require.Len(t, again.Completed, 2)
			assert.Equal(t, result.Completed[0].Path, again.Completed[0].Path)
			assert.Equal(t, result.Completed[1].Path, again.Completed[1].Path)
		})
	}
}
