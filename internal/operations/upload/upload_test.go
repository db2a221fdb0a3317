package upload

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/backend"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/progress"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/uri"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

func newTestUploader(mock *testutil.MockBackend) (*Uploader, *testutil.MockObserver) {
	obs := &testutil.MockObserver{}
	b := progress.New(nil)
	b.Subscribe(obs)
	return New(mock, b, nil), obs
}

func existing(etag string) func(context.Context, string, string) (string, error) {
	return func(ctx context.Context, bucket, key string) (string, error) {
		return etag, nil
	}
}

func TestUploader_Simple(t *testing.T) {
	tests := []struct {
		name        string
		file        s3types.File
		mockFunc    func(*testing.T, *testutil.MockBackend, *atomic.Int32)
		wantPuts    int32
		wantErr     bool
		wantETag    string
		wantPercent []float64
	}{
		{
			name: "successful upload",
			file: testutil.NewFile("hello world.txt", "text/plain", []byte("Hello, World!")),
			mockFunc: func(t *testing.T, m *testutil.MockBackend, puts *atomic.Int32) {
				m.PutObjectFunc = func(ctx context.Context, in *backend.PutObjectInput) (string, error) {
					puts.Add(1)
					assert.Equal(t, "test-bucket", in.Bucket)
					assert.Equal(t, "k/name.txt", in.Key)
					assert.Equal(t, "text/plain", in.ContentType)
					assert.Equal(t, `attachment; filename="hello%20world.txt"`, in.ContentDisposition)
					assert.Equal(t, int64(13), in.Size)
					assert.Equal(t, map[string]string{
						"name":         "hello%20world.txt",
						"size":         "13",
						"type":         "text/plain",
						"lastmodified": "1700000000000",
					}, in.Metadata)

					body, err := io.ReadAll(in.Body)
					require.NoError(t, err)
					assert.Equal(t, "Hello, World!", string(body))
					return "new-etag", nil
				}
			},
			wantPuts:    1,
			wantETag:    "new-etag",
			wantPercent: []float64{0, 100},
		},
		{
			name: "dedup hit skips write",
			file: testutil.NewFile("a.txt", "text/plain", []byte("abc")),
			mockFunc: func(t *testing.T, m *testutil.MockBackend, puts *atomic.Int32) {
				m.HeadObjectFunc = existing("remote-etag")
				m.PutObjectFunc = func(ctx context.Context, in *backend.PutObjectInput) (string, error) {
					puts.Add(1)
					return "", nil
				}
			},
			wantPuts:    0,
			wantETag:    "remote-etag",
			wantPercent: []float64{0, 100},
		},
		{
			name: "empty file",
			file: testutil.NewFile("empty.bin", "application/octet-stream", nil),
			mockFunc: func(t *testing.T, m *testutil.MockBackend, puts *atomic.Int32) {
				m.PutObjectFunc = func(ctx context.Context, in *backend.PutObjectInput) (string, error) {
					puts.Add(1)
					body, err := io.ReadAll(in.Body)
					require.NoError(t, err)
					assert.Empty(t, body)
					return "empty-etag", nil
				}
			},
			wantPuts:    1,
			wantETag:    "empty-etag",
			wantPercent: []float64{0, 100},
		},
		{
			name: "put failure",
			file: testutil.NewFile("b.txt", "text/plain", []byte("abc")),
			mockFunc: func(t *testing.T, m *testutil.MockBackend, puts *atomic.Int32) {
				m.PutObjectFunc = func(ctx context.Context, in *backend.PutObjectInput) (string, error) {
					puts.Add(1)
					return "", stderrors.New("connection refused")
				}
			},
			wantPuts:    1,
			wantErr:     true,
			wantPercent: []float64{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var puts atomic.Int32
			mock := &testutil.MockBackend{}
			tt.mockFunc(t, mock, &puts)

			u, obs := newTestUploader(mock)
			res, err := u.Simple(context.Background(), tt.file, &Config{Bucket: "test-bucket", Key: "k/name.txt"})

			assert.Equal(t, tt.wantPuts, puts.Load())
			assert.Equal(t, tt.wantPercent, obs.Percents(tt.file.Name))

			last, ok := obs.Last(tt.file.Name)
			require.True(t, ok)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrUploadFailed)
				assert.Nil(t, res)
				require.NotNil(t, last.Result)
				assert.Equal(t, s3types.StatusAbnormal, last.Result.Status)
				assert.Empty(t, last.Result.Path)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Equal(t, tt.wantETag, res.ETag)
			assert.Equal(t, s3types.StatusComplete, res.Status)
			assert.Equal(t, "/k/name.txt?name="+uri.EncodeComponent(tt.file.Name), res.Path)
			assert.Same(t, res, last.Result)
		})
	}
}

func TestUploader_Upload_SelectsPath(t *testing.T) {
	tests := []struct {
		name          string
		size          int
		chunkSize     int64
		wantPuts      int32
		wantParts     int32
		wantLastPart  int64
		wantSessions  int32
		wantCompletes int32
	}{
		{name: "below threshold", size: 99, chunkSize: 100, wantPuts: 1},
		{name: "at threshold", size: 100, chunkSize: 100, wantPuts: 1},
		{name: "just above threshold", size: 101, chunkSize: 100, wantParts: 2, wantLastPart: 1, wantSessions: 1, wantCompletes: 1},
		{name: "exact multiple", size: 400, chunkSize: 100, wantParts: 4, wantLastPart: 100, wantSessions: 1, wantCompletes: 1},
		{name: "uneven tail", size: 1050, chunkSize: 100, wantParts: 11, wantLastPart: 50, wantSessions: 1, wantCompletes: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var puts, parts, sessions, completes atomic.Int32
			var lastPart atomic.Int64
			wantN := int32(tt.wantParts)

			mock := &testutil.MockBackend{
				PutObjectFunc: func(ctx context.Context, in *backend.PutObjectInput) (string, error) {
					puts.Add(1)
					return "etag", nil
				},
				CreateMultipartSessionFunc: func(ctx context.Context, in *backend.ObjectInput) (s3types.UploadSession, error) {
					sessions.Add(1)
					return s3types.UploadSession{ID: "id", Bucket: in.Bucket, Key: in.Key}, nil
				},
				UploadPartFunc: func(ctx context.Context, in *backend.UploadPartInput) (string, error) {
					parts.Add(1)
					if in.PartNumber == wantN {
						lastPart.Store(in.Size)
					}
					return fmt.Sprintf("etag-%d", in.PartNumber), nil
				},
				CompleteMultipartSessionFunc: func(
					ctx context.Context,
					session s3types.UploadSession,
					p []s3types.PartResult,
				) (string, error) {
					completes.Add(1)
					assert.Len(t, p, int(wantN))
					return "final", nil
				},
			}

			u, _ := newTestUploader(mock)
			file := testutil.NewRandomFile("data.bin", tt.size)
			_, err := u.Upload(context.Background(), file, &Config{
				Bucket:     "test-bucket",
				Key:        "k/data.bin",
				ChunkSize:  tt.chunkSize,
				ChunkCount: 4,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantPuts, puts.Load())
			assert.Equal(t, tt.wantParts, parts.Load())
			assert.Equal(t, tt.wantSessions, sessions.Load())
			assert.Equal(t, tt.wantCompletes, completes.Load())
			if tt.wantParts > 0 {
				assert.Equal(t, tt.wantLastPart, lastPart.Load())
			}
		})
	}
}

func TestUploader_Multipart_Success(t *testing.T) {
	var (
		mu       sync.Mutex
		received = make(map[int32][]byte)
		merged   []s3types.PartResult
		created  *backend.ObjectInput
	)

	mock := &testutil.MockBackend{
		CreateMultipartSessionFunc: func(ctx context.Context, in *backend.ObjectInput) (s3types.UploadSession, error) {
			created = in
			return s3types.UploadSession{ID: "upload-1", Bucket: in.Bucket, Key: in.Key}, nil
		},
		UploadPartFunc: func(ctx context.Context, in *backend.UploadPartInput) (string, error) {
			assert.Equal(t, "upload-1", in.Session.ID)
			data, err := io.ReadAll(in.Body)
			require.NoError(t, err)
			mu.Lock()
			received[in.PartNumber] = data
			mu.Unlock()
			return fmt.Sprintf("etag-%d", in.PartNumber), nil
		},
		CompleteMultipartSessionFunc: func(
			ctx context.Context,
			session s3types.UploadSession,
			parts []s3types.PartResult,
		) (string, error) {
			merged = parts
			return "final-etag", nil
		},
	}

	data := testutil.GenerateRandomData(1000)
	file := testutil.NewFile("video.mp4", "video/mp4", data)

	u, obs := newTestUploader(mock)
	res, err := u.Multipart(context.Background(), file, &Config{
		Bucket:     "test-bucket",
		Key:        "k/video.mp4",
		ChunkSize:  300,
		ChunkCount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "final-etag", res.ETag)
	assert.Equal(t, "/k/video.mp4?name=video.mp4", res.Path)

	require.NotNil(t, created)
	assert.Equal(t, "video/mp4", created.ContentType)
	assert.Equal(t, `attachment; filename="video.mp4"`, created.ContentDisposition)
	assert.Equal(t, "1000", created.Metadata["size"])

	require.Len(t, merged, 4)
	for i, p := range merged {
		assert.Equal(t, int32(i+1), p.PartNumber)
	}

	var reassembled []byte
	for pn := int32(1); pn <= 4; pn++ {
		reassembled = append(reassembled, received[pn]...)
	}
	assert.Equal(t, data, reassembled)

	percents := obs.Percents("video.mp4")
	assert.Equal(t, []float64{0, 25, 50, 75, 100, 100}, percents)
	last, _ := obs.Last("video.mp4")
	assert.Same(t, res, last.Result)
}

func TestUploader_Multipart_DedupHit(t *testing.T) {
	var writes atomic.Int32
	mock := &testutil.MockBackend{
		HeadObjectFunc: existing("remote"),
		CreateMultipartSessionFunc: func(ctx context.Context, in *backend.ObjectInput) (s3types.UploadSession, error) {
			writes.Add(1)
			return s3types.UploadSession{ID: "x"}, nil
		},
		UploadPartFunc: func(ctx context.Context, in *backend.UploadPartInput) (string, error) {
			writes.Add(1)
			return "", nil
		},
	}

	u, obs := newTestUploader(mock)
	res, err := u.Upload(context.Background(), testutil.NewRandomFile("big.bin", 500), &Config{
		Bucket:    "test-bucket",
		Key:       "k/big.bin",
		ChunkSize: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "remote", res.ETag)
	assert.Zero(t, writes.Load())
	assert.Equal(t, []float64{0, 100}, obs.Percents("big.bin"))
}

func TestUploader_Multipart_Failures(t *testing.T) {
	tests := []struct {
		name      string
		mockFunc  func(*testutil.MockBackend)
		abort     bool
		wantErr   error
		wantParts int32
		wantAbort int32
	}{
		{
			name: "create failure uploads no part",
			mockFunc: func(m *testutil.MockBackend) {
				m.CreateMultipartSessionFunc = func(
					ctx context.Context,
					in *backend.ObjectInput,
				) (s3types.UploadSession, error) {
					return s3types.UploadSession{}, stderrors.New("denied")
				}
			},
			abort:     true,
			wantErr:   errors.ErrSessionCreate,
			wantParts: 0,
			wantAbort: 0,
		},
		{
			name: "parts exhausted without abort",
			mockFunc: func(m *testutil.MockBackend) {
				m.UploadPartFunc = func(ctx context.Context, in *backend.UploadPartInput) (string, error) {
					if in.PartNumber == 1 {
						return "", stderrors.New("timeout")
					}
					return "etag", nil
				}
			},
			wantErr:   errors.ErrPartsExhausted,
			wantParts: 3 + 3,
			wantAbort: 0,
		},
		{
			name: "complete failure with abort",
			mockFunc: func(m *testutil.MockBackend) {
				m.CompleteMultipartSessionFunc = func(
					ctx context.Context,
					session s3types.UploadSession,
					parts []s3types.PartResult,
				) (string, error) {
					return "", stderrors.New("InvalidPart")
				}
			},
			abort:     true,
			wantErr:   errors.ErrSessionComplete,
			wantParts: 3,
			wantAbort: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var parts, aborts atomic.Int32
			mock := &testutil.MockBackend{
				UploadPartFunc: func(ctx context.Context, in *backend.UploadPartInput) (string, error) {
					return "etag", nil
				},
			}
			tt.mockFunc(mock)

			inner := mock.UploadPartFunc
			mock.UploadPartFunc = func(ctx context.Context, in *backend.UploadPartInput) (string, error) {
				parts.Add(1)
				return inner(ctx, in)
			}
			mock.AbortMultipartSessionFunc = func(ctx context.Context, session s3types.UploadSession) error {
				aborts.Add(1)
				return nil
			}

			u, obs := newTestUploader(mock)
			res, err := u.Multipart(context.Background(), testutil.NewRandomFile("f.bin", 300), &Config{
				Bucket:         "test-bucket",
				Key:            "k/f.bin",
				ChunkSize:      100,
				ChunkCount:     1,
				PartRetries:    3,
				AbortOnFailure: tt.abort,
			})

			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantParts, parts.Load())
			assert.Equal(t, tt.wantAbort, aborts.Load())

			last, ok := obs.Last("f.bin")
			require.True(t, ok)
			require.NotNil(t, last.Result)
			assert.Equal(t, s3types.StatusAbnormal, last.Result.Status)

			percents := obs.Percents("f.bin")
			for i := 1; i < len(percents); i++ {
				assert.GreaterOrEqual(t, percents[i], percents[i-1])
			}
		})
	}
}
