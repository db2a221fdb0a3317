package s3upload

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/backend"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/batch"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/keys"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/progress"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/transfer/chunk"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

const (
	// DefaultChunkCount is the default number of parts in flight per file.
	DefaultChunkCount = 4

	// DefaultRegion is used when neither the options nor the environment set one.
	DefaultRegion = "us-east-1"
)

// Client uploads files to an S3-compatible store.
// It is safe for concurrent use; observers registered on the client
// receive the events of every upload.
type Client struct {
	// backend performs the object-store requests
	backend backend.Backend

	// progress fans events out to client-level observers
	progress *progress.Broadcaster

	// config holds the defaults applied to every upload
	config s3types.ClientConfig

	logger *slog.Logger

	// mu protects fs
	mu sync.RWMutex

	// fs is the filesystem used by OpenFile
	fs billy.Filesystem
}

func defaultClientConfig() *s3types.ClientConfig {
	return &s3types.ClientConfig{
		MaxRetries:      3,
		ChunkSize:       chunk.DefaultSize,
		ChunkCount:      DefaultChunkCount,
		PartRetries:     3,
		BatchRetries:    batch.DefaultRetries,
		FileConcurrency: 1,
	}
}

// New creates a new upload client with the provided options.
// It loads AWS credentials using the default credential chain unless
// static credentials are supplied with WithCredentials.
//
// Example:
//
//	client, err := s3upload.New(
//	    s3upload.WithRegion("us-west-2"),
//	    s3upload.WithDefaultBucket("uploads"),
//	)
func New(opts ...s3types.Option) (*Client, error) {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}

	if clientCfg.MinioBackend {
		b, err := newMinioBackend(clientCfg)
		if err != nil {
			return nil, err
		}
		return newClient(b, clientCfg), nil
	}

	var cfg aws.Config
	var err error

	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	if clientCfg.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			clientCfg.AccessKeyID,
			clientCfg.SecretAccessKey,
			clientCfg.SessionToken,
		))
	}

	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}

	var s3Opts []func(*s3.Options)

	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	if clientCfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(clientCfg.Endpoint)
		})
	}

	httpClient := clientCfg.HTTPClient
	if httpClient == nil && clientCfg.Timeout > 0 {
		httpClient = &http.Client{
			Timeout: clientCfg.Timeout,
		}
	}
	if httpClient != nil {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	s3Client := s3.NewFromConfig(cfg, s3Opts...)

	var b backend.Backend
	if clientCfg.PresignedParts {
		b = backend.NewPresigned(s3Client, s3.NewPresignClient(s3Client), backend.PresignedConfig{
			Expiry:     clientCfg.PresignExpiry,
			MaxRetries: clientCfg.MaxRetries,
			HTTPClient: httpClient,
			Logger:     clientCfg.Logger,
		})
	} else {
		b = backend.NewS3(s3Client)
	}

	return newClient(b, clientCfg), nil
}

// newMinioBackend builds a MinIO backend from the client configuration.
// The endpoint may be a URL or a bare host; a bare host uses TLS.
func newMinioBackend(clientCfg *s3types.ClientConfig) (*backend.Minio, error) {
	if clientCfg.Endpoint == "" {
		return nil, errors.NewError("client initialization", errors.ErrInvalidInput).
			WithMessage("the MinIO backend requires an endpoint")
	}

	host, secure := clientCfg.Endpoint, true
	if u, err := url.Parse(clientCfg.Endpoint); err == nil && u.Host != "" {
		host, secure = u.Host, u.Scheme == "https"
	}

	creds := miniocreds.NewChainCredentials([]miniocreds.Provider{
		&miniocreds.EnvAWS{},
		&miniocreds.EnvMinio{},
	})
	if clientCfg.AccessKeyID != "" {
		creds = miniocreds.NewStaticV4(clientCfg.AccessKeyID, clientCfg.SecretAccessKey, clientCfg.SessionToken)
	}

	opts := &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: clientCfg.Region,
	}
	if clientCfg.ForcePathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	if clientCfg.HTTPClient != nil && clientCfg.HTTPClient.Transport != nil {
		opts.Transport = clientCfg.HTTPClient.Transport
	}

	core, err := minio.NewCore(host, opts)
	if err != nil {
		return nil, errors.NewError("client initialization", err)
	}
	return backend.NewMinio(core), nil
}

// NewWithClient creates a new upload client over a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(s3Client s3api.S3API, opts ...s3types.Option) *Client {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}
	return newClient(backend.NewS3(s3Client), clientCfg)
}

// NewWithBackend creates a new upload client over a custom backend.
func NewWithBackend(b backend.Backend, opts ...s3types.Option) *Client {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}
	return newClient(b, clientCfg)
}

func newClient(b backend.Backend, clientCfg *s3types.ClientConfig) *Client {
	logger := clientCfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Default to OS filesystem rooted at /
	filesystem := clientCfg.Filesystem
	if filesystem == nil {
		filesystem = osfs.New("/")
	}

	if clientCfg.KeyStrategy == nil {
		clientCfg.KeyStrategy = keys.NewContentStrategy()
	}

	return &Client{
		backend:  b,
		progress: progress.New(logger),
		config:   *clientCfg,
		logger:   logger,
		fs:       filesystem,
	}
}

// OnProgress registers a function observer for every upload made by the
// client and returns a function that removes it.
func (c *Client) OnProgress(fn func(file s3types.FileIdentity, percent float64, result *s3types.Result)) func() {
	return c.progress.SubscribeFunc(fn)
}

// Subscribe registers an observer for every upload made by the client and
// returns a function that removes it. Registering the same pointer twice
// keeps a single registration.
func (c *Client) Subscribe(observer s3types.Observer) func() {
	return c.progress.Subscribe(observer)
}

// SetFilesystem sets the filesystem used by OpenFile.
func (c *Client) SetFilesystem(filesystem billy.Filesystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fs = filesystem
}

func (c *Client) filesystem() billy.Filesystem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fs
}

// Close releases any resources held by the client.
func (c *Client) Close() error {
	return nil
}
