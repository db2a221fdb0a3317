package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// envPrefix is the prefix of the environment variables read by the command.
const envPrefix = "S3UPLOAD"

// settings is the resolved command configuration.
type settings struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKey       string
	SecretKey       string
	SessionToken    string
	ChunkSize       int64
	ChunkCount      int
	PartRetries     int
	BatchRetries    int
	FileConcurrency int
	Presigned       bool
	Minio           bool
	PresignExpiry   time.Duration
	Prefix          string
	Limit           int
	MaxSize         float64 // MiB
	Accept          string
	Include         []string
	Exclude         []string
	Hidden          bool
	AbortOnFailure  bool
	LogLevel        slog.Level
	LogFormat       string
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "s3upload [flags] FILE...",
		Short: "Upload files to an S3-compatible bucket",
		Long: `Upload files to an S3-compatible bucket.

Files are stored under content-addressed keys, so uploading the same file
twice is skipped. Files larger than the chunk size are uploaded in parts.
The object path of every stored file is printed on stdout.

Configuration precedence (highest to lowest): flags, S3UPLOAD_* environment
variables, the config file, defaults.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			return run(cmd, s, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.s3upload.yaml)")
	flags.String("bucket", "", "destination bucket")
	flags.String("region", "", "region (default from the AWS credential chain)")
	flags.String("endpoint", "", "custom endpoint URL for S3-compatible services")
	flags.Bool("path-style", false, "use path-style addressing")
	flags.String("access-key", "", "static access key ID")
	flags.String("secret-key", "", "static secret access key")
	flags.String("session-token", "", "static session token")
	flags.String("chunk-size", "5MiB", "part size and simple-upload threshold")
	flags.Int("chunk-count", s3upload.DefaultChunkCount, "parts in flight per file")
	flags.Int("part-retries", 3, "extra rounds for failed parts")
	flags.Int("batch-retries", 3, "extra rounds for failed files")
	flags.Int("file-concurrency", 1, "files uploaded at once")
	flags.Bool("presigned", false, "upload parts through presigned URLs")
	flags.Bool("minio", false, "use the MinIO client against --endpoint instead of the AWS SDK")
	flags.Duration("presign-expiry", 5*time.Minute, "validity of presigned part URLs")
	flags.String("prefix", "", "key prefix")
	flags.Int("limit", 0, "maximum number of files (0 for no limit)")
	flags.String("max-size", "", "maximum file size, e.g. 100MiB")
	flags.String("accept", "", `accepted formats: "*", "image/*", "video/*" or extensions such as "pdf,docx"`)
	flags.StringSlice("include", nil, "directory arguments: upload only files matching these patterns")
	flags.StringSlice("exclude", nil, "directory arguments: skip files matching these patterns")
	flags.Bool("hidden", false, "directory arguments: include dot files")
	flags.Bool("abort-on-failure", false, "discard the multipart session of a failed file")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")

	_ = v.BindPFlags(flags)

	return cmd
}

func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		return nil
	}

	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetConfigName(".s3upload")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

func loadSettings(v *viper.Viper) (*settings, error) {
	chunkSize, err := units.RAMInBytes(v.GetString("chunk-size"))
	if err != nil {
		return nil, fmt.Errorf("invalid chunk size %q: %w", v.GetString("chunk-size"), err)
	}

	var maxSize float64
	if raw := v.GetString("max-size"); raw != "" {
		b, err := units.RAMInBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid max size %q: %w", raw, err)
		}
		maxSize = float64(b) / units.MiB
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", v.GetString("log-level"), err)
	}

	format := v.GetString("log-format")
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return &settings{
		Bucket:          v.GetString("bucket"),
		Region:          v.GetString("region"),
		Endpoint:        v.GetString("endpoint"),
		PathStyle:       v.GetBool("path-style"),
		AccessKey:       v.GetString("access-key"),
		SecretKey:       v.GetString("secret-key"),
		SessionToken:    v.GetString("session-token"),
		ChunkSize:       chunkSize,
		ChunkCount:      v.GetInt("chunk-count"),
		PartRetries:     v.GetInt("part-retries"),
		BatchRetries:    v.GetInt("batch-retries"),
		FileConcurrency: v.GetInt("file-concurrency"),
		Presigned:       v.GetBool("presigned"),
		Minio:           v.GetBool("minio"),
		PresignExpiry:   v.GetDuration("presign-expiry"),
		Prefix:          v.GetString("prefix"),
		Limit:           v.GetInt("limit"),
		MaxSize:         maxSize,
		Accept:          v.GetString("accept"),
		Include:         v.GetStringSlice("include"),
		Exclude:         v.GetStringSlice("exclude"),
		Hidden:          v.GetBool("hidden"),
		AbortOnFailure:  v.GetBool("abort-on-failure"),
		LogLevel:        level,
		LogFormat:       format,
	}, nil
}

func newLogger(w io.Writer, s *settings) *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.LogLevel}
	if s.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func clientOptions(s *settings, logger *slog.Logger) []s3types.Option {
	opts := []s3types.Option{
		s3upload.WithLogger(logger),
		s3upload.WithDefaultBucket(s.Bucket),
		s3upload.WithForcePathStyle(s.PathStyle),
	}
	if s.Region != "" {
		opts = append(opts, s3upload.WithRegion(s.Region))
	}
	if s.Endpoint != "" {
		opts = append(opts, s3upload.WithEndpoint(s.Endpoint))
	}
	if s.AccessKey != "" {
		opts = append(opts, s3upload.WithCredentials(s.AccessKey, s.SecretKey, s.SessionToken))
	}
	switch {
	case s.Minio:
		opts = append(opts, s3upload.WithMinioBackend())
	case s.Presigned:
		opts = append(opts, s3upload.WithPresignedParts(s.PresignExpiry))
	}
	return opts
}

func uploadOptions(s *settings, logger *slog.Logger) []s3types.UploadOption {
	opts := []s3types.UploadOption{
		s3upload.WithChunkSize(s.ChunkSize),
		s3upload.WithChunkCount(s.ChunkCount),
		s3upload.WithPartRetries(s.PartRetries),
		s3upload.WithBatchRetries(s.BatchRetries),
		s3upload.WithFileConcurrency(s.FileConcurrency),
		s3upload.WithAbortOnFailure(s.AbortOnFailure),
		s3upload.WithLimit(s.Limit),
		s3upload.WithMaxSize(s.MaxSize),
		s3upload.WithAccept(s.Accept),
		s3upload.WithObserver(&progressLogger{logger: logger}),
	}
	if s.Prefix != "" {
		opts = append(opts, s3upload.WithKeyPrefix(s.Prefix))
	}
	return opts
}

func run(cmd *cobra.Command, s *settings, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), s)

	client, err := s3upload.New(clientOptions(s, logger)...)
	if err != nil {
		return err
	}
	defer client.Close()

	paths, err := expandPaths(cmd.Context(), osfs.New("/"), args, scanner.Rules{
		Include: s.Include,
		Exclude: s.Exclude,
		Hidden:  s.Hidden,
	})
	if err != nil {
		return err
	}
	logger.Debug("resolved paths", "count", len(paths))

	result, err := client.UploadFiles(cmd.Context(), paths, uploadOptions(s, logger)...)
	if result != nil {
		printResult(cmd.OutOrStdout(), result)
	}
	if err != nil {
		return err
	}
	return result.Err()
}

// expandPaths resolves args to absolute paths and replaces every directory
// with the files scanned under it.
func expandPaths(ctx context.Context, filesystem billy.Filesystem, args []string, rules scanner.Rules) ([]string, error) {
	paths := make([]string, 0, len(args))
	for _, a := range args {
		p, err := filepath.Abs(a)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", a, err)
		}

		info, err := filesystem.Stat(p)
		if err != nil || !info.IsDir() {
			// Missing files are reported by the upload
			paths = append(paths, p)
			continue
		}

		found, err := scanner.Scan(ctx, filesystem, p, rules)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func printResult(w io.Writer, result *s3types.BatchResult) {
	for _, r := range result.Completed {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, humanize.IBytes(uint64(r.Size)), r.Path)
	}
}

// progressLogger logs upload progress.
type progressLogger struct {
	logger *slog.Logger
}

func (p *progressLogger) OnProgress(file s3types.FileIdentity, percent float64, result *s3types.Result) {
	switch {
	case result == nil:
		p.logger.Debug("upload progress", "file", file.Name, "percent", percent)
	case result.Status == s3types.StatusAbnormal:
		p.logger.Warn("upload attempt failed", "file", file.Name, "percent", percent)
	default:
		p.logger.Info("uploaded",
			"file", file.Name,
			"size", humanize.IBytes(uint64(file.Size)),
			"path", result.Path,
		)
	}
}
