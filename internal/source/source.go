// Package source opens the byte streams the netstr CLI decodes: stdin,
// local files and S3 objects, with transparent decompression.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/epithet-ssh/netstr/pkg/config"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Stdin is the input name that selects standard input.
const Stdin = "-"

// Compression identifies a stream compression format.
type Compression string

const (
	Auto Compression = ""
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
	LZ4  Compression = "lz4"
)

// ParseCompression accepts the names used on the command line.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case Auto, None, Gzip, Zstd, LZ4:
		return c, nil
	case "auto":
		return Auto, nil
	case "gz":
		return Gzip, nil
	case "zst":
		return Zstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q", s)
	}
}

// CompressionFor picks a compression from the file extension of name.
func CompressionFor(name string) Compression {
	switch strings.ToLower(path.Ext(name)) {
	case ".gz", ".gzip":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	default:
		return None
	}
}

// ObjectGetter is the part of the S3 client Open uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options configures Open.
type Options struct {
	// Compression overrides detection by extension when not Auto.
	Compression Compression
	// S3 configures the client built for s3:// names.
	S3 config.S3Config
	// S3Client, when set, is used instead of building a client from the
	// default AWS credential chain.
	S3Client ObjectGetter
	// Stdin replaces os.Stdin for the "-" name.
	Stdin  io.Reader
	Logger *slog.Logger
}

// Open returns a reader for name, which is "-" for stdin, an s3://bucket/key
// URL or a local path. The caller must close the result.
func Open(ctx context.Context, name string, opts Options) (io.ReadCloser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		raw io.ReadCloser
		err error
	)
	switch {
	case name == "" || name == Stdin:
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		raw = io.NopCloser(in)
		logger.Debug("reading stdin")
	case strings.HasPrefix(name, "s3://"):
		raw, err = openS3(ctx, name, opts, logger)
	default:
		raw, err = os.Open(name)
		if err == nil {
			logger.Debug("reading file", slog.String("path", name))
		}
	}
	if err != nil {
		return nil, err
	}

	c := opts.Compression
	if c == Auto {
		c = CompressionFor(name)
	}
	r, err := Decompress(raw, c)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if c != None {
		logger.Debug("decompressing input", slog.String("compression", string(c)))
	}
	return r, nil
}

// Decompress wraps r in a reader for c. Closing the result closes r.
func Decompress(r io.ReadCloser, c Compression) (io.ReadCloser, error) {
	switch c {
	case Auto, None:
		return r, nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zr, r}}, nil
	case Zstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zstdCloser{zr}, r}}, nil
	case LZ4:
		return &stackedReader{Reader: lz4.NewReader(r), closers: []io.Closer{r}}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(u string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(u, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URL: %q", u)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 URL must name a bucket and key: %q", u)
	}
	return bucket, key, nil
}

func openS3(ctx context.Context, name string, opts Options, logger *slog.Logger) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URL(name)
	if err != nil {
		return nil, err
	}

	client := opts.S3Client
	if client == nil {
		client, err = newS3Client(ctx, opts.S3)
		if err != nil {
			return nil, err
		}
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from S3: %w", name, err)
	}
	if out.Body == nil {
		return nil, errors.New("S3 returned an empty body")
	}

	logger.Debug("reading S3 object",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.Int64("size", aws.ToInt64(out.ContentLength)))
	return out.Body, nil
}

func newS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	if err := checkEndpoint(cfg); err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(httpClient))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// stackedReader reads from a decompressor and closes it along with the
// stream underneath.
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// zstd.Decoder.Close has no error result.
type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}
