// Package backup uploads snapshots of the readings file to S3 or an
// S3-compatible object store.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/config"
)

const (
	keyTimeLayout = "20060102T150405"

	contentTypeCSV    = "text/csv; charset=utf-8"
	contentTypeSnappy = "application/x-snappy-framed"
)

// Putter is the subset of the S3 client used for uploads.
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Snapshotter writes a consistent copy of the data file.
type Snapshotter interface {
	WriteTo(w io.Writer) (int64, error)
}

type Options struct {
	Bucket   string
	Prefix   string
	Compress bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes an uploaded object.
type Result struct {
	Bucket    string
	Key       string
	RawBytes  int64
	SentBytes int64
}

type Uploader struct {
	client Putter
	opts   Options
	logger *slog.Logger
}

func NewUploader(client Putter, opts Options, logger *slog.Logger) (*Uploader, error) {
	if opts.Bucket == "" {
		return nil, errors.New("backup: bucket is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{client: client, opts: opts, logger: logger}, nil
}

// NewS3Client builds an S3 client from cfg. Static credentials, when both
// parts are set, take precedence over the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	}), nil
}

// ObjectKey returns prefix/data-<UTC timestamp>.csv, with a .sz suffix for
// snappy-compressed objects.
func ObjectKey(prefix string, t time.Time, compress bool) string {
	name := "data-" + t.UTC().Format(keyTimeLayout) + ".csv"
	if compress {
		name += ".sz"
	}
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Backup uploads one snapshot of src.
func (u *Uploader) Backup(ctx context.Context, src Snapshotter) (Result, error) {
	var raw bytes.Buffer
	n, err := src.WriteTo(&raw)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot: %w", err)
	}

	body := raw.Bytes()
	contentType := contentTypeCSV
	if u.opts.Compress {
		body, err = compress(body)
		if err != nil {
			return Result{}, fmt.Errorf("compress: %w", err)
		}
		contentType = contentTypeSnappy
	}

	key := ObjectKey(u.opts.Prefix, u.opts.Now(), u.opts.Compress)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return Result{}, fmt.Errorf("put s3://%s/%s: %w", u.opts.Bucket, key, err)
	}

	res := Result{Bucket: u.opts.Bucket, Key: key, RawBytes: n, SentBytes: int64(len(body))}
	u.logger.Info("backup uploaded",
		"bucket", res.Bucket,
		"key", res.Key,
		"raw_bytes", res.RawBytes,
		"sent_bytes", res.SentBytes,
	)
	return res, nil
}

// compress encodes b in the snappy framing format.
func compress(b []byte) ([]byte, error) {
	var out bytes.Buffer
	w := snappy.NewBufferedWriter(&out)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
