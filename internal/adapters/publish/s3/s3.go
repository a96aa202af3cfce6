// Package s3 uploads cleaned dataset files to S3-compatible object storage
package s3

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"reviewprep/internal/platform/config"
	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/logger"
)

// Options configures the publisher
type Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // empty uses the AWS default resolver
	AccessKey string
	SecretKey string
	PathStyle bool
}

// FromConfig reads RP_PUBLISH_S3_*. ok is false when no bucket is configured
func FromConfig(cfg config.Conf) (opts Options, ok bool) {
	sc := cfg.Prefix("RP_PUBLISH_S3_")
	opts = Options{
		Bucket:    sc.MayString("BUCKET", ""),
		Prefix:    sc.MayString("PREFIX", "reviewprep"),
		Region:    sc.MayString("REGION", "us-east-1"),
		Endpoint:  sc.MayString("ENDPOINT", ""),
		AccessKey: sc.MayString("ACCESS_KEY", ""),
		SecretKey: sc.MayString("SECRET_KEY", ""),
		PathStyle: sc.MayBool("PATH_STYLE", true),
	}
	return opts, opts.Bucket != ""
}

// Putter is the slice of the S3 client the publisher uses
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Object describes one uploaded file
type Object struct {
	Bucket string
	Key    string
	Bytes  int64
}

// Publisher uploads files under <prefix>/<date>/<run id>/<file name>
type Publisher struct {
	client Putter
	opts   Options
	now    func() time.Time
}

// New builds a Publisher with an S3 client from opts
func New(ctx context.Context, opts Options) (*Publisher, error) {
	if opts.Bucket == "" {
		return nil, perr.New(perr.ErrorCodeInvalidArgument, "s3: bucket is required")
	}
	lo := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		lo = append(lo, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, lo...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "s3: load config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return NewWithClient(client, opts), nil
}

// NewWithClient builds a Publisher around an existing client
func NewWithClient(c Putter, opts Options) *Publisher {
	return &Publisher{client: c, opts: opts, now: time.Now}
}

// Key returns the object key used for a file of the given run
func (p *Publisher) Key(runID, file string) string {
	date := p.now().UTC().Format("2006-01-02")
	return path.Join(strings.Trim(p.opts.Prefix, "/"), date, runID, filepath.Base(file))
}

// Upload puts the file at localPath into the bucket
func (p *Publisher) Upload(ctx context.Context, runID, localPath string) (Object, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Object{}, perr.Wrapf(err, perr.ErrorCodeNotFound, "s3: open %s", localPath)
	}
	defer func() { _ = f.Close() }()
	fi, err := f.Stat()
	if err != nil {
		return Object{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "s3: stat %s", localPath)
	}

	key := p.Key(runID, localPath)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.opts.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
		ContentType:   aws.String("application/x-ndjson"),
	})
	if err != nil {
		return Object{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "s3: put %s/%s", p.opts.Bucket, key)
	}
	logger.C(ctx).Info().
		Str("bucket", p.opts.Bucket).
		Str("key", key).
		Int64("bytes", fi.Size()).
		Msg("s3: uploaded")
	return Object{Bucket: p.opts.Bucket, Key: key, Bytes: fi.Size()}, nil
}
