package sections

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/turing/internal/common"
	"github.com/dmitrijs2005/turing/internal/protocol"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures the S3 compatible backend.
type S3Options struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
	// Prefix is prepended to every object key.
	Prefix string
	// SpoolDir holds uploads while they are received. Empty means the
	// system temporary directory.
	SpoolDir string
}

// S3Store keeps section units as objects <prefix>/<namespace>/<unit>.
type S3Store struct {
	client   objectAPI
	bucket   string
	prefix   string
	spoolDir string
}

func NewS3Store(ctx context.Context, o S3Options) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			o.RootUser,
			o.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(opts *s3.Options) {
		if o.BaseEndpoint != "" {
			opts.BaseEndpoint = aws.String(o.BaseEndpoint)
			opts.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: o.Bucket, prefix: o.Prefix, spoolDir: o.SpoolDir}, nil
}

func (s *S3Store) key(namespace, document string, section, count int) string {
	return path.Join(s.prefix, namespace, protocol.UnitName(document, section, count))
}

// Allocate relies on conditional writes so that two servers sharing a bucket
// cannot both claim the same document.
func (s *S3Store) Allocate(ctx context.Context, namespace, document string, count int) error {
	if count <= 0 {
		return common.ErrInvalidSections
	}
	for i := 1; i <= count; i++ {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.key(namespace, document, i, count)),
			Body:        bytes.NewReader(nil),
			IfNoneMatch: aws.String("*"),
		})
		if err != nil {
			cleanup := s.removeUpTo(ctx, namespace, document, i-1, count)
			if isPreconditionFailed(err) {
				return errors.Join(common.ErrorAlreadyExists, cleanup)
			}
			return errors.Join(fmt.Errorf("error creating section %d: %w", i, err), cleanup)
		}
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, namespace, document string, section, count int) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(namespace, document, section, count)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, 0, common.ErrorNotFound
		}
		return nil, 0, err
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

// Write spools the upload to a temporary file before sending it, so a
// broken transfer never reaches the bucket and the body stays seekable for
// request signing.
func (s *S3Store) Write(ctx context.Context, namespace, document string, section, count int, r io.Reader, size int64) error {
	spool, err := os.CreateTemp(s.spoolDir, ".upload-*")
	if err != nil {
		return err
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	n, err := io.CopyN(spool, r, size)
	if err != nil {
		return fmt.Errorf("error receiving section %d: %w", section, err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(namespace, document, section, count)),
		Body:          spool,
		ContentLength: aws.Int64(n),
	})
	return err
}

func (s *S3Store) Remove(ctx context.Context, namespace, document string, count int) error {
	return s.removeUpTo(ctx, namespace, document, count, count)
}

func (s *S3Store) removeUpTo(ctx context.Context, namespace, document string, last, count int) error {
	var errs []error
	for i := 1; i <= last; i++ {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(namespace, document, i, count)),
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
