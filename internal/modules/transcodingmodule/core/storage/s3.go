package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/hashicorp/go-hclog"
	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
)

// S3Options configures an S3-compatible backend
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// objectAPI is the part of the S3 client the gateway uses
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Gateway stores objects in a single bucket of an S3-compatible service
type S3Gateway struct {
	client objectAPI
	bucket string
	logger hclog.Logger
}

// NewS3Gateway builds a path-style client against opts.Endpoint, which is
// how MinIO expects to be addressed
func NewS3Gateway(ctx context.Context, opts S3Options, logger hclog.Logger) (*S3Gateway, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	return newS3Gateway(client, opts.Bucket, logger), nil
}

func newS3Gateway(client objectAPI, bucket string, logger hclog.Logger) *S3Gateway {
	return &S3Gateway{client: client, bucket: bucket, logger: logger}
}

// Put implements Gateway
func (g *S3Gateway) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := g.client.PutObject(ctx, input); err != nil {
		return tErrors.StorageError("put_object", err).WithDetail("key", key).WithDetail("bucket", g.bucket)
	}

	g.logger.Trace("stored object", "bucket", g.bucket, "key", key, "size", size)
	return nil
}

// Get implements Gateway
func (g *S3Gateway) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, tErrors.StorageError("get_object", tErrors.ErrObjectNotFound).WithDetail("key", key)
		}
		return nil, tErrors.StorageError("get_object", err).WithDetail("key", key).WithDetail("bucket", g.bucket)
	}
	return out.Body, nil
}

// Delete implements Gateway
func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return tErrors.StorageError("delete_object", err).WithDetail("key", key).WithDetail("bucket", g.bucket)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
