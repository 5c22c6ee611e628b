package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"kayak-destinations/utils"
)

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3Uploader.
type S3Options struct {
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// S3Uploader pushes artifact files to an S3 bucket under a fixed prefix
type S3Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *utils.Logger
}

// NewS3Uploader builds an uploader from the default AWS credential chain,
// or from static keys when both are given.
func NewS3Uploader(ctx context.Context, opts S3Options, logger *utils.Logger) (*S3Uploader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3UploaderWithClient(s3.NewFromConfig(cfg), opts.Bucket, opts.Prefix, logger), nil
}

// NewS3UploaderWithClient wires an existing client.
func NewS3UploaderWithClient(client ObjectPutter, bucket, prefix string, logger *utils.Logger) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), logger: logger}
}

// Key returns the object key of a local artifact.
func (u *S3Uploader) Key(localPath string) string {
	return path.Join(u.prefix, filepath.Base(localPath))
}

// UploadAll attempts every file and returns the number that failed. A
// failure never stops the remaining uploads.
func (u *S3Uploader) UploadAll(ctx context.Context, paths []string) int {
	failed := 0
	for _, p := range paths {
		if err := u.Upload(ctx, p); err != nil {
			u.logger.Error("S3 upload failed for %s: %v", p, err)
			failed++
			continue
		}
		u.logger.Info("Uploaded s3://%s/%s", u.bucket, u.Key(p))
	}
	return failed
}

// Upload puts one file.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(u.Key(localPath)),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func contentType(p string) string {
	switch filepath.Ext(p) {
	case ".csv":
		return "text/csv"
	case ".html":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
