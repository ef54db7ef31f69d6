package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Uploader is the part of the S3 client the job needs.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Uploader builds an S3 client from the default AWS credential chain.
func NewS3Uploader(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Job copies the database file to s3://bucket/<file name>.
type Job struct {
	uploader Uploader
	bucket   string
	path     string
	logger   *zap.Logger
}

func NewJob(uploader Uploader, bucket, path string, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{uploader: uploader, bucket: bucket, path: path, logger: logger}
}

// Run uploads the file once. Failures are logged, never returned.
func (j *Job) Run(ctx context.Context) bool {
	if j.bucket == "" {
		j.logger.Error("backup skipped: S3_BUCKET_NAME not set")
		return false
	}
	if j.path == "" {
		j.logger.Error("backup skipped: no database file configured")
		return false
	}
	if j.uploader == nil {
		j.logger.Error("backup skipped: no S3 client")
		return false
	}

	key := filepath.Base(j.path)
	log := j.logger.With(zap.String("bucket", j.bucket), zap.String("key", key))
	log.Info("backup started", zap.String("file", j.path))

	if err := j.upload(ctx, key); err != nil {
		log.Error("backup failed", zap.Error(err))
		return false
	}
	log.Info("backup uploaded")
	return true
}

func (j *Job) upload(ctx context.Context, key string) error {
	f, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("database file %s does not exist", j.path)
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	_, err = j.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(j.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	return err
}
