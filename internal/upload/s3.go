package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"payskill/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Storage writes videos to an S3-compatible bucket (AWS S3, Cloudflare
// R2, MinIO).
type S3Storage struct {
	client        *s3.Client
	bucket        string
	prefix        string
	publicBaseURL string
	publicPath    string
}

// NewS3Storage builds an S3 client from cfg. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain.
func NewS3Storage(ctx context.Context, cfg config.S3Config, publicPath string) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StorageWithClient(client, cfg.Bucket, cfg.PublicBaseURL, publicPath), nil
}

// NewS3StorageWithClient wraps an existing client. Objects are keyed under
// the "videos/" prefix.
func NewS3StorageWithClient(client *s3.Client, bucket, publicBaseURL, publicPath string) *S3Storage {
	return &S3Storage{
		client:        client,
		bucket:        bucket,
		prefix:        "videos/",
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		publicPath:    publicPath,
	}
}

// Save uploads body as one object. The returned path is an absolute URL
// when a public base URL is configured.
func (s *S3Storage) Save(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error) {
	key := s.prefix + name
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("S3 upload failed: %w", err)
	}
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}
	return path.Join(s.publicPath, name), nil
}
