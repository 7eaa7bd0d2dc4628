// Package storage keeps event header images in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"event-signup-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const headerPrefix = "headers"

// Options configures the image store
type Options struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PathStyle  bool
	URLExpires time.Duration
}

// ImageStore uploads header images and hands out read URLs
type ImageStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	expires time.Duration
}

// NewImageStore creates an S3 client from opts. Static credentials are used
// when both keys are set, the default AWS chain otherwise.
func NewImageStore(ctx context.Context, opts Options) (*ImageStore, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})

	expires := opts.URLExpires
	if expires <= 0 {
		expires = time.Hour
	}

	return &ImageStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
		expires: expires,
	}, nil
}

// Upload stores the image under a random key and returns that key
func (s *ImageStore) Upload(ctx context.Context, img *models.ImageUpload) (string, error) {
	key := ObjectKey(img.Filename, img.ContentType)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        img.Body,
		ContentType: aws.String(img.ContentType),
	}
	if img.Size > 0 {
		input.ContentLength = aws.Int64(img.Size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload header image: %w", err)
	}
	return key, nil
}

// URL returns a presigned GET URL for a stored key
func (s *ImageStore) URL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign header image: %w", err)
	}
	return req.URL, nil
}

// ObjectKey builds a collision resistant key for an uploaded file, keeping
// the original extension or deriving one from the content type
func ObjectKey(filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("%s/%s%s", headerPrefix, uuid.New().String(), ext)
}
