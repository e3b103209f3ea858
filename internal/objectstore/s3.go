package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures an S3Store. Endpoint is optional and selects an
// S3-compatible provider (Supabase Storage, MinIO, Hetzner) with path-style URLs.
type S3Config struct {
	KeyID         string
	Secret        string
	Endpoint      string
	Region        string
	Bucket        string
	PublicBaseURL string
}

// S3Store stores objects in an S3 bucket.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Store creates an S3Store with static credentials.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.KeyID == "" || cfg.Secret == "" || cfg.Region == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 config is incomplete")
	}

	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.KeyID, cfg.Secret, ""),
	}
	baseURL := cfg.PublicBaseURL
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
		if baseURL == "" {
			baseURL = strings.TrimRight(endpoint, "/") + "/" + cfg.Bucket
		}
	} else if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Store{client: s3.New(opts), bucket: cfg.Bucket, baseURL: baseURL}, nil
}

// Put uploads body to key.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=3600"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Delete removes keys. S3 treats deleting a missing key as success.
func (s *S3Store) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return err
		}
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("delete s3://%s/%s: %w", s.bucket, key, err)
		}
	}
	return nil
}

// PublicURL returns the public URL for key.
func (s *S3Store) PublicURL(key string) string {
	return joinURL(s.baseURL, key)
}
