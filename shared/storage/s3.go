// Package storage uploads user assets (avatars, resumes, images) to S3 compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrEmptyObject is returned when uploading zero bytes.
var ErrEmptyObject = errors.New("object is empty")

// Config holds the object storage settings.
type Config struct {
	Region       string `env:"S3_REGION"        envDefault:"us-east-1"`
	Bucket       string `env:"S3_BUCKET"`
	BaseEndpoint string `env:"S3_BASE_ENDPOINT"`
	AccessKey    string `env:"S3_ACCESS_KEY"`
	SecretKey    string `env:"S3_SECRET_KEY"`
	PublicURL    string `env:"S3_PUBLIC_URL"`
}

// Validate checks that the storage configuration is usable.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("missing S3_BUCKET environment variable")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("missing S3_ACCESS_KEY or S3_SECRET_KEY environment variable")
	}

	return nil
}

// Object identifies a stored asset. PublicID is what Delete needs; URL is what clients fetch.
type Object struct {
	URL      string
	PublicID string
}

// ObjectAPI is the subset of the S3 client used by S3Store.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(
		ctx context.Context,
		params *s3.DeleteObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)
}

// S3Store stores objects in a single bucket.
type S3Store struct {
	client    ObjectAPI
	bucket    string
	publicURL string
}

// NewS3Store builds an S3 client from static credentials. A base endpoint switches to
// path-style addressing so MinIO and similar backends work.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StoreWithClient(client, cfg), nil
}

// NewS3StoreWithClient creates an S3Store on top of an existing client.
func NewS3StoreWithClient(client ObjectAPI, cfg Config) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicBaseURL(cfg),
	}
}

// Upload stores data under folder with a random key and returns its public URL and key.
func (s *S3Store) Upload(ctx context.Context, data []byte, contentType, folder string) (*Object, error) {
	if len(data) == 0 {
		return nil, ErrEmptyObject
	}

	key := ObjectKey(folder, contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object %q: %w", key, err)
	}

	return &Object{
		URL:      s.publicURL + "/" + key,
		PublicID: key,
	}, nil
}

// Delete removes the object identified by publicID.
func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", publicID, err)
	}

	return nil
}

// ObjectKey returns folder/<uuid><ext>, with the extension derived from the content type.
func ObjectKey(folder, contentType string) string {
	name := uuid.NewString()
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		name += exts[0]
	}

	return path.Join(strings.Trim(folder, "/"), name)
}

func publicBaseURL(cfg Config) string {
	switch {
	case cfg.PublicURL != "":
		return strings.TrimRight(cfg.PublicURL, "/")
	case cfg.BaseEndpoint != "":
		return strings.TrimRight(cfg.BaseEndpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}
