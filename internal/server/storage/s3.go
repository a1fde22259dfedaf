// Package storage puts upload and proof images into object storage and
// returns the URL that gets persisted with the record.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	now = time.Now
)

// S3Config locates an S3-compatible bucket (MinIO in development).
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Store writes objects with path-style addressing so the returned URL is
// BaseEndpoint/Bucket/key.
type S3Store struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Store builds the S3 client once for the lifetime of the store.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.RootUser,
			cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Store{cfg: cfg, client: client}, nil
}

// StorageKey builds a date-partitioned, collision-free object key. hint is
// used as a readable prefix, typically "contracts/<id>/uploads".
func StorageKey(hint string) string {
	d := now()
	return path.Join(strings.Trim(hint, "/"), fmt.Sprintf("%d/%d/%d", d.Year(), d.Month(), d.Day()), uuid.NewString())
}

// Store uploads data and returns its URL.
func (s *S3Store) Store(ctx context.Context, data []byte, pathHint, contentType string) (string, error) {
	key := StorageKey(pathHint)
	bucket := s.cfg.Bucket

	_, err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return strings.TrimRight(s.cfg.BaseEndpoint, "/") + "/" + bucket + "/" + key, nil
}
