package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubSeams(t *testing.T) {
	t.Helper()
	origLoad, origNew, origPut, origNow := loadDefaultAWSConfig, newS3ClientFromConfig, putObject, now
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, putObject, now = origLoad, origNew, origPut, origNow
	})
	now = func() time.Time { return time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC) }
}

func TestNewS3Store_AppliesConfig(t *testing.T) {
	stubSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	_, err := NewS3Store(context.Background(), S3Config{Region: "eu-central-1", BaseEndpoint: "http://minio:9000"})
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://minio:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Store_ConfigError(t *testing.T) {
	stubSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}

	_, err := NewS3Store(context.Background(), S3Config{})
	assert.ErrorContains(t, err, "no creds")
}

func TestStore_PutsObjectAndReturnsURL(t *testing.T) {
	stubSeams(t)

	var gotKey, gotBody, gotType string
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		gotKey = *in.Key
		gotType = *in.ContentType
		b, _ := io.ReadAll(in.Body)
		gotBody = string(b)
		return &s3.PutObjectOutput{}, nil
	}

	s := &S3Store{cfg: S3Config{Bucket: "uploads", BaseEndpoint: "http://minio:9000/"}, client: &s3.Client{}}
	url, err := s.Store(context.Background(), []byte("png-bytes"), "/contracts/k1/uploads/", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotKey, "contracts/k1/uploads/2024/2/3/"), gotKey)
	assert.Equal(t, "png-bytes", gotBody)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "http://minio:9000/uploads/"+gotKey, url)
}

func TestStore_PutError(t *testing.T) {
	stubSeams(t)

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("denied")
	}

	s := &S3Store{cfg: S3Config{Bucket: "uploads"}, client: &s3.Client{}}
	_, err := s.Store(context.Background(), nil, "x", "image/png")
	assert.ErrorContains(t, err, "denied")
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	url, err := m.Store(context.Background(), []byte("a"), "proofs", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "mem://proofs/"))

	b, ok := m.Get(url)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Store(ctx, nil, "x", "")
	assert.ErrorIs(t, err, context.Canceled)
}
