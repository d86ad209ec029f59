package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store implements Store using S3-compatible object storage.
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	prefix     string
}

// S3Config contains S3Store configuration.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	PathStyle    bool
	AccessKey    string
	SecretKey    string
	SessionToken string // optional
}

// NewS3Store creates a new S3Store from config.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		func(opts *config.LoadOptions) error {
			if cfg.Endpoint != "" {
				opts.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
					func(service, region string, options ...interface{}) (aws.Endpoint, error) {
						return aws.Endpoint{
							URL:               cfg.Endpoint,
							SigningRegion:     cfg.Region,
							HostnameImmutable: cfg.PathStyle,
						}, nil
					},
				)
			}
			if cfg.AccessKey != "" && cfg.SecretKey != "" {
				opts.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKey, cfg.SecretKey, cfg.SessionToken,
				)
			}
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
	}, nil
}

// key returns the full S3 object key for a store key.
func (s *S3Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(s.prefix+"/", "/") + key
}

// Upload puts the object and returns an s3:// URL. The uploader handles
// multipart automatically for large objects.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte, mime string) (string, error) {
	objKey := s.key(key)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mime),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return "s3://" + s.bucket + "/" + objKey, nil
}

// Get downloads the object behind an s3://bucket/key URL.
func (s *S3Store) Get(ctx context.Context, url string) ([]byte, error) {
	rest, ok := strings.CutPrefix(url, "s3://")
	if !ok {
		return nil, fmt.Errorf("not an s3 url: %q", url)
	}
	bucket, objKey, ok := strings.Cut(rest, "/")
	if !ok {
		return nil, fmt.Errorf("malformed s3 url: %q", url)
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

// isNotFound checks if an error is a "not found" error from S3.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
