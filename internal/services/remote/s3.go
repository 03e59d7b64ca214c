package remote

import (
	"bytes"
	"context"
	"errors"
	"path"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"bindery/internal/config"
	"bindery/internal/services"
)

// S3Store uploads bundles to an S3 bucket, including S3-compatible providers
// such as MinIO or R2 via a custom endpoint with path-style addressing.
// Credentials come from the SDK default chain.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Store(ctx context.Context, cfg config.S3) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "remote", "s3 store", "s3.bucket is required for the s3 backend", nil)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "remote", "s3 store", "load aws config", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, folderID, filename string, data []byte) (string, error) {
	key := s.key(folderID, filename)
	contentType := "application/pdf"
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "remote", "upload", "put object", err)
	}
	return key, nil
}

func (s *S3Store) Remove(ctx context.Context, objectID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &objectID,
	})
	if err != nil {
		var notFound *s3types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil
		}
		return services.Wrap(services.ErrTransient, "remote", "remove", "delete object", err)
	}
	return nil
}

func (s *S3Store) key(folderID, filename string) string {
	parts := make([]string, 0, 3)
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	if folderID != "" {
		parts = append(parts, folderID)
	}
	parts = append(parts, filename)
	return path.Join(parts...)
}
