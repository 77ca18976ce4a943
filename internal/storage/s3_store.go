package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyendpoints "github.com/aws/smithy-go/endpoints"

	"git.home.luguber.info/inful/texbuilder/internal/config"
)

// uploadPartSize must be at least 5MB.
const uploadPartSize = 10 * 1024 * 1024

// S3Store publishes into an S3 bucket. Folders become key prefixes; an empty
// "<folder>/" object is written so the folder shows up in browsers of the
// bucket before the first upload lands.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates an S3 client. With static keys and an endpoint it talks
// to S3-compatible services such as MinIO using path-style addressing; without
// keys the default AWS credential chain is used.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	var resolver s3.EndpointResolverV2
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse s3 endpoint: %w", err)
		}
		resolver = &endpointResolver{BaseURL: u}
	}

	if cfg.AccessKey != "" {
		opts := s3.Options{
			Region:             cfg.Region,
			Credentials:        credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
			EndpointResolverV2: resolver,
		}
		return &S3Store{client: s3.New(opts), bucket: cfg.Bucket}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if resolver != nil {
			o.EndpointResolverV2 = resolver
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) PrepareFolder(ctx context.Context, folder string) (string, error) {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.bucket}); err != nil {
		return describe(err), storageError("prepare folder", folder, err)
	}
	key := strings.TrimSuffix(folder, "/") + "/"
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   strings.NewReader(""),
	}); err != nil {
		return describe(err), storageError("prepare folder", folder, err)
	}
	return "", nil
}

func (s *S3Store) Upload(ctx context.Context, dest, src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return err.Error(), storageError("upload", dest, err)
	}
	defer func() { _ = f.Close() }()

	key := path.Clean(dest)
	uploader := manager.NewUploader(s.client, func(u *manager.Uploader) {
		u.PartSize = uploadPartSize
	})
	contentType := "application/pdf"
	if path.Ext(key) != ".pdf" {
		contentType = "application/octet-stream"
	}
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        f,
		ContentType: &contentType,
	}); err != nil {
		return describe(err), storageError("upload", dest, err)
	}
	return "", nil
}

// describe renders an SDK error for the upload log, preferring the service
// error code when there is one.
func describe(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}

// endpointResolver resolves path-style endpoints for S3-compatible storage.
type endpointResolver struct {
	BaseURL *url.URL
}

func (r *endpointResolver) ResolveEndpoint(_ context.Context, params s3.EndpointParameters) (smithyendpoints.Endpoint, error) {
	u := *r.BaseURL
	if params.Bucket != nil {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + *params.Bucket
	}
	return smithyendpoints.Endpoint{URI: u}, nil
}
