package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"newsmint/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains minimal configuration for creating the archive client.
// Values are optional and will fall back to the standard AWS config/credential chain.
type S3Config struct {
	Bucket string
	// Prefix is prepended to every key, e.g. "newsmint/"
	Prefix string
	// Region to use for requests, e.g. "us-east-1". If empty, AWS defaults apply.
	Region string
	// Profile selects a named shared config/credentials profile
	Profile string
	// UsePathStyle forces path-style addressing (useful for MinIO and friends)
	UsePathStyle bool
}

// objectPutter is the slice of the S3 client the archive needs
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive writes JSON snapshots of crawled articles to S3
type S3Archive struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Archive creates an archive using the default AWS configuration chain,
// with optional overrides from S3Config.
func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Archive(c, cfg.Bucket, cfg.Prefix), nil
}

func newS3Archive(client objectPutter, bucket, prefix string) *S3Archive {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Archive{client: client, bucket: bucket, prefix: prefix}
}

// Archive uploads the article snapshot to <prefix>articles/<id>.json
func (s *S3Archive) Archive(ctx context.Context, a *types.Article) error {
	body, err := json.MarshalIndent(types.ToResponse(a), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode article: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.key(a)),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("public, max-age=300"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}
	return nil
}

func (s *S3Archive) key(a *types.Article) string {
	return s.prefix + "articles/" + a.ID.Hex() + ".json"
}
