// Package s3blob parks the archiver's daily trade dumps in S3-compatible
// object storage via AWS SDK v2. Anything speaking the S3 wire protocol
// works: AWS itself, MinIO, or R2; the archive bucket rarely sees more than
// one small JSONL object per day.
package s3blob

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig holds the connection parameters for the archive bucket.
type ClientConfig struct {
	// Endpoint selects an S3-compatible provider; leave empty for AWS S3.
	Endpoint string

	Region string

	// Bucket receives every archive object.
	Bucket string

	AccessKey string
	SecretKey string

	// UseSSL picks the scheme when Endpoint is given without one.
	UseSSL bool

	// ForcePathStyle puts the bucket in the path instead of the subdomain,
	// which most self-hosted providers require.
	ForcePathStyle bool
}

// Client wraps the SDK client together with the resolved bucket name.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New builds the SDK client with static credentials and, for non-AWS
// providers, a custom endpoint and path-style addressing.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3blob: region is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := withScheme(cfg.Endpoint, cfg.UseSSL)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Client{
		s3:     s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
	}, nil
}

// Health verifies the bucket is reachable and the credentials can see it.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3blob: head bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Close is a no-op; the SDK's HTTP client needs no teardown. It exists so the
// app can register the client like every other closer.
func (c *Client) Close() error {
	return nil
}

// S3 exposes the SDK client to the writer in this package.
func (c *Client) S3() *s3.Client {
	return c.s3
}

// Bucket returns the configured archive bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// withScheme prepends https:// or http:// when the endpoint was configured
// without a scheme.
func withScheme(endpoint string, useSSL bool) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
