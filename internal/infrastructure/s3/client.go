package s3infra

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sports-playlist/internal/config"
	"github.com/sports-playlist/internal/domain"
)

// StreamURLTTL is how long a presigned stream URL stays valid.
const StreamURLTTL = 15 * time.Minute

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for S3: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// StreamPresigner turns stored stream locators into playable URLs.
type StreamPresigner struct {
	presigner     *s3.PresignClient
	defaultBucket string
	ttl           time.Duration
}

func NewStreamPresigner(client *s3.Client, defaultBucket string) *StreamPresigner {
	return &StreamPresigner{
		presigner:     s3.NewPresignClient(client),
		defaultBucket: defaultBucket,
		ttl:           StreamURLTTL,
	}
}

// StreamURL returns locator unchanged unless it is an s3:// locator, in which
// case a time-limited presigned GET URL is returned. "s3:///key" uses the
// configured default bucket.
func (p *StreamPresigner) StreamURL(ctx context.Context, locator string) (string, error) {
	if !strings.HasPrefix(locator, "s3://") {
		return locator, nil
	}
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("parse stream locator: %w", domain.ErrBadRequest)
	}
	bucket := u.Host
	if bucket == "" {
		bucket = p.defaultBucket
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("stream locator has no object key: %w", domain.ErrBadRequest)
	}
	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return req.URL, nil
}
