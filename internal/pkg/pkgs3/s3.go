package pkgs3

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	ErrMissingEndpoint    = errors.New("s3: endpoint is required")
	ErrMissingBucket      = errors.New("s3: bucket is required")
	ErrMissingCredentials = errors.New("s3: access key and secret key are required")
)

// Config holds the connection settings for an S3-compatible endpoint.
type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	DisableTLS     bool
	ForcePathStyle bool
	Timeout        time.Duration
}

// Client uploads objects into a single bucket.
type Client struct {
	api    *s3.Client
	bucket string
}

// NewClient validates cfg and builds a Client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrMissingCredentials
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "https"
		if cfg.DisableTLS {
			scheme = "http"
		}
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, err
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &Client{
		api:    api,
		bucket: cfg.Bucket,
	}, nil
}

// Bucket returns the bucket objects are written to.
func (c *Client) Bucket() string {
	return c.bucket
}

// PutObject uploads r under key. md5Hex, when set, is sent as Content-MD5 so
// the store rejects a body that changed in transit.
func (c *Client) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType, md5Hex string) error {
	if c == nil {
		return errors.New("nil client")
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if md5Hex != "" {
		checksum, err := encodeMD5(md5Hex)
		if err != nil {
			return err
		}
		input.ContentMD5 = aws.String(checksum)
		input.Metadata = map[string]string{"md5": md5Hex}
	}

	_, err := c.api.PutObject(ctx, input)
	return err
}

func encodeMD5(hexDigest string) (string, error) {
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		return "", err
	}
	if len(raw) != 16 {
		return "", fmt.Errorf("s3: md5 digest must be 16 bytes, got %d", len(raw))
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
