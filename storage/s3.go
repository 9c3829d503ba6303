package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const DefaultExpiry = 15 * time.Minute

// Presigner is the subset of *s3.PresignClient used here.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Options struct {
	Region    string
	Endpoint  string // LocalStack-style override, e.g. http://localstack:4566
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	CDNDomain string
}

// Upload is a presigned PUT for one object.
type Upload struct {
	URL       string
	Key       string
	PublicURL string
	Headers   map[string]string
	Expires   time.Duration
}

// S3Storage hands out presigned upload URLs so clients send media straight
// to the bucket.
type S3Storage struct {
	presigner Presigner
	bucket    string
	prefix    string
	endpoint  string
	cdnDomain string
}

// NewS3Storage loads AWS configuration and builds the presign client.
func NewS3Storage(ctx context.Context, opts Options) (*S3Storage, error) {
	cfgOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		cfgOpts = append(cfgOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithPresigner(s3.NewPresignClient(client), opts), nil
}

func NewWithPresigner(p Presigner, opts Options) *S3Storage {
	return &S3Storage{
		presigner: p,
		bucket:    opts.Bucket,
		prefix:    opts.Prefix,
		endpoint:  opts.Endpoint,
		cdnDomain: opts.CDNDomain,
	}
}

// PresignUpload returns a presigned PUT for a new object under folder. The
// key keeps the file extension and is otherwise random.
func (s *S3Storage) PresignUpload(ctx context.Context, folder, filename, contentType string, expires time.Duration) (*Upload, error) {
	if expires <= 0 {
		expires = DefaultExpiry
	}
	key := s.prefix + strings.Trim(folder, "/") + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	req, err := s.presigner.PresignPutObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = expires
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign put object: %w", err)
	}

	headers := make(map[string]string, len(req.SignedHeader))
	for k, v := range req.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return &Upload{
		URL:       req.URL,
		Key:       key,
		PublicURL: s.PublicURL(key),
		Headers:   headers,
		Expires:   expires,
	}, nil
}

// PublicURL is where an uploaded object is served from.
func (s *S3Storage) PublicURL(key string) string {
	switch {
	case s.cdnDomain != "":
		return fmt.Sprintf("https://%s/%s", strings.TrimRight(s.cdnDomain, "/"), key)
	case s.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.endpoint, "/"), s.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	}
}
