// Package storage issues short-lived, write-scoped upload URLs so clients can
// put original photos straight into the object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Upload defaults.
const (
	DefaultContentType = "image/jpeg"
	DefaultPrefix      = "original/"
	DefaultTTL         = 10 * time.Minute
)

// ErrUnsupportedContentType is returned for content types that are not images.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// UploadTicket describes a signed upload URL.
type UploadTicket struct {
	ID          string    `json:"id"`
	ObjectPath  string    `json:"objectPath"`
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Signer issues upload tickets.
type Signer interface {
	SignUpload(ctx context.Context, contentType string) (*UploadTicket, error)
}

// PresignAPI is the subset of *s3.PresignClient used by S3Signer.
type PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Signer presigns PutObject requests against a single bucket.
type S3Signer struct {
	client PresignAPI
	bucket string
	prefix string
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

// Option configures an S3Signer.
type Option func(*S3Signer)

// WithPrefix sets the object key prefix.
func WithPrefix(prefix string) Option {
	return func(s *S3Signer) { s.prefix = prefix }
}

// WithTTL sets how long issued URLs stay valid.
func WithTTL(ttl time.Duration) Option {
	return func(s *S3Signer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewS3Signer creates a signer for bucket.
func NewS3Signer(client PresignAPI, bucket string, opts ...Option) *S3Signer {
	s := &S3Signer{
		client: client,
		bucket: bucket,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewS3SignerFromConfig creates a signer backed by an S3 presign client.
func NewS3SignerFromConfig(cfg aws.Config, bucket string, opts ...Option) *S3Signer {
	return NewS3Signer(s3.NewPresignClient(s3.NewFromConfig(cfg)), bucket, opts...)
}

// SignUpload returns a URL that accepts one PUT of contentType under a fresh
// object key. An empty contentType selects DefaultContentType.
func (s *S3Signer) SignUpload(ctx context.Context, contentType string) (*UploadTicket, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}
	ext, err := extensionFor(contentType)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	key := s.prefix + id + ext
	issued := s.now()

	req, err := s.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign upload %s: %w", key, err)
	}
	log.Printf("storage: signed upload for %s/%s", s.bucket, key)

	return &UploadTicket{
		ID:          id,
		ObjectPath:  key,
		URL:         req.URL,
		Method:      req.Method,
		ContentType: contentType,
		ExpiresAt:   issued.Add(s.ttl),
	}, nil
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

func extensionFor(contentType string) (string, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ext, ok := extensions[mediaType]; ok {
		return ext, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
}
