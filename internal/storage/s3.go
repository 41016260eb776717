package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxUploadSize bounds a single media object.
const MaxUploadSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("media exceeds maximum size")
)

// ObjectAPI is the subset of the S3 client used by S3Store.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store handles media uploads to AWS S3
type S3Store struct {
	client  ObjectAPI
	bucket  string
	region  string
	baseURL string
	now     func() time.Time
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// NewS3Store loads the default AWS credential chain for region. baseURL is
// the public CDN prefix; when empty the bucket's virtual-hosted URL is used.
func NewS3Store(ctx context.Context, region, bucket, baseURL string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3StoreWithClient(s3.NewFromConfig(cfg), region, bucket, baseURL), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client ObjectAPI, region, bucket, baseURL string) *S3Store {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Store{
		client:  client,
		bucket:  bucket,
		region:  region,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// Upload stores in.Body under {kind}/{yyyy}/{mm}/{owner}/{uuid}{ext}
func (u *S3Store) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(in.Filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if in.Size > MaxUploadSize {
		return nil, ErrTooLarge
	}

	now := u.now()
	key := fmt.Sprintf("%s/%d/%02d/%s/%s%s",
		in.Kind, now.Year(), now.Month(), in.OwnerID, uuid.New().String(), ext)

	input := &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         in.Body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl(in.Kind)),
		Metadata: map[string]string{
			"owner-id":         in.OwnerID,
			"upload-timestamp": now.Format(time.RFC3339),
			"media-kind":       string(in.Kind),
		},
	}
	if in.Size > 0 {
		input.ContentLength = aws.Int64(in.Size)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:         key,
		URL:         u.URL(key),
		ContentType: contentType,
		Size:        in.Size,
	}, nil
}

// Delete deletes an object from S3
func (u *S3Store) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// URL returns the public URL for key
func (u *S3Store) URL(key string) string {
	if key == "" {
		return ""
	}
	return u.baseURL + "/" + strings.TrimPrefix(key, "/")
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Store) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}
	return nil
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
}

// ContentType returns the MIME type for a supported extension, or "".
func ContentType(filename string) string {
	return contentTypes[strings.ToLower(filepath.Ext(filename))]
}

func cacheControl(kind MediaKind) string {
	if kind == KindAvatar {
		return "max-age=3600"
	}
	// Post media keys are never reused.
	return "max-age=31536000, immutable"
}
