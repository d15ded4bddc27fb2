package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3 DeleteObjects accepts at most 1000 keys per request.
const s3DeleteBatchSize = 1000

type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	keyPrefix string
}

type S3StoreConfig struct {
	Client    *s3.Client
	Bucket    string
	KeyPrefix string
}

func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}

	if _, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("s3 store: bucket %q is not reachable: %w", cfg.Bucket, err)
	}

	prefix := strings.Trim(cfg.KeyPrefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &S3Store{
		client:    cfg.Client,
		presigner: s3.NewPresignClient(cfg.Client),
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
	}, nil
}

func (s *S3Store) Bucket() string {
	return s.bucket
}

func (s *S3Store) key(path string) string {
	return s.keyPrefix + path
}

func (s *S3Store) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if path == "" {
		return ErrInvalidPath
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(path)),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s: %w", path, err)
	}
	return nil
}

// Move copies then deletes. S3 has no rename, so a failure after the copy
// leaves both keys in place, which reconciliation treats as "not moved".
func (s *S3Store) Move(ctx context.Context, oldPath, newPath string) error {
	if oldPath == "" || newPath == "" {
		return ErrInvalidPath
	}
	if oldPath == newPath {
		return nil
	}

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.key(newPath)),
		CopySource: aws.String(s.copySource(oldPath)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("move %s: %w", oldPath, ErrObjectNotFound)
		}
		return fmt.Errorf("copy object %s -> %s: %w", oldPath, newPath, err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(oldPath)),
	}); err != nil {
		return fmt.Errorf("delete source object %s: %w", oldPath, err)
	}
	return nil
}

func (s *S3Store) copySource(path string) string {
	segments := strings.Split(s.key(path), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return s.bucket + "/" + strings.Join(segments, "/")
}

func (s *S3Store) Remove(ctx context.Context, paths []string) error {
	for start := 0; start < len(paths); start += s3DeleteBatchSize {
		end := start + s3DeleteBatchSize
		if end > len(paths) {
			end = len(paths)
		}

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, path := range paths[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(s.key(path))})
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
		if len(result.Errors) > 0 {
			first := result.Errors[0]
			return fmt.Errorf("delete objects: %d failed, first %s: %s",
				len(result.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

func (s *S3Store) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("download %s: %w", path, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get object %s: %w", path, err)
	}
	return result.Body, nil
}

func (s *S3Store) CreateSignedURL(ctx context.Context, path string, ttl time.Duration, opts SignedURLOptions) (string, error) {
	if path == "" {
		return "", ErrInvalidPath
	}
	if ttl <= 0 {
		return "", fmt.Errorf("signed url ttl must be positive")
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	}
	if opts.DownloadName != "" {
		input.ResponseContentDisposition = aws.String(ContentDisposition(opts.DownloadName))
	}

	request, err := s.presigner.PresignGetObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return request.URL, nil
}

func (s *S3Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", path, err)
	}
	return true, nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
