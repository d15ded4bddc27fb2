// Package storage holds the Blob Store adapters. Keys are the storage paths
// built by the services package; adapters never interpret them.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"time"
)

var (
	ErrObjectNotFound   = errors.New("blob object not found")
	ErrInvalidPath      = errors.New("invalid blob path")
	ErrInvalidSignature = errors.New("invalid or expired blob signature")
)

type SignedURLOptions struct {
	// DownloadName is suggested to the browser as the saved file name.
	DownloadName string
}

type BlobStore interface {
	Bucket() string
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Move(ctx context.Context, oldPath, newPath string) error
	Remove(ctx context.Context, paths []string) error
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	CreateSignedURL(ctx context.Context, path string, ttl time.Duration, opts SignedURLOptions) (string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// ContentDisposition builds an attachment header value. Non-ASCII names are
// encoded per RFC 2231.
func ContentDisposition(name string) string {
	if name == "" {
		return "attachment"
	}
	value := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	if value == "" {
		return "attachment"
	}
	return value
}
