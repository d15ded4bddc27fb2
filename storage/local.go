package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LocalStore keeps blobs on the local filesystem. Signed URLs point back at
// the server's /api/blob route and carry an HMAC over path, expiry and name.
type LocalStore struct {
	basePath string
	bucket   string
	baseURL  string
	secret   []byte
	now      func() time.Time
}

type LocalStoreConfig struct {
	BasePath      string
	Bucket        string
	PublicBaseURL string
	SigningSecret string
}

func NewLocalStore(cfg LocalStoreConfig) (*LocalStore, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("local store: path is required")
	}
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("local store: signing secret is required")
	}
	abs, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("local store: resolve path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("local store: create base dir: %w", err)
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "local"
	}
	return &LocalStore{
		basePath: abs,
		bucket:   bucket,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		secret:   []byte(cfg.SigningSecret),
		now:      time.Now,
	}, nil
}

func (s *LocalStore) Bucket() string {
	return s.bucket
}

func (s *LocalStore) resolve(path string) (string, error) {
	if path == "" || strings.Contains(path, "\x00") {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.basePath, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.basePath, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

func (s *LocalStore) Upload(_ context.Context, path string, r io.Reader, _ int64, _ string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write blob %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close blob %s: %w", path, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit blob %s: %w", path, err)
	}
	return nil
}

func (s *LocalStore) Move(_ context.Context, oldPath, newPath string) error {
	from, err := s.resolve(oldPath)
	if err != nil {
		return err
	}
	to, err := s.resolve(newPath)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("move %s: %w", oldPath, ErrObjectNotFound)
		}
		return fmt.Errorf("move %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}

// Remove ignores paths that are already gone.
func (s *LocalStore) Remove(_ context.Context, paths []string) error {
	for _, path := range paths {
		full, err := s.resolve(path)
		if err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

func (s *LocalStore) Download(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("download %s: %w", path, ErrObjectNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *LocalStore) CreateSignedURL(_ context.Context, path string, ttl time.Duration, opts SignedURLOptions) (string, error) {
	if _, err := s.resolve(path); err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", fmt.Errorf("signed url ttl must be positive")
	}

	expires := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	query := url.Values{}
	query.Set("expires", expires)
	if opts.DownloadName != "" {
		query.Set("name", opts.DownloadName)
	}
	query.Set("sig", s.sign(path, expires, opts.DownloadName))

	return s.baseURL + "/api/blob/" + escapePath(path) + "?" + query.Encode(), nil
}

// Verify checks a signature produced by CreateSignedURL.
func (s *LocalStore) Verify(path, expires, name, sig string) error {
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || s.now().Unix() > unix {
		return ErrInvalidSignature
	}
	given, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	expected, _ := hex.DecodeString(s.sign(path, expires, name))
	if !hmac.Equal(given, expected) {
		return ErrInvalidSignature
	}
	return nil
}

// Open returns the blob file for serving after a successful Verify.
func (s *LocalStore) Open(path string) (*os.File, os.FileInfo, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, info, nil
}

func (s *LocalStore) sign(path, expires, name string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(path))
	mac.Write([]byte{0})
	mac.Write([]byte(expires))
	mac.Write([]byte{0})
	mac.Write([]byte(name))
	return hex.EncodeToString(mac.Sum(nil))
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
