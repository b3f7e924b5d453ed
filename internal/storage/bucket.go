// Package storage keeps uploaded images in a bucket and hands back their public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"campusrx/m/internal/apperr"
)

// Bucket stores objects and returns a public URL for each.
type Bucket interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// LocalBucket writes objects below a directory that the HTTP server exposes at baseURL.
type LocalBucket struct {
	dir     string
	baseURL string
}

func NewLocalBucket(dir, baseURL string) (*LocalBucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &LocalBucket{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the directory objects are written to.
func (b *LocalBucket) Dir() string { return b.dir }

var unsafeKey = regexp.MustCompile(`[^a-z0-9-]+`)

// Upload processes the image read from r and stores it under "<prefix>/<uuid>.jpg", where prefix is name
// reduced to lower-case letters, digits and dashes.
func (b *LocalBucket) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	data, err := processImage(r)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prefix := strings.Trim(unsafeKey.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if prefix == "" {
		prefix = "images"
	}
	key := path.Join(prefix, uuid.NewString()+".jpg")

	target := filepath.Join(b.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", apperr.Wrap(apperr.KindRemoteUnavailable, err, "creating object directory")
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", apperr.Wrap(apperr.KindRemoteUnavailable, err, "writing object")
	}
	return b.baseURL + "/" + (&url.URL{Path: key}).EscapedPath(), nil
}
