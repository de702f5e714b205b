package storage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"
)

// BlobStore stores resource files by path-like key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, keys ...string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

var unsafeName = regexp.MustCompile(`[^\w.\-() ]+`)

// SafeFileName replaces characters that do not belong in an object key.
func SafeFileName(name string) string {
	return unsafeName.ReplaceAllString(name, "_")
}

// ObjectKey builds "<course>/<lecture|general>/<unix-ms>_<name>".
func ObjectKey(courseSeg, lectureSeg string, now time.Time, fileName string) string {
	if courseSeg == "" {
		courseSeg = "misc"
	}
	if lectureSeg == "" {
		lectureSeg = "general"
	}
	return fmt.Sprintf("%s/%s/%d_%s", courseSeg, lectureSeg, now.UnixMilli(), SafeFileName(fileName))
}
