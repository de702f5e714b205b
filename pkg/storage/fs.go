package storage

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// FSStore keeps objects under a base directory and hands out signed
// download links served by the API itself.
type FSStore struct {
	base      string
	publicURL string
	signer    *Signer
}

func NewFSStore(base, publicURL string, signer *Signer) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, errors.Wrap(err, "create blob dir")
	}
	return &FSStore{base: base, publicURL: strings.TrimSuffix(publicURL, "/"), signer: signer}, nil
}

func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", errors.New("empty key")
	}
	return filepath.Join(s.base, clean), nil
}

// Put refuses to overwrite an existing object.
func (s *FSStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrapf(err, "create object %s", key)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return "", errors.Wrapf(err, "write object %s", key)
	}
	return key, nil
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *FSStore) Remove(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		p, err := s.path(key)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove object %s", key)
		}
	}
	return nil
}

func (s *FSStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token, err := s.signer.Sign(key, ttl)
	if err != nil {
		return "", err
	}
	return s.publicURL + "/files?token=" + url.QueryEscape(token), nil
}
