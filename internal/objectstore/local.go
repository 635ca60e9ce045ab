// Package objectstore keeps uploaded images on the local filesystem and
// hands out retrievable URLs for them.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Local struct {
	basePath string
	baseURL  string
}

// New creates basePath if needed. baseURL is the public prefix under which
// Handler is mounted, e.g. http://localhost:8080/images.
func New(basePath, baseURL string) (*Local, error) {
	if basePath == "" {
		basePath = "./data/images"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Key builds "<namespace>/<uuid><ext>" keeping the original extension.
func Key(namespace, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		ext = ""
	}
	return path.Join(namespace, uuid.NewString()+ext)
}

// Save writes data under key. A failed write or close removes the partial
// file.
func (s *Local) Save(_ context.Context, key string, data io.Reader) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create namespace dir: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// Delete removes key. A key that does not exist is not an error.
func (s *Local) Delete(_ context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// URL is where a stored key can be fetched from.
func (s *Local) URL(key string) string {
	return s.baseURL + "/" + key
}

// Handler serves stored objects; mount it with the URL prefix stripped.
func (s *Local) Handler() http.Handler {
	return http.FileServer(http.Dir(s.basePath))
}

func (s *Local) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("empty object key")
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}
