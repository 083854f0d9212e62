// Package documents persists rendered quotation documents keyed by quote id.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/storage/gcs"
)

// ContentType of rendered quotation documents.
const ContentType = "text/markdown; charset=utf-8"

// Store saves and loads rendered documents.
type Store interface {
	Put(ctx context.Context, quoteID string, content []byte) (string, error)
	Get(ctx context.Context, quoteID string) ([]byte, error)
}

// FileName is the document name for a quote id.
func FileName(quoteID string) string {
	return fmt.Sprintf("quote_%s.md", quoteID)
}

func checkID(quoteID string) error {
	if !quotation.ValidID(quoteID) {
		return pkgerrors.Validation(pkgerrors.Violation("quote_id", "is malformed"))
	}
	return nil
}

func notFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "quotation document not found")
}

// FileStore writes documents into a local directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("document directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Put writes through a temporary file so readers never see partial content.
func (s *FileStore) Put(_ context.Context, quoteID string, content []byte) (string, error) {
	if err := checkID(quoteID); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, FileName(quoteID))
	tmp, err := os.CreateTemp(s.dir, ".quote-*")
	if err != nil {
		return "", fmt.Errorf("create temp document: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("save document: %w", err)
	}
	return path, nil
}

func (s *FileStore) Get(_ context.Context, quoteID string) ([]byte, error) {
	if err := checkID(quoteID); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, FileName(quoteID)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return raw, nil
}

// ObjectClient is the object storage surface the GCS store needs.
type ObjectClient interface {
	PutObject(ctx context.Context, name, contentType string, data []byte) error
	GetObject(ctx context.Context, name string) ([]byte, error)
}

// ObjectStore writes documents into a bucket under prefix.
type ObjectStore struct {
	client ObjectClient
	prefix string
}

func NewObjectStore(client ObjectClient, prefix string) (*ObjectStore, error) {
	if client == nil {
		return nil, errors.New("object client required")
	}
	return &ObjectStore{client: client, prefix: prefix}, nil
}

func (s *ObjectStore) key(quoteID string) string {
	return s.prefix + FileName(quoteID)
}

func (s *ObjectStore) Put(ctx context.Context, quoteID string, content []byte) (string, error) {
	if err := checkID(quoteID); err != nil {
		return "", err
	}
	key := s.key(quoteID)
	if err := s.client.PutObject(ctx, key, ContentType, content); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document upload failed")
	}
	return key, nil
}

func (s *ObjectStore) Get(ctx context.Context, quoteID string) ([]byte, error) {
	if err := checkID(quoteID); err != nil {
		return nil, err
	}
	raw, err := s.client.GetObject(ctx, s.key(quoteID))
	if errors.Is(err, gcs.ErrObjectNotFound) {
		return nil, notFound()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document download failed")
	}
	return raw, nil
}
