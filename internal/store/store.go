package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStore holds per-stage intermediate artifacts. Stages write
// under unique deterministic keys and never overwrite another stage's
// output; results are additive.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// IndexedDocument is one category's payload in the document index.
type IndexedDocument struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DocumentIndex is the narrow contract to the document index store.
type DocumentIndex interface {
	GetDocument(ctx context.Context, category, uuid string) (IndexedDocument, error)
	IndexDocument(ctx context.Context, category, uuid string, doc IndexedDocument) error
}

// FSStore is a filesystem-backed ObjectStore used for local runs and
// tests. Keys map to paths under the root.
type FSStore struct {
	Root string
}

func NewFSStore(root string) *FSStore {
	return &FSStore{Root: root}
}

func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.Root, clean), nil
}

func (s *FSStore) Put(_ context.Context, key string, body []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return body, nil
}

// FSIndex is a filesystem-backed DocumentIndex: one JSON file per
// (category, uuid) pair.
type FSIndex struct {
	Root string
}

func NewFSIndex(root string) *FSIndex {
	return &FSIndex{Root: root}
}

func (x *FSIndex) docPath(category, uuid string) string {
	return filepath.Join(x.Root, category, uuid+".json")
}

func (x *FSIndex) GetDocument(_ context.Context, category, uuid string) (IndexedDocument, error) {
	body, err := os.ReadFile(x.docPath(category, uuid))
	if err != nil {
		return IndexedDocument{}, fmt.Errorf("get document %s/%s: %w", category, uuid, err)
	}
	var doc IndexedDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return IndexedDocument{}, fmt.Errorf("decode document %s/%s: %w", category, uuid, err)
	}
	return doc, nil
}

func (x *FSIndex) IndexDocument(_ context.Context, category, uuid string, doc IndexedDocument) error {
	path := x.docPath(category, uuid)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir index %s: %w", category, err)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", category, uuid, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("index document %s/%s: %w", category, uuid, err)
	}
	return nil
}
