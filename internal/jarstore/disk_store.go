package jarstore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
)

// DiskStore keeps blobs under root/namespace/key. Writes go through a
// temp file and rename so a crashed download never leaves a torn jar.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: strings.TrimSpace(root)}
}

func (s *DiskStore) Put(_ context.Context, namespace, key string, content []byte) error {
	full, err := s.pathFor(namespace, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(full, bytes.NewReader(content))
}

func (s *DiskStore) Get(_ context.Context, namespace, key string) ([]byte, error) {
	full, err := s.pathFor(namespace, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *DiskStore) List(_ context.Context, namespace string) ([]string, error) {
	root, err := s.namespaceRoot(namespace)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, 8)
	walkErr := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return []string{}, nil
		}
		return nil, walkErr
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *DiskStore) namespaceRoot(namespace string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	if s.root == "" {
		return "", fmt.Errorf("root is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" || strings.Contains(namespace, "..") || filepath.IsAbs(namespace) {
		return "", fmt.Errorf("invalid namespace: %q", namespace)
	}
	return filepath.Join(s.root, namespace), nil
}

func (s *DiskStore) pathFor(namespace, key string) (string, error) {
	namespace, key, err := validate(namespace, key)
	if err != nil {
		return "", err
	}
	root, err := s.namespaceRoot(namespace)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.FromSlash(key)), nil
}
