// Package settings persists viewer preferences as a small TOML file.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/atomic"
)

const keyPrefix = "setting_"

// Store is a string key-value store. Keys are namespaced with "setting_" on
// disk. An empty path keeps values in memory only.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// Open loads path if it exists.
func Open(path string) (*Store, error) {
	s := &Store{path: strings.TrimSpace(path), values: map[string]string{}}
	if s.path == "" {
		return s, nil
	}
	raw := map[string]string{}
	if _, err := toml.DecodeFile(s.path, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	for k, v := range raw {
		if name, ok := strings.CutPrefix(k, keyPrefix); ok {
			s.values[name] = v
		}
	}
	return s, nil
}

func NewMemoryStore() *Store {
	s, _ := Open("")
	return s
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value and rewrites the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

// All returns a copy of every stored value.
func (s *Store) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values)
}

func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[keyPrefix+k] = v
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := atomic.WriteFile(s.path, &buf); err != nil {
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	return nil
}
