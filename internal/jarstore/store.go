// Package jarstore caches downloaded files (version jars and their
// manifests) so a version only crosses the network once.
package jarstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultNamespace groups the viewer's downloads. Bumping it orphans older
// entries.
const DefaultNamespace = "mcsrc-v1"

var ErrNotFound = errors.New("jar not found")

// Store persists blobs under namespace/key.
type Store interface {
	Put(ctx context.Context, namespace, key string, content []byte) error
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	List(ctx context.Context, namespace string) ([]string, error)
}

// KeyForURL turns a download URL into a slash-separated key of host and
// cleaned path. Query strings are dropped.
func KeyForURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url has no host: %q", raw)
	}
	p := strings.TrimLeft(path.Clean("/"+u.Path), "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("url has no path: %q", raw)
	}
	return u.Host + "/" + p, nil
}

func validate(namespace, key string) (string, string, error) {
	namespace = strings.TrimSpace(namespace)
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if namespace == "" {
		return "", "", fmt.Errorf("namespace is required")
	}
	if key == "" {
		return "", "", fmt.Errorf("key is required")
	}
	if strings.Contains(namespace, "/") || strings.Contains(namespace, "..") {
		return "", "", fmt.Errorf("invalid namespace: %s", namespace)
	}
	if strings.Contains(key, "..") {
		return "", "", fmt.Errorf("invalid key: %s", key)
	}
	return namespace, key, nil
}

func objectKey(namespace, key string) string {
	return namespace + "/" + key
}
