package minecraft

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"mcsrc/internal/archive"
	"mcsrc/internal/jarstore"
	"mcsrc/internal/observable"
)

// Inactive is the progress value when no download is running.
const Inactive = -1

// Progress is a percentage in [0, 100], or Inactive.
type Progress = observable.Subject[int]

// NewProgress returns an inactive progress subject.
func NewProgress() *Progress {
	return observable.NewDistinct(Inactive, func(a, b int) bool { return a == b })
}

type ClientConfig struct {
	ManifestURL string
	HTTP        *http.Client
	// Cache, when set, serves previously downloaded jars.
	Cache     jarstore.Store
	Namespace string
}

// Client talks to the launcher metadata service.
type Client struct {
	http        *http.Client
	manifestURL string
	cache       jarstore.Store
	namespace   string
	flight      singleflight.Group
}

func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Minute}
	}
	manifest := strings.TrimSpace(cfg.ManifestURL)
	if manifest == "" {
		manifest = ManifestURL
	}
	ns := strings.TrimSpace(cfg.Namespace)
	if ns == "" {
		ns = jarstore.DefaultNamespace
	}
	return &Client{http: hc, manifestURL: manifest, cache: cfg.Cache, namespace: ns}
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	log.Printf("minecraft: fetching %s", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Versions returns the selectable versions, newest first.
func (c *Client) Versions(ctx context.Context) ([]VersionEntry, error) {
	var list VersionList
	if err := c.getJSON(ctx, c.manifestURL, &list); err != nil {
		return nil, err
	}
	return Filter(list), nil
}

// Manifest fetches the document describing v.
func (c *Client) Manifest(ctx context.Context, v VersionEntry) (VersionManifest, error) {
	var m VersionManifest
	if err := c.getJSON(ctx, v.URL, &m); err != nil {
		return VersionManifest{}, err
	}
	return m, nil
}

// Download fetches and opens the client jar of v. Progress, when non-nil,
// receives percentages while bytes arrive and Inactive once done.
func (c *Client) Download(ctx context.Context, v VersionEntry, progress *Progress) (archive.Jar, error) {
	log.Printf("minecraft: downloading jar for %s", v.ID)
	m, err := c.Manifest(ctx, v)
	if err != nil {
		return archive.Jar{}, err
	}
	dl, ok := m.Client()
	if !ok {
		return archive.Jar{}, fmt.Errorf("version %s has no client download", v.ID)
	}
	data, err := c.fetchJar(ctx, dl, progress)
	if err != nil {
		return archive.Jar{}, err
	}
	a, err := archive.Open(data)
	if err != nil {
		return archive.Jar{}, fmt.Errorf("open jar for %s: %w", v.ID, err)
	}
	log.Printf("minecraft: opened %s (%d entries)", v.ID, a.Size())
	return archive.Jar{Version: v.ID, Archive: a}, nil
}

// fetchJar reads dl through the cache. Concurrent requests for one URL share
// a single transfer.
func (c *Client) fetchJar(ctx context.Context, dl Download, progress *Progress) ([]byte, error) {
	if progress != nil {
		defer progress.Set(Inactive)
	}
	key, keyErr := jarstore.KeyForURL(dl.URL)
	if c.cache != nil && keyErr == nil {
		data, err := c.cache.Get(ctx, c.namespace, key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, jarstore.ErrNotFound) {
			log.Printf("minecraft: cache read %s failed: %v", key, err)
		}
	}

	v, err, _ := c.flight.Do(dl.URL, func() (any, error) {
		return c.transfer(context.WithoutCancel(ctx), dl, progress)
	})
	if err != nil {
		return nil, err
	}
	data := v.([]byte)
	if c.cache != nil && keyErr == nil {
		if err := c.cache.Put(ctx, c.namespace, key, data); err != nil {
			log.Printf("minecraft: cache write %s failed: %v", key, err)
		}
	}
	return data, nil
}

func (c *Client) transfer(ctx context.Context, dl Download, progress *Progress) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dl.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", dl.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to download minecraft jar: %s", resp.Status)
	}

	total, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(total))
	}
	chunk := make([]byte, 64*1024)
	var received int64
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			received += int64(n)
			if total > 0 && progress != nil {
				progress.Set(percent(received, total))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", dl.URL, err)
		}
	}

	data := buf.Bytes()
	if dl.SHA1 != "" {
		sum := sha1.Sum(data)
		if got := hex.EncodeToString(sum[:]); !strings.EqualFold(got, dl.SHA1) {
			return nil, fmt.Errorf("download %s: sha1 mismatch: got %s, want %s", dl.URL, got, dl.SHA1)
		}
	}
	return data, nil
}

func percent(received, total int64) int {
	p := int(math.Round(float64(received) / float64(total) * 100))
	return min(max(p, 0), 100)
}
