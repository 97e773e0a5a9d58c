package jarstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

type fakeOriginStore struct {
	mu sync.Mutex

	data map[string][]byte

	getCalls  int
	putCalls  int
	listCalls int

	failPut bool
}

func newFakeOriginStore() *fakeOriginStore {
	return &fakeOriginStore{data: map[string][]byte{}}
}

func (s *fakeOriginStore) Put(_ context.Context, namespace, key string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.failPut {
		return fmt.Errorf("put failed")
	}
	s.data[namespace+"/"+key] = append([]byte(nil), content...)
	return nil
}

func (s *fakeOriginStore) Get(_ context.Context, namespace, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	raw, ok := s.data[namespace+"/"+key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *fakeOriginStore) List(_ context.Context, namespace string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	out := make([]string, 0, 8)
	prefix := namespace + "/"
	for k := range s.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k[len(prefix):])
		}
	}
	return out, nil
}

func TestKeyForURL(t *testing.T) {
	got, err := KeyForURL("https://piston-data.mojang.com/v1/objects/abc/client.jar?x=1")
	if err != nil {
		t.Fatalf("KeyForURL() error = %v", err)
	}
	if want := "piston-data.mojang.com/v1/objects/abc/client.jar"; got != want {
		t.Fatalf("KeyForURL() = %q, want %q", got, want)
	}
	got, err = KeyForURL("https://example.com/a/../../b.jar")
	if err != nil {
		t.Fatalf("KeyForURL() error = %v", err)
	}
	if got != "example.com/b.jar" {
		t.Fatalf("KeyForURL() = %q, want cleaned path", got)
	}
	for _, bad := range []string{"", "/no/host.jar", "https://example.com/"} {
		if _, err := KeyForURL(bad); err == nil {
			t.Fatalf("KeyForURL(%q) expected error", bad)
		}
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.Get(ctx, DefaultNamespace, "host/a.jar"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.Put(ctx, DefaultNamespace, "host/a.jar", []byte("A")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, DefaultNamespace, "host/v/b.jar", []byte("B")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "other", "host/c.jar", []byte("C")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := s.Get(ctx, DefaultNamespace, "host/a.jar")
	if err != nil || string(got) != "A" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	keys, err := s.List(ctx, DefaultNamespace)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"host/a.jar", "host/v/b.jar"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("List() = %v, want %v", keys, want)
	}
	if err := s.Put(ctx, DefaultNamespace, "../escape.jar", []byte("x")); err == nil {
		t.Fatalf("Put() with traversal key expected error")
	}
	if err := s.Put(ctx, "", "k", []byte("x")); err == nil {
		t.Fatalf("Put() without namespace expected error")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestDiskStore(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	exerciseStore(t, s)
	empty, err := s.List(context.Background(), "never-written")
	if err != nil || len(empty) != 0 {
		t.Fatalf("List(empty) = %v, %v", empty, err)
	}
}

func TestS3ConfigValidation(t *testing.T) {
	if (S3Config{Endpoint: "localhost:9000", Bucket: "jars"}).CanUse() {
		t.Fatalf("CanUse() without keys = true")
	}
	if _, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}); err == nil {
		t.Fatalf("NewS3Store() without bucket expected error")
	}
	cfg := S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "jars"}
	if !cfg.CanUse() {
		t.Fatalf("CanUse() = false for complete config")
	}
	if _, err := NewS3Store(cfg); err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}
}

func TestNilStoresReportErrors(t *testing.T) {
	var m *MemoryStore
	if err := m.Put(context.Background(), "n", "k", nil); err == nil {
		t.Fatalf("nil MemoryStore Put expected error")
	}
	var p *PostgresStore
	if _, err := p.Get(context.Background(), "n", "k"); err == nil {
		t.Fatalf("nil PostgresStore Get expected error")
	}
}

func TestCachedStoreReadThroughAndMetrics(t *testing.T) {
	origin := newFakeOriginStore()
	origin.data["ns/a.jar"] = []byte("hello")
	store := NewCachedStore(origin, CacheConfig{
		BlobTTL: time.Minute, BlobMaxEntries: 8,
		ListTTL: time.Minute, ListMaxEntries: 8,
	})

	got1, err := store.Get(context.Background(), "ns", "a.jar")
	if err != nil {
		t.Fatalf("first get failed: %v", err)
	}
	got2, err := store.Get(context.Background(), "ns", "a.jar")
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if string(got1) != "hello" || string(got2) != "hello" {
		t.Fatalf("unexpected content: %q %q", got1, got2)
	}
	if origin.getCalls != 1 {
		t.Fatalf("expected one origin get call, got %d", origin.getCalls)
	}
	m := store.Metrics()
	if m.BlobHits != 1 || m.BlobMisses != 1 || m.OriginReads != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}

	if _, err := store.Get(context.Background(), "ns", "missing.jar"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing get error = %v, want ErrNotFound", err)
	}
	if store.Metrics().OriginReadErr != 1 {
		t.Fatalf("expected one origin read error, got %+v", store.Metrics())
	}
}

func TestCachedStoreWriteThrough(t *testing.T) {
	origin := newFakeOriginStore()
	store := NewCachedStore(origin, DefaultCacheConfig())

	if err := store.Put(context.Background(), "ns", "a.jar", []byte("new")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := store.Get(context.Background(), "ns", "a.jar")
	if err != nil || string(got) != "new" {
		t.Fatalf("get after put = %q, %v", got, err)
	}
	if origin.getCalls != 0 {
		t.Fatalf("expected the write to populate the cache, origin gets = %d", origin.getCalls)
	}

	origin.failPut = true
	if err := store.Put(context.Background(), "ns", "b.jar", []byte("bad")); err == nil {
		t.Fatalf("expected put error")
	}
	if _, err := store.Get(context.Background(), "ns", "b.jar"); err == nil {
		t.Fatalf("expected miss for failed write")
	}
}

func TestCachedStoreTTLAndLRU(t *testing.T) {
	origin := newFakeOriginStore()
	origin.data["ns/a.jar"] = []byte("A")
	origin.data["ns/b.jar"] = []byte("B")

	store := NewCachedStore(origin, CacheConfig{BlobTTL: time.Minute, BlobMaxEntries: 1})
	for _, k := range []string{"a.jar", "b.jar", "a.jar"} {
		if _, err := store.Get(context.Background(), "ns", k); err != nil {
			t.Fatalf("get %s failed: %v", k, err)
		}
	}
	if origin.getCalls != 3 {
		t.Fatalf("expected 3 origin get calls with LRU eviction, got %d", origin.getCalls)
	}

	origin.getCalls = 0
	short := NewCachedStore(origin, CacheConfig{BlobTTL: 10 * time.Millisecond, BlobMaxEntries: 8})
	if _, err := short.Get(context.Background(), "ns", "a.jar"); err != nil {
		t.Fatalf("ttl get first failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := short.Get(context.Background(), "ns", "a.jar"); err != nil {
		t.Fatalf("ttl get second failed: %v", err)
	}
	if origin.getCalls != 2 {
		t.Fatalf("expected 2 origin reads after ttl expiry, got %d", origin.getCalls)
	}
}

func TestCachedStoreListInvalidatedByPut(t *testing.T) {
	origin := newFakeOriginStore()
	origin.data["ns/a.jar"] = []byte("x")
	store := NewCachedStore(origin, DefaultCacheConfig())

	l1, _ := store.List(context.Background(), "ns")
	l2, _ := store.List(context.Background(), "ns")
	if !reflect.DeepEqual(l1, l2) || origin.listCalls != 1 {
		t.Fatalf("list not cached: %v %v calls=%d", l1, l2, origin.listCalls)
	}
	if err := store.Put(context.Background(), "ns", "b.jar", []byte("y")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	l3, _ := store.List(context.Background(), "ns")
	if len(l3) != 2 || origin.listCalls != 2 {
		t.Fatalf("list after put = %v calls=%d", l3, origin.listCalls)
	}
}
