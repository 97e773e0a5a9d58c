package javadoc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcsrc/internal/token"
)

var (
	classTok  = token.Token{Type: token.Class, ClassName: "a/B", Declaration: true}
	methodTok = token.Token{Type: token.Method, ClassName: "a/B", Name: "run", Descriptor: "()V", Declaration: true}
	fieldTok  = token.Token{Type: token.Field, ClassName: "a/B$C", Name: "x", Descriptor: "I", Declaration: true}
)

func TestStoreSetAndLookup(t *testing.T) {
	s := NewStore()
	s.Set(classTok, "A class.")
	s.Set(methodTok, "Runs.")
	s.Set(fieldTok, "The x.")
	s.Set(token.Token{Type: token.Local, ClassName: "a/B", Name: "i"}, "ignored")

	doc, ok := s.ForToken(methodTok)
	require.True(t, ok)
	assert.Equal(t, "Runs.", doc)

	other := methodTok
	other.Descriptor = "(I)V"
	_, ok = s.ForToken(other)
	assert.False(t, ok, "overloads are keyed by descriptor")

	s.Clear(methodTok)
	_, ok = s.ForToken(methodTok)
	assert.False(t, ok)

	c, ok := s.Class("a/B")
	require.True(t, ok)
	assert.Equal(t, "A class.", c.Javadoc)
	c.Methods["x"] = "mutated"
	again, _ := s.Class("a/B")
	assert.NotContains(t, again.Methods, "x")
}

func TestStoreChangesBumpRevision(t *testing.T) {
	s := NewStore()
	before, _ := s.Changes().Value()
	s.Set(classTok, "doc")
	after, _ := s.Changes().Value()
	assert.Greater(t, after, before)
}

func TestDecorations(t *testing.T) {
	src := "class B {\n  void run() {}\n  int y;\n}\n"
	tokens := []token.Token{
		{Type: token.Class, ClassName: "a/B", Start: 6, Length: 1, Declaration: true},
		{Type: token.Method, ClassName: "a/B", Name: "run", Descriptor: "()V", Start: 17, Length: 3, Declaration: true},
		{Type: token.Method, ClassName: "a/B", Name: "run", Descriptor: "()V", Start: 17, Length: 3},
		{Type: token.Field, ClassName: "a/B", Name: "y", Descriptor: "I", Start: 32, Length: 1, Declaration: true},
	}
	s := NewStore()
	s.Set(methodTok, "Runs.\nTwice.")
	s.Set(classTok, "A class.")

	got := s.Decorations(src, tokens)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].AfterLine)
	assert.Equal(t, "/// A class.", got[0].Text)
	assert.Equal(t, 1, got[1].AfterLine)
	assert.Equal(t, "    /// Runs.\n    /// Twice.", got[1].Text)
}

func TestFormatIndentsNestedMembers(t *testing.T) {
	assert.Equal(t, "        /// The x.", Format("The x.", fieldTok))
}

func TestUpdateFor(t *testing.T) {
	u, err := UpdateFor(methodTok, "doc")
	require.NoError(t, err)
	assert.Equal(t, &Target{Type: "method", Name: "run", Descriptor: "()V"}, u.Target)

	u, err = UpdateFor(classTok, "doc")
	require.NoError(t, err)
	assert.Nil(t, u.Target)

	_, err = UpdateFor(token.Token{Type: token.Parameter}, "doc")
	assert.Error(t, err)
}

type backend struct {
	valid     string
	refreshOK bool
	refreshes atomic.Int32
	gets      atomic.Int32
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshes.Add(1)
		if !b.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": b.valid})
	})
	mux.HandleFunc("POST /v1/javadoc/{version}", func(w http.ResponseWriter, r *http.Request) {
		b.gets.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+b.valid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["className"] == "a/Missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(Response{Data: map[string]Entry{
			req["className"]: {Value: "from " + r.PathValue("version"), Methods: map[string]string{"run()V": "Runs."}},
		}})
	})
	return mux
}

func TestClientRefreshesOnceOn401(t *testing.T) {
	b := &backend{valid: "fresh", refreshOK: true}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	c.SetAccessToken("stale")

	resp, err := c.Get(context.Background(), "1.21", "a/B")
	require.NoError(t, err)
	assert.Equal(t, "from 1.21", resp.Data["a/B"].Value)
	assert.Equal(t, int32(1), b.refreshes.Load())
	assert.Equal(t, int32(2), b.gets.Load())
	assert.Equal(t, "fresh", c.AccessToken())
}

func TestClientAuthRequiredWhenRefreshRejected(t *testing.T) {
	b := &backend{valid: "fresh"}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	c.SetAccessToken("stale")

	_, err := c.Get(context.Background(), "1.21", "a/B")
	assert.True(t, errors.Is(err, ErrAuthRequired), "err = %v", err)
	assert.True(t, c.NeedsLogin())
}

func TestClientNotFoundIsEmpty(t *testing.T) {
	b := &backend{valid: "tok"}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	c.SetAccessToken("tok")
	resp, err := c.Get(context.Background(), "1.21", "a/Missing")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestStoreRefreshMergesServerData(t *testing.T) {
	b := &backend{valid: "tok"}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	c.SetAccessToken("tok")
	s := NewStore()
	s.Set(fieldTok, "kept")

	require.NoError(t, s.Refresh(context.Background(), c, "1.21", "a/B.class"))
	doc, ok := s.ForToken(methodTok)
	require.True(t, ok)
	assert.Equal(t, "Runs.", doc)
	_, ok = s.ForToken(fieldTok)
	assert.True(t, ok, "other classes are untouched")

	assert.Error(t, s.Refresh(context.Background(), c, "", "a/B"))
}
