package javadoc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"mcsrc/internal/token"
)

// ErrAuthRequired means the refresh token was rejected and the user has to
// log in again.
var ErrAuthRequired = errors.New("javadoc: authentication required")

// Entry is the server representation of one class.
type Entry struct {
	Value   string            `json:"value"`
	Methods map[string]string `json:"methods"`
	Fields  map[string]string `json:"fields"`
}

type Response struct {
	Data map[string]Entry `json:"data"`
}

// Target selects a member for an update. A nil target documents the class.
type Target struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

type UpdateRequest struct {
	ClassName     string  `json:"className"`
	Target        *Target `json:"target"`
	Documentation string  `json:"documentation"`
}

// UpdateFor builds the request that documents the symbol t names.
func UpdateFor(t token.Token, doc string) (UpdateRequest, error) {
	u := UpdateRequest{ClassName: t.ClassName, Documentation: doc}
	switch t.Type {
	case token.Class:
	case token.Method, token.Field:
		u.Target = &Target{Type: string(t.Type), Name: t.Name, Descriptor: t.Descriptor}
	default:
		return UpdateRequest{}, fmt.Errorf("javadoc: %s tokens cannot be documented", t.Type)
	}
	return u, nil
}

// Client talks to the javadoc editor backend. The refresh credential travels
// as a cookie, so http should carry a cookie jar.
type Client struct {
	http    *http.Client
	baseURL string

	mu          sync.RWMutex
	accessToken string
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Client) SetAccessToken(tok string) {
	c.mu.Lock()
	c.accessToken = tok
	c.mu.Unlock()
}

// NeedsLogin reports whether no access token is held.
func (c *Client) NeedsLogin() bool { return c.AccessToken() == "" }

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("javadoc: %s: unexpected status %s: %s", op, resp.Status, strings.TrimSpace(string(body)))
}

// GithubLoginURL returns the URL that starts the OAuth login.
func (c *Client) GithubLoginURL(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/auth/github", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", statusError("login url", resp)
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("javadoc: decode login url: %w", err)
	}
	return out.URL, nil
}

// Refresh exchanges the refresh cookie for a new access token.
func (c *Client) Refresh(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/auth/refresh", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		c.SetAccessToken("")
		return ErrAuthRequired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("refresh", resp)
	}
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("javadoc: decode refresh: %w", err)
	}
	c.SetAccessToken(out.AccessToken)
	return nil
}

// do sends an authenticated request. A 401 triggers one refresh and one
// retry with the new token.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	send := func() (*http.Response, error) {
		tok := c.AccessToken()
		if tok == "" {
			return nil, ErrAuthRequired
		}
		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		return c.http.Do(req)
	}
	resp, err := send()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return send()
}

// CheckStatus reports whether the current token is accepted.
func (c *Client) CheckStatus(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/auth/check", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func versionPath(version string) string {
	return "/v1/javadoc/" + url.PathEscape(version)
}

// Get fetches the docs of className. A 404 yields an empty response.
func (c *Client) Get(ctx context.Context, version, className string) (Response, error) {
	body, _ := json.Marshal(map[string]string{"className": className})
	resp, err := c.do(ctx, http.MethodPost, versionPath(version), body)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Response{Data: map[string]Entry{}}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, statusError("get", resp)
	}
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("javadoc: decode: %w", err)
	}
	if out.Data == nil {
		out.Data = map[string]Entry{}
	}
	return out, nil
}

// Update persists one doc string.
func (c *Client) Update(ctx context.Context, version string, u UpdateRequest) error {
	body, err := json.Marshal(u)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPatch, versionPath(version), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("update", resp)
	}
	return nil
}
