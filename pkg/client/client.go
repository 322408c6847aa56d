// Package client is a Go client for the campus feed API. It injects the bearer token,
// refreshes an expired access token once per failed request and coalesces concurrent
// refreshes into a single call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Envelope codes.
const (
	CodeSuccess = "1"
	CodeFailure = "0"
	CodeSystem  = "-1"
)

// ErrSessionExpired means the refresh token was rejected and the user must log in again.
var ErrSessionExpired = errors.New("session expired, please log in again")

// Envelope is the JSON wrapper of every API response.
type Envelope struct {
	Code         string          `json:"code"`
	Msg          string          `json:"msg"`
	Data         json.RawMessage `json:"data"`
	ErrorType    string          `json:"errorType,omitempty"`
	AccessToken  string          `json:"accessToken,omitempty"`
	RefreshToken string          `json:"refreshToken,omitempty"`
}

// APIError is a failure envelope, or a non-JSON error response.
type APIError struct {
	StatusCode int
	Code       string
	ErrorType  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.ErrorType, e.StatusCode)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// Client talks to one API server.
type Client struct {
	baseURL string
	http    *http.Client
	session SessionStore
	refresh singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithSessionStore(s SessionStore) Option {
	return func(c *Client) { c.session = s }
}

// New returns a client for baseURL, e.g. "http://localhost:3000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the store holding the current tokens.
func (c *Client) Session() SessionStore {
	return c.session
}

// request is a replayable API call.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	auth        bool
}

func jsonRequest(method, path string, payload any, auth bool) (request, error) {
	r := request{method: method, path: path, auth: auth}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return r, fmt.Errorf("encode request: %w", err)
		}
		r.body = raw
		r.contentType = "application/json"
	}
	return r, nil
}

// call performs r and decodes the envelope data into out (when non-nil). An
// authenticated request that gets a 401 triggers one refresh and one retry.
func (c *Client) call(ctx context.Context, r request, out any) (*Envelope, error) {
	token := ""
	if r.auth {
		token = c.session.Tokens().AccessToken
		if token == "" {
			return nil, ErrSessionExpired
		}
	}

	status, env, err := c.send(ctx, r, token)
	if err != nil {
		return nil, err
	}

	if r.auth && status == http.StatusUnauthorized {
		fresh, err := c.refreshTokens(ctx, token)
		if err != nil {
			return nil, err
		}
		status, env, err = c.send(ctx, r, fresh.AccessToken)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			_ = c.session.Clear()
			return nil, ErrSessionExpired
		}
	}

	if env.Code != CodeSuccess {
		msg := env.Msg
		if msg == "" {
			msg = http.StatusText(status)
		}
		return env, &APIError{StatusCode: status, Code: env.Code, ErrorType: env.ErrorType, Message: msg}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env, fmt.Errorf("decode %s %s response: %w", r.method, r.path, err)
		}
	}
	return env, nil
}

func (c *Client) send(ctx context.Context, r request, token string) (int, *Envelope, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	env := &Envelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		// Proxies and the static handler can answer with non-JSON bodies.
		env = &Envelope{Code: CodeSystem, Msg: strings.TrimSpace(string(raw))}
	}
	return resp.StatusCode, env, nil
}

// refreshTokens exchanges the refresh token for a new pair. Concurrent callers share one
// in-flight refresh; a caller whose stale token was already replaced reuses the new pair.
// The shared refresh outlives any one caller's cancellation; each caller still stops
// waiting when its own ctx is done.
func (c *Client) refreshTokens(ctx context.Context, stale string) (Tokens, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.refresh.DoChan("refresh", func() (any, error) {
		current := c.session.Tokens()
		if current.AccessToken != "" && current.AccessToken != stale {
			return current, nil
		}
		if current.RefreshToken == "" {
			_ = c.session.Clear()
			return Tokens{}, ErrSessionExpired
		}

		r, err := jsonRequest(http.MethodPost, "/user/refresh", map[string]string{
			"refreshToken": current.RefreshToken,
		}, false)
		if err != nil {
			return Tokens{}, err
		}
		status, env, err := c.send(shared, r, "")
		if err != nil {
			return Tokens{}, err
		}
		if status != http.StatusOK || env.Code != CodeSuccess || env.AccessToken == "" {
			_ = c.session.Clear()
			return Tokens{}, ErrSessionExpired
		}

		fresh := Tokens{AccessToken: env.AccessToken, RefreshToken: env.RefreshToken}
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = current.RefreshToken
		}
		if err := c.session.SetTokens(fresh); err != nil {
			return Tokens{}, err
		}
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return Tokens{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Tokens{}, res.Err
		}
		return res.Val.(Tokens), nil
	}
}
