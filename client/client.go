// Package client is the Go SDK for the OTA Fleet API. Every call
// returns either a decoded payload or an *Error carrying a stable
// code, so callers never have to distinguish transport failures from
// server-side rejections themselves.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds every request that arrives without its own
// deadline.
const DefaultTimeout = 30 * time.Second

// Error codes synthesized by the client for failures the server never
// saw. Server-side failures keep the server's own code; a non-2xx
// response without a code becomes HTTP_<status>.
const (
	CodeTimeout      = "TIMEOUT"
	CodeNetworkError = "NETWORK_ERROR"
)

// Error is the single failure type of the SDK
type Error struct {
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client talks to an OTA Fleet server. The access token lives in
// memory and is mirrored to the credential store so a new process can
// resume the session.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialStore

	mu          sync.RWMutex
	accessToken string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCredentialStore sets the durable credential store. Defaults to
// an in-memory store that forgets everything at process exit.
func WithCredentialStore(store CredentialStore) Option {
	return func(c *Client) { c.creds = store }
}

// New creates a client for the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		creds:   NewMemStore(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if creds, err := c.creds.Load(); err == nil && creds != nil {
		c.accessToken = creds.AccessToken
	}
	return c
}

// SetAccessToken installs a bearer token for subsequent requests and
// mirrors it to the credential store.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()

	creds, err := c.creds.Load()
	if err != nil || creds == nil {
		creds = &Credentials{}
	}
	creds.AccessToken = token
	c.creds.Save(creds)
}

// ClearTokens drops the in-memory token and the stored credentials
func (c *Client) ClearTokens() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
	c.creds.Clear()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// envelope mirrors the server's response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
}

// do performs a JSON request and decodes the envelope into out. All
// failure modes surface as *Error: deadline expiry as TIMEOUT, other
// transport faults as NETWORK_ERROR, and server failures under the
// server's code or HTTP_<status> when it sent none.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Code: CodeNetworkError, Message: fmt.Sprintf("failed to encode request: %v", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, cancel, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	defer cancel()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	return c.decode(resp, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, context.CancelFunc, error) {
	cancel := func() {}
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		cancel()
		return nil, nil, &Error{Code: CodeNetworkError, Message: err.Error()}
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, cancel, nil
}

// decode turns an HTTP response into a payload or an *Error. The
// envelope's success flag is authoritative; the HTTP status only fills
// in when the body carries no error code.
func (c *Client) decode(resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &Error{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: fmt.Sprintf("malformed response (status %d)", resp.StatusCode),
		}
	}

	if !env.Success {
		apiErr := &Error{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: fmt.Sprintf("request failed with status %d", resp.StatusCode),
		}
		if env.Error != nil {
			if env.Error.Code != "" {
				apiErr.Code = env.Error.Code
			}
			if env.Error.Message != "" {
				apiErr.Message = env.Error.Message
			}
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{
				Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
				Message: fmt.Sprintf("malformed payload: %v", err),
			}
		}
	}
	return nil
}

// transportError classifies a failed round trip
func transportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeTimeout, Message: "request timed out"}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Code: CodeTimeout, Message: "request timed out"}
	}
	return &Error{Code: CodeNetworkError, Message: err.Error()}
}

// upload performs a multipart request with the same normalization as
// do.
func (c *Client) upload(ctx context.Context, path, filename string, content io.Reader, fields map[string]string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return &Error{Code: CodeNetworkError, Message: err.Error()}
	}
	if _, err := io.Copy(part, content); err != nil {
		return &Error{Code: CodeNetworkError, Message: err.Error()}
	}
	for key, value := range fields {
		w.WriteField(key, value)
	}
	if err := w.Close(); err != nil {
		return &Error{Code: CodeNetworkError, Message: err.Error()}
	}

	req, cancel, reqErr := c.newRequest(ctx, http.MethodPost, path, &buf)
	if reqErr != nil {
		return reqErr
	}
	defer cancel()
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	return c.decode(resp, out)
}

// Download fetches raw bytes from an artifact URL. The URL may be a
// server-relative path or an absolute external one; the bearer token
// is attached only when the target lives under the client's own base
// URL, so credentials never leak to third-party hosts. Unlike the JSON
// surface, a non-2xx status is returned as an error directly; there is
// no envelope on binary endpoints.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	target := rawURL
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		target = c.baseURL + rawURL
	}

	cancel := func() {}
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Code: CodeNetworkError, Message: err.Error()}
	}
	if token := c.token(); token != "" && strings.HasPrefix(target, c.baseURL+"/") {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: fmt.Sprintf("download failed with status %d", resp.StatusCode),
		}
	}
	return io.ReadAll(resp.Body)
}

// get is a convenience wrapper adding query parameters
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, out)
}
