// Package api is the REST client for the documentation service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000/api"
	DefaultTimeout = 30 * time.Second

	headerModelStatus = "x-model-status"
	headerRequestID   = "X-Request-ID"
)

// Client talks to the documentation service. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     *zap.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithTimeout bounds every call except generation. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// call describes one request.
type call struct {
	method string
	path   string
	query  url.Values
	header http.Header
	// body is JSON-encoded unless it is a *multipartBody.
	body any
	// noTimeout skips the client timeout; the caller's ctx still applies.
	noTimeout bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, cl call, out any) (*response, error) {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return nil, err
	}
	if out != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return resp, fmt.Errorf("decode %s %s: %w", cl.method, cl.path, err)
		}
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, cl call) (*response, error) {
	if !cl.noTimeout && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch b := cl.body.(type) {
	case nil:
	case *multipartBody:
		buf, ct, err := b.encode()
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		body, contentType = bytes.NewReader(raw), "application/json"
	}

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	for k, vs := range cl.header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", cl.method), zap.String("path", cl.path),
			zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", cl.method, cl.path, err)
	}
	c.log.Debug("request",
		zap.String("method", cl.method), zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", requestID))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode:  resp.StatusCode,
			Detail:      parseDetail(raw),
			ModelStatus: strings.ToLower(strings.TrimSpace(resp.Header.Get(headerModelStatus))),
			Method:      cl.method,
			Path:        cl.path,
		}
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: raw}, nil
}

type formFile struct {
	field    string
	filename string
	content  io.Reader
}

type multipartBody struct {
	files []formFile
}

func (m *multipartBody) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range m.files {
		part, err := w.CreateFormFile(f.field, path.Base(f.filename))
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.content); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", f.filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func seg(s string) string { return url.PathEscape(strings.TrimSpace(s)) }

// filenameFromDisposition extracts the filename of a Content-Disposition
// header, or "".
func filenameFromDisposition(h string) string {
	if h == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(h)
	if err != nil {
		return ""
	}
	return params["filename"]
}
