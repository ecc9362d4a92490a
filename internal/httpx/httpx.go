package httpx

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// DefaultUserAgent mimics a desktop browser; quote pages serve a reduced
// layout to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

// MaxBodySize caps how much of a page is read. Larger bodies are rejected
// with ErrBodyTooLarge rather than truncated.
const MaxBodySize = 8 << 20

// Doer describes an HTTP client.
//
//go:generate mockgen -package=httpx_test -destination=mock_doer_test.go -source=httpx.go Doer
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a small wrapper around http.Client with sane defaults.
// Every request bypasses caches so each poll reaches the origin.
type Client struct {
	HTTP      Doer
	UserAgent string
	Headers   map[string]string
}

func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: DefaultUserAgent}
}

func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	return c.HTTP.Do(req)
}

// Get fetches url and returns the body as UTF-8 text.
// Errors are *TransportError, *StatusError or *DecodingError.
func (c *Client) Get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	res, err := c.Do(ctx, req)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		return "", &StatusError{URL: url, Code: res.StatusCode}
	}

	b, err := io.ReadAll(io.LimitReader(res.Body, MaxBodySize+1))
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	if len(b) > MaxBodySize {
		return "", &TransportError{URL: url, Err: ErrBodyTooLarge}
	}
	return decode(b, res.Header.Get("Content-Type"))
}

// decode converts b to UTF-8 using the charset from contentType.
// A missing charset means UTF-8.
func decode(b []byte, contentType string) (string, error) {
	label := ""
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			label = strings.ToLower(strings.TrimSpace(params["charset"]))
		}
	}
	if label != "" && label != "utf-8" && label != "utf8" {
		r, err := charset.NewReaderLabel(label, bytes.NewReader(b))
		if err != nil {
			return "", &DecodingError{Charset: label, Err: err}
		}
		converted, err := io.ReadAll(r)
		if err != nil {
			return "", &DecodingError{Charset: label, Err: err}
		}
		b = converted
	}
	if !utf8.Valid(b) {
		if label == "" {
			label = "utf-8"
		}
		return "", &DecodingError{Charset: label}
	}
	return string(b), nil
}
