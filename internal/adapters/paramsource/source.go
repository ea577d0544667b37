// Package paramsource fetches hyperparameter override documents.
package paramsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/knadh/koanf/providers/file"
)

// Default limits for remote documents.
const (
	defaultHTTPTimeout = 5 * time.Second
	maxDocumentBytes   = 1 << 20
)

// Sentinel error kinds for this package.
var (
	ErrStatus   = errors.New("unexpected status fetching hyperparameters")
	ErrTooLarge = errors.New("hyperparameter document too large")
)

// File reads an override document from disk on every fetch.
type File struct {
	path string
}

// NewFile creates a file-backed source.
func NewFile(path string) *File { return &File{path: path} }

// Fetch implements hyperparams.Source.
func (f *File) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return file.Provider(f.path).ReadBytes()
}

// HTTP fetches an override document with a GET request.
type HTTP struct {
	url    string
	client *http.Client
}

// Option applies a configuration option to the HTTP source.
type Option func(*HTTP)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) {
		if d > 0 {
			h.client = &http.Client{Timeout: d}
		}
	}
}

// NewHTTP creates a URL-backed source.
func NewHTTP(url string, opts ...Option) *HTTP {
	h := &HTTP{url: url, client: &http.Client{Timeout: defaultHTTPTimeout}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Fetch implements hyperparams.Source.
func (h *HTTP) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxDocumentBytes {
		return nil, ErrTooLarge
	}
	return body, nil
}
