// Package docs is a client for the authority's document HTTP API.
package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"collabtext/pkg/errors"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultTLSTimeout     = 5 * time.Second
)

// RequestIDHeader carries a per-request identifier, for correlating logs on
// both sides.
const RequestIDHeader = "X-Request-Id"

// Document is a document as returned by the authority.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Text    string `json:"text"`
	Version int    `json:"version"`
}

// StatusError is returned when the authority answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Detail     string
}

func (err StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", err.Method, err.URL, err.StatusCode)
	if err.Detail != "" {
		msg += ": " + err.Detail
	}
	return msg
}

// Client talks to one authority.
type Client struct {
	origin string
	http   *http.Client
}

// NewClient creates a client for the authority at origin, e.g.
// "https://collab.example.com".
func NewClient(origin string) *Client {
	return NewClientWithHTTP(origin, defaultHTTPClient())
}

// NewClientWithHTTP creates a client that sends its requests through
// httpClient.
func NewClientWithHTTP(origin string, httpClient *http.Client) *Client {
	return &Client{origin: strings.TrimRight(origin, "/"), http: httpClient}
}

func defaultHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: defaultConnectTimeout}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: defaultTLSTimeout,
		},
		Timeout: defaultTimeout,
	}
}

// Create creates an empty document with the given title. The authority picks
// the identifier.
func (c *Client) Create(ctx context.Context, title string) (Document, error) {
	var doc Document
	err := c.do(ctx, http.MethodPost, "/v1/docs", map[string]string{"title": title}, &doc)
	if err != nil {
		return Document{}, errors.WithContext(err, "create document")
	}
	if doc.ID == "" {
		return Document{}, errors.MissingFieldError{Field: "id"}
	}
	return doc, nil
}

// Get fetches the current text and version of a document.
func (c *Client) Get(ctx context.Context, id string) (Document, error) {
	if id == "" {
		return Document{}, errors.New("document identifier is empty")
	}
	var doc Document
	if err := c.do(ctx, http.MethodGet, "/v1/docs/"+id, nil, &doc); err != nil {
		return Document{}, errors.WithContext(err, "get document "+id)
	}
	return doc, nil
}

// Health checks that the authority is up.
func (c *Client) Health(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &status); err != nil {
		return errors.WithContext(err, "health check")
	}
	if status.Status != "ok" {
		return errors.New("authority reported status %q", status.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.WithContext(err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}

	url := c.origin + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WithContext(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail struct {
			Detail string `json:"detail"`
		}
		json.Unmarshal(data, &detail)
		return StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Detail: detail.Detail}
	}

	if err := json.Unmarshal(data, result); err != nil {
		return errors.WithContext(err, "decode response")
	}
	return nil
}
