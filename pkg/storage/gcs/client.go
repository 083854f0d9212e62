// Package gcs stores quotation documents in a Cloud Storage bucket through the
// JSON API.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

const (
	storageHost    = "https://storage.googleapis.com"
	requestTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
	maxObjectBytes = 10 << 20
	maxErrorDetail = 512
)

// ErrObjectNotFound is returned by GetObject for a missing object.
var ErrObjectNotFound = errors.New("gcs object not found")

// Client reads and writes objects in one bucket.
type Client struct {
	api    *resty.Client
	auth   *resty.Client
	bucket string
	tokens *tokenCache
}

// Option adjusts a client before it is used.
type Option func(*Client)

// WithEndpoint points the client at another storage host, such as an emulator.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if host := strings.TrimSuffix(strings.TrimSpace(endpoint), "/"); host != "" {
			c.api.SetBaseURL(host)
		}
	}
}

// WithTransport swaps the HTTP transport of both the storage and token calls.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.api.SetTransport(rt)
			c.auth.SetTransport(rt)
		}
	}
}

// NewClient authenticates with the configured credentials and checks that the
// bucket can be listed.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	c := newClient(bucket, opts...)
	fetch, err := fetcherFor(gcp, c.auth)
	if err != nil {
		return nil, err
	}
	c.tokens = newTokenCache(fetch)

	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "gcs client initialized")
	}
	return c, nil
}

func newClient(bucket string, opts ...Option) *Client {
	c := &Client{
		api:    resty.New().SetBaseURL(storageHost).SetTimeout(requestTimeout).SetHeader("Accept", "application/json"),
		auth:   resty.New().SetTimeout(requestTimeout),
		bucket: bucket,
	}
	c.api.SetPathParam("bucket", bucket)
	c.api.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if c.tokens == nil {
			return errors.New("gcs client has no credentials")
		}
		tok, err := c.tokens.get(r.Context())
		if err != nil {
			return err
		}
		r.SetAuthToken(tok)
		return nil
	})
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

func (c *Client) Close() error {
	return nil
}

// Ping lists at most one object, which only needs storage.objects.list.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := c.api.R().
		SetContext(ctx).
		SetQueryParam("maxResults", "1").
		Get("/storage/v1/b/{bucket}/o")
	if err != nil {
		return err
	}
	return expectOK("gcs list", resp)
}

// PutObject uploads data as name, replacing any existing object.
func (c *Client) PutObject(ctx context.Context, name, contentType string, data []byte) error {
	if name == "" {
		return errors.New("gcs object name is required")
	}
	req := c.api.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"uploadType": "media", "name": name}).
		SetContentLength(true).
		SetBody(bytes.NewReader(data))
	if contentType != "" {
		req.SetHeader("Content-Type", contentType)
	}
	resp, err := req.Post("/upload/storage/v1/b/{bucket}/o")
	if err != nil {
		return err
	}
	return expectOK("gcs upload", resp)
}

// GetObject downloads name. The object name is path-escaped, slashes included.
func (c *Client) GetObject(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("object", name).
		SetQueryParam("alt", "media").
		Get("/storage/v1/b/{bucket}/o/{object}")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrObjectNotFound
	}
	if err := expectOK("gcs download", resp); err != nil {
		return nil, err
	}
	body := resp.Body()
	if len(body) > maxObjectBytes {
		return nil, fmt.Errorf("gcs object %s exceeds %d bytes", name, maxObjectBytes)
	}
	return body, nil
}

func expectOK(op string, resp *resty.Response) error {
	if resp.StatusCode() == http.StatusOK {
		return nil
	}
	detail := strings.TrimSpace(string(resp.Body()))
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail]
	}
	if detail == "" {
		return fmt.Errorf("%s: %s", op, resp.Status())
	}
	return fmt.Errorf("%s: %s: %s", op, resp.Status(), detail)
}
