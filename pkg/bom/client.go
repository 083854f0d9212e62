// Package bom is the HTTP client for the bill-of-materials estimation service.
package bom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 10 * time.Second

// ErrInvalidJobType is returned when the service rejects the job type.
var ErrInvalidJobType = errors.New("invalid job type")

// Line is one material requirement of an estimate.
type Line struct {
	Name string          `json:"name"`
	Unit string          `json:"unit"`
	Qty  decimal.Decimal `json:"qty"`
}

// Estimate is the service response for one job.
type Estimate struct {
	JobType    string          `json:"job_type"`
	Quantity   int             `json:"quantity"`
	Materials  []Line          `json:"materials"`
	LaborHours decimal.Decimal `json:"labor_hours"`
}

// Names lists material names in response order.
func (e *Estimate) Names() []string {
	out := make([]string, 0, len(e.Materials))
	for _, m := range e.Materials {
		out = append(out, m.Name)
	}
	return out
}

// Estimator is the surface the quotation assembler depends on.
type Estimator interface {
	Estimate(ctx context.Context, jobType string, quantity int) (*Estimate, error)
	JobTypes(ctx context.Context) ([]string, error)
}

// StatusError reports a non-success HTTP status from the service.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("bom api status %d", e.Status)
	}
	return fmt.Sprintf("bom api status %d: %s", e.Status, e.Detail)
}

type apiError struct {
	Detail any `json:"detail"`
}

func (a *apiError) message() string {
	if a == nil || a.Detail == nil {
		return ""
	}
	if s, ok := a.Detail.(string); ok {
		return s
	}
	return fmt.Sprint(a.Detail)
}

// Client is a resty-backed Estimator.
type Client struct {
	http *resty.Client
}

// Option configures optional client behavior.
type Option func(*resty.Client)

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *resty.Client) {
		if timeout > 0 {
			c.SetTimeout(timeout)
		}
	}
}

// WithTransport overrides the HTTP transport, used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *resty.Client) {
		if rt != nil {
			c.SetTransport(rt)
		}
	}
}

// NewClient builds a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("bom api base url is required")
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(defaultTimeout)

	for _, opt := range opts {
		if opt != nil {
			opt(restyClient)
		}
	}

	return &Client{http: restyClient}, nil
}

// Estimate requests the materials and labor for quantity units of jobType.
func (c *Client) Estimate(ctx context.Context, jobType string, quantity int) (*Estimate, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	payload := map[string]any{
		"job_type": NormalizeJobType(jobType),
		"quantity": quantity,
	}

	result := new(Estimate)
	apiErr := new(apiError)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post("/estimate")
	if err != nil {
		return nil, fmt.Errorf("bom estimate: %w", err)
	}

	if resp.StatusCode() == http.StatusBadRequest {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidJobType, jobType, apiErr.message())
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, &StatusError{Status: resp.StatusCode(), Detail: apiErr.message()}
	}

	return result, nil
}

// JobTypes lists the job types the service can estimate.
func (c *Client) JobTypes(ctx context.Context) ([]string, error) {
	var out []string
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/job-types")
	if err != nil {
		return nil, fmt.Errorf("bom job types: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, &StatusError{Status: resp.StatusCode()}
	}
	return out, nil
}

// Ping reports whether the service answers with a non-empty job type list.
func (c *Client) Ping(ctx context.Context) error {
	types, err := c.JobTypes(ctx)
	if err != nil {
		return err
	}
	if len(types) == 0 {
		return errors.New("bom api returned no job types")
	}
	return nil
}

// NormalizeJobType lowercases and replaces spaces with underscores.
func NormalizeJobType(jobType string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(jobType)), " ", "_")
}
