// Package client calls the grading API and checks every response against
// pkg/contract before returning it.
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

	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

var ErrNotFound = errors.New("report not found")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api error %d: %s (field %s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends the token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the server at baseURL. Grading waits on the AI
// provider, so the default timeout is generous.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Grade validates req locally, so a malformed request never reaches the
// server.
func (c *Client) Grade(ctx context.Context, req contract.GradeRequest) (*contract.Report, error) {
	if verr := req.Validate(); verr != nil {
		return nil, &APIError{StatusCode: http.StatusBadRequest, Message: verr.Message, Field: verr.Field}
	}
	var report contract.Report
	if err := c.do(ctx, contract.Routes.Grade, nil, req, http.StatusCreated, &report); err != nil {
		return nil, err
	}
	if err := contract.ValidateReport(report); err != nil {
		return nil, fmt.Errorf("invalid grade response: %w", err)
	}
	return &report, nil
}

func (c *Client) ListReports(ctx context.Context) ([]contract.Report, error) {
	var reports []contract.Report
	if err := c.do(ctx, contract.Routes.List, nil, nil, http.StatusOK, &reports); err != nil {
		return nil, err
	}
	for i := range reports {
		if err := contract.ValidateReport(reports[i]); err != nil {
			return nil, fmt.Errorf("invalid report at index %d: %w", i, err)
		}
	}
	if reports == nil {
		reports = []contract.Report{}
	}
	return reports, nil
}

// GetReport returns an error matching ErrNotFound for missing reports.
func (c *Client) GetReport(ctx context.Context, id uint) (*contract.Report, error) {
	var report contract.Report
	if err := c.do(ctx, contract.Routes.Get, map[string]any{"id": id}, nil, http.StatusOK, &report); err != nil {
		return nil, err
	}
	if err := contract.ValidateReport(report); err != nil {
		return nil, fmt.Errorf("invalid report response: %w", err)
	}
	return &report, nil
}

func (c *Client) Health(ctx context.Context) (*contract.HealthResponse, error) {
	var health contract.HealthResponse
	if err := c.do(ctx, contract.Routes.Health, nil, nil, http.StatusOK, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) do(ctx context.Context, route contract.Route, params map[string]any, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := c.baseURL + contract.BuildURL(route.Path, params)
	req, err := http.NewRequestWithContext(ctx, route.Method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var verr contract.ValidationError
		if json.Unmarshal(respBody, &verr) == nil && verr.Message != "" {
			apiErr.Message = verr.Message
			apiErr.Field = verr.Field
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
