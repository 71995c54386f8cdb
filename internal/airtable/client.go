// Package airtable is a minimal client for the Airtable REST API: paginated
// listing with a field projection and batched record updates. Retry policy is
// intentionally absent; callers decide what a failed call means for them.
package airtable

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
	"time"

	"golang.org/x/time/rate"

	"stampbot/pkg/logx"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Airtable rejects more than 5 requests per second per base.
const defaultRatePerSec = 5

type Config struct {
	APIKey string
	BaseID string

	// BaseURL overrides the API endpoint. Tests only.
	BaseURL string

	RatePerSec int
	Timeout    time.Duration
}

type Client struct {
	httpc   *http.Client
	baseURL string
	apiKey  string
	baseID  string
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("airtable api key is empty")
	}
	if strings.TrimSpace(cfg.BaseID) == "" {
		return nil, errors.New("airtable base id is empty")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = defaultRatePerSec
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		httpc:   &http.Client{Timeout: timeout},
		baseURL: base,
		apiKey:  cfg.APIKey,
		baseID:  cfg.BaseID,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}, nil
}

// APIError is a non-2xx response from Airtable.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("airtable: status %d", e.StatusCode)
	}
	return fmt.Sprintf("airtable: status %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		apiErr.Type = body.Error.Type
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
