package cgv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"cgv_schedule_tracker/internal/domain/schedule"
	"cgv_schedule_tracker/internal/infra/config"
)

const (
	searchSchedulePath = "/cnm/atkt/searchSchByMov"
	restrictScopeCode  = "08"

	requestTimeout      = 30 * time.Second
	maxResponseBodySize = 1 << 20 // 1MB
	maxErrorBodySnippet = 200
)

// browserHeaders mirror what cgv.co.kr sends from a desktop browser.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36",
	"Accept":          "application/json",
	"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
	"Origin":          "https://cgv.co.kr",
	"Referer":         "https://cgv.co.kr/",
}

// StatusError is returned for any non-200, non-401 response.
type StatusError struct {
	StatusCode int
	Body       string // first 200 bytes
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client calls the CGV schedule search API for one movie at one site.
type Client struct {
	httpClient  *http.Client
	signer      *Signer
	baseURL     string
	companyCode string
	siteNo      string
	movieNo     string
	timeout     time.Duration
	now         func() time.Time
}

// NewClient creates a [Client] from the application configuration.
// The request timeout is applied per request via context.
func NewClient(cfg *config.AppConfig) *Client {
	return &Client{
		httpClient:  &http.Client{},
		signer:      NewSigner(cfg.CGVSecretKey),
		baseURL:     cfg.CGVAPIURL,
		companyCode: cfg.CGVCompanyCode,
		siteNo:      cfg.SiteNo,
		movieNo:     cfg.MovieNo,
		timeout:     requestTimeout,
		now:         time.Now,
	}
}

// BuildURL returns the schedule search URL for the given YYYYMMDD date.
func (c *Client) BuildURL(date string) string {
	return fmt.Sprintf("%s%s?coCd=%s&siteNo=%s&scnYmd=%s&movNo=%s&rtctlScopCd=%s",
		c.baseURL, searchSchedulePath,
		url.QueryEscape(c.companyCode),
		url.QueryEscape(c.siteNo),
		url.QueryEscape(date),
		url.QueryEscape(c.movieNo),
		restrictScopeCode,
	)
}

// SearchSchedules fetches the schedules for date.
//
// A 401 is reported as schedule.ErrUnauthorized and an undecodable 200 body
// as schedule.ErrMalformedResponse. Other statuses return a *StatusError.
func (c *Client) SearchSchedules(ctx context.Context, date string) (*schedule.PollResult, error) {
	rawURL := c.BuildURL(date)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse schedule url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}
	// The signature covers the path only, never the query string.
	for key, value := range c.signer.Headers(parsed.Path, c.now()) {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, schedule.ErrUnauthorized
	default:
		snippet := body
		if len(snippet) > maxErrorBodySnippet {
			snippet = snippet[:maxErrorBodySnippet]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	var result schedule.PollResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrMalformedResponse, err)
	}
	return &result, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
