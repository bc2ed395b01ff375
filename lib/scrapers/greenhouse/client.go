// Package greenhouse scrapes a Greenhouse-style job board through its
// public JSON API: one listing call, then one detail call per posting.
// No HTML is touched; the JSON API powering the career site is faster,
// less brittle and friendlier to the website.
package greenhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hirewatch-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/semaphore"
)

var tracer = otel.Tracer("scrapers/greenhouse")

const (
	DefaultBaseURL     = "https://boards-api.greenhouse.io/v1/boards"
	DefaultConcurrency = 5

	// 3 attempts total; wait doubles from 0.5s with up to 0.5s of
	// jitter so concurrent callers don't resynchronize.
	maxAttempts    = 3
	backoffInitial = 500 * time.Millisecond
	requestTimeout = 30 * time.Second
)

// a small rotation of realistic desktop user-agent strings.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

func randomUserAgent() string {
	idx, err := random.IntRange(0, len(userAgents))
	if err != nil {
		return userAgents[0]
	}
	return userAgents[idx]
}

type Config struct {
	// BaseURL of the boards API, without a trailing slash.
	BaseURL string `json:"base_url"`
	// Board is the board token, e.g. "upstart".
	Board string `json:"board"`
	// Concurrency caps simultaneous in-flight requests.
	Concurrency int64 `json:"concurrency"`
}

// Client fetches board payloads with retries and backoff. It imposes no
// concurrency limit of its own; every call goes through the weighted
// semaphore the caller passes in.
type Client struct {
	http    *resty.Client
	baseURL string
	board   string
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New()
	client.SetTimeout(requestTimeout)
	client.SetRetryCount(maxAttempts - 1)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		// 429 is a rate-limit signal worth waiting out; other HTTP
		// errors are not retried.
		return res.StatusCode() == http.StatusTooManyRequests
	})
	client.SetRetryAfter(func(_ *resty.Client, res *resty.Response) (time.Duration, error) {
		attempt := 1
		if res != nil && res.Request != nil && res.Request.Attempt > 0 {
			attempt = res.Request.Attempt
		}
		wait := backoffInitial << (attempt - 1)
		jitterMs, err := random.IntRange(0, 500)
		if err == nil {
			wait += time.Duration(jitterMs) * time.Millisecond
		}
		return wait, nil
	})
	telemetry.InstrumentResty(client, "scrapers/greenhouse/http")

	return &Client{
		http:    client,
		baseURL: baseURL,
		board:   cfg.Board,
	}
}

// Stub is one entry of the listing payload: just enough to schedule a
// detail fetch.
type Stub struct {
	ID string
}

func (c *Client) FetchList(ctx context.Context, limit *semaphore.Weighted) ([]Stub, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=false", c.baseURL, c.board)
	payload, err := c.fetchJSON(ctx, limit, url)
	if err != nil {
		return nil, err
	}

	jobs, ok := payload["jobs"].([]any)
	if !ok {
		return nil, nil
	}
	stubs := make([]Stub, 0, len(jobs))
	for _, item := range jobs {
		job, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := job["id"]
		if !ok {
			continue
		}
		stubs = append(stubs, Stub{ID: formatID(id)})
	}
	return stubs, nil
}

func (c *Client) FetchDetail(ctx context.Context, limit *semaphore.Weighted, id string) (map[string]any, error) {
	url := fmt.Sprintf("%s/%s/jobs/%s?content=true", c.baseURL, c.board, id)
	return c.fetchJSON(ctx, limit, url)
}

func (c *Client) fetchJSON(ctx context.Context, limit *semaphore.Weighted, url string) (map[string]any, error) {
	if err := limit.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer limit.Release(1)

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", randomUserAgent()).
		Get(url)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode())
	}

	var payload map[string]any
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return payload, nil
}

// ids arrive as JSON numbers; render them without a float suffix so they
// slot into the detail URL.
func formatID(v any) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.0f", x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
