package mlproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/GreenHydrogen/H2-Backend/internal/metrics"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 8 << 20

var errBreakerOpen = errors.New("circuit breaker open")

// Recommender is the external ML service as seen by the handlers.
type Recommender interface {
	Recommend(ctx context.Context, points [][2]float64) (*UpstreamResult, error)
	Health(ctx context.Context) (json.RawMessage, error)
	BaseURL() string
}

// Options tune the upstream client. Zero values take the defaults.
type Options struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryInterval   time.Duration
	BreakerFailures int
	BreakerOpenFor  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 500 * time.Millisecond
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerOpenFor <= 0 {
		o.BreakerOpenFor = 30 * time.Second
	}
	return o
}

// Client calls POST {base}/recommend_sites. Connection failures are retried
// with exponential backoff; every other failure is final. A circuit breaker
// fails calls fast while the service keeps failing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	opts       Options
}

// NewClient creates a client for the ML service rooted at baseURL.
func NewClient(baseURL string, opts Options) *Client {
	opts = opts.withDefaults()
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		opts: opts,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ml-service",
		Timeout: opts.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(opts.BreakerFailures)
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[mlproxy] breaker %s: %s -> %s", name, from, to)
			metrics.BreakerState.Set(float64(to))
		},
	})
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// countsAsSuccess keeps caller mistakes (4xx) from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) && errors.Is(ue.Kind, ErrUpstreamStatus) {
		return ue.Status < 500
	}
	return errors.Is(err, context.Canceled)
}

// Recommend sends the polygon points, as [lat, lng] pairs, to the ML service.
func (c *Client) Recommend(ctx context.Context, points [][2]float64) (*UpstreamResult, error) {
	start := time.Now()
	body, err := json.Marshal(recommendRequest{PolygonPoints: points})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := c.baseURL + "/recommend_sites"
	log.Printf("[mlproxy] POST %s points=%d", url, len(points))

	var result *UpstreamResult
	op := func() error {
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.post(ctx, url, body)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(&UpstreamError{Kind: ErrUnreachable, URL: c.baseURL, Err: errBreakerOpen})
		}
		if err != nil {
			if errors.Is(err, ErrUnreachable) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = res.(*UpstreamResult)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.RetryInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.opts.MaxRetries)), ctx)

	err = backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		metrics.MLRetries.Inc()
		log.Printf("[mlproxy] retrying in %s: %v", wait, err)
	})
	if err != nil && !isUpstreamError(err) {
		err = c.classify(err)
	}

	metrics.MLLatency.Observe(time.Since(start).Seconds())
	metrics.MLRequests.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		log.Printf("[mlproxy] recommend error: %v", err)
		return nil, err
	}
	log.Printf("[mlproxy] response sites=%d duration=%dms",
		len(result.RecommendedSites), time.Since(start).Milliseconds())
	return result, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*UpstreamResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			Kind:   ErrUpstreamStatus,
			URL:    c.baseURL,
			Status: resp.StatusCode,
			Detail: upstreamDetail(data, resp.StatusCode),
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &UpstreamError{Kind: ErrInvalidResult, URL: c.baseURL}
	}
	var out UpstreamResult
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, &UpstreamError{Kind: ErrInvalidResult, URL: c.baseURL, Err: err}
	}
	return &out, nil
}

// Health fetches {base}/health and returns its JSON body.
func (c *Client) Health(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.classify(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Kind: ErrUpstreamStatus, URL: c.baseURL, Status: resp.StatusCode, Detail: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	if !json.Valid(data) {
		return nil, &UpstreamError{Kind: ErrInvalidResult, URL: c.baseURL}
	}
	return data, nil
}

// classify sorts transport errors into timeouts and unreachable hosts.
// Caller cancellation is returned unchanged.
func (c *Client) classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &UpstreamError{Kind: ErrTimeout, URL: c.baseURL, Err: err}
	}
	return &UpstreamError{Kind: ErrUnreachable, URL: c.baseURL, Err: err}
}

func isUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// upstreamDetail picks detail, then message, from an error body.
func upstreamDetail(body []byte, status int) string {
	var e struct {
		Detail  interface{} `json:"detail"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		if s := string(bytes.TrimSpace(body)); s != "" {
			return s
		}
		return fmt.Sprintf("HTTP %d", status)
	}
	switch d := e.Detail.(type) {
	case string:
		if d != "" {
			return d
		}
	case nil:
	default:
		if b, err := json.Marshal(d); err == nil {
			return string(b)
		}
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", status)
}
