package sitefinder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GreenHydrogen/H2-Backend/internal/geo"
	"github.com/GreenHydrogen/H2-Backend/internal/mlproxy"
)

// Predictor asks the backend for site recommendations.
type Predictor interface {
	Predict(ctx context.Context, name string, p geo.Polygon) (*mlproxy.PredictResponse, error)
}

// APIError is a non-2xx reply from the backend.
type APIError struct {
	Status    int
	Message   string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("%s (HTTP %d, retry later)", e.Message, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Client talks to a running H2 backend.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Predict(ctx context.Context, name string, p geo.Polygon) (*mlproxy.PredictResponse, error) {
	coords, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	mlInput, err := json.Marshal(p.Tuples())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(mlproxy.PredictRequest{
		Coordinates: coords,
		PolygonName: name,
		Area:        geo.AreaKm2(p),
		PointCount:  len(p),
		MLInput:     mlInput,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/ml/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend unreachable: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return nil, decodeAPIError(res)
	}

	var out mlproxy.PredictResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func decodeAPIError(res *http.Response) error {
	var body struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	}
	e := &APIError{Status: res.StatusCode, Message: http.StatusText(res.StatusCode)}
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil {
		e.Retryable = body.Retryable
		switch {
		case body.Message != "":
			e.Message = body.Message
		case body.Error != "":
			e.Message = body.Error
		}
	}
	return e
}

// Health returns the backend's view of the ML service.
func (c *Client) Health(ctx context.Context) (json.RawMessage, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/ml/health", nil)
	if err != nil {
		return nil, 0, err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("backend unreachable: %w", err)
	}
	defer res.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, res.StatusCode, fmt.Errorf("decode health: %w", err)
	}
	return raw, res.StatusCode, nil
}
