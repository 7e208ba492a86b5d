package track

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RouteResponse is the body of the vehicle route query.
type RouteResponse struct {
	Success bool  `json:"success"`
	Route   Route `json:"route"`
}

// Client fetches routes from a running route service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the service at baseURL (e.g. http://localhost:8080).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchRoute queries GET /api/v1/vehicle/{date}.
func (c *Client) FetchRoute(ctx context.Context, dateKey string) (Route, error) {
	endpoint := fmt.Sprintf("%s/api/v1/vehicle/%s", c.baseURL, url.PathEscape(dateKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrUnexpectedStatus, resp.StatusCode, endpoint)
	}

	var body RouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode route response: %w", err)
	}
	if !body.Success {
		return nil, ErrUnsuccessfulResponse
	}
	if body.Route == nil {
		body.Route = Route{}
	}
	return body.Route, nil
}
