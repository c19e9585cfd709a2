package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// requestTimeout bounds every outbound call so one unresponsive remote
// cannot stall a search indefinitely.
const requestTimeout = 10 * time.Second

// apiClient issues rate-limited JSON requests to one upstream API.
// The limiter enforces the provider's minimum inter-request spacing;
// it is private per client instance.
type apiClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newAPIClient(spacing time.Duration) *apiClient {
	return &apiClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(spacing), 1),
	}
}

// getJSON performs a GET with query parameters and decodes the JSON
// body into v.
func (c *apiClient) getJSON(ctx context.Context, rawURL string, params url.Values, header http.Header, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	return c.do(req, v)
}

// postForm performs a form-encoded POST and decodes the JSON body
// into v.
func (c *apiClient) postForm(ctx context.Context, rawURL string, form url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, v)
}

func (c *apiClient) do(req *http.Request, v any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
