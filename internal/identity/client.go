package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPResolver fetches the current seller from the identity service.
// No circuit breaker here: the call happens once per session and the
// caller already falls back to PlaceholderSeller on any failure.
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPResolver creates an identity client for the given base URL.
func NewHTTPResolver(baseURL string) *HTTPResolver {
	return &HTTPResolver{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sellerResponse struct {
	Name string `json:"name"`
}

// CurrentSeller returns the seller's display name.
func (c *HTTPResolver) CurrentSeller(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("identity service returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded sellerResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if decoded.Name == "" {
		return "", fmt.Errorf("identity service returned an empty seller name")
	}
	return decoded.Name, nil
}
