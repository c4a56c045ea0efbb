package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

// HTTPGeocoder calls the geocoding service over HTTP.
type HTTPGeocoder struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPGeocoder creates a geocoding client for the given base URL.
func NewHTTPGeocoder(baseURL string) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "geocoder",
			Timeout: 20 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNoMatch)
			},
		}),
	}
}

type geocodeResponse struct {
	FormattedAddress string  `json:"formattedAddress"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// Resolve returns the best match for query, or ErrNoMatch when the
// service has nothing. A no-match does not count against the breaker.
func (c *HTTPGeocoder) Resolve(ctx context.Context, query string) (*Result, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.resolve(ctx, query)
	})
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			return nil, ErrNoMatch
		}
		return nil, domain.Unavailable(err, "geocode.resolve", "Address lookup is temporarily unavailable")
	}
	return result.(*Result), nil
}

func (c *HTTPGeocoder) resolve(ctx context.Context, query string) (*Result, error) {
	u, err := url.Parse(c.baseURL + "/geocode")
	if err != nil {
		return nil, fmt.Errorf("invalid geocoder URL: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoMatch
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("geocoder returned status %d: %s", resp.StatusCode, string(body))
	}

	if len(body) == 0 || string(body) == "null" {
		return nil, ErrNoMatch
	}

	var decoded geocodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if decoded.FormattedAddress == "" {
		return nil, ErrNoMatch
	}

	return &Result{
		FormattedAddress: decoded.FormattedAddress,
		Lat:              decoded.Lat,
		Lng:              decoded.Lng,
	}, nil
}
