package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

// HTTPSearcher calls the catalog search service over HTTP.
// Requests go through a circuit breaker so a flapping catalog does not
// stall every keystroke in the intake grid.
type HTTPSearcher struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPSearcher creates a catalog search client for the given base URL.
func NewHTTPSearcher(baseURL string) *HTTPSearcher {
	return &HTTPSearcher{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "catalog-search",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

type searchResponse struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	ImageURL string `json:"imageUrl"`
}

// Search queries the catalog service for candidates matching query.
func (c *HTTPSearcher) Search(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.search(ctx, query, limit)
	})
	if err != nil {
		return nil, domain.Unavailable(err, "catalog.search", "Product search is temporarily unavailable")
	}
	return result.([]domain.ProductCandidate), nil
}

func (c *HTTPSearcher) search(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
	u, err := url.Parse(c.baseURL + "/products/search")
	if err != nil {
		return nil, fmt.Errorf("invalid catalog URL: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
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

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("catalog search returned status %d: %s", resp.StatusCode, string(body))
	}

	var rows []searchResponse
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	candidates := make([]domain.ProductCandidate, 0, len(rows))
	for _, r := range rows {
		candidates = append(candidates, domain.ProductCandidate{
			Name:     r.Name,
			Code:     r.Code,
			ImageURL: r.ImageURL,
		})
	}
	return candidates, nil
}
