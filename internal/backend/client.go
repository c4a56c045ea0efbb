package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

// HTTPSubmitter posts finalized orders to the persistence endpoint.
type HTTPSubmitter struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPSubmitter creates an order submission client for the given base URL.
func NewHTTPSubmitter(baseURL string) *HTTPSubmitter {
	return &HTTPSubmitter{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "order-backend",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				// A structured rejection is the backend doing its job,
				// not an outage.
				return err == nil || domain.IsCode(err, domain.EREJECTED)
			},
		}),
	}
}

type submitResponse struct {
	OrderNumber string `json:"orderNumber"`
	Error       string `json:"error"`
}

// Submit posts the order. A 2xx response yields the assigned order
// number. A 4xx response is a structured rejection whose reasons are
// surfaced to the agent verbatim; anything else is an availability
// failure. In every non-2xx case the caller's draft stays intact.
func (c *HTTPSubmitter) Submit(ctx context.Context, order *SubmitRequest) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.submit(ctx, order)
	})
	if err != nil {
		if domain.IsCode(err, domain.EREJECTED) {
			return "", err
		}
		return "", domain.Unavailable(err, "backend.submit", "Could not save the order")
	}
	return result.(string), nil
}

func (c *HTTPSubmitter) submit(ctx context.Context, order *SubmitRequest) (string, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
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

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", domain.Errorf(domain.EREJECTED, "backend.submit", "%s", rejectionMessage(body))
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("order backend returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded submitResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if decoded.OrderNumber == "" {
		return "", fmt.Errorf("order backend returned no order number")
	}
	return decoded.OrderNumber, nil
}

// rejectionMessage extracts the backend's own wording from a 4xx body.
// Field-level reasons must reach the agent verbatim.
func rejectionMessage(body []byte) string {
	var decoded submitResponse
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "Order was rejected by the backend"
	}
	return msg
}
