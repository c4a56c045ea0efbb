package interpret

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

// HTTPInterpreter calls the order interpreter service over HTTP.
type HTTPInterpreter struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPInterpreter creates an interpreter client for the given base URL.
// Interpretation can be slow (it is a one-shot call over a whole paste),
// so the request timeout is generous.
func NewHTTPInterpreter(baseURL string) *HTTPInterpreter {
	return &HTTPInterpreter{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "order-interpreter",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

type interpretRequest struct {
	Text string `json:"text"`
}

type interpretResponse struct {
	Items []struct {
		Name       string  `json:"name"`
		Quantity   int     `json:"quantity"`
		UnitPrice  float64 `json:"unitPrice"`
		Candidates []struct {
			Name     string `json:"name"`
			Code     string `json:"code"`
			ImageURL string `json:"imageUrl"`
		} `json:"candidates"`
	} `json:"items"`
	CustomerName  string  `json:"customerName"`
	CustomerPhone string  `json:"customerPhone"`
	Notes         string  `json:"notes"`
	PaymentAmount float64 `json:"paymentAmount"`
}

// Interpret sends the pasted text and maps the response into a Result.
func (c *HTTPInterpreter) Interpret(ctx context.Context, text string) (*Result, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.interpret(ctx, text)
	})
	if err != nil {
		return nil, domain.Unavailable(err, "interpret.call", "Could not interpret the order text")
	}
	return result.(*Result), nil
}

func (c *HTTPInterpreter) interpret(ctx context.Context, text string) (*Result, error) {
	payload, err := json.Marshal(interpretRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/interpret", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
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
		return nil, fmt.Errorf("interpreter returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded interpretResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	out := &Result{
		Items:         make([]Item, 0, len(decoded.Items)),
		CustomerName:  decoded.CustomerName,
		CustomerPhone: decoded.CustomerPhone,
		Notes:         decoded.Notes,
		PaymentAmount: decoded.PaymentAmount,
	}
	for _, it := range decoded.Items {
		item := Item{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
		for _, cand := range it.Candidates {
			item.Candidates = append(item.Candidates, domain.ProductCandidate{
				Name:     cand.Name,
				Code:     cand.Code,
				ImageURL: cand.ImageURL,
			})
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}
