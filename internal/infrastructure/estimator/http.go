package estimator

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const defaultTimeout = 30 * time.Second

// HTTPPricer calls one remote pricing service implementing
// POST {base}/price {"description": ...} -> {"price": n}.
// One type serves all estimator variants; the name distinguishes
// them in failures and logs.
type HTTPPricer struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

func NewHTTPPricer(name, baseURL string) *HTTPPricer {
	return &HTTPPricer{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (p *HTTPPricer) WithTimeout(timeout time.Duration) *HTTPPricer {
	p.httpClient.Timeout = timeout
	return p
}

func (p *HTTPPricer) WithHTTPClient(client *http.Client) *HTTPPricer {
	p.httpClient = client
	return p
}

func (p *HTTPPricer) Name() string {
	return p.name
}

type priceRequest struct {
	Description string `json:"description"`
}

type priceResponse struct {
	Price float64 `json:"price"`
}

func (p *HTTPPricer) Estimate(ctx context.Context, description string) (float64, error) {
	body, err := json.Marshal(priceRequest{Description: description})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/price", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("httpClient.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("pricer %s: unexpected status %d", p.name, resp.StatusCode)
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	return parsed.Price, nil
}
