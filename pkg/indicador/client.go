package indicador

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	ErrNetworkError = errors.New("indicador: network error")
	ErrEmptySeries  = errors.New("indicador: no rate data in response")
)

// SeriePoint is one dated observation in an indicator series
type SeriePoint struct {
	Fecha time.Time `json:"fecha"`
	Valor float64   `json:"valor"`
}

// IndicatorResponse mirrors the mindicador.cl API response shape
type IndicatorResponse struct {
	Codigo       string       `json:"codigo"`
	Nombre       string       `json:"nombre"`
	UnidadMedida string       `json:"unidad_medida"`
	Serie        []SeriePoint `json:"serie"`
}

// Rate is the latest observed value of an indicator
type Rate struct {
	Value float64   `json:"value"`
	Date  time.Time `json:"date"`
}

// Client fetches economic indicators from the mindicador.cl API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an indicator client. baseURL defaults to the public
// mindicador.cl endpoint when empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://mindicador.cl"
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchDollarRate returns the most recent USD observation
func (c *Client) FetchDollarRate(ctx context.Context) (*Rate, error) {
	return c.fetchIndicator(ctx, "dolar")
}

func (c *Client) fetchIndicator(ctx context.Context, code string) (*Rate, error) {
	url := fmt.Sprintf("%s/api/%s", c.baseURL, code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var indicator IndicatorResponse
	if err := json.Unmarshal(body, &indicator); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}

	// The series comes newest first
	if len(indicator.Serie) == 0 {
		return nil, ErrEmptySeries
	}

	latest := indicator.Serie[0]
	return &Rate{
		Value: latest.Valor,
		Date:  latest.Fecha,
	}, nil
}
