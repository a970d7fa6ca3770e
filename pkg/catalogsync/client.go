package catalogsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrNetworkError = errors.New("catalog sync: network error")
	ErrUpstream     = errors.New("catalog sync: upstream rejected the product")
)

// ProductPayload is the shape pushed to the central catalog
type ProductPayload struct {
	LocalID       uint     `json:"local_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         int      `json:"price"`
	Category      string   `json:"category"`
	StockQuantity int      `json:"stock_quantity"`
	ImageURL      string   `json:"image_url,omitempty"`
	GalleryImages []string `json:"gallery_images,omitempty"`
}

// Client pushes locally created products to the central catalog API.
//
// Pushing is best-effort: a product that cannot be pushed is kept
// locally and flagged, never lost.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a catalog sync client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// PushProduct sends one product to the central catalog
func (c *Client) PushProduct(ctx context.Context, payload ProductPayload) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal product payload: %w", err)
	}

	url := fmt.Sprintf("%s/products", c.config.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	return nil
}
