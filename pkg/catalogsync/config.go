package catalogsync

import (
	"fmt"
	"time"
)

// Config holds the upstream catalog endpoint settings
type Config struct {
	// BaseURL of the central catalog API. Empty means sync is disabled
	// and products stay local-only.
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Validate checks that the configuration is usable
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
