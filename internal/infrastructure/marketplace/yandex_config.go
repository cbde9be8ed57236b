package marketplace

import (
	"errors"
	"strings"
	"time"
)

// YandexProductionAPIURL is the production partner API endpoint
const YandexProductionAPIURL = "https://api.partner.market.yandex.ru"

// Errors for Yandex configuration
var (
	ErrYandexConfigMissingBaseURL = errors.New("yandex: base URL is required")
	ErrYandexConfigInvalidBaseURL = errors.New("yandex: base URL must be http(s)")
	ErrYandexConfigInvalidTimeout = errors.New("yandex: timeout must be positive")
)

// YandexConfig holds configuration for the Yandex.Market partner API client.
// Credentials are per-request (each seller profile carries its own token),
// so the config only covers transport-level settings.
type YandexConfig struct {
	// BaseURL is the partner API endpoint
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxPageSize is the page size used when following pagination
	MaxPageSize int
}

// NewYandexConfig creates a new configuration with production defaults
func NewYandexConfig() *YandexConfig {
	return &YandexConfig{
		BaseURL:     YandexProductionAPIURL,
		Timeout:     30 * time.Second,
		MaxPageSize: 50,
	}
}

// Validate validates the Yandex configuration
func (c *YandexConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrYandexConfigMissingBaseURL
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return ErrYandexConfigInvalidBaseURL
	}
	if c.Timeout <= 0 {
		return ErrYandexConfigInvalidTimeout
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 50
	}
	return nil
}
