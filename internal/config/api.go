package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/fable/pkg/formatting"
	"github.com/JaimeStill/fable/pkg/middleware"
	"github.com/JaimeStill/fable/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "FABLE_CORS_ENABLED",
	Origins:          "FABLE_CORS_ORIGINS",
	AllowedMethods:   "FABLE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "FABLE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "FABLE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "FABLE_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "FABLE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "FABLE_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, and pagination settings.
type APIConfig struct {
	BasePath       string                `toml:"base_path"`
	MaxPayloadSize string                `toml:"max_payload_size"`
	CORS           middleware.CORSConfig `toml:"cors"`
	Pagination     pagination.Config     `toml:"pagination"`
}

// MaxPayloadSizeBytes returns the action payload cap in bytes. Step
// payloads arrive from an LLM agent, so a generous but bounded limit
// protects the decoder from runaway generations.
func (c *APIConfig) MaxPayloadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxPayloadSize)
	if err != nil {
		return 4 * 1024 * 1024 // 4MB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxPayloadSize != "" {
		c.MaxPayloadSize = overlay.MaxPayloadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxPayloadSize == "" {
		c.MaxPayloadSize = "4MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("FABLE_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("FABLE_API_MAX_PAYLOAD_SIZE"); v != "" {
		c.MaxPayloadSize = v
	}
}
