/*
 * Fluxo - Configuration Management
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all Fluxo API configuration
type Config struct {
	// Server configuration
	Port   string `json:"port"`
	Host   string `json:"host"`
	Debug  bool   `json:"debug"`
	LogDir string `json:"log_dir"`

	// Mode configuration
	Mode string `json:"mode"` // "development", "production", "test"

	// Datastore
	DatabasePath string `json:"database_path"`

	// Admin API authentication
	AdminToken string `json:"admin_token"`

	// Remote panel call budget
	PanelTimeout time.Duration `json:"panel_timeout"`

	// Field-option cache lifetime; options rarely change within an
	// editing session
	FieldOptionTTL time.Duration `json:"field_option_ttl"`
}

// NewConfig creates a new configuration with sensible defaults
func NewConfig() *Config {
	return &Config{
		Port:   "8080",
		Host:   "0.0.0.0",
		Debug:  false,
		LogDir: "",

		Mode: "production",

		DatabasePath: "/var/lib/fluxo/fluxo.db",

		PanelTimeout:   15 * time.Second,
		FieldOptionTTL: 30 * time.Second,
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if port := os.Getenv("FLUXO_PORT"); port != "" {
		c.Port = port
	}

	if host := os.Getenv("FLUXO_HOST"); host != "" {
		c.Host = host
	}

	if debug := os.Getenv("FLUXO_DEBUG"); debug == "true" || debug == "1" {
		c.Debug = true
	}

	if mode := os.Getenv("FLUXO_MODE"); mode != "" {
		c.Mode = mode
	}

	if logDir := os.Getenv("FLUXO_LOG_DIR"); logDir != "" {
		c.LogDir = logDir
	}

	if dbPath := os.Getenv("FLUXO_DB_PATH"); dbPath != "" {
		c.DatabasePath = dbPath
	}

	if token := os.Getenv("FLUXO_ADMIN_TOKEN"); token != "" {
		c.AdminToken = token
	}

	if timeout := os.Getenv("FLUXO_PANEL_TIMEOUT_SECONDS"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil && val > 0 {
			c.PanelTimeout = time.Duration(val) * time.Second
		}
	}

	if ttl := os.Getenv("FLUXO_FIELD_OPTION_TTL_SECONDS"); ttl != "" {
		if val, err := strconv.Atoi(ttl); err == nil && val >= 0 {
			c.FieldOptionTTL = time.Duration(val) * time.Second
		}
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	if c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.PanelTimeout <= 0 {
		return fmt.Errorf("panel timeout must be positive")
	}

	return nil
}

// GetLogLevel returns the configured log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return "info"
}

// IsDevelopmentMode returns true if running in development mode
func (c *Config) IsDevelopmentMode() bool {
	return c.Mode == "development" || c.Mode == "dev"
}

// IsProductionMode returns true if running in production mode
func (c *Config) IsProductionMode() bool {
	return c.Mode == "production" || c.Mode == "prod"
}
