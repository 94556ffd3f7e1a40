/*
 * Fluxo - HTTP Response Models
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package models

// HTTPResponse is the standardized API response envelope
type HTTPResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}
