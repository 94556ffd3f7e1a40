/*
 * Fluxo - Service Domain Models
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package models

import (
	"time"
)

// Service represents one purchased hosting service. ExternalID is set as a
// side effect of a successful provisioning run and identifies the resource
// on the remote panel.
type Service struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	UserID       string         `json:"user_id"`
	PluginID     string         `json:"plugin_id,omitempty"` // empty means manual fulfillment
	PluginConfig map[string]any `json:"plugin_config,omitempty"`
	ExternalID   string         `json:"external_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// AttemptState tracks the lifecycle of a provisioning attempt
type AttemptState string

const (
	AttemptStatePending   AttemptState = "pending"
	AttemptStateSucceeded AttemptState = "succeeded"
	AttemptStateFailed    AttemptState = "failed"
)

// ProvisionAttempt records one provisioning run for a service. At most one
// attempt exists per service; the pending state blocks concurrent or
// repeated runs so a single logical service never creates two remote
// servers.
type ProvisionAttempt struct {
	ServiceID string       `json:"service_id"`
	PluginID  string       `json:"plugin_id"`
	State     AttemptState `json:"state"`
	Message   string       `json:"message,omitempty"` // detailed failure text, admin-facing
	UpdatedAt time.Time    `json:"updated_at"`
}

// UserMapping links an internal user to their identity on a plugin's
// remote system (e.g. a Pterodactyl panel user id).
type UserMapping struct {
	UserID       string `json:"user_id"`
	PluginID     string `json:"plugin_id"`
	RemoteUserID string `json:"remote_user_id"`
}
