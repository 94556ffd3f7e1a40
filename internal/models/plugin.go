/*
 * Fluxo - Plugin Domain Models
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package models

// PluginType classifies what a plugin contributes to the platform
type PluginType string

const (
	PluginTypeService PluginType = "service" // provisions hosting services on a remote panel
	PluginTypeGateway PluginType = "gateway" // processes payments
)

// PluginManifest is the immutable identity of a plugin. The ID is the
// dispatch key used everywhere a plugin is referenced; it must stay stable
// across versions.
type PluginManifest struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Version     string     `json:"version"` // semver
	Type        PluginType `json:"type"`
	Description string     `json:"description"`
	Author      string     `json:"author"`
}

// FieldType enumerates the value types a settings or config field accepts
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeSelect  FieldType = "select"
)

// SettingsField describes one administrator-facing credential or setting
// (panel URL, API key). Fields marked Secret are write-only: their stored
// values are never echoed back to any client.
type SettingsField struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Secret      bool      `json:"secret,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
}

// ConfigField describes one per-product configuration field a service
// plugin needs to provision. When DynamicOptions is set the valid value set
// must be fetched live via FieldOptions and may depend on other field
// values already chosen in the same form.
type ConfigField struct {
	Key            string        `json:"key"`
	Label          string        `json:"label"`
	Type           FieldType     `json:"type"`
	Required       bool          `json:"required,omitempty"`
	Default        any           `json:"default,omitempty"`
	DynamicOptions bool          `json:"dynamicOptions,omitempty"`
	Options        []FieldOption `json:"options,omitempty"`
	Min            *float64      `json:"min,omitempty"`
	Max            *float64      `json:"max,omitempty"`
}

// FieldOption is one selectable value for a select/dynamic field. Options
// are computed per request and never persisted.
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// IssueSeverity grades a plugin health issue
type IssueSeverity string

const (
	IssueSeverityError   IssueSeverity = "error"
	IssueSeverityWarning IssueSeverity = "warning"
)

// PluginIssue is a transient health-check result, recomputed on demand
type PluginIssue struct {
	Message  string        `json:"message"`
	Severity IssueSeverity `json:"severity"`
	Details  string        `json:"details,omitempty"`
}

// ProvisionInput carries everything a service plugin needs to create one
// service on its backing system.
type ProvisionInput struct {
	ServiceName  string         `json:"service_name"`
	UserID       string         `json:"user_id"`
	PluginConfig map[string]any `json:"plugin_config"`
}

// ProvisionResult is the only contract a plugin owes back. ExternalID is
// opaque to the core: it is stored on the service record for display and
// audit but never parsed.
type ProvisionResult struct {
	ExternalID string `json:"external_id"`
}

// PaymentInput carries checkout data to a gateway plugin
type PaymentInput struct {
	InvoiceID string  `json:"invoice_id"`
	UserID    string  `json:"user_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// PaymentResult is returned by a gateway plugin after initiating a payment
type PaymentResult struct {
	ExternalID  string `json:"external_id"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}
