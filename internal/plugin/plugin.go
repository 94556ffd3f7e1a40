/*
 * Fluxo - Plugin Contract
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package plugin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fluxohost/fluxo/internal/errors"
	"github.com/fluxohost/fluxo/internal/models"
)

// Plugin is the base contract every Fluxo plugin implements
type Plugin interface {
	// Manifest returns the immutable identity of the plugin
	Manifest() models.PluginManifest
	// SettingsSchema declares the administrator-facing credentials and
	// settings the plugin needs once per deployment. Pure, no side effects.
	SettingsSchema() []models.SettingsField
	// Issues probes the plugin's health. It never returns an error:
	// missing credentials and connectivity failures are reported as
	// error-severity issues with the raw failure text in Details.
	Issues(ctx context.Context) []models.PluginIssue
}

// ServicePlugin provisions hosting services on an external system.
type ServicePlugin interface {
	Plugin

	// ConfigFields declares the per-product configuration fields. Pure,
	// no side effects.
	ConfigFields() []models.ConfigField

	// FieldOptions resolves the live value set for a dynamic field.
	// formContext holds the field values already chosen in the same form,
	// for dependent fields (e.g. eggId options depend on nestId).
	//
	// FieldOptions never fails: when credentials are missing, a
	// prerequisite field is absent from formContext, or the remote call
	// fails, it returns an empty slice. The empty result is deliberately
	// overloaded to mean both "no data" and "not ready"; callers that
	// need to tell the two apart consult Issues.
	FieldOptions(ctx context.Context, fieldKey string, formContext map[string]any) []models.FieldOption

	// ProvisionService creates one service on the remote system and
	// returns its external identifier. It validates required config
	// fields and the user's remote identity mapping before issuing any
	// create call, and fails with a typed, actionable error.
	ProvisionService(ctx context.Context, input models.ProvisionInput) (models.ProvisionResult, error)
}

// GatewayPlugin processes payments for invoices
type GatewayPlugin interface {
	Plugin

	// CreatePayment initiates a payment on the gateway and returns the
	// gateway's reference plus an optional checkout URL to redirect the
	// customer to.
	CreatePayment(ctx context.Context, input models.PaymentInput) (models.PaymentResult, error)
}

// ValidateConfig checks config against the declared fields and returns an
// invalid_config error naming every missing required field. Plugins call
// this before touching the remote system.
func ValidateConfig(fields []models.ConfigField, config map[string]any) error {
	var missing []string
	for _, field := range fields {
		if !field.Required {
			continue
		}
		value, ok := config[field.Key]
		if !ok || value == nil {
			missing = append(missing, field.Key)
			continue
		}
		if s, isStr := value.(string); isStr && strings.TrimSpace(s) == "" {
			missing = append(missing, field.Key)
		}
	}
	if len(missing) > 0 {
		return errors.NewInvalidConfigError("validate_config",
			fmt.Sprintf("missing required configuration field(s): %s", strings.Join(missing, ", ")))
	}
	return nil
}

// ConfigString reads a config value as a string, accepting the numeric
// forms JSON decoding produces.
func ConfigString(config map[string]any, key string) string {
	value, ok := config[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ConfigInt reads a config value as an integer, returning 0 when absent or
// not numeric.
func ConfigInt(config map[string]any, key string) int {
	value, ok := config[key]
	if !ok || value == nil {
		return 0
	}
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
			return n
		}
	}
	return 0
}

// SortManifests orders manifests by id for stable listings
func SortManifests(manifests []models.PluginManifest) {
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].ID < manifests[j].ID
	})
}
