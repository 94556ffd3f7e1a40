/*
 * Fluxo - Pterodactyl Service Plugin
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package pterodactyl

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fluxohost/fluxo/internal/errors"
	"github.com/fluxohost/fluxo/internal/models"
	"github.com/fluxohost/fluxo/internal/plugin"
)

// PluginID is the stable dispatch key products reference
const PluginID = "pterodactyl"

// Settings keys stored in the credential store
const (
	SettingPanelURL = "panel_url"
	SettingAPIKey   = "api_key"
)

// SettingsSource reads the stored settings blob for a plugin. Values are
// read per call so a settings save takes effect immediately; the API key
// stays in memory only for the duration of one operation.
type SettingsSource interface {
	PluginSettings(ctx context.Context, pluginID string) (map[string]string, error)
}

// UserMapper resolves the remote panel identity of an internal user. The
// second return reports whether a mapping exists at all.
type UserMapper interface {
	RemoteUserID(ctx context.Context, pluginID, userID string) (string, bool, error)
}

// Plugin provisions game servers on a Pterodactyl panel
type Plugin struct {
	settings SettingsSource
	users    UserMapper
	timeout  time.Duration
}

// New constructs the Pterodactyl plugin. A non-positive timeout falls back
// to DefaultTimeout.
func New(settings SettingsSource, users UserMapper, timeout time.Duration) *Plugin {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Plugin{
		settings: settings,
		users:    users,
		timeout:  timeout,
	}
}

var _ plugin.ServicePlugin = (*Plugin)(nil)

// Manifest returns the plugin identity
func (p *Plugin) Manifest() models.PluginManifest {
	return models.PluginManifest{
		ID:          PluginID,
		Name:        "Pterodactyl",
		Version:     "1.2.0",
		Type:        models.PluginTypeService,
		Description: "Provisions game servers on a Pterodactyl panel",
		Author:      "Fluxo",
	}
}

// SettingsSchema declares the deployment-wide credentials
func (p *Plugin) SettingsSchema() []models.SettingsField {
	return []models.SettingsField{
		{
			Key:         SettingPanelURL,
			Label:       "Panel URL",
			Type:        models.FieldTypeString,
			Required:    true,
			Placeholder: "https://panel.example.com",
		},
		{
			Key:      SettingAPIKey,
			Label:    "Application API Key",
			Type:     models.FieldTypeString,
			Required: true,
			Secret:   true,
		},
	}
}

// ConfigFields declares the per-product configuration
func (p *Plugin) ConfigFields() []models.ConfigField {
	minZero := 0.0
	return []models.ConfigField{
		{Key: "locationId", Label: "Location", Type: models.FieldTypeSelect, Required: true, DynamicOptions: true},
		{Key: "nestId", Label: "Nest", Type: models.FieldTypeSelect, Required: true, DynamicOptions: true},
		{Key: "eggId", Label: "Egg", Type: models.FieldTypeSelect, Required: true, DynamicOptions: true},
		{Key: "memory", Label: "Memory (MB)", Type: models.FieldTypeNumber, Required: true, Min: &minZero},
		{Key: "disk", Label: "Disk (MB)", Type: models.FieldTypeNumber, Required: true, Min: &minZero},
		{Key: "cpu", Label: "CPU (%)", Type: models.FieldTypeNumber, Default: 100, Min: &minZero},
		{Key: "databases", Label: "Databases", Type: models.FieldTypeNumber, Default: 0, Min: &minZero},
		{Key: "backups", Label: "Backups", Type: models.FieldTypeNumber, Default: 0, Min: &minZero},
	}
}

// client builds a panel client from stored settings, failing with a typed
// not_configured error when credentials are absent.
func (p *Plugin) client(ctx context.Context) (*Client, error) {
	settings, err := p.settings.PluginSettings(ctx, PluginID)
	if err != nil {
		return nil, errors.WrapStoreError(err, "load_settings",
			"failed to read Pterodactyl settings")
	}

	baseURL := NormalizeBaseURL(settings[SettingPanelURL])
	apiKey := settings[SettingAPIKey]
	if baseURL == "" || apiKey == "" {
		return nil, errors.NewNotConfiguredError("load_settings",
			"Pterodactyl panel URL and API key are not configured")
	}

	return NewClient(baseURL, apiKey, p.timeout), nil
}

// FieldOptions resolves dynamic dropdown values live from the panel. It
// degrades to an empty slice whenever credentials are missing, a
// prerequisite field is absent, or the panel is unreachable; only dynamic
// fields ever trigger a remote call.
func (p *Plugin) FieldOptions(ctx context.Context, fieldKey string, formContext map[string]any) []models.FieldOption {
	switch fieldKey {
	case "locationId", "nestId":
		// no dependencies
	case "eggId":
		if plugin.ConfigString(formContext, "nestId") == "" {
			return []models.FieldOption{}
		}
	default:
		// statically-valued field, nothing to resolve
		return []models.FieldOption{}
	}

	client, err := p.client(ctx)
	if err != nil {
		return []models.FieldOption{}
	}

	switch fieldKey {
	case "locationId":
		locations, err := client.ListLocations(ctx)
		if err != nil {
			return []models.FieldOption{}
		}
		options := make([]models.FieldOption, 0, len(locations))
		for _, loc := range locations {
			label := loc.Long
			if label == "" {
				label = loc.Short
			}
			options = append(options, models.FieldOption{
				Value: strconv.FormatInt(loc.ID, 10),
				Label: label,
			})
		}
		return options

	case "nestId":
		nests, err := client.ListNests(ctx)
		if err != nil {
			return []models.FieldOption{}
		}
		options := make([]models.FieldOption, 0, len(nests))
		for _, nest := range nests {
			options = append(options, models.FieldOption{
				Value: strconv.FormatInt(nest.ID, 10),
				Label: nest.Name,
			})
		}
		return options

	case "eggId":
		eggs, err := client.ListEggs(ctx, plugin.ConfigString(formContext, "nestId"))
		if err != nil {
			return []models.FieldOption{}
		}
		options := make([]models.FieldOption, 0, len(eggs))
		for _, egg := range eggs {
			options = append(options, models.FieldOption{
				Value: strconv.FormatInt(egg.ID, 10),
				Label: egg.Name,
			})
		}
		return options
	}

	return []models.FieldOption{}
}

// Issues probes panel connectivity. Missing credentials and failed probes
// are reported as error-severity issues, never as a panic or error return.
func (p *Plugin) Issues(ctx context.Context) []models.PluginIssue {
	client, err := p.client(ctx)
	if err != nil {
		return []models.PluginIssue{{
			Message:  "Pterodactyl is not configured: set the panel URL and application API key",
			Severity: models.IssueSeverityError,
		}}
	}

	// lightweight probe, the locations list is small on every panel
	if _, err := client.ListLocations(ctx); err != nil {
		return []models.PluginIssue{{
			Message:  "Pterodactyl panel is unreachable",
			Severity: models.IssueSeverityError,
			Details:  err.Error(),
		}}
	}

	return []models.PluginIssue{}
}

// requiredFields are validated before any remote call is made
func (p *Plugin) requiredFields() []models.ConfigField {
	fields := make([]models.ConfigField, 0)
	for _, field := range p.ConfigFields() {
		if field.Required {
			fields = append(fields, field)
		}
	}
	return fields
}

// ProvisionService creates one game server on the panel. Validation order
// matters: config fields first, then the user mapping, so no remote
// create call is ever issued for an input that cannot succeed.
//
// The call is not idempotent: invoking it twice creates two panel servers.
// The provisioning orchestrator guards against that with its attempt
// record.
func (p *Plugin) ProvisionService(ctx context.Context, input models.ProvisionInput) (models.ProvisionResult, error) {
	if err := plugin.ValidateConfig(p.requiredFields(), input.PluginConfig); err != nil {
		return models.ProvisionResult{}, err
	}

	remoteUserID, found, err := p.users.RemoteUserID(ctx, PluginID, input.UserID)
	if err != nil {
		return models.ProvisionResult{}, errors.WrapStoreError(err, "provision",
			"failed to look up panel account mapping")
	}
	if !found {
		return models.ProvisionResult{}, errors.NewUnmappedUserError("provision",
			fmt.Sprintf("user %s has no linked Pterodactyl panel account; link the account before provisioning", input.UserID))
	}
	panelUserID, err := strconv.ParseInt(remoteUserID, 10, 64)
	if err != nil {
		return models.ProvisionResult{}, errors.NewUnmappedUserError("provision",
			fmt.Sprintf("stored panel account mapping %q for user %s is not a valid panel user id", remoteUserID, input.UserID))
	}

	client, err := p.client(ctx)
	if err != nil {
		return models.ProvisionResult{}, err
	}

	nestID := plugin.ConfigString(input.PluginConfig, "nestId")
	eggID := plugin.ConfigString(input.PluginConfig, "eggId")

	egg, err := client.GetEgg(ctx, nestID, eggID)
	if err != nil {
		return models.ProvisionResult{}, err
	}

	environment := make(map[string]string)
	for _, variable := range egg.Relationships.Variables.Data {
		environment[variable.Attributes.EnvVariable] = variable.Attributes.DefaultValue
	}

	locationID, err := strconv.ParseInt(plugin.ConfigString(input.PluginConfig, "locationId"), 10, 64)
	if err != nil {
		return models.ProvisionResult{}, errors.NewInvalidConfigError("provision",
			"locationId must be a numeric panel location id")
	}

	cpu := plugin.ConfigInt(input.PluginConfig, "cpu")
	if cpu == 0 {
		cpu = 100
	}

	server, err := client.CreateServer(ctx, createServerRequest{
		Name:        input.ServiceName,
		User:        panelUserID,
		Egg:         egg.ID,
		DockerImage: egg.DockerImage,
		Startup:     egg.Startup,
		Environment: environment,
		Limits: serverLimits{
			Memory: plugin.ConfigInt(input.PluginConfig, "memory"),
			Swap:   0,
			Disk:   plugin.ConfigInt(input.PluginConfig, "disk"),
			IO:     500,
			CPU:    cpu,
		},
		FeatureLimits: featureLimits{
			Databases:   plugin.ConfigInt(input.PluginConfig, "databases"),
			Backups:     plugin.ConfigInt(input.PluginConfig, "backups"),
			Allocations: 1,
		},
		Deploy: deploySettings{
			Locations:   []int64{locationID},
			DedicatedIP: false,
			PortRange:   []string{},
		},
	})
	if err != nil {
		return models.ProvisionResult{}, err
	}

	externalID := server.Identifier
	if externalID == "" {
		externalID = strconv.FormatInt(server.ID, 10)
	}

	return models.ProvisionResult{ExternalID: externalID}, nil
}
