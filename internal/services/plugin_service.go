/*
 * Fluxo - Plugin Service
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fluxohost/fluxo/internal/logger"
	"github.com/fluxohost/fluxo/internal/metrics"
	"github.com/fluxohost/fluxo/internal/models"
	"github.com/fluxohost/fluxo/internal/plugin"
	"github.com/fluxohost/fluxo/internal/store"
)

// PluginService is the admin-facing surface over the registry and the
// credential store: listing plugins, reading and saving settings, and
// proxying schema, dynamic options, and health probes.
type PluginService struct {
	registry *plugin.Registry
	store    *store.Store
	logger   *logger.Logger

	optionTTL   time.Duration
	optionMutex sync.Mutex
	optionCache map[string]cachedOptions
}

type cachedOptions struct {
	options   []models.FieldOption
	expiresAt time.Time
}

// NewPluginService constructs the plugin service. optionTTL bounds the
// field-option cache; zero disables caching.
func NewPluginService(registry *plugin.Registry, st *store.Store, log *logger.Logger, optionTTL time.Duration) *PluginService {
	return &PluginService{
		registry:    registry,
		store:       st,
		logger:      log,
		optionTTL:   optionTTL,
		optionCache: make(map[string]cachedOptions),
	}
}

// PluginListing pairs a manifest with its datastore-backed enabled flag
type PluginListing struct {
	models.PluginManifest
	Enabled bool `json:"enabled"`
}

// ListPlugins returns all registered plugins of the given type (empty
// means all) with their enabled flags.
func (ps *PluginService) ListPlugins(ctx context.Context, pluginType models.PluginType) ([]PluginListing, error) {
	manifests := ps.registry.List(pluginType)
	listings := make([]PluginListing, 0, len(manifests))
	for _, manifest := range manifests {
		enabled, err := ps.store.PluginEnabled(ctx, manifest.ID)
		if err != nil {
			return nil, err
		}
		listings = append(listings, PluginListing{PluginManifest: manifest, Enabled: enabled})
	}
	return listings, nil
}

// SetPluginEnabled flips a plugin's enabled flag after confirming the
// plugin exists.
func (ps *PluginService) SetPluginEnabled(ctx context.Context, pluginID string, enabled bool) error {
	if _, err := ps.registry.Get(pluginID); err != nil {
		return err
	}
	if err := ps.store.SetPluginEnabled(ctx, pluginID, enabled); err != nil {
		return err
	}
	ps.logger.WithPlugin(pluginID).WithFields(logger.Fields{
		"enabled": enabled,
	}).Info("Plugin enabled flag updated")
	return nil
}

// SettingsSchema returns a plugin's settings schema
func (ps *PluginService) SettingsSchema(pluginID string) ([]models.SettingsField, error) {
	p, err := ps.registry.Get(pluginID)
	if err != nil {
		return nil, err
	}
	return p.SettingsSchema(), nil
}

// Settings returns a plugin's stored settings with every secret field
// masked. Raw secrets never leave the store through this service.
func (ps *PluginService) Settings(ctx context.Context, pluginID string) (map[string]string, error) {
	p, err := ps.registry.Get(pluginID)
	if err != nil {
		return nil, err
	}
	values, err := ps.store.PluginSettings(ctx, pluginID)
	if err != nil {
		return nil, err
	}
	return store.RedactSettings(p.SettingsSchema(), values), nil
}

// SaveSettings persists a plugin's settings. Masked or absent secret
// values keep the stored credentials.
func (ps *PluginService) SaveSettings(ctx context.Context, pluginID string, values map[string]string) error {
	p, err := ps.registry.Get(pluginID)
	if err != nil {
		return err
	}
	if err := ps.store.SavePluginSettings(ctx, pluginID, p.SettingsSchema(), values); err != nil {
		return err
	}
	ps.invalidateOptions(pluginID)
	ps.logger.WithPlugin(pluginID).Info("Plugin settings saved")
	return nil
}

// ConfigFields returns a service plugin's per-product config schema
func (ps *PluginService) ConfigFields(pluginID string) ([]models.ConfigField, error) {
	sp, err := ps.registry.Service(pluginID)
	if err != nil {
		return nil, err
	}
	return sp.ConfigFields(), nil
}

// FieldOptions resolves the dynamic options for one field. Results are
// cached briefly per (plugin, field, form context): the admin UI calls
// this on every form edit and the remote data does not change within an
// editing session.
func (ps *PluginService) FieldOptions(ctx context.Context, pluginID, fieldKey string, formContext map[string]any) ([]models.FieldOption, error) {
	sp, err := ps.registry.Service(pluginID)
	if err != nil {
		return nil, err
	}

	key := optionCacheKey(pluginID, fieldKey, formContext)
	if options, ok := ps.cachedOptions(key); ok {
		metrics.ObserveFieldOptionCache("hit")
		return options, nil
	}
	metrics.ObserveFieldOptionCache("miss")

	options := sp.FieldOptions(ctx, fieldKey, formContext)
	if options == nil {
		options = []models.FieldOption{}
	}
	ps.storeOptions(key, options)
	return options, nil
}

// Issues runs a plugin's health probe
func (ps *PluginService) Issues(ctx context.Context, pluginID string) ([]models.PluginIssue, error) {
	p, err := ps.registry.Get(pluginID)
	if err != nil {
		return nil, err
	}
	issues := p.Issues(ctx)
	if issues == nil {
		issues = []models.PluginIssue{}
	}
	return issues, nil
}

// --- option cache ---

func optionCacheKey(pluginID, fieldKey string, formContext map[string]any) string {
	keys := make([]string, 0, len(formContext))
	for key := range formContext {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(pluginID)
	sb.WriteByte('|')
	sb.WriteString(fieldKey)
	for _, key := range keys {
		value, _ := json.Marshal(formContext[key])
		sb.WriteByte('|')
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.Write(value)
	}
	return sb.String()
}

func (ps *PluginService) cachedOptions(key string) ([]models.FieldOption, bool) {
	if ps.optionTTL <= 0 {
		return nil, false
	}
	ps.optionMutex.Lock()
	defer ps.optionMutex.Unlock()

	entry, ok := ps.optionCache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(ps.optionCache, key)
		return nil, false
	}
	return entry.options, true
}

func (ps *PluginService) storeOptions(key string, options []models.FieldOption) {
	if ps.optionTTL <= 0 {
		return
	}
	ps.optionMutex.Lock()
	defer ps.optionMutex.Unlock()
	ps.optionCache[key] = cachedOptions{
		options:   options,
		expiresAt: time.Now().Add(ps.optionTTL),
	}
}

func (ps *PluginService) invalidateOptions(pluginID string) {
	ps.optionMutex.Lock()
	defer ps.optionMutex.Unlock()
	for key := range ps.optionCache {
		if strings.HasPrefix(key, pluginID+"|") {
			delete(ps.optionCache, key)
		}
	}
}
