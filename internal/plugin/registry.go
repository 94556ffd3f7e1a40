/*
 * Fluxo - Plugin Registry
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package plugin

import (
	"fmt"
	"sync"

	"github.com/fluxohost/fluxo/internal/errors"
	"github.com/fluxohost/fluxo/internal/models"
)

// Registry maps stable plugin ids to loaded implementations so the
// commerce layer can dispatch without compile-time knowledge of specific
// vendors. The set of plugins is compiled in and populated at startup;
// lookups are O(1).
type Registry struct {
	mutex   sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry constructs an empty plugin registry
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
	}
}

// Register adds a plugin to the registry. Registering a second plugin
// under the same id is a wiring bug and is rejected.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin cannot be nil")
	}

	manifest := p.Manifest()
	if manifest.ID == "" {
		return fmt.Errorf("plugin manifest must declare an id")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.plugins[manifest.ID]; exists {
		return fmt.Errorf("plugin %s already registered", manifest.ID)
	}

	r.plugins[manifest.ID] = p
	return nil
}

// Get returns the plugin registered under id. A missing id is an expected
// failure mode (products can outlive plugin installations) and yields a
// typed unknown_plugin error.
func (r *Registry) Get(id string) (Plugin, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	p, exists := r.plugins[id]
	if !exists {
		return nil, errors.NewUnknownPluginError("registry_get", id)
	}
	return p, nil
}

// Service returns the service plugin registered under id
func (r *Registry) Service(id string) (ServicePlugin, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	sp, ok := p.(ServicePlugin)
	if !ok {
		return nil, errors.Newf(errors.ErrTypeUnknownPlugin, "registry_get",
			"plugin %q is not a service plugin", id)
	}
	return sp, nil
}

// Gateway returns the gateway plugin registered under id
func (r *Registry) Gateway(id string) (GatewayPlugin, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	gp, ok := p.(GatewayPlugin)
	if !ok {
		return nil, errors.Newf(errors.ErrTypeUnknownPlugin, "registry_get",
			"plugin %q is not a gateway plugin", id)
	}
	return gp, nil
}

// List returns the manifests of all registered plugins, optionally
// filtered by type, sorted by id. Enabled/disabled state lives in the
// datastore, not here.
func (r *Registry) List(pluginType models.PluginType) []models.PluginManifest {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	manifests := make([]models.PluginManifest, 0, len(r.plugins))
	for _, p := range r.plugins {
		manifest := p.Manifest()
		if pluginType != "" && manifest.Type != pluginType {
			continue
		}
		manifests = append(manifests, manifest)
	}

	SortManifests(manifests)
	return manifests
}
