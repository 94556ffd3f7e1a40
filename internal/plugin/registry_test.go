/*
 * Fluxo - Plugin Registry Tests
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxohost/fluxo/internal/errors"
	"github.com/fluxohost/fluxo/internal/models"
)

type stubServicePlugin struct {
	id string
}

func (s *stubServicePlugin) Manifest() models.PluginManifest {
	return models.PluginManifest{ID: s.id, Name: s.id, Version: "1.0.0", Type: models.PluginTypeService}
}

func (s *stubServicePlugin) SettingsSchema() []models.SettingsField { return nil }

func (s *stubServicePlugin) ConfigFields() []models.ConfigField { return nil }

func (s *stubServicePlugin) FieldOptions(ctx context.Context, fieldKey string, formContext map[string]any) []models.FieldOption {
	return []models.FieldOption{}
}

func (s *stubServicePlugin) Issues(ctx context.Context) []models.PluginIssue {
	return []models.PluginIssue{}
}

func (s *stubServicePlugin) ProvisionService(ctx context.Context, input models.ProvisionInput) (models.ProvisionResult, error) {
	return models.ProvisionResult{ExternalID: "stub"}, nil
}

type stubGatewayPlugin struct {
	id string
}

func (s *stubGatewayPlugin) Manifest() models.PluginManifest {
	return models.PluginManifest{ID: s.id, Name: s.id, Version: "1.0.0", Type: models.PluginTypeGateway}
}

func (s *stubGatewayPlugin) SettingsSchema() []models.SettingsField { return nil }

func (s *stubGatewayPlugin) Issues(ctx context.Context) []models.PluginIssue {
	return []models.PluginIssue{}
}

func (s *stubGatewayPlugin) CreatePayment(ctx context.Context, input models.PaymentInput) (models.PaymentResult, error) {
	return models.PaymentResult{ExternalID: "pay-1"}, nil
}

func TestRegistryGetReturnsRegisteredInstance(t *testing.T) {
	registry := NewRegistry()
	p := &stubServicePlugin{id: "x"}
	require.NoError(t, registry.Register(p))

	got, err := registry.Get("x")
	require.NoError(t, err)
	assert.Same(t, p, got)
}

func TestRegistryGetUnknownPlugin(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("unregistered-id")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnknownPlugin))
	assert.Contains(t, err.Error(), "unregistered-id")
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubServicePlugin{id: "x"}))

	err := registry.Register(&stubServicePlugin{id: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryRejectsMissingID(t *testing.T) {
	registry := NewRegistry()
	assert.Error(t, registry.Register(&stubServicePlugin{id: ""}))
	assert.Error(t, registry.Register(nil))
}

func TestRegistryTypedAccessors(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubServicePlugin{id: "svc"}))
	require.NoError(t, registry.Register(&stubGatewayPlugin{id: "pay"}))

	sp, err := registry.Service("svc")
	require.NoError(t, err)
	assert.Equal(t, "svc", sp.Manifest().ID)

	_, err = registry.Service("pay")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnknownPlugin))

	gp, err := registry.Gateway("pay")
	require.NoError(t, err)
	assert.Equal(t, "pay", gp.Manifest().ID)

	_, err = registry.Gateway("svc")
	require.Error(t, err)
}

func TestRegistryListFiltersByType(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubServicePlugin{id: "b-svc"}))
	require.NoError(t, registry.Register(&stubServicePlugin{id: "a-svc"}))
	require.NoError(t, registry.Register(&stubGatewayPlugin{id: "pay"}))

	all := registry.List("")
	require.Len(t, all, 3)
	// sorted by id
	assert.Equal(t, "a-svc", all[0].ID)
	assert.Equal(t, "b-svc", all[1].ID)
	assert.Equal(t, "pay", all[2].ID)

	svcOnly := registry.List(models.PluginTypeService)
	require.Len(t, svcOnly, 2)
	for _, manifest := range svcOnly {
		assert.Equal(t, models.PluginTypeService, manifest.Type)
	}

	gwOnly := registry.List(models.PluginTypeGateway)
	require.Len(t, gwOnly, 1)
	assert.Equal(t, "pay", gwOnly[0].ID)
}
