/*
 * Fluxo - HTTP Server Tests
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxohost/fluxo/internal/config"
	"github.com/fluxohost/fluxo/internal/errors"
	"github.com/fluxohost/fluxo/internal/logger"
	"github.com/fluxohost/fluxo/internal/models"
	"github.com/fluxohost/fluxo/internal/plugin"
	"github.com/fluxohost/fluxo/internal/services"
	"github.com/fluxohost/fluxo/internal/store"
)

type testPlugin struct {
	provisionResult models.ProvisionResult
	provisionErr    error
}

func (p *testPlugin) Manifest() models.PluginManifest {
	return models.PluginManifest{ID: "testpanel", Name: "Test Panel", Version: "1.0.0", Type: models.PluginTypeService}
}

func (p *testPlugin) SettingsSchema() []models.SettingsField {
	return []models.SettingsField{
		{Key: "panel_url", Required: true},
		{Key: "api_key", Required: true, Secret: true},
	}
}

func (p *testPlugin) ConfigFields() []models.ConfigField {
	return []models.ConfigField{{Key: "size", Required: true, DynamicOptions: true}}
}

func (p *testPlugin) FieldOptions(ctx context.Context, fieldKey string, formContext map[string]any) []models.FieldOption {
	return []models.FieldOption{{Value: "s", Label: "Small"}}
}

func (p *testPlugin) Issues(ctx context.Context) []models.PluginIssue {
	return []models.PluginIssue{}
}

func (p *testPlugin) ProvisionService(ctx context.Context, input models.ProvisionInput) (models.ProvisionResult, error) {
	if p.provisionErr != nil {
		return models.ProvisionResult{}, p.provisionErr
	}
	return p.provisionResult, nil
}

func newTestServer(t *testing.T, adminToken string, p *testPlugin) (*Server, *store.Store) {
	t.Helper()

	cfg := config.NewConfig()
	cfg.AdminToken = adminToken
	cfg.DatabasePath = filepath.Join(t.TempDir(), "fluxo.db")

	st, err := store.NewStore(cfg.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(p))

	l := logrus.New()
	l.SetOutput(io.Discard)
	log := &logger.Logger{Logger: l}

	return New(cfg, log, st,
		services.NewPluginService(registry, st, log, 0),
		services.NewProvisionService(registry, st, log)), st
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.HTTPResponse {
	t.Helper()
	var response models.HTTPResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return response
}

func TestHealthEndpointIsUnauthenticated(t *testing.T) {
	s, _ := newTestServer(t, "admin-token", &testPlugin{})

	rec := doRequest(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeResponse(t, rec)
	assert.True(t, response.Success)
	data := response.Data.(map[string]any)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, float64(1), data["total_plugins"])
}

func TestAPIRequiresBearerToken(t *testing.T) {
	s, _ := newTestServer(t, "admin-token", &testPlugin{})

	rec := doRequest(t, s, http.MethodGet, "/api/plugins", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/plugins", "wrong-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/plugins", "admin-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListPlugins(t *testing.T) {
	s, _ := newTestServer(t, "tok", &testPlugin{})

	rec := doRequest(t, s, http.MethodGet, "/api/plugins", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeResponse(t, rec)
	listings := response.Data.([]any)
	require.Len(t, listings, 1)
	listing := listings[0].(map[string]any)
	assert.Equal(t, "testpanel", listing["id"])
	assert.Equal(t, true, listing["enabled"])
}

func TestSettingsRoundTripRedactsSecrets(t *testing.T) {
	s, _ := newTestServer(t, "tok", &testPlugin{})

	rec := doRequest(t, s, http.MethodPut, "/api/plugins/testpanel/settings", "tok", map[string]string{
		"panel_url": "https://panel.example.com",
		"api_key":   "ptla_secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeResponse(t, rec)
	values := response.Data.(map[string]any)
	assert.Equal(t, "https://panel.example.com", values["panel_url"])
	assert.Equal(t, store.SecretMask, values["api_key"])

	rec = doRequest(t, s, http.MethodGet, "/api/plugins/testpanel/settings", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	response = decodeResponse(t, rec)
	payload := response.Data.(map[string]any)
	values = payload["values"].(map[string]any)
	assert.Equal(t, store.SecretMask, values["api_key"])
}

func TestFieldOptionsRequiresFieldKey(t *testing.T) {
	s, _ := newTestServer(t, "tok", &testPlugin{})

	rec := doRequest(t, s, http.MethodPost, "/api/plugins/testpanel/field-options", "tok", map[string]any{
		"context": map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/plugins/testpanel/field-options", "tok", map[string]any{
		"field_key": "size",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	response := decodeResponse(t, rec)
	options := response.Data.([]any)
	require.Len(t, options, 1)
}

func TestUnknownPluginMapsToNotFound(t *testing.T) {
	s, _ := newTestServer(t, "tok", &testPlugin{})

	rec := doRequest(t, s, http.MethodGet, "/api/plugins/nope/issues", "tok", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	response := decodeResponse(t, rec)
	assert.False(t, response.Success)
	assert.Contains(t, response.Error, "nope")
}

func TestServiceProvisionFlow(t *testing.T) {
	p := &testPlugin{provisionResult: models.ProvisionResult{ExternalID: "abc123ef"}}
	s, _ := newTestServer(t, "tok", p)

	rec := doRequest(t, s, http.MethodPost, "/api/services", "tok", map[string]any{
		"name":          "mc-1",
		"user_id":       "user-7",
		"plugin_id":     "testpanel",
		"plugin_config": map[string]any{"size": "large"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	response := decodeResponse(t, rec)
	created := response.Data.(map[string]any)
	serviceID := created["id"].(string)
	require.NotEmpty(t, serviceID)

	rec = doRequest(t, s, http.MethodPost, "/api/services/"+serviceID+"/provision", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	response = decodeResponse(t, rec)
	result := response.Data.(map[string]any)
	assert.Equal(t, "provisioned", result["outcome"])
	service := result["service"].(map[string]any)
	assert.Equal(t, "abc123ef", service["external_id"])

	// re-provisioning an already-provisioned service conflicts
	rec = doRequest(t, s, http.MethodPost, "/api/services/"+serviceID+"/provision", "tok", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/services/"+serviceID+"/attempt", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	response = decodeResponse(t, rec)
	attempt := response.Data.(map[string]any)
	assert.Equal(t, "succeeded", attempt["state"])
}

func TestProvisionErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid config", errors.NewInvalidConfigError("validate_config", "missing memory"), http.StatusUnprocessableEntity},
		{"unmapped user", errors.NewUnmappedUserError("provision", "no linked account"), http.StatusPreconditionFailed},
		{"unreachable panel", errors.NewUnreachableError("panel_request", "HTTP 502"), http.StatusBadGateway},
		{"not configured", errors.NewNotConfiguredError("load_settings", "no credentials"), http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &testPlugin{provisionErr: tc.err}
			s, _ := newTestServer(t, "tok", p)

			rec := doRequest(t, s, http.MethodPost, "/api/services", "tok", map[string]any{
				"name": "mc-1", "user_id": "user-7", "plugin_id": "testpanel",
			})
			require.Equal(t, http.StatusCreated, rec.Code)
			serviceID := decodeResponse(t, rec).Data.(map[string]any)["id"].(string)

			rec = doRequest(t, s, http.MethodPost, "/api/services/"+serviceID+"/provision", "tok", nil)
			assert.Equal(t, tc.status, rec.Code)
			assert.False(t, decodeResponse(t, rec).Success)
		})
	}
}

func TestProvisionUnknownServiceIs404(t *testing.T) {
	s, _ := newTestServer(t, "tok", &testPlugin{})

	rec := doRequest(t, s, http.MethodPost, "/api/services/missing/provision", "tok", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetUserMapping(t *testing.T) {
	s, st := newTestServer(t, "tok", &testPlugin{})

	rec := doRequest(t, s, http.MethodPut, "/api/users/user-7/mappings/testpanel", "tok", map[string]string{
		"remote_user_id": "12",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	remote, found, err := st.RemoteUserID(context.Background(), "testpanel", "user-7")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "12", remote)

	rec = doRequest(t, s, http.MethodPut, "/api/users/user-7/mappings/testpanel", "tok", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnableDisablePlugin(t *testing.T) {
	s, st := newTestServer(t, "tok", &testPlugin{})

	rec := doRequest(t, s, http.MethodPost, "/api/plugins/testpanel/disable", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	enabled, err := st.PluginEnabled(context.Background(), "testpanel")
	require.NoError(t, err)
	assert.False(t, enabled)

	rec = doRequest(t, s, http.MethodPost, "/api/plugins/testpanel/enable", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	enabled, err = st.PluginEnabled(context.Background(), "testpanel")
	require.NoError(t, err)
	assert.True(t, enabled)
}
