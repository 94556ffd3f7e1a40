/*
 * Fluxo - Pterodactyl Panel Client Tests
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package pterodactyl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxohost/fluxo/internal/errors"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://panel.example.com":    "https://panel.example.com",
		"https://panel.example.com/":   "https://panel.example.com",
		"https://panel.example.com///": "https://panel.example.com",
		"  https://panel.example.com/ ": "https://panel.example.com",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeBaseURL(input), "input %q", input)
	}
}

func TestClientEndpointConcatenation(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(listEnvelope{})
	}))
	defer srv.Close()

	// trailing slash on the base URL must not produce a double slash
	client := NewClient(srv.URL+"/", "key", time.Second)
	_, err := client.ListNests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/application/nests", gotPath)
}

func TestClientSendsBearerTokenAndJSONHeaders(t *testing.T) {
	var gotAuth, gotAccept, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"attributes": map[string]any{"id": 1}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "ptla_secret", time.Second)
	_, err := client.CreateServer(context.Background(), createServerRequest{Name: "mc-1"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer ptla_secret", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "application/json", gotContentType)
}

func TestClientNon2xxBecomesUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"detail":"This action is unauthorized."}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad-key", time.Second)
	_, err := client.ListLocations(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnreachable))
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestClientTransportFailureBecomesUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, "key", time.Second)
	_, err := client.ListNests(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnreachable))
}

func TestClientUnwrapsListEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object": "nest", "attributes": {"id": 1, "name": "Minecraft"}},
				{"object": "nest", "attributes": {"id": 5, "name": "Source Engine"}}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", time.Second)
	nests, err := client.ListNests(context.Background())
	require.NoError(t, err)
	require.Len(t, nests, 2)
	assert.Equal(t, int64(1), nests[0].ID)
	assert.Equal(t, "Minecraft", nests[0].Name)
	assert.Equal(t, "Source Engine", nests[1].Name)
}

func TestGetEggRequestsVariablesAndUnwrapsObjectEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/application/nests/1/eggs/3", r.URL.Path)
		assert.Equal(t, "variables", r.URL.Query().Get("include"))
		w.Write([]byte(`{
			"object": "egg",
			"attributes": {
				"id": 3,
				"name": "Vanilla Minecraft",
				"docker_image": "ghcr.io/pterodactyl/yolks:java_17",
				"startup": "java -jar server.jar",
				"relationships": {
					"variables": {
						"data": [
							{"attributes": {"env_variable": "SERVER_JARFILE", "default_value": "server.jar"}}
						]
					}
				}
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", time.Second)
	egg, err := client.GetEgg(context.Background(), "1", "3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), egg.ID)
	assert.Equal(t, "ghcr.io/pterodactyl/yolks:java_17", egg.DockerImage)
	require.Len(t, egg.Relationships.Variables.Data, 1)
	assert.Equal(t, "SERVER_JARFILE", egg.Relationships.Variables.Data[0].Attributes.EnvVariable)
}
