/*
 * Fluxo - HTTP Server
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fluxohost/fluxo/internal/config"
	"github.com/fluxohost/fluxo/internal/errors"
	"github.com/fluxohost/fluxo/internal/logger"
	"github.com/fluxohost/fluxo/internal/metrics"
	"github.com/fluxohost/fluxo/internal/middleware"
	"github.com/fluxohost/fluxo/internal/models"
	"github.com/fluxohost/fluxo/internal/services"
	"github.com/fluxohost/fluxo/internal/store"
)

// Server exposes the admin and provisioning API
type Server struct {
	config           *config.Config
	logger           *logger.Logger
	store            *store.Store
	pluginService    *services.PluginService
	provisionService *services.ProvisionService
	server           *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, log *logger.Logger, st *store.Store,
	pluginService *services.PluginService, provisionService *services.ProvisionService) *Server {
	return &Server{
		config:           cfg,
		logger:           log,
		store:            st,
		pluginService:    pluginService,
		provisionService: provisionService,
	}
}

// Router builds the HTTP routing table
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())

	router.HandleFunc("/health", s.handleHealthCheck).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(s.config.AdminToken))

	api.HandleFunc("/plugins", s.handleListPlugins).Methods("GET")
	api.HandleFunc("/plugins/{id}/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/plugins/{id}/settings", s.handleSaveSettings).Methods("PUT")
	api.HandleFunc("/plugins/{id}/config-fields", s.handleConfigFields).Methods("GET")
	api.HandleFunc("/plugins/{id}/field-options", s.handleFieldOptions).Methods("POST")
	api.HandleFunc("/plugins/{id}/issues", s.handleIssues).Methods("GET")
	api.HandleFunc("/plugins/{id}/enable", s.handleEnablePlugin).Methods("POST")
	api.HandleFunc("/plugins/{id}/disable", s.handleDisablePlugin).Methods("POST")

	api.HandleFunc("/services", s.handleCreateService).Methods("POST")
	api.HandleFunc("/services/{id}", s.handleGetService).Methods("GET")
	api.HandleFunc("/services/{id}/provision", s.handleProvision).Methods("POST")
	api.HandleFunc("/services/{id}/attempt", s.handleGetAttempt).Methods("GET")

	api.HandleFunc("/users/{id}/mappings/{plugin}", s.handleSetUserMapping).Methods("PUT")

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.config.Host + ":" + s.config.Port,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.WithFields(logger.Fields{
		"host": s.config.Host,
		"port": s.config.Port,
	}).Info("Starting Fluxo API server")

	return s.server.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping server")
	return s.server.Shutdown(ctx)
}

// Handler functions

func (s *Server) handleListPlugins(w http.ResponseWriter, r *http.Request) {
	pluginType := models.PluginType(r.URL.Query().Get("type"))

	listings, err := s.pluginService.ListPlugins(r.Context(), pluginType)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, listings, http.StatusOK)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	pluginID := mux.Vars(r)["id"]

	schema, err := s.pluginService.SettingsSchema(pluginID)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}
	values, err := s.pluginService.Settings(r.Context(), pluginID)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, map[string]interface{}{
		"schema": schema,
		"values": values,
	}, http.StatusOK)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	pluginID := mux.Vars(r)["id"]

	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		s.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.pluginService.SaveSettings(r.Context(), pluginID, values); err != nil {
		s.sendTypedError(w, err)
		return
	}

	// echo back the redacted state, never the stored secrets
	redacted, err := s.pluginService.Settings(r.Context(), pluginID)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, redacted, http.StatusOK)
}

func (s *Server) handleConfigFields(w http.ResponseWriter, r *http.Request) {
	pluginID := mux.Vars(r)["id"]

	fields, err := s.pluginService.ConfigFields(pluginID)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, fields, http.StatusOK)
}

func (s *Server) handleFieldOptions(w http.ResponseWriter, r *http.Request) {
	pluginID := mux.Vars(r)["id"]

	var request struct {
		FieldKey string         `json:"field_key"`
		Context  map[string]any `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if request.FieldKey == "" {
		s.sendErrorResponse(w, "field_key is required", http.StatusBadRequest)
		return
	}

	options, err := s.pluginService.FieldOptions(r.Context(), pluginID, request.FieldKey, request.Context)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, options, http.StatusOK)
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	pluginID := mux.Vars(r)["id"]

	issues, err := s.pluginService.Issues(r.Context(), pluginID)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, issues, http.StatusOK)
}

func (s *Server) handleEnablePlugin(w http.ResponseWriter, r *http.Request) {
	s.setPluginEnabled(w, r, true)
}

func (s *Server) handleDisablePlugin(w http.ResponseWriter, r *http.Request) {
	s.setPluginEnabled(w, r, false)
}

func (s *Server) setPluginEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	pluginID := mux.Vars(r)["id"]

	if err := s.pluginService.SetPluginEnabled(r.Context(), pluginID, enabled); err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, map[string]interface{}{
		"plugin_id": pluginID,
		"enabled":   enabled,
	}, http.StatusOK)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name         string         `json:"name"`
		UserID       string         `json:"user_id"`
		PluginID     string         `json:"plugin_id"`
		PluginConfig map[string]any `json:"plugin_config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if request.Name == "" || request.UserID == "" {
		s.sendErrorResponse(w, "name and user_id are required", http.StatusBadRequest)
		return
	}

	service := models.Service{
		ID:           uuid.NewString(),
		Name:         request.Name,
		UserID:       request.UserID,
		PluginID:     request.PluginID,
		PluginConfig: request.PluginConfig,
	}
	if err := s.store.CreateService(r.Context(), service); err != nil {
		s.sendTypedError(w, err)
		return
	}

	created, err := s.store.GetService(r.Context(), service.ID)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, created, http.StatusCreated)
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]

	service, err := s.store.GetService(r.Context(), serviceID)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, service, http.StatusOK)
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]

	outcome, err := s.provisionService.Provision(r.Context(), serviceID)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}

	service, err := s.store.GetService(r.Context(), serviceID)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, map[string]interface{}{
		"outcome": outcome,
		"service": service,
	}, http.StatusOK)
}

func (s *Server) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]

	attempt, found, err := s.provisionService.Attempt(r.Context(), serviceID)
	if err != nil {
		s.sendTypedError(w, err)
		return
	}
	if !found {
		s.sendErrorResponse(w, "No provisioning attempt recorded", http.StatusNotFound)
		return
	}

	s.sendSuccessResponse(w, attempt, http.StatusOK)
}

func (s *Server) handleSetUserMapping(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["id"]
	pluginID := vars["plugin"]

	var request struct {
		RemoteUserID string `json:"remote_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if request.RemoteUserID == "" {
		s.sendErrorResponse(w, "remote_user_id is required", http.StatusBadRequest)
		return
	}

	if err := s.store.SetUserMapping(r.Context(), pluginID, userID, request.RemoteUserID); err != nil {
		s.sendTypedError(w, err)
		return
	}

	s.sendSuccessResponse(w, models.UserMapping{
		UserID:       userID,
		PluginID:     pluginID,
		RemoteUserID: request.RemoteUserID,
	}, http.StatusOK)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	listings, err := s.pluginService.ListPlugins(r.Context(), "")
	if err != nil {
		s.sendErrorResponse(w, "Datastore unavailable", http.StatusServiceUnavailable)
		return
	}

	enabled := 0
	for _, listing := range listings {
		if listing.Enabled {
			enabled++
		}
	}

	s.sendSuccessResponse(w, map[string]interface{}{
		"status":          "healthy",
		"total_plugins":   len(listings),
		"enabled_plugins": enabled,
	}, http.StatusOK)
}

// Response helper functions

// sendTypedError maps the error taxonomy onto HTTP statuses. Detailed
// plugin failure text is admin-facing; these endpoints are the admin API,
// so the message passes through.
func (s *Server) sendTypedError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetType(err) {
	case errors.ErrTypeUnknownPlugin, errors.ErrTypeNotFound:
		status = http.StatusNotFound
	case errors.ErrTypeInvalidConfig, errors.ErrTypeValidation, errors.ErrTypeNotConfigured:
		status = http.StatusUnprocessableEntity
	case errors.ErrTypeUnmappedUser:
		status = http.StatusPreconditionFailed
	case errors.ErrTypeConflict:
		status = http.StatusConflict
	case errors.ErrTypeUnreachable:
		status = http.StatusBadGateway
	}
	s.sendErrorResponse(w, err.Error(), status)
}

func (s *Server) sendSuccessResponse(w http.ResponseWriter, data interface{}, statusCode int) {
	response := models.HTTPResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	response := models.HTTPResponse{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
