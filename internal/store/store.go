/*
 * Fluxo - Datastore
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/fluxohost/fluxo/internal/errors"
	"github.com/fluxohost/fluxo/internal/models"
)

// Store persists plugin settings blobs, plugin enabled flags, user panel
// mappings, service records, and provisioning attempts in SQLite. Plugin
// settings are stored as an opaque JSON blob keyed by plugin id,
// last-write-wins; there is no migration mechanism for renamed keys.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (and if needed creates) the database at path
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil && !stderrors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS plugin_settings (
			plugin_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS plugin_state (
			plugin_id TEXT PRIMARY KEY,
			enabled INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_mappings (
			plugin_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			remote_user_id TEXT NOT NULL,
			PRIMARY KEY (plugin_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS services (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			plugin_id TEXT NOT NULL DEFAULT '',
			plugin_config BLOB,
			external_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS provision_attempts (
			service_id TEXT PRIMARY KEY,
			plugin_id TEXT NOT NULL,
			state TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// --- plugin settings ---

// PluginSettings reads the raw settings blob for a plugin. Callers that
// echo settings to a client must redact them first; this accessor exists
// for plugin implementations that need the actual credentials.
func (s *Store) PluginSettings(ctx context.Context, pluginID string) (map[string]string, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM plugin_settings WHERE plugin_id = ?`, pluginID).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.WrapStoreError(err, "plugin_settings", "failed to read plugin settings")
	}

	settings := make(map[string]string)
	if err := json.Unmarshal(payload, &settings); err != nil {
		return nil, errors.WrapStoreError(err, "plugin_settings", "corrupt plugin settings payload")
	}
	return settings, nil
}

// SavePluginSettings overwrites the settings blob for a plugin. Secret
// fields are write-only: an absent or masked incoming value keeps the
// stored one, so a client round-tripping a redacted read never wipes a
// credential.
func (s *Store) SavePluginSettings(ctx context.Context, pluginID string, schema []models.SettingsField, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.PluginSettings(ctx, pluginID)
	if err != nil {
		return err
	}

	merged := make(map[string]string, len(values))
	for key, value := range values {
		merged[key] = value
	}
	for _, field := range schema {
		if !field.Secret {
			continue
		}
		incoming, present := values[field.Key]
		if !present || incoming == "" || incoming == SecretMask {
			if stored, ok := current[field.Key]; ok {
				merged[field.Key] = stored
			} else {
				delete(merged, field.Key)
			}
		}
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return errors.WrapStoreError(err, "save_plugin_settings", "failed to encode settings")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plugin_settings (plugin_id, payload) VALUES (?, ?)
		 ON CONFLICT(plugin_id) DO UPDATE SET payload = excluded.payload`,
		pluginID, payload)
	if err != nil {
		return errors.WrapStoreError(err, "save_plugin_settings", "failed to persist settings")
	}
	return nil
}

// SecretMask is what secret values are replaced with on every read path
const SecretMask = "********"

// RedactSettings returns a copy of values with every secret field masked.
// Empty secrets stay empty so a client can tell "unset" from "set".
func RedactSettings(schema []models.SettingsField, values map[string]string) map[string]string {
	redacted := make(map[string]string, len(values))
	for key, value := range values {
		redacted[key] = value
	}
	for _, field := range schema {
		if !field.Secret {
			continue
		}
		if value, ok := redacted[field.Key]; ok && value != "" {
			redacted[field.Key] = SecretMask
		}
	}
	return redacted
}

// --- plugin enabled state ---

// SetPluginEnabled flips the datastore-backed enabled flag for a plugin
func (s *Store) SetPluginEnabled(ctx context.Context, pluginID string, enabled bool) error {
	flag := 0
	if enabled {
		flag = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plugin_state (plugin_id, enabled) VALUES (?, ?)
		 ON CONFLICT(plugin_id) DO UPDATE SET enabled = excluded.enabled`,
		pluginID, flag)
	if err != nil {
		return errors.WrapStoreError(err, "set_plugin_enabled", "failed to persist enabled flag")
	}
	return nil
}

// PluginEnabled reports the enabled flag; plugins with no stored state
// default to enabled.
func (s *Store) PluginEnabled(ctx context.Context, pluginID string) (bool, error) {
	var flag int
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled FROM plugin_state WHERE plugin_id = ?`, pluginID).Scan(&flag)
	if stderrors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, errors.WrapStoreError(err, "plugin_enabled", "failed to read enabled flag")
	}
	return flag != 0, nil
}

// --- user mappings ---

// SetUserMapping links an internal user to their remote panel identity
func (s *Store) SetUserMapping(ctx context.Context, pluginID, userID, remoteUserID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_mappings (plugin_id, user_id, remote_user_id) VALUES (?, ?, ?)
		 ON CONFLICT(plugin_id, user_id) DO UPDATE SET remote_user_id = excluded.remote_user_id`,
		pluginID, userID, remoteUserID)
	if err != nil {
		return errors.WrapStoreError(err, "set_user_mapping", "failed to persist user mapping")
	}
	return nil
}

// RemoteUserID resolves a user's remote identity for a plugin
func (s *Store) RemoteUserID(ctx context.Context, pluginID, userID string) (string, bool, error) {
	var remoteUserID string
	err := s.db.QueryRowContext(ctx,
		`SELECT remote_user_id FROM user_mappings WHERE plugin_id = ? AND user_id = ?`,
		pluginID, userID).Scan(&remoteUserID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapStoreError(err, "remote_user_id", "failed to read user mapping")
	}
	return remoteUserID, true, nil
}

// --- services ---

// CreateService persists a new service record
func (s *Store) CreateService(ctx context.Context, service models.Service) error {
	config, err := json.Marshal(service.PluginConfig)
	if err != nil {
		return errors.WrapStoreError(err, "create_service", "failed to encode plugin config")
	}

	now := time.Now().UTC()
	if service.CreatedAt.IsZero() {
		service.CreatedAt = now
	}
	service.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO services (id, name, user_id, plugin_id, plugin_config, external_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		service.ID, service.Name, service.UserID, service.PluginID, config,
		service.ExternalID, service.CreatedAt, service.UpdatedAt)
	if err != nil {
		return errors.WrapStoreError(err, "create_service", "failed to persist service")
	}
	return nil
}

// GetService reads one service record
func (s *Store) GetService(ctx context.Context, id string) (models.Service, error) {
	var (
		service models.Service
		config  []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, plugin_id, plugin_config, external_id, created_at, updated_at
		 FROM services WHERE id = ?`, id).
		Scan(&service.ID, &service.Name, &service.UserID, &service.PluginID,
			&config, &service.ExternalID, &service.CreatedAt, &service.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.Service{}, errors.NewNotFoundError("get_service",
			fmt.Sprintf("service %s not found", id))
	}
	if err != nil {
		return models.Service{}, errors.WrapStoreError(err, "get_service", "failed to read service")
	}

	if len(config) > 0 {
		if err := json.Unmarshal(config, &service.PluginConfig); err != nil {
			return models.Service{}, errors.WrapStoreError(err, "get_service", "corrupt plugin config payload")
		}
	}
	return service, nil
}

// SetServiceExternalID stores the remote identifier a plugin returned
func (s *Store) SetServiceExternalID(ctx context.Context, id, externalID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE services SET external_id = ?, updated_at = ? WHERE id = ?`,
		externalID, time.Now().UTC(), id)
	if err != nil {
		return errors.WrapStoreError(err, "set_external_id", "failed to persist external id")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.WrapStoreError(err, "set_external_id", "failed to check update result")
	}
	if affected == 0 {
		return errors.NewNotFoundError("set_external_id",
			fmt.Sprintf("service %s not found", id))
	}
	return nil
}

// ListServices returns all service records ordered by creation time
func (s *Store) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, user_id, plugin_id, plugin_config, external_id, created_at, updated_at
		 FROM services ORDER BY created_at`)
	if err != nil {
		return nil, errors.WrapStoreError(err, "list_services", "failed to read services")
	}
	defer func() { _ = rows.Close() }()

	var services []models.Service
	for rows.Next() {
		var (
			service models.Service
			config  []byte
		)
		if err := rows.Scan(&service.ID, &service.Name, &service.UserID, &service.PluginID,
			&config, &service.ExternalID, &service.CreatedAt, &service.UpdatedAt); err != nil {
			return nil, errors.WrapStoreError(err, "list_services", "failed to scan service")
		}
		if len(config) > 0 {
			if err := json.Unmarshal(config, &service.PluginConfig); err != nil {
				return nil, errors.WrapStoreError(err, "list_services", "corrupt plugin config payload")
			}
		}
		services = append(services, service)
	}
	return services, rows.Err()
}

// --- provisioning attempts ---

// BeginAttempt check-and-sets the provisioning attempt for a service.
// A pending attempt blocks concurrent runs and a succeeded attempt blocks
// re-provisioning entirely; a failed attempt may be retried by an admin
// and transitions back to pending.
func (s *Store) BeginAttempt(ctx context.Context, serviceID, pluginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStoreError(err, "begin_attempt", "failed to open transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var state string
	err = tx.QueryRowContext(ctx,
		`SELECT state FROM provision_attempts WHERE service_id = ?`, serviceID).Scan(&state)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		// first attempt
	case err != nil:
		return errors.WrapStoreError(err, "begin_attempt", "failed to read attempt state")
	case state == string(models.AttemptStatePending):
		return errors.NewConflictError("begin_attempt",
			fmt.Sprintf("provisioning already in progress for service %s", serviceID))
	case state == string(models.AttemptStateSucceeded):
		return errors.NewConflictError("begin_attempt",
			fmt.Sprintf("service %s is already provisioned", serviceID))
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO provision_attempts (service_id, plugin_id, state, message, updated_at)
		 VALUES (?, ?, ?, '', ?)
		 ON CONFLICT(service_id) DO UPDATE SET
			plugin_id = excluded.plugin_id,
			state = excluded.state,
			message = '',
			updated_at = excluded.updated_at`,
		serviceID, pluginID, string(models.AttemptStatePending), time.Now().UTC())
	if err != nil {
		return errors.WrapStoreError(err, "begin_attempt", "failed to persist attempt")
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapStoreError(err, "begin_attempt", "failed to commit attempt")
	}
	return nil
}

// FinishAttempt records the outcome of a provisioning run
func (s *Store) FinishAttempt(ctx context.Context, serviceID string, state models.AttemptState, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE provision_attempts SET state = ?, message = ?, updated_at = ? WHERE service_id = ?`,
		string(state), message, time.Now().UTC(), serviceID)
	if err != nil {
		return errors.WrapStoreError(err, "finish_attempt", "failed to persist attempt outcome")
	}
	return nil
}

// GetAttempt reads the provisioning attempt for a service
func (s *Store) GetAttempt(ctx context.Context, serviceID string) (models.ProvisionAttempt, bool, error) {
	var attempt models.ProvisionAttempt
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT service_id, plugin_id, state, message, updated_at
		 FROM provision_attempts WHERE service_id = ?`, serviceID).
		Scan(&attempt.ServiceID, &attempt.PluginID, &state, &attempt.Message, &attempt.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.ProvisionAttempt{}, false, nil
	}
	if err != nil {
		return models.ProvisionAttempt{}, false, errors.WrapStoreError(err, "get_attempt", "failed to read attempt")
	}
	attempt.State = models.AttemptState(state)
	return attempt, true, nil
}
