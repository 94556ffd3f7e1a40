/*
 * Fluxo - Provisioning Orchestrator
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package services

import (
	"context"

	"github.com/fluxohost/fluxo/internal/errors"
	"github.com/fluxohost/fluxo/internal/logger"
	"github.com/fluxohost/fluxo/internal/metrics"
	"github.com/fluxohost/fluxo/internal/models"
	"github.com/fluxohost/fluxo/internal/plugin"
	"github.com/fluxohost/fluxo/internal/store"
)

// ProvisionService bridges the payment-confirmed commerce flow to a
// registered plugin's provisioning operation. It is plugin-agnostic: it
// never interprets plugin errors, only records and propagates them.
type ProvisionService struct {
	registry *plugin.Registry
	store    *store.Store
	logger   *logger.Logger
}

// NewProvisionService constructs the orchestrator
func NewProvisionService(registry *plugin.Registry, st *store.Store, log *logger.Logger) *ProvisionService {
	return &ProvisionService{
		registry: registry,
		store:    st,
		logger:   log,
	}
}

// ProvisionOutcome describes how a provisioning request ended
type ProvisionOutcome string

const (
	// OutcomeManual means the service has no plugin attached and awaits
	// manual fulfillment
	OutcomeManual ProvisionOutcome = "manual"
	// OutcomeProvisioned means the plugin created the remote resource
	OutcomeProvisioned ProvisionOutcome = "provisioned"
)

// Provision runs the provisioning flow for a service that was just paid
// for. A service without a plugin id is a no-op manual-fulfillment path.
// One attempt record per service enforces at-most-once semantics: a
// concurrent or repeated call fails with a conflict instead of creating a
// second remote server.
func (ps *ProvisionService) Provision(ctx context.Context, serviceID string) (ProvisionOutcome, error) {
	service, err := ps.store.GetService(ctx, serviceID)
	if err != nil {
		return "", err
	}

	if service.PluginID == "" {
		ps.logger.WithService(serviceID).Info("Service has no plugin attached, awaiting manual fulfillment")
		return OutcomeManual, nil
	}

	sp, err := ps.registry.Service(service.PluginID)
	if err != nil {
		// admin-facing configuration error: a product still references a
		// plugin that is no longer installed
		ps.logger.WithService(serviceID).WithFields(logger.Fields{
			"plugin_id": service.PluginID,
			"error":     err,
		}).Error("Configured plugin is not installed")
		metrics.ObserveProvision(service.PluginID, "unknown_plugin")
		return "", err
	}

	enabled, err := ps.store.PluginEnabled(ctx, service.PluginID)
	if err != nil {
		return "", err
	}
	if !enabled {
		metrics.ObserveProvision(service.PluginID, "disabled")
		return "", errors.Newf(errors.ErrTypeUnknownPlugin, "provision",
			"plugin %q is disabled", service.PluginID)
	}

	if err := ps.store.BeginAttempt(ctx, serviceID, service.PluginID); err != nil {
		metrics.ObserveProvision(service.PluginID, "rejected")
		return "", err
	}

	ps.logger.WithService(serviceID).WithField("plugin_id", service.PluginID).Info("Provisioning service")

	result, err := sp.ProvisionService(ctx, models.ProvisionInput{
		ServiceName:  service.Name,
		UserID:       service.UserID,
		PluginConfig: service.PluginConfig,
	})
	if err != nil {
		// keep the detailed message for the admin view; customers only
		// ever see a generic failure
		if finishErr := ps.store.FinishAttempt(ctx, serviceID, models.AttemptStateFailed, err.Error()); finishErr != nil {
			ps.logger.WithService(serviceID).WithFields(logger.Fields{
				"error": finishErr,
			}).Error("Failed to record provisioning failure")
		}
		ps.logger.WithService(serviceID).WithField("plugin_id", service.PluginID).WithFields(logger.Fields{
			"error_type": errors.GetType(err),
			"error":      err,
		}).Error("Provisioning failed")
		metrics.ObserveProvision(service.PluginID, string(errors.GetType(err)))
		return "", err
	}

	if err := ps.store.SetServiceExternalID(ctx, serviceID, result.ExternalID); err != nil {
		// remote resource exists but we could not record it; surface the
		// external id in the error so an admin can reconcile by hand
		if finishErr := ps.store.FinishAttempt(ctx, serviceID, models.AttemptStateFailed, err.Error()); finishErr != nil {
			ps.logger.WithService(serviceID).WithFields(logger.Fields{
				"error": finishErr,
			}).Error("Failed to record provisioning failure")
		}
		metrics.ObserveProvision(service.PluginID, "store_error")
		return "", errors.WrapStoreError(err, "provision",
			"provisioned remote resource "+result.ExternalID+" but failed to persist it")
	}

	if err := ps.store.FinishAttempt(ctx, serviceID, models.AttemptStateSucceeded, ""); err != nil {
		ps.logger.WithService(serviceID).WithFields(logger.Fields{
			"error": err,
		}).Error("Failed to record provisioning success")
	}

	ps.logger.WithService(serviceID).WithField("plugin_id", service.PluginID).WithFields(logger.Fields{
		"external_id": result.ExternalID,
	}).Info("Service provisioned")
	metrics.ObserveProvision(service.PluginID, "success")

	return OutcomeProvisioned, nil
}

// Attempt exposes the provisioning attempt record for the admin view
func (ps *ProvisionService) Attempt(ctx context.Context, serviceID string) (models.ProvisionAttempt, bool, error) {
	return ps.store.GetAttempt(ctx, serviceID)
}
