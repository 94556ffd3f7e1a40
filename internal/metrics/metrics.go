/*
 * Fluxo - Prometheus Metrics
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	provisionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fluxo",
		Name:      "provision_attempts_total",
		Help:      "Provisioning attempts by plugin and outcome.",
	}, []string{"plugin_id", "outcome"})

	panelRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fluxo",
		Name:      "panel_request_duration_seconds",
		Help:      "Duration of HTTP calls to remote panels.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	fieldOptionCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fluxo",
		Name:      "field_option_cache_total",
		Help:      "Dynamic field-option lookups by cache result.",
	}, []string{"result"})
)

// ObserveProvision records one provisioning attempt outcome
func ObserveProvision(pluginID, outcome string) {
	provisionAttempts.WithLabelValues(pluginID, outcome).Inc()
}

// ObservePanelRequest records the duration of one remote panel call
func ObservePanelRequest(method, status string, duration time.Duration) {
	panelRequestDuration.WithLabelValues(method, status).Observe(duration.Seconds())
}

// ObserveFieldOptionCache records a field-option cache hit or miss
func ObserveFieldOptionCache(result string) {
	fieldOptionCache.WithLabelValues(result).Inc()
}

// Handler exposes the default prometheus registry
func Handler() http.Handler {
	return promhttp.Handler()
}
