/*
 * Fluxo - HTTP Middleware
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/fluxohost/fluxo/internal/logger"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap ResponseWriter to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.WithRequest(r.Method, r.URL.String(), r.RemoteAddr).WithFields(logger.Fields{
				"status_code": wrapped.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
				"user_agent":  r.UserAgent(),
			}).Debug("HTTP request processed")
		})
	}
}

// RecoveryMiddleware recovers from panics and logs them
func RecoveryMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.WithRequest(r.Method, r.URL.String(), r.RemoteAddr).WithFields(logger.Fields{
						"panic": err,
					}).Error("Panic recovered in HTTP handler")

					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware adds CORS headers
func CORSMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware guards the admin API with a bearer token. An empty
// configured token disables the check (development mode).
func AuthMiddleware(adminToken string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminToken == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if header == token || subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
				logger.WithRequest(r.Method, r.URL.String(), r.RemoteAddr).Warn("Rejected unauthenticated admin request")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wrapper to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
