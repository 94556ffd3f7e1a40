/*
 * Fluxo - Centralized Logging
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with platform-specific helpers
type Logger struct {
	*logrus.Logger
}

// Fields represents structured logging fields
type Fields = logrus.Fields

var defaultLogger *Logger

// Init initializes the default logger with the specified configuration
func Init(level string, logDir string) error {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", level, err)
	}
	logger.SetLevel(logLevel)

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		logFile := filepath.Join(logDir, fmt.Sprintf("fluxo_%s.log",
			time.Now().Format("2006-01-02")))

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		logger.SetOutput(io.MultiWriter(os.Stdout, file))
	} else {
		logger.SetOutput(os.Stdout)
	}

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	defaultLogger = &Logger{Logger: logger}
	return nil
}

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	if defaultLogger == nil {
		// Fallback to basic logger if not initialized
		logger := logrus.New()
		logger.SetLevel(logrus.InfoLevel)
		defaultLogger = &Logger{Logger: logger}
	}
	return defaultLogger
}

// WithFields creates a new logger entry with structured fields
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields(fields))
}

// WithComponent creates a logger entry with a component field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// WithRequest creates a logger entry with request context
func (l *Logger) WithRequest(method, url, remoteAddr string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"method":      method,
		"url":         url,
		"remote_addr": remoteAddr,
	})
}

// WithPlugin creates a logger entry with plugin context
func (l *Logger) WithPlugin(pluginID string) *logrus.Entry {
	return l.Logger.WithField("plugin_id", pluginID)
}

// WithService creates a logger entry with service context
func (l *Logger) WithService(serviceID string) *logrus.Entry {
	return l.Logger.WithField("service_id", serviceID)
}

// Package-level convenience functions

func Info(args ...interface{}) {
	GetDefault().Info(args...)
}

func Infof(format string, args ...interface{}) {
	GetDefault().Infof(format, args...)
}

func Warn(args ...interface{}) {
	GetDefault().Warn(args...)
}

func Error(args ...interface{}) {
	GetDefault().Error(args...)
}

func Errorf(format string, args ...interface{}) {
	GetDefault().Errorf(format, args...)
}

func Fatal(args ...interface{}) {
	GetDefault().Fatal(args...)
}

func Debug(args ...interface{}) {
	GetDefault().Debug(args...)
}

func WithFields(fields Fields) *logrus.Entry {
	return GetDefault().WithFields(fields)
}

func WithComponent(component string) *logrus.Entry {
	return GetDefault().WithComponent(component)
}

func WithRequest(method, url, remoteAddr string) *logrus.Entry {
	return GetDefault().WithRequest(method, url, remoteAddr)
}

func WithPlugin(pluginID string) *logrus.Entry {
	return GetDefault().WithPlugin(pluginID)
}

func WithService(serviceID string) *logrus.Entry {
	return GetDefault().WithService(serviceID)
}
