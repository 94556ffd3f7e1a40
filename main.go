/*
 * Fluxo - API Server Entrypoint
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluxohost/fluxo/internal/config"
	"github.com/fluxohost/fluxo/internal/logger"
	"github.com/fluxohost/fluxo/internal/plugin"
	"github.com/fluxohost/fluxo/internal/plugin/pterodactyl"
	"github.com/fluxohost/fluxo/internal/server"
	"github.com/fluxohost/fluxo/internal/services"
	"github.com/fluxohost/fluxo/internal/store"
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		logger.Fatal("Failed to load configuration: ", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration: ", err)
	}

	if err := logger.Init(cfg.GetLogLevel(), cfg.LogDir); err != nil {
		logger.Fatal("Failed to initialize logging: ", err)
	}
	log := logger.GetDefault()

	st, err := store.NewStore(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open datastore: ", err)
	}
	defer st.Close()

	// the supported plugin set is compiled in; dispatch happens by
	// manifest id at runtime
	registry := plugin.NewRegistry()
	if err := registry.Register(pterodactyl.New(st, st, cfg.PanelTimeout)); err != nil {
		log.Fatal("Failed to register plugin: ", err)
	}

	pluginService := services.NewPluginService(registry, st, log, cfg.FieldOptionTTL)
	provisionService := services.NewProvisionService(registry, st, log)

	srv := server.New(cfg, log, st, pluginService, provisionService)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal("Server failed: ", err)
	case sig := <-sigCh:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Error("Graceful shutdown failed: ", err)
	}
}
