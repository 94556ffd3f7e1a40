/*
 * Fluxo - CLI Root Command
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluxohost/fluxo/internal/config"
	"github.com/fluxohost/fluxo/internal/logger"
	"github.com/fluxohost/fluxo/internal/plugin"
	"github.com/fluxohost/fluxo/internal/plugin/pterodactyl"
	"github.com/fluxohost/fluxo/internal/services"
	"github.com/fluxohost/fluxo/internal/store"
)

var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fluxoctl",
	Short: "Fluxo – operate the plugin provisioning platform",
	Long: `fluxoctl is the operations CLI for the Fluxo hosting platform.

It talks directly to the Fluxo datastore and plugin registry to inspect
plugin health, manage plugin settings, and run or retry provisioning for
individual services.`,
	PersistentPreRunE: initializeConfig,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cfg = config.NewConfig()

	rootCmd.PersistentFlags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "Path to the Fluxo database")

	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(servicesCmd)
}

// initializeConfig initializes the configuration and logging
func initializeConfig(cmd *cobra.Command, args []string) error {
	if err := cfg.LoadFromEnv(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(cfg.GetLogLevel(), ""); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	return nil
}

// app bundles the wired platform components a CLI command needs
type app struct {
	store            *store.Store
	registry         *plugin.Registry
	pluginService    *services.PluginService
	provisionService *services.ProvisionService
}

// withApp opens the datastore, wires the registry and services, runs fn,
// and closes the datastore again.
func withApp(fn func(*app) error) error {
	st, err := store.NewStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer st.Close()

	registry := plugin.NewRegistry()
	if err := registry.Register(pterodactyl.New(st, st, cfg.PanelTimeout)); err != nil {
		return fmt.Errorf("failed to register plugin: %w", err)
	}

	log := logger.GetDefault()
	return fn(&app{
		store:            st,
		registry:         registry,
		pluginService:    services.NewPluginService(registry, st, log, 0),
		provisionService: services.NewProvisionService(registry, st, log),
	})
}
