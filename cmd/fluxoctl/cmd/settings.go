/*
 * Fluxo - CLI Settings Commands
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// settingsCmd represents the settings command group
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Plugin settings commands",
	Long: `Read and write per-plugin settings (credentials, panel URLs).

Secret values are always shown redacted.`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <plugin-id>",
	Short: "Show a plugin's settings (secrets redacted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			values, err := a.pluginService.Settings(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			schema, err := a.pluginService.SettingsSchema(args[0])
			if err != nil {
				return err
			}
			for _, field := range schema {
				fmt.Printf("%-14s %s\n", field.Key, values[field.Key])
			}
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <plugin-id> <key=value>...",
	Short: "Save plugin settings",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values := make(map[string]string)
		for _, pair := range args[1:] {
			key, value, found := strings.Cut(pair, "=")
			if !found || key == "" {
				return fmt.Errorf("invalid setting %q, expected key=value", pair)
			}
			values[key] = value
		}

		return withApp(func(a *app) error {
			return a.pluginService.SaveSettings(cmd.Context(), args[0], values)
		})
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}
