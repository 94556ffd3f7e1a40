/*
 * Fluxo - CLI Plugin Commands
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pluginsCmd represents the plugins command group
var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Plugin management commands",
	Long: `Inspect and manage installed plugins.

Available subcommands:
• list    - List installed plugins and their enabled state
• issues  - Run a plugin's health probe
• fields  - Show a plugin's per-product config fields
• enable  - Enable a plugin
• disable - Disable a plugin`,
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			listings, err := a.pluginService.ListPlugins(cmd.Context(), "")
			if err != nil {
				return err
			}
			for _, listing := range listings {
				state := "enabled"
				if !listing.Enabled {
					state = "disabled"
				}
				fmt.Printf("%-20s %-10s %-8s %s (%s)\n",
					listing.ID, listing.Type, listing.Version, listing.Name, state)
			}
			return nil
		})
	},
}

var pluginsIssuesCmd = &cobra.Command{
	Use:   "issues <plugin-id>",
	Short: "Run a plugin's health probe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			issues, err := a.pluginService.Issues(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				fmt.Println("no issues")
				return nil
			}
			for _, issue := range issues {
				fmt.Printf("[%s] %s\n", issue.Severity, issue.Message)
				if issue.Details != "" {
					fmt.Printf("        %s\n", issue.Details)
				}
			}
			return nil
		})
	},
}

var pluginsFieldsCmd = &cobra.Command{
	Use:   "fields <plugin-id>",
	Short: "Show a service plugin's config fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			fields, err := a.pluginService.ConfigFields(args[0])
			if err != nil {
				return err
			}
			for _, field := range fields {
				attrs := ""
				if field.Required {
					attrs += " required"
				}
				if field.DynamicOptions {
					attrs += " dynamic"
				}
				fmt.Printf("%-14s %-8s%s\n", field.Key, field.Type, attrs)
			}
			return nil
		})
	},
}

var pluginsEnableCmd = &cobra.Command{
	Use:   "enable <plugin-id>",
	Short: "Enable a plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			return a.pluginService.SetPluginEnabled(cmd.Context(), args[0], true)
		})
	},
}

var pluginsDisableCmd = &cobra.Command{
	Use:   "disable <plugin-id>",
	Short: "Disable a plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			return a.pluginService.SetPluginEnabled(cmd.Context(), args[0], false)
		})
	},
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsIssuesCmd)
	pluginsCmd.AddCommand(pluginsFieldsCmd)
	pluginsCmd.AddCommand(pluginsEnableCmd)
	pluginsCmd.AddCommand(pluginsDisableCmd)
}
