/*
 * Fluxo - CLI Service Commands
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// servicesCmd represents the services command group
var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Service provisioning commands",
	Long: `Inspect services and run or retry provisioning.

Provisioning a service dispatches to the plugin configured on it; a
failed attempt can be retried once the underlying problem is fixed.`,
}

var servicesShowCmd = &cobra.Command{
	Use:   "show <service-id>",
	Short: "Show a service and its provisioning attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			service, err := a.store.GetService(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("id:          %s\n", service.ID)
			fmt.Printf("name:        %s\n", service.Name)
			fmt.Printf("user:        %s\n", service.UserID)
			fmt.Printf("plugin:      %s\n", service.PluginID)
			fmt.Printf("external id: %s\n", service.ExternalID)

			attempt, found, err := a.provisionService.Attempt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if found {
				fmt.Printf("attempt:     %s\n", attempt.State)
				if attempt.Message != "" {
					fmt.Printf("message:     %s\n", attempt.Message)
				}
			}
			return nil
		})
	},
}

var servicesProvisionCmd = &cobra.Command{
	Use:   "provision <service-id>",
	Short: "Provision a service through its configured plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			outcome, err := a.provisionService.Provision(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("outcome: %s\n", outcome)
			return nil
		})
	},
}

func init() {
	servicesCmd.AddCommand(servicesShowCmd)
	servicesCmd.AddCommand(servicesProvisionCmd)
}
