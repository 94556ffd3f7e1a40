/*
 * Fluxo - Operations CLI
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package main

import (
	"os"

	"github.com/fluxohost/fluxo/cmd/fluxoctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
