// Package main is the entry point for the cloudforge CLI.
package main

import (
	"os"

	"github.com/rut31337/cloudforge/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
