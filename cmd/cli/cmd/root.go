// Package cmd provides the CLI commands for cloudforge.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rut31337/cloudforge/internal/config"
	"github.com/rut31337/cloudforge/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cloudforge",
	Short: "Resolve abstract compute requests across cloud providers",
	Long: `cloudforge maps provider-agnostic instance requests to concrete
machine types, images, and platform versions on eight cloud providers,
and ranks the candidates by effective hourly cost.

Examples:
  cloudforge resolve instances.yaml
  cloudforge resolve --format json --mode permissive instances.yaml
  cloudforge catalog validate ./catalog
  cloudforge versions openshift`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cloudforge.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	// Initialize logging
	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cloudforge version 0.1.0")
	},
}
