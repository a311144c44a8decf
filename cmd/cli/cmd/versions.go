// Package cmd - versions command
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rut31337/cloudforge/core/version"
	"github.com/rut31337/cloudforge/discovery"
)

// versionsCmd lists the supported versions for a platform
var versionsCmd = &cobra.Command{
	Use:   "versions [platform]",
	Short: "List supported versions for a platform",
	Long: `Fetch the supported version list for a managed platform from its
configured version feed.

Examples:
  cloudforge versions openshift`,
	Args: cobra.ExactArgs(1),
	RunE: runVersions,
}

func runVersions(cmd *cobra.Command, args []string) error {
	platform := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gateway := buildGateway(ctx)
	raw, state, err := gateway.Versions(ctx, platform)
	if err != nil {
		return err
	}

	snap, err := version.NewCatalog(0).Put(platform, raw)
	if err != nil {
		return err
	}
	for _, v := range snap.Supported() {
		marker := ""
		switch v {
		case snap.Latest():
			marker = "  (latest)"
		case snap.Stable():
			marker = "  (stable)"
		}
		fmt.Printf("%s%s\n", v, marker)
	}
	if state == discovery.StateStale || state == discovery.StateFallbackActive {
		fmt.Println("warning: served from a stale cache")
	}
	return nil
}
