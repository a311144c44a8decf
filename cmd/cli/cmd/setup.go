// Package cmd - shared pipeline construction
package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rut31337/cloudforge/clouds/aws"
	"github.com/rut31337/cloudforge/clouds/gcp"
	"github.com/rut31337/cloudforge/core/catalog"
	"github.com/rut31337/cloudforge/discovery"
	"github.com/rut31337/cloudforge/internal/config"
	"github.com/rut31337/cloudforge/internal/logging"
)

// loadCatalog loads the catalog directory named by flag or config, or
// the embedded defaults when neither is set.
func loadCatalog(dir string) (*catalog.Store, error) {
	if dir == "" {
		dir = config.Get().CatalogDir
	}
	if dir == "" {
		return catalog.LoadDefaults()
	}
	return catalog.Load(dir)
}

// buildGateway assembles the discovery gateway from configuration.
// Provider credential failures disable that provider's discovery and
// are logged, never fatal: static catalog rules still apply.
func buildGateway(ctx context.Context) *discovery.Gateway {
	cfg := config.Get()
	registry := discovery.NewSourceRegistry()
	log := logging.Component("setup")

	if cfg.Discovery.Enabled {
		if err := aws.Register(ctx, registry, aws.Config{
			Region:  cfg.AWS.Region,
			Profile: cfg.AWS.Profile,
		}); err != nil {
			log.Warn("aws discovery disabled", zap.Error(err))
		}
		if err := gcp.Register(ctx, registry, gcp.Config{
			CredentialsFile: cfg.GCP.CredentialsFile,
		}); err != nil {
			log.Warn("gcp discovery disabled", zap.Error(err))
		}
	}
	for _, v := range cfg.Versions {
		source := discovery.NewHTTPVersionSource(discovery.HTTPVersionConfig{
			Platform: v.Platform,
			Endpoint: v.Endpoint,
			TokenEnv: v.TokenEnv,
		})
		if err := registry.RegisterVersionSource(source); err != nil {
			log.Warn("duplicate version source", zap.String("platform", v.Platform), zap.Error(err))
		}
	}

	return discovery.NewGateway(discovery.Config{
		Timeout:       time.Duration(cfg.Discovery.TimeoutSeconds) * time.Second,
		CacheTTL:      time.Duration(cfg.Discovery.CacheTTLSeconds) * time.Second,
		MaxAttempts:   cfg.Discovery.MaxAttempts,
		RatePerSecond: cfg.Discovery.RatePerSecond,
	}, registry)
}
