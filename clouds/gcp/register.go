package gcp

import (
	"context"

	"github.com/rut31337/cloudforge/discovery"
)

// Register wires the GCP image source into a discovery registry. A
// credential failure disables GCP discovery rather than aborting startup;
// static rules remain in effect.
func Register(ctx context.Context, registry *discovery.SourceRegistry, cfg Config) error {
	source, err := NewImageSource(ctx, cfg)
	if err != nil {
		return err
	}
	return registry.RegisterImageSource(source)
}
