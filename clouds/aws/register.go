package aws

import (
	"context"

	"github.com/rut31337/cloudforge/discovery"
)

// Register wires the AWS image source into a discovery registry. Errors
// here mean no ambient credentials; callers treat that as "AWS discovery
// disabled", not a startup failure, since static rules still apply.
func Register(ctx context.Context, registry *discovery.SourceRegistry, cfg Config) error {
	source, err := NewImageSource(ctx, cfg)
	if err != nil {
		return err
	}
	return registry.RegisterImageSource(source)
}
