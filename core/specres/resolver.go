// Package specres maps abstract instance requests to concrete
// per-provider machine descriptors.
package specres

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/rut31337/cloudforge/core/catalog"
	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/internal/errors"
	"github.com/rut31337/cloudforge/internal/logging"
)

// Resolver selects machine descriptors from the catalog. Pure table
// computation: it never blocks and needs no locking.
type Resolver struct {
	catalog *catalog.Store
	log     *zap.Logger
}

// NewResolver creates a spec resolver over a catalog store
func NewResolver(store *catalog.Store) *Resolver {
	return &Resolver{
		catalog: store,
		log:     logging.Component("specres"),
	}
}

// Resolve produces zero or one descriptor per eligible provider. A
// provider that simply does not offer a matching shape is skipped with a
// reason, not an error; only an empty result across every provider is
// NoEligibleCandidate. When optimizing, multiple candidate machine types
// per size resolve to the cheapest instead of the first-declared default.
func (r *Resolver) Resolve(req *types.InstanceRequest, providers []types.Provider, optimizing bool) (map[types.Provider]types.MachineDescriptor, map[types.Provider]string, error) {
	selected := make(map[types.Provider]types.MachineDescriptor)
	skipped := make(map[types.Provider]string)

	var resolve func(p types.Provider) (types.MachineDescriptor, string)
	switch req.Kind() {
	case types.KindSize:
		entry, ok := r.catalog.Flavor(req.Size)
		if !ok {
			err := errors.NoEligibleCandidate(fmt.Sprintf("unknown size %q", req.Size)).
				WithContext("size", req.Size).
				WithContext("known_sizes", r.catalog.Sizes())
			if suggestion := r.catalog.SuggestSize(req.Size); suggestion != "" {
				err = err.WithContext("did_you_mean", suggestion)
			}
			return nil, nil, err
		}
		resolve = func(p types.Provider) (types.MachineDescriptor, string) {
			return r.resolveSize(entry, p, optimizing)
		}
	case types.KindExplicit:
		resolve = func(p types.Provider) (types.MachineDescriptor, string) {
			return r.resolveExplicit(p, req.Cores, req.MemoryMB)
		}
	case types.KindGPU:
		resolve = func(p types.Provider) (types.MachineDescriptor, string) {
			return r.resolveGPU(p, req.GPUType, req.EffectiveGPUCount())
		}
	}

	var reasons *multierror.Error
	for _, p := range providers {
		d, reason := resolve(p)
		if reason != "" {
			skipped[p] = reason
			reasons = multierror.Append(reasons, fmt.Errorf("%s: %s", p, reason))
			continue
		}
		selected[p] = d
	}

	if len(selected) == 0 {
		err := errors.NoEligibleCandidate(fmt.Sprintf("no provider can satisfy request %q", req.Name)).
			WithContext("kind", req.Kind().String())
		if reasons != nil {
			err = err.WithContext("detail", reasons.Error())
		}
		return nil, skipped, err
	}
	return selected, skipped, nil
}

// resolveSize is a direct table lookup. Candidates keep declaration
// order; the first one is the default unless we are cost-optimizing.
func (r *Resolver) resolveSize(entry *catalog.FlavorEntry, p types.Provider, optimizing bool) (types.MachineDescriptor, string) {
	candidates := entry.Descriptors(p)
	if len(candidates) == 0 {
		return types.MachineDescriptor{}, fmt.Sprintf("size %q not offered", entry.Size())
	}
	if !optimizing {
		return candidates[0], ""
	}
	best := candidates[0]
	for _, d := range candidates[1:] {
		if d.HourlyCost.LessThan(best.HourlyCost) {
			best = d
		}
	}
	return best, ""
}

// resolveExplicit applies closest-fit-above: the smallest machine type
// with capacity >= the request on both dimensions, never a smaller one.
// Smallest means fewest vCPUs, then least memory; exact capacity ties
// break by lowest cost, then machine type for determinism.
func (r *Resolver) resolveExplicit(p types.Provider, cores, memoryMB int) (types.MachineDescriptor, string) {
	var best *types.MachineDescriptor
	r.catalog.AllFlavors(func(entry *catalog.FlavorEntry) bool {
		for _, d := range entry.Descriptors(p) {
			if !d.Fits(cores, memoryMB) {
				continue
			}
			d := d
			if best == nil || closerFit(&d, best) {
				best = &d
			}
		}
		return true
	})
	if best == nil {
		return types.MachineDescriptor{}, fmt.Sprintf("no machine type fits %d cores / %d MB", cores, memoryMB)
	}
	return *best, ""
}

func closerFit(a, b *types.MachineDescriptor) bool {
	if a.VCPUs != b.VCPUs {
		return a.VCPUs < b.VCPUs
	}
	if a.MemoryMB != b.MemoryMB {
		return a.MemoryMB < b.MemoryMB
	}
	if c := a.HourlyCost.Cmp(b.HourlyCost); c != 0 {
		return c < 0
	}
	return a.MachineType < b.MachineType
}

// resolveGPU requires an exact GPU type match and count >= requested.
// Substituting a different accelerator is never done silently; a
// provider without the exact type yields no candidate.
func (r *Resolver) resolveGPU(p types.Provider, gpuType string, count int) (types.MachineDescriptor, string) {
	var best *types.MachineDescriptor
	r.catalog.AllFlavors(func(entry *catalog.FlavorEntry) bool {
		for _, d := range entry.Descriptors(p) {
			if !d.MatchesGPU(gpuType, count) {
				continue
			}
			d := d
			if best == nil || gpuCheaper(&d, best) {
				best = &d
			}
		}
		return true
	})
	if best == nil {
		return types.MachineDescriptor{}, fmt.Sprintf("no machine type carries %dx %s", count, gpuType)
	}
	return *best, ""
}

func gpuCheaper(a, b *types.MachineDescriptor) bool {
	if c := a.HourlyCost.Cmp(b.HourlyCost); c != 0 {
		return c < 0
	}
	return a.MachineType < b.MachineType
}
