// Package catalog - static mapping data for resource resolution
// This is the authoritative source for flavors, image aliases, and cost
// policy. It is loaded once at startup and read-only for the run.
package catalog

import (
	"github.com/rut31337/cloudforge/core/types"
)

// FlavorEntry maps one symbolic size to its per-provider machine types.
// Each provider lists candidates in declaration order; the first one is
// the default used when the caller is not cost-optimizing.
type FlavorEntry struct {
	size       string
	byProvider map[types.Provider][]types.MachineDescriptor
	providers  []types.Provider
}

// NewFlavorEntry creates an empty entry for a symbolic size
func NewFlavorEntry(size string) *FlavorEntry {
	return &FlavorEntry{
		size:       size,
		byProvider: make(map[types.Provider][]types.MachineDescriptor),
	}
}

// Size returns the symbolic size name
func (f *FlavorEntry) Size() string {
	return f.size
}

// Add appends a descriptor for a provider, preserving declaration order
func (f *FlavorEntry) Add(d types.MachineDescriptor) {
	if _, ok := f.byProvider[d.Provider]; !ok {
		f.providers = append(f.providers, d.Provider)
	}
	f.byProvider[d.Provider] = append(f.byProvider[d.Provider], d)
}

// Descriptors returns all candidates for a provider in declaration order
func (f *FlavorEntry) Descriptors(p types.Provider) []types.MachineDescriptor {
	ds := f.byProvider[p]
	out := make([]types.MachineDescriptor, len(ds))
	copy(out, ds)
	return out
}

// Default returns the provider's default (first-declared) descriptor
func (f *FlavorEntry) Default(p types.Provider) (types.MachineDescriptor, bool) {
	ds := f.byProvider[p]
	if len(ds) == 0 {
		return types.MachineDescriptor{}, false
	}
	return ds[0], true
}

// Providers returns the providers offering this size, in declaration order
func (f *FlavorEntry) Providers() []types.Provider {
	out := make([]types.Provider, len(f.providers))
	copy(out, f.providers)
	return out
}
