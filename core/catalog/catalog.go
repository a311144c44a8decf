package catalog

import (
	"github.com/rut31337/cloudforge/core/determinism"
	"github.com/rut31337/cloudforge/core/types"
)

// Store holds all static mapping data for a run: flavors, image aliases,
// and cost policy. It is populated by the loader, read-only afterwards,
// and safe for concurrent use without further locking.
type Store struct {
	flavors     *determinism.StableMap[string, *FlavorEntry]
	images      *determinism.StableMap[string, *ImageAlias]
	policy      *CostPolicy
	providers   []types.Provider
	fingerprint determinism.ContentHash
}

// NewStore creates an empty store with a default policy
func NewStore() *Store {
	return &Store{
		flavors: determinism.NewStableMap[string, *FlavorEntry](),
		images:  determinism.NewStableMap[string, *ImageAlias](),
		policy:  DefaultCostPolicy(),
	}
}

// Flavor returns the entry for a symbolic size
func (s *Store) Flavor(size string) (*FlavorEntry, bool) {
	return s.flavors.Get(size)
}

// Sizes returns all symbolic sizes in stable order
func (s *Store) Sizes() []string {
	return s.flavors.Keys()
}

// AllFlavors iterates entries in stable size order
func (s *Store) AllFlavors(fn func(*FlavorEntry) bool) {
	s.flavors.Range(func(_ string, e *FlavorEntry) bool {
		return fn(e)
	})
}

// Alias returns the alias entry for a symbolic image name
func (s *Store) Alias(name string) (*ImageAlias, bool) {
	return s.images.Get(name)
}

// ImageRule returns the rule for an alias on a provider
func (s *Store) ImageRule(alias string, p types.Provider) (*ImageRule, bool) {
	a, ok := s.images.Get(alias)
	if !ok {
		return nil, false
	}
	return a.Rule(p)
}

// Aliases returns all alias names in stable order
func (s *Store) Aliases() []string {
	return s.images.Keys()
}

// Policy returns the loaded cost policy
func (s *Store) Policy() *CostPolicy {
	return s.policy
}

// Providers returns the providers with at least one catalog file loaded,
// in canonical order.
func (s *Store) Providers() []types.Provider {
	out := make([]types.Provider, len(s.providers))
	copy(out, s.providers)
	return out
}

// Fingerprint identifies the exact catalog content that was loaded.
// Results carry it so rankings can be traced to their mapping data.
func (s *Store) Fingerprint() determinism.ContentHash {
	return s.fingerprint
}

// SuggestSize returns the closest known symbolic size for a misspelled
// name, or empty if nothing is close enough.
func (s *Store) SuggestSize(name string) string {
	return closest(name, s.flavors.Keys())
}

// SuggestAlias returns the closest known image alias for a misspelled
// name, or empty if nothing is close enough.
func (s *Store) SuggestAlias(name string) string {
	return closest(name, s.images.Keys())
}

func (s *Store) addFlavor(size string) *FlavorEntry {
	if e, ok := s.flavors.Get(size); ok {
		return e
	}
	e := NewFlavorEntry(size)
	s.flavors.Set(size, e)
	return e
}

func (s *Store) addAlias(name string) *ImageAlias {
	if a, ok := s.images.Get(name); ok {
		return a
	}
	a := NewImageAlias(name)
	s.images.Set(name, a)
	return a
}

func (s *Store) addProvider(p types.Provider) {
	for _, q := range s.providers {
		if q == p {
			return
		}
	}
	s.providers = append(s.providers, p)
	// keep canonical order
	for i := 1; i < len(s.providers); i++ {
		for j := i; j > 0 && s.providers[j].Index() < s.providers[j-1].Index(); j-- {
			s.providers[j], s.providers[j-1] = s.providers[j-1], s.providers[j]
		}
	}
}
