package engine

import (
	"time"

	"github.com/rut31337/cloudforge/core/types"
)

// InstanceResult is the resolution outcome for one instance request
type InstanceResult struct {
	// ID is the deterministic identity of this outcome: the same request
	// against the same catalog always yields the same ID
	ID string `json:"id"`

	// Name is the request name
	Name string `json:"name"`

	// Kind is the request classification (size, explicit, gpu)
	Kind string `json:"kind"`

	// Optimized reports whether a meta-provider drove automatic selection
	Optimized bool `json:"optimized"`

	// Candidates are the fully resolved per-provider candidates in
	// canonical provider order
	Candidates []types.ResolvedCandidate `json:"candidates"`

	// Ranking is the cost ordering over the candidates. Winner is the
	// selected candidate when Optimized; otherwise the ranking is
	// explanatory only.
	Ranking *types.Ranking `json:"ranking,omitempty"`

	// Advisories are instance-level degradation notes, including one
	// entry per provider skipped during resolution
	Advisories []types.Advisory `json:"advisories,omitempty"`

	// Error is set when the instance could not be resolved at all
	Error string `json:"error,omitempty"`
}

// Failed reports whether the instance produced no usable outcome
func (r *InstanceResult) Failed() bool {
	return r.Error != ""
}

// Result is the outcome of resolving a whole request document. The same
// document against the same catalog always yields a byte-identical
// Result apart from ID and GeneratedAt.
type Result struct {
	// ID uniquely labels this resolution run
	ID string `json:"id"`

	// CatalogHash fingerprints the catalog content the run used
	CatalogHash string `json:"catalog_hash"`

	// GeneratedAt is the wall-clock completion time
	GeneratedAt time.Time `json:"generated_at"`

	// Instances are the per-request outcomes in document order
	Instances []InstanceResult `json:"instances"`
}

// Failed reports whether any instance failed
func (r *Result) Failed() bool {
	for i := range r.Instances {
		if r.Instances[i].Failed() {
			return true
		}
	}
	return false
}
