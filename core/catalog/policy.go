package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/rut31337/cloudforge/core/types"
)

// CostPolicy drives automatic provider selection. Loaded once at startup
// and immutable for the run; overrides produce a new value.
type CostPolicy struct {
	// Exclusions are providers never eligible for auto-selection. They
	// are removed before ranking, not merely de-prioritized.
	Exclusions []types.Provider

	// Priority is the tie-break order when effective costs are equal
	// within TieEpsilon. Providers not listed sort after all listed
	// providers in canonical order.
	Priority []types.Provider

	// RegionFactors are multiplicative cost adjustments keyed by region
	RegionFactors map[string]decimal.Decimal

	// ProviderFactors are multiplicative cost adjustments keyed by
	// provider, e.g. to model amortized on-premises hardware
	ProviderFactors map[types.Provider]decimal.Decimal

	// TieEpsilon is the cost distance treated as "equal" for tie-breaks.
	// Zero means exact equality.
	TieEpsilon decimal.Decimal
}

// DefaultCostPolicy returns an empty policy: no exclusions, no priority,
// unit factors, exact-equality ties.
func DefaultCostPolicy() *CostPolicy {
	return &CostPolicy{
		RegionFactors:   map[string]decimal.Decimal{},
		ProviderFactors: map[types.Provider]decimal.Decimal{},
		TieEpsilon:      decimal.Zero,
	}
}

// Excluded reports whether a provider is in the exclusion set
func (p *CostPolicy) Excluded(prov types.Provider) bool {
	for _, e := range p.Exclusions {
		if e == prov {
			return true
		}
	}
	return false
}

// RegionFactor returns the multiplicative factor for a region (default 1)
func (p *CostPolicy) RegionFactor(region string) decimal.Decimal {
	if f, ok := p.RegionFactors[region]; ok {
		return f
	}
	return decimal.NewFromInt(1)
}

// ProviderFactor returns the multiplicative factor for a provider (default 1)
func (p *CostPolicy) ProviderFactor(prov types.Provider) decimal.Decimal {
	if f, ok := p.ProviderFactors[prov]; ok {
		return f
	}
	return decimal.NewFromInt(1)
}

// PriorityIndex returns the provider's tie-break position, or
// len(Priority) when the provider is not listed.
func (p *CostPolicy) PriorityIndex(prov types.Provider) int {
	for i, q := range p.Priority {
		if q == prov {
			return i
		}
	}
	return len(p.Priority)
}

// Overrides carries caller-level policy adjustments. Zero values leave
// the corresponding policy field untouched, so an absent knob never
// changes the outcome versus an explicit default.
type Overrides struct {
	// Exclusions are added to the policy exclusion set
	Exclusions []types.Provider

	// Priority replaces the tie-break order when non-empty
	Priority []types.Provider

	// RegionFactors are merged over the policy's regional factors
	RegionFactors map[string]decimal.Decimal

	// ProviderFactors are merged over the policy's provider factors
	ProviderFactors map[types.Provider]decimal.Decimal

	// TieEpsilon replaces the tie epsilon when non-nil
	TieEpsilon *decimal.Decimal
}

// Apply returns a new policy with the overrides folded in. The receiver
// is never mutated.
func (p *CostPolicy) Apply(o Overrides) *CostPolicy {
	out := &CostPolicy{
		Exclusions:      append(append([]types.Provider{}, p.Exclusions...), o.Exclusions...),
		Priority:        append([]types.Provider{}, p.Priority...),
		RegionFactors:   map[string]decimal.Decimal{},
		ProviderFactors: map[types.Provider]decimal.Decimal{},
		TieEpsilon:      p.TieEpsilon,
	}
	for k, v := range p.RegionFactors {
		out.RegionFactors[k] = v
	}
	for k, v := range p.ProviderFactors {
		out.ProviderFactors[k] = v
	}
	if len(o.Priority) > 0 {
		out.Priority = append([]types.Provider{}, o.Priority...)
	}
	for k, v := range o.RegionFactors {
		out.RegionFactors[k] = v
	}
	for k, v := range o.ProviderFactors {
		out.ProviderFactors[k] = v
	}
	if o.TieEpsilon != nil {
		out.TieEpsilon = *o.TieEpsilon
	}
	return out
}
