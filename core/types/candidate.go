package types

import (
	"github.com/shopspring/decimal"
)

// Provenance records where a resolved value came from
type Provenance string

const (
	// ProvenanceStatic means the value came from a static table or rule
	ProvenanceStatic Provenance = "static"

	// ProvenanceDynamic means the value came from a live discovery call
	ProvenanceDynamic Provenance = "dynamic"
)

// AdvisoryCode identifies a non-fatal advisory attached to a result
type AdvisoryCode string

const (
	// AdvisoryUpgraded means permissive mode substituted a newer version
	AdvisoryUpgraded AdvisoryCode = "Upgraded"

	// AdvisoryDowngraded means permissive mode substituted an older version
	AdvisoryDowngraded AdvisoryCode = "Downgraded"

	// AdvisoryStaleCatalog means a TTL-expired catalog served the result
	AdvisoryStaleCatalog AdvisoryCode = "StaleCatalog"

	// AdvisoryDiscoveryTimeout means a discovery call timed out and a
	// fallback path produced the value
	AdvisoryDiscoveryTimeout AdvisoryCode = "DiscoveryTimeout"

	// AdvisoryDiscoveryUnavailable means discovery failed outright and a
	// fallback path produced the value
	AdvisoryDiscoveryUnavailable AdvisoryCode = "DiscoveryUnavailable"

	// AdvisoryProviderSkipped means a provider was dropped from the
	// candidate set after a per-provider resolution failure
	AdvisoryProviderSkipped AdvisoryCode = "ProviderSkipped"
)

// Advisory is a structured, non-fatal note disclosing degraded confidence.
// Advisories are mandatory whenever resolution succeeded on a fallback
// path; a silent best guess is never acceptable.
type Advisory struct {
	// Code classifies the advisory
	Code AdvisoryCode `json:"code"`

	// Provider is the affected provider, if provider-scoped
	Provider Provider `json:"provider,omitempty"`

	// Message is a human-readable explanation
	Message string `json:"message"`

	// Detail carries structured context (what was tried, what was used)
	Detail map[string]string `json:"detail,omitempty"`
}

// ResolvedCandidate is one provider-specific, fully resolved candidate.
// Produced fresh per request and never mutated after creation.
type ResolvedCandidate struct {
	// Descriptor is the selected machine type
	Descriptor MachineDescriptor `json:"descriptor"`

	// ImageRef is the concrete provider image reference, if requested
	ImageRef string `json:"image_ref,omitempty"`

	// ImageProvenance records how the image was resolved
	ImageProvenance Provenance `json:"image_provenance,omitempty"`

	// Version is the resolved platform version, if requested
	Version string `json:"version,omitempty"`

	// Advisories are the per-candidate degradation notes
	Advisories []Advisory `json:"advisories,omitempty"`
}

// CostBreakdown explains how an effective cost was computed
type CostBreakdown struct {
	// Base is the descriptor's hourly cost
	Base decimal.Decimal `json:"base"`

	// RegionFactor is the multiplicative regional adjustment
	RegionFactor decimal.Decimal `json:"region_factor"`

	// ProviderFactor is the multiplicative provider adjustment
	ProviderFactor decimal.Decimal `json:"provider_factor"`

	// Effective is base * region factor * provider factor
	Effective decimal.Decimal `json:"effective"`
}

// RankedCandidate is a candidate with its position and cost breakdown
type RankedCandidate struct {
	ResolvedCandidate

	// Rank is the 1-based position in the ranking
	Rank int `json:"rank"`

	// Cost explains the effective cost
	Cost CostBreakdown `json:"cost"`
}

// Rejection explains why a provider produced no ranked candidate
type Rejection struct {
	// Provider that was rejected
	Provider Provider `json:"provider"`

	// Reason is a short machine-readable cause ("excluded",
	// "image_not_supported", "no_matching_flavor", ...)
	Reason string `json:"reason"`

	// Message is the human-readable explanation
	Message string `json:"message"`
}

// Ranking is the optimizer output: the full ordered list, never only the
// winner, so callers can explain why any provider was not chosen.
type Ranking struct {
	// Winner is the selected candidate (nil only on NoEligibleCandidate)
	Winner *RankedCandidate `json:"winner,omitempty"`

	// Ranked is the complete ordering, ascending effective cost
	Ranked []RankedCandidate `json:"ranked"`

	// Rejected lists providers removed before or during ranking
	Rejected []Rejection `json:"rejected,omitempty"`
}
