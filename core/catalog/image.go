package catalog

import (
	"strings"

	"github.com/rut31337/cloudforge/core/types"
)

// Visibility constrains which images a rule may match
type Visibility string

const (
	// VisibilityAny places no constraint on image visibility
	VisibilityAny Visibility = ""

	// VisibilityPublic matches only publicly listed images
	VisibilityPublic Visibility = "public"

	// VisibilityPrivate matches only private (entitlement-gated) images.
	// Gold aliases default to this so a public look-alike can never
	// satisfy a restricted alias.
	VisibilityPrivate Visibility = "private"
)

// ImageRule resolves an alias on one provider. A rule is static (literal
// identifier or glob pattern) or dynamic (eligible for live discovery);
// a dynamic rule may also carry a static pattern as its fallback.
type ImageRule struct {
	// Provider the rule applies to
	Provider types.Provider

	// Literal is a concrete image identifier; used verbatim
	Literal string

	// Pattern is a glob-style name pattern ('*' wildcards)
	Pattern string

	// Owner restricts matches to an owning account/project
	Owner string

	// Visibility restricts matches by image visibility
	Visibility Visibility

	// Dynamic marks the alias as eligible for live discovery
	Dynamic bool
}

// Static reports whether the rule has a static resolution path
func (r *ImageRule) Static() bool {
	return r.Literal != "" || r.Pattern != ""
}

// ImageAlias maps one symbolic image name to its per-provider rules
type ImageAlias struct {
	name  string
	rules map[types.Provider]*ImageRule
}

// NewImageAlias creates an empty alias
func NewImageAlias(name string) *ImageAlias {
	return &ImageAlias{
		name:  name,
		rules: make(map[types.Provider]*ImageRule),
	}
}

// Name returns the alias name
func (a *ImageAlias) Name() string {
	return a.name
}

// Restricted reports whether the alias names a gold/entitlement image.
// Restricted aliases get an implicit private-visibility filter.
func (a *ImageAlias) Restricted() bool {
	return strings.Contains(strings.ToUpper(a.name), "GOLD")
}

// SetRule installs the rule for a provider
func (a *ImageAlias) SetRule(r *ImageRule) {
	a.rules[r.Provider] = r
}

// Rule returns the rule for a provider
func (a *ImageAlias) Rule(p types.Provider) (*ImageRule, bool) {
	r, ok := a.rules[p]
	return r, ok
}

// Providers returns the providers with a rule for this alias
func (a *ImageAlias) Providers() []types.Provider {
	out := make([]types.Provider, 0, len(a.rules))
	for _, p := range types.AllProviders() {
		if _, ok := a.rules[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
