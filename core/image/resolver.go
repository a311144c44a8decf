package image

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/rut31337/cloudforge/core/catalog"
	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/discovery"
	"github.com/rut31337/cloudforge/internal/errors"
	"github.com/rut31337/cloudforge/internal/logging"
)

// Resolution is a resolved image reference with its provenance and any
// degradation advisories picked up along the way.
type Resolution struct {
	// Ref is the concrete provider image reference
	Ref string

	// Provenance records whether discovery or a static rule produced it
	Provenance types.Provenance

	// Advisories disclose fallback paths taken during resolution
	Advisories []types.Advisory
}

// Resolver maps an image alias to a concrete reference for one provider.
// Dynamic rules go through the discovery gateway first; static rules and
// cached listings are the fallback. An alias with no rule of either kind
// fails explicitly.
type Resolver struct {
	catalog  *catalog.Store
	gateway  *discovery.Gateway
	patterns *patternCache
	log      *zap.Logger
}

// NewResolver creates an image resolver over a catalog and gateway
func NewResolver(store *catalog.Store, gateway *discovery.Gateway) *Resolver {
	return &Resolver{
		catalog:  store,
		gateway:  gateway,
		patterns: newPatternCache(),
		log:      logging.Component("image"),
	}
}

// Resolve resolves an alias on a provider
func (r *Resolver) Resolve(ctx context.Context, alias string, p types.Provider) (*Resolution, error) {
	rule, ok := r.catalog.ImageRule(alias, p)
	if !ok {
		err := errors.ImageNotSupported(alias, string(p))
		if suggestion := r.catalog.SuggestAlias(alias); suggestion != "" {
			err = err.WithContext("did_you_mean", suggestion)
		}
		return nil, err
	}

	var advisories []types.Advisory
	var discoveryErr error

	if rule.Dynamic {
		if r.gateway.HasImageSource(p) {
			res, advs, derr := r.resolveDynamic(ctx, rule, p)
			if res != nil {
				res.Advisories = append(advisories, advs...)
				return res, nil
			}
			advisories = append(advisories, advs...)
			discoveryErr = derr
		} else {
			advisories = append(advisories, types.Advisory{
				Code:     types.AdvisoryDiscoveryUnavailable,
				Provider: p,
				Message:  "no discovery source configured; using static rule",
				Detail:   map[string]string{"alias": alias},
			})
		}
	}

	res, err := r.resolveStatic(ctx, rule, p, alias)
	if err != nil {
		// Both the live and the static/cached paths failed; surface the
		// discovery failure when there was one, it is the actionable cause.
		if discoveryErr != nil {
			return nil, discoveryErr
		}
		return nil, err
	}
	res.Advisories = append(advisories, res.Advisories...)
	return res, nil
}

// resolveDynamic runs the live listing. A refresh failure that still
// yields a cached snapshot resolves with a staleness advisory; a failure
// with nothing cached returns the classified error for the static path
// to report if it cannot recover either.
func (r *Resolver) resolveDynamic(ctx context.Context, rule *catalog.ImageRule, p types.Provider) (*Resolution, []types.Advisory, error) {
	query := r.query(rule)
	images, state, derr := r.gateway.Images(ctx, p, query)

	var advisories []types.Advisory
	if derr != nil {
		advisories = append(advisories, advisoryFromDiscoveryError(p, derr))
	}
	if len(images) == 0 {
		if derr != nil {
			return nil, advisories, derr
		}
		return nil, advisories, nil
	}
	if state == discovery.StateStale || state == discovery.StateFallbackActive {
		advisories = append(advisories, staleAdvisory(p, state))
	}

	best, ok, err := r.selectBest(images, rule)
	if err != nil {
		return nil, advisories, err
	}
	if !ok {
		r.log.Debug("dynamic listing had no eligible match",
			zap.String("provider", string(p)),
			zap.String("pattern", query.Pattern),
			zap.Int("listed", len(images)))
		return nil, advisories, nil
	}
	return &Resolution{
		Ref:        imageRef(best),
		Provenance: types.ProvenanceDynamic,
		Advisories: advisories,
	}, advisories, nil
}

// resolveStatic resolves through the rule's static path: a literal is
// used verbatim; a pattern is matched against the cached listing.
func (r *Resolver) resolveStatic(_ context.Context, rule *catalog.ImageRule, p types.Provider, alias string) (*Resolution, error) {
	if rule.Literal != "" {
		return &Resolution{Ref: rule.Literal, Provenance: types.ProvenanceStatic}, nil
	}
	if rule.Pattern == "" {
		return nil, errors.ImageNotSupported(alias, string(p)).
			WithContext("reason", "dynamic rule has no static fallback")
	}

	images, state := r.gateway.CachedImages(p, r.query(rule))
	if len(images) > 0 {
		best, ok, err := r.selectBest(images, rule)
		if err != nil {
			return nil, err
		}
		if ok {
			res := &Resolution{Ref: imageRef(best), Provenance: types.ProvenanceStatic}
			if state == discovery.StateStale || state == discovery.StateFallbackActive {
				res.Advisories = append(res.Advisories, staleAdvisory(p, state))
			}
			return res, nil
		}
	}

	// A wildcard-free pattern is effectively a literal identifier.
	compiled, err := r.patterns.get(rule.Pattern)
	if err != nil {
		return nil, errors.Internal("bad image pattern in catalog", err)
	}
	if !compiled.Wildcard() {
		return &Resolution{Ref: rule.Pattern, Provenance: types.ProvenanceStatic}, nil
	}

	return nil, errors.ImageNotSupported(alias, string(p)).
		WithContext("reason", "pattern matched no listed image").
		WithContext("pattern", rule.Pattern)
}

func (r *Resolver) query(rule *catalog.ImageRule) discovery.ImageQuery {
	pattern := rule.Pattern
	if pattern == "" {
		pattern = rule.Literal
	}
	return discovery.ImageQuery{
		Pattern: pattern,
		Owner:   rule.Owner,
	}
}

// selectBest applies the rule's name pattern, owner, and visibility
// filters and picks the most-specific match: highest version-like suffix,
// then newest creation timestamp, then lexicographically descending name.
// The ordering is total, so the outcome never depends on listing order.
func (r *Resolver) selectBest(images []discovery.Image, rule *catalog.ImageRule) (discovery.Image, bool, error) {
	raw := rule.Pattern
	if raw == "" {
		raw = rule.Literal
	}
	compiled, err := r.patterns.get(raw)
	if err != nil {
		return discovery.Image{}, false, errors.Internal("bad image pattern in catalog", err)
	}

	var matched []discovery.Image
	for _, img := range images {
		if !compiled.Match(img.Name) {
			continue
		}
		if rule.Owner != "" && img.Owner != "" && img.Owner != rule.Owner {
			continue
		}
		// Visibility is part of match criteria, never a soft preference:
		// a restricted alias must not resolve to a public look-alike.
		switch rule.Visibility {
		case catalog.VisibilityPrivate:
			if img.Public {
				continue
			}
		case catalog.VisibilityPublic:
			if !img.Public {
				continue
			}
		}
		matched = append(matched, img)
	}
	if len(matched) == 0 {
		return discovery.Image{}, false, nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if c := compareVersionSuffix(versionSuffix(matched[i].Name), versionSuffix(matched[j].Name)); c != 0 {
			return c > 0
		}
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Name > matched[j].Name
	})
	return matched[0], true, nil
}

func imageRef(img discovery.Image) string {
	if img.ID != "" {
		return img.ID
	}
	return img.Name
}

func advisoryFromDiscoveryError(p types.Provider, err error) types.Advisory {
	code := types.AdvisoryDiscoveryUnavailable
	if errors.IsType(err, errors.TypeDiscoveryTimeout) {
		code = types.AdvisoryDiscoveryTimeout
	}
	return types.Advisory{
		Code:     code,
		Provider: p,
		Message:  err.Error(),
	}
}

func staleAdvisory(p types.Provider, state discovery.CacheState) types.Advisory {
	return types.Advisory{
		Code:     types.AdvisoryStaleCatalog,
		Provider: p,
		Message:  "image listing served from an expired cache snapshot",
		Detail:   map[string]string{"cache_state": state.String()},
	}
}
