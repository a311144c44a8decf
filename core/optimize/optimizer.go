// Package optimize ranks resolved candidates by effective hourly cost
// under a catalog cost policy.
package optimize

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rut31337/cloudforge/core/catalog"
	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/internal/errors"
	"github.com/rut31337/cloudforge/internal/logging"
)

// Optimizer applies one immutable cost policy. Build a new Optimizer to
// rank under different overrides.
type Optimizer struct {
	policy *catalog.CostPolicy
	log    *zap.Logger
}

// New creates an optimizer bound to a cost policy
func New(policy *catalog.CostPolicy) *Optimizer {
	return &Optimizer{
		policy: policy,
		log:    logging.Component("optimize"),
	}
}

// Rank orders candidates by effective cost ascending. Excluded providers
// are removed before ranking and reported as rejections, never ranked
// last. The result is independent of input order: candidates are
// canonicalized before the stable sort, so equal-cost ties fall back to
// policy priority and finally the fixed provider order.
func (o *Optimizer) Rank(candidates []types.ResolvedCandidate) (*types.Ranking, error) {
	ranking := &types.Ranking{}

	eligible := make([]types.ResolvedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if o.policy.Excluded(c.Descriptor.Provider) {
			ranking.Rejected = append(ranking.Rejected, types.Rejection{
				Provider: c.Descriptor.Provider,
				Reason:   "excluded",
				Message:  fmt.Sprintf("provider %s excluded by cost policy", c.Descriptor.Provider),
			})
			continue
		}
		eligible = append(eligible, c)
	}
	sort.Slice(ranking.Rejected, func(i, j int) bool {
		return ranking.Rejected[i].Provider.Index() < ranking.Rejected[j].Provider.Index()
	})

	if len(eligible) == 0 {
		return ranking, errors.NoEligibleCandidate("every candidate provider is excluded by policy").
			WithContext("candidates", len(candidates)).
			WithContext("excluded", len(ranking.Rejected))
	}

	ranked := make([]types.RankedCandidate, 0, len(eligible))
	for _, c := range eligible {
		ranked = append(ranked, types.RankedCandidate{
			ResolvedCandidate: c,
			Cost:              o.breakdown(&c.Descriptor),
		})
	}

	// Canonical base order first so the stable sort below never sees
	// caller ordering.
	sort.Slice(ranked, func(i, j int) bool {
		pi, pj := ranked[i].Descriptor.Provider, ranked[j].Descriptor.Provider
		if pi != pj {
			return pi.Index() < pj.Index()
		}
		return ranked[i].Descriptor.MachineType < ranked[j].Descriptor.MachineType
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return o.less(&ranked[i], &ranked[j])
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	ranking.Ranked = ranked
	ranking.Winner = &ranking.Ranked[0]
	return ranking, nil
}

// breakdown computes effective cost as base * regional factor * provider
// factor, in exact decimal arithmetic throughout.
func (o *Optimizer) breakdown(d *types.MachineDescriptor) types.CostBreakdown {
	b := types.CostBreakdown{
		Base:           d.HourlyCost,
		RegionFactor:   o.policy.RegionFactor(d.Region),
		ProviderFactor: o.policy.ProviderFactor(d.Provider),
	}
	b.Effective = b.Base.Mul(b.RegionFactor).Mul(b.ProviderFactor)
	return b
}

// less treats effective costs within the policy tie epsilon as equal and
// breaks the tie by priority list position, then canonical provider
// order. With the default zero epsilon only exact equality ties.
func (o *Optimizer) less(a, b *types.RankedCandidate) bool {
	diff := a.Cost.Effective.Sub(b.Cost.Effective)
	if diff.Abs().Cmp(o.policy.TieEpsilon) > 0 {
		return diff.Sign() < 0
	}
	pa := o.policy.PriorityIndex(a.Descriptor.Provider)
	pb := o.policy.PriorityIndex(b.Descriptor.Provider)
	if pa != pb {
		return pa < pb
	}
	return a.Descriptor.Provider.Index() < b.Descriptor.Provider.Index()
}
