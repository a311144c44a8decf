// Package engine runs the resolution pipeline: spec resolution, image and
// version resolution fanned out per provider, then cost ranking.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rut31337/cloudforge/core/catalog"
	"github.com/rut31337/cloudforge/core/determinism"
	"github.com/rut31337/cloudforge/core/image"
	"github.com/rut31337/cloudforge/core/optimize"
	"github.com/rut31337/cloudforge/core/specres"
	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/core/version"
	"github.com/rut31337/cloudforge/discovery"
	"github.com/rut31337/cloudforge/internal/errors"
	"github.com/rut31337/cloudforge/internal/logging"
	"github.com/rut31337/cloudforge/internal/metrics"
)

// Options tune one engine instance
type Options struct {
	// Validation selects strict or permissive version handling
	Validation version.Mode

	// VersionTTL bounds version catalog freshness (default one hour)
	VersionTTL time.Duration

	// Concurrency bounds the per-provider fan-out (default 4)
	Concurrency int

	// Policy adjusts the catalog cost policy for this engine's runs
	Policy *catalog.Overrides
}

func (o Options) withDefaults() Options {
	if o.Validation == "" {
		o.Validation = version.ModeStrict
	}
	if o.VersionTTL <= 0 {
		o.VersionTTL = version.DefaultTTL
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	return o
}

// Engine wires the catalog, discovery gateway, and resolvers into one
// request pipeline. Safe for concurrent use.
type Engine struct {
	catalog  *catalog.Store
	policy   *catalog.CostPolicy
	specs    *specres.Resolver
	images   *image.Resolver
	versions *version.Validator
	ids      *determinism.IDGenerator
	opts     Options
	log      *zap.Logger
}

// New creates an engine over a loaded catalog and discovery gateway
func New(store *catalog.Store, gateway *discovery.Gateway, opts Options) *Engine {
	opts = opts.withDefaults()
	policy := store.Policy()
	if opts.Policy != nil {
		policy = policy.Apply(*opts.Policy)
	}
	return &Engine{
		catalog:  store,
		policy:   policy,
		specs:    specres.NewResolver(store),
		images:   image.NewResolver(store, gateway),
		versions: version.NewValidator(opts.VersionTTL, gateway),
		ids:      determinism.NewIDGenerator("instance"),
		opts:     opts,
		log:      logging.Component("engine"),
	}
}

// ResolveDocument resolves every instance in a request document. One
// failing instance never aborts the others; its result carries the error.
func (e *Engine) ResolveDocument(ctx context.Context, doc *types.RequestDocument) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, errors.Wrap(errors.TypeInput, "invalid request document", err)
	}

	result := &Result{
		ID:          uuid.NewString(),
		CatalogHash: e.catalog.Fingerprint().Hex(),
		Instances:   make([]InstanceResult, 0, len(doc.Instances)),
	}
	for i := range doc.Instances {
		req := &doc.Instances[i]
		ir, err := e.ResolveInstance(ctx, req)
		if err != nil {
			e.log.Warn("instance resolution failed",
				zap.String("instance", req.Name),
				zap.Error(err))
			ir = &InstanceResult{
				ID:    e.instanceID(req),
				Name:  req.Name,
				Kind:  req.Kind().String(),
				Error: err.Error(),
			}
		}
		result.Instances = append(result.Instances, *ir)
	}
	result.GeneratedAt = time.Now().UTC()
	return result, nil
}

// ResolveInstance runs the full pipeline for one request: provider set
// computation, spec resolution, per-provider image/version fan-out, cost
// ranking. Per-provider failures after spec resolution demote the
// provider to a rejection instead of failing the instance.
func (e *Engine) ResolveInstance(ctx context.Context, req *types.InstanceRequest) (*InstanceResult, error) {
	start := time.Now()
	out, err := e.resolveInstance(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ObserveResolve(time.Since(start).Seconds(), status)
	return out, err
}

func (e *Engine) resolveInstance(ctx context.Context, req *types.InstanceRequest) (*InstanceResult, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(errors.TypeInput, "invalid instance request", err)
	}

	providers, gpuOnly, err := e.providerSet(req)
	if err != nil {
		return nil, err
	}
	optimizing := req.WantsOptimization()

	selected, skipped, err := e.specs.Resolve(req, providers, optimizing)
	if err != nil {
		return nil, err
	}

	result := &InstanceResult{
		ID:        e.instanceID(req),
		Name:      req.Name,
		Kind:      req.Kind().String(),
		Optimized: optimizing,
	}
	rejections := rejectionsFromSkips(skipped)

	// cheapest-gpu restricts a non-GPU request to GPU-capable shapes
	if gpuOnly && req.Kind() != types.KindGPU {
		for p, d := range selected {
			if !d.HasGPU() {
				delete(selected, p)
				rejections = append(rejections, types.Rejection{
					Provider: p,
					Reason:   "no_gpu",
					Message:  fmt.Sprintf("machine type %s has no GPU", d.MachineType),
				})
			}
		}
		if len(selected) == 0 {
			return nil, errors.NoEligibleCandidate("no GPU-capable candidate on any eligible provider").
				WithContext("providers", len(providers))
		}
	}

	// Version resolution is platform-scoped, so it runs once and its
	// outcome is shared by every candidate.
	var ver *version.Result
	if req.Version != "" {
		ver, err = e.versions.Resolve(ctx, req.Platform, req.Version, e.opts.Validation)
		if err != nil {
			return nil, err
		}
		result.Advisories = append(result.Advisories, ver.Advisories...)
	}

	candidates, failures := e.fanOut(ctx, req, providers, selected, ver)
	for _, f := range failures {
		rejections = append(rejections, f.rejection)
		result.Advisories = append(result.Advisories, f.advisory)
	}
	if len(candidates) == 0 {
		return nil, errors.NoEligibleCandidate(
			fmt.Sprintf("every provider failed resolution for request %q", req.Name)).
			WithContext("rejections", len(rejections))
	}
	result.Candidates = candidates

	ranking, err := optimize.New(e.policy).Rank(candidates)
	if ranking != nil {
		ranking.Rejected = mergeRejections(ranking.Rejected, rejections)
		result.Ranking = ranking
	}
	if err != nil {
		if optimizing {
			return nil, err
		}
		// With explicitly named providers an all-excluded ranking is
		// advisory only; the candidates themselves are still the answer.
		result.Ranking = &types.Ranking{Rejected: mergeRejections(nil, rejections)}
	}
	return result, nil
}

// instanceID derives the identity of an instance outcome from the
// catalog fingerprint and the request, so the same request against the
// same catalog always carries the same ID.
func (e *Engine) instanceID(req *types.InstanceRequest) string {
	return string(e.ids.Generate(e.catalog.Fingerprint().Hex(), req.Name, req.Kind().String()))
}

// providerSet expands the request's provider list against exclusions.
// Meta providers expand to every concrete provider; the order is always
// canonical regardless of how the request spelled it.
func (e *Engine) providerSet(req *types.InstanceRequest) ([]types.Provider, bool, error) {
	excluded := map[types.Provider]bool{}
	for _, s := range req.Exclude {
		p, err := types.ParseProvider(s)
		if err != nil {
			return nil, false, errors.Wrap(errors.TypeInput, "invalid exclusion", err)
		}
		excluded[p] = true
	}

	gpuOnly := false
	want := map[types.Provider]bool{}
	for _, s := range req.Providers {
		p, err := types.ParseProvider(s)
		if err != nil {
			return nil, false, errors.Wrap(errors.TypeInput, "invalid provider", err)
		}
		if p.Meta() {
			if p == types.CheapestGPU {
				gpuOnly = true
			}
			for _, q := range types.AllProviders() {
				want[q] = true
			}
			continue
		}
		want[p] = true
	}
	if len(req.Providers) == 0 {
		for _, q := range types.AllProviders() {
			want[q] = true
		}
	}

	var out []types.Provider
	for _, p := range types.AllProviders() {
		if want[p] && !excluded[p] {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, false, errors.Input("provider set is empty after exclusions")
	}
	return out, gpuOnly, nil
}

type providerFailure struct {
	rejection types.Rejection
	advisory  types.Advisory
}

// fanOut resolves images per provider concurrently. Results land in
// slots indexed by canonical provider order, so completion order never
// shows in the output. A provider that fails here is isolated: it
// becomes a rejection plus a ProviderSkipped advisory.
func (e *Engine) fanOut(ctx context.Context, req *types.InstanceRequest, providers []types.Provider, selected map[types.Provider]types.MachineDescriptor, ver *version.Result) ([]types.ResolvedCandidate, []providerFailure) {
	type slot struct {
		candidate *types.ResolvedCandidate
		failure   *providerFailure
	}
	slots := make([]slot, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, p := range providers {
		d, ok := selected[p]
		if !ok {
			continue
		}
		i, p, d := i, p, d
		g.Go(func() error {
			if region, ok := req.Regions[string(p)]; ok {
				d.Region = region
			}
			c := types.ResolvedCandidate{Descriptor: d}
			if ver != nil {
				c.Version = ver.Version
			}
			if req.Image != "" {
				res, err := e.images.Resolve(gctx, req.Image, p)
				if err != nil {
					slots[i].failure = &providerFailure{
						rejection: types.Rejection{
							Provider: p,
							Reason:   failureReason(err),
							Message:  err.Error(),
						},
						advisory: types.Advisory{
							Code:     types.AdvisoryProviderSkipped,
							Provider: p,
							Message:  fmt.Sprintf("provider %s skipped: %v", p, err),
						},
					}
					return nil
				}
				c.ImageRef = res.Ref
				c.ImageProvenance = res.Provenance
				c.Advisories = append(c.Advisories, res.Advisories...)
			}
			slots[i].candidate = &c
			return nil
		})
	}
	_ = g.Wait()

	var candidates []types.ResolvedCandidate
	var failures []providerFailure
	for _, s := range slots {
		if s.candidate != nil {
			candidates = append(candidates, *s.candidate)
		}
		if s.failure != nil {
			failures = append(failures, *s.failure)
		}
	}
	return candidates, failures
}

func failureReason(err error) string {
	switch {
	case errors.IsType(err, errors.TypeImageNotSupported):
		return "image_not_supported"
	case errors.IsType(err, errors.TypeDiscoveryTimeout):
		return "discovery_timeout"
	case errors.IsType(err, errors.TypeDiscoveryUnavailable):
		return "discovery_unavailable"
	default:
		return "resolution_failed"
	}
}

func rejectionsFromSkips(skipped map[types.Provider]string) []types.Rejection {
	out := make([]types.Rejection, 0, len(skipped))
	for p, reason := range skipped {
		out = append(out, types.Rejection{
			Provider: p,
			Reason:   "no_matching_flavor",
			Message:  reason,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Provider.Index() < out[j].Provider.Index()
	})
	return out
}

func mergeRejections(a, b []types.Rejection) []types.Rejection {
	out := append(append([]types.Rejection{}, a...), b...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Provider.Index() < out[j].Provider.Index()
	})
	return out
}
