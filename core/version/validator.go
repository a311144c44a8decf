package version

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/discovery"
	"github.com/rut31337/cloudforge/internal/errors"
	"github.com/rut31337/cloudforge/internal/logging"
)

// Mode selects how unsupported versions are handled
type Mode string

const (
	// ModeStrict fails on an unsupported version
	ModeStrict Mode = "strict"

	// ModePermissive substitutes the latest supported version and
	// attaches an advisory; it never fails on an unsupported input
	ModePermissive Mode = "permissive"
)

// ParseMode parses a validation mode string
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStrict, ModePermissive:
		return Mode(s), nil
	case "":
		return ModeStrict, nil
	}
	return "", fmt.Errorf("unknown validation mode: %q", s)
}

// Keywords resolved against the newest catalog entries
const (
	KeywordLatest = "latest"
	KeywordStable = "stable"
)

// Result is a resolved version with any staleness or substitution
// advisories.
type Result struct {
	// Version is the resolved concrete version
	Version string

	// Advisories disclose substitution and staleness
	Advisories []types.Advisory
}

// Validator resolves symbolic or explicit platform versions. Refreshes go
// through the discovery gateway; a failed refresh degrades to the last
// good snapshot with a StaleCatalog advisory rather than blocking
// resolution.
type Validator struct {
	catalog *Catalog
	gateway *discovery.Gateway
	log     *zap.Logger
}

// NewValidator creates a validator with its own version catalog
func NewValidator(ttl time.Duration, gateway *discovery.Gateway) *Validator {
	return &Validator{
		catalog: NewCatalog(ttl),
		gateway: gateway,
		log:     logging.Component("version"),
	}
}

// Catalog exposes the underlying catalog; tests use it to seed snapshots
func (v *Validator) Catalog() *Catalog {
	return v.catalog
}

// Resolve resolves a requested version for a platform
func (v *Validator) Resolve(ctx context.Context, platform, requested string, mode Mode) (*Result, error) {
	snap, advisories, err := v.snapshot(ctx, platform)
	if err != nil {
		return nil, err
	}

	switch requested {
	case "", KeywordLatest:
		return &Result{Version: snap.Latest(), Advisories: advisories}, nil
	case KeywordStable:
		return &Result{Version: snap.Stable(), Advisories: advisories}, nil
	}

	if snap.Contains(requested) {
		return &Result{Version: requested, Advisories: advisories}, nil
	}

	if mode == ModeStrict {
		return nil, errors.UnsupportedVersion(platform, requested, snap.Supported(), snap.Latest())
	}

	// Permissive: substitute the latest supported version and say so.
	resolved := snap.Latest()
	code := types.AdvisoryUpgraded
	if Compare(requested, resolved) > 0 {
		code = types.AdvisoryDowngraded
	}
	advisories = append(advisories, types.Advisory{
		Code:    code,
		Message: fmt.Sprintf("requested %s version %q is not supported; substituted %q", platform, requested, resolved),
		Detail: map[string]string{
			"platform":  platform,
			"requested": requested,
			"resolved":  resolved,
		},
	})
	v.log.Info("substituted unsupported version",
		zap.String("platform", platform),
		zap.String("requested", requested),
		zap.String("resolved", resolved))
	return &Result{Version: resolved, Advisories: advisories}, nil
}

// snapshot returns a usable snapshot: fresh cache, else refresh, else
// stale cache with an advisory. Only a refresh failure with no cached
// snapshot at all propagates as an error.
func (v *Validator) snapshot(ctx context.Context, platform string) (*Snapshot, []types.Advisory, error) {
	snap, ok, fresh := v.catalog.Get(platform)
	if ok && fresh {
		return snap, nil, nil
	}

	versions, _, derr := v.gateway.Versions(ctx, platform)
	if derr == nil {
		refreshed, perr := v.catalog.Put(platform, versions)
		if perr == nil {
			return refreshed, nil, nil
		}
		derr = errors.Internal("version list rejected", perr)
	}

	if !ok && len(versions) > 0 {
		// The gateway's refresh failed but its shared cache still held a
		// stale list. Adopt it instead of failing with usable data in hand.
		if adopted, perr := v.catalog.Put(platform, versions); perr == nil {
			v.log.Warn("adopting stale version list from gateway cache",
				zap.String("platform", platform),
				zap.Error(derr))
			return adopted, []types.Advisory{staleAdvisory(platform, adopted.FetchedAt, derr)}, nil
		}
	}

	if ok {
		v.log.Warn("serving stale version catalog",
			zap.String("platform", platform),
			zap.Time("fetched_at", snap.FetchedAt),
			zap.Error(derr))
		return snap, []types.Advisory{staleAdvisory(platform, snap.FetchedAt, derr)}, nil
	}
	return nil, nil, derr
}

func staleAdvisory(platform string, fetchedAt time.Time, cause error) types.Advisory {
	return types.Advisory{
		Code:    types.AdvisoryStaleCatalog,
		Message: fmt.Sprintf("version catalog for %s is stale; refresh failed", platform),
		Detail: map[string]string{
			"platform":   platform,
			"fetched_at": fetchedAt.Format(time.RFC3339),
			"cause":      cause.Error(),
		},
	}
}
