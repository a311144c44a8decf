// Package version_test - platform version resolution tests
package version_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/core/version"
	"github.com/rut31337/cloudforge/discovery"
	"github.com/rut31337/cloudforge/internal/errors"
)

// fakeVersionSource is a scriptable platform version feed
type fakeVersionSource struct {
	platform string
	versions []string
	err      error
	calls    int
}

func (f *fakeVersionSource) Platform() string {
	return f.platform
}

func (f *fakeVersionSource) ListVersions(_ context.Context) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.versions, nil
}

func newValidator(t *testing.T, ttl time.Duration, source *fakeVersionSource) *version.Validator {
	t.Helper()
	registry := discovery.NewSourceRegistry()
	if err := registry.RegisterVersionSource(source); err != nil {
		t.Fatal(err)
	}
	gateway := discovery.NewGateway(discovery.Config{
		Timeout:       time.Second,
		CacheTTL:      ttl,
		MaxAttempts:   1,
		RatePerSecond: 1000,
	}, registry)
	return version.NewValidator(ttl, gateway)
}

func supported() []string {
	return []string{"4.13.8", "4.14.0", "4.15.2", "4.16.0-rc.1"}
}

// TestExplicitSupportedVersionPassesThrough verifies a supported version
// resolves to itself in both modes.
func TestExplicitSupportedVersionPassesThrough(t *testing.T) {
	v := newValidator(t, time.Hour, &fakeVersionSource{platform: "openshift", versions: supported()})

	for _, mode := range []version.Mode{version.ModeStrict, version.ModePermissive} {
		res, err := v.Resolve(context.Background(), "openshift", "4.14.0", mode)
		if err != nil {
			t.Fatalf("mode %s: %v", mode, err)
		}
		if res.Version != "4.14.0" {
			t.Errorf("mode %s: resolved %q, want 4.14.0", mode, res.Version)
		}
		if len(res.Advisories) != 0 {
			t.Errorf("mode %s: supported version must carry no advisories", mode)
		}
	}
}

// TestLatestAndStableKeywords verifies the symbolic keywords: latest is
// the newest overall, stable the newest non-prerelease.
func TestLatestAndStableKeywords(t *testing.T) {
	v := newValidator(t, time.Hour, &fakeVersionSource{platform: "openshift", versions: supported()})

	res, err := v.Resolve(context.Background(), "openshift", "latest", version.ModeStrict)
	if err != nil {
		t.Fatal(err)
	}
	if res.Version != "4.16.0-rc.1" {
		t.Errorf("latest = %q, want 4.16.0-rc.1", res.Version)
	}

	res, err = v.Resolve(context.Background(), "openshift", "stable", version.ModeStrict)
	if err != nil {
		t.Fatal(err)
	}
	if res.Version != "4.15.2" {
		t.Errorf("stable = %q, want 4.15.2 (newest non-prerelease)", res.Version)
	}
}

// TestStrictRejectsUnsupported verifies strict mode fails with the
// supported list and latest version attached.
func TestStrictRejectsUnsupported(t *testing.T) {
	v := newValidator(t, time.Hour, &fakeVersionSource{platform: "openshift", versions: supported()})

	_, err := v.Resolve(context.Background(), "openshift", "4.99.0", version.ModeStrict)
	if !errors.IsType(err, errors.TypeUnsupportedVersion) {
		t.Fatalf("expected UnsupportedVersion, got %v", err)
	}
	e := err.(*errors.Error)
	if e.Context["latest"] != "4.16.0-rc.1" {
		t.Errorf("error must carry the latest version, got %v", e.Context["latest"])
	}
	if got, ok := e.Context["supported"].([]string); !ok || len(got) != 4 {
		t.Errorf("error must carry the supported list, got %v", e.Context["supported"])
	}
}

// TestPermissiveSubstitutesWithAdvisory verifies permissive mode resolves
// to the latest version and discloses the direction of the substitution.
func TestPermissiveSubstitutesWithAdvisory(t *testing.T) {
	tests := []struct {
		requested string
		wantCode  types.AdvisoryCode
	}{
		{"4.12.0", types.AdvisoryUpgraded},
		{"9.9.9", types.AdvisoryDowngraded},
		{"not-a-version", types.AdvisoryUpgraded},
	}
	for _, tt := range tests {
		v := newValidator(t, time.Hour, &fakeVersionSource{platform: "openshift", versions: supported()})
		res, err := v.Resolve(context.Background(), "openshift", tt.requested, version.ModePermissive)
		if err != nil {
			t.Fatalf("requested %q: %v", tt.requested, err)
		}
		if res.Version != "4.16.0-rc.1" {
			t.Errorf("requested %q: resolved %q, want latest", tt.requested, res.Version)
		}
		if len(res.Advisories) != 1 || res.Advisories[0].Code != tt.wantCode {
			t.Errorf("requested %q: advisories %v, want one %s", tt.requested, res.Advisories, tt.wantCode)
		}
	}
}

// TestFreshCatalogSkipsRefetch verifies the version catalog TTL is
// honored: a fresh snapshot never triggers another feed call.
func TestFreshCatalogSkipsRefetch(t *testing.T) {
	source := &fakeVersionSource{platform: "openshift", versions: supported()}
	v := newValidator(t, time.Hour, source)

	for i := 0; i < 3; i++ {
		if _, err := v.Resolve(context.Background(), "openshift", "4.14.0", version.ModeStrict); err != nil {
			t.Fatal(err)
		}
	}
	if source.calls != 1 {
		t.Errorf("expected exactly one feed call, got %d", source.calls)
	}
}

// TestStaleCatalogFallback verifies a failed refresh degrades to the last
// good snapshot with a StaleCatalog advisory instead of failing.
func TestStaleCatalogFallback(t *testing.T) {
	source := &fakeVersionSource{platform: "openshift", versions: supported()}
	v := newValidator(t, time.Nanosecond, source)

	if _, err := v.Resolve(context.Background(), "openshift", "4.14.0", version.ModeStrict); err != nil {
		t.Fatal(err)
	}

	source.err = fmt.Errorf("feed unreachable")
	time.Sleep(10 * time.Millisecond) // let both TTLs lapse

	res, err := v.Resolve(context.Background(), "openshift", "4.14.0", version.ModeStrict)
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if res.Version != "4.14.0" {
		t.Errorf("resolved %q, want 4.14.0 from stale snapshot", res.Version)
	}
	found := false
	for _, a := range res.Advisories {
		if a.Code == types.AdvisoryStaleCatalog {
			found = true
		}
	}
	if !found {
		t.Errorf("stale resolution must carry a StaleCatalog advisory, got %v", res.Advisories)
	}
}

// TestAdoptsGatewayFallbackWithoutOwnSnapshot verifies a validator with an
// empty catalog still resolves when the shared gateway cache holds a stale
// version list, carrying a StaleCatalog advisory instead of failing.
func TestAdoptsGatewayFallbackWithoutOwnSnapshot(t *testing.T) {
	source := &fakeVersionSource{platform: "openshift", versions: supported()}
	registry := discovery.NewSourceRegistry()
	if err := registry.RegisterVersionSource(source); err != nil {
		t.Fatal(err)
	}
	gateway := discovery.NewGateway(discovery.Config{
		Timeout:       time.Second,
		CacheTTL:      time.Nanosecond,
		MaxAttempts:   1,
		RatePerSecond: 1000,
	}, registry)

	// A first validator warms the shared gateway cache.
	warm := version.NewValidator(time.Hour, gateway)
	if _, err := warm.Resolve(context.Background(), "openshift", "4.14.0", version.ModeStrict); err != nil {
		t.Fatal(err)
	}

	source.err = fmt.Errorf("feed unreachable")
	time.Sleep(10 * time.Millisecond) // let the gateway cache lapse

	// A second validator has no snapshot of its own; the gateway refresh
	// fails but returns its stale list, which must be adopted.
	cold := version.NewValidator(time.Hour, gateway)
	res, err := cold.Resolve(context.Background(), "openshift", "4.14.0", version.ModeStrict)
	if err != nil {
		t.Fatalf("expected adoption of the gateway fallback, got error: %v", err)
	}
	if res.Version != "4.14.0" {
		t.Errorf("resolved %q, want 4.14.0 from the gateway's stale list", res.Version)
	}
	found := false
	for _, a := range res.Advisories {
		if a.Code == types.AdvisoryStaleCatalog {
			found = true
		}
	}
	if !found {
		t.Errorf("adopted stale list must carry a StaleCatalog advisory, got %v", res.Advisories)
	}
}

// TestColdFeedFailurePropagates verifies a refresh failure with no prior
// snapshot is an error, not a guess.
func TestColdFeedFailurePropagates(t *testing.T) {
	source := &fakeVersionSource{platform: "openshift", err: fmt.Errorf("feed unreachable")}
	v := newValidator(t, time.Hour, source)

	_, err := v.Resolve(context.Background(), "openshift", "4.14.0", version.ModeStrict)
	if !errors.IsType(err, errors.TypeDiscoveryUnavailable) {
		t.Fatalf("expected DiscoveryUnavailable, got %v", err)
	}
}

// TestUnknownPlatformFails verifies a platform without a configured feed
// fails explicitly.
func TestUnknownPlatformFails(t *testing.T) {
	v := newValidator(t, time.Hour, &fakeVersionSource{platform: "openshift", versions: supported()})

	_, err := v.Resolve(context.Background(), "kubernetes", "1.29.0", version.ModeStrict)
	if !errors.IsType(err, errors.TypeDiscoveryUnavailable) {
		t.Fatalf("expected DiscoveryUnavailable for unknown platform, got %v", err)
	}
}
