// Package image_test - image alias resolution tests
package image_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rut31337/cloudforge/core/catalog"
	"github.com/rut31337/cloudforge/core/image"
	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/discovery"
	"github.com/rut31337/cloudforge/internal/errors"
)

const awsCatalog = `provider: aws
flavors:
  small:
    - machine_type: t3.small
      vcpus: 2
      memory_mb: 2048
      hourly_cost: "0.0208"
images:
  RHEL9-latest:
    pattern: "RHEL-9.*"
    owner: "309956199498"
    dynamic: true
  RHEL9GOLD-latest:
    pattern: "RHEL-9.*"
    owner: "309956199498"
    dynamic: true
  Pinned:
    literal: "ami-0abc123"
  Fallback:
    literal: "ami-0fallback"
    dynamic: true
`

func loadTestCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "aws.yaml"), []byte(awsCatalog), 0644); err != nil {
		t.Fatal(err)
	}
	store, err := catalog.Load(dir)
	if err != nil {
		t.Fatalf("catalog load failed: %v", err)
	}
	return store
}

// fakeImageSource is a scriptable discovery source
type fakeImageSource struct {
	provider types.Provider
	images   []discovery.Image
	err      error
	calls    int
}

func (f *fakeImageSource) Provider() types.Provider {
	return f.provider
}

func (f *fakeImageSource) ListImages(_ context.Context, _ discovery.ImageQuery) ([]discovery.Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.images, nil
}

func newGateway(t *testing.T, sources ...discovery.ImageSource) *discovery.Gateway {
	t.Helper()
	registry := discovery.NewSourceRegistry()
	for _, s := range sources {
		if err := registry.RegisterImageSource(s); err != nil {
			t.Fatal(err)
		}
	}
	return discovery.NewGateway(discovery.Config{
		Timeout:       time.Second,
		MaxAttempts:   1,
		RatePerSecond: 1000,
	}, registry)
}

// TestLiteralRuleResolvesStatic verifies a literal identifier is used
// verbatim without any discovery call.
func TestLiteralRuleResolvesStatic(t *testing.T) {
	r := image.NewResolver(loadTestCatalog(t), newGateway(t))

	res, err := r.Resolve(context.Background(), "Pinned", types.AWS)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Ref != "ami-0abc123" {
		t.Errorf("expected literal ref, got %q", res.Ref)
	}
	if res.Provenance != types.ProvenanceStatic {
		t.Errorf("expected static provenance, got %s", res.Provenance)
	}
}

// TestUnknownAliasSuggestsClosest verifies a misspelled alias fails with
// a did-you-mean suggestion rather than a silent guess.
func TestUnknownAliasSuggestsClosest(t *testing.T) {
	r := image.NewResolver(loadTestCatalog(t), newGateway(t))

	_, err := r.Resolve(context.Background(), "RHEL9-latst", types.AWS)
	if err == nil {
		t.Fatal("expected error for unknown alias")
	}
	if !errors.IsType(err, errors.TypeImageNotSupported) {
		t.Fatalf("expected ImageNotSupported, got %v", err)
	}
	e := err.(*errors.Error)
	if e.Context["did_you_mean"] != "RHEL9-latest" {
		t.Errorf("expected suggestion RHEL9-latest, got %v", e.Context["did_you_mean"])
	}
}

// TestAliasWithoutProviderRuleFails verifies an alias defined for other
// providers only is an explicit failure on this one.
func TestAliasWithoutProviderRuleFails(t *testing.T) {
	r := image.NewResolver(loadTestCatalog(t), newGateway(t))

	_, err := r.Resolve(context.Background(), "Pinned", types.GCP)
	if !errors.IsType(err, errors.TypeImageNotSupported) {
		t.Fatalf("expected ImageNotSupported for provider without rule, got %v", err)
	}
}

// TestDynamicResolutionPicksMostSpecific verifies numeric version
// ordering wins over listing order and lexicographic order.
func TestDynamicResolutionPicksMostSpecific(t *testing.T) {
	source := &fakeImageSource{
		provider: types.AWS,
		images: []discovery.Image{
			{ID: "ami-old", Name: "RHEL-9.4.0", CreatedAt: time.Unix(2000, 0), Public: true, Owner: "309956199498"},
			{ID: "ami-new", Name: "RHEL-9.10.0", CreatedAt: time.Unix(1000, 0), Public: true, Owner: "309956199498"},
			{ID: "ami-other", Name: "RHEL-8.9.0", CreatedAt: time.Unix(3000, 0), Public: true, Owner: "309956199498"},
		},
	}
	r := image.NewResolver(loadTestCatalog(t), newGateway(t, source))

	res, err := r.Resolve(context.Background(), "RHEL9-latest", types.AWS)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Ref != "ami-new" {
		t.Errorf("expected ami-new (9.10 > 9.4), got %q", res.Ref)
	}
	if res.Provenance != types.ProvenanceDynamic {
		t.Errorf("expected dynamic provenance, got %s", res.Provenance)
	}
	if len(res.Advisories) != 0 {
		t.Errorf("clean dynamic resolution must carry no advisories, got %v", res.Advisories)
	}
}

// TestGoldAliasNeverMatchesPublic verifies visibility is a hard match
// criterion: a restricted alias must not resolve to a public look-alike,
// even a newer one.
func TestGoldAliasNeverMatchesPublic(t *testing.T) {
	source := &fakeImageSource{
		provider: types.AWS,
		images: []discovery.Image{
			{ID: "ami-public", Name: "RHEL-9.10.0", Public: true, Owner: "309956199498"},
			{ID: "ami-gold", Name: "RHEL-9.4.0", Public: false, Owner: "309956199498"},
		},
	}
	r := image.NewResolver(loadTestCatalog(t), newGateway(t, source))

	res, err := r.Resolve(context.Background(), "RHEL9GOLD-latest", types.AWS)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Ref != "ami-gold" {
		t.Errorf("restricted alias resolved to %q, want the private image", res.Ref)
	}
}

// TestGoldAliasFailsWhenOnlyPublicExists verifies the restricted alias
// fails outright instead of degrading to a public image.
func TestGoldAliasFailsWhenOnlyPublicExists(t *testing.T) {
	source := &fakeImageSource{
		provider: types.AWS,
		images: []discovery.Image{
			{ID: "ami-public", Name: "RHEL-9.10.0", Public: true, Owner: "309956199498"},
		},
	}
	r := image.NewResolver(loadTestCatalog(t), newGateway(t, source))

	_, err := r.Resolve(context.Background(), "RHEL9GOLD-latest", types.AWS)
	if !errors.IsType(err, errors.TypeImageNotSupported) {
		t.Fatalf("expected ImageNotSupported, got %v", err)
	}
}

// TestDiscoveryFailureFallsBackToStatic verifies a failed live listing
// degrades to the rule's static path with a mandatory advisory.
func TestDiscoveryFailureFallsBackToStatic(t *testing.T) {
	source := &fakeImageSource{
		provider: types.AWS,
		err:      fmt.Errorf("DescribeImages: connection refused"),
	}
	r := image.NewResolver(loadTestCatalog(t), newGateway(t, source))

	res, err := r.Resolve(context.Background(), "Fallback", types.AWS)
	if err != nil {
		t.Fatalf("expected static fallback, got error: %v", err)
	}
	if res.Ref != "ami-0fallback" {
		t.Errorf("expected fallback literal, got %q", res.Ref)
	}
	if res.Provenance != types.ProvenanceStatic {
		t.Errorf("expected static provenance, got %s", res.Provenance)
	}
	found := false
	for _, a := range res.Advisories {
		if a.Code == types.AdvisoryDiscoveryUnavailable {
			found = true
		}
	}
	if !found {
		t.Errorf("fallback resolution must disclose the discovery failure, got %v", res.Advisories)
	}
}

// TestDynamicWithoutSourceUsesStatic verifies a dynamic rule degrades to
// its static path when no discovery source is configured at all.
func TestDynamicWithoutSourceUsesStatic(t *testing.T) {
	r := image.NewResolver(loadTestCatalog(t), newGateway(t))

	res, err := r.Resolve(context.Background(), "Fallback", types.AWS)
	if err != nil {
		t.Fatalf("expected static fallback, got error: %v", err)
	}
	if res.Ref != "ami-0fallback" {
		t.Errorf("expected fallback literal, got %q", res.Ref)
	}
	if len(res.Advisories) == 0 {
		t.Error("expected an advisory disclosing missing discovery")
	}
}

// TestDynamicFailureWithoutFallbackPropagates verifies that when both the
// live path and the static path fail, the discovery error is surfaced as
// the actionable cause.
func TestDynamicFailureWithoutFallbackPropagates(t *testing.T) {
	source := &fakeImageSource{
		provider: types.AWS,
		err:      fmt.Errorf("DescribeImages: connection refused"),
	}
	r := image.NewResolver(loadTestCatalog(t), newGateway(t, source))

	_, err := r.Resolve(context.Background(), "RHEL9-latest", types.AWS)
	if err == nil {
		t.Fatal("expected error when discovery and static path both fail")
	}
	if !errors.IsType(err, errors.TypeDiscoveryUnavailable) {
		t.Fatalf("expected DiscoveryUnavailable, got %v", err)
	}
}
