// Package engine_test - end-to-end pipeline tests
package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rut31337/cloudforge/core/catalog"
	"github.com/rut31337/cloudforge/core/engine"
	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/discovery"
)

const awsFile = `provider: aws
flavors:
  medium:
    - machine_type: t3.medium
      vcpus: 2
      memory_mb: 4096
      hourly_cost: "0.0416"
      region: us-east-1
  gpu-small:
    - machine_type: g4dn.xlarge
      vcpus: 4
      memory_mb: 16384
      gpu:
        type: "NVIDIA-T4"
        count: 1
        memory_gb: 16
      hourly_cost: "0.526"
      region: us-east-1
images:
  RHEL9-latest:
    literal: "ami-0rhel9"
`

const gcpFile = `provider: gcp
flavors:
  medium:
    - machine_type: e2-medium
      vcpus: 2
      memory_mb: 4096
      hourly_cost: "0.0335"
      region: us-central1
`

const azureFile = `provider: azure
flavors:
  medium:
    - machine_type: Standard_B2s
      vcpus: 2
      memory_mb: 4096
      hourly_cost: "0.0416"
      region: eastus
`

const policyFile = `provider: cheapest
policy:
  priority: [aws, gcp, azure]
  tie_epsilon: "0"
`

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"aws.yaml":      awsFile,
		"gcp.yaml":      gcpFile,
		"azure.yaml":    azureFile,
		"cheapest.yaml": policyFile,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := catalog.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	gateway := discovery.NewGateway(discovery.Config{
		Timeout:       time.Second,
		MaxAttempts:   1,
		RatePerSecond: 1000,
	}, discovery.NewSourceRegistry())
	return engine.New(store, gateway, engine.Options{})
}

// TestCheapestSelectsLowestCost verifies the meta-provider picks the
// lowest effective cost across all providers.
func TestCheapestSelectsLowestCost(t *testing.T) {
	eng := testEngine(t)

	res, err := eng.ResolveInstance(context.Background(), &types.InstanceRequest{
		Name:      "web",
		Size:      "medium",
		Providers: []string{"cheapest"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Optimized {
		t.Error("cheapest request must be marked optimized")
	}
	if res.Ranking == nil || res.Ranking.Winner == nil {
		t.Fatal("expected a winner")
	}
	if res.Ranking.Winner.Descriptor.Provider != types.GCP {
		t.Errorf("winner = %s, want gcp at 0.0335", res.Ranking.Winner.Descriptor.Provider)
	}
	// aws and azure tie at 0.0416; the priority list puts aws first.
	if res.Ranking.Ranked[1].Descriptor.Provider != types.AWS {
		t.Errorf("rank 2 = %s, want aws by priority", res.Ranking.Ranked[1].Descriptor.Provider)
	}
}

// TestResolutionIsDeterministic verifies two runs of the same request
// yield identical rankings.
func TestResolutionIsDeterministic(t *testing.T) {
	eng := testEngine(t)
	req := &types.InstanceRequest{Name: "web", Size: "medium", Providers: []string{"cheapest"}}

	a, err := eng.ResolveInstance(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := eng.ResolveInstance(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Ranking.Ranked) != len(b.Ranking.Ranked) {
		t.Fatal("ranking lengths differ across runs")
	}
	for i := range a.Ranking.Ranked {
		if a.Ranking.Ranked[i].Descriptor.Provider != b.Ranking.Ranked[i].Descriptor.Provider {
			t.Fatalf("rank %d differs across runs", i+1)
		}
	}
}

// TestInstanceIDIsStableAcrossRuns verifies an instance outcome's ID is
// derived from the catalog and request, not from run state: separate
// engines over the same catalog assign the same ID, and a different
// request gets a different one.
func TestInstanceIDIsStableAcrossRuns(t *testing.T) {
	req := &types.InstanceRequest{Name: "web", Size: "medium", Providers: []string{"cheapest"}}

	a, err := testEngine(t).ResolveInstance(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := testEngine(t).ResolveInstance(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == "" {
		t.Fatal("instance result must carry an ID")
	}
	if a.ID != b.ID {
		t.Errorf("same request against the same catalog got IDs %q and %q", a.ID, b.ID)
	}

	other, err := testEngine(t).ResolveInstance(context.Background(), &types.InstanceRequest{
		Name:      "db",
		Size:      "medium",
		Providers: []string{"cheapest"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == a.ID {
		t.Error("different requests must not share an ID")
	}
}

// TestExcludeRemovesProvider verifies excluded providers produce no
// candidate even when cheapest.
func TestExcludeRemovesProvider(t *testing.T) {
	eng := testEngine(t)

	res, err := eng.ResolveInstance(context.Background(), &types.InstanceRequest{
		Name:      "web",
		Size:      "medium",
		Providers: []string{"cheapest"},
		Exclude:   []string{"gcp"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range res.Candidates {
		if c.Descriptor.Provider == types.GCP {
			t.Fatal("excluded provider produced a candidate")
		}
	}
	if res.Ranking.Winner.Descriptor.Provider != types.AWS {
		t.Errorf("winner = %s, want aws after excluding gcp", res.Ranking.Winner.Descriptor.Provider)
	}
}

// TestExplicitProvidersSkipOptimizationMarker verifies naming concrete
// providers resolves without the optimized flag while still ranking for
// explanation.
func TestExplicitProvidersSkipOptimizationMarker(t *testing.T) {
	eng := testEngine(t)

	res, err := eng.ResolveInstance(context.Background(), &types.InstanceRequest{
		Name:      "web",
		Size:      "medium",
		Providers: []string{"aws", "azure"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Optimized {
		t.Error("explicit provider list must not be marked optimized")
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(res.Candidates))
	}
	if res.Ranking == nil {
		t.Error("ranking should still be produced for explanation")
	}
}

// TestProviderFailureIsolation verifies an image alias missing on one
// provider demotes that provider to a rejection instead of failing the
// whole instance.
func TestProviderFailureIsolation(t *testing.T) {
	eng := testEngine(t)

	res, err := eng.ResolveInstance(context.Background(), &types.InstanceRequest{
		Name:      "web",
		Size:      "medium",
		Image:     "RHEL9-latest",
		Providers: []string{"cheapest"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Descriptor.Provider != types.AWS {
		t.Fatalf("only aws has the image rule, got candidates %v", res.Candidates)
	}
	if res.Candidates[0].ImageRef != "ami-0rhel9" {
		t.Errorf("image ref = %q", res.Candidates[0].ImageRef)
	}

	skipped := map[types.Provider]bool{}
	for _, a := range res.Advisories {
		if a.Code == types.AdvisoryProviderSkipped {
			skipped[a.Provider] = true
		}
	}
	if !skipped[types.GCP] || !skipped[types.Azure] {
		t.Errorf("skipped providers must be disclosed, got %v", res.Advisories)
	}
}

// TestCheapestGPURestrictsToGPUShapes verifies cheapest-gpu drops
// GPU-less candidates for a size request.
func TestCheapestGPURestrictsToGPUShapes(t *testing.T) {
	eng := testEngine(t)

	res, err := eng.ResolveInstance(context.Background(), &types.InstanceRequest{
		Name:      "ml",
		Size:      "gpu-small",
		Providers: []string{"cheapest-gpu"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	for _, c := range res.Candidates {
		if !c.Descriptor.HasGPU() {
			t.Fatalf("cheapest-gpu produced a GPU-less candidate: %+v", c.Descriptor)
		}
	}

	// A size with no GPU shapes anywhere has no eligible candidate.
	_, err = eng.ResolveInstance(context.Background(), &types.InstanceRequest{
		Name:      "ml",
		Size:      "medium",
		Providers: []string{"cheapest-gpu"},
	})
	if err == nil {
		t.Fatal("expected no eligible candidate for GPU-less size under cheapest-gpu")
	}
}

// TestDocumentContinuesPastFailedInstance verifies one bad instance does
// not abort the rest of the document.
func TestDocumentContinuesPastFailedInstance(t *testing.T) {
	eng := testEngine(t)

	doc := &types.RequestDocument{Instances: []types.InstanceRequest{
		{Name: "bad", Size: "no-such-size"},
		{Name: "good", Size: "medium", Providers: []string{"cheapest"}},
	}}
	result, err := eng.ResolveDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("document resolution failed: %v", err)
	}
	if len(result.Instances) != 2 {
		t.Fatalf("expected 2 instance results, got %d", len(result.Instances))
	}
	if !result.Instances[0].Failed() {
		t.Error("bad instance must be reported failed")
	}
	if result.Instances[1].Failed() {
		t.Errorf("good instance failed: %s", result.Instances[1].Error)
	}
	if !result.Failed() {
		t.Error("document with a failed instance must report failure")
	}
	if result.CatalogHash == "" || result.ID == "" {
		t.Error("result must carry run id and catalog fingerprint")
	}
}

// TestInvalidDocumentRejected verifies structural validation runs before
// any resolution.
func TestInvalidDocumentRejected(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.ResolveDocument(context.Background(), &types.RequestDocument{
		Instances: []types.InstanceRequest{
			{Name: "dup", Size: "medium"},
			{Name: "dup", Size: "medium"},
		},
	})
	if err == nil {
		t.Fatal("expected duplicate names to be rejected")
	}
}

// TestRegionOverrideAffectsCost verifies per-provider region overrides
// flow into the effective cost.
func TestRegionOverrideAffectsCost(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"aws.yaml": awsFile,
		"cheapest.yaml": `provider: cheapest
policy:
  region_factors:
    eu-west-1: "2.0"
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := catalog.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	gateway := discovery.NewGateway(discovery.Config{}, discovery.NewSourceRegistry())
	eng := engine.New(store, gateway, engine.Options{})

	res, err := eng.ResolveInstance(context.Background(), &types.InstanceRequest{
		Name:      "web",
		Size:      "medium",
		Providers: []string{"aws"},
		Regions:   map[string]string{"aws": "eu-west-1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	rc := res.Ranking.Ranked[0]
	if rc.Descriptor.Region != "eu-west-1" {
		t.Errorf("region override not applied: %q", rc.Descriptor.Region)
	}
	if !rc.Cost.Effective.Equal(rc.Cost.Base.Mul(rc.Cost.RegionFactor)) {
		t.Errorf("effective cost %s does not reflect region factor", rc.Cost.Effective)
	}
	if rc.Cost.RegionFactor.String() != "2" {
		t.Errorf("region factor = %s, want 2", rc.Cost.RegionFactor)
	}
}
