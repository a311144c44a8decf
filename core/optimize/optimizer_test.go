// Package optimize_test - cost ranking tests
package optimize_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rut31337/cloudforge/core/catalog"
	"github.com/rut31337/cloudforge/core/optimize"
	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/internal/errors"
)

func candidate(p types.Provider, machine, cost, region string) types.ResolvedCandidate {
	return types.ResolvedCandidate{
		Descriptor: types.MachineDescriptor{
			Provider:    p,
			MachineType: machine,
			VCPUs:       2,
			MemoryMB:    4096,
			HourlyCost:  decimal.RequireFromString(cost),
			Region:      region,
		},
	}
}

// TestRankOrdersByEffectiveCost verifies ranking uses base cost times
// regional and provider factors, not raw base cost.
func TestRankOrdersByEffectiveCost(t *testing.T) {
	policy := catalog.DefaultCostPolicy()
	policy.RegionFactors["eu-west-1"] = decimal.RequireFromString("2.0")
	policy.ProviderFactors[types.VMware] = decimal.RequireFromString("0.5")

	// Effective costs: aws 0.0832, gcp 0.0450, vmware 0.0350.
	ranking, err := optimize.New(policy).Rank([]types.ResolvedCandidate{
		candidate(types.AWS, "t3.medium", "0.0416", "eu-west-1"),
		candidate(types.GCP, "e2-medium", "0.0450", "us-east1"),
		candidate(types.VMware, "std-2x4", "0.0700", "dc1"),
	})
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}

	want := []types.Provider{types.VMware, types.GCP, types.AWS}
	for i, p := range want {
		if ranking.Ranked[i].Descriptor.Provider != p {
			t.Fatalf("rank %d = %s, want %s", i+1, ranking.Ranked[i].Descriptor.Provider, p)
		}
		if ranking.Ranked[i].Rank != i+1 {
			t.Errorf("rank field not assigned: %+v", ranking.Ranked[i].Rank)
		}
	}
	if ranking.Winner == nil || ranking.Winner.Descriptor.Provider != types.VMware {
		t.Error("winner must be the lowest effective cost")
	}

	eff := ranking.Ranked[0].Cost.Effective
	if !eff.Equal(decimal.RequireFromString("0.0350")) {
		t.Errorf("effective cost = %s, want 0.0350", eff)
	}
}

// TestExclusionsRemovedBeforeRanking verifies excluded providers never
// appear in the ranking, not even last.
func TestExclusionsRemovedBeforeRanking(t *testing.T) {
	policy := catalog.DefaultCostPolicy()
	policy.Exclusions = []types.Provider{types.Azure}

	ranking, err := optimize.New(policy).Rank([]types.ResolvedCandidate{
		candidate(types.Azure, "Standard_B2s", "0.0001", ""),
		candidate(types.AWS, "t3.medium", "0.0416", ""),
	})
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	for _, rc := range ranking.Ranked {
		if rc.Descriptor.Provider == types.Azure {
			t.Fatal("excluded provider appeared in ranking")
		}
	}
	if len(ranking.Rejected) != 1 || ranking.Rejected[0].Provider != types.Azure {
		t.Fatalf("excluded provider must be reported rejected, got %v", ranking.Rejected)
	}
	if ranking.Rejected[0].Reason != "excluded" {
		t.Errorf("rejection reason = %q, want excluded", ranking.Rejected[0].Reason)
	}
}

// TestAllExcludedIsError verifies an all-excluded candidate set is
// NoEligibleCandidate rather than an empty winner.
func TestAllExcludedIsError(t *testing.T) {
	policy := catalog.DefaultCostPolicy()
	policy.Exclusions = []types.Provider{types.AWS}

	ranking, err := optimize.New(policy).Rank([]types.ResolvedCandidate{
		candidate(types.AWS, "t3.medium", "0.0416", ""),
	})
	if !errors.IsType(err, errors.TypeNoEligibleCandidate) {
		t.Fatalf("expected NoEligibleCandidate, got %v", err)
	}
	if ranking == nil || ranking.Winner != nil {
		t.Error("error result must carry the rejections and no winner")
	}
}

// TestExactTieBreaksByPriorityThenCanonical verifies equal effective
// costs fall back to the priority list, then fixed provider order.
func TestExactTieBreaksByPriorityThenCanonical(t *testing.T) {
	policy := catalog.DefaultCostPolicy()
	policy.Priority = []types.Provider{types.GCP}

	ranking, err := optimize.New(policy).Rank([]types.ResolvedCandidate{
		candidate(types.AWS, "t3.medium", "0.0416", ""),
		candidate(types.GCP, "e2-medium", "0.0416", ""),
		candidate(types.OCI, "VM.Standard3.Flex", "0.0416", ""),
	})
	if err != nil {
		t.Fatal(err)
	}
	// gcp is prioritized; aws and oci are unlisted and tie-break on
	// canonical order.
	want := []types.Provider{types.GCP, types.AWS, types.OCI}
	for i, p := range want {
		if ranking.Ranked[i].Descriptor.Provider != p {
			t.Fatalf("rank %d = %s, want %s", i+1, ranking.Ranked[i].Descriptor.Provider, p)
		}
	}
}

// TestEpsilonTie verifies costs within the tie epsilon count as equal, so
// a marginally cheaper candidate loses to a higher-priority one.
func TestEpsilonTie(t *testing.T) {
	policy := catalog.DefaultCostPolicy()
	policy.TieEpsilon = decimal.RequireFromString("0.001")
	policy.Priority = []types.Provider{types.GCP}

	ranking, err := optimize.New(policy).Rank([]types.ResolvedCandidate{
		candidate(types.AWS, "t3.medium", "0.0410", ""),
		candidate(types.GCP, "e2-medium", "0.0416", ""),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ranking.Winner.Descriptor.Provider != types.GCP {
		t.Errorf("within epsilon the priority provider must win, got %s", ranking.Winner.Descriptor.Provider)
	}

	// Outside the epsilon the cheaper candidate wins regardless of priority.
	policy.TieEpsilon = decimal.Zero
	ranking, err = optimize.New(policy).Rank([]types.ResolvedCandidate{
		candidate(types.AWS, "t3.medium", "0.0410", ""),
		candidate(types.GCP, "e2-medium", "0.0416", ""),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ranking.Winner.Descriptor.Provider != types.AWS {
		t.Errorf("with zero epsilon the cheaper candidate must win, got %s", ranking.Winner.Descriptor.Provider)
	}
}

// TestInputOrderIndependence verifies the ranking is identical no matter
// how the caller ordered the candidates.
func TestInputOrderIndependence(t *testing.T) {
	policy := catalog.DefaultCostPolicy()
	cands := []types.ResolvedCandidate{
		candidate(types.AWS, "t3.medium", "0.0416", ""),
		candidate(types.GCP, "e2-medium", "0.0416", ""),
		candidate(types.Azure, "Standard_B2s", "0.0416", ""),
		candidate(types.OCI, "VM.Standard3.Flex", "0.0300", ""),
	}
	orders := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{1, 3, 0, 2},
	}

	var first []types.Provider
	for _, order := range orders {
		shuffled := make([]types.ResolvedCandidate, 0, len(cands))
		for _, i := range order {
			shuffled = append(shuffled, cands[i])
		}
		ranking, err := optimize.New(policy).Rank(shuffled)
		if err != nil {
			t.Fatal(err)
		}
		got := make([]types.Provider, len(ranking.Ranked))
		for i, rc := range ranking.Ranked {
			got[i] = rc.Descriptor.Provider
		}
		if first == nil {
			first = got
			continue
		}
		for i := range first {
			if got[i] != first[i] {
				t.Fatalf("ranking depends on input order: %v vs %v", first, got)
			}
		}
	}
	// Ties with no priority list resolve in canonical provider order.
	if first[0] != types.OCI || first[1] != types.AWS || first[2] != types.Azure || first[3] != types.GCP {
		t.Errorf("unexpected canonical ordering: %v", first)
	}
}
