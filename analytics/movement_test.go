package analytics

import (
	"fmt"
	"testing"

	"tiertrend/tier"
)

func resolvedMap(userTiers map[string]string) map[string]tier.UserPeriodRecord {
	out := make(map[string]tier.UserPeriodRecord, len(userTiers))
	for user, tierName := range userTiers {
		out[user] = tier.UserPeriodRecord{UserKey: user, ResolvedTier: tierName, Active: true}
	}
	return out
}

func TestClassifyMovement(t *testing.T) {
	ranks := tier.DefaultRankTable()

	resolvedA := resolvedMap(map[string]string{
		"u1": "P2", // upgrades to P1
		"u2": "P1", // downgrades to P3
		"u3": "P4", // stable
		"u4": "P1", // absent in B
	})
	resolvedB := resolvedMap(map[string]string{
		"u1": "P1",
		"u2": "P3",
		"u3": "P4",
		"u5": "P2", // absent in A
	})

	summary := ClassifyMovement(resolvedA, resolvedB, ranks)

	if summary.Upgrades != 1 || summary.Downgrades != 1 || summary.Stable != 1 {
		t.Errorf("summary = %d/%d/%d, want 1/1/1",
			summary.Upgrades, summary.Downgrades, summary.Stable)
	}

	// Users present in both periods must all be accounted for
	both := 3
	if summary.Upgrades+summary.Downgrades+summary.Stable != both {
		t.Errorf("classified %d users, want %d",
			summary.Upgrades+summary.Downgrades+summary.Stable, both)
	}

	foundUpgrade := false
	for _, flow := range summary.TopFlows {
		if flow.From == "P2" && flow.To == "P1" && flow.Count == 1 {
			foundUpgrade = true
		}
		if flow.From == "P4" || flow.To == "P4" {
			t.Error("stable users must not produce flows")
		}
	}
	if !foundUpgrade {
		t.Errorf("missing P2→P1 flow in %+v", summary.TopFlows)
	}
}

func TestClassifyMovementSpecUpgradeScenario(t *testing.T) {
	ranks := tier.NewRankTable("Tier 1", "Tier 2", "Tier 3")

	resolvedA := resolvedMap(map[string]string{"u1": "Tier 2"})
	resolvedB := resolvedMap(map[string]string{"u1": "Tier 1"})

	summary := ClassifyMovement(resolvedA, resolvedB, ranks)
	if summary.Upgrades != 1 {
		t.Fatalf("upgrades = %d, want 1", summary.Upgrades)
	}
	if len(summary.TopFlows) != 1 || summary.TopFlows[0].From != "Tier 2" || summary.TopFlows[0].To != "Tier 1" {
		t.Errorf("flows = %+v, want single Tier 2→Tier 1", summary.TopFlows)
	}
}

func TestTopFlowsLimitAndOrder(t *testing.T) {
	ranks := tier.DefaultRankTable()

	resolvedA := make(map[string]tier.UserPeriodRecord)
	resolvedB := make(map[string]tier.UserPeriodRecord)

	// Seven distinct downgrade flows with distinct counts. User keys are
	// chosen so sorted iteration fills flows in a known insertion order.
	flows := []struct {
		from, to string
		count    int
	}{
		{"ND_P", "P1", 7},
		{"ND_P", "P2", 6},
		{"P1", "P2", 5},
		{"P1", "P3", 4},
		{"P2", "P3", 3},
		{"P2", "P4", 2},
		{"P3", "P4", 1},
	}
	user := 0
	for _, f := range flows {
		for i := 0; i < f.count; i++ {
			key := fmt.Sprintf("u%03d", user)
			user++
			resolvedA[key] = tier.UserPeriodRecord{UserKey: key, ResolvedTier: f.from}
			resolvedB[key] = tier.UserPeriodRecord{UserKey: key, ResolvedTier: f.to}
		}
	}

	summary := ClassifyMovement(resolvedA, resolvedB, ranks)

	if len(summary.TopFlows) != 5 {
		t.Fatalf("top flows = %d entries, want 5", len(summary.TopFlows))
	}
	for i := 1; i < len(summary.TopFlows); i++ {
		if summary.TopFlows[i].Count > summary.TopFlows[i-1].Count {
			t.Errorf("top flows not sorted by count descending: %+v", summary.TopFlows)
		}
	}
	if summary.TopFlows[0].Count != 7 || summary.TopFlows[4].Count != 3 {
		t.Errorf("top flow counts = %+v, want 7..3", summary.TopFlows)
	}
	if summary.Downgrades != 28 {
		t.Errorf("downgrades = %d, want 28", summary.Downgrades)
	}
}

func TestMovementBetweenUnknownLabelsIsStable(t *testing.T) {
	ranks := tier.DefaultRankTable()

	resolvedA := resolvedMap(map[string]string{"u1": "MysteryA"})
	resolvedB := resolvedMap(map[string]string{"u1": "MysteryB"})

	summary := ClassifyMovement(resolvedA, resolvedB, ranks)
	if summary.Stable != 1 || summary.Upgrades != 0 || summary.Downgrades != 0 {
		t.Errorf("unknown→unknown = %d/%d/%d, want stable only",
			summary.Upgrades, summary.Downgrades, summary.Stable)
	}
}

func TestMovementEmptyPeriods(t *testing.T) {
	ranks := tier.DefaultRankTable()
	summary := ClassifyMovement(nil, nil, ranks)
	if summary.Upgrades+summary.Downgrades+summary.Stable != 0 {
		t.Errorf("empty periods must classify nobody, got %+v", summary)
	}
	if len(summary.TopFlows) != 0 {
		t.Errorf("expected no flows, got %+v", summary.TopFlows)
	}
}
