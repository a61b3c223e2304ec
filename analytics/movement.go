package analytics

import (
	"sort"

	"tiertrend/tier"
)

// topFlowLimit caps how many tier-to-tier flows a MovementSummary reports
const topFlowLimit = 5

// ClassifyMovement compares each user's resolved tier across the two
// periods. Only users resolved in both periods are classified; everyone
// else simply does not contribute. A lower rank in B means an upgrade, a
// higher rank a downgrade, the same rank stable. Flow counters are kept for
// upgrades and downgrades only.
//
// Labels unknown to the rank table all share the same off-table rank, so a
// move between two unknown labels counts as stable rather than guessing a
// direction.
func ClassifyMovement(resolvedA, resolvedB map[string]tier.UserPeriodRecord, ranks *tier.RankTable) MovementSummary {
	var summary MovementSummary

	flowIndex := make(map[string]int)
	var flows []TierFlow

	// Sorted key order keeps flow insertion order, and therefore tie
	// breaks in TopFlows, independent of map iteration.
	keys := make([]string, 0, len(resolvedA))
	for key := range resolvedA {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		recordA := resolvedA[key]
		recordB, ok := resolvedB[key]
		if !ok {
			continue
		}

		rankA := movementRank(recordA.ResolvedTier, ranks)
		rankB := movementRank(recordB.ResolvedTier, ranks)

		switch {
		case rankB < rankA:
			summary.Upgrades++
		case rankB > rankA:
			summary.Downgrades++
		default:
			summary.Stable++
			continue
		}

		flowKey := recordA.ResolvedTier + "→" + recordB.ResolvedTier
		idx, ok := flowIndex[flowKey]
		if !ok {
			idx = len(flows)
			flowIndex[flowKey] = idx
			flows = append(flows, TierFlow{From: recordA.ResolvedTier, To: recordB.ResolvedTier})
		}
		flows[idx].Count++
	}

	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].Count > flows[j].Count
	})
	if len(flows) > topFlowLimit {
		flows = flows[:topFlowLimit]
	}
	summary.TopFlows = flows
	return summary
}

// movementRank ranks a resolved label for movement purposes, with all
// unknown labels sharing one rank just past the table.
func movementRank(label string, ranks *tier.RankTable) int {
	if rank, ok := ranks.Rank(label); ok {
		return rank
	}
	return ranks.Size()
}
