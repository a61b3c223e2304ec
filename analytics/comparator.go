package analytics

import (
	"sort"

	"tiertrend/tier"
)

// PercentChange computes the percentage change from base to current with
// the zero-baseline rule: a zero base yields 100 for a positive current
// value and 0 otherwise. Never divides by zero.
func PercentChange(base, current float64) float64 {
	if base == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - base) / base * 100
}

// Compare builds the full A/B comparison over the union of tier names
// present in either period. Tiers missing from one side are treated as
// zero-valued. Tier order follows the rank table, unknown labels last in
// name order.
func Compare(aggA, aggB map[string]TierAggregate, ranks *tier.RankTable) PeriodComparison {
	names := unionTierNames(aggA, aggB, ranks)

	tiers := make([]TierDelta, 0, len(names))
	for _, name := range names {
		a := aggA[name]
		b := aggB[name]
		a.TierName = name
		b.TierName = name
		tiers = append(tiers, TierDelta{
			TierName: name,
			PeriodA:  a,
			PeriodB:  b,
			Difference: TierMetricsDelta{
				CustomerCount:  float64(b.CustomerCount - a.CustomerCount),
				DepositAmount:  b.DepositAmount - a.DepositAmount,
				WithdrawAmount: b.WithdrawAmount - a.WithdrawAmount,
				GGR:            b.GGR - a.GGR,
			},
			Percentage: TierMetricsDelta{
				CustomerCount:  PercentChange(float64(a.CustomerCount), float64(b.CustomerCount)),
				DepositAmount:  PercentChange(a.DepositAmount, b.DepositAmount),
				WithdrawAmount: PercentChange(a.WithdrawAmount, b.WithdrawAmount),
				GGR:            PercentChange(a.GGR, b.GGR),
			},
		})
	}

	overallA := overallMetrics(aggA)
	overallB := overallMetrics(aggB)

	return PeriodComparison{
		Tiers: tiers,
		Overall: OverallDelta{
			PeriodA: overallA,
			PeriodB: overallB,
			Difference: OverallMetricsDelta{
				TotalCustomers:     float64(overallB.TotalCustomers - overallA.TotalCustomers),
				TotalDepositAmount: overallB.TotalDepositAmount - overallA.TotalDepositAmount,
				TotalWithdraw:      overallB.TotalWithdraw - overallA.TotalWithdraw,
				TotalGGR:           overallB.TotalGGR - overallA.TotalGGR,
				DepositPerActive:   overallB.DepositPerActive - overallA.DepositPerActive,
				WinRate:            overallB.WinRate - overallA.WinRate,
			},
			Percentage: OverallMetricsDelta{
				TotalCustomers:     PercentChange(float64(overallA.TotalCustomers), float64(overallB.TotalCustomers)),
				TotalDepositAmount: PercentChange(overallA.TotalDepositAmount, overallB.TotalDepositAmount),
				TotalWithdraw:      PercentChange(overallA.TotalWithdraw, overallB.TotalWithdraw),
				TotalGGR:           PercentChange(overallA.TotalGGR, overallB.TotalGGR),
				DepositPerActive:   PercentChange(overallA.DepositPerActive, overallB.DepositPerActive),
				WinRate:            PercentChange(overallA.WinRate, overallB.WinRate),
			},
		},
	}
}

// overallMetrics derives whole-period totals from per-tier aggregates.
// DA/U and win rate guard their denominators: zero denominator yields zero.
func overallMetrics(aggs map[string]TierAggregate) OverallMetrics {
	var m OverallMetrics
	for _, agg := range aggs {
		m.TotalCustomers += agg.CustomerCount
		m.TotalDepositAmount += agg.DepositAmount
		m.TotalWithdraw += agg.WithdrawAmount
	}
	m.TotalGGR = m.TotalDepositAmount - m.TotalWithdraw
	if m.TotalCustomers > 0 {
		m.DepositPerActive = m.TotalDepositAmount / float64(m.TotalCustomers)
	}
	if m.TotalDepositAmount > 0 {
		m.WinRate = m.TotalGGR / m.TotalDepositAmount * 100
	}
	return m
}

// unionTierNames merges the tier names of both periods into rank order,
// with labels unknown to the rank table sorted after known ones by name.
func unionTierNames(aggA, aggB map[string]TierAggregate, ranks *tier.RankTable) []string {
	seen := make(map[string]bool)
	var names []string
	for name := range aggA {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range aggB {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Slice(names, func(i, j int) bool {
		ri, iKnown := ranks.Rank(names[i])
		rj, jKnown := ranks.Rank(names[j])
		if iKnown != jKnown {
			return iKnown
		}
		if iKnown && jKnown && ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	return names
}
