package analytics

import (
	"sort"

	"tiertrend/tier"
)

// AggregateTiers folds resolved per-user records into per-tier totals.
//
// Users are folded in sorted key order so that the same multiset of records
// produces bit-identical float sums no matter how the input map was built.
// GGR is derived once per tier after all sums are in, never accumulated
// row by row.
func AggregateTiers(records map[string]tier.UserPeriodRecord) map[string]TierAggregate {
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	aggregates := make(map[string]TierAggregate)
	for _, key := range keys {
		record := records[key]
		agg := aggregates[record.ResolvedTier]
		agg.TierName = record.ResolvedTier
		if record.Active {
			agg.CustomerCount++
		}
		agg.DepositAmount += record.DepositAmount
		agg.WithdrawAmount += record.WithdrawAmount
		aggregates[record.ResolvedTier] = agg
	}

	for name, agg := range aggregates {
		agg.GGR = agg.DepositAmount - agg.WithdrawAmount
		aggregates[name] = agg
	}
	return aggregates
}
