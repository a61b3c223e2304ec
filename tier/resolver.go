package tier

import (
	"tiertrend/database"
)

// UserPeriodRecord is one user's resolved state for one period.
type UserPeriodRecord struct {
	UserKey        string
	ResolvedTier   string
	ResolvedRank   int
	DepositAmount  float64
	WithdrawAmount float64
	Active         bool
}

// Resolver reduces a period's raw rows to one record per user, picking the
// best-ranked tier label each user was seen with in that period.
type Resolver struct {
	ranks *RankTable
}

// NewResolver creates a resolver over the given rank table
func NewResolver(ranks *RankTable) *Resolver {
	return &Resolver{ranks: ranks}
}

// ResolvePeriod folds a period's rows into per-user records. Each period is
// resolved independently; nothing carries over between calls.
//
// A user's resolved tier is the label with the minimum rank among all
// non-null labels on their rows. Rows with a null label still contribute to
// the user's sums and active flag, but a user with no labeled row at all is
// excluded entirely. Labels absent from the rank table sort below every
// known tier, in the order they were first seen, so resolution stays
// deterministic given the retriever's deterministic row order.
func (r *Resolver) ResolvePeriod(rows []database.TierDay) map[string]UserPeriodRecord {
	type userState struct {
		record  UserPeriodRecord
		labeled bool
	}

	users := make(map[string]*userState)
	unknownRanks := make(map[string]int)

	for i := range rows {
		row := &rows[i]
		state, ok := users[row.UserKey]
		if !ok {
			state = &userState{record: UserPeriodRecord{UserKey: row.UserKey}}
			users[row.UserKey] = state
		}

		state.record.DepositAmount += row.DepositAmount
		state.record.WithdrawAmount += row.WithdrawAmount
		if row.DepositCases > 0 {
			state.record.Active = true
		}

		if row.TierLabel == nil || *row.TierLabel == "" {
			continue
		}

		rank := r.labelRank(*row.TierLabel, unknownRanks)
		// Strictly-less keeps the first label seen on equal ranks
		if !state.labeled || rank < state.record.ResolvedRank {
			state.labeled = true
			state.record.ResolvedRank = rank
			state.record.ResolvedTier = r.ranks.Canonical(*row.TierLabel)
		}
	}

	resolved := make(map[string]UserPeriodRecord, len(users))
	for key, state := range users {
		if !state.labeled {
			continue
		}
		resolved[key] = state.record
	}
	return resolved
}

// labelRank ranks a label, assigning unknown labels ranks past the end of
// the table in first-seen order.
func (r *Resolver) labelRank(label string, unknownRanks map[string]int) int {
	if rank, ok := r.ranks.Rank(label); ok {
		return rank
	}
	key := canonicalKey(label)
	if rank, ok := unknownRanks[key]; ok {
		return rank
	}
	rank := r.ranks.Size() + len(unknownRanks)
	unknownRanks[key] = rank
	return rank
}
