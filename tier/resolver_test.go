package tier

import (
	"testing"
	"time"

	"tiertrend/database"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func label(s string) *string { return &s }

func row(user string, tierLabel *string, date string, deposit, withdraw float64, cases int) database.TierDay {
	return database.TierDay{
		UserKey:        user,
		TierLabel:      tierLabel,
		Date:           day(date),
		DepositAmount:  deposit,
		WithdrawAmount: withdraw,
		DepositCases:   cases,
	}
}

func TestResolvePicksBestRankedTier(t *testing.T) {
	resolver := NewResolver(DefaultRankTable())

	rows := []database.TierDay{
		row("u1", label("P3"), "2024-01-01", 100, 0, 1),
		row("u1", label("P1"), "2024-01-02", 50, 10, 2),
		row("u1", label("P4"), "2024-01-03", 25, 5, 0),
	}

	resolved := resolver.ResolvePeriod(rows)
	record, ok := resolved["u1"]
	if !ok {
		t.Fatal("u1 missing from resolution")
	}
	if record.ResolvedTier != "P1" {
		t.Errorf("resolved tier = %s, want P1", record.ResolvedTier)
	}
	if record.DepositAmount != 175 {
		t.Errorf("deposit sum = %v, want 175", record.DepositAmount)
	}
	if record.WithdrawAmount != 15 {
		t.Errorf("withdraw sum = %v, want 15", record.WithdrawAmount)
	}
	if !record.Active {
		t.Error("expected u1 active")
	}
}

func TestResolveOrderInvariant(t *testing.T) {
	resolver := NewResolver(DefaultRankTable())

	rows := []database.TierDay{
		row("u1", label("P3"), "2024-01-01", 100, 0, 1),
		row("u1", label("P1"), "2024-01-02", 50, 10, 0),
		row("u1", label("P2"), "2024-01-03", 25, 5, 0),
	}

	forward := resolver.ResolvePeriod(rows)

	reversed := []database.TierDay{rows[2], rows[1], rows[0]}
	backward := resolver.ResolvePeriod(reversed)

	if forward["u1"].ResolvedTier != backward["u1"].ResolvedTier {
		t.Errorf("resolution depends on row order: %s vs %s",
			forward["u1"].ResolvedTier, backward["u1"].ResolvedTier)
	}
	if forward["u1"].DepositAmount != backward["u1"].DepositAmount {
		t.Error("sums depend on row order")
	}
}

func TestResolveExcludesUnlabeledUsers(t *testing.T) {
	resolver := NewResolver(DefaultRankTable())

	empty := ""
	rows := []database.TierDay{
		row("u1", nil, "2024-01-01", 100, 0, 1),
		row("u1", &empty, "2024-01-02", 50, 0, 1),
		row("u2", label("P2"), "2024-01-01", 10, 0, 1),
	}

	resolved := resolver.ResolvePeriod(rows)
	if _, ok := resolved["u1"]; ok {
		t.Error("u1 has no labeled rows and must be excluded")
	}
	if _, ok := resolved["u2"]; !ok {
		t.Error("u2 missing")
	}
}

func TestResolveNullLabelRowsStillContribute(t *testing.T) {
	resolver := NewResolver(DefaultRankTable())

	rows := []database.TierDay{
		row("u1", label("P2"), "2024-01-01", 100, 20, 0),
		row("u1", nil, "2024-01-02", 40, 5, 3),
	}

	record := resolver.ResolvePeriod(rows)["u1"]
	if record.DepositAmount != 140 || record.WithdrawAmount != 25 {
		t.Errorf("sums = (%v, %v), want (140, 25)", record.DepositAmount, record.WithdrawAmount)
	}
	if !record.Active {
		t.Error("active flag must consider unlabeled rows")
	}
}

func TestResolveInactiveUser(t *testing.T) {
	resolver := NewResolver(DefaultRankTable())

	rows := []database.TierDay{
		row("u1", label("P2"), "2024-01-01", 0, 20, 0),
	}

	record := resolver.ResolvePeriod(rows)["u1"]
	if record.Active {
		t.Error("user with no deposit cases must be inactive")
	}
}

func TestResolveUnknownLabelsRankBelowKnown(t *testing.T) {
	resolver := NewResolver(DefaultRankTable())

	rows := []database.TierDay{
		row("u1", label("Mystery"), "2024-01-01", 10, 0, 1),
		row("u1", label("P5"), "2024-01-02", 10, 0, 1),
		row("u2", label("Mystery"), "2024-01-01", 10, 0, 1),
	}

	resolved := resolver.ResolvePeriod(rows)
	if resolved["u1"].ResolvedTier != "P5" {
		t.Errorf("u1 resolved to %s, want P5 (known beats unknown)", resolved["u1"].ResolvedTier)
	}
	if resolved["u2"].ResolvedTier != "Mystery" {
		t.Errorf("u2 resolved to %s, want Mystery", resolved["u2"].ResolvedTier)
	}
}

func TestResolvePeriodsIndependent(t *testing.T) {
	resolver := NewResolver(DefaultRankTable())

	periodA := []database.TierDay{row("u1", label("P1"), "2024-01-01", 10, 0, 1)}
	periodB := []database.TierDay{row("u1", label("P3"), "2024-02-01", 10, 0, 1)}

	resolvedA := resolver.ResolvePeriod(periodA)
	resolvedB := resolver.ResolvePeriod(periodB)

	if resolvedA["u1"].ResolvedTier != "P1" || resolvedB["u1"].ResolvedTier != "P3" {
		t.Errorf("periods leaked into each other: A=%s B=%s",
			resolvedA["u1"].ResolvedTier, resolvedB["u1"].ResolvedTier)
	}
}
