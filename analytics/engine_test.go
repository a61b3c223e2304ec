package analytics

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"tiertrend/cache"
	"tiertrend/database"
	"tiertrend/tier"
)

// fakeSource is an in-memory RowSource
type fakeSource struct {
	mu       sync.Mutex
	rows     []database.TierDay
	maxDate  time.Time
	haveData bool
	calls    int

	failErr  error
	partial  bool
	truncate bool
}

func (f *fakeSource) FetchRows(_ context.Context, start, end time.Time, _ database.Filters) database.FetchResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failErr != nil && !f.partial {
		return database.FetchResult{Err: f.failErr}
	}

	var out []database.TierDay
	for _, row := range f.rows {
		if !row.Date.Before(start) && !row.Date.After(end) {
			out = append(out, row)
		}
	}
	if f.partial {
		return database.FetchResult{Rows: out, Partial: true, Err: f.failErr}
	}
	return database.FetchResult{Rows: out, Truncated: f.truncate}
}

func (f *fakeSource) MaxAvailableDate(context.Context, database.Filters) (time.Time, bool, error) {
	return f.maxDate, f.haveData, nil
}

func (f *fakeSource) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testEngine(source *fakeSource, ranks *tier.RankTable, ttl time.Duration) *Engine {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewEngine(source, cache.NewMemoryStore(0), ranks, log, 5*time.Second, ttl)
}

func tierDay(user, tierLabel, day string, deposit, withdraw float64, cases int) database.TierDay {
	return database.TierDay{
		UserKey:        user,
		TierLabel:      &tierLabel,
		Date:           date(day),
		DepositAmount:  deposit,
		WithdrawAmount: withdraw,
		DepositCases:   cases,
	}
}

func TestEngineEndToEndSingleUserScenario(t *testing.T) {
	// User active only in January; absent from February entirely.
	source := &fakeSource{
		rows: []database.TierDay{
			tierDay("u1", "Tier 1", "2024-01-10", 300, 50, 3),
		},
		maxDate:  date("2024-02-29"),
		haveData: true,
	}
	ranks := tier.NewRankTable("Tier 1", "Tier 2")
	engine := testEngine(source, ranks, time.Hour)

	q := Query{
		PeriodA: period("2024-01-01", "2024-01-31"),
		PeriodB: period("2024-02-01", "2024-02-29"),
	}

	result, err := engine.TierMetrics(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}

	if result.PeriodA.TotalCustomers != 1 || result.PeriodA.TotalDepositAmount != 300 || result.PeriodA.TotalGGR != 250 {
		t.Errorf("period A totals = %+v, want 1 customer, 300 deposit, 250 ggr", result.PeriodA)
	}
	if len(result.PeriodA.TierMetrics) != 1 {
		t.Fatalf("period A tiers = %d, want 1", len(result.PeriodA.TierMetrics))
	}
	agg := result.PeriodA.TierMetrics[0]
	if agg.TierName != "Tier 1" || agg.CustomerCount != 1 || agg.DepositAmount != 300 || agg.GGR != 250 {
		t.Errorf("Tier 1 aggregate = %+v", agg)
	}

	if len(result.PeriodB.TierMetrics) != 0 {
		t.Errorf("period B tiers = %+v, want none", result.PeriodB.TierMetrics)
	}

	// The comparison unions the tier with zero values for period B
	if len(result.Comparison.Tiers) != 1 {
		t.Fatalf("comparison tiers = %d, want 1", len(result.Comparison.Tiers))
	}
	if result.Comparison.Tiers[0].PeriodB.DepositAmount != 0 {
		t.Errorf("period B union value = %+v, want zero", result.Comparison.Tiers[0].PeriodB)
	}

	// Absent from one period: no movement classification at all
	movement, err := engine.Movement(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	total := movement.Movement.Upgrades + movement.Movement.Downgrades + movement.Movement.Stable
	if total != 0 {
		t.Errorf("movement classified %d users, want 0", total)
	}
}

func TestEngineCacheIdempotence(t *testing.T) {
	source := &fakeSource{
		rows:     []database.TierDay{tierDay("u1", "P1", "2024-01-10", 100, 10, 1)},
		maxDate:  date("2024-02-29"),
		haveData: true,
	}
	engine := testEngine(source, tier.DefaultRankTable(), time.Hour)

	q := Query{
		PeriodA: period("2024-01-01", "2024-01-31"),
		PeriodB: period("2024-02-01", "2024-02-29"),
	}

	first, err := engine.TierMetrics(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if source.fetchCalls() != 2 {
		t.Fatalf("fetch calls after first request = %d, want 2 (one per period)", source.fetchCalls())
	}

	second, err := engine.TierMetrics(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if source.fetchCalls() != 2 {
		t.Errorf("cached request refetched rows: %d calls", source.fetchCalls())
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
}

func TestEngineCacheExpiry(t *testing.T) {
	source := &fakeSource{
		rows:     []database.TierDay{tierDay("u1", "P1", "2024-01-10", 100, 10, 1)},
		maxDate:  date("2024-02-29"),
		haveData: true,
	}
	// Zero TTL: every entry is already stale on read
	engine := testEngine(source, tier.DefaultRankTable(), 0)

	q := Query{
		PeriodA: period("2024-01-01", "2024-01-31"),
		PeriodB: period("2024-02-01", "2024-02-29"),
	}

	if _, err := engine.TierMetrics(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.TierMetrics(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if source.fetchCalls() != 4 {
		t.Errorf("fetch calls = %d, want 4 (expired cache recomputes)", source.fetchCalls())
	}
}

func TestEnginePartialResultAnnotated(t *testing.T) {
	source := &fakeSource{
		rows:     []database.TierDay{tierDay("u1", "P1", "2024-01-10", 100, 10, 1)},
		maxDate:  date("2024-02-29"),
		haveData: true,
		partial:  true,
		failErr:  errors.New("connection reset mid-page"),
	}
	engine := testEngine(source, tier.DefaultRankTable(), time.Hour)

	q := Query{
		PeriodA: period("2024-01-01", "2024-01-31"),
		PeriodB: period("2024-02-01", "2024-02-29"),
	}

	result, err := engine.TierMetrics(context.Background(), q)
	if err != nil {
		t.Fatalf("partial fetch must not fail the request: %v", err)
	}
	if !result.Partial {
		t.Error("result must be flagged partial")
	}
	if result.PeriodA.TotalDepositAmount != 100 {
		t.Errorf("collected rows must still be aggregated, got %+v", result.PeriodA)
	}
}

func TestEngineTruncationAnnotated(t *testing.T) {
	source := &fakeSource{
		rows:     []database.TierDay{tierDay("u1", "P1", "2024-01-10", 100, 10, 1)},
		maxDate:  date("2024-02-29"),
		haveData: true,
		truncate: true,
	}
	engine := testEngine(source, tier.DefaultRankTable(), time.Hour)

	q := Query{
		PeriodA: period("2024-01-01", "2024-01-31"),
		PeriodB: period("2024-02-01", "2024-02-29"),
	}

	result, err := engine.TierMetrics(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Truncated {
		t.Error("result must be flagged truncated")
	}
	if result.Partial {
		t.Error("truncation must not be conflated with partial store failure")
	}
}

func TestEngineFatalFetchError(t *testing.T) {
	source := &fakeSource{
		maxDate:  date("2024-02-29"),
		haveData: true,
		failErr:  errors.New("store down"),
	}
	engine := testEngine(source, tier.DefaultRankTable(), time.Hour)

	q := Query{
		PeriodA: period("2024-01-01", "2024-01-31"),
		PeriodB: period("2024-02-01", "2024-02-29"),
	}

	if _, err := engine.TierMetrics(context.Background(), q); err == nil {
		t.Fatal("expected error for non-partial fetch failure")
	}
}

func TestEngineInvalidComparePeriod(t *testing.T) {
	source := &fakeSource{maxDate: date("2024-02-29"), haveData: true}
	engine := testEngine(source, tier.DefaultRankTable(), time.Hour)

	_, err := engine.TierMetrics(context.Background(), Query{ComparePeriod: "Weekly"})
	if !errors.Is(err, ErrInvalidComparePeriod) {
		t.Errorf("err = %v, want ErrInvalidComparePeriod", err)
	}
}

func TestEngineCapsExplicitPeriods(t *testing.T) {
	source := &fakeSource{
		rows:     []database.TierDay{tierDay("u1", "P1", "2024-01-10", 100, 10, 1)},
		maxDate:  date("2024-02-20"),
		haveData: true,
	}
	engine := testEngine(source, tier.DefaultRankTable(), time.Hour)

	q := Query{
		PeriodA: period("2024-01-01", "2024-01-31"),
		PeriodB: period("2024-02-01", "2024-02-29"),
	}

	result, err := engine.TierMetrics(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if result.PeriodB.EndDate != "2024-02-20" {
		t.Errorf("period B end = %s, want 2024-02-20", result.PeriodB.EndDate)
	}
	if result.PeriodB.StartDate != "2024-01-23" {
		t.Errorf("period B start = %s, want 2024-01-23 (29-day window preserved)", result.PeriodB.StartDate)
	}
	if result.PeriodA.EndDate != "2024-01-22" {
		t.Errorf("period A end = %s, want 2024-01-22", result.PeriodA.EndDate)
	}
}

func TestEngineDerivesPeriodsFromPreset(t *testing.T) {
	source := &fakeSource{
		rows:     []database.TierDay{tierDay("u1", "P1", "2024-01-10", 100, 10, 1)},
		maxDate:  date("2024-02-29"),
		haveData: true,
	}
	engine := testEngine(source, tier.DefaultRankTable(), time.Hour)

	result, err := engine.TierMetrics(context.Background(), Query{ComparePeriod: CompareMonthly})
	if err != nil {
		t.Fatal(err)
	}
	if result.PeriodA.StartDate != "2024-01-01" || result.PeriodA.EndDate != "2024-01-31" {
		t.Errorf("period A = %s..%s, want January", result.PeriodA.StartDate, result.PeriodA.EndDate)
	}
	if result.PeriodB.StartDate != "2024-02-01" || result.PeriodB.EndDate != "2024-02-29" {
		t.Errorf("period B = %s..%s, want February", result.PeriodB.StartDate, result.PeriodB.EndDate)
	}
}

func TestEngineTrendsCoverEveryDay(t *testing.T) {
	source := &fakeSource{
		rows: []database.TierDay{
			tierDay("u1", "P1", "2024-01-02", 100, 10, 1),
			tierDay("u1", "P1", "2024-02-05", 50, 5, 2),
		},
		maxDate:  date("2024-02-29"),
		haveData: true,
	}
	engine := testEngine(source, tier.DefaultRankTable(), time.Hour)

	q := Query{
		PeriodA: period("2024-01-01", "2024-01-31"),
		PeriodB: period("2024-02-01", "2024-02-29"),
	}

	result, err := engine.TierTrends(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.PeriodA.Dates) != 31 || len(result.PeriodB.Dates) != 29 {
		t.Errorf("dates = (%d, %d), want (31, 29)", len(result.PeriodA.Dates), len(result.PeriodB.Dates))
	}
	if result.PeriodA.Data["P1"][1] != 1 {
		t.Errorf("period A Jan 2 count = %d, want 1", result.PeriodA.Data["P1"][1])
	}
}

func TestEngineAlertsFreshFlag(t *testing.T) {
	source := &fakeSource{
		rows: []database.TierDay{
			tierDay("u1", "P1", "2024-01-10", 100, 10, 1),
			tierDay("u1", "P2", "2024-02-10", 20, 5, 1),
		},
		maxDate:  date("2024-02-29"),
		haveData: true,
	}
	engine := testEngine(source, tier.DefaultRankTable(), time.Hour)

	q := Query{
		PeriodA: period("2024-01-01", "2024-01-31"),
		PeriodB: period("2024-02-01", "2024-02-29"),
	}

	result, fresh, err := engine.Alerts(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if !fresh {
		t.Error("first computation must report fresh")
	}
	if len(result.Alerts) == 0 {
		t.Error("downgrade P1→P2 must produce at least one alert")
	}

	_, fresh, err = engine.Alerts(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if fresh {
		t.Error("cached result must not report fresh")
	}
}
