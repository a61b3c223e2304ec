package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tiertrend/cache"
	"tiertrend/database"
	"tiertrend/tier"
)

// RowSource is the engine's view of the row store
type RowSource interface {
	FetchRows(ctx context.Context, start, end time.Time, f database.Filters) database.FetchResult
	MaxAvailableDate(ctx context.Context, f database.Filters) (time.Time, bool, error)
}

// Query is a fully validated analytics request. Either both periods are set
// explicitly, or they are derived from ComparePeriod against the latest
// available data.
type Query struct {
	PeriodA       Period
	PeriodB       Period
	ComparePeriod string
	Filters       database.Filters
}

// PeriodMetrics is one period's slice of the tier-metrics response
type PeriodMetrics struct {
	StartDate          string          `json:"startDate"`
	EndDate            string          `json:"endDate"`
	TotalCustomers     int             `json:"totalCustomers"`
	TotalDepositAmount float64         `json:"totalDepositAmount"`
	TotalGGR           float64         `json:"totalGGR"`
	WinRate            float64         `json:"winRate"`
	TierMetrics        []TierAggregate `json:"tierMetrics"`
}

// TierMetricsResult is the tier-metrics response payload
type TierMetricsResult struct {
	PeriodA    PeriodMetrics    `json:"periodA"`
	PeriodB    PeriodMetrics    `json:"periodB"`
	Comparison PeriodComparison `json:"comparison"`
	Partial    bool             `json:"partial"`
	Truncated  bool             `json:"truncated"`
}

// TierTrendsResult is the tier-trends response payload
type TierTrendsResult struct {
	PeriodA   TrendSeries `json:"periodA"`
	PeriodB   TrendSeries `json:"periodB"`
	Partial   bool        `json:"partial"`
	Truncated bool        `json:"truncated"`
}

// MovementResult is the tier-movement response payload
type MovementResult struct {
	Movement  MovementSummary `json:"movement"`
	Partial   bool            `json:"partial"`
	Truncated bool            `json:"truncated"`
}

// AlertsResult is the alerts response payload
type AlertsResult struct {
	Alerts    []Alert `json:"alerts"`
	Partial   bool    `json:"partial"`
	Truncated bool    `json:"truncated"`
}

// Engine computes period-over-period tier analytics. It is read-only
// against the row store; the cache is its only shared state, and every
// result is recomputed from rows once the cached copy expires.
type Engine struct {
	source  RowSource
	store   cache.Store
	ranks   *tier.RankTable
	log     *logrus.Logger
	timeout time.Duration
	ttl     time.Duration
}

// NewEngine creates an analytics engine
func NewEngine(source RowSource, store cache.Store, ranks *tier.RankTable, log *logrus.Logger, timeout, ttl time.Duration) *Engine {
	return &Engine{
		source:  source,
		store:   store,
		ranks:   ranks,
		log:     log,
		timeout: timeout,
		ttl:     ttl,
	}
}

// TierMetrics computes (or returns cached) per-tier metrics for both
// periods plus their comparison.
func (e *Engine) TierMetrics(ctx context.Context, q Query) (*TierMetricsResult, error) {
	key := e.cacheKey("tier-metrics", q)
	var cached TierMetricsResult
	if hit := e.cacheGet(ctx, key, &cached); hit {
		return &cached, nil
	}

	dataA, dataB, err := e.computeBoth(ctx, q)
	if err != nil {
		return nil, err
	}

	comparison := Compare(dataA.aggregates, dataB.aggregates, e.ranks)
	result := &TierMetricsResult{
		PeriodA:    e.periodMetrics(dataA, comparison.Overall.PeriodA),
		PeriodB:    e.periodMetrics(dataB, comparison.Overall.PeriodB),
		Comparison: comparison,
		Partial:    dataA.partial || dataB.partial,
		Truncated:  dataA.truncated || dataB.truncated,
	}
	e.cacheSet(ctx, key, result)
	return result, nil
}

// TierTrends computes (or returns cached) daily active-customer series per
// tier for both periods.
func (e *Engine) TierTrends(ctx context.Context, q Query) (*TierTrendsResult, error) {
	key := e.cacheKey("tier-trends", q)
	var cached TierTrendsResult
	if hit := e.cacheGet(ctx, key, &cached); hit {
		return &cached, nil
	}

	dataA, dataB, err := e.computeBoth(ctx, q)
	if err != nil {
		return nil, err
	}

	result := &TierTrendsResult{
		PeriodA:   BuildTrendSeries("Period A", dataA.period, dataA.rows, e.ranks),
		PeriodB:   BuildTrendSeries("Period B", dataB.period, dataB.rows, e.ranks),
		Partial:   dataA.partial || dataB.partial,
		Truncated: dataA.truncated || dataB.truncated,
	}
	e.cacheSet(ctx, key, result)
	return result, nil
}

// Movement computes (or returns cached) the tier movement summary.
func (e *Engine) Movement(ctx context.Context, q Query) (*MovementResult, error) {
	key := e.cacheKey("tier-movement", q)
	var cached MovementResult
	if hit := e.cacheGet(ctx, key, &cached); hit {
		return &cached, nil
	}

	dataA, dataB, err := e.computeBoth(ctx, q)
	if err != nil {
		return nil, err
	}

	result := &MovementResult{
		Movement:  ClassifyMovement(dataA.resolved, dataB.resolved, e.ranks),
		Partial:   dataA.partial || dataB.partial,
		Truncated: dataA.truncated || dataB.truncated,
	}
	e.cacheSet(ctx, key, result)
	return result, nil
}

// Alerts computes (or returns cached) threshold alerts. The second return
// value reports whether the result was computed fresh rather than served
// from cache, so callers can fan out new alerts to live listeners.
func (e *Engine) Alerts(ctx context.Context, q Query) (*AlertsResult, bool, error) {
	key := e.cacheKey("alerts", q)
	var cached AlertsResult
	if hit := e.cacheGet(ctx, key, &cached); hit {
		return &cached, false, nil
	}

	dataA, dataB, err := e.computeBoth(ctx, q)
	if err != nil {
		return nil, false, err
	}

	comparison := Compare(dataA.aggregates, dataB.aggregates, e.ranks)
	movement := ClassifyMovement(dataA.resolved, dataB.resolved, e.ranks)
	result := &AlertsResult{
		Alerts:    GenerateAlerts(comparison, movement, e.ranks),
		Partial:   dataA.partial || dataB.partial,
		Truncated: dataA.truncated || dataB.truncated,
	}
	e.cacheSet(ctx, key, result)
	return result, true, nil
}

// periodData holds one period's fetched and reduced state
type periodData struct {
	period     Period
	rows       []database.TierDay
	resolved   map[string]tier.UserPeriodRecord
	aggregates map[string]TierAggregate
	partial    bool
	truncated  bool
}

// computeBoth resolves the period windows, fetches both periods
// concurrently and reduces each to per-user records and per-tier
// aggregates. The two fetches share no mutable state; cancellation or
// timeout of the request context aborts both and fails the request, while
// a store error or the safety cap only annotates the affected period.
func (e *Engine) computeBoth(ctx context.Context, q Query) (*periodData, *periodData, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	periodA, periodB, err := e.resolveWindows(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	periods := [2]Period{periodA, periodB}
	var results [2]database.FetchResult
	var wg sync.WaitGroup
	for i := range periods {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.source.FetchRows(ctx, periods[i].Start, periods[i].End, q.Filters)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("analytics request aborted: %w", err)
	}

	resolver := tier.NewResolver(e.ranks)
	data := [2]*periodData{}
	for i := range results {
		res := results[i]
		if res.Err != nil && !res.Partial {
			return nil, nil, fmt.Errorf("period fetch failed: %w", res.Err)
		}
		if res.Partial {
			e.log.WithError(res.Err).WithField("period", periods[i]).
				Warn("row store failed mid-pagination, continuing with partial rows")
		}
		if res.Truncated {
			e.log.WithFields(logrus.Fields{
				"period": periods[i],
				"rows":   len(res.Rows),
			}).Warn("row fetch hit safety cap, totals may undercount")
		}

		resolved := resolver.ResolvePeriod(res.Rows)
		data[i] = &periodData{
			period:     periods[i],
			rows:       res.Rows,
			resolved:   resolved,
			aggregates: AggregateTiers(resolved),
			partial:    res.Partial,
			truncated:  res.Truncated,
		}
	}
	return data[0], data[1], nil
}

// resolveWindows turns a query into the concrete period pair: explicit
// dates when given, otherwise derived from the compare-period preset, and
// in both cases capped to the latest available data.
func (e *Engine) resolveWindows(ctx context.Context, q Query) (Period, Period, error) {
	maxAvailable, haveData, err := e.source.MaxAvailableDate(ctx, q.Filters)
	if err != nil {
		return Period{}, Period{}, err
	}

	periodA, periodB := q.PeriodA, q.PeriodB
	if periodA.IsZero() || periodB.IsZero() {
		reference := maxAvailable
		if !haveData {
			reference = time.Now()
		}
		periodA, periodB, err = DerivePeriods(q.ComparePeriod, reference)
		if err != nil {
			return Period{}, Period{}, err
		}
	}

	if haveData {
		periodA, periodB = CapToAvailableData(periodA, periodB, maxAvailable)
	}
	return periodA, periodB, nil
}

// periodMetrics flattens one period's aggregates into the response shape
func (e *Engine) periodMetrics(data *periodData, overall OverallMetrics) PeriodMetrics {
	names := unionTierNames(data.aggregates, nil, e.ranks)
	metrics := make([]TierAggregate, 0, len(names))
	for _, name := range names {
		metrics = append(metrics, data.aggregates[name])
	}
	return PeriodMetrics{
		StartDate:          data.period.Start.Format(dateLayout),
		EndDate:            data.period.End.Format(dateLayout),
		TotalCustomers:     overall.TotalCustomers,
		TotalDepositAmount: overall.TotalDepositAmount,
		TotalGGR:           overall.TotalGGR,
		WinRate:            overall.WinRate,
		TierMetrics:        metrics,
	}
}

// cacheKey serializes every parameter that affects a result. Tier names
// are sorted so equivalent allow-lists collide on the same key.
func (e *Engine) cacheKey(kind string, q Query) string {
	tierNames := make([]string, len(q.Filters.TierNames))
	copy(tierNames, q.Filters.TierNames)
	sort.Strings(tierNames)

	var b strings.Builder
	b.WriteString("tiertrend:v1:")
	b.WriteString(kind)
	for _, p := range []Period{q.PeriodA, q.PeriodB} {
		if p.IsZero() {
			b.WriteString(":-")
		} else {
			b.WriteString(":" + p.Start.Format(dateLayout) + ".." + p.End.Format(dateLayout))
		}
	}
	b.WriteString(":cp=" + q.ComparePeriod)
	b.WriteString(":brand=" + q.Filters.Brand)
	b.WriteString(":squad=" + q.Filters.SquadLead)
	b.WriteString(":channel=" + q.Filters.Channel)
	b.WriteString(":tiers=" + strings.Join(tierNames, ","))
	return b.String()
}

func (e *Engine) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	hit, err := e.store.Get(ctx, key, dest)
	if err != nil {
		e.log.WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	return hit
}

func (e *Engine) cacheSet(ctx context.Context, key string, value interface{}) {
	if err := e.store.Set(ctx, key, value, e.ttl); err != nil {
		e.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}
