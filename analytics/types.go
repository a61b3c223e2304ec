// Package analytics implements the period-comparison aggregation engine:
// per-tier rollups of deposit activity, A/B period comparison, customer
// tier movement and threshold alerts.
package analytics

import (
	"time"
)

const dateLayout = "2006-01-02"

// Period is an inclusive calendar date window
type Period struct {
	Start time.Time `json:"startDate"`
	End   time.Time `json:"endDate"`
}

// Days returns the window length in whole days, inclusive of both endpoints
func (p Period) Days() int {
	return daysBetween(p.Start, p.End) + 1
}

// daysBetween returns the calendar-day offset from a to b. Both endpoints
// are normalized to UTC midnight first, so mixed or DST-shifted locations
// cannot skew the count.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / (24 * time.Hour))
}

// IsZero reports whether the period is unset
func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// TierAggregate holds one tier's rolled-up metrics for one period.
// CustomerCount counts active users only; the amount sums cover every
// resolved user regardless of activity. GGR is always DepositAmount minus
// WithdrawAmount, derived after summation.
type TierAggregate struct {
	TierName       string  `json:"tierName"`
	CustomerCount  int     `json:"customerCount"`
	DepositAmount  float64 `json:"depositAmount"`
	WithdrawAmount float64 `json:"withdrawAmount"`
	GGR            float64 `json:"ggr"`
}

// TierMetricsDelta holds per-metric B−A differences or percentage changes
// for one tier.
type TierMetricsDelta struct {
	CustomerCount  float64 `json:"customerCount"`
	DepositAmount  float64 `json:"depositAmount"`
	WithdrawAmount float64 `json:"withdrawAmount"`
	GGR            float64 `json:"ggr"`
}

// TierDelta compares one tier across both periods. Tiers absent from a
// period appear with zero-valued aggregates, never dropped.
type TierDelta struct {
	TierName   string           `json:"tierName"`
	PeriodA    TierAggregate    `json:"periodA"`
	PeriodB    TierAggregate    `json:"periodB"`
	Difference TierMetricsDelta `json:"difference"`
	Percentage TierMetricsDelta `json:"percentageChange"`
}

// OverallMetrics holds whole-period totals used by alerting
type OverallMetrics struct {
	TotalCustomers     int     `json:"totalCustomers"`
	TotalDepositAmount float64 `json:"totalDepositAmount"`
	TotalWithdraw      float64 `json:"totalWithdrawAmount"`
	TotalGGR           float64 `json:"totalGGR"`
	DepositPerActive   float64 `json:"depositPerActiveCustomer"`
	WinRate            float64 `json:"winRate"`
}

// OverallMetricsDelta holds per-metric B−A differences or percentage
// changes for the overall totals.
type OverallMetricsDelta struct {
	TotalCustomers     float64 `json:"totalCustomers"`
	TotalDepositAmount float64 `json:"totalDepositAmount"`
	TotalWithdraw      float64 `json:"totalWithdrawAmount"`
	TotalGGR           float64 `json:"totalGGR"`
	DepositPerActive   float64 `json:"depositPerActiveCustomer"`
	WinRate            float64 `json:"winRate"`
}

// OverallDelta compares overall metrics across both periods
type OverallDelta struct {
	PeriodA    OverallMetrics      `json:"periodA"`
	PeriodB    OverallMetrics      `json:"periodB"`
	Difference OverallMetricsDelta `json:"difference"`
	Percentage OverallMetricsDelta `json:"percentageChange"`
}

// PeriodComparison is the full A/B comparison over the union of tiers
type PeriodComparison struct {
	Tiers   []TierDelta  `json:"tiers"`
	Overall OverallDelta `json:"overall"`
}

// TierFlow is one tier-to-tier movement tally
type TierFlow struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// MovementSummary tallies how users moved between tiers across periods.
// Only users resolved in both periods contribute, each to exactly one of
// the three buckets. TopFlows holds at most five flows, count descending.
type MovementSummary struct {
	Upgrades   int        `json:"upgrades"`
	Downgrades int        `json:"downgrades"`
	Stable     int        `json:"stable"`
	TopFlows   []TierFlow `json:"topFlows"`
}

// Alert severities and priorities
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Alert is one threshold breach derived from the comparison. Alerts are
// generated per request and never persisted.
type Alert struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Priority string `json:"priority"`
}
