// Package database provides read access to the tier_days row store.
//
// The store holds one row per user per calendar day with that day's tier
// label, deposit/withdraw sums and transaction counts. The engine never
// writes to it; every query here is a bounded, deterministic read.
package database

import (
	"time"
)

// TierDay is one per-user, per-day transaction rollup row.
type TierDay struct {
	ID             int64     `gorm:"column:id;primaryKey" json:"id"`
	UserKey        string    `gorm:"column:user_key" json:"user_key"`
	TierLabel      *string   `gorm:"column:tier_label" json:"tier_label"`
	Date           time.Time `gorm:"column:date" json:"date"`
	DepositAmount  float64   `gorm:"column:deposit_amount" json:"deposit_amount"`
	WithdrawAmount float64   `gorm:"column:withdraw_amount" json:"withdraw_amount"`
	DepositCases   int       `gorm:"column:deposit_cases" json:"deposit_cases"`
	WithdrawCases  int       `gorm:"column:withdraw_cases" json:"withdraw_cases"`
	Brand          string    `gorm:"column:brand" json:"brand"`
	SquadLead      string    `gorm:"column:squad_lead" json:"squad_lead"`
	Channel        string    `gorm:"column:channel" json:"channel"`
}

// TableName overrides the GORM table name
func (TierDay) TableName() string {
	return "tier_days"
}

// Filters narrows which rows are eligible for a query. Empty string means
// no filter on that dimension; an empty TierNames slice means all tiers.
type Filters struct {
	Brand     string
	SquadLead string
	Channel   string
	TierNames []string
}

// FetchResult carries the rows of one period fetch plus the conditions
// under which the fetch ended.
//
// Truncated means the safety cap stopped pagination early: totals computed
// from Rows may undercount. Partial means the store failed mid-pagination
// and Rows holds what was collected before the failure; Err then holds the
// underlying store error. Cancellation and timeout discard rows entirely
// and surface only through Err.
type FetchResult struct {
	Rows      []TierDay
	Truncated bool
	Partial   bool
	Err       error
}
