package analytics

import (
	"tiertrend/database"
	"tiertrend/tier"
)

// TrendSeries is one period's daily active-customer counts per tier. Every
// calendar day of the window appears in Dates, zero-filled when no row
// matched, so chart axes line up across periods.
type TrendSeries struct {
	Label     string           `json:"label"`
	StartDate string           `json:"startDate"`
	EndDate   string           `json:"endDate"`
	Dates     []string         `json:"dates"`
	Data      map[string][]int `json:"data"`
}

// BuildTrendSeries counts, for each day of the window, the distinct users
// active that day per tier. A user counts toward the best-ranked label on
// their rows for that specific day, since a daily chart cannot know the
// period-wide resolution.
func BuildTrendSeries(label string, period Period, rows []database.TierDay, ranks *tier.RankTable) TrendSeries {
	days := period.Days()
	series := TrendSeries{
		Label:     label,
		StartDate: period.Start.Format(dateLayout),
		EndDate:   period.End.Format(dateLayout),
		Dates:     make([]string, days),
		Data:      make(map[string][]int),
	}
	for i := 0; i < days; i++ {
		series.Dates[i] = period.Start.AddDate(0, 0, i).Format("Jan 2")
	}

	type dayUser struct {
		day  int
		user string
	}
	bestLabel := make(map[dayUser]string)
	bestRank := make(map[dayUser]int)

	for i := range rows {
		row := &rows[i]
		if row.DepositCases <= 0 || row.TierLabel == nil || *row.TierLabel == "" {
			continue
		}
		day := daysBetween(period.Start, row.Date)
		if day < 0 || day >= days {
			continue
		}

		rank, known := ranks.Rank(*row.TierLabel)
		if !known {
			rank = ranks.Size()
		}
		key := dayUser{day: day, user: row.UserKey}
		if prev, seen := bestRank[key]; seen && prev <= rank {
			continue
		}
		bestRank[key] = rank
		bestLabel[key] = ranks.Canonical(*row.TierLabel)
	}

	for key, name := range bestLabel {
		counts, ok := series.Data[name]
		if !ok {
			counts = make([]int, days)
			series.Data[name] = counts
		}
		counts[key.day]++
	}

	// Tiers seen in the window but only on inactive rows still chart flat
	for i := range rows {
		row := &rows[i]
		if row.TierLabel == nil || *row.TierLabel == "" {
			continue
		}
		name := ranks.Canonical(*row.TierLabel)
		if _, ok := series.Data[name]; !ok {
			series.Data[name] = make([]int, days)
		}
	}

	return series
}
