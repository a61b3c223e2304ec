package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"tiertrend/analytics"
	"tiertrend/database"
)

const dateLayout = "2006-01-02"

// allFilter is the query-parameter value meaning "no filter"
const allFilter = "All"

// parseQuery validates and converts the request's query parameters into an
// engine query. Explicit periods win over comparePeriod; when no dates are
// given the comparePeriod preset (default Monthly) derives them.
func parseQuery(r *http.Request) (analytics.Query, error) {
	values := r.URL.Query()

	var q analytics.Query

	dateParams := []string{"periodAStart", "periodAEnd", "periodBStart", "periodBEnd"}
	given := 0
	for _, name := range dateParams {
		if values.Get(name) != "" {
			given++
		}
	}

	switch given {
	case 0:
		q.ComparePeriod = values.Get("comparePeriod")
		if q.ComparePeriod == "" {
			q.ComparePeriod = analytics.CompareMonthly
		}
		switch q.ComparePeriod {
		case analytics.CompareMonthly, analytics.CompareThreeMonth, analytics.CompareSixMonth:
		default:
			return q, fmt.Errorf("unknown comparePeriod %q", q.ComparePeriod)
		}
	case len(dateParams):
		var err error
		if q.PeriodA, err = parsePeriod(values.Get("periodAStart"), values.Get("periodAEnd")); err != nil {
			return q, fmt.Errorf("period A: %w", err)
		}
		if q.PeriodB, err = parsePeriod(values.Get("periodBStart"), values.Get("periodBEnd")); err != nil {
			return q, fmt.Errorf("period B: %w", err)
		}
		if q.PeriodB.Start.Before(q.PeriodA.Start) {
			return q, fmt.Errorf("period B must not start before period A")
		}
	default:
		return q, fmt.Errorf("provide all four period dates or none")
	}

	q.Filters = database.Filters{
		Brand:     filterValue(values.Get("brand")),
		SquadLead: filterValue(values.Get("squadLead")),
		Channel:   filterValue(values.Get("channel")),
		TierNames: splitCSV(values.Get("tierNames")),
	}
	return q, nil
}

// parsePeriod parses an inclusive date window and requires start <= end
func parsePeriod(start, end string) (analytics.Period, error) {
	startDate, err := time.Parse(dateLayout, start)
	if err != nil {
		return analytics.Period{}, fmt.Errorf("invalid start date %q", start)
	}
	endDate, err := time.Parse(dateLayout, end)
	if err != nil {
		return analytics.Period{}, fmt.Errorf("invalid end date %q", end)
	}
	if startDate.After(endDate) {
		return analytics.Period{}, fmt.Errorf("start %s is after end %s", start, end)
	}
	return analytics.Period{Start: startDate, End: endDate}, nil
}

// filterValue maps the "All" sentinel and empty values to "no filter"
func filterValue(v string) string {
	if v == "" || v == allFilter {
		return ""
	}
	return v
}

// splitCSV parses a comma-separated list, dropping empty entries
func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
