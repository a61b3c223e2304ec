package analytics

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidComparePeriod signals an unrecognized comparePeriod value
// reaching the engine. Fatal for the request.
var ErrInvalidComparePeriod = errors.New("invalid compare period")

// Recognized comparePeriod values
const (
	CompareMonthly    = "Monthly"
	CompareThreeMonth = "3 Month"
	CompareSixMonth   = "6 Month"
)

// CapToAvailableData clamps the period pair to the latest date with usable
// data. When Period B extends past maxAvailable, both windows shift
// backward by the same construction, preserving each window's inclusive
// day count: B ends at maxAvailable, A ends the day before B starts.
// Otherwise both periods are returned unchanged.
func CapToAvailableData(periodA, periodB Period, maxAvailable time.Time) (Period, Period) {
	if !periodB.End.After(maxAvailable) {
		return periodA, periodB
	}

	daysA := periodA.Days()
	daysB := periodB.Days()

	cappedB := Period{End: maxAvailable}
	cappedB.Start = cappedB.End.AddDate(0, 0, -(daysB - 1))

	cappedA := Period{End: cappedB.Start.AddDate(0, 0, -1)}
	cappedA.Start = cappedA.End.AddDate(0, 0, -(daysA - 1))

	return cappedA, cappedB
}

// DerivePeriods builds the period pair for a comparePeriod preset: two
// adjacent calendar windows of equal month length, Period B ending with the
// month of the latest available date. The derived Period B may still end
// past maxAvailable inside that month; CapToAvailableData trims it.
func DerivePeriods(comparePeriod string, maxAvailable time.Time) (Period, Period, error) {
	var months int
	switch comparePeriod {
	case CompareMonthly:
		months = 1
	case CompareThreeMonth:
		months = 3
	case CompareSixMonth:
		months = 6
	default:
		return Period{}, Period{}, fmt.Errorf("%w: %q", ErrInvalidComparePeriod, comparePeriod)
	}

	monthStart := time.Date(maxAvailable.Year(), maxAvailable.Month(), 1, 0, 0, 0, 0, maxAvailable.Location())

	periodB := Period{
		Start: monthStart.AddDate(0, -(months - 1), 0),
		End:   monthStart.AddDate(0, 1, -1),
	}
	periodA := Period{
		Start: periodB.Start.AddDate(0, -months, 0),
		End:   periodB.Start.AddDate(0, 0, -1),
	}
	return periodA, periodB, nil
}
