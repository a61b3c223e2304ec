package analytics

import (
	"fmt"
	"strings"

	"tiertrend/tier"
)

// Alert thresholds. Boundaries are exclusive: a change of exactly -10%
// stays at warning, exactly +5% does not fire the DA/U alert.
const (
	customerDropWarnPct  = -5
	customerDropErrorPct = -10
	downgradeErrorCount  = 100
	depositPerUserPct    = 5
	depositPerUserErrPct = 15
	downgradeFlowLimit   = 2
)

// GenerateAlerts applies the fixed threshold rules to a period comparison
// and movement summary. Pure function: no I/O, zero or more alerts.
func GenerateAlerts(cmp PeriodComparison, movement MovementSummary, ranks *tier.RankTable) []Alert {
	alerts := make([]Alert, 0)
	alerts = append(alerts, customerDropAlerts(cmp)...)
	if alert := downgradeAlert(movement, ranks); alert != nil {
		alerts = append(alerts, *alert)
	}
	if alert := depositPerUserAlert(cmp.Overall); alert != nil {
		alerts = append(alerts, *alert)
	}
	return alerts
}

// customerDropAlerts fires per tier when the active customer count fell
// more than 5% against a non-zero Period-A baseline.
func customerDropAlerts(cmp PeriodComparison) []Alert {
	var alerts []Alert
	for _, delta := range cmp.Tiers {
		if delta.PeriodA.CustomerCount == 0 {
			continue
		}
		pct := delta.Percentage.CustomerCount
		if pct >= customerDropWarnPct {
			continue
		}

		severity, priority := SeverityWarning, PriorityMedium
		if pct < customerDropErrorPct {
			severity, priority = SeverityError, PriorityHigh
		}
		lost := delta.PeriodA.CustomerCount - delta.PeriodB.CustomerCount
		alerts = append(alerts, Alert{
			ID:       "customer-drop-" + slug(delta.TierName),
			Title:    fmt.Sprintf("Customer drop in %s", delta.TierName),
			Message: fmt.Sprintf("%s lost %d active customers (%d → %d, %.1f%%)",
				delta.TierName, lost, delta.PeriodA.CustomerCount, delta.PeriodB.CustomerCount, pct),
			Severity: severity,
			Priority: priority,
		})
	}
	return alerts
}

// downgradeAlert fires whenever any downgrades occurred, naming up to two
// of the heaviest true downgrade flows.
func downgradeAlert(movement MovementSummary, ranks *tier.RankTable) *Alert {
	if movement.Downgrades == 0 {
		return nil
	}

	severity, priority := SeverityWarning, PriorityMedium
	if movement.Downgrades > downgradeErrorCount {
		severity, priority = SeverityError, PriorityHigh
	}

	var flowParts []string
	for _, flow := range movement.TopFlows {
		if len(flowParts) == downgradeFlowLimit {
			break
		}
		if movementRank(flow.To, ranks) <= movementRank(flow.From, ranks) {
			continue
		}
		flowParts = append(flowParts, fmt.Sprintf("%s→%s (%d)", flow.From, flow.To, flow.Count))
	}

	message := fmt.Sprintf("%d customers moved to a lower tier", movement.Downgrades)
	if len(flowParts) > 0 {
		message += ": " + strings.Join(flowParts, ", ")
	}
	return &Alert{
		ID:       "tier-downgrades",
		Title:    "Tier downgrades detected",
		Message:  message,
		Severity: severity,
		Priority: priority,
	}
}

// depositPerUserAlert fires when deposit amount per active customer moved
// more than 5% in either direction.
func depositPerUserAlert(overall OverallDelta) *Alert {
	pct := PercentChange(overall.PeriodA.DepositPerActive, overall.PeriodB.DepositPerActive)
	abs := pct
	if abs < 0 {
		abs = -abs
	}
	if abs <= depositPerUserPct {
		return nil
	}

	severity, priority := SeverityWarning, PriorityMedium
	if abs > depositPerUserErrPct {
		severity, priority = SeverityError, PriorityHigh
	}
	direction := "up"
	if pct < 0 {
		direction = "down"
	}
	return &Alert{
		ID:    "deposit-per-user-trend",
		Title: "Deposit per active customer trend",
		Message: fmt.Sprintf("Deposit per active customer is %s %.1f%% (%.2f → %.2f)",
			direction, abs, overall.PeriodA.DepositPerActive, overall.PeriodB.DepositPerActive),
		Severity: severity,
		Priority: priority,
	}
}

// slug lowercases a tier name for use in alert IDs
func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
