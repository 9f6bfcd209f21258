package alerts

// All is the filter wildcard.
const All = "all"

// Filter selects alerts by status and severity. Each dimension accepts All or "".
type Filter struct {
	Status   string
	Severity string
}

// Matches applies both dimensions with AND.
func (f Filter) Matches(alert Alert) bool {
	if f.Status != "" && f.Status != All && string(alert.Status) != f.Status {
		return false
	}
	if f.Severity != "" && f.Severity != All && string(alert.Severity) != f.Severity {
		return false
	}
	return true
}

// Apply returns the matching alerts in input order. The input is not modified.
func (f Filter) Apply(list []Alert) []Alert {
	out := make([]Alert, 0, len(list))
	for _, alert := range list {
		if f.Matches(alert) {
			out = append(out, alert)
		}
	}
	return out
}

// Counts summarises a collection.
type Counts struct {
	Total        int              `json:"total"`
	Active       int              `json:"active"`
	Acknowledged int              `json:"acknowledged"`
	Resolved     int              `json:"resolved"`
	BySeverity   map[Severity]int `json:"by_severity"`
}

// Count tallies statuses and severities.
func Count(list []Alert) Counts {
	counts := Counts{Total: len(list), BySeverity: make(map[Severity]int, len(AllSeverities))}
	for _, severity := range AllSeverities {
		counts.BySeverity[severity] = 0
	}
	for _, alert := range list {
		switch alert.Status {
		case StatusActive:
			counts.Active++
		case StatusAcknowledged:
			counts.Acknowledged++
		case StatusResolved:
			counts.Resolved++
		}
		counts.BySeverity[alert.Severity]++
	}
	return counts
}

// Active returns up to limit active alerts in input order. limit <= 0 means no limit.
func Active(list []Alert, limit int) []Alert {
	out := make([]Alert, 0)
	for _, alert := range list {
		if alert.Status != StatusActive {
			continue
		}
		out = append(out, alert)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
