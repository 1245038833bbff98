package trace

// TraceSummary aggregates statistics from a DecisionTrace.
type TraceSummary struct {
	TotalDecisions int
	Skips          int
	ByCategory     map[string]int // category → decisions
	ByResolver     map[string]int // resolver → decisions
	ChosenCounts   map[string]int // chosen candidate → count, skips excluded
}

// Summarize computes aggregate statistics from a DecisionTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(dt *DecisionTrace) *TraceSummary {
	summary := &TraceSummary{
		ByCategory:   make(map[string]int),
		ByResolver:   make(map[string]int),
		ChosenCounts: make(map[string]int),
	}
	if dt == nil {
		return summary
	}
	summary.TotalDecisions = len(dt.Decisions)
	for _, d := range dt.Decisions {
		summary.ByCategory[d.Category]++
		summary.ByResolver[d.Resolver]++
		if d.Skipped() {
			summary.Skips++
			continue
		}
		summary.ChosenCounts[d.Chosen]++
	}
	return summary
}
