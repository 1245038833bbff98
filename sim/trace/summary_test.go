package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	dt := NewDecisionTrace(TraceLevelDecisions)

	// WHEN summarized
	summary := Summarize(dt)

	// THEN all counts are zero
	if summary.TotalDecisions != 0 || summary.Skips != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if len(summary.ByCategory) != 0 || len(summary.ChosenCounts) != 0 {
		t.Error("expected empty distributions")
	}
}

func TestSummarize_NilTrace(t *testing.T) {
	if s := Summarize(nil); s.TotalDecisions != 0 {
		t.Errorf("expected 0 decisions for nil trace, got %d", s.TotalDecisions)
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN routing, sequencing and skip decisions from different resolvers
	dt := NewDecisionTrace(TraceLevelDecisions)
	dt.Record(DecisionRecord{Category: "workstation-routing", Chosen: "WS1", Resolver: ResolverAgent})
	dt.Record(DecisionRecord{Category: "workstation-routing", Chosen: "WS1", Resolver: "LQO"})
	dt.Record(DecisionRecord{Category: "workstation-sequencing", Chosen: "skip", Resolver: ResolverAgent})
	dt.Record(DecisionRecord{Category: "transport-routing", Chosen: "AGV1", Resolver: ResolverForced})

	// WHEN summarized
	s := Summarize(dt)

	// THEN counts split by category, resolver and choice
	if s.TotalDecisions != 4 {
		t.Errorf("expected 4 decisions, got %d", s.TotalDecisions)
	}
	if s.Skips != 1 {
		t.Errorf("expected 1 skip, got %d", s.Skips)
	}
	if s.ByCategory["workstation-routing"] != 2 {
		t.Errorf("expected 2 workstation-routing decisions, got %d", s.ByCategory["workstation-routing"])
	}
	if s.ByResolver[ResolverAgent] != 2 {
		t.Errorf("expected 2 agent decisions, got %d", s.ByResolver[ResolverAgent])
	}
	if s.ChosenCounts["WS1"] != 2 || s.ChosenCounts["skip"] != 0 {
		t.Errorf("unexpected chosen counts %v", s.ChosenCounts)
	}
}
