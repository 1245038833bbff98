// Package trace provides decision-trace recording for schedule analysis.
// The package does not import sim and holds pure data types only.
package trace

// Resolver values for decisions not resolved by a named heuristic.
const (
	ResolverAgent  = "agent"
	ResolverForced = "forced"
)

// DecisionRecord captures one resolved decision point.
type DecisionRecord struct {
	Clock      int64
	Category   string   // e.g. "workstation-routing"
	Subject    string   // the operation, workstation, transport or delivery being decided
	Chosen     string   // the chosen candidate, or "skip"
	Candidates []string // every legal alternative in action-matrix order
	Resolver   string   // ResolverAgent, ResolverForced or a heuristic name
}

// Skipped reports whether the decision postponed sequencing.
func (r DecisionRecord) Skipped() bool { return r.Chosen == "skip" }
