package dispatch

import (
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// RuleChooser scores every candidate with a user expression over the Candidate fields and picks the
// highest score, e.g. "-Deadline" or "ProcessingTime / (RemainingOps + 1)".
type RuleChooser struct {
	rule    string
	program *vm.Program
}

// NewRuleChooser compiles a scoring rule.
func NewRuleChooser(rule string) (*RuleChooser, error) {
	if rule == "" {
		return nil, fmt.Errorf("EXPR heuristic needs a rule")
	}
	program, err := expr.Compile(rule, expr.Env(Candidate{}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("compiling rule %q: %w", rule, err)
	}
	return &RuleChooser{rule: rule, program: program}, nil
}

// Score evaluates the rule for one candidate.
func (r *RuleChooser) Score(c Candidate) (float64, error) {
	out, err := expr.Run(r.program, c)
	if err != nil {
		return 0, fmt.Errorf("evaluating rule %q: %w", r.rule, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("rule %q returned %T, want a number", r.rule, out)
	}
	return v, nil
}

// Choose implements Chooser. A candidate whose evaluation fails scores lowest.
func (r *RuleChooser) Choose(cands []Candidate) Candidate {
	if len(cands) == 0 {
		panic("EXPR.Choose: no candidates")
	}
	sorted := Sorted(cands)
	best, bestScore, found := 0, 0.0, false
	for i, c := range sorted {
		v, err := r.Score(c)
		if err != nil {
			continue
		}
		if !found || v > bestScore {
			best, bestScore, found = i, v, true
		}
	}
	return sorted[best]
}
