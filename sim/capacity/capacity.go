// Package capacity implements the quantized, grouped, wildcard-pattern acceptance test shared by
// workstation buffers, inventories and batch machines.
//
// A size table is an ordered list of Specs. A component is governed by the first Spec whose pattern
// matches it. Capacity is relative: a content of q units under a Spec with max M occupies q/M of the
// space, so components with different maxima can share one location.
//
// This package has no dependencies on sim/; callers supply their own Contents.
package capacity

import (
	"fmt"
	"path"
)

// Tolerance is the slack allowed when comparing relative free capacity against the relative size of a
// delivery. Occupancies are sums of fractions, so exact comparisons would reject deliveries that fill a
// location to exactly 1.0.
const Tolerance = 1e-9

// Spec is one row of a size table.
type Spec struct {
	Pattern string `yaml:"pattern" validate:"required"`
	Max     int    `yaml:"max" validate:"gt=0"`
	Min     int    `yaml:"min,omitempty" validate:"gte=0"`
	Step    int    `yaml:"step,omitempty" validate:"gte=0"`
	Group   string `yaml:"group,omitempty"`
}

// EffectiveStep returns the quantity step, treating an unset step as 1.
func (s Spec) EffectiveStep() int {
	if s.Step <= 0 {
		return 1
	}
	return s.Step
}

// Table is an ordered size table. An empty table places no limits.
type Table []Spec

// Contents is the read side of anything that stores components.
type Contents interface {
	Quantity(component string) int
	Components() []string
}

// Options tune an acceptance test.
type Options struct {
	// DiffCompComb allows contents from different patterns or groups to coexist; all contents then
	// share one capacity.
	DiffCompComb bool
	// IgnoreStep skips the quantity step check (batch aggregation).
	IgnoreStep bool
}

// Verdict is the outcome of an acceptance test.
type Verdict struct {
	Accepted bool
	Pattern  int     // index of the governing Spec, -1 if none matched or the table is empty
	Occupied float64 // relative occupancy counted against the request
	Reason   string
}

// Matches reports whether component matches a shell-style wildcard pattern.
// Malformed patterns match nothing.
func Matches(pattern, component string) bool {
	ok, err := path.Match(pattern, component)
	return err == nil && ok
}

// Match returns the index of the first Spec whose pattern matches component.
func (t Table) Match(component string) (int, bool) {
	for i, s := range t {
		if Matches(s.Pattern, component) {
			return i, true
		}
	}
	return -1, false
}

// Unlimited reports whether the table places no limits at all.
func (t Table) Unlimited() bool { return len(t) == 0 }

// Check runs the acceptance test for adding qty units of component to contents.
func Check(t Table, contents Contents, component string, qty int, opts Options) Verdict {
	if qty < 0 {
		return Verdict{Pattern: -1, Reason: fmt.Sprintf("negative quantity %d", qty)}
	}
	if t.Unlimited() {
		return Verdict{Accepted: true, Pattern: -1, Reason: "unlimited"}
	}
	idx, ok := t.Match(component)
	if !ok {
		return Verdict{Pattern: -1, Reason: fmt.Sprintf("no size pattern matches %q", component)}
	}
	spec := t[idx]

	occupied := 0.0
	for _, c := range contents.Components() {
		q := contents.Quantity(c)
		if q <= 0 {
			continue
		}
		j, known := t.Match(c)
		if !opts.DiffCompComb {
			if !known || !sameGroup(t, idx, j) {
				return Verdict{Pattern: idx, Reason: fmt.Sprintf("%q cannot be combined with stored %q", component, c)}
			}
		}
		if !known {
			continue
		}
		occupied += float64(q) / float64(t[j].Max)
	}

	need := float64(qty) / float64(spec.Max)
	if 1.0-occupied < need-Tolerance {
		return Verdict{Pattern: idx, Occupied: occupied,
			Reason: fmt.Sprintf("free %.4f < needed %.4f", 1.0-occupied, need)}
	}
	if !opts.IgnoreStep {
		total := contents.Quantity(component) + qty
		if step := spec.EffectiveStep(); total%step != 0 {
			return Verdict{Pattern: idx, Occupied: occupied,
				Reason: fmt.Sprintf("quantity %d is not a multiple of step %d", total, step)}
		}
	}
	return Verdict{Accepted: true, Pattern: idx, Occupied: occupied}
}

// Accepts is Check reduced to its decision.
func Accepts(t Table, contents Contents, component string, qty int, opts Options) bool {
	return Check(t, contents, component, qty, opts).Accepted
}

// FillLevel returns the relative occupancy of contents under t. Unlimited tables report 0.
func FillLevel(t Table, contents Contents) float64 {
	if t.Unlimited() {
		return 0
	}
	level := 0.0
	for _, c := range contents.Components() {
		if j, ok := t.Match(c); ok {
			level += float64(contents.Quantity(c)) / float64(t[j].Max)
		}
	}
	return level
}

// MaxFor returns the largest quantity of component the table admits on an empty location.
// ok is false when no pattern matches; an unlimited table reports -1.
func (t Table) MaxFor(component string) (int, bool) {
	if t.Unlimited() {
		return -1, true
	}
	idx, ok := t.Match(component)
	if !ok {
		return 0, false
	}
	return t[idx].Max, true
}

// sameGroup reports whether contents classified under pattern j may share space with the request
// classified under pattern i. The empty group is private to its own pattern.
func sameGroup(t Table, i, j int) bool {
	if t[i].Group == "" {
		return i == j
	}
	return t[i].Group == t[j].Group
}
