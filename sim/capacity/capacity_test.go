package capacity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_Table(t *testing.T) {
	screws := Table{
		{Pattern: "screw*", Max: 10, Step: 2, Group: "fasteners"},
		{Pattern: "nut*", Max: 20, Group: "fasteners"},
		{Pattern: "plate", Max: 4},
	}
	tests := []struct {
		name     string
		table    Table
		initial  map[string]int
		comp     string
		qty      int
		opts     Options
		accepted bool
	}{
		{"empty table accepts anything", nil, map[string]int{"x": 1000}, "y", 5000, Options{}, true},
		{"no matching pattern rejects", screws, nil, "bolt", 1, Options{}, false},
		{"within max and step", screws, nil, "screw_M6", 4, Options{}, true},
		{"exactly full", screws, nil, "screw_M6", 10, Options{}, true},
		{"over max", screws, nil, "screw_M6", 12, Options{}, false},
		{"off step", screws, nil, "screw_M6", 3, Options{}, false},
		{"off step ignored", screws, nil, "screw_M6", 3, Options{IgnoreStep: true}, true},
		{"group shares relative capacity", screws, map[string]int{"screw_M6": 6}, "nut_M6", 8, Options{}, true},
		{"group capacity exhausted", screws, map[string]int{"screw_M6": 6}, "nut_M6", 10, Options{}, false},
		{"other group rejects", screws, map[string]int{"screw_M6": 2}, "plate", 1, Options{}, false},
		{"other group allowed when combinable", screws, map[string]int{"screw_M6": 2}, "plate", 1, Options{DiffCompComb: true}, true},
		{"combinable shares one capacity", screws, map[string]int{"screw_M6": 8}, "plate", 1, Options{DiffCompComb: true}, false},
		{"step applies to post-add total", screws, map[string]int{"screw_M6": 2}, "screw_M6", 2, Options{}, true},
		{"negative quantity rejects", screws, nil, "plate", -1, Options{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Accepts(tt.table, NewStock(tt.initial), tt.comp, tt.qty, tt.opts)
			assert.Equal(t, tt.accepted, got)
		})
	}
}

func TestCheck_EmptyGroupIsPrivateToPattern(t *testing.T) {
	// GIVEN two ungrouped patterns
	table := Table{{Pattern: "a*", Max: 10}, {Pattern: "b*", Max: 10}}
	stock := NewStock(map[string]int{"a1": 1})

	// THEN another component of the same pattern may join, one of the other pattern may not
	assert.True(t, Accepts(table, stock, "a2", 1, Options{}))
	assert.False(t, Accepts(table, stock, "b1", 1, Options{}))
}

func TestCheck_ToleratesFloatingSums(t *testing.T) {
	// GIVEN three thirds of a location filled by different components of one group
	table := Table{{Pattern: "*", Max: 3, Group: "g"}}
	stock := NewStock(map[string]int{"a": 1, "b": 1})

	// WHEN the last third arrives THEN the rounding error of 1/3+1/3 does not reject it
	v := Check(table, stock, "c", 1, Options{})
	assert.True(t, v.Accepted, v.Reason)
	assert.Equal(t, 0, v.Pattern)
}

func TestFillLevel(t *testing.T) {
	table := Table{{Pattern: "a", Max: 4, Group: "g"}, {Pattern: "b", Max: 8, Group: "g"}}
	assert.InDelta(t, 0.75, FillLevel(table, NewStock(map[string]int{"a": 1, "b": 4})), 1e-12)
	assert.Equal(t, 0.0, FillLevel(nil, NewStock(map[string]int{"a": 1})))
}

func TestMaxFor(t *testing.T) {
	table := Table{{Pattern: "a*", Max: 4}}
	max, ok := table.MaxFor("abc")
	require.True(t, ok)
	assert.Equal(t, 4, max)
	_, ok = table.MaxFor("x")
	assert.False(t, ok)
	max, ok = Table(nil).MaxFor("x")
	assert.True(t, ok)
	assert.Equal(t, -1, max)
}

// Random delivery sequences never overfill a group and never leave an off-step quantity.
func TestAccepts_RandomDeliveriesKeepInvariants(t *testing.T) {
	table := Table{
		{Pattern: "a*", Max: 12, Step: 3, Group: "g1"},
		{Pattern: "b*", Max: 10, Step: 2, Group: "g1"},
		{Pattern: "c*", Max: 7, Group: "g2"},
	}
	comps := []string{"a1", "a2", "b1", "c1", "c2"}
	for _, diff := range []bool{false, true} {
		rng := rand.New(rand.NewSource(7))
		stock := NewStock(nil)
		for i := 0; i < 2000; i++ {
			comp := comps[rng.Intn(len(comps))]
			if rng.Intn(3) == 0 {
				stock.Remove(comp, stock.Quantity(comp))
				continue
			}
			qty := 1 + rng.Intn(6)
			if !Accepts(table, stock, comp, qty, Options{DiffCompComb: diff}) {
				continue
			}
			stock.Add(comp, qty)

			idx, _ := table.Match(comp)
			assert.Zero(t, stock.Quantity(comp)%table[idx].EffectiveStep(), "step violated for %s", comp)
			for _, g := range []string{"g1", "g2"} {
				level := 0.0
				for _, c := range stock.Components() {
					j, _ := table.Match(c)
					if diff || table[j].Group == g {
						level += float64(stock.Quantity(c)) / float64(table[j].Max)
					}
				}
				assert.LessOrEqual(t, level, 1.0+Tolerance, "group %s overfilled (diff=%v)", g, diff)
			}
		}
	}
}
