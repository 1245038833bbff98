package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/institute-of-production-systems/shopsim/sim/plant"
)

func TestPoolTracker_SeizeAndRelease(t *testing.T) {
	// GIVEN W1 listed in two pools
	tr := NewPoolTracker([]plant.Pool{
		{ID: "A", Members: []string{"W1", "W2"}},
		{ID: "B", Members: []string{"W1", "W3"}},
	})
	assert.Equal(t, "A", tr.Home("W1"))

	// WHEN W1 is seized through pool B
	require.True(t, tr.Seize("B", "W1", "WS1"))

	// THEN it is unavailable in both pools and cannot be seized twice
	assert.Equal(t, []string{"W2"}, tr.Available("A"))
	assert.Equal(t, []string{"W3"}, tr.Available("B"))
	assert.False(t, tr.Seize("A", "W1", "WS2"))
	h, ok := tr.Holder("W1")
	assert.True(t, ok)
	assert.Equal(t, "WS1", h)

	tr.Release("W1")
	assert.Equal(t, []string{"W1", "W2"}, tr.Available("A"))
}

func TestPoolTracker_SeizeOutsidePoolFails(t *testing.T) {
	tr := NewPoolTracker([]plant.Pool{{ID: "A", Members: []string{"W1"}}})
	assert.False(t, tr.Seize("A", "W9", "WS1"))
	assert.False(t, tr.Seize("missing", "W1", "WS1"))
}

func TestPoolTracker_ReleaseUnheldPanics(t *testing.T) {
	tr := NewPoolTracker([]plant.Pool{{ID: "A", Members: []string{"W1"}}})
	assert.Panics(t, func() { tr.Release("W1") })
}

func TestPoolTracker_AssignPermanent(t *testing.T) {
	tr := NewPoolTracker([]plant.Pool{{ID: "A", Members: []string{"W1"}}})
	tr.Assign("W1", "WS1")
	tr.Assign("W1", "WS1")

	assert.Empty(t, tr.Available("A"))
	assert.Panics(t, func() { tr.Assign("W1", "WS2") })
}

func TestWorkerState_Covers(t *testing.T) {
	w := &WorkerState{ID: "W1", Capabilities: map[string]bool{"weld": true, "drive": true}}
	assert.True(t, w.Covers(nil))
	assert.True(t, w.Covers([]string{"weld"}))
	assert.False(t, w.Covers([]string{"weld", "paint"}))
}

func TestToolStates_InitialValuesAndEffects(t *testing.T) {
	// GIVEN a drill with a static diameter and a dynamic sharpness in [0, 10]
	p := &plant.Plant{Tools: []plant.Tool{{
		ID:      "DRILL",
		Static:  map[string]float64{"diameter": 8},
		Dynamic: map[string]plant.DynamicProperty{"sharpness": {Min: 0, Max: 10}},
	}}}
	ts := NewToolStates(p)

	v, ok := ts.Value("DRILL", "sharpness")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)

	// WHEN effects are applied to both properties
	ts.Apply("DRILL", map[string]plant.Effect{
		"sharpness": {C: -1},
		"diameter":  {C: 100},
	})

	// THEN only the dynamic property changes
	v, _ = ts.Value("DRILL", "sharpness")
	assert.Equal(t, 4.0, v)
	v, _ = ts.Value("DRILL", "diameter")
	assert.Equal(t, 8.0, v)
}

func TestEffectOf(t *testing.T) {
	tests := []struct {
		name   string
		effect plant.Effect
		v      float64
		want   float64
	}{
		{name: "constant wear", effect: plant.Effect{C: -0.5}, v: 3, want: 2.5},
		{name: "quadratic", effect: plant.Effect{A: 1, B: 2}, v: 3, want: 12},
		{name: "undefined power contributes nothing", effect: plant.Effect{A: 1, B: -1, C: 1}, v: 0, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, effectOf(tt.effect, tt.v), 1e-9)
		})
	}
}
