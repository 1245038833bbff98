package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/institute-of-production-systems/shopsim/sim/capacity"
	"github.com/institute-of-production-systems/shopsim/sim/plant"
)

func TestGammaRand_MeanAndReproducibility(t *testing.T) {
	tests := []struct {
		name         string
		shape, scale float64
	}{
		{name: "shape above one", shape: 3, scale: 2},
		{name: "shape below one", shape: 0.5, scale: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN two generators with the same seed
			a, b := rand.New(rand.NewSource(11)), rand.New(rand.NewSource(11))

			// WHEN many lead times are drawn
			const n = 20000
			sum := 0.0
			for i := 0; i < n; i++ {
				x := gammaRand(a, tt.shape, tt.scale)
				require.GreaterOrEqual(t, x, 0.0)
				require.Equal(t, x, gammaRand(b, tt.shape, tt.scale))
				sum += x
			}

			// THEN their mean approaches shape*scale
			want := tt.shape * tt.scale
			assert.InDelta(t, want, sum/n, 0.05*want)
		})
	}
}

func TestInventoryState_LotRoundsUpToStep(t *testing.T) {
	inv := &InventoryState{ID: "RAW", Buffer: newBuffer("RAW", capacity.Table{
		{Pattern: "sheet", Max: 100, Step: 10},
		{Pattern: "*", Max: 100},
	}, true, "", nil)}

	tests := []struct {
		component string
		qty, want int
	}{
		{"sheet", 1, 10},
		{"sheet", 10, 10},
		{"sheet", 11, 20},
		{"bolt", 7, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inv.lot(tt.component, tt.qty), "%d x %s", tt.qty, tt.component)
	}

	unlimited := &InventoryState{ID: "BIN", Buffer: newBuffer("BIN", nil, false, "", nil)}
	assert.Equal(t, 3, unlimited.lot("sheet", 3))
}

func TestLeadTime(t *testing.T) {
	tests := []struct {
		name      string
		behaviour plant.SupplyBehaviour
		check     func(t *testing.T, secs int64)
	}{
		{
			name:      "always immediate",
			behaviour: plant.SupplyBehaviour{Component: "x", ImmediateProbability: 1, Min: 5, TimeUnit: "h"},
			check:     func(t *testing.T, secs int64) { assert.Equal(t, int64(0), secs) },
		},
		{
			name:      "fixed minimum in minutes",
			behaviour: plant.SupplyBehaviour{Component: "x", Min: 2, TimeUnit: "min"},
			check:     func(t *testing.T, secs int64) { assert.Equal(t, int64(120), secs) },
		},
		{
			name:      "unit defaults to seconds",
			behaviour: plant.SupplyBehaviour{Component: "x", Min: 7},
			check:     func(t *testing.T, secs int64) { assert.Equal(t, int64(7), secs) },
		},
		{
			name:      "gamma on top of the minimum",
			behaviour: plant.SupplyBehaviour{Component: "x", Min: 1, Alpha: 2, Beta: 3, TimeUnit: "min"},
			check:     func(t *testing.T, secs int64) { assert.GreaterOrEqual(t, secs, int64(60)) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Simulator{rng: NewPartitionedRNG(NewSimulationKey(3))}
			b := tt.behaviour
			tt.check(t, s.leadTime(&b))
		})
	}
}

func TestTravelTime(t *testing.T) {
	assert.Equal(t, int64(0), travelTime(0, 2))
	assert.Equal(t, int64(0), travelTime(10, 0))
	assert.Equal(t, int64(5), travelTime(10, 2))
	assert.Equal(t, int64(8), travelTime(10, WalkingSpeed))
	assert.Equal(t, int64(3), travelTime(math.Nextafter(6, 7), 2))
}
