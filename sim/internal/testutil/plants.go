// Package testutil provides shared test infrastructure for the shopsim engine.
// It loads the small plant definitions under testdata/plants used by the scenario tests of sim/ and
// cmd/.
package testutil

import (
	"math"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/institute-of-production-systems/shopsim/sim/plant"
)

// PlantPath returns the path of testdata/plants/<name>.yaml.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func PlantPath(t *testing.T, name string) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "plants", name+".yaml")
}

// LoadPlant loads and validates a plant fixture.
func LoadPlant(t *testing.T, name string) *plant.Plant {
	t.Helper()
	p, err := plant.LoadPlant(PlantPath(t, name))
	if err != nil {
		t.Fatalf("Failed to load plant %q: %v", name, err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Plant %q is invalid: %v", name, err)
	}
	return p
}

// ParsePlant parses and validates an inline plant definition.
func ParsePlant(t *testing.T, yaml string) *plant.Plant {
	t.Helper()
	p, err := plant.ParsePlant([]byte(yaml))
	if err != nil {
		t.Fatalf("Failed to parse plant: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Plant is invalid: %v", err)
	}
	return p
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
