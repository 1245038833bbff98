package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible scheduling run. Two runs with the same key, plant and
// configuration that receive the same actions produce identical event sequences.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemSupply drives raw-material lead-time sampling. It uses the master seed directly.
	SubsystemSupply = "supply"

	// SubsystemDispatch drives the RANDOM dispatching heuristic.
	SubsystemDispatch = "dispatch"

	// SubsystemSuggest drives heuristics that only suggest an action.
	SubsystemSuggest = "suggest"
)

// PartitionedRNG hands out one deterministic *rand.Rand per subsystem so that drawing from one
// never shifts the sequence of another.
//
// Derivation:
//   - SubsystemSupply: masterSeed
//   - every other subsystem: masterSeed XOR fnv1a64(name)
//
// Not safe for concurrent use.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the cached generator for name, creating it on first use. Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derivedSeed := int64(p.key)
	if name != SubsystemSupply {
		derivedSeed ^= fnv1a64(name)
	}
	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Derive returns a fresh generator for name, salted with salt. It is never cached, so drawing from it
// leaves every subsystem sequence untouched.
func (p *PartitionedRNG) Derive(name string, salt int64) *rand.Rand {
	return rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name) ^ salt))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
