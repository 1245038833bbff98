package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/institute-of-production-systems/shopsim/sim/plant"
)

// PoolTracker tracks which members of worker or tool pools are seized, and by whom. A member belongs
// to the first pool that lists it; it is seized by at most one holder at a time.
type PoolTracker struct {
	pools   []plant.Pool
	home    map[string]string
	holders map[string]string
}

// NewPoolTracker creates a tracker with every member free.
func NewPoolTracker(pools []plant.Pool) *PoolTracker {
	t := &PoolTracker{pools: pools, home: make(map[string]string), holders: make(map[string]string)}
	for _, p := range pools {
		for _, m := range p.Members {
			if _, ok := t.home[m]; !ok {
				t.home[m] = p.ID
			}
		}
	}
	return t
}

// Members returns the members of pool in declaration order.
func (t *PoolTracker) Members(pool string) []string {
	for _, p := range t.pools {
		if p.ID == pool {
			return p.Members
		}
	}
	return nil
}

// InPool reports whether member is listed in pool.
func (t *PoolTracker) InPool(pool, member string) bool {
	for _, m := range t.Members(pool) {
		if m == member {
			return true
		}
	}
	return false
}

// Available returns the free members of pool in declaration order.
func (t *PoolTracker) Available(pool string) []string {
	var out []string
	for _, m := range t.Members(pool) {
		if _, seized := t.holders[m]; !seized {
			out = append(out, m)
		}
	}
	return out
}

// Holder returns who holds member.
func (t *PoolTracker) Holder(member string) (string, bool) {
	h, ok := t.holders[member]
	return h, ok
}

// Home returns the pool member returns to.
func (t *PoolTracker) Home(member string) string { return t.home[member] }

// Seize hands member of pool to holder. It fails if member is not in pool or already held.
func (t *PoolTracker) Seize(pool, member, holder string) bool {
	if !t.InPool(pool, member) {
		return false
	}
	if _, seized := t.holders[member]; seized {
		return false
	}
	t.holders[member] = holder
	return true
}

// Assign marks member as permanently held, whether or not it belongs to a pool.
func (t *PoolTracker) Assign(member, holder string) {
	if h, seized := t.holders[member]; seized && h != holder {
		panic(fmt.Sprintf("Assign: %q already held by %q", member, h))
	}
	t.holders[member] = holder
}

// Release frees member. Releasing a member that is not held is an invariant violation.
func (t *PoolTracker) Release(member string) {
	if _, seized := t.holders[member]; !seized {
		panic(fmt.Sprintf("Release: %q is not seized", member))
	}
	delete(t.holders, member)
}

// WorkerState is the mutable state of one worker.
type WorkerState struct {
	ID           string
	Capabilities map[string]bool
	Status       WorkerStatus
	Location     string
	Destination  string
	Holder       string
	BusyTime     int64
	SetupTime    int64
	WalkTime     int64
}

// Covers reports whether the worker has every capability in caps.
func (w *WorkerState) Covers(caps []string) bool {
	for _, c := range caps {
		if !w.Capabilities[c] {
			return false
		}
	}
	return true
}

// ToolStates tracks the live property values of every tool.
type ToolStates struct {
	values map[string]map[string]float64
	tools  map[string]*plant.Tool
}

// NewToolStates initialises static properties to their value and dynamic properties to the middle of
// their range.
func NewToolStates(p *plant.Plant) *ToolStates {
	ts := &ToolStates{values: make(map[string]map[string]float64), tools: make(map[string]*plant.Tool)}
	for i := range p.Tools {
		tool := &p.Tools[i]
		ts.tools[tool.ID] = tool
		vals := make(map[string]float64, len(tool.Static)+len(tool.Dynamic))
		for k, v := range tool.Static {
			vals[k] = v
		}
		for k, d := range tool.Dynamic {
			vals[k] = (d.Min + d.Max) / 2
		}
		ts.values[tool.ID] = vals
	}
	return ts
}

// Value returns the current value of a tool property.
func (ts *ToolStates) Value(tool, prop string) (float64, bool) {
	v, ok := ts.values[tool][prop]
	return v, ok
}

// Set overwrites a property value.
func (ts *ToolStates) Set(tool, prop string, v float64) {
	if ts.values[tool] == nil {
		ts.values[tool] = make(map[string]float64)
	}
	ts.values[tool][prop] = v
}

// Dynamic returns the dynamic property definition, if prop is dynamic for tool.
func (ts *ToolStates) Dynamic(tool, prop string) (plant.DynamicProperty, bool) {
	t, ok := ts.tools[tool]
	if !ok {
		return plant.DynamicProperty{}, false
	}
	d, ok := t.Dynamic[prop]
	return d, ok
}

// Apply advances every dynamic property of tool named in effects by v + a*v^b + c.
func (ts *ToolStates) Apply(tool string, effects map[string]plant.Effect) {
	props := make([]string, 0, len(effects))
	for p := range effects {
		props = append(props, p)
	}
	sort.Strings(props)
	for _, prop := range props {
		if _, dyn := ts.Dynamic(tool, prop); !dyn {
			continue
		}
		v, _ := ts.Value(tool, prop)
		ts.Set(tool, prop, effectOf(effects[prop], v))
	}
}

// effectOf evaluates v + a*v^b + c. Undefined powers (0 to a negative exponent) contribute nothing.
func effectOf(e plant.Effect, v float64) float64 {
	term := e.A * math.Pow(v, e.B)
	if math.IsNaN(term) || math.IsInf(term, 0) {
		term = 0
	}
	return v + term + e.C
}
