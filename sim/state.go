package sim

import (
	"fmt"
	"sort"

	"github.com/institute-of-production-systems/shopsim/sim/capacity"
	"github.com/institute-of-production-systems/shopsim/sim/plant"
)

// Buffer is a physical store: a workstation input or output buffer, or an inventory. Inventories
// declared identical to a workstation buffer share the same *Buffer.
type Buffer struct {
	Label        string
	Sizes        capacity.Table
	DiffCompComb bool
	Sequence     string
	Stock        *capacity.Stock
	reserved     map[string]int
}

func newBuffer(label string, sizes capacity.Table, diff bool, sequence string, initial map[string]int) *Buffer {
	return &Buffer{
		Label:        label,
		Sizes:        sizes,
		DiffCompComb: diff,
		Sequence:     sequence,
		Stock:        capacity.NewStock(initial),
		reserved:     make(map[string]int),
	}
}

func (b *Buffer) options(ignoreStep bool) capacity.Options {
	return capacity.Options{DiffCompComb: b.DiffCompComb, IgnoreStep: ignoreStep}
}

// Accepts reports whether qty of component fits on top of the current contents.
func (b *Buffer) Accepts(component string, qty int) bool {
	return capacity.Accepts(b.Sizes, b.Stock, component, qty, b.options(false))
}

// Holds reports whether the buffer could ever store qty of component.
func (b *Buffer) Holds(component string, qty int) bool {
	if b.Sizes.Unlimited() {
		return true
	}
	max, ok := b.Sizes.MaxFor(component)
	return ok && (max < 0 || qty <= max)
}

// AcceptsAll reports whether every component of load fits at once.
func (b *Buffer) AcceptsAll(load map[string]int) bool {
	trial := b.Stock.Clone()
	for _, c := range sortedKeys(load) {
		if !capacity.Accepts(b.Sizes, trial, c, load[c], b.options(false)) {
			return false
		}
		trial.Add(c, load[c])
	}
	return true
}

// Fill returns the relative fill level.
func (b *Buffer) Fill() float64 {
	return capacity.FillLevel(b.Sizes, b.Stock)
}

// Free returns the unreserved quantity of component.
func (b *Buffer) Free(component string) int {
	return b.Stock.Quantity(component) - b.reserved[component]
}

// CanSupply reports whether qty of component can be promised: enough unreserved stock, and qty is a
// whole number of the matched pattern's steps.
func (b *Buffer) CanSupply(component string, qty int) bool {
	if b.Free(component) < qty {
		return false
	}
	if i, ok := b.Sizes.Match(component); ok {
		return qty%b.Sizes[i].EffectiveStep() == 0
	}
	return true
}

// Reserve promises qty of component to a pending delivery.
func (b *Buffer) Reserve(component string, qty int) {
	b.reserved[component] += qty
}

// Unreserve releases up to qty of a promise.
func (b *Buffer) Unreserve(component string, qty int) {
	r := b.reserved[component] - qty
	if r <= 0 {
		delete(b.reserved, component)
		return
	}
	b.reserved[component] = r
}

// Take removes qty of component and drops the same amount of reservation.
func (b *Buffer) Take(component string, qty int) {
	if !b.Stock.Remove(component, qty) {
		panic(fmt.Sprintf("buffer %s: cannot take %d of %q from %s", b.Label, qty, component, b.Stock))
	}
	b.Unreserve(component, qty)
}

// WorkstationState is the mutable state of one workstation.
type WorkstationState struct {
	ID      string
	Def     *plant.Workstation
	Machine *plant.Machine // nil for a manual workstation
	Status  WorkstationStatus

	InputOps []OpRef // ASSIGNED and COMMITTED, in queue order
	WIPOps   []OpRef // PROCESSING
	Inputs   []*Buffer
	Outputs  []*Buffer
	WIP      *capacity.Stock

	Worker      string
	SeizedTools []string
	ToolsInUse  []string

	BusyTime  int64
	SetupTime int64

	directTo       []string // per output buffer, the workstation it delivers to directly
	staged         map[OpRef]bool
	credit         map[string]int
	caps           map[string]bool
	tools          map[string]bool
	workerIncoming string
	releasing      []string
	setupUntil     int64
	downUntil      int64
}

// Automated reports whether the workstation runs without any worker.
func (w *WorkstationState) Automated() bool {
	return len(w.Def.AllowedWorkerPools) == 0 && w.Def.PermanentWorker == ""
}

// Batch reports whether the workstation bundles operations.
func (w *WorkstationState) Batch() bool {
	return w.Machine != nil && w.Machine.Batch
}

// Flags lists the status flags, reporting EMPTY or IDLE when nothing else holds.
func (w *WorkstationState) Flags() []string {
	if w.Status != 0 {
		return w.Status.Names()
	}
	if len(w.InputOps) == 0 && len(w.WIPOps) == 0 {
		return []string{"EMPTY"}
	}
	return []string{"IDLE"}
}

func (w *WorkstationState) permanentTool(t string) bool {
	return contains(w.Def.PermanentTools, t)
}

// InventoryState is a source, sink or storage inventory.
type InventoryState struct {
	ID     string
	Kind   string
	Buffer *Buffer
	// SharedWith is the workstation whose buffer this inventory shares, if any.
	SharedWith string
}

// TransportState is the mutable state of one transport machine.
type TransportState struct {
	ID      string
	Machine *plant.Machine
	Status  TransportStatus

	Orders       []*transportItem
	Payload      *capacity.Stock
	Location     string
	Destination  string
	DepartedFrom string
	Source       string
	Worker       string

	MovingTime        int64
	HandlingTime      int64
	RemainingDistance float64

	unloadPending  bool
	workerIncoming string
}

type transportItem struct {
	Component   string
	Quantity    int
	Source      string
	Destination string
	Committed   bool
	EnRoute     bool
}

// NeedsDriver reports whether the machine must be operated by a worker.
func (t *TransportState) NeedsDriver() bool {
	return len(t.Machine.AcceptedCapabilities) > 0
}

// Accepts reports whether the machine can carry qty of component on top of contents.
func (t *TransportState) accepts(contents *capacity.Stock, component string, qty int) bool {
	if !t.Machine.Batch {
		return true
	}
	return capacity.Accepts(t.Machine.BatchSizes, contents, component, qty, capacity.Options{DiffCompComb: t.Machine.DiffCompBatch})
}

// position is where distances of the machine are measured from: its destination while moving.
func (t *TransportState) position() string {
	if t.Status.Any(TransportMovingToSource|TransportExecuting) && t.Destination != "" {
		return t.Destination
	}
	return t.Location
}

func (t *TransportState) busy() bool {
	if t.Status.Any(TransportMovingToSource | TransportLoading | TransportReady | TransportExecuting | TransportUnloading | TransportWaitingForWorker) {
		return true
	}
	for _, o := range t.Orders {
		if o.Committed {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	out := list[:0:0]
	for _, x := range list {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
