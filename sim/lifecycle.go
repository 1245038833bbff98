package sim

import (
	"fmt"
	"sort"

	"github.com/institute-of-production-systems/shopsim/sim/plant"
)

// OpStatus is the lifecycle state of one operation instance.
type OpStatus int

const (
	OpInBacklog OpStatus = iota + 1
	OpAssigned
	OpCommitted
	OpProcessing
	OpDone
	OpFailed
)

func (s OpStatus) String() string {
	switch s {
	case OpInBacklog:
		return "IN_BACKLOG"
	case OpAssigned:
		return "ASSIGNED"
	case OpCommitted:
		return "COMMITTED"
	case OpProcessing:
		return "PROCESSING"
	case OpDone:
		return "DONE"
	case OpFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("OpStatus(%d)", int(s))
	}
}

// opTransitions is the complete set of legal lifecycle moves.
var opTransitions = map[OpStatus][]OpStatus{
	OpInBacklog:  {OpAssigned},
	OpAssigned:   {OpCommitted},
	OpCommitted:  {OpProcessing},
	OpProcessing: {OpDone, OpFailed},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to OpStatus) bool {
	for _, s := range opTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition reports an illegal lifecycle move.
type ErrInvalidTransition struct {
	Op   OpRef
	From OpStatus
	To   OpStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("operation %s: invalid transition %s -> %s", e.Op, e.From, e.To)
}

// OpRef identifies one operation instance: operation, product, order and the 0-based instance of the
// product within the order.
type OpRef struct {
	Operation string
	Product   string
	Order     string
	Instance  int
}

func (r OpRef) String() string {
	return fmt.Sprintf("%s | %s | %s #%d", r.Operation, r.Product, r.Order, r.Instance)
}

// Triple returns the instance-independent label used as an action-matrix row.
func (r OpRef) Triple() string {
	return r.Operation + " | " + r.Product + " | " + r.Order
}

// OperationProgress is the mutable record of one operation instance.
type OperationProgress struct {
	Ref           OpRef
	Predecessors  []string
	Status        OpStatus
	Location      string
	RemainingWork int64
	StartTime     int64
	FinishTime    int64
}

type productInstance struct {
	product *plant.Product
	ops     map[string]*OperationProgress
	order   []string
}

// ProgressTracker holds the progress record of every operation instance of every order.
type ProgressTracker struct {
	plant     *plant.Plant
	instances map[string][]*productInstance // order id -> instances in product-declaration order
	all       []*OperationProgress
}

// NewProgressTracker creates IN_BACKLOG records for every order of p. Quantities expand into
// instances; products iterate in sorted id order within an order.
func NewProgressTracker(p *plant.Plant) (*ProgressTracker, error) {
	t := &ProgressTracker{plant: p, instances: make(map[string][]*productInstance)}
	for _, o := range p.Orders {
		instance := 0
		for _, prodID := range sortedKeys(o.Products) {
			prod, ok := p.Product(prodID)
			if !ok {
				return nil, fmt.Errorf("order %q: unknown product %q", o.ID, prodID)
			}
			order, err := prod.TopologicalOrder()
			if err != nil {
				return nil, err
			}
			for q := 0; q < o.Products[prodID]; q++ {
				pi := &productInstance{product: prod, ops: make(map[string]*OperationProgress), order: order}
				for _, opID := range order {
					op, _ := prod.Operation(opID)
					secs, err := op.Processing.Seconds()
					if err != nil {
						return nil, fmt.Errorf("product %q operation %q: %w", prod.ID, opID, err)
					}
					rec := &OperationProgress{
						Ref:           OpRef{Operation: opID, Product: prodID, Order: o.ID, Instance: instance},
						Predecessors:  prod.Predecessors(opID),
						Status:        OpInBacklog,
						RemainingWork: secs,
					}
					pi.ops[opID] = rec
					t.all = append(t.all, rec)
				}
				t.instances[o.ID] = append(t.instances[o.ID], pi)
				instance++
			}
		}
	}
	return t, nil
}

// Get returns the record of ref.
func (t *ProgressTracker) Get(ref OpRef) (*OperationProgress, bool) {
	pi := t.instance(ref)
	if pi == nil {
		return nil, false
	}
	rec, ok := pi.ops[ref.Operation]
	return rec, ok
}

// MustGet returns the record of ref and panics if it does not exist.
func (t *ProgressTracker) MustGet(ref OpRef) *OperationProgress {
	rec, ok := t.Get(ref)
	if !ok {
		panic(fmt.Sprintf("no progress record for %s", ref))
	}
	return rec
}

// Transition moves ref to status to, or returns *ErrInvalidTransition.
func (t *ProgressTracker) Transition(ref OpRef, to OpStatus) error {
	rec := t.MustGet(ref)
	if !CanTransition(rec.Status, to) {
		return &ErrInvalidTransition{Op: ref, From: rec.Status, To: to}
	}
	rec.Status = to
	return nil
}

// All returns every record in creation order.
func (t *ProgressTracker) All() []*OperationProgress { return t.all }

// Ready returns the IN_BACKLOG operations of an order whose predecessors are all DONE.
func (t *ProgressTracker) Ready(orderID string) []OpRef {
	var out []OpRef
	for _, pi := range t.instances[orderID] {
		for _, opID := range pi.order {
			rec := pi.ops[opID]
			if rec.Status == OpInBacklog && t.predecessorsDone(pi, rec) {
				out = append(out, rec.Ref)
			}
		}
	}
	return out
}

// ReadySuccessors returns the IN_BACKLOG successors of ref whose predecessors are all DONE.
func (t *ProgressTracker) ReadySuccessors(ref OpRef) []OpRef {
	pi := t.instance(ref)
	if pi == nil {
		return nil
	}
	var out []OpRef
	for _, s := range pi.product.Successors(ref.Operation) {
		rec := pi.ops[s]
		if rec.Status == OpInBacklog && t.predecessorsDone(pi, rec) {
			out = append(out, rec.Ref)
		}
	}
	return out
}

// RemainingOps counts the operations of ref's product instance that are not DONE.
func (t *ProgressTracker) RemainingOps(ref OpRef) int {
	pi := t.instance(ref)
	if pi == nil {
		return 0
	}
	n := 0
	for _, rec := range pi.ops {
		if rec.Status != OpDone {
			n++
		}
	}
	return n
}

// OrderDone reports whether every operation of the order is DONE, and when the last one finished.
func (t *ProgressTracker) OrderDone(orderID string) (bool, int64) {
	var last int64
	for _, pi := range t.instances[orderID] {
		for _, rec := range pi.ops {
			if rec.Status != OpDone {
				return false, 0
			}
			if rec.FinishTime > last {
				last = rec.FinishTime
			}
		}
	}
	return true, last
}

// HasBacklog reports whether an order still has IN_BACKLOG operations.
func (t *ProgressTracker) HasBacklog(orderID string) bool {
	for _, pi := range t.instances[orderID] {
		for _, rec := range pi.ops {
			if rec.Status == OpInBacklog {
				return true
			}
		}
	}
	return false
}

// Triples returns the distinct "op | product | order" labels in order/product/operation order.
func (t *ProgressTracker) Triples() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range t.all {
		tr := rec.Ref.Triple()
		if !seen[tr] {
			seen[tr] = true
			out = append(out, tr)
		}
	}
	return out
}

func (t *ProgressTracker) instance(ref OpRef) *productInstance {
	list := t.instances[ref.Order]
	if ref.Instance < 0 || ref.Instance >= len(list) {
		return nil
	}
	pi := list[ref.Instance]
	if pi.product.ID != ref.Product {
		return nil
	}
	return pi
}

func (t *ProgressTracker) predecessorsDone(pi *productInstance, rec *OperationProgress) bool {
	for _, p := range rec.Predecessors {
		if pi.ops[p].Status != OpDone {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
