package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/institute-of-production-systems/shopsim/sim/capacity"
	"github.com/institute-of-production-systems/shopsim/sim/plant"
)

// handleMaterialsRequest serves a request for one component at a workstation: raw materials come
// from a source inventory, intermediate products from pending pickups or direct deliveries.
func (s *Simulator) handleMaterialsRequest(ev *MaterialsRequest) error {
	if s.raw[ev.Component] {
		return s.requestRaw(ev)
	}
	return s.requestInternal(ev)
}

func (s *Simulator) requestRaw(ev *MaterialsRequest) error {
	ws := s.wsByID[ev.Workstation]
	inv := s.sourceInventory(ws.ID, ev.Component, ev.Quantity)
	if inv == nil {
		return fmt.Errorf("%w for %d x %q requested by %s", ErrNoSourceInventory, ev.Quantity, ev.Component, ws.ID)
	}
	behaviour := s.supplyBehaviour(ev.Component)
	if behaviour != nil && behaviour.AllocationOrDefault() == plant.AllocationOrderSpecific {
		return fmt.Errorf("%w: %s supply of %q", ErrNotSupported, plant.AllocationOrderSpecific, ev.Component)
	}
	lot := inv.lot(ev.Component, ev.Quantity)
	if n, ok := inv.promise(ws.ID, ev.Component, ev.Quantity); ok {
		inv.Buffer.Reserve(ev.Component, n)
		s.queue.Remove(ev)
		if inv.SharedWith == ws.ID {
			logrus.Debugf("t=%d %d x %q for %s already in shared buffer %s", s.clock, n, ev.Component, ws.ID, inv.ID)
			return s.workOn(ws, true)
		}
		s.queue.Enqueue(&TransportOrder{
			eventBase:   stamp(s.clock),
			Components:  map[string]int{ev.Component: n},
			Source:      inv.ID,
			Destination: ws.ID,
		})
		return nil
	}
	for _, e := range s.queue.Items() {
		if a, ok := e.(*RawMaterialArrival); ok && a.Inventory == inv.ID && a.Components[ev.Component] > 0 {
			ev.Waiting = true
			return nil
		}
	}

	lead := int64(0)
	if behaviour != nil {
		lead = s.leadTime(behaviour)
	}
	arrival := &RawMaterialArrival{eventBase: stamp(s.clock + lead), Inventory: inv.ID, Components: map[string]int{ev.Component: lot}}
	if lead == 0 {
		s.queue.PrependFront(arrival)
	} else {
		s.queue.Enqueue(arrival)
	}
	s.queue.Remove(ev)
	ev.setTimestamp(s.clock + lead)
	s.queue.Enqueue(ev)
	logrus.Debugf("t=%d ordered %d x %q into %s, lead time %d s", s.clock, lot, ev.Component, inv.ID, lead)
	return nil
}

// sourceInventory returns the first SOURCE inventory able to hold qty of component, preferring one
// that can supply it right away.
func (s *Simulator) sourceInventory(consumer, component string, qty int) *InventoryState {
	var fallback *InventoryState
	for _, inv := range s.inventories {
		if inv.Kind != plant.InventorySource || !inv.Buffer.Holds(component, qty) {
			continue
		}
		if _, ok := inv.promise(consumer, component, qty); ok {
			return inv
		}
		if fallback == nil {
			fallback = inv
		}
	}
	return fallback
}

// promise returns how much of component inv must reserve to serve qty to consumer, and whether it
// can. A workstation sharing inv consumes in place and reserves exactly qty; deliveries leave in
// whole lots, so the surplus travels with them.
func (inv *InventoryState) promise(consumer, component string, qty int) (int, bool) {
	if inv.SharedWith == consumer {
		return qty, inv.Buffer.Free(component) >= qty
	}
	lot := inv.lot(component, qty)
	return lot, inv.Buffer.CanSupply(component, lot)
}

// lot rounds qty up to a whole number of the matched quantity step.
func (inv *InventoryState) lot(component string, qty int) int {
	i, ok := inv.Buffer.Sizes.Match(component)
	if !ok {
		return qty
	}
	step := inv.Buffer.Sizes[i].EffectiveStep()
	return (qty + step - 1) / step * step
}

func (s *Simulator) supplyBehaviour(component string) *plant.SupplyBehaviour {
	for i := range s.plant.Supply {
		if capacity.Matches(s.plant.Supply[i].Component, component) {
			return &s.plant.Supply[i]
		}
	}
	return nil
}

// leadTime draws how long a raw material takes to arrive: nothing with the immediate probability,
// Min + Gamma(Alpha, Beta) time units otherwise.
func (s *Simulator) leadTime(b *plant.SupplyBehaviour) int64 {
	rng := s.rng.ForSubsystem(SubsystemSupply)
	if rng.Float64() <= b.ImmediateProbability {
		return 0
	}
	value := b.Min
	if b.Alpha > 0 && b.Beta > 0 {
		value += gammaRand(rng, b.Alpha, b.Beta)
	}
	unit := b.TimeUnit
	if unit == "" {
		unit = "s"
	}
	secs, err := plant.Seconds(value, unit)
	if err != nil {
		logrus.Warnf("supply of %q: %v", b.Component, err)
		return 0
	}
	return secs
}

// gammaRand samples from Gamma(shape, scale) using Marsaglia-Tsang's method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// requestInternal serves an intermediate product from direct-delivery credit first, then from
// pickups in queue order.
func (s *Simulator) requestInternal(ev *MaterialsRequest) error {
	ws := s.wsByID[ev.Workstation]
	if credit := ws.credit[ev.Component]; credit > 0 {
		n := min(credit, ev.Quantity)
		ws.credit[ev.Component] -= n
		ev.Quantity -= n
	}
	for _, e := range s.queue.Items() {
		if ev.Quantity == 0 {
			break
		}
		p, ok := e.(*PickupRequest)
		if !ok || p.Component != ev.Component || p.Quantity == 0 {
			continue
		}
		n := min(p.Quantity, ev.Quantity)
		p.Quantity -= n
		ev.Quantity -= n
		s.queue.PrependFront(&TransportOrder{
			eventBase:   stamp(s.clock),
			Components:  map[string]int{ev.Component: n},
			Source:      p.Workstation,
			Destination: ws.ID,
		})
	}
	if ev.Quantity == 0 {
		s.queue.Remove(ev)
		return nil
	}
	ev.Waiting = true
	return nil
}

// wakeRequests reactivates waiting materials requests for any of components.
func (s *Simulator) wakeRequests(components map[string]int, workstation string) {
	for _, e := range s.queue.Items() {
		r, ok := e.(*MaterialsRequest)
		if !ok || !r.Waiting || components[r.Component] == 0 {
			continue
		}
		if workstation != "" && r.Workstation != workstation {
			continue
		}
		r.Waiting = false
		r.setTimestamp(s.clock)
	}
}

// handleRawMaterialArrival stores supplied material, or waits for space.
func (s *Simulator) handleRawMaterialArrival(ev *RawMaterialArrival) error {
	inv := s.invByID[ev.Inventory]
	if !inv.Buffer.AcceptsAll(ev.Components) {
		ev.Overflow = true
		logrus.Debugf("t=%d raw material %v overflows %s", s.clock, ev.Components, inv.ID)
		return nil
	}
	for _, c := range sortedKeys(ev.Components) {
		inv.Buffer.Stock.Add(c, ev.Components[c])
	}
	s.queue.Remove(ev)
	s.wakeRequests(ev.Components, "")
	if ws, ok := s.wsByID[inv.SharedWith]; ok {
		s.settleShared(inv, ev.Components)
		return s.workOn(ws, true)
	}
	return nil
}

// settleShared reserves supplied material for the requests of the workstation sharing inv before the
// workstation stages it. Settled requests drop to zero and are purged after the event.
func (s *Simulator) settleShared(inv *InventoryState, supplied map[string]int) {
	for _, e := range s.queue.Items() {
		r, ok := e.(*MaterialsRequest)
		if !ok || r.Workstation != inv.SharedWith || supplied[r.Component] == 0 || r.Quantity <= 0 {
			continue
		}
		if n, ok := inv.promise(r.Workstation, r.Component, r.Quantity); ok {
			inv.Buffer.Reserve(r.Component, n)
			r.Quantity = 0
		}
	}
}

// outputReady makes finished output at ws available downstream: final products travel to a sink,
// everything else waits for a materials request.
func (s *Simulator) outputReady(ws *WorkstationState, component string, qty int) {
	if _, final := s.plant.Product(component); final {
		for _, inv := range s.inventories {
			if inv.Kind == plant.InventorySink && inv.Buffer.Holds(component, qty) {
				s.queue.Enqueue(&TransportOrder{
					eventBase:   stamp(s.clock),
					Components:  map[string]int{component: qty},
					Source:      ws.ID,
					Destination: inv.ID,
				})
				return
			}
		}
	}
	s.queue.Enqueue(&PickupRequest{eventBase: stamp(s.clock), Workstation: ws.ID, Component: component, Quantity: qty})
	s.wakeRequests(map[string]int{component: qty}, "")
}
