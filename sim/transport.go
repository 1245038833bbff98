package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/institute-of-production-systems/shopsim/sim/capacity"
	"github.com/institute-of-production-systems/shopsim/sim/dispatch"
	"github.com/institute-of-production-systems/shopsim/sim/plant"
)

// Transport machines run IDLE -> MOVING_TO_SOURCE -> LOADING -> READY -> EXECUTING_TRANSPORT ->
// UNLOADING -> IDLE. WAITING_FOR_WORKER is set on top while a required driver is missing. A machine
// that cannot unload parks as UNLOADING|IDLE until its destination frees space.

// distance is the travel distance in meters. Machines on the shop floor have not arrived anywhere
// yet and reach every location at no cost.
func (s *Simulator) distance(from, to string) float64 {
	if from == plant.Shopfloor {
		return 0
	}
	return s.distances.Lookup(from, to)
}

func (s *Simulator) handleTransportOrder(ev *TransportOrder) error {
	s.queue.Remove(ev)
	var eligible []string
	empty := capacity.NewStock(nil)
	for _, tm := range s.transports {
		ok := true
		for c, q := range ev.Components {
			ok = ok && tm.accepts(empty, c, q)
		}
		if ok {
			eligible = append(eligible, tm.ID)
		}
	}
	if len(eligible) == 0 {
		return fmt.Errorf("%w for %v from %s to %s", ErrNoEligibleTransport, ev.Components, ev.Source, ev.Destination)
	}
	return s.decide(&Decision{
		Category:   dispatch.TransportRouting,
		Subject:    ev.Source,
		Candidates: eligible,
		delivery:   ev,
	})
}

// assignTransport appends the delivery to tm's orders and sequences tm if it is free.
func (s *Simulator) assignTransport(tm *TransportState, order *TransportOrder) error {
	for _, c := range sortedKeys(order.Components) {
		tm.Orders = append(tm.Orders, &transportItem{
			Component:   c,
			Quantity:    order.Components[c],
			Source:      order.Source,
			Destination: order.Destination,
		})
	}
	logrus.Debugf("t=%d %s takes %v from %s to %s", s.clock, tm.ID, order.Components, order.Source, order.Destination)
	if s.removeTransportMarker(tm) {
		return s.sequenceTransport(tm, true)
	}
	if !tm.busy() {
		return s.sequenceTransport(tm, false)
	}
	s.ensureTransportMarker(tm)
	return nil
}

func (s *Simulator) transportMarker(tm *TransportState) *TransportSequencingPostponed {
	for _, e := range s.queue.Items() {
		if m, ok := e.(*TransportSequencingPostponed); ok && m.Transport == tm.ID {
			return m
		}
	}
	return nil
}

func (s *Simulator) ensureTransportMarker(tm *TransportState) {
	if s.transportMarker(tm) == nil {
		s.queue.Enqueue(&TransportSequencingPostponed{eventBase: stamp(s.clock), Transport: tm.ID})
	}
}

func (s *Simulator) removeTransportMarker(tm *TransportState) bool {
	if m := s.transportMarker(tm); m != nil {
		return s.queue.Remove(m)
	}
	return false
}

// sequenceTransport chooses the pickup location tm serves next.
func (s *Simulator) sequenceTransport(tm *TransportState, postponed bool) error {
	s.removeTransportMarker(tm)
	var sources []string
	for _, o := range tm.Orders {
		if !o.Committed && !contains(sources, o.Source) {
			sources = append(sources, o.Source)
		}
	}
	if len(sources) == 0 {
		return nil
	}
	if tm.busy() {
		s.ensureTransportMarker(tm)
		return nil
	}
	return s.decide(&Decision{
		Category:    dispatch.TransportSequencing,
		Subject:     tm.ID,
		Candidates:  sources,
		SkipAllowed: len(sources) >= 2 && !postponed,
	})
}

func (s *Simulator) startDelivery(tm *TransportState, source string) error {
	tm.Source = source
	return s.execute(tm)
}

func (s *Simulator) driverAboard(tm *TransportState) bool {
	w, ok := s.workerByID[tm.Worker]
	return ok && w.Location == tm.ID && w.Status != WorkerWalking
}

// execute moves tm to the next step of its current delivery.
func (s *Simulator) execute(tm *TransportState) error {
	if tm.NeedsDriver() && !s.driverAboard(tm) {
		tm.Status.Set(TransportWaitingForWorker)
		if tm.workerIncoming == "" {
			s.ensureWorkerRequest(tm.ID, true, tm.Machine.AcceptedCapabilities)
		}
		return nil
	}
	tm.Status.Clear(TransportWaitingForWorker)
	switch {
	case tm.Status.Any(TransportMovingToSource | TransportExecuting | TransportLoading):
		return nil
	case tm.Status.Has(TransportUnloading):
		s.unload(tm)
		return nil
	case tm.Status.Has(TransportReady):
		s.depart(tm)
		return nil
	case tm.Source == "":
		return nil
	case tm.Location != tm.Source:
		s.moveTo(tm, tm.Source, TransportMovingToSource)
		return nil
	default:
		return s.load(tm)
	}
}

func (s *Simulator) moveTo(tm *TransportState, to string, flag TransportFlag) {
	dist := s.distance(tm.Location, to)
	tm.Status.Set(flag)
	tm.DepartedFrom = tm.Location
	tm.Destination = to
	tm.RemainingDistance = dist
	s.queue.Enqueue(&TransportArrival{eventBase: stamp(s.clock + travelTime(dist, tm.Machine.Speed)), Transport: tm.ID, Location: to})
	logrus.Debugf("t=%d %s moving %s -> %s (%.1f m)", s.clock, tm.ID, tm.DepartedFrom, to, dist)
}

func travelTime(meters, speed float64) int64 {
	if speed <= 0 || meters <= 0 {
		return 0
	}
	return int64(math.Ceil(meters/speed - 1e-9))
}

// handlingSeconds is the time to load or unload one bundle.
func (s *Simulator) handlingSeconds(tm *TransportState) int64 {
	return s.matrixSeconds(tm.Machine, plant.NoTool, plant.NoTool)
}

// load bundles every uncommitted order that shares the source, component and destination of the
// first one, as far as the machine's capacity allows.
func (s *Simulator) load(tm *TransportState) error {
	var first *transportItem
	for _, o := range tm.Orders {
		if !o.Committed && o.Source == tm.Location {
			first = o
			break
		}
	}
	if first == nil {
		tm.Source = ""
		return s.sequenceTransport(tm, s.removeTransportMarker(tm))
	}
	contents := capacity.NewStock(nil)
	for _, o := range tm.Orders {
		if o.Committed || o.Source != first.Source || o.Component != first.Component || o.Destination != first.Destination {
			continue
		}
		if o != first && !tm.accepts(contents, o.Component, o.Quantity) {
			continue
		}
		o.Committed = true
		contents.Add(o.Component, o.Quantity)
	}
	qty := contents.Quantity(first.Component)
	tm.Status.Set(TransportLoading)
	s.queue.Enqueue(&LoadingFinished{
		eventBase: stamp(s.clock + s.handlingSeconds(tm)),
		Transport: tm.ID,
		Location:  tm.Location,
		Component: first.Component,
		Quantity:  qty,
	})
	return nil
}

func (s *Simulator) handleLoadingFinished(ev *LoadingFinished) error {
	s.queue.Remove(ev)
	tm := s.trByID[ev.Transport]
	tm.Status.Clear(TransportLoading)
	tm.Status.Set(TransportReady)
	tm.Payload.Add(ev.Component, ev.Quantity)
	if ws, ok := s.wsByID[ev.Location]; ok {
		if err := takeOutput(ws, ev.Component, ev.Quantity); err != nil {
			return err
		}
		s.queue.Enqueue(&WorkstationPickup{eventBase: stamp(s.clock), Workstation: ws.ID})
	} else if inv, ok := s.invByID[ev.Location]; ok {
		inv.Buffer.Take(ev.Component, ev.Quantity)
		if ws, shared := s.wsByID[inv.SharedWith]; shared {
			s.spaceFreed(ws)
		} else {
			s.inventoryFreed(inv)
		}
	}
	return s.execute(tm)
}

// takeOutput removes picked-up components from the output buffers of ws that are not direct links.
func takeOutput(ws *WorkstationState, component string, qty int) error {
	left := qty
	for i, b := range ws.Outputs {
		if ws.directTo[i] != "" || left == 0 {
			continue
		}
		n := min(b.Stock.Quantity(component), left)
		if n > 0 {
			b.Take(component, n)
			left -= n
		}
	}
	if left > 0 {
		return fmt.Errorf("%w: %s holds %d too few of %q for pickup", ErrOutputInvariant, ws.ID, left, component)
	}
	return nil
}

// inventoryFreed wakes the first raw-material arrival waiting for room in inv and retries unloading.
func (s *Simulator) inventoryFreed(inv *InventoryState) {
	for _, e := range s.queue.Items() {
		if a, ok := e.(*RawMaterialArrival); ok && a.Inventory == inv.ID && a.Overflow {
			a.Overflow = false
			a.setTimestamp(s.clock)
			break
		}
	}
	s.retryUnloading(inv.ID)
}

// depart carries the committed bundle to its destination.
func (s *Simulator) depart(tm *TransportState) {
	dest := ""
	for _, o := range tm.Orders {
		if o.Committed && !o.EnRoute {
			o.EnRoute = true
			dest = o.Destination
		}
	}
	tm.Status.Clear(TransportReady)
	s.moveTo(tm, dest, TransportExecuting)
}

func (s *Simulator) handleTransportArrival(ev *TransportArrival) error {
	s.queue.Remove(ev)
	tm := s.trByID[ev.Transport]
	tm.Location = ev.Location
	tm.Destination = ""
	tm.RemainingDistance = 0
	switch {
	case tm.Status.Has(TransportMovingToSource):
		tm.Status.Clear(TransportMovingToSource)
	case tm.Status.Has(TransportExecuting):
		tm.Status.Clear(TransportExecuting)
		tm.Status.Set(TransportUnloading)
	}
	return s.execute(tm)
}

func (s *Simulator) deliveryHere(tm *TransportState) *transportItem {
	for _, o := range tm.Orders {
		if o.EnRoute && o.Destination == tm.Location {
			return o
		}
	}
	return nil
}

// unload hands the next bundle item to the current location, or parks tm until there is room.
func (s *Simulator) unload(tm *TransportState) {
	if tm.unloadPending {
		return
	}
	item := s.deliveryHere(tm)
	if item == nil {
		tm.Status.Clear(TransportUnloading | TransportIdle)
		return
	}
	if !s.canReceive(tm.Location, item.Component, item.Quantity) {
		tm.Status.Set(TransportIdle)
		logrus.Debugf("t=%d %s waits to unload %d x %q at %s", s.clock, tm.ID, item.Quantity, item.Component, tm.Location)
		return
	}
	tm.Status.Clear(TransportIdle)
	tm.unloadPending = true
	s.queue.Enqueue(&UnloadingFinished{
		eventBase: stamp(s.clock + s.handlingSeconds(tm)),
		Transport: tm.ID,
		Location:  tm.Location,
		Component: item.Component,
		Quantity:  item.Quantity,
	})
}

func (s *Simulator) canReceive(loc, component string, qty int) bool {
	if ws, ok := s.wsByID[loc]; ok {
		_, fits := planInputs(ws, map[string]int{component: qty})
		return fits
	}
	if inv, ok := s.invByID[loc]; ok {
		return inv.Buffer.Accepts(component, qty)
	}
	return false
}

func (s *Simulator) handleUnloadingFinished(ev *UnloadingFinished) error {
	s.queue.Remove(ev)
	tm := s.trByID[ev.Transport]
	tm.unloadPending = false
	if ws, ok := s.wsByID[ev.Location]; ok {
		s.queue.PrependFront(&MaterialsArrival{
			eventBase:   stamp(s.clock),
			Workstation: ws.ID,
			Components:  map[string]int{ev.Component: ev.Quantity},
		})
	} else if inv, ok := s.invByID[ev.Location]; ok {
		if !inv.Buffer.Accepts(ev.Component, ev.Quantity) {
			return fmt.Errorf("%w: %s rejects %d x %q", ErrOutputInvariant, inv.ID, ev.Quantity, ev.Component)
		}
		inv.Buffer.Stock.Add(ev.Component, ev.Quantity)
	}
	if !tm.Payload.Remove(ev.Component, ev.Quantity) {
		panic(fmt.Sprintf("%s: payload %s lacks %d x %q", tm.ID, tm.Payload, ev.Quantity, ev.Component))
	}
	for i, o := range tm.Orders {
		if o.EnRoute && o.Destination == ev.Location && o.Component == ev.Component && o.Quantity == ev.Quantity {
			tm.Orders = append(tm.Orders[:i], tm.Orders[i+1:]...)
			break
		}
	}
	tm.Status.Clear(TransportIdle)
	if s.deliveryHere(tm) != nil {
		s.unload(tm)
		return nil
	}
	tm.Status.Clear(TransportUnloading)
	tm.Source = ""
	logrus.Debugf("t=%d %s delivered at %s", s.clock, tm.ID, ev.Location)
	if len(tm.Orders) > 0 {
		return s.sequenceTransport(tm, s.removeTransportMarker(tm))
	}
	if tm.Worker != "" {
		s.queue.Enqueue(&WorkerRelease{eventBase: stamp(s.clock), Transport: tm.ID, Worker: tm.Worker})
	}
	return nil
}

// retryUnloading resumes machines parked at loc.
func (s *Simulator) retryUnloading(loc string) {
	for _, tm := range s.transports {
		if tm.Location == loc && tm.Status.Has(TransportUnloading|TransportIdle) && !tm.unloadPending {
			s.unload(tm)
		}
	}
}
