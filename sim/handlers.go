package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/institute-of-production-systems/shopsim/sim/capacity"
)

// handle dispatches one selected event. Handlers return early, with the event still queued, when
// they leave a decision pending; the event is handled again after the decision is resolved.
func (s *Simulator) handle(ev Event) error {
	switch e := ev.(type) {
	case *OrderRelease:
		return s.handleOrderRelease(e)
	case *OperationFinished:
		return s.handleOperationFinished(e)
	case *SetupFinished:
		return s.handleSetupFinished(e)
	case *MaintenanceFinished:
		return s.handleDowntimeFinished(e, e.Workstation, WorkstationMaintenance)
	case *RepairFinished:
		return s.handleDowntimeFinished(e, e.Workstation, WorkstationError|WorkstationRepair)
	case *WorkerStationArrival:
		return s.handleWorkerStationArrival(e)
	case *WorkerTransportArrival:
		return s.handleWorkerTransportArrival(e)
	case *ToolArrival:
		return s.handleToolArrival(e)
	case *ToolRelease:
		return s.handleToolRelease(e)
	case *WorkerRelease:
		return s.handleWorkerRelease(e)
	case *MaterialsArrival:
		return s.handleMaterialsArrival(e)
	case *RawMaterialArrival:
		return s.handleRawMaterialArrival(e)
	case *WorkstationPickup:
		s.queue.Remove(e)
		return s.workOn(s.wsByID[e.Workstation], true)
	case *MaterialsRequest:
		return s.handleMaterialsRequest(e)
	case *ToolsRequest:
		return s.handleToolsRequest(e)
	case *WorkerRequest:
		return s.handleWorkerRequest(e)
	case *TransportOrder:
		return s.handleTransportOrder(e)
	case *TransportArrival:
		return s.handleTransportArrival(e)
	case *LoadingFinished:
		return s.handleLoadingFinished(e)
	case *UnloadingFinished:
		return s.handleUnloadingFinished(e)
	default:
		return fmt.Errorf("unexpected %s event selected", ev.Kind())
	}
}

func (s *Simulator) handleOrderRelease(ev *OrderRelease) error {
	for _, ref := range s.progress.Ready(ev.Order) {
		if err := s.push(ref); err != nil {
			return err
		}
		if s.pending != nil {
			return nil
		}
	}
	s.queue.Remove(ev)
	logrus.Debugf("t=%d order %s released", s.clock, ev.Order)
	return nil
}

func (s *Simulator) handleOperationFinished(ev *OperationFinished) error {
	ws := s.wsByID[ev.Workstation]
	if !ev.outputsDone {
		if err := s.finishOutputs(ws, ev.Ops); err != nil {
			return err
		}
		ev.outputsDone = true
	}
	for _, ref := range ev.Ops {
		for _, next := range s.progress.ReadySuccessors(ref) {
			if err := s.push(next); err != nil {
				return err
			}
			if s.pending != nil {
				return nil
			}
		}
	}
	s.queue.Remove(ev)
	s.releaseContendedTools(ws)
	if err := s.workOn(ws, true); err != nil {
		return err
	}
	return s.retrigger(ws)
}

// finishOutputs moves the finished units from WIP into the output buffers and closes the operations.
func (s *Simulator) finishOutputs(ws *WorkstationState, ops []OpRef) error {
	produced := make(map[string]int)
	for _, ref := range ops {
		produced[s.outputOf(ref)]++
	}
	for _, c := range sortedKeys(produced) {
		q := produced[c]
		if !ws.WIP.Remove(c, q) {
			panic(fmt.Sprintf("%s: WIP %s lacks %d finished %q", ws.ID, ws.WIP, q, c))
		}
		if len(ws.Outputs) == 0 {
			logrus.Debugf("t=%d %d x %q left the floor at %s", s.clock, q, c, ws.ID)
			continue
		}
		placed := false
		for i, b := range ws.Outputs {
			if !b.Accepts(c, q) {
				continue
			}
			placed = true
			if target := ws.directTo[i]; target != "" {
				s.queue.PrependFront(&MaterialsArrival{
					eventBase:   stamp(s.clock),
					Workstation: target,
					Components:  map[string]int{c: q},
					Direct:      true,
				})
			} else {
				b.Stock.Add(c, q)
				s.outputReady(ws, c, q)
			}
			break
		}
		if !placed {
			return fmt.Errorf("%w: %d x %q does not fit any output buffer of %s", ErrOutputInvariant, q, c, ws.ID)
		}
	}
	for _, ref := range ops {
		if err := s.progress.Transition(ref, OpDone); err != nil {
			return err
		}
		rec := s.progress.MustGet(ref)
		rec.FinishTime = s.clock
		rec.RemainingWork = 0
		op := s.operation(ref)
		for _, t := range sortedToolIDs(op.Tools) {
			s.tools.Apply(t, op.Tools[t].Effects)
		}
		ws.WIPOps = withoutRef(ws.WIPOps, ref)
		s.completedOps++
		s.metrics.OperationDone()
	}
	if len(ws.WIPOps) == 0 {
		ws.Status.Clear(WorkstationBusy)
		if w := s.workerByID[ws.Worker]; w != nil && w.Status == WorkerBusy {
			w.Status = WorkerIdle
		}
		s.releaseWorker(ws)
	}
	logrus.Debugf("t=%d %s finished %d operation(s)", s.clock, ws.ID, len(ops))
	return nil
}

func (s *Simulator) handleSetupFinished(ev *SetupFinished) error {
	s.queue.Remove(ev)
	ws := s.wsByID[ev.Workstation]
	ws.Status.Clear(WorkstationSetup)
	ws.setupUntil = 0
	if w := s.workerByID[ws.Worker]; w != nil && w.Status == WorkerSettingUp {
		w.Status = WorkerIdle
	}
	if err := s.workOn(ws, true); err != nil {
		return err
	}
	s.releaseWorker(ws)
	return nil
}

func (s *Simulator) handleDowntimeFinished(ev Event, id string, flags WorkstationFlag) error {
	s.queue.Remove(ev)
	ws := s.wsByID[id]
	ws.Status.Clear(flags)
	ws.downUntil = 0
	logrus.Infof("t=%d %s is back up", s.clock, ws.ID)
	if err := s.workOn(ws, true); err != nil {
		return err
	}
	return s.retrigger(ws)
}

// Maintain takes a workstation down for planned maintenance lasting seconds.
func (s *Simulator) Maintain(workstation string, seconds int64) error {
	ws, ok := s.wsByID[workstation]
	if !ok {
		return fmt.Errorf("unknown workstation %q", workstation)
	}
	ws.Status.Set(WorkstationMaintenance)
	ws.downUntil = s.clock + seconds
	s.queue.Enqueue(&MaintenanceFinished{eventBase: stamp(ws.downUntil), Workstation: ws.ID})
	s.flushHistory()
	return nil
}

// Breakdown marks a workstation as failed; it is repaired after seconds.
func (s *Simulator) Breakdown(workstation string, seconds int64) error {
	ws, ok := s.wsByID[workstation]
	if !ok {
		return fmt.Errorf("unknown workstation %q", workstation)
	}
	ws.Status.Set(WorkstationError | WorkstationRepair)
	ws.downUntil = s.clock + seconds
	s.queue.Enqueue(&RepairFinished{eventBase: stamp(ws.downUntil), Workstation: ws.ID})
	s.flushHistory()
	return nil
}

type placement struct {
	buf       *Buffer
	component string
	qty       int
}

// planInputs places every component of load, whole, into the first input buffer of ws that accepts it.
func planInputs(ws *WorkstationState, load map[string]int) ([]placement, bool) {
	trials := make(map[*Buffer]*capacity.Stock)
	var plan []placement
	for _, c := range sortedKeys(load) {
		placed := false
		for _, b := range ws.Inputs {
			st, ok := trials[b]
			if !ok {
				st = b.Stock.Clone()
				trials[b] = st
			}
			if capacity.Accepts(b.Sizes, st, c, load[c], b.options(false)) {
				st.Add(c, load[c])
				plan = append(plan, placement{buf: b, component: c, qty: load[c]})
				placed = true
				break
			}
		}
		if !placed {
			return nil, false
		}
	}
	return plan, true
}

func (s *Simulator) handleMaterialsArrival(ev *MaterialsArrival) error {
	ws := s.wsByID[ev.Workstation]
	arrivals := []*MaterialsArrival{ev}
	plan, ok := planInputs(ws, ev.Components)
	if !ok {
		arrivals, plan, ok = s.bundleArrivals(ev, ws)
	}
	if !ok {
		ev.Overflow = true
		logrus.Debugf("t=%d %v overflows the inputs of %s", s.clock, ev.Components, ws.ID)
		return nil
	}
	for _, p := range plan {
		p.buf.Stock.Add(p.component, p.qty)
	}
	for _, a := range arrivals {
		s.queue.Remove(a)
		if a.Direct {
			for c, q := range a.Components {
				ws.credit[c] += q
			}
			s.wakeRequests(a.Components, ws.ID)
		}
	}
	if err := s.workOn(ws, true); err != nil {
		return err
	}
	return s.retrigger(ws)
}

// bundleArrivals joins ev with other queued single-component arrivals of the same component at ws,
// for buffers whose quantity steps reject a lone arrival. The largest bundle that fits wins.
func (s *Simulator) bundleArrivals(ev *MaterialsArrival, ws *WorkstationState) ([]*MaterialsArrival, []placement, bool) {
	if len(ev.Components) != 1 {
		return nil, nil, false
	}
	var component string
	for c := range ev.Components {
		component = c
	}
	others := []*MaterialsArrival{ev}
	for _, e := range s.queue.Items() {
		a, ok := e.(*MaterialsArrival)
		if !ok || a == ev || a.Workstation != ws.ID || len(a.Components) != 1 || a.Components[component] == 0 {
			continue
		}
		others = append(others, a)
	}
	for k := len(others); k >= 2; k-- {
		total := 0
		for _, a := range others[:k] {
			total += a.Components[component]
		}
		if plan, ok := planInputs(ws, map[string]int{component: total}); ok {
			return others[:k], plan, true
		}
	}
	return nil, nil, false
}

func (s *Simulator) handleToolsRequest(ev *ToolsRequest) error {
	ev.JustCreated, ev.SomeReleased = false, false
	ws := s.wsByID[ev.Workstation]
	var left []string
	for _, t := range ev.Tools {
		if h, held := s.toolPools.Holder(t); held && h == ws.ID {
			continue
		}
		seized := false
		for _, pool := range ws.Def.AllowedToolPools {
			if s.toolPools.Seize(pool, t, ws.ID) {
				seized = true
				break
			}
		}
		if !seized {
			left = append(left, t)
			continue
		}
		s.queue.Enqueue(&ToolArrival{eventBase: stamp(s.clock), Workstation: ws.ID, Tool: t})
	}
	ev.Tools = left
	return nil
}

func (s *Simulator) handleToolArrival(ev *ToolArrival) error {
	s.queue.Remove(ev)
	ws := s.wsByID[ev.Workstation]
	if len(s.opsWithStatus(ws, OpCommitted)) == 0 {
		ws.releasing = append(ws.releasing, ev.Tool)
		s.queue.Enqueue(&ToolRelease{eventBase: stamp(s.clock), Workstation: ws.ID, Tool: ev.Tool})
		return nil
	}
	if !contains(ws.SeizedTools, ev.Tool) && !contains(ws.ToolsInUse, ev.Tool) {
		ws.SeizedTools = append(ws.SeizedTools, ev.Tool)
	}
	return s.workOn(ws, true)
}

func (s *Simulator) handleToolRelease(ev *ToolRelease) error {
	s.queue.Remove(ev)
	ws := s.wsByID[ev.Workstation]
	ws.releasing = without(ws.releasing, ev.Tool)
	if h, held := s.toolPools.Holder(ev.Tool); held && h == ws.ID && !ws.permanentTool(ev.Tool) {
		s.toolPools.Release(ev.Tool)
	}
	for _, e := range s.queue.Items() {
		if r, ok := e.(*ToolsRequest); ok && contains(r.Tools, ev.Tool) {
			r.SomeReleased = true
			r.setTimestamp(s.clock)
		}
	}
	return s.workOn(ws, true)
}

func (s *Simulator) handleWorkerRequest(ev *WorkerRequest) error {
	ev.JustCreated, ev.SomeReleased = false, false
	var pools []string
	if ev.Transport {
		for _, p := range s.plant.WorkerPools {
			pools = append(pools, p.ID)
		}
	} else {
		pools = s.wsByID[ev.Target].Def.AllowedWorkerPools
	}
	covered := false
	for _, pool := range pools {
		for _, m := range s.workerPools.Members(pool) {
			covered = covered || s.workerByID[m].Covers(ev.Capabilities)
		}
	}
	if !covered {
		return fmt.Errorf("%w with %v for %s", ErrNoEligibleWorker, ev.Capabilities, ev.Target)
	}
	for _, pool := range pools {
		for _, m := range s.workerPools.Available(pool) {
			w := s.workerByID[m]
			if !w.Covers(ev.Capabilities) || !s.workerPools.Seize(pool, m, ev.Target) {
				continue
			}
			s.queue.Remove(ev)
			s.dispatchWorker(w, ev.Target, ev.Transport)
			return nil
		}
	}
	return nil
}

// dispatchWorker sends a seized worker walking to its new holder.
func (s *Simulator) dispatchWorker(w *WorkerState, target string, transport bool) {
	w.Holder = target
	w.Status = WorkerWalking
	w.Destination = target
	if transport {
		tm := s.trByID[target]
		tm.workerIncoming = w.ID
		at := s.clock + travelTime(s.distance(w.Location, tm.Location), WalkingSpeed)
		s.queue.Enqueue(&WorkerTransportArrival{eventBase: stamp(at), Transport: tm.ID, Worker: w.ID})
	} else {
		ws := s.wsByID[target]
		ws.workerIncoming = w.ID
		at := s.clock + travelTime(s.distance(w.Location, ws.ID), WalkingSpeed)
		s.queue.Enqueue(&WorkerStationArrival{eventBase: stamp(at), Workstation: ws.ID, Worker: w.ID})
	}
	logrus.Debugf("t=%d %s walks from %q to %s", s.clock, w.ID, w.Location, target)
}

func (s *Simulator) handleWorkerStationArrival(ev *WorkerStationArrival) error {
	s.queue.Remove(ev)
	w := s.workerByID[ev.Worker]
	ws := s.wsByID[ev.Workstation]
	w.Location = ws.ID
	w.Destination = ""
	w.Status = WorkerIdle
	ws.Worker = w.ID
	ws.workerIncoming = ""
	if len(s.opsWithStatus(ws, OpCommitted)) == 0 {
		s.releaseWorker(ws)
		return nil
	}
	return s.workOn(ws, true)
}

func (s *Simulator) handleWorkerTransportArrival(ev *WorkerTransportArrival) error {
	s.queue.Remove(ev)
	w := s.workerByID[ev.Worker]
	tm := s.trByID[ev.Transport]
	w.Location = tm.ID
	w.Destination = ""
	w.Status = WorkerBusy
	tm.Worker = w.ID
	tm.workerIncoming = ""
	if len(tm.Orders) == 0 {
		s.queue.Enqueue(&WorkerRelease{eventBase: stamp(s.clock), Transport: tm.ID, Worker: w.ID})
		return nil
	}
	return s.execute(tm)
}

func (s *Simulator) handleWorkerRelease(ev *WorkerRelease) error {
	s.queue.Remove(ev)
	w := s.workerByID[ev.Worker]
	holder := ev.Workstation
	if ev.Transport != "" {
		holder = ev.Transport
	}
	if h, held := s.workerPools.Holder(w.ID); !held || h != holder {
		return nil
	}
	if ev.Workstation != "" {
		ws := s.wsByID[ev.Workstation]
		if w.ID == ws.Def.PermanentWorker || w.Status != WorkerIdle || s.workerNeeded(ws, w) {
			return nil
		}
		if ws.Worker == w.ID {
			ws.Worker = ""
		}
	} else {
		tm := s.trByID[ev.Transport]
		if len(tm.Orders) > 0 {
			return nil
		}
		tm.Worker = ""
		w.Status = WorkerIdle
		w.Location = tm.Location
	}
	s.workerPools.Release(w.ID)
	w.Holder = ""
	logrus.Debugf("t=%d %s released by %s", s.clock, w.ID, holder)
	for _, e := range s.queue.Items() {
		if r, ok := e.(*WorkerRequest); ok && w.Covers(r.Capabilities) {
			r.SomeReleased = true
			r.setTimestamp(s.clock)
		}
	}
	return nil
}

// workerNeeded reports whether w should stay at ws for its committed operations.
func (s *Simulator) workerNeeded(ws *WorkstationState, w *WorkerState) bool {
	committed := s.opsWithStatus(ws, OpCommitted)
	return len(committed) > 0 && w.Covers(s.processingCaps(committed))
}

// ensureToolsRequest keeps one outstanding tools request per workstation, extending it with tools.
func (s *Simulator) ensureToolsRequest(ws *WorkstationState, tools []string) {
	for _, e := range s.queue.Items() {
		r, ok := e.(*ToolsRequest)
		if !ok || r.Workstation != ws.ID {
			continue
		}
		for _, t := range tools {
			if !contains(r.Tools, t) {
				r.Tools = append(r.Tools, t)
				r.JustCreated = true
				r.setTimestamp(s.clock)
			}
		}
		return
	}
	s.queue.Enqueue(&ToolsRequest{
		eventBase:   stamp(s.clock),
		Workstation: ws.ID,
		Tools:       append([]string(nil), tools...),
		JustCreated: true,
	})
}

// ensureWorkerRequest keeps one outstanding worker request per workstation or transport.
func (s *Simulator) ensureWorkerRequest(target string, transport bool, caps []string) {
	for _, e := range s.queue.Items() {
		r, ok := e.(*WorkerRequest)
		if !ok || r.Target != target || r.Transport != transport {
			continue
		}
		if strings.Join(r.Capabilities, ",") != strings.Join(caps, ",") {
			r.Capabilities = append([]string(nil), caps...)
			r.JustCreated = true
			r.setTimestamp(s.clock)
		}
		return
	}
	s.queue.Enqueue(&WorkerRequest{
		eventBase:    stamp(s.clock),
		Target:       target,
		Transport:    transport,
		Capabilities: append([]string(nil), caps...),
		JustCreated:  true,
	})
}

// bootstrap releases every order with backlog. On an empty queue it also recreates the completion
// events of whatever is in flight.
func (s *Simulator) bootstrap() {
	inFlight := s.queue.Len() == 0
	s.bootstrapped = true
	s.bootstrapAt = s.clock
	for _, o := range s.plant.Orders {
		if s.progress.HasBacklog(o.ID) {
			s.queue.Enqueue(&OrderRelease{eventBase: stamp(max(o.Release, s.clock)), Order: o.ID})
		}
	}
	if !inFlight {
		return
	}
	for _, ws := range s.workstations {
		if len(ws.WIPOps) > 0 {
			var finish int64
			for _, ref := range ws.WIPOps {
				finish = max(finish, s.progress.MustGet(ref).FinishTime)
			}
			s.queue.Enqueue(&OperationFinished{eventBase: stamp(max(finish, s.clock)), Workstation: ws.ID, Ops: append([]OpRef(nil), ws.WIPOps...)})
		}
		if ws.Status.Has(WorkstationSetup) {
			s.queue.Enqueue(&SetupFinished{eventBase: stamp(max(ws.setupUntil, s.clock)), Workstation: ws.ID})
		}
		if ws.Status.Has(WorkstationMaintenance) {
			s.queue.Enqueue(&MaintenanceFinished{eventBase: stamp(max(ws.downUntil, s.clock)), Workstation: ws.ID})
		}
		if ws.Status.Has(WorkstationRepair) {
			s.queue.Enqueue(&RepairFinished{eventBase: stamp(max(ws.downUntil, s.clock)), Workstation: ws.ID})
		}
	}
	for _, w := range s.workers {
		if w.Status != WorkerWalking {
			continue
		}
		if tm, ok := s.trByID[w.Destination]; ok {
			s.queue.Enqueue(&WorkerTransportArrival{eventBase: stamp(s.clock), Transport: tm.ID, Worker: w.ID})
		} else if ws, ok := s.wsByID[w.Destination]; ok {
			s.queue.Enqueue(&WorkerStationArrival{eventBase: stamp(s.clock), Workstation: ws.ID, Worker: w.ID})
		}
	}
	for _, tm := range s.transports {
		if tm.Status.Any(TransportMovingToSource|TransportExecuting) && tm.Destination != "" {
			at := s.clock + travelTime(tm.RemainingDistance, tm.Machine.Speed)
			s.queue.Enqueue(&TransportArrival{eventBase: stamp(at), Transport: tm.ID, Location: tm.Destination})
		}
	}
	logrus.Debugf("t=%d bootstrap queued %d event(s)", s.clock, s.queue.Len())
}

// describe renders an event for the event log.
func describe(ev Event) string {
	var detail string
	switch e := ev.(type) {
	case *OrderRelease:
		detail = e.Order
	case *OperationFinished:
		refs := make([]string, len(e.Ops))
		for i, r := range e.Ops {
			refs[i] = r.String()
		}
		detail = e.Workstation + " " + strings.Join(refs, ",")
	case *SetupFinished:
		detail = e.Workstation
	case *MaintenanceFinished:
		detail = e.Workstation
	case *RepairFinished:
		detail = e.Workstation
	case *WorkerStationArrival:
		detail = e.Worker + "@" + e.Workstation
	case *WorkerTransportArrival:
		detail = e.Worker + "@" + e.Transport
	case *ToolArrival:
		detail = e.Tool + "@" + e.Workstation
	case *ToolRelease:
		detail = e.Tool + "@" + e.Workstation
	case *WorkerRelease:
		detail = e.Worker + "@" + e.Workstation + e.Transport
	case *MaterialsArrival:
		detail = e.Workstation + " " + formatLoad(e.Components)
	case *RawMaterialArrival:
		detail = e.Inventory + " " + formatLoad(e.Components)
	case *WorkstationPickup:
		detail = e.Workstation
	case *MaterialsRequest:
		detail = fmt.Sprintf("%s %dx%s", e.Workstation, e.Quantity, e.Component)
	case *ToolsRequest:
		detail = e.Workstation + " " + strings.Join(e.Tools, ",")
	case *WorkerRequest:
		detail = e.Target + " " + strings.Join(e.Capabilities, ",")
	case *TransportOrder:
		detail = e.Source + "->" + e.Destination + " " + formatLoad(e.Components)
	case *TransportArrival:
		detail = e.Transport + "@" + e.Location
	case *LoadingFinished:
		detail = fmt.Sprintf("%s@%s %dx%s", e.Transport, e.Location, e.Quantity, e.Component)
	case *UnloadingFinished:
		detail = fmt.Sprintf("%s@%s %dx%s", e.Transport, e.Location, e.Quantity, e.Component)
	}
	if detail == "" {
		return ev.Kind()
	}
	return ev.Kind() + " " + detail
}

func formatLoad(load map[string]int) string {
	parts := make([]string, 0, len(load))
	for _, c := range sortedKeys(load) {
		parts = append(parts, fmt.Sprintf("%dx%s", load[c], c))
	}
	return strings.Join(parts, ",")
}

func sortedToolIDs[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
