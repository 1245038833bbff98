package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/institute-of-production-systems/shopsim/sim/capacity"
	"github.com/institute-of-production-systems/shopsim/sim/dispatch"
	"github.com/institute-of-production-systems/shopsim/sim/plant"
)

func stamp(at int64) eventBase { return eventBase{at: at} }

func (s *Simulator) operation(ref OpRef) *plant.Operation {
	op, ok := s.plant.Operation(ref.Product, ref.Operation)
	if !ok {
		panic(fmt.Sprintf("unknown operation %s", ref))
	}
	return op
}

func (s *Simulator) outputOf(ref OpRef) string {
	pr, _ := s.plant.Product(ref.Product)
	return pr.OutputOf(ref.Operation)
}

// push routes a ready operation to one of the workstations that could ever execute it.
func (s *Simulator) push(ref OpRef) error {
	op := s.operation(ref)
	var eligible []string
	for _, ws := range s.workstations {
		if s.eligible(ws, op) {
			eligible = append(eligible, ws.ID)
		}
	}
	if len(eligible) == 0 {
		return fmt.Errorf("%w for %s", ErrNoEligibleWorkstation, ref)
	}
	return s.decide(&Decision{
		Category:   dispatch.WorkstationRouting,
		Subject:    ref.Triple(),
		Candidates: eligible,
		op:         ref,
	})
}

// eligible reports whether ws could ever provide the capabilities, tools and input space of op.
func (s *Simulator) eligible(ws *WorkstationState, op *plant.Operation) bool {
	for _, c := range op.Capabilities {
		if !ws.caps[c] {
			return false
		}
	}
	for t := range op.Tools {
		if !ws.tools[t] {
			return false
		}
	}
	for c, q := range op.Components {
		fits := false
		for _, b := range ws.Inputs {
			if b.Holds(c, q) {
				fits = true
				break
			}
		}
		if !fits {
			return false
		}
	}
	return true
}

// assign queues ref at ws, requests its components and tries to sequence the workstation.
func (s *Simulator) assign(ref OpRef, ws *WorkstationState) error {
	if err := s.progress.Transition(ref, OpAssigned); err != nil {
		return err
	}
	s.progress.MustGet(ref).Location = ws.ID
	ws.InputOps = append(ws.InputOps, ref)
	op := s.operation(ref)
	for _, c := range sortedKeys(op.Components) {
		need := op.Components[c] - reserveInputs(ws, c, op.Components[c])
		if need == 0 {
			continue
		}
		s.queue.Enqueue(&MaterialsRequest{
			eventBase:   stamp(s.clock),
			Workstation: ws.ID,
			Component:   c,
			Quantity:    need,
			Order:       ref.Order,
		})
	}
	logrus.Debugf("t=%d %s assigned to %s", s.clock, ref, ws.ID)
	return s.sequence(ws, false)
}

// reserveInputs promises up to qty of component already waiting in the input buffers of ws and
// returns how much it reserved.
func reserveInputs(ws *WorkstationState, component string, qty int) int {
	got := 0
	for _, b := range ws.Inputs {
		n := min(b.Free(component), qty-got)
		if n > 0 {
			b.Reserve(component, n)
			got += n
		}
	}
	return got
}

func (s *Simulator) marker(ws *WorkstationState) *WorkstationSequencingPostponed {
	for _, e := range s.queue.Items() {
		if m, ok := e.(*WorkstationSequencingPostponed); ok && m.Workstation == ws.ID {
			return m
		}
	}
	return nil
}

func (s *Simulator) ensureMarker(ws *WorkstationState) {
	if s.marker(ws) == nil {
		s.queue.Enqueue(&WorkstationSequencingPostponed{eventBase: stamp(s.clock), Workstation: ws.ID})
	}
}

func (s *Simulator) removeMarker(ws *WorkstationState) bool {
	if m := s.marker(ws); m != nil {
		return s.queue.Remove(m)
	}
	return false
}

// retrigger re-runs sequencing of ws, treating it as postponed if a marker was waiting.
func (s *Simulator) retrigger(ws *WorkstationState) error {
	return s.sequence(ws, s.removeMarker(ws))
}

func (s *Simulator) opsWithStatus(ws *WorkstationState, status OpStatus) []OpRef {
	var out []OpRef
	for _, ref := range ws.InputOps {
		if s.progress.MustGet(ref).Status == status {
			out = append(out, ref)
		}
	}
	return out
}

// sequence chooses the next queued operation of ws. Sequencing waits behind a marker while the
// workstation is down, still has committed work, or (unless it batches) is processing.
func (s *Simulator) sequence(ws *WorkstationState, postponed bool) error {
	s.removeMarker(ws)
	if len(s.opsWithStatus(ws, OpAssigned)) == 0 {
		return nil
	}
	down := ws.Status.Any(WorkstationMaintenance | WorkstationError | WorkstationRepair)
	if down || len(s.opsWithStatus(ws, OpCommitted)) > 0 || (!ws.Batch() && len(ws.WIPOps) > 0) {
		s.ensureMarker(ws)
		return nil
	}
	alts, err := s.alternatives(ws)
	if err != nil {
		return err
	}
	d := &Decision{
		Category:    dispatch.WorkstationSequencing,
		Subject:     ws.ID,
		SkipAllowed: len(alts) >= 2 && !postponed,
		ops:         make(map[string]OpRef, len(alts)),
	}
	for _, ref := range alts {
		d.Candidates = append(d.Candidates, ref.Triple())
		d.ops[ref.Triple()] = ref
	}
	return s.decide(d)
}

// alternatives returns the first queued instance of every distinct assigned triple. A non-empty
// FIFO or LIFO input buffer restricts them to operations consuming its head or tail component.
func (s *Simulator) alternatives(ws *WorkstationState) ([]OpRef, error) {
	seen := make(map[string]bool)
	var all []OpRef
	for _, ref := range s.opsWithStatus(ws, OpAssigned) {
		if !seen[ref.Triple()] {
			seen[ref.Triple()] = true
			all = append(all, ref)
		}
	}
	forced, err := s.forcedComponent(ws)
	if err != nil || forced == "" {
		return all, err
	}
	var restricted []OpRef
	for _, ref := range all {
		if _, ok := s.operation(ref).Components[forced]; ok {
			restricted = append(restricted, ref)
		}
	}
	if len(restricted) == 0 {
		return all, nil
	}
	return restricted, nil
}

func (s *Simulator) forcedComponent(ws *WorkstationState) (string, error) {
	for _, b := range ws.Inputs {
		switch b.Sequence {
		case plant.SequenceSolidRaw:
			return "", fmt.Errorf("%w: %s sequencing at %s", ErrNotSupported, plant.SequenceSolidRaw, b.Label)
		case plant.SequenceFIFO:
			if c, ok := b.Stock.Head(); ok {
				return c, nil
			}
		case plant.SequenceLIFO:
			if c, ok := b.Stock.Tail(); ok {
				return c, nil
			}
		}
	}
	return "", nil
}

// commit selects ref for resource acquisition. A batch workstation commits the largest prefix of
// queued instances of the same triple that its batch sizes admit.
func (s *Simulator) commit(ws *WorkstationState, ref OpRef) error {
	if !ws.Batch() {
		if err := s.progress.Transition(ref, OpCommitted); err != nil {
			return err
		}
		logrus.Debugf("t=%d %s committed at %s", s.clock, ref, ws.ID)
		return s.workOn(ws, true)
	}
	var bundle []OpRef
	for _, r := range s.opsWithStatus(ws, OpAssigned) {
		if r.Triple() == ref.Triple() {
			bundle = append(bundle, r)
		}
	}
	n := s.batchSize(ws, bundle)
	if n == 0 {
		logrus.Debugf("t=%d %s: %d queued instances of %s form no valid batch", s.clock, ws.ID, len(bundle), ref.Triple())
		s.ensureMarker(ws)
		return nil
	}
	logrus.Debugf("t=%d %s committed a batch of %d x %s", s.clock, ws.ID, n, ref.Triple())
	for i, r := range bundle[:n] {
		if err := s.progress.Transition(r, OpCommitted); err != nil {
			return err
		}
		if err := s.workOn(ws, i == n-1); err != nil {
			return err
		}
	}
	return nil
}

// batchSize returns the largest n such that n instances form a batch the machine accepts.
func (s *Simulator) batchSize(ws *WorkstationState, bundle []OpRef) int {
	if len(bundle) == 0 {
		return 0
	}
	m := ws.Machine
	if m.BatchSizes.Unlimited() {
		return len(bundle)
	}
	per := s.operation(bundle[0]).Components
	if len(per) == 0 {
		per = map[string]int{s.outputOf(bundle[0]): 1}
	}
	for n := len(bundle); n > 0; n-- {
		if batchFits(m, per, n) {
			return n
		}
	}
	return 0
}

func batchFits(m *plant.Machine, per map[string]int, n int) bool {
	load := capacity.NewStock(nil)
	for _, c := range sortedKeys(per) {
		qty := per[c] * n
		i, ok := m.BatchSizes.Match(c)
		if !ok || qty < m.BatchSizes[i].Min {
			return false
		}
		if !capacity.Accepts(m.BatchSizes, load, c, qty, capacity.Options{DiffCompComb: m.DiffCompBatch}) {
			return false
		}
		load.Add(c, qty)
	}
	return true
}

// skip postpones sequencing of ws: tools in use are dismounted and released, an idle worker goes
// back to its pool, and the workstation waits for the next trigger.
func (s *Simulator) skip(ws *WorkstationState) {
	var keep []string
	for _, t := range ws.ToolsInUse {
		if ws.permanentTool(t) {
			keep = append(keep, t)
			continue
		}
		ws.releasing = append(ws.releasing, t)
		s.queue.Enqueue(&ToolRelease{eventBase: stamp(s.clock + s.dismountSeconds(ws, t)), Workstation: ws.ID, Tool: t})
	}
	ws.ToolsInUse = keep
	for _, t := range ws.SeizedTools {
		s.queue.Enqueue(&ToolRelease{eventBase: stamp(s.clock), Workstation: ws.ID, Tool: t})
		ws.releasing = append(ws.releasing, t)
	}
	ws.SeizedTools = nil
	s.releaseWorker(ws)
	s.ensureMarker(ws)
	logrus.Debugf("t=%d %s skipped sequencing", s.clock, ws.ID)
}

// releaseWorker schedules the release of the idle, non-permanent worker of ws.
func (s *Simulator) releaseWorker(ws *WorkstationState) {
	if ws.Worker == "" || ws.Worker == ws.Def.PermanentWorker {
		return
	}
	if s.workerByID[ws.Worker].Status != WorkerIdle {
		return
	}
	s.queue.Enqueue(&WorkerRelease{eventBase: stamp(s.clock), Workstation: ws.ID, Worker: ws.Worker})
}

func (s *Simulator) dismountSeconds(ws *WorkstationState, tool string) int64 {
	if ws.Machine == nil {
		return 0
	}
	return s.matrixSeconds(ws.Machine, tool, plant.NoTool)
}

func (s *Simulator) matrixSeconds(m *plant.Machine, from, to string) int64 {
	v, ok := m.SetupMatrix[from][to]
	if !ok {
		logrus.Debugf("machine %s: no setup time from %q to %q; assuming 0", m.ID, from, to)
		return 0
	}
	secs, err := plant.Seconds(v, m.HardwareSetupUnit)
	if err != nil {
		logrus.Warnf("machine %s: %v", m.ID, err)
		return 0
	}
	return secs
}

// workOn advances the committed operations of ws as far as resources allow: it stages components,
// requests missing tools and workers, runs setup, checks that the output will fit and starts
// processing. batchComplete is false while a batch is still being committed.
func (s *Simulator) workOn(ws *WorkstationState, batchComplete bool) error {
	ops := s.opsWithStatus(ws, OpCommitted)
	if len(ops) == 0 {
		return nil
	}
	stagedAny, err := s.stage(ws, ops)
	if err != nil {
		return err
	}
	allStaged := true
	for _, ref := range ops {
		allStaged = allStaged && ws.staged[ref]
	}
	if allStaged {
		ws.Status.Clear(WorkstationWaitingForMaterial)
	} else {
		ws.Status.Set(WorkstationWaitingForMaterial)
	}
	if stagedAny {
		s.spaceFreed(ws)
	}

	required := s.requiredTools(ops)
	var missing, wanted []string
	for _, t := range required {
		if !contains(ws.ToolsInUse, t) && !contains(ws.SeizedTools, t) && !ws.permanentTool(t) {
			missing = append(missing, t)
			// Tools already held by ws are on their way or being dismounted.
			if h, _ := s.toolPools.Holder(t); h != ws.ID {
				wanted = append(wanted, t)
			}
		}
	}
	if len(missing) > 0 {
		ws.Status.Set(WorkstationWaitingForTools)
		if len(wanted) > 0 {
			s.ensureToolsRequest(ws, wanted)
		}
	} else {
		ws.Status.Clear(WorkstationWaitingForTools)
	}

	var mount []string
	for _, t := range required {
		if !contains(ws.ToolsInUse, t) {
			mount = append(mount, t)
		}
	}
	adjust := s.adjustments(ops)
	setupNeeded := len(mount) > 0 || len(adjust) > 0

	caps := s.processingCaps(ops)
	needWorker := len(caps) > 0 || (setupNeeded && !ws.Automated())
	if len(caps) == 0 && ws.Machine != nil {
		caps = ws.Machine.AcceptedCapabilities
	}
	worker := s.workerByID[ws.Worker]
	workerReady := !needWorker || (worker != nil && worker.Covers(caps))
	if workerReady {
		ws.Status.Clear(WorkstationWaitingForWorker)
	} else {
		ws.Status.Set(WorkstationWaitingForWorker)
		if worker != nil && !worker.Covers(caps) {
			s.releaseWorker(ws)
		}
		if ws.workerIncoming == "" {
			s.ensureWorkerRequest(ws.ID, false, caps)
		}
	}

	idle := !ws.Status.Any(WorkstationSetup | WorkstationBusy | WorkstationMaintenance | WorkstationError | WorkstationRepair)
	if setupNeeded && len(missing) == 0 && idle {
		if ws.Automated() || (worker != nil && worker.Status == WorkerIdle && worker.Location == ws.ID) {
			s.startSetup(ws, required, mount, adjust)
		}
	}

	if batchComplete && allStaged {
		if s.outputsFit(ws, ops) {
			ws.Status.Clear(WorkstationBlocked)
		} else {
			ws.Status.Set(WorkstationBlocked)
		}
	}

	blocking := WorkstationWaitingForMaterial | WorkstationWaitingForTools | WorkstationWaitingForWorker |
		WorkstationSetup | WorkstationBlocked | WorkstationBusy | WorkstationMaintenance | WorkstationError | WorkstationRepair
	if batchComplete && allStaged && !setupNeeded && !ws.Status.Any(blocking) {
		s.start(ws, ops, len(s.processingCaps(ops)) > 0)
	}
	return nil
}

// stage moves the components of every committed operation from the input buffers into WIP, one
// operation at a time and only when all of its components are available.
func (s *Simulator) stage(ws *WorkstationState, ops []OpRef) (bool, error) {
	stagedAny := false
	for _, ref := range ops {
		if ws.staged[ref] {
			continue
		}
		need := s.operation(ref).Components
		ok := true
		for c, q := range need {
			have := 0
			for _, b := range ws.Inputs {
				n, err := takeable(b, c)
				if err != nil {
					return stagedAny, err
				}
				have += n
			}
			ok = ok && have >= q
		}
		if !ok {
			continue
		}
		for _, c := range sortedKeys(need) {
			left := need[c]
			for _, b := range ws.Inputs {
				n, _ := takeable(b, c)
				if n > left {
					n = left
				}
				if n > 0 {
					b.Take(c, n)
					left -= n
				}
			}
			ws.WIP.Add(c, need[c])
		}
		ws.staged[ref] = true
		stagedAny = true
		logrus.Debugf("t=%d %s staged components of %s", s.clock, ws.ID, ref)
	}
	return stagedAny, nil
}

// takeable returns how much of component a workstation may take from one of its input buffers.
func takeable(b *Buffer, component string) (int, error) {
	switch b.Sequence {
	case plant.SequenceSolidRaw:
		if b.Stock.Empty() {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: taking from %s buffer %s", ErrNotSupported, plant.SequenceSolidRaw, b.Label)
	case plant.SequenceFIFO:
		if c, ok := b.Stock.Head(); !ok || c != component {
			return 0, nil
		}
	case plant.SequenceLIFO:
		if c, ok := b.Stock.Tail(); !ok || c != component {
			return 0, nil
		}
	}
	return b.Stock.Quantity(component), nil
}

// spaceFreed wakes everything that waits for room at ws.
func (s *Simulator) spaceFreed(ws *WorkstationState) {
	shared := []string{ws.ID}
	for _, e := range s.queue.Items() {
		switch ev := e.(type) {
		case *MaterialsArrival:
			if ev.Workstation == ws.ID && ev.Overflow {
				ev.Overflow = false
				ev.setTimestamp(s.clock)
			}
		case *RawMaterialArrival:
			if inv := s.invByID[ev.Inventory]; inv.SharedWith == ws.ID && ev.Overflow {
				ev.Overflow = false
				ev.setTimestamp(s.clock)
			}
		}
	}
	for _, inv := range s.inventories {
		if inv.SharedWith == ws.ID {
			shared = append(shared, inv.ID)
		}
	}
	for _, loc := range shared {
		s.retryUnloading(loc)
	}
	for _, up := range s.workstations {
		if up.Status.Has(WorkstationBlocked) && contains(up.directTo, ws.ID) {
			s.queue.Enqueue(&WorkstationPickup{eventBase: stamp(s.clock), Workstation: up.ID})
		}
	}
}

func (s *Simulator) requiredTools(ops []OpRef) []string {
	set := make(map[string]bool)
	for _, ref := range ops {
		for t := range s.operation(ref).Tools {
			set[t] = true
		}
	}
	return sortedSet(set)
}

// processingCaps returns the worker capabilities the operations need while they are processed.
func (s *Simulator) processingCaps(ops []OpRef) []string {
	set := make(map[string]bool)
	for _, ref := range ops {
		for _, c := range s.operation(ref).Capabilities {
			if s.workerCaps[c] {
				set[c] = true
			}
		}
	}
	return sortedSet(set)
}

type propertyAdjustment struct {
	tool    string
	prop    string
	target  float64
	seconds int64
}

// adjustments lists the dynamic tool properties outside the ranges the operations require.
func (s *Simulator) adjustments(ops []OpRef) []propertyAdjustment {
	var out []propertyAdjustment
	seen := make(map[[2]string]bool)
	for _, ref := range ops {
		op := s.operation(ref)
		tools := make([]string, 0, len(op.Tools))
		for t := range op.Tools {
			tools = append(tools, t)
		}
		sort.Strings(tools)
		for _, t := range tools {
			req := op.Tools[t]
			props := make([]string, 0, len(req.Requirements))
			for p := range req.Requirements {
				props = append(props, p)
			}
			sort.Strings(props)
			for _, p := range props {
				key := [2]string{t, p}
				dyn, ok := s.tools.Dynamic(t, p)
				if !ok || seen[key] {
					continue
				}
				seen[key] = true
				v, _ := s.tools.Value(t, p)
				r := req.Requirements[p]
				if v >= r.Min-capacity.Tolerance && v <= r.Max+capacity.Tolerance {
					continue
				}
				// A rising effect restarts at the lower bound, a falling one at the upper bound, which
				// is the nearer bound when the value left the range against the effect.
				mean := (r.Min + r.Max) / 2
				target := r.Max
				if effectOf(req.Effects[p], mean) >= mean {
					target = r.Min
				}
				delta := target - v
				rate := dyn.TimePerUnitUp
				if delta < 0 {
					rate = dyn.TimePerUnitDown
				}
				unit := dyn.TimeUnit
				if unit == "" {
					unit = "s"
				}
				secs, err := plant.Seconds(math.Abs(delta)*rate, unit)
				if err != nil {
					logrus.Warnf("tool %s property %s: %v", t, p, err)
				}
				out = append(out, propertyAdjustment{tool: t, prop: p, target: target, seconds: secs})
			}
		}
	}
	return out
}

// startSetup mounts the required tools and adjusts their properties, occupying ws (and its worker)
// until the matching SetupFinished.
func (s *Simulator) startSetup(ws *WorkstationState, required, mount []string, adjust []propertyAdjustment) {
	var d int64
	if m := ws.Machine; m != nil && len(mount) > 0 {
		if !m.SoftwareSetupParallel {
			d += m.SoftwareSetup.MustSeconds()
		}
		if !m.HardwareSetupParallel {
			d += s.exchangeSeconds(ws, required, mount)
		}
	}
	for _, a := range adjust {
		d += a.seconds
		s.tools.Set(a.tool, a.prop, a.target)
	}
	for _, t := range ws.ToolsInUse {
		if !contains(required, t) && !ws.permanentTool(t) {
			ws.SeizedTools = append(ws.SeizedTools, t)
		}
	}
	ws.ToolsInUse = append([]string(nil), required...)
	var seized []string
	for _, t := range ws.SeizedTools {
		if !contains(required, t) {
			seized = append(seized, t)
		}
	}
	ws.SeizedTools = seized

	ws.Status.Set(WorkstationSetup)
	ws.setupUntil = s.clock + d
	if w := s.workerByID[ws.Worker]; w != nil && !ws.Automated() {
		w.Status = WorkerSettingUp
	}
	s.queue.Enqueue(&SetupFinished{eventBase: stamp(ws.setupUntil), Workstation: ws.ID})
	logrus.Debugf("t=%d %s setup of %d s: mount %v, %d property adjustments", s.clock, ws.ID, d, mount, len(adjust))
}

// exchangeSeconds prices mounting tools into their slots and emptying slots that fall out of use.
func (s *Simulator) exchangeSeconds(ws *WorkstationState, required, mount []string) int64 {
	m := ws.Machine
	var d int64
	for _, t := range mount {
		from := plant.NoTool
		if slot := m.ToolSlots[t]; slot != "" {
			for _, cur := range ws.ToolsInUse {
				if m.ToolSlots[cur] == slot {
					from = cur
					break
				}
			}
		}
		d += s.matrixSeconds(m, from, t)
	}
	used := make(map[string]bool)
	for _, t := range required {
		used[m.ToolSlots[t]] = true
	}
	for _, cur := range ws.ToolsInUse {
		if slot := m.ToolSlots[cur]; slot != "" && !used[slot] {
			d += s.matrixSeconds(m, cur, plant.NoTool)
		}
	}
	return d
}

// outputsFit reports whether the outputs of ops fit an output buffer. Workstations without output
// buffers hand finished output straight off the floor.
func (s *Simulator) outputsFit(ws *WorkstationState, ops []OpRef) bool {
	if len(ws.Outputs) == 0 {
		return true
	}
	counts := make(map[string]int)
	for _, ref := range ops {
		counts[s.outputOf(ref)]++
	}
	for _, c := range sortedKeys(counts) {
		fits := false
		for _, b := range ws.Outputs {
			if b.Accepts(c, counts[c]) {
				fits = true
				break
			}
		}
		if !fits {
			return false
		}
	}
	return true
}

// start turns the staged components of ops into one unit of output each and schedules the finish.
func (s *Simulator) start(ws *WorkstationState, ops []OpRef, workerBusy bool) {
	ws.Status.Set(WorkstationBusy)
	if w := s.workerByID[ws.Worker]; w != nil && workerBusy {
		w.Status = WorkerBusy
	}
	var finish int64
	for _, ref := range ops {
		if err := s.progress.Transition(ref, OpProcessing); err != nil {
			panic(err)
		}
		rec := s.progress.MustGet(ref)
		rec.StartTime = s.clock
		rec.FinishTime = s.clock + rec.RemainingWork
		if rec.FinishTime > finish {
			finish = rec.FinishTime
		}
		ws.InputOps = withoutRef(ws.InputOps, ref)
		ws.WIPOps = append(ws.WIPOps, ref)
		delete(ws.staged, ref)
		for c, q := range s.operation(ref).Components {
			if !ws.WIP.Remove(c, q) {
				panic(fmt.Sprintf("%s: staged %d of %q missing from WIP %s", ws.ID, q, c, ws.WIP))
			}
		}
		ws.WIP.Add(s.outputOf(ref), 1)
	}
	s.queue.PrependFront(&OperationFinished{eventBase: stamp(finish), Workstation: ws.ID, Ops: ops})
	logrus.Debugf("t=%d %s started %d operation(s), finishing at %d", s.clock, ws.ID, len(ops), finish)
}

// releaseContendedTools hands back seized tools that another workstation is asking for.
func (s *Simulator) releaseContendedTools(ws *WorkstationState) {
	var keep []string
	for _, t := range ws.SeizedTools {
		wanted := false
		for _, e := range s.queue.Items() {
			if r, ok := e.(*ToolsRequest); ok && r.Workstation != ws.ID && contains(r.Tools, t) {
				wanted = true
				break
			}
		}
		if wanted {
			ws.releasing = append(ws.releasing, t)
			s.queue.Enqueue(&ToolRelease{eventBase: stamp(s.clock), Workstation: ws.ID, Tool: t})
			continue
		}
		keep = append(keep, t)
	}
	ws.SeizedTools = keep
}

func withoutRef(list []OpRef, ref OpRef) []OpRef {
	out := list[:0:0]
	for _, r := range list {
		if r != ref {
			out = append(out, r)
		}
	}
	return out
}
