package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/institute-of-production-systems/shopsim/sim/capacity"
	"github.com/institute-of-production-systems/shopsim/sim/dispatch"
	"github.com/institute-of-production-systems/shopsim/sim/history"
	"github.com/institute-of-production-systems/shopsim/sim/metrics"
	"github.com/institute-of-production-systems/shopsim/sim/plant"
	"github.com/institute-of-production-systems/shopsim/sim/trace"
)

// WalkingSpeed is the speed of walking workers in m/s.
const WalkingSpeed = 1.4

// stallLimit bounds the events handled at one timestamp before the run is declared stalled.
const stallLimit = 1_000_000

// Config holds the run parameters of one simulation.
type Config struct {
	Seed  int64
	Start int64
	End   int64
	// Heuristics names the built-in heuristic per decision category. Categories without one surface
	// as decision points.
	Heuristics map[dispatch.Category]string
	// Rules holds the expression of categories configured with the EXPR heuristic.
	Rules map[dispatch.Category]string
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithHistory forwards every status and fill sample to sink as well.
func WithHistory(sink history.Sink) Option {
	return func(s *Simulator) { s.sink = history.Tee{s.recorder, sink} }
}

// WithMetrics records KPIs into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Simulator) { s.metrics = c }
}

// WithTrace records every resolved decision into t.
func WithTrace(t *trace.DecisionTrace) Option {
	return func(s *Simulator) { s.trace = t }
}

// Simulator is the simulation context: it owns the event queue, the clock and every piece of mutable
// plant state. Two simulators never share state.
type Simulator struct {
	plant *plant.Plant
	cfg   Config
	clock int64
	done  bool
	queue EventQueue
	rng   *PartitionedRNG

	progress     *ProgressTracker
	workstations []*WorkstationState
	wsByID       map[string]*WorkstationState
	inventories  []*InventoryState
	invByID      map[string]*InventoryState
	transports   []*TransportState
	trByID       map[string]*TransportState
	workers      []*WorkerState
	workerByID   map[string]*WorkerState
	workerPools  *PoolTracker
	toolPools    *PoolTracker
	tools        *ToolStates
	distances    plant.DistanceTable
	workerCaps   map[string]bool
	raw          map[string]bool

	choosers map[dispatch.Category]dispatch.Chooser
	pending  *Decision
	encoder  *actionEncoder

	recorder   *history.Recorder
	sink       history.Sink
	metrics    *metrics.Collector
	trace      *trace.DecisionTrace
	lastStatus map[string]string
	lastFill   map[string]float64

	completedOps int
	bootstrapAt  int64
	bootstrapped bool
	eventLog     []string
	logEvents    bool
}

// New prepares a simulation of p: it validates the definition, creates progress records and mutable
// resource state, and builds the action space.
func New(p *plant.Plant, cfg Config, opts ...Option) (*Simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if cfg.End <= cfg.Start {
		return nil, fmt.Errorf("end time %d must be after start time %d", cfg.End, cfg.Start)
	}
	progress, err := NewProgressTracker(p)
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		plant:       p,
		cfg:         cfg,
		clock:       cfg.Start,
		rng:         NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		progress:    progress,
		wsByID:      make(map[string]*WorkstationState),
		invByID:     make(map[string]*InventoryState),
		trByID:      make(map[string]*TransportState),
		workerByID:  make(map[string]*WorkerState),
		workerPools: NewPoolTracker(p.WorkerPools),
		toolPools:   NewPoolTracker(p.ToolPools),
		tools:       NewToolStates(p),
		distances:   p.DistanceTable(),
		workerCaps:  p.WorkerCapabilities(),
		raw:         make(map[string]bool),
		choosers:    make(map[dispatch.Category]dispatch.Chooser),
		recorder:    history.NewRecorder(),
		lastStatus:  make(map[string]string),
		lastFill:    make(map[string]float64),
	}
	s.sink = s.recorder
	for _, c := range p.RawMaterials() {
		s.raw[c] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	s.prepareWorkers()
	if err := s.prepareWorkstations(); err != nil {
		return nil, err
	}
	if err := s.prepareInventories(); err != nil {
		return nil, err
	}
	s.prepareTransports()
	if err := s.prepareChoosers(); err != nil {
		return nil, err
	}
	s.encoder = newActionEncoder(progress.Triples(), ids(s.transports), ids(s.workstations), ids(s.inventories))
	s.flushHistory()
	logrus.Infof("prepared simulation: %d workstations, %d inventories, %d transports, %d operation instances",
		len(s.workstations), len(s.inventories), len(s.transports), len(progress.All()))
	return s, nil
}

func (s *Simulator) prepareWorkers() {
	for _, w := range s.plant.Workers {
		caps := make(map[string]bool, len(w.Capabilities))
		for _, c := range w.Capabilities {
			caps[c] = true
		}
		ws := &WorkerState{ID: w.ID, Capabilities: caps, Status: WorkerIdle}
		s.workers = append(s.workers, ws)
		s.workerByID[w.ID] = ws
	}
}

func (s *Simulator) prepareWorkstations() error {
	for i := range s.plant.Workstations {
		def := &s.plant.Workstations[i]
		ws := &WorkstationState{
			ID:       def.ID,
			Def:      def,
			WIP:      capacity.NewStock(nil),
			staged:   make(map[OpRef]bool),
			credit:   make(map[string]int),
			caps:     make(map[string]bool),
			tools:    make(map[string]bool),
			directTo: make([]string, len(def.OutputBuffers)),
		}
		if def.Machine != "" {
			m, ok := s.plant.Machine(def.Machine)
			if !ok {
				return fmt.Errorf("workstation %q: unknown machine %q", def.ID, def.Machine)
			}
			ws.Machine = m
		}
		for j, b := range def.InputBuffers {
			label := plant.BufferRef{Workstation: def.ID, Index: j + 1}.String()
			ws.Inputs = append(ws.Inputs, newBuffer(label, b.Sizes, b.DiffCompComb, b.Discipline(), nil))
		}
		for j, b := range def.OutputBuffers {
			label := plant.BufferRef{Workstation: def.ID, Output: true, Index: j + 1}.String()
			ws.Outputs = append(ws.Outputs, newBuffer(label, b.Sizes, b.DiffCompComb, b.Discipline(), nil))
		}
		s.potentials(ws)
		for _, t := range def.PermanentTools {
			s.toolPools.Assign(t, ws.ID)
		}
		if def.PermanentWorker != "" {
			s.workerPools.Assign(def.PermanentWorker, ws.ID)
			ws.Worker = def.PermanentWorker
			w := s.workerByID[def.PermanentWorker]
			w.Holder = ws.ID
			w.Location = ws.ID
		}
		s.workstations = append(s.workstations, ws)
		s.wsByID[ws.ID] = ws
	}
	return s.linkIdenticalBuffers()
}

// linkIdenticalBuffers turns an output buffer that is identical to another workstation's input
// buffer into a direct delivery.
func (s *Simulator) linkIdenticalBuffers() error {
	link := func(from *WorkstationState, out int, to plant.BufferRef) error {
		target, ok := s.wsByID[to.Workstation]
		if !ok || to.Output || to.Index < 1 || to.Index > len(target.Inputs) {
			return fmt.Errorf("output buffer %d of %q: identical buffer %s is not an input buffer", out+1, from.ID, to)
		}
		from.Outputs[out] = target.Inputs[to.Index-1]
		from.directTo[out] = target.ID
		return nil
	}
	for _, ws := range s.workstations {
		for j, b := range ws.Def.OutputBuffers {
			ref, ok, err := plant.ParseBufferRef(b.Identical)
			if err != nil {
				return err
			}
			if ok {
				if err := link(ws, j, ref); err != nil {
					return err
				}
			}
		}
		for j, b := range ws.Def.InputBuffers {
			ref, ok, err := plant.ParseBufferRef(b.Identical)
			if err != nil {
				return err
			}
			if !ok || !ref.Output {
				continue
			}
			src, found := s.wsByID[ref.Workstation]
			if !found || ref.Index < 1 || ref.Index > len(src.Outputs) {
				return fmt.Errorf("input buffer %d of %q: unknown identical buffer %s", j+1, ws.ID, ref)
			}
			if err := link(src, ref.Index-1, plant.BufferRef{Workstation: ws.ID, Index: j + 1}); err != nil {
				return err
			}
		}
	}
	return nil
}

// potentials collects the capabilities and tools a workstation could ever offer.
func (s *Simulator) potentials(ws *WorkstationState) {
	if ws.Machine != nil {
		for _, c := range ws.Machine.ProvidedCapabilities {
			ws.caps[c] = true
		}
	}
	addWorker := func(id string) {
		if w, ok := s.workerByID[id]; ok {
			for c := range w.Capabilities {
				ws.caps[c] = true
			}
		}
	}
	for _, pool := range ws.Def.AllowedWorkerPools {
		for _, m := range s.workerPools.Members(pool) {
			addWorker(m)
		}
	}
	if ws.Def.PermanentWorker != "" {
		addWorker(ws.Def.PermanentWorker)
	}
	for _, t := range ws.Def.PermanentTools {
		ws.tools[t] = true
	}
	for _, pool := range ws.Def.AllowedToolPools {
		for _, t := range s.toolPools.Members(pool) {
			if ws.Machine == nil || len(ws.Machine.CompatibleTools) == 0 || contains(ws.Machine.CompatibleTools, t) {
				ws.tools[t] = true
			}
		}
	}
}

func (s *Simulator) prepareInventories() error {
	for _, def := range s.plant.Inventories {
		inv := &InventoryState{ID: def.ID, Kind: def.KindOrDefault()}
		ref, shared, err := plant.ParseBufferRef(def.Identical)
		if err != nil {
			return err
		}
		if shared {
			ws, ok := s.wsByID[ref.Workstation]
			if !ok {
				return fmt.Errorf("inventory %q: unknown workstation %q", def.ID, ref.Workstation)
			}
			list := ws.Inputs
			if ref.Output {
				list = ws.Outputs
			}
			if ref.Index < 1 || ref.Index > len(list) {
				return fmt.Errorf("inventory %q: no buffer %s", def.ID, ref)
			}
			inv.Buffer = list[ref.Index-1]
			inv.SharedWith = ws.ID
			for _, c := range sortedKeys(def.Initial) {
				inv.Buffer.Stock.Add(c, def.Initial[c])
			}
		} else {
			inv.Buffer = newBuffer(def.ID, def.Sizes, def.DiffCompComb, def.Discipline(), def.Initial)
		}
		s.inventories = append(s.inventories, inv)
		s.invByID[inv.ID] = inv
	}
	return nil
}

func (s *Simulator) prepareTransports() {
	for i := range s.plant.Transports {
		m := &s.plant.Transports[i]
		tm := &TransportState{ID: m.ID, Machine: m, Payload: capacity.NewStock(nil), Location: plant.Shopfloor}
		s.transports = append(s.transports, tm)
		s.trByID[tm.ID] = tm
	}
}

func (s *Simulator) prepareChoosers() error {
	for _, cat := range dispatch.Categories {
		name := s.cfg.Heuristics[cat]
		if name == "" {
			continue
		}
		kind, err := dispatch.ParseKind(cat, name)
		if err != nil {
			return err
		}
		ch, err := dispatch.New(cat, kind, s.rng.ForSubsystem(SubsystemDispatch), s.cfg.Rules[cat])
		if err != nil {
			return fmt.Errorf("%s heuristic: %w", cat, err)
		}
		s.choosers[cat] = ch
	}
	return nil
}

// RunUntilDecision handles events until a decision is pending or the end time is reached.
func (s *Simulator) RunUntilDecision() error {
	if s.pending != nil || s.done {
		return nil
	}
	stalled := 0
	last := s.clock
	if !s.bootstrapped {
		s.bootstrap()
	}
	for {
		if s.queue.Len() == 0 {
			if s.bootstrapAt == s.clock {
				return s.finish()
			}
			s.bootstrap()
			if s.queue.Len() == 0 {
				return s.finish()
			}
		}
		ev, ok := s.queue.NextActive()
		if !ok {
			return s.finish()
		}
		at := ev.Timestamp()
		if at < s.clock {
			at = s.clock
		}
		if at >= s.cfg.End {
			return s.finish()
		}
		s.advance(at)
		if at == last {
			stalled++
			if stalled > stallLimit {
				return fmt.Errorf("%w at t=%d: %s", ErrStalled, s.clock, ev.Kind())
			}
		} else {
			stalled, last = 0, at
		}

		logrus.Debugf("<< %s at t=%d", ev.Kind(), s.clock)
		if s.logEvents {
			s.eventLog = append(s.eventLog, fmt.Sprintf("%d %s", s.clock, describe(ev)))
		}
		s.metrics.ObserveEvent(ev.Kind())
		if err := s.handle(ev); err != nil {
			return fmt.Errorf("t=%d %s: %w", s.clock, ev.Kind(), err)
		}
		s.clean()
		s.flushHistory()
		if s.pending != nil {
			return nil
		}
	}
}

func (s *Simulator) finish() error {
	if s.clock < s.cfg.End {
		s.advance(s.cfg.End)
	}
	s.done = true
	s.flushHistory()
	logrus.Infof("simulation finished at t=%d with %d completed operations", s.clock, s.completedOps)
	return nil
}

// advance moves the clock to t and accrues every time-based statistic for the elapsed interval.
func (s *Simulator) advance(t int64) {
	if t < s.clock {
		panic(fmt.Sprintf("advance: clock would move backwards from %d to %d", s.clock, t))
	}
	delta := t - s.clock
	if delta == 0 {
		return
	}
	for _, ws := range s.workstations {
		if ws.Status.Has(WorkstationBusy) {
			ws.BusyTime += delta
			s.metrics.AddBusy(string(history.Workstation), ws.ID, delta)
		}
		if ws.Status.Has(WorkstationSetup) {
			ws.SetupTime += delta
			s.metrics.AddSetup(string(history.Workstation), ws.ID, delta)
		}
	}
	for _, w := range s.workers {
		switch w.Status {
		case WorkerBusy:
			w.BusyTime += delta
			s.metrics.AddBusy(string(history.Worker), w.ID, delta)
		case WorkerSettingUp:
			w.SetupTime += delta
			s.metrics.AddSetup(string(history.Worker), w.ID, delta)
		case WorkerWalking:
			w.WalkTime += delta
		}
	}
	for _, tm := range s.transports {
		switch {
		case tm.Status.Any(TransportMovingToSource | TransportExecuting):
			tm.MovingTime += delta
			tm.RemainingDistance = math.Max(0, tm.RemainingDistance-tm.Machine.Speed*float64(delta))
			s.metrics.AddBusy(string(history.Transport), tm.ID, delta)
		case tm.Status.Any(TransportLoading | TransportUnloading):
			if !tm.Status.Has(TransportIdle) {
				tm.HandlingTime += delta
				s.metrics.AddBusy(string(history.Transport), tm.ID, delta)
			}
		}
	}
	s.clock = t
	s.metrics.SetClock(t)
}

// clean purges requests and markers that no longer need anything.
func (s *Simulator) clean() {
	s.queue.Filter(func(e Event) bool {
		switch ev := e.(type) {
		case *PickupRequest:
			return ev.Quantity <= 0
		case *ToolsRequest:
			return len(ev.Tools) == 0
		case *MaterialsRequest:
			return ev.Quantity <= 0
		}
		return false
	})
}

// flushHistory records every status or fill level that changed since the last flush.
func (s *Simulator) flushHistory() {
	status := func(kind history.Resource, id string, flags []string) {
		key := string(kind) + "/" + id
		joined := fmt.Sprint(flags)
		if s.lastStatus[key] == joined {
			return
		}
		s.lastStatus[key] = joined
		s.sink.RecordStatus(kind, id, s.clock, flags)
	}
	fill := func(b *Buffer) {
		level := b.Fill()
		if prev, ok := s.lastFill[b.Label]; ok && prev == level {
			return
		}
		s.lastFill[b.Label] = level
		s.sink.RecordFill(b.Label, s.clock, level)
		s.metrics.SetFill(b.Label, level)
	}
	for _, ws := range s.workstations {
		status(history.Workstation, ws.ID, ws.Flags())
		for _, b := range ws.Inputs {
			fill(b)
		}
		for i, b := range ws.Outputs {
			if ws.directTo[i] == "" {
				fill(b)
			}
		}
	}
	for _, w := range s.workers {
		status(history.Worker, w.ID, []string{w.Status.String()})
	}
	for _, tm := range s.transports {
		status(history.Transport, tm.ID, tm.Status.Names())
	}
	for _, inv := range s.inventories {
		if inv.SharedWith == "" {
			fill(inv.Buffer)
		}
	}
}

// Done reports whether the simulation reached its end.
func (s *Simulator) Done() bool { return s.done }

// Clock returns the current simulation second.
func (s *Simulator) Clock() int64 { return s.clock }

// Pending returns the open decision, or nil.
func (s *Simulator) Pending() *Decision { return s.pending }

// Recorder returns the in-memory history of the run.
func (s *Simulator) Recorder() *history.Recorder { return s.recorder }

// Err helpers for callers that only need the category of a fatal error.
var errFatal = []error{ErrNoEligibleWorkstation, ErrNoEligibleTransport, ErrNoEligibleWorker, ErrOutputInvariant, ErrNoSourceInventory, ErrNotSupported, ErrStalled}

// IsFatal reports whether err halts the simulation.
func IsFatal(err error) bool {
	for _, f := range errFatal {
		if errors.Is(err, f) {
			return true
		}
	}
	return false
}

func ids[T interface{ id() string }](list []T) []string {
	out := make([]string, len(list))
	for i, x := range list {
		out[i] = x.id()
	}
	return out
}

func (w *WorkstationState) id() string { return w.ID }
func (i *InventoryState) id() string   { return i.ID }
func (t *TransportState) id() string   { return t.ID }
