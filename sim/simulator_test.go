package sim

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/institute-of-production-systems/shopsim/sim/dispatch"
	"github.com/institute-of-production-systems/shopsim/sim/internal/testutil"
	"github.com/institute-of-production-systems/shopsim/sim/trace"
)

func newTestSim(t *testing.T, fixture string, cfg Config, opts ...Option) *Simulator {
	t.Helper()
	if cfg.End == 0 {
		cfg.End = 1000
	}
	s, err := New(testutil.LoadPlant(t, fixture), cfg, opts...)
	require.NoError(t, err)
	return s
}

func progressOf(t *testing.T, s *Simulator, product string, instance int) OperationProgress {
	t.Helper()
	for _, rec := range s.Operations() {
		if rec.Ref.Product == product && rec.Ref.Instance == instance {
			return rec
		}
	}
	t.Fatalf("no operation of %s #%d", product, instance)
	return OperationProgress{}
}

func indexOf(lines []string, substr string) int {
	for i, l := range lines {
		if strings.Contains(l, substr) {
			return i
		}
	}
	return -1
}

func TestNew_RejectsEmptyHorizon(t *testing.T) {
	_, err := New(testutil.LoadPlant(t, "single"), Config{Start: 10, End: 10})
	assert.Error(t, err)
}

func TestNew_RejectsUnknownHeuristic(t *testing.T) {
	_, err := New(testutil.LoadPlant(t, "single"), Config{
		End:        100,
		Heuristics: map[dispatch.Category]string{dispatch.WorkstationRouting: "SPT"},
	})
	assert.Error(t, err)
}

func TestRunUntilDecision_SingleOperation_RunsWithoutDecisions(t *testing.T) {
	// GIVEN one component-free operation on the only workstation
	s := newTestSim(t, "single", Config{})

	// WHEN the simulation runs
	require.NoError(t, s.RunUntilDecision())

	// THEN it finishes without any decision and the operation is done at t=10
	assert.True(t, s.Done())
	assert.Nil(t, s.Pending())
	assert.Equal(t, []int{-1}, s.GetLegalActions())
	assert.Equal(t, int64(1000), s.Clock())
	rec := progressOf(t, s, "P", 0)
	assert.Equal(t, OpDone, rec.Status)
	assert.Equal(t, int64(0), rec.StartTime)
	assert.Equal(t, int64(10), rec.FinishTime)
	assert.Equal(t, int64(0), rec.RemainingWork)
	assert.Equal(t, "WS1", rec.Location)
}

func TestRunUntilDecision_IdempotentOnceDone(t *testing.T) {
	s := newTestSim(t, "single", Config{})
	require.NoError(t, s.RunUntilDecision())

	require.NoError(t, s.RunUntilDecision())
	done, err := s.SetAction(-1)

	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, int64(1000), s.Clock())
}

func TestRunUntilDecision_StopsAtEnd(t *testing.T) {
	// GIVEN a horizon that ends while the operation is processing
	s := newTestSim(t, "single", Config{End: 4})

	require.NoError(t, s.RunUntilDecision())

	assert.True(t, s.Done())
	assert.Equal(t, int64(4), s.Clock())
	assert.Equal(t, OpProcessing, progressOf(t, s, "P", 0).Status)
	snap, ok := s.Workstation("WS1")
	require.True(t, ok)
	assert.Equal(t, []string{"BUSY"}, snap.Flags)
}

func TestRouting_TwoWorkstations_SurfacesDecision(t *testing.T) {
	// GIVEN one operation two workstations can execute and no routing heuristic
	s := newTestSim(t, "two_stations", Config{})

	// WHEN the simulation runs
	require.NoError(t, s.RunUntilDecision())

	// THEN a routing decision is pending with one legal cell per workstation
	require.NotNil(t, s.Pending())
	assert.False(t, s.Done())
	assert.Equal(t, dispatch.WorkstationRouting, s.Pending().Category)
	assert.Equal(t, []string{"WS1", "WS2"}, s.Pending().Candidates)
	rows, cols := s.ActionSpace()
	assert.Equal(t, 2, rows) // the triple and skip
	assert.Equal(t, 3, cols) // WS1, WS2 and skip
	assert.Equal(t, []int{0, 1}, s.GetLegalActions())
	row, col := s.Labels(1)
	assert.Equal(t, "op1 | P | O1", row)
	assert.Equal(t, "WS2", col)

	// WHEN the legal actions are queried again without acting
	pending, clock := s.Pending(), s.Clock()
	again := s.GetLegalActions()

	// THEN the answer and the simulation are unchanged
	assert.Equal(t, []int{0, 1}, again)
	assert.Same(t, pending, s.Pending())
	assert.Equal(t, clock, s.Clock())

	// WHEN the agent routes to WS2
	done, err := s.SetAction(1)

	// THEN the operation runs there and the simulation finishes
	require.NoError(t, err)
	assert.True(t, done)
	rec := progressOf(t, s, "P", 0)
	assert.Equal(t, "WS2", rec.Location)
	assert.Equal(t, OpDone, rec.Status)
	assert.Equal(t, int64(10), rec.FinishTime)
}

func TestSetAction_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
		action  int
		wantErr error
	}{
		{name: "continue while a decision is pending", fixture: "two_stations", action: -1, wantErr: ErrInvalidAction},
		{name: "illegal cell", fixture: "two_stations", action: 2, wantErr: ErrInvalidAction},
		{name: "out of range", fixture: "two_stations", action: 99, wantErr: ErrInvalidAction},
		{name: "nothing pending", fixture: "single", action: 0, wantErr: ErrNoDecisionPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim(t, tt.fixture, Config{})
			require.NoError(t, s.RunUntilDecision())

			_, err := s.SetAction(tt.action)

			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestSetAction_InvalidActionKeepsDecisionPending(t *testing.T) {
	s := newTestSim(t, "two_stations", Config{})
	require.NoError(t, s.RunUntilDecision())

	_, err := s.SetAction(5)
	require.Error(t, err)

	require.NotNil(t, s.Pending())
	assert.Equal(t, []int{0, 1}, s.GetLegalActions())
}

func TestRouting_Heuristic_ResolvesWithoutAgent(t *testing.T) {
	dt := trace.NewDecisionTrace(trace.TraceLevelDecisions)
	s := newTestSim(t, "two_stations", Config{
		Heuristics: map[dispatch.Category]string{dispatch.WorkstationRouting: "lqo"},
	}, WithTrace(dt))

	require.NoError(t, s.RunUntilDecision())

	assert.True(t, s.Done())
	assert.Equal(t, "WS1", progressOf(t, s, "P", 0).Location)
	require.NotEmpty(t, dt.Decisions)
	assert.Equal(t, "workstation-routing", dt.Decisions[0].Category)
	assert.Equal(t, "LQO", dt.Decisions[0].Resolver)
	assert.Equal(t, "WS1", dt.Decisions[0].Chosen)
}

func TestSuggest_ReturnsHeuristicChoice(t *testing.T) {
	s := newTestSim(t, "two_stations", Config{})
	require.NoError(t, s.RunUntilDecision())

	action, err := s.Suggest("LQO")

	require.NoError(t, err)
	assert.Equal(t, 0, action)
	_, err = s.Suggest("CD")
	assert.Error(t, err)
}

func TestSuggest_LeavesDispatchStreamUntouched(t *testing.T) {
	// GIVEN two identical simulations waiting at the same routing decision
	asked := newTestSim(t, "two_stations", Config{Seed: 5})
	quiet := newTestSim(t, "two_stations", Config{Seed: 5})
	require.NoError(t, asked.RunUntilDecision())
	require.NoError(t, quiet.RunUntilDecision())

	// WHEN only one of them is repeatedly asked for a RANDOM suggestion
	first, err := asked.Suggest("RANDOM")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		a, err := asked.Suggest("RANDOM")
		require.NoError(t, err)
		assert.Equal(t, first, a, "suggestion %d", i)
	}

	// THEN the dispatch stream a configured RANDOM chooser draws from is where it was
	assert.Contains(t, []int{0, 1}, first)
	assert.Equal(t, quiet.rng.ForSubsystem(SubsystemDispatch).Int63(), asked.rng.ForSubsystem(SubsystemDispatch).Int63())
}

func TestSequencing_FIFOHeadRestrictsAlternatives(t *testing.T) {
	// GIVEN PA (needs b) queued before PB (needs a) behind a FIFO buffer whose head is a,
	// and a maintenance window so that both are queued when sequencing happens
	s := newTestSim(t, "fifo_head", Config{})
	require.NoError(t, s.Maintain("WS1", 5))

	// WHEN the simulation runs
	require.NoError(t, s.RunUntilDecision())

	// THEN PB goes first without a decision, then PA
	assert.True(t, s.Done())
	assert.Equal(t, int64(15), progressOf(t, s, "PB", 1).FinishTime)
	assert.Equal(t, int64(25), progressOf(t, s, "PA", 0).FinishTime)
	inv, ok := s.Inventory("SHELF")
	require.True(t, ok)
	assert.Empty(t, inv)
}

func TestSequencing_FreeBuffer_SurfacesDecision(t *testing.T) {
	// GIVEN two queued operations behind a FREE buffer
	s := newTestSim(t, "free_choice", Config{})
	require.NoError(t, s.Maintain("WS1", 5))

	require.NoError(t, s.RunUntilDecision())

	// THEN a sequencing decision is pending once maintenance is over; skipping is not allowed
	// because sequencing was postponed
	d := s.Pending()
	require.NotNil(t, d)
	assert.Equal(t, int64(5), s.Clock())
	assert.Equal(t, dispatch.WorkstationSequencing, d.Category)
	assert.Equal(t, "WS1", d.Subject)
	assert.False(t, d.SkipAllowed)
	assert.Equal(t, []int{0, 3}, s.GetLegalActions())
	row, col := s.Labels(3)
	assert.Equal(t, "cut | PB | O1", row)
	assert.Equal(t, "WS1", col)

	// WHEN the agent picks PB
	done, err := s.SetAction(3)

	// THEN PB runs first
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, int64(25), progressOf(t, s, "PB", 1).FinishTime)
	assert.Equal(t, int64(35), progressOf(t, s, "PA", 0).FinishTime)
}

func TestSequencing_SPTHeuristic(t *testing.T) {
	dt := trace.NewDecisionTrace(trace.TraceLevelDecisions)
	s := newTestSim(t, "free_choice", Config{
		Heuristics: map[dispatch.Category]string{dispatch.WorkstationSequencing: "SPT"},
	}, WithTrace(dt))
	require.NoError(t, s.Maintain("WS1", 5))

	require.NoError(t, s.RunUntilDecision())

	assert.True(t, s.Done())
	assert.Equal(t, int64(15), progressOf(t, s, "PA", 0).FinishTime)
	assert.Equal(t, int64(35), progressOf(t, s, "PB", 1).FinishTime)
	// the choice between both and the remaining single alternative
	summary := trace.Summarize(dt)
	assert.Equal(t, 2, summary.ByResolver["SPT"])
	assert.Equal(t, 0, summary.Skips)
}

func TestBatch_OvenCommitsLargestAdmissibleBatch(t *testing.T) {
	// GIVEN five units for an oven that bakes at most four, released while it is in maintenance
	tests := []struct {
		name       string
		end        int64
		processing int
		assigned   int
	}{
		{name: "during the first batch", end: 130, processing: 4, assigned: 1},
		{name: "after both batches", end: 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim(t, "oven", Config{End: tt.end})
			require.NoError(t, s.Maintain("WS1", 100))

			require.NoError(t, s.RunUntilDecision())

			counts := make(map[OpStatus]int)
			for _, rec := range s.Operations() {
				counts[rec.Status]++
			}
			if tt.processing > 0 {
				assert.Equal(t, tt.processing, counts[OpProcessing])
				assert.Equal(t, tt.assigned, counts[OpAssigned])
				return
			}
			assert.Equal(t, 5, counts[OpDone])
			for i := 0; i < 4; i++ {
				assert.Equal(t, int64(160), progressOf(t, s, "P", i).FinishTime)
			}
			assert.Equal(t, int64(220), progressOf(t, s, "P", 4).FinishTime)
		})
	}
}

const steppedOvenPlant = `
machines:
  - id: OVEN
    batch: true
    batch_sizes:
      - {pattern: "*", min: 2, max: 10, step: 2}
workstations:
  - id: WS1
    machine: OVEN
products:
  - id: P
    operations:
      - id: bake
        processing: {value: 1, unit: min}
orders:
  - id: O1
    products: {P: 5}
`

func TestBatch_StepLeavesRemainderQueued(t *testing.T) {
	// GIVEN five queued units for an oven taking even batches of 2 to 10
	s, err := New(testutil.ParsePlant(t, steppedOvenPlant), Config{End: 1000})
	require.NoError(t, err)
	require.NoError(t, s.Maintain("WS1", 100))

	// WHEN the run ends
	require.NoError(t, s.RunUntilDecision())

	// THEN only the largest even prefix was baked and the odd unit never forms a batch
	counts := make(map[OpStatus]int)
	for _, rec := range s.Operations() {
		counts[rec.Status]++
	}
	assert.Equal(t, 4, counts[OpDone])
	assert.Equal(t, 1, counts[OpAssigned])
	for i := 0; i < 4; i++ {
		assert.Equal(t, int64(160), progressOf(t, s, "P", i).FinishTime)
	}
	assert.Nil(t, s.Pending())
	assert.False(t, s.Report().Orders[0].Done)
}

func TestSharedInventory_ConsumedInPlace(t *testing.T) {
	// GIVEN a shelf that is the input buffer of WS1, holding one press worth of blanks
	s := newTestSim(t, "shared_shelf", Config{})

	require.NoError(t, s.RunUntilDecision())

	// THEN every press runs back to back with immediate resupply and no transport
	assert.True(t, s.Done())
	assert.Nil(t, s.Pending())
	for i, want := range []int64{10, 20, 30} {
		assert.Equal(t, want, progressOf(t, s, "P", i).FinishTime, "instance %d", i)
	}
	inv, _ := s.Inventory("SHELF")
	assert.Empty(t, inv)
}

func TestSharedInventory_FillNeverExceedsCapacity(t *testing.T) {
	// GIVEN the shared shelf with every fill sample captured
	sink := newCaptureSink()
	s := newTestSim(t, "shared_shelf", Config{}, WithHistory(sink))

	require.NoError(t, s.RunUntilDecision())

	// THEN no buffer ever held more than it can
	require.NotEmpty(t, sink.fills)
	for loc, levels := range sink.fills {
		for _, l := range levels {
			assert.LessOrEqual(t, l, 1.0+1e-9, "fill of %s", loc)
		}
	}
}

func TestSharedInventory_OverflowWaitsForSpaceThenArrivesOnce(t *testing.T) {
	// GIVEN the full shared shelf and a resupply of two blanks
	s := newTestSim(t, "shared_shelf", Config{})
	shelf, ws := s.invByID["SHELF"], s.wsByID["WS1"]
	arrival := &RawMaterialArrival{eventBase: stamp(0), Inventory: "SHELF", Components: map[string]int{"blank": 2}}
	s.queue.Enqueue(arrival)

	// WHEN the arrival is handled
	require.NoError(t, s.handleRawMaterialArrival(arrival))

	// THEN it overflows, stays queued inactive and nothing is stored
	assert.True(t, arrival.Overflow)
	assert.False(t, arrival.Active())
	assert.True(t, s.queue.Contains(arrival))
	assert.Equal(t, 2, shelf.Buffer.Stock.Quantity("blank"))
	assert.InDelta(t, 1.0, shelf.Buffer.Fill(), 1e-9)

	// WHEN the press stages the blanks it holds
	shelf.Buffer.Take("blank", 2)
	s.spaceFreed(ws)

	// THEN the arrival is active again
	assert.False(t, arrival.Overflow)
	assert.True(t, arrival.Active())

	// WHEN it is handled again
	require.NoError(t, s.handleRawMaterialArrival(arrival))

	// THEN its contents are stored exactly once and it leaves the queue
	assert.False(t, s.queue.Contains(arrival))
	assert.Equal(t, 2, shelf.Buffer.Stock.Quantity("blank"))
	assert.InDelta(t, 1.0, shelf.Buffer.Fill(), 1e-9)
}

const steppedShelfPlant = `
workstations:
  - id: WS1
    input_buffers:
      - sizes:
          - {pattern: "blank", max: 4, step: 2}
inventories:
  - id: SHELF
    kind: SOURCE
    identical: "WS1 : IN : 1"
products:
  - id: P
    operations:
      - id: press
        components: {blank: 1}
        processing: {value: 10, unit: s}
orders:
  - id: O1
    products: {P: 2}
`

func TestSharedInventory_SteppedLotServesLaterRequests(t *testing.T) {
	// GIVEN an empty shared shelf resupplied in pairs and two presses needing one blank each
	s, err := New(testutil.ParsePlant(t, steppedShelfPlant), Config{End: 1000, Heuristics: map[dispatch.Category]string{
		dispatch.WorkstationRouting:    "LQO",
		dispatch.WorkstationSequencing: "FIFO",
	}})
	require.NoError(t, err)
	s.EnableEventLog()

	require.NoError(t, s.RunUntilDecision())

	// THEN one pair is ordered, each press reserves only its own blank, and nothing stays promised
	arrivals := 0
	for _, line := range s.EventLog() {
		if strings.Contains(line, "RawMaterialArrival SHELF") {
			arrivals++
		}
	}
	assert.Equal(t, 1, arrivals, "log: %v", s.EventLog())
	assert.Equal(t, int64(10), progressOf(t, s, "P", 0).FinishTime)
	assert.Equal(t, int64(20), progressOf(t, s, "P", 1).FinishTime)
	shelf := s.invByID["SHELF"]
	assert.True(t, shelf.Buffer.Stock.Empty())
	assert.Empty(t, shelf.Buffer.reserved)
}

const laggingSupplyPlant = `
workstations:
  - id: WS1
    input_buffers:
      - {}
inventories:
  - id: RAW
    kind: SOURCE
    identical: "WS1 : IN : 1"
products:
  - id: P
    operations:
      - id: turn
        components: {bar: 1}
        processing: {value: 10, unit: s}
orders:
  - id: O1
    products: {P: 1}
supply:
  - component: bar
    min: 50
    time_unit: s
`

func TestSupply_LeadTimeDelaysProcessing(t *testing.T) {
	// GIVEN an empty source shared with WS1 whose supplier needs 50 s
	s, err := New(testutil.ParsePlant(t, laggingSupplyPlant), Config{End: 1000})
	require.NoError(t, err)

	require.NoError(t, s.RunUntilDecision())

	// THEN the bar arrives at 50, is consumed at once, and nothing is ordered twice
	rec := progressOf(t, s, "P", 0)
	assert.Equal(t, int64(50), rec.StartTime)
	assert.Equal(t, int64(60), rec.FinishTime)
	inv, _ := s.Inventory("RAW")
	assert.Empty(t, inv)
}

func TestWorker_WalksInAndIsReleased(t *testing.T) {
	// GIVEN a manual workstation that needs a welder from a pool, and an order released at t=5
	s := newTestSim(t, "welding", Config{})

	require.NoError(t, s.RunUntilDecision())

	rec := progressOf(t, s, "P", 0)
	assert.Equal(t, int64(5), rec.StartTime)
	assert.Equal(t, int64(35), rec.FinishTime)
	w := s.workerByID["W1"]
	assert.Equal(t, int64(30), w.BusyTime)
	assert.Equal(t, WorkerIdle, w.Status)
	assert.Equal(t, "", w.Holder)
	_, held := s.workerPools.Holder("W1")
	assert.False(t, held)
	snap, _ := s.Workstation("WS1")
	assert.Equal(t, "", snap.Worker)
}

func TestTransport_TiesGoToFirstMachine(t *testing.T) {
	// GIVEN two idle carts at equal distance and two deliveries from RAW
	s := newTestSim(t, "two_carts", Config{Heuristics: map[dispatch.Category]string{
		dispatch.WorkstationRouting: "LQO",
		dispatch.TransportRouting:   "LQTO",
	}})
	s.EnableEventLog()

	require.NoError(t, s.RunUntilDecision())

	// THEN T1 serves WS1 and T2 serves WS2, in that order
	log := s.EventLog()
	t1Raw, t2Raw := indexOf(log, "TransportArrival T1@RAW"), indexOf(log, "TransportArrival T2@RAW")
	t1WS, t2WS := indexOf(log, "TransportArrival T1@WS1"), indexOf(log, "TransportArrival T2@WS2")
	require.NotEqual(t, -1, t1Raw, "log: %v", log)
	require.NotEqual(t, -1, t2Raw, "log: %v", log)
	assert.Less(t, t1Raw, t2Raw)
	assert.Less(t, t1WS, t2WS)
	for i := 0; i < 2; i++ {
		rec := progressOf(t, s, "P", i)
		assert.Equal(t, OpDone, rec.Status)
		assert.Equal(t, int64(10), rec.FinishTime)
	}
	inv, _ := s.Inventory("RAW")
	assert.Empty(t, inv)
	tm, ok := s.Transport("T1")
	require.True(t, ok)
	assert.Empty(t, tm.Payload)
	assert.Equal(t, 0, tm.Orders)
}

func TestDeterminism_SameSeedSameRun(t *testing.T) {
	cfg := Config{Seed: 7, Heuristics: map[dispatch.Category]string{
		dispatch.WorkstationRouting:    "RANDOM",
		dispatch.WorkstationSequencing: "RANDOM",
		dispatch.TransportRouting:      "RANDOM",
		dispatch.TransportSequencing:   "RANDOM",
	}}
	run := func() []string {
		s := newTestSim(t, "two_carts", cfg)
		s.EnableEventLog()
		require.NoError(t, s.RunUntilDecision())
		return s.EventLog()
	}

	first, second := run(), run()

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

const weldingWithoutWelder = `
workstations:
  - id: WS1
products:
  - id: P
    operations:
      - id: weld
        capabilities: [weld]
        processing: {value: 10, unit: s}
orders:
  - id: O1
    products: {P: 1}
`

const rawWithoutSource = `
workstations:
  - id: WS1
    input_buffers:
      - {}
products:
  - id: P
    operations:
      - id: turn
        components: {bar: 1}
        processing: {value: 10, unit: s}
orders:
  - id: O1
    products: {P: 1}
`

const deliveryWithoutTransport = `
workstations:
  - id: WS1
    input_buffers:
      - {}
inventories:
  - id: RAW
    kind: SOURCE
    initial: {bar: 1}
products:
  - id: P
    operations:
      - id: turn
        components: {bar: 1}
        processing: {value: 10, unit: s}
orders:
  - id: O1
    products: {P: 1}
`

func TestRunUntilDecision_FatalConditions(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{name: "no workstation provides the capability", yaml: weldingWithoutWelder, wantErr: ErrNoEligibleWorkstation},
		{name: "raw material without source", yaml: rawWithoutSource, wantErr: ErrNoSourceInventory},
		{name: "delivery without transport machine", yaml: deliveryWithoutTransport, wantErr: ErrNoEligibleTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(testutil.ParsePlant(t, tt.yaml), Config{End: 1000})
			require.NoError(t, err)

			err = s.RunUntilDecision()

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, IsFatal(err))
		})
	}
}

func TestMaintain_UnknownWorkstation(t *testing.T) {
	s := newTestSim(t, "single", Config{})
	assert.Error(t, s.Maintain("nope", 10))
	assert.Error(t, s.Breakdown("nope", 10))
}

func TestBreakdown_DelaysStart(t *testing.T) {
	s := newTestSim(t, "single", Config{})
	require.NoError(t, s.Breakdown("WS1", 40))

	snap, _ := s.Workstation("WS1")
	assert.Equal(t, []string{"ERROR", "REPAIR"}, snap.Flags)
	require.NoError(t, s.RunUntilDecision())

	rec := progressOf(t, s, "P", 0)
	assert.Equal(t, int64(40), rec.StartTime)
	assert.Equal(t, int64(50), rec.FinishTime)
}
