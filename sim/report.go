// Aggregates the KPIs of a run: utilization of every resource, order completion and buffer fill.

package sim

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/institute-of-production-systems/shopsim/sim/history"
	"github.com/institute-of-production-systems/shopsim/sim/trace"
)

// ResourceStats holds the accrued timers of one workstation, worker or transport machine.
type ResourceStats struct {
	ID          string  `json:"id"`
	Busy        int64   `json:"busy"`
	Setup       int64   `json:"setup,omitempty"`
	Walking     int64   `json:"walking,omitempty"`
	Moving      int64   `json:"moving,omitempty"`
	Handling    int64   `json:"handling,omitempty"`
	Utilization float64 `json:"utilization"`
}

// OrderStats describes the completion of one order.
type OrderStats struct {
	ID           string `json:"id"`
	Release      int64  `json:"release"`
	Deadline     int64  `json:"deadline"`
	Done         bool   `json:"done"`
	Finish       int64  `json:"finish,omitempty"`
	Makespan     int64  `json:"makespan,omitempty"`
	Tardiness    int64  `json:"tardiness"`
	CriticalPath int64  `json:"critical_path"`
}

// FillStats is the time-weighted fill level of one buffer or inventory.
type FillStats struct {
	Location string  `json:"location"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
}

// Report aggregates the KPIs of a run.
type Report struct {
	Start               int64               `json:"start"`
	Clock               int64               `json:"clock"`
	CompletedOperations int                 `json:"completed_operations"`
	Workstations        []ResourceStats     `json:"workstations"`
	Workers             []ResourceStats     `json:"workers"`
	Transports          []ResourceStats     `json:"transports"`
	Orders              []OrderStats        `json:"orders"`
	Fill                []FillStats         `json:"fill"`
	Decisions           *trace.TraceSummary `json:"decisions,omitempty"`
}

// Report computes the KPIs at the current clock.
func (s *Simulator) Report() *Report {
	r := &Report{Start: s.cfg.Start, Clock: s.clock, CompletedOperations: s.completedOps}
	elapsed := s.clock - s.cfg.Start
	util := func(busy int64) float64 {
		if elapsed <= 0 {
			return 0
		}
		return float64(busy) / float64(elapsed)
	}
	for _, ws := range s.workstations {
		r.Workstations = append(r.Workstations, ResourceStats{
			ID: ws.ID, Busy: ws.BusyTime, Setup: ws.SetupTime, Utilization: util(ws.BusyTime + ws.SetupTime),
		})
	}
	for _, w := range s.workers {
		r.Workers = append(r.Workers, ResourceStats{
			ID: w.ID, Busy: w.BusyTime, Setup: w.SetupTime, Walking: w.WalkTime, Utilization: util(w.BusyTime + w.SetupTime),
		})
	}
	for _, tm := range s.transports {
		r.Transports = append(r.Transports, ResourceStats{
			ID: tm.ID, Busy: tm.MovingTime + tm.HandlingTime, Moving: tm.MovingTime, Handling: tm.HandlingTime,
			Utilization: util(tm.MovingTime + tm.HandlingTime),
		})
	}
	for _, o := range s.plant.Orders {
		st := OrderStats{ID: o.ID, Release: o.Release, Deadline: o.Deadline}
		st.Done, st.Finish = s.progress.OrderDone(o.ID)
		if st.Done {
			st.Makespan = st.Finish - o.Release
			if o.Deadline > 0 && st.Finish > o.Deadline {
				st.Tardiness = st.Finish - o.Deadline
			}
		}
		for prodID := range o.Products {
			pr, ok := s.plant.Product(prodID)
			if !ok {
				continue
			}
			cp, _, err := pr.CriticalPath()
			if err != nil {
				logrus.Warnf("order %s: %v", o.ID, err)
				continue
			}
			st.CriticalPath = max(st.CriticalPath, cp)
		}
		r.Orders = append(r.Orders, st)
	}
	for _, loc := range s.recorder.Locations() {
		mean, std := history.TimeWeighted(s.recorder.Fills(loc), s.cfg.Start, s.clock)
		r.Fill = append(r.Fill, FillStats{Location: loc, Mean: mean, Std: std})
	}
	if s.trace.Enabled() {
		r.Decisions = trace.Summarize(s.trace)
	}
	return r
}

// Print writes a human-readable summary of the report.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Report ===")
	fmt.Fprintf(w, "Clock                : %d s\n", r.Clock)
	fmt.Fprintf(w, "Completed Operations : %d\n", r.CompletedOperations)
	for _, ws := range r.Workstations {
		fmt.Fprintf(w, "Workstation %-12s busy %6d s  setup %6d s  utilization %5.1f%%\n", ws.ID, ws.Busy, ws.Setup, 100*ws.Utilization)
	}
	for _, wk := range r.Workers {
		fmt.Fprintf(w, "Worker      %-12s busy %6d s  setup %6d s  walking %6d s\n", wk.ID, wk.Busy, wk.Setup, wk.Walking)
	}
	for _, tm := range r.Transports {
		fmt.Fprintf(w, "Transport   %-12s moving %6d s  handling %6d s\n", tm.ID, tm.Moving, tm.Handling)
	}
	for _, o := range r.Orders {
		if !o.Done {
			fmt.Fprintf(w, "Order       %-12s open\n", o.ID)
			continue
		}
		fmt.Fprintf(w, "Order       %-12s finished %d s  makespan %d s  tardiness %d s\n", o.ID, o.Finish, o.Makespan, o.Tardiness)
	}
	for _, f := range r.Fill {
		fmt.Fprintf(w, "Fill        %-20s mean %.3f  std %.3f\n", f.Location, f.Mean, f.Std)
	}
	if r.Decisions != nil {
		fmt.Fprintf(w, "Decisions            : %d (%d skipped)\n", r.Decisions.TotalDecisions, r.Decisions.Skips)
	}
}

// WorkstationSnapshot is a read-only view of a workstation.
type WorkstationSnapshot struct {
	ID          string
	Flags       []string
	InputOps    []OpRef
	WIPOps      []OpRef
	Inputs      []map[string]int
	Outputs     []map[string]int
	WIP         map[string]int
	Worker      string
	SeizedTools []string
	ToolsInUse  []string
}

// Workstation returns a snapshot of a workstation.
func (s *Simulator) Workstation(id string) (WorkstationSnapshot, bool) {
	ws, ok := s.wsByID[id]
	if !ok {
		return WorkstationSnapshot{}, false
	}
	snap := WorkstationSnapshot{
		ID:          ws.ID,
		Flags:       ws.Flags(),
		InputOps:    append([]OpRef(nil), ws.InputOps...),
		WIPOps:      append([]OpRef(nil), ws.WIPOps...),
		WIP:         ws.WIP.Map(),
		Worker:      ws.Worker,
		SeizedTools: append([]string(nil), ws.SeizedTools...),
		ToolsInUse:  append([]string(nil), ws.ToolsInUse...),
	}
	for _, b := range ws.Inputs {
		snap.Inputs = append(snap.Inputs, b.Stock.Map())
	}
	for _, b := range ws.Outputs {
		snap.Outputs = append(snap.Outputs, b.Stock.Map())
	}
	return snap, true
}

// TransportSnapshot is a read-only view of a transport machine.
type TransportSnapshot struct {
	ID       string
	Flags    []string
	Location string
	Payload  map[string]int
	Orders   int
	Worker   string
}

// Transport returns a snapshot of a transport machine.
func (s *Simulator) Transport(id string) (TransportSnapshot, bool) {
	tm, ok := s.trByID[id]
	if !ok {
		return TransportSnapshot{}, false
	}
	return TransportSnapshot{
		ID:       tm.ID,
		Flags:    tm.Status.Names(),
		Location: tm.Location,
		Payload:  tm.Payload.Map(),
		Orders:   len(tm.Orders),
		Worker:   tm.Worker,
	}, true
}

// Inventory returns the contents of an inventory.
func (s *Simulator) Inventory(id string) (map[string]int, bool) {
	inv, ok := s.invByID[id]
	if !ok {
		return nil, false
	}
	return inv.Buffer.Stock.Map(), true
}

// Progress returns a copy of the progress record of ref.
func (s *Simulator) Progress(ref OpRef) (OperationProgress, bool) {
	rec, ok := s.progress.Get(ref)
	if !ok {
		return OperationProgress{}, false
	}
	return *rec, true
}

// Operations returns copies of every progress record in creation order.
func (s *Simulator) Operations() []OperationProgress {
	out := make([]OperationProgress, len(s.progress.All()))
	for i, rec := range s.progress.All() {
		out[i] = *rec
	}
	return out
}

// EnableEventLog records a one-line description of every handled event.
func (s *Simulator) EnableEventLog() { s.logEvents = true }

// EventLog returns the handled events as "<clock> <kind> <detail>" lines.
func (s *Simulator) EventLog() []string { return s.eventLog }
