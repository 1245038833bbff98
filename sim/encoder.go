package sim

import (
	"sort"

	"github.com/institute-of-production-systems/shopsim/sim/dispatch"
)

// skipLabel names the last row and column of the action matrix.
const skipLabel = "skip"

// actionEncoder maps the four decision categories onto one sparse boolean matrix. Rows are operation
// triples, then transport ids, then skip; columns are workstation ids, then inventory ids, then skip.
// A flat action is row*width + col.
type actionEncoder struct {
	rows   []string
	cols   []string
	rowIdx map[string]int
	colIdx map[string]int
	legal  map[int]string // action -> chosen candidate
}

func newActionEncoder(triples, transports, workstations, inventories []string) *actionEncoder {
	e := &actionEncoder{rowIdx: make(map[string]int), colIdx: make(map[string]int), legal: make(map[int]string)}
	for _, group := range [][]string{triples, transports, {skipLabel}} {
		for _, r := range group {
			e.rowIdx[r] = len(e.rows)
			e.rows = append(e.rows, r)
		}
	}
	for _, group := range [][]string{workstations, inventories, {skipLabel}} {
		for _, c := range group {
			e.colIdx[c] = len(e.cols)
			e.cols = append(e.cols, c)
		}
	}
	return e
}

func (e *actionEncoder) width() int { return len(e.cols) }

func (e *actionEncoder) cell(row, col string) int {
	return e.rowIdx[row]*e.width() + e.colIdx[col]
}

// open populates exactly the legal cells of d.
func (e *actionEncoder) open(d *Decision) {
	e.clear()
	switch d.Category {
	case dispatch.WorkstationRouting:
		for _, ws := range d.Candidates {
			e.legal[e.cell(d.Subject, ws)] = ws
		}
	case dispatch.WorkstationSequencing:
		for _, triple := range d.Candidates {
			e.legal[e.cell(triple, d.Subject)] = triple
		}
		if d.SkipAllowed {
			e.legal[e.cell(skipLabel, d.Subject)] = skipLabel
		}
	case dispatch.TransportRouting:
		for _, tm := range d.Candidates {
			e.legal[e.cell(tm, d.Subject)] = tm
		}
	case dispatch.TransportSequencing:
		for _, loc := range d.Candidates {
			e.legal[e.cell(d.Subject, loc)] = loc
		}
		if d.SkipAllowed {
			e.legal[e.cell(d.Subject, skipLabel)] = skipLabel
		}
	}
}

func (e *actionEncoder) clear() {
	for a := range e.legal {
		delete(e.legal, a)
	}
}

// actions returns the legal flat indices in ascending order.
func (e *actionEncoder) actions() []int {
	out := make([]int, 0, len(e.legal))
	for a := range e.legal {
		out = append(out, a)
	}
	sort.Ints(out)
	return out
}

func (e *actionEncoder) decode(action int) (string, bool) {
	c, ok := e.legal[action]
	return c, ok
}

func (e *actionEncoder) label(action int) (row, col string) {
	if action < 0 || action >= len(e.rows)*e.width() {
		return "", ""
	}
	return e.rows[action/e.width()], e.cols[action%e.width()]
}

// ActionSpace returns the dimensions of the action matrix.
func (s *Simulator) ActionSpace() (rows, cols int) {
	return len(s.encoder.rows), len(s.encoder.cols)
}

// Labels returns the row and column labels of a flat action.
func (s *Simulator) Labels(action int) (row, col string) {
	return s.encoder.label(action)
}

// GetLegalActions returns the legal flat actions of the pending decision, or [-1] when none is pending.
func (s *Simulator) GetLegalActions() []int {
	if s.pending == nil {
		return []int{-1}
	}
	return s.encoder.actions()
}
