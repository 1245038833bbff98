// Package dispatch implements the built-in heuristics that resolve decision points without an
// external agent.
//
// Each decision category has a small strategy table of heuristic kinds. A heuristic sees the
// alternatives as Candidate snapshots, sorts them by ID for reproducibility and picks one; ties go to
// the first candidate in sorted order.
package dispatch

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Category is a kind of decision point.
type Category int

const (
	WorkstationRouting Category = iota + 1
	WorkstationSequencing
	TransportRouting
	TransportSequencing
)

// Categories lists every decision category in a stable order.
var Categories = []Category{WorkstationRouting, WorkstationSequencing, TransportRouting, TransportSequencing}

func (c Category) String() string {
	switch c {
	case WorkstationRouting:
		return "workstation-routing"
	case WorkstationSequencing:
		return "workstation-sequencing"
	case TransportRouting:
		return "transport-routing"
	case TransportSequencing:
		return "transport-sequencing"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Kind names a heuristic.
type Kind int

const (
	FIFO   Kind = iota + 1 // first come, first served
	LPT                    // longest processing time
	SPT                    // shortest processing time
	EDF                    // earliest deadline first
	LOR                    // least operations remaining
	MOR                    // most operations remaining
	LQO                    // least queued operations
	LQPO                   // least queued plus in-process operations
	LQT                    // least queued processing time
	CT                     // closest transport
	LQTO                   // least queued transport orders
	CD                     // closest destination
	Random                 // uniform choice
	Expr                   // user rule, highest score wins
)

var kindNames = map[Kind]string{
	FIFO: "FIFO", LPT: "LPT", SPT: "SPT", EDF: "EDF", LOR: "LOR", MOR: "MOR",
	LQO: "LQO", LQPO: "LQPO", LQT: "LQT", CT: "CT", LQTO: "LQTO", CD: "CD",
	Random: "RANDOM", Expr: "EXPR",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// strategies is the per-category strategy table.
var strategies = map[Category][]Kind{
	WorkstationSequencing: {FIFO, LPT, SPT, EDF, LOR, MOR, Random, Expr},
	WorkstationRouting:    {LQO, LQPO, LQT, Random, Expr},
	TransportRouting:      {CT, LQTO, Random, Expr},
	TransportSequencing:   {CD, FIFO, Random, Expr},
}

// ParseKind resolves a heuristic name (case-insensitive) valid for the category.
func ParseKind(cat Category, name string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, k := range strategies[cat] {
		if kindNames[k] == upper {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%s: unknown heuristic %q; valid: %s", cat, name, strings.Join(ValidNames(cat), ", "))
}

// IsValid reports whether name is a heuristic of the category. The empty name is valid and means
// "ask the caller".
func IsValid(cat Category, name string) bool {
	if name == "" {
		return true
	}
	_, err := ParseKind(cat, name)
	return err == nil
}

// ValidNames lists the heuristic names of a category.
func ValidNames(cat Category) []string {
	out := make([]string, 0, len(strategies[cat]))
	for _, k := range strategies[cat] {
		out = append(out, kindNames[k])
	}
	return out
}

// Candidate is a lightweight view of one alternative. Only the fields relevant to the category are set.
type Candidate struct {
	ID             string  // operation label, workstation, transport or location id
	Arrival        int     // queue position, lower arrived earlier
	ProcessingTime int64   // seconds of work of an operation
	Deadline       int64   // deadline of the operation's order
	RemainingOps   int     // operations left in the product instance
	QueuedOps      int     // queued operations, or queued transport orders
	WIPOps         int     // operations in process
	QueuedWork     int64   // seconds of queued work
	Distance       float64 // meters to the pickup or destination
}

// Chooser picks one of several candidates.
type Chooser interface {
	Choose(cands []Candidate) Candidate
}

// New creates a chooser for a category. rng is required for Random; rule for Expr.
func New(cat Category, kind Kind, rng *rand.Rand, rule string) (Chooser, error) {
	valid := false
	for _, k := range strategies[cat] {
		valid = valid || k == kind
	}
	if !valid {
		return nil, fmt.Errorf("%s: heuristic %s is not applicable", cat, kind)
	}
	switch kind {
	case FIFO:
		return argmin(kind, func(c Candidate) float64 { return float64(c.Arrival) }), nil
	case LPT:
		return argmax(kind, func(c Candidate) float64 { return float64(c.ProcessingTime) }), nil
	case SPT:
		return argmin(kind, func(c Candidate) float64 { return float64(c.ProcessingTime) }), nil
	case EDF:
		return argmin(kind, func(c Candidate) float64 { return float64(c.Deadline) }), nil
	case LOR:
		return argmin(kind, func(c Candidate) float64 { return float64(c.RemainingOps) }), nil
	case MOR:
		return argmax(kind, func(c Candidate) float64 { return float64(c.RemainingOps) }), nil
	case LQO, LQTO:
		return argmin(kind, func(c Candidate) float64 { return float64(c.QueuedOps) }), nil
	case LQPO:
		return argmin(kind, func(c Candidate) float64 { return float64(c.QueuedOps + c.WIPOps) }), nil
	case LQT:
		return argmin(kind, func(c Candidate) float64 { return float64(c.QueuedWork) }), nil
	case CT, CD:
		return argmin(kind, func(c Candidate) float64 { return c.Distance }), nil
	case Random:
		if rng == nil {
			return nil, fmt.Errorf("%s: RANDOM needs a random source", cat)
		}
		return &randomChooser{rng: rng}, nil
	case Expr:
		return NewRuleChooser(rule)
	default:
		panic(fmt.Sprintf("unhandled heuristic %s", kind))
	}
}

// Sorted returns a copy of cands ordered by ID.
func Sorted(cands []Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// scoreChooser picks the extremal score; ties go to the first candidate in sorted order.
type scoreChooser struct {
	kind     Kind
	score    func(Candidate) float64
	maximize bool
}

func argmin(kind Kind, f func(Candidate) float64) *scoreChooser {
	return &scoreChooser{kind: kind, score: f}
}

func argmax(kind Kind, f func(Candidate) float64) *scoreChooser {
	return &scoreChooser{kind: kind, score: f, maximize: true}
}

// Choose implements Chooser.
func (s *scoreChooser) Choose(cands []Candidate) Candidate {
	if len(cands) == 0 {
		panic(fmt.Sprintf("%s.Choose: no candidates", s.kind))
	}
	sorted := Sorted(cands)
	best := sorted[0]
	bestScore := s.score(best)
	for _, c := range sorted[1:] {
		v := s.score(c)
		if (s.maximize && v > bestScore) || (!s.maximize && v < bestScore) {
			best, bestScore = c, v
		}
	}
	return best
}

type randomChooser struct {
	rng *rand.Rand
}

// Choose implements Chooser.
func (r *randomChooser) Choose(cands []Candidate) Candidate {
	if len(cands) == 0 {
		panic("RANDOM.Choose: no candidates")
	}
	sorted := Sorted(cands)
	return sorted[r.rng.Intn(len(sorted))]
}
