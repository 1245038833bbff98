package sim

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/institute-of-production-systems/shopsim/sim/dispatch"
	"github.com/institute-of-production-systems/shopsim/sim/trace"
)

// Decision is an open decision point.
//
// Subject and Candidates depend on the category:
//   - workstation routing: the operation triple, and the eligible workstation ids;
//   - workstation sequencing: the workstation id, and the triples of its alternatives;
//   - transport routing: the pickup location, and the eligible transport ids;
//   - transport sequencing: the transport id, and the pickup locations of its orders.
type Decision struct {
	Category    dispatch.Category
	Subject     string
	Candidates  []string
	SkipAllowed bool

	op       OpRef            // routed operation
	ops      map[string]OpRef // triple -> first queued instance
	delivery *TransportOrder  // routed delivery
}

// decide resolves d with the configured heuristic, resolves a forced choice directly, or leaves d
// pending for the caller.
func (s *Simulator) decide(d *Decision) error {
	if ch, ok := s.choosers[d.Category]; ok {
		chosen := ch.Choose(s.candidates(d)).ID
		s.record(d, chosen, strings.ToUpper(s.cfg.Heuristics[d.Category]))
		return s.resolve(d, chosen)
	}
	if len(d.Candidates) == 1 && !d.SkipAllowed {
		s.record(d, d.Candidates[0], trace.ResolverForced)
		return s.resolve(d, d.Candidates[0])
	}
	s.pending = d
	s.encoder.open(d)
	logrus.Debugf("decision pending: %s for %s among %v (skip=%t)", d.Category, d.Subject, d.Candidates, d.SkipAllowed)
	return nil
}

func (s *Simulator) resolve(d *Decision, chosen string) error {
	switch d.Category {
	case dispatch.WorkstationRouting:
		return s.assign(d.op, s.wsByID[chosen])
	case dispatch.WorkstationSequencing:
		ws := s.wsByID[d.Subject]
		if chosen == skipLabel {
			s.skip(ws)
			return nil
		}
		return s.commit(ws, d.ops[chosen])
	case dispatch.TransportRouting:
		return s.assignTransport(s.trByID[chosen], d.delivery)
	case dispatch.TransportSequencing:
		tm := s.trByID[d.Subject]
		if chosen == skipLabel {
			s.ensureTransportMarker(tm)
			return nil
		}
		return s.startDelivery(tm, chosen)
	default:
		panic(fmt.Sprintf("unhandled decision category %s", d.Category))
	}
}

func (s *Simulator) record(d *Decision, chosen, resolver string) {
	s.metrics.ObserveDecision(d.Category.String(), resolver)
	s.trace.Record(trace.DecisionRecord{
		Clock:      s.clock,
		Category:   d.Category.String(),
		Subject:    d.Subject,
		Chosen:     chosen,
		Candidates: append([]string(nil), d.Candidates...),
		Resolver:   resolver,
	})
	logrus.Debugf("t=%d %s for %s: %s (%s)", s.clock, d.Category, d.Subject, chosen, resolver)
}

// candidates builds the heuristic view of every alternative of d.
func (s *Simulator) candidates(d *Decision) []dispatch.Candidate {
	out := make([]dispatch.Candidate, 0, len(d.Candidates))
	for i, id := range d.Candidates {
		c := dispatch.Candidate{ID: id, Arrival: i}
		switch d.Category {
		case dispatch.WorkstationRouting:
			ws := s.wsByID[id]
			c.QueuedOps = len(ws.InputOps)
			c.WIPOps = len(ws.WIPOps)
			for _, ref := range ws.InputOps {
				c.QueuedWork += s.progress.MustGet(ref).RemainingWork
			}
		case dispatch.WorkstationSequencing:
			ref := d.ops[id]
			c.ProcessingTime = s.progress.MustGet(ref).RemainingWork
			c.RemainingOps = s.progress.RemainingOps(ref)
			for _, o := range s.plant.Orders {
				if o.ID == ref.Order {
					c.Deadline = o.Deadline
				}
			}
		case dispatch.TransportRouting:
			tm := s.trByID[id]
			c.Distance = s.distance(tm.position(), d.Subject)
			c.QueuedOps = len(tm.Orders)
		case dispatch.TransportSequencing:
			tm := s.trByID[d.Subject]
			c.Distance = s.distance(tm.position(), id)
		}
		out = append(out, c)
	}
	return out
}

// SetAction applies a legal action of the pending decision, or -1 to simply continue, and runs until
// the next decision. It returns true once the simulation has finished.
func (s *Simulator) SetAction(action int) (bool, error) {
	if action == -1 {
		if s.pending != nil {
			return false, fmt.Errorf("%w: %s decision for %s is pending", ErrInvalidAction, s.pending.Category, s.pending.Subject)
		}
		err := s.RunUntilDecision()
		return s.done, err
	}
	if s.pending == nil {
		return s.done, fmt.Errorf("%w: action %d", ErrNoDecisionPending, action)
	}
	chosen, ok := s.encoder.decode(action)
	if !ok {
		return false, fmt.Errorf("%w: %d is not legal, legal: %v", ErrInvalidAction, action, s.encoder.actions())
	}
	d := s.pending
	s.pending = nil
	s.encoder.clear()
	s.record(d, chosen, trace.ResolverAgent)
	if err := s.resolve(d, chosen); err != nil {
		return false, err
	}
	s.flushHistory()
	if s.pending != nil {
		return false, nil
	}
	err := s.RunUntilDecision()
	return s.done, err
}

// Suggest returns the legal action the named heuristic would choose for the pending decision. It
// draws from its own generator, so asking never changes the run.
func (s *Simulator) Suggest(heuristic string) (int, error) {
	d := s.pending
	if d == nil {
		return -1, ErrNoDecisionPending
	}
	kind, err := dispatch.ParseKind(d.Category, heuristic)
	if err != nil {
		return -1, err
	}
	ch, err := dispatch.New(d.Category, kind, s.rng.Derive(SubsystemSuggest, s.clock), s.cfg.Rules[d.Category])
	if err != nil {
		return -1, err
	}
	chosen := ch.Choose(s.candidates(d)).ID
	for _, a := range s.encoder.actions() {
		if c, _ := s.encoder.decode(a); c == chosen {
			return a, nil
		}
	}
	return -1, fmt.Errorf("%w: heuristic %s chose %q", ErrInvalidAction, kind, chosen)
}
