// Implements the EventQueue, the single ordered list of pending events.
// Events are appended on creation and removed once handled.

package sim

import (
	"fmt"
	"strings"
)

// EventQueue holds every pending event in insertion order. Selection picks the earliest active
// event; among equal timestamps the one nearest the front wins, so insertion order breaks ties.
type EventQueue struct {
	queue []Event
}

// Enqueue adds an event to the back of the queue.
func (q *EventQueue) Enqueue(e Event) {
	if e == nil {
		panic("Enqueue: event must not be nil")
	}
	q.queue = append(q.queue, e)
}

// PrependFront inserts an event at the front of the queue so it wins every timestamp tie.
func (q *EventQueue) PrependFront(e Event) {
	if e == nil {
		panic("PrependFront: event must not be nil")
	}
	q.queue = append([]Event{e}, q.queue...)
}

// Remove deletes e by identity. It reports whether e was queued.
func (q *EventQueue) Remove(e Event) bool {
	for i, x := range q.queue {
		if x == e {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether e is queued.
func (q *EventQueue) Contains(e Event) bool {
	for _, x := range q.queue {
		if x == e {
			return true
		}
	}
	return false
}

// NextActive returns the earliest active event, or false if every queued event is inactive.
func (q *EventQueue) NextActive() (Event, bool) {
	var best Event
	for _, e := range q.queue {
		if !e.Active() {
			continue
		}
		if best == nil || e.Timestamp() < best.Timestamp() {
			best = e
		}
	}
	return best, best != nil
}

// Len returns the number of queued events, active or not.
func (q *EventQueue) Len() int {
	return len(q.queue)
}

// Peek returns the front event without removing it, or nil if the queue is empty.
func (q *EventQueue) Peek() Event {
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[0]
}

// Items returns the queue contents in insertion order. The slice is the queue's internal storage:
// callers may iterate but MUST NOT append to or reslice it.
func (q *EventQueue) Items() []Event {
	return q.queue
}

// Filter removes every event for which drop returns true.
func (q *EventQueue) Filter(drop func(Event) bool) {
	kept := q.queue[:0]
	for _, e := range q.queue {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(q.queue); i++ {
		q.queue[i] = nil
	}
	q.queue = kept
}

func (q *EventQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, e := range q.queue {
		sb.WriteString(fmt.Sprintf("%s@%d", e.Kind(), e.Timestamp()))
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
