package capacity

import (
	"fmt"
	"sort"
	"strings"
)

// Stock is an insertion-ordered multiset of components. The order is what FIFO and LIFO locations
// expose as their head and tail.
type Stock struct {
	order []string
	qty   map[string]int
}

// NewStock creates a Stock, optionally pre-filled in sorted component order.
func NewStock(initial map[string]int) *Stock {
	s := &Stock{qty: make(map[string]int)}
	keys := make([]string, 0, len(initial))
	for k := range initial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Add(k, initial[k])
	}
	return s
}

// Quantity implements Contents.
func (s *Stock) Quantity(component string) int {
	return s.qty[component]
}

// Components implements Contents. Components are returned in insertion order.
func (s *Stock) Components() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Add stores qty more units of component.
func (s *Stock) Add(component string, qty int) {
	if qty < 0 {
		panic(fmt.Sprintf("Stock.Add: negative quantity %d for %q", qty, component))
	}
	if qty == 0 {
		return
	}
	if _, ok := s.qty[component]; !ok {
		s.order = append(s.order, component)
	}
	s.qty[component] += qty
}

// Remove takes qty units of component out. It returns false and leaves the stock unchanged when fewer
// units are stored.
func (s *Stock) Remove(component string, qty int) bool {
	if qty < 0 {
		panic(fmt.Sprintf("Stock.Remove: negative quantity %d for %q", qty, component))
	}
	have := s.qty[component]
	if have < qty {
		return false
	}
	if have == qty {
		delete(s.qty, component)
		for i, c := range s.order {
			if c == component {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return true
	}
	s.qty[component] = have - qty
	return true
}

// Head returns the oldest stored component.
func (s *Stock) Head() (string, bool) {
	if len(s.order) == 0 {
		return "", false
	}
	return s.order[0], true
}

// Tail returns the newest stored component.
func (s *Stock) Tail() (string, bool) {
	if len(s.order) == 0 {
		return "", false
	}
	return s.order[len(s.order)-1], true
}

// Total returns the number of stored units over all components.
func (s *Stock) Total() int {
	n := 0
	for _, q := range s.qty {
		n += q
	}
	return n
}

// Empty reports whether nothing is stored.
func (s *Stock) Empty() bool { return len(s.order) == 0 }

// Clone returns an independent copy.
func (s *Stock) Clone() *Stock {
	c := &Stock{order: make([]string, len(s.order)), qty: make(map[string]int, len(s.qty))}
	copy(c.order, s.order)
	for k, v := range s.qty {
		c.qty[k] = v
	}
	return c
}

// Map returns a copy of the quantities.
func (s *Stock) Map() map[string]int {
	out := make(map[string]int, len(s.qty))
	for k, v := range s.qty {
		out[k] = v
	}
	return out
}

func (s *Stock) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, c := range s.order {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s:%d", c, s.qty[c])
	}
	sb.WriteString("}")
	return sb.String()
}
