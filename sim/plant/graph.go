package plant

import (
	"fmt"
	"sort"
)

// Predecessors returns the operations that must finish before opID, in declaration order.
func (pr *Product) Predecessors(opID string) []string {
	set := make(map[string]bool)
	for _, e := range pr.Precedence {
		if e.To == opID {
			set[e.From] = true
		}
	}
	return pr.inDeclarationOrder(set)
}

// Successors returns the operations that wait for opID, in declaration order.
func (pr *Product) Successors(opID string) []string {
	set := make(map[string]bool)
	for _, e := range pr.Precedence {
		if e.From == opID {
			set[e.To] = true
		}
	}
	return pr.inDeclarationOrder(set)
}

// OutputOf returns the component produced by opID. Unnamed outputs are the product itself for an
// operation without successors and "<product>.<op>" otherwise.
func (pr *Product) OutputOf(opID string) string {
	op, ok := pr.Operation(opID)
	if ok && op.Output != "" {
		return op.Output
	}
	if len(pr.Successors(opID)) == 0 {
		return pr.ID
	}
	return pr.ID + "." + opID
}

// TopologicalOrder orders the operations so that every predecessor comes first (Kahn's algorithm;
// ready operations are taken in declaration order). It fails if the precedence graph has a cycle.
func (pr *Product) TopologicalOrder() ([]string, error) {
	indeg := make(map[string]int, len(pr.Operations))
	for _, op := range pr.Operations {
		indeg[op.ID] = 0
	}
	for _, e := range pr.Precedence {
		indeg[e.To]++
	}
	var order []string
	done := make(map[string]bool, len(pr.Operations))
	for len(order) < len(pr.Operations) {
		progressed := false
		for _, op := range pr.Operations {
			if done[op.ID] || indeg[op.ID] > 0 {
				continue
			}
			done[op.ID] = true
			order = append(order, op.ID)
			for _, s := range pr.Successors(op.ID) {
				indeg[s]--
			}
			progressed = true
		}
		if !progressed {
			var stuck []string
			for _, op := range pr.Operations {
				if !done[op.ID] {
					stuck = append(stuck, op.ID)
				}
			}
			return nil, fmt.Errorf("product %q: precedence graph has a cycle through %v", pr.ID, stuck)
		}
	}
	return order, nil
}

// CriticalPath returns the longest processing-time path through the precedence graph and its length
// in seconds.
func (pr *Product) CriticalPath() (int64, []string, error) {
	order, err := pr.TopologicalOrder()
	if err != nil {
		return 0, nil, err
	}
	dist := make(map[string]int64, len(order))
	prev := make(map[string]string, len(order))
	var end string
	var best int64 = -1
	for _, id := range order {
		op, _ := pr.Operation(id)
		secs, err := op.Processing.Seconds()
		if err != nil {
			return 0, nil, fmt.Errorf("product %q operation %q: %w", pr.ID, id, err)
		}
		var start int64
		for _, p := range pr.Predecessors(id) {
			if prev[id] == "" || dist[p] > start {
				start = dist[p]
				prev[id] = p
			}
		}
		dist[id] = start + secs
		if dist[id] > best {
			best = dist[id]
			end = id
		}
	}
	var path []string
	for id := end; id != ""; id = prev[id] {
		path = append([]string{id}, path...)
	}
	return best, path, nil
}

// RawMaterials returns the components consumed by some operation but produced by none, sorted.
func (p *Plant) RawMaterials() []string {
	produced := make(map[string]bool)
	for i := range p.Products {
		pr := &p.Products[i]
		for _, op := range pr.Operations {
			produced[pr.OutputOf(op.ID)] = true
		}
	}
	set := make(map[string]bool)
	for _, pr := range p.Products {
		for _, op := range pr.Operations {
			for c := range op.Components {
				if !produced[c] {
					set[c] = true
				}
			}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (pr *Product) inDeclarationOrder(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for _, op := range pr.Operations {
		if set[op.ID] {
			out = append(out, op.ID)
		}
	}
	return out
}
