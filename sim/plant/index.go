package plant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Machine returns the processing or transport machine with the given id.
func (p *Plant) Machine(id string) (*Machine, bool) {
	for i := range p.Machines {
		if p.Machines[i].ID == id {
			return &p.Machines[i], true
		}
	}
	for i := range p.Transports {
		if p.Transports[i].ID == id {
			return &p.Transports[i], true
		}
	}
	return nil, false
}

// Workstation returns the workstation with the given id.
func (p *Plant) Workstation(id string) (*Workstation, bool) {
	for i := range p.Workstations {
		if p.Workstations[i].ID == id {
			return &p.Workstations[i], true
		}
	}
	return nil, false
}

// Inventory returns the inventory with the given id.
func (p *Plant) Inventory(id string) (*Inventory, bool) {
	for i := range p.Inventories {
		if p.Inventories[i].ID == id {
			return &p.Inventories[i], true
		}
	}
	return nil, false
}

// Worker returns the worker with the given id.
func (p *Plant) Worker(id string) (*Worker, bool) {
	for i := range p.Workers {
		if p.Workers[i].ID == id {
			return &p.Workers[i], true
		}
	}
	return nil, false
}

// Tool returns the tool with the given id.
func (p *Plant) Tool(id string) (*Tool, bool) {
	for i := range p.Tools {
		if p.Tools[i].ID == id {
			return &p.Tools[i], true
		}
	}
	return nil, false
}

// Product returns the product with the given id.
func (p *Plant) Product(id string) (*Product, bool) {
	for i := range p.Products {
		if p.Products[i].ID == id {
			return &p.Products[i], true
		}
	}
	return nil, false
}

// Operation returns the operation template opID of product productID.
func (p *Plant) Operation(productID, opID string) (*Operation, bool) {
	prod, ok := p.Product(productID)
	if !ok {
		return nil, false
	}
	return prod.Operation(opID)
}

// Operation returns the operation template with the given id.
func (pr *Product) Operation(id string) (*Operation, bool) {
	for i := range pr.Operations {
		if pr.Operations[i].ID == id {
			return &pr.Operations[i], true
		}
	}
	return nil, false
}

// WorkerCapabilities returns every capability some worker provides.
func (p *Plant) WorkerCapabilities() map[string]bool {
	out := make(map[string]bool)
	for _, w := range p.Workers {
		for _, c := range w.Capabilities {
			out[c] = true
		}
	}
	return out
}

// MachineCapabilities returns every capability some processing machine provides.
func (p *Plant) MachineCapabilities() map[string]bool {
	out := make(map[string]bool)
	for _, m := range p.Machines {
		for _, c := range m.ProvidedCapabilities {
			out[c] = true
		}
	}
	return out
}

// BufferRef addresses one physical buffer of a workstation.
type BufferRef struct {
	Workstation string
	Output      bool
	Index       int // 1-based
}

func (r BufferRef) String() string {
	dir := "IN"
	if r.Output {
		dir = "OUT"
	}
	return fmt.Sprintf("%s : %s : %d", r.Workstation, dir, r.Index)
}

// ParseBufferRef parses "WS : IN|OUT : idx". The empty string yields ok=false and no error.
func ParseBufferRef(s string) (BufferRef, bool, error) {
	if strings.TrimSpace(s) == "" {
		return BufferRef{}, false, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return BufferRef{}, false, fmt.Errorf("buffer reference %q: want \"WS : IN|OUT : idx\"", s)
	}
	ref := BufferRef{Workstation: strings.TrimSpace(parts[0])}
	switch strings.TrimSpace(parts[1]) {
	case "IN":
	case "OUT":
		ref.Output = true
	default:
		return BufferRef{}, false, fmt.Errorf("buffer reference %q: direction must be IN or OUT", s)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || idx < 1 {
		return BufferRef{}, false, fmt.Errorf("buffer reference %q: index must be a positive integer", s)
	}
	ref.Index = idx
	return ref, true, nil
}

// Buffer resolves a buffer reference.
func (p *Plant) Buffer(ref BufferRef) (*Buffer, bool) {
	ws, ok := p.Workstation(ref.Workstation)
	if !ok {
		return nil, false
	}
	list := ws.InputBuffers
	if ref.Output {
		list = ws.OutputBuffers
	}
	if ref.Index < 1 || ref.Index > len(list) {
		return nil, false
	}
	return &list[ref.Index-1], true
}

// DistanceTable is a symmetric lookup over the plant's distance entries.
type DistanceTable map[[2]string]float64

// DistanceTable indexes the plant's distances.
func (p *Plant) DistanceTable() DistanceTable {
	t := make(DistanceTable, 2*len(p.Distances))
	for _, d := range p.Distances {
		t[[2]string{d.From, d.To}] = d.Meters
		t[[2]string{d.To, d.From}] = d.Meters
	}
	return t
}

// Lookup returns the distance in meters between two locations. An empty origin and identical
// locations are 0 apart; unknown pairs are logged and treated as 0.
func (t DistanceTable) Lookup(from, to string) float64 {
	if from == "" || from == to {
		return 0
	}
	if d, ok := t[[2]string{from, to}]; ok {
		return d
	}
	logrus.Warnf("no distance between %q and %q; assuming 0 m", from, to)
	return 0
}

// Known reports whether the table has an entry for the pair.
func (t DistanceTable) Known(from, to string) bool {
	if from == to {
		return true
	}
	_, ok := t[[2]string{from, to}]
	return ok
}
