package plant

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// Valid value registries.
var (
	validSequences = map[string]bool{
		"": true, SequenceFIFO: true, SequenceLIFO: true, SequenceFree: true, SequenceSolidRaw: true,
	}
	validInventoryKinds = map[string]bool{
		"": true, InventorySource: true, InventorySink: true, InventoryStorage: true,
	}
	validAllocations = map[string]bool{
		"": true, AllocationOrderAnonymous: true, AllocationOrderSpecific: true,
	}
)

// Validate checks field constraints, references between resources and the precedence graphs.
// It returns the first problem found.
func (p *Plant) Validate() error {
	if err := structValidator.Struct(p); err != nil {
		return formatValidationErrors(err)
	}
	if err := p.validateIDs(); err != nil {
		return err
	}
	if err := p.validateMachines(); err != nil {
		return err
	}
	if err := p.validatePools(); err != nil {
		return err
	}
	if err := p.validateLocations(); err != nil {
		return err
	}
	if err := p.validateProducts(); err != nil {
		return err
	}
	if err := p.validateOrders(); err != nil {
		return err
	}
	for i, s := range p.Supply {
		prefix := fmt.Sprintf("supply[%d]", i)
		if !validAllocations[s.Allocation] {
			return fmt.Errorf("%s: unknown allocation %q; valid: ORDER_ANONYMOUS, ORDER_SPECIFIC", prefix, s.Allocation)
		}
		if !IsValidTimeUnit(s.TimeUnit) {
			return fmt.Errorf("%s: unknown time_unit %q; valid: s, min, h, d", prefix, s.TimeUnit)
		}
	}
	return nil
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating plant definition: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed validation: %s (value: '%v')", e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

func (p *Plant) validateIDs() error {
	groups := []struct {
		kind string
		ids  []string
	}{
		{"machine", append(collect(p.Machines, func(m Machine) string { return m.ID }), collect(p.Transports, func(m Machine) string { return m.ID })...)},
		// workstations and inventories share the location namespace of the distance table
		{"location", append(collect(p.Workstations, func(w Workstation) string { return w.ID }), collect(p.Inventories, func(i Inventory) string { return i.ID })...)},
		{"worker", collect(p.Workers, func(w Worker) string { return w.ID })},
		{"worker pool", collect(p.WorkerPools, func(x Pool) string { return x.ID })},
		{"tool", collect(p.Tools, func(t Tool) string { return t.ID })},
		{"tool pool", collect(p.ToolPools, func(x Pool) string { return x.ID })},
		{"product", collect(p.Products, func(x Product) string { return x.ID })},
		{"order", collect(p.Orders, func(o Order) string { return o.ID })},
	}
	for _, g := range groups {
		seen := make(map[string]bool, len(g.ids))
		for _, id := range g.ids {
			if seen[id] {
				return fmt.Errorf("duplicate %s id %q", g.kind, id)
			}
			if id == Shopfloor {
				return fmt.Errorf("%s id %q is reserved", g.kind, id)
			}
			seen[id] = true
		}
	}
	return nil
}

func (p *Plant) validateMachines() error {
	all := append(append([]Machine{}, p.Machines...), p.Transports...)
	for _, m := range all {
		prefix := fmt.Sprintf("machine %q", m.ID)
		if !IsValidTimeUnit(m.SoftwareSetup.Unit) {
			return fmt.Errorf("%s: unknown software setup unit %q; valid: s, min, h, d", prefix, m.SoftwareSetup.Unit)
		}
		if !IsValidTimeUnit(m.HardwareSetupUnit) {
			return fmt.Errorf("%s: unknown hardware_setup_unit %q; valid: s, min, h, d", prefix, m.HardwareSetupUnit)
		}
		for _, t := range m.CompatibleTools {
			if _, ok := p.Tool(t); !ok {
				return fmt.Errorf("%s: unknown compatible tool %q", prefix, t)
			}
		}
	}
	for _, m := range p.Transports {
		if m.Speed <= 0 {
			return fmt.Errorf("transport %q: speed must be positive, got %f", m.ID, m.Speed)
		}
	}
	for _, t := range p.Tools {
		for name, d := range t.Dynamic {
			if !IsValidTimeUnit(d.TimeUnit) {
				return fmt.Errorf("tool %q property %q: unknown time_unit %q; valid: s, min, h, d", t.ID, name, d.TimeUnit)
			}
			if d.Min > d.Max {
				return fmt.Errorf("tool %q property %q: min %f exceeds max %f", t.ID, name, d.Min, d.Max)
			}
		}
	}
	return nil
}

func (p *Plant) validatePools() error {
	for _, pool := range p.WorkerPools {
		for _, w := range pool.Members {
			if _, ok := p.Worker(w); !ok {
				return fmt.Errorf("worker pool %q: unknown worker %q", pool.ID, w)
			}
		}
	}
	for _, pool := range p.ToolPools {
		for _, t := range pool.Members {
			if _, ok := p.Tool(t); !ok {
				return fmt.Errorf("tool pool %q: unknown tool %q", pool.ID, t)
			}
		}
	}
	return nil
}

func (p *Plant) validateLocations() error {
	for _, ws := range p.Workstations {
		prefix := fmt.Sprintf("workstation %q", ws.ID)
		if ws.Machine != "" {
			found := false
			for _, m := range p.Machines {
				found = found || m.ID == ws.Machine
			}
			if !found {
				return fmt.Errorf("%s: unknown machine %q", prefix, ws.Machine)
			}
		}
		for _, t := range ws.PermanentTools {
			if _, ok := p.Tool(t); !ok {
				return fmt.Errorf("%s: unknown permanent tool %q", prefix, t)
			}
		}
		for _, id := range ws.AllowedToolPools {
			if !hasPool(p.ToolPools, id) {
				return fmt.Errorf("%s: unknown tool pool %q", prefix, id)
			}
		}
		for _, id := range ws.AllowedWorkerPools {
			if !hasPool(p.WorkerPools, id) {
				return fmt.Errorf("%s: unknown worker pool %q", prefix, id)
			}
		}
		if ws.PermanentWorker != "" {
			if _, ok := p.Worker(ws.PermanentWorker); !ok {
				return fmt.Errorf("%s: unknown permanent worker %q", prefix, ws.PermanentWorker)
			}
		}
		buffers := append(append([]Buffer{}, ws.InputBuffers...), ws.OutputBuffers...)
		for i, b := range buffers {
			if !validSequences[b.Sequence] {
				return fmt.Errorf("%s buffer %d: unknown sequence %q; valid: FIFO, LIFO, FREE, SOLID_RAW_MATERIAL", prefix, i+1, b.Sequence)
			}
			if err := p.validateIdentical(b.Identical); err != nil {
				return fmt.Errorf("%s buffer %d: %w", prefix, i+1, err)
			}
		}
	}
	for _, inv := range p.Inventories {
		prefix := fmt.Sprintf("inventory %q", inv.ID)
		if !validInventoryKinds[inv.Kind] {
			return fmt.Errorf("%s: unknown kind %q; valid: SOURCE, SINK, STORAGE", prefix, inv.Kind)
		}
		if !validSequences[inv.Sequence] {
			return fmt.Errorf("%s: unknown sequence %q; valid: FIFO, LIFO, FREE, SOLID_RAW_MATERIAL", prefix, inv.Sequence)
		}
		if err := p.validateIdentical(inv.Identical); err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
		for c, q := range inv.Initial {
			if q < 0 {
				return fmt.Errorf("%s: initial quantity of %q must be non-negative, got %d", prefix, c, q)
			}
		}
	}
	return nil
}

func (p *Plant) validateIdentical(s string) error {
	ref, ok, err := ParseBufferRef(s)
	if err != nil || !ok {
		return err
	}
	if _, found := p.Buffer(ref); !found {
		return fmt.Errorf("identical buffer %q does not exist", s)
	}
	return nil
}

func (p *Plant) validateProducts() error {
	for i := range p.Products {
		pr := &p.Products[i]
		seen := make(map[string]bool, len(pr.Operations))
		for _, op := range pr.Operations {
			if seen[op.ID] {
				return fmt.Errorf("product %q: duplicate operation id %q", pr.ID, op.ID)
			}
			seen[op.ID] = true
			if !IsValidTimeUnit(op.Processing.Unit) {
				return fmt.Errorf("product %q operation %q: unknown processing unit %q; valid: s, min, h, d", pr.ID, op.ID, op.Processing.Unit)
			}
			for c, q := range op.Components {
				if q <= 0 {
					return fmt.Errorf("product %q operation %q: component %q quantity must be positive, got %d", pr.ID, op.ID, c, q)
				}
			}
			for _, t := range sortedToolIDs(op.Tools) {
				if _, ok := p.Tool(t); !ok {
					return fmt.Errorf("product %q operation %q: unknown tool %q", pr.ID, op.ID, t)
				}
			}
		}
		for _, e := range pr.Precedence {
			if !seen[e.From] || !seen[e.To] {
				return fmt.Errorf("product %q: precedence %q -> %q references an unknown operation", pr.ID, e.From, e.To)
			}
		}
		if _, err := pr.TopologicalOrder(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plant) validateOrders() error {
	for _, o := range p.Orders {
		for _, prodID := range sortedKeys(o.Products) {
			if _, ok := p.Product(prodID); !ok {
				return fmt.Errorf("order %q: unknown product %q", o.ID, prodID)
			}
			if o.Products[prodID] <= 0 {
				return fmt.Errorf("order %q: quantity of %q must be positive, got %d", o.ID, prodID, o.Products[prodID])
			}
		}
		if o.Deadline > 0 && o.Deadline < o.Release {
			return fmt.Errorf("order %q: deadline %d precedes release %d", o.ID, o.Deadline, o.Release)
		}
	}
	return nil
}

func hasPool(pools []Pool, id string) bool {
	for _, p := range pools {
		if p.ID == id {
			return true
		}
	}
	return false
}

func collect[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedToolIDs(m map[string]ToolRequirement) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
