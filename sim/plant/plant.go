// Package plant holds the static production-system definition: resources, products with their
// operation precedence graphs, orders, supply behaviours and the distance table.
//
// A Plant is loaded once (LoadPlant) and validated (Validate) before a simulation is prepared. It is never
// mutated by the simulator; all live state lives in package sim.
package plant

import "github.com/institute-of-production-systems/shopsim/sim/capacity"

// NoTool is the setup-matrix key standing for an empty tool slot.
const NoTool = "No tool"

// Shopfloor is the location of a transport machine that has not arrived anywhere yet.
const Shopfloor = "Shopfloor"

// Plant is the top-level static definition.
type Plant struct {
	Name         string            `yaml:"name"`
	Machines     []Machine         `yaml:"machines" validate:"dive"`
	Transports   []Machine         `yaml:"transports" validate:"dive"`
	Workstations []Workstation     `yaml:"workstations" validate:"required,min=1,dive"`
	Inventories  []Inventory       `yaml:"inventories" validate:"dive"`
	Workers      []Worker          `yaml:"workers" validate:"dive"`
	WorkerPools  []Pool            `yaml:"worker_pools" validate:"dive"`
	Tools        []Tool            `yaml:"tools" validate:"dive"`
	ToolPools    []Pool            `yaml:"tool_pools" validate:"dive"`
	Products     []Product         `yaml:"products" validate:"dive"`
	Orders       []Order           `yaml:"orders" validate:"dive"`
	Supply       []SupplyBehaviour `yaml:"supply" validate:"dive"`
	Distances    []Distance        `yaml:"distances" validate:"dive"`
}

// Machine is a processing or transport machine.
type Machine struct {
	ID                    string                        `yaml:"id" validate:"required"`
	ProvidedCapabilities  []string                      `yaml:"provided_capabilities"`
	AcceptedCapabilities  []string                      `yaml:"accepted_capabilities"` // worker capabilities needed to operate it
	CompatibleTools       []string                      `yaml:"compatible_tools"`
	SoftwareSetup         Duration                      `yaml:"software_setup"`
	SoftwareSetupParallel bool                          `yaml:"software_setup_parallel"`
	HardwareSetupUnit     string                        `yaml:"hardware_setup_unit"`
	HardwareSetupParallel bool                          `yaml:"hardware_setup_parallel"`
	SetupMatrix           map[string]map[string]float64 `yaml:"setup_matrix"` // [from tool][to tool] in HardwareSetupUnit
	ToolSlots             map[string]string             `yaml:"tool_slots"`   // tool -> slot
	Batch                 bool                          `yaml:"batch"`
	BatchSizes            capacity.Table                `yaml:"batch_sizes" validate:"dive"`
	DiffCompBatch         bool                          `yaml:"diff_comp_batch"`
	Speed                 float64                       `yaml:"speed" validate:"gte=0"` // m/s, transports only
}

// Workstation is a place where operations execute.
type Workstation struct {
	ID                 string   `yaml:"id" validate:"required"`
	Machine            string   `yaml:"machine"` // empty for a manual workstation
	PermanentTools     []string `yaml:"permanent_tools"`
	AllowedToolPools   []string `yaml:"allowed_tool_pools"`
	AllowedWorkerPools []string `yaml:"allowed_worker_pools"`
	PermanentWorker    string   `yaml:"permanent_worker"`
	InputBuffers       []Buffer `yaml:"input_buffers" validate:"dive"`
	OutputBuffers      []Buffer `yaml:"output_buffers" validate:"dive"`
}

// Sequence disciplines of buffers and inventories.
const (
	SequenceFIFO             = "FIFO"
	SequenceLIFO             = "LIFO"
	SequenceFree             = "FREE"
	SequenceSolidRaw         = "SOLID_RAW_MATERIAL"
	InventorySource          = "SOURCE"
	InventorySink            = "SINK"
	InventoryStorage         = "STORAGE"
	AllocationOrderAnonymous = "ORDER_ANONYMOUS"
	AllocationOrderSpecific  = "ORDER_SPECIFIC"
)

// Buffer is a physical input or output buffer of a workstation.
type Buffer struct {
	Sequence     string         `yaml:"sequence"`
	DiffCompComb bool           `yaml:"diff_comp_comb"`
	Sizes        capacity.Table `yaml:"sizes" validate:"dive"`
	// Identical names another workstation's buffer that is physically the same place,
	// formatted "WS : IN|OUT : idx" with a 1-based idx.
	Identical string `yaml:"identical"`
}

// Inventory is a shop-floor storage location.
type Inventory struct {
	ID           string         `yaml:"id" validate:"required"`
	Kind         string         `yaml:"kind"`
	Sequence     string         `yaml:"sequence"`
	DiffCompComb bool           `yaml:"diff_comp_comb"`
	Sizes        capacity.Table `yaml:"sizes" validate:"dive"`
	Identical    string         `yaml:"identical"`
	Initial      map[string]int `yaml:"initial"`
}

// Worker is a person with capabilities.
type Worker struct {
	ID           string   `yaml:"id" validate:"required"`
	Capabilities []string `yaml:"capabilities"`
}

// Pool groups workers or tools that are shared between workstations.
type Pool struct {
	ID      string   `yaml:"id" validate:"required"`
	Members []string `yaml:"members"`
}

// Tool carries static properties and dynamic properties that change with setup and wear.
type Tool struct {
	ID      string                     `yaml:"id" validate:"required"`
	Static  map[string]float64         `yaml:"static"`
	Dynamic map[string]DynamicProperty `yaml:"dynamic"`
}

// DynamicProperty bounds a live tool property and prices changing it.
type DynamicProperty struct {
	Min             float64 `yaml:"min"`
	Max             float64 `yaml:"max"`
	Unit            string  `yaml:"unit"`
	TimePerUnitUp   float64 `yaml:"time_per_unit_up" validate:"gte=0"`
	TimePerUnitDown float64 `yaml:"time_per_unit_down" validate:"gte=0"`
	TimeUnit        string  `yaml:"time_unit"`
}

// Range is a required property interval.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Effect changes a property by v' = v + A*v^B + C per operation.
type Effect struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	C float64 `yaml:"c"`
}

// ToolRequirement states what an operation expects of a tool and what it does to it.
type ToolRequirement struct {
	Requirements map[string]Range  `yaml:"requirements"`
	Effects      map[string]Effect `yaml:"effects"`
}

// Operation is an immutable operation template shared by all instances of a product.
type Operation struct {
	ID           string                     `yaml:"id" validate:"required"`
	Type         string                     `yaml:"type"`
	Components   map[string]int             `yaml:"components"`
	Capabilities []string                   `yaml:"capabilities"`
	Tools        map[string]ToolRequirement `yaml:"tools"`
	Processing   Duration                   `yaml:"processing"`
	Output       string                     `yaml:"output"`
}

// Edge is a precedence constraint: From must finish before To starts.
type Edge struct {
	From string `yaml:"from" validate:"required"`
	To   string `yaml:"to" validate:"required"`
}

// Product is a manufacturing recipe.
type Product struct {
	ID         string      `yaml:"id" validate:"required"`
	Operations []Operation `yaml:"operations" validate:"required,min=1,dive"`
	Precedence []Edge      `yaml:"precedence" validate:"dive"`
}

// Order requests quantities of products within a time window.
type Order struct {
	ID       string         `yaml:"id" validate:"required"`
	Products map[string]int `yaml:"products" validate:"required,min=1"`
	Release  int64          `yaml:"release" validate:"gte=0"`
	Deadline int64          `yaml:"deadline" validate:"gte=0"`
}

// SupplyBehaviour models the lead time of raw materials matching Component.
type SupplyBehaviour struct {
	Component            string  `yaml:"component" validate:"required"`
	Allocation           string  `yaml:"allocation"`
	ImmediateProbability float64 `yaml:"immediate_probability" validate:"gte=0,lte=1"`
	Min                  float64 `yaml:"min" validate:"gte=0"`
	Alpha                float64 `yaml:"alpha" validate:"gte=0"`
	Beta                 float64 `yaml:"beta" validate:"gte=0"`
	TimeUnit             string  `yaml:"time_unit"`
}

// Distance is an undirected distance-table entry in meters.
type Distance struct {
	From   string  `yaml:"from" validate:"required"`
	To     string  `yaml:"to" validate:"required"`
	Meters float64 `yaml:"meters" validate:"gte=0"`
}

// Discipline returns the buffer's sequence discipline, FREE when unset.
func (b Buffer) Discipline() string {
	if b.Sequence == "" {
		return SequenceFree
	}
	return b.Sequence
}

// Discipline returns the inventory's sequence discipline, FREE when unset.
func (inv Inventory) Discipline() string {
	if inv.Sequence == "" {
		return SequenceFree
	}
	return inv.Sequence
}

// KindOrDefault returns the inventory kind, STORAGE when unset.
func (inv Inventory) KindOrDefault() string {
	if inv.Kind == "" {
		return InventoryStorage
	}
	return inv.Kind
}

// AllocationOrDefault returns the allocation type, ORDER_ANONYMOUS when unset.
func (s SupplyBehaviour) AllocationOrDefault() string {
	if s.Allocation == "" {
		return AllocationOrderAnonymous
	}
	return s.Allocation
}
