package sim

// Event is one entry of the scheduler's event queue. Events carry data only; the simulator handles
// them in an exhaustive type switch (see handlers.go).
//
// An inactive event stays queued but is never selected for handling. Markers such as
// WorkstationSequencingPostponed are always inactive; requests become inactive while they wait for
// something a later event will provide.
type Event interface {
	Timestamp() int64
	Kind() string
	Active() bool
	setTimestamp(at int64)
}

type eventBase struct {
	at int64
}

// Timestamp returns the simulation second the event is due.
func (e *eventBase) Timestamp() int64 { return e.at }

// Active reports whether the event may be selected. Most events always are.
func (e *eventBase) Active() bool { return true }

func (e *eventBase) setTimestamp(at int64) { e.at = at }

// OrderRelease pushes the source operations of every instance of an order.
type OrderRelease struct {
	eventBase
	Order string
}

// OperationFinished completes the listed operations on a workstation. It stays queued until every
// ready successor has been pushed.
type OperationFinished struct {
	eventBase
	Workstation string
	Ops         []OpRef
	outputsDone bool
}

// SetupFinished ends a workstation setup.
type SetupFinished struct {
	eventBase
	Workstation string
}

// MaintenanceFinished ends planned maintenance of a workstation.
type MaintenanceFinished struct {
	eventBase
	Workstation string
}

// RepairFinished ends an unplanned repair of a workstation.
type RepairFinished struct {
	eventBase
	Workstation string
}

// WorkerStationArrival places a walking worker at a workstation.
type WorkerStationArrival struct {
	eventBase
	Workstation string
	Worker      string
}

// WorkerTransportArrival places a walking worker on a transport machine.
type WorkerTransportArrival struct {
	eventBase
	Transport string
	Worker    string
}

// ToolArrival hands a seized tool to a workstation.
type ToolArrival struct {
	eventBase
	Workstation string
	Tool        string
}

// ToolRelease returns a tool from a workstation to its home pool.
type ToolRelease struct {
	eventBase
	Workstation string
	Tool        string
}

// WorkerRelease returns a worker to its home pool. Exactly one of Workstation and Transport is set.
type WorkerRelease struct {
	eventBase
	Workstation string
	Transport   string
	Worker      string
}

// MaterialsArrival delivers components to a workstation's input buffers. An arrival that does not fit
// is flagged Overflow and waits until the workstation frees space. Direct arrivals come from an output
// buffer identical to the receiving input buffer and are credited to waiting materials requests.
type MaterialsArrival struct {
	eventBase
	Workstation string
	Components  map[string]int
	Overflow    bool
	Direct      bool
}

// Active is false while the arrival overflows.
func (e *MaterialsArrival) Active() bool { return !e.Overflow }

// RawMaterialArrival delivers supplied components into a source inventory.
type RawMaterialArrival struct {
	eventBase
	Inventory  string
	Components map[string]int
	Overflow   bool
}

// Active is false while the arrival overflows.
func (e *RawMaterialArrival) Active() bool { return !e.Overflow }

// WorkstationPickup signals that components left a workstation's output buffers.
type WorkstationPickup struct {
	eventBase
	Workstation string
}

// MaterialsRequest asks for one component to be brought to a workstation.
type MaterialsRequest struct {
	eventBase
	Workstation string
	Component   string
	Quantity    int
	Order       string
	Waiting     bool
}

// Active is false while an internal request waits for a producer.
func (e *MaterialsRequest) Active() bool { return !e.Waiting }

// ToolsRequest asks for tools a workstation lacks.
type ToolsRequest struct {
	eventBase
	Workstation  string
	Tools        []string
	JustCreated  bool
	SomeReleased bool
}

// Active holds until the first attempt, then again whenever a wanted tool is released.
func (e *ToolsRequest) Active() bool { return e.JustCreated || e.SomeReleased }

// WorkerRequest asks for a worker with the given capabilities.
type WorkerRequest struct {
	eventBase
	Target       string
	Transport    bool
	Capabilities []string
	JustCreated  bool
	SomeReleased bool
}

// Active holds until the first attempt, then again whenever a suitable worker is released.
func (e *WorkerRequest) Active() bool { return e.JustCreated || e.SomeReleased }

// PickupRequest records finished output waiting in a workstation's output buffers.
type PickupRequest struct {
	eventBase
	Workstation string
	Component   string
	Quantity    int
}

// Active is always false.
func (e *PickupRequest) Active() bool { return false }

// TransportOrder asks for components to be moved from Source to Destination.
type TransportOrder struct {
	eventBase
	Components  map[string]int
	Source      string
	Destination string
}

// TransportArrival places a moving transport machine at a location.
type TransportArrival struct {
	eventBase
	Transport string
	Location  string
}

// LoadingFinished ends loading of a transport machine.
type LoadingFinished struct {
	eventBase
	Transport string
	Location  string
	Component string
	Quantity  int
}

// UnloadingFinished ends unloading of a transport machine.
type UnloadingFinished struct {
	eventBase
	Transport string
	Location  string
	Component string
	Quantity  int
}

// WorkstationSequencingPostponed marks a workstation whose sequencing must be retried once it frees up.
type WorkstationSequencingPostponed struct {
	eventBase
	Workstation string
}

// Active is always false.
func (e *WorkstationSequencingPostponed) Active() bool { return false }

// TransportSequencingPostponed marks a transport machine whose sequencing must be retried after its
// current delivery.
type TransportSequencingPostponed struct {
	eventBase
	Transport string
}

// Active is always false.
func (e *TransportSequencingPostponed) Active() bool { return false }

func (e *OrderRelease) Kind() string                   { return "OrderRelease" }
func (e *OperationFinished) Kind() string              { return "OperationFinished" }
func (e *SetupFinished) Kind() string                  { return "SetupFinished" }
func (e *MaintenanceFinished) Kind() string            { return "MaintenanceFinished" }
func (e *RepairFinished) Kind() string                 { return "RepairFinished" }
func (e *WorkerStationArrival) Kind() string           { return "WorkerStationArrival" }
func (e *WorkerTransportArrival) Kind() string         { return "WorkerTransportArrival" }
func (e *ToolArrival) Kind() string                    { return "ToolArrival" }
func (e *ToolRelease) Kind() string                    { return "ToolRelease" }
func (e *WorkerRelease) Kind() string                  { return "WorkerRelease" }
func (e *MaterialsArrival) Kind() string               { return "MaterialsArrival" }
func (e *RawMaterialArrival) Kind() string             { return "RawMaterialArrival" }
func (e *WorkstationPickup) Kind() string              { return "WorkstationPickup" }
func (e *MaterialsRequest) Kind() string               { return "MaterialsRequest" }
func (e *ToolsRequest) Kind() string                   { return "ToolsRequest" }
func (e *WorkerRequest) Kind() string                  { return "WorkerRequest" }
func (e *PickupRequest) Kind() string                  { return "PickupRequest" }
func (e *TransportOrder) Kind() string                 { return "TransportOrder" }
func (e *TransportArrival) Kind() string               { return "TransportArrival" }
func (e *LoadingFinished) Kind() string                { return "LoadingFinished" }
func (e *UnloadingFinished) Kind() string              { return "UnloadingFinished" }
func (e *WorkstationSequencingPostponed) Kind() string { return "WorkstationSequencingPostponed" }
func (e *TransportSequencingPostponed) Kind() string   { return "TransportSequencingPostponed" }
