package sim

import "strings"

// WorkstationFlag is one workstation status. A workstation holds a set of them.
type WorkstationFlag uint16

const (
	WorkstationEmpty WorkstationFlag = 1 << iota
	WorkstationIdle
	WorkstationWaitingForMaterial
	WorkstationWaitingForWorker
	WorkstationWaitingForTools
	WorkstationSetup
	WorkstationBusy
	WorkstationBlocked
	WorkstationMaintenance
	WorkstationError
	WorkstationRepair
)

var workstationFlagNames = []string{
	"EMPTY", "IDLE", "WAITING_FOR_MATERIAL", "WAITING_FOR_WORKER", "WAITING_FOR_TOOLS",
	"SETUP", "BUSY", "BLOCKED", "MAINTENANCE", "ERROR", "REPAIR",
}

const workstationWaiting = WorkstationWaitingForMaterial | WorkstationWaitingForWorker | WorkstationWaitingForTools

// WorkstationStatus is a set of WorkstationFlags.
type WorkstationStatus uint16

// Has reports whether every flag in f is set.
func (s WorkstationStatus) Has(f WorkstationFlag) bool { return uint16(s)&uint16(f) == uint16(f) }

// Any reports whether at least one flag in f is set.
func (s WorkstationStatus) Any(f WorkstationFlag) bool { return uint16(s)&uint16(f) != 0 }

// Set adds f. Setting BUSY clears every WAITING_* flag at once.
func (s *WorkstationStatus) Set(f WorkstationFlag) {
	if f&WorkstationBusy != 0 {
		*s &^= WorkstationStatus(workstationWaiting)
	}
	*s |= WorkstationStatus(f)
}

// Clear removes f.
func (s *WorkstationStatus) Clear(f WorkstationFlag) { *s &^= WorkstationStatus(f) }

// Names lists the set flags in enum order. The empty set reads as IDLE.
func (s WorkstationStatus) Names() []string {
	if s == 0 {
		return []string{"IDLE"}
	}
	return flagNames(uint16(s), workstationFlagNames)
}

func (s WorkstationStatus) String() string { return strings.Join(s.Names(), "|") }

// TransportFlag is one transport-machine status.
type TransportFlag uint16

const (
	TransportIdle TransportFlag = 1 << iota
	TransportReady
	TransportMovingToSource
	TransportExecuting
	TransportLoading
	TransportUnloading
	TransportWaitingForWorker
	TransportMaintenance
	TransportError
	TransportRepair
)

var transportFlagNames = []string{
	"IDLE", "READY", "MOVING_TO_SOURCE", "EXECUTING_TRANSPORT", "LOADING", "UNLOADING",
	"WAITING_FOR_WORKER", "MAINTENANCE", "ERROR", "REPAIR",
}

// TransportStatus is a set of TransportFlags.
type TransportStatus uint16

// Has reports whether every flag in f is set.
func (s TransportStatus) Has(f TransportFlag) bool { return uint16(s)&uint16(f) == uint16(f) }

// Any reports whether at least one flag in f is set.
func (s TransportStatus) Any(f TransportFlag) bool { return uint16(s)&uint16(f) != 0 }

// Set adds f.
func (s *TransportStatus) Set(f TransportFlag) { *s |= TransportStatus(f) }

// Clear removes f.
func (s *TransportStatus) Clear(f TransportFlag) { *s &^= TransportStatus(f) }

// Names lists the set flags in enum order. The empty set reads as IDLE.
func (s TransportStatus) Names() []string {
	if s == 0 {
		return []string{"IDLE"}
	}
	return flagNames(uint16(s), transportFlagNames)
}

func (s TransportStatus) String() string { return strings.Join(s.Names(), "|") }

// WorkerStatus is the single status of a worker.
type WorkerStatus int

const (
	WorkerIdle WorkerStatus = iota + 1
	WorkerWalking
	WorkerSettingUp
	WorkerBusy
)

func (s WorkerStatus) String() string {
	switch s {
	case WorkerIdle:
		return "IDLE"
	case WorkerWalking:
		return "WALKING"
	case WorkerSettingUp:
		return "SETTING_UP"
	case WorkerBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

func flagNames(bits uint16, names []string) []string {
	var out []string
	for i, n := range names {
		if bits&(1<<uint(i)) != 0 {
			out = append(out, n)
		}
	}
	return out
}
