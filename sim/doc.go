// Package sim provides the discrete-event scheduling engine of shopsim.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - event.go: the event types and which of them are inactive while they wait
//   - queue.go: the EventQueue and its insertion-order tie-break
//   - simulator.go: construction, the RunUntilDecision loop and time accrual
//   - lifecycle.go: operation instances (IN_BACKLOG → ASSIGNED → COMMITTED → PROCESSING → DONE)
//   - orchestrator.go: routing, sequencing, staging, setup and processing at workstations
//   - transport.go: transport orders, loading, driving and unloading
//
// # Architecture
//
// The sim package owns all mutable state; pure-data and leaf packages live beside it:
//   - sim/plant/: the static plant definition, its YAML loader and validation
//   - sim/capacity/: quantized, group-constrained buffer capacities with wildcard patterns
//   - sim/dispatch/: built-in routing and sequencing heuristics and expression rules
//   - sim/trace/: decision trace recording
//   - sim/history/: status and fill time series, with a SQLite store in history/sqlstore
//   - sim/metrics/: Prometheus collectors
//
// # Decisions
//
// Routing and sequencing of workstations and transport machines are decision points. A category
// configured with a heuristic resolves itself; otherwise RunUntilDecision returns with a pending
// Decision and the caller answers it through SetAction, using the flat action index of the sparse
// action matrix (GetLegalActions, ActionSpace, Labels).
//
// A Simulator is not safe for concurrent use. Independent simulators share nothing and may run in
// parallel.
package sim
