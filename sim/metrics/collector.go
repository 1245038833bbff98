// Package metrics exposes simulation KPIs as prometheus metrics. A nil *Collector is valid and
// records nothing, so the engine can call it unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "shopsim"
	subsystem = "scheduler"
)

// Collector holds the KPI metrics of one simulation.
type Collector struct {
	busySeconds     *prometheus.CounterVec
	setupSeconds    *prometheus.CounterVec
	eventsTotal     *prometheus.CounterVec
	decisionsTotal  *prometheus.CounterVec
	operationsTotal prometheus.Counter
	fillLevel       *prometheus.GaugeVec
	clockSeconds    prometheus.Gauge
}

// NewCollector creates an unregistered collector.
func NewCollector() *Collector {
	return &Collector{
		busySeconds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "busy_seconds_total",
				Help:      "Simulated seconds a resource spent busy",
			},
			[]string{"resource", "id"},
		),
		setupSeconds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "setup_seconds_total",
				Help:      "Simulated seconds a resource spent in setup",
			},
			[]string{"resource", "id"},
		),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_total",
				Help:      "Handled events by kind",
			},
			[]string{"kind"},
		),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "decisions_total",
				Help:      "Resolved decision points by category and resolver",
			},
			[]string{"category", "resolver"},
		),
		operationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_completed_total",
				Help:      "Operation instances that reached DONE",
			},
		),
		fillLevel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fill_level_ratio",
				Help:      "Current relative fill level of a buffer or inventory",
			},
			[]string{"location"},
		),
		clockSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "clock_seconds",
				Help:      "Current simulation clock",
			},
		),
	}
}

// Register registers every metric with reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.busySeconds, c.setupSeconds, c.eventsTotal, c.decisionsTotal,
		c.operationsTotal, c.fillLevel, c.clockSeconds,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// AddBusy adds busy seconds for a resource.
func (c *Collector) AddBusy(resource, id string, seconds int64) {
	if c == nil || seconds <= 0 {
		return
	}
	c.busySeconds.WithLabelValues(resource, id).Add(float64(seconds))
}

// AddSetup adds setup seconds for a resource.
func (c *Collector) AddSetup(resource, id string, seconds int64) {
	if c == nil || seconds <= 0 {
		return
	}
	c.setupSeconds.WithLabelValues(resource, id).Add(float64(seconds))
}

// ObserveEvent counts one handled event.
func (c *Collector) ObserveEvent(kind string) {
	if c == nil {
		return
	}
	c.eventsTotal.WithLabelValues(kind).Inc()
}

// ObserveDecision counts one resolved decision. resolver is "agent" or a heuristic name.
func (c *Collector) ObserveDecision(category, resolver string) {
	if c == nil {
		return
	}
	c.decisionsTotal.WithLabelValues(category, resolver).Inc()
}

// OperationDone counts one finished operation instance.
func (c *Collector) OperationDone() {
	if c == nil {
		return
	}
	c.operationsTotal.Inc()
}

// SetFill records the current fill level of a location.
func (c *Collector) SetFill(location string, level float64) {
	if c == nil {
		return
	}
	c.fillLevel.WithLabelValues(location).Set(level)
}

// SetClock records the simulation clock.
func (c *Collector) SetClock(t int64) {
	if c == nil {
		return
	}
	c.clockSeconds.Set(float64(t))
}
