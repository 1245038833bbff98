// Package history records the time series handed to visualization: status-flag sets of workstations,
// workers and transport machines, and fill levels of buffers and inventories.
// Like sim/trace it stores pure data and does not depend on sim/.
package history

import (
	"math"
	"sort"
)

// Resource is the kind of resource a status sample belongs to.
type Resource string

const (
	Workstation Resource = "workstation"
	Worker      Resource = "worker"
	Transport   Resource = "transport"
)

// StatusSample is the status-flag set of a resource from Time on.
type StatusSample struct {
	Time  int64
	Flags []string
}

// FillSample is the relative fill level of a location from Time on.
type FillSample struct {
	Time  int64
	Level float64
}

// Sink receives history samples in non-decreasing time order.
type Sink interface {
	RecordStatus(kind Resource, id string, at int64, flags []string)
	RecordFill(location string, at int64, level float64)
}

// Tee fans samples out to several sinks.
type Tee []Sink

// RecordStatus implements Sink.
func (t Tee) RecordStatus(kind Resource, id string, at int64, flags []string) {
	for _, s := range t {
		s.RecordStatus(kind, id, at, flags)
	}
}

// RecordFill implements Sink.
func (t Tee) RecordFill(location string, at int64, level float64) {
	for _, s := range t {
		s.RecordFill(location, at, level)
	}
}

type statusKey struct {
	kind Resource
	id   string
}

// Recorder keeps every sample in memory. Consecutive equal samples collapse into one, and a sample at
// the same time as the previous one replaces it.
type Recorder struct {
	statuses map[statusKey][]StatusSample
	fills    map[string][]FillSample
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		statuses: make(map[statusKey][]StatusSample),
		fills:    make(map[string][]FillSample),
	}
}

// RecordStatus implements Sink.
func (r *Recorder) RecordStatus(kind Resource, id string, at int64, flags []string) {
	k := statusKey{kind, id}
	list := r.statuses[k]
	if n := len(list); n > 0 {
		if equalFlags(list[n-1].Flags, flags) {
			return
		}
		if list[n-1].Time == at {
			list[n-1].Flags = append([]string(nil), flags...)
			if n > 1 && equalFlags(list[n-2].Flags, flags) {
				list = list[:n-1]
			}
			r.statuses[k] = list
			return
		}
	}
	r.statuses[k] = append(list, StatusSample{Time: at, Flags: append([]string(nil), flags...)})
}

// RecordFill implements Sink.
func (r *Recorder) RecordFill(location string, at int64, level float64) {
	list := r.fills[location]
	if n := len(list); n > 0 {
		if list[n-1].Level == level {
			return
		}
		if list[n-1].Time == at {
			list[n-1].Level = level
			r.fills[location] = list
			return
		}
	}
	r.fills[location] = append(list, FillSample{Time: at, Level: level})
}

// Statuses returns the status history of one resource.
func (r *Recorder) Statuses(kind Resource, id string) []StatusSample {
	return r.statuses[statusKey{kind, id}]
}

// Fills returns the fill history of one location.
func (r *Recorder) Fills(location string) []FillSample {
	return r.fills[location]
}

// Locations returns every location with fill samples, sorted.
func (r *Recorder) Locations() []string {
	out := make([]string, 0, len(r.fills))
	for l := range r.fills {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// TimeWeighted returns the time-weighted mean and standard deviation of a fill series over
// [from, until). Each sample holds until the next one; time before the first sample counts as empty.
func TimeWeighted(samples []FillSample, from, until int64) (mean, std float64) {
	if until <= from {
		return 0, 0
	}
	var sum, sumSq float64
	level := 0.0
	at := from
	for _, s := range samples {
		if s.Time >= until {
			break
		}
		if s.Time > at {
			d := float64(s.Time - at)
			sum += level * d
			sumSq += level * level * d
			at = s.Time
		}
		level = s.Level
	}
	d := float64(until - at)
	sum += level * d
	sumSq += level * level * d
	total := float64(until - from)
	mean = sum / total
	variance := sumSq/total - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

func equalFlags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
