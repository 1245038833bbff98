package plant

import (
	"fmt"
	"math"
)

// Duration is a time value in a named unit.
type Duration struct {
	Value float64 `yaml:"value" validate:"gte=0"`
	Unit  string  `yaml:"unit"`
}

var unitSeconds = map[string]float64{
	"s":   1,
	"min": 60,
	"h":   60 * 60,
	"d":   24 * 60 * 60,
}

// IsValidTimeUnit reports whether unit is a supported time unit. The empty unit means "no time".
func IsValidTimeUnit(unit string) bool {
	_, ok := unitSeconds[unit]
	return ok || unit == ""
}

// Seconds converts value in unit to whole seconds, rounding up. An empty unit yields 0.
func Seconds(value float64, unit string) (int64, error) {
	if unit == "" {
		return 0, nil
	}
	f, ok := unitSeconds[unit]
	if !ok {
		return 0, fmt.Errorf("unsupported time unit %q; valid: s, min, h, d", unit)
	}
	return int64(math.Ceil(value*f - 1e-9)), nil
}

// Seconds converts d to whole seconds, rounding up.
func (d Duration) Seconds() (int64, error) {
	return Seconds(d.Value, d.Unit)
}

// MustSeconds is Seconds for definitions that already passed Validate.
func (d Duration) MustSeconds() int64 {
	s, err := d.Seconds()
	if err != nil {
		panic(err)
	}
	return s
}
