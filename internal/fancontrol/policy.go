// Package fancontrol maps memory temperature readings onto fan actuation
// decisions: automatic firmware control below the low threshold, and a
// linear manual ramp from 0% at the low threshold to 100% at the high one.
package fancontrol

import (
	"codeberg.org/mutker/nvidiamon/internal/errors"
)

const ErrInvalidThresholds = errors.ErrInvalidThresholds

// Mode says who drives the fan: the device firmware or this process.
type Mode int

const (
	Automatic Mode = iota
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "manual"
	}
	return "auto"
}

// Decision is the actuation command for one device for one tick.
type Decision struct {
	Mode  Mode
	Speed int // percent, meaningful only in Manual mode
}

// State carries a device's decision across ticks so the policy can apply
// hysteresis without hidden globals. The zero value (Automatic) is the
// correct initial state.
type State struct {
	Mode  Mode
	Speed int
}

// Policy computes fan decisions from a temperature reading. It holds no
// per-device state; callers pass the previous State back in each tick.
type Policy struct {
	low        float64
	high       float64
	hysteresis float64
}

// NewPolicy validates the thresholds once, at startup. The high threshold
// must be strictly above the low one.
func NewPolicy(low, high, hysteresis float64) (Policy, error) {
	errFactory := errors.New()

	if high <= low {
		return Policy{}, errFactory.WithData(ErrInvalidThresholds, struct {
			Low  float64
			High float64
		}{low, high})
	}
	if hysteresis < 0 {
		return Policy{}, errFactory.WithData(errors.ErrInvalidArgument, hysteresis)
	}

	return Policy{low: low, high: high, hysteresis: hysteresis}, nil
}

// Decide maps one reading to a decision. At or above the low threshold the
// speed ramps linearly to 100% at the high threshold, clamped there. Below
// the low threshold control reverts to the firmware, except that a device
// already under manual control holds it until the reading drops below
// low - hysteresis. With a zero hysteresis band the policy is a pure
// function of the reading alone.
func (p Policy) Decide(prev State, memTemp float64) (State, Decision) {
	var dec Decision

	switch {
	case memTemp >= p.low:
		dec = Decision{Mode: Manual, Speed: p.rampSpeed(memTemp)}
	case prev.Mode == Manual && memTemp >= p.low-p.hysteresis:
		dec = Decision{Mode: Manual, Speed: p.rampSpeed(memTemp)}
	default:
		dec = Decision{Mode: Automatic}
	}

	return State{Mode: dec.Mode, Speed: dec.Speed}, dec
}

// rampSpeed computes the manual speed for a reading, truncated to whole
// percent and clamped to [0, 100].
func (p Policy) rampSpeed(memTemp float64) int {
	fraction := (memTemp - p.low) / (p.high - p.low)
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	return int(fraction * 100)
}
