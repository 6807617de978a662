// Package driver provides servo drivers that turn joint angles into pulses.
package driver

import (
	"context"
	"fmt"
	"math"
)

// MaxChannel is the highest addressable output channel.
const MaxChannel = 15

// Driver is a servo actuator addressed by channel.
type Driver interface {
	// AddServo registers calibration for one channel. Registering a channel
	// again replaces its calibration and may reset its output.
	AddServo(ctx context.Context, channel int, cal Calibration) error

	// SetServoAngle commands a registered channel to angle degrees.
	SetServoAngle(ctx context.Context, channel int, angle float64) error

	// Reset resets the underlying hardware interface and forgets every
	// registered channel.
	Reset(ctx context.Context) error
}

// Calibration maps a servo's angle range onto its pulse range.
// Pulses are in milliseconds and angles in degrees. The neutral point need
// not be the midpoint of either range.
type Calibration struct {
	PulseMin     float64 `json:"pulse_min"`
	PulseMax     float64 `json:"pulse_max"`
	PulseNeutral float64 `json:"pulse_neutral"`
	AngleMin     float64 `json:"angle_min"`
	AngleMax     float64 `json:"angle_max"`
	AngleNeutral float64 `json:"angle_neutral"`
	Resolution   int     `json:"resolution"`
}

// Validate checks the ordering of the pulse and angle ranges.
func (c Calibration) Validate() error {
	if !(c.PulseMin < c.PulseNeutral && c.PulseNeutral < c.PulseMax) {
		return fmt.Errorf("%w: pulse must satisfy min < neutral < max, got %.3f/%.3f/%.3f",
			ErrInvalidCalibration, c.PulseMin, c.PulseNeutral, c.PulseMax)
	}
	if !(c.AngleMin < c.AngleNeutral && c.AngleNeutral < c.AngleMax) {
		return fmt.Errorf("%w: angle must satisfy min < neutral < max, got %.2f/%.2f/%.2f",
			ErrInvalidCalibration, c.AngleMin, c.AngleNeutral, c.AngleMax)
	}
	if c.Resolution < 0 {
		return fmt.Errorf("%w: negative resolution %d", ErrInvalidCalibration, c.Resolution)
	}
	return nil
}

// Pulse returns the pulse width in milliseconds for angle. Angles outside
// the calibrated range are clamped.
func (c Calibration) Pulse(angle float64) float64 {
	angle = math.Max(c.AngleMin, math.Min(c.AngleMax, angle))
	if angle >= c.AngleNeutral {
		return c.PulseNeutral + (angle-c.AngleNeutral)/(c.AngleMax-c.AngleNeutral)*(c.PulseMax-c.PulseNeutral)
	}
	return c.PulseNeutral - (c.AngleNeutral-angle)/(c.AngleNeutral-c.AngleMin)*(c.PulseNeutral-c.PulseMin)
}

// Ticks converts a pulse width to PWM counter ticks for a signal of
// frequency hz sampled at resolution steps per period.
func Ticks(pulse float64, hz, resolution int) int {
	period := 1000.0 / float64(hz)
	return int(math.Round(pulse / period * float64(resolution)))
}

func validateChannel(channel int) error {
	if channel < 0 || channel > MaxChannel {
		return fmt.Errorf("%w: %d (valid range: 0-%d)", ErrChannelRange, channel, MaxChannel)
	}
	return nil
}
