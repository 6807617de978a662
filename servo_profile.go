package mearm

import (
	"context"

	"github.com/pkg/errors"

	"mearm/driver"
)

// Joint names one of the arm's four servos.
type Joint string

const (
	Hip      Joint = "hip"
	Shoulder Joint = "shoulder"
	Elbow    Joint = "elbow"
	Gripper  Joint = "gripper"
)

// AllJoints lists the joints in registration order.
var AllJoints = []Joint{Hip, Shoulder, Elbow, Gripper}

// ServoProfile binds a joint to a driver channel, its pulse calibration and
// the range the arm may use it over.
type ServoProfile struct {
	Joint       Joint
	Channel     int
	Calibration driver.Calibration

	Min     float64
	Max     float64
	Neutral float64
}

// Contains reports whether angle lies within the profile's reach limits.
func (p ServoProfile) Contains(angle float64) bool {
	return angle >= p.Min && angle <= p.Max
}

// Register adds the servo to d.
func (p ServoProfile) Register(ctx context.Context, d driver.Driver) error {
	if err := d.AddServo(ctx, p.Channel, p.Calibration); err != nil {
		return errors.Wrapf(err, "failed to register %s on channel %d", p.Joint, p.Channel)
	}
	return nil
}

// CommandAngle sends angle to the servo as is. Callers check limits.
func (p ServoProfile) CommandAngle(ctx context.Context, d driver.Driver, angle float64) error {
	if err := d.SetServoAngle(ctx, p.Channel, angle); err != nil {
		return errors.Wrapf(err, "failed to move %s to %.2f", p.Joint, angle)
	}
	return nil
}
