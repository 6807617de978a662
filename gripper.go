package mearm

import (
	"context"

	"go.viam.com/utils"
)

// OpenGripper opens the gripper, dropping whatever it holds.
func (a *Arm) OpenGripper(ctx context.Context) error {
	return a.moveGripper(ctx, a.cfg.GripperOpen, "Opening gripper")
}

// CloseGripper closes the gripper on anything that might be there.
func (a *Arm) CloseGripper(ctx context.Context) error {
	return a.moveGripper(ctx, a.cfg.GripperClosed, "Closing gripper")
}

func (a *Arm) moveGripper(ctx context.Context, angle float64, msg string) error {
	a.moveLock.Lock()
	defer a.moveLock.Unlock()

	if err := a.requireReady(); err != nil {
		return err
	}

	a.isMoving.Store(true)
	defer a.isMoving.Store(false)

	a.logger.Debugw(msg, "angle", angle)
	return a.setGripper(ctx, angle)
}

// setGripper commands the gripper and waits for it to settle. The caller
// holds moveLock.
func (a *Arm) setGripper(ctx context.Context, angle float64) error {
	if err := a.profiles[Gripper].CommandAngle(ctx, a.driver, angle); err != nil {
		return err
	}
	if !utils.SelectContextOrWait(ctx, a.cfg.SettleDelay) {
		return ctx.Err()
	}
	return nil
}
