package mearm

import (
	"context"
	"fmt"
)

// SmokeTest sweeps every joint through its range: elbow up, shoulder down,
// close, hip down, shoulder up, elbow down, hip up, open, hip back to
// neutral. It runs cycles times, or until ctx is cancelled when cycles is 0.
// The arm's state is resynchronised from the last commanded angles when it
// returns.
func (a *Arm) SmokeTest(ctx context.Context, cycles int) error {
	if cycles < 0 {
		return fmt.Errorf("%w: cycles must not be negative, got %d", ErrInvalidConfig, cycles)
	}

	a.moveLock.Lock()
	defer a.moveLock.Unlock()

	if err := a.requireReady(); err != nil {
		return err
	}

	a.isMoving.Store(true)
	defer a.isMoving.Store(false)

	cur := a.Angles()
	defer func() {
		a.mu.Lock()
		a.state = a.stateFor(cur)
		a.mu.Unlock()
	}()

	a.logger.Infow("Starting smoke test", "cycles", cycles)
	if err := a.commandPose(ctx, cur); err != nil {
		return err
	}
	if err := a.setGripper(ctx, a.cfg.GripperClosed); err != nil {
		return err
	}

	hip, shoulder, elbow := a.profiles[Hip], a.profiles[Shoulder], a.profiles[Elbow]
	for n := 0; cycles == 0 || n < cycles; n++ {
		steps := []func() error{
			func() error { return a.sweep(ctx, Elbow, &cur.Elbow, elbow.Max) },
			func() error { return a.sweep(ctx, Shoulder, &cur.Shoulder, shoulder.Min) },
			func() error { return a.setGripper(ctx, a.cfg.GripperClosed) },
			func() error { return a.sweep(ctx, Hip, &cur.Hip, hip.Min) },
			func() error { return a.sweep(ctx, Shoulder, &cur.Shoulder, shoulder.Max) },
			func() error { return a.sweep(ctx, Elbow, &cur.Elbow, elbow.Min) },
			func() error { return a.sweep(ctx, Hip, &cur.Hip, hip.Max) },
			func() error { return a.setGripper(ctx, a.cfg.GripperOpen) },
			func() error { return a.sweep(ctx, Hip, &cur.Hip, hip.Neutral) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		a.logger.Debugw("Smoke test cycle complete", "cycle", n+1)
	}
	return nil
}

// sweep steps joint from *angle towards to in SweepIncrement steps, stopping
// short of to. *angle tracks the last commanded angle.
func (a *Arm) sweep(ctx context.Context, joint Joint, angle *float64, to float64) error {
	inc := a.cfg.SweepIncrement
	if *angle > to {
		inc = -inc
	}

	for next := *angle; (inc > 0 && next < to) || (inc < 0 && next > to); next += inc {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.profiles[joint].CommandAngle(ctx, a.driver, next); err != nil {
			return err
		}
		*angle = next
	}
	return nil
}
