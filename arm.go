package mearm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"

	"mearm/driver"
	"mearm/kinematics"
)

// Lifecycle is the arm's position in its Uninitialized -> Ready -> ShutDown
// progression.
type Lifecycle int

const (
	StateUninitialized Lifecycle = iota
	StateReady
	StateShutDown
)

func (l Lifecycle) String() string {
	switch l {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateShutDown:
		return "shut down"
	}
	return fmt.Sprintf("Lifecycle(%d)", int(l))
}

// ArmState is the last commanded pose. Position always equals the forward
// transform of Angles.
type ArmState struct {
	Angles   kinematics.JointAngles `json:"angles"`
	Position kinematics.Point       `json:"position"`
}

// Arm drives a meArm through a servo Driver.
type Arm struct {
	logger   logging.Logger
	cfg      Config
	driver   driver.Driver
	kin      *kinematics.Kinematics
	profiles map[Joint]ServoProfile

	// release clears the owning registry's slot.
	release func()

	// Motion control
	moveLock sync.Mutex
	isMoving atomic.Bool

	mu         sync.RWMutex
	lifecycle  Lifecycle
	state      ArmState
	registered map[Joint]bool
}

// newArm builds an Uninitialized arm at its neutral pose.
func newArm(d driver.Driver, cfg Config) (*Arm, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: driver is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("mearm")
	}

	a := &Arm{
		logger:     logger,
		cfg:        cfg,
		driver:     d,
		kin:        kinematics.New(cfg.solver()),
		profiles:   make(map[Joint]ServoProfile, len(AllJoints)),
		registered: make(map[Joint]bool, len(AllJoints)),
	}
	for _, j := range AllJoints {
		a.profiles[j] = cfg.Joint(j).Profile(j)
	}
	a.state = a.stateFor(a.neutralAngles())
	return a, nil
}

func (a *Arm) neutralAngles() kinematics.JointAngles {
	return kinematics.JointAngles{
		Hip:      a.profiles[Hip].Neutral,
		Shoulder: a.profiles[Shoulder].Neutral,
		Elbow:    a.profiles[Elbow].Neutral,
	}
}

func (a *Arm) stateFor(angles kinematics.JointAngles) ArmState {
	return ArmState{Angles: angles, Position: a.kin.ToCartesian(angles)}
}

// Profile returns the servo profile for j.
func (a *Arm) Profile(j Joint) ServoProfile {
	return a.profiles[j]
}

// Lifecycle returns the arm's current lifecycle state.
func (a *Arm) Lifecycle() Lifecycle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lifecycle
}

// State returns the last commanded pose.
func (a *Arm) State() ArmState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Position returns the last commanded gripper position.
func (a *Arm) Position() kinematics.Point {
	return a.State().Position
}

// Angles returns the last commanded joint angles.
func (a *Arm) Angles() kinematics.JointAngles {
	return a.State().Angles
}

// IsMoving reports whether a motion command is in flight.
func (a *Arm) IsMoving() bool {
	return a.isMoving.Load()
}

func (a *Arm) requireReady() error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	switch a.lifecycle {
	case StateUninitialized:
		return ErrNotInitialized
	case StateShutDown:
		return ErrShutDown
	}
	return nil
}

// Initialize registers the four servos with the driver and moves the arm to
// its neutral pose.
func (a *Arm) Initialize(ctx context.Context) error {
	a.moveLock.Lock()
	defer a.moveLock.Unlock()

	switch a.Lifecycle() {
	case StateReady:
		return ErrAlreadyInitialized
	case StateShutDown:
		return ErrShutDown
	}

	for _, j := range AllJoints {
		if err := a.profiles[j].Register(ctx, a.driver); err != nil {
			return err
		}
		a.mu.Lock()
		a.registered[j] = true
		a.mu.Unlock()
	}

	neutral := a.neutralAngles()
	if err := a.commandPose(ctx, neutral); err != nil {
		return errors.Wrap(err, "failed to move to neutral pose")
	}

	a.mu.Lock()
	a.state = a.stateFor(neutral)
	a.lifecycle = StateReady
	a.mu.Unlock()

	a.logger.Infow("Arm initialized",
		"hip", a.profiles[Hip].Channel,
		"shoulder", a.profiles[Shoulder].Channel,
		"elbow", a.profiles[Elbow].Channel,
		"gripper", a.profiles[Gripper].Channel,
		"position", a.Position().String())
	return nil
}

// IsReachable reports whether p lies within every positional joint's reach
// limits. When p has more than one solution the in-limits one nearest the
// current pose is returned; when none is in limits the preferred solution is
// returned anyway. A point with no kinematic solution is unreachable, not an
// error.
func (a *Arm) IsReachable(p kinematics.Point) (bool, kinematics.JointAngles, error) {
	angles, bad, err := a.pick(p, a.Angles())
	if errors.Is(err, kinematics.ErrNoSolution) {
		return false, kinematics.JointAngles{}, nil
	}
	if err != nil {
		return false, kinematics.JointAngles{}, err
	}
	return bad == "", angles, nil
}

// violation returns the first joint whose angle is out of range, or "".
func (a *Arm) violation(angles kinematics.JointAngles) Joint {
	switch {
	case !a.profiles[Hip].Contains(angles.Hip):
		return Hip
	case !a.profiles[Shoulder].Contains(angles.Shoulder):
		return Shoulder
	case !a.profiles[Elbow].Contains(angles.Elbow):
		return Elbow
	}
	return ""
}

// pick chooses among the solutions for p the in-limits one closest to ref.
// If none is in limits it returns the preferred solution and the joint that
// rules it out.
func (a *Arm) pick(p kinematics.Point, ref kinematics.JointAngles) (kinematics.JointAngles, Joint, error) {
	sols, err := a.kin.Solutions(p)
	if err != nil {
		return kinematics.JointAngles{}, "", err
	}
	if len(sols) == 0 {
		return kinematics.JointAngles{}, "", kinematics.ErrNoSolution
	}

	best, found := kinematics.JointAngles{}, false
	for _, s := range sols {
		if a.violation(s) != "" {
			continue
		}
		if !found || jointDistance(s, ref) < jointDistance(best, ref) {
			best, found = s, true
		}
	}
	if !found {
		return sols[0], a.violation(sols[0]), nil
	}
	return best, "", nil
}

func jointDistance(p, q kinematics.JointAngles) float64 {
	dh, ds, de := p.Hip-q.Hip, p.Shoulder-q.Shoulder, p.Elbow-q.Elbow
	return dh*dh + ds*ds + de*de
}

// solve returns the angles for p nearest ref, or an UnreachableError.
func (a *Arm) solve(p kinematics.Point, ref kinematics.JointAngles) (kinematics.JointAngles, error) {
	angles, bad, err := a.pick(p, ref)
	if errors.Is(err, kinematics.ErrNoSolution) {
		return angles, &UnreachableError{Target: p}
	}
	if err != nil {
		return angles, err
	}
	if bad != "" {
		return angles, &UnreachableError{Target: p, Angles: angles, Joint: bad}
	}
	return angles, nil
}

// GoDirectlyTo commands all positional joints straight to the angles for
// target, without regard for the path taken.
func (a *Arm) GoDirectlyTo(ctx context.Context, target kinematics.Point) error {
	a.moveLock.Lock()
	defer a.moveLock.Unlock()

	if err := a.requireReady(); err != nil {
		return err
	}
	angles, err := a.solve(target, a.Angles())
	if err != nil {
		a.logger.Warnw("Rejected move", "target", target.String(), "error", err)
		return err
	}

	a.isMoving.Store(true)
	defer a.isMoving.Store(false)
	return a.moveTo(ctx, target, angles)
}

// moveTo commands angles and records target as the new state. The caller
// holds moveLock.
func (a *Arm) moveTo(ctx context.Context, target kinematics.Point, angles kinematics.JointAngles) error {
	if err := a.commandPose(ctx, angles); err != nil {
		return err
	}

	a.mu.Lock()
	a.state = ArmState{Angles: angles, Position: target}
	a.mu.Unlock()

	a.logger.Debugw("Moved",
		"x", target.X, "y", target.Y, "z", target.Z,
		"hip", angles.Hip, "shoulder", angles.Shoulder, "elbow", angles.Elbow)
	return nil
}

// commandPose sends hip, shoulder and elbow in that order.
func (a *Arm) commandPose(ctx context.Context, angles kinematics.JointAngles) error {
	for _, cmd := range []struct {
		joint Joint
		angle float64
	}{
		{Hip, angles.Hip},
		{Shoulder, angles.Shoulder},
		{Elbow, angles.Elbow},
	} {
		if err := a.profiles[cmd.joint].CommandAngle(ctx, a.driver, cmd.angle); err != nil {
			return err
		}
	}
	return nil
}

// GoTo moves in a straight line to target in steps of the configured path
// resolution.
func (a *Arm) GoTo(ctx context.Context, target kinematics.Point) error {
	return a.GoToWithResolution(ctx, target, a.cfg.PathResolution)
}

// GoToWithResolution moves in a straight line from the current position to
// target, pausing for the step delay after each waypoint. Every waypoint is
// checked before the arm moves. A cancelled context stops the arm at the
// last completed waypoint.
func (a *Arm) GoToWithResolution(ctx context.Context, target kinematics.Point, step float64) error {
	if step <= 0 {
		return fmt.Errorf("%w: path resolution must be positive, got %v", ErrInvalidConfig, step)
	}

	a.moveLock.Lock()
	defer a.moveLock.Unlock()

	if err := a.requireReady(); err != nil {
		return err
	}
	cur := a.State()
	if _, err := a.solve(target, cur.Angles); err != nil {
		a.logger.Warnw("Rejected move", "target", target.String(), "error", err)
		return err
	}

	start := cur.Position
	path, err := LinearPath(start, target, step)
	if err != nil {
		return err
	}

	// Each waypoint takes the solution nearest the one before it, starting
	// from the pose the arm is already in.
	plan := make([]kinematics.JointAngles, len(path))
	ref := cur.Angles
	for i, p := range path {
		if i == 0 && p == start {
			plan[i] = ref
			continue
		}
		if plan[i], err = a.solve(p, ref); err != nil {
			return errors.Wrapf(err, "waypoint %d of %d", i+1, len(path))
		}
		ref = plan[i]
	}

	a.isMoving.Store(true)
	defer a.isMoving.Store(false)

	a.logger.Debugw("Following path", "from", start.String(), "to", target.String(), "waypoints", len(path))
	for i, p := range path {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.moveTo(ctx, p, plan[i]); err != nil {
			return err
		}
		if !utils.SelectContextOrWait(ctx, a.cfg.StepDelay) {
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown parks the arm at neutral with the gripper open, resets the driver
// and frees the registry slot. It is best effort: every step runs even if an
// earlier one fails, and the failures are returned together. The context's
// cancellation is ignored so the arm is always parked.
func (a *Arm) Shutdown(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	a.moveLock.Lock()
	defer a.moveLock.Unlock()

	a.mu.RLock()
	lifecycle := a.lifecycle
	a.mu.RUnlock()
	if lifecycle == StateShutDown {
		return nil
	}

	a.logger.Info("Resetting arm and controller...")

	var errs error
	for _, park := range []struct {
		joint Joint
		angle float64
	}{
		{Hip, a.profiles[Hip].Neutral},
		{Shoulder, a.profiles[Shoulder].Neutral},
		{Elbow, a.profiles[Elbow].Neutral},
		{Gripper, a.cfg.GripperOpen},
	} {
		a.mu.RLock()
		ok := a.registered[park.joint]
		a.mu.RUnlock()
		if !ok {
			a.logger.Debugw("Skipping unregistered joint", "joint", park.joint)
			continue
		}
		if err := a.profiles[park.joint].CommandAngle(ctx, a.driver, park.angle); err != nil {
			a.logger.Warnw("Failed to park joint", "joint", park.joint, "error", err)
			errs = multierr.Append(errs, err)
		}
	}

	utils.SelectContextOrWait(ctx, a.cfg.SettleDelay)

	if err := a.driver.Reset(ctx); err != nil {
		a.logger.Warnw("Failed to reset driver", "error", err)
		errs = multierr.Append(errs, errors.Wrap(err, "failed to reset driver"))
	}

	a.mu.Lock()
	a.lifecycle = StateShutDown
	a.registered = make(map[Joint]bool)
	a.mu.Unlock()

	if a.release != nil {
		a.release()
	}
	a.logger.Info("Arm shut down")
	return errs
}

// Close shuts the arm down.
func (a *Arm) Close(ctx context.Context) error {
	return a.Shutdown(ctx)
}
