package kinematics

import (
	"errors"
	"fmt"
)

// ErrNoSolution is returned by a Solver when no joint configuration places
// the gripper at the requested point.
var ErrNoSolution = errors.New("no kinematic solution")

// JointAngles holds the positional joint angles in degrees, in the servo frame.
type JointAngles struct {
	Hip      float64 `json:"hip"`
	Shoulder float64 `json:"shoulder"`
	Elbow    float64 `json:"elbow"`
}

func (a JointAngles) String() string {
	return fmt.Sprintf("hip=%.2f shoulder=%.2f elbow=%.2f", a.Hip, a.Shoulder, a.Elbow)
}

// Solver is the arm geometry. Both directions must be pure and use the same
// angle conventions as the servo calibration (degrees, arm-specific zero).
type Solver interface {
	Forward(hip, shoulder, elbow float64) (x, y, z float64)
	Inverse(x, y, z float64) (hip, shoulder, elbow float64, err error)
}

// BranchSolver is a Solver that can list every inverse solution for a point,
// preferred first. Inverse returns the preferred one.
type BranchSolver interface {
	Solver
	Solutions(x, y, z float64) ([]JointAngles, error)
}

// Kinematics adapts a Solver to Point and JointAngles values.
type Kinematics struct {
	solver Solver
}

// New returns a Kinematics backed by solver. A nil solver selects the
// default meArm geometry.
func New(solver Solver) *Kinematics {
	if solver == nil {
		solver = NewMeArm(DefaultGeometry)
	}
	return &Kinematics{solver: solver}
}

// ToCartesian returns the gripper position for the given joint angles.
func (k *Kinematics) ToCartesian(a JointAngles) Point {
	x, y, z := k.solver.Forward(a.Hip, a.Shoulder, a.Elbow)
	return Point{X: x, Y: y, Z: z}
}

// FromCartesian returns the joint angles that place the gripper at p.
func (k *Kinematics) FromCartesian(p Point) (JointAngles, error) {
	hip, shoulder, elbow, err := k.solver.Inverse(p.X, p.Y, p.Z)
	if err != nil {
		return JointAngles{}, err
	}
	return JointAngles{Hip: hip, Shoulder: shoulder, Elbow: elbow}, nil
}

// Solutions returns every joint configuration that places the gripper at p,
// preferred first. A plain Solver yields only its Inverse.
func (k *Kinematics) Solutions(p Point) ([]JointAngles, error) {
	if bs, ok := k.solver.(BranchSolver); ok {
		return bs.Solutions(p.X, p.Y, p.Z)
	}
	a, err := k.FromCartesian(p)
	if err != nil {
		return nil, err
	}
	return []JointAngles{a}, nil
}
