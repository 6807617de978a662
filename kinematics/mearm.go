package kinematics

import (
	"fmt"
	"math"
)

// Geometry holds the meArm link lengths in millimetres.
type Geometry struct {
	UpperArm float64 `json:"upper_arm"` // shoulder to elbow
	Forearm  float64 `json:"forearm"`   // elbow to wrist
	Offset   float64 `json:"offset"`    // base centre to shoulder plus wrist to gripper tip
}

// DefaultGeometry matches the stock meArm.
var DefaultGeometry = Geometry{UpperArm: 80, Forearm: 80, Offset: 68}

// Validate checks that every link has a positive length.
func (g Geometry) Validate() error {
	if g.UpperArm <= 0 || g.Forearm <= 0 || g.Offset < 0 {
		return fmt.Errorf("invalid geometry: upper_arm=%.1f forearm=%.1f offset=%.1f", g.UpperArm, g.Forearm, g.Offset)
	}
	return nil
}

// MeArm solves the meArm's planar linkage.
//
// The hip angle is measured from +Y towards +X. The shoulder angle is the
// upper arm's elevation above horizontal. The elbow angle is the forearm's
// elevation above horizontal; the meArm's parallel linkage makes it absolute
// rather than relative to the upper arm. Most reachable points have two
// solutions; Inverse returns the elbow-up one and Solutions returns both.
type MeArm struct {
	g Geometry
}

// NewMeArm returns a solver for the given geometry.
func NewMeArm(g Geometry) *MeArm {
	return &MeArm{g: g}
}

// Forward implements Solver.
func (m *MeArm) Forward(hip, shoulder, elbow float64) (x, y, z float64) {
	a0, a1, a2 := radians(hip), radians(shoulder), radians(elbow)

	u := m.g.UpperArm*math.Cos(a1) + m.g.Forearm*math.Cos(a2) + m.g.Offset
	z = m.g.UpperArm*math.Sin(a1) + m.g.Forearm*math.Sin(a2)
	x = u * math.Sin(a0)
	y = u * math.Cos(a0)
	return x, y, z
}

// Inverse implements Solver with the elbow-up solution.
func (m *MeArm) Inverse(x, y, z float64) (hip, shoulder, elbow float64, err error) {
	sols, err := m.Solutions(x, y, z)
	if err != nil {
		return 0, 0, 0, err
	}
	return sols[0].Hip, sols[0].Shoulder, sols[0].Elbow, nil
}

// Solutions implements BranchSolver. The elbow-up solution comes first. At
// full extension the two coincide and only one is returned.
func (m *MeArm) Solutions(x, y, z float64) ([]JointAngles, error) {
	r := math.Hypot(x, y)
	a0 := 0.0
	if r != 0 {
		a0 = math.Atan2(x, y)
	}

	r -= m.g.Offset
	reach := math.Hypot(r, z)
	elevation := math.Atan2(z, r)

	b, ok := lawOfCosines(m.g.Forearm, m.g.UpperArm, reach)
	if !ok {
		return nil, fmt.Errorf("%w: (%.2f, %.2f, %.2f)", ErrNoSolution, x, y, z)
	}
	c, ok := lawOfCosines(reach, m.g.UpperArm, m.g.Forearm)
	if !ok {
		return nil, fmt.Errorf("%w: (%.2f, %.2f, %.2f)", ErrNoSolution, x, y, z)
	}

	up := JointAngles{
		Hip:      degrees(a0),
		Shoulder: degrees(elevation + b),
		Elbow:    degrees(elevation + b + c - math.Pi),
	}
	if b < singularTolerance {
		return []JointAngles{up}, nil
	}
	down := JointAngles{
		Hip:      up.Hip,
		Shoulder: degrees(elevation - b),
		Elbow:    degrees(elevation - b - c + math.Pi),
	}
	return []JointAngles{up, down}, nil
}

// singularTolerance absorbs rounding at full extension, where the cosine
// lands a hair outside [-1, 1].
const singularTolerance = 1e-9

// lawOfCosines returns the angle opposite side opp in the triangle with
// sides opp, adj1 and adj2.
func lawOfCosines(opp, adj1, adj2 float64) (float64, bool) {
	den := 2 * adj1 * adj2
	if den == 0 {
		return 0, false
	}
	c := (adj1*adj1 + adj2*adj2 - opp*opp) / den
	if c > 1+singularTolerance || c < -1-singularTolerance {
		return 0, false
	}
	return math.Acos(math.Max(-1, math.Min(1, c))), true
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
