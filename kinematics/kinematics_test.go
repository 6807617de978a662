package kinematics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-6

func TestDistance(t *testing.T) {
	points := []Point{
		{},
		{X: 1, Y: 2, Z: 3},
		{X: -40, Y: 150, Z: 60},
		{X: 0.5, Y: -0.25, Z: 1e3},
	}

	for _, p := range points {
		assert.Zero(t, Distance(p, p), "distance of %v to itself", p)
		for _, q := range points {
			assert.Equal(t, Distance(p, q), Distance(q, p), "distance %v <-> %v", p, q)
		}
	}

	assert.InDelta(t, 5.0, Distance(Point{}, Point{X: 3, Y: 4}), epsilon)
	assert.InDelta(t, 13.0, Distance(Point{X: 1, Y: 1, Z: 1}, Point{X: 4, Y: 5, Z: 13}), epsilon)
}

func TestLerp(t *testing.T) {
	a := NewPoint(0, 100, 0)
	b := NewPoint(20, 120, -40)

	assert.Equal(t, a, a.Lerp(b, 0))
	mid := a.Lerp(b, 0.5)
	assert.InDelta(t, 10.0, mid.X, epsilon)
	assert.InDelta(t, 110.0, mid.Y, epsilon)
	assert.InDelta(t, -20.0, mid.Z, epsilon)

	// Lerp never mutates its receiver.
	assert.Equal(t, NewPoint(0, 100, 0), a)
}

func TestMeArmNeutralPose(t *testing.T) {
	k := New(nil)

	p := k.ToCartesian(JointAngles{Hip: 0, Shoulder: 40, Elbow: 0})
	assert.InDelta(t, 0.0, p.X, epsilon)
	assert.InDelta(t, 80*math.Cos(radians(40))+80+68, p.Y, epsilon)
	assert.InDelta(t, 80*math.Sin(radians(40)), p.Z, epsilon)

	a, err := k.FromCartesian(p)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, a.Hip, epsilon)
	assert.InDelta(t, 40.0, a.Shoulder, epsilon)
	assert.InDelta(t, 0.0, a.Elbow, epsilon)
}

// hasSolution reports whether want is among sols.
func hasSolution(sols []JointAngles, want JointAngles, delta float64) bool {
	for _, s := range sols {
		if math.Abs(s.Hip-want.Hip) <= delta &&
			math.Abs(s.Shoulder-want.Shoulder) <= delta &&
			math.Abs(s.Elbow-want.Elbow) <= delta {
			return true
		}
	}
	return false
}

func TestMeArmRoundTrip(t *testing.T) {
	k := New(NewMeArm(DefaultGeometry))

	// Full extension (shoulder == elbow) is included; acos loses a few digits
	// there, hence the looser tolerance.
	for hip := -80.0; hip <= 80; hip += 20 {
		for shoulder := -15.0; shoulder <= 65; shoulder += 10 {
			for elbow := -25.0; elbow <= 84.5; elbow += 15 {
				want := JointAngles{Hip: hip, Shoulder: shoulder, Elbow: elbow}
				sols, err := k.Solutions(k.ToCartesian(want))
				require.NoError(t, err, "angles %v", want)
				assert.True(t, hasSolution(sols, want, 1e-4), "angles %v not among %v", want, sols)

				if shoulder > elbow {
					// Elbow-up is the preferred solution.
					got, err := k.FromCartesian(k.ToCartesian(want))
					require.NoError(t, err)
					assert.InDelta(t, want.Shoulder, got.Shoulder, 1e-4, "shoulder for %v", want)
					assert.InDelta(t, want.Elbow, got.Elbow, 1e-4, "elbow for %v", want)
				}
			}
		}
	}
}

func TestMeArmSolutions(t *testing.T) {
	k := New(nil)

	t.Run("both branches", func(t *testing.T) {
		want := JointAngles{Hip: 20, Shoulder: -15, Elbow: 80}
		sols, err := k.Solutions(k.ToCartesian(want))
		require.NoError(t, err)
		require.Len(t, sols, 2)

		// With equal links the elbow-down solution is the elbow-up one with
		// shoulder and elbow swapped.
		assert.InDelta(t, 20, sols[0].Hip, epsilon)
		assert.InDelta(t, 80, sols[0].Shoulder, epsilon)
		assert.InDelta(t, -15, sols[0].Elbow, epsilon)
		assert.InDelta(t, -15, sols[1].Shoulder, epsilon)
		assert.InDelta(t, 80, sols[1].Elbow, epsilon)
	})

	t.Run("full extension", func(t *testing.T) {
		sols, err := k.Solutions(NewPoint(0, 80+80+68, 0))
		require.NoError(t, err)
		require.NotEmpty(t, sols)
		for _, s := range sols {
			assert.InDelta(t, 0, s.Shoulder, 1e-3)
			assert.InDelta(t, 0, s.Elbow, 1e-3)
		}
	})

	t.Run("plain solver", func(t *testing.T) {
		k := New(fixedSolver{})
		sols, err := k.Solutions(NewPoint(1, 2, 3))
		require.NoError(t, err)
		assert.Equal(t, []JointAngles{{Hip: 1, Shoulder: 2, Elbow: 3}}, sols)
	})
}

// fixedSolver echoes coordinates as angles and has a single branch.
type fixedSolver struct{}

func (fixedSolver) Forward(hip, shoulder, elbow float64) (x, y, z float64) {
	return hip, shoulder, elbow
}

func (fixedSolver) Inverse(x, y, z float64) (hip, shoulder, elbow float64, err error) {
	return x, y, z, nil
}

func TestMeArmHipQuadrants(t *testing.T) {
	k := New(nil)

	tests := []struct {
		name string
		p    Point
		hip  float64
	}{
		{"straight ahead", NewPoint(0, 200, 50), 0},
		{"right", NewPoint(200, 0, 50), 90},
		{"left", NewPoint(-200, 0, 50), -90},
		{"diagonal", NewPoint(150, 150, 50), 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := k.FromCartesian(tt.p)
			require.NoError(t, err)
			assert.InDelta(t, tt.hip, a.Hip, epsilon)
		})
	}
}

func TestMeArmNoSolution(t *testing.T) {
	k := New(nil)

	tests := []struct {
		name string
		p    Point
	}{
		{"too far", NewPoint(0, 500, 0)},
		{"too high", NewPoint(0, 68, 400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.FromCartesian(tt.p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoSolution))
		})
	}
}

func TestGeometryValidate(t *testing.T) {
	assert.NoError(t, DefaultGeometry.Validate())
	assert.Error(t, Geometry{UpperArm: 0, Forearm: 80, Offset: 68}.Validate())
	assert.Error(t, Geometry{UpperArm: 80, Forearm: 80, Offset: -1}.Validate())
}
