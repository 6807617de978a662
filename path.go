package mearm

import (
	"fmt"
	"math"

	"mearm/kinematics"
)

// MaxWaypoints bounds the length of a planned path.
const MaxWaypoints = 10_000

// LinearPath returns the waypoints of a straight line from start to target,
// spaced step mm apart from start and ending exactly on target. Coincident
// points give a single waypoint.
func LinearPath(start, target kinematics.Point, step float64) ([]kinematics.Point, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: path resolution must be positive, got %v", ErrInvalidConfig, step)
	}

	dist := start.Distance(target)
	if n := math.Ceil(dist / step); n > MaxWaypoints {
		return nil, fmt.Errorf("%w: %.0f waypoints at resolution %v exceeds %d",
			ErrInvalidConfig, n, step, MaxWaypoints)
	}
	var path []kinematics.Point
	for k := 0; float64(k)*step < dist; k++ {
		path = append(path, start.Lerp(target, float64(k)*step/dist))
	}
	return append(path, target), nil
}
