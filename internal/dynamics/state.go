package dynamics

import (
	"github.com/hilsim/hilsim/internal/geomath"
)

// Status is the ground contact mode of the vehicle.
type Status int

const (
	Landed Status = iota
	Flying
	Landing
)

func (s Status) String() string {
	switch s {
	case Landed:
		return "landed"
	case Flying:
		return "flying"
	case Landing:
		return "landing"
	default:
		return "unknown"
	}
}

// State is the rigid body state. Position and velocity are in the world
// frame (east, north, up); the angular rate is in the body frame.
type State struct {
	P geomath.Vec3
	V geomath.Vec3
	Q geomath.Quat
	W geomath.Vec3
}

// InitialPose is where the vehicle rests when the simulation starts.
type InitialPose struct {
	Position geomath.Vec3
	Yaw      float64 // rad
}

// Attitude returns the rotation of the pose.
func (p InitialPose) Attitude() geomath.Quat {
	return geomath.FromYaw(p.Yaw)
}
