package sensors

import (
	"math"

	"github.com/hilsim/hilsim/internal/geomath"
)

// GPS is a fix in the scaled integer units of the HIL_GPS message.
type GPS struct {
	Lat int32  // degE7
	Lon int32  // degE7
	Alt int32  // mm above mean sea level
	Eph uint16 // cm
	Epv uint16 // cm
	Vel uint16 // cm/s, 65535 when unknown
	Vn  int16  // cm/s
	Ve  int16  // cm/s
	Vd  int16  // cm/s
	Cog uint16 // cdeg
}

// UnknownSpeed marks an unavailable ground speed.
const UnknownSpeed = math.MaxUint16

// GPS returns a noisy fix for the local position p and world velocity v.
func (s *Simulator) GPS(p, v geomath.Vec3) GPS {
	noisy := geomath.Vec3{
		p.X() + s.rng.NormFloat64()*s.cfg.GPSStdXY,
		p.Y() + s.rng.NormFloat64()*s.cfg.GPSStdXY,
		p.Z() + s.rng.NormFloat64()*s.cfg.GPSStdZ,
	}
	lat, lon, alt := s.Geodetic(noisy)

	return GPS{
		Lat: degE7(lat),
		Lon: degE7(lon),
		Alt: toInt32(alt * 1000),
		Eph: toUint16(s.rng.Float64() * 0.001 * 100),
		Epv: toUint16(s.rng.Float64() * 0.001 * 100),
		Vel: UnknownSpeed,
		Vn:  toInt16((v.Y() + s.rng.Float64()*0.001) * 100),
		Ve:  toInt16((v.X() + s.rng.Float64()*0.001) * 100),
		Vd:  toInt16((-v.Z() + s.rng.Float64()*0.001) * 100),
		Cog: cdeg(s.crandom() * 0.001 * 100),
	}
}

// GroundTruth is the exact state in the units and frames of the
// HIL_STATE_QUATERNION message. It is only logged by the autopilot.
type GroundTruth struct {
	Attitude     [4]float64 // w, x, y, z; body FRD relative to NED
	RollSpeed    float64    // rad/s
	PitchSpeed   float64    // rad/s
	YawSpeed     float64    // rad/s
	Lat          int32      // degE7
	Lon          int32      // degE7
	Alt          int32      // mm
	Vx           int16      // cm/s, north
	Vy           int16      // cm/s, east
	Vz           int16      // cm/s, down
	IndAirspeed  uint16     // cm/s
	TrueAirspeed uint16     // cm/s
	Xacc         int16      // mG
	Yacc         int16      // mG
	Zacc         int16      // mG
}

// enuToNED swaps a rotation expressed between ENU/FLU frames into NED/FRD:
// q_rot = [0,1,0,0] * q * [0,1,0,0].
var enuToNED = geomath.Quat{W: 0, V: geomath.Vec3{1, 0, 0}}

// GroundTruth converts the true state without noise.
func (s *Simulator) GroundTruth(p, v geomath.Vec3, q geomath.Quat, w geomath.Vec3) GroundTruth {
	qRot := enuToNED.Mul(q).Mul(enuToNED)
	lat, lon, alt := s.Geodetic(p)
	speed := toUint16(v.Len() * 100)

	return GroundTruth{
		Attitude:     geomath.Array(qRot),
		RollSpeed:    w.X(),
		PitchSpeed:   -w.Y(),
		YawSpeed:     -w.Z(),
		Lat:          degE7(lat),
		Lon:          degE7(lon),
		Alt:          toInt32(alt * 1000),
		Vx:           toInt16(v.Y() * 100),
		Vy:           toInt16(v.X() * 100),
		Vz:           toInt16(-v.Z() * 100),
		IndAirspeed:  speed,
		TrueAirspeed: speed,
	}
}

func degE7(deg float64) int32 {
	return toInt32(deg * 1e7)
}

// cdeg wraps a course angle in centidegrees into [0, 36000).
func cdeg(v float64) uint16 {
	c := math.Mod(math.Round(v), 36000)
	if c < 0 {
		c += 36000
	}
	return uint16(c)
}

func toInt32(v float64) int32 {
	return int32(saturate(v, math.MinInt32, math.MaxInt32))
}

func toInt16(v float64) int16 {
	return int16(saturate(v, math.MinInt16, math.MaxInt16))
}

func toUint16(v float64) uint16 {
	return uint16(saturate(v, 0, math.MaxUint16))
}

func saturate(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, math.Round(v)))
}
