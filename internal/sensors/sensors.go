// Package sensors turns the true vehicle state into the noisy readings an
// autopilot expects. Body-referenced outputs use the north-east-down sign
// convention (y and z negated).
package sensors

import (
	"math"
	"math/rand/v2"

	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/geomath"
)

// EarthRadius is the radius used for the flat-earth geodetic conversion.
const EarthRadius = 6378100.0 // m

// Frame is one IMU and barometer sample.
type Frame struct {
	Accel geomath.Vec3 // m/s^2, NED body
	Gyro  geomath.Vec3 // rad/s, NED body
	Mag   geomath.Vec3 // gauss, NED body
	Baro  float64      // hPa
}

// Simulator holds the noise model and the geodetic origin.
type Simulator struct {
	cfg  config.SensorConfig
	rng  *rand.Rand
	mag  geomath.Vec3
	pSea float64
	cBar float64

	meters2degLat float64
	meters2degLon float64
}

// New returns a simulator drawing its noise from rng.
func New(cfg config.SensorConfig, env config.EnvironmentConfig, rng *rand.Rand) *Simulator {
	lat0 := cfg.LatOrigin * math.Pi / 180
	return &Simulator{
		cfg:           cfg,
		rng:           rng,
		mag:           geomath.Vec3(cfg.MagField),
		pSea:          env.PressureSea,
		cBar:          env.TemperatureSea * env.GasConstant / (env.Gravity * env.MolarMass),
		meters2degLat: 180 / (EarthRadius * math.Pi),
		meters2degLon: 180 / (EarthRadius * math.Cos(lat0) * math.Pi),
	}
}

// Accel returns the specific force measured in the body frame. fw is the
// world frame force without gravity.
func (s *Simulator) Accel(q geomath.Quat, fw geomath.Vec3, mass float64, induced geomath.Vec3) geomath.Vec3 {
	a := geomath.RotateInverse(q, fw.Mul(1/mass))
	a = a.Add(s.noise(s.cfg.AccStd)).Add(geomath.Vec3(s.cfg.AccBias)).Add(induced)
	return geomath.FlipNED(a)
}

// Gyro returns the measured body rate.
func (s *Simulator) Gyro(w, induced geomath.Vec3) geomath.Vec3 {
	g := w.Add(s.noise(s.cfg.GyroStd)).Add(geomath.Vec3(s.cfg.GyroBias)).Add(induced)
	return geomath.FlipNED(g)
}

// Mag returns the earth field seen in the body frame, disturbed by the
// field of the motor currents.
func (s *Simulator) Mag(q geomath.Quat, interference geomath.Vec3) geomath.Vec3 {
	m := geomath.RotateInverse(q, s.mag)
	m = m.Add(s.noise(s.cfg.MagStd)).Add(geomath.Vec3(s.cfg.MagBias)).Add(interference)
	return geomath.FlipNED(m)
}

// Baro returns the static pressure at height z above the origin.
func (s *Simulator) Baro(z float64) float64 {
	p := s.Pressure(z)
	return p + s.rng.NormFloat64()*s.cfg.BaroStd + s.cfg.BaroBias
}

// Pressure is the noise-free barometric pressure at height z.
func (s *Simulator) Pressure(z float64) float64 {
	return s.pSea * math.Exp(-(z+s.cfg.AltOrigin)/s.cBar)
}

// Altitude inverts Pressure.
func (s *Simulator) Altitude(pressure float64) float64 {
	return -s.cBar*math.Log(pressure/s.pSea) - s.cfg.AltOrigin
}

func (s *Simulator) noise(std [3]float64) geomath.Vec3 {
	return geomath.Vec3{
		s.rng.NormFloat64() * std[0],
		s.rng.NormFloat64() * std[1],
		s.rng.NormFloat64() * std[2],
	}
}

// crandom is uniform in [-0.5, 0.5).
func (s *Simulator) crandom() float64 {
	return s.rng.Float64() - 0.5
}

// Geodetic converts a local east-north-up position to latitude and
// longitude in degrees and altitude above mean sea level in meters.
func (s *Simulator) Geodetic(p geomath.Vec3) (lat, lon, alt float64) {
	lat = s.cfg.LatOrigin + p.Y()*s.meters2degLat
	lon = s.cfg.LonOrigin + p.X()*s.meters2degLon
	alt = s.cfg.AltOrigin + p.Z()
	return lat, lon, alt
}

// Local is the inverse of Geodetic.
func (s *Simulator) Local(lat, lon, alt float64) geomath.Vec3 {
	return geomath.Vec3{
		(lon - s.cfg.LonOrigin) / s.meters2degLon,
		(lat - s.cfg.LatOrigin) / s.meters2degLat,
		alt - s.cfg.AltOrigin,
	}
}
