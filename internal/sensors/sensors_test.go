package sensors

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/geomath"
)

func envConfig() config.EnvironmentConfig {
	return config.EnvironmentConfig{
		PressureSea:    1013.25,
		Gravity:        9.80665,
		MolarMass:      0.02896968,
		TemperatureSea: 288.16,
		GasConstant:    8.314462618,
	}
}

// noiseless has every standard deviation and bias at zero.
func noiseless() config.SensorConfig {
	return config.SensorConfig{
		LatOrigin: 40.448985,
		LonOrigin: -79.898025,
		AltOrigin: 372,
		MagField:  [3]float64{0.02559, 0.16928, -0.39550},
	}
}

func newSim(cfg config.SensorConfig) *Simulator {
	return New(cfg, envConfig(), rand.New(rand.NewPCG(1, 2)))
}

func TestAccel_LevelHoverReadsGravityUp(t *testing.T) {
	s := newSim(noiseless())
	m := 2.0
	fw := geomath.Vec3{0, 0, m * 9.80665}

	a := s.Accel(geomath.Identity(), fw, m, geomath.Vec3{})
	// Up in FLU becomes -z in FRD.
	assert.InDelta(t, 0, a.X(), 1e-12)
	assert.InDelta(t, 0, a.Y(), 1e-12)
	assert.InDelta(t, -9.80665, a.Z(), 1e-12)
}

func TestAccel_RotatesIntoBody(t *testing.T) {
	s := newSim(noiseless())
	// Yawed 90 degrees: a world east force appears on body -y (FLU).
	q := geomath.FromYaw(math.Pi / 2)
	a := s.Accel(q, geomath.Vec3{1, 0, 0}, 1, geomath.Vec3{})
	assert.InDelta(t, 0, a.X(), 1e-12)
	assert.InDelta(t, 1, a.Y(), 1e-12)
}

func TestGyro_FlipsAndAddsBias(t *testing.T) {
	cfg := noiseless()
	cfg.GyroBias = [3]float64{0.01, 0.02, 0.03}
	s := newSim(cfg)

	g := s.Gyro(geomath.Vec3{1, 2, 3}, geomath.Vec3{0.1, 0, 0})
	assert.InDelta(t, 1.11, g.X(), 1e-12)
	assert.InDelta(t, -2.02, g.Y(), 1e-12)
	assert.InDelta(t, -3.03, g.Z(), 1e-12)
}

func TestMag_IdentityAttitude(t *testing.T) {
	s := newSim(noiseless())
	m := s.Mag(geomath.Identity(), geomath.Vec3{0, 0, 0.001})
	assert.InDelta(t, 0.02559, m.X(), 1e-12)
	assert.InDelta(t, -0.16928, m.Y(), 1e-12)
	assert.InDelta(t, 0.39550-0.001, m.Z(), 1e-12)
}

func TestBaro_DecreasesWithHeight(t *testing.T) {
	s := newSim(noiseless())
	p0 := s.Baro(0)
	p100 := s.Baro(100)
	assert.Less(t, p100, p0)
	// About 0.12 hPa per meter near sea level.
	assert.InDelta(t, 11.5, p0-p100, 1.5)
	assert.InDelta(t, 100, s.Altitude(p100), 1e-6)
}

func TestBaro_SeaLevel(t *testing.T) {
	cfg := noiseless()
	cfg.AltOrigin = 0
	s := newSim(cfg)
	assert.InDelta(t, 1013.25, s.Pressure(0), 1e-9)
}

func TestBaro_Noise(t *testing.T) {
	cfg := noiseless()
	cfg.BaroStd = 0.5
	cfg.BaroBias = 2
	s := newSim(cfg)

	var sum float64
	n := 20000
	for i := 0; i < n; i++ {
		sum += s.Baro(0) - s.Pressure(0)
	}
	assert.InDelta(t, 2, sum/float64(n), 0.02)
}

func TestGPS_OriginRoundTrip(t *testing.T) {
	s := newSim(noiseless())

	fix := s.GPS(geomath.Vec3{}, geomath.Vec3{})
	assert.Equal(t, int32(404489850), fix.Lat)
	assert.Equal(t, int32(-798980250), fix.Lon)
	assert.Equal(t, int32(372000), fix.Alt)
	assert.Equal(t, uint16(UnknownSpeed), fix.Vel)

	p := geomath.Vec3{120, -75, 12.5}
	fix = s.GPS(p, geomath.Vec3{})
	back := s.Local(float64(fix.Lat)/1e7, float64(fix.Lon)/1e7, float64(fix.Alt)/1000)
	// One degE7 step is about 1.1 cm.
	assert.InDelta(t, p.X(), back.X(), 0.02)
	assert.InDelta(t, p.Y(), back.Y(), 0.02)
	assert.InDelta(t, p.Z(), back.Z(), 1e-3)
}

func TestGPS_Velocity(t *testing.T) {
	s := newSim(noiseless())
	fix := s.GPS(geomath.Vec3{}, geomath.Vec3{1, 2, -3})
	assert.Equal(t, int16(200), fix.Vn)
	assert.Equal(t, int16(100), fix.Ve)
	assert.Equal(t, int16(300), fix.Vd)
	assert.Less(t, fix.Cog, uint16(36000))
}

func TestGPS_Saturates(t *testing.T) {
	s := newSim(noiseless())
	fix := s.GPS(geomath.Vec3{}, geomath.Vec3{0, 1e6, 0})
	assert.Equal(t, int16(math.MaxInt16), fix.Vn)
}

func TestGroundTruth(t *testing.T) {
	s := newSim(noiseless())
	gt := s.GroundTruth(geomath.Vec3{0, 0, 10}, geomath.Vec3{3, 4, -1}, geomath.Identity(), geomath.Vec3{0.1, 0.2, 0.3})

	// Conjugating the identity by [0,1,0,0] gives -1.
	assert.InDelta(t, -1, gt.Attitude[0], 1e-12)
	assert.InDelta(t, 0, gt.Attitude[1], 1e-12)
	assert.InDelta(t, 0.1, gt.RollSpeed, 1e-12)
	assert.InDelta(t, -0.2, gt.PitchSpeed, 1e-12)
	assert.InDelta(t, -0.3, gt.YawSpeed, 1e-12)
	assert.Equal(t, int32(404489850), gt.Lat)
	assert.Equal(t, int32(382000), gt.Alt)
	assert.Equal(t, int16(400), gt.Vx)
	assert.Equal(t, int16(300), gt.Vy)
	assert.Equal(t, int16(100), gt.Vz)
	assert.Equal(t, uint16(510), gt.IndAirspeed)
	assert.Equal(t, gt.IndAirspeed, gt.TrueAirspeed)
}

func TestGroundTruth_AttitudeIsUnit(t *testing.T) {
	s := newSim(noiseless())
	gt := s.GroundTruth(geomath.Vec3{}, geomath.Vec3{}, geomath.FromYaw(math.Pi/2), geomath.Vec3{})
	q := geomath.Quat{W: gt.Attitude[0], V: geomath.Vec3{gt.Attitude[1], gt.Attitude[2], gt.Attitude[3]}}
	require.InDelta(t, 1, geomath.QuatNorm(q), 1e-12)
}

func TestNoise_Statistics(t *testing.T) {
	cfg := noiseless()
	cfg.AccStd = [3]float64{0.1, 0.1, 0.1}
	s := newSim(cfg)

	var sum, sumSq float64
	n := 20000
	for i := 0; i < n; i++ {
		a := s.Accel(geomath.Identity(), geomath.Vec3{}, 1, geomath.Vec3{})
		sum += a.X()
		sumSq += a.X() * a.X()
	}
	mean := sum / float64(n)
	std := math.Sqrt(sumSq/float64(n) - mean*mean)
	assert.InDelta(t, 0, mean, 0.005)
	assert.InDelta(t, 0.1, std, 0.005)
}
