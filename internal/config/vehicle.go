package config

import (
	"fmt"
	"strings"
)

// MaxActuators is the largest actuator count the wire protocol can carry.
const MaxActuators = 8

// DtPolicy selects what the integrator does with an overlong time step.
type DtPolicy string

const (
	// DtPolicyWarn logs the overrun and integrates the full step.
	DtPolicyWarn DtPolicy = "warn"
	// DtPolicyClamp integrates at most one alert period.
	DtPolicyClamp DtPolicy = "clamp"
	// DtPolicySubstep splits the step into alert-period slices.
	DtPolicySubstep DtPolicy = "substep"
)

// ParseDtPolicy validates a policy name.
func ParseDtPolicy(s string) (DtPolicy, error) {
	switch p := DtPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DtPolicyWarn, DtPolicyClamp, DtPolicySubstep:
		return p, nil
	case "":
		return DtPolicyWarn, nil
	default:
		return "", fmt.Errorf("%w: sim.dtPolicy: unknown policy %q", ErrInvalidParameter, s)
	}
}

// EnvironmentConfig holds the ENV_* constants.
type EnvironmentConfig struct {
	PressureSea    float64 // hPa
	Gravity        float64 // m/s^2
	MolarMass      float64 // kg/mol
	TemperatureSea float64 // K
	GasConstant    float64 // J/(mol K)
}

// DynamicsConfig holds the DYN_* rigid body coefficients.
type DynamicsConfig struct {
	Mass    float64
	DragV   float64
	DragW   float64
	Inertia [3]float64 // diagonal of the inertia tensor
	Wind    [3]float64 // world frame (east, north, up)
}

// ActuatorConfig holds the ACT<i>_* coefficients of one rotor.
type ActuatorConfig struct {
	TimeConstant float64
	RotorInertia float64
	Spin         float64 // +1 or -1
	Volt2Speed   []float64
	Speed2Thrust []float64
	Speed2Torque []float64
	Torque2Amps  []float64
}

// VehicleConfig holds the airframe layout.
type VehicleConfig struct {
	Positions  [][3]float64
	Directions [][3]float64
	Actuators  []ActuatorConfig
	Efficiency float64 // PWR_EFF
}

// Count returns the number of configured actuators.
func (c VehicleConfig) Count() int {
	return len(c.Actuators)
}

// BatteryConfig holds the BAT_* and PWR_IDLE_CURRENT values.
type BatteryConfig struct {
	FullCharge         float64 // mAh
	InitCharge         float64 // percent
	Cells              int
	InternalResistance float64 // ohm
	DischargeRate      float64
	IdleCurrent        float64 // A
}

// SensorConfig holds the SENS_* noise model and geolocation.
type SensorConfig struct {
	AccStd    [3]float64
	AccBias   [3]float64
	AccVib    [3]float64
	GyroStd   [3]float64
	GyroBias  [3]float64
	GyroVib   [3]float64
	MagStd    [3]float64
	MagBias   [3]float64
	MagIntf   [3]float64
	BaroStd   float64
	BaroBias  float64
	GPSStdXY  float64
	GPSStdZ   float64
	LatOrigin float64 // deg
	LonOrigin float64 // deg
	AltOrigin float64 // m above mean sea level
	MagField  [3]float64 // gauss (east, north, up)
}

// SimulationConfig holds the SIM_* scheduling and initial pose values.
type SimulationConfig struct {
	VizEnabled   bool
	VizHz        float64
	SensorHz     float64
	GPSHz        float64
	GTEnabled    bool
	GTHz         float64
	PrintEnabled bool
	PrintHz      float64
	InitPosX     float64
	InitPosY     float64
	InitYawDeg   float64
}

// VisualizationConfig holds the VIZ_* values.
type VisualizationConfig struct {
	Size [3]float64
}

// Parameters is the typed form of a parameter file, validated once at load.
type Parameters struct {
	Environment   EnvironmentConfig
	Dynamics      DynamicsConfig
	Vehicle       VehicleConfig
	Battery       BatteryConfig
	Sensors       SensorConfig
	Simulation    SimulationConfig
	Visualization VisualizationConfig

	store *ParamStore
}

// Store returns the raw key/value view the parameters were decoded from.
func (p *Parameters) Store() *ParamStore {
	return p.store
}

// LoadParameters reads and validates a parameter file.
func LoadParameters(path string) (*Parameters, error) {
	store, err := LoadParamFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(store)
}

// Decode builds typed subsystem configs from store. The first missing or
// invalid key is returned.
func Decode(store *ParamStore) (*Parameters, error) {
	r := &paramReader{s: store}
	p := &Parameters{store: store}

	p.Environment = EnvironmentConfig{
		PressureSea:    r.float("ENV_PRES_SEA"),
		Gravity:        r.float("ENV_GRAVITY"),
		MolarMass:      r.float("ENV_MOL_MASS"),
		TemperatureSea: r.float("ENV_TMP_SEA"),
		GasConstant:    r.float("ENV_GAS_CTE"),
	}
	r.check(p.Environment.Gravity > 0, "ENV_GRAVITY", "must be positive")
	r.check(p.Environment.MolarMass > 0, "ENV_MOL_MASS", "must be positive")

	p.Dynamics = DynamicsConfig{
		Mass:    r.float("DYN_MASS"),
		DragV:   r.float("DYN_DRAG_V"),
		DragW:   r.float("DYN_DRAG_W"),
		Inertia: r.vec("DYN_MOI_", "XX", "YY", "ZZ"),
		Wind:    r.vec("DYN_WIND_", "E", "N", "U"),
	}
	r.check(p.Dynamics.Mass > 0, "DYN_MASS", "must be positive")
	for i, axis := range []string{"XX", "YY", "ZZ"} {
		r.check(p.Dynamics.Inertia[i] > 0, "DYN_MOI_"+axis, "must be positive")
	}

	n := r.int("VEH_ACT_NUM")
	r.check(n >= 1 && n <= MaxActuators, "VEH_ACT_NUM", fmt.Sprintf("must be between 1 and %d", MaxActuators))
	if r.err == nil {
		p.Vehicle = decodeVehicle(r, n)
	}

	p.Battery = BatteryConfig{
		FullCharge:         r.float("BAT_FULL_CHARGE"),
		InitCharge:         r.float("BAT_INIT_CHARGE"),
		Cells:              r.int("BAT_N_CELLS"),
		InternalResistance: r.float("BAT_INTERNAL_RES"),
		DischargeRate:      r.float("BAT_DISCHARGE_RATE"),
		IdleCurrent:        r.float("PWR_IDLE_CURRENT"),
	}
	r.check(p.Battery.FullCharge > 0, "BAT_FULL_CHARGE", "must be positive")
	r.check(p.Battery.Cells > 0, "BAT_N_CELLS", "must be positive")

	p.Sensors = SensorConfig{
		AccStd:    r.vec("SENS_ACC_STD_", "X", "Y", "Z"),
		AccBias:   r.vec("SENS_ACC_BIAS_", "X", "Y", "Z"),
		AccVib:    r.vec("SENS_ACC_VIB_", "X", "Y", "Z"),
		GyroStd:   r.vec("SENS_GYRO_STD_", "X", "Y", "Z"),
		GyroBias:  r.vec("SENS_GYRO_BIAS_", "X", "Y", "Z"),
		GyroVib:   r.vec("SENS_GYRO_VIB_", "X", "Y", "Z"),
		MagStd:    r.vec("SENS_MAG_STD_", "X", "Y", "Z"),
		MagBias:   r.vec("SENS_MAG_BIAS_", "X", "Y", "Z"),
		MagIntf:   r.vec("SENS_MAG_INTF_", "X", "Y", "Z"),
		BaroStd:   r.float("SENS_BAR_STD"),
		BaroBias:  r.float("SENS_BAR_BIAS"),
		GPSStdXY:  r.float("SENS_GPS_STD_XY"),
		GPSStdZ:   r.float("SENS_GPS_STD_Z"),
		LatOrigin: r.float("SENS_LAT_ORIGIN"),
		LonOrigin: r.float("SENS_LON_ORIGIN"),
		AltOrigin: r.float("SENS_ALT_ORIGIN"),
		MagField:  r.vec("SENS_MAG_FIELD_", "E", "N", "U"),
	}
	r.check(p.Sensors.LatOrigin > -90 && p.Sensors.LatOrigin < 90, "SENS_LAT_ORIGIN", "must be within (-90, 90)")

	p.Simulation = SimulationConfig{
		VizEnabled:   r.bool("SIM_ROS_EN"),
		VizHz:        r.float("SIM_ROS_HZ"),
		SensorHz:     r.float("SIM_SENS_HZ"),
		GPSHz:        r.float("SIM_GPS_HZ"),
		GTEnabled:    r.bool("SIM_GT_EN"),
		GTHz:         r.float("SIM_GT_HZ"),
		PrintEnabled: r.bool("SIM_PRINT_EN"),
		PrintHz:      r.float("SIM_PRINT_HZ"),
		InitPosX:     r.float("SIM_INIT_POS_X"),
		InitPosY:     r.float("SIM_INIT_POS_Y"),
		InitYawDeg:   r.float("SIM_INIT_YAW"),
	}
	for _, rate := range []struct {
		key string
		hz  float64
	}{
		{"SIM_ROS_HZ", p.Simulation.VizHz},
		{"SIM_SENS_HZ", p.Simulation.SensorHz},
		{"SIM_GPS_HZ", p.Simulation.GPSHz},
		{"SIM_GT_HZ", p.Simulation.GTHz},
		{"SIM_PRINT_HZ", p.Simulation.PrintHz},
	} {
		r.check(rate.hz > 0, rate.key, "must be positive")
	}

	p.Visualization = VisualizationConfig{
		Size: r.vec("VIZ_SIZE_", "X", "Y", "Z"),
	}

	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

func decodeVehicle(r *paramReader, n int) VehicleConfig {
	v := VehicleConfig{
		Positions:  make([][3]float64, n),
		Directions: make([][3]float64, n),
		Actuators:  make([]ActuatorConfig, n),
		Efficiency: r.float("PWR_EFF"),
	}
	r.check(v.Efficiency > 0 && v.Efficiency <= 1, "PWR_EFF", "must be within (0, 1]")

	for i := 0; i < n; i++ {
		v.Positions[i] = r.vec(fmt.Sprintf("VEH_ACT%d_POS_", i), "X", "Y", "Z")
		v.Directions[i] = r.vec(fmt.Sprintf("VEH_ACT%d_DIR_", i), "X", "Y", "Z")

		prefix := fmt.Sprintf("ACT%d", i)
		a := ActuatorConfig{
			TimeConstant: r.float(prefix + "_TIME_CTE"),
			RotorInertia: r.float(prefix + "_MOI_ROTOR"),
			Spin:         r.float(prefix + "_SPIN"),
			Volt2Speed:   r.poly(prefix+"_VOLT2SPEED", 3),
			Speed2Thrust: r.poly(prefix+"_SPEED2THRUST", 3),
			Speed2Torque: r.poly(prefix+"_SPEED2TORQUE", 3),
			Torque2Amps:  r.poly(prefix+"_TORQUE2AMPS", 3),
		}
		r.check(a.TimeConstant > 0, prefix+"_TIME_CTE", "must be positive")
		r.check(a.Spin == 1 || a.Spin == -1, prefix+"_SPIN", "must be 1 or -1")
		d := v.Directions[i]
		r.check(d[0] != 0 || d[1] != 0 || d[2] != 0, fmt.Sprintf("VEH_ACT%d_DIR", i), "direction must be non-zero")
		v.Actuators[i] = a
	}
	return v
}
