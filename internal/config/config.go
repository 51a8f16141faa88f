package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the runtime settings file looked up in the config dir.
const ConfigFileName = "hilsim.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. HILSIM_MAVLINK_ADDRESS.
const EnvPrefix = "HILSIM"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
}

// WebSocketConfig holds settings for the visualization stream backend
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the flight recorder backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	SampleHz  float64         `json:"sampleHz" mapstructure:"sampleHz"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout   time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	// MetricInterval is the export period of the metric reader.
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
	Endpoint       string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `json:"insecure" mapstructure:"insecure"`
}

// LoopConfig holds the settings of the main simulation loop that are not
// part of the vehicle parameter file.
type LoopConfig struct {
	MavlinkAddress string
	DtPolicy       DtPolicy
	DtAlertHz      float64
	MaxSubsteps    int
	RCEnabled      bool
	RCHz           float64
}

// APIConfig holds the status HTTP API settings
type APIConfig struct {
	Enabled bool
	Address string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers default values and environment overrides. Load
// calls it, and callers that run without a settings file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("paramsFile", "./config/sim_params.json")

	viper.SetDefault("mavlink.address", "localhost:4560")

	viper.SetDefault("sim.dtPolicy", string(DtPolicyWarn))
	viper.SetDefault("sim.dtAlertHz", 400)
	viper.SetDefault("sim.maxSubsteps", 8)
	viper.SetDefault("sim.rcEnabled", false)
	viper.SetDefault("sim.rcHz", 50)
	viper.SetDefault("sim.seed", 0)
	viper.SetDefault("monitor.noColor", false)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.address", "127.0.0.1:8090")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.mysqlPort", "3306")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "hilsim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "hilsim")
	viper.SetDefault("influx.sampleHz", 10)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.sampleHz", 20)
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "1m")
	viper.SetDefault("storage.sqlite.outputDir", "./recordings")
	viper.SetDefault("storage.websocket.url", "ws://localhost:8091/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "hilsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "10s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the flight recorder settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:     strings.ToLower(viper.GetString("storage.type")),
		SampleHz: viper.GetFloat64("storage.sampleHz"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}

// GetAPIConfig returns the status API settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		Enabled: viper.GetBool("api.enabled"),
		Address: viper.GetString("api.address"),
	}
}

// GetLoopConfig returns the main loop settings, validating the dt policy.
func GetLoopConfig() (LoopConfig, error) {
	policy, err := ParseDtPolicy(viper.GetString("sim.dtPolicy"))
	if err != nil {
		return LoopConfig{}, err
	}
	cfg := LoopConfig{
		MavlinkAddress: viper.GetString("mavlink.address"),
		DtPolicy:       policy,
		DtAlertHz:      viper.GetFloat64("sim.dtAlertHz"),
		MaxSubsteps:    viper.GetInt("sim.maxSubsteps"),
		RCEnabled:      viper.GetBool("sim.rcEnabled"),
		RCHz:           viper.GetFloat64("sim.rcHz"),
	}
	if cfg.DtAlertHz <= 0 {
		return LoopConfig{}, fmt.Errorf("%w: sim.dtAlertHz must be positive", ErrInvalidParameter)
	}
	if cfg.RCEnabled && cfg.RCHz <= 0 {
		return LoopConfig{}, fmt.Errorf("%w: sim.rcHz must be positive", ErrInvalidParameter)
	}
	if cfg.MaxSubsteps < 1 {
		cfg.MaxSubsteps = 1
	}
	return cfg, nil
}
