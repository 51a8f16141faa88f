// Command hilsim runs the multirotor flight dynamics against a PX4 autopilot
// connected over MAVLink.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/hilsim/hilsim/internal/api"
	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/influx"
	"github.com/hilsim/hilsim/internal/logging"
	"github.com/hilsim/hilsim/internal/mavlink"
	"github.com/hilsim/hilsim/internal/model"
	"github.com/hilsim/hilsim/internal/model/convert"
	"github.com/hilsim/hilsim/internal/monitor"
	intOtel "github.com/hilsim/hilsim/internal/otel"
	"github.com/hilsim/hilsim/internal/sim"
	"github.com/hilsim/hilsim/internal/storage"
	"github.com/hilsim/hilsim/internal/storage/factory"
	"github.com/hilsim/hilsim/internal/timer"
)

// BuildDate can be set at build time via ldflags
var (
	Version   string = "0.1.0"
	BuildDate string = "unknown"
)

// holderHz is the rate the status API snapshot is refreshed at.
const holderHz = 50

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	LogFile     *os.File

	SessionStartTime = time.Now()
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	flags, err := config.ParseFlags(args)
	if err != nil {
		Logger.Error("Invalid command line", "error", err)
		return 1
	}
	if err := config.LoadEnv(flags.EnvFile); err != nil {
		Logger.Error("Failed to load env file", "error", err, "path", flags.EnvFile)
		return 1
	}
	if err := config.Load(flags.ConfigDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	}

	closeLogging := setupLogging()
	defer closeLogging()
	Logger.Info("Starting hilsim", "version", Version, "buildDate", BuildDate)

	params, err := config.LoadParameters(viper.GetString("paramsFile"))
	if err != nil {
		Logger.Error("Failed to load parameters", "error", err, "path", viper.GetString("paramsFile"))
		return 1
	}
	loopCfg, err := config.GetLoopConfig()
	if err != nil {
		Logger.Error("Invalid loop configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := mavlink.Listen(loopCfg.MavlinkAddress)
	if err != nil {
		Logger.Error("Failed to start MAVLink server", "error", err)
		return 1
	}
	bridge := mavlink.New(transport, time.Now, Logger)
	Logger.Info("Listening for autopilot", "address", loopCfg.MavlinkAddress)
	if err := bridge.Handshake(ctx); err != nil {
		_ = bridge.Close()
		if ctx.Err() != nil {
			Logger.Info("Interrupted before the autopilot connected")
			return 0
		}
		Logger.Error("Autopilot handshake failed", "error", err)
		return 1
	}

	simCtx, err := sim.New(params, loopCfg, bridge, timer.NewSystemClock(), Logger, newRand())
	if err != nil {
		_ = bridge.Close()
		Logger.Error("Failed to build simulation", "error", err)
		return 1
	}
	defer func() {
		if err := simCtx.Close(); err != nil {
			Logger.Warn("Error closing simulation", "error", err)
		}
	}()
	SlogManager.SetContextProvider(simCtx.LogAttrs)

	flight := convert.NewFlight(params, SessionStartTime)
	storageCfg := config.GetStorageConfig()

	var recordings []*recording
	if r, err := startPrimaryRecording(storageCfg, params, flight, simCtx); err != nil {
		Logger.Error("Flight recorder disabled", "error", err)
	} else if r != nil {
		recordings = append(recordings, r)
		flight.ID = r.flightID()
	}
	if params.Simulation.VizEnabled && storageCfg.Type != factory.TypeWebSocket {
		if r, err := startStreamRecording(storageCfg.WebSocket, params, flight, simCtx); err != nil {
			Logger.Warn("Visualization stream disabled", "error", err)
		} else {
			recordings = append(recordings, r)
		}
	}

	influxManager := startInflux(ctx, flight.ID, simCtx)

	holder := &sim.Holder{}
	if err := simCtx.AddSink(holder, holderHz); err != nil {
		Logger.Error("Failed to register state sink", "error", err)
		return 1
	}

	if params.Simulation.PrintEnabled {
		printer := monitor.NewPrinter(os.Stdout, viper.GetBool("monitor.noColor"))
		if err := simCtx.AddSink(printer, params.Simulation.PrintHz); err != nil {
			Logger.Warn("Status printer disabled", "error", err)
		}
	}

	apiServer := startAPI(holder, params, flight, storageCfg.Type, simCtx)

	if err := simCtx.Run(ctx); err != nil {
		Logger.Error("Simulation stopped with error", "error", err)
	}

	end := storage.FlightEnd{
		EndedAt:     time.Now(),
		FinalStatus: simCtx.Status().String(),
		ConsumedMAh: simCtx.Model().Battery().Consumed(),
	}
	for _, r := range recordings {
		r.stop(end)
	}
	if apiServer != nil {
		if err := apiServer.Shutdown(); err != nil {
			Logger.Warn("Error stopping status API", "error", err)
		}
	}
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			Logger.Warn("Error closing InfluxDB client", "error", err)
		}
	}

	Logger.Info("Shutdown complete", "iterations", simCtx.Iterations(), "status", end.FinalStatus)
	return 0
}

// setupLogging moves logging to the session log file and attaches the OTel
// and Graylog handlers. The returned func flushes and closes them.
func setupLogging() func() {
	level := viper.GetString("logLevel")
	logsDir := viper.GetString("logsDir")

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs dir", "error", err, "path", logsDir)
	}
	LogFilePath = logging.LogFilePath(logsDir, "hilsim", SessionStartTime)

	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}
	var logWriter io.Writer
	if LogFile != nil {
		logWriter = LogFile
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		provider, err := intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			BatchTimeout:   otelCfg.BatchTimeout,
			MetricInterval: otelCfg.MetricInterval,
			LogWriter:      logWriter,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			OTelProvider = provider
		}
	}

	var extra []logging.Sink
	var graylogWriter io.Closer
	if viper.GetBool("graylog.enabled") {
		w, err := logging.DialGelf(viper.GetString("graylog.address"))
		if err != nil {
			Logger.Warn("Graylog disabled", "error", err)
		} else {
			host, _ := os.Hostname()
			extra = append(extra, logging.Sink{Name: "graylog", Handler: logging.NewGelfHandler(w, host, slog.LevelInfo)})
			if c, ok := any(w).(io.Closer); ok {
				graylogWriter = c
			}
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	if logWriter != nil {
		fmt.Fprintf(os.Stdout, "hilsim: logging to %s\n", LogFilePath)
	}
	SlogManager.Setup(logWriter, level, otelLogProvider, extra...)
	Logger = SlogManager.Logger()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if OTelProvider != nil {
			if err := OTelProvider.Flush(ctx); err != nil {
				Logger.Warn("Failed to flush OTel data", "error", err)
			}
			if err := OTelProvider.Shutdown(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "otel shutdown:", err)
			}
		}
		if graylogWriter != nil {
			_ = graylogWriter.Close()
		}
		if LogFile != nil {
			_ = LogFile.Close()
		}
	}
}

// newRand seeds every noise source from sim.seed, or from the clock when
// it is zero.
func newRand() *rand.Rand {
	seed := viper.GetUint64("sim.seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	Logger.Info("Noise seed", "seed", seed)
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// startInflux connects to InfluxDB and registers the telemetry sink. It
// returns nil when influx is disabled or unusable.
func startInflux(ctx context.Context, flightID uint, simCtx *sim.Context) *influx.Manager {
	backup := logging.SessionFilePath(viper.GetString("logsDir"), "hilsim_influx", ".lp.gz", SessionStartTime)
	m := influx.NewManager(logging.NewZerolog(zerologOutput(), viper.GetString("logLevel")), backup)

	if err := m.Connect(ctx); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			Logger.Warn("InfluxDB telemetry disabled", "error", err)
		}
		return nil
	}
	if err := simCtx.AddSink(influx.NewTelemetry(m, flightID), viper.GetFloat64("influx.sampleHz")); err != nil {
		Logger.Warn("InfluxDB telemetry disabled", "error", err)
		_ = m.Close()
		return nil
	}
	return m
}

func zerologOutput() *os.File {
	if LogFile != nil {
		return LogFile
	}
	return os.Stdout
}

// startAPI serves the status API in the background when api.enabled is set.
func startAPI(holder *sim.Holder, params *config.Parameters, flight model.Flight, storageType string, simCtx *sim.Context) *api.Server {
	apiCfg := config.GetAPIConfig()
	if !apiCfg.Enabled {
		return nil
	}

	info := api.FlightInfo{
		ID:        flight.ID,
		StartedAt: flight.StartedAt,
		Storage:   storageType,
	}
	if s := params.Store(); s != nil {
		info.ParamsFile = s.Path()
	}
	server := api.New(api.Dependencies{
		State:  holder,
		Params: params.Store(),
		Flight: info,
		Status: func() string { return simCtx.Status().String() },
		Logger: Logger,
	})

	go func() {
		Logger.Info("Status API listening", "address", apiCfg.Address)
		if err := server.Listen(apiCfg.Address); err != nil {
			Logger.Error("Status API stopped", "error", err)
		}
	}()
	return server
}
