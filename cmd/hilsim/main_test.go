package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/model/convert"
)

func TestMain(m *testing.M) {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	os.Exit(m.Run())
}

func TestNewRand_Seeded(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("sim.seed", 42)

	a, b := newRand(), newRand()
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestStartPrimaryRecording_None(t *testing.T) {
	params, err := config.LoadParameters("../../internal/config/testdata/sim_params.json")
	require.NoError(t, err)

	r, err := startPrimaryRecording(config.StorageConfig{Type: "none"}, params, convert.NewFlight(params, SessionStartTime), nil)
	assert.NoError(t, err)
	assert.Nil(t, r)
}

func TestStartPrimaryRecording_Unknown(t *testing.T) {
	params, err := config.LoadParameters("../../internal/config/testdata/sim_params.json")
	require.NoError(t, err)

	_, err = startPrimaryRecording(config.StorageConfig{Type: "tape"}, params, convert.NewFlight(params, SessionStartTime), nil)
	assert.ErrorContains(t, err, "unknown storage type")
}

func TestRun_MissingParameterFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	logger := Logger
	t.Cleanup(func() { Logger = logger })

	dir := t.TempDir()
	viper.Set("logsDir", filepath.Join(dir, "logs"))

	code := run([]string{"--config-dir", dir, "--env-file", "", "--params", filepath.Join(dir, "missing.json")})
	assert.Equal(t, 1, code)
	assert.FileExists(t, LogFilePath)
}
