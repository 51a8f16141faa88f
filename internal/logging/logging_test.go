package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		logName string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "logs",
			logName: "hilsim",
			want:    filepath.Join("logs", "hilsim.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			logName: "hilsim",
			want:    filepath.Join(".", "logs", "hilsim.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "hilsim"),
			logName: "hilsim",
			want:    filepath.Join("/var", "log", "hilsim", "hilsim.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.logName, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	assert.Equal(t, "20260212_213836", SessionStamp(sessionStart))
	assert.Equal(t,
		filepath.Join("logs", "hilsim_influx_20260212_213836.lp.gz"),
		SessionFilePath("logs", "hilsim_influx", ".lp.gz", sessionStart))
	assert.Equal(t,
		filepath.Join("recordings", "hilsim_20260212_213836.db"),
		SessionFilePath("recordings", "hilsim", ".db", sessionStart))
}
