package logging

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// SessionStampLayout is the time layout carried by every file a run writes.
const SessionStampLayout = "20060102_150405"

// SessionStamp formats the session start for file names.
func SessionStamp(sessionStart time.Time) string {
	return sessionStart.Format(SessionStampLayout)
}

// LogFilePath returns <logsDir>/<name>.<stamp>.log.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(logsDir, name+"."+SessionStamp(sessionStart)+".log")
}

// SessionFilePath returns <dir>/<prefix>_<stamp><ext> for the files a run
// writes besides its log: the influx backup and the recorder outputs.
func SessionFilePath(dir, prefix, ext string, sessionStart time.Time) string {
	return filepath.Join(dir, prefix+"_"+SessionStamp(sessionStart)+ext)
}

// ParseLevel maps a logLevel setting to a slog level. Unknown names give
// Info and ok=false; an empty name is Info.
func ParseLevel(level string) (lvl slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
