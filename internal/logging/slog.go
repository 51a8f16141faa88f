package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName identifies hilsim logs in OTel and Graylog.
const ServiceName = "hilsim"

// stdout is swapped in tests.
var stdout io.Writer = os.Stdout

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	ctxHandler *ContextHandler
	provider   ContextProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// Setup initializes the logging system. Records go to file, or to stdout when
// file is nil, plus the OTel bridge when provider is non-nil and any extra
// sinks (Graylog).
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...Sink) {
	lvl, known := ParseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}

	sinks := []Sink{{Name: "console", Handler: slog.NewTextHandler(stdout, handlerOpts)}}
	if file != nil {
		sinks[0] = Sink{Name: "file", Handler: slog.NewTextHandler(file, handlerOpts)}
	}
	if provider != nil {
		sinks = append(sinks, Sink{Name: "otel", Handler: otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider))})
	}
	sinks = append(sinks, extra...)

	multi := NewMultiHandler(sinks...)
	m.ctxHandler = NewContextHandler(multi, m.provider)
	m.logger = slog.New(m.ctxHandler)
	m.logger.Info("Logging initialized", "level", lvl.String(), "sinks", multi.Names())
	if !known {
		m.logger.Warn("Unknown log level, using INFO", "logLevel", level)
	}
}

// SetContextProvider installs p as the source of per-record attributes.
// It can be called after Setup, once the simulation exists.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.provider = p
	if m.ctxHandler != nil {
		m.ctxHandler.SetProvider(p)
	}
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
