package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHandler_LateProvider(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), nil)

	// derived before the provider exists, as components do at construction
	derived := slog.New(h).With("component", "storage")
	derived.Info("no provider")
	assert.NotContains(t, buf.String(), "vehicle=")

	status := "landed"
	h.SetProvider(func() []slog.Attr { return []slog.Attr{slog.String("vehicle", status)} })

	buf.Reset()
	derived.Info("with provider")
	assert.Contains(t, buf.String(), "vehicle=landed")
	assert.Contains(t, buf.String(), "component=storage")

	status = "flying"
	buf.Reset()
	derived.WithGroup("g").Info("grouped")
	assert.Contains(t, buf.String(), "g.vehicle=flying")
}

func TestContextHandler_EmptyGroup(t *testing.T) {
	h := NewContextHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), nil)
	assert.Same(t, h, h.WithGroup(""))
}
