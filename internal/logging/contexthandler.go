package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// ContextProvider returns attributes describing the current run state, such
// as the vehicle status.
type ContextProvider func() []slog.Attr

// ContextHandler adds the attributes of a late-bound provider to every
// record. Handlers derived with WithAttrs or WithGroup share the provider,
// so loggers created before SetProvider pick it up too.
type ContextHandler struct {
	inner    slog.Handler
	provider *atomic.Pointer[ContextProvider]
}

// NewContextHandler wraps inner. p may be nil and set later.
func NewContextHandler(inner slog.Handler, p ContextProvider) *ContextHandler {
	h := &ContextHandler{
		inner:    inner,
		provider: &atomic.Pointer[ContextProvider]{},
	}
	h.SetProvider(p)
	return h
}

// SetProvider replaces the provider for this handler and every handler
// derived from it. Safe for concurrent use with logging.
func (h *ContextHandler) SetProvider(p ContextProvider) {
	if p == nil {
		h.provider.Store(nil)
		return
	}
	h.provider.Store(&p)
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if p := h.provider.Load(); p != nil {
		r.AddAttrs((*p)()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}
