package bridge

import (
	"context"
	"log/slog"
)

// Sink receives console envelopes produced by the core. Injecting a
// sink keeps diagnostics forwarding out of global state.
type Sink interface {
	Console(level, message string)
}

// SlogSink forwards console lines to a structured logger.
type SlogSink struct {
	Log *slog.Logger
}

func (s SlogSink) Console(level, message string) {
	switch level {
	case "error":
		s.Log.Error(message)
	case "warn":
		s.Log.Warn(message)
	case "debug":
		s.Log.Debug(message)
	default:
		s.Log.Info(message)
	}
}

// SinkHandler adapts a Sink into a slog.Handler so core packages can
// log normally while the bridge owner forwards everything as console
// envelopes.
type SinkHandler struct {
	sink  Sink
	level slog.Level
	attrs []slog.Attr
}

// NewSinkHandler creates a handler forwarding records at or above
// level.
func NewSinkHandler(sink Sink, level slog.Level) *SinkHandler {
	return &SinkHandler{sink: sink, level: level}
}

func (h *SinkHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

func (h *SinkHandler) Handle(_ context.Context, r slog.Record) error {
	msg := r.Message
	appendAttr := func(a slog.Attr) bool {
		msg += " " + a.Key + "=" + a.Value.String()
		return true
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(appendAttr)
	h.sink.Console(levelName(r.Level), msg)
	return nil
}

func (h *SinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	combined = append(combined, h.attrs...)
	combined = append(combined, attrs...)
	return &SinkHandler{sink: h.sink, level: h.level, attrs: combined}
}

func (h *SinkHandler) WithGroup(string) slog.Handler { return h }

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
