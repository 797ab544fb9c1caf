package logger

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler forwards each record to every sink layerfill writes to: the
// plain console handler and the session log file. One sink failing does not
// stop the others.
type teeHandler struct {
	sinks []slog.Handler
}

func newTeeHandler(sinks ...slog.Handler) slog.Handler {
	return &teeHandler{sinks: sinks}
}

// Enabled reports whether any sink wants the level, so a verbose file sink
// keeps records flowing even when the console is quieter.
func (t *teeHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, sink := range t.sinks {
		if sink.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, sink := range t.sinks {
		if !sink.Enabled(ctx, r.Level) {
			continue
		}
		if err := sink.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, sink := range t.sinks {
		sinks[i] = sink.WithAttrs(attrs)
	}
	return &teeHandler{sinks: sinks}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, sink := range t.sinks {
		sinks[i] = sink.WithGroup(name)
	}
	return &teeHandler{sinks: sinks}
}
