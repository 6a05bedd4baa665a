package service

import (
	"context"
	"log/slog"
	"sync"
)

// Event is a diagnostic record emitted at each major step of an operation.
type Event struct {
	Op    string
	Step  string
	Actor string
	Attrs []any
}

// EventLogger receives events. A failing logger never affects the operation
// that emitted the event.
type EventLogger interface {
	LogEvent(ctx context.Context, e Event) error
}

// SlogEventLogger writes events as structured log lines.
type SlogEventLogger struct {
	Logger *slog.Logger
}

// LogEvent implements EventLogger.
func (l SlogEventLogger) LogEvent(ctx context.Context, e Event) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := append([]any{"op", e.Op, "actor", e.Actor}, e.Attrs...)
	logger.InfoContext(ctx, e.Step, attrs...)
	return nil
}

// Dispatcher delivers events to an EventLogger on background goroutines.
// A nil *Dispatcher discards events.
type Dispatcher struct {
	logger EventLogger
	wg     sync.WaitGroup
}

// NewDispatcher returns a Dispatcher for logger.
func NewDispatcher(logger EventLogger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Emit hands e to the logger without waiting for it. The request context's
// values are kept but its cancellation is not.
func (d *Dispatcher) Emit(ctx context.Context, e Event) {
	if d == nil || d.logger == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Warn("event logger panicked", "op", e.Op, "step", e.Step, "panic", r)
			}
		}()
		if err := d.logger.LogEvent(ctx, e); err != nil {
			slog.Warn("event logger failed", "op", e.Op, "step", e.Step, "error", err)
		}
	}()
}

// Wait blocks until every emitted event has been delivered.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
