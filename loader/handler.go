package loader

import (
	"context"
	"errors"
)

// ErrMaxErrors stops a load once the error limit is reached.
var ErrMaxErrors = errors.New("loader: max errors reached")

// Handler receives row events during a load. Returning an error stops it.
type Handler interface {
	Event(ctx context.Context, event Event, result *Result) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event, result *Result) error

// Event calls f.
func (f HandlerFunc) Event(ctx context.Context, event Event, result *Result) error {
	return f(ctx, event, result)
}

// MultiHandler fans out events to multiple handlers.
type MultiHandler struct {
	handlers []Handler
}

// NewMultiHandler creates a handler that dispatches to handlers in order.
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Event dispatches to all handlers, stopping on first error.
func (m *MultiHandler) Event(ctx context.Context, event Event, result *Result) error {
	for _, h := range m.handlers {
		if err := h.Event(ctx, event, result); err != nil {
			return err
		}
	}

	return nil
}

// ResultHandler accumulates events into the Result.
type ResultHandler struct{}

// Event updates the result.
func (ResultHandler) Event(_ context.Context, event Event, result *Result) error {
	result.Add(event)

	return nil
}

// StopOnErrorHandler stops the load after maxErrors failed rows.
type StopOnErrorHandler struct {
	maxErrors int
}

// NewStopOnErrorHandler creates a handler that stops after n errors.
// n <= 0 never stops.
func NewStopOnErrorHandler(n int) *StopOnErrorHandler {
	return &StopOnErrorHandler{maxErrors: n}
}

// Event checks the error count.
func (h *StopOnErrorHandler) Event(_ context.Context, event Event, result *Result) error {
	if h.maxErrors <= 0 || event.Action != ActionError {
		return nil
	}

	if result.Snapshot().Errors >= h.maxErrors {
		return ErrMaxErrors
	}

	return nil
}
