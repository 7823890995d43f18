package tools

import (
	"context"
	"fmt"
)

// Level is the severity of a progress notice.
type Level string

// Notice levels, named as in MCP logging.
const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier receives progress notices from running tools, e.g. to forward
// them to an MCP client.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, level Level, message string)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, level Level, message string) { f(ctx, level, message) }

type notifierKey struct{}

// WithNotifier attaches n to ctx.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierKey{}, n)
}

// Notify sends a notice to the notifier on ctx, if any.
func Notify(ctx context.Context, level Level, format string, args ...any) {
	n, ok := ctx.Value(notifierKey{}).(Notifier)
	if !ok || n == nil {
		return
	}

	n.Notify(ctx, level, fmt.Sprintf(format, args...))
}
