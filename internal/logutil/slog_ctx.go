package logutil

import (
	"context"
	"log/slog"

	"github.com/go-logr/logr"
)

type contextKey struct{}

// SloggerInto returns a new context with a *slog.Logger stored in it.
// The same handler is also stored as a logr.Logger so that packages
// which log through logr.FromContextOrDiscard share its output.
func SloggerInto(ctx context.Context, log *slog.Logger) context.Context {
	return logr.NewContext(
		context.WithValue(ctx, contextKey{}, log),
		logr.FromSlogHandler(log.Handler()),
	)
}

// SloggerFrom returns a *slog.Logger from the context.
func SloggerFrom(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && log != nil {
		return log
	}

	return slog.New(slog.DiscardHandler)
}
