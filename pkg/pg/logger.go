package pg

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
)

// logger is the subset of *slog.Logger migrations write to.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// gooseLogger routes goose's printf output into structured logs.
type gooseLogger struct {
	ctx context.Context
	log logger
}

var _ goose.Logger = (*gooseLogger)(nil)

func (g *gooseLogger) Fatalf(format string, v ...any) {
	g.log.ErrorContext(g.ctx, fmt.Sprintf(format, v...), "component", "migrations")
}

func (g *gooseLogger) Printf(format string, v ...any) {
	g.log.InfoContext(g.ctx, fmt.Sprintf(format, v...), "component", "migrations")
}
