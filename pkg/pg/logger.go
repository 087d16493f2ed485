package pg

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/natvps/panel/pkg/logger"
)

// NewGooseLogger sends goose output to log, one record per line, tagged
// with the migrations component. A nil log discards the output.
func NewGooseLogger(log *slog.Logger) goose.Logger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return gooseLogger{log: log.With(logger.Component("migrations"))}
}

type gooseLogger struct {
	log *slog.Logger
}

// Fatalf is logged at error level; Migrate reports the failure itself
// instead of letting goose exit the process.
func (g gooseLogger) Fatalf(format string, v ...any) {
	g.emit(slog.LevelError, format, v)
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.emit(slog.LevelInfo, format, v)
}

func (g gooseLogger) emit(level slog.Level, format string, v []any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if msg == "" {
		return
	}
	g.log.Log(context.Background(), level, msg)
}
