package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/natvps/panel/pkg/logger"
)

// NewErrorHandler logs err and writes a JSON error body. Client errors are
// logged at warn level, everything else at error level.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		status, _ := errorDetail(err)

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(ctx, level, "request error",
			logger.Component("http"),
			logger.Error(err),
			slog.Int("status", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if errors.Is(err, ErrStreamInterrupted) {
			return
		}
		if renderErr := JSONError(err).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(ctx, "failed to render error response",
				logger.Component("http"),
				logger.Error(renderErr),
			)
		}
	}
}
