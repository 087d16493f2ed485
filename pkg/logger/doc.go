// Package logger builds the panel's *slog.Logger.
//
// New assembles a JSON or text handler from functional options and wraps it
// in a handler that appends attributes pulled from the context
// (for example the request id) on every record. NewFromConfig applies the
// APP_ENV preset: text at debug level in development, JSON at info level in
// staging and production. LOG_LEVEL overrides the preset level.
//
// Values of attributes named like credentials ("code", "secret", "password"
// and friends) are replaced with "[REDACTED]". WithRedactedKeys extends the list.
//
//	log := logger.NewFromConfig(cfg,
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
// The attribute helpers (Error, UserID, Action, Component, Job, Count ...)
// keep key names consistent across packages:
//
//	log.ErrorContext(ctx, "failed to record audit entry",
//	    logger.Component("audit"),
//	    logger.Action(action),
//	    logger.Error(err),
//	)
package logger
