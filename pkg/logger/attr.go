package logger

import (
	"log/slog"
	"time"
)

// Error records err under "error". A nil error yields an empty Attr, which
// slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the acting or affected user under "user_id".
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

// RequestID records the request identifier under "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Action records an audit action such as "auth.login".
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Count records a number of affected rows.
func Count(n int64) slog.Attr {
	return slog.Int64("count", n)
}

// Duration records an elapsed time in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64("duration_ms", d.Milliseconds())
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records a state machine event name.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Job records the name of a scheduled job.
func Job(name string) slog.Attr {
	return slog.String("job", name)
}
