package audit

import (
	"context"
	"log/slog"
	"maps"
)

// Option configures a Logger.
type Option func(*Logger)

// WithLogger sets the logger that receives storage failures.
func WithLogger(log *slog.Logger) Option {
	return func(l *Logger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(l *Logger) {
		if m != nil {
			l.metrics = m
		}
	}
}

// WithFilter replaces the default metadata filter. Nil disables filtering.
func WithFilter(f *MetadataFilter) Option {
	return func(l *Logger) {
		l.filter = f
	}
}

// WithIPExtractor fills IPAddress from the context.
func WithIPExtractor(fn func(context.Context) string) Option {
	return func(l *Logger) {
		l.ipExtractor = nonEmpty(fn)
	}
}

// WithUserAgentExtractor fills UserAgent from the context.
func WithUserAgentExtractor(fn func(context.Context) string) Option {
	return func(l *Logger) {
		l.uaExtractor = nonEmpty(fn)
	}
}

func nonEmpty(fn func(context.Context) string) contextExtractor {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) (string, bool) {
		v := fn(ctx)
		return v, v != ""
	}
}

// EntryOption sets fields of an entry being logged.
type EntryOption func(*Entry)

// WithActor sets who performed the action.
func WithActor(ref *EntityRef) EntryOption {
	return func(e *Entry) {
		e.Actor = ref
	}
}

// WithSubject sets what the action was performed on.
func WithSubject(ref *EntityRef) EntryOption {
	return func(e *Entry) {
		e.Subject = ref
	}
}

// WithProperties merges props into the entry properties.
func WithProperties(props Properties) EntryOption {
	return func(e *Entry) {
		if len(props) == 0 {
			return
		}
		if e.Properties == nil {
			e.Properties = make(Properties, len(props))
		}
		maps.Copy(e.Properties, props)
	}
}

// WithProperty sets a single property.
func WithProperty(key string, value any) EntryOption {
	return WithProperties(Properties{key: value})
}

// WithIP overrides the IP address taken from the context.
func WithIP(ip string) EntryOption {
	return func(e *Entry) {
		e.IPAddress = ip
	}
}

// WithUserAgent overrides the user agent taken from the context.
func WithUserAgent(ua string) EntryOption {
	return func(e *Entry) {
		e.UserAgent = ua
	}
}
