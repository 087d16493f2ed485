package audit

import (
	"context"
	"log/slog"

	"github.com/natvps/panel/pkg/logger"
)

// contextExtractor extracts string values from context.
type contextExtractor func(context.Context) (string, bool)

// Metrics receives the outcome of every Log call.
type Metrics interface {
	EntryRecorded(action string)
	EntryFailed(action string)
}

type noopMetrics struct{}

func (noopMetrics) EntryRecorded(string) {}
func (noopMetrics) EntryFailed(string)   {}

// Logger records audit entries. Recording is best effort: a storage
// failure is logged and counted but never surfaces to the caller, so the
// audited operation always proceeds.
type Logger struct {
	writer      Writer
	filter      *MetadataFilter
	log         *slog.Logger
	metrics     Metrics
	ipExtractor contextExtractor
	uaExtractor contextExtractor
}

// NewLogger creates a new audit logger
func NewLogger(writer Writer, opts ...Option) *Logger {
	if writer == nil {
		panic("audit: writer cannot be nil")
	}

	l := &Logger{
		writer:  writer,
		filter:  NewMetadataFilter(),
		log:     slog.Default(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records action and returns the stored entry, or nil if it could not be stored.
func (l *Logger) Log(ctx context.Context, action string, opts ...EntryOption) *Entry {
	entry := &Entry{Action: action}

	if l.ipExtractor != nil {
		if ip, ok := l.ipExtractor(ctx); ok {
			entry.IPAddress = ip
		}
	}
	if l.uaExtractor != nil {
		if ua, ok := l.uaExtractor(ctx); ok {
			entry.UserAgent = ua
		}
	}

	for _, opt := range opts {
		opt(entry)
	}

	if l.filter != nil {
		entry.Properties = l.filter.Filter(entry.Properties)
	}

	if err := l.writer.Append(context.WithoutCancel(ctx), entry); err != nil {
		l.metrics.EntryFailed(action)
		l.log.ErrorContext(ctx, "failed to record audit entry",
			logger.Component("audit"),
			logger.Action(action),
			logger.Error(err),
		)
		return nil
	}

	l.metrics.EntryRecorded(action)
	return entry
}
