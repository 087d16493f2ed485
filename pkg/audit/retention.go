package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/natvps/panel/pkg/logger"
)

const (
	retentionJobName = "audit_retention"

	// DefaultArchivePartRows caps the rows buffered per archive object.
	DefaultArchivePartRows = 10000
)

// Cleanup deletes entries older than retentionDays relative to now.
// A non-positive retentionDays disables retention and deletes nothing.
func Cleanup(ctx context.Context, purger Purger, retentionDays int, now time.Time) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	return purger.Purge(ctx, Cutoff(now, retentionDays))
}

// Cutoff returns the instant before which entries are purged.
func Cutoff(now time.Time, retentionDays int) time.Time {
	return now.UTC().AddDate(0, 0, -retentionDays)
}

// Archiver stores a CSV snapshot of entries before they are purged. A large
// snapshot arrives as several parts, each a complete CSV with its own header.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) error
}

// RetentionMetrics receives the outcome of every retention run.
type RetentionMetrics interface {
	RetentionRun(deleted int64, duration time.Duration, err error)
}

// RetentionReport describes one retention run.
type RetentionReport struct {
	Days     int
	Disabled bool
	Cutoff   time.Time
	Deleted  int64
	Archived int
	// Archive is the name stem shared by the uploaded parts.
	Archive string
	Parts   []string
}

// RetentionJob purges entries past the retention window. At most one run
// is active at a time; an overlapping call returns ErrJobRunning.
type RetentionJob struct {
	store    Store
	days     int
	audit    *Logger
	archiver Archiver
	partRows int
	log      *slog.Logger
	metrics  RetentionMetrics
	now      func() time.Time
	running  atomic.Bool
}

// RetentionOption configures a RetentionJob.
type RetentionOption func(*RetentionJob)

// WithArchiver archives entries before they are deleted. A failed archive
// aborts the run without deleting anything.
func WithArchiver(a Archiver) RetentionOption {
	return func(j *RetentionJob) {
		j.archiver = a
	}
}

// WithArchivePartRows caps how many rows go into one archive object.
// Non-positive values keep DefaultArchivePartRows.
func WithArchivePartRows(rows int) RetentionOption {
	return func(j *RetentionJob) {
		if rows > 0 {
			j.partRows = rows
		}
	}
}

// WithAuditLogger records an audit.purged entry after every non-empty purge.
func WithAuditLogger(l *Logger) RetentionOption {
	return func(j *RetentionJob) {
		j.audit = l
	}
}

// WithRetentionLogger sets the operational logger.
func WithRetentionLogger(log *slog.Logger) RetentionOption {
	return func(j *RetentionJob) {
		if log != nil {
			j.log = log
		}
	}
}

// WithRetentionMetrics sets the metrics sink.
func WithRetentionMetrics(m RetentionMetrics) RetentionOption {
	return func(j *RetentionJob) {
		j.metrics = m
	}
}

// WithRetentionClock overrides the clock.
func WithRetentionClock(now func() time.Time) RetentionOption {
	return func(j *RetentionJob) {
		if now != nil {
			j.now = now
		}
	}
}

// NewRetentionJob creates a job with the configured retention days.
func NewRetentionJob(store Store, days int, opts ...RetentionOption) *RetentionJob {
	if store == nil {
		panic("audit: store cannot be nil")
	}
	j := &RetentionJob{
		store:    store,
		days:     days,
		partRows: DefaultArchivePartRows,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name identifies the job to the scheduler.
func (j *RetentionJob) Name() string {
	return retentionJobName
}

// Days returns the configured retention days.
func (j *RetentionJob) Days() int {
	return j.days
}

// Run purges with the configured retention days.
func (j *RetentionJob) Run(ctx context.Context) (*RetentionReport, error) {
	return j.RunWithDays(ctx, j.days)
}

// RunWithDays purges with an explicit retention window, used by the CLI override.
func (j *RetentionJob) RunWithDays(ctx context.Context, days int) (*RetentionReport, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrJobRunning
	}
	defer j.running.Store(false)

	log := j.log.With(logger.Component("audit"), logger.Job(retentionJobName))
	report := &RetentionReport{Days: days}

	if days <= 0 {
		report.Disabled = true
		log.InfoContext(ctx, "audit log retention is disabled", slog.Int("retention_days", days))
		return report, nil
	}

	start := j.now()
	report.Cutoff = Cutoff(start, days)

	deleted, err := j.purge(ctx, report)
	if j.metrics != nil {
		j.metrics.RetentionRun(deleted, time.Since(start), err)
	}
	if err != nil {
		log.ErrorContext(ctx, "audit log cleanup failed",
			slog.Int("retention_days", days),
			logger.Error(err),
		)
		return nil, err
	}
	report.Deleted = deleted

	log.InfoContext(ctx, "audit log cleanup completed",
		slog.Int("retention_days", days),
		logger.Count(deleted),
	)

	if deleted > 0 && j.audit != nil {
		j.audit.Log(ctx, ActionAuditPurged, WithProperties(Properties{
			"retention_days": days,
			"deleted_count":  deleted,
			"cutoff":         report.Cutoff.Format(time.RFC3339),
			"archive":        report.Archive,
		}))
	}

	return report, nil
}

func (j *RetentionJob) purge(ctx context.Context, report *RetentionReport) (int64, error) {
	if j.archiver != nil {
		if err := j.archive(ctx, report); err != nil {
			return 0, err
		}
	}

	deleted, err := j.store.Purge(ctx, report.Cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return deleted, nil
}

// archive uploads the entries older than the cutoff in parts of at most
// partRows rows, so memory stays bounded however large the backlog is.
func (j *RetentionJob) archive(ctx context.Context, report *RetentionReport) error {
	stem := ArchiveName(report.Cutoff, j.now())
	part := newArchivePart()
	var parts []string

	flush := func() error {
		if part.rows == 0 {
			return nil
		}
		data, err := part.bytes()
		if err != nil {
			return err
		}
		name := ArchivePartName(stem, len(parts)+1)
		if err := j.archiver.Archive(ctx, name, data); err != nil {
			return err
		}
		parts = append(parts, name)
		part = newArchivePart()
		return nil
	}

	n, err := NewReader(j.store).eachBatch(ctx, Filter{Before: &report.Cutoff}, func(batch []Entry, names map[int64]string) error {
		for i := range batch {
			if err := part.write(csvRow(&batch[i], names)); err != nil {
				return err
			}
			if part.rows >= j.partRows {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return errors.Join(ErrArchiveFailed, err)
	}
	if n == 0 {
		return nil
	}

	report.Archived = n
	report.Archive = stem
	report.Parts = parts
	return nil
}

type archivePart struct {
	buf  bytes.Buffer
	cw   *csv.Writer
	rows int
}

func newArchivePart() *archivePart {
	p := &archivePart{}
	p.cw = csv.NewWriter(&p.buf)
	return p
}

func (p *archivePart) write(row []string) error {
	if p.rows == 0 {
		if err := p.cw.Write(CSVHeader); err != nil {
			return err
		}
	}
	if err := p.cw.Write(row); err != nil {
		return err
	}
	p.rows++
	return nil
}

func (p *archivePart) bytes() ([]byte, error) {
	p.cw.Flush()
	if err := p.cw.Error(); err != nil {
		return nil, err
	}
	return p.buf.Bytes(), nil
}

// ArchiveName returns the name stem for a snapshot of entries older than cutoff.
func ArchiveName(cutoff, now time.Time) string {
	return fmt.Sprintf("audit-logs/%s/before-%s",
		now.UTC().Format("2006/01/02"),
		cutoff.UTC().Format("20060102T150405Z"),
	)
}

// ArchivePartName returns the object name of the n-th part, counting from 1.
func ArchivePartName(stem string, n int) string {
	return fmt.Sprintf("%s.part-%04d.csv", stem, n)
}
