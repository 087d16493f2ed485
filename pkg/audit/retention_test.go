package audit_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/natvps/panel/pkg/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryArchiver struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (a *memoryArchiver) Archive(_ context.Context, name string, data []byte) error {
	if a.err != nil {
		return a.err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.files == nil {
		a.files = make(map[string][]byte)
	}
	a.files[name] = bytes.Clone(data)
	return nil
}

type blockingStore struct {
	*audit.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	close(s.entered)
	<-s.release
	return s.MemoryStore.Purge(ctx, before)
}

// agedStore holds entries created 100, 50 and 10 days before now.
func agedStore(t *testing.T, now time.Time) *audit.MemoryStore {
	t.Helper()
	ages := []int{100, 50, 10}
	i := 0
	s := audit.NewMemoryStore(audit.WithClock(func() time.Time {
		if i < len(ages) {
			ts := now.AddDate(0, 0, -ages[i])
			i++
			return ts
		}
		return now
	}))
	for range ages {
		e := audit.Entry{Action: audit.ActionLogin, Actor: audit.User(1)}
		require.NoError(t, s.Append(context.Background(), &e))
	}
	return s
}

func TestCleanup(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	ctx := context.Background()

	tests := []struct {
		name      string
		days      int
		deleted   int64
		remaining int64
	}{
		{"ninety days", 90, 1, 2},
		{"thirty days", 30, 2, 1},
		{"disabled zero", 0, 0, 3},
		{"disabled negative", -5, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := agedStore(t, now)

			deleted, err := audit.Cleanup(ctx, s, tt.days, now)
			require.NoError(t, err)
			assert.Equal(t, tt.deleted, deleted)

			n, err := s.Count(ctx, audit.Filter{})
			require.NoError(t, err)
			assert.Equal(t, tt.remaining, n)
		})
	}
}

func TestRetentionJob_Run(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	s := agedStore(t, now)
	job := audit.NewRetentionJob(s, 90,
		audit.WithAuditLogger(audit.NewLogger(s)),
		audit.WithRetentionClock(fixedClock(now)),
	)
	ctx := context.Background()

	report, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Deleted)
	assert.Equal(t, 90, report.Days)
	assert.True(t, report.Cutoff.Equal(now.AddDate(0, 0, -90)))

	purged, err := s.List(ctx, audit.ListParams{Filter: audit.Filter{Action: audit.ActionAuditPurged}})
	require.NoError(t, err)
	require.Len(t, purged, 1)
	assert.EqualValues(t, 1, purged[0].Properties["deleted_count"])

	// A second run finds nothing to delete and records nothing.
	report, err = job.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)

	n, err := s.Count(ctx, audit.Filter{Action: audit.ActionAuditPurged})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRetentionJob_Disabled(t *testing.T) {
	t.Parallel()
	now := time.Now()
	s := agedStore(t, now)
	job := audit.NewRetentionJob(s, 0)

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Disabled)
	assert.Zero(t, report.Deleted)

	report, err = job.RunWithDays(context.Background(), 30)
	require.NoError(t, err)
	assert.False(t, report.Disabled)
	assert.Equal(t, int64(2), report.Deleted)
}

func TestRetentionJob_Archive(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		partRows int
		parts    int
		rows     []int
	}{
		{"single object", 0, 1, []int{3}},
		{"split into parts", 1, 2, []int{2, 2}},
		{"part larger than backlog", 5, 1, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := agedStore(t, now)
			archiver := &memoryArchiver{}
			job := audit.NewRetentionJob(s, 30,
				audit.WithArchiver(archiver),
				audit.WithArchivePartRows(tt.partRows),
				audit.WithRetentionClock(fixedClock(now)),
			)

			report, err := job.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 2, report.Archived)
			assert.Equal(t, audit.ArchiveName(report.Cutoff, now), report.Archive)
			require.Len(t, report.Parts, tt.parts)
			assert.Len(t, archiver.files, tt.parts)

			for i, name := range report.Parts {
				assert.Equal(t, audit.ArchivePartName(report.Archive, i+1), name)
				data, ok := archiver.files[name]
				require.True(t, ok)
				rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
				require.NoError(t, err)
				assert.Len(t, rows, tt.rows[i])
				assert.Equal(t, audit.CSVHeader, rows[0])
			}
		})
	}
}

func TestRetentionJob_ArchiveNothingToPurge(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	archiver := &memoryArchiver{}
	job := audit.NewRetentionJob(agedStore(t, now), 365,
		audit.WithArchiver(archiver),
		audit.WithRetentionClock(fixedClock(now)),
	)

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Archived)
	assert.Empty(t, report.Archive)
	assert.Empty(t, archiver.files)
}

func TestRetentionJob_ArchiveFailureKeepsEntries(t *testing.T) {
	t.Parallel()
	now := time.Now()
	s := agedStore(t, now)
	job := audit.NewRetentionJob(s, 30, audit.WithArchiver(&memoryArchiver{err: errors.New("bucket missing")}))

	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, audit.ErrArchiveFailed)

	n, err := s.Count(context.Background(), audit.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRetentionJob_RejectsOverlap(t *testing.T) {
	t.Parallel()
	store := &blockingStore{
		MemoryStore: agedStore(t, time.Now()),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	job := audit.NewRetentionJob(store, 30)

	done := make(chan error, 1)
	go func() {
		_, err := job.Run(context.Background())
		done <- err
	}()

	<-store.entered
	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, audit.ErrJobRunning)

	close(store.release)
	require.NoError(t, <-done)
}
