package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// ExportBatchSize is how many entries ExportCSV fetches per round trip.
	ExportBatchSize = 100

	defaultPageSize = 25
	maxPageSize     = 500
	actionsCacheKey = "actions"
)

// CSVHeader is the first row written by ExportCSV.
var CSVHeader = []string{
	"ID", "Action", "Actor ID", "Actor Type", "Actor Name",
	"Subject ID", "Subject Type", "IP Address", "User Agent",
	"Properties", "Created At",
}

// NameResolver looks up display names for users referenced by entries.
type NameResolver interface {
	UserNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Page is one page of a listing.
type Page struct {
	Entries    []Entry `json:"entries"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	Total      int64   `json:"total"`
	TotalPages int     `json:"total_pages"`
}

// Reader serves the admin views over a Finder.
type Reader struct {
	finder   Finder
	names    NameResolver
	actions  *gocache.Cache
	pageSize int
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithNameResolver fills the "Actor Name" export column.
func WithNameResolver(names NameResolver) ReaderOption {
	return func(r *Reader) {
		r.names = names
	}
}

// WithActionsCacheTTL sets how long the distinct action list is cached.
func WithActionsCacheTTL(ttl time.Duration) ReaderOption {
	return func(r *Reader) {
		if ttl > 0 {
			r.actions = gocache.New(ttl, 2*ttl)
		}
	}
}

// WithPageSize sets the default page size used when a caller passes zero.
func WithPageSize(size int) ReaderOption {
	return func(r *Reader) {
		if size > 0 && size <= maxPageSize {
			r.pageSize = size
		}
	}
}

// NewReader creates a reader.
func NewReader(finder Finder, opts ...ReaderOption) *Reader {
	if finder == nil {
		panic("audit: finder cannot be nil")
	}
	r := &Reader{
		finder:   finder,
		actions:  gocache.New(time.Minute, 2*time.Minute),
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query returns one page of entries, newest first. Pages start at 1.
func (r *Reader) Query(ctx context.Context, filter Filter, page, perPage int) (*Page, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = r.pageSize
	}
	perPage = min(perPage, maxPageSize)

	total, err := r.finder.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	entries, err := r.finder.List(ctx, ListParams{
		Filter: filter,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	return &Page{
		Entries:    entries,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
	}, nil
}

// Get returns a single entry.
func (r *Reader) Get(ctx context.Context, id int64) (*Entry, error) {
	return r.finder.Get(ctx, id)
}

// Actions returns the distinct action names for the filter dropdown.
func (r *Reader) Actions(ctx context.Context) ([]string, error) {
	if cached, ok := r.actions.Get(actionsCacheKey); ok {
		if actions, ok := cached.([]string); ok {
			return actions, nil
		}
	}

	actions, err := r.finder.Actions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load audit actions: %w", err)
	}
	r.actions.SetDefault(actionsCacheKey, actions)
	return actions, nil
}

// ExportCSV streams every entry matching filter to w and returns the
// number of rows written, excluding the header.
func (r *Reader) ExportCSV(ctx context.Context, filter Filter, w io.Writer) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}

	written, err := r.eachBatch(ctx, filter, func(batch []Entry, names map[int64]string) error {
		for i := range batch {
			if err := cw.Write(csvRow(&batch[i], names)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return written, err
	}

	cw.Flush()
	return written, cw.Error()
}

// eachBatch walks the entries matching filter in keyset order, ExportBatchSize at a time.
func (r *Reader) eachBatch(ctx context.Context, filter Filter, fn func(batch []Entry, names map[int64]string) error) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	var (
		cursor  *Cursor
		visited int
	)
	for {
		if err := ctx.Err(); err != nil {
			return visited, err
		}

		batch, err := r.finder.List(ctx, ListParams{
			Filter: filter,
			Limit:  ExportBatchSize,
			After:  cursor,
		})
		if err != nil {
			return visited, fmt.Errorf("list audit entries: %w", err)
		}
		if len(batch) == 0 {
			return visited, nil
		}

		if err := fn(batch, r.resolveNames(ctx, batch)); err != nil {
			return visited, err
		}
		visited += len(batch)

		last := batch[len(batch)-1]
		cursor = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		if len(batch) < ExportBatchSize {
			return visited, nil
		}
	}
}

// resolveNames is best effort: a failing resolver leaves the column empty.
func (r *Reader) resolveNames(ctx context.Context, batch []Entry) map[int64]string {
	if r.names == nil {
		return nil
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, e := range batch {
		for _, ref := range []*EntityRef{e.Actor, e.Subject} {
			if ref != nil && ref.Kind == KindUser && !seen[ref.ID] {
				seen[ref.ID] = true
				ids = append(ids, ref.ID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	names, err := r.names.UserNames(ctx, ids)
	if err != nil {
		return nil
	}
	return names
}

func csvRow(e *Entry, names map[int64]string) []string {
	var actorID, actorType, actorName, subjectID, subjectType string
	if e.Actor != nil {
		actorID = strconv.FormatInt(e.Actor.ID, 10)
		actorType = string(e.Actor.Kind)
		if e.Actor.Kind == KindUser {
			actorName = names[e.Actor.ID]
		}
	}
	if e.Subject != nil {
		subjectID = strconv.FormatInt(e.Subject.ID, 10)
		subjectType = string(e.Subject.Kind)
	}

	props := ""
	if len(e.Properties) > 0 {
		if b, err := json.Marshal(e.Properties); err == nil {
			props = string(b)
		}
	}

	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Action,
		actorID,
		actorType,
		actorName,
		subjectID,
		subjectType,
		e.IPAddress,
		e.UserAgent,
		props,
		e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NamedEntry is an entry with the display names of the users it references.
type NamedEntry struct {
	Entry
	ActorName   string `json:"actor_name,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
}

// WithNames attaches display names to entries. Like the CSV export it is
// best effort: unknown users and resolver failures leave names empty.
func (r *Reader) WithNames(ctx context.Context, entries []Entry) []NamedEntry {
	names := r.resolveNames(ctx, entries)
	out := make([]NamedEntry, len(entries))
	for i, e := range entries {
		out[i] = NamedEntry{Entry: e}
		if e.Actor != nil && e.Actor.Kind == KindUser {
			out[i].ActorName = names[e.Actor.ID]
		}
		if e.Subject != nil && e.Subject.Kind == KindUser {
			out[i].SubjectName = names[e.Subject.ID]
		}
	}
	return out
}

// ForUser lists entries in which the user is either actor or subject.
func (r *Reader) ForUser(ctx context.Context, userID int64, page, perPage int) (*Page, error) {
	return r.Query(ctx, Filter{UserID: &userID}, page, perPage)
}
