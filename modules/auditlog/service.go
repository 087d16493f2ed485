package auditlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/natvps/panel/handler"
	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/auth"
	"github.com/natvps/panel/pkg/binder"
	"github.com/natvps/panel/pkg/logger"
	"github.com/natvps/panel/pkg/session"
)

// Accounts resolves the current user to check the admin flag.
type Accounts interface {
	FindByID(ctx context.Context, id int64) (*auth.User, error)
}

// Sessions loads the request's session.
type Sessions interface {
	Get(ctx context.Context, r *http.Request) (*session.Session, error)
}

// Auditor records audit entries. *audit.Logger implements it.
type Auditor interface {
	Log(ctx context.Context, action string, opts ...audit.EntryOption) *audit.Entry
}

// Service serves the audit log admin endpoints.
type Service struct {
	reader       *audit.Reader
	sessions     Sessions
	accounts     Accounts
	auditor      Auditor
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the clock used for export file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the audit log admin service.
func NewService(reader *audit.Reader, sessions Sessions, accounts Accounts, auditor Auditor, opts ...Option) *Service {
	s := &Service{
		reader:   reader,
		sessions: sessions,
		accounts: accounts,
		auditor:  auditor,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errorHandler = handler.NewErrorHandler(s.log)
	return s
}

// Handle returns the module router, to be mounted at /admin/audit-logs.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requireAdmin)

	r.Get("/", handler.Wrap(s.list,
		handler.WithBinders[handler.Context, ListRequest](binder.Query()),
		handler.WithErrorHandler[handler.Context, ListRequest](s.errorHandler),
	))
	r.Get("/actions", handler.Wrap(s.actions,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Get("/export", handler.Wrap(s.export,
		handler.WithBinders[handler.Context, ListRequest](binder.Query()),
		handler.WithErrorHandler[handler.Context, ListRequest](s.errorHandler),
	))
	r.Get("/{id}", handler.Wrap(s.get,
		handler.WithBinders[handler.Context, GetRequest](binder.Path()),
		handler.WithErrorHandler[handler.Context, GetRequest](s.errorHandler),
	))

	return r
}

// ListRequest holds the listing filters. A date-only "to" covers the whole day.
type ListRequest struct {
	UserID  *int64     `query:"user_id"`
	Action  string     `query:"action"`
	From    *time.Time `query:"from"`
	To      *time.Time `query:"to"`
	Page    int        `query:"page"`
	PerPage int        `query:"per_page"`
}

func (req ListRequest) filter() audit.Filter {
	f := audit.Filter{UserID: req.UserID, Action: req.Action, From: req.From}
	if req.To != nil {
		to := *req.To
		if to.Equal(to.Truncate(24 * time.Hour)) {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &to
	}
	return f
}

// GetRequest addresses one entry.
type GetRequest struct {
	ID int64 `path:"id"`
}

func (s *Service) list(ctx handler.Context, req ListRequest) handler.Response {
	page, err := s.reader.Query(ctx, req.filter(), req.Page, req.PerPage)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidFilter) {
			return handler.JSONError(handler.NewValidationError("from", "must not be after to"))
		}
		return s.fail(ctx, "failed to list audit entries", err)
	}

	return handler.JSON(s.reader.WithNames(ctx, page.Entries), handler.WithJSONMeta(map[string]any{
		"page":        page.Page,
		"per_page":    page.PerPage,
		"total":       page.Total,
		"total_pages": page.TotalPages,
	}))
}

func (s *Service) get(ctx handler.Context, req GetRequest) handler.Response {
	entry, err := s.reader.Get(ctx, req.ID)
	if err != nil {
		if errors.Is(err, audit.ErrEntryNotFound) {
			return handler.JSONError(handler.ErrNotFound)
		}
		return s.fail(ctx, "failed to load audit entry", err)
	}

	return handler.JSON(s.reader.WithNames(ctx, []audit.Entry{*entry})[0])
}

func (s *Service) actions(ctx handler.Context, _ struct{}) handler.Response {
	actions, err := s.reader.Actions(ctx)
	if err != nil {
		return s.fail(ctx, "failed to load audit actions", err)
	}
	return handler.JSON(actions)
}

func (s *Service) export(ctx handler.Context, req ListRequest) handler.Response {
	filter := req.filter()
	if err := filter.Validate(); err != nil {
		return handler.JSONError(handler.NewValidationError("from", "must not be after to"))
	}

	adminID, _ := session.UserIDFromContext(ctx)
	filename := fmt.Sprintf("audit-logs-%s.csv", s.now().UTC().Format("2006-01-02-150405"))

	return handler.Download(filename, "text/csv; charset=utf-8", func(w io.Writer) error {
		rows, err := s.reader.ExportCSV(ctx, filter, w)
		if err != nil {
			return err
		}

		props := audit.Properties{"rows": rows}
		if filter.UserID != nil {
			props["user_id"] = *filter.UserID
		}
		if filter.Action != "" {
			props["action"] = filter.Action
		}
		s.auditor.Log(ctx, audit.ActionAuditExported,
			audit.WithActor(audit.User(adminID)),
			audit.WithProperties(props),
		)
		return nil
	})
}

func (s *Service) fail(ctx context.Context, msg string, err error) handler.Response {
	s.log.ErrorContext(ctx, msg, logger.Component("auditlog"), logger.Error(err))
	return handler.JSONError(handler.ErrInternal)
}

func (s *Service) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, err := s.sessions.Get(ctx, r)
		if err != nil || !sess.IsAuthenticated() {
			_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
			return
		}

		user, err := s.accounts.FindByID(ctx, *sess.UserID)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
				return
			}
			s.log.ErrorContext(ctx, "failed to load account",
				logger.Component("auditlog"),
				logger.UserID(*sess.UserID),
				logger.Error(err),
			)
			_ = handler.JSONError(handler.ErrInternal).Render(w, r)
			return
		}
		if !user.IsAdmin {
			_ = handler.JSONError(handler.ErrForbidden).Render(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(session.WithSession(ctx, sess)))
	})
}
