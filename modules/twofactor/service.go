package twofactor

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/natvps/panel/handler"
	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/auth"
	"github.com/natvps/panel/pkg/binder"
	"github.com/natvps/panel/pkg/logger"
	"github.com/natvps/panel/pkg/ratelimiter"
	"github.com/natvps/panel/pkg/session"
	"github.com/natvps/panel/pkg/twofactor"
)

// Sessions is the part of *session.Manager the settings endpoints need.
type Sessions interface {
	Get(ctx context.Context, r *http.Request) (*session.Session, error)
	SetValue(ctx context.Context, w http.ResponseWriter, r *http.Request, key string, value any) error
	GetString(ctx context.Context, r *http.Request, key string) (string, bool)
	DeleteValue(ctx context.Context, r *http.Request, key string) error
	MarkTwoFactorVerified(ctx context.Context, r *http.Request) error
}

// Accounts resolves the account name shown in authenticator apps.
type Accounts interface {
	FindByID(ctx context.Context, id int64) (*auth.User, error)
}

// Auditor records audit entries. *audit.Logger implements it.
type Auditor interface {
	Log(ctx context.Context, action string, opts ...audit.EntryOption) *audit.Entry
}

// Config holds paths returned to clients.
type Config struct {
	HomePath  string `env:"HOME_PATH" envDefault:"/"`
	LoginPath string `env:"LOGIN_PATH" envDefault:"/login"`
}

// setupSecretKey holds the unconfirmed secret between setup and enable.
const setupSecretKey = "two_factor_setup_secret"

var (
	errInvalidCode    = handler.NewValidationError("code", "invalid code")
	errTryAgainLater  = handler.ErrInternal.WithMessage("please try again later")
	errTooManyAttempt = handler.ErrTooManyRequests.WithMessage("please try again later")
	errNoChallenge    = handler.NewHTTPError(http.StatusUnauthorized, "no_challenge")
	errAlreadyEnabled = handler.NewHTTPError(http.StatusConflict, "two_factor_already_enabled")
	errNotEnabled     = handler.NewHTTPError(http.StatusConflict, "two_factor_not_enabled")
	errSetupMissing   = handler.NewHTTPError(http.StatusConflict, "two_factor_setup_not_started")
)

// Service serves the two-factor endpoints.
type Service struct {
	cfg          Config
	manager      *twofactor.Manager
	challenger   *twofactor.Challenger
	sessions     Sessions
	accounts     Accounts
	limiter      ratelimiter.RateLimiter
	auditor      Auditor
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
	requireAuth  func(http.Handler) http.Handler
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

// WithErrorHandler replaces the JSON error handler.
func WithErrorHandler(h handler.ErrorHandler[handler.Context]) Option {
	return func(s *Service) {
		if h != nil {
			s.errorHandler = h
		}
	}
}

// WithRequireAuth guards the settings endpoints, typically with
// (*session.Manager).RequireAuth.
func WithRequireAuth(mw func(http.Handler) http.Handler) Option {
	return func(s *Service) {
		if mw != nil {
			s.requireAuth = mw
		}
	}
}

// NewService creates the two-factor HTTP service. limiter bounds
// verification attempts per challenged user.
func NewService(
	cfg Config,
	manager *twofactor.Manager,
	challenger *twofactor.Challenger,
	sessions Sessions,
	accounts Accounts,
	limiter ratelimiter.RateLimiter,
	auditor Auditor,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:        cfg,
		manager:    manager,
		challenger: challenger,
		sessions:   sessions,
		accounts:   accounts,
		limiter:    limiter,
		auditor:    auditor,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.errorHandler == nil {
		s.errorHandler = handler.NewErrorHandler(s.log)
	}
	if s.requireAuth == nil {
		s.requireAuth = requireSession(sessions)
	}
	return s
}

// Handle returns the module router, to be mounted at /two-factor.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/challenge", handler.Wrap(s.pending,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Post("/challenge", handler.Wrap(s.verifyTOTP,
		handler.WithBinders[handler.Context, CodeRequest](binder.JSON(), binder.Form()),
		handler.WithErrorHandler[handler.Context, CodeRequest](s.errorHandler),
	))
	r.Post("/recovery", handler.Wrap(s.verifyRecovery,
		handler.WithBinders[handler.Context, CodeRequest](binder.JSON(), binder.Form()),
		handler.WithErrorHandler[handler.Context, CodeRequest](s.errorHandler),
	))

	// Settings need a session that has passed the second factor whenever
	// the user has one; otherwise fresh recovery codes would bypass it.
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth, s.challenger.RequireTwoFactor)

		r.Get("/setup", handler.Wrap(s.setup,
			handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
		))
		r.Post("/enable", handler.Wrap(s.enable,
			handler.WithBinders[handler.Context, CodeRequest](binder.JSON(), binder.Form()),
			handler.WithErrorHandler[handler.Context, CodeRequest](s.errorHandler),
		))
		r.Post("/disable", handler.Wrap(s.disable,
			handler.WithBinders[handler.Context, CodeRequest](binder.JSON(), binder.Form()),
			handler.WithErrorHandler[handler.Context, CodeRequest](s.errorHandler),
		))
		r.Post("/recovery-codes", handler.Wrap(s.regenerate,
			handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
		))
	})

	return r
}

// CodeRequest carries an authenticator or recovery code.
type CodeRequest struct {
	Code string `json:"code" form:"code"`
}

func attemptKey(userID int64) string {
	return "2fa:" + strconv.FormatInt(userID, 10)
}

func (s *Service) unavailable(ctx context.Context, msg string, err error, attrs ...slog.Attr) handler.Response {
	s.log.LogAttrs(ctx, slog.LevelError, msg,
		append([]slog.Attr{logger.Component("twofactor"), logger.Error(err)}, attrs...)...)
	return handler.JSONError(errTryAgainLater)
}

// requireSession rejects requests without an authenticated session.
func requireSession(sessions Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Get(r.Context(), r)
			if err != nil || !sess.IsAuthenticated() {
				_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		})
	}
}
