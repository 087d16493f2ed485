package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/natvps/panel/handler"
	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/auth"
	"github.com/natvps/panel/pkg/binder"
	"github.com/natvps/panel/pkg/logger"
	"github.com/natvps/panel/pkg/session"
)

// Sessions is the part of *session.Manager the login flow needs.
type Sessions interface {
	Get(ctx context.Context, r *http.Request) (*session.Session, error)
	Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, remember bool) (*session.Session, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// TwoFactor decides whether a login needs a second step.
type TwoFactor interface {
	Enabled(ctx context.Context, userID int64) (bool, error)
}

// Challenger starts the second step. *twofactor.Challenger implements it.
type Challenger interface {
	Begin(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, remember bool) (*session.Session, error)
}

// Auditor records audit entries. *audit.Logger implements it.
type Auditor interface {
	Log(ctx context.Context, action string, opts ...audit.EntryOption) *audit.Entry
}

// Config holds the paths returned to clients.
type Config struct {
	ChallengePath string `env:"TWO_FACTOR_CHALLENGE_PATH" envDefault:"/two-factor/challenge"`
}

// Service handles password login and logout.
type Service struct {
	cfg           Config
	passwordAuth  auth.PasswordAuthenticator
	sessions      Sessions
	twoFactor     TwoFactor
	challenger    Challenger
	auditor       Auditor
	log           *slog.Logger
	errorHandler  handler.ErrorHandler[handler.Context]
	loginLimiters []func(http.Handler) http.Handler
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

// WithLoginMiddleware wraps POST /login, typically with a per-IP rate limiter.
func WithLoginMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Service) {
		s.loginLimiters = append(s.loginLimiters, mw...)
	}
}

// NewService creates the login service.
func NewService(
	cfg Config,
	passwordAuth auth.PasswordAuthenticator,
	sessions Sessions,
	twoFactor TwoFactor,
	challenger Challenger,
	auditor Auditor,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:          cfg,
		passwordAuth: passwordAuth,
		sessions:     sessions,
		twoFactor:    twoFactor,
		challenger:   challenger,
		auditor:      auditor,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.errorHandler == nil {
		s.errorHandler = handler.NewErrorHandler(s.log)
	}
	return s
}

// Handle returns the module router.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.With(s.loginLimiters...).Post("/login", handler.Wrap(s.login,
		handler.WithBinders[handler.Context, LoginRequest](binder.JSON(), binder.Form()),
		handler.WithErrorHandler[handler.Context, LoginRequest](s.errorHandler),
	))
	r.Post("/logout", handler.Wrap(s.logout,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))

	return r
}

// LoginRequest is accepted as JSON or as a form.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Remember bool   `json:"remember" form:"remember"`
}

// LoginResponse tells the client whether the login is complete.
type LoginResponse struct {
	TwoFactorRequired bool   `json:"two_factor_required"`
	Redirect          string `json:"redirect,omitempty"`
	UserID            int64  `json:"user_id,omitempty"`
}

var errInvalidCredentials = handler.NewHTTPError(http.StatusUnauthorized, "invalid_credentials")

func (s *Service) login(ctx handler.Context, req LoginRequest) handler.Response {
	verr := handler.ValidationError{}
	if req.Email == "" {
		verr.Add("email", "required")
	}
	if req.Password == "" {
		verr.Add("password", "required")
	}
	if !verr.IsEmpty() {
		return handler.JSONError(verr)
	}

	user, err := s.passwordAuth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			opts := []audit.EntryOption{audit.WithProperty("email", auth.NormalizeEmail(req.Email))}
			// The response stays identical whether or not the account exists.
			var credErr *auth.CredentialsError
			if errors.As(err, &credErr) {
				opts = append(opts, audit.WithSubject(audit.User(credErr.UserID)))
			}
			s.auditor.Log(ctx, audit.ActionLoginFailed, opts...)
			return handler.JSONError(errInvalidCredentials)
		}
		return s.fail(ctx, "failed to authenticate", err)
	}

	s.auditor.Log(ctx, audit.ActionLogin,
		audit.WithActor(audit.User(user.ID)),
		audit.WithSubject(audit.User(user.ID)),
	)

	enabled, err := s.twoFactor.Enabled(ctx, user.ID)
	if err != nil {
		return s.fail(ctx, "failed to load two-factor state", err, logger.UserID(user.ID))
	}

	if enabled {
		if _, err := s.challenger.Begin(ctx, ctx.ResponseWriter(), ctx.Request(), user.ID, req.Remember); err != nil {
			return s.fail(ctx, "failed to start two-factor challenge", err, logger.UserID(user.ID))
		}
		return handler.JSON(LoginResponse{TwoFactorRequired: true, Redirect: s.cfg.ChallengePath})
	}

	if _, err := s.sessions.Authenticate(ctx, ctx.ResponseWriter(), ctx.Request(), user.ID, req.Remember); err != nil {
		return s.fail(ctx, "failed to authenticate session", err, logger.UserID(user.ID))
	}
	return handler.JSON(LoginResponse{UserID: user.ID})
}

func (s *Service) logout(ctx handler.Context, _ struct{}) handler.Response {
	sess, err := s.sessions.Get(ctx, ctx.Request())
	if err == nil && sess.IsAuthenticated() {
		user := audit.User(*sess.UserID)
		s.auditor.Log(ctx, audit.ActionLogout, audit.WithActor(user), audit.WithSubject(user))
	}

	if err := s.sessions.Destroy(ctx, ctx.ResponseWriter(), ctx.Request()); err != nil {
		return s.fail(ctx, "failed to destroy session", err)
	}
	return handler.Empty()
}

func (s *Service) fail(ctx context.Context, msg string, err error, attrs ...slog.Attr) handler.Response {
	s.log.LogAttrs(ctx, slog.LevelError, msg,
		append([]slog.Attr{logger.Component("auth"), logger.Error(err)}, attrs...)...)
	return handler.JSONError(handler.ErrInternal)
}
