package twofactor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/logger"
	"github.com/natvps/panel/pkg/session"
	"github.com/natvps/panel/pkg/statemachine"
)

// Challenge states. Authenticated and Abandoned are terminal for the
// request: once reached the session no longer carries a challenge, so the
// next request starts from NoChallenge again.
const (
	StateNoChallenge   = statemachine.StringState("no_challenge")
	StatePending       = statemachine.StringState("pending")
	StateAuthenticated = statemachine.StringState("authenticated")
	StateAbandoned     = statemachine.StringState("abandoned")
)

// Challenge events.
const (
	EventBegin   = statemachine.StringEvent("begin")
	EventSucceed = statemachine.StringEvent("succeed")
	EventFail    = statemachine.StringEvent("fail")
	EventAbandon = statemachine.StringEvent("abandon")
)

// Method is the kind of second factor submitted.
type Method string

const (
	MethodTOTP     Method = "totp"
	MethodRecovery Method = "recovery_code"
)

// Outcome is the result of a verification attempt.
type Outcome string

const (
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeFailed        Outcome = "failed"
	OutcomeAbandoned     Outcome = "abandoned"
)

// Result describes a verification attempt. Only storage failures are
// reported as errors; a wrong code or a stale challenge is a Result.
type Result struct {
	Outcome  Outcome
	Method   Method
	UserID   int64
	Remember bool
	// RemainingRecoveryCodes and LowRecoveryCodes are set after a
	// successful recovery code login.
	RemainingRecoveryCodes int
	LowRecoveryCodes       bool
	Session                *session.Session
}

// SessionManager is the part of *session.Manager the challenge needs.
type SessionManager interface {
	Get(ctx context.Context, r *http.Request) (*session.Session, error)
	StartChallenge(ctx context.Context, w http.ResponseWriter, r *http.Request, ch session.Challenge) (*session.Session, error)
	CompleteChallenge(ctx context.Context, w http.ResponseWriter, r *http.Request) (*session.Session, error)
	ClearChallenge(ctx context.Context, r *http.Request) error
}

// Auditor records audit entries. *audit.Logger implements it.
type Auditor interface {
	Log(ctx context.Context, action string, opts ...audit.EntryOption) *audit.Entry
}

// Metrics counts verification attempts by method and outcome.
type Metrics interface {
	Verification(method, outcome string)
}

// Challenger drives the second login step. The transition table is shared;
// every request restores a machine from the state persisted in its session.
type Challenger struct {
	manager  *Manager
	sessions SessionManager
	auditor  Auditor
	metrics  Metrics
	log      *slog.Logger
	def      *statemachine.Definition
}

// ChallengerOption configures a Challenger.
type ChallengerOption func(*Challenger)

// WithAuditor records auth.2fa_success and auth.2fa_failed entries.
func WithAuditor(a Auditor) ChallengerOption {
	return func(c *Challenger) {
		c.auditor = a
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) ChallengerOption {
	return func(c *Challenger) {
		c.metrics = m
	}
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) ChallengerOption {
	return func(c *Challenger) {
		if l != nil {
			c.log = l
		}
	}
}

// attempt carries request data through transition actions.
type attempt struct {
	w         http.ResponseWriter
	r         *http.Request
	challenge session.Challenge
	method    Method
	session   *session.Session
}

// NewChallenger creates a challenger.
func NewChallenger(manager *Manager, sessions SessionManager, opts ...ChallengerOption) *Challenger {
	if manager == nil || sessions == nil {
		panic("twofactor: manager and session manager are required")
	}
	c := &Challenger{
		manager:  manager,
		sessions: sessions,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.def = statemachine.MustNew(
		statemachine.WithTransition(StateNoChallenge, StatePending, EventBegin,
			statemachine.WithActions(c.start)),
		statemachine.WithTransition(StatePending, StatePending, EventBegin,
			statemachine.WithActions(c.start)),
		statemachine.WithTransition(StatePending, StateAuthenticated, EventSucceed,
			statemachine.WithActions(c.complete, c.recordSuccess)),
		statemachine.WithTransition(StatePending, StatePending, EventFail,
			statemachine.WithActions(c.recordFailure)),
		statemachine.WithTransition(StatePending, StateAbandoned, EventAbandon,
			statemachine.WithActions(c.clear)),
		statemachine.WithTransition(StateNoChallenge, StateAbandoned, EventAbandon),
	)
	return c
}

// Begin starts a challenge for a user whose password has just been
// verified. Any prior authentication on the session is dropped and the
// session token is rotated.
func (c *Challenger) Begin(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, remember bool) (*session.Session, error) {
	m, _, err := c.restore(ctx, r)
	if err != nil {
		return nil, err
	}

	a := &attempt{w: w, r: r, challenge: session.Challenge{UserID: userID, Remember: remember}}
	if err := m.Fire(ctx, EventBegin, a); err != nil {
		return nil, err
	}
	return a.session, nil
}

// Pending returns the session's challenge. It returns ErrNoChallenge when
// there is none, and also when the challenged user no longer exists or no
// longer has two-factor authentication, in which case the challenge is
// discarded.
func (c *Challenger) Pending(ctx context.Context, r *http.Request) (*session.Challenge, error) {
	m, ch, err := c.restore(ctx, r)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrNoChallenge
	}

	a := &attempt{r: r, challenge: *ch}
	abandon, err := c.stale(ctx, ch.UserID)
	if err != nil {
		return nil, err
	}
	if abandon {
		if err := m.Fire(ctx, EventAbandon, a); err != nil {
			return nil, err
		}
		return nil, ErrNoChallenge
	}
	return ch, nil
}

// VerifyTOTP completes the challenge with an authenticator code.
func (c *Challenger) VerifyTOTP(ctx context.Context, w http.ResponseWriter, r *http.Request, code string) (*Result, error) {
	return c.verify(ctx, w, r, MethodTOTP, code)
}

// VerifyRecovery completes the challenge with a recovery code, consuming it.
func (c *Challenger) VerifyRecovery(ctx context.Context, w http.ResponseWriter, r *http.Request, code string) (*Result, error) {
	return c.verify(ctx, w, r, MethodRecovery, code)
}

func (c *Challenger) verify(ctx context.Context, w http.ResponseWriter, r *http.Request, method Method, code string) (*Result, error) {
	m, ch, err := c.restore(ctx, r)
	if err != nil {
		return nil, err
	}

	a := &attempt{w: w, r: r, method: method}
	if ch == nil {
		return c.abandon(ctx, m, a)
	}
	a.challenge = *ch
	res := &Result{Method: method, UserID: ch.UserID, Remember: ch.Remember}

	stale, err := c.stale(ctx, ch.UserID)
	if err != nil {
		return nil, err
	}
	if stale {
		return c.abandon(ctx, m, a)
	}

	var (
		ok        bool
		remaining int
	)
	switch method {
	case MethodRecovery:
		ok, remaining, err = c.manager.consume(ctx, ch.UserID, code)
	default:
		ok, err = c.manager.VerifyTOTP(ctx, ch.UserID, code)
	}
	if errors.Is(err, ErrUserNotFound) {
		return c.abandon(ctx, m, a)
	}
	if err != nil {
		return nil, err
	}

	if !ok {
		if err := m.Fire(ctx, EventFail, a); err != nil {
			return nil, err
		}
		res.Outcome = OutcomeFailed
		c.count(method, res.Outcome)
		return res, nil
	}

	if err := m.Fire(ctx, EventSucceed, a); err != nil {
		return nil, err
	}
	res.Outcome = OutcomeAuthenticated
	res.Session = a.session
	if method == MethodRecovery {
		res.RemainingRecoveryCodes = remaining
		res.LowRecoveryCodes = remaining < c.manager.cfg.LowRecoveryCodes
	}
	c.count(method, res.Outcome)
	return res, nil
}

// restore loads the session and returns a machine at its persisted state.
func (c *Challenger) restore(ctx context.Context, r *http.Request) (*statemachine.Machine, *session.Challenge, error) {
	sess, err := c.sessions.Get(ctx, r)
	if err != nil && !isMissingSession(err) {
		return nil, nil, err
	}

	var (
		state statemachine.State = StateNoChallenge
		ch    *session.Challenge
	)
	if sess != nil && sess.Challenge != nil {
		state = StatePending
		chCopy := *sess.Challenge
		ch = &chCopy
	}

	m, err := c.def.Start(state)
	if err != nil {
		return nil, nil, err
	}
	return m, ch, nil
}

// stale reports whether the challenged user is gone or no longer uses two-factor authentication.
func (c *Challenger) stale(ctx context.Context, userID int64) (bool, error) {
	enabled, err := c.manager.Enabled(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !enabled, nil
}

func (c *Challenger) abandon(ctx context.Context, m *statemachine.Machine, a *attempt) (*Result, error) {
	if err := m.Fire(ctx, EventAbandon, a); err != nil {
		return nil, err
	}
	c.count(a.method, OutcomeAbandoned)
	return &Result{Outcome: OutcomeAbandoned, Method: a.method, UserID: a.challenge.UserID}, nil
}

func (c *Challenger) count(method Method, outcome Outcome) {
	if c.metrics != nil {
		c.metrics.Verification(string(method), string(outcome))
	}
}

func (c *Challenger) start(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	a := data.(*attempt)
	sess, err := c.sessions.StartChallenge(ctx, a.w, a.r, a.challenge)
	if err != nil {
		return err
	}
	a.session = sess
	return nil
}

func (c *Challenger) complete(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	a := data.(*attempt)
	sess, err := c.sessions.CompleteChallenge(ctx, a.w, a.r)
	if err != nil {
		return err
	}
	a.session = sess
	return nil
}

func (c *Challenger) clear(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	a := data.(*attempt)
	if err := c.sessions.ClearChallenge(ctx, a.r); err != nil {
		return err
	}
	c.log.InfoContext(ctx, "two-factor challenge abandoned",
		logger.Component("twofactor"),
		logger.UserID(a.challenge.UserID),
	)
	return nil
}

func (c *Challenger) recordSuccess(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	a := data.(*attempt)
	c.record(ctx, audit.ActionTwoFactorSuccess, a)
	return nil
}

func (c *Challenger) recordFailure(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	a := data.(*attempt)
	c.record(ctx, audit.ActionTwoFactorFailed, a)
	return nil
}

func (c *Challenger) record(ctx context.Context, action string, a *attempt) {
	if c.auditor == nil {
		return
	}
	user := audit.User(a.challenge.UserID)
	c.auditor.Log(ctx, action,
		audit.WithActor(user),
		audit.WithSubject(user),
		audit.WithProperty("method", string(a.method)),
	)
}

func isMissingSession(err error) bool {
	return errors.Is(err, session.ErrSessionNotFound) ||
		errors.Is(err, session.ErrSessionExpired) ||
		errors.Is(err, session.ErrInvalidSession)
}
