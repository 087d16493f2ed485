package twofactor

import (
	"errors"
	"strconv"

	"github.com/natvps/panel/handler"
	"github.com/natvps/panel/pkg/logger"
	"github.com/natvps/panel/pkg/twofactor"
)

// PendingResponse describes the session's challenge.
type PendingResponse struct {
	Pending  bool `json:"pending"`
	Remember bool `json:"remember"`
}

// VerifyResponse is returned after a successful second factor.
type VerifyResponse struct {
	Authenticated bool   `json:"authenticated"`
	Redirect      string `json:"redirect"`
	Method        string `json:"method"`
	// Set for recovery code logins only.
	RemainingRecoveryCodes *int `json:"remaining_recovery_codes,omitempty"`
	LowRecoveryCodes       bool `json:"low_recovery_codes,omitempty"`
}

func (s *Service) pending(ctx handler.Context, _ struct{}) handler.Response {
	ch, err := s.challenger.Pending(ctx, ctx.Request())
	if err != nil {
		if errors.Is(err, twofactor.ErrNoChallenge) {
			return handler.JSONError(errNoChallenge, handler.WithJSONMeta(map[string]any{"redirect": s.cfg.LoginPath}))
		}
		return s.unavailable(ctx, "failed to load two-factor challenge", err)
	}
	return handler.JSON(PendingResponse{Pending: true, Remember: ch.Remember})
}

func (s *Service) verifyTOTP(ctx handler.Context, req CodeRequest) handler.Response {
	return s.verify(ctx, twofactor.MethodTOTP, req.Code)
}

func (s *Service) verifyRecovery(ctx handler.Context, req CodeRequest) handler.Response {
	return s.verify(ctx, twofactor.MethodRecovery, req.Code)
}

func (s *Service) verify(ctx handler.Context, method twofactor.Method, code string) handler.Response {
	w, r := ctx.ResponseWriter(), ctx.Request()

	ch, err := s.challenger.Pending(ctx, r)
	if err != nil {
		if errors.Is(err, twofactor.ErrNoChallenge) {
			return handler.JSONError(errNoChallenge, handler.WithJSONMeta(map[string]any{"redirect": s.cfg.LoginPath}))
		}
		return s.unavailable(ctx, "failed to load two-factor challenge", err)
	}

	key := attemptKey(ch.UserID)
	limit, err := s.limiter.Allow(ctx, key)
	if err != nil {
		return s.unavailable(ctx, "two-factor rate limiter unavailable", err, logger.UserID(ch.UserID))
	}
	if !limit.Allowed() {
		if retry := int(limit.RetryAfter().Seconds()); retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
		s.log.WarnContext(ctx, "two-factor attempts exhausted",
			logger.Component("twofactor"),
			logger.UserID(ch.UserID),
		)
		return handler.JSONError(errTooManyAttempt)
	}

	var res *twofactor.Result
	if method == twofactor.MethodRecovery {
		res, err = s.challenger.VerifyRecovery(ctx, w, r, code)
	} else {
		res, err = s.challenger.VerifyTOTP(ctx, w, r, code)
	}
	if err != nil {
		return s.unavailable(ctx, "two-factor verification failed", err, logger.UserID(ch.UserID))
	}

	switch res.Outcome {
	case twofactor.OutcomeAuthenticated:
		if err := s.limiter.Reset(ctx, key); err != nil {
			s.log.WarnContext(ctx, "failed to reset two-factor attempts",
				logger.Component("twofactor"),
				logger.UserID(res.UserID),
				logger.Error(err),
			)
		}
		resp := VerifyResponse{Authenticated: true, Redirect: s.cfg.HomePath, Method: string(res.Method)}
		if res.Method == twofactor.MethodRecovery {
			remaining := res.RemainingRecoveryCodes
			resp.RemainingRecoveryCodes = &remaining
			resp.LowRecoveryCodes = res.LowRecoveryCodes
		}
		return handler.JSON(resp)
	case twofactor.OutcomeFailed:
		return handler.JSONError(errInvalidCode)
	default:
		return handler.JSONError(errNoChallenge, handler.WithJSONMeta(map[string]any{"redirect": s.cfg.LoginPath}))
	}
}
