package twofactor

import (
	"errors"

	"github.com/natvps/panel/handler"
	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/logger"
	"github.com/natvps/panel/pkg/session"
	"github.com/natvps/panel/pkg/twofactor"
)

// RecoveryCodesResponse carries plain recovery codes. They are shown once.
type RecoveryCodesResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

func (s *Service) setup(ctx handler.Context, _ struct{}) handler.Response {
	userID, _ := session.UserIDFromContext(ctx)

	user, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return s.unavailable(ctx, "failed to load account", err, logger.UserID(userID))
	}

	setup, err := s.manager.BeginSetup(ctx, userID, user.Email)
	if err != nil {
		if errors.Is(err, twofactor.ErrAlreadyEnabled) {
			return handler.JSONError(errAlreadyEnabled)
		}
		return s.unavailable(ctx, "failed to begin two-factor setup", err, logger.UserID(userID))
	}

	if err := s.sessions.SetValue(ctx, ctx.ResponseWriter(), ctx.Request(), setupSecretKey, setup.Secret); err != nil {
		return s.unavailable(ctx, "failed to store setup secret", err, logger.UserID(userID))
	}
	return handler.JSON(setup)
}

func (s *Service) enable(ctx handler.Context, req CodeRequest) handler.Response {
	userID, _ := session.UserIDFromContext(ctx)
	r := ctx.Request()

	secret, ok := s.sessions.GetString(ctx, r, setupSecretKey)
	if !ok || secret == "" {
		return handler.JSONError(errSetupMissing)
	}

	codes, err := s.manager.Enable(ctx, userID, secret, req.Code)
	switch {
	case errors.Is(err, twofactor.ErrInvalidCode):
		return handler.JSONError(errInvalidCode)
	case errors.Is(err, twofactor.ErrAlreadyEnabled):
		_ = s.sessions.DeleteValue(ctx, r, setupSecretKey)
		return handler.JSONError(errAlreadyEnabled)
	case err != nil:
		return s.unavailable(ctx, "failed to enable two-factor authentication", err, logger.UserID(userID))
	}

	if err := s.sessions.DeleteValue(ctx, r, setupSecretKey); err != nil {
		s.log.WarnContext(ctx, "failed to drop setup secret",
			logger.Component("twofactor"),
			logger.UserID(userID),
			logger.Error(err),
		)
	}
	if err := s.sessions.MarkTwoFactorVerified(ctx, r); err != nil {
		s.log.WarnContext(ctx, "failed to mark session verified",
			logger.Component("twofactor"),
			logger.UserID(userID),
			logger.Error(err),
		)
	}

	s.record(ctx, audit.ActionTwoFactorEnabled, userID)
	return handler.JSON(RecoveryCodesResponse{RecoveryCodes: codes})
}

// disable requires a current authenticator code.
func (s *Service) disable(ctx handler.Context, req CodeRequest) handler.Response {
	userID, _ := session.UserIDFromContext(ctx)

	enabled, err := s.manager.Enabled(ctx, userID)
	if err != nil {
		return s.unavailable(ctx, "failed to load two-factor state", err, logger.UserID(userID))
	}
	if !enabled {
		return handler.JSONError(errNotEnabled)
	}

	ok, err := s.manager.VerifyTOTP(ctx, userID, req.Code)
	if err != nil {
		return s.unavailable(ctx, "failed to verify code", err, logger.UserID(userID))
	}
	if !ok {
		return handler.JSONError(errInvalidCode)
	}

	if err := s.manager.Disable(ctx, userID); err != nil {
		return s.unavailable(ctx, "failed to disable two-factor authentication", err, logger.UserID(userID))
	}

	s.record(ctx, audit.ActionTwoFactorDisabled, userID)
	return handler.Empty()
}

func (s *Service) regenerate(ctx handler.Context, _ struct{}) handler.Response {
	userID, _ := session.UserIDFromContext(ctx)

	codes, err := s.manager.RegenerateRecoveryCodes(ctx, userID)
	if err != nil {
		if errors.Is(err, twofactor.ErrNotEnabled) {
			return handler.JSONError(errNotEnabled)
		}
		return s.unavailable(ctx, "failed to regenerate recovery codes", err, logger.UserID(userID))
	}

	s.record(ctx, audit.ActionRecoveryCodesRegenerated, userID)
	return handler.JSON(RecoveryCodesResponse{RecoveryCodes: codes})
}

func (s *Service) record(ctx handler.Context, action string, userID int64) {
	user := audit.User(userID)
	s.auditor.Log(ctx, action, audit.WithActor(user), audit.WithSubject(user))
}
