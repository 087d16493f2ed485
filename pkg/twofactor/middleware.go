package twofactor

import (
	"errors"
	"net/http"

	"github.com/natvps/panel/pkg/logger"
)

// RequireTwoFactor keeps an authenticated user who has two-factor
// authentication enabled, but has not passed it in this session, away from
// protected routes: the session is turned back into a pending challenge
// and the client is redirected to the challenge page. Anonymous requests
// pass through untouched so an authentication middleware can handle them.
func (c *Challenger) RequireTwoFactor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, err := c.sessions.Get(ctx, r)
		if err != nil || !sess.IsAuthenticated() || sess.TwoFactorVerified {
			next.ServeHTTP(w, r)
			return
		}

		enabled, err := c.manager.Enabled(ctx, *sess.UserID)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			c.log.ErrorContext(ctx, "failed to load two-factor state",
				logger.Component("twofactor"),
				logger.UserID(*sess.UserID),
				logger.Error(err),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if !enabled {
			next.ServeHTTP(w, r)
			return
		}

		if _, err := c.Begin(ctx, w, r, *sess.UserID, sess.Remember); err != nil {
			c.log.ErrorContext(ctx, "failed to start two-factor challenge",
				logger.Component("twofactor"),
				logger.UserID(*sess.UserID),
				logger.Error(err),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, c.manager.cfg.ChallengePath, http.StatusFound)
	})
}
