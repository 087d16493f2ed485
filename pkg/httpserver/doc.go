// Package httpserver runs an http.Server until its context is cancelled and
// then drains it within a bounded shutdown timeout.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server stopped", logger.Error(err))
//	}
//
// Run does not install signal handlers. Callers derive ctx from
// signal.NotifyContext so that every long-running component of the process
// stops on the same signal.
//
// HealthHandler serves liveness and readiness endpoints.
package httpserver
