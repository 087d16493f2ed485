// Command panel serves the control panel HTTP API: password login with a
// TOTP second step, two-factor management and the admin audit log.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/natvps/panel/internal/archive"
	"github.com/natvps/panel/internal/db"
	"github.com/natvps/panel/internal/metrics"
	"github.com/natvps/panel/internal/store"
	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/config"
	"github.com/natvps/panel/pkg/httpserver"
	"github.com/natvps/panel/pkg/logger"
	"github.com/natvps/panel/pkg/pg"
	"github.com/natvps/panel/pkg/redis"
	"github.com/natvps/panel/pkg/requestid"
	"github.com/natvps/panel/pkg/scheduler"
)

func main() {
	var logCfg logger.Config
	config.MustLoad(&logCfg)

	log := logger.NewFromConfig(logCfg,
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error("panel stopped with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		pgCfg      pg.Config
		redisCfg   redis.Config
		auditCfg   audit.Config
		archiveCfg archive.Config
		serverCfg  httpserver.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&redisCfg) },
		func() error { return config.Load(&auditCfg) },
		func() error { return config.Load(&archiveCfg) },
		func() error { return config.Load(&serverCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log, pg.MigrationsFS(db.Migrations)); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := m.RegisterPool(pool); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	users := store.NewUsers(pool)
	auditLogs := store.NewAuditLogs(pool)

	app, err := newApp(appDeps{
		log:         log,
		metrics:     m,
		users:       users,
		auditLogs:   auditLogs,
		redisClient: redisClient,
		redisCfg:    redisCfg,
		auditCfg:    auditCfg,
		checks: []httpserver.Check{
			{Name: "postgres", Fn: pg.Healthcheck(pool)},
			{Name: "redis", Fn: redis.Healthcheck(redisClient)},
		},
	})
	if err != nil {
		return err
	}
	defer app.sessions.Close()

	retention, err := newRetentionJob(ctx, auditLogs, auditCfg, archiveCfg, app.auditor, m, log)
	if err != nil {
		return err
	}

	jobs := scheduler.New(scheduler.WithLogger(log))
	if err := jobs.Add(retention.Name(), scheduler.Every(auditCfg.CleanupInterval), func(ctx context.Context) error {
		_, err := retention.Run(ctx)
		return err
	}); err != nil {
		return err
	}
	go func() {
		if err := jobs.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("scheduler stopped", logger.Component("scheduler"), logger.Error(err))
		}
	}()

	srv := httpserver.NewFromConfig(serverCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, app.router)
}

// newRetentionJob builds the audit retention job. Entries are archived to S3
// before deletion only when archiving is enabled.
func newRetentionJob(
	ctx context.Context,
	auditLogs *store.AuditLogs,
	auditCfg audit.Config,
	archiveCfg archive.Config,
	auditor *audit.Logger,
	m *metrics.Metrics,
	log *slog.Logger,
) (*audit.RetentionJob, error) {
	opts := []audit.RetentionOption{
		audit.WithAuditLogger(auditor),
		audit.WithRetentionLogger(log),
		audit.WithRetentionMetrics(m),
	}
	if auditCfg.ArchiveEnabled {
		archiver, err := archive.New(ctx, archiveCfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			audit.WithArchiver(archiver),
			audit.WithArchivePartRows(auditCfg.ArchivePartRows),
		)
	}
	return audit.NewRetentionJob(auditLogs, auditCfg.RetentionDays, opts...), nil
}
