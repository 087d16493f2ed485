package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/natvps/panel/internal/metrics"
	"github.com/natvps/panel/internal/store"
	"github.com/natvps/panel/modules/auditlog"
	authmod "github.com/natvps/panel/modules/auth"
	twofactormod "github.com/natvps/panel/modules/twofactor"
	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/auth"
	"github.com/natvps/panel/pkg/clientip"
	"github.com/natvps/panel/pkg/config"
	"github.com/natvps/panel/pkg/cookie"
	"github.com/natvps/panel/pkg/httpserver"
	"github.com/natvps/panel/pkg/ratelimiter"
	"github.com/natvps/panel/pkg/redis"
	"github.com/natvps/panel/pkg/requestid"
	"github.com/natvps/panel/pkg/secrets"
	"github.com/natvps/panel/pkg/session"
	"github.com/natvps/panel/pkg/twofactor"
)

type appDeps struct {
	log         *slog.Logger
	metrics     *metrics.Metrics
	users       *store.Users
	auditLogs   *store.AuditLogs
	redisClient goredis.UniversalClient
	redisCfg    redis.Config
	auditCfg    audit.Config
	checks      []httpserver.Check
}

type app struct {
	router   http.Handler
	sessions *session.Manager
	auditor  *audit.Logger
}

type appConfig struct {
	session      session.Config
	cookie       cookie.Config
	clientIP     clientip.Config
	secrets      secrets.Config
	twoFactor    twofactor.Config
	authModule   authmod.Config
	twoFactorMod twofactormod.Config
	attempts     ratelimiter.Config
	logins       ratelimiter.Config
}

func loadAppConfig() (appConfig, error) {
	var cfg appConfig
	for _, load := range []func() error{
		func() error { return config.Load(&cfg.session) },
		func() error { return config.Load(&cfg.cookie) },
		func() error { return config.Load(&cfg.clientIP) },
		func() error { return config.Load(&cfg.secrets) },
		func() error { return config.Load(&cfg.twoFactor) },
		func() error { return config.Load(&cfg.authModule) },
		func() error { return config.Load(&cfg.twoFactorMod) },
		func() error { return config.LoadPrefixed(&cfg.attempts, "TWO_FACTOR_ATTEMPTS_") },
		func() error { return config.LoadPrefixed(&cfg.logins, "LOGIN_ATTEMPTS_") },
	} {
		if err := load(); err != nil {
			return appConfig{}, err
		}
	}
	return cfg, nil
}

// newApp wires the HTTP modules over the shared stores.
func newApp(deps appDeps) (*app, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	log := deps.log

	masterKey, err := secrets.DecodeKey(cfg.secrets.Key)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	secretCipher, err := secrets.NewCipher(masterKey, secrets.PurposeTOTPSecret)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	codeCipher, err := secrets.NewCipher(masterKey, secrets.PurposeRecoveryCodes)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}

	resolver, err := clientip.NewFromConfig(cfg.clientIP)
	if err != nil {
		return nil, err
	}

	cookies, err := cookie.NewFromConfig(cfg.cookie)
	if err != nil {
		return nil, err
	}
	sessions := session.New(
		session.WithStore(session.NewRedisStore(deps.redisClient, cfg.session.RedisPrefix)),
		session.WithCookieManager(cookies),
		session.WithConfig(cfg.session),
		session.WithLogger(log),
	)

	auditor := audit.NewLogger(deps.auditLogs,
		audit.WithLogger(log),
		audit.WithMetrics(deps.metrics),
		audit.WithIPExtractor(clientip.GetIPFromContext),
		audit.WithUserAgentExtractor(clientip.GetUserAgentFromContext),
	)

	manager := twofactor.NewManager(deps.users, secretCipher, codeCipher, twofactor.WithConfig(cfg.twoFactor))
	challenger := twofactor.NewChallenger(manager, sessions,
		twofactor.WithAuditor(auditor),
		twofactor.WithMetrics(deps.metrics),
		twofactor.WithLogger(log),
	)

	limiterStore := ratelimiter.NewRedisStore(deps.redisClient, deps.redisCfg.RateLimitPrefix)
	attemptLimiter, err := ratelimiter.NewBucket(limiterStore, cfg.attempts)
	if err != nil {
		return nil, fmt.Errorf("two-factor attempts limiter: %w", err)
	}
	loginLimiter, err := ratelimiter.NewBucket(limiterStore, cfg.logins)
	if err != nil {
		return nil, fmt.Errorf("login limiter: %w", err)
	}

	reader := audit.NewReader(deps.auditLogs,
		append(deps.auditCfg.ReaderOptions(), audit.WithNameResolver(deps.users))...,
	)

	authService := authmod.NewService(cfg.authModule,
		auth.NewPasswordService(deps.users, auth.WithPasswordLogger(log)),
		sessions, manager, challenger, auditor,
		authmod.WithLogger(log),
		authmod.WithLoginMiddleware(ratelimiter.Middleware(loginLimiter, loginKey)),
	)
	twoFactorService := twofactormod.NewService(cfg.twoFactorMod,
		manager, challenger, sessions, deps.users, attemptLimiter, auditor,
		twofactormod.WithLogger(log),
		twofactormod.WithRequireAuth(sessions.RequireAuth),
	)
	auditService := auditlog.NewService(reader, sessions, deps.users, auditor,
		auditlog.WithLogger(log),
	)

	r := chi.NewRouter()
	r.Use(requestid.Middleware, resolver.Middleware, deps.metrics.Middleware, sessions.Middleware)

	r.Get("/healthz", httpserver.HealthHandler(log))
	r.Get("/readyz", httpserver.HealthHandler(log, deps.checks...))
	r.Handle("/metrics", deps.metrics.Handler())

	r.Mount("/two-factor", twoFactorService.Handle())
	r.Mount("/admin/audit-logs", sessions.RequireAuth(challenger.RequireTwoFactor(auditService.Handle())))
	r.Mount("/", authService.Handle())

	return &app{router: r, sessions: sessions, auditor: auditor}, nil
}

// loginKey limits password attempts per client address.
func loginKey(r *http.Request) string {
	if ip := clientip.GetIPFromContext(r.Context()); ip != "" {
		return "login:" + ip
	}
	return ""
}
