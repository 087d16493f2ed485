// Package pg wires the panel to PostgreSQL through pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config and retries until the server
// answers a ping or the attempts run out. Migrate applies the goose
// migrations, either from a directory on disk or from an embedded
// filesystem passed with MigrationsFS. Healthcheck returns a check suitable
// for readiness endpoints.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log, pg.MigrationsFS(db.Migrations)); err != nil {
//	    return err
//	}
//
// The Is*Error helpers classify *pgconn.PgError values so storage code can
// map constraint and trigger failures to domain errors.
package pg
