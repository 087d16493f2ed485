// Package redis connects the panel to Redis, which holds HTTP sessions and
// the two-factor attempt counters.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Connect retries until the server answers PING or ConnectTimeout elapses.
// Healthcheck returns a readiness check.
package redis
