// Package config fills configuration structs from the environment using
// github.com/caarlos0/env/v11 tags, after loading a .env file with
// github.com/joho/godotenv when one exists.
//
// Each struct type is parsed once per process and cached:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
// LoadPrefixed parses a shared struct under a variable prefix and is not
// cached, so the same type can be loaded several times:
//
//	var attempts ratelimiter.Config
//	err := config.LoadPrefixed(&attempts, "TWO_FACTOR_ATTEMPTS_")
package config
