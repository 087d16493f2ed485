package secrets

// Config carries the base64 master key used to derive per-purpose keys.
type Config struct {
	Key string `env:"APP_SECRET_KEY,required"`
}
