package clientip

// Config lists the reverse proxies whose forwarding headers are trusted.
type Config struct {
	TrustedProxies string `env:"CLIENTIP_TRUSTED_PROXIES" envDefault:"127.0.0.1,::1"`
}
