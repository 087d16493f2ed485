package totp

// Config holds TOTP settings shared by the setup flow and the login challenge.
type Config struct {
	Issuer      string `env:"TOTP_ISSUER" envDefault:"NAT VPS Panel"`
	WindowSteps int    `env:"TOTP_WINDOW_STEPS" envDefault:"1"`
	// BcryptCost applies to recovery code hashes.
	BcryptCost int `env:"TOTP_RECOVERY_BCRYPT_COST" envDefault:"10"`
}

// DefaultConfig returns the configuration used when nothing is set in the environment.
func DefaultConfig() Config {
	return Config{
		Issuer:      "NAT VPS Panel",
		WindowSteps: DefaultWindowSteps,
		BcryptCost:  10,
	}
}
