package twofactor

import "github.com/natvps/panel/pkg/totp"

// Config holds the two-factor settings.
type Config struct {
	TOTP totp.Config

	RecoveryCodeCount int `env:"TWO_FACTOR_RECOVERY_CODE_COUNT" envDefault:"8"`
	// LowRecoveryCodes is the low-water mark below which a successful
	// recovery login carries a warning.
	LowRecoveryCodes int `env:"TWO_FACTOR_LOW_RECOVERY_CODES" envDefault:"3"`
	// MaxConsumeRetries bounds compare-and-swap retries while consuming a code.
	MaxConsumeRetries int    `env:"TWO_FACTOR_MAX_CONSUME_RETRIES" envDefault:"5"`
	ChallengePath     string `env:"TWO_FACTOR_CHALLENGE_PATH" envDefault:"/two-factor/challenge"`
	QRCodeSize        int    `env:"TWO_FACTOR_QR_CODE_SIZE" envDefault:"200"`
}

// DefaultConfig returns the configuration used when nothing is set in the environment.
func DefaultConfig() Config {
	return Config{
		TOTP:              totp.DefaultConfig(),
		RecoveryCodeCount: totp.DefaultRecoveryCodeCount,
		LowRecoveryCodes:  3,
		MaxConsumeRetries: 5,
		ChallengePath:     "/two-factor/challenge",
		QRCodeSize:        200,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TOTP.Issuer == "" {
		c.TOTP.Issuer = d.TOTP.Issuer
	}
	if c.TOTP.WindowSteps < 0 {
		c.TOTP.WindowSteps = 0
	}
	if c.RecoveryCodeCount <= 0 {
		c.RecoveryCodeCount = d.RecoveryCodeCount
	}
	if c.LowRecoveryCodes <= 0 {
		c.LowRecoveryCodes = d.LowRecoveryCodes
	}
	if c.MaxConsumeRetries <= 0 {
		c.MaxConsumeRetries = d.MaxConsumeRetries
	}
	if c.ChallengePath == "" {
		c.ChallengePath = d.ChallengePath
	}
	if c.QRCodeSize <= 0 {
		c.QRCodeSize = d.QRCodeSize
	}
	return c
}
