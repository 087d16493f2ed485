package twofactor

import (
	"context"
	"errors"
	"time"

	"github.com/natvps/panel/pkg/qrcode"
	"github.com/natvps/panel/pkg/secrets"
	"github.com/natvps/panel/pkg/totp"
)

// Manager owns the two-factor fields of user records: the encrypted TOTP
// secret, the encrypted recovery code hashes and the confirmation time.
type Manager struct {
	users        UserStore
	secretCipher secrets.Cipher
	codeCipher   secrets.Cipher
	cfg          Config
	now          func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithConfig sets the configuration. Zero fields fall back to defaults.
func WithConfig(cfg Config) ManagerOption {
	return func(m *Manager) {
		m.cfg = cfg.withDefaults()
	}
}

// WithClock overrides the clock used for TOTP verification and confirmation timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager. secretCipher protects the TOTP secret and
// codeCipher the recovery code list; they should use distinct keys.
func NewManager(users UserStore, secretCipher, codeCipher secrets.Cipher, opts ...ManagerOption) *Manager {
	if users == nil || secretCipher == nil || codeCipher == nil {
		panic("twofactor: user store and ciphers are required")
	}
	m := &Manager{
		users:        users,
		secretCipher: secretCipher,
		codeCipher:   codeCipher,
		cfg:          DefaultConfig(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Setup is what a user needs to add the account to an authenticator app.
type Setup struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
	// QRCode is a PNG data URI of URI.
	QRCode string `json:"qr_code"`
}

// Enabled reports whether the user has completed two-factor setup.
func (m *Manager) Enabled(ctx context.Context, userID int64) (bool, error) {
	st, err := m.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.Enabled(), nil
}

// BeginSetup generates a fresh secret for the user. Nothing is persisted
// until Enable confirms a code generated from it.
func (m *Manager) BeginSetup(ctx context.Context, userID int64, accountName string) (*Setup, error) {
	st, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st.Enabled() {
		return nil, ErrAlreadyEnabled
	}

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return nil, storageError("generate secret", err)
	}
	uri, err := totp.GetTOTPURI(totp.TOTPParams{
		Secret:      secret,
		AccountName: accountName,
		Issuer:      m.cfg.TOTP.Issuer,
	})
	if err != nil {
		return nil, err
	}
	img, err := qrcode.DataURI(uri, qrcode.WithSize(m.cfg.QRCodeSize))
	if err != nil {
		return nil, storageError("render qr code", err)
	}

	return &Setup{Secret: secret, URI: uri, QRCode: img}, nil
}

// Enable confirms setup with a code generated from secret, persists the
// encrypted secret with a fresh recovery code set and returns the plain
// codes. This is the only time the plain codes are available.
func (m *Manager) Enable(ctx context.Context, userID int64, secret, code string) ([]string, error) {
	if !totp.VerifyAt(secret, code, m.now(), m.cfg.TOTP.WindowSteps) {
		return nil, ErrInvalidCode
	}

	st, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st.Enabled() {
		return nil, ErrAlreadyEnabled
	}

	encSecret, err := m.secretCipher.EncryptString(secret)
	if err != nil {
		return nil, storageError("encrypt secret", err)
	}
	plain, encCodes, err := m.newRecoveryCodes()
	if err != nil {
		return nil, err
	}

	confirmedAt := m.now().UTC()
	st.Secret = encSecret
	st.RecoveryCodes = encCodes
	st.ConfirmedAt = &confirmedAt
	if err := m.save(ctx, userID, st); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, storageError("enable", err)
		}
		return nil, err
	}
	return plain, nil
}

// Disable clears the secret, the recovery codes and the confirmation.
func (m *Manager) Disable(ctx context.Context, userID int64) error {
	for range m.cfg.MaxConsumeRetries {
		st, err := m.load(ctx, userID)
		if err != nil {
			return err
		}
		st.Secret = ""
		st.RecoveryCodes = ""
		st.ConfirmedAt = nil

		err = m.save(ctx, userID, st)
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
	return storageError("disable", ErrVersionConflict)
}

// VerifyTOTP checks code against the user's stored secret. A user without
// two-factor authentication never verifies.
func (m *Manager) VerifyTOTP(ctx context.Context, userID int64, code string) (bool, error) {
	st, err := m.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if !st.Enabled() {
		return false, nil
	}

	secret, err := m.secretCipher.DecryptString(st.Secret)
	if err != nil {
		return false, storageError("decrypt secret", err)
	}
	return totp.VerifyAt(secret, code, m.now(), m.cfg.TOTP.WindowSteps), nil
}

func (m *Manager) load(ctx context.Context, userID int64) (State, error) {
	st, err := m.users.LoadState(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return State{}, ErrUserNotFound
		}
		return State{}, storageError("load state", err)
	}
	return st, nil
}

// save passes ErrVersionConflict and ErrUserNotFound through unwrapped so
// callers can retry or abandon.
func (m *Manager) save(ctx context.Context, userID int64, st State) error {
	err := m.users.SaveState(ctx, userID, st)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, ErrUserNotFound):
		return ErrUserNotFound
	}
	return storageError("save state", err)
}
