package twofactor

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/natvps/panel/pkg/totp"
)

// GenerateRecoveryCodes returns count fresh plain codes. A non-positive
// count uses the configured default.
func (m *Manager) GenerateRecoveryCodes(count int) ([]string, error) {
	if count <= 0 {
		count = m.cfg.RecoveryCodeCount
	}
	codes, err := totp.GenerateRecoveryCodes(count)
	if err != nil {
		return nil, storageError("generate recovery codes", err)
	}
	return codes, nil
}

// StoreRecoveryCodes hashes plain and replaces the user's recovery code set.
func (m *Manager) StoreRecoveryCodes(ctx context.Context, userID int64, plain []string) error {
	encoded, err := m.encodeCodes(plain)
	if err != nil {
		return err
	}
	return m.replaceCodes(ctx, userID, encoded)
}

// RegenerateRecoveryCodes issues a new set, invalidating every earlier code.
func (m *Manager) RegenerateRecoveryCodes(ctx context.Context, userID int64) ([]string, error) {
	enabled, err := m.Enabled(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, ErrNotEnabled
	}

	plain, encoded, err := m.newRecoveryCodes()
	if err != nil {
		return nil, err
	}
	if err := m.replaceCodes(ctx, userID, encoded); err != nil {
		return nil, err
	}
	return plain, nil
}

// RemainingCount returns how many unused recovery codes the user has.
func (m *Manager) RemainingCount(ctx context.Context, userID int64) (int, error) {
	st, err := m.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	hashes, err := m.decodeCodes(st.RecoveryCodes)
	if err != nil {
		return 0, err
	}
	return len(hashes), nil
}

// VerifyAndConsume checks code against the user's recovery codes and, on a
// match, removes it. A code verifies at most once, also under concurrent
// submissions: the reduced set is written with a version check and the
// whole match is redone against fresh state on conflict.
func (m *Manager) VerifyAndConsume(ctx context.Context, userID int64, code string) (bool, error) {
	ok, _, err := m.consume(ctx, userID, code)
	return ok, err
}

// consume returns the number of codes left after a successful match.
func (m *Manager) consume(ctx context.Context, userID int64, code string) (bool, int, error) {
	code = totp.NormalizeRecoveryCode(code)
	if code == "" {
		return false, 0, nil
	}

	for range m.cfg.MaxConsumeRetries {
		st, err := m.load(ctx, userID)
		if err != nil {
			return false, 0, err
		}
		hashes, err := m.decodeCodes(st.RecoveryCodes)
		if err != nil {
			return false, 0, err
		}

		idx := slices.IndexFunc(hashes, func(h string) bool {
			return totp.VerifyRecoveryCode(code, h)
		})
		if idx < 0 {
			return false, 0, nil
		}

		remaining := slices.Delete(slices.Clone(hashes), idx, idx+1)
		st.RecoveryCodes, err = m.encryptHashes(remaining)
		if err != nil {
			return false, 0, err
		}

		err = m.save(ctx, userID, st)
		if err == nil {
			return true, len(remaining), nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return false, 0, err
		}
	}
	return false, 0, storageError("consume recovery code", ErrVersionConflict)
}

func (m *Manager) replaceCodes(ctx context.Context, userID int64, encoded string) error {
	for range m.cfg.MaxConsumeRetries {
		st, err := m.load(ctx, userID)
		if err != nil {
			return err
		}
		st.RecoveryCodes = encoded

		err = m.save(ctx, userID, st)
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
	return storageError("store recovery codes", ErrVersionConflict)
}

func (m *Manager) newRecoveryCodes() ([]string, string, error) {
	plain, err := m.GenerateRecoveryCodes(m.cfg.RecoveryCodeCount)
	if err != nil {
		return nil, "", err
	}
	encoded, err := m.encodeCodes(plain)
	if err != nil {
		return nil, "", err
	}
	return plain, encoded, nil
}

func (m *Manager) encodeCodes(plain []string) (string, error) {
	hashes := make([]string, 0, len(plain))
	for _, code := range plain {
		h, err := totp.HashRecoveryCode(code, m.cfg.TOTP.BcryptCost)
		if err != nil {
			return "", storageError("hash recovery code", err)
		}
		hashes = append(hashes, h)
	}
	return m.encryptHashes(hashes)
}

func (m *Manager) encryptHashes(hashes []string) (string, error) {
	if hashes == nil {
		hashes = []string{}
	}
	raw, err := json.Marshal(hashes)
	if err != nil {
		return "", storageError("encode recovery codes", err)
	}
	enc, err := m.codeCipher.EncryptString(string(raw))
	if err != nil {
		return "", storageError("encrypt recovery codes", err)
	}
	return enc, nil
}

func (m *Manager) decodeCodes(encoded string) ([]string, error) {
	if encoded == "" {
		return nil, nil
	}
	raw, err := m.codeCipher.DecryptString(encoded)
	if err != nil {
		return nil, storageError("decrypt recovery codes", err)
	}
	var hashes []string
	if err := json.Unmarshal([]byte(raw), &hashes); err != nil {
		return nil, storageError("decode recovery codes", err)
	}
	return hashes, nil
}
