package totp

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultRecoveryCodeCount = 8

	recoveryAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	recoveryGroupLength = 4
	recoveryGroups      = 3
)

// GenerateRecoveryCodes creates count single-use codes shaped XXXX-XXXX-XXXX
// from uppercase alphanumerics.
func GenerateRecoveryCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidRecoveryCodeCount
	}

	codes := make([]string, count)
	for i := range count {
		code, err := generateRecoveryCode()
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

func generateRecoveryCode() (string, error) {
	var b strings.Builder
	b.Grow(recoveryGroups*recoveryGroupLength + recoveryGroups - 1)

	limit := big.NewInt(int64(len(recoveryAlphabet)))
	for g := range recoveryGroups {
		if g > 0 {
			b.WriteByte('-')
		}
		for range recoveryGroupLength {
			n, err := rand.Int(rand.Reader, limit)
			if err != nil {
				return "", errors.Join(ErrFailedToGenerateRecoveryCode, err)
			}
			b.WriteByte(recoveryAlphabet[n.Int64()])
		}
	}
	return b.String(), nil
}

// NormalizeRecoveryCode trims surrounding whitespace and upper-cases the code.
func NormalizeRecoveryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// HashRecoveryCode hashes a normalized recovery code with bcrypt.
// A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func HashRecoveryCode(code string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(NormalizeRecoveryCode(code)), cost)
	if err != nil {
		return "", errors.Join(ErrFailedToHashRecoveryCode, err)
	}
	return string(hash), nil
}

// VerifyRecoveryCode reports whether code matches hashedCode.
// bcrypt comparison is constant-time with respect to the candidate.
func VerifyRecoveryCode(code, hashedCode string) bool {
	code = NormalizeRecoveryCode(code)
	if code == "" || hashedCode == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedCode), []byte(code)) == nil
}
