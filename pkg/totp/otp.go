package totp

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

// RFC 6238 parameters shared by every authenticator app the panel supports.
const (
	DefaultDigits      = 6
	DefaultPeriod      = 30
	DefaultAlgorithm   = "SHA1"
	DefaultWindowSteps = 1

	secretBytes = 20
)

// ValidateSecretKeyRegex matches upper-case RFC 4648 Base32, padding allowed.
var ValidateSecretKeyRegex = regexp.MustCompile("^[A-Z2-7]+=*$")

var (
	unpadded = base32.StdEncoding.WithPadding(base32.NoPadding)

	verifyOpts = pqtotp.ValidateOpts{
		Period:    DefaultPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
)

// TOTPParams describes the otpauth:// URI handed to authenticator apps.
// Algorithm, Digits and Period fall back to the defaults when zero.
type TOTPParams struct {
	Secret      string
	AccountName string
	Issuer      string
	Algorithm   string
	Digits      int
	Period      int
}

// Validate checks the required fields.
func (p TOTPParams) Validate() error {
	switch {
	case p.Secret == "":
		return ErrMissingSecret
	case !ValidateSecretKeyRegex.MatchString(p.Secret):
		return ErrInvalidSecret
	case p.AccountName == "":
		return ErrMissingAccountName
	case p.Issuer == "":
		return ErrMissingIssuer
	}
	return nil
}

// GenerateSecretKey returns a fresh 160-bit secret as unpadded Base32.
func GenerateSecretKey() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecretKey, err)
	}
	return unpadded.EncodeToString(b), nil
}

// GetTOTPURI renders params in the Key Uri Format understood by Google
// Authenticator and compatible apps:
// https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func GetTOTPURI(params TOTPParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	q := url.Values{
		"secret":    {params.Secret},
		"issuer":    {params.Issuer},
		"algorithm": {orDefault(params.Algorithm, DefaultAlgorithm)},
		"digits":    {strconv.Itoa(orDefault(params.Digits, DefaultDigits))},
		"period":    {strconv.Itoa(orDefault(params.Period, DefaultPeriod))},
	}
	label := url.PathEscape(params.Issuer) + ":" + url.PathEscape(params.AccountName)
	return "otpauth://totp/" + label + "?" + q.Encode(), nil
}

// Verify reports whether code is valid for secret right now, tolerating
// windowSteps steps of clock drift either way. Bad input never verifies.
func Verify(secret, code string, windowSteps int) bool {
	return VerifyAt(secret, code, time.Now(), windowSteps)
}

// VerifyAt is Verify at time t.
func VerifyAt(secret, code string, t time.Time, windowSteps int) bool {
	secret, ok := normalizeSecret(secret)
	code = strings.TrimSpace(code)
	if !ok || len(code) != DefaultDigits {
		return false
	}

	opts := verifyOpts
	opts.Skew = uint(max(windowSteps, 0))
	valid, err := pqtotp.ValidateCustom(code, secret, t.UTC(), opts)
	return err == nil && valid
}

// GenerateCode returns the code for the current step.
func GenerateCode(secret string) (string, error) {
	return GenerateCodeAt(secret, time.Now())
}

// GenerateCodeAt returns the code for the step containing t.
func GenerateCodeAt(secret string, t time.Time) (string, error) {
	secret, ok := normalizeSecret(secret)
	if !ok {
		return "", ErrInvalidSecret
	}
	code, err := pqtotp.GenerateCodeCustom(secret, t.UTC(), verifyOpts)
	if err != nil {
		return "", errors.Join(ErrFailedToGenerateTOTP, err)
	}
	return code, nil
}

func normalizeSecret(secret string) (string, bool) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	return secret, ValidateSecretKeyRegex.MatchString(secret)
}

// orDefault returns v unless it is the zero value.
func orDefault[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}
