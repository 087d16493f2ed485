package totp_test

import (
	"testing"
	"time"

	"github.com/natvps/panel/pkg/totp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecretKey(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.Len(t, secret, 32)
	assert.Regexp(t, totp.ValidateSecretKeyRegex, secret)

	other, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestGetTOTPURI(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		params  totp.TOTPParams
		want    string
		wantErr error
	}{
		{
			name: "Basic URI",
			params: totp.TOTPParams{
				Secret:      "ABCDEFGHIJKLMNOP",
				AccountName: "admin@example.com",
				Issuer:      "Panel",
			},
			want: "otpauth://totp/Panel:admin@example.com?algorithm=SHA1&digits=6&issuer=Panel&period=30&secret=ABCDEFGHIJKLMNOP",
		},
		{
			name: "Issuer with spaces",
			params: totp.TOTPParams{
				Secret:      "ABCDEFGHIJKLMNOP",
				AccountName: "admin@example.com",
				Issuer:      "NAT VPS",
			},
			want: "otpauth://totp/NAT%20VPS:admin@example.com?algorithm=SHA1&digits=6&issuer=NAT+VPS&period=30&secret=ABCDEFGHIJKLMNOP",
		},
		{
			name:    "Missing secret",
			params:  totp.TOTPParams{AccountName: "a", Issuer: "b"},
			wantErr: totp.ErrMissingSecret,
		},
		{
			name:    "Lowercase secret",
			params:  totp.TOTPParams{Secret: "abcdef", AccountName: "a", Issuer: "b"},
			wantErr: totp.ErrInvalidSecret,
		},
		{
			name:    "Missing account",
			params:  totp.TOTPParams{Secret: "ABCDEFGH", Issuer: "b"},
			wantErr: totp.ErrMissingAccountName,
		},
		{
			name:    "Missing issuer",
			params:  totp.TOTPParams{Secret: "ABCDEFGH", AccountName: "a"},
			wantErr: totp.ErrMissingIssuer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := totp.GetTOTPURI(tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyAt_Window(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	now := time.Unix(1_700_000_010, 0)
	code, err := totp.GenerateCodeAt(secret, now)
	require.NoError(t, err)

	tests := []struct {
		name   string
		at     time.Time
		window int
		want   bool
	}{
		{"same step", now, 1, true},
		{"30 seconds later", now.Add(30 * time.Second), 1, true},
		{"30 seconds earlier", now.Add(-30 * time.Second), 1, true},
		{"90 seconds later", now.Add(90 * time.Second), 1, false},
		{"90 seconds earlier", now.Add(-90 * time.Second), 1, false},
		{"30 seconds later without window", now.Add(30 * time.Second), 0, false},
		{"60 seconds later with window 2", now.Add(60 * time.Second), 2, true},
		{"negative window treated as zero", now, -3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, totp.VerifyAt(secret, code, tt.at, tt.window))
		})
	}
}

func TestVerify_MalformedInput(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	code, err := totp.GenerateCode(secret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		code   string
	}{
		{"empty code", secret, ""},
		{"short code", secret, code[:5]},
		{"long code", secret, code + "1"},
		{"letters", secret, "abcdef"},
		{"empty secret", "", code},
		{"non base32 secret", "not-a-secret!", code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.NotPanics(t, func() {
				assert.False(t, totp.Verify(tt.secret, tt.code, 1))
			})
		})
	}
}

func TestVerify_CurrentCode(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	code, err := totp.GenerateCode(secret)
	require.NoError(t, err)
	assert.Len(t, code, totp.DefaultDigits)
	assert.True(t, totp.Verify(secret, code, totp.DefaultWindowSteps))
	assert.True(t, totp.Verify(" "+secret+" ", " "+code+" ", totp.DefaultWindowSteps))
}

func TestGenerateCodeAt_InvalidSecret(t *testing.T) {
	t.Parallel()
	_, err := totp.GenerateCodeAt("invalid!", time.Now())
	assert.ErrorIs(t, err, totp.ErrInvalidSecret)
}
