package twofactor_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/natvps/panel/pkg/totp"
	"github.com/natvps/panel/pkg/twofactor"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) LoadState(ctx context.Context, userID int64) (twofactor.State, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(twofactor.State), args.Error(1)
}

func (m *mockUserStore) SaveState(ctx context.Context, userID int64, next twofactor.State) error {
	args := m.Called(ctx, userID, next)
	return args.Error(0)
}

func TestState_Enabled(t *testing.T) {
	t.Parallel()
	now := time.Now()
	tests := []struct {
		name  string
		state twofactor.State
		want  bool
	}{
		{"empty", twofactor.State{}, false},
		{"secret without confirmation", twofactor.State{Secret: "enc"}, false},
		{"confirmation without secret", twofactor.State{ConfirmedAt: &now}, false},
		{"confirmed", twofactor.State{Secret: "enc", ConfirmedAt: &now}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.state.Enabled())
		})
	}
}

func TestManager_SetupLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := twofactor.NewMemoryUserStore()
	users.AddUser(1)
	m := newManager(t, users)

	setup, err := m.BeginSetup(ctx, 1, "jane@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.True(t, strings.HasPrefix(setup.URI, "otpauth://totp/"))
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))

	enabled, err := m.Enabled(ctx, 1)
	require.NoError(t, err)
	assert.False(t, enabled, "setup alone does not enable")

	_, err = m.Enable(ctx, 1, setup.Secret, wrongCode(setup.Secret))
	assert.ErrorIs(t, err, twofactor.ErrInvalidCode)

	code, err := totp.GenerateCodeAt(setup.Secret, testNow)
	require.NoError(t, err)
	codes, err := m.Enable(ctx, 1, setup.Secret, code)
	require.NoError(t, err)
	assert.Len(t, codes, totp.DefaultRecoveryCodeCount)

	st, err := users.LoadState(ctx, 1)
	require.NoError(t, err)
	assert.True(t, st.Enabled())
	assert.NotEqual(t, setup.Secret, st.Secret, "secret is stored encrypted")
	for _, c := range codes {
		assert.NotContains(t, st.RecoveryCodes, c)
	}

	_, err = m.BeginSetup(ctx, 1, "jane@example.com")
	assert.ErrorIs(t, err, twofactor.ErrAlreadyEnabled)
	_, err = m.Enable(ctx, 1, setup.Secret, code)
	assert.ErrorIs(t, err, twofactor.ErrAlreadyEnabled)

	ok, err := m.VerifyTOTP(ctx, 1, code)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.Disable(ctx, 1))
	st, err = users.LoadState(ctx, 1)
	require.NoError(t, err)
	assert.False(t, st.Enabled())
	assert.Empty(t, st.Secret)
	assert.Empty(t, st.RecoveryCodes)
	assert.Nil(t, st.ConfirmedAt)

	ok, err = m.VerifyTOTP(ctx, 1, code)
	require.NoError(t, err)
	assert.False(t, ok, "disabled users never verify")
}

func TestManager_VerifyTOTPWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := twofactor.NewMemoryUserStore()
	m := newManager(t, users)
	secret, _ := enabledUser(t, m, users, 1)

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"current step", 0, true},
		{"previous step", -30 * time.Second, true},
		{"next step", 30 * time.Second, true},
		{"three steps behind", -90 * time.Second, false},
		{"three steps ahead", 90 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := totp.GenerateCodeAt(secret, testNow.Add(tt.offset))
			require.NoError(t, err)
			ok, err := m.VerifyTOTP(ctx, 1, code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	for _, code := range []string{"", "12345", "1234567", "abcdef"} {
		ok, err := m.VerifyTOTP(ctx, 1, code)
		require.NoError(t, err)
		assert.False(t, ok, code)
	}
}

func TestManager_UnknownUser(t *testing.T) {
	t.Parallel()
	m := newManager(t, twofactor.NewMemoryUserStore())

	_, err := m.Enabled(context.Background(), 7)
	assert.ErrorIs(t, err, twofactor.ErrUserNotFound)
	assert.False(t, twofactor.IsStorageError(err))
}

func TestManager_StorageFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	users := new(mockUserStore)
	users.On("LoadState", mock.Anything, int64(1)).Return(twofactor.State{}, dbErr)
	m := newManager(t, users)

	_, err := m.VerifyTOTP(ctx, 1, "123456")
	require.Error(t, err)
	assert.True(t, twofactor.IsStorageError(err))
	assert.ErrorIs(t, err, dbErr)

	_, err = m.VerifyAndConsume(ctx, 1, "ABCD-EFGH-IJKL")
	assert.True(t, twofactor.IsStorageError(err))

	_, err = m.RemainingCount(ctx, 1)
	assert.True(t, twofactor.IsStorageError(err))

	users.AssertExpectations(t)
}

func TestManager_SaveFailureIsStorageError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := new(mockUserStore)
	users.On("LoadState", mock.Anything, int64(1)).Return(twofactor.State{}, nil)
	users.On("SaveState", mock.Anything, int64(1), mock.Anything).Return(errors.New("disk full")).Once()
	m := newManager(t, users)

	err := m.StoreRecoveryCodes(ctx, 1, []string{"AAAA-BBBB-CCCC"})
	require.Error(t, err)

	var se *twofactor.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "save state", se.Op)
	users.AssertExpectations(t)
}

func TestManager_ConfigDefaults(t *testing.T) {
	t.Parallel()
	sc, cc := newCiphers(t)
	m := twofactor.NewManager(twofactor.NewMemoryUserStore(), sc, cc,
		twofactor.WithConfig(twofactor.Config{}),
	)

	cfg := m.Config()
	def := twofactor.DefaultConfig()
	assert.Equal(t, def.LowRecoveryCodes, cfg.LowRecoveryCodes)
	assert.Equal(t, def.RecoveryCodeCount, cfg.RecoveryCodeCount)
	assert.Equal(t, def.MaxConsumeRetries, cfg.MaxConsumeRetries)
	assert.Equal(t, def.ChallengePath, cfg.ChallengePath)
	assert.Equal(t, def.TOTP.Issuer, cfg.TOTP.Issuer)
}
