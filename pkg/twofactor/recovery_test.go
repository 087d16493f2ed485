package twofactor_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natvps/panel/pkg/twofactor"
)

func TestManager_RecoveryCodeLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := twofactor.NewMemoryUserStore()
	m := newManager(t, users)
	_, codes := enabledUser(t, m, users, 1)

	n, err := m.RemainingCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, len(codes), n)

	ok, err := m.VerifyAndConsume(ctx, 1, "  "+strings.ToLower(codes[0])+"\n")
	require.NoError(t, err)
	assert.True(t, ok, "input is normalized")

	n, err = m.RemainingCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, len(codes)-1, n)

	ok, err = m.VerifyAndConsume(ctx, 1, codes[0])
	require.NoError(t, err)
	assert.False(t, ok, "a consumed code never verifies again")

	for _, bad := range []string{"", "NOPE-NOPE-NOPE"} {
		ok, err = m.VerifyAndConsume(ctx, 1, bad)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	n, err = m.RemainingCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, len(codes)-1, n, "failed attempts do not change the count")
}

func TestManager_RegenerateInvalidatesOldCodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := twofactor.NewMemoryUserStore()
	m := newManager(t, users)
	_, oldCodes := enabledUser(t, m, users, 1)

	newCodes, err := m.RegenerateRecoveryCodes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, newCodes, 8)

	ok, err := m.VerifyAndConsume(ctx, 1, oldCodes[1])
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.VerifyAndConsume(ctx, 1, newCodes[1])
	require.NoError(t, err)
	assert.True(t, ok)

	users.AddUser(2)
	_, err = m.RegenerateRecoveryCodes(ctx, 2)
	assert.ErrorIs(t, err, twofactor.ErrNotEnabled)
}

func TestManager_StoreRecoveryCodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := twofactor.NewMemoryUserStore()
	m := newManager(t, users)
	users.AddUser(1)

	codes, err := m.GenerateRecoveryCodes(3)
	require.NoError(t, err)
	require.NoError(t, m.StoreRecoveryCodes(ctx, 1, codes))

	n, err := m.RemainingCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, m.StoreRecoveryCodes(ctx, 1, codes[:1]))
	n, err = m.RemainingCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "store replaces the previous set")
}

func TestManager_ConcurrentConsumeSameCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := twofactor.NewMemoryUserStore()
	m := newManager(t, users)
	_, codes := enabledUser(t, m, users, 1)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		errs      []error
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.VerifyAndConsume(ctx, 1, codes[0])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if ok {
				successes++
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Equal(t, 1, successes)

	n, err := m.RemainingCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, len(codes)-1, n)
}

func TestManager_ConcurrentConsumeDifferentCodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := twofactor.NewMemoryUserStore()
	m := newManager(t, users)
	_, codes := enabledUser(t, m, users, 1)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.VerifyAndConsume(ctx, 1, codes[i])
			assert.NoError(t, err)
			results[i] = ok
		}()
	}
	wg.Wait()

	assert.Equal(t, []bool{true, true}, results)
	n, err := m.RemainingCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, len(codes)-2, n)
}
