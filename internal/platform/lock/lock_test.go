package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAcquireIsExclusivePerKey(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	release, err := l.Acquire(ctx, "payroll:generate:2024-05", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "payroll:generate:2024-05", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(ctx, "payroll:generate:2024-06", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	again, err := l.Acquire(ctx, "payroll:generate:2024-05", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocalLockExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.now = func() time.Time { return now }

	stale, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	// The expired holder must not free the new holder's lock.
	require.NoError(t, stale(ctx))
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, fresh(ctx))
}

func newTestRedis(t *testing.T) (*Redis, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedis(client, "")
	l.newToken = func() string { return "token-1" }
	return l, mock
}

func TestRedisAcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestRedis(t)
	key := DefaultRedisPrefix + "payroll:generate:2024-05"

	mock.ExpectSetNX(key, "token-1", time.Minute).SetVal(true)
	mock.ExpectEval(releaseScript, []string{key}, "token-1").SetVal(int64(1))

	release, err := l.Acquire(ctx, "payroll:generate:2024-05", time.Minute)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisAcquireWhenHeld(t *testing.T) {
	l, mock := newTestRedis(t)
	key := DefaultRedisPrefix + "payroll:generate:2024-05"

	mock.ExpectSetNX(key, "token-1", time.Minute).SetVal(false)

	_, err := l.Acquire(context.Background(), "payroll:generate:2024-05", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisAcquireError(t *testing.T) {
	l, mock := newTestRedis(t)
	key := DefaultRedisPrefix + "k"
	boom := errors.New("connection refused")

	mock.ExpectSetNX(key, "token-1", time.Second).SetErr(boom)

	_, err := l.Acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrLocked)
}
