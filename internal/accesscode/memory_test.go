package accesscode

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hospitalhub/accessgate/internal/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	return NewMemoryStore().WithClock(clock.Now), clock
}

func TestMemoryStore_Generate(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore()

	code, err := store.Generate(ctx, "alice", "night shift")
	require.NoError(t, err)
	assert.True(t, IsWellFormed(code.Code))
	assert.Equal(t, "alice", code.CreatedBy)
	assert.Equal(t, "night shift", code.Note)
	assert.True(t, code.IsActive)
	assert.Zero(t, code.UsageCount)
	assert.Nil(t, code.LastUsed)
	assert.Equal(t, clock.Now().Add(TTL), code.ExpiresAt)

	_, err = store.Generate(ctx, "", "")
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
}

func TestMemoryStore_ValidateLifecycle(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore()

	code, err := store.Generate(ctx, "alice", "")
	require.NoError(t, err)

	t.Run("reusable within the hour", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			clock.Advance(10 * time.Minute)
			result, err := store.Validate(ctx, code.Code)
			require.NoError(t, err)
			require.True(t, result.Valid)
			assert.Equal(t, i, result.Code.UsageCount)
			require.NotNil(t, result.Code.LastUsed)
			assert.Equal(t, clock.Now(), *result.Code.LastUsed)
		}
	})

	t.Run("accepts loose formatting", func(t *testing.T) {
		loose := " " + code.Code[:4] + " " + code.Code[5:9] + code.Code[10:] + " "
		result, err := store.Validate(ctx, loose)
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("still valid at 59 minutes", func(t *testing.T) {
		clock.now = code.CreatedAt.Add(59 * time.Minute)
		result, err := store.Validate(ctx, code.Code)
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("expired at 61 minutes and deactivated", func(t *testing.T) {
		clock.now = code.CreatedAt.Add(61 * time.Minute)
		result, err := store.Validate(ctx, code.Code)
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, ReasonExpired, result.Reason)

		all, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.False(t, all[0].IsActive)

		result, err = store.Validate(ctx, code.Code)
		require.NoError(t, err)
		assert.Equal(t, ReasonInvalid, result.Reason)
	})
}

func TestMemoryStore_ValidateRejections(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	result, err := store.Validate(ctx, "   ")
	require.NoError(t, err)
	assert.Equal(t, ReasonRequired, result.Reason)

	result, err = store.Validate(ctx, "ZZZZ-ZZZZ-ZZZZ")
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalid, result.Reason)
	assert.Nil(t, result.Code)
}

func TestMemoryStore_DeactivateAndDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	a, err := store.Generate(ctx, "alice", "")
	require.NoError(t, err)
	b, err := store.Generate(ctx, "alice", "")
	require.NoError(t, err)

	ok, err := store.Deactivate(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Deactivate(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok, "deactivate is idempotent")

	result, err := store.Validate(ctx, a.Code)
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalid, result.Reason)

	ok, err = store.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	result, err = store.Validate(ctx, b.Code)
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalid, result.Reason)

	ok, err = store.Deactivate(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Lists(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore()

	old, err := store.Generate(ctx, "alice", "old")
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	mid, err := store.Generate(ctx, "alice", "mid")
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	newest, err := store.Generate(ctx, "bob", "new")
	require.NoError(t, err)
	_, err = store.Deactivate(ctx, mid.ID)
	require.NoError(t, err)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{newest.ID, mid.ID, old.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	valid, err := store.ListValid(ctx)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, newest.ID, valid[0].ID)

	all[0].Note = "mutated"
	again, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", again[0].Note)
}
