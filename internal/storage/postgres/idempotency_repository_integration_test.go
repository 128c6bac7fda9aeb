package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

func TestIdempotencyRepository_PostgresCheckoutReplay(t *testing.T) {
	repo := NewIdempotencyRepository(openMigratedTestStore(t))
	ctx := context.Background()
	ttl := time.Now().UTC().Add(2 * time.Hour).Round(time.Second)

	created, err := repo.CreateProcessing(ctx, "till-1-checkout", "hash-1", ttl)
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyStatusProcessing, created.Status)

	existing, err := repo.CreateProcessing(ctx, "till-1-checkout", "hash-1", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	assert.Equal(t, domain.IdempotencyStatusProcessing, existing.Status)

	_, err = repo.CreateProcessing(ctx, "till-1-checkout", "hash-2", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)

	require.NoError(t, repo.MarkDone(ctx, "till-1-checkout", []byte(`{"order_number":"20260301-0001"}`), 0))

	got, err := repo.Get(ctx, "till-1-checkout")
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyStatusDone, got.Status)
	assert.Zero(t, got.StatusCode)
	assert.JSONEq(t, `{"order_number":"20260301-0001"}`, string(got.ResponseBody))
	assert.True(t, got.TTLAt.Equal(ttl), "ttl %s, want %s", got.TTLAt, ttl)

	require.NoError(t, repo.MarkFailed(ctx, "till-1-checkout", nil, 9))
	got, err = repo.Get(ctx, "till-1-checkout")
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyStatusFailed, got.Status)
	assert.Equal(t, 9, got.StatusCode)
	assert.Empty(t, got.ResponseBody)

	require.ErrorIs(t, repo.MarkDone(ctx, "missing", nil, 0), domain.ErrIdempotencyKeyNotFound)
	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
}

func TestIdempotencyRepository_PostgresReclaimsExpiredKey(t *testing.T) {
	repo := NewIdempotencyRepository(openMigratedTestStore(t))
	ctx := context.Background()

	_, err := repo.CreateProcessing(ctx, "till-2-checkout", "hash-old", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.MarkDone(ctx, "till-2-checkout", []byte(`{}`), 0))

	reclaimed, err := repo.CreateProcessing(ctx, "till-2-checkout", "hash-new", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "hash-new", reclaimed.RequestHash)

	got, err := repo.Get(ctx, "till-2-checkout")
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyStatusProcessing, got.Status)
	assert.Nil(t, got.ResponseBody)
	assert.WithinDuration(t, time.Now().Add(domain.DefaultIdempotencyTTL), got.TTLAt, time.Minute)
}

func TestIdempotencyRepository_PostgresDeleteExpired(t *testing.T) {
	repo := NewIdempotencyRepository(openMigratedTestStore(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for i, age := range []time.Duration{5 * time.Minute, 4 * time.Minute, 3 * time.Minute} {
		_, err := repo.CreateProcessing(ctx, "expired-"+string(rune('a'+i)), "h", now.Add(-age))
		require.NoError(t, err)
	}
	_, err := repo.CreateProcessing(ctx, "live", "h", now.Add(time.Hour))
	require.NoError(t, err)

	removed, err := repo.DeleteExpired(ctx, now, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Самый свежий из истёкших пережил первый проход.
	_, err = repo.Get(ctx, "expired-c")
	require.NoError(t, err)

	removed, err = repo.DeleteExpired(ctx, time.Time{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.Get(ctx, "live")
	require.NoError(t, err)
}
