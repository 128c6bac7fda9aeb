package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
	"github.com/vladislavdragonenkov/cafepos/internal/storage/memory"
)

func TestCartStore_VersionedSave(t *testing.T) {
	store := memory.NewCartStore()
	ctx := context.Background()

	session, err := store.Create(ctx, domain.CartSession{ID: "till-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), session.Version)

	_, err = store.Create(ctx, domain.CartSession{ID: "till-1"})
	require.ErrorIs(t, err, domain.ErrCartVersionConflict)

	tea := domain.MenuItem{ID: "tea", Name: "Tea", Price: decimal.NewFromInt(20)}
	session.Cart = session.Cart.AddItem(tea)
	saved, err := store.Save(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	// устаревшая версия отклоняется
	_, err = store.Save(ctx, session)
	require.ErrorIs(t, err, domain.ErrCartVersionConflict)

	got, err := store.Get(ctx, "till-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Cart.Quantity("tea"))
}

func TestCartStore_MissingAndDelete(t *testing.T) {
	store := memory.NewCartStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "nope")
	require.ErrorIs(t, err, domain.ErrCartNotFound)

	_, err = store.Save(ctx, domain.CartSession{ID: "nope", Version: 1})
	require.ErrorIs(t, err, domain.ErrCartNotFound)

	_, err = store.Create(ctx, domain.CartSession{ID: "till-2"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "till-2"))
	require.NoError(t, store.Delete(ctx, "till-2"))

	_, err = store.Get(ctx, "till-2")
	require.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestAuditRepository_Chronological(t *testing.T) {
	repo := memory.NewAuditRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Append(ctx, domain.AuditEvent{ItemID: "tea", Type: domain.AuditItemUpdated, Occurred: now.Add(time.Second)}))
	require.NoError(t, repo.Append(ctx, domain.AuditEvent{ItemID: "tea", Type: domain.AuditItemCreated, Occurred: now}))
	require.NoError(t, repo.Append(ctx, domain.AuditEvent{ItemID: "cake", Type: domain.AuditItemCreated, Occurred: now}))

	events, err := repo.List(ctx, "tea")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.AuditItemCreated, events[0].Type)
	assert.Equal(t, domain.AuditItemUpdated, events[1].Type)

	none, err := repo.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}
