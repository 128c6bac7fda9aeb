package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

func newTestStore(t *testing.T, ttl time.Duration) (*CartStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCartStore(client, ttl), mr
}

func latte() domain.MenuItem {
	return domain.MenuItem{
		ID:            "latte",
		Name:          "Latte",
		Price:         decimal.RequireFromString("5.20"),
		GSTPercentage: decimal.NewFromInt(10),
		Category:      "Coffee",
		Available:     true,
	}
}

func TestCartStore_CreateGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	session := domain.CartSession{
		ID:       "till-1",
		Cart:     domain.Cart{}.AddItem(latte()).AddItem(latte()),
		Customer: domain.CustomerInfo{Name: "Ann", Phone: "0400"},
	}
	created, err := store.Create(ctx, session)
	require.NoError(t, err)
	require.EqualValues(t, 1, created.Version)

	got, err := store.Get(ctx, "till-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Version)
	require.Equal(t, 2, got.Cart.Quantity("latte"))
	require.Equal(t, "Ann", got.Customer.Name)
	require.True(t, got.Cart.GrandTotal().Equal(decimal.RequireFromString("11.44")))

	_, err = store.Create(ctx, session)
	require.ErrorIs(t, err, domain.ErrCartVersionConflict)
}

func TestCartStore_SaveVersioning(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	created, err := store.Create(ctx, domain.CartSession{ID: "till-2"})
	require.NoError(t, err)

	created.Cart = created.Cart.AddItem(latte())
	created.PendingOrder = "20260301-0042"
	saved, err := store.Save(ctx, created)
	require.NoError(t, err)
	require.EqualValues(t, 2, saved.Version)

	got, err := store.Get(ctx, "till-2")
	require.NoError(t, err)
	require.Equal(t, "20260301-0042", got.PendingOrder)

	// Устаревшая версия.
	_, err = store.Save(ctx, created)
	require.ErrorIs(t, err, domain.ErrCartVersionConflict)

	_, err = store.Save(ctx, domain.CartSession{ID: "missing", Version: 1})
	require.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestCartStore_DeleteAndTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	_, err := store.Create(ctx, domain.CartSession{ID: "till-3"})
	require.NoError(t, err)
	require.Equal(t, time.Minute, mr.TTL(cartKey("till-3")))

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "till-3")
	require.ErrorIs(t, err, domain.ErrCartNotFound)

	require.NoError(t, store.Delete(ctx, "till-3"))
	require.NoError(t, store.Ping(ctx))
}
