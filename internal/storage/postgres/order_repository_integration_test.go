package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

func TestOrderRepository_PostgresCreateGetList(t *testing.T) {
	store := openMigratedTestStore(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	first, err := repo.Create(ctx, sampleOrder("ORD-1"))
	require.NoError(t, err)
	require.False(t, first.CreatedAt.IsZero())

	_, err = repo.Create(ctx, sampleOrder("ORD-2"))
	require.NoError(t, err)

	got, err := repo.Get(ctx, "ORD-1")
	require.NoError(t, err)
	require.Equal(t, "Ann", got.CustomerName)
	require.Equal(t, "0400 111 222", got.CustomerPhone)
	require.Equal(t, domain.OrderStatusPaid, got.Status)
	require.True(t, got.TotalAmount.Equal(decimal.RequireFromString("41.23875")), "total %s", got.TotalAmount)
	require.Len(t, got.Items, 2)
	require.Equal(t, "cake", got.Items[0].ItemID)
	require.Equal(t, "tea", got.Items[1].ItemID)
	require.True(t, got.Items[0].GSTPercentage.Equal(decimal.RequireFromString("12.5")))
	require.Empty(t, got.ValidateInvariants())

	listed, err := repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "ORD-2", listed[0].Number)
	require.Len(t, listed[0].Items, 2)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestOrderRepository_PostgresSearch(t *testing.T) {
	store := openMigratedTestStore(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	ann := sampleOrder("ORD-1")
	ann.CreatedAt = base
	_, err := repo.Create(ctx, ann)
	require.NoError(t, err)
	for i, number := range []string{"ORD-2", "ORD-3"} {
		bob := sampleOrder(number)
		bob.CustomerName = "Bob"
		bob.CustomerPhone = ""
		bob.CreatedAt = base.Add(time.Duration(i+1) * time.Minute)
		_, err = repo.Create(ctx, bob)
		require.NoError(t, err)
	}

	found, summary, err := repo.Search(ctx, "ANN", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "ORD-1", found[0].Number)
	require.Len(t, found[0].Items, 2)
	require.Equal(t, 1, summary.Count)

	page, summary, err := repo.Search(ctx, "bob", 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "ORD-3", page[0].Number)
	require.Equal(t, 2, summary.Count)
	require.True(t, summary.Revenue.Equal(decimal.RequireFromString("82.4775")), "revenue %s", summary.Revenue)

	byPhone, _, err := repo.Search(ctx, "111 2", 0)
	require.NoError(t, err)
	require.Len(t, byPhone, 1)

	none, summary, err := repo.Search(ctx, "100%", 0)
	require.NoError(t, err)
	require.Empty(t, none)
	require.Zero(t, summary.Count)
	require.True(t, summary.Revenue.IsZero())

	all, summary, err := repo.Search(ctx, " ", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, 3, summary.Count)
}

func TestLikePattern(t *testing.T) {
	require.Equal(t, "%%", likePattern("  "))
	require.Equal(t, "%ann%", likePattern(" ann "))
	require.Equal(t, `%50\%\_off\\%`, likePattern(`50%_off\`))
}

func TestOrderRepository_PostgresErrors(t *testing.T) {
	store := openMigratedTestStore(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing-order")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = repo.Create(ctx, sampleOrder("ORD-DUP"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, sampleOrder("ORD-DUP"))
	require.ErrorIs(t, err, domain.ErrOrderNumberConflict)
}

func TestOrderRepository_PostgresCreateWithOutbox(t *testing.T) {
	store := openMigratedTestStore(t)
	repo := NewOrderRepository(store)
	outbox := NewOutboxRepository(store)
	ctx := context.Background()

	msg := domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   "ORD-TX",
		EventType:     domain.EventTypeOrderPaid,
		Payload:       []byte(`{"order_number":"ORD-TX"}`),
	}
	_, err := repo.CreateWithOutbox(ctx, sampleOrder("ORD-TX"), msg)
	require.NoError(t, err)

	pending, err := outbox.PullPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "ORD-TX", pending[0].AggregateID)

	// Дубликат номера откатывает и заказ, и событие.
	_, err = repo.CreateWithOutbox(ctx, sampleOrder("ORD-TX"), msg)
	require.ErrorIs(t, err, domain.ErrOrderNumberConflict)

	stats, err := outbox.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.PendingCount)
}

func TestHasPgCode(t *testing.T) {
	require.True(t, hasPgCode(&pgconn.PgError{Code: "23505"}, pgUniqueViolation))
	require.True(t, hasPgCode(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "22P02"}), pgInvalidTextRepresentation))
	require.False(t, hasPgCode(&pgconn.PgError{Code: "22001"}, pgUniqueViolation))
	require.False(t, hasPgCode(errors.New("plain error"), pgUniqueViolation))
	require.False(t, hasPgCode(nil, pgUniqueViolation))
}

func sampleOrder(number string) domain.Order {
	// cake: 3.33 × 3 = 9.99 + GST 1.24875; tea: 30 без GST.
	return domain.Order{
		Number:        number,
		CustomerName:  "Ann",
		CustomerPhone: "0400 111 222",
		Status:        domain.OrderStatusPaid,
		TotalAmount:   decimal.RequireFromString("41.23875"),
		Items: []domain.OrderLine{
			{ItemID: "cake", Name: "Cake", Price: decimal.RequireFromString("3.33"), GSTPercentage: decimal.RequireFromString("12.5"), Quantity: 3},
			{ItemID: "tea", Name: "Tea", Price: decimal.NewFromInt(30), GSTPercentage: decimal.Zero, Quantity: 1},
		},
	}
}
