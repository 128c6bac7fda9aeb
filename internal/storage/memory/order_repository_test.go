package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

func newOrder(number string) domain.Order {
	return domain.Order{
		Number:       number,
		CustomerName: "Ann",
		Status:       domain.OrderStatusPaid,
		TotalAmount:  decimal.RequireFromString("21"),
		Items: []domain.OrderLine{
			{ItemID: "tea", Name: "Tea", Price: decimal.NewFromInt(20), GSTPercentage: decimal.NewFromInt(5), Quantity: 1},
		},
	}
}

func TestOrderRepository_CreateGet(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, newOrder("ORD-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected store-assigned created_at")
	}

	stored, err := repo.Get(ctx, "ORD-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Number != "ORD-1" || len(stored.Items) != 1 {
		t.Fatalf("unexpected order %+v", stored)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_DuplicateNumber(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, newOrder("ORD-1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := repo.Create(ctx, newOrder("ORD-1")); !errors.Is(err, domain.ErrOrderNumberConflict) {
		t.Fatalf("expected ErrOrderNumberConflict, got %v", err)
	}
}

func TestOrderRepository_ListNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	repo := newOrderRepository(func() time.Time {
		tick++
		// ORD-2 и ORD-3 получают одинаковое время: порядок решает очередность вставки.
		if tick >= 3 {
			return base.Add(time.Minute)
		}
		return base.Add(time.Duration(tick-1) * time.Minute)
	})
	ctx := context.Background()

	for _, n := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		if _, err := repo.Create(ctx, newOrder(n)); err != nil {
			t.Fatalf("create %s failed: %v", n, err)
		}
	}

	orders, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	got := []string{orders[0].Number, orders[1].Number, orders[2].Number}
	want := []string{"ORD-3", "ORD-2", "ORD-1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	limited, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(limited))
	}
}

func TestOrderRepository_StoredOrderIsImmutable(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	order := newOrder("ORD-1")
	if _, err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	order.Items[0].Name = "Changed"

	stored, err := repo.Get(ctx, "ORD-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Items[0].Name != "Tea" {
		t.Fatalf("stored order was mutated: %s", stored.Items[0].Name)
	}
}

func TestOrderRepository_SearchAppliesLimitAfterFilter(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	repo := newOrderRepository(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})
	ctx := context.Background()

	alice := newOrder("ORD-1")
	alice.CustomerName = "Alice"
	if _, err := repo.Create(ctx, alice); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for _, n := range []string{"ORD-2", "ORD-3", "ORD-4"} {
		bob := newOrder(n)
		bob.CustomerName = "Bob"
		if _, err := repo.Create(ctx, bob); err != nil {
			t.Fatalf("create %s failed: %v", n, err)
		}
	}

	found, summary, err := repo.Search(ctx, "ALICE", 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(found) != 1 || found[0].Number != "ORD-1" {
		t.Fatalf("expected ORD-1 beyond the newest three, got %+v", found)
	}
	if summary.Count != 1 || !summary.Revenue.Equal(decimal.NewFromInt(21)) {
		t.Fatalf("unexpected summary %+v", summary)
	}

	page, summary, err := repo.Search(ctx, "bob", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(page) != 2 || page[0].Number != "ORD-4" {
		t.Fatalf("expected newest two Bob orders, got %+v", page)
	}
	if summary.Count != 3 {
		t.Fatalf("summary must count every match, got %d", summary.Count)
	}
}
