package history

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
	"github.com/vladislavdragonenkov/cafepos/internal/storage/memory"
)

func seed(t *testing.T) domain.OrderRepository {
	t.Helper()
	repo := memory.NewOrderRepository()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	orders := []domain.Order{
		{Number: "ORD-1", CustomerName: "Alice", CustomerPhone: "0400 111", TotalAmount: decimal.RequireFromString("11.00"),
			Items: []domain.OrderLine{{ItemID: "tea", Name: "Tea", Price: decimal.NewFromInt(5), GSTPercentage: decimal.NewFromInt(10), Quantity: 2}}},
		{Number: "ORD-2", CustomerName: "Bob", CustomerPhone: "0400 222", TotalAmount: decimal.RequireFromString("6")},
		{Number: "ORD-3", CustomerName: "alicia", TotalAmount: decimal.RequireFromString("4.125")},
	}
	for i, o := range orders {
		o.Status = domain.OrderStatusPaid
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := repo.Create(context.Background(), o)
		require.NoError(t, err)
	}
	return repo
}

func TestService_ListFiltersAndSummarizes(t *testing.T) {
	svc := NewService(seed(t), nil, "", nil)
	ctx := context.Background()

	all, summary, err := svc.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "ORD-3", all[0].Number)
	require.Equal(t, 3, summary.Count)
	require.True(t, summary.Revenue.Equal(decimal.RequireFromString("21.125")))

	alices, summary, err := svc.List(ctx, "ALI", 0)
	require.NoError(t, err)
	require.Len(t, alices, 2)
	require.Equal(t, 2, summary.Count)
	require.True(t, summary.Revenue.Equal(decimal.RequireFromString("15.125")))

	byPhone, _, err := svc.List(ctx, "222", 0)
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	require.Equal(t, "ORD-2", byPhone[0].Number)

	limited, _, err := svc.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestService_ListFindsOrdersOlderThanLimit(t *testing.T) {
	svc := NewService(seed(t), nil, "", nil)
	ctx := context.Background()

	// ORD-1 — самый старый заказ, новее него ещё два.
	found, summary, err := svc.List(ctx, "0400 111", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "ORD-1", found[0].Number)
	require.Equal(t, 1, summary.Count)

	page, summary, err := svc.List(ctx, "ali", 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "ORD-3", page[0].Number)
	require.Equal(t, 2, summary.Count, "summary covers every match, not just the page")
	require.True(t, summary.Revenue.Equal(decimal.RequireFromString("15.125")))
}

func TestService_GetBreakdown(t *testing.T) {
	svc := NewService(seed(t), nil, "", nil)

	order, breakdown, err := svc.Get(context.Background(), "ORD-1")
	require.NoError(t, err)
	require.Equal(t, "Alice", order.CustomerName)
	require.Len(t, breakdown.Lines, 1)
	require.True(t, breakdown.Subtotal.Equal(decimal.NewFromInt(10)))
	require.True(t, breakdown.GSTTotal.Equal(decimal.NewFromInt(1)))
	require.True(t, breakdown.Total.Equal(decimal.NewFromInt(11)))

	_, _, err = svc.Get(context.Background(), "ORD-404")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, _, err = svc.Get(context.Background(), " ")
	require.ErrorIs(t, err, domain.ErrOrderNumberRequired)
}

func TestService_ReceiptQR(t *testing.T) {
	svc := NewService(seed(t), nil, "", nil)

	raw, err := svc.ReceiptQR(context.Background(), "ORD-2", 128)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 128, img.Bounds().Dx())

	_, err = svc.ReceiptQR(context.Background(), "missing", 0)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestService_ReceiptContentAndEncoderError(t *testing.T) {
	enc := &recordingEncoder{err: errors.New("too big")}
	svc := NewService(seed(t), enc, "https://cafe.example/", nil)

	_, err := svc.ReceiptQR(context.Background(), "ORD-1", 5000)
	require.Error(t, err)
	require.Equal(t, "https://cafe.example/ORD-1", enc.content)
	require.Equal(t, maxQRSize, enc.size)
}

func TestClampSize(t *testing.T) {
	require.Equal(t, defaultQRSize, clampSize(0))
	require.Equal(t, minQRSize, clampSize(10))
	require.Equal(t, 300, clampSize(300))
	require.Equal(t, maxQRSize, clampSize(4096))
}

type recordingEncoder struct {
	content string
	size    int
	err     error
}

func (e *recordingEncoder) Encode(content string, size int) ([]byte, error) {
	e.content = content
	e.size = size
	return nil, e.err
}
