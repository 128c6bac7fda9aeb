package grpcsvc

import (
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	posv1 "github.com/vladislavdragonenkov/cafepos/api/pos/v1"
	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

func money(d decimal.Decimal) string {
	return d.String()
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, status.Errorf(codes.InvalidArgument, "%s must be a decimal number", field)
	}
	return d, nil
}

func fromMenuItemInput(in *posv1.MenuItemInput) (domain.MenuItemInput, error) {
	if in == nil {
		return domain.MenuItemInput{}, status.Error(codes.InvalidArgument, "item is required")
	}

	price, err := parseDecimal("item.price", in.Price)
	if err != nil {
		return domain.MenuItemInput{}, err
	}

	out := domain.MenuItemInput{
		Name:      in.Name,
		Price:     price,
		Category:  in.Category,
		Available: in.Available,
	}
	if strings.TrimSpace(in.GstPercentage) != "" {
		gst, err := parseDecimal("item.gst_percentage", in.GstPercentage)
		if err != nil {
			return domain.MenuItemInput{}, err
		}
		out.GSTPercentage = &gst
	}
	return out, nil
}

func toMenuItem(item domain.MenuItem) *posv1.MenuItem {
	return &posv1.MenuItem{
		Id:            item.ID,
		Name:          item.Name,
		Price:         money(item.Price),
		GstPercentage: money(item.GSTPercentage),
		Category:      item.Category,
		Available:     item.Available,
		CreatedAtUnix: item.CreatedAt.Unix(),
		UpdatedAtUnix: item.UpdatedAt.Unix(),
	}
}

func toCart(session domain.CartSession) *posv1.Cart {
	lines := session.Cart.Lines()
	out := &posv1.Cart{
		Id:            session.ID,
		Lines:         make([]*posv1.CartLine, 0, len(lines)),
		CustomerName:  session.Customer.Name,
		CustomerPhone: session.Customer.Phone,
		Subtotal:      money(session.Cart.Subtotal()),
		TaxTotal:      money(session.Cart.TaxTotal()),
		GrandTotal:    money(session.Cart.GrandTotal()),
		Version:       session.Version,
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, &posv1.CartLine{
			ItemId:        l.Item.ID,
			Name:          l.Item.Name,
			Price:         money(l.Item.Price),
			GstPercentage: money(l.Item.GSTPercentage),
			Quantity:      int32(l.Quantity), //nolint:gosec // quantity is bounded by cart operations.
			LineTotal:     money(l.LineTotal()),
			LineGst:       money(l.LineTax()),
		})
	}
	return out
}

func toOrder(order domain.Order) *posv1.Order {
	items := make([]*posv1.OrderLine, 0, len(order.Items))
	for _, l := range order.Items {
		items = append(items, &posv1.OrderLine{
			ItemId:        l.ItemID,
			Name:          l.Name,
			Price:         money(l.Price),
			GstPercentage: money(l.GSTPercentage),
			Quantity:      int32(l.Quantity), //nolint:gosec // quantity is bounded by cart operations.
			LineTotal:     money(l.LineTotal()),
			LineGst:       money(l.LineTax()),
		})
	}

	return &posv1.Order{
		OrderNumber:   order.Number,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Items:         items,
		TotalAmount:   money(order.TotalAmount),
		Status:        string(order.Status),
		CreatedAtUnix: order.CreatedAt.Unix(),
	}
}

func toBreakdown(b domain.OrderBreakdown) *posv1.OrderBreakdown {
	return &posv1.OrderBreakdown{
		Subtotal: money(b.Subtotal),
		GstTotal: money(b.GSTTotal),
		Total:    money(b.Total),
	}
}

func toAuditEvents(events []domain.AuditEvent) []*posv1.AuditEvent {
	out := make([]*posv1.AuditEvent, 0, len(events))
	for _, e := range events {
		out = append(out, &posv1.AuditEvent{
			Type:         string(e.Type),
			Reason:       e.Reason,
			OccurredUnix: e.Occurred.Unix(),
		})
	}
	return out
}
