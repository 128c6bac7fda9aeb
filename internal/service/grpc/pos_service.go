// Package grpcsvc реализует POSService поверх прикладных сервисов кассы.
package grpcsvc

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	posv1 "github.com/vladislavdragonenkov/cafepos/api/pos/v1"
	"github.com/vladislavdragonenkov/cafepos/internal/domain"
	"github.com/vladislavdragonenkov/cafepos/internal/service/auth"
	"github.com/vladislavdragonenkov/cafepos/internal/service/catalog"
	"github.com/vladislavdragonenkov/cafepos/internal/service/history"
	"github.com/vladislavdragonenkov/cafepos/internal/service/till"
)

const (
	defaultListOrdersLimit = 200
	maxListOrdersLimit     = 1000
)

// Authenticator выдаёт токен по логину и паролю.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (auth.Token, error)
}

// Services — прикладные сервисы, которые обслуживает API.
type Services struct {
	Catalog     *catalog.Service
	Till        *till.Service
	History     *history.Service
	Auth        Authenticator
	Idempotency domain.IdempotencyRepository
}

// POSService — gRPC-фасад кассы.
type POSService struct {
	posv1.UnimplementedPOSServiceServer

	catalog     *catalog.Service
	till        *till.Service
	history     *history.Service
	auth        Authenticator
	idempotency *idempotencyGuard
	logger      *log.Entry
}

// NewPOSService конструирует сервис с зависимостями.
func NewPOSService(services Services, logger *log.Entry) *POSService {
	if logger == nil {
		logger = log.New().WithField("component", "pos-service")
	}
	return &POSService{
		catalog:     services.Catalog,
		till:        services.Till,
		history:     services.History,
		auth:        services.Auth,
		idempotency: newIdempotencyGuard(services.Idempotency, logger),
		logger:      logger,
	}
}

func (s *POSService) Login(ctx context.Context, req *posv1.LoginRequest) (*posv1.LoginResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "authentication is disabled")
	}
	if req == nil || req.Username == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "username and password are required")
	}

	token, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(err, "Login")
	}
	return &posv1.LoginResponse{Token: token.Value, ExpiresAtUnix: token.ExpiresAt.Unix()}, nil
}

// CreateMenuItem добавляет позицию в каталог. Идемпотентен по idempotency-key.
func (s *POSService) CreateMenuItem(ctx context.Context, req *posv1.CreateMenuItemRequest) (*posv1.MenuItemResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	return withIdempotency(s, ctx, posv1.POSService_CreateMenuItem_FullMethodName, req,
		func(ctx context.Context) (*posv1.MenuItemResponse, error) {
			in, err := fromMenuItemInput(req.Item)
			if err != nil {
				return nil, err
			}
			item, err := s.catalog.Create(ctx, in)
			if err != nil {
				return nil, s.toStatus(err, "CreateMenuItem")
			}
			return &posv1.MenuItemResponse{Item: toMenuItem(item)}, nil
		},
	)
}

func (s *POSService) UpdateMenuItem(ctx context.Context, req *posv1.UpdateMenuItemRequest) (*posv1.MenuItemResponse, error) {
	if req == nil || strings.TrimSpace(req.Id) == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	in, err := fromMenuItemInput(req.Item)
	if err != nil {
		return nil, err
	}

	item, err := s.catalog.Update(ctx, req.Id, in)
	if err != nil {
		return nil, s.toStatus(err, "UpdateMenuItem")
	}
	return &posv1.MenuItemResponse{Item: toMenuItem(item)}, nil
}

func (s *POSService) SetMenuItemAvailability(ctx context.Context, req *posv1.SetMenuItemAvailabilityRequest) (*posv1.MenuItemResponse, error) {
	if req == nil || strings.TrimSpace(req.Id) == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	item, err := s.catalog.SetAvailability(ctx, req.Id, req.Available, "")
	if err != nil {
		return nil, s.toStatus(err, "SetMenuItemAvailability")
	}
	return &posv1.MenuItemResponse{Item: toMenuItem(item)}, nil
}

func (s *POSService) DeleteMenuItem(ctx context.Context, req *posv1.DeleteMenuItemRequest) (*posv1.DeleteMenuItemResponse, error) {
	if req == nil || strings.TrimSpace(req.Id) == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	if err := s.catalog.Delete(ctx, req.Id); err != nil {
		return nil, s.toStatus(err, "DeleteMenuItem")
	}
	return &posv1.DeleteMenuItemResponse{Id: req.Id}, nil
}

func (s *POSService) GetMenuItem(ctx context.Context, req *posv1.GetMenuItemRequest) (*posv1.MenuItemResponse, error) {
	if req == nil || strings.TrimSpace(req.Id) == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	item, err := s.catalog.Get(ctx, req.Id)
	if err != nil {
		return nil, s.toStatus(err, "GetMenuItem")
	}
	return &posv1.MenuItemResponse{Item: toMenuItem(item)}, nil
}

// ListMenuItems отдаёт либо витрину кассы, либо весь каталог.
func (s *POSService) ListMenuItems(ctx context.Context, req *posv1.ListMenuItemsRequest) (*posv1.ListMenuItemsResponse, error) {
	var (
		items []domain.MenuItem
		err   error
	)
	if req != nil && req.AvailableOnly {
		items, err = s.catalog.ListAvailable(ctx)
	} else {
		items, err = s.catalog.ListAll(ctx)
	}
	if err != nil {
		return nil, s.toStatus(err, "ListMenuItems")
	}

	out := make([]*posv1.MenuItem, 0, len(items))
	for _, item := range items {
		out = append(out, toMenuItem(item))
	}
	return &posv1.ListMenuItemsResponse{Items: out}, nil
}

func (s *POSService) ListMenuItemAudit(ctx context.Context, req *posv1.ListMenuItemAuditRequest) (*posv1.ListMenuItemAuditResponse, error) {
	if req == nil || strings.TrimSpace(req.Id) == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	events, err := s.catalog.ListAudit(ctx, req.Id)
	if err != nil {
		return nil, s.toStatus(err, "ListMenuItemAudit")
	}
	return &posv1.ListMenuItemAuditResponse{Events: toAuditEvents(events)}, nil
}

func (s *POSService) OpenCart(ctx context.Context, _ *posv1.OpenCartRequest) (*posv1.CartResponse, error) {
	session, err := s.till.Open(ctx)
	if err != nil {
		return nil, s.toStatus(err, "OpenCart")
	}
	return &posv1.CartResponse{Cart: toCart(session)}, nil
}

func (s *POSService) GetCart(ctx context.Context, req *posv1.GetCartRequest) (*posv1.CartResponse, error) {
	if req == nil || strings.TrimSpace(req.CartId) == "" {
		return nil, status.Error(codes.InvalidArgument, "cart_id is required")
	}
	session, err := s.till.Get(ctx, req.CartId)
	return s.cartResponse("GetCart", session, err)
}

func (s *POSService) AddCartItem(ctx context.Context, req *posv1.AddCartItemRequest) (*posv1.CartResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if err := requireCartItem(req.CartId, req.ItemId); err != nil {
		return nil, err
	}
	session, err := s.till.AddItem(ctx, req.CartId, req.ItemId)
	return s.cartResponse("AddCartItem", session, err)
}

func (s *POSService) ChangeCartQuantity(ctx context.Context, req *posv1.ChangeCartQuantityRequest) (*posv1.CartResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if err := requireCartItem(req.CartId, req.ItemId); err != nil {
		return nil, err
	}
	session, err := s.till.ChangeQuantity(ctx, req.CartId, req.ItemId, int(req.Delta))
	return s.cartResponse("ChangeCartQuantity", session, err)
}

func (s *POSService) RemoveCartItem(ctx context.Context, req *posv1.RemoveCartItemRequest) (*posv1.CartResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if err := requireCartItem(req.CartId, req.ItemId); err != nil {
		return nil, err
	}
	session, err := s.till.RemoveItem(ctx, req.CartId, req.ItemId)
	return s.cartResponse("RemoveCartItem", session, err)
}

func (s *POSService) SetCustomer(ctx context.Context, req *posv1.SetCustomerRequest) (*posv1.CartResponse, error) {
	if req == nil || strings.TrimSpace(req.CartId) == "" {
		return nil, status.Error(codes.InvalidArgument, "cart_id is required")
	}
	customer := domain.CustomerInfo{Name: req.Name, Phone: req.Phone}
	session, err := s.till.SetCustomer(ctx, req.CartId, customer)
	return s.cartResponse("SetCustomer", session, err)
}

func (s *POSService) DiscardCart(ctx context.Context, req *posv1.DiscardCartRequest) (*posv1.DiscardCartResponse, error) {
	if req == nil || strings.TrimSpace(req.CartId) == "" {
		return nil, status.Error(codes.InvalidArgument, "cart_id is required")
	}
	if err := s.till.Discard(ctx, req.CartId); err != nil {
		return nil, s.toStatus(err, "DiscardCart")
	}
	return &posv1.DiscardCartResponse{CartId: req.CartId}, nil
}

// Checkout оформляет заказ из корзины. Идемпотентен по idempotency-key.
func (s *POSService) Checkout(ctx context.Context, req *posv1.CheckoutRequest) (*posv1.CheckoutResponse, error) {
	if req == nil || strings.TrimSpace(req.CartId) == "" {
		return nil, status.Error(codes.InvalidArgument, "cart_id is required")
	}

	return withIdempotency(s, ctx, posv1.POSService_Checkout_FullMethodName, req,
		func(ctx context.Context) (*posv1.CheckoutResponse, error) {
			result, err := s.till.Checkout(ctx, req.CartId)
			if err != nil {
				return nil, s.toStatus(err, "Checkout")
			}
			return &posv1.CheckoutResponse{
				Order: toOrder(result.Order),
				Cart:  toCart(result.Session),
			}, nil
		},
	)
}

// ListOrders возвращает последние заказы с фильтром и итогами.
func (s *POSService) ListOrders(ctx context.Context, req *posv1.ListOrdersRequest) (*posv1.ListOrdersResponse, error) {
	if req == nil {
		req = &posv1.ListOrdersRequest{}
	}

	limit := int(req.Limit)
	switch {
	case limit <= 0:
		limit = defaultListOrdersLimit
	case limit > maxListOrdersLimit:
		limit = maxListOrdersLimit
	}

	orders, summary, err := s.history.List(ctx, req.Query, limit)
	if err != nil {
		return nil, s.toStatus(err, "ListOrders")
	}

	out := make([]*posv1.Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrder(order))
	}
	return &posv1.ListOrdersResponse{
		Orders: out,
		Summary: &posv1.HistorySummary{
			Count:   int32(summary.Count), //nolint:gosec // bounded by maxListOrdersLimit.
			Revenue: money(summary.Revenue),
		},
	}, nil
}

func (s *POSService) GetOrder(ctx context.Context, req *posv1.GetOrderRequest) (*posv1.GetOrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderNumber) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_number is required")
	}

	order, breakdown, err := s.history.Get(ctx, req.OrderNumber)
	if err != nil {
		return nil, s.toStatus(err, "GetOrder")
	}
	return &posv1.GetOrderResponse{Order: toOrder(order), Breakdown: toBreakdown(breakdown)}, nil
}

func (s *POSService) GetReceiptQR(ctx context.Context, req *posv1.GetReceiptQRRequest) (*posv1.GetReceiptQRResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderNumber) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_number is required")
	}

	png, err := s.history.ReceiptQR(ctx, req.OrderNumber, int(req.Size))
	if err != nil {
		return nil, s.toStatus(err, "GetReceiptQR")
	}
	return &posv1.GetReceiptQRResponse{OrderNumber: req.OrderNumber, Png: png}, nil
}

func (s *POSService) cartResponse(operation string, session domain.CartSession, err error) (*posv1.CartResponse, error) {
	if err != nil {
		return nil, s.toStatus(err, operation)
	}
	return &posv1.CartResponse{Cart: toCart(session)}, nil
}

func requireCartItem(cartID, itemID string) error {
	if strings.TrimSpace(cartID) == "" {
		return status.Error(codes.InvalidArgument, "cart_id is required")
	}
	if strings.TrimSpace(itemID) == "" {
		return status.Error(codes.InvalidArgument, "item_id is required")
	}
	return nil
}

var _ posv1.POSServiceServer = (*POSService)(nil)
