package posv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName — полное имя gRPC-сервиса кассы.
const ServiceName = "cafepos.v1.POSService"

// Полные имена методов, используются интерсепторами и idempotency.
const (
	POSService_Login_FullMethodName                   = "/" + ServiceName + "/Login"
	POSService_CreateMenuItem_FullMethodName          = "/" + ServiceName + "/CreateMenuItem"
	POSService_UpdateMenuItem_FullMethodName          = "/" + ServiceName + "/UpdateMenuItem"
	POSService_SetMenuItemAvailability_FullMethodName = "/" + ServiceName + "/SetMenuItemAvailability"
	POSService_DeleteMenuItem_FullMethodName          = "/" + ServiceName + "/DeleteMenuItem"
	POSService_GetMenuItem_FullMethodName             = "/" + ServiceName + "/GetMenuItem"
	POSService_ListMenuItems_FullMethodName           = "/" + ServiceName + "/ListMenuItems"
	POSService_ListMenuItemAudit_FullMethodName       = "/" + ServiceName + "/ListMenuItemAudit"
	POSService_OpenCart_FullMethodName                = "/" + ServiceName + "/OpenCart"
	POSService_GetCart_FullMethodName                 = "/" + ServiceName + "/GetCart"
	POSService_AddCartItem_FullMethodName             = "/" + ServiceName + "/AddCartItem"
	POSService_ChangeCartQuantity_FullMethodName      = "/" + ServiceName + "/ChangeCartQuantity"
	POSService_RemoveCartItem_FullMethodName          = "/" + ServiceName + "/RemoveCartItem"
	POSService_SetCustomer_FullMethodName             = "/" + ServiceName + "/SetCustomer"
	POSService_DiscardCart_FullMethodName             = "/" + ServiceName + "/DiscardCart"
	POSService_Checkout_FullMethodName                = "/" + ServiceName + "/Checkout"
	POSService_ListOrders_FullMethodName              = "/" + ServiceName + "/ListOrders"
	POSService_GetOrder_FullMethodName                = "/" + ServiceName + "/GetOrder"
	POSService_GetReceiptQR_FullMethodName            = "/" + ServiceName + "/GetReceiptQR"
)

// POSServiceServer — серверная часть API кассы.
type POSServiceServer interface {
	// Login — вход администратора, единственный метод без токена.
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	CreateMenuItem(context.Context, *CreateMenuItemRequest) (*MenuItemResponse, error)
	UpdateMenuItem(context.Context, *UpdateMenuItemRequest) (*MenuItemResponse, error)
	SetMenuItemAvailability(context.Context, *SetMenuItemAvailabilityRequest) (*MenuItemResponse, error)
	DeleteMenuItem(context.Context, *DeleteMenuItemRequest) (*DeleteMenuItemResponse, error)
	GetMenuItem(context.Context, *GetMenuItemRequest) (*MenuItemResponse, error)
	ListMenuItems(context.Context, *ListMenuItemsRequest) (*ListMenuItemsResponse, error)
	ListMenuItemAudit(context.Context, *ListMenuItemAuditRequest) (*ListMenuItemAuditResponse, error)
	OpenCart(context.Context, *OpenCartRequest) (*CartResponse, error)
	GetCart(context.Context, *GetCartRequest) (*CartResponse, error)
	AddCartItem(context.Context, *AddCartItemRequest) (*CartResponse, error)
	ChangeCartQuantity(context.Context, *ChangeCartQuantityRequest) (*CartResponse, error)
	RemoveCartItem(context.Context, *RemoveCartItemRequest) (*CartResponse, error)
	SetCustomer(context.Context, *SetCustomerRequest) (*CartResponse, error)
	DiscardCart(context.Context, *DiscardCartRequest) (*DiscardCartResponse, error)
	Checkout(context.Context, *CheckoutRequest) (*CheckoutResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*GetOrderResponse, error)
	GetReceiptQR(context.Context, *GetReceiptQRRequest) (*GetReceiptQRResponse, error)
	mustEmbedUnimplementedPOSServiceServer()
}

// UnimplementedPOSServiceServer возвращает codes.Unimplemented для всех методов.
// Встраивается по значению.
type UnimplementedPOSServiceServer struct{}

func (UnimplementedPOSServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}

func (UnimplementedPOSServiceServer) CreateMenuItem(context.Context, *CreateMenuItemRequest) (*MenuItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateMenuItem not implemented")
}

func (UnimplementedPOSServiceServer) UpdateMenuItem(context.Context, *UpdateMenuItemRequest) (*MenuItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateMenuItem not implemented")
}

func (UnimplementedPOSServiceServer) SetMenuItemAvailability(context.Context, *SetMenuItemAvailabilityRequest) (*MenuItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetMenuItemAvailability not implemented")
}

func (UnimplementedPOSServiceServer) DeleteMenuItem(context.Context, *DeleteMenuItemRequest) (*DeleteMenuItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteMenuItem not implemented")
}

func (UnimplementedPOSServiceServer) GetMenuItem(context.Context, *GetMenuItemRequest) (*MenuItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMenuItem not implemented")
}

func (UnimplementedPOSServiceServer) ListMenuItems(context.Context, *ListMenuItemsRequest) (*ListMenuItemsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListMenuItems not implemented")
}

func (UnimplementedPOSServiceServer) ListMenuItemAudit(context.Context, *ListMenuItemAuditRequest) (*ListMenuItemAuditResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListMenuItemAudit not implemented")
}

func (UnimplementedPOSServiceServer) OpenCart(context.Context, *OpenCartRequest) (*CartResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method OpenCart not implemented")
}

func (UnimplementedPOSServiceServer) GetCart(context.Context, *GetCartRequest) (*CartResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCart not implemented")
}

func (UnimplementedPOSServiceServer) AddCartItem(context.Context, *AddCartItemRequest) (*CartResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddCartItem not implemented")
}

func (UnimplementedPOSServiceServer) ChangeCartQuantity(context.Context, *ChangeCartQuantityRequest) (*CartResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ChangeCartQuantity not implemented")
}

func (UnimplementedPOSServiceServer) RemoveCartItem(context.Context, *RemoveCartItemRequest) (*CartResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveCartItem not implemented")
}

func (UnimplementedPOSServiceServer) SetCustomer(context.Context, *SetCustomerRequest) (*CartResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetCustomer not implemented")
}

func (UnimplementedPOSServiceServer) DiscardCart(context.Context, *DiscardCartRequest) (*DiscardCartResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DiscardCart not implemented")
}

func (UnimplementedPOSServiceServer) Checkout(context.Context, *CheckoutRequest) (*CheckoutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Checkout not implemented")
}

func (UnimplementedPOSServiceServer) ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListOrders not implemented")
}

func (UnimplementedPOSServiceServer) GetOrder(context.Context, *GetOrderRequest) (*GetOrderResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOrder not implemented")
}

func (UnimplementedPOSServiceServer) GetReceiptQR(context.Context, *GetReceiptQRRequest) (*GetReceiptQRResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetReceiptQR not implemented")
}

func (UnimplementedPOSServiceServer) mustEmbedUnimplementedPOSServiceServer() {}

// RegisterPOSServiceServer регистрирует реализацию на gRPC-сервере.
func RegisterPOSServiceServer(s grpc.ServiceRegistrar, srv POSServiceServer) {
	s.RegisterService(&POSService_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(POSServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(POSServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(POSServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// POSService_ServiceDesc описывает сервис для grpc.Server.
var POSService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*POSServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Login",
			Handler:    unaryHandler(POSService_Login_FullMethodName, POSServiceServer.Login),
		},
		{
			MethodName: "CreateMenuItem",
			Handler:    unaryHandler(POSService_CreateMenuItem_FullMethodName, POSServiceServer.CreateMenuItem),
		},
		{
			MethodName: "UpdateMenuItem",
			Handler:    unaryHandler(POSService_UpdateMenuItem_FullMethodName, POSServiceServer.UpdateMenuItem),
		},
		{
			MethodName: "SetMenuItemAvailability",
			Handler:    unaryHandler(POSService_SetMenuItemAvailability_FullMethodName, POSServiceServer.SetMenuItemAvailability),
		},
		{
			MethodName: "DeleteMenuItem",
			Handler:    unaryHandler(POSService_DeleteMenuItem_FullMethodName, POSServiceServer.DeleteMenuItem),
		},
		{
			MethodName: "GetMenuItem",
			Handler:    unaryHandler(POSService_GetMenuItem_FullMethodName, POSServiceServer.GetMenuItem),
		},
		{
			MethodName: "ListMenuItems",
			Handler:    unaryHandler(POSService_ListMenuItems_FullMethodName, POSServiceServer.ListMenuItems),
		},
		{
			MethodName: "ListMenuItemAudit",
			Handler:    unaryHandler(POSService_ListMenuItemAudit_FullMethodName, POSServiceServer.ListMenuItemAudit),
		},
		{
			MethodName: "OpenCart",
			Handler:    unaryHandler(POSService_OpenCart_FullMethodName, POSServiceServer.OpenCart),
		},
		{
			MethodName: "GetCart",
			Handler:    unaryHandler(POSService_GetCart_FullMethodName, POSServiceServer.GetCart),
		},
		{
			MethodName: "AddCartItem",
			Handler:    unaryHandler(POSService_AddCartItem_FullMethodName, POSServiceServer.AddCartItem),
		},
		{
			MethodName: "ChangeCartQuantity",
			Handler:    unaryHandler(POSService_ChangeCartQuantity_FullMethodName, POSServiceServer.ChangeCartQuantity),
		},
		{
			MethodName: "RemoveCartItem",
			Handler:    unaryHandler(POSService_RemoveCartItem_FullMethodName, POSServiceServer.RemoveCartItem),
		},
		{
			MethodName: "SetCustomer",
			Handler:    unaryHandler(POSService_SetCustomer_FullMethodName, POSServiceServer.SetCustomer),
		},
		{
			MethodName: "DiscardCart",
			Handler:    unaryHandler(POSService_DiscardCart_FullMethodName, POSServiceServer.DiscardCart),
		},
		{
			MethodName: "Checkout",
			Handler:    unaryHandler(POSService_Checkout_FullMethodName, POSServiceServer.Checkout),
		},
		{
			MethodName: "ListOrders",
			Handler:    unaryHandler(POSService_ListOrders_FullMethodName, POSServiceServer.ListOrders),
		},
		{
			MethodName: "GetOrder",
			Handler:    unaryHandler(POSService_GetOrder_FullMethodName, POSServiceServer.GetOrder),
		},
		{
			MethodName: "GetReceiptQR",
			Handler:    unaryHandler(POSService_GetReceiptQR_FullMethodName, POSServiceServer.GetReceiptQR),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cafepos/v1/pos.json",
}

// POSServiceClient — клиентская часть API кассы.
type POSServiceClient interface {
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	CreateMenuItem(ctx context.Context, in *CreateMenuItemRequest, opts ...grpc.CallOption) (*MenuItemResponse, error)
	UpdateMenuItem(ctx context.Context, in *UpdateMenuItemRequest, opts ...grpc.CallOption) (*MenuItemResponse, error)
	SetMenuItemAvailability(ctx context.Context, in *SetMenuItemAvailabilityRequest, opts ...grpc.CallOption) (*MenuItemResponse, error)
	DeleteMenuItem(ctx context.Context, in *DeleteMenuItemRequest, opts ...grpc.CallOption) (*DeleteMenuItemResponse, error)
	GetMenuItem(ctx context.Context, in *GetMenuItemRequest, opts ...grpc.CallOption) (*MenuItemResponse, error)
	ListMenuItems(ctx context.Context, in *ListMenuItemsRequest, opts ...grpc.CallOption) (*ListMenuItemsResponse, error)
	ListMenuItemAudit(ctx context.Context, in *ListMenuItemAuditRequest, opts ...grpc.CallOption) (*ListMenuItemAuditResponse, error)
	OpenCart(ctx context.Context, in *OpenCartRequest, opts ...grpc.CallOption) (*CartResponse, error)
	GetCart(ctx context.Context, in *GetCartRequest, opts ...grpc.CallOption) (*CartResponse, error)
	AddCartItem(ctx context.Context, in *AddCartItemRequest, opts ...grpc.CallOption) (*CartResponse, error)
	ChangeCartQuantity(ctx context.Context, in *ChangeCartQuantityRequest, opts ...grpc.CallOption) (*CartResponse, error)
	RemoveCartItem(ctx context.Context, in *RemoveCartItemRequest, opts ...grpc.CallOption) (*CartResponse, error)
	SetCustomer(ctx context.Context, in *SetCustomerRequest, opts ...grpc.CallOption) (*CartResponse, error)
	DiscardCart(ctx context.Context, in *DiscardCartRequest, opts ...grpc.CallOption) (*DiscardCartResponse, error)
	Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutResponse, error)
	ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error)
	GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*GetOrderResponse, error)
	GetReceiptQR(ctx context.Context, in *GetReceiptQRRequest, opts ...grpc.CallOption) (*GetReceiptQRResponse, error)
}

type posServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPOSServiceClient создаёт клиента; JSON-кодек подставляется автоматически.
func NewPOSServiceClient(cc grpc.ClientConnInterface) POSServiceClient {
	return &posServiceClient{cc: cc}
}

func (c *posServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *posServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	out := new(LoginResponse)
	if err := c.invoke(ctx, POSService_Login_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) CreateMenuItem(ctx context.Context, in *CreateMenuItemRequest, opts ...grpc.CallOption) (*MenuItemResponse, error) {
	out := new(MenuItemResponse)
	if err := c.invoke(ctx, POSService_CreateMenuItem_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) UpdateMenuItem(ctx context.Context, in *UpdateMenuItemRequest, opts ...grpc.CallOption) (*MenuItemResponse, error) {
	out := new(MenuItemResponse)
	if err := c.invoke(ctx, POSService_UpdateMenuItem_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) SetMenuItemAvailability(ctx context.Context, in *SetMenuItemAvailabilityRequest, opts ...grpc.CallOption) (*MenuItemResponse, error) {
	out := new(MenuItemResponse)
	if err := c.invoke(ctx, POSService_SetMenuItemAvailability_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) DeleteMenuItem(ctx context.Context, in *DeleteMenuItemRequest, opts ...grpc.CallOption) (*DeleteMenuItemResponse, error) {
	out := new(DeleteMenuItemResponse)
	if err := c.invoke(ctx, POSService_DeleteMenuItem_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) GetMenuItem(ctx context.Context, in *GetMenuItemRequest, opts ...grpc.CallOption) (*MenuItemResponse, error) {
	out := new(MenuItemResponse)
	if err := c.invoke(ctx, POSService_GetMenuItem_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) ListMenuItems(ctx context.Context, in *ListMenuItemsRequest, opts ...grpc.CallOption) (*ListMenuItemsResponse, error) {
	out := new(ListMenuItemsResponse)
	if err := c.invoke(ctx, POSService_ListMenuItems_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) ListMenuItemAudit(ctx context.Context, in *ListMenuItemAuditRequest, opts ...grpc.CallOption) (*ListMenuItemAuditResponse, error) {
	out := new(ListMenuItemAuditResponse)
	if err := c.invoke(ctx, POSService_ListMenuItemAudit_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) OpenCart(ctx context.Context, in *OpenCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	if err := c.invoke(ctx, POSService_OpenCart_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) GetCart(ctx context.Context, in *GetCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	if err := c.invoke(ctx, POSService_GetCart_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) AddCartItem(ctx context.Context, in *AddCartItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	if err := c.invoke(ctx, POSService_AddCartItem_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) ChangeCartQuantity(ctx context.Context, in *ChangeCartQuantityRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	if err := c.invoke(ctx, POSService_ChangeCartQuantity_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) RemoveCartItem(ctx context.Context, in *RemoveCartItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	if err := c.invoke(ctx, POSService_RemoveCartItem_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) SetCustomer(ctx context.Context, in *SetCustomerRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	if err := c.invoke(ctx, POSService_SetCustomer_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) DiscardCart(ctx context.Context, in *DiscardCartRequest, opts ...grpc.CallOption) (*DiscardCartResponse, error) {
	out := new(DiscardCartResponse)
	if err := c.invoke(ctx, POSService_DiscardCart_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutResponse, error) {
	out := new(CheckoutResponse)
	if err := c.invoke(ctx, POSService_Checkout_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	out := new(ListOrdersResponse)
	if err := c.invoke(ctx, POSService_ListOrders_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*GetOrderResponse, error) {
	out := new(GetOrderResponse)
	if err := c.invoke(ctx, POSService_GetOrder_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *posServiceClient) GetReceiptQR(ctx context.Context, in *GetReceiptQRRequest, opts ...grpc.CallOption) (*GetReceiptQRResponse, error) {
	out := new(GetReceiptQRResponse)
	if err := c.invoke(ctx, POSService_GetReceiptQR_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
