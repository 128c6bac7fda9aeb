package posv1

// Денежные суммы передаются строками в десятичной записи без округления.
// Округление до двух знаков остаётся за клиентом.

// LoginRequest — учётные данные администратора.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse содержит bearer-токен.
type LoginResponse struct {
	Token         string `json:"token"`
	ExpiresAtUnix int64  `json:"expires_at_unix"`
}

// MenuItem — позиция каталога.
type MenuItem struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	GstPercentage string `json:"gst_percentage"`
	Category      string `json:"category,omitempty"`
	Available     bool   `json:"available"`
	CreatedAtUnix int64  `json:"created_at_unix"`
	UpdatedAtUnix int64  `json:"updated_at_unix"`
}

// MenuItemInput — поля формы позиции. Пустой GstPercentage означает 0.
type MenuItemInput struct {
	Name          string `json:"name"`
	Price         string `json:"price"`
	GstPercentage string `json:"gst_percentage,omitempty"`
	Category      string `json:"category,omitempty"`
	Available     bool   `json:"available"`
}

type CreateMenuItemRequest struct {
	Item *MenuItemInput `json:"item"`
}

type UpdateMenuItemRequest struct {
	Id   string         `json:"id"`
	Item *MenuItemInput `json:"item"`
}

type SetMenuItemAvailabilityRequest struct {
	Id        string `json:"id"`
	Available bool   `json:"available"`
}

type GetMenuItemRequest struct {
	Id string `json:"id"`
}

type DeleteMenuItemRequest struct {
	Id string `json:"id"`
}

type DeleteMenuItemResponse struct {
	Id string `json:"id"`
}

type MenuItemResponse struct {
	Item *MenuItem `json:"item"`
}

// ListMenuItemsRequest: AvailableOnly отдаёт витрину кассы (по алфавиту),
// иначе весь каталог, новые первыми.
type ListMenuItemsRequest struct {
	AvailableOnly bool `json:"available_only"`
}

type ListMenuItemsResponse struct {
	Items []*MenuItem `json:"items"`
}

type AuditEvent struct {
	Type         string `json:"type"`
	Reason       string `json:"reason,omitempty"`
	OccurredUnix int64  `json:"occurred_unix"`
}

type ListMenuItemAuditRequest struct {
	Id string `json:"id"`
}

type ListMenuItemAuditResponse struct {
	Events []*AuditEvent `json:"events"`
}

// CartLine — строка корзины с посчитанными суммами.
type CartLine struct {
	ItemId        string `json:"item_id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	GstPercentage string `json:"gst_percentage"`
	Quantity      int32  `json:"quantity"`
	LineTotal     string `json:"line_total"`
	LineGst       string `json:"line_gst"`
}

// Cart — состояние сессии кассы.
type Cart struct {
	Id            string      `json:"id"`
	Lines         []*CartLine `json:"lines"`
	CustomerName  string      `json:"customer_name,omitempty"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	Subtotal      string      `json:"subtotal"`
	TaxTotal      string      `json:"tax_total"`
	GrandTotal    string      `json:"grand_total"`
	Version       int64       `json:"version"`
}

type OpenCartRequest struct{}

type GetCartRequest struct {
	CartId string `json:"cart_id"`
}

type AddCartItemRequest struct {
	CartId string `json:"cart_id"`
	ItemId string `json:"item_id"`
}

type ChangeCartQuantityRequest struct {
	CartId string `json:"cart_id"`
	ItemId string `json:"item_id"`
	Delta  int32  `json:"delta"`
}

type RemoveCartItemRequest struct {
	CartId string `json:"cart_id"`
	ItemId string `json:"item_id"`
}

type SetCustomerRequest struct {
	CartId string `json:"cart_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
}

type DiscardCartRequest struct {
	CartId string `json:"cart_id"`
}

type DiscardCartResponse struct {
	CartId string `json:"cart_id"`
}

type CartResponse struct {
	Cart *Cart `json:"cart"`
}

type CheckoutRequest struct {
	CartId string `json:"cart_id"`
}

type CheckoutResponse struct {
	Order *Order `json:"order"`
	Cart  *Cart  `json:"cart"`
}

// OrderLine — снимок строки заказа.
type OrderLine struct {
	ItemId        string `json:"item_id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	GstPercentage string `json:"gst_percentage"`
	Quantity      int32  `json:"quantity"`
	LineTotal     string `json:"line_total"`
	LineGst       string `json:"line_gst"`
}

// Order — оформленный заказ.
type Order struct {
	OrderNumber   string       `json:"order_number"`
	CustomerName  string       `json:"customer_name"`
	CustomerPhone string       `json:"customer_phone,omitempty"`
	Items         []*OrderLine `json:"items"`
	TotalAmount   string       `json:"total_amount"`
	Status        string       `json:"status"`
	CreatedAtUnix int64        `json:"created_at_unix"`
}

type OrderBreakdown struct {
	Subtotal string `json:"subtotal"`
	GstTotal string `json:"gst_total"`
	Total    string `json:"total"`
}

type ListOrdersRequest struct {
	Query string `json:"query,omitempty"`
	Limit int32  `json:"limit,omitempty"`
}

type HistorySummary struct {
	Count   int32  `json:"count"`
	Revenue string `json:"revenue"`
}

type ListOrdersResponse struct {
	Orders  []*Order        `json:"orders"`
	Summary *HistorySummary `json:"summary"`
}

type GetOrderRequest struct {
	OrderNumber string `json:"order_number"`
}

type GetOrderResponse struct {
	Order     *Order          `json:"order"`
	Breakdown *OrderBreakdown `json:"breakdown"`
}

type GetReceiptQRRequest struct {
	OrderNumber string `json:"order_number"`
	Size        int32  `json:"size,omitempty"`
}

type GetReceiptQRResponse struct {
	OrderNumber string `json:"order_number"`
	Png         []byte `json:"png"`
}
