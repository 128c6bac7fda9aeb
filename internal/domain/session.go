package domain

import "time"

// CustomerInfo — данные клиента, которые кассир вводит перед оформлением.
type CustomerInfo struct {
	Name  string
	Phone string
}

// CartSession — незавершённый заказ на кассе.
// Version растёт на каждой записи и используется для optimistic locking.
type CartSession struct {
	ID       string
	Cart     Cart
	Customer CustomerInfo
	// PendingOrder — номер, зарезервированный начатым оформлением.
	// Повторное оформление той же сессии использует его же.
	PendingOrder string
	Version      int64
	UpdatedAt    time.Time
}

// Reset возвращает сессию в исходное состояние после успешного оформления.
func (s CartSession) Reset() CartSession {
	s.Cart = Cart{}
	s.Customer = CustomerInfo{}
	s.PendingOrder = ""
	return s
}
