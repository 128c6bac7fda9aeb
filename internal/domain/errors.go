package domain

import "errors"

var (
	// ErrEmptyCart возвращается при попытке оформить заказ с пустой корзиной.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrMissingCustomerName возвращается, если имя клиента не заполнено.
	ErrMissingCustomerName = errors.New("customer name is required")

	// Ошибка пустого названия позиции меню.
	ErrMenuItemNameRequired = errors.New("menu item name is required")
	// ErrInvalidPrice — цена позиции должна быть строго больше нуля.
	ErrInvalidPrice = errors.New("price must be greater than 0")
	// ErrInvalidTaxPercentage — GST должен лежать в диапазоне [0, 100].
	ErrInvalidTaxPercentage = errors.New("gst percentage must be between 0 and 100")
	// ErrMenuItemNotFound возвращается, если позиции с таким ID нет в каталоге.
	ErrMenuItemNotFound = errors.New("menu item not found")
	// ErrMenuItemUnavailable — позиция выключена и не может попасть в корзину.
	ErrMenuItemUnavailable = errors.New("menu item is not available")

	// ErrCartNotFound возвращается, если сессии кассы с таким ID нет.
	ErrCartNotFound = errors.New("cart session not found")
	// ErrCartVersionConflict сигнализирует о конкурентном изменении сессии.
	ErrCartVersionConflict = errors.New("cart session version conflict")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNumberRequired — у заказа нет номера.
	ErrOrderNumberRequired = errors.New("order number is required")
	// ErrItemQtyInvalid — количество в строке заказа должно быть положительным.
	ErrItemQtyInvalid = errors.New("item quantity must be positive")
	// ErrAmountMismatch — итог заказа не совпадает с суммой строк.
	ErrAmountMismatch = errors.New("order total does not match lines")
	// ErrOrderNumberConflict — номер заказа уже занят.
	ErrOrderNumberConflict = errors.New("order number already exists")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrOutboxMessageNotFound — отметка статуса для неизвестного сообщения.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")

	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key reused with different request")

	// ErrInvalidCredentials — неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated — токен отсутствует, просрочен или подделан.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// IsCheckoutValidation сообщает, что ошибка исправляется пользователем на кассе.
func IsCheckoutValidation(err error) bool {
	return errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrMissingCustomerName)
}

// IsMenuItemValidation сообщает, что запись позиции меню отклонена валидацией.
func IsMenuItemValidation(err error) bool {
	return errors.Is(err, ErrMenuItemNameRequired) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidTaxPercentage)
}

// IsIdempotencyConflict проверяет конфликт по ключу идемпотентности.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}
