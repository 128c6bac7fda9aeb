// Package history отдаёт оформленные заказы: поиск, итоги и чек.
package history

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

// ReceiptEncoder кодирует содержимое чека в PNG.
type ReceiptEncoder interface {
	Encode(content string, size int) ([]byte, error)
}

// QREncoder — ReceiptEncoder на go-qrcode.
type QREncoder struct{}

func (QREncoder) Encode(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, size)
}

// Service — чтение истории заказов.
type Service struct {
	orders  domain.OrderRepository
	encoder ReceiptEncoder
	// baseURL, если задан, превращает QR чека в ссылку на заказ.
	baseURL string
	logger  *log.Entry
}

// NewService создаёт сервис истории. encoder nil означает QREncoder.
func NewService(orders domain.OrderRepository, encoder ReceiptEncoder, receiptBaseURL string, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "history")
	}
	if encoder == nil {
		encoder = QREncoder{}
	}
	return &Service{
		orders:  orders,
		encoder: encoder,
		baseURL: strings.TrimRight(receiptBaseURL, "/"),
		logger:  logger,
	}
}

// List ищет по всей истории и возвращает до limit самых новых совпадений.
// Итоги считаются по всем совпадениям, а не только по возвращённым.
func (s *Service) List(ctx context.Context, query string, limit int) ([]domain.Order, domain.HistorySummary, error) {
	orders, summary, err := s.orders.Search(ctx, query, limit)
	if err != nil {
		return nil, domain.HistorySummary{}, fmt.Errorf("search orders: %w", err)
	}
	return orders, summary, nil
}

// Get возвращает заказ и разбивку сумм по строкам.
func (s *Service) Get(ctx context.Context, number string) (domain.Order, domain.OrderBreakdown, error) {
	if strings.TrimSpace(number) == "" {
		return domain.Order{}, domain.OrderBreakdown{}, domain.ErrOrderNumberRequired
	}
	order, err := s.orders.Get(ctx, number)
	if err != nil {
		return domain.Order{}, domain.OrderBreakdown{}, err
	}
	return order, domain.Breakdown(order), nil
}

// ReceiptQR возвращает PNG с QR-кодом номера заказа. size приводится к [64, 1024].
func (s *Service) ReceiptQR(ctx context.Context, number string, size int) ([]byte, error) {
	order, _, err := s.Get(ctx, number)
	if err != nil {
		return nil, err
	}

	png, err := s.encoder.Encode(s.receiptContent(order), clampSize(size))
	if err != nil {
		s.logger.WithError(err).WithField("order_number", order.Number).Warn("failed to encode receipt qr")
		return nil, fmt.Errorf("encode receipt qr: %w", err)
	}
	return png, nil
}

func (s *Service) receiptContent(order domain.Order) string {
	if s.baseURL == "" {
		return order.Number
	}
	return s.baseURL + "/" + order.Number
}

func clampSize(size int) int {
	switch {
	case size <= 0:
		return defaultQRSize
	case size < minQRSize:
		return minQRSize
	case size > maxQRSize:
		return maxQRSize
	default:
		return size
	}
}
