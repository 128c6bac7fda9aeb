package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	pgUniqueViolation           = "23505"
	pgInvalidTextRepresentation = "22P02"
)

const orderColumns = `order_number, customer_name, customer_phone, total_amount, status, created_at`

// OrderRepository — PostgreSQL-хранилище заказов.
// Дополнительно реализует domain.OrderOutboxWriter.
type OrderRepository interface {
	domain.OrderRepository
	domain.OrderOutboxWriter
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(store *Store) OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	return r.save(ctx, order, nil)
}

// CreateWithOutbox сохраняет заказ и событие outbox одной транзакцией.
func (r *orderRepository) CreateWithOutbox(ctx context.Context, order domain.Order, msg domain.OutboxMessage) (domain.Order, error) {
	return r.save(ctx, order, &msg)
}

func (r *orderRepository) save(ctx context.Context, order domain.Order, msg *domain.OutboxMessage) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := sql.NullTime{Time: order.CreatedAt, Valid: !order.CreatedAt.IsZero()}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW())) RETURNING created_at`,
		order.Number, order.CustomerName, nullIfEmpty(order.CustomerPhone), order.TotalAmount, string(order.Status), createdAt,
	).Scan(&order.CreatedAt)
	switch {
	case hasPgCode(err, pgUniqueViolation):
		return domain.Order{}, domain.ErrOrderNumberConflict
	case err != nil:
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	order.CreatedAt = order.CreatedAt.UTC()

	if err := insertOrderLines(ctx, tx, order); err != nil {
		return domain.Order{}, err
	}
	if msg != nil {
		if err := enqueueOutboxTx(ctx, tx, *msg); err != nil {
			return domain.Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit order %s: %w", order.Number, err)
	}
	return order, nil
}

// insertOrderLines пишет строки заказа; position сохраняет порядок строк в заказе.
func insertOrderLines(ctx context.Context, tx *sql.Tx, order domain.Order) error {
	if len(order.Items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_items (order_number, position, item_id, name, price, gst_percentage, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("prepare order lines: %w", err)
	}
	defer stmt.Close()

	for pos, line := range order.Items {
		if _, err := stmt.ExecContext(ctx, order.Number, pos, line.ItemID, line.Name, line.Price, line.GSTPercentage, line.Quantity); err != nil {
			return fmt.Errorf("insert order line %d: %w", pos, err)
		}
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, number string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Order{}, domain.ErrOrderNotFound
	case err != nil:
		return domain.Order{}, fmt.Errorf("get order %s: %w", number, err)
	}

	orders := []domain.Order{order}
	if err := attachLines(ctx, r.db, orders); err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

// List возвращает заказы от новых к старым; limit <= 0 — без ограничения.
func (r *orderRepository) List(ctx context.Context, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return queryOrders(ctx, r.db, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, order_number DESC LIMIT $1`, limitArg(limit))
}

// orderMatch — поиск подстроки без учёта регистра по номеру, имени и телефону.
const orderMatch = `(order_number ILIKE $1 OR customer_name ILIKE $1 OR customer_phone ILIKE $1)`

// Search ищет заказы по подстроке query. Сводка считается по всем совпадениям,
// limit ограничивает только список. Оба запроса читают один снимок.
func (r *orderRepository) Search(ctx context.Context, query string, limit int) ([]domain.Order, domain.HistorySummary, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, domain.HistorySummary{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pattern := likePattern(query)
	summary := domain.HistorySummary{Revenue: decimal.Zero}
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM orders WHERE `+orderMatch, pattern,
	).Scan(&summary.Count, &summary.Revenue); err != nil {
		return nil, domain.HistorySummary{}, fmt.Errorf("summarize orders: %w", err)
	}

	orders, err := queryOrders(ctx, tx,
		`SELECT `+orderColumns+` FROM orders WHERE `+orderMatch+` ORDER BY created_at DESC, order_number DESC LIMIT $2`,
		pattern, limitArg(limit),
	)
	if err != nil {
		return nil, domain.HistorySummary{}, err
	}
	return orders, summary, nil
}

// likePattern экранирует метасимволы LIKE и оборачивает query в %…%.
func likePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(query))
	return "%" + escaped + "%"
}

// limitArg превращает limit <= 0 в NULL: LIMIT NULL в PostgreSQL — без ограничения.
func limitArg(limit int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryOrders читает заказы и дочитывает их строки одним запросом.
func queryOrders(ctx context.Context, db queryer, query string, args ...any) ([]domain.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	if err := attachLines(ctx, db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachLines дочитывает строки всех заказов одним запросом.
func attachLines(ctx context.Context, db queryer, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[string]int, len(orders))
	numbers := make([]string, len(orders))
	for i, order := range orders {
		index[order.Number] = i
		numbers[i] = order.Number
	}

	rows, err := db.QueryContext(ctx, `
		SELECT order_number, item_id, name, price, gst_percentage, quantity
		FROM order_items
		WHERE order_number = ANY($1)
		ORDER BY order_number, position
	`, numbers)
	if err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			number string
			line   domain.OrderLine
		)
		if err := rows.Scan(&number, &line.ItemID, &line.Name, &line.Price, &line.GSTPercentage, &line.Quantity); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		if i, ok := index[number]; ok {
			orders[i].Items = append(orders[i].Items, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}
	return nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		phone  sql.NullString
		status string
	)
	if err := row.Scan(&order.Number, &order.CustomerName, &phone, &order.TotalAmount, &status, &order.CreatedAt); err != nil {
		return domain.Order{}, err
	}
	order.CustomerPhone = phone.String
	order.Status = domain.OrderStatus(status)
	order.CreatedAt = order.CreatedAt.UTC()
	return order, nil
}

// hasPgCode сообщает, что err — ошибка PostgreSQL с SQLSTATE code.
func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var _ OrderRepository = (*orderRepository)(nil)
