package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository создаёт PostgreSQL-реализацию AuditRepository.
func NewAuditRepository(store *Store) domain.AuditRepository {
	return &auditRepository{db: store.DB()}
}

func (r *auditRepository) Append(ctx context.Context, event domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO menu_item_audit (item_id, type, reason, occurred)
		VALUES ($1,$2,$3,$4)
	`, event.ItemID, string(event.Type), event.Reason, event.Occurred); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}

	return nil
}

func (r *auditRepository) List(ctx context.Context, itemID string) ([]domain.AuditEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, type, reason, occurred
		FROM menu_item_audit
		WHERE item_id = $1
		ORDER BY occurred ASC, id ASC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.AuditEvent, 0)
	for rows.Next() {
		var (
			event     domain.AuditEvent
			eventType string
		)
		if err := rows.Scan(&event.ItemID, &eventType, &event.Reason, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Type = domain.AuditEventType(eventType)
		event.Occurred = event.Occurred.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

var _ domain.AuditRepository = (*auditRepository)(nil)
