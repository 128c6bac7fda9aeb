package domain

import "time"

// AuditEventType — тип изменения каталога.
type AuditEventType string

const (
	AuditItemCreated  AuditEventType = "item.created"
	AuditItemUpdated  AuditEventType = "item.updated"
	AuditItemEnabled  AuditEventType = "item.enabled"
	AuditItemDisabled AuditEventType = "item.disabled"
	AuditItemDeleted  AuditEventType = "item.deleted"
)

// AuditEvent описывает изменение позиции меню.
type AuditEvent struct {
	ItemID   string
	Type     AuditEventType
	Reason   string
	Occurred time.Time
}
