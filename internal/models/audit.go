package models

import "time"

// Audit actions recorded for cash card mutations.
const (
	AuditCreate = "create"
	AuditUpdate = "update"
	AuditDelete = "delete"
)

// AuditEntry represents one audit log row.
type AuditEntry struct {
	ID        int64     `db:"id" json:"id"`
	Owner     string    `db:"owner" json:"owner"`
	Action    string    `db:"action" json:"action"`
	CardID    int64     `db:"card_id" json:"card_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
