package repo

import (
	"context"
	"time"

	"github.com/crucial707/cashcard/internal/models"
	"github.com/jmoiron/sqlx"
)

// AuditRepo persists audit log entries for cash card mutations.
type AuditRepo struct {
	db *sqlx.DB
}

// NewAuditRepo returns a new AuditRepo.
func NewAuditRepo(db *sqlx.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Log records an audit entry. action is one of models.AuditCreate, AuditUpdate, AuditDelete.
func (r *AuditRepo) Log(ctx context.Context, owner, action string, cardID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (owner, action, card_id) VALUES ($1, $2, $3)`,
		owner, action, cardID,
	)
	return err
}

// PurgeBefore deletes entries created before cutoff and returns how many were removed.
func (r *AuditRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByOwner returns owner's entries, newest first.
func (r *AuditRepo) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]models.AuditEntry, error) {
	entries := []models.AuditEntry{}
	err := r.db.SelectContext(ctx, &entries,
		`SELECT id, owner, action, card_id, created_at FROM audit_log
		 WHERE owner = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		owner, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
