package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"biglietto/internal/domain"
)

type deliveryRecordRepository struct {
	DB *sql.DB
}

// NewDeliveryRecordRepository returns the DeliveryLedger backed by Postgres.
// Correctness rests on the unique (recipient_key, scope) index, not on any
// in-process locking, so concurrent callers are safe by construction.
func NewDeliveryRecordRepository(db *sql.DB) domain.DeliveryLedger {
	return &deliveryRecordRepository{DB: db}
}

func (r *deliveryRecordRepository) TryReserve(ctx context.Context, recipientKey, scope string) error {
	now := time.Now()
	insert := `
		INSERT INTO delivery_records (recipient_key, scope, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	_, err := r.DB.ExecContext(ctx, insert, recipientKey, scope, domain.DeliveryRecordPending, now)
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}

	// A record exists. A failed one is revived for another attempt; the
	// status guard in the WHERE clause lets exactly one reviver win.
	revive := `
		UPDATE delivery_records
		SET status = $1, updated_at = $2
		WHERE recipient_key = $3 AND scope = $4 AND status = $5
	`
	result, err := r.DB.ExecContext(ctx, revive,
		domain.DeliveryRecordPending, now, recipientKey, scope, domain.DeliveryRecordFailed)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAlreadySent
	}
	return nil
}

func (r *deliveryRecordRepository) RecordResult(ctx context.Context, recipientKey, scope, status string, detail *string, templateID *string) error {
	query := `
		UPDATE delivery_records
		SET status = $1, detail = $2, template_id = $3, updated_at = $4
		WHERE recipient_key = $5 AND scope = $6
	`
	result, err := r.DB.ExecContext(ctx, query, status, detail, templateID, time.Now(), recipientKey, scope)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("record result for unreserved scope %q: %w", scope, domain.ErrNotFound)
	}
	return nil
}

func (r *deliveryRecordRepository) Append(ctx context.Context, rec *domain.DeliveryRecord) error {
	query := `
		INSERT INTO delivery_records (recipient_key, scope, status, detail, template_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		rec.RecipientKey, rec.Scope, rec.Status, rec.Detail, rec.TemplateID, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAlreadySent
		}
		return err
	}
	return nil
}

func (r *deliveryRecordRepository) CountScopePrefix(ctx context.Context, recipientKey, prefix string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM delivery_records
		WHERE recipient_key = $1 AND scope LIKE $2 || '%'
	`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, recipientKey, prefix).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
