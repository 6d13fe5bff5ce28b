package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"biglietto/internal/domain"
)

type templateRepository struct {
	DB *sql.DB
}

func NewTemplateRepository(db *sql.DB) domain.MessageTemplateRepository {
	return &templateRepository{DB: db}
}

func (r *templateRepository) Create(ctx context.Context, t *domain.MessageTemplate) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = t.CreatedAt
	query := `
		INSERT INTO message_templates (name, kind, subject, body, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $5)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, t.Name, t.Kind, t.Subject, t.Body, t.CreatedAt).Scan(&t.ID)
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error) {
	query := `
		SELECT id, name, kind, subject, body, active, usage_count, created_at, updated_at
		FROM message_templates
		WHERE id = $1
	`
	return scanTemplate(r.DB.QueryRowContext(ctx, query, id))
}

func (r *templateRepository) GetActive(ctx context.Context, kind string) (*domain.MessageTemplate, error) {
	query := `
		SELECT id, name, kind, subject, body, active, usage_count, created_at, updated_at
		FROM message_templates
		WHERE kind = $1 AND active = TRUE
	`
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, query, kind))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveTemplate
		}
		return nil, err
	}
	return t, nil
}

// List returns templates of the given kind, or all templates when kind is
// empty.
func (r *templateRepository) List(ctx context.Context, kind string) ([]*domain.MessageTemplate, error) {
	query := `
		SELECT id, name, kind, subject, body, active, usage_count, created_at, updated_at
		FROM message_templates
		WHERE kind = $1 OR $1 = ''
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*domain.MessageTemplate
	for rows.Next() {
		t := &domain.MessageTemplate{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Kind, &t.Subject, &t.Body, &t.Active, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []*domain.MessageTemplate{}
	}
	return templates, nil
}

func (r *templateRepository) Update(ctx context.Context, t *domain.MessageTemplate) error {
	query := `
		UPDATE message_templates
		SET name = $1, subject = $2, body = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.DB.ExecContext(ctx, query, t.Name, t.Subject, t.Body, time.Now(), t.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Activate enforces the single-active invariant in one transaction: every
// flag of the target's kind is cleared before exactly one is set.
func (r *templateRepository) Activate(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var kind string
	if err := tx.QueryRowContext(ctx, `SELECT kind FROM message_templates WHERE id = $1`, id).Scan(&kind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE message_templates SET active = FALSE, updated_at = NOW() WHERE kind = $1 AND active = TRUE`, kind); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE message_templates SET active = TRUE, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *templateRepository) IncrementUsage(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE message_templates SET usage_count = usage_count + 1 WHERE id = $1`, id)
	return err
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM message_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTemplate(row *sql.Row) (*domain.MessageTemplate, error) {
	t := &domain.MessageTemplate{}
	err := row.Scan(&t.ID, &t.Name, &t.Kind, &t.Subject, &t.Body, &t.Active, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}
