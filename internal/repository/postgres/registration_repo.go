package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"biglietto/internal/domain"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

// CreateWithReservation commits the registration row and its ticket delivery
// reservation atomically. Either both land or neither does; the unique
// constraints decide the winner under concurrent duplicate submissions.
func (r *registrationRepository) CreateWithReservation(ctx context.Context, reg *domain.Registration, rec *domain.DeliveryRecord) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	regQuery := `
		INSERT INTO registrations (event_id, first_name, last_name, email, phone, birth_date, token, delivery_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, regQuery,
		reg.EventID, reg.FirstName, reg.LastName, reg.Email, reg.Phone,
		reg.BirthDate, reg.Token, reg.DeliveryStatus, reg.CreatedAt,
	).Scan(&reg.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateRegistration
		}
		return err
	}

	recQuery := `
		INSERT INTO delivery_records (recipient_key, scope, status, template_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, recQuery,
		rec.RecipientKey, rec.Scope, rec.Status, rec.TemplateID, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAlreadySent
		}
		return err
	}

	return tx.Commit()
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `
		SELECT id, event_id, first_name, last_name, email, phone, birth_date, token, delivery_status, delivery_error, created_at
		FROM registrations
		WHERE id = $1
	`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

func (r *registrationRepository) GetByEventAndEmail(ctx context.Context, eventID, email string) (*domain.Registration, error) {
	query := `
		SELECT id, event_id, first_name, last_name, email, phone, birth_date, token, delivery_status, delivery_error, created_at
		FROM registrations
		WHERE event_id = $1 AND email = $2
	`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, eventID, email))
}

func (r *registrationRepository) UpdateDeliveryStatus(ctx context.Context, id, status string, detail *string) error {
	query := `
		UPDATE registrations
		SET delivery_status = $1, delivery_error = $2
		WHERE id = $3
	`
	result, err := r.DB.ExecContext(ctx, query, status, detail, id)
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

func (r *registrationRepository) ListByBirthday(ctx context.Context, month, day int) ([]*domain.Registration, error) {
	query := `
		SELECT id, event_id, first_name, last_name, email, phone, birth_date, token, delivery_status, delivery_error, created_at
		FROM registrations
		WHERE EXTRACT(MONTH FROM birth_date) = $1 AND EXTRACT(DAY FROM birth_date) = $2
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, month, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*domain.Registration
	for rows.Next() {
		reg, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	return regs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *registrationRepository) scanOne(row *sql.Row) (*domain.Registration, error) {
	reg, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) scanRow(row rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var errNull sql.NullString
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.FirstName, &reg.LastName, &reg.Email, &reg.Phone,
		&reg.BirthDate, &reg.Token, &reg.DeliveryStatus, &errNull, &reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if errNull.Valid {
		reg.DeliveryError = &errNull.String
	}
	return reg, nil
}
