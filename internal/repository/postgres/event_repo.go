package postgres

import (
	"context"
	"database/sql"
	"errors"

	"biglietto/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, title, date, background_path, background_url, closed, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	e := &domain.Event{}
	var pathNull, urlNull sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Date, &pathNull, &urlNull, &e.Closed, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if pathNull.Valid {
		e.BackgroundPath = &pathNull.String
	}
	if urlNull.Valid {
		e.BackgroundURL = &urlNull.String
	}
	return e, nil
}
