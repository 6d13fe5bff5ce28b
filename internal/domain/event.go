package domain

import (
	"context"
	"time"
)

// Event represents an event people can register for. The pipeline reads
// events; creating, closing, and deleting them is an admin concern handled
// elsewhere.
// swagger:model Event
type Event struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	BackgroundPath *string   `json:"background_path,omitempty"`
	BackgroundURL  *string   `json:"background_url,omitempty"`
	Closed         bool      `json:"closed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EventRepository defines read access to events.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*Event, error)
}
