package domain

import (
	"context"
	"time"
)

// Delivery status values for a registration's confirmation email.
const (
	DeliveryStatusPending = "pending"
	DeliveryStatusSent    = "sent"
	DeliveryStatusFailed  = "failed"
)

// Registration represents one person registered for one event, together with
// the credential token that identifies their ticket. At most one registration
// exists per (email, event) pair; the token is globally unique. Both are
// enforced by the store.
// swagger:model Registration
type Registration struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	BirthDate      time.Time `json:"birth_date"`
	Token          string    `json:"-"`
	DeliveryStatus string    `json:"delivery_status"`
	DeliveryError  *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// FullName returns "First Last" with single spacing.
func (r *Registration) FullName() string {
	return r.FirstName + " " + r.LastName
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	// CreateWithReservation inserts the registration and its event-scope
	// delivery record in a single transaction. Returns
	// ErrDuplicateRegistration if the (email, event) pair already exists and
	// ErrAlreadySent if the delivery record does.
	CreateWithReservation(ctx context.Context, reg *Registration, rec *DeliveryRecord) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByEventAndEmail(ctx context.Context, eventID, email string) (*Registration, error)
	UpdateDeliveryStatus(ctx context.Context, id, status string, detail *string) error
	// ListByBirthday returns registrations whose birth date falls on the
	// given month and day, most recent first.
	ListByBirthday(ctx context.Context, month, day int) ([]*Registration, error)
}

// RegistrationInput is the validated form input for a new registration.
type RegistrationInput struct {
	EventID   string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	BirthDate time.Time
}

// TicketService issues tickets and re-sends them on explicit admin request.
type TicketService interface {
	// Issue runs the full pipeline for one registration. The registration is
	// committed only once a valid ticket document exists for it; a dispatch
	// failure after that point is recorded on the row, not rolled back.
	Issue(ctx context.Context, in RegistrationInput) (*Registration, error)
	// Resend re-renders the ticket from the committed token and dispatches it
	// again. It is the manual override path and bypasses the automatic
	// at-most-once gate, appending an audit ledger entry instead.
	Resend(ctx context.Context, registrationID string) (*Registration, error)
}
