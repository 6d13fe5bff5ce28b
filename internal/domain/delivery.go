package domain

import (
	"context"
	"fmt"
	"time"
)

// DeliveryRecord status values.
const (
	DeliveryRecordPending = "pending"
	DeliveryRecordSent    = "sent"
	DeliveryRecordFailed  = "failed"
)

// DeliveryRecord is one ledger entry: a delivery attempt for a recipient
// within a scope. The unique (recipient_key, scope) constraint is what makes
// automatic deliveries at-most-once.
type DeliveryRecord struct {
	ID           string
	RecipientKey string
	Scope        string
	Status       string
	Detail       *string
	TemplateID   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EventScope is the ledger scope for a ticket confirmation.
func EventScope(eventID string) string {
	return "event:" + eventID
}

// BirthdayScope is the ledger scope for a birthday greeting. It embeds the
// calendar year so that each year is an independent delivery.
func BirthdayScope(year int) string {
	return fmt.Sprintf("birthday:%d", year)
}

// ResendScopePrefix is the audit scope prefix for manual resends of a
// registration's ticket.
func ResendScopePrefix(registrationID string) string {
	return "resend:" + registrationID + ":"
}

// ResendScope is the audit scope for the nth manual resend.
func ResendScope(registrationID string, attempt int) string {
	return fmt.Sprintf("%s%d", ResendScopePrefix(registrationID), attempt)
}

// DeliveryLedger is the idempotency gate for automatic deliveries.
type DeliveryLedger interface {
	// TryReserve atomically claims (recipientKey, scope). It returns nil when
	// the reservation is new or when it revives a previously failed attempt,
	// and ErrAlreadySent when a sent or in-flight record already exists.
	TryReserve(ctx context.Context, recipientKey, scope string) error
	// RecordResult stores the outcome of a dispatch attempt for a held
	// reservation.
	RecordResult(ctx context.Context, recipientKey, scope, status string, detail *string, templateID *string) error
	// Append inserts a standalone audit record outside the reservation flow,
	// used by the manual resend path.
	Append(ctx context.Context, rec *DeliveryRecord) error
	// CountScopePrefix counts records for a recipient whose scope starts with
	// the given prefix.
	CountScopePrefix(ctx context.Context, recipientKey, prefix string) (int, error)
}
