package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateRegistration is returned when a (email, event) pair already
	// holds a committed registration. It maps the store's unique constraint,
	// not an application-level check.
	ErrDuplicateRegistration = errors.New("already registered for this event")

	// ErrEventClosed is returned when registering for an event whose closed
	// flag is set.
	ErrEventClosed = errors.New("event is closed for registration")

	// ErrAlreadySent is the ledger's "already handled" outcome. Callers treat
	// it as a normal skip, never as a failure.
	ErrAlreadySent = errors.New("delivery already recorded for this scope")

	// ErrNoActiveTemplate is reported by the birthday run when no template is
	// active. The run ends with zero sends instead of failing per recipient.
	ErrNoActiveTemplate = errors.New("no active message template")
)

// GenericDeliveryFailureMessage is the only delivery error text ever surfaced
// to an end user. Raw transport errors may contain credentials and are stored
// and logged only.
const GenericDeliveryFailureMessage = "Non è stato possibile inviare l'email. Il tuo biglietto resta comunque valido."
