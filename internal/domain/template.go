package domain

import (
	"context"
	"time"
)

// Template kinds. Birthday templates drive the yearly greeting run;
// confirmation templates drive the ticket email and use the legacy
// lowercase placeholder style.
const (
	TemplateKindBirthday     = "birthday"
	TemplateKindConfirmation = "confirmation"
)

// MessageTemplate is an admin-editable message with {{VARIABLE}} placeholders
// in subject and body. At most one template per kind is active at a time; the
// activation transaction enforces this by clearing every other flag.
// swagger:model MessageTemplate
type MessageTemplate struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Active     bool      `json:"active"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MessageTemplateRepository defines storage operations for templates.
type MessageTemplateRepository interface {
	Create(ctx context.Context, t *MessageTemplate) error
	GetByID(ctx context.Context, id string) (*MessageTemplate, error)
	// GetActive returns the single active template of the given kind, or
	// ErrNoActiveTemplate.
	GetActive(ctx context.Context, kind string) (*MessageTemplate, error)
	List(ctx context.Context, kind string) ([]*MessageTemplate, error)
	Update(ctx context.Context, t *MessageTemplate) error
	// Activate clears the active flag on every template of the target's kind
	// and sets it on the target, in one transaction.
	Activate(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
