package domain

import "context"

// Attachment is a file attached to an outgoing email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string, attachments ...Attachment) error
}

// MessageContent is a subject/body pair before variable substitution. Body is
// plain text; the dispatcher derives the HTML rendering from it.
type MessageContent struct {
	Subject string
	Body    string
}

// NotificationDispatcher substitutes variables into content and sends it.
// Substitution is plain substring replacement: every occurrence of a key in
// vars is replaced by its value, and placeholders with no matching key are
// left verbatim so a miswired template stays visible in the delivered mail.
// The returned error, if any, carries the transport's raw message; callers
// store and log it but surface only GenericDeliveryFailureMessage.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, to string, content MessageContent, vars map[string]string, attachment *Attachment) error
}
