package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"biglietto/internal/domain"
)

// Substitute replaces every occurrence of each vars key with its value.
// Keys are applied in sorted order so output is deterministic. Placeholders
// without a matching key stay verbatim: a miswired template shows up in the
// delivered mail instead of disappearing silently.
func Substitute(s string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s = strings.ReplaceAll(s, k, vars[k])
	}
	return s
}

// renderHTML wraps the substituted plain-text body in a minimal HTML shell
// with line breaks preserved. Bodies are admin-authored, not user input, so
// they pass through unescaped.
func renderHTML(body string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body><p>")
	b.WriteString(strings.ReplaceAll(body, "\n", "<br>\n"))
	b.WriteString("</p></body></html>")
	return b.String()
}

type dispatcher struct {
	mailer  domain.Mailer
	timeout time.Duration
	logger  *slog.Logger
}

// NewNotificationDispatcher returns a dispatcher that substitutes variables,
// renders html+text bodies, and sends through the mailer with each call
// bounded by timeout.
func NewNotificationDispatcher(mailer domain.Mailer, timeout time.Duration, logger *slog.Logger) domain.NotificationDispatcher {
	return &dispatcher{mailer: mailer, timeout: timeout, logger: logger}
}

func (d *dispatcher) Dispatch(ctx context.Context, to string, content domain.MessageContent, vars map[string]string, attachment *domain.Attachment) error {
	subject := Substitute(content.Subject, vars)
	body := Substitute(content.Body, vars)
	html := renderHTML(body)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var attachments []domain.Attachment
	if attachment != nil {
		attachments = append(attachments, *attachment)
	}
	if err := d.mailer.Send(ctx, to, subject, html, body, attachments...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("mail transport timed out after %s: %w", d.timeout, err)
		}
		// The raw transport error is for storage and logs only; callers
		// surface domain.GenericDeliveryFailureMessage to end users.
		return err
	}
	d.logger.Info("notification dispatched", "to", to)
	return nil
}
