package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"biglietto/internal/domain"
)

// qrSizePx is the side of the QR raster handed to the compositor, which
// rescales it to the canvas.
const qrSizePx = 512

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Default confirmation content used when no confirmation template is
// configured. Placeholders follow the legacy lowercase style.
var defaultConfirmation = domain.MessageContent{
	Subject: "Il tuo biglietto per {evento}",
	Body: "Ciao {nome},\n\n" +
		"la tua iscrizione a {evento} del {data} è confermata.\n" +
		"In allegato trovi il biglietto con il codice QR da presentare all'ingresso.\n\n" +
		"A presto!",
}

type ticketService struct {
	events     domain.EventRepository
	regs       domain.RegistrationRepository
	ledger     domain.DeliveryLedger
	templates  domain.MessageTemplateRepository
	creds      domain.CredentialGenerator
	qr         domain.QrEncoder
	compositor domain.TicketCompositor
	assembler  domain.DocumentAssembler
	dispatcher domain.NotificationDispatcher
	logger     *slog.Logger
}

// NewTicketService wires the full issuance pipeline.
func NewTicketService(
	events domain.EventRepository,
	regs domain.RegistrationRepository,
	ledger domain.DeliveryLedger,
	templates domain.MessageTemplateRepository,
	creds domain.CredentialGenerator,
	qr domain.QrEncoder,
	compositor domain.TicketCompositor,
	assembler domain.DocumentAssembler,
	dispatcher domain.NotificationDispatcher,
	logger *slog.Logger,
) domain.TicketService {
	return &ticketService{
		events:     events,
		regs:       regs,
		ledger:     ledger,
		templates:  templates,
		creds:      creds,
		qr:         qr,
		compositor: compositor,
		assembler:  assembler,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func validateInput(in *domain.RegistrationInput) error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	switch {
	case in.EventID == "":
		return fmt.Errorf("event_id is required: %w", domain.ErrInvalidInput)
	case in.FirstName == "" || in.LastName == "":
		return fmt.Errorf("first and last name are required: %w", domain.ErrInvalidInput)
	case !emailRegex.MatchString(in.Email):
		return fmt.Errorf("email is not valid: %w", domain.ErrInvalidInput)
	case in.BirthDate.IsZero() || in.BirthDate.After(time.Now()):
		return fmt.Errorf("birth date is not valid: %w", domain.ErrInvalidInput)
	}
	return nil
}

// Issue runs Received → TokenIssued → Rendered → Packaged → Dispatched for
// one registration. Nothing is committed until a valid document exists;
// after commit, a dispatch failure is recorded but never rolls the
// registration back.
func (s *ticketService) Issue(ctx context.Context, in domain.RegistrationInput) (*domain.Registration, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, in.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.Closed {
		return nil, domain.ErrEventClosed
	}

	// Fast duplicate check; the unique constraint is still the authority
	// under concurrent submissions.
	if _, err := s.regs.GetByEventAndEmail(ctx, event.ID, in.Email); err == nil {
		return nil, domain.ErrDuplicateRegistration
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get registration: %w", err)
	}

	token, err := s.creds.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate credential: %w", err)
	}

	now := time.Now()
	reg := &domain.Registration{
		EventID:        event.ID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		BirthDate:      in.BirthDate,
		Token:          token,
		DeliveryStatus: domain.DeliveryStatusPending,
		CreatedAt:      now,
	}

	document, err := s.renderTicket(ctx, event, reg)
	if err != nil {
		// Nothing committed yet: the whole registration aborts.
		return nil, err
	}

	rec := &domain.DeliveryRecord{
		RecipientKey: reg.Email,
		Scope:        domain.EventScope(event.ID),
		Status:       domain.DeliveryRecordPending,
		CreatedAt:    now,
	}
	if err := s.regs.CreateWithReservation(ctx, reg, rec); err != nil {
		if errors.Is(err, domain.ErrDuplicateRegistration) || errors.Is(err, domain.ErrAlreadySent) {
			return nil, domain.ErrDuplicateRegistration
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	// Past this point the person holds a valid, reconstructable ticket.
	content, templateID := s.confirmationContent(ctx)
	attachment := &domain.Attachment{
		Filename:    TicketFilename(reg),
		ContentType: "application/pdf",
		Data:        document,
	}
	dispatchErr := s.dispatcher.Dispatch(ctx, reg.Email, content, confirmationVars(event, reg), attachment)
	s.recordDispatch(ctx, reg, rec.Scope, templateID, dispatchErr)
	return reg, nil
}

// Resend re-runs Rendered → Dispatched from the committed token. It is the
// explicit manual override: the event-scope gate is bypassed and an audit
// record appended instead.
func (s *ticketService) Resend(ctx context.Context, registrationID string) (*domain.Registration, error) {
	reg, err := s.regs.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	document, err := s.renderTicket(ctx, event, reg)
	if err != nil {
		return nil, err
	}

	attempts, err := s.ledger.CountScopePrefix(ctx, reg.Email, domain.ResendScopePrefix(reg.ID))
	if err != nil {
		return nil, fmt.Errorf("count resends: %w", err)
	}

	content, templateID := s.confirmationContent(ctx)
	attachment := &domain.Attachment{
		Filename:    TicketFilename(reg),
		ContentType: "application/pdf",
		Data:        document,
	}
	dispatchErr := s.dispatcher.Dispatch(ctx, reg.Email, content, confirmationVars(event, reg), attachment)

	rec := &domain.DeliveryRecord{
		RecipientKey: reg.Email,
		Scope:        domain.ResendScope(reg.ID, attempts+1),
		Status:       domain.DeliveryRecordSent,
		TemplateID:   templateID,
		CreatedAt:    time.Now(),
	}
	if dispatchErr != nil {
		detail := dispatchErr.Error()
		rec.Status = domain.DeliveryRecordFailed
		rec.Detail = &detail
	}
	if err := s.ledger.Append(ctx, rec); err != nil {
		s.logger.Error("failed to append resend audit record", "registration_id", reg.ID, "err", err)
	}
	s.updateRegistrationStatus(ctx, reg, dispatchErr)
	return reg, nil
}

// renderTicket covers the Rendered and Packaged states: QR, composite, PDF.
func (s *ticketService) renderTicket(ctx context.Context, event *domain.Event, reg *domain.Registration) ([]byte, error) {
	qrImg, err := s.qr.Encode(reg.Token, qrSizePx)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	label := fmt.Sprintf("%s - %s - %s", event.Title, event.Date.Format("02/01/2006"), reg.FullName())
	raster, err := s.compositor.Compose(ctx, event, qrImg, label)
	if err != nil {
		return nil, fmt.Errorf("compose ticket: %w", err)
	}
	document, err := s.assembler.Assemble(raster)
	if err != nil {
		return nil, fmt.Errorf("assemble document: %w", err)
	}
	return document, nil
}

// confirmationContent resolves the active confirmation template, falling
// back to the built-in default when none is configured.
func (s *ticketService) confirmationContent(ctx context.Context) (domain.MessageContent, *string) {
	tpl, err := s.templates.GetActive(ctx, domain.TemplateKindConfirmation)
	if err != nil {
		if !errors.Is(err, domain.ErrNoActiveTemplate) {
			s.logger.Warn("failed to load confirmation template, using default", "err", err)
		}
		return defaultConfirmation, nil
	}
	return domain.MessageContent{Subject: tpl.Subject, Body: tpl.Body}, &tpl.ID
}

func (s *ticketService) recordDispatch(ctx context.Context, reg *domain.Registration, scope string, templateID *string, dispatchErr error) {
	status := domain.DeliveryRecordSent
	var detail *string
	if dispatchErr != nil {
		status = domain.DeliveryRecordFailed
		d := dispatchErr.Error()
		detail = &d
	}
	if err := s.ledger.RecordResult(ctx, reg.Email, scope, status, detail, templateID); err != nil {
		s.logger.Error("failed to record dispatch result", "registration_id", reg.ID, "err", err)
	}
	s.updateRegistrationStatus(ctx, reg, dispatchErr)
}

func (s *ticketService) updateRegistrationStatus(ctx context.Context, reg *domain.Registration, dispatchErr error) {
	if dispatchErr == nil {
		reg.DeliveryStatus = domain.DeliveryStatusSent
		reg.DeliveryError = nil
	} else {
		detail := dispatchErr.Error()
		reg.DeliveryStatus = domain.DeliveryStatusFailed
		reg.DeliveryError = &detail
		s.logger.Error("ticket dispatch failed", "registration_id", reg.ID, "err", dispatchErr)
	}
	if err := s.regs.UpdateDeliveryStatus(ctx, reg.ID, reg.DeliveryStatus, reg.DeliveryError); err != nil {
		s.logger.Error("failed to update delivery status", "registration_id", reg.ID, "err", err)
	}
}

func confirmationVars(event *domain.Event, reg *domain.Registration) map[string]string {
	return map[string]string{
		"{nome}":    reg.FirstName,
		"{cognome}": reg.LastName,
		"{email}":   reg.Email,
		"{evento}":  event.Title,
		"{data}":    event.Date.Format("02/01/2006"),
	}
}

var filenameSafe = regexp.MustCompile(`[^a-z0-9]+`)

// TicketFilename builds the deterministic attachment name from recipient
// identity and a token prefix.
func TicketFilename(reg *domain.Registration) string {
	slug := strings.Trim(filenameSafe.ReplaceAllString(strings.ToLower(reg.FullName()), "-"), "-")
	tokenPrefix := reg.Token
	if len(tokenPrefix) > 8 {
		tokenPrefix = tokenPrefix[:8]
	}
	return fmt.Sprintf("ticket-%s-%s.pdf", slug, tokenPrefix)
}
