package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"biglietto/internal/domain"
)

// RunSummary reports one birthday run. Skipped counts recipients already
// holding a sent record for the year.
type RunSummary struct {
	Eligible int
	Sent     int
	Skipped  int
	Failed   int
}

// BirthdayService sends the yearly greeting to everyone whose birthday falls
// on the run date. Each recipient is an independent unit of work gated by the
// ledger, so re-running the job on the same day sends nothing twice.
type BirthdayService struct {
	regs       domain.RegistrationRepository
	templates  domain.MessageTemplateRepository
	ledger     domain.DeliveryLedger
	dispatcher domain.NotificationDispatcher
	logger     *slog.Logger
}

func NewBirthdayService(
	regs domain.RegistrationRepository,
	templates domain.MessageTemplateRepository,
	ledger domain.DeliveryLedger,
	dispatcher domain.NotificationDispatcher,
	logger *slog.Logger,
) *BirthdayService {
	return &BirthdayService{
		regs:       regs,
		templates:  templates,
		ledger:     ledger,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run executes one scheduled pass for the given date.
func (s *BirthdayService) Run(ctx context.Context, now time.Time) (*RunSummary, error) {
	summary := &RunSummary{}

	tpl, err := s.templates.GetActive(ctx, domain.TemplateKindBirthday)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveTemplate) {
			s.logger.Warn("no active birthday template, skipping run", "date", now.Format("2006-01-02"))
			return summary, nil
		}
		return nil, fmt.Errorf("get active template: %w", err)
	}

	recipients, err := s.eligibleRecipients(ctx, now)
	if err != nil {
		return nil, err
	}
	summary.Eligible = len(recipients)

	scope := domain.BirthdayScope(now.Year())
	for _, reg := range recipients {
		if err := s.ledger.TryReserve(ctx, reg.Email, scope); err != nil {
			if errors.Is(err, domain.ErrAlreadySent) {
				summary.Skipped++
				continue
			}
			s.logger.Error("birthday reservation failed", "email", reg.Email, "err", err)
			summary.Failed++
			continue
		}

		content := domain.MessageContent{Subject: tpl.Subject, Body: tpl.Body}
		dispatchErr := s.dispatcher.Dispatch(ctx, reg.Email, content, birthdayVars(reg, now), nil)
		if dispatchErr != nil {
			detail := dispatchErr.Error()
			if err := s.ledger.RecordResult(ctx, reg.Email, scope, domain.DeliveryRecordFailed, &detail, &tpl.ID); err != nil {
				s.logger.Error("failed to record birthday failure", "email", reg.Email, "err", err)
			}
			s.logger.Error("birthday dispatch failed", "email", reg.Email, "err", dispatchErr)
			summary.Failed++
			continue
		}
		if err := s.ledger.RecordResult(ctx, reg.Email, scope, domain.DeliveryRecordSent, nil, &tpl.ID); err != nil {
			s.logger.Error("failed to record birthday success", "email", reg.Email, "err", err)
		}
		if err := s.templates.IncrementUsage(ctx, tpl.ID); err != nil {
			s.logger.Error("failed to increment template usage", "template_id", tpl.ID, "err", err)
		}
		summary.Sent++
	}

	s.logger.Info("birthday run finished",
		"date", now.Format("2006-01-02"),
		"eligible", summary.Eligible, "sent", summary.Sent,
		"skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

// eligibleRecipients returns today's birthday people, one entry per email.
// On March 1st of non-leap years it also includes February 29th births.
func (s *BirthdayService) eligibleRecipients(ctx context.Context, now time.Time) ([]*domain.Registration, error) {
	regs, err := s.regs.ListByBirthday(ctx, int(now.Month()), now.Day())
	if err != nil {
		return nil, fmt.Errorf("list by birthday: %w", err)
	}
	if now.Month() == time.March && now.Day() == 1 && !isLeapYear(now.Year()) {
		leaplings, err := s.regs.ListByBirthday(ctx, 2, 29)
		if err != nil {
			return nil, fmt.Errorf("list leap-day birthdays: %w", err)
		}
		regs = append(regs, leaplings...)
	}

	seen := make(map[string]struct{}, len(regs))
	var out []*domain.Registration
	for _, reg := range regs {
		key := strings.ToLower(reg.Email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, reg)
	}
	return out, nil
}

func birthdayVars(reg *domain.Registration, now time.Time) map[string]string {
	return map[string]string{
		"{{NOME}}":          reg.FirstName,
		"{{COGNOME}}":       reg.LastName,
		"{{NOME_COMPLETO}}": reg.FullName(),
		"{{EMAIL}}":         reg.Email,
		"{{DATA_NASCITA}}":  reg.BirthDate.Format("02/01/2006"),
		"{{ETA}}":           strconv.Itoa(computeAge(reg.BirthDate, now)),
		"{{ANNO}}":          strconv.Itoa(now.Year()),
	}
}

// computeAge returns full years between birth and now. time.Date normalizes
// Feb 29 to Mar 1 in non-leap years, which matches the celebration rule.
func computeAge(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	anniversary := time.Date(now.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		age--
	}
	return age
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
