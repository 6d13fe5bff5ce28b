package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"biglietto/internal/domain"
)

func birthdayFixture(regs []*domain.Registration, tpl *domain.MessageTemplate) (*BirthdayService, *mockLedger, *mockDispatcher, *mockTemplateRepo) {
	ledger := newMockLedger()
	dispatcher := &mockDispatcher{}
	templates := &mockTemplateRepo{active: map[string]*domain.MessageTemplate{}}
	if tpl != nil {
		templates.active[domain.TemplateKindBirthday] = tpl
	}
	svc := NewBirthdayService(&mockRegRepo{birthdays: regs}, templates, ledger, dispatcher, testLogger())
	return svc, ledger, dispatcher, templates
}

func birthdayTemplate() *domain.MessageTemplate {
	return &domain.MessageTemplate{
		ID:      "tpl-uuid-1",
		Kind:    domain.TemplateKindBirthday,
		Subject: "Buon Compleanno {{NOME}}!",
		Body:    "Caro {{NOME_COMPLETO}}, oggi compi {{ETA}} anni. Buon {{ANNO}}!",
		Active:  true,
	}
}

func marioRossi() *domain.Registration {
	return &domain.Registration{
		ID:        "reg-uuid-1",
		FirstName: "Mario",
		LastName:  "Rossi",
		Email:     "mario.rossi@example.org",
		BirthDate: time.Date(1990, 6, 25, 0, 0, 0, 0, time.UTC),
	}
}

func TestBirthdayService_Run(t *testing.T) {
	now := time.Date(2025, 6, 25, 8, 0, 0, 0, time.UTC)
	svc, ledger, dispatcher, templates := birthdayFixture([]*domain.Registration{marioRossi()}, birthdayTemplate())

	summary, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, &RunSummary{Eligible: 1, Sent: 1}, summary)

	require.Len(t, dispatcher.calls, 1)
	call := dispatcher.calls[0]
	require.Equal(t, "mario.rossi@example.org", call.to)
	require.Equal(t, "Mario", call.vars["{{NOME}}"])
	require.Equal(t, "Mario Rossi", call.vars["{{NOME_COMPLETO}}"])
	require.Equal(t, "25/06/1990", call.vars["{{DATA_NASCITA}}"])
	require.Equal(t, "35", call.vars["{{ETA}}"])
	require.Equal(t, "2025", call.vars["{{ANNO}}"])
	require.Nil(t, call.attachment)

	require.Equal(t, 1, templates.usage["tpl-uuid-1"])
	require.Equal(t, domain.DeliveryRecordSent, ledger.state["mario.rossi@example.org|birthday:2025"])
}

func TestBirthdayService_Run_Idempotent(t *testing.T) {
	now := time.Date(2025, 6, 25, 8, 0, 0, 0, time.UTC)
	svc, ledger, dispatcher, _ := birthdayFixture([]*domain.Registration{marioRossi()}, birthdayTemplate())

	first, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, first.Sent)

	second, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 0, second.Sent)
	require.Equal(t, 1, second.Skipped)

	require.Len(t, dispatcher.calls, 1, "exactly one dispatch across both runs")
	sent := 0
	for _, res := range ledger.results {
		if res.status == domain.DeliveryRecordSent {
			sent++
		}
	}
	require.Equal(t, 1, sent)
}

func TestBirthdayService_Run_NoActiveTemplate(t *testing.T) {
	now := time.Date(2025, 6, 25, 8, 0, 0, 0, time.UTC)
	svc, _, dispatcher, _ := birthdayFixture([]*domain.Registration{marioRossi()}, nil)

	summary, err := svc.Run(context.Background(), now)
	require.NoError(t, err, "missing template is a quiet zero-sent run, not a failure")
	require.Equal(t, &RunSummary{}, summary)
	require.Empty(t, dispatcher.calls)
}

func TestBirthdayService_Run_FailureRecordedAndRetriableNextRun(t *testing.T) {
	now := time.Date(2025, 6, 25, 8, 0, 0, 0, time.UTC)
	svc, ledger, dispatcher, _ := birthdayFixture([]*domain.Registration{marioRossi()}, birthdayTemplate())

	dispatcher.err = errors.New("transport down")
	summary, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, domain.DeliveryRecordFailed, ledger.state["mario.rossi@example.org|birthday:2025"])

	// A failed record does not burn the year: the next run retries.
	dispatcher.err = nil
	retry, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, retry.Sent)
	require.Equal(t, domain.DeliveryRecordSent, ledger.state["mario.rossi@example.org|birthday:2025"])
}

func TestBirthdayService_Run_DeduplicatesByEmail(t *testing.T) {
	now := time.Date(2025, 6, 25, 8, 0, 0, 0, time.UTC)
	second := marioRossi()
	second.ID = "reg-uuid-2"
	second.EventID = "other-event"
	svc, _, dispatcher, _ := birthdayFixture([]*domain.Registration{marioRossi(), second}, birthdayTemplate())

	summary, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Eligible, "same person registered twice greets once")
	require.Len(t, dispatcher.calls, 1)
}

func TestBirthdayService_Run_LeapDayOnMarchFirst(t *testing.T) {
	leapling := marioRossi()
	leapling.BirthDate = time.Date(1992, 2, 29, 0, 0, 0, 0, time.UTC)

	// 2025 is not a leap year: Feb 29 birthdays are celebrated on Mar 1.
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	svc, _, dispatcher, _ := birthdayFixture([]*domain.Registration{leapling}, birthdayTemplate())

	summary, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Sent)
	require.Equal(t, "33", dispatcher.calls[0].vars["{{ETA}}"])
}

func TestComputeAge(t *testing.T) {
	tests := []struct {
		name  string
		birth time.Time
		now   time.Time
		want  int
	}{
		{
			name:  "on the birthday",
			birth: time.Date(1990, 6, 25, 0, 0, 0, 0, time.UTC),
			now:   time.Date(2025, 6, 25, 8, 0, 0, 0, time.UTC),
			want:  35,
		},
		{
			name:  "day before the birthday",
			birth: time.Date(1990, 6, 25, 0, 0, 0, 0, time.UTC),
			now:   time.Date(2025, 6, 24, 8, 0, 0, 0, time.UTC),
			want:  34,
		},
		{
			name:  "leap birth on non-leap march first",
			birth: time.Date(1992, 2, 29, 0, 0, 0, 0, time.UTC),
			now:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			want:  33,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, computeAge(tt.birth, tt.now))
		})
	}
}
