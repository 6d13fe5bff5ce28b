package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"biglietto/internal/domain"
)

func testRegistration() *domain.Registration {
	return &domain.Registration{
		EventID:        "event-uuid-1",
		FirstName:      "Mario",
		LastName:       "Rossi",
		Email:          "mario.rossi@example.org",
		Phone:          "3331234567",
		BirthDate:      time.Date(1990, 6, 25, 0, 0, 0, 0, time.UTC),
		Token:          "a3f9c2d1e8b7465f9012cdef34567890",
		DeliveryStatus: domain.DeliveryStatusPending,
		CreatedAt:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRegistrationRepository_CreateWithReservation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name: "success commits both rows",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO registrations`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("reg-uuid-1"))
				mock.ExpectQuery(`INSERT INTO delivery_records`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rec-uuid-1"))
				mock.ExpectCommit()
			},
		},
		{
			name: "duplicate email and event rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO registrations`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "registrations_email_event_key"})
				mock.ExpectRollback()
			},
			wantErr: true,
			errIs:   domain.ErrDuplicateRegistration,
		},
		{
			name: "duplicate ledger scope rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO registrations`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("reg-uuid-1"))
				mock.ExpectQuery(`INSERT INTO delivery_records`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "delivery_records_recipient_scope_key"})
				mock.ExpectRollback()
			},
			wantErr: true,
			errIs:   domain.ErrAlreadySent,
		},
		{
			name: "db error propagates",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO registrations`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)

			reg := testRegistration()
			rec := &domain.DeliveryRecord{
				RecipientKey: reg.Email,
				Scope:        domain.EventScope(reg.EventID),
				Status:       domain.DeliveryRecordPending,
				CreatedAt:    reg.CreatedAt,
			}
			err = repo.CreateWithReservation(ctx, reg, rec)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
				require.Equal(t, "reg-uuid-1", reg.ID)
				require.Equal(t, "rec-uuid-1", rec.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_GetByEventAndEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, event_id`).
		WithArgs("event-uuid-1", "nobody@example.org").
		WillReturnError(sql.ErrNoRows)

	repo := NewRegistrationRepository(db)
	_, err = repo.GetByEventAndEmail(context.Background(), "event-uuid-1", "nobody@example.org")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_UpdateDeliveryStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	detail := "MessageRejected: Email address is not verified."
	mock.ExpectExec(`UPDATE registrations`).
		WithArgs(domain.DeliveryStatusFailed, &detail, "reg-uuid-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRegistrationRepository(db)
	err = repo.UpdateDeliveryStatus(context.Background(), "reg-uuid-1", domain.DeliveryStatusFailed, &detail)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_UpdateDeliveryStatus_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE registrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRegistrationRepository(db)
	err = repo.UpdateDeliveryStatus(context.Background(), "missing", domain.DeliveryStatusSent, nil)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistrationRepository_ListByBirthday(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "event_id", "first_name", "last_name", "email", "phone",
		"birth_date", "token", "delivery_status", "delivery_error", "created_at",
	}).AddRow(
		"reg-uuid-1", "event-uuid-1", "Mario", "Rossi", "mario.rossi@example.org", "",
		time.Date(1990, 6, 25, 0, 0, 0, 0, time.UTC), "tok", "sent", nil, time.Now(),
	)
	mock.ExpectQuery(`SELECT id, event_id`).
		WithArgs(6, 25).
		WillReturnRows(rows)

	repo := NewRegistrationRepository(db)
	regs, err := repo.ListByBirthday(context.Background(), 6, 25)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, "Mario", regs[0].FirstName)
	require.Nil(t, regs[0].DeliveryError)
	require.NoError(t, mock.ExpectationsWereMet())
}
