package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swifttransit/booking-backend/internal/models"
)

func newLedgerMock(t *testing.T) (*LedgerRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLedgerRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func sampleEntry() models.LedgerEntry {
	return models.LedgerEntry{
		DebitAccount:  models.LedgerAccountCash,
		CreditAccount: models.LedgerAccountTripRevenue,
		Amount:        10500,
		Currency:      "GHS",
		BookingCode:   "BKA2B3C4",
		TripID:        "64f000000000000000000001",
		Memo:          "booking payment",
		RecordedAt:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestRecordEntry_WritesBalancedPair(t *testing.T) {
	repo, mock := newLedgerMock(t)
	entry := sampleEntry()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), entry.DebitAccount, "debit",
			entry.Amount, entry.Currency, entry.BookingCode, entry.TripID, entry.Memo, entry.RecordedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), entry.CreditAccount, "credit",
			entry.Amount, entry.Currency, entry.BookingCode, entry.TripID, entry.Memo, entry.RecordedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RecordEntry(context.Background(), entry)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEntry_RollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newLedgerMock(t)
	entry := sampleEntry()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.RecordEntry(context.Background(), entry)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEntry_RejectsInvalidEntries(t *testing.T) {
	repo, mock := newLedgerMock(t)

	tests := []struct {
		name   string
		mutate func(*models.LedgerEntry)
	}{
		{"zero amount", func(e *models.LedgerEntry) { e.Amount = 0 }},
		{"negative amount", func(e *models.LedgerEntry) { e.Amount = -100 }},
		{"missing debit account", func(e *models.LedgerEntry) { e.DebitAccount = "" }},
		{"missing credit account", func(e *models.LedgerEntry) { e.CreditAccount = "" }},
		{"same account both sides", func(e *models.LedgerEntry) { e.CreditAccount = e.DebitAccount }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := sampleEntry()
			tt.mutate(&entry)
			err := repo.RecordEntry(context.Background(), entry)
			require.Error(t, err)
		})
	}

	// No invalid entry may reach the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}
