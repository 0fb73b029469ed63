package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/swifttransit/booking-backend/internal/models"
)

// LedgerRepository appends double-entry revenue records to Postgres. Each
// entry becomes one debit row and one credit row inside a single SQL
// transaction; an unbalanced entry is rejected before touching the database.
//
// Callers treat the ledger as fire-and-forget: failures are logged upstream,
// never propagated into the booking flow.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const insertLedgerRow = `
	INSERT INTO ledger_entries (
		id, entry_group, account, direction, amount_minor, currency,
		booking_code, trip_id, memo, recorded_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// RecordEntry appends one balanced debit/credit pair.
func (r *LedgerRepository) RecordEntry(ctx context.Context, entry models.LedgerEntry) error {
	if entry.Amount <= 0 {
		return fmt.Errorf("ledger entry amount must be positive, got %d", entry.Amount)
	}
	if entry.DebitAccount == "" || entry.CreditAccount == "" {
		return fmt.Errorf("ledger entry requires both debit and credit accounts")
	}
	if entry.DebitAccount == entry.CreditAccount {
		return fmt.Errorf("ledger entry cannot debit and credit the same account: %s", entry.DebitAccount)
	}

	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	group := uuid.New()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertLedgerRow,
		uuid.New(), group, entry.DebitAccount, "debit", entry.Amount, entry.Currency,
		entry.BookingCode, entry.TripID, entry.Memo, recordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert debit row: %w", err)
	}

	_, err = tx.ExecContext(ctx, insertLedgerRow,
		uuid.New(), group, entry.CreditAccount, "credit", entry.Amount, entry.Currency,
		entry.BookingCode, entry.TripID, entry.Memo, recordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert credit row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger entry: %w", err)
	}
	return nil
}
