package models

import "time"

// Well-known ledger accounts used by settlement and cancellation.
const (
	LedgerAccountCash        = "cash"
	LedgerAccountTripRevenue = "trip_revenue"
	LedgerAccountRefunds     = "refunds_payable"
)

// LedgerEntry is one double-entry revenue record: a debit and a credit of
// equal amount. The ledger adapter rejects unbalanced entries.
type LedgerEntry struct {
	DebitAccount  string
	CreditAccount string
	Amount        int64 // minor currency units
	Currency      string
	BookingCode   string
	TripID        string
	Memo          string
	RecordedAt    time.Time
}
