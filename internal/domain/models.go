package domain

import "time"

type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
}

// Account holds one user's spendable credit balance. Balance is an integer
// count of credits and never goes negative.
type Account struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Balance   int64     `db:"balance"`
	UpdatedAt time.Time `db:"updated_at"`
}

type EntryKind string

const (
	KindTransfer      EntryKind = "transfer"
	KindPaymentCredit EntryKind = "payment_credit"
	KindAdminGift     EntryKind = "admin_gift"
	KindSpend         EntryKind = "spend"
	KindRefund        EntryKind = "refund"
)

// LedgerEntry is one immutable audit record of a balance-affecting event.
// FromUserID is nil for externally funded credits (payments). ToUserID is
// nil for pure debits (spend). ExternalRef carries the payment id for
// payment_credit entries.
type LedgerEntry struct {
	ID          int64     `db:"id"`
	FromUserID  *string   `db:"from_user_id"`
	ToUserID    *string   `db:"to_user_id"`
	Amount      int64     `db:"amount"`
	Kind        EntryKind `db:"kind"`
	ExternalRef *string   `db:"external_ref"`
	Note        string    `db:"note"`
	CreatedAt   time.Time `db:"created_at"`
}

const (
	SettlementPending   = "pending"
	SettlementProcessed = "processed"
	SettlementFailed    = "failed"

	// SettlementAlreadyProcessed is never stored: it is the response status
	// for a replayed settlement, so callers can tell a replay from a fresh
	// grant.
	SettlementAlreadyProcessed = "already_processed"
)

// Settlement is the idempotency record for one external payment. The unique
// payment_id column is the reservation primitive: the first writer inserts
// the row, replays read back the stored result.
type Settlement struct {
	ID             int64     `db:"id"`
	PaymentID      string    `db:"payment_id"`
	UserID         string    `db:"user_id"`
	PaidAmount     int64     `db:"paid_amount"`
	CreditsGranted int64     `db:"credits_granted"`
	NewBalance     int64     `db:"new_balance"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// PricingRule maps an exact payment amount to the credits it grants.
// Amounts without a rule fall back to the configured default policy.
type PricingRule struct {
	Amount    int64     `db:"amount"`
	Credits   int64     `db:"credits"`
	UpdatedAt time.Time `db:"updated_at"`
}
