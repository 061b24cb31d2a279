package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditAccount holds a user's spendable balance. Mutated exclusively
// through conditional updates at the storage layer.
type CreditAccount struct {
	UserID    uuid.UUID `db:"user_id"`
	Balance   int       `db:"balance"`
	UpdatedAt time.Time `db:"updated_at"`
}

// LedgerEntry is one append-only credit movement. Negative delta is a
// debit, positive a refund. For any task the entry deltas sum to -cost
// (processing or success) or 0 (failed and refunded), never anything else.
type LedgerEntry struct {
	ID           uuid.UUID `db:"id"`
	UserID       uuid.UUID `db:"user_id"`
	Delta        int       `db:"delta"`
	BalanceAfter int       `db:"balance_after"`
	TaskID       uuid.UUID `db:"task_id"`
	Description  string    `db:"description"`
	CreatedAt    time.Time `db:"created_at"`
}
