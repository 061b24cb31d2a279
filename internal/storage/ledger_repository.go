package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"media_gateway/internal/models"
)

// LedgerRepository handles credit accounts and the append-only ledger.
// Balance mutations are conditional atomic updates, never read-modify-write,
// so concurrent processes cannot double-charge or double-refund.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new credit ledger repository
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetBalance returns the user's current balance
func (r *LedgerRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.db.conn.GetContext(ctx, &balance,
		`SELECT balance FROM credit_accounts WHERE user_id = $1`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Reserve atomically debits the user's balance by the task's cost, creates
// the task row in processing, and appends the debit ledger entry. Either
// all three happen or none do. Returns ErrInsufficientBalance when the
// conditional debit matches no row with enough credit.
func (r *LedgerRepository) Reserve(ctx context.Context, task *models.GenerationTask) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balanceAfter int
	err = tx.GetContext(ctx, &balanceAfter, `
		UPDATE credit_accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`, task.UserID, task.Cost)
	if err != nil {
		if err == sql.ErrNoRows {
			// Distinguish a missing account from an overdraw.
			if _, berr := r.GetBalance(ctx, task.UserID); berr == ErrAccountNotFound {
				return 0, ErrAccountNotFound
			}
			return 0, ErrInsufficientBalance
		}
		return 0, fmt.Errorf("failed to debit balance: %w", err)
	}

	if err := insertTask(ctx, tx, task); err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}

	entry := &models.LedgerEntry{
		ID:           uuid.New(),
		UserID:       task.UserID,
		Delta:        -task.Cost,
		BalanceAfter: balanceAfter,
		TaskID:       task.ID,
		Description:  fmt.Sprintf("generation %s: %s", task.TaskType, task.ModelName),
	}
	if err := insertLedgerEntry(ctx, tx, entry); err != nil {
		return 0, fmt.Errorf("failed to append debit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reserve: %w", err)
	}
	return balanceAfter, nil
}

// RefundFailure transitions the task to failed and credits its cost back,
// appending the refund entry, all inside one transaction conditional on
// the task still being in processing. A task already finalized (perhaps by
// a concurrent retry whose response actually succeeded) makes the whole
// call a no-op, which is what prevents double refunds. Returns whether the
// transition happened.
func (r *LedgerRepository) RefundFailure(ctx context.Context, taskID uuid.UUID, reason string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var task models.GenerationTask
	err = tx.GetContext(ctx, &task, `
		UPDATE generation_tasks
		SET status = $2, fail_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING `+taskColumns,
		taskID, models.TaskStatusFailed, reason, models.TaskStatusProcessing)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil // already terminal
		}
		return false, fmt.Errorf("failed to mark task failed: %w", err)
	}

	if task.Cost > 0 {
		var balanceAfter int
		err = tx.GetContext(ctx, &balanceAfter, `
			UPDATE credit_accounts
			SET balance = balance + $2, updated_at = NOW()
			WHERE user_id = $1
			RETURNING balance
		`, task.UserID, task.Cost)
		if err != nil {
			return false, fmt.Errorf("failed to refund balance: %w", err)
		}

		entry := &models.LedgerEntry{
			ID:           uuid.New(),
			UserID:       task.UserID,
			Delta:        task.Cost,
			BalanceAfter: balanceAfter,
			TaskID:       task.ID,
			Description:  "refund: " + reason,
		}
		if err := insertLedgerEntry(ctx, tx, entry); err != nil {
			return false, fmt.Errorf("failed to append refund entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit refund: %w", err)
	}
	return true, nil
}

// SumDeltasForTask returns the sum of all ledger deltas referencing the
// task. For a healthy task this is -cost (processing or success) or 0
// (failed and refunded).
func (r *LedgerRepository) SumDeltasForTask(ctx context.Context, taskID uuid.UUID) (int, error) {
	var sum int
	err := r.db.conn.GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE task_id = $1`, taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger deltas: %w", err)
	}
	return sum, nil
}

func insertLedgerEntry(ctx context.Context, tx execer, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, user_id, delta, balance_after, task_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.Delta, entry.BalanceAfter, entry.TaskID, entry.Description)
	return err
}
