package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"contas/internal/core"
)

// Unit is one atomic unit of work. Every write performed through it commits
// together or not at all; balance mutations are expressed as relative deltas
// evaluated inside the UPDATE itself, never as a read-modify-write of a
// previously fetched balance.
type Unit struct {
	tx *sql.Tx
}

// RunAtomic begins a transaction, runs fn against it, and commits on success.
// Any error from fn rolls everything back and is returned unchanged; commit
// and rollback failures are wrapped and surfaced, never swallowed.
func (r *Repository) RunAtomic(ctx context.Context, fn func(u *Unit) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin atomic unit: %w", err)
	}

	if err := fn(&Unit{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback atomic unit after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit atomic unit: %w", err)
	}
	return nil
}

// InsertEntry persists a ledger entry.
func (u *Unit) InsertEntry(ctx context.Context, e core.Entry) error {
	_, err := u.tx.ExecContext(ctx,
		`INSERT INTO entries
		   (id, tenant_id, type, status, amount_cents, description,
		    transaction_date, category_id, account_id, payment_method_id,
		    destination_account_id, recurring_bill_id, period_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, string(e.Type), string(e.Status), e.Amount.Cents,
		e.Description, e.TransactionDate, nullStr(e.CategoryID),
		nullStr(e.AccountID), nullStr(e.PaymentMethodID),
		nullStr(e.DestinationAccountID), nullStr(e.RecurringBillID),
		nullInt(e.PeriodIndex), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// InsertOccurrence inserts a materialized occurrence entry and reports whether
// a row was actually written. A (recurring_bill_id, period_index) pair that
// already exists is silently skipped, which makes materialization idempotent
// even across concurrent generator runs.
func (u *Unit) InsertOccurrence(ctx context.Context, e core.Entry) (bool, error) {
	res, err := u.tx.ExecContext(ctx,
		`INSERT INTO entries
		   (id, tenant_id, type, status, amount_cents, description,
		    transaction_date, category_id, account_id, payment_method_id,
		    destination_account_id, recurring_bill_id, period_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (recurring_bill_id, period_index)
		 WHERE recurring_bill_id IS NOT NULL DO NOTHING`,
		e.ID, e.TenantID, string(e.Type), string(e.Status), e.Amount.Cents,
		e.Description, e.TransactionDate, nullStr(e.CategoryID),
		nullStr(e.AccountID), nullStr(e.PaymentMethodID),
		nullStr(e.DestinationAccountID), nullStr(e.RecurringBillID),
		nullInt(e.PeriodIndex), e.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert occurrence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert occurrence: %w", err)
	}
	return n > 0, nil
}

// UpdateEntry rewrites the mutable fields of an entry.
func (u *Unit) UpdateEntry(ctx context.Context, e core.Entry) error {
	res, err := u.tx.ExecContext(ctx,
		`UPDATE entries
		    SET type = ?, status = ?, amount_cents = ?, description = ?,
		        transaction_date = ?, category_id = ?, account_id = ?,
		        payment_method_id = ?
		  WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		string(e.Type), string(e.Status), e.Amount.Cents, e.Description,
		e.TransactionDate, nullStr(e.CategoryID), nullStr(e.AccountID),
		nullStr(e.PaymentMethodID), e.ID, e.TenantID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return mustAffect(res, core.ErrTransactionNotFound)
}

// SoftDeleteEntry stamps deleted_at; the row is never physically removed.
func (u *Unit) SoftDeleteEntry(ctx context.Context, id, tenantID string, at time.Time) error {
	res, err := u.tx.ExecContext(ctx,
		`UPDATE entries SET deleted_at = ?
		  WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		at, id, tenantID)
	if err != nil {
		return fmt.Errorf("soft delete entry: %w", err)
	}
	return mustAffect(res, core.ErrTransactionNotFound)
}

// ApplyBalanceDelta shifts an account balance by delta, server-side.
func (u *Unit) ApplyBalanceDelta(ctx context.Context, accountID string, delta int64) error {
	res, err := u.tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ?
		  WHERE id = ? AND deleted_at IS NULL`,
		delta, accountID)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	return mustAffect(res, core.ErrAccountNotFound)
}

// DebitIfSufficient debits amountCents from an account only if the balance
// covers it (equality permitted). The guard lives in the UPDATE, so two
// concurrent transfers draining the same account serialize on the row and the
// loser fails with core.ErrInsufficientBalance instead of overdrawing.
func (u *Unit) DebitIfSufficient(ctx context.Context, accountID string, amountCents int64) error {
	res, err := u.tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents - ?
		  WHERE id = ? AND deleted_at IS NULL AND balance_cents >= ?`,
		amountCents, accountID, amountCents)
	if err != nil {
		return fmt.Errorf("debit account: %w", err)
	}
	return mustAffect(res, core.ErrInsufficientBalance)
}

func mustAffect(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}
