package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"contas/internal/core"
	"contas/internal/storage"
)

// TransferService moves money between two accounts of the same tenant. The
// ledger entry, the source debit, and the destination credit commit in one
// atomic unit; a failure anywhere leaves both balances untouched.
type TransferService struct {
	repo *storage.Repository
	inv  *Invalidation
}

func NewTransferService(repo *storage.Repository, inv *Invalidation) *TransferService {
	if inv == nil {
		inv = NewInvalidation(nil)
	}
	return &TransferService{
		repo: repo,
		inv:  inv,
	}
}

// TransferInput describes a transfer to execute.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	Amount        core.Money
	Description   string
	Date          time.Time
}

// Execute validates in order (accounts present and distinct, amount positive,
// date present, both accounts owned by the tenant, source covers the amount)
// and then performs the transfer atomically. No partial transfer is ever
// observable.
func (s *TransferService) Execute(ctx context.Context, in TransferInput, tenantID string) (*core.Entry, error) {
	if in.FromAccountID == "" || in.ToAccountID == "" {
		return nil, core.ErrMissingAccounts
	}
	if in.FromAccountID == in.ToAccountID {
		return nil, core.ErrSameAccount
	}
	if err := in.Amount.Validate(); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		return nil, core.ErrMissingDate
	}

	from, err := s.repo.FindAccount(ctx, in.FromAccountID, tenantID)
	if err != nil {
		return nil, err
	}
	to, err := s.repo.FindAccount(ctx, in.ToAccountID, tenantID)
	if err != nil {
		return nil, err
	}

	// Pre-check for a friendly failure before opening the unit; the guarded
	// debit inside the unit is what actually prevents an overdraw under
	// concurrency.
	if from.Balance.Cents < in.Amount.Cents {
		return nil, core.ErrInsufficientBalance
	}

	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Transfer: %s -> %s", from.Name, to.Name)
	}

	entry := core.Entry{
		ID:                   uuid.NewString(),
		TenantID:             tenantID,
		Type:                 core.Transfer,
		Status:               core.StatusCompleted,
		Amount:               in.Amount,
		Description:          description,
		TransactionDate:      core.StartOfDay(in.Date),
		AccountID:            &in.FromAccountID,
		DestinationAccountID: &in.ToAccountID,
		CreatedAt:            time.Now().UTC(),
	}

	err = s.repo.RunAtomic(ctx, func(u *storage.Unit) error {
		if err := u.InsertEntry(ctx, entry); err != nil {
			return err
		}
		if err := u.DebitIfSufficient(ctx, in.FromAccountID, in.Amount.Cents); err != nil {
			return err
		}
		return u.ApplyBalanceDelta(ctx, in.ToAccountID, in.Amount.Cents)
	})
	if err != nil {
		return nil, fmt.Errorf("execute transfer: %w", err)
	}

	slog.InfoContext(ctx, "Transfer executed",
		"tenant_id", tenantID,
		"from_account", in.FromAccountID,
		"to_account", in.ToAccountID,
		"amount_cents", in.Amount.Cents)

	s.inv.Commit(ctx, tenantID)

	return &entry, nil
}
