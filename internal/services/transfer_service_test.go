package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"contas/internal/core"
	"contas/internal/storage"
)

func seedTransferFixtures(t *testing.T, repo *storage.Repository) {
	t.Helper()
	ctx := context.Background()
	if err := repo.CreateTenant(ctx, "t1", "tenant one"); err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}
	accounts := []struct {
		id    string
		cents int64
	}{
		{"acc-checking", 500_00},
		{"acc-savings", 100_00},
	}
	for _, a := range accounts {
		err := repo.CreateAccount(ctx, core.Account{
			ID: a.id, TenantID: "t1", Name: a.id, Balance: core.Money{Cents: a.cents},
		})
		if err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
	}
}

func TestTransferMovesMoneyAtomically(t *testing.T) {
	repo := newTestRepository(t)
	seedTransferFixtures(t, repo)
	rec := &recordingInvalidator{}
	svc := NewTransferService(repo, NewInvalidation(rec))
	ctx := context.Background()

	e, err := svc.Execute(ctx, TransferInput{
		FromAccountID: "acc-checking",
		ToAccountID:   "acc-savings",
		Amount:        core.Money{Cents: 200_00},
		Date:          time.Now().UTC(),
	}, "t1")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if got := accountBalance(t, repo, "t1", "acc-checking"); got != 300_00 {
		t.Errorf("source balance = %d, want 30000", got)
	}
	if got := accountBalance(t, repo, "t1", "acc-savings"); got != 300_00 {
		t.Errorf("destination balance = %d, want 30000", got)
	}

	if e.Type != core.Transfer || e.Status != core.StatusCompleted {
		t.Errorf("entry = %s/%s, want transfer/completed", e.Type, e.Status)
	}
	if e.AccountID == nil || *e.AccountID != "acc-checking" {
		t.Errorf("entry source = %v, want acc-checking", e.AccountID)
	}
	if e.DestinationAccountID == nil || *e.DestinationAccountID != "acc-savings" {
		t.Errorf("entry destination = %v, want acc-savings", e.DestinationAccountID)
	}
	if e.Description == "" {
		t.Error("default description should name both accounts")
	}

	got, err := repo.GetEntry(ctx, e.ID, "t1")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got.Amount.Cents != 200_00 {
		t.Errorf("persisted amount = %d, want 20000", got.Amount.Cents)
	}

	if rec.count() != 1 {
		t.Errorf("invalidations = %d, want 1", rec.count())
	}
}

func TestTransferEvictsCachedSummary(t *testing.T) {
	repo := newTestRepository(t)
	seedTransferFixtures(t, repo)
	hub := NewInvalidation(nil)
	ledger := NewLedgerService(repo, hub)
	transfers := NewTransferService(repo, hub)
	ctx := context.Background()

	// Prime the summary cache before any transfer exists.
	s, err := ledger.GetSummary(ctx, "t1", storage.EntryFilter{})
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if s.TransferCount != 0 {
		t.Fatalf("TransferCount = %d, want 0 before the transfer", s.TransferCount)
	}

	_, err = transfers.Execute(ctx, TransferInput{
		FromAccountID: "acc-checking",
		ToAccountID:   "acc-savings",
		Amount:        core.Money{Cents: 300_00},
		Date:          time.Now().UTC(),
	}, "t1")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// The transfer commit shares the hub with the ledger, so the stale
	// summary must be gone immediately, not after the TTL.
	s, err = ledger.GetSummary(ctx, "t1", storage.EntryFilter{})
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if s.TransferCount != 1 {
		t.Errorf("TransferCount = %d after the transfer, want 1", s.TransferCount)
	}
	if s.TotalTransfers.Cents != 300_00 {
		t.Errorf("TotalTransfers = %d, want 30000", s.TotalTransfers.Cents)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	repo := newTestRepository(t)
	seedTransferFixtures(t, repo)
	svc := NewTransferService(repo, nil)
	ctx := context.Background()

	_, err := svc.Execute(ctx, TransferInput{
		FromAccountID: "acc-savings",
		ToAccountID:   "acc-checking",
		Amount:        core.Money{Cents: 100_01},
		Date:          time.Now().UTC(),
	}, "t1")
	if !errors.Is(err, core.ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}

	// Neither side may have moved, and no entry may exist.
	if got := accountBalance(t, repo, "t1", "acc-savings"); got != 100_00 {
		t.Errorf("source balance = %d, want 10000 untouched", got)
	}
	if got := accountBalance(t, repo, "t1", "acc-checking"); got != 500_00 {
		t.Errorf("destination balance = %d, want 50000 untouched", got)
	}
	_, total, err := repo.ListEntries(ctx, "t1", storage.EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if total != 0 {
		t.Errorf("entries = %d, failed transfer must leave no ledger row", total)
	}
}

func TestTransferExactBalanceDrainsToZero(t *testing.T) {
	repo := newTestRepository(t)
	seedTransferFixtures(t, repo)
	svc := NewTransferService(repo, nil)

	_, err := svc.Execute(context.Background(), TransferInput{
		FromAccountID: "acc-savings",
		ToAccountID:   "acc-checking",
		Amount:        core.Money{Cents: 100_00},
		Date:          time.Now().UTC(),
	}, "t1")
	if err != nil {
		t.Fatalf("transfer of the full balance should succeed: %v", err)
	}
	if got := accountBalance(t, repo, "t1", "acc-savings"); got != 0 {
		t.Errorf("source balance = %d, want 0", got)
	}
}

func TestTransferValidation(t *testing.T) {
	repo := newTestRepository(t)
	seedTransferFixtures(t, repo)
	svc := NewTransferService(repo, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	tests := []struct {
		name    string
		in      TransferInput
		wantErr error
	}{
		{
			"missing source",
			TransferInput{ToAccountID: "acc-savings", Amount: core.Money{Cents: 100}, Date: now},
			core.ErrMissingAccounts,
		},
		{
			"missing destination",
			TransferInput{FromAccountID: "acc-checking", Amount: core.Money{Cents: 100}, Date: now},
			core.ErrMissingAccounts,
		},
		{
			"same account",
			TransferInput{FromAccountID: "acc-checking", ToAccountID: "acc-checking", Amount: core.Money{Cents: 100}, Date: now},
			core.ErrSameAccount,
		},
		{
			"zero amount",
			TransferInput{FromAccountID: "acc-checking", ToAccountID: "acc-savings", Date: now},
			core.ErrInvalidAmount,
		},
		{
			"negative amount",
			TransferInput{FromAccountID: "acc-checking", ToAccountID: "acc-savings", Amount: core.Money{Cents: -1}, Date: now},
			core.ErrInvalidAmount,
		},
		{
			"missing date",
			TransferInput{FromAccountID: "acc-checking", ToAccountID: "acc-savings", Amount: core.Money{Cents: 100}},
			core.ErrMissingDate,
		},
		{
			"unknown source",
			TransferInput{FromAccountID: "nope", ToAccountID: "acc-savings", Amount: core.Money{Cents: 100}, Date: now},
			core.ErrAccountNotFound,
		},
		{
			"unknown destination",
			TransferInput{FromAccountID: "acc-checking", ToAccountID: "nope", Amount: core.Money{Cents: 100}, Date: now},
			core.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Execute(ctx, tt.in, "t1"); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := accountBalance(t, repo, "t1", "acc-checking"); got != 500_00 {
		t.Errorf("balance = %d, rejected transfers must not move money", got)
	}
}
