// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"contas/internal/core"
	"contas/internal/storage"
)

// LedgerService creates, updates, soft-deletes, and reads ledger entries,
// keeping account balances consistent with the completed entries that touch
// them. All validation happens before any write; every write that moves money
// runs inside one atomic unit.
type LedgerService struct {
	repo *storage.Repository
	inv  *Invalidation
}

func NewLedgerService(repo *storage.Repository, inv *Invalidation) *LedgerService {
	if inv == nil {
		inv = NewInvalidation(nil)
	}
	return &LedgerService{
		repo: repo,
		inv:  inv,
	}
}

// CreateEntryInput is the caller-supplied shape of a new entry.
type CreateEntryInput struct {
	Type            core.MovementType
	Amount          core.Money
	Description     string
	TransactionDate time.Time
	Status          core.EntryStatus // empty means pending
	CategoryID      *string
	AccountID       *string
	PaymentMethodID *string
}

// Create validates every reference, persists the entry, and applies its
// balance delta in the same atomic unit when the entry is completed and
// attached to an account. Pending entries never move money.
func (s *LedgerService) Create(ctx context.Context, in CreateEntryInput, tenantID string) (*core.Entry, error) {
	status := in.Status
	if status == "" {
		status = core.StatusPending
	}

	entry := core.Entry{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		Type:            in.Type,
		Status:          status,
		Amount:          in.Amount,
		Description:     in.Description,
		TransactionDate: in.TransactionDate,
		CategoryID:      in.CategoryID,
		AccountID:       in.AccountID,
		PaymentMethodID: in.PaymentMethodID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.validateReferences(ctx, tenantID, entry.Type, entry.CategoryID, entry.AccountID, entry.PaymentMethodID); err != nil {
		return nil, err
	}

	// A pending entry dated today or earlier is treated as already settled.
	if entry.Status == core.StatusPending && !entry.TransactionDate.After(core.EndOfDay(time.Now().UTC())) {
		entry.Status = core.StatusCompleted
	}

	err := s.repo.RunAtomic(ctx, func(u *storage.Unit) error {
		if err := u.InsertEntry(ctx, entry); err != nil {
			return err
		}
		if entry.Status == core.StatusCompleted && entry.AccountID != nil {
			return u.ApplyBalanceDelta(ctx, *entry.AccountID, core.SignedDelta(entry.Type, entry.Amount))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create ledger entry: %w", err)
	}

	slog.InfoContext(ctx, "Ledger entry created",
		"id", entry.ID,
		"tenant_id", tenantID,
		"type", entry.Type,
		"status", entry.Status,
		"amount_cents", entry.Amount.Cents)

	s.inv.Commit(ctx, tenantID)
	return &entry, nil
}

// UpdateEntryInput patches an entry; nil fields keep their current value.
type UpdateEntryInput struct {
	Type            *core.MovementType
	Amount          *core.Money
	Description     *string
	TransactionDate *time.Time
	Status          *core.EntryStatus
	CategoryID      *string
	AccountID       *string
	PaymentMethodID *string
}

// Update looks up the entry scoped by tenant, re-validates any changed
// reference, then atomically reverses the old balance effect and applies the
// new one alongside the field update.
func (s *LedgerService) Update(ctx context.Context, id string, patch UpdateEntryInput, tenantID string) (*core.Entry, error) {
	existing, err := s.repo.GetEntry(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if patch.Type != nil {
		updated.Type = *patch.Type
	}
	if patch.Amount != nil {
		updated.Amount = *patch.Amount
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.TransactionDate != nil {
		updated.TransactionDate = *patch.TransactionDate
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.CategoryID != nil {
		updated.CategoryID = patch.CategoryID
	}
	if patch.AccountID != nil {
		updated.AccountID = patch.AccountID
	}
	if patch.PaymentMethodID != nil {
		updated.PaymentMethodID = patch.PaymentMethodID
	}

	if err := updated.Validate(); err != nil {
		return nil, err
	}

	// Only references the patch touches are re-checked; a category that was
	// deleted after the entry was written must not block an unrelated field
	// change. A type change re-checks the category because the type-match
	// rule depends on it.
	if patch.Type != nil || patch.CategoryID != nil {
		if err := s.validateCategory(ctx, tenantID, updated.Type, updated.CategoryID); err != nil {
			return nil, err
		}
	}
	if patch.AccountID != nil {
		if _, err := s.repo.FindAccount(ctx, *patch.AccountID, tenantID); err != nil {
			return nil, err
		}
	}
	if patch.PaymentMethodID != nil {
		if _, err := s.repo.FindPaymentMethod(ctx, *patch.PaymentMethodID, tenantID); err != nil {
			return nil, err
		}
	}

	err = s.repo.RunAtomic(ctx, func(u *storage.Unit) error {
		if existing.Status == core.StatusCompleted && existing.AccountID != nil {
			if err := u.ApplyBalanceDelta(ctx, *existing.AccountID, -core.SignedDelta(existing.Type, existing.Amount)); err != nil {
				return err
			}
		}
		if err := u.UpdateEntry(ctx, updated); err != nil {
			return err
		}
		if updated.Status == core.StatusCompleted && updated.AccountID != nil {
			return u.ApplyBalanceDelta(ctx, *updated.AccountID, core.SignedDelta(updated.Type, updated.Amount))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update ledger entry: %w", err)
	}

	slog.InfoContext(ctx, "Ledger entry updated", "id", id, "tenant_id", tenantID)

	s.inv.Commit(ctx, tenantID)
	return &updated, nil
}

// Delete soft-deletes an entry and reverses its completed balance effect in
// the same atomic unit. A second delete, a wrong tenant, or a wrong id all
// surface as core.ErrTransactionNotFound.
func (s *LedgerService) Delete(ctx context.Context, id, tenantID string) error {
	existing, err := s.repo.GetEntry(ctx, id, tenantID)
	if err != nil {
		return err
	}

	err = s.repo.RunAtomic(ctx, func(u *storage.Unit) error {
		if existing.Status == core.StatusCompleted && existing.AccountID != nil {
			if err := u.ApplyBalanceDelta(ctx, *existing.AccountID, -core.SignedDelta(existing.Type, existing.Amount)); err != nil {
				return err
			}
		}
		return u.SoftDeleteEntry(ctx, id, tenantID, time.Now().UTC())
	})
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}

	slog.InfoContext(ctx, "Ledger entry deleted", "id", id, "tenant_id", tenantID)

	s.inv.Commit(ctx, tenantID)
	return nil
}

// GetByID returns a single entry scoped by tenant.
func (s *LedgerService) GetByID(ctx context.Context, id, tenantID string) (*core.Entry, error) {
	return s.repo.GetEntry(ctx, id, tenantID)
}

// Page is one page of entries plus pagination totals.
type Page struct {
	Entries    []core.Entry
	Total      int64
	PageNumber int
	Limit      int
	TotalPages int
}

// GetAll lists a tenant's entries, newest first, with the filter applied.
func (s *LedgerService) GetAll(ctx context.Context, tenantID string, f storage.EntryFilter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 50
	}

	entries, total, err := s.repo.ListEntries(ctx, tenantID, f)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	totalPages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return &Page{
		Entries:    entries,
		Total:      total,
		PageNumber: f.Page,
		Limit:      f.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetSummary aggregates completed entries for the filter. The derived fields
// hold for every filter combination, including the empty set. Results are
// cached until the next commit for the tenant.
func (s *LedgerService) GetSummary(ctx context.Context, tenantID string, f storage.EntryFilter) (core.Summary, error) {
	key := summaryKey(tenantID, f)
	if cached, ok := s.inv.Summary(key); ok {
		return cached, nil
	}

	summary, err := s.repo.Summarize(ctx, tenantID, f)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summarize ledger: %w", err)
	}

	s.inv.SaveSummary(key, tenantID, summary)
	return summary, nil
}

// summaryKey fingerprints a tenant-scoped filter. Every part carries its
// field name so that equal values in different fields never share a key;
// pagination fields are left out because Summarize ignores them.
func summaryKey(tenantID string, f storage.EntryFilter) string {
	var b strings.Builder
	b.WriteString("summary:")
	b.WriteString(tenantID)
	part := func(field, value string) {
		b.WriteByte('|')
		b.WriteString(field)
		b.WriteByte('=')
		b.WriteString(value)
	}
	if f.Type != nil {
		part("type", string(*f.Type))
	}
	if f.Status != nil {
		part("status", string(*f.Status))
	}
	if f.CategoryID != nil {
		part("category", *f.CategoryID)
	}
	if f.AccountID != nil {
		part("account", *f.AccountID)
	}
	if f.PaymentMethodID != nil {
		part("method", *f.PaymentMethodID)
	}
	if f.StartDate != nil && f.EndDate != nil {
		part("from", f.StartDate.Format(time.DateOnly))
		part("to", f.EndDate.Format(time.DateOnly))
	}
	return b.String()
}

// validateReferences checks every supplied reference against the tenant
// before any write. Categories are required for income and expense entries
// and must type-match; transfers may omit them.
func (s *LedgerService) validateReferences(ctx context.Context, tenantID string, movement core.MovementType, categoryID, accountID, paymentMethodID *string) error {
	if err := s.validateCategory(ctx, tenantID, movement, categoryID); err != nil {
		return err
	}

	if accountID != nil {
		if _, err := s.repo.FindAccount(ctx, *accountID, tenantID); err != nil {
			return err
		}
	}

	if paymentMethodID != nil {
		if _, err := s.repo.FindPaymentMethod(ctx, *paymentMethodID, tenantID); err != nil {
			return err
		}
	}

	return nil
}

func (s *LedgerService) validateCategory(ctx context.Context, tenantID string, movement core.MovementType, categoryID *string) error {
	if movement == core.Transfer {
		if categoryID == nil {
			return nil
		}
		_, err := s.repo.FindCategory(ctx, *categoryID, tenantID)
		return err
	}
	if categoryID == nil {
		return core.ErrMissingCategory
	}
	category, err := s.repo.FindCategory(ctx, *categoryID, tenantID)
	if err != nil {
		return err
	}
	if category.Type != movement {
		return core.ErrCategoryTypeMismatch
	}
	return nil
}

