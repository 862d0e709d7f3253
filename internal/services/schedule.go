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

// ScheduleGenerator turns recurring-bill definitions into pending ledger
// entries, one per due date. Period index i always maps to
// NextDueDate(start, frequency, dueDay, i), so the schedule is a pure
// function of the definition and generation can restart from anywhere.
type ScheduleGenerator struct {
	repo *storage.Repository
}

func NewScheduleGenerator(repo *storage.Repository) *ScheduleGenerator {
	return &ScheduleGenerator{repo: repo}
}

// OccurrenceDates returns up to count due dates for a bill, starting at
// period zero (the clamped anchor-aligned date) and stopping early at the
// bill's end date. Pure; it never touches storage.
func OccurrenceDates(bill core.RecurringBill, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		due := core.NextDueDate(bill.StartDate, bill.Frequency, bill.DueDay, i)
		if bill.EndDate != nil && due.After(core.EndOfDay(*bill.EndDate)) {
			break
		}
		dates = append(dates, due)
	}
	return dates
}

// Materialize creates pending entries for every period of the bill that is
// due within horizon periods of now and not materialized yet, picking up
// after the highest period already present. The horizon is measured from now,
// not from the last generated period, so re-invoking on the same day is a
// no-op: the schedule never grows past now plus horizon. Each insert is keyed
// by (bill, period index), which keeps concurrent runs from duplicating a
// period. Paused and non-generating bills materialize nothing.
func (g *ScheduleGenerator) Materialize(ctx context.Context, bill core.RecurringBill, horizon int, now time.Time) (int, error) {
	if bill.Status != core.BillActive || !bill.AutoGenerate {
		return 0, nil
	}
	if err := bill.Validate(); err != nil {
		return 0, fmt.Errorf("materialize bill %s: %w", bill.ID, err)
	}

	start, err := g.repo.NextPeriodIndex(ctx, bill.ID)
	if err != nil {
		return 0, fmt.Errorf("materialize bill %s: %w", bill.ID, err)
	}

	// Due dates strictly increase per period, so the loop always terminates
	// at the horizon boundary.
	horizonEnd := core.NextDueDate(now, bill.Frequency, bill.DueDay, horizon)

	created := 0
	err = g.repo.RunAtomic(ctx, func(u *storage.Unit) error {
		for i := start; ; i++ {
			due := core.NextDueDate(bill.StartDate, bill.Frequency, bill.DueDay, int(i))
			if due.After(horizonEnd) {
				break
			}
			if bill.EndDate != nil && due.After(core.EndOfDay(*bill.EndDate)) {
				break
			}

			period := i
			entry := core.Entry{
				ID:              uuid.NewString(),
				TenantID:        bill.TenantID,
				Type:            bill.Type,
				Status:          core.StatusPending,
				Amount:          bill.Amount,
				Description:     fmt.Sprintf("%s (recurring)", bill.Name),
				TransactionDate: due,
				CategoryID:      bill.CategoryID,
				AccountID:       bill.AccountID,
				PaymentMethodID: bill.PaymentMethodID,
				RecurringBillID: &bill.ID,
				PeriodIndex:     &period,
				CreatedAt:       time.Now().UTC(),
			}

			inserted, err := u.InsertOccurrence(ctx, entry)
			if err != nil {
				return err
			}
			if inserted {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("materialize bill %s: %w", bill.ID, err)
	}

	if created > 0 {
		slog.InfoContext(ctx, "Materialized recurring occurrences",
			"bill_id", bill.ID,
			"tenant_id", bill.TenantID,
			"created", created,
			"frequency", bill.Frequency)
	}
	return created, nil
}
