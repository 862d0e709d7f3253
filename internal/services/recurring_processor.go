package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/storage"
)

// RecurringProcessor runs the periodic generation pass: for every tenant it
// materializes upcoming occurrences of active bills and flips pending entries
// whose date has passed to overdue.
type RecurringProcessor struct {
	repo      *storage.Repository
	generator *ScheduleGenerator
	inv       *Invalidation
	// horizon is how many periods ahead each bill is materialized.
	horizon int
	// concurrency bounds the number of tenants processed in parallel.
	concurrency int
}

func NewRecurringProcessor(repo *storage.Repository, generator *ScheduleGenerator, inv *Invalidation, horizon, concurrency int) *RecurringProcessor {
	if horizon < 1 {
		horizon = 3
	}
	if concurrency < 1 {
		concurrency = 4
	}
	if inv == nil {
		inv = NewInvalidation(nil)
	}
	return &RecurringProcessor{
		repo:        repo,
		generator:   generator,
		inv:         inv,
		horizon:     horizon,
		concurrency: concurrency,
	}
}

// Result summarizes one processing pass.
type Result struct {
	Tenants      int
	Materialized int64
	Overdue      int64
}

// ProcessAll runs one pass over every tenant. Tenants are independent, so
// they fan out on an errgroup; the first failing tenant cancels the rest.
func (p *RecurringProcessor) ProcessAll(ctx context.Context, now time.Time) (Result, error) {
	tenants, err := p.repo.ListTenants(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("process recurring schedules: %w", err)
	}

	var materialized, overdue atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, tenantID := range tenants {
		tenantID := tenantID
		g.Go(func() error {
			m, o, err := p.processTenant(gctx, tenantID, now)
			if err != nil {
				return err
			}
			materialized.Add(m)
			overdue.Add(o)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{
		Tenants:      len(tenants),
		Materialized: materialized.Load(),
		Overdue:      overdue.Load(),
	}
	slog.InfoContext(ctx, "Recurring schedule pass complete",
		"tenants", result.Tenants,
		"materialized", result.Materialized,
		"overdue", result.Overdue)
	return result, nil
}

func (p *RecurringProcessor) processTenant(ctx context.Context, tenantID string, now time.Time) (int64, int64, error) {
	bills, err := p.repo.ListActiveBills(ctx, tenantID)
	if err != nil {
		return 0, 0, fmt.Errorf("tenant %s: %w", tenantID, err)
	}

	var materialized int64
	for _, bill := range bills {
		created, err := p.generator.Materialize(ctx, bill, p.horizon, now)
		if err != nil {
			// One broken definition must not stall the whole tenant.
			slog.ErrorContext(ctx, "Failed to materialize bill",
				"bill_id", bill.ID,
				"tenant_id", tenantID,
				"error", err)
			continue
		}
		materialized += int64(created)
	}

	overdue, err := p.repo.MarkOverdue(ctx, tenantID, now)
	if err != nil {
		return materialized, 0, fmt.Errorf("tenant %s: %w", tenantID, err)
	}

	if materialized > 0 || overdue > 0 {
		p.inv.Commit(ctx, tenantID)
	}
	return materialized, overdue, nil
}
