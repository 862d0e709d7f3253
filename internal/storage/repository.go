package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"contas/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the SQLite persistence layer. All reads are tenant-scoped and
// exclude soft-deleted rows; writes that touch balances go through RunAtomic.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Single connection: SQLite allows one writer at a time and this keeps
	// concurrent atomic units serialized instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Schema expectations are settled here, at startup; queries never probe
	// for missing tables at call time.
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTenant persists a tenant.
func (r *Repository) CreateTenant(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// ListTenants returns the ids of all tenants, for worker passes.
func (r *Repository) ListTenants(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateAccount persists an account with its opening balance.
func (r *Repository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, tenant_id, name, balance_cents) VALUES (?, ?, ?, ?)`,
		a.ID, a.TenantID, a.Name, a.Balance.Cents)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// CreateCategory persists a category.
func (r *Repository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, tenant_id, name, type) VALUES (?, ?, ?, ?)`,
		c.ID, c.TenantID, c.Name, string(c.Type))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// SoftDeleteCategory marks a category deleted; existing entries keep their
// reference but lookups stop resolving it.
func (r *Repository) SoftDeleteCategory(ctx context.Context, id, tenantID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories
		    SET deleted_at = CURRENT_TIMESTAMP
		  WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		id, tenantID)
	if err != nil {
		return fmt.Errorf("soft delete category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete category: %w", err)
	}
	if affected == 0 {
		return core.ErrCategoryNotFound
	}
	return nil
}

// CreatePaymentMethod persists a payment method.
func (r *Repository) CreatePaymentMethod(ctx context.Context, p core.PaymentMethod) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_methods (id, tenant_id, name) VALUES (?, ?, ?)`,
		p.ID, p.TenantID, p.Name)
	if err != nil {
		return fmt.Errorf("create payment method: %w", err)
	}
	return nil
}

// CreateBill persists a recurring-bill definition.
func (r *Repository) CreateBill(ctx context.Context, b core.RecurringBill) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_bills
		   (id, tenant_id, name, type, amount_cents, frequency, due_day,
		    start_date, end_date, status, auto_generate,
		    category_id, account_id, payment_method_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.TenantID, b.Name, string(b.Type), b.Amount.Cents,
		string(b.Frequency), b.DueDay, b.StartDate, nullTime(b.EndDate),
		string(b.Status), b.AutoGenerate,
		nullStr(b.CategoryID), nullStr(b.AccountID), nullStr(b.PaymentMethodID))
	if err != nil {
		return fmt.Errorf("create recurring bill: %w", err)
	}
	return nil
}

// FindAccount looks up an account scoped by tenant, excluding soft-deleted
// rows. Absence for any reason yields core.ErrAccountNotFound.
func (r *Repository) FindAccount(ctx context.Context, id, tenantID string) (*core.Account, error) {
	var a core.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, balance_cents
		   FROM accounts
		  WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		id, tenantID).Scan(&a.ID, &a.TenantID, &a.Name, &a.Balance.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

// FindCategory looks up a category scoped by tenant.
func (r *Repository) FindCategory(ctx context.Context, id, tenantID string) (*core.Category, error) {
	var c core.Category
	var typ string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, type
		   FROM categories
		  WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		id, tenantID).Scan(&c.ID, &c.TenantID, &c.Name, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	c.Type = core.MovementType(typ)
	return &c, nil
}

// FindPaymentMethod looks up a payment method scoped by tenant.
func (r *Repository) FindPaymentMethod(ctx context.Context, id, tenantID string) (*core.PaymentMethod, error) {
	var p core.PaymentMethod
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name
		   FROM payment_methods
		  WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		id, tenantID).Scan(&p.ID, &p.TenantID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find payment method: %w", err)
	}
	return &p, nil
}

const entryColumns = `id, tenant_id, type, status, amount_cents, description,
	transaction_date, category_id, account_id, payment_method_id,
	destination_account_id, recurring_bill_id, period_index, created_at`

// GetEntry returns a ledger entry scoped by tenant and not soft-deleted.
// A wrong id, wrong tenant, or already-deleted row all yield
// core.ErrTransactionNotFound.
func (r *Repository) GetEntry(ctx context.Context, id, tenantID string) (*core.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+`
		   FROM entries
		  WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		id, tenantID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// EntryFilter narrows ListEntries and Summarize. Nil fields are ignored.
type EntryFilter struct {
	Type            *core.MovementType
	Status          *core.EntryStatus
	CategoryID      *string
	AccountID       *string
	PaymentMethodID *string
	StartDate       *time.Time
	EndDate         *time.Time
	Page            int
	Limit           int
}

func (f EntryFilter) where(tenantID string) (string, []any) {
	clause := ` WHERE tenant_id = ? AND deleted_at IS NULL`
	args := []any{tenantID}

	if f.Type != nil {
		clause += ` AND type = ?`
		args = append(args, string(*f.Type))
	}
	if f.Status != nil {
		clause += ` AND status = ?`
		args = append(args, string(*f.Status))
	}
	if f.CategoryID != nil {
		clause += ` AND category_id = ?`
		args = append(args, *f.CategoryID)
	}
	if f.AccountID != nil {
		clause += ` AND account_id = ?`
		args = append(args, *f.AccountID)
	}
	if f.PaymentMethodID != nil {
		clause += ` AND payment_method_id = ?`
		args = append(args, *f.PaymentMethodID)
	}
	if f.StartDate != nil && f.EndDate != nil {
		clause += ` AND transaction_date BETWEEN ? AND ?`
		args = append(args, core.StartOfDay(*f.StartDate), core.EndOfDay(*f.EndDate))
	}
	return clause, args
}

// ListEntries returns one page of a tenant's entries, newest first, plus the
// total row count for the filter.
func (r *Repository) ListEntries(ctx context.Context, tenantID string, f EntryFilter) ([]core.Entry, int64, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 50
	}

	clause, args := f.where(tenantID)

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	listArgs := append(args, limit, (page-1)*limit)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries`+clause+
			` ORDER BY transaction_date DESC, created_at DESC LIMIT ? OFFSET ?`,
		listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

// Summarize aggregates completed entries per movement type in a single
// grouped query; pending and overdue entries never count.
func (r *Repository) Summarize(ctx context.Context, tenantID string, f EntryFilter) (core.Summary, error) {
	completed := core.StatusCompleted
	f.Status = &completed
	clause, args := f.where(tenantID)

	rows, err := r.db.QueryContext(ctx,
		`SELECT type, COALESCE(SUM(amount_cents), 0), COUNT(*)
		   FROM entries`+clause+` GROUP BY type`, args...)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summarize entries: %w", err)
	}
	defer rows.Close()

	var s core.Summary
	for rows.Next() {
		var typ string
		var sum, count int64
		if err := rows.Scan(&typ, &sum, &count); err != nil {
			return core.Summary{}, fmt.Errorf("scan summary row: %w", err)
		}
		switch core.MovementType(typ) {
		case core.Income:
			s.TotalIncome = core.Money{Cents: sum}
			s.IncomeCount = count
		case core.Expense:
			s.TotalExpense = core.Money{Cents: sum}
			s.ExpenseCount = count
		case core.Transfer:
			s.TotalTransfers = core.Money{Cents: sum}
			s.TransferCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return core.Summary{}, fmt.Errorf("summarize entries: %w", err)
	}

	s.Derive()
	return s, nil
}

// GetBill returns a recurring bill scoped by tenant.
func (r *Repository) GetBill(ctx context.Context, id, tenantID string) (*core.RecurringBill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, type, amount_cents, frequency, due_day,
		        start_date, end_date, status, auto_generate,
		        category_id, account_id, payment_method_id
		   FROM recurring_bills
		  WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		id, tenantID)

	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrBillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring bill: %w", err)
	}
	return b, nil
}

// ListActiveBills returns a tenant's active, auto-generating bills.
func (r *Repository) ListActiveBills(ctx context.Context, tenantID string) ([]core.RecurringBill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, type, amount_cents, frequency, due_day,
		        start_date, end_date, status, auto_generate,
		        category_id, account_id, payment_method_id
		   FROM recurring_bills
		  WHERE tenant_id = ? AND status = ? AND auto_generate = 1 AND deleted_at IS NULL`,
		tenantID, string(core.BillActive))
	if err != nil {
		return nil, fmt.Errorf("list active bills: %w", err)
	}
	defer rows.Close()

	var bills []core.RecurringBill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, *b)
	}
	return bills, rows.Err()
}

// SetBillStatus pauses or resumes a bill. Pausing only halts future
// materialization; existing occurrences stay as they are.
func (r *Repository) SetBillStatus(ctx context.Context, id, tenantID string, status core.BillStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_bills SET status = ?
		  WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		string(status), id, tenantID)
	if err != nil {
		return fmt.Errorf("set bill status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set bill status: %w", err)
	}
	if n == 0 {
		return core.ErrBillNotFound
	}
	return nil
}

// NextPeriodIndex returns the first period of a bill that has not been
// materialized yet. Soft-deleted occurrences still hold their slot so a
// deleted occurrence is not regenerated.
func (r *Repository) NextPeriodIndex(ctx context.Context, billID string) (int64, error) {
	var next sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(period_index) + 1 FROM entries WHERE recurring_bill_id = ?`,
		billID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next period index: %w", err)
	}
	if !next.Valid {
		return 0, nil
	}
	return next.Int64, nil
}

// MarkOverdue flips a tenant's pending entries dated strictly before today to
// overdue. Overdue entries have no balance effect, so no delta is involved.
func (r *Repository) MarkOverdue(ctx context.Context, tenantID string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET status = ?
		  WHERE tenant_id = ? AND status = ? AND transaction_date < ? AND deleted_at IS NULL`,
		string(core.StatusOverdue), tenantID, string(core.StatusPending), core.StartOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Marked pending entries overdue", "tenant_id", tenantID, "count", n)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*core.Entry, error) {
	var e core.Entry
	var typ, status string
	var categoryID, accountID, paymentMethodID, destinationID, billID sql.NullString
	var periodIndex sql.NullInt64

	err := row.Scan(&e.ID, &e.TenantID, &typ, &status, &e.Amount.Cents,
		&e.Description, &e.TransactionDate, &categoryID, &accountID,
		&paymentMethodID, &destinationID, &billID, &periodIndex, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.Type = core.MovementType(typ)
	e.Status = core.EntryStatus(status)
	e.CategoryID = strPtr(categoryID)
	e.AccountID = strPtr(accountID)
	e.PaymentMethodID = strPtr(paymentMethodID)
	e.DestinationAccountID = strPtr(destinationID)
	e.RecurringBillID = strPtr(billID)
	if periodIndex.Valid {
		e.PeriodIndex = &periodIndex.Int64
	}
	return &e, nil
}

func scanBill(row rowScanner) (*core.RecurringBill, error) {
	var b core.RecurringBill
	var typ, frequency, status string
	var endDate sql.NullTime
	var categoryID, accountID, paymentMethodID sql.NullString

	err := row.Scan(&b.ID, &b.TenantID, &b.Name, &typ, &b.Amount.Cents,
		&frequency, &b.DueDay, &b.StartDate, &endDate, &status,
		&b.AutoGenerate, &categoryID, &accountID, &paymentMethodID)
	if err != nil {
		return nil, err
	}

	b.Type = core.MovementType(typ)
	b.Frequency = core.Frequency(frequency)
	b.Status = core.BillStatus(status)
	if endDate.Valid {
		t := endDate.Time
		b.EndDate = &t
	}
	b.CategoryID = strPtr(categoryID)
	b.AccountID = strPtr(accountID)
	b.PaymentMethodID = strPtr(paymentMethodID)
	return &b, nil
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
