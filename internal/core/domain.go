package core

import (
	"strings"
	"time"
)

const (
	Income   MovementType = "income"
	Expense  MovementType = "expense"
	Transfer MovementType = "transfer"
)

const (
	StatusPending   EntryStatus = "pending"
	StatusCompleted EntryStatus = "completed"
	StatusOverdue   EntryStatus = "overdue"
)

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
)

const (
	BillActive BillStatus = "active"
	BillPaused BillStatus = "paused"
)

type (
	MovementType string
	EntryStatus  string
	Frequency    string
	BillStatus   string

	Money struct {
		Cents int64
	}

	// Account holds a running balance maintained incrementally by the
	// ledger; it is never recomputed by scanning entries.
	Account struct {
		ID        string
		TenantID  string
		Name      string
		Balance   Money
		DeletedAt *time.Time
	}

	Category struct {
		ID        string
		TenantID  string
		Name      string
		Type      MovementType // income or expense
		DeletedAt *time.Time
	}

	PaymentMethod struct {
		ID        string
		TenantID  string
		Name      string
		DeletedAt *time.Time
	}

	// Entry is a persisted record of money movement. Entries are soft-deleted
	// only; DeletedAt marks removal and the row stays behind.
	Entry struct {
		ID              string
		TenantID        string
		Type            MovementType
		Status          EntryStatus
		Amount          Money
		Description     string
		TransactionDate time.Time
		CategoryID      *string
		AccountID       *string
		PaymentMethodID *string
		// DestinationAccountID is set on transfer entries only.
		DestinationAccountID *string
		// RecurringBillID and PeriodIndex identify a materialized occurrence.
		// The pair is unique: re-generating a schedule can never duplicate one.
		RecurringBillID *string
		PeriodIndex     *int64
		CreatedAt       time.Time
		DeletedAt       *time.Time
	}

	// RecurringBill is the definition a schedule is generated from.
	RecurringBill struct {
		ID              string
		TenantID        string
		Name            string
		Type            MovementType // income or expense
		Amount          Money
		Frequency       Frequency
		DueDay          int // 1-31, clamped per month by the calendar engine
		StartDate       time.Time
		EndDate         *time.Time
		Status          BillStatus
		AutoGenerate    bool
		CategoryID      *string
		AccountID       *string
		PaymentMethodID *string
		DeletedAt       *time.Time
	}
)

func (t MovementType) Valid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

func (s EntryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Biweekly, Monthly, Yearly:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// SignedDelta returns the balance effect of a completed entry of this type:
// positive for income, negative for expense. Transfer entries move balances
// through the transfer orchestrator directly, so their ledger delta is zero.
func SignedDelta(t MovementType, amount Money) int64 {
	switch t {
	case Income:
		return amount.Cents
	case Expense:
		return -amount.Cents
	default:
		return 0
	}
}

func (e Entry) Validate() error {
	if !e.Type.Valid() {
		return ErrInvalidType
	}
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if e.TransactionDate.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (b RecurringBill) Validate() error {
	if b.Type != Income && b.Type != Expense {
		return ErrInvalidType
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyDescription
	}
	if !b.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if b.DueDay < 1 || b.DueDay > 31 {
		return ErrInvalidDueDay
	}
	if b.StartDate.IsZero() {
		return ErrMissingDate
	}
	if b.EndDate != nil && b.EndDate.Before(b.StartDate) {
		return ErrMissingDate
	}
	return nil
}
