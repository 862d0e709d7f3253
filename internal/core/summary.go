package core

// Summary aggregates completed, non-deleted entries for a tenant. Balance is
// derived from the income and expense totals; transfers carry their own sum
// and count but never contribute to balance.
type Summary struct {
	TotalIncome    Money
	TotalExpense   Money
	TotalTransfers Money
	Balance        Money
	IncomeCount    int64
	ExpenseCount   int64
	TransferCount  int64
	// AvgTransactionValue is the mean absolute amount across all counted
	// entries, in cents; zero for an empty result set.
	AvgTransactionValue Money
}

// TransactionCount is the sum of the three per-type counts.
func (s Summary) TransactionCount() int64 {
	return s.IncomeCount + s.ExpenseCount + s.TransferCount
}

// Derive fills in Balance and AvgTransactionValue from the raw sums and
// counts.
func (s *Summary) Derive() {
	s.Balance = Money{Cents: s.TotalIncome.Cents - s.TotalExpense.Cents}
	if n := s.TransactionCount(); n > 0 {
		total := s.TotalIncome.Cents + s.TotalExpense.Cents + s.TotalTransfers.Cents
		s.AvgTransactionValue = Money{Cents: total / n}
	} else {
		s.AvgTransactionValue = Money{}
	}
}
