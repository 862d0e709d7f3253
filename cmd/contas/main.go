// Command contas is a small admin tool against the ledger database: it seeds
// tenants and reference data, records entries, executes transfers, and prints
// summaries. It shares the worker's configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"contas/internal/cli"
	"contas/internal/core"
	"contas/internal/services"
	"contas/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "tenant":
		err = runTenant(ctx, repo, os.Args[2:])
	case "account":
		err = runAccount(ctx, repo, os.Args[2:])
	case "category":
		err = runCategory(ctx, repo, os.Args[2:])
	case "entry":
		err = runEntry(ctx, repo, os.Args[2:])
	case "transfer":
		err = runTransfer(ctx, repo, os.Args[2:])
	case "summary":
		err = runSummary(ctx, repo, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: contas <command> [flags]

commands:
  tenant    create a tenant
  account   create an account with an opening balance
  category  create an income or expense category
  entry     record a ledger entry
  transfer  move money between two accounts
  summary   print a tenant's completed-entry totals`)
}

func runTenant(ctx context.Context, repo *storage.Repository, args []string) error {
	fs := flag.NewFlagSet("tenant", flag.ExitOnError)
	name := fs.String("name", "", "tenant name")
	fs.Parse(args)
	if *name == "" {
		return fmt.Errorf("tenant: -name is required")
	}

	id := uuid.NewString()
	if err := repo.CreateTenant(ctx, id, *name); err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runAccount(ctx context.Context, repo *storage.Repository, args []string) error {
	fs := flag.NewFlagSet("account", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant id")
	name := fs.String("name", "", "account name")
	balance := fs.String("balance", "0", "opening balance, e.g. 1250.00")
	fs.Parse(args)
	if *tenant == "" || *name == "" {
		return fmt.Errorf("account: -tenant and -name are required")
	}
	var cents int64
	if *balance != "" && *balance != "0" {
		var err error
		cents, err = core.ParseDecimalToCents(*balance)
		if err != nil {
			return fmt.Errorf("account: %w", err)
		}
	}

	account := core.Account{
		ID:       uuid.NewString(),
		TenantID: *tenant,
		Name:     *name,
		Balance:  core.Money{Cents: cents},
	}
	if err := repo.CreateAccount(ctx, account); err != nil {
		return err
	}
	fmt.Println(account.ID)
	return nil
}

func runCategory(ctx context.Context, repo *storage.Repository, args []string) error {
	fs := flag.NewFlagSet("category", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant id")
	name := fs.String("name", "", "category name")
	typ := fs.String("type", "expense", "income or expense")
	fs.Parse(args)
	if *tenant == "" || *name == "" {
		return fmt.Errorf("category: -tenant and -name are required")
	}
	movement := core.MovementType(*typ)
	if movement != core.Income && movement != core.Expense {
		return fmt.Errorf("category: %w", core.ErrInvalidType)
	}

	category := core.Category{
		ID:       uuid.NewString(),
		TenantID: *tenant,
		Name:     *name,
		Type:     movement,
	}
	if err := repo.CreateCategory(ctx, category); err != nil {
		return err
	}
	fmt.Println(category.ID)
	return nil
}

func runEntry(ctx context.Context, repo *storage.Repository, args []string) error {
	fs := flag.NewFlagSet("entry", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant id")
	typ := fs.String("type", "expense", "income or expense")
	amount := fs.String("amount", "", "amount, e.g. 42.50")
	description := fs.String("description", "", "entry description")
	date := fs.String("date", "", "transaction date, YYYY-MM-DD (default today)")
	category := fs.String("category", "", "category id")
	account := fs.String("account", "", "account id (optional)")
	fs.Parse(args)
	if *tenant == "" {
		return fmt.Errorf("entry: -tenant is required")
	}
	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	when := time.Now().UTC()
	if *date != "" {
		when, err = time.Parse(time.DateOnly, *date)
		if err != nil {
			return fmt.Errorf("entry: parse date: %w", err)
		}
	}

	ledger := services.NewLedgerService(repo, nil)
	in := services.CreateEntryInput{
		Type:            core.MovementType(*typ),
		Amount:          core.Money{Cents: cents},
		Description:     *description,
		TransactionDate: when,
	}
	if *category != "" {
		in.CategoryID = category
	}
	if *account != "" {
		in.AccountID = account
	}

	entry, err := ledger.Create(ctx, in, *tenant)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", entry.ID, entry.Status)
	return nil
}

func runTransfer(ctx context.Context, repo *storage.Repository, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant id")
	from := fs.String("from", "", "source account id")
	to := fs.String("to", "", "destination account id")
	amount := fs.String("amount", "", "amount, e.g. 100.00")
	description := fs.String("description", "", "optional description")
	fs.Parse(args)
	if *tenant == "" {
		return fmt.Errorf("transfer: -tenant is required")
	}
	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}

	transfers := services.NewTransferService(repo, nil)
	entry, err := transfers.Execute(ctx, services.TransferInput{
		FromAccountID: *from,
		ToAccountID:   *to,
		Amount:        core.Money{Cents: cents},
		Description:   *description,
		Date:          time.Now().UTC(),
	}, *tenant)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transfer recorded", "entry_id", entry.ID)
	fmt.Println(entry.ID)
	return nil
}

func runSummary(ctx context.Context, repo *storage.Repository, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant id")
	from := fs.String("from", "", "start date, YYYY-MM-DD")
	to := fs.String("to", "", "end date, YYYY-MM-DD")
	fs.Parse(args)
	if *tenant == "" {
		return fmt.Errorf("summary: -tenant is required")
	}

	var filter storage.EntryFilter
	if *from != "" && *to != "" {
		start, err := time.Parse(time.DateOnly, *from)
		if err != nil {
			return fmt.Errorf("summary: parse from: %w", err)
		}
		end, err := time.Parse(time.DateOnly, *to)
		if err != nil {
			return fmt.Errorf("summary: parse to: %w", err)
		}
		filter.StartDate = &start
		filter.EndDate = &end
	}

	ledger := services.NewLedgerService(repo, nil)
	s, err := ledger.GetSummary(ctx, *tenant, filter)
	if err != nil {
		return err
	}

	fmt.Printf("income    %10.2f  (%d entries)\n", s.TotalIncome.Decimal(), s.IncomeCount)
	fmt.Printf("expense   %10.2f  (%d entries)\n", s.TotalExpense.Decimal(), s.ExpenseCount)
	fmt.Printf("transfers %10.2f  (%d entries)\n", s.TotalTransfers.Decimal(), s.TransferCount)
	fmt.Printf("balance   %10.2f\n", s.Balance.Decimal())
	return nil
}
