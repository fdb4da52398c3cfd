// Command financas-seed fills the configured store with demo data for one user.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"financas/internal/backend"
	"financas/internal/cli"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

type options struct {
	UserID           string
	Email            string
	Months           int
	ExpensesPerMonth int
	Goals            int
	Seed             int64
}

type report struct {
	Transactions int
	Goals        int
}

func main() {
	var opts options
	flag.StringVar(&opts.UserID, "user", "demo-user", "user id to seed")
	flag.StringVar(&opts.Email, "email", "", "user email (random when empty)")
	flag.IntVar(&opts.Months, "months", 6, "months of history, current month included")
	flag.IntVar(&opts.ExpensesPerMonth, "expenses", 12, "expenses generated per month")
	flag.IntVar(&opts.Goals, "goals", 3, "savings goals to create")
	flag.Int64Var(&opts.Seed, "seed", 0, "random seed (0 picks one)")
	flag.Parse()

	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentSeed)
	cli.MustValidate(logger, cfg.ValidateWorker)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	// seeding never publishes events
	backendCfg.AMQPURL = ""

	ctx := context.Background()
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()

	rep, err := seed(ctx, res.Store, gofakeit.New(opts.Seed), opts, time.Now())
	if err != nil {
		logger.Error("Seeding failed", applog.FieldError, err, applog.FieldUserID, opts.UserID)
		os.Exit(1)
	}
	logger.Info("Seeding complete",
		applog.FieldUserID, opts.UserID,
		"transactions", rep.Transactions,
		"goals", rep.Goals)
}

func seed(ctx context.Context, store storage.Store, faker *gofakeit.Faker, opts options, now time.Time) (report, error) {
	var rep report

	email := opts.Email
	if email == "" {
		email = faker.Email()
	}
	if _, err := store.UpsertUser(ctx, core.User{ID: opts.UserID, Email: email, Name: faker.Name()}); err != nil {
		return rep, fmt.Errorf("upsert user: %w", err)
	}
	if _, err := store.InitializePreferences(ctx, opts.UserID); err != nil {
		return rep, fmt.Errorf("initialize preferences: %w", err)
	}

	income, err := categoryNames(ctx, store, opts.UserID, core.Income)
	if err != nil {
		return rep, err
	}
	expenses, err := categoryNames(ctx, store, opts.UserID, core.Expense)
	if err != nil {
		return rep, err
	}

	today := core.DateOf(now)
	salary := decimal.NewFromFloat(faker.Price(150000, 450000)).Round(0)

	for back := opts.Months - 1; back >= 0; back-- {
		month := core.AddMonthsClamped(core.MonthStart(now), -back)

		pay := core.NewTransaction{
			Type:            core.Income,
			Amount:          salary,
			Category:        faker.RandomString(income),
			Description:     "Salário",
			TransactionDate: core.NewDate(month.Year(), int(month.Month()), 5),
		}
		if !pay.TransactionDate.After(today.Time) {
			if err := create(ctx, store, opts.UserID, pay); err != nil {
				return rep, err
			}
			rep.Transactions++
		}

		for i := 0; i < opts.ExpensesPerMonth; i++ {
			day := core.NewDate(month.Year(), int(month.Month()), faker.Number(1, 28))
			if day.After(today.Time) {
				continue
			}
			exp := core.NewTransaction{
				Type:            core.Expense,
				Amount:          decimal.NewFromFloat(faker.Price(500, 25000)).Round(2),
				Category:        faker.RandomString(expenses),
				Description:     faker.Sentence(4),
				TransactionDate: day,
			}
			if err := create(ctx, store, opts.UserID, exp); err != nil {
				return rep, err
			}
			rep.Transactions++
		}
	}

	for i := 0; i < opts.Goals; i++ {
		target := decimal.NewFromFloat(faker.Price(50000, 2000000)).Round(0)
		current := target.Mul(decimal.NewFromFloat(faker.Float64Range(0, 1.2))).Round(0)
		deadline := core.DateOf(now.AddDate(0, faker.Number(1, 24), 0))
		goal := core.NewSavingsGoal{
			Name:          faker.Noun() + " fund",
			TargetAmount:  target,
			CurrentAmount: &current,
			TargetDate:    &deadline,
			Description:   faker.Sentence(6),
		}
		goal.ApplyDefaults()
		if err := goal.Validate(); err != nil {
			return rep, fmt.Errorf("generated goal: %w", err)
		}
		if _, err := store.CreateSavingsGoal(ctx, opts.UserID, goal); err != nil {
			return rep, fmt.Errorf("create savings goal: %w", err)
		}
		rep.Goals++
	}

	return rep, nil
}

func create(ctx context.Context, store storage.TransactionStore, userID string, t core.NewTransaction) error {
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return fmt.Errorf("generated transaction: %w", err)
	}
	if _, err := store.CreateTransaction(ctx, userID, t); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func categoryNames(ctx context.Context, store storage.CategoryStore, userID string, typ core.TransactionType) ([]string, error) {
	cats, err := store.ListCategories(ctx, userID, storage.CategoryFilter{Type: typ})
	if err != nil {
		return nil, fmt.Errorf("list %s categories: %w", typ, err)
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("user %s has no %s categories", userID, typ)
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names, nil
}
