package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/logger"
	"fintrack/internal/seed"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Seed error: %v", err)
	}
}

func run() error {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.TransactionsPerUser, "per-user", opts.TransactionsPerUser, "historical transactions per user")
	flag.IntVar(&opts.HistoryDays, "days", opts.HistoryDays, "spread historical transactions over this many days")
	flag.IntVar(&opts.RecentPerUser, "recent", opts.RecentPerUser, "transactions per user over the last week")
	flag.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	log := logger.Get()
	log.Info("Seeding transaction data...")
	summary, err := seed.Run(context.Background(), dbManager.DB(), opts)
	if err != nil {
		return err
	}

	for _, s := range summary {
		log.Infof("%s: %d transactions, income %s, expenses %s", s.Email, s.Transactions, s.Income.StringFixed(2), s.Expenses.StringFixed(2))
	}
	log.Infof("Demo users sign in with password %q", seed.DemoPassword)
	return nil
}
