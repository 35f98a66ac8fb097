// Package seed fills a database with demo users and transactions.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"fintrack/internal/database"
	"fintrack/internal/models"
)

// DemoPassword is the password of every demo user.
const DemoPassword = "password123"

// DemoUsers are created once; existing emails are left alone.
var DemoUsers = []models.User{
	{Email: "admin@example.com", Name: "Admin User", Role: models.RoleAdmin},
	{Email: "user@example.com", Name: "Regular User", Role: models.RoleUser},
	{Email: "readonly@example.com", Name: "Read Only User", Role: models.RoleReadOnly},
}

var (
	incomeDescriptions  = []string{"Monthly salary", "Freelance project", "Investment return", "Bonus payment", "Side hustle"}
	expenseDescriptions = []string{"Grocery shopping", "Gas station", "Restaurant", "Online purchase", "Utility bill", "Coffee shop", "Movie tickets"}
	recentIncome        = []string{"Client payment", "Salary deposit"}
	recentExpenses      = []string{"Lunch", "Uber ride", "Groceries", "Coffee"}
)

// Options tunes a seed run.
type Options struct {
	// TransactionsPerUser spread over the last HistoryDays days.
	TransactionsPerUser int
	HistoryDays         int
	// RecentPerUser are added over the last week, the first two as income.
	RecentPerUser int
	Seed          uint64
	Now           time.Time
}

// DefaultOptions matches the demo data set.
func DefaultOptions() Options {
	return Options{
		TransactionsPerUser: 50,
		HistoryDays:         180,
		RecentPerUser:       5,
		Seed:                1,
		Now:                 time.Now(),
	}
}

// UserSummary describes the seeded data of one user.
type UserSummary struct {
	Email        string
	Transactions int64
	Income       decimal.Decimal
	Expenses     decimal.Decimal
}

// Run ensures default categories and demo users exist, then adds demo
// transactions for every user in the database.
func Run(ctx context.Context, db *gorm.DB, opts Options) ([]UserSummary, error) {
	db = db.WithContext(ctx)
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 1
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	if err := database.EnsureDefaultCategories(db); err != nil {
		return nil, err
	}
	if err := ensureDemoUsers(db); err != nil {
		return nil, err
	}

	var users []models.User
	if err := db.Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	var categories []models.Category
	if err := db.Where("user_id IS NULL").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	byType := map[models.TransactionType][]models.Category{}
	for _, c := range categories {
		t := models.TransactionType(c.Type)
		byType[t] = append(byType[t], c)
	}

	today := models.TruncateToDate(opts.Now)
	for _, u := range users {
		txs := make([]models.Transaction, 0, opts.TransactionsPerUser+opts.RecentPerUser)
		for i := 0; i < opts.TransactionsPerUser; i++ {
			isIncome := rng.Float64() > 0.7
			date := today.AddDate(0, 0, -rng.IntN(opts.HistoryDays))
			if isIncome {
				txs = append(txs, build(rng, u.ID, models.TransactionTypeIncome, byType, incomeDescriptions, 1000, 4000, date))
			} else {
				txs = append(txs, build(rng, u.ID, models.TransactionTypeExpense, byType, expenseDescriptions, 10, 500, date))
			}
		}
		for i := 0; i < opts.RecentPerUser; i++ {
			date := today.AddDate(0, 0, -i)
			if i < 2 {
				txs = append(txs, build(rng, u.ID, models.TransactionTypeIncome, byType, recentIncome, 500, 2000, date))
			} else {
				txs = append(txs, build(rng, u.ID, models.TransactionTypeExpense, byType, recentExpenses, 20, 200, date))
			}
		}
		if len(txs) == 0 {
			continue
		}
		if err := db.CreateInBatches(txs, 100).Error; err != nil {
			return nil, fmt.Errorf("insert transactions for %s: %w", u.Email, err)
		}
	}

	return summarize(db)
}

func ensureDemoUsers(db *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}
	for _, demo := range DemoUsers {
		u := demo
		u.Password = string(hash)
		if err := db.Where(models.User{Email: u.Email}).FirstOrCreate(&u).Error; err != nil {
			return fmt.Errorf("create demo user %s: %w", u.Email, err)
		}
	}
	return nil
}

// build makes one transaction with an amount in [lo, lo+span).
func build(rng *rand.Rand, userID uint, t models.TransactionType, byType map[models.TransactionType][]models.Category,
	descriptions []string, lo, span float64, date time.Time) models.Transaction {
	amount := decimal.NewFromFloat(rng.Float64()*span + lo).Round(2)
	description := descriptions[rng.IntN(len(descriptions))]
	tx := models.Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        t,
		Description: &description,
		Date:        date,
	}
	if cats := byType[t]; len(cats) > 0 {
		id := cats[rng.IntN(len(cats))].ID
		tx.CategoryID = &id
	}
	return tx
}

func summarize(db *gorm.DB) ([]UserSummary, error) {
	var rows []struct {
		Email        string
		Transactions int64
		Income       decimal.NullDecimal
		Expenses     decimal.NullDecimal
	}
	err := db.Table("users").
		Select(`users.email AS email,
			COUNT(transactions.id) AS transactions,
			SUM(CASE WHEN transactions.type = ? THEN transactions.amount ELSE 0 END) AS income,
			SUM(CASE WHEN transactions.type = ? THEN transactions.amount ELSE 0 END) AS expenses`,
			models.TransactionTypeIncome, models.TransactionTypeExpense).
		Joins("LEFT JOIN transactions ON transactions.user_id = users.id").
		Group("users.id, users.email").
		Order("users.email").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	out := make([]UserSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, UserSummary{
			Email:        r.Email,
			Transactions: r.Transactions,
			Income:       r.Income.Decimal.Round(2),
			Expenses:     r.Expenses.Decimal.Round(2),
		})
	}
	return out, nil
}
