package services

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"fintrack/internal/cache"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

const (
	// monthlyTrendRows caps the month/type buckets in the dashboard.
	monthlyTrendRows = 12
	defaultTrendRows = 12
	maxTrendRows     = 366
)

// uncategorized labels transactions without a category in reports.
const uncategorized = "Uncategorized"

// analyticsService computes aggregate reports over a user's transactions.
type analyticsService struct {
	db    *gorm.DB
	cache *cache.Store
	now   func() time.Time
}

// NewAnalyticsService creates a new AnalyticsServicer. now supplies the clock
// behind named periods; nil means time.Now.
func NewAnalyticsService(db *gorm.DB, store *cache.Store, now func() time.Time) AnalyticsServicer {
	if store == nil {
		store = cache.NewStore(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &analyticsService{db: db, cache: store, now: now}
}

// analyticsCacheKey identifies one resolved analytics request.
type analyticsCacheKey struct {
	Report    string     `json:"report"`
	Period    Period     `json:"period,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Type      string     `json:"type,omitempty"`
	GroupBy   GroupBy    `json:"group_by,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

// GetAnalytics returns the summary, category breakdown and monthly trends of
// the caller's transactions in the requested range.
func (s *analyticsService) GetAnalytics(ctx context.Context, actor Actor, q AnalyticsQuery) (*AnalyticsResult, error) {
	if q.Period == "" {
		q.Period = PeriodAll
	}
	start, end := resolveRange(q, s.now())

	// Named periods move with the clock, so the resolved range is part of the key.
	key := cache.AnalyticsKey(actor.UserID, analyticsCacheKey{
		Report:    "dashboard",
		Period:    q.Period,
		StartDate: start,
		EndDate:   end,
	})

	data, cached, err := cache.Fetch(ctx, s.cache, key, cache.AnalyticsTTL,
		func(ctx context.Context) (Analytics, error) {
			return s.computeAnalytics(ctx, actor.UserID, start, end)
		})
	if err != nil {
		return nil, err
	}
	return &AnalyticsResult{Analytics: data, Cached: cached}, nil
}

func (s *analyticsService) computeAnalytics(ctx context.Context, userID uint, start, end *time.Time) (Analytics, error) {
	var (
		summary   Summary
		breakdown []CategoryTotal
		trends    []MonthlyTrend
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.summary(gctx, userID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		breakdown, err = s.categoryBreakdown(gctx, userID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		trends, err = s.monthlyTrends(gctx, userID, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return Analytics{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if breakdown == nil {
		breakdown = []CategoryTotal{}
	}
	if trends == nil {
		trends = []MonthlyTrend{}
	}
	return Analytics{Summary: summary, CategoryBreakdown: breakdown, MonthlyTrends: trends}, nil
}

// scopedTransactions starts a query over one user's transactions in range.
func (s *analyticsService) scopedTransactions(ctx context.Context, userID uint, start, end *time.Time) *gorm.DB {
	q := s.db.WithContext(ctx).Table("transactions").Where("transactions.user_id = ?", userID)
	if start != nil {
		q = q.Where("transactions.date >= ?", *start)
	}
	if end != nil {
		q = q.Where("transactions.date <= ?", *end)
	}
	return q
}

func (s *analyticsService) summary(ctx context.Context, userID uint, start, end *time.Time) (Summary, error) {
	var row struct {
		TotalIncome   decimal.NullDecimal
		TotalExpenses decimal.NullDecimal
		IncomeCount   int64
		ExpenseCount  int64
	}
	err := s.scopedTransactions(ctx, userID, start, end).
		Select(`SUM(CASE WHEN type = ? THEN amount ELSE 0 END) AS total_income,
			SUM(CASE WHEN type = ? THEN amount ELSE 0 END) AS total_expenses,
			COUNT(CASE WHEN type = ? THEN 1 END) AS income_count,
			COUNT(CASE WHEN type = ? THEN 1 END) AS expense_count`,
			models.TransactionTypeIncome, models.TransactionTypeExpense,
			models.TransactionTypeIncome, models.TransactionTypeExpense).
		Scan(&row).Error
	if err != nil {
		return Summary{}, err
	}

	income := nullToZero(row.TotalIncome)
	expenses := nullToZero(row.TotalExpenses)
	return Summary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		Balance:       income.Sub(expenses),
		IncomeCount:   row.IncomeCount,
		ExpenseCount:  row.ExpenseCount,
	}, nil
}

func (s *analyticsService) categoryBreakdown(ctx context.Context, userID uint, start, end *time.Time) ([]CategoryTotal, error) {
	var rows []CategoryTotal
	err := s.scopedTransactions(ctx, userID, start, end).
		Select("COALESCE(categories.name, ?) AS category, transactions.type AS type, SUM(transactions.amount) AS total, COUNT(*) AS count", uncategorized).
		Joins("LEFT JOIN categories ON categories.id = transactions.category_id").
		Group("categories.name, transactions.type").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
	}
	return rows, nil
}

func (s *analyticsService) monthlyTrends(ctx context.Context, userID uint, start, end *time.Time) ([]MonthlyTrend, error) {
	month := bucketExpr(s.db, GroupByMonth, "transactions.date")

	var rows []MonthlyTrend
	err := s.scopedTransactions(ctx, userID, start, end).
		Select(month + " AS month, transactions.type AS type, SUM(transactions.amount) AS total").
		Group(month + ", transactions.type").
		Order("month DESC, type ASC").
		Limit(monthlyTrendRows).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
	}
	return rows, nil
}

// GetSpendingByCategory reports totals and per-transaction statistics of one
// type grouped by category, largest total first.
func (s *analyticsService) GetSpendingByCategory(ctx context.Context, actor Actor, q SpendingQuery) (*SpendingResult, error) {
	if q.Type == "" {
		q.Type = models.TransactionTypeExpense
	}
	if !q.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	// A half-open range is ignored, matching the dashboard.
	if q.StartDate == nil || q.EndDate == nil {
		q.StartDate, q.EndDate = nil, nil
	}

	key := cache.AnalyticsKey(actor.UserID, analyticsCacheKey{
		Report:    "spending-by-category",
		Type:      string(q.Type),
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
	})

	data, cached, err := cache.Fetch(ctx, s.cache, key, cache.AnalyticsTTL,
		func(ctx context.Context) ([]CategorySpending, error) {
			return s.spendingByCategory(ctx, actor.UserID, q)
		})
	if err != nil {
		return nil, err
	}
	return &SpendingResult{Data: data, Cached: cached}, nil
}

func (s *analyticsService) spendingByCategory(ctx context.Context, userID uint, q SpendingQuery) ([]CategorySpending, error) {
	var rows []CategorySpending
	err := s.scopedTransactions(ctx, userID, q.StartDate, q.EndDate).
		Where("transactions.type = ?", q.Type).
		Select(`COALESCE(categories.name, ?) AS category,
			categories.id AS category_id,
			SUM(transactions.amount) AS total,
			COUNT(*) AS transaction_count,
			AVG(transactions.amount) AS average_amount,
			MAX(transactions.amount) AS max_amount,
			MIN(transactions.amount) AS min_amount`, uncategorized).
		Joins("LEFT JOIN categories ON categories.id = transactions.category_id").
		Group("categories.id, categories.name").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
		rows[i].AverageAmount = rows[i].AverageAmount.Round(2)
		rows[i].MaxAmount = rows[i].MaxAmount.Round(2)
		rows[i].MinAmount = rows[i].MinAmount.Round(2)
	}
	if rows == nil {
		rows = []CategorySpending{}
	}
	return rows, nil
}

// GetIncomeVsExpenses compares income and expenses over the most recent
// buckets, returned oldest first.
func (s *analyticsService) GetIncomeVsExpenses(ctx context.Context, actor Actor, q TrendQuery) (*TrendResult, error) {
	q.GroupBy = ParseGroupBy(string(q.GroupBy))
	if q.Limit <= 0 {
		q.Limit = defaultTrendRows
	}
	if q.Limit > maxTrendRows {
		q.Limit = maxTrendRows
	}

	key := cache.AnalyticsKey(actor.UserID, analyticsCacheKey{
		Report:  "income-vs-expenses",
		GroupBy: q.GroupBy,
		Limit:   q.Limit,
	})

	data, cached, err := cache.Fetch(ctx, s.cache, key, cache.AnalyticsTTL,
		func(ctx context.Context) ([]PeriodTotals, error) {
			return s.incomeVsExpenses(ctx, actor.UserID, q)
		})
	if err != nil {
		return nil, err
	}
	return &TrendResult{Data: data, Cached: cached}, nil
}

func (s *analyticsService) incomeVsExpenses(ctx context.Context, userID uint, q TrendQuery) ([]PeriodTotals, error) {
	bucket := bucketExpr(s.db, q.GroupBy, "transactions.date")

	var rows []struct {
		Period   string
		Income   decimal.NullDecimal
		Expenses decimal.NullDecimal
	}
	err := s.scopedTransactions(ctx, userID, nil, nil).
		Select(bucket+` AS period,
			SUM(CASE WHEN type = ? THEN amount ELSE 0 END) AS income,
			SUM(CASE WHEN type = ? THEN amount ELSE 0 END) AS expenses`,
			models.TransactionTypeIncome, models.TransactionTypeExpense).
		Group(bucket).
		Order("period DESC").
		Limit(q.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	out := make([]PeriodTotals, 0, len(rows))
	for _, r := range rows {
		income := nullToZero(r.Income)
		expenses := nullToZero(r.Expenses)
		out = append(out, PeriodTotals{
			Period:   r.Period,
			Income:   income,
			Expenses: expenses,
			Net:      income.Sub(expenses),
		})
	}
	slices.Reverse(out)
	return out, nil
}

func nullToZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal.Round(2)
}
