package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   models.Role
}

// IsAdmin reports whether the caller bypasses ownership checks.
func (a Actor) IsAdmin() bool { return a.Role.IsAdmin() }

// RegisterInput carries the fields of a sign-up request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// ProfileUpdate holds the optional fields of a profile edit. Nil leaves the
// stored value unchanged.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// UserFilter holds optional filters for listing users.
type UserFilter struct {
	Role   *models.Role
	Search string
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, in RegisterInput) (*models.User, error)
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	ListUsers(ctx context.Context, filter UserFilter, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	UpdateRole(ctx context.Context, userID uint, role models.Role) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, upd ProfileUpdate) (*models.User, error)
	ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error
	DeleteUser(ctx context.Context, actor Actor, userID uint) error
}

// CategoryInput carries the writable fields of a category.
type CategoryInput struct {
	Name string
	Type models.CategoryType
}

// CategoryList is the category listing returned to clients.
type CategoryList struct {
	Data   []models.Category `json:"data"`
	Cached bool              `json:"cached"`
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	ListCategories(ctx context.Context, actor Actor, categoryType *models.CategoryType) (*CategoryList, error)
	GetCategoryByID(ctx context.Context, actor Actor, categoryID uint) (*models.Category, error)
	CreateCategory(ctx context.Context, actor Actor, in CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, actor Actor, categoryID uint, in CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, actor Actor, categoryID uint) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
// Its JSON form is part of the cache key.
type TransactionFilter struct {
	UserID     *uint                   `json:"user_id,omitempty"`
	Type       *models.TransactionType `json:"type,omitempty"`
	StartDate  *time.Time              `json:"start_date,omitempty"`
	EndDate    *time.Time              `json:"end_date,omitempty"`
	CategoryID *uint                   `json:"category_id,omitempty"`
}

// TransactionInput carries the writable fields of a transaction. A nil Date
// means today on create and "keep the stored date" on update.
type TransactionInput struct {
	Amount      decimal.Decimal
	Type        models.TransactionType
	Description *string
	Date        *time.Time
	CategoryID  *uint
}

// TransactionList is one page of transactions plus whether it was served
// from the cache.
type TransactionList struct {
	pagination.PageResponse[models.Transaction]
	Cached bool `json:"cached"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	ListTransactions(ctx context.Context, actor Actor, filter TransactionFilter, page pagination.PageRequest) (*TransactionList, error)
	GetTransactionByID(ctx context.Context, actor Actor, transactionID uint) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, actor Actor, in TransactionInput) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, actor Actor, transactionID uint, in TransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, actor Actor, transactionID uint) error
}

// AnalyticsQuery selects the date range of an analytics request. StartDate
// and EndDate, when both set, win over Period.
type AnalyticsQuery struct {
	Period    Period     `json:"period"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Summary totals one user's transactions in a range.
type Summary struct {
	TotalIncome   decimal.Decimal `json:"totalIncome" swaggertype:"number"`
	TotalExpenses decimal.Decimal `json:"totalExpenses" swaggertype:"number"`
	Balance       decimal.Decimal `json:"balance" swaggertype:"number"`
	IncomeCount   int64           `json:"incomeCount"`
	ExpenseCount  int64           `json:"expenseCount"`
}

// CategoryTotal is one row of the category breakdown.
type CategoryTotal struct {
	Category string                 `json:"category"`
	Type     models.TransactionType `json:"type"`
	Total    decimal.Decimal        `json:"total" swaggertype:"number"`
	Count    int64                  `json:"count"`
}

// MonthlyTrend is the total of one type in one calendar month.
type MonthlyTrend struct {
	Month string                 `json:"month"`
	Type  models.TransactionType `json:"type"`
	Total decimal.Decimal        `json:"total" swaggertype:"number"`
}

// Analytics is the dashboard payload.
type Analytics struct {
	Summary           Summary         `json:"summary"`
	CategoryBreakdown []CategoryTotal `json:"categoryBreakdown"`
	MonthlyTrends     []MonthlyTrend  `json:"monthlyTrends"`
}

// AnalyticsResult wraps Analytics with the cache flag.
type AnalyticsResult struct {
	Analytics
	Cached bool `json:"cached"`
}

// SpendingQuery parameterises the per-category spending report.
type SpendingQuery struct {
	Type      models.TransactionType `json:"type"`
	StartDate *time.Time             `json:"start_date,omitempty"`
	EndDate   *time.Time             `json:"end_date,omitempty"`
}

// CategorySpending is one row of the per-category spending report.
type CategorySpending struct {
	Category         string          `json:"category"`
	CategoryID       *uint           `json:"category_id"`
	Total            decimal.Decimal `json:"total" swaggertype:"number"`
	TransactionCount int64           `json:"transaction_count"`
	AverageAmount    decimal.Decimal `json:"average_amount" swaggertype:"number"`
	MaxAmount        decimal.Decimal `json:"max_amount" swaggertype:"number"`
	MinAmount        decimal.Decimal `json:"min_amount" swaggertype:"number"`
}

// SpendingResult wraps the spending report with the cache flag.
type SpendingResult struct {
	Data   []CategorySpending `json:"data"`
	Cached bool               `json:"cached"`
}

// TrendQuery parameterises the income-vs-expenses report.
type TrendQuery struct {
	GroupBy GroupBy `json:"group_by"`
	Limit   int     `json:"limit"`
}

// PeriodTotals compares income and expenses in one time bucket.
type PeriodTotals struct {
	Period   string          `json:"period"`
	Income   decimal.Decimal `json:"income" swaggertype:"number"`
	Expenses decimal.Decimal `json:"expenses" swaggertype:"number"`
	Net      decimal.Decimal `json:"net" swaggertype:"number"`
}

// TrendResult wraps the income-vs-expenses report with the cache flag.
type TrendResult struct {
	Data   []PeriodTotals `json:"data"`
	Cached bool           `json:"cached"`
}

// AnalyticsServicer defines the contract for aggregate reports.
type AnalyticsServicer interface {
	GetAnalytics(ctx context.Context, actor Actor, q AnalyticsQuery) (*AnalyticsResult, error)
	GetSpendingByCategory(ctx context.Context, actor Actor, q SpendingQuery) (*SpendingResult, error)
	GetIncomeVsExpenses(ctx context.Context, actor Actor, q TrendQuery) (*TrendResult, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, entry AuditEntry)
}
