package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/cache"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/events"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// minAmount is the smallest storable amount; amounts are kept to cents.
var minAmount = decimal.New(1, -2)

// TransactionOptions tunes the transaction service.
type TransactionOptions struct {
	// EnforceCategoryTypeMatch rejects a transaction whose type differs from
	// its linked category's type.
	EnforceCategoryTypeMatch bool
	// Now supplies the current time; nil means time.Now.
	Now func() time.Time
}

// transactionService handles transaction-related business logic.
type transactionService struct {
	db     *gorm.DB
	cache  *cache.Store
	events events.Publisher
	opts   TransactionOptions
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, store *cache.Store, publisher events.Publisher, opts TransactionOptions) TransactionServicer {
	if store == nil {
		store = cache.NewStore(nil)
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &transactionService{db: db, cache: store, events: publisher, opts: opts}
}

// listKey is the part of a listing request that selects its cache entry.
type listKey struct {
	Filter   TransactionFilter `json:"filter"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ListTransactions returns the caller's transactions, newest first. Admins
// may list another user's by setting filter.UserID.
func (s *transactionService) ListTransactions(ctx context.Context, actor Actor, filter TransactionFilter, page pagination.PageRequest) (*TransactionList, error) {
	page.Defaults()

	if filter.Type != nil && !filter.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}

	ownerID := actor.UserID
	if actor.IsAdmin() && filter.UserID != nil {
		ownerID = *filter.UserID
	}
	filter.UserID = nil

	key := cache.TransactionsKey(ownerID, listKey{Filter: filter, Page: page.Page, PageSize: page.PageSize})
	result, cached, err := cache.Fetch(ctx, s.cache, key, cache.TransactionsTTL,
		func(ctx context.Context) (pagination.PageResponse[models.Transaction], error) {
			return s.queryTransactions(ctx, ownerID, filter, page)
		})
	if err != nil {
		return nil, err
	}

	return &TransactionList{PageResponse: result, Cached: cached}, nil
}

func (s *transactionService) queryTransactions(ctx context.Context, ownerID uint, filter TransactionFilter, page pagination.PageRequest) (pagination.PageResponse[models.Transaction], error) {
	base := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transactions.user_id = ?", ownerID)
	base = applyTransactionFilters(base, filter).Session(&gorm.Session{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return pagination.PageResponse[models.Transaction]{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := withCategoryName(base).
		Scopes(pagination.Paginate(page)).
		Order("transactions.date DESC, transactions.created_at DESC, transactions.id DESC").
		Find(&transactions).Error; err != nil {
		return pagination.PageResponse[models.Transaction]{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems), nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.Type != nil {
		q = q.Where("transactions.type = ?", *f.Type)
	}
	if f.StartDate != nil {
		q = q.Where("transactions.date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("transactions.date <= ?", *f.EndDate)
	}
	if f.CategoryID != nil {
		q = q.Where("transactions.category_id = ?", *f.CategoryID)
	}
	return q
}

// withCategoryName joins the category name onto each transaction row.
func withCategoryName(q *gorm.DB) *gorm.DB {
	return q.Select("transactions.*, categories.name AS category_name").
		Joins("LEFT JOIN categories ON categories.id = transactions.category_id")
}

// GetTransactionByID returns a transaction visible to the caller. Rows owned
// by someone else are reported as not found unless the caller is an admin.
func (s *transactionService) GetTransactionByID(ctx context.Context, actor Actor, transactionID uint) (*models.Transaction, error) {
	if actor.IsAdmin() {
		return s.findTransaction(ctx, transactionID, nil)
	}
	return s.findTransaction(ctx, transactionID, &actor.UserID)
}

// findTransaction loads one transaction with its category name, restricted
// to ownerID when set.
func (s *transactionService) findTransaction(ctx context.Context, transactionID uint, ownerID *uint) (*models.Transaction, error) {
	q := withCategoryName(s.db.WithContext(ctx).Model(&models.Transaction{})).
		Where("transactions.id = ?", transactionID)
	if ownerID != nil {
		q = q.Where("transactions.user_id = ?", *ownerID)
	}

	var transaction models.Transaction
	if err := q.First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// CreateTransaction records a transaction for the caller. The date defaults
// to today.
func (s *transactionService) CreateTransaction(ctx context.Context, actor Actor, in TransactionInput) (*models.Transaction, error) {
	if err := s.validateInput(ctx, actor.UserID, in); err != nil {
		return nil, err
	}

	date := models.TruncateToDate(s.opts.Now())
	if in.Date != nil {
		date = models.TruncateToDate(*in.Date)
	}

	transaction := &models.Transaction{
		UserID:      actor.UserID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount.Round(2),
		Type:        in.Type,
		Description: in.Description,
		Date:        date,
	}
	if err := s.db.WithContext(ctx).Create(transaction).Error; err != nil {
		if isForeignKeyError(err) {
			return nil, s.foreignKeyError(ctx, actor.UserID, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.cache.InvalidateUser(ctx, actor.UserID)
	events.Emit(ctx, s.events, events.New(events.TransactionCreated, actor.UserID, transaction.ID))

	return s.findTransaction(ctx, transaction.ID, nil)
}

// UpdateTransaction replaces the writable fields of a transaction. An omitted
// date keeps the stored one; an omitted category or description clears it.
func (s *transactionService) UpdateTransaction(ctx context.Context, actor Actor, transactionID uint, in TransactionInput) (*models.Transaction, error) {
	existing, err := s.GetTransactionByID(ctx, actor, transactionID)
	if err != nil {
		return nil, err
	}

	if err := s.validateInput(ctx, existing.UserID, in); err != nil {
		return nil, err
	}

	date := existing.Date
	if in.Date != nil {
		date = models.TruncateToDate(*in.Date)
	}

	updates := map[string]any{
		"amount":      in.Amount.Round(2),
		"type":        in.Type,
		"description": in.Description,
		"date":        date,
		"category_id": in.CategoryID,
	}
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		if isForeignKeyError(err) {
			return nil, s.foreignKeyError(ctx, existing.UserID, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.cache.InvalidateUser(ctx, existing.UserID)
	events.Emit(ctx, s.events, events.New(events.TransactionUpdated, existing.UserID, existing.ID))

	return s.findTransaction(ctx, existing.ID, nil)
}

// DeleteTransaction removes a transaction owned by the caller, or any
// transaction for admins.
func (s *transactionService) DeleteTransaction(ctx context.Context, actor Actor, transactionID uint) error {
	existing, err := s.GetTransactionByID(ctx, actor, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Transaction{}, existing.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.cache.InvalidateUser(ctx, existing.UserID)
	events.Emit(ctx, s.events, events.New(events.TransactionDeleted, existing.UserID, existing.ID))
	return nil
}

// foreignKeyError maps a failed insert or update to the reference that broke.
// SQLite does not name the constraint, so the owner is looked up.
func (s *transactionService) foreignKeyError(ctx context.Context, ownerID uint, err error) error {
	var count int64
	if lookupErr := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", ownerID).Count(&count).Error; lookupErr != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrUserNotFound
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid category ID")
}

// validateInput checks amount and type, and that a linked category is visible
// to ownerID (global or owned by them).
func (s *transactionService) validateInput(ctx context.Context, ownerID uint, in TransactionInput) error {
	if in.Amount.LessThan(minAmount) {
		return apperrors.ErrInvalidAmount
	}
	if !in.Type.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	if in.CategoryID == nil {
		return nil
	}

	var category models.Category
	if err := s.db.WithContext(ctx).
		Where("id = ? AND (user_id IS NULL OR user_id = ?)", *in.CategoryID, ownerID).
		First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid category ID")
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if s.opts.EnforceCategoryTypeMatch && string(category.Type) != string(in.Type) {
		return apperrors.ErrCategoryTypeMismatch
	}
	return nil
}
