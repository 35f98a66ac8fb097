package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"gorm.io/gorm"

	"fintrack/internal/cache"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/events"
	"fintrack/internal/models"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db     *gorm.DB
	cache  *cache.Store
	events events.Publisher
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB, store *cache.Store, publisher events.Publisher) CategoryServicer {
	if store == nil {
		store = cache.NewStore(nil)
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &categoryService{db: db, cache: store, events: publisher}
}

// ListCategories returns the global categories plus the caller's own, sorted
// by name. The full list is cached per user and filtered by type in memory.
func (s *categoryService) ListCategories(ctx context.Context, actor Actor, categoryType *models.CategoryType) (*CategoryList, error) {
	if categoryType != nil && !categoryType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Type must be income or expense")
	}

	all, cached, err := cache.Fetch(ctx, s.cache, cache.CategoriesKey(actor.UserID), cache.CategoriesTTL,
		func(ctx context.Context) ([]models.Category, error) {
			var categories []models.Category
			if err := s.db.WithContext(ctx).
				Where("user_id IS NULL OR user_id = ?", actor.UserID).
				Order("name ASC, id ASC").
				Find(&categories).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return categories, nil
		})
	if err != nil {
		return nil, err
	}

	data := all
	if categoryType != nil {
		data = slices.DeleteFunc(slices.Clone(all), func(c models.Category) bool {
			return c.Type != *categoryType
		})
	}
	if data == nil {
		data = []models.Category{}
	}
	return &CategoryList{Data: data, Cached: cached}, nil
}

// GetCategoryByID returns a category the caller can see: global, own, or any
// for admins.
func (s *categoryService) GetCategoryByID(ctx context.Context, actor Actor, categoryID uint) (*models.Category, error) {
	var category models.Category
	q := s.db.WithContext(ctx).Where("id = ?", categoryID)
	if !actor.IsAdmin() {
		q = q.Where("(user_id IS NULL OR user_id = ?)", actor.UserID)
	}
	if err := q.First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// CreateCategory creates a category owned by the caller.
func (s *categoryService) CreateCategory(ctx context.Context, actor Actor, in CategoryInput) (*models.Category, error) {
	name, err := validateCategoryInput(in)
	if err != nil {
		return nil, err
	}

	ownerID := actor.UserID
	if err := s.checkDuplicate(ctx, name, in.Type, &ownerID, 0); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:   name,
		Type:   in.Type,
		UserID: &ownerID,
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateCategory
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.cache.InvalidateUser(ctx, ownerID)
	events.Emit(ctx, s.events, events.New(events.CategoryCreated, ownerID, category.ID))
	return category, nil
}

// UpdateCategory renames or retypes a category. Owners may edit their own;
// global categories are editable by admins only.
func (s *categoryService) UpdateCategory(ctx context.Context, actor Actor, categoryID uint, in CategoryInput) (*models.Category, error) {
	name, err := validateCategoryInput(in)
	if err != nil {
		return nil, err
	}

	category, err := s.editableCategory(ctx, actor, categoryID)
	if err != nil {
		return nil, err
	}

	if err := s.checkDuplicate(ctx, name, in.Type, category.UserID, category.ID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(category).Updates(map[string]any{
		"name": name,
		"type": in.Type,
	}).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateCategory
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	category.Name = name
	category.Type = in.Type

	s.invalidateFor(ctx, category)
	events.Emit(ctx, s.events, events.New(events.CategoryUpdated, actor.UserID, category.ID))
	return category, nil
}

// DeleteCategory removes a category. Referencing transactions keep existing
// with their category cleared by the ON DELETE SET NULL rule.
func (s *categoryService) DeleteCategory(ctx context.Context, actor Actor, categoryID uint) error {
	category, err := s.editableCategory(ctx, actor, categoryID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Category{}, category.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.invalidateFor(ctx, category)
	events.Emit(ctx, s.events, events.New(events.CategoryDeleted, actor.UserID, category.ID))
	return nil
}

// editableCategory loads a category the caller may change. A visible global
// category is forbidden to non-admins; anything else they cannot see is not found.
func (s *categoryService) editableCategory(ctx context.Context, actor Actor, categoryID uint) (*models.Category, error) {
	category, err := s.GetCategoryByID(ctx, actor, categoryID)
	if err != nil {
		return nil, err
	}
	if category.IsGlobal() && !actor.IsAdmin() {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "Only admins can modify default categories")
	}
	return category, nil
}

// checkDuplicate rejects a (name, type, owner) triple already in use by
// another category. NULL owners are compared explicitly.
func (s *categoryService) checkDuplicate(ctx context.Context, name string, categoryType models.CategoryType, ownerID *uint, excludeID uint) error {
	q := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("name = ? AND type = ?", name, categoryType)
	if ownerID == nil {
		q = q.Where("user_id IS NULL")
	} else {
		q = q.Where("user_id = ?", *ownerID)
	}
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateCategory
	}
	return nil
}

// invalidateFor drops the caches that can contain category: the owner's, or
// everyone's for a global category.
func (s *categoryService) invalidateFor(ctx context.Context, category *models.Category) {
	if category.IsGlobal() {
		s.cache.InvalidateAll(ctx)
		return
	}
	s.cache.InvalidateUser(ctx, *category.UserID)
}

func validateCategoryInput(in CategoryInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Name and type are required")
	}
	if !in.Type.Valid() {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Type must be income or expense")
	}
	return name, nil
}
