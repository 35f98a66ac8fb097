package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

type mockCategoryService struct {
	listFn   func(actor services.Actor, categoryType *models.CategoryType) (*services.CategoryList, error)
	getFn    func(actor services.Actor, id uint) (*models.Category, error)
	createFn func(actor services.Actor, in services.CategoryInput) (*models.Category, error)
	updateFn func(actor services.Actor, id uint, in services.CategoryInput) (*models.Category, error)
	deleteFn func(actor services.Actor, id uint) error
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

func (m *mockCategoryService) ListCategories(_ context.Context, actor services.Actor, categoryType *models.CategoryType) (*services.CategoryList, error) {
	if m.listFn != nil {
		return m.listFn(actor, categoryType)
	}
	return &services.CategoryList{Data: []models.Category{}}, nil
}

func (m *mockCategoryService) GetCategoryByID(_ context.Context, actor services.Actor, id uint) (*models.Category, error) {
	if m.getFn != nil {
		return m.getFn(actor, id)
	}
	return &models.Category{Base: models.Base{ID: id}}, nil
}

func (m *mockCategoryService) CreateCategory(_ context.Context, actor services.Actor, in services.CategoryInput) (*models.Category, error) {
	if m.createFn != nil {
		return m.createFn(actor, in)
	}
	uid := actor.UserID
	return &models.Category{Base: models.Base{ID: 1}, Name: in.Name, Type: in.Type, UserID: &uid}, nil
}

func (m *mockCategoryService) UpdateCategory(_ context.Context, actor services.Actor, id uint, in services.CategoryInput) (*models.Category, error) {
	if m.updateFn != nil {
		return m.updateFn(actor, id, in)
	}
	return &models.Category{Base: models.Base{ID: id}, Name: in.Name, Type: in.Type}, nil
}

func (m *mockCategoryService) DeleteCategory(_ context.Context, actor services.Actor, id uint) error {
	if m.deleteFn != nil {
		return m.deleteFn(actor, id)
	}
	return nil
}

func setupCategoryRouter(handler *CategoryHandler) *gin.Engine {
	r := gin.New()
	g := r.Group("/categories", injectIdentity(1, models.RoleUser))
	g.GET("", handler.ListCategories)
	g.POST("", handler.CreateCategory)
	g.PUT("/:id", handler.UpdateCategory)
	g.DELETE("/:id", handler.DeleteCategory)
	return r
}

func TestCategoryHandler_List(t *testing.T) {
	t.Run("returns data and cached flag", func(t *testing.T) {
		var gotType *models.CategoryType
		svc := &mockCategoryService{
			listFn: func(_ services.Actor, categoryType *models.CategoryType) (*services.CategoryList, error) {
				gotType = categoryType
				return &services.CategoryList{
					Data:   []models.Category{{Name: "Salary", Type: models.CategoryTypeIncome}},
					Cached: true,
				}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc))

		rec := doRequest(r, http.MethodGet, "/categories?type=income", "")
		assertStatus(t, rec, http.StatusOK)

		if gotType == nil || *gotType != models.CategoryTypeIncome {
			t.Errorf("expected income filter, got %v", gotType)
		}
		result := parseJSON(t, rec)
		data, _ := result["data"].([]interface{})
		if len(data) != 1 || result["cached"] != true {
			t.Errorf("unexpected body: %v", result)
		}
	})

	t.Run("no filter", func(t *testing.T) {
		svc := &mockCategoryService{
			listFn: func(_ services.Actor, categoryType *models.CategoryType) (*services.CategoryList, error) {
				if categoryType != nil {
					t.Errorf("expected nil filter, got %v", *categoryType)
				}
				return &services.CategoryList{Data: []models.Category{}}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc))

		rec := doRequest(r, http.MethodGet, "/categories", "")
		assertStatus(t, rec, http.StatusOK)
	})

	t.Run("invalid type", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}))

		rec := doRequest(r, http.MethodGet, "/categories?type=savings", "")
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestCategoryHandler_Create(t *testing.T) {
	t.Run("returns 201", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}))

		rec := doRequest(r, http.MethodPost, "/categories", `{"name":"Pets","type":"expense"}`)
		assertStatus(t, rec, http.StatusCreated)

		category, _ := parseJSON(t, rec)["category"].(map[string]interface{})
		if category["name"] != "Pets" || category["user_id"] != float64(1) {
			t.Errorf("unexpected category: %v", category)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		svc := &mockCategoryService{
			createFn: func(services.Actor, services.CategoryInput) (*models.Category, error) {
				return nil, apperrors.ErrDuplicateCategory
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc))

		rec := doRequest(r, http.MethodPost, "/categories", `{"name":"Food","type":"expense"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_CATEGORY")
	})

	t.Run("validation", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}))

		for _, body := range []string{`{"type":"expense"}`, `{"name":"Pets","type":"other"}`} {
			rec := doRequest(r, http.MethodPost, "/categories", body)
			assertStatus(t, rec, http.StatusBadRequest)
			assertErrorCode(t, parseJSON(t, rec), "VALIDATION_FAILED")
		}
	})
}

func TestCategoryHandler_Update(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotID uint
		svc := &mockCategoryService{
			updateFn: func(_ services.Actor, id uint, in services.CategoryInput) (*models.Category, error) {
				gotID = id
				return &models.Category{Base: models.Base{ID: id}, Name: in.Name, Type: in.Type}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc))

		rec := doRequest(r, http.MethodPut, "/categories/4", `{"name":"Groceries","type":"expense"}`)
		assertStatus(t, rec, http.StatusOK)
		if gotID != 4 {
			t.Errorf("expected id 4, got %d", gotID)
		}
	})

	t.Run("global category", func(t *testing.T) {
		svc := &mockCategoryService{
			updateFn: func(services.Actor, uint, services.CategoryInput) (*models.Category, error) {
				return nil, apperrors.ErrForbidden
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc))

		rec := doRequest(r, http.MethodPut, "/categories/1", `{"name":"Food","type":"expense"}`)
		assertStatus(t, rec, http.StatusForbidden)
		assertErrorCode(t, parseJSON(t, rec), "FORBIDDEN")
	})
}

func TestCategoryHandler_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}))

		rec := doRequest(r, http.MethodDelete, "/categories/4", "")
		assertStatus(t, rec, http.StatusOK)
		if parseJSON(t, rec)["message"] != "Category deleted successfully" {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("not found", func(t *testing.T) {
		svc := &mockCategoryService{
			deleteFn: func(services.Actor, uint) error { return apperrors.ErrCategoryNotFound },
		}
		r := setupCategoryRouter(NewCategoryHandler(svc))

		rec := doRequest(r, http.MethodDelete, "/categories/4", "")
		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_NOT_FOUND")
	})
}
