package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
	"fintrack/internal/validator"
)

// --- mock services ---

type mockUserService struct {
	createUserFn     func(in services.RegisterInput) (*models.User, error)
	attemptLoginFn   func(email, password string) (*models.User, error)
	getUserByIDFn    func(id uint) (*models.User, error)
	getUserByEmailFn func(email string) (*models.User, error)
	listUsersFn      func(filter services.UserFilter, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	updateRoleFn     func(id uint, role models.Role) (*models.User, error)
	updateProfileFn  func(id uint, upd services.ProfileUpdate) (*models.User, error)
	changePasswordFn func(id uint, current, next string) error
	deleteUserFn     func(actor services.Actor, id uint) error
}

var _ services.UserServicer = (*mockUserService)(nil)

func (m *mockUserService) CreateUser(_ context.Context, in services.RegisterInput) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(in)
	}
	return &models.User{}, nil
}

func (m *mockUserService) AttemptLogin(_ context.Context, email, password string) (*models.User, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(email, password)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(email)
	}
	return &models.User{}, nil
}

func (m *mockUserService) VerifyPassword(*models.User, string) bool { return true }

func (m *mockUserService) ListUsers(_ context.Context, filter services.UserFilter, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(filter, page)
	}
	resp := pagination.NewPageResponse[models.User](nil, 1, pagination.DefaultPageSize, 0)
	return &resp, nil
}

func (m *mockUserService) UpdateRole(_ context.Context, id uint, role models.Role) (*models.User, error) {
	if m.updateRoleFn != nil {
		return m.updateRoleFn(id, role)
	}
	return &models.User{Base: models.Base{ID: id}, Role: role}, nil
}

func (m *mockUserService) UpdateProfile(_ context.Context, id uint, upd services.ProfileUpdate) (*models.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(id, upd)
	}
	return &models.User{Base: models.Base{ID: id}}, nil
}

func (m *mockUserService) ChangePassword(_ context.Context, id uint, current, next string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(id, current, next)
	}
	return nil
}

func (m *mockUserService) DeleteUser(_ context.Context, actor services.Actor, id uint) error {
	if m.deleteUserFn != nil {
		return m.deleteUserFn(actor, id)
	}
	return nil
}

type mockAuditService struct {
	entries []services.AuditEntry
}

var _ services.AuditServicer = (*mockAuditService)(nil)

func (m *mockAuditService) Log(_ context.Context, entry services.AuditEntry) {
	m.entries = append(m.entries, entry)
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

const testSecret = "handler-test-secret"

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	r.GET("/auth/profile", injectIdentity(1, models.RoleUser), handler.GetProfile)
	r.GET("/auth/anonymous", handler.GetProfile)
	return r
}

func injectIdentity(uid uint, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetIdentity(c, middleware.Identity{UserID: uid, Email: "test@example.com", Role: role})
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

// --- tests ---

func TestAuthHandler_Register(t *testing.T) {
	tokens := middleware.NewTokenManager(testSecret, time.Hour)

	t.Run("returns 201 with token and user", func(t *testing.T) {
		var got services.RegisterInput
		userSvc := &mockUserService{
			createUserFn: func(in services.RegisterInput) (*models.User, error) {
				got = in
				return &models.User{Base: models.Base{ID: 7}, Name: in.Name, Email: in.Email, Role: models.RoleUser}, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, tokens))

		rec := doRequest(r, http.MethodPost, "/auth/register", `{"name":"A","email":"a@x.com","password":"secret1"}`)
		assertStatus(t, rec, http.StatusCreated)

		if got.Email != "a@x.com" || got.Password != "secret1" || got.Role != "" {
			t.Errorf("unexpected service input: %+v", got)
		}

		result := parseJSON(t, rec)
		token, _ := result["token"].(string)
		claims, err := tokens.Verify(token)
		if err != nil {
			t.Fatalf("expected verifiable token, got %v", err)
		}
		if claims.UserID != 7 || claims.Role != models.RoleUser {
			t.Errorf("unexpected claims: %+v", claims)
		}
		user, _ := result["user"].(map[string]interface{})
		if user["email"] != "a@x.com" {
			t.Errorf("expected user email in response, got %v", result["user"])
		}
		if _, leaked := user["password"]; leaked {
			t.Error("password hash must not be serialized")
		}
	})

	t.Run("validation errors list fields", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, tokens))

		rec := doRequest(r, http.MethodPost, "/auth/register", `{"name":"","email":"nope","password":"123"}`)
		assertStatus(t, rec, http.StatusBadRequest)

		result := parseJSON(t, rec)
		assertErrorCode(t, result, "VALIDATION_FAILED")
		details, _ := result["error"].(map[string]interface{})["details"].([]interface{})
		if len(details) != 3 {
			t.Errorf("expected 3 field errors, got %v", details)
		}
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, tokens))

		rec := doRequest(r, http.MethodPost, "/auth/register", `{"name":"A","email":"a@x.com","password":"secret1","role":"root"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_FAILED")
	})

	t.Run("malformed JSON", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, tokens))

		rec := doRequest(r, http.MethodPost, "/auth/register", `{"name":`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("propagates service errors", func(t *testing.T) {
		userSvc := &mockUserService{
			createUserFn: func(services.RegisterInput) (*models.User, error) {
				return nil, apperrors.ErrDuplicateEmail
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, tokens))

		rec := doRequest(r, http.MethodPost, "/auth/register", `{"name":"A","email":"a@x.com","password":"secret1"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_EMAIL")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	tokens := middleware.NewTokenManager(testSecret, time.Hour)

	t.Run("returns token on success", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(email, password string) (*models.User, error) {
				if email != "a@x.com" || password != "secret1" {
					t.Errorf("unexpected credentials %q/%q", email, password)
				}
				return &models.User{Base: models.Base{ID: 3}, Email: email, Role: models.RoleReadOnly}, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, tokens))

		rec := doRequest(r, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret1"}`)
		assertStatus(t, rec, http.StatusOK)

		token, _ := parseJSON(t, rec)["token"].(string)
		claims, err := tokens.Verify(token)
		if err != nil {
			t.Fatalf("expected verifiable token, got %v", err)
		}
		if claims.Role != models.RoleReadOnly {
			t.Errorf("expected read-only role in token, got %q", claims.Role)
		}
	})

	t.Run("bad credentials return 401", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(string, string) (*models.User, error) {
				return nil, apperrors.ErrInvalidCredentials
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, tokens))

		rec := doRequest(r, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"wrong"}`)
		assertStatus(t, rec, http.StatusUnauthorized)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_CREDENTIALS")
	})

	t.Run("missing password", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, tokens))

		rec := doRequest(r, http.MethodPost, "/auth/login", `{"email":"a@x.com"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_FAILED")
	})
}

func TestAuthHandler_GetProfile(t *testing.T) {
	tokens := middleware.NewTokenManager(testSecret, time.Hour)

	t.Run("returns the caller", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByIDFn: func(id uint) (*models.User, error) {
				return &models.User{Base: models.Base{ID: id}, Name: "Alice"}, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, tokens))

		rec := doRequest(r, http.MethodGet, "/auth/profile", "")
		assertStatus(t, rec, http.StatusOK)

		user, _ := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["name"] != "Alice" || user["id"] != float64(1) {
			t.Errorf("unexpected user: %v", user)
		}
	})

	t.Run("deleted user", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByIDFn: func(uint) (*models.User, error) { return nil, apperrors.ErrUserNotFound },
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, tokens))

		rec := doRequest(r, http.MethodGet, "/auth/profile", "")
		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "USER_NOT_FOUND")
	})

	t.Run("no identity", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, tokens))

		rec := doRequest(r, http.MethodGet, "/auth/anonymous", "")
		assertStatus(t, rec, http.StatusUnauthorized)
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
	})
}
