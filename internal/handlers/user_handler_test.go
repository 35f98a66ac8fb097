package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
)

func setupUserRouter(handler *UserHandler, uid uint, role models.Role) *gin.Engine {
	r := gin.New()
	g := r.Group("/users", injectIdentity(uid, role))
	g.GET("", handler.ListUsers)
	g.PUT("/profile", handler.UpdateProfile)
	g.PUT("/change-password", handler.ChangePassword)
	g.GET("/:id", handler.GetUser)
	g.PUT("/:id/role", handler.UpdateRole)
	g.DELETE("/:id", handler.DeleteUser)
	return r
}

func TestUserHandler_ListUsers(t *testing.T) {
	t.Run("passes filters", func(t *testing.T) {
		var gotFilter services.UserFilter
		var gotPage pagination.PageRequest
		svc := &mockUserService{
			listUsersFn: func(filter services.UserFilter, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
				gotFilter, gotPage = filter, page
				resp := pagination.NewPageResponse([]models.User{{Name: "Alice"}}, 1, 10, 1)
				return &resp, nil
			},
		}
		r := setupUserRouter(NewUserHandler(svc, &mockAuditService{}), 1, models.RoleAdmin)

		rec := doRequest(r, http.MethodGet, "/users?role=read-only&search=%20ali%20&page_size=10", "")
		assertStatus(t, rec, http.StatusOK)

		if gotFilter.Role == nil || *gotFilter.Role != models.RoleReadOnly {
			t.Errorf("expected read-only filter, got %v", gotFilter.Role)
		}
		if gotFilter.Search != "ali" {
			t.Errorf("expected trimmed search, got %q", gotFilter.Search)
		}
		if gotPage.PageSize != 10 {
			t.Errorf("expected page size 10, got %d", gotPage.PageSize)
		}
		data, _ := parseJSON(t, rec)["data"].([]interface{})
		if len(data) != 1 {
			t.Errorf("expected one user, got %v", data)
		}
	})

	t.Run("invalid role", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&mockUserService{}, &mockAuditService{}), 1, models.RoleAdmin)

		rec := doRequest(r, http.MethodGet, "/users?role=owner", "")
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestUserHandler_GetUser(t *testing.T) {
	svc := &mockUserService{
		getUserByIDFn: func(id uint) (*models.User, error) {
			if id == 404 {
				return nil, apperrors.ErrUserNotFound
			}
			return &models.User{Base: models.Base{ID: id}, Name: "Bob"}, nil
		},
	}
	r := setupUserRouter(NewUserHandler(svc, &mockAuditService{}), 1, models.RoleAdmin)

	rec := doRequest(r, http.MethodGet, "/users/2", "")
	assertStatus(t, rec, http.StatusOK)
	user, _ := parseJSON(t, rec)["user"].(map[string]interface{})
	if user["name"] != "Bob" {
		t.Errorf("unexpected user: %v", user)
	}

	rec = doRequest(r, http.MethodGet, "/users/404", "")
	assertStatus(t, rec, http.StatusNotFound)
	assertErrorCode(t, parseJSON(t, rec), "USER_NOT_FOUND")
}

func TestUserHandler_UpdateRole(t *testing.T) {
	t.Run("success is audited", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupUserRouter(NewUserHandler(&mockUserService{}, audit), 1, models.RoleAdmin)

		rec := doRequest(r, http.MethodPut, "/users/5/role", `{"role":"read-only"}`)
		assertStatus(t, rec, http.StatusOK)

		user, _ := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["role"] != "read-only" {
			t.Errorf("unexpected user: %v", user)
		}
		if len(audit.entries) != 1 {
			t.Fatalf("expected 1 audit entry, got %+v", audit.entries)
		}
		e := audit.entries[0]
		if e.ActorID != 1 || e.Action != models.AuditChangeRole || e.ResourceType != "user" || e.ResourceID != 5 {
			t.Errorf("unexpected audit entry: %+v", e)
		}
		if e.Changes["role"] != models.RoleReadOnly {
			t.Errorf("expected role change to be recorded, got %v", e.Changes)
		}
	})

	t.Run("invalid role", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupUserRouter(NewUserHandler(&mockUserService{}, audit), 1, models.RoleAdmin)

		rec := doRequest(r, http.MethodPut, "/users/5/role", `{"role":"superuser"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_FAILED")
		if len(audit.entries) != 0 {
			t.Errorf("expected no audit entries, got %+v", audit.entries)
		}
	})
}

func TestUserHandler_DeleteUser(t *testing.T) {
	t.Run("passes actor", func(t *testing.T) {
		var gotActor services.Actor
		var gotID uint
		svc := &mockUserService{
			deleteUserFn: func(actor services.Actor, id uint) error {
				gotActor, gotID = actor, id
				return nil
			},
		}
		audit := &mockAuditService{}
		r := setupUserRouter(NewUserHandler(svc, audit), 3, models.RoleUser)

		rec := doRequest(r, http.MethodDelete, "/users/3", "")
		assertStatus(t, rec, http.StatusOK)

		if gotActor.UserID != 3 || gotActor.Role != models.RoleUser || gotID != 3 {
			t.Errorf("unexpected call: actor=%+v id=%d", gotActor, gotID)
		}
		if len(audit.entries) != 1 || audit.entries[0].Action != models.AuditDeleteUser {
			t.Errorf("unexpected audit entries: %+v", audit.entries)
		}
	})

	t.Run("forbidden", func(t *testing.T) {
		svc := &mockUserService{
			deleteUserFn: func(services.Actor, uint) error { return apperrors.ErrSelfDeleteOnly },
		}
		r := setupUserRouter(NewUserHandler(svc, &mockAuditService{}), 3, models.RoleUser)

		rec := doRequest(r, http.MethodDelete, "/users/4", "")
		assertStatus(t, rec, http.StatusForbidden)
		assertErrorCode(t, parseJSON(t, rec), "FORBIDDEN")
	})
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	t.Run("only provided fields are set", func(t *testing.T) {
		var got services.ProfileUpdate
		svc := &mockUserService{
			updateProfileFn: func(id uint, upd services.ProfileUpdate) (*models.User, error) {
				got = upd
				return &models.User{Base: models.Base{ID: id}, Name: *upd.Name}, nil
			},
		}
		r := setupUserRouter(NewUserHandler(svc, &mockAuditService{}), 2, models.RoleUser)

		rec := doRequest(r, http.MethodPut, "/users/profile", `{"name":"New Name"}`)
		assertStatus(t, rec, http.StatusOK)

		if got.Name == nil || *got.Name != "New Name" {
			t.Errorf("expected name, got %v", got.Name)
		}
		if got.Email != nil {
			t.Errorf("expected nil email, got %v", *got.Email)
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&mockUserService{}, &mockAuditService{}), 2, models.RoleUser)

		rec := doRequest(r, http.MethodPut, "/users/profile", `{"email":"not-an-email"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_FAILED")
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := &mockUserService{
			updateProfileFn: func(uint, services.ProfileUpdate) (*models.User, error) {
				return nil, apperrors.ErrDuplicateEmail
			},
		}
		r := setupUserRouter(NewUserHandler(svc, &mockAuditService{}), 2, models.RoleUser)

		rec := doRequest(r, http.MethodPut, "/users/profile", `{"email":"taken@x.com"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_EMAIL")
	})
}

func TestUserHandler_ChangePassword(t *testing.T) {
	t.Run("success is audited", func(t *testing.T) {
		var gotCurrent, gotNext string
		svc := &mockUserService{
			changePasswordFn: func(_ uint, current, next string) error {
				gotCurrent, gotNext = current, next
				return nil
			},
		}
		audit := &mockAuditService{}
		r := setupUserRouter(NewUserHandler(svc, audit), 2, models.RoleUser)

		rec := doRequest(r, http.MethodPut, "/users/change-password", `{"currentPassword":"secret1","newPassword":"secret2"}`)
		assertStatus(t, rec, http.StatusOK)

		if gotCurrent != "secret1" || gotNext != "secret2" {
			t.Errorf("unexpected passwords %q/%q", gotCurrent, gotNext)
		}
		if len(audit.entries) != 1 || audit.entries[0].Action != models.AuditChangePassword || audit.entries[0].ResourceID != 2 {
			t.Errorf("unexpected audit entries: %+v", audit.entries)
		}
	})

	t.Run("short new password", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&mockUserService{}, &mockAuditService{}), 2, models.RoleUser)

		rec := doRequest(r, http.MethodPut, "/users/change-password", `{"currentPassword":"secret1","newPassword":"12345"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_FAILED")
	})

	t.Run("wrong current password", func(t *testing.T) {
		svc := &mockUserService{
			changePasswordFn: func(uint, string, string) error { return apperrors.ErrWrongPassword },
		}
		r := setupUserRouter(NewUserHandler(svc, &mockAuditService{}), 2, models.RoleUser)

		rec := doRequest(r, http.MethodPut, "/users/change-password", `{"currentPassword":"nope","newPassword":"secret2"}`)
		assertStatus(t, rec, http.StatusUnauthorized)
		assertErrorCode(t, parseJSON(t, rec), "WRONG_PASSWORD")
	})
}
