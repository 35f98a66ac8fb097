package services

import (
	"testing"

	"fintrack/internal/cache"
	"fintrack/internal/events"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	t.Run("defaults_to_user_role", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.userService(false)

		user, err := svc.CreateUser(bg, RegisterInput{Name: "A", Email: "A@X.com", Password: "secret1"})
		testutil.AssertNoError(t, err)

		if user.ID == 0 {
			t.Fatal("expected non-zero user ID")
		}
		if user.Role != models.RoleUser {
			t.Errorf("expected role user, got %s", user.Role)
		}
		if user.Email != "a@x.com" {
			t.Errorf("expected lower-cased email, got %s", user.Email)
		}
		if user.Password == "secret1" {
			t.Error("password should be hashed")
		}
	})

	t.Run("read_only_role", func(t *testing.T) {
		env := newTestEnv(t)
		user, err := env.userService(false).CreateUser(bg, RegisterInput{
			Name: "R", Email: "r@x.com", Password: "secret1", Role: models.RoleReadOnly,
		})
		testutil.AssertNoError(t, err)
		if user.Role != models.RoleReadOnly {
			t.Errorf("expected read-only, got %s", user.Role)
		}
	})

	t.Run("admin_signup_disabled", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.userService(false).CreateUser(bg, RegisterInput{
			Name: "A", Email: "a@x.com", Password: "secret1", Role: models.RoleAdmin,
		})
		testutil.AssertAppError(t, err, "ADMIN_SIGNUP_DISABLED")
	})

	t.Run("admin_signup_enabled", func(t *testing.T) {
		env := newTestEnv(t)
		user, err := env.userService(true).CreateUser(bg, RegisterInput{
			Name: "A", Email: "a@x.com", Password: "secret1", Role: models.RoleAdmin,
		})
		testutil.AssertNoError(t, err)
		if !user.Role.IsAdmin() {
			t.Errorf("expected admin, got %s", user.Role)
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.userService(false)
		_, err := svc.CreateUser(bg, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser(bg, RegisterInput{Name: "B", Email: "A@x.com", Password: "secret2"})
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("short_password", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.userService(false).CreateUser(bg, RegisterInput{Name: "A", Email: "a@x.com", Password: "12345"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("invalid_role", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.userService(false).CreateUser(bg, RegisterInput{
			Name: "A", Email: "a@x.com", Password: "secret1", Role: "superuser",
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAttemptLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := env.userService(false)
	created, err := svc.CreateUser(bg, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	testutil.AssertNoError(t, err)

	t.Run("success", func(t *testing.T) {
		user, err := svc.AttemptLogin(bg, "A@x.com", "secret1")
		testutil.AssertNoError(t, err)
		if user.ID != created.ID {
			t.Errorf("expected user %d, got %d", created.ID, user.ID)
		}
	})

	t.Run("wrong_password", func(t *testing.T) {
		_, err := svc.AttemptLogin(bg, "a@x.com", "nope")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("unknown_email", func(t *testing.T) {
		_, err := svc.AttemptLogin(bg, "ghost@x.com", "secret1")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	svc := env.userService(false)
	testutil.CreateTestUserWithEmail(t, env.db, "alice@example.com", models.RoleUser)
	testutil.CreateTestUserWithEmail(t, env.db, "bob@example.com", models.RoleReadOnly)
	testutil.CreateTestUserWithEmail(t, env.db, "carol@example.com", models.RoleAdmin)

	t.Run("all", func(t *testing.T) {
		page, err := svc.ListUsers(bg, UserFilter{}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 3 || len(page.Data) != 3 {
			t.Errorf("expected 3 users, got total=%d len=%d", page.TotalItems, len(page.Data))
		}
	})

	t.Run("by_role", func(t *testing.T) {
		page, err := svc.ListUsers(bg, UserFilter{Role: ptr(models.RoleReadOnly)}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 || page.Data[0].Email != "bob@example.com" {
			t.Errorf("expected only bob, got %+v", page.Data)
		}
	})

	t.Run("search_is_case_insensitive", func(t *testing.T) {
		page, err := svc.ListUsers(bg, UserFilter{Search: "ALI"}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 || page.Data[0].Email != "alice@example.com" {
			t.Errorf("expected only alice, got %+v", page.Data)
		}
	})

	t.Run("paginated", func(t *testing.T) {
		page, err := svc.ListUsers(bg, UserFilter{}, pagination.PageRequest{Page: 2, PageSize: 2})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 3 || len(page.Data) != 1 || page.TotalPages != 2 {
			t.Errorf("unexpected page: total=%d len=%d pages=%d", page.TotalItems, len(page.Data), page.TotalPages)
		}
	})
}

func TestUpdateRole(t *testing.T) {
	t.Run("promotes_user", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.userService(false)
		user := testutil.CreateTestUser(t, env.db)

		updated, err := svc.UpdateRole(bg, user.ID, models.RoleAdmin)
		testutil.AssertNoError(t, err)
		if updated.Role != models.RoleAdmin {
			t.Errorf("expected admin, got %s", updated.Role)
		}

		reloaded, err := svc.GetUserByID(bg, user.ID)
		testutil.AssertNoError(t, err)
		if reloaded.Role != models.RoleAdmin {
			t.Errorf("expected stored role admin, got %s", reloaded.Role)
		}

		if got := env.events.Types(); len(got) != 1 || got[0] != events.UserRoleChanged {
			t.Errorf("expected role_changed event, got %v", got)
		}
	})

	t.Run("invalid_role", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		_, err := env.userService(false).UpdateRole(bg, user.ID, "root")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("not_found", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.userService(false).UpdateRole(bg, 9999, models.RoleUser)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	svc := env.userService(false)
	user := testutil.CreateTestUserWithEmail(t, env.db, "me@example.com", models.RoleUser)
	testutil.CreateTestUserWithEmail(t, env.db, "taken@example.com", models.RoleUser)

	t.Run("changes_name_only", func(t *testing.T) {
		updated, err := svc.UpdateProfile(bg, user.ID, ProfileUpdate{Name: ptr("New Name")})
		testutil.AssertNoError(t, err)
		if updated.Name != "New Name" || updated.Email != "me@example.com" {
			t.Errorf("unexpected profile: %+v", updated)
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		_, err := svc.UpdateProfile(bg, user.ID, ProfileUpdate{Email: ptr("Taken@example.com")})
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("new_email", func(t *testing.T) {
		updated, err := svc.UpdateProfile(bg, user.ID, ProfileUpdate{Email: ptr("fresh@example.com")})
		testutil.AssertNoError(t, err)
		if updated.Email != "fresh@example.com" {
			t.Errorf("expected fresh@example.com, got %s", updated.Email)
		}
	})
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	svc := env.userService(false)
	user := testutil.CreateTestUser(t, env.db)

	t.Run("wrong_current", func(t *testing.T) {
		err := svc.ChangePassword(bg, user.ID, "wrong", "newsecret")
		testutil.AssertAppError(t, err, "WRONG_PASSWORD")
	})

	t.Run("too_short", func(t *testing.T) {
		err := svc.ChangePassword(bg, user.ID, testutil.TestPassword, "123")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("success", func(t *testing.T) {
		err := svc.ChangePassword(bg, user.ID, testutil.TestPassword, "newsecret")
		testutil.AssertNoError(t, err)

		if _, err := svc.AttemptLogin(bg, user.Email, "newsecret"); err != nil {
			t.Errorf("expected login with new password to succeed: %v", err)
		}
		if _, err := svc.AttemptLogin(bg, user.Email, testutil.TestPassword); err == nil {
			t.Error("expected login with old password to fail")
		}
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("non_admin_cannot_delete_others", func(t *testing.T) {
		env := newTestEnv(t)
		me := testutil.CreateTestUser(t, env.db)
		other := testutil.CreateTestUser(t, env.db)

		err := env.userService(false).DeleteUser(bg, actorFor(me), other.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("self_delete_cascades", func(t *testing.T) {
		env := newTestEnv(t)
		me := testutil.CreateTestUser(t, env.db)
		cat := testutil.CreateTestCategory(t, env.db, me.ID, models.CategoryTypeExpense)
		testutil.CreateTestTransaction(t, env.db, me.ID, models.TransactionTypeExpense, "20.00",
			testutil.TransactionOpts{CategoryID: &cat.ID})

		// Warm the cache so the test can observe invalidation.
		env.store.SetJSON(bg, cache.TransactionsKey(me.ID, "warm"), []int{1}, cache.TransactionsTTL)

		err := env.userService(false).DeleteUser(bg, actorFor(me), me.ID)
		testutil.AssertNoError(t, err)

		var count int64
		env.db.Model(&models.Transaction{}).Where("user_id = ?", me.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected transactions to cascade, found %d", count)
		}
		env.db.Model(&models.Category{}).Where("user_id = ?", me.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected categories to cascade, found %d", count)
		}

		if _, ok, _ := env.store.Backend().Get(bg, cache.TransactionsKey(me.ID, "warm")); ok {
			t.Error("expected user cache to be invalidated")
		}
		if got := env.events.Types(); len(got) != 1 || got[0] != events.UserDeleted {
			t.Errorf("expected user.deleted event, got %v", got)
		}
	})

	t.Run("admin_deletes_other", func(t *testing.T) {
		env := newTestEnv(t)
		admin := testutil.CreateTestUserWithRole(t, env.db, models.RoleAdmin)
		other := testutil.CreateTestUser(t, env.db)

		err := env.userService(false).DeleteUser(bg, actorFor(admin), other.ID)
		testutil.AssertNoError(t, err)

		_, err = env.userService(false).GetUserByID(bg, other.ID)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})

	t.Run("not_found", func(t *testing.T) {
		env := newTestEnv(t)
		admin := testutil.CreateTestUserWithRole(t, env.db, models.RoleAdmin)
		err := env.userService(false).DeleteUser(bg, actorFor(admin), 9999)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}
