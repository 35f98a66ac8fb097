package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"fintrack/internal/cache"
	"fintrack/internal/events"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func init() {
	logger.Init("test")
}

// fixedNow is the clock used by services under test.
var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

// testEnv bundles a migrated database with a real memory cache and an event
// recorder so tests can observe invalidation and publishing.
type testEnv struct {
	db     *gorm.DB
	store  *cache.Store
	events *events.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := cache.NewMemory(1000, 0)
	t.Cleanup(func() { _ = mem.Close() })
	return &testEnv{
		db:     testutil.SetupTestDB(t),
		store:  cache.NewStore(mem),
		events: &events.Recorder{},
	}
}

func (e *testEnv) userService(allowAdminSignup bool) UserServicer {
	return NewUserService(e.db, e.store, e.events, allowAdminSignup)
}

func (e *testEnv) categoryService() CategoryServicer {
	return NewCategoryService(e.db, e.store, e.events)
}

func (e *testEnv) transactionService(enforceTypeMatch bool) TransactionServicer {
	return NewTransactionService(e.db, e.store, e.events, TransactionOptions{
		EnforceCategoryTypeMatch: enforceTypeMatch,
		Now:                      func() time.Time { return fixedNow },
	})
}

func (e *testEnv) analyticsService() AnalyticsServicer {
	return NewAnalyticsService(e.db, e.store, func() time.Time { return fixedNow })
}

func actorFor(u *models.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

func dateOf(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

var bg = context.Background()
