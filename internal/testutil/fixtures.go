package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"fintrack/internal/models"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with role user, a hashed password and a
// unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, models.RoleUser)
}

// CreateTestUserWithRole creates a user holding role.
func CreateTestUserWithRole(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email, role)
}

// CreateTestUserWithEmail creates a user with the given email and role.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     fmt.Sprintf("Test User %d", nextID()),
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category owned by userID.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint, catType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   catType,
		UserID: &userID,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// GlobalCategory returns the default category with the given name.
func GlobalCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()

	var category models.Category
	if err := db.Where("name = ? AND user_id IS NULL", name).First(&category).Error; err != nil {
		t.Fatalf("failed to load global category %s: %v", name, err)
	}
	return &category
}

// TransactionOpts customises CreateTestTransaction.
type TransactionOpts struct {
	CategoryID  *uint
	Date        time.Time
	Description string
}

// CreateTestTransaction creates a transaction of amount (e.g. "12.50") dated
// today unless opts override it.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID uint, txType models.TransactionType, amount string, opts ...TransactionOpts) *models.Transaction {
	t.Helper()

	var o TransactionOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Date.IsZero() {
		o.Date = models.TruncateToDate(time.Now())
	}

	tx := &models.Transaction{
		UserID:     userID,
		CategoryID: o.CategoryID,
		Amount:     decimal.RequireFromString(amount),
		Type:       txType,
		Date:       o.Date,
	}
	if o.Description != "" {
		desc := o.Description
		tx.Description = &desc
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
