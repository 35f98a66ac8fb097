package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense:
		return true
	}
	return false
}

// Transaction represents a financial transaction in the system
type Transaction struct {
	Base
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	CategoryID  *uint           `gorm:"index" json:"category_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount" swaggertype:"number"`
	Type        TransactionType `gorm:"size:20;not null;index" json:"type"`
	Description *string         `json:"description"`
	Date        time.Time       `gorm:"type:date;not null;index" json:"date"`

	// Joined from categories on read; never written.
	CategoryName *string `gorm:"->;-:migration" json:"category_name"`
}
