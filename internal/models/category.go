package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Valid reports whether t is income or expense.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryTypeIncome, CategoryTypeExpense:
		return true
	}
	return false
}

// Category represents a transaction category. A nil UserID marks a global
// default category visible to everyone.
type Category struct {
	Base
	Name   string       `gorm:"size:100;not null;uniqueIndex:idx_categories_name_user_type" json:"name"`
	Type   CategoryType `gorm:"size:20;not null;uniqueIndex:idx_categories_name_user_type" json:"type"`
	UserID *uint        `gorm:"index;uniqueIndex:idx_categories_name_user_type" json:"user_id"`

	Transactions []Transaction `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
}

// IsGlobal reports whether the category belongs to no user.
func (c *Category) IsGlobal() bool {
	return c.UserID == nil
}
