package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are exchanged with clients as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Base contains common columns for all tables
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DateLayout is the wire and query format of calendar dates.
const DateLayout = "2006-01-02"

// TruncateToDate drops the clock part of t, keeping the calendar date in UTC.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
