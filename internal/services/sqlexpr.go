package services

import "gorm.io/gorm"

// bucketExpr returns the SQL expression formatting column into a bucket label
// for the connected dialect. Postgres weeks are ISO weeks; SQLite has no ISO
// week format and uses Monday-based week numbers instead.
func bucketExpr(db *gorm.DB, g GroupBy, column string) string {
	if db.Dialector.Name() == "postgres" {
		switch g {
		case GroupByDay:
			return "TO_CHAR(" + column + ", 'YYYY-MM-DD')"
		case GroupByWeek:
			return "TO_CHAR(" + column + ", 'IYYY-IW')"
		case GroupByYear:
			return "TO_CHAR(" + column + ", 'YYYY')"
		default:
			return "TO_CHAR(" + column + ", 'YYYY-MM')"
		}
	}
	switch g {
	case GroupByDay:
		return "strftime('%Y-%m-%d', " + column + ")"
	case GroupByWeek:
		return "strftime('%Y-%W', " + column + ")"
	case GroupByYear:
		return "strftime('%Y', " + column + ")"
	default:
		return "strftime('%Y-%m', " + column + ")"
	}
}
