package services

import (
	"time"

	"fintrack/internal/models"
)

// Period is a named date-range shorthand for analytics.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps s to a Period. Empty and unknown values mean all time.
func ParsePeriod(s string) Period {
	switch p := Period(s); p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return p
	}
	return PeriodAll
}

// Range returns the inclusive date bounds of p relative to now. Both are nil
// for all time. today is bounded on both ends; week, month and year only
// have a start, so future-dated transactions stay in range. week and month
// are the trailing 7 and 30 days.
func (p Period) Range(now time.Time) (start, end *time.Time) {
	today := models.TruncateToDate(now)
	var from time.Time
	switch p {
	case PeriodToday:
		return &today, &today
	case PeriodWeek:
		from = today.AddDate(0, 0, -7)
	case PeriodMonth:
		from = today.AddDate(0, 0, -30)
	case PeriodYear:
		from = today.AddDate(-1, 0, 0)
	default:
		return nil, nil
	}
	return &from, nil
}

// resolveRange picks the explicit range when both ends are given, else the
// period's range.
func resolveRange(q AnalyticsQuery, now time.Time) (start, end *time.Time) {
	if q.StartDate != nil && q.EndDate != nil {
		return q.StartDate, q.EndDate
	}
	return q.Period.Range(now)
}

// GroupBy is the bucket size of the income-vs-expenses report.
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
	GroupByYear  GroupBy = "year"
)

// ParseGroupBy maps s to a GroupBy, defaulting to month.
func ParseGroupBy(s string) GroupBy {
	switch g := GroupBy(s); g {
	case GroupByDay, GroupByWeek, GroupByMonth, GroupByYear:
		return g
	}
	return GroupByMonth
}
