package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// AnalyticsHandler serves aggregate reports over the caller's transactions.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// dateRange reads startDate and endDate, rejecting an inverted range.
func dateRange(c *gin.Context) (start, end *time.Time, err error) {
	if start, err = queryDate(c, "startDate"); err != nil {
		return nil, nil, err
	}
	if end, err = queryDate(c, "endDate"); err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "endDate must not be before startDate")
	}
	return start, end, nil
}

// GetAnalytics returns the dashboard summary
// @Summary     Get analytics
// @Description Totals, category breakdown and monthly trends. startDate and endDate together override period.
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       period    query string false "all, today, week, month or year"
// @Param       startDate query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param       endDate   query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Success     200 {object} services.AnalyticsResult
// @Failure     400 {object} ErrorResponse "Invalid date"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     429 {object} ErrorResponse "Rate limited"
// @Router      /api/analytics [get]
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	start, end, err := dateRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.analyticsService.GetAnalytics(c.Request.Context(), actor, services.AnalyticsQuery{
		Period:    services.ParsePeriod(c.Query("period")),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSpendingByCategory returns per-category statistics
// @Summary     Spending by category
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       type      query string false "expense (default) or income"
// @Param       startDate query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param       endDate   query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Success     200 {object} services.SpendingResult
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Router      /api/analytics/spending-by-category [get]
func (h *AnalyticsHandler) GetSpendingByCategory(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	start, end, err := dateRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.analyticsService.GetSpendingByCategory(c.Request.Context(), actor, services.SpendingQuery{
		Type:      models.TransactionType(c.Query("type")),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetIncomeVsExpenses returns bucketed income and expense totals
// @Summary     Income vs expenses
// @Description Most recent buckets, oldest first
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       groupBy query string false "day, week, month (default) or year"
// @Param       limit   query int    false "Number of buckets (default 12)"
// @Success     200 {object} services.TrendResult
// @Failure     400 {object} ErrorResponse "Invalid limit"
// @Router      /api/analytics/income-vs-expenses [get]
func (h *AnalyticsHandler) GetIncomeVsExpenses(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var limit int
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be a positive integer"))
			return
		}
	}

	result, err := h.analyticsService.GetIncomeVsExpenses(c.Request.Context(), actor, services.TrendQuery{
		GroupBy: services.ParseGroupBy(c.Query("groupBy")),
		Limit:   limit,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
