package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
	"fintrack/internal/validator"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// TransactionRequest is the body of both create and full-replace update.
type TransactionRequest struct {
	Amount      decimal.Decimal        `json:"amount" binding:"required,gt=0" swaggertype:"number"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Description *string                `json:"description" binding:"omitempty,max=500"`
	Date        *string                `json:"date" binding:"omitempty,calendar_date" example:"2024-06-15"`
	CategoryID  *uint                  `json:"category_id"`
}

func (r TransactionRequest) input() services.TransactionInput {
	in := services.TransactionInput{
		Amount:      r.Amount,
		Type:        r.Type,
		Description: r.Description,
		CategoryID:  r.CategoryID,
	}
	if r.Date != nil && *r.Date != "" {
		// calendar_date already validated the format.
		if d, err := validator.ParseDate(*r.Date); err == nil {
			in.Date = &d
		}
	}
	return in
}

// TransactionEnvelope wraps a single transaction.
type TransactionEnvelope struct {
	Transaction models.Transaction `json:"transaction"`
}

// ListTransactions returns the caller's transactions
// @Summary     List transactions
// @Description Newest first. Admins may pass userId to list another user's transactions.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       type       query string false "income or expense"
// @Param       startDate  query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param       endDate    query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Param       categoryId query int    false "Category ID"
// @Param       userId     query int    false "Owner (admins only)"
// @Param       page       query int    false "Page number (default 1)"
// @Param       page_size  query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} services.TransactionList
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     429 {object} ErrorResponse "Rate limited"
// @Router      /api/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ListTransactions(c.Request.Context(), actor, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(v)
		if !txType.Valid() {
			return filter, apperrors.ErrInvalidTransactionType
		}
		filter.Type = &txType
	}

	var err error
	if filter.StartDate, err = queryDate(c, "startDate"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = queryDate(c, "endDate"); err != nil {
		return filter, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "endDate must not be before startDate")
	}
	if filter.CategoryID, err = queryID(c, "categoryId"); err != nil {
		return filter, err
	}
	if filter.UserID, err = queryID(c, "userId"); err != nil {
		return filter, err
	}
	return filter, nil
}

// GetTransaction returns one transaction
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} TransactionEnvelope
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /api/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(c.Request.Context(), actor, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, TransactionEnvelope{Transaction: *transaction})
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record income or an expense. The date defaults to today.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TransactionRequest true "Transaction details"
// @Success     201 {object} TransactionEnvelope "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or amount below 0.01"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Read-only user"
// @Failure     404 {object} ErrorResponse "User no longer exists"
// @Router      /api/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request.Context(), actor, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), auditEntry(c, actor, models.AuditCreateTransaction, "transaction", transaction.ID,
		map[string]any{"type": transaction.Type, "amount": transaction.Amount, "category_id": transaction.CategoryID}))

	c.JSON(http.StatusCreated, TransactionEnvelope{Transaction: *transaction})
}

// UpdateTransaction replaces a transaction
// @Summary     Update a transaction
// @Description Full replacement. An omitted date keeps the stored one; omitted category and description are cleared.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                true "Transaction ID"
// @Param       request body TransactionRequest true "Transaction details"
// @Success     200 {object} TransactionEnvelope
// @Failure     400 {object} ErrorResponse "Invalid input or amount below 0.01"
// @Failure     403 {object} ErrorResponse "Read-only user"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /api/transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request.Context(), actor, transactionID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), auditEntry(c, actor, models.AuditUpdateTransaction, "transaction", transaction.ID,
		map[string]any{"type": transaction.Type, "amount": transaction.Amount, "date": transaction.Date.Format(models.DateLayout)}))

	c.JSON(http.StatusOK, TransactionEnvelope{Transaction: *transaction})
}

// DeleteTransaction handles deletion of a transaction
// @Summary     Delete a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Read-only user"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /api/transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), actor, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), auditEntry(c, actor, models.AuditDeleteTransaction, "transaction", transactionID, nil))

	c.JSON(http.StatusOK, MessageResponse{Message: "Transaction deleted successfully"})
}
