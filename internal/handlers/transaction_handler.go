package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/ledger"
	"wealthmachine/internal/models"
	"wealthmachine/internal/services"
)

// transactionRoles lists who may work with transactions. Day-to-day money
// movement is open to every member; structural changes to the machine are not.
var transactionRoles = []models.MachineRole{models.MachineRoleOwner, models.MachineRoleMember}

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	machineService     services.MachineServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, machineService services.MachineServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, machineService: machineService}
}

// CreateTransactionRequest represents the transaction creation payload.
type CreateTransactionRequest struct {
	FromWalletID         *string                `json:"from_wallet_id"`
	ToWalletID           *string                `json:"to_wallet_id"`
	FromFundID           *string                `json:"from_fund_id"`
	ToFundID             *string                `json:"to_fund_id"`
	Type                 models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount               decimal.Decimal        `json:"amount" binding:"required"`
	Currency             string                 `json:"currency" binding:"omitempty,iso4217"`
	ExchangeRate         decimal.Decimal        `json:"exchange_rate"`
	Note                 string                 `json:"note" binding:"max=500"`
	Category             string                 `json:"category" binding:"max=100"`
	Tags                 []string               `json:"tags"`
	RelatedTransactionID *string                `json:"related_transaction_id"`
	Meta                 models.JSONMap         `json:"meta"`
}

// UpdateTransactionRequest represents the transaction update payload.
type UpdateTransactionRequest struct {
	Status   models.TransactionStatus `json:"status" binding:"omitempty,transaction_status"`
	Note     *string                  `json:"note" binding:"omitempty,max=500"`
	Category *string                  `json:"category" binding:"omitempty,max=100"`
	Tags     []string                 `json:"tags"`
	Meta     models.JSONMap           `json:"meta"`
}

// AllocateRequest represents the allocation batch payload.
type AllocateRequest struct {
	Allocations []ledger.AllocationPair `json:"allocations" binding:"required,min=1"`
}

// buildFilter assembles the transaction filter from query parameters.
func buildFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	startDate, err := parseDateParam(c, "startDate", false)
	if err != nil {
		return filter, err
	}
	endDate, err := parseDateParam(c, "endDate", true)
	if err != nil {
		return filter, err
	}
	filter.StartDate = startDate
	filter.EndDate = endDate

	if raw := c.Query("funds"); raw != "" {
		filter.Funds = strings.Split(raw, ",")
	}
	if raw := c.Query("wallets"); raw != "" {
		filter.Wallets = strings.Split(raw, ",")
	}
	if raw := c.Query("tags"); raw != "" {
		filter.Tags = strings.Split(raw, ",")
	}

	if err := c.ShouldBindQuery(&filter.Window); err != nil {
		return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return filter, nil
}

func (h *TransactionHandler) authorize(c *gin.Context) (machineID, userID string, err error) {
	userID, err = getUserID(c)
	if err != nil {
		return "", "", err
	}
	machineID, err = getMachineID(c)
	if err != nil {
		return "", "", err
	}
	if err := h.machineService.CheckPermission(machineID, userID, transactionRoles); err != nil {
		return "", "", err
	}
	return machineID, userID, nil
}

// Create records a transaction
// @Summary     Create a transaction
// @Description Record a transaction and apply its balance movement atomically
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} map[string]interface{} "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Endpoint not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	machineID, userID, err := h.authorize(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.Create(services.TransactionDraft{
		FromWalletID:         req.FromWalletID,
		ToWalletID:           req.ToWalletID,
		FromFundID:           req.FromFundID,
		ToFundID:             req.ToFundID,
		Type:                 req.Type,
		Amount:               req.Amount,
		Currency:             req.Currency,
		ExchangeRate:         req.ExchangeRate,
		Note:                 req.Note,
		Category:             req.Category,
		Tags:                 req.Tags,
		RelatedTransactionID: req.RelatedTransactionID,
		Meta:                 req.Meta,
	}, machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// List returns the transactions of a machine
// @Summary     List transactions
// @Description List parent transactions with children grouped underneath
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       startDate query string false "Start date (yyyy-mm-dd)"
// @Param       endDate query string false "End date (yyyy-mm-dd)"
// @Param       funds query string false "Comma-separated fund ids"
// @Param       wallets query string false "Comma-separated wallet ids"
// @Param       tags query string false "Comma-separated tags"
// @Param       limit query int false "Page size (default 100)"
// @Param       offset query int false "Page offset"
// @Success     200 {object} map[string]interface{} "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	machineID, _, err := h.authorize(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := buildFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.List(machineID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get returns a single transaction
// @Summary     Get a transaction
// @Description Get a transaction with endpoint names and child transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Transaction ID"
// @Success     200 {object} map[string]interface{} "Transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	machineID, _, err := h.authorize(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetByID(c.Param("id"), machineID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// Update updates a pending transaction
// @Summary     Update a transaction
// @Description Update a transaction that has not completed
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Transaction fields"
// @Success     200 {object} map[string]interface{} "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input or transaction completed"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	machineID, userID, err := h.authorize(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.Update(c.Param("id"), services.TransactionUpdate{
		Status:   req.Status,
		Note:     req.Note,
		Category: req.Category,
		Tags:     req.Tags,
		Meta:     req.Meta,
	}, machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// Delete removes a pending transaction
// @Summary     Delete a transaction
// @Description Delete a transaction that has not completed
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Transaction ID"
// @Success     200 {object} map[string]interface{} "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Transaction completed"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	machineID, _, err := h.authorize(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.Delete(c.Param("id"), machineID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

// Allocate distributes the unallocated balance into funds
// @Summary     Allocate unallocated balance
// @Description Distribute amounts from the machine's unallocated balance into funds atomically
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       request body AllocateRequest true "Allocation batch"
// @Success     200 {object} map[string]interface{} "Allocations applied"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient unallocated balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Fund not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/transactions/allocate [post]
func (h *TransactionHandler) Allocate(c *gin.Context) {
	machineID, userID, err := h.authorize(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	results, err := h.transactionService.Allocate(req.Allocations, machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocations": results})
}

// Report summarizes the balance impact of a filtered window
// @Summary     Transaction report
// @Description Summarize the balance impact of transactions in a filtered window
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       startDate query string false "Start date (yyyy-mm-dd)"
// @Param       endDate query string false "End date (yyyy-mm-dd)"
// @Param       funds query string false "Comma-separated fund ids"
// @Param       wallets query string false "Comma-separated wallet ids"
// @Param       tags query string false "Comma-separated tags"
// @Success     200 {object} services.TransactionReport "Report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/transactions/report [get]
func (h *TransactionHandler) Report(c *gin.Context) {
	machineID, _, err := h.authorize(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := buildFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.transactionService.Report(machineID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
