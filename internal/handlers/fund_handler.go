package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/services"
)

// FundHandler handles fund-related requests.
type FundHandler struct {
	fundService services.FundServicer
}

// NewFundHandler creates a new FundHandler.
func NewFundHandler(fundService services.FundServicer) *FundHandler {
	return &FundHandler{fundService: fundService}
}

// CreateFundRequest represents the fund creation payload.
type CreateFundRequest struct {
	StoreID     string  `json:"store_id" binding:"required"`
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	Description string  `json:"description" binding:"max=500"`
	Icon        string  `json:"icon" binding:"max=50"`
	Percent     float64 `json:"percent" binding:"gte=0,lte=100"`
}

// UpdateFundRequest represents the fund update payload.
type UpdateFundRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=500"`
	Icon        *string  `json:"icon" binding:"omitempty,max=50"`
	Percent     *float64 `json:"percent" binding:"omitempty,gte=0,lte=100"`
}

// UpdateFundBalanceRequest represents the administrative balance adjustment payload.
type UpdateFundBalanceRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// List returns the funds of a machine
// @Summary     List funds
// @Description List all funds of a machine
// @Tags        funds
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Success     200 {object} map[string]interface{} "Funds"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/funds [get]
func (h *FundHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	machineID, err := getMachineID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	funds, err := h.fundService.List(machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"funds": funds})
}

// Get returns a single fund
// @Summary     Get a fund
// @Description Get a fund by id
// @Tags        funds
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Fund ID"
// @Success     200 {object} map[string]interface{} "Fund"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/funds/{id} [get]
func (h *FundHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	machineID, err := getMachineID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	fund, err := h.fundService.GetByID(c.Param("id"), machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fund": fund})
}

// Create creates a fund
// @Summary     Create a fund
// @Description Create a new fund in a store, subject to the machine percentage budget
// @Tags        funds
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       request body CreateFundRequest true "Fund details"
// @Success     201 {object} map[string]interface{} "Fund created"
// @Failure     400 {object} ErrorResponse "Invalid input or percentage over limit"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Store not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/funds [post]
func (h *FundHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	machineID, err := getMachineID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fund, err := h.fundService.Create(machineID, userID, req.StoreID, req.Name, req.Description, req.Icon, req.Percent)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"fund": fund})
}

// Update updates a fund
// @Summary     Update a fund
// @Description Update a fund's display fields or percent
// @Tags        funds
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Fund ID"
// @Param       request body UpdateFundRequest true "Fund fields"
// @Success     200 {object} map[string]interface{} "Fund updated"
// @Failure     400 {object} ErrorResponse "Invalid input or percentage over limit"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/funds/{id} [put]
func (h *FundHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	machineID, err := getMachineID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fund, err := h.fundService.Update(c.Param("id"), machineID, userID, req.Name, req.Description, req.Icon, req.Percent)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fund": fund})
}

// Delete removes a fund
// @Summary     Delete a fund
// @Description Delete a fund
// @Tags        funds
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Fund ID"
// @Success     200 {object} map[string]interface{} "Fund deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/funds/{id} [delete]
func (h *FundHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	machineID, err := getMachineID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.fundService.Delete(c.Param("id"), machineID, userID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Fund deleted"})
}

// UpdateBalance adjusts a fund balance directly
// @Summary     Adjust a fund balance
// @Description Add an amount to a fund balance outside the transaction flow
// @Tags        funds
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Fund ID"
// @Param       request body UpdateFundBalanceRequest true "Adjustment amount"
// @Success     200 {object} map[string]interface{} "Fund updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/funds/{id}/balance [put]
func (h *FundHandler) UpdateBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	machineID, err := getMachineID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateFundBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fund, err := h.fundService.UpdateBalance(c.Param("id"), machineID, userID, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fund": fund})
}

// GetTransactions lists transactions touching a fund
// @Summary     List fund transactions
// @Description List transactions where the fund is source or destination
// @Tags        funds
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Fund ID"
// @Success     200 {object} map[string]interface{} "Transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/funds/{id}/transactions [get]
func (h *FundHandler) GetTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	machineID, err := getMachineID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.fundService.GetTransactions(c.Param("id"), machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
