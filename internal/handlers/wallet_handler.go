package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
	"wealthmachine/internal/services"
)

// WalletHandler handles wallet-related requests.
type WalletHandler struct {
	walletService services.WalletServicer
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletService services.WalletServicer) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// CreateWalletRequest represents the wallet creation payload.
type CreateWalletRequest struct {
	Name     string            `json:"name" binding:"required,min=1,max=100"`
	Type     models.WalletType `json:"type" binding:"required,wallet_type"`
	Icon     string            `json:"icon" binding:"max=50"`
	Currency string            `json:"currency" binding:"omitempty,iso4217"`
	Balance  decimal.Decimal   `json:"balance"`
	Meta     models.JSONMap    `json:"meta"`
}

// UpdateWalletRequest represents the wallet update payload.
type UpdateWalletRequest struct {
	Name *string            `json:"name" binding:"omitempty,min=1,max=100"`
	Icon *string            `json:"icon" binding:"omitempty,max=50"`
	Type *models.WalletType `json:"type" binding:"omitempty,wallet_type"`
	Meta models.JSONMap     `json:"meta"`
}

// UpdateWalletBalanceRequest represents the administrative balance override payload.
type UpdateWalletBalanceRequest struct {
	Balance  decimal.Decimal `json:"balance" binding:"required"`
	Currency string          `json:"currency" binding:"omitempty,iso4217"`
}

// List returns the wallets of a machine
// @Summary     List wallets
// @Description List all wallets of a machine
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Success     200 {object} map[string]interface{} "Wallets"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/wallets [get]
func (h *WalletHandler) List(c *gin.Context) {
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

	wallets, err := h.walletService.List(machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

// Get returns a single wallet
// @Summary     Get a wallet
// @Description Get a wallet by id
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Wallet ID"
// @Success     200 {object} map[string]interface{} "Wallet"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/wallets/{id} [get]
func (h *WalletHandler) Get(c *gin.Context) {
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

	wallet, err := h.walletService.GetByID(c.Param("id"), machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// Create creates a wallet
// @Summary     Create a wallet
// @Description Create a new wallet in a machine
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       request body CreateWalletRequest true "Wallet details"
// @Success     201 {object} map[string]interface{} "Wallet created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/wallets [post]
func (h *WalletHandler) Create(c *gin.Context) {
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

	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	wallet, err := h.walletService.Create(machineID, userID, req.Name, req.Icon, req.Type, req.Currency, req.Balance, req.Meta)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"wallet": wallet})
}

// Update updates a wallet
// @Summary     Update a wallet
// @Description Update a wallet's display fields
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Wallet ID"
// @Param       request body UpdateWalletRequest true "Wallet fields"
// @Success     200 {object} map[string]interface{} "Wallet updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/wallets/{id} [put]
func (h *WalletHandler) Update(c *gin.Context) {
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

	var req UpdateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	wallet, err := h.walletService.Update(c.Param("id"), machineID, userID, req.Name, req.Icon, req.Type, req.Meta)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// Delete removes a wallet
// @Summary     Delete a wallet
// @Description Delete a wallet
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Wallet ID"
// @Success     200 {object} map[string]interface{} "Wallet deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/wallets/{id} [delete]
func (h *WalletHandler) Delete(c *gin.Context) {
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

	if err := h.walletService.Delete(c.Param("id"), machineID, userID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Wallet deleted"})
}

// UpdateBalance sets a wallet balance directly
// @Summary     Override a wallet balance
// @Description Set a wallet balance outside the transaction flow
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Wallet ID"
// @Param       request body UpdateWalletBalanceRequest true "New balance"
// @Success     200 {object} map[string]interface{} "Wallet updated"
// @Failure     400 {object} ErrorResponse "Invalid input or currency mismatch"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/wallets/{id}/balance [put]
func (h *WalletHandler) UpdateBalance(c *gin.Context) {
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

	var req UpdateWalletBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	wallet, err := h.walletService.UpdateBalance(c.Param("id"), machineID, userID, req.Currency, req.Balance)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// GetTransactions lists transactions touching a wallet
// @Summary     List wallet transactions
// @Description List transactions where the wallet is source or destination
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Wallet ID"
// @Success     200 {object} map[string]interface{} "Transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/wallets/{id}/transactions [get]
func (h *WalletHandler) GetTransactions(c *gin.Context) {
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

	transactions, err := h.walletService.GetTransactions(c.Param("id"), machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
