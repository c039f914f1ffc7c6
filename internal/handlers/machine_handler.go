package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
	"wealthmachine/internal/services"
)

// MachineHandler handles machine-related requests.
type MachineHandler struct {
	machineService services.MachineServicer
}

// NewMachineHandler creates a new MachineHandler.
func NewMachineHandler(machineService services.MachineServicer) *MachineHandler {
	return &MachineHandler{machineService: machineService}
}

// NewMachineFundRequest represents an initial fund in a machine creation payload.
type NewMachineFundRequest struct {
	Name    string  `json:"name" binding:"required,min=1,max=100"`
	Icon    string  `json:"icon" binding:"max=50"`
	Percent float64 `json:"percent" binding:"gte=0,lte=100"`
}

// NewMachineStoreRequest represents an initial store in a machine creation payload.
type NewMachineStoreRequest struct {
	Name  string                  `json:"name" binding:"required,min=1,max=100"`
	Type  models.StoreType        `json:"type" binding:"required,store_type"`
	Icon  string                  `json:"icon" binding:"max=50"`
	Funds []NewMachineFundRequest `json:"funds" binding:"dive"`
}

// NewMachineWalletRequest represents an initial wallet in a machine creation payload.
type NewMachineWalletRequest struct {
	Name     string            `json:"name" binding:"required,min=1,max=100"`
	Type     models.WalletType `json:"type" binding:"required,wallet_type"`
	Icon     string            `json:"icon" binding:"max=50"`
	Currency string            `json:"currency" binding:"omitempty,iso4217"`
	Balance  decimal.Decimal   `json:"balance"`
}

// CreateMachineRequest represents the machine creation payload.
type CreateMachineRequest struct {
	Name        string                    `json:"name" binding:"required,min=1,max=100"`
	Icon        string                    `json:"icon" binding:"max=50"`
	Currency    string                    `json:"currency" binding:"omitempty,iso4217"`
	UnAllocated decimal.Decimal           `json:"un_allocated"`
	Config      models.JSONMap            `json:"config"`
	Meta        models.JSONMap            `json:"meta"`
	Stores      []NewMachineStoreRequest  `json:"stores" binding:"dive"`
	Wallets     []NewMachineWalletRequest `json:"wallets" binding:"dive"`
}

// UpdateMachineRequest represents the machine update payload.
type UpdateMachineRequest struct {
	Name   string         `json:"name" binding:"omitempty,min=1,max=100"`
	Icon   string         `json:"icon" binding:"max=50"`
	Config models.JSONMap `json:"config"`
	Meta   models.JSONMap `json:"meta"`
}

// StoreFundChangeRequest represents one fund entry of a bulk save payload.
type StoreFundChangeRequest struct {
	ID      string  `json:"id"`
	Name    string  `json:"name" binding:"max=100"`
	Icon    string  `json:"icon" binding:"max=50"`
	Percent float64 `json:"percent" binding:"gte=0,lte=100"`
	Action  string  `json:"action" binding:"required,store_fund_action"`
}

// StoreChangeRequest represents one store entry of a bulk save payload.
type StoreChangeRequest struct {
	ID     string                   `json:"id"`
	Name   string                   `json:"name" binding:"max=100"`
	Type   models.StoreType         `json:"type" binding:"omitempty,store_type"`
	Icon   string                   `json:"icon" binding:"max=50"`
	Action string                   `json:"action" binding:"required,store_fund_action"`
	Meta   models.JSONMap           `json:"meta"`
	Funds  []StoreFundChangeRequest `json:"funds" binding:"dive"`
}

// SaveStoresFundsRequest represents the bulk store/fund save payload.
type SaveStoresFundsRequest struct {
	Stores []StoreChangeRequest `json:"stores" binding:"required,min=1,dive"`
}

// List returns the machines the authenticated user belongs to
// @Summary     List machines
// @Description List all machines the authenticated user is a member of
// @Tags        machines
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Machines"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines [get]
func (h *MachineHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	machines, err := h.machineService.List(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"machines": machines})
}

// Get returns a machine with its stores, funds, and wallets
// @Summary     Get a machine
// @Description Get a machine with its stores, funds, wallets, and members
// @Tags        machines
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Success     200 {object} map[string]interface{} "Machine"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId} [get]
func (h *MachineHandler) Get(c *gin.Context) {
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

	machine, err := h.machineService.GetByID(machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"machine": machine})
}

// Create creates a machine with its initial setup
// @Summary     Create a machine
// @Description Create a machine together with initial stores, funds, and wallets
// @Tags        machines
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateMachineRequest true "Machine details"
// @Success     201 {object} map[string]interface{} "Machine created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines [post]
func (h *MachineHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.CreateMachineInput{
		Name:        req.Name,
		Icon:        req.Icon,
		Currency:    req.Currency,
		UnAllocated: req.UnAllocated,
		Config:      req.Config,
		Meta:        req.Meta,
	}
	for _, store := range req.Stores {
		newStore := services.NewMachineStore{Name: store.Name, Type: store.Type, Icon: store.Icon}
		for _, fund := range store.Funds {
			newStore.Funds = append(newStore.Funds, services.NewMachineFund{
				Name: fund.Name, Icon: fund.Icon, Percent: fund.Percent,
			})
		}
		input.Stores = append(input.Stores, newStore)
	}
	for _, wallet := range req.Wallets {
		input.Wallets = append(input.Wallets, services.NewMachineWallet{
			Name: wallet.Name, Type: wallet.Type, Icon: wallet.Icon,
			Currency: wallet.Currency, Balance: wallet.Balance,
		})
	}

	machine, err := h.machineService.Create(input, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"machine": machine})
}

// Update updates a machine's display fields
// @Summary     Update a machine
// @Description Update a machine's name, icon, config, or meta
// @Tags        machines
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       request body UpdateMachineRequest true "Machine fields"
// @Success     200 {object} map[string]interface{} "Machine updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId} [put]
func (h *MachineHandler) Update(c *gin.Context) {
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

	var req UpdateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	machine, err := h.machineService.Update(machineID, userID, req.Name, req.Icon, req.Config, req.Meta)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"machine": machine})
}

// Delete removes a machine and everything scoped to it
// @Summary     Delete a machine
// @Description Delete a machine with all its stores, funds, wallets, and transactions
// @Tags        machines
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Success     200 {object} map[string]interface{} "Machine deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId} [delete]
func (h *MachineHandler) Delete(c *gin.Context) {
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

	if err := h.machineService.Delete(machineID, userID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Machine deleted"})
}

// SaveStoresFunds applies a batch of store and fund changes
// @Summary     Save stores and funds
// @Description Apply a batch of store and fund create/update/delete actions atomically
// @Tags        machines
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       request body SaveStoresFundsRequest true "Store and fund changes"
// @Success     200 {object} map[string]interface{} "Changes applied"
// @Failure     400 {object} ErrorResponse "Invalid input or percentage over limit"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/stores-funds [post]
func (h *MachineHandler) SaveStoresFunds(c *gin.Context) {
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

	var req SaveStoresFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	changes := make([]services.StoreChange, 0, len(req.Stores))
	for _, store := range req.Stores {
		change := services.StoreChange{
			ID: store.ID, Name: store.Name, Type: store.Type,
			Icon: store.Icon, Action: store.Action, Meta: store.Meta,
		}
		for _, fund := range store.Funds {
			change.Funds = append(change.Funds, services.StoreFundChange{
				ID: fund.ID, Name: fund.Name, Icon: fund.Icon,
				Percent: fund.Percent, Action: fund.Action,
			})
		}
		changes = append(changes, change)
	}

	result, err := h.machineService.SaveStoresFunds(machineID, userID, changes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}
