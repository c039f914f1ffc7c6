package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
	"wealthmachine/internal/services"
)

// StoreHandler handles store-related requests.
type StoreHandler struct {
	storeService services.StoreServicer
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(storeService services.StoreServicer) *StoreHandler {
	return &StoreHandler{storeService: storeService}
}

// CreateStoreRequest represents the store creation payload.
type CreateStoreRequest struct {
	Name   string           `json:"name" binding:"required,min=1,max=100"`
	Type   models.StoreType `json:"type" binding:"required,store_type"`
	Icon   string           `json:"icon" binding:"max=50"`
	Config models.JSONMap   `json:"config"`
	Meta   models.JSONMap   `json:"meta"`
}

// UpdateStoreRequest represents the store update payload.
type UpdateStoreRequest struct {
	Name   string         `json:"name" binding:"omitempty,min=1,max=100"`
	Icon   string         `json:"icon" binding:"max=50"`
	Config models.JSONMap `json:"config"`
	Meta   models.JSONMap `json:"meta"`
}

// CreateStoreFundRequest represents the payload for creating a fund under a store.
type CreateStoreFundRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	Description string  `json:"description" binding:"max=500"`
	Icon        string  `json:"icon" binding:"max=50"`
	Percent     float64 `json:"percent" binding:"gte=0,lte=100"`
}

// List returns the stores of a machine
// @Summary     List stores
// @Description List all stores of a machine with their funds
// @Tags        stores
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Success     200 {object} map[string]interface{} "Stores"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/stores [get]
func (h *StoreHandler) List(c *gin.Context) {
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

	stores, err := h.storeService.List(machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

// Get returns a single store
// @Summary     Get a store
// @Description Get a store with its funds
// @Tags        stores
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Store ID"
// @Success     200 {object} map[string]interface{} "Store"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/stores/{id} [get]
func (h *StoreHandler) Get(c *gin.Context) {
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

	store, err := h.storeService.GetByID(c.Param("id"), machineID, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"store": store})
}

// Create creates a store
// @Summary     Create a store
// @Description Create a new store in a machine
// @Tags        stores
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       request body CreateStoreRequest true "Store details"
// @Success     201 {object} map[string]interface{} "Store created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/stores [post]
func (h *StoreHandler) Create(c *gin.Context) {
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

	var req CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	store, err := h.storeService.Create(machineID, userID, req.Name, req.Icon, req.Type, req.Config, req.Meta)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"store": store})
}

// Update updates a store
// @Summary     Update a store
// @Description Update a store's display fields
// @Tags        stores
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Store ID"
// @Param       request body UpdateStoreRequest true "Store fields"
// @Success     200 {object} map[string]interface{} "Store updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/stores/{id} [put]
func (h *StoreHandler) Update(c *gin.Context) {
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

	var req UpdateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	store, err := h.storeService.Update(c.Param("id"), machineID, userID, req.Name, req.Icon, req.Config, req.Meta)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"store": store})
}

// Delete removes a store and its funds
// @Summary     Delete a store
// @Description Delete a store together with its funds
// @Tags        stores
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Store ID"
// @Success     200 {object} map[string]interface{} "Store deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/stores/{id} [delete]
func (h *StoreHandler) Delete(c *gin.Context) {
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

	if err := h.storeService.Delete(c.Param("id"), machineID, userID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Store deleted"})
}

// CreateFund creates a fund under a store
// @Summary     Create a fund in a store
// @Description Create a new fund under a store, subject to the machine percentage budget
// @Tags        stores
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       machineId path string true "Machine ID"
// @Param       id path string true "Store ID"
// @Param       request body CreateStoreFundRequest true "Fund details"
// @Success     201 {object} map[string]interface{} "Fund created"
// @Failure     400 {object} ErrorResponse "Invalid input or percentage over limit"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /machines/{machineId}/stores/{id}/funds [post]
func (h *StoreHandler) CreateFund(c *gin.Context) {
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

	var req CreateStoreFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fund, err := h.storeService.CreateFund(c.Param("id"), machineID, userID, req.Name, req.Description, req.Icon, req.Percent)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"fund": fund})
}
