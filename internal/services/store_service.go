package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
)

// storeService handles store-related business logic.
type storeService struct {
	db             *gorm.DB
	machineService MachineServicer
	fundService    FundServicer
}

// NewStoreService creates a new StoreServicer.
func NewStoreService(db *gorm.DB, machineService MachineServicer, fundService FundServicer) StoreServicer {
	return &storeService{db: db, machineService: machineService, fundService: fundService}
}

// List retrieves all stores of a machine with their funds, newest first.
func (s *storeService) List(machineID, userID string) ([]models.Store, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundReadRoles); err != nil {
		return nil, err
	}

	var stores []models.Store
	err := s.db.
		Preload("Funds").
		Where("machine_id = ?", machineID).
		Order("created_at DESC").
		Find(&stores).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return stores, nil
}

// GetByID retrieves a store with its funds, scoped to a machine.
func (s *storeService) GetByID(id, machineID, userID string) (*models.Store, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundReadRoles); err != nil {
		return nil, err
	}

	var store models.Store
	err := s.db.
		Preload("Funds").
		Where("id = ? AND machine_id = ?", id, machineID).
		First(&store).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStoreNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &store, nil
}

// Create inserts a new store. Owner only.
func (s *storeService) Create(machineID, userID string, name, icon string, storeType models.StoreType, config, meta models.JSONMap) (*models.Store, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return nil, err
	}

	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "store name is required")
	}

	store := &models.Store{
		MachineID: machineID,
		Name:      name,
		Icon:      icon,
		Type:      storeType,
		Config:    config,
		Meta:      meta,
	}
	if err := s.db.Create(store).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return store, nil
}

// Update updates a store's display fields. Owner only.
func (s *storeService) Update(id, machineID, userID string, name, icon string, config, meta models.JSONMap) (*models.Store, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if config != nil {
		updates["config"] = config
	}
	if meta != nil {
		updates["meta"] = meta
	}

	if len(updates) > 0 {
		result := s.db.Model(&models.Store{}).Where("id = ? AND machine_id = ?", id, machineID).Updates(updates)
		if result.Error != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.ErrStoreNotFound
		}
	}

	return s.GetByID(id, machineID, userID)
}

// Delete removes a store and its funds. Owner only.
func (s *storeService) Delete(id, machineID, userID string) error {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store_id = ? AND machine_id = ?", id, machineID).Delete(&models.Fund{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		result := tx.Where("id = ? AND machine_id = ?", id, machineID).Delete(&models.Store{})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrStoreNotFound
		}
		return nil
	})
}

// CreateFund creates a fund under this store, going through the fund-level
// percentage check.
func (s *storeService) CreateFund(storeID, machineID, userID string, name, description, icon string, percent float64) (*models.Fund, error) {
	return s.fundService.Create(machineID, userID, storeID, name, description, icon, percent)
}
