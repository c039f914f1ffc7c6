package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
)

// machineService handles machine-related business logic and the permission
// gate used by every machine-scoped operation.
type machineService struct {
	db *gorm.DB
}

// NewMachineService creates a new MachineServicer.
func NewMachineService(db *gorm.DB) MachineServicer {
	return &machineService{db: db}
}

// CheckPermission verifies that the user holds one of the allowed roles on
// the machine. Call sites list their allowed roles explicitly; owner is never
// implicitly expanded. The membership table is queried on every call so a
// revoked membership takes effect immediately.
func (s *machineService) CheckPermission(machineID, userID string, roles []models.MachineRole) error {
	var membership models.MachineUser
	err := s.db.Where("machine_id = ? AND user_id = ?", machineID, userID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAccessDenied
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, role := range roles {
		if membership.Role == role {
			return nil
		}
	}
	return apperrors.ErrInsufficientRole
}

// List retrieves all machines the user is a member of.
func (s *machineService) List(userID string) ([]models.Machine, error) {
	var machines []models.Machine
	err := s.db.
		Joins("JOIN machine_users ON machine_users.machine_id = machines.id").
		Where("machine_users.user_id = ?", userID).
		Preload("Users").
		Find(&machines).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return machines, nil
}

// GetByID retrieves a machine with its stores, funds, wallets, and members.
func (s *machineService) GetByID(machineID, userID string) (*models.Machine, error) {
	if err := s.CheckPermission(machineID, userID, []models.MachineRole{models.MachineRoleOwner, models.MachineRoleMember}); err != nil {
		return nil, err
	}

	var machine models.Machine
	err := s.db.
		Preload("Users").
		Preload("Stores").
		Preload("Funds").
		Preload("Wallets").
		Where("id = ?", machineID).
		First(&machine).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMachineNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &machine, nil
}

// Create creates a machine together with its initial stores, funds, and
// wallets, and records the creator as owner. The whole setup commits
// atomically. Fund percentages across non-income stores must not exceed 100.
func (s *machineService) Create(input CreateMachineInput, userID string) (*models.Machine, error) {
	if input.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "machine name is required")
	}

	total := 0.0
	for _, store := range input.Stores {
		if store.Type == models.StoreTypeIncome {
			continue
		}
		for _, fund := range store.Funds {
			total += fund.Percent
		}
	}
	if total > 100 {
		return nil, apperrors.ErrPercentLimitExceeded
	}

	currency := input.Currency
	if currency == "" {
		currency = "VND"
	}

	machine := &models.Machine{
		Name:        input.Name,
		Icon:        input.Icon,
		Currency:    currency,
		UnAllocated: input.UnAllocated,
		Config:      input.Config,
		Meta:        input.Meta,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(machine).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		membership := &models.MachineUser{
			MachineID: machine.ID,
			UserID:    userID,
			Role:      models.MachineRoleOwner,
			InvitedBy: userID,
			JoinedAt:  time.Now(),
		}
		if err := tx.Create(membership).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, storeInput := range input.Stores {
			store := &models.Store{
				MachineID: machine.ID,
				Name:      storeInput.Name,
				Icon:      storeInput.Icon,
				Type:      storeInput.Type,
			}
			if err := tx.Create(store).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}

			for _, fundInput := range storeInput.Funds {
				fund := &models.Fund{
					MachineID: machine.ID,
					StoreID:   store.ID,
					Name:      fundInput.Name,
					Icon:      fundInput.Icon,
					Percent:   fundInput.Percent,
				}
				if err := tx.Create(fund).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			}
		}

		for _, walletInput := range input.Wallets {
			walletCurrency := walletInput.Currency
			if walletCurrency == "" {
				walletCurrency = currency
			}
			wallet := &models.Wallet{
				MachineID: machine.ID,
				Name:      walletInput.Name,
				Icon:      walletInput.Icon,
				Type:      walletInput.Type,
				Currency:  walletCurrency,
				Balance:   walletInput.Balance,
			}
			if err := tx.Create(wallet).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(machine.ID, userID)
}

// Update updates a machine's display fields. Owner only.
func (s *machineService) Update(machineID, userID string, name, icon string, config, meta models.JSONMap) (*models.Machine, error) {
	if err := s.CheckPermission(machineID, userID, []models.MachineRole{models.MachineRoleOwner}); err != nil {
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
		result := s.db.Model(&models.Machine{}).Where("id = ?", machineID).Updates(updates)
		if result.Error != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.ErrMachineNotFound
		}
	}

	return s.GetByID(machineID, userID)
}

// Delete removes a machine and everything scoped to it. Owner only.
func (s *machineService) Delete(machineID, userID string) error {
	if err := s.CheckPermission(machineID, userID, []models.MachineRole{models.MachineRoleOwner}); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.Transaction{}, &models.Fund{}, &models.Store{}, &models.Wallet{}, &models.MachineUser{},
		} {
			if err := tx.Where("machine_id = ?", machineID).Delete(model).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Where("id = ?", machineID).Delete(&models.Machine{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// SaveStoresFunds applies a batch of store and fund change-sets atomically.
// The percentage rule here is the authoritative one: funds that are not being
// deleted, in stores that are neither income-typed nor being deleted, must
// sum to at most 100 percent. A batch that violates the rule is rejected in
// its entirety.
func (s *machineService) SaveStoresFunds(machineID, userID string, stores []StoreChange) (*SaveStoresFundsResult, error) {
	if err := s.CheckPermission(machineID, userID, []models.MachineRole{models.MachineRoleOwner}); err != nil {
		return nil, err
	}

	total := 0.0
	for _, store := range stores {
		if store.Type == models.StoreTypeIncome || store.Action == "delete" {
			continue
		}
		for _, fund := range store.Funds {
			if fund.Action == "delete" {
				continue
			}
			total += fund.Percent
		}
	}
	if total > 100 {
		return nil, apperrors.ErrPercentLimitExceeded
	}

	result := &SaveStoresFundsResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, storeChange := range stores {
			storeID := storeChange.ID

			switch storeChange.Action {
			case "create":
				store := &models.Store{
					MachineID: machineID,
					Name:      storeChange.Name,
					Icon:      storeChange.Icon,
					Type:      storeChange.Type,
					Meta:      storeChange.Meta,
				}
				if err := tx.Create(store).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				storeID = store.ID

			case "update":
				res := tx.Model(&models.Store{}).
					Where("id = ? AND machine_id = ?", storeChange.ID, machineID).
					Updates(map[string]interface{}{
						"name": storeChange.Name,
						"icon": storeChange.Icon,
						"type": storeChange.Type,
						"meta": storeChange.Meta,
					})
				if res.Error != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
				}
				if res.RowsAffected == 0 {
					return apperrors.ErrStoreNotFound
				}

			case "delete":
				if err := tx.Where("store_id = ? AND machine_id = ?", storeChange.ID, machineID).Delete(&models.Fund{}).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				res := tx.Where("id = ? AND machine_id = ?", storeChange.ID, machineID).Delete(&models.Store{})
				if res.Error != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
				}
				if res.RowsAffected == 0 {
					return apperrors.ErrStoreNotFound
				}
			}
			result.Stores = append(result.Stores, ChangedEntity{ID: storeID, Action: storeChange.Action})

			if storeChange.Action == "delete" {
				continue
			}

			for _, fundChange := range storeChange.Funds {
				fundID := fundChange.ID

				switch fundChange.Action {
				case "create":
					fund := &models.Fund{
						MachineID: machineID,
						StoreID:   storeID,
						Name:      fundChange.Name,
						Icon:      fundChange.Icon,
						Percent:   fundChange.Percent,
					}
					if err := tx.Create(fund).Error; err != nil {
						return apperrors.Wrap(apperrors.ErrInternalServer, err)
					}
					fundID = fund.ID

				case "update":
					res := tx.Model(&models.Fund{}).
						Where("id = ? AND machine_id = ?", fundChange.ID, machineID).
						Updates(map[string]interface{}{
							"name":    fundChange.Name,
							"icon":    fundChange.Icon,
							"percent": fundChange.Percent,
						})
					if res.Error != nil {
						return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
					}
					if res.RowsAffected == 0 {
						return apperrors.ErrFundNotFound
					}

				case "delete":
					res := tx.Where("id = ? AND machine_id = ?", fundChange.ID, machineID).Delete(&models.Fund{})
					if res.Error != nil {
						return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
					}
					if res.RowsAffected == 0 {
						return apperrors.ErrFundNotFound
					}
				}
				result.Funds = append(result.Funds, ChangedEntity{ID: fundID, Action: fundChange.Action})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
