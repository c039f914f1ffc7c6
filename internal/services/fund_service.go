package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
)

// fundService handles fund-related business logic.
type fundService struct {
	db             *gorm.DB
	machineService MachineServicer
}

// NewFundService creates a new FundServicer.
func NewFundService(db *gorm.DB, machineService MachineServicer) FundServicer {
	return &fundService{db: db, machineService: machineService}
}

var (
	fundReadRoles  = []models.MachineRole{models.MachineRoleOwner, models.MachineRoleMember}
	fundWriteRoles = []models.MachineRole{models.MachineRoleOwner}
)

// List retrieves all funds of a machine, newest first.
func (s *fundService) List(machineID, userID string) ([]models.Fund, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundReadRoles); err != nil {
		return nil, err
	}

	var funds []models.Fund
	if err := s.db.Where("machine_id = ?", machineID).Order("created_at DESC").Find(&funds).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return funds, nil
}

// GetByID retrieves a fund scoped to a machine.
func (s *fundService) GetByID(id, machineID, userID string) (*models.Fund, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundReadRoles); err != nil {
		return nil, err
	}
	return s.getByID(id, machineID)
}

func (s *fundService) getByID(id, machineID string) (*models.Fund, error) {
	var fund models.Fund
	if err := s.db.Where("id = ? AND machine_id = ?", id, machineID).First(&fund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFundNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &fund, nil
}

// Create inserts a new fund after checking the machine's percentage budget.
// This path sums the percent of every existing fund in the machine, income
// stores included. The bulk save path applies the income-excluding rule; the
// two rules are intentionally kept separate.
func (s *fundService) Create(machineID, userID, storeID string, name, description, icon string, percent float64) (*models.Fund, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return nil, err
	}

	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "fund name is required")
	}
	if percent < 0 || percent > 100 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "percent must be between 0 and 100")
	}

	var store models.Store
	if err := s.db.Where("id = ? AND machine_id = ?", storeID, machineID).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStoreNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.checkPercentBudget(machineID, "", percent); err != nil {
		return nil, err
	}

	fund := &models.Fund{
		MachineID:   machineID,
		StoreID:     storeID,
		Name:        name,
		Description: description,
		Icon:        icon,
		Percent:     percent,
		Balance:     decimal.Zero,
	}
	if err := s.db.Create(fund).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return fund, nil
}

// Update updates a fund's display fields and percent. When percent changes,
// the budget is recomputed over all other funds of the machine.
func (s *fundService) Update(id, machineID, userID string, name, description, icon *string, percent *float64) (*models.Fund, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return nil, err
	}

	fund, err := s.getByID(id, machineID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != nil && *name != "" {
		updates["name"] = *name
	}
	if description != nil {
		updates["description"] = *description
	}
	if icon != nil {
		updates["icon"] = *icon
	}
	if percent != nil {
		if *percent < 0 || *percent > 100 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "percent must be between 0 and 100")
		}
		if err := s.checkPercentBudget(machineID, id, *percent); err != nil {
			return nil, err
		}
		updates["percent"] = *percent
	}

	if len(updates) > 0 {
		if err := s.db.Model(fund).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", id).First(fund).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return fund, nil
}

// Delete removes a fund.
func (s *fundService) Delete(id, machineID, userID string) error {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return err
	}

	result := s.db.Where("id = ? AND machine_id = ?", id, machineID).Delete(&models.Fund{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrFundNotFound
	}
	return nil
}

// UpdateBalance adds amount to a fund's balance. This is an administrative
// override outside the transaction state machine; it uses a single update
// statement but no atomic procedure.
func (s *fundService) UpdateBalance(id, machineID, userID string, amount decimal.Decimal) (*models.Fund, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return nil, err
	}

	result := s.db.Model(&models.Fund{}).
		Where("id = ? AND machine_id = ?", id, machineID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrFundNotFound
	}

	return s.getByID(id, machineID)
}

// GetTransactions lists transactions touching the fund as source or destination.
func (s *fundService) GetTransactions(id, machineID, userID string) ([]models.Transaction, error) {
	if _, err := s.GetByID(id, machineID, userID); err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	err := s.db.
		Where("machine_id = ?", machineID).
		Where("from_fund_id = ? OR to_fund_id = ?", id, id).
		Order("created_at DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// checkPercentBudget fails when the sum of fund percents in the machine,
// excluding the fund being updated, plus the new percent exceeds 100.
func (s *fundService) checkPercentBudget(machineID, excludeFundID string, percent float64) error {
	query := s.db.Model(&models.Fund{}).Where("machine_id = ?", machineID)
	if excludeFundID != "" {
		query = query.Where("id <> ?", excludeFundID)
	}

	var total float64
	if err := query.Select("COALESCE(SUM(percent), 0)").Scan(&total).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if total+percent > 100 {
		return apperrors.ErrPercentLimitExceeded
	}
	return nil
}
