package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
)

// walletService handles wallet-related business logic.
type walletService struct {
	db             *gorm.DB
	machineService MachineServicer
}

// NewWalletService creates a new WalletServicer.
func NewWalletService(db *gorm.DB, machineService MachineServicer) WalletServicer {
	return &walletService{db: db, machineService: machineService}
}

// List retrieves all wallets of a machine, newest first.
func (s *walletService) List(machineID, userID string) ([]models.Wallet, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundReadRoles); err != nil {
		return nil, err
	}

	var wallets []models.Wallet
	if err := s.db.Where("machine_id = ?", machineID).Order("created_at DESC").Find(&wallets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return wallets, nil
}

// GetByID retrieves a wallet scoped to a machine.
func (s *walletService) GetByID(id, machineID, userID string) (*models.Wallet, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundReadRoles); err != nil {
		return nil, err
	}
	return s.getByID(id, machineID)
}

func (s *walletService) getByID(id, machineID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.Where("id = ? AND machine_id = ?", id, machineID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wallet, nil
}

// Create inserts a new wallet. Owner only.
func (s *walletService) Create(machineID, userID string, name, icon string, walletType models.WalletType, currency string, balance decimal.Decimal, meta models.JSONMap) (*models.Wallet, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return nil, err
	}

	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet name is required")
	}
	if balance.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "balance cannot be negative")
	}
	if currency == "" {
		currency = "VND"
	}

	wallet := &models.Wallet{
		MachineID: machineID,
		Name:      name,
		Icon:      icon,
		Type:      walletType,
		Currency:  currency,
		Balance:   balance,
		Meta:      meta,
	}
	if err := s.db.Create(wallet).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return wallet, nil
}

// Update updates a wallet's display fields. Balance is not touched here; use
// UpdateBalance for the administrative override.
func (s *walletService) Update(id, machineID, userID string, name, icon *string, walletType *models.WalletType, meta models.JSONMap) (*models.Wallet, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != nil && *name != "" {
		updates["name"] = *name
	}
	if icon != nil {
		updates["icon"] = *icon
	}
	if walletType != nil {
		updates["type"] = *walletType
	}
	if meta != nil {
		updates["meta"] = meta
	}

	if len(updates) > 0 {
		result := s.db.Model(&models.Wallet{}).Where("id = ? AND machine_id = ?", id, machineID).Updates(updates)
		if result.Error != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.ErrWalletNotFound
		}
	}

	return s.getByID(id, machineID)
}

// Delete removes a wallet. Owner only.
func (s *walletService) Delete(id, machineID, userID string) error {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return err
	}

	result := s.db.Where("id = ? AND machine_id = ?", id, machineID).Delete(&models.Wallet{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrWalletNotFound
	}
	return nil
}

// UpdateBalance sets a wallet's balance directly. This is the administrative
// override outside the transaction state machine. Changing the currency in
// the same call is rejected.
func (s *walletService) UpdateBalance(id, machineID, userID, currency string, balance decimal.Decimal) (*models.Wallet, error) {
	if err := s.machineService.CheckPermission(machineID, userID, fundWriteRoles); err != nil {
		return nil, err
	}

	wallet, err := s.getByID(id, machineID)
	if err != nil {
		return nil, err
	}
	if currency != "" && currency != wallet.Currency {
		return nil, apperrors.ErrCurrencyNotSupported
	}
	if balance.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "balance cannot be negative")
	}

	if err := s.db.Model(wallet).Update("balance", balance).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.getByID(id, machineID)
}

// GetTransactions lists transactions touching the wallet as source or destination.
func (s *walletService) GetTransactions(id, machineID, userID string) ([]models.Transaction, error) {
	if _, err := s.GetByID(id, machineID, userID); err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	err := s.db.
		Where("machine_id = ?", machineID).
		Where("from_wallet_id = ? OR to_wallet_id = ?", id, id).
		Order("created_at DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}
