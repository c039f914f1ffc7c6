// Package ledger implements the atomic balance procedures behind the
// transaction subsystem. Every money movement happens inside a single
// database transaction with guarded balance updates, so concurrent requests
// against the same wallet, fund, or machine cannot produce lost updates.
// Application code outside this package never writes balances for
// money-moving paths.
package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
)

// Ledger executes atomic balance procedures against the database.
type Ledger struct {
	db *gorm.DB
}

// New creates a new Ledger.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// ProcessParams carries everything needed to process one transaction.
type ProcessParams struct {
	MachineID            string
	UserID               string
	FromWalletID         *string
	ToWalletID           *string
	FromFundID           *string
	ToFundID             *string
	Type                 models.TransactionType
	Amount               decimal.Decimal
	Currency             string
	ExchangeRate         decimal.Decimal
	Note                 string
	Category             string
	Tags                 []string
	RelatedTransactionID *string
	Meta                 models.JSONMap
}

// AllocationPair is one (fund, amount) entry of an allocation batch.
type AllocationPair struct {
	FundID string          `json:"fund_id"`
	Amount decimal.Decimal `json:"amount"`
}

// AllocationResult is the per-fund outcome of an allocation batch.
type AllocationResult struct {
	TransactionID string          `json:"transaction_id"`
	FundID        string          `json:"fund_id"`
	Amount        decimal.Decimal `json:"amount"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

// ProcessTransaction applies the balance movement for a single transaction
// and persists it with status completed. The source wallet/fund is debited
// and the destination wallet/fund credited by amount * exchange_rate, so
// pure transfers conserve the machine's aggregate balance. An allocation
// additionally debits the machine's unallocated balance.
func (l *Ledger) ProcessTransaction(p ProcessParams) (*models.Transaction, error) {
	rate := p.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	if !p.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	effective := p.Amount.Mul(rate)

	currency := p.Currency
	if currency == "" {
		currency = "VND"
	}

	var created models.Transaction
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if p.RelatedTransactionID != nil {
			var count int64
			if err := tx.Model(&models.Transaction{}).
				Where("id = ? AND machine_id = ?", *p.RelatedTransactionID, p.MachineID).
				Count(&count).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count == 0 {
				return apperrors.ErrTransactionNotFound
			}
		}

		if p.FromWalletID != nil {
			if err := l.debitWallet(tx, p.MachineID, *p.FromWalletID, effective); err != nil {
				return err
			}
		}
		if p.ToWalletID != nil {
			if err := l.creditWallet(tx, p.MachineID, *p.ToWalletID, effective); err != nil {
				return err
			}
		}
		if p.FromFundID != nil {
			if err := l.debitFund(tx, p.MachineID, *p.FromFundID, effective); err != nil {
				return err
			}
		}
		if p.ToFundID != nil {
			if err := l.creditFund(tx, p.MachineID, *p.ToFundID, effective); err != nil {
				return err
			}
		}

		// Allocations draw down the machine's unallocated pool, keeping the
		// machine aggregate unchanged.
		if p.Type == models.TransactionTypeAllocation {
			if err := l.debitUnallocated(tx, p.MachineID, effective); err != nil {
				return err
			}
		}

		created = models.Transaction{
			MachineID:            p.MachineID,
			FromWalletID:         p.FromWalletID,
			ToWalletID:           p.ToWalletID,
			FromFundID:           p.FromFundID,
			ToFundID:             p.ToFundID,
			Type:                 p.Type,
			Status:               models.TransactionStatusCompleted,
			Amount:               p.Amount,
			Currency:             currency,
			ExchangeRate:         rate,
			Note:                 p.Note,
			Category:             p.Category,
			Tags:                 models.StringSlice(p.Tags),
			RelatedTransactionID: p.RelatedTransactionID,
			Meta:                 p.Meta,
			CreatedBy:            p.UserID,
		}
		if err := tx.Create(&created).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return l.fetch(created.ID, p.MachineID)
}

// UpdateTransaction updates the mutable fields of a transaction in a single
// statement. The caller is responsible for the completed-status check.
func (l *Ledger) UpdateTransaction(id, machineID string, fields map[string]interface{}) error {
	allowed := map[string]bool{"status": true, "note": true, "category": true, "tags": true, "meta": true}
	updates := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if allowed[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return nil
	}

	result := l.db.Model(&models.Transaction{}).
		Where("id = ? AND machine_id = ?", id, machineID).
		Updates(updates)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// DeleteTransaction removes a transaction row. The caller is responsible for
// the completed-status check.
func (l *Ledger) DeleteTransaction(id, machineID string) error {
	result := l.db.Where("id = ? AND machine_id = ?", id, machineID).Delete(&models.Transaction{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// Allocate distributes amounts from the machine's unallocated balance into
// the given funds. The whole batch commits or none of it does: the machine
// debit is guarded against the batch total before any fund is credited.
func (l *Ledger) Allocate(machineID, userID string, pairs []AllocationPair) ([]AllocationResult, error) {
	if len(pairs) == 0 {
		return nil, apperrors.ErrEmptyAllocation
	}

	total := decimal.Zero
	for _, pair := range pairs {
		if !pair.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "allocation amount must be greater than zero")
		}
		total = total.Add(pair.Amount)
	}

	results := make([]AllocationResult, 0, len(pairs))
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := l.debitUnallocated(tx, machineID, total); err != nil {
			return err
		}

		for _, pair := range pairs {
			if err := l.creditFund(tx, machineID, pair.FundID, pair.Amount); err != nil {
				return err
			}

			fundID := pair.FundID
			allocation := models.Transaction{
				MachineID:    machineID,
				ToFundID:     &fundID,
				Type:         models.TransactionTypeAllocation,
				Status:       models.TransactionStatusCompleted,
				Amount:       pair.Amount,
				ExchangeRate: decimal.NewFromInt(1),
				CreatedBy:    userID,
			}
			if err := tx.Create(&allocation).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}

			var fund models.Fund
			if err := tx.Where("id = ? AND machine_id = ?", pair.FundID, machineID).First(&fund).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}

			results = append(results, AllocationResult{
				TransactionID: allocation.ID,
				FundID:        pair.FundID,
				Amount:        pair.Amount,
				NewBalance:    fund.Balance,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// fetch loads a transaction with endpoint names and child transactions.
func (l *Ledger) fetch(id, machineID string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := l.db.
		Preload("FromWallet").
		Preload("ToWallet").
		Preload("FromFund").
		Preload("ToFund").
		Preload("RelatedTransactions").
		Where("id = ? AND machine_id = ?", id, machineID).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// debitWallet subtracts amount from a wallet balance. The UPDATE is guarded
// so the balance can never go negative, even under concurrent debits.
func (l *Ledger) debitWallet(tx *gorm.DB, machineID, walletID string, amount decimal.Decimal) error {
	result := tx.Model(&models.Wallet{}).
		Where("id = ? AND machine_id = ? AND balance >= ?", walletID, machineID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		if exists, err := l.walletExists(tx, machineID, walletID); err != nil {
			return err
		} else if !exists {
			return apperrors.ErrWalletNotFound
		}
		return apperrors.WithMessage(apperrors.ErrInsufficientBalance, "Insufficient wallet balance")
	}
	return nil
}

func (l *Ledger) creditWallet(tx *gorm.DB, machineID, walletID string, amount decimal.Decimal) error {
	result := tx.Model(&models.Wallet{}).
		Where("id = ? AND machine_id = ?", walletID, machineID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrWalletNotFound
	}
	return nil
}

func (l *Ledger) debitFund(tx *gorm.DB, machineID, fundID string, amount decimal.Decimal) error {
	result := tx.Model(&models.Fund{}).
		Where("id = ? AND machine_id = ? AND balance >= ?", fundID, machineID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		if exists, err := l.fundExists(tx, machineID, fundID); err != nil {
			return err
		} else if !exists {
			return apperrors.ErrFundNotFound
		}
		return apperrors.WithMessage(apperrors.ErrInsufficientBalance, "Insufficient fund balance")
	}
	return nil
}

func (l *Ledger) creditFund(tx *gorm.DB, machineID, fundID string, amount decimal.Decimal) error {
	result := tx.Model(&models.Fund{}).
		Where("id = ? AND machine_id = ?", fundID, machineID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrFundNotFound
	}
	return nil
}

// debitUnallocated subtracts amount from the machine's unallocated pool,
// failing if the pool would go negative.
func (l *Ledger) debitUnallocated(tx *gorm.DB, machineID string, amount decimal.Decimal) error {
	result := tx.Model(&models.Machine{}).
		Where("id = ? AND un_allocated >= ?", machineID, amount).
		Update("un_allocated", gorm.Expr("un_allocated - ?", amount))
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Machine{}).Where("id = ?", machineID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return apperrors.ErrMachineNotFound
		}
		return apperrors.WithMessage(apperrors.ErrInsufficientBalance, "Insufficient unallocated balance")
	}
	return nil
}

func (l *Ledger) walletExists(tx *gorm.DB, machineID, walletID string) (bool, error) {
	var count int64
	if err := tx.Model(&models.Wallet{}).Where("id = ? AND machine_id = ?", walletID, machineID).Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

func (l *Ledger) fundExists(tx *gorm.DB, machineID, fundID string) (bool, error) {
	var count int64
	if err := tx.Model(&models.Fund{}).Where("id = ? AND machine_id = ?", fundID, machineID).Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}
