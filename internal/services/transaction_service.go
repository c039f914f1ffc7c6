package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/ledger"
	"wealthmachine/internal/models"
	"wealthmachine/internal/pagination"
)

// transactionService handles transaction-related business logic. All balance
// movement is delegated to the ledger's atomic procedures; this service
// validates drafts, shapes results, and enforces the completed-immutability
// rule.
type transactionService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, l *ledger.Ledger) TransactionServicer {
	return &transactionService{db: db, ledger: l}
}

// validateFields enforces the per-type required-field rules. All violations
// for the given type are collected and reported in one error.
func validateFields(draft TransactionDraft) error {
	var messages []string

	switch draft.Type {
	case models.TransactionTypeIncome, models.TransactionTypeBorrow, models.TransactionTypeCollect:
		if draft.ToFundID == nil {
			messages = append(messages, fmt.Sprintf("destination fund is required for %s", draft.Type))
		}
		if draft.ToWalletID == nil {
			messages = append(messages, fmt.Sprintf("destination wallet is required for %s", draft.Type))
		}

	case models.TransactionTypeExpense, models.TransactionTypeLend, models.TransactionTypeRepay:
		if draft.FromFundID == nil {
			messages = append(messages, fmt.Sprintf("source fund is required for %s", draft.Type))
		}
		if draft.FromWalletID == nil {
			messages = append(messages, fmt.Sprintf("source wallet is required for %s", draft.Type))
		}

	case models.TransactionTypeTransferRefundable, models.TransactionTypeTransferNonRefund:
		if draft.FromFundID == nil {
			messages = append(messages, "source fund is required for transfers")
		}
		if draft.ToFundID == nil {
			messages = append(messages, "destination fund is required for transfers")
		}

	case models.TransactionTypeMoneyTransfer:
		if draft.FromWalletID == nil {
			messages = append(messages, "source wallet is required for money transfers")
		}
		if draft.ToWalletID == nil {
			messages = append(messages, "destination wallet is required for money transfers")
		}

	case models.TransactionTypeAllocation:
		if draft.ToFundID == nil {
			messages = append(messages, "destination fund is required for allocations")
		}

	default:
		messages = append(messages, fmt.Sprintf("unknown transaction type %q", draft.Type))
	}

	if len(messages) > 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, strings.Join(messages, ", "))
	}
	return nil
}

// Create validates the draft and hands it to the atomic process procedure.
// On success the transaction is returned completed, with endpoint names and
// any child transactions attached.
func (s *transactionService) Create(draft TransactionDraft, machineID, userID string) (*models.Transaction, error) {
	if err := validateFields(draft); err != nil {
		return nil, err
	}

	return s.ledger.ProcessTransaction(ledger.ProcessParams{
		MachineID:            machineID,
		UserID:               userID,
		FromWalletID:         draft.FromWalletID,
		ToWalletID:           draft.ToWalletID,
		FromFundID:           draft.FromFundID,
		ToFundID:             draft.ToFundID,
		Type:                 draft.Type,
		Amount:               draft.Amount,
		Currency:             draft.Currency,
		ExchangeRate:         draft.ExchangeRate,
		Note:                 draft.Note,
		Category:             draft.Category,
		Tags:                 draft.Tags,
		RelatedTransactionID: draft.RelatedTransactionID,
		Meta:                 draft.Meta,
	})
}

// GetByID retrieves a transaction scoped to a machine, with endpoint names
// and child transactions nested.
func (s *transactionService) GetByID(id, machineID string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.
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

// List retrieves parent transactions (newest first) with their children
// grouped underneath. Children never appear as roots: rows with a related
// transaction id are fetched separately and attached by parent id.
func (s *transactionService) List(machineID string, filter TransactionFilter) (*pagination.ListResponse[models.Transaction], error) {
	filter.Window.Defaults()

	base := s.db.Model(&models.Transaction{}).
		Where("machine_id = ?", machineID).
		Where("related_transaction_id IS NULL")
	base = applyTransactionFilters(base, filter)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var parents []models.Transaction
	err := base.
		Preload("FromWallet").
		Preload("ToWallet").
		Preload("FromFund").
		Preload("ToFund").
		Scopes(pagination.Window(filter.Window)).
		Order("created_at DESC").
		Find(&parents).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	children, err := s.fetchChildren(machineID, filter)
	if err != nil {
		return nil, err
	}
	groupChildren(parents, children)

	result := pagination.NewListResponse(parents, filter.Window, total)
	return &result, nil
}

// Update mutates a transaction that has not completed. Completed transactions
// are immutable; compensate with a new transaction instead.
func (s *transactionService) Update(id string, update TransactionUpdate, machineID, userID string) (*models.Transaction, error) {
	transaction, err := s.GetByID(id, machineID)
	if err != nil {
		return nil, err
	}
	if transaction.Status == models.TransactionStatusCompleted {
		return nil, apperrors.ErrTransactionCompleted
	}

	fields := make(map[string]interface{})
	if update.Status != "" {
		fields["status"] = update.Status
	}
	if update.Note != nil {
		fields["note"] = *update.Note
	}
	if update.Category != nil {
		fields["category"] = *update.Category
	}
	if update.Tags != nil {
		fields["tags"] = models.StringSlice(update.Tags)
	}
	if update.Meta != nil {
		fields["meta"] = update.Meta
	}

	if err := s.ledger.UpdateTransaction(id, machineID, fields); err != nil {
		return nil, err
	}
	return s.GetByID(id, machineID)
}

// Delete removes a transaction that has not completed.
func (s *transactionService) Delete(id, machineID string) error {
	transaction, err := s.GetByID(id, machineID)
	if err != nil {
		return err
	}
	if transaction.Status == models.TransactionStatusCompleted {
		return apperrors.ErrTransactionCompleted
	}
	return s.ledger.DeleteTransaction(id, machineID)
}

// Allocate distributes the machine's unallocated balance into funds via the
// atomic batch procedure.
func (s *transactionService) Allocate(pairs []ledger.AllocationPair, machineID, userID string) ([]ledger.AllocationResult, error) {
	return s.ledger.Allocate(machineID, userID, pairs)
}

// Report walks the filtered window chronologically and accumulates the
// balance impact of each parent transaction plus its children. Transfers and
// allocations move money inside the machine and have no net effect.
//
// The start balance is always zero in the current design: there is no
// historical snapshot baseline, so the percentage change is zero whenever
// any history exists. Kept as-is deliberately.
func (s *transactionService) Report(machineID string, filter TransactionFilter) (*TransactionReport, error) {
	base := s.db.Model(&models.Transaction{}).
		Where("machine_id = ?", machineID).
		Where("related_transaction_id IS NULL")
	base = applyTransactionFilters(base, filter)

	var parents []models.Transaction
	if err := base.Order("created_at ASC").Find(&parents).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	report := &TransactionReport{
		StartBalance:     decimal.Zero,
		EndBalance:       decimal.Zero,
		Difference:       decimal.Zero,
		PercentageChange: decimal.Zero,
	}
	if len(parents) == 0 {
		return report, nil
	}

	children, err := s.fetchChildren(machineID, filter)
	if err != nil {
		return nil, err
	}
	groupChildren(parents, children)

	endBalance := decimal.Zero
	for i := range parents {
		total := parents[i].EffectiveAmount()
		for j := range parents[i].RelatedTransactions {
			total = total.Add(parents[i].RelatedTransactions[j].EffectiveAmount())
		}

		switch parents[i].Type {
		case models.TransactionTypeIncome, models.TransactionTypeCollect, models.TransactionTypeRepay:
			endBalance = endBalance.Add(total)
		case models.TransactionTypeExpense, models.TransactionTypeLend, models.TransactionTypeBorrow:
			endBalance = endBalance.Sub(total)
		default:
			// transfer_refundable, transfer_non_refundable, money_transfer,
			// allocation: internal movement only.
		}
	}

	report.EndBalance = endBalance
	report.Difference = endBalance.Sub(report.StartBalance)
	if !report.StartBalance.IsZero() {
		report.PercentageChange = report.Difference.Div(report.StartBalance.Abs()).Mul(decimal.NewFromInt(100))
	}
	return report, nil
}

// fetchChildren retrieves child transactions matching the filter, oldest first.
func (s *transactionService) fetchChildren(machineID string, filter TransactionFilter) ([]models.Transaction, error) {
	query := s.db.Model(&models.Transaction{}).
		Where("machine_id = ?", machineID).
		Where("related_transaction_id IS NOT NULL")
	query = applyTransactionFilters(query, filter)

	var children []models.Transaction
	err := query.
		Preload("FromWallet").
		Preload("ToWallet").
		Preload("FromFund").
		Preload("ToFund").
		Order("created_at ASC").
		Find(&children).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return children, nil
}

// groupChildren attaches each child to its parent by related transaction id.
func groupChildren(parents, children []models.Transaction) {
	if len(children) == 0 {
		return
	}
	byParent := make(map[string][]models.Transaction, len(parents))
	for _, child := range children {
		if child.RelatedTransactionID == nil {
			continue
		}
		byParent[*child.RelatedTransactionID] = append(byParent[*child.RelatedTransactionID], child)
	}
	for i := range parents {
		if related, ok := byParent[parents[i].ID]; ok {
			parents[i].RelatedTransactions = related
		}
	}
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.StartDate != nil {
		q = q.Where("created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("created_at <= ?", *f.EndDate)
	}
	if len(f.Funds) > 0 {
		q = q.Where("from_fund_id IN ? OR to_fund_id IN ?", f.Funds, f.Funds)
	}
	if len(f.Wallets) > 0 {
		q = q.Where("from_wallet_id IN ? OR to_wallet_id IN ?", f.Wallets, f.Wallets)
	}
	// Tags are stored as a JSON array; containment is matched per tag against
	// the serialized text, which behaves the same on postgres and sqlite.
	for _, tag := range f.Tags {
		q = q.Where("tags LIKE ?", "%\""+tag+"\"%")
	}
	return q
}
