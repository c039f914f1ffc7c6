package models

import "github.com/shopspring/decimal"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome              TransactionType = "income"
	TransactionTypeExpense             TransactionType = "expense"
	TransactionTypeBorrow              TransactionType = "borrow"
	TransactionTypeCollect             TransactionType = "collect"
	TransactionTypeLend                TransactionType = "lend"
	TransactionTypeRepay               TransactionType = "repay"
	TransactionTypeTransferRefundable  TransactionType = "transfer_refundable"
	TransactionTypeTransferNonRefund   TransactionType = "transfer_non_refundable"
	TransactionTypeMoneyTransfer       TransactionType = "money_transfer"
	TransactionTypeAllocation          TransactionType = "allocation"
)

// TransactionTypes lists all valid transaction types.
var TransactionTypes = []TransactionType{
	TransactionTypeIncome,
	TransactionTypeExpense,
	TransactionTypeBorrow,
	TransactionTypeCollect,
	TransactionTypeLend,
	TransactionTypeRepay,
	TransactionTypeTransferRefundable,
	TransactionTypeTransferNonRefund,
	TransactionTypeMoneyTransfer,
	TransactionTypeAllocation,
}

// TransactionStatus represents the lifecycle status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is the central ledger entry. A transaction with a non-null
// RelatedTransactionID is a child and is only ever returned nested under its
// parent. Once status is completed the row is immutable except through
// compensating transactions.
type Transaction struct {
	Base
	MachineID            string            `gorm:"not null;index" json:"machine_id"`
	FromWalletID         *string           `gorm:"index" json:"from_wallet_id,omitempty"`
	ToWalletID           *string           `gorm:"index" json:"to_wallet_id,omitempty"`
	FromFundID           *string           `gorm:"index" json:"from_fund_id,omitempty"`
	ToFundID             *string           `gorm:"index" json:"to_fund_id,omitempty"`
	Type                 TransactionType   `gorm:"not null" json:"type"`
	Status               TransactionStatus `gorm:"not null;default:'pending'" json:"status"`
	Amount               decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency             string            `gorm:"not null;default:'VND'" json:"currency"`
	ExchangeRate         decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:1" json:"exchange_rate"`
	Note                 string            `json:"note,omitempty"`
	Category             string            `json:"category,omitempty"`
	Tags                 StringSlice       `gorm:"type:text" json:"tags,omitempty"`
	RelatedTransactionID *string           `gorm:"index" json:"related_transaction_id,omitempty"`
	Meta                 JSONMap           `gorm:"type:text" json:"meta,omitempty"`
	CreatedBy            string            `json:"created_by,omitempty"`

	// Relationships
	FromWallet          *Wallet       `gorm:"foreignKey:FromWalletID" json:"from_wallet,omitempty"`
	ToWallet            *Wallet       `gorm:"foreignKey:ToWalletID" json:"to_wallet,omitempty"`
	FromFund            *Fund         `gorm:"foreignKey:FromFundID" json:"from_fund,omitempty"`
	ToFund              *Fund         `gorm:"foreignKey:ToFundID" json:"to_fund,omitempty"`
	RelatedTransactions []Transaction `gorm:"foreignKey:RelatedTransactionID" json:"related_transactions,omitempty"`
}

// EffectiveAmount returns amount multiplied by the exchange rate.
func (t *Transaction) EffectiveAmount() decimal.Decimal {
	return t.Amount.Mul(t.ExchangeRate)
}
