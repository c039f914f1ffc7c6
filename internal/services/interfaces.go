package services

import (
	"time"

	"github.com/shopspring/decimal"

	"wealthmachine/internal/ledger"
	"wealthmachine/internal/models"
	"wealthmachine/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	AttemptLogin(email, password string) (*models.User, error)
}

// StoreFundChange describes one fund entry of a bulk store/fund save.
type StoreFundChange struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Icon    string  `json:"icon,omitempty"`
	Percent float64 `json:"percent"`
	Action  string  `json:"action"`
}

// StoreChange describes one store entry of a bulk store/fund save, with its
// fund change-set.
type StoreChange struct {
	ID     string            `json:"id,omitempty"`
	Name   string            `json:"name"`
	Type   models.StoreType  `json:"type"`
	Icon   string            `json:"icon,omitempty"`
	Action string            `json:"action"`
	Meta   models.JSONMap    `json:"meta,omitempty"`
	Funds  []StoreFundChange `json:"funds"`
}

// SaveStoresFundsResult reports the ids touched by a bulk store/fund save.
type SaveStoresFundsResult struct {
	Stores []ChangedEntity `json:"stores"`
	Funds  []ChangedEntity `json:"funds"`
}

// ChangedEntity is one id/action pair of a bulk save result.
type ChangedEntity struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

// NewMachineStore describes an initial store (with funds) for machine creation.
type NewMachineStore struct {
	Name  string           `json:"name"`
	Type  models.StoreType `json:"type"`
	Icon  string           `json:"icon,omitempty"`
	Funds []NewMachineFund `json:"funds"`
}

// NewMachineFund describes an initial fund for machine creation.
type NewMachineFund struct {
	Name    string  `json:"name"`
	Icon    string  `json:"icon,omitempty"`
	Percent float64 `json:"percent"`
}

// NewMachineWallet describes an initial wallet for machine creation.
type NewMachineWallet struct {
	Name     string            `json:"name"`
	Type     models.WalletType `json:"type"`
	Icon     string            `json:"icon,omitempty"`
	Currency string            `json:"currency"`
	Balance  decimal.Decimal   `json:"balance"`
}

// CreateMachineInput carries the full creation payload for a machine.
type CreateMachineInput struct {
	Name        string
	Icon        string
	Currency    string
	UnAllocated decimal.Decimal
	Config      models.JSONMap
	Meta        models.JSONMap
	Stores      []NewMachineStore
	Wallets     []NewMachineWallet
}

// MachineServicer defines the contract for machine-related business logic,
// including the permission gate used by every other service.
type MachineServicer interface {
	CheckPermission(machineID, userID string, roles []models.MachineRole) error
	List(userID string) ([]models.Machine, error)
	GetByID(machineID, userID string) (*models.Machine, error)
	Create(input CreateMachineInput, userID string) (*models.Machine, error)
	Update(machineID, userID string, name, icon string, config, meta models.JSONMap) (*models.Machine, error)
	Delete(machineID, userID string) error
	SaveStoresFunds(machineID, userID string, stores []StoreChange) (*SaveStoresFundsResult, error)
}

// StoreServicer defines the contract for store-related business logic.
type StoreServicer interface {
	List(machineID, userID string) ([]models.Store, error)
	GetByID(id, machineID, userID string) (*models.Store, error)
	Create(machineID, userID string, name, icon string, storeType models.StoreType, config, meta models.JSONMap) (*models.Store, error)
	Update(id, machineID, userID string, name, icon string, config, meta models.JSONMap) (*models.Store, error)
	Delete(id, machineID, userID string) error
	CreateFund(storeID, machineID, userID string, name, description, icon string, percent float64) (*models.Fund, error)
}

// FundServicer defines the contract for fund-related business logic.
type FundServicer interface {
	List(machineID, userID string) ([]models.Fund, error)
	GetByID(id, machineID, userID string) (*models.Fund, error)
	Create(machineID, userID, storeID string, name, description, icon string, percent float64) (*models.Fund, error)
	Update(id, machineID, userID string, name, description, icon *string, percent *float64) (*models.Fund, error)
	Delete(id, machineID, userID string) error
	UpdateBalance(id, machineID, userID string, amount decimal.Decimal) (*models.Fund, error)
	GetTransactions(id, machineID, userID string) ([]models.Transaction, error)
}

// WalletServicer defines the contract for wallet-related business logic.
type WalletServicer interface {
	List(machineID, userID string) ([]models.Wallet, error)
	GetByID(id, machineID, userID string) (*models.Wallet, error)
	Create(machineID, userID string, name, icon string, walletType models.WalletType, currency string, balance decimal.Decimal, meta models.JSONMap) (*models.Wallet, error)
	Update(id, machineID, userID string, name, icon *string, walletType *models.WalletType, meta models.JSONMap) (*models.Wallet, error)
	Delete(id, machineID, userID string) error
	UpdateBalance(id, machineID, userID, currency string, balance decimal.Decimal) (*models.Wallet, error)
	GetTransactions(id, machineID, userID string) ([]models.Transaction, error)
}

// TransactionDraft is the creation payload for a transaction.
type TransactionDraft struct {
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

// TransactionUpdate carries the mutable fields of a pending transaction.
type TransactionUpdate struct {
	Status   models.TransactionStatus
	Note     *string
	Category *string
	Tags     []string
	Meta     models.JSONMap
}

// TransactionFilter holds optional filter parameters for listing transactions.
// StartDate and EndDate are date-only values expanded to inclusive UTC day
// boundaries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Funds     []string
	Wallets   []string
	Tags      []string
	Window    pagination.ListRequest
}

// TransactionReport summarizes the balance impact of a filtered window.
type TransactionReport struct {
	StartBalance     decimal.Decimal `json:"start_balance"`
	EndBalance       decimal.Decimal `json:"end_balance"`
	Difference       decimal.Decimal `json:"difference"`
	PercentageChange decimal.Decimal `json:"percentage_change"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	Create(draft TransactionDraft, machineID, userID string) (*models.Transaction, error)
	GetByID(id, machineID string) (*models.Transaction, error)
	List(machineID string, filter TransactionFilter) (*pagination.ListResponse[models.Transaction], error)
	Update(id string, update TransactionUpdate, machineID, userID string) (*models.Transaction, error)
	Delete(id, machineID string) error
	Allocate(pairs []ledger.AllocationPair, machineID, userID string) ([]ledger.AllocationResult, error)
	Report(machineID string, filter TransactionFilter) (*TransactionReport, error)
}
