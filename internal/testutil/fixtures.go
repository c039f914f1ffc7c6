package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"wealthmachine/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    fmt.Sprintf("user%d@test.com", nextID()),
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestMachine creates a machine with the given unallocated balance and
// records the user as owner.
func CreateTestMachine(t *testing.T, db *gorm.DB, ownerID string, unAllocated decimal.Decimal) *models.Machine {
	t.Helper()

	machine := &models.Machine{
		Name:        fmt.Sprintf("Test Machine %d", nextID()),
		Currency:    "VND",
		UnAllocated: unAllocated,
	}
	if err := db.Create(machine).Error; err != nil {
		t.Fatalf("failed to create test machine: %v", err)
	}

	AddTestMember(t, db, machine.ID, ownerID, models.MachineRoleOwner)
	return machine
}

// AddTestMember records a membership for a user on a machine.
func AddTestMember(t *testing.T, db *gorm.DB, machineID, userID string, role models.MachineRole) *models.MachineUser {
	t.Helper()

	membership := &models.MachineUser{
		MachineID: machineID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now(),
	}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}
	return membership
}

// CreateTestStore creates a store of the given type.
func CreateTestStore(t *testing.T, db *gorm.DB, machineID string, storeType models.StoreType) *models.Store {
	t.Helper()

	store := &models.Store{
		MachineID: machineID,
		Name:      fmt.Sprintf("Test Store %d", nextID()),
		Type:      storeType,
	}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return store
}

// CreateTestFund creates a fund with the given percent and zero balance.
func CreateTestFund(t *testing.T, db *gorm.DB, machineID, storeID string, percent float64) *models.Fund {
	t.Helper()
	return CreateTestFundWithBalance(t, db, machineID, storeID, percent, decimal.Zero)
}

// CreateTestFundWithBalance creates a fund with the given percent and balance.
func CreateTestFundWithBalance(t *testing.T, db *gorm.DB, machineID, storeID string, percent float64, balance decimal.Decimal) *models.Fund {
	t.Helper()

	fund := &models.Fund{
		MachineID: machineID,
		StoreID:   storeID,
		Name:      fmt.Sprintf("Test Fund %d", nextID()),
		Percent:   percent,
		Balance:   balance,
	}
	if err := db.Create(fund).Error; err != nil {
		t.Fatalf("failed to create test fund: %v", err)
	}
	return fund
}

// CreateTestWallet creates a cash wallet with the given balance.
func CreateTestWallet(t *testing.T, db *gorm.DB, machineID string, balance decimal.Decimal) *models.Wallet {
	t.Helper()

	wallet := &models.Wallet{
		MachineID: machineID,
		Name:      fmt.Sprintf("Test Wallet %d", nextID()),
		Type:      models.WalletTypeCash,
		Currency:  "VND",
		Balance:   balance,
	}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("failed to create test wallet: %v", err)
	}
	return wallet
}

// CreateTestTransaction creates a pending transaction of the given type and amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, machineID string, txType models.TransactionType, amount decimal.Decimal, status models.TransactionStatus) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		MachineID:    machineID,
		Type:         txType,
		Status:       status,
		Amount:       amount,
		Currency:     "VND",
		ExchangeRate: decimal.NewFromInt(1),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// MachineAggregate returns the sum of all wallet balances, fund balances, and
// the machine's unallocated balance.
func MachineAggregate(t *testing.T, db *gorm.DB, machineID string) decimal.Decimal {
	t.Helper()

	var machine models.Machine
	if err := db.Where("id = ?", machineID).First(&machine).Error; err != nil {
		t.Fatalf("failed to load machine: %v", err)
	}
	total := machine.UnAllocated

	var wallets []models.Wallet
	if err := db.Where("machine_id = ?", machineID).Find(&wallets).Error; err != nil {
		t.Fatalf("failed to load wallets: %v", err)
	}
	for i := range wallets {
		total = total.Add(wallets[i].Balance)
	}

	var funds []models.Fund
	if err := db.Where("machine_id = ?", machineID).Find(&funds).Error; err != nil {
		t.Fatalf("failed to load funds: %v", err)
	}
	for i := range funds {
		total = total.Add(funds[i].Balance)
	}

	return total
}
