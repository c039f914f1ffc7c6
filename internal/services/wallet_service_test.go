package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/ledger"
	"wealthmachine/internal/models"
	"wealthmachine/internal/testutil"
)

type walletTestEnv struct {
	db      *gorm.DB
	svc     WalletServicer
	owner   *models.User
	member  *models.User
	machine *models.Machine
}

func newWalletTestEnv(t *testing.T) *walletTestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	owner := testutil.CreateTestUser(t, db)
	member := testutil.CreateTestUser(t, db)
	machine := testutil.CreateTestMachine(t, db, owner.ID, decimal.Zero)
	testutil.AddTestMember(t, db, machine.ID, member.ID, models.MachineRoleMember)

	return &walletTestEnv{
		db:      db,
		svc:     NewWalletService(db, NewMachineService(db)),
		owner:   owner,
		member:  member,
		machine: machine,
	}
}

func TestWalletCRUD(t *testing.T) {
	env := newWalletTestEnv(t)

	wallet, err := env.svc.Create(env.machine.ID, env.owner.ID, "Checking", "🏦", models.WalletTypeBank, "USD", dec(500), nil)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimalEqual(t, wallet.Balance, dec(500))

	t.Run("member_can_read", func(t *testing.T) {
		got, err := env.svc.GetByID(wallet.ID, env.machine.ID, env.member.ID)
		testutil.AssertNoError(t, err)
		if got.Currency != "USD" {
			t.Errorf("expected USD wallet, got %s", got.Currency)
		}
	})

	t.Run("member_cannot_write", func(t *testing.T) {
		name := "Blocked"
		_, err := env.svc.Update(wallet.ID, env.machine.ID, env.member.ID, &name, nil, nil, nil)
		testutil.AssertAppError(t, err, apperrors.CodeAccessDenied)
	})

	t.Run("owner_updates", func(t *testing.T) {
		name := "Main Checking"
		walletType := models.WalletTypeCash
		updated, err := env.svc.Update(wallet.ID, env.machine.ID, env.owner.ID, &name, nil, &walletType, nil)
		testutil.AssertNoError(t, err)
		if updated.Name != "Main Checking" || updated.Type != models.WalletTypeCash {
			t.Errorf("expected update to apply, got %q/%s", updated.Name, updated.Type)
		}
	})

	t.Run("owner_deletes", func(t *testing.T) {
		testutil.AssertNoError(t, env.svc.Delete(wallet.ID, env.machine.ID, env.owner.ID))
		_, err := env.svc.GetByID(wallet.ID, env.machine.ID, env.owner.ID)
		testutil.AssertAppError(t, err, apperrors.CodeNotFound)
	})
}

func TestWalletUpdateBalance(t *testing.T) {
	env := newWalletTestEnv(t)
	wallet, err := env.svc.Create(env.machine.ID, env.owner.ID, "Cash", "", models.WalletTypeCash, "VND", dec(100), nil)
	testutil.AssertNoError(t, err)

	t.Run("sets_balance", func(t *testing.T) {
		updated, err := env.svc.UpdateBalance(wallet.ID, env.machine.ID, env.owner.ID, "VND", dec(750))
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, updated.Balance, dec(750))
	})

	t.Run("rejects_currency_mismatch", func(t *testing.T) {
		_, err := env.svc.UpdateBalance(wallet.ID, env.machine.ID, env.owner.ID, "USD", dec(10))
		testutil.AssertAppError(t, err, apperrors.CodeInvalidState)
	})

	t.Run("rejects_negative_balance", func(t *testing.T) {
		_, err := env.svc.UpdateBalance(wallet.ID, env.machine.ID, env.owner.ID, "VND", dec(-1))
		testutil.AssertAppError(t, err, apperrors.CodeValidation)
	})

	t.Run("member_cannot_override", func(t *testing.T) {
		_, err := env.svc.UpdateBalance(wallet.ID, env.machine.ID, env.member.ID, "VND", dec(10))
		testutil.AssertAppError(t, err, apperrors.CodeAccessDenied)
	})
}

func TestWalletTransactions(t *testing.T) {
	env := newWalletTestEnv(t)
	wallet := testutil.CreateTestWallet(t, env.db, env.machine.ID, dec(500))
	other := testutil.CreateTestWallet(t, env.db, env.machine.ID, dec(0))

	txns := NewTransactionService(env.db, ledger.New(env.db))
	_, err := txns.Create(TransactionDraft{
		Type: models.TransactionTypeMoneyTransfer, FromWalletID: &wallet.ID, ToWalletID: &other.ID, Amount: dec(50),
	}, env.machine.ID, env.owner.ID)
	testutil.AssertNoError(t, err)

	got, err := env.svc.GetTransactions(wallet.ID, env.machine.ID, env.member.ID)
	testutil.AssertNoError(t, err)
	if len(got) != 1 {
		t.Fatalf("expected 1 wallet transaction, got %d", len(got))
	}
}
