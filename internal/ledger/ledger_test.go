package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
	"wealthmachine/internal/testutil"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestProcessTransaction(t *testing.T) {
	t.Run("money_transfer_moves_between_wallets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, decimal.Zero)
		w1 := testutil.CreateTestWallet(t, db, machine.ID, dec(500))
		w2 := testutil.CreateTestWallet(t, db, machine.ID, dec(0))

		tx, err := l.ProcessTransaction(ProcessParams{
			MachineID:    machine.ID,
			UserID:       user.ID,
			FromWalletID: &w1.ID,
			ToWalletID:   &w2.ID,
			Type:         models.TransactionTypeMoneyTransfer,
			Amount:       dec(100),
			ExchangeRate: dec(1),
		})
		testutil.AssertNoError(t, err)

		if tx.Status != models.TransactionStatusCompleted {
			t.Errorf("expected status completed, got %s", tx.Status)
		}

		var from, to models.Wallet
		testutil.AssertNoError(t, db.First(&from, "id = ?", w1.ID).Error)
		testutil.AssertNoError(t, db.First(&to, "id = ?", w2.ID).Error)
		testutil.AssertDecimalEqual(t, from.Balance, dec(400))
		testutil.AssertDecimalEqual(t, to.Balance, dec(100))
	})

	t.Run("income_credits_wallet_and_fund", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, decimal.Zero)
		store := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeIncome)
		fund := testutil.CreateTestFund(t, db, machine.ID, store.ID, 0)
		wallet := testutil.CreateTestWallet(t, db, machine.ID, dec(0))

		tx, err := l.ProcessTransaction(ProcessParams{
			MachineID:  machine.ID,
			UserID:     user.ID,
			ToWalletID: &wallet.ID,
			ToFundID:   &fund.ID,
			Type:       models.TransactionTypeIncome,
			Amount:     dec(250),
		})
		testutil.AssertNoError(t, err)

		if tx.ToWallet == nil || tx.ToWallet.Name != wallet.Name {
			t.Error("expected destination wallet to be attached")
		}
		if tx.ToFund == nil || tx.ToFund.Name != fund.Name {
			t.Error("expected destination fund to be attached")
		}

		var gotFund models.Fund
		testutil.AssertNoError(t, db.First(&gotFund, "id = ?", fund.ID).Error)
		testutil.AssertDecimalEqual(t, gotFund.Balance, dec(250))
	})

	t.Run("exchange_rate_applies_to_both_sides", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, decimal.Zero)
		w1 := testutil.CreateTestWallet(t, db, machine.ID, dec(1000))
		w2 := testutil.CreateTestWallet(t, db, machine.ID, dec(0))

		rate, _ := decimal.NewFromString("2.5")
		_, err := l.ProcessTransaction(ProcessParams{
			MachineID:    machine.ID,
			UserID:       user.ID,
			FromWalletID: &w1.ID,
			ToWalletID:   &w2.ID,
			Type:         models.TransactionTypeMoneyTransfer,
			Amount:       dec(100),
			ExchangeRate: rate,
		})
		testutil.AssertNoError(t, err)

		var from, to models.Wallet
		testutil.AssertNoError(t, db.First(&from, "id = ?", w1.ID).Error)
		testutil.AssertNoError(t, db.First(&to, "id = ?", w2.ID).Error)
		testutil.AssertDecimalEqual(t, from.Balance, dec(750))
		testutil.AssertDecimalEqual(t, to.Balance, dec(250))
	})

	t.Run("insufficient_wallet_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, decimal.Zero)
		w1 := testutil.CreateTestWallet(t, db, machine.ID, dec(50))
		w2 := testutil.CreateTestWallet(t, db, machine.ID, dec(0))

		_, err := l.ProcessTransaction(ProcessParams{
			MachineID:    machine.ID,
			UserID:       user.ID,
			FromWalletID: &w1.ID,
			ToWalletID:   &w2.ID,
			Type:         models.TransactionTypeMoneyTransfer,
			Amount:       dec(100),
		})
		testutil.AssertAppError(t, err, apperrors.CodeInvalidState)

		// Neither wallet changed.
		var from, to models.Wallet
		testutil.AssertNoError(t, db.First(&from, "id = ?", w1.ID).Error)
		testutil.AssertNoError(t, db.First(&to, "id = ?", w2.ID).Error)
		testutil.AssertDecimalEqual(t, from.Balance, dec(50))
		testutil.AssertDecimalEqual(t, to.Balance, dec(0))
	})

	t.Run("unknown_wallet", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, decimal.Zero)
		w2 := testutil.CreateTestWallet(t, db, machine.ID, dec(0))

		missing := "00000000-0000-0000-0000-000000000000"
		_, err := l.ProcessTransaction(ProcessParams{
			MachineID:    machine.ID,
			UserID:       user.ID,
			FromWalletID: &missing,
			ToWalletID:   &w2.ID,
			Type:         models.TransactionTypeMoneyTransfer,
			Amount:       dec(10),
		})
		testutil.AssertAppError(t, err, apperrors.CodeNotFound)
	})

	t.Run("wallet_outside_machine_scope", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, decimal.Zero)
		other := testutil.CreateTestMachine(t, db, user.ID, decimal.Zero)
		foreign := testutil.CreateTestWallet(t, db, other.ID, dec(1000))
		w2 := testutil.CreateTestWallet(t, db, machine.ID, dec(0))

		_, err := l.ProcessTransaction(ProcessParams{
			MachineID:    machine.ID,
			UserID:       user.ID,
			FromWalletID: &foreign.ID,
			ToWalletID:   &w2.ID,
			Type:         models.TransactionTypeMoneyTransfer,
			Amount:       dec(10),
		})
		testutil.AssertAppError(t, err, apperrors.CodeNotFound)
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, decimal.Zero)
		wallet := testutil.CreateTestWallet(t, db, machine.ID, dec(100))

		_, err := l.ProcessTransaction(ProcessParams{
			MachineID:    machine.ID,
			UserID:       user.ID,
			FromWalletID: &wallet.ID,
			ToWalletID:   &wallet.ID,
			Type:         models.TransactionTypeMoneyTransfer,
			Amount:       dec(0),
		})
		testutil.AssertAppError(t, err, apperrors.CodeValidation)
	})
}

func TestConservation(t *testing.T) {
	t.Run("pure_transfers_preserve_machine_aggregate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, dec(1000))
		store := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeExpense)
		fundA := testutil.CreateTestFundWithBalance(t, db, machine.ID, store.ID, 30, dec(300))
		fundB := testutil.CreateTestFundWithBalance(t, db, machine.ID, store.ID, 20, dec(0))
		w1 := testutil.CreateTestWallet(t, db, machine.ID, dec(500))
		w2 := testutil.CreateTestWallet(t, db, machine.ID, dec(200))

		before := testutil.MachineAggregate(t, db, machine.ID)

		_, err := l.ProcessTransaction(ProcessParams{
			MachineID: machine.ID, UserID: user.ID,
			FromWalletID: &w1.ID, ToWalletID: &w2.ID,
			Type: models.TransactionTypeMoneyTransfer, Amount: dec(150),
		})
		testutil.AssertNoError(t, err)

		_, err = l.ProcessTransaction(ProcessParams{
			MachineID: machine.ID, UserID: user.ID,
			FromFundID: &fundA.ID, ToFundID: &fundB.ID,
			Type: models.TransactionTypeTransferRefundable, Amount: dec(120),
		})
		testutil.AssertNoError(t, err)

		_, err = l.ProcessTransaction(ProcessParams{
			MachineID: machine.ID, UserID: user.ID,
			FromFundID: &fundB.ID, ToFundID: &fundA.ID,
			Type: models.TransactionTypeTransferNonRefund, Amount: dec(20),
		})
		testutil.AssertNoError(t, err)

		_, err = l.ProcessTransaction(ProcessParams{
			MachineID: machine.ID, UserID: user.ID,
			ToFundID: &fundA.ID,
			Type:     models.TransactionTypeAllocation, Amount: dec(400),
		})
		testutil.AssertNoError(t, err)

		after := testutil.MachineAggregate(t, db, machine.ID)
		testutil.AssertDecimalEqual(t, after, before)
	})
}

func TestAllocate(t *testing.T) {
	t.Run("distributes_unallocated_across_funds", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, dec(1000))
		store := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeExpense)
		fundA := testutil.CreateTestFund(t, db, machine.ID, store.ID, 40)
		fundB := testutil.CreateTestFund(t, db, machine.ID, store.ID, 60)

		results, err := l.Allocate(machine.ID, user.ID, []AllocationPair{
			{FundID: fundA.ID, Amount: dec(400)},
			{FundID: fundB.ID, Amount: dec(600)},
		})
		testutil.AssertNoError(t, err)

		if len(results) != 2 {
			t.Fatalf("expected 2 allocation results, got %d", len(results))
		}
		testutil.AssertDecimalEqual(t, results[0].NewBalance, dec(400))
		testutil.AssertDecimalEqual(t, results[1].NewBalance, dec(600))
		for _, r := range results {
			if r.TransactionID == "" {
				t.Error("expected a transaction id per allocation")
			}
		}

		var gotMachine models.Machine
		testutil.AssertNoError(t, db.First(&gotMachine, "id = ?", machine.ID).Error)
		testutil.AssertDecimalEqual(t, gotMachine.UnAllocated, dec(0))

		var count int64
		testutil.AssertNoError(t, db.Model(&models.Transaction{}).
			Where("machine_id = ? AND type = ?", machine.ID, models.TransactionTypeAllocation).
			Count(&count).Error)
		if count != 2 {
			t.Errorf("expected 2 allocation transactions, got %d", count)
		}
	})

	t.Run("batch_exceeding_unallocated_changes_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, dec(500))
		store := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeExpense)
		fundA := testutil.CreateTestFund(t, db, machine.ID, store.ID, 40)
		fundB := testutil.CreateTestFund(t, db, machine.ID, store.ID, 60)

		_, err := l.Allocate(machine.ID, user.ID, []AllocationPair{
			{FundID: fundA.ID, Amount: dec(400)},
			{FundID: fundB.ID, Amount: dec(600)},
		})
		testutil.AssertAppError(t, err, apperrors.CodeInvalidState)

		var gotMachine models.Machine
		testutil.AssertNoError(t, db.First(&gotMachine, "id = ?", machine.ID).Error)
		testutil.AssertDecimalEqual(t, gotMachine.UnAllocated, dec(500))

		var gotA, gotB models.Fund
		testutil.AssertNoError(t, db.First(&gotA, "id = ?", fundA.ID).Error)
		testutil.AssertNoError(t, db.First(&gotB, "id = ?", fundB.ID).Error)
		testutil.AssertDecimalEqual(t, gotA.Balance, dec(0))
		testutil.AssertDecimalEqual(t, gotB.Balance, dec(0))

		var count int64
		testutil.AssertNoError(t, db.Model(&models.Transaction{}).
			Where("machine_id = ?", machine.ID).Count(&count).Error)
		if count != 0 {
			t.Errorf("expected no transactions, got %d", count)
		}
	})

	t.Run("unknown_fund_rolls_back_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)
		user := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, user.ID, dec(1000))
		store := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeExpense)
		fund := testutil.CreateTestFund(t, db, machine.ID, store.ID, 40)

		_, err := l.Allocate(machine.ID, user.ID, []AllocationPair{
			{FundID: fund.ID, Amount: dec(100)},
			{FundID: "00000000-0000-0000-0000-000000000000", Amount: dec(100)},
		})
		testutil.AssertAppError(t, err, apperrors.CodeNotFound)

		var gotMachine models.Machine
		testutil.AssertNoError(t, db.First(&gotMachine, "id = ?", machine.ID).Error)
		testutil.AssertDecimalEqual(t, gotMachine.UnAllocated, dec(1000))

		var gotFund models.Fund
		testutil.AssertNoError(t, db.First(&gotFund, "id = ?", fund.ID).Error)
		testutil.AssertDecimalEqual(t, gotFund.Balance, dec(0))
	})

	t.Run("empty_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)

		_, err := l.Allocate("machine", "user", nil)
		testutil.AssertAppError(t, err, apperrors.CodeValidation)
	})

	t.Run("non_positive_pair_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)

		_, err := l.Allocate("machine", "user", []AllocationPair{{FundID: "f", Amount: dec(-5)}})
		testutil.AssertAppError(t, err, apperrors.CodeValidation)
	})

	t.Run("unknown_machine", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := New(db)

		_, err := l.Allocate("00000000-0000-0000-0000-000000000000", "user", []AllocationPair{{FundID: "f", Amount: dec(5)}})
		testutil.AssertAppError(t, err, apperrors.CodeNotFound)
	})
}
