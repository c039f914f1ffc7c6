package services

import (
	"testing"

	"github.com/shopspring/decimal"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
	"wealthmachine/internal/testutil"
)

func TestCheckPermission(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewMachineService(db)

	owner := testutil.CreateTestUser(t, db)
	member := testutil.CreateTestUser(t, db)
	outsider := testutil.CreateTestUser(t, db)
	machine := testutil.CreateTestMachine(t, db, owner.ID, decimal.Zero)
	testutil.AddTestMember(t, db, machine.ID, member.ID, models.MachineRoleMember)

	ownerOnly := []models.MachineRole{models.MachineRoleOwner}
	readRoles := []models.MachineRole{models.MachineRoleOwner, models.MachineRoleMember}

	t.Run("owner_passes_all_gates", func(t *testing.T) {
		testutil.AssertNoError(t, svc.CheckPermission(machine.ID, owner.ID, ownerOnly))
		testutil.AssertNoError(t, svc.CheckPermission(machine.ID, owner.ID, readRoles))
	})

	t.Run("member_passes_read_gate_only", func(t *testing.T) {
		testutil.AssertNoError(t, svc.CheckPermission(machine.ID, member.ID, readRoles))
		err := svc.CheckPermission(machine.ID, member.ID, ownerOnly)
		testutil.AssertAppError(t, err, apperrors.CodeAccessDenied)
	})

	t.Run("non_member_is_denied", func(t *testing.T) {
		err := svc.CheckPermission(machine.ID, outsider.ID, readRoles)
		testutil.AssertAppError(t, err, apperrors.CodeAccessDenied)
	})

	t.Run("revoked_membership_takes_effect", func(t *testing.T) {
		revoked := testutil.CreateTestUser(t, db)
		testutil.AddTestMember(t, db, machine.ID, revoked.ID, models.MachineRoleMember)
		testutil.AssertNoError(t, svc.CheckPermission(machine.ID, revoked.ID, readRoles))

		testutil.AssertNoError(t, db.Where("machine_id = ? AND user_id = ?", machine.ID, revoked.ID).
			Delete(&models.MachineUser{}).Error)

		err := svc.CheckPermission(machine.ID, revoked.ID, readRoles)
		testutil.AssertAppError(t, err, apperrors.CodeAccessDenied)
	})
}

func TestMachineCreate(t *testing.T) {
	t.Run("creates_full_setup", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewMachineService(db)
		user := testutil.CreateTestUser(t, db)

		machine, err := svc.Create(CreateMachineInput{
			Name:     "Household",
			Currency: "USD",
			Stores: []NewMachineStore{
				{Name: "Income", Type: models.StoreTypeIncome, Funds: []NewMachineFund{{Name: "Salary", Percent: 100}}},
				{Name: "Expenses", Type: models.StoreTypeExpense, Funds: []NewMachineFund{
					{Name: "Essentials", Percent: 55},
					{Name: "Leisure", Percent: 10},
				}},
				{Name: "Reserve", Type: models.StoreTypeReserve, Funds: []NewMachineFund{{Name: "Emergency", Percent: 35}}},
			},
			Wallets: []NewMachineWallet{
				{Name: "Checking", Type: models.WalletTypeBank, Balance: decimal.NewFromInt(2000)},
			},
		}, user.ID)
		testutil.AssertNoError(t, err)

		if machine.Currency != "USD" {
			t.Errorf("expected currency USD, got %s", machine.Currency)
		}
		if len(machine.Stores) != 3 {
			t.Errorf("expected 3 stores, got %d", len(machine.Stores))
		}
		if len(machine.Funds) != 4 {
			t.Errorf("expected 4 funds, got %d", len(machine.Funds))
		}
		if len(machine.Wallets) != 1 {
			t.Errorf("expected 1 wallet, got %d", len(machine.Wallets))
		}

		// Wallet inherits the machine currency when blank.
		if machine.Wallets[0].Currency != "USD" {
			t.Errorf("expected wallet currency USD, got %s", machine.Wallets[0].Currency)
		}

		var membership models.MachineUser
		testutil.AssertNoError(t, db.Where("machine_id = ? AND user_id = ?", machine.ID, user.ID).First(&membership).Error)
		if membership.Role != models.MachineRoleOwner {
			t.Errorf("expected creator to be owner, got %s", membership.Role)
		}
	})

	t.Run("income_funds_exempt_from_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewMachineService(db)
		user := testutil.CreateTestUser(t, db)

		// 100 on the income side plus 100 on the expense side is fine; only
		// non-income stores count.
		_, err := svc.Create(CreateMachineInput{
			Name: "Loaded",
			Stores: []NewMachineStore{
				{Name: "Income", Type: models.StoreTypeIncome, Funds: []NewMachineFund{{Name: "Salary", Percent: 100}}},
				{Name: "Expenses", Type: models.StoreTypeExpense, Funds: []NewMachineFund{{Name: "All", Percent: 100}}},
			},
		}, user.ID)
		testutil.AssertNoError(t, err)
	})

	t.Run("rejects_budget_overflow", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewMachineService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.Create(CreateMachineInput{
			Name: "Broken",
			Stores: []NewMachineStore{
				{Name: "Expenses", Type: models.StoreTypeExpense, Funds: []NewMachineFund{
					{Name: "A", Percent: 60},
					{Name: "B", Percent: 41},
				}},
			},
		}, user.ID)
		testutil.AssertAppError(t, err, apperrors.CodeInvalidState)
	})

	t.Run("rejects_empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewMachineService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.Create(CreateMachineInput{}, user.ID)
		testutil.AssertAppError(t, err, apperrors.CodeValidation)
	})
}

func TestMachineList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewMachineService(db)

	owner := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	mine := testutil.CreateTestMachine(t, db, owner.ID, decimal.Zero)
	testutil.CreateTestMachine(t, db, other.ID, decimal.Zero)

	machines, err := svc.List(owner.ID)
	testutil.AssertNoError(t, err)
	if len(machines) != 1 || machines[0].ID != mine.ID {
		t.Errorf("expected only the owner's machine, got %d", len(machines))
	}
}

func TestMachineDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewMachineService(db)

	owner := testutil.CreateTestUser(t, db)
	machine := testutil.CreateTestMachine(t, db, owner.ID, decimal.Zero)
	store := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeExpense)
	testutil.CreateTestFund(t, db, machine.ID, store.ID, 10)
	testutil.CreateTestWallet(t, db, machine.ID, decimal.Zero)
	testutil.CreateTestTransaction(t, db, machine.ID, models.TransactionTypeExpense, decimal.NewFromInt(5), models.TransactionStatusPending)

	testutil.AssertNoError(t, svc.Delete(machine.ID, owner.ID))

	for _, model := range []interface{}{
		&models.Store{}, &models.Fund{}, &models.Wallet{}, &models.Transaction{}, &models.MachineUser{},
	} {
		var count int64
		testutil.AssertNoError(t, db.Model(model).Where("machine_id = ?", machine.ID).Count(&count).Error)
		if count != 0 {
			t.Errorf("expected %T rows to be removed, found %d", model, count)
		}
	}
}

func TestSaveStoresFunds(t *testing.T) {
	t.Run("applies_mixed_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewMachineService(db)

		owner := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, owner.ID, decimal.Zero)
		store := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeExpense)
		keep := testutil.CreateTestFund(t, db, machine.ID, store.ID, 30)
		drop := testutil.CreateTestFund(t, db, machine.ID, store.ID, 20)

		result, err := svc.SaveStoresFunds(machine.ID, owner.ID, []StoreChange{
			{
				ID: store.ID, Name: "Renamed Store", Type: models.StoreTypeExpense, Action: "update",
				Funds: []StoreFundChange{
					{ID: keep.ID, Name: "Kept", Percent: 40, Action: "update"},
					{ID: drop.ID, Action: "delete"},
					{Name: "Fresh", Percent: 60, Action: "create"},
				},
			},
			{
				Name: "New Store", Type: models.StoreTypeBusiness, Action: "create",
				Funds: []StoreFundChange{},
			},
		})
		testutil.AssertNoError(t, err)

		if len(result.Stores) != 2 {
			t.Errorf("expected 2 store changes, got %d", len(result.Stores))
		}
		if len(result.Funds) != 3 {
			t.Errorf("expected 3 fund changes, got %d", len(result.Funds))
		}

		var gotStore models.Store
		testutil.AssertNoError(t, db.First(&gotStore, "id = ?", store.ID).Error)
		if gotStore.Name != "Renamed Store" {
			t.Errorf("expected store renamed, got %q", gotStore.Name)
		}

		var fundCount int64
		testutil.AssertNoError(t, db.Model(&models.Fund{}).Where("machine_id = ?", machine.ID).Count(&fundCount).Error)
		if fundCount != 2 {
			t.Errorf("expected 2 funds after batch, got %d", fundCount)
		}
	})

	t.Run("rejects_batch_over_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewMachineService(db)

		owner := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, owner.ID, decimal.Zero)
		store := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeExpense)

		_, err := svc.SaveStoresFunds(machine.ID, owner.ID, []StoreChange{
			{
				ID: store.ID, Name: store.Name, Type: models.StoreTypeExpense, Action: "update",
				Funds: []StoreFundChange{
					{Name: "A", Percent: 70, Action: "create"},
					{Name: "B", Percent: 31, Action: "create"},
				},
			},
		})
		testutil.AssertAppError(t, err, apperrors.CodeInvalidState)

		var fundCount int64
		testutil.AssertNoError(t, db.Model(&models.Fund{}).Where("machine_id = ?", machine.ID).Count(&fundCount).Error)
		if fundCount != 0 {
			t.Errorf("expected no funds created by rejected batch, got %d", fundCount)
		}
	})

	t.Run("income_and_deleted_entries_skip_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewMachineService(db)

		owner := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, owner.ID, decimal.Zero)
		income := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeIncome)
		expense := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeExpense)
		doomed := testutil.CreateTestFund(t, db, machine.ID, expense.ID, 90)

		_, err := svc.SaveStoresFunds(machine.ID, owner.ID, []StoreChange{
			{
				ID: income.ID, Name: income.Name, Type: models.StoreTypeIncome, Action: "update",
				Funds: []StoreFundChange{{Name: "Salary", Percent: 100, Action: "create"}},
			},
			{
				ID: expense.ID, Name: expense.Name, Type: models.StoreTypeExpense, Action: "update",
				Funds: []StoreFundChange{
					{ID: doomed.ID, Action: "delete"},
					{Name: "Rebuilt", Percent: 100, Action: "create"},
				},
			},
		})
		testutil.AssertNoError(t, err)
	})

	t.Run("unknown_fund_rolls_back_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewMachineService(db)

		owner := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, owner.ID, decimal.Zero)
		store := testutil.CreateTestStore(t, db, machine.ID, models.StoreTypeExpense)

		_, err := svc.SaveStoresFunds(machine.ID, owner.ID, []StoreChange{
			{
				ID: store.ID, Name: store.Name, Type: models.StoreTypeExpense, Action: "update",
				Funds: []StoreFundChange{
					{Name: "Created", Percent: 10, Action: "create"},
					{ID: "00000000-0000-0000-0000-000000000000", Action: "delete"},
				},
			},
		})
		testutil.AssertAppError(t, err, apperrors.CodeNotFound)

		var fundCount int64
		testutil.AssertNoError(t, db.Model(&models.Fund{}).Where("machine_id = ?", machine.ID).Count(&fundCount).Error)
		if fundCount != 0 {
			t.Errorf("expected rollback to remove the created fund, got %d", fundCount)
		}
	})

	t.Run("member_cannot_save", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewMachineService(db)

		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUser(t, db)
		machine := testutil.CreateTestMachine(t, db, owner.ID, decimal.Zero)
		testutil.AddTestMember(t, db, machine.ID, member.ID, models.MachineRoleMember)

		_, err := svc.SaveStoresFunds(machine.ID, member.ID, nil)
		testutil.AssertAppError(t, err, apperrors.CodeAccessDenied)
	})
}
