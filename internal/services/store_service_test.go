package services

import (
	"testing"

	"github.com/shopspring/decimal"

	apperrors "wealthmachine/internal/errors"
	"wealthmachine/internal/models"
	"wealthmachine/internal/testutil"
)

func TestStoreService(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	machines := NewMachineService(db)
	svc := NewStoreService(db, machines, NewFundService(db, machines))

	owner := testutil.CreateTestUser(t, db)
	member := testutil.CreateTestUser(t, db)
	machine := testutil.CreateTestMachine(t, db, owner.ID, decimal.Zero)
	testutil.AddTestMember(t, db, machine.ID, member.ID, models.MachineRoleMember)

	store, err := svc.Create(machine.ID, owner.ID, "Expenses", "🛒", models.StoreTypeExpense, nil, nil)
	testutil.AssertNoError(t, err)

	t.Run("member_cannot_create", func(t *testing.T) {
		_, err := svc.Create(machine.ID, member.ID, "Blocked", "", models.StoreTypeReserve, nil, nil)
		testutil.AssertAppError(t, err, apperrors.CodeAccessDenied)
	})

	t.Run("create_fund_through_store", func(t *testing.T) {
		fund, err := svc.CreateFund(store.ID, machine.ID, owner.ID, "Essentials", "", "", 40)
		testutil.AssertNoError(t, err)
		if fund.StoreID != store.ID {
			t.Errorf("expected fund under store %s, got %s", store.ID, fund.StoreID)
		}
	})

	t.Run("get_includes_funds", func(t *testing.T) {
		got, err := svc.GetByID(store.ID, machine.ID, member.ID)
		testutil.AssertNoError(t, err)
		if len(got.Funds) != 1 {
			t.Errorf("expected 1 fund preloaded, got %d", len(got.Funds))
		}
	})

	t.Run("update", func(t *testing.T) {
		updated, err := svc.Update(store.ID, machine.ID, owner.ID, "Spending", "", nil, nil)
		testutil.AssertNoError(t, err)
		if updated.Name != "Spending" {
			t.Errorf("expected rename, got %q", updated.Name)
		}
	})

	t.Run("delete_removes_funds", func(t *testing.T) {
		testutil.AssertNoError(t, svc.Delete(store.ID, machine.ID, owner.ID))

		var fundCount int64
		testutil.AssertNoError(t, db.Model(&models.Fund{}).Where("store_id = ?", store.ID).Count(&fundCount).Error)
		if fundCount != 0 {
			t.Errorf("expected store funds removed, got %d", fundCount)
		}

		_, err := svc.GetByID(store.ID, machine.ID, owner.ID)
		testutil.AssertAppError(t, err, apperrors.CodeNotFound)
	})
}
