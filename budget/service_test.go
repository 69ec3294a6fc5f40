package budget_test

import (
	"context"
	"testing"

	"github.com/billbatista/acasinha-trips/budget"
	"github.com/billbatista/acasinha-trips/ledgertest"
	"github.com/billbatista/acasinha-trips/member"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAddItem_SplitsEquallyAcrossMembers(t *testing.T) {
	env := ledgertest.New()
	ctx := context.Background()
	alice := env.User(t, "alice")
	bob := env.User(t, "bob")
	tr := env.Trip(t, alice.ID, "1000")
	env.Join(t, tr.ID, bob.ID)

	item, err := env.Budget.AddItem(ctx, tr.ID, bob.ID, "Food", "Lunch", dec("200"))
	require.NoError(t, err)
	assert.True(t, item.SharePerMember.Equal(dec("100")))
	assert.Equal(t, 2, item.MemberCount)

	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		m := env.Member(t, tr.ID, id)
		assert.True(t, m.CreditAmount.Equal(dec("100")), "credit %s", m.CreditAmount)
		assert.True(t, m.Balance.Equal(dec("100")), "balance %s", m.Balance)
	}
	env.RequireConsistent(t, tr.ID)

	overview, err := env.Budget.Overview(ctx, tr.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, overview.Items, 1)
	require.Len(t, overview.History, 1)
	assert.Equal(t, budget.EntryAdd, overview.History[0].Type)
	assert.True(t, overview.History[0].TotalAfter.Equal(dec("1000")))
	assert.True(t, overview.TotalBudget.Equal(dec("1000")))

	notifications, err := env.Store.Notifications().ListByUser(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, notifications)
	assert.Equal(t, notify.TypeBudgetAlert, notifications[0].Type)
	assert.Equal(t, "Food: 200.00 added (100.00 for you)", notifications[0].Message)
	assert.Contains(t, env.Events.Types(), "budget.item_added")
}

func TestAddItem_Conservation(t *testing.T) {
	env := ledgertest.New()
	ctx := context.Background()
	users := []uuid.UUID{env.User(t, "ann").ID, env.User(t, "ben").ID, env.User(t, "cat").ID}
	tr := env.Trip(t, users[0], "500")
	env.Join(t, tr.ID, users[1])
	env.Join(t, tr.ID, users[2])

	_, err := env.Budget.AddItem(ctx, tr.ID, users[0], "Stay", "Hostel", dec("100"))
	require.NoError(t, err)

	total := decimal.Zero
	for _, id := range users {
		total = total.Add(env.Member(t, tr.ID, id).CreditAmount)
	}
	assert.True(t, total.Sub(dec("100")).Abs().LessThanOrEqual(dec("0.001")), "sum of credits %s", total)
	env.RequireConsistent(t, tr.ID)
}

func TestRemoveItem_ReversesAdd(t *testing.T) {
	env := ledgertest.New()
	ctx := context.Background()
	alice := env.User(t, "alice")
	bob := env.User(t, "bob")
	carl := env.User(t, "carl")
	tr := env.Trip(t, alice.ID, "1000")
	env.Join(t, tr.ID, bob.ID)
	env.Join(t, tr.ID, carl.ID)

	_, err := env.Budget.AddItem(ctx, tr.ID, alice.ID, "Fuel", "Diesel", dec("90"))
	require.NoError(t, err)

	before := map[uuid.UUID]decimal.Decimal{}
	for _, id := range []uuid.UUID{alice.ID, bob.ID, carl.ID} {
		before[id] = env.Member(t, tr.ID, id).CreditAmount
	}

	item, err := env.Budget.AddItem(ctx, tr.ID, bob.ID, "Tickets", "Museum", dec("100"))
	require.NoError(t, err)
	require.NoError(t, env.Budget.RemoveItem(ctx, tr.ID, carl.ID, item.ID))

	for id, credit := range before {
		m := env.Member(t, tr.ID, id)
		assert.True(t, m.CreditAmount.Equal(credit), "credit %s want %s", m.CreditAmount, credit)
		assert.True(t, m.Balance.Equal(credit))
	}

	overview, err := env.Budget.Overview(ctx, tr.ID, alice.ID)
	require.NoError(t, err)
	assert.Len(t, overview.Items, 1)
	require.Len(t, overview.History, 3)
	assert.Equal(t, budget.EntryRemove, overview.History[0].Type)
	assert.Equal(t, item.ID, overview.History[0].ItemID)
}

func TestRemoveItem_LeavesLateJoinersAlone(t *testing.T) {
	env := ledgertest.New()
	ctx := context.Background()
	alice := env.User(t, "alice")
	bobby := env.User(t, "bobby")
	carla := env.User(t, "carla")
	tr := env.Trip(t, alice.ID, "1000")
	env.Join(t, tr.ID, bobby.ID)

	item, err := env.Budget.AddItem(ctx, tr.ID, alice.ID, "Food", "Groceries", dec("200"))
	require.NoError(t, err)
	env.Join(t, tr.ID, carla.ID)

	require.NoError(t, env.Budget.RemoveItem(ctx, tr.ID, alice.ID, item.ID))

	total := decimal.Zero
	for _, id := range []uuid.UUID{alice.ID, bobby.ID, carla.ID} {
		m := env.Member(t, tr.ID, id)
		assert.True(t, m.CreditAmount.IsZero(), "%s credit %s", m.Handle, m.CreditAmount)
		total = total.Add(m.CreditAmount)
	}
	assert.True(t, total.IsZero())
	env.RequireConsistent(t, tr.ID)
}

func TestBudgetErrors(t *testing.T) {
	env := ledgertest.New()
	ctx := context.Background()
	alice := env.User(t, "alice")
	outsider := env.User(t, "otto")
	tr := env.Trip(t, alice.ID, "1000")

	_, err := env.Budget.AddItem(ctx, tr.ID, outsider.ID, "Food", "Lunch", dec("10"))
	assert.ErrorIs(t, err, member.ErrNotMember)

	_, err = env.Budget.AddItem(ctx, tr.ID, alice.ID, "Food", "Lunch", dec("-1"))
	assert.ErrorIs(t, err, budget.ErrNegativeAmount)

	_, err = env.Budget.AddItem(ctx, tr.ID, alice.ID, " ", "Lunch", dec("1"))
	assert.ErrorIs(t, err, budget.ErrEmptyCategory)

	_, err = env.Budget.AddItem(ctx, tr.ID, alice.ID, "Food", "", dec("1"))
	assert.ErrorIs(t, err, budget.ErrEmptyDescription)

	err = env.Budget.RemoveItem(ctx, tr.ID, alice.ID, uuid.New())
	assert.ErrorIs(t, err, budget.ErrNotFound)

	err = env.Budget.RemoveItem(ctx, tr.ID, outsider.ID, uuid.New())
	assert.ErrorIs(t, err, member.ErrNotMember)

	_, err = env.Budget.Overview(ctx, tr.ID, outsider.ID)
	assert.ErrorIs(t, err, member.ErrNotMember)
}

func TestEqualShare(t *testing.T) {
	_, err := budget.EqualShare(dec("10"), 0)
	assert.ErrorIs(t, err, budget.ErrNoMembers)

	share, err := budget.EqualShare(dec("10"), 3)
	require.NoError(t, err)
	assert.Equal(t, "3.3333", share.String())
}
