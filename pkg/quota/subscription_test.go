package quota_test

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/quota"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

func ptr(t time.Time) *time.Time { return &t }

func (f *fixture) seedPaid(t *testing.T, plan planpolicy.Plan, exp time.Time, anchor int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	w := wallet.NewFree(id, testPlans(3)[plan], today, now.AddDate(0, -1, 0))
	w.Plan = plan
	w.PlanExpiresAt = ptr(exp)
	w.BillingAnchorDay = anchor
	w.DailyUsed = 7
	f.store.Put(w)
	return id
}

func TestUpdateSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("checkout moves free to paid", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		id := f.seed(t, 3, 2, today)
		exp := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)

		w, err := f.ledger.UpdateSubscription(ctx, id, quota.SubscriptionUpdate{Plan: planpolicy.Pro, ExpiresAt: &exp})
		require.NoError(t, err)
		assert.Equal(t, planpolicy.Pro, w.Plan)
		assert.Equal(t, exp, *w.PlanExpiresAt)
		assert.Equal(t, 31, w.BillingAnchorDay)
		assert.Equal(t, 50, w.DailyLimit)
		assert.True(t, w.BatchBuildEnabled)
		assert.True(t, w.ShareEnabled)
		assert.Zero(t, w.DailyUsed, "plan change resets usage")

		assert.Equal(t, w, f.get(t, id))
	})

	t.Run("same plan keeps usage and anchor", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		id := f.seedPaid(t, planpolicy.Pro, now.AddDate(0, 0, 10), 25)
		exp := now.AddDate(0, 1, 10)

		w, err := f.ledger.UpdateSubscription(ctx, id, quota.SubscriptionUpdate{Plan: planpolicy.Pro, ExpiresAt: &exp})
		require.NoError(t, err)
		assert.Equal(t, 7, w.DailyUsed)
		assert.Equal(t, 25, w.BillingAnchorDay)
	})

	t.Run("reset anchor", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		id := f.seedPaid(t, planpolicy.Pro, now.AddDate(0, 0, 10), 25)
		exp := time.Date(2024, 8, 3, 0, 0, 0, 0, time.UTC)

		w, err := f.ledger.UpdateSubscription(ctx, id, quota.SubscriptionUpdate{Plan: planpolicy.Pro, ExpiresAt: &exp, ResetAnchor: true})
		require.NoError(t, err)
		assert.Equal(t, 3, w.BillingAnchorDay)
	})

	t.Run("replaces the pending queue", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		exp := now.AddDate(0, 1, 0)
		queue := []wallet.PendingDowngrade{
			{TargetPlan: planpolicy.Pro, Period: billingclock.Monthly, EffectiveAt: exp},
			{TargetPlan: planpolicy.Free, EffectiveAt: exp.AddDate(0, 1, 0)},
		}

		w, err := f.ledger.UpdateSubscription(ctx, uuid.New(), quota.SubscriptionUpdate{
			Plan: planpolicy.Team, ExpiresAt: &exp, PendingDowngrades: queue,
		})
		require.NoError(t, err)
		require.Equal(t, 2, w.PendingDowngrades.Len())

		queue[0].TargetPlan = planpolicy.Team
		head, _ := w.PendingDowngrades.Peek()
		assert.Equal(t, planpolicy.Pro, head.TargetPlan, "queue is copied")
	})

	t.Run("free clears expiry", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		id := f.seedPaid(t, planpolicy.Pro, now.AddDate(0, 0, 10), 15)
		exp := now.AddDate(1, 0, 0)

		w, err := f.ledger.UpdateSubscription(ctx, id, quota.SubscriptionUpdate{Plan: planpolicy.Free, ExpiresAt: &exp})
		require.NoError(t, err)
		assert.Equal(t, planpolicy.Free, w.Plan)
		assert.Nil(t, w.PlanExpiresAt)
		assert.Equal(t, 3, w.DailyLimit)
	})

	t.Run("rejects invalid updates", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		exp := now.AddDate(0, 1, 0)

		invalid := []quota.SubscriptionUpdate{
			{Plan: planpolicy.Pro},
			{Plan: "enterprise", ExpiresAt: &exp},
			{Plan: planpolicy.Pro, ExpiresAt: &exp, PendingDowngrades: []wallet.PendingDowngrade{
				{TargetPlan: planpolicy.Free},
			}},
			{Plan: planpolicy.Pro, ExpiresAt: &exp, PendingDowngrades: []wallet.PendingDowngrade{
				{TargetPlan: planpolicy.Free, EffectiveAt: exp, Period: "weekly"},
			}},
			{Plan: planpolicy.Team, ExpiresAt: &exp, PendingDowngrades: []wallet.PendingDowngrade{
				{TargetPlan: planpolicy.Pro, EffectiveAt: exp.AddDate(0, 1, 0)},
				{TargetPlan: planpolicy.Free, EffectiveAt: exp},
			}},
		}
		for _, upd := range invalid {
			_, err := f.ledger.UpdateSubscription(ctx, uuid.New(), upd)
			assert.ErrorIs(t, err, quota.ErrInvalidArgument)
		}
		assert.Zero(t, f.store.Len())
	})

	t.Run("paid downgrade without period or expiry is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		exp := now.Add(time.Hour)
		id := f.seedPaid(t, planpolicy.Team, exp, 15)

		_, err := f.ledger.UpdateSubscription(ctx, id, quota.SubscriptionUpdate{
			Plan: planpolicy.Team, ExpiresAt: &exp,
			PendingDowngrades: []wallet.PendingDowngrade{{TargetPlan: planpolicy.Pro, EffectiveAt: exp}},
		})
		require.ErrorIs(t, err, quota.ErrInvalidArgument)

		f.clock.Advance(400 * 24 * time.Hour)
		res, err := f.ledger.Consume(ctx, id, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Limit, "team plan lapses to free")

		w := f.get(t, id)
		assert.Equal(t, planpolicy.Free, w.Plan)
		assert.Nil(t, w.PlanExpiresAt)
	})
}

func TestUpgradeQuota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("pro to team", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		id := f.seedPaid(t, planpolicy.Pro, now.AddDate(0, 0, 5), 20)
		f.store.Put(func() *wallet.Wallet {
			w := f.get(t, id)
			w.PendingDowngrades.Push(wallet.PendingDowngrade{TargetPlan: planpolicy.Free, EffectiveAt: now.AddDate(0, 0, 5)})
			return w
		}())

		w, err := f.ledger.UpgradeQuota(ctx, id, planpolicy.Team, billingclock.Quarterly)
		require.NoError(t, err)
		assert.Equal(t, planpolicy.Team, w.Plan)
		assert.Equal(t, 15, w.BillingAnchorDay, "anchor moves to today")
		assert.Equal(t, time.Date(2024, 9, 15, 12, 0, 0, 0, time.UTC), *w.PlanExpiresAt)
		assert.Zero(t, w.PendingDowngrades.Len())
		assert.Zero(t, w.DailyUsed)
		assert.Equal(t, 200, w.DailyLimit)
	})

	t.Run("free wallet upgrades", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)

		w, err := f.ledger.UpgradeQuota(ctx, uuid.New(), planpolicy.Pro, billingclock.Yearly)
		require.NoError(t, err)
		assert.Equal(t, planpolicy.Pro, w.Plan)
		assert.Equal(t, now.AddDate(1, 0, 0), *w.PlanExpiresAt)
	})

	t.Run("lower rank rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		id := f.seedPaid(t, planpolicy.Team, now.AddDate(0, 0, 5), 20)
		before := f.get(t, id)

		_, err := f.ledger.UpgradeQuota(ctx, id, planpolicy.Pro, billingclock.Monthly)
		assert.ErrorIs(t, err, quota.ErrInvalidArgument)
		assert.Equal(t, before, f.get(t, id))
	})

	t.Run("bad input", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)

		_, err := f.ledger.UpgradeQuota(ctx, uuid.New(), planpolicy.Free, billingclock.Monthly)
		assert.ErrorIs(t, err, quota.ErrInvalidArgument)
		_, err = f.ledger.UpgradeQuota(ctx, uuid.New(), planpolicy.Pro, "weekly")
		assert.ErrorIs(t, err, quota.ErrInvalidArgument)
	})
}

func TestRenewQuota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("extends from current expiry with sticky anchor", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		id := f.seedPaid(t, planpolicy.Pro, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), 31)

		w, err := f.ledger.RenewQuota(ctx, id, billingclock.Monthly)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC), *w.PlanExpiresAt)
		assert.Equal(t, 7, w.DailyUsed, "renewal keeps usage")
		assert.Equal(t, 31, w.BillingAnchorDay)
	})

	t.Run("anchor day wins over expiry day", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		id := f.seedPaid(t, planpolicy.Pro, now.AddDate(0, 0, 1), 15)
		f.clock.Set(now.AddDate(0, 0, 1).Add(-time.Second))

		w, err := f.ledger.RenewQuota(ctx, id, billingclock.Monthly)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC), *w.PlanExpiresAt)
	})

	t.Run("free wallet rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		id := f.seed(t, 3, 0, today)

		_, err := f.ledger.RenewQuota(ctx, id, billingclock.Monthly)
		assert.ErrorIs(t, err, quota.ErrInvalidArgument)
	})

	t.Run("expired wallet is free by the time it renews", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		id := f.seedPaid(t, planpolicy.Pro, now.Add(-time.Hour), 15)

		_, err := f.ledger.RenewQuota(ctx, id, billingclock.Monthly)
		assert.ErrorIs(t, err, quota.ErrInvalidArgument)
	})
}

func TestScheduleDowngrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("queues after current period and chains", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		exp := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
		id := f.seedPaid(t, planpolicy.Team, exp, 30)

		w, err := f.ledger.ScheduleDowngrade(ctx, id, planpolicy.Pro, billingclock.Monthly)
		require.NoError(t, err)
		head, ok := w.PendingDowngrades.Peek()
		require.True(t, ok)
		assert.Equal(t, exp, head.EffectiveAt)
		assert.Equal(t, time.Date(2024, 7, 30, 0, 0, 0, 0, time.UTC), *head.ExpiresAt)

		w, err = f.ledger.ScheduleDowngrade(ctx, id, planpolicy.Free, "")
		require.NoError(t, err)
		tail, _ := w.PendingDowngrades.Tail()
		assert.Equal(t, 2, w.PendingDowngrades.Len())
		assert.Equal(t, *head.ExpiresAt, tail.EffectiveAt)
		assert.Nil(t, tail.ExpiresAt)

		_, err = f.ledger.ScheduleDowngrade(ctx, id, planpolicy.Free, "")
		assert.ErrorIs(t, err, quota.ErrInvalidArgument, "nothing to follow a free entry")
	})

	t.Run("applied when due", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		exp := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
		id := f.seedPaid(t, planpolicy.Team, exp, 30)

		_, err := f.ledger.ScheduleDowngrade(ctx, id, planpolicy.Pro, billingclock.Monthly)
		require.NoError(t, err)

		f.clock.Set(exp.Add(time.Hour))
		res, err := f.ledger.Consume(ctx, id, 1)
		require.NoError(t, err)
		assert.Equal(t, 50, res.Limit)

		w := f.get(t, id)
		assert.Equal(t, planpolicy.Pro, w.Plan)
		assert.Equal(t, time.Date(2024, 7, 30, 0, 0, 0, 0, time.UTC), *w.PlanExpiresAt)
		assert.Zero(t, w.PendingDowngrades.Len())
	})

	t.Run("rejects upgrades and free wallets", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 3)
		paid := f.seedPaid(t, planpolicy.Pro, now.AddDate(0, 0, 5), 20)
		free := f.seed(t, 3, 0, today)

		_, err := f.ledger.ScheduleDowngrade(ctx, paid, planpolicy.Team, billingclock.Monthly)
		assert.ErrorIs(t, err, quota.ErrInvalidArgument)
		_, err = f.ledger.ScheduleDowngrade(ctx, paid, planpolicy.Pro, "")
		assert.ErrorIs(t, err, quota.ErrInvalidArgument)
		_, err = f.ledger.ScheduleDowngrade(ctx, free, planpolicy.Free, "")
		assert.ErrorIs(t, err, quota.ErrInvalidArgument)
	})
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, 3)

	id := f.seedPaid(t, planpolicy.Pro, now.Add(-time.Hour), 15)
	before := f.get(t, id)

	snap, err := f.ledger.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, planpolicy.Free, snap.Wallet.Plan)
	assert.Equal(t, today, snap.Today)
	assert.Zero(t, snap.Used)
	assert.Equal(t, 3, snap.Remaining)
	assert.Equal(t, before, f.get(t, id), "snapshot never writes")

	_, err = f.ledger.Snapshot(ctx, uuid.New())
	assert.ErrorIs(t, err, quota.ErrWalletNotFound)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	policy, err := planpolicy.New(context.Background(), planpolicy.NewInMemSource(testPlans(3)))
	require.NoError(t, err)

	cfg := quota.Config{Timezone: "Europe/Berlin", RetryAttempts: 2}
	l, err := quota.NewFromConfig(cfg, wallet.NewMemoryStore(), policy)
	require.NoError(t, err)
	require.NotNil(t, l)

	cfg.Timezone = "Mars/Olympus"
	_, err = quota.NewFromConfig(cfg, wallet.NewMemoryStore(), policy)
	assert.ErrorIs(t, err, quota.ErrInvalidArgument)

	p := quota.Config{RetryAttempts: 4, RetryInterval: time.Millisecond}.RetryPolicy()
	assert.Equal(t, 4, p.MaxAttempts)
}
