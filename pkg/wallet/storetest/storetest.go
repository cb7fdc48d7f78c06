// Package storetest holds the behaviour every wallet.Store must show. Each
// adapter's tests call Run with a factory for a clean store.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

// Factory returns a store for one subtest.
type Factory func(t *testing.T) wallet.Store

var (
	today     = billingclock.MustParseDate("2024-06-15")
	yesterday = today.AddDays(-1)
	limits    = planpolicy.Limits{DailyLimit: 5, RetentionDays: 30, BatchBuildEnabled: true, ShareDurationDays: 7}
)

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("create then get round trips every field", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		now := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
		exp := now.AddDate(0, 1, 0)
		downExp := exp.AddDate(0, 1, 0)
		w := wallet.NewFree(uuid.New(), limits, today, now)
		w.Plan = planpolicy.Team
		w.PlanExpiresAt = &exp
		w.BillingAnchorDay = 15
		w.DailyUsed = 2
		w.PendingDowngrades.Push(wallet.PendingDowngrade{
			TargetPlan:  planpolicy.Pro,
			Period:      billingclock.Monthly,
			EffectiveAt: exp,
			ExpiresAt:   &downExp,
		})

		created, err := s.Create(ctx, w)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.Version)

		got, err := s.Get(ctx, w.UserID)
		require.NoError(t, err)
		assert.Equal(t, w.UserID, got.UserID)
		assert.Equal(t, planpolicy.Team, got.Plan)
		require.NotNil(t, got.PlanExpiresAt)
		assert.True(t, exp.Equal(*got.PlanExpiresAt))
		assert.Equal(t, 5, got.DailyLimit)
		assert.Equal(t, 2, got.DailyUsed)
		assert.Equal(t, today, got.DailyResetDate)
		assert.Equal(t, 15, got.BillingAnchorDay)
		assert.Equal(t, 30, got.FileRetentionDays)
		assert.True(t, got.BatchBuildEnabled)
		assert.True(t, got.ShareEnabled)
		assert.Equal(t, 7, got.ShareDurationDays)
		require.Equal(t, 1, got.PendingDowngrades.Len())
		head, _ := got.PendingDowngrades.Peek()
		assert.Equal(t, planpolicy.Pro, head.TargetPlan)
		assert.Equal(t, billingclock.Monthly, head.Period)
		assert.True(t, exp.Equal(head.EffectiveAt))
		require.NotNil(t, head.ExpiresAt)
		assert.True(t, downExp.Equal(*head.ExpiresAt))
	})

	t.Run("get unknown user", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), uuid.New())
		assert.ErrorIs(t, err, wallet.ErrNotFound)
	})

	t.Run("create keeps the first writer", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.New()

		_, err := s.Create(ctx, wallet.NewFree(id, limits, today, time.Now()))
		require.NoError(t, err)
		again, err := s.Create(ctx, wallet.NewFree(id, planpolicy.Limits{DailyLimit: 1}, today, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, 5, again.DailyLimit)
	})

	t.Run("replace is version guarded", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		w, err := s.Create(ctx, wallet.NewFree(uuid.New(), limits, today, time.Now()))
		require.NoError(t, err)

		next := w.Clone()
		next.Plan = planpolicy.Pro
		next.BillingAnchorDay = 3
		ok, err := s.Replace(ctx, w, next)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, w.Version+1, next.Version)

		stale := w.Clone()
		stale.Plan = planpolicy.Team
		ok, err = s.Replace(ctx, w, stale)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.Get(ctx, w.UserID)
		require.NoError(t, err)
		assert.Equal(t, planpolicy.Pro, got.Plan)
		assert.Equal(t, 3, got.BillingAnchorDay)
		assert.Equal(t, next.Version, got.Version)
	})

	t.Run("replace unknown user", func(t *testing.T) {
		s := newStore(t)
		w := wallet.NewFree(uuid.New(), limits, today, time.Now())
		w.Version = 1
		_, err := s.Replace(context.Background(), w, w.Clone())
		assert.ErrorIs(t, err, wallet.ErrNotFound)
	})

	t.Run("consume increments and bumps version", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		w, err := s.Create(ctx, wallet.NewFree(uuid.New(), limits, today, time.Now()))
		require.NoError(t, err)

		res, err := s.Consume(ctx, w.UserID, 3, today)
		require.NoError(t, err)
		assert.Equal(t, wallet.ConsumeResult{Allowed: true, Used: 3, Limit: 5}, res)

		got, err := s.Get(ctx, w.UserID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.DailyUsed)
		assert.Greater(t, got.Version, w.Version)

		ok, err := s.Replace(ctx, w, w.Clone())
		require.NoError(t, err)
		assert.False(t, ok, "consume must invalidate earlier reads")
	})

	t.Run("consume denies over limit without writing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		w, err := s.Create(ctx, wallet.NewFree(uuid.New(), limits, today, time.Now()))
		require.NoError(t, err)

		res, err := s.Consume(ctx, w.UserID, 6, today)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Used)

		got, err := s.Get(ctx, w.UserID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.DailyUsed)
		assert.Equal(t, w.Version, got.Version)
	})

	t.Run("consume rolls a stale counter over", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		w := wallet.NewFree(uuid.New(), limits, yesterday, time.Now())
		w.DailyUsed = 5
		_, err := s.Create(ctx, w)
		require.NoError(t, err)

		res, err := s.Consume(ctx, w.UserID, 1, today)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1, res.Used)

		got, err := s.Get(ctx, w.UserID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.DailyUsed)
		assert.Equal(t, today, got.DailyResetDate)
	})

	t.Run("consume unknown user", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Consume(context.Background(), uuid.New(), 1, today)
		assert.ErrorIs(t, err, wallet.ErrNotFound)
	})

	t.Run("refund saturates and rolls over", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		w, err := s.Create(ctx, wallet.NewFree(uuid.New(), limits, today, time.Now()))
		require.NoError(t, err)

		_, err = s.Consume(ctx, w.UserID, 2, today)
		require.NoError(t, err)

		res, err := s.Refund(ctx, w.UserID, 5, today)
		require.NoError(t, err)
		assert.Equal(t, wallet.RefundResult{Previous: 2, Used: 0}, res)

		_, err = s.Consume(ctx, w.UserID, 4, today)
		require.NoError(t, err)
		res, err = s.Refund(ctx, w.UserID, 1, today.AddDays(1))
		require.NoError(t, err)
		assert.Equal(t, wallet.RefundResult{Previous: 0, Used: 0}, res)

		got, err := s.Get(ctx, w.UserID)
		require.NoError(t, err)
		assert.Equal(t, today.AddDays(1), got.DailyResetDate)
	})

	t.Run("concurrent refunds and consumes stay within bounds", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping concurrency test in short mode")
		}
		s := newStore(t)
		ctx := context.Background()
		w := wallet.NewFree(uuid.New(), limits, today, time.Now())
		w.DailyUsed = 5
		_, err := s.Create(ctx, w)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				if _, err := s.Refund(ctx, w.UserID, 1, today); err != nil {
					assert.ErrorIs(t, err, wallet.ErrConflict)
				}
			}()
			go func() {
				defer wg.Done()
				if _, err := s.Consume(ctx, w.UserID, 1, today); err != nil {
					assert.ErrorIs(t, err, wallet.ErrConflict)
				}
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, w.UserID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.DailyUsed, 0)
		assert.LessOrEqual(t, got.DailyUsed, limits.DailyLimit)
	})

	t.Run("refund unknown user", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Refund(context.Background(), uuid.New(), 1, today)
		assert.ErrorIs(t, err, wallet.ErrNotFound)
	})

	t.Run("concurrent consume allows exactly the limit", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping concurrency test in short mode")
		}
		s := newStore(t)
		ctx := context.Background()
		w, err := s.Create(ctx, wallet.NewFree(uuid.New(), limits, today, time.Now()))
		require.NoError(t, err)

		// Four times the limit, every worker asking for one build.
		const workers = 20
		var allowed, denied, conflicted atomic.Int32
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := s.Consume(ctx, w.UserID, 1, today)
				switch {
				case errors.Is(err, wallet.ErrConflict):
					conflicted.Add(1)
				case err != nil:
					t.Errorf("consume: %v", err)
				case res.Allowed:
					allowed.Add(1)
				default:
					denied.Add(1)
				}
			}()
		}
		wg.Wait()

		burst := int(allowed.Load())
		assert.LessOrEqual(t, burst, limits.DailyLimit)
		if denied.Load() > 0 || conflicted.Load() == 0 {
			// A denial is only decided once the capacity is gone. Stores
			// with a single atomic step never report a conflict.
			assert.Equal(t, limits.DailyLimit, burst)
		}

		got, err := s.Get(ctx, w.UserID)
		require.NoError(t, err)
		assert.Equal(t, burst, got.DailyUsed, "every allowed consume is recorded exactly once")

		// Capacity a conflicted caller gave up is still there for the next one.
		total := burst
		for {
			res, err := s.Consume(ctx, w.UserID, 1, today)
			require.NoError(t, err)
			if !res.Allowed {
				break
			}
			total++
		}
		assert.Equal(t, limits.DailyLimit, total)
	})
}
