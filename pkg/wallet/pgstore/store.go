// Package pgstore implements wallet.Store on PostgreSQL.
//
// Consume and Refund call the consume_daily_builds and refund_daily_builds
// functions installed by the embedded migrations. Each takes a row lock,
// rolls a stale counter over and applies the change in one round trip.
// Replace is an UPDATE guarded by the version column.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/pg"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a wallet.Store over the wallets table. It is safe for concurrent
// use when DB is a pool.
type Store struct {
	db DB
}

var _ wallet.Store = (*Store)(nil)

// New returns a Store using db, usually a *pgxpool.Pool. The schema and the
// wallet functions come from Migrations. It panics when db is nil.
func New(db DB) *Store {
	if db == nil {
		panic("pgstore: nil db")
	}
	return &Store{db: db}
}

const selectWallet = `
SELECT user_id, plan, plan_exp, daily_builds_limit, daily_builds_used, daily_builds_reset_at,
       billing_cycle_anchor, file_retention_days, batch_build_enabled, share_enabled,
       share_duration_days, pending_downgrade, version, created_at, updated_at
  FROM wallets
 WHERE user_id = $1`

// Get loads the wallet of userID.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	var (
		w         wallet.Wallet
		plan      string
		resetAt   time.Time
		anchor    *int16
		downgrade []byte
	)
	err := s.db.QueryRow(ctx, selectWallet, userID).Scan(
		&w.UserID, &plan, &w.PlanExpiresAt, &w.DailyLimit, &w.DailyUsed, &resetAt,
		&anchor, &w.FileRetentionDays, &w.BatchBuildEnabled, &w.ShareEnabled,
		&w.ShareDurationDays, &downgrade, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if w.Plan, err = planpolicy.ParsePlan(plan); err != nil {
		return nil, errors.Join(wallet.ErrCorruptRecord, err)
	}
	if len(downgrade) > 0 {
		if err := json.Unmarshal(downgrade, &w.PendingDowngrades); err != nil {
			return nil, errors.Join(wallet.ErrCorruptRecord, err)
		}
		w.PendingDowngrades = w.PendingDowngrades.Clone()
	}
	w.DailyResetDate = billingclock.DateOf(resetAt, time.UTC)
	if anchor != nil {
		w.BillingAnchorDay = int(*anchor)
	}
	return &w, nil
}

const insertWallet = `
INSERT INTO wallets (
    user_id, plan, plan_exp, daily_builds_limit, daily_builds_used, daily_builds_reset_at,
    billing_cycle_anchor, file_retention_days, batch_build_enabled, share_enabled,
    share_duration_days, pending_downgrade, version, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $14)
ON CONFLICT (user_id) DO NOTHING`

// Create inserts w with version 1, or returns the existing row when the user
// already has one.
func (s *Store) Create(ctx context.Context, w *wallet.Wallet) (*wallet.Wallet, error) {
	cols, err := columnsOf(w)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(ctx, insertWallet,
		w.UserID, cols.plan, w.PlanExpiresAt, w.DailyLimit, w.DailyUsed, cols.resetAt,
		cols.anchor, w.FileRetentionDays, w.BatchBuildEnabled, w.ShareEnabled,
		w.ShareDurationDays, cols.downgrade, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return s.Get(ctx, w.UserID)
}

const replaceWallet = `
UPDATE wallets
   SET plan = $3, plan_exp = $4, daily_builds_limit = $5, daily_builds_used = $6,
       daily_builds_reset_at = $7, billing_cycle_anchor = $8, file_retention_days = $9,
       batch_build_enabled = $10, share_enabled = $11, share_duration_days = $12,
       pending_downgrade = $13, updated_at = $14, version = version + 1
 WHERE user_id = $1 AND version = $2`

// Replace is an UPDATE guarded by prev.Version. It reports false when the
// row moved on.
func (s *Store) Replace(ctx context.Context, prev, next *wallet.Wallet) (bool, error) {
	cols, err := columnsOf(next)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, replaceWallet,
		prev.UserID, prev.Version, cols.plan, next.PlanExpiresAt, next.DailyLimit, next.DailyUsed,
		cols.resetAt, cols.anchor, next.FileRetentionDays, next.BatchBuildEnabled,
		next.ShareEnabled, next.ShareDurationDays, cols.downgrade, next.UpdatedAt,
	)
	if err != nil {
		return false, mapError(err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1)`, prev.UserID).Scan(&exists); err != nil {
			return false, mapError(err)
		}
		if !exists {
			return false, wallet.ErrNotFound
		}
		return false, nil
	}
	next.Version = prev.Version + 1
	return true, nil
}

// Consume calls consume_daily_builds, which locks the row, rolls a stale
// counter over and increments it only when count fits the limit.
func (s *Store) Consume(ctx context.Context, userID uuid.UUID, count int, today billingclock.Date) (wallet.ConsumeResult, error) {
	var res wallet.ConsumeResult
	err := s.db.QueryRow(ctx,
		`SELECT allowed, used_count, limit_count FROM consume_daily_builds($1, $2, $3)`,
		userID, count, today.Time(time.UTC),
	).Scan(&res.Allowed, &res.Used, &res.Limit)
	if err != nil {
		return wallet.ConsumeResult{}, mapError(err)
	}
	return res, nil
}

// Refund calls refund_daily_builds, which saturates the counter at zero.
func (s *Store) Refund(ctx context.Context, userID uuid.UUID, count int, today billingclock.Date) (wallet.RefundResult, error) {
	var res wallet.RefundResult
	err := s.db.QueryRow(ctx,
		`SELECT previous_count, used_count FROM refund_daily_builds($1, $2, $3)`,
		userID, count, today.Time(time.UTC),
	).Scan(&res.Previous, &res.Used)
	if err != nil {
		return wallet.RefundResult{}, mapError(err)
	}
	return res, nil
}

type columns struct {
	plan      string
	resetAt   time.Time
	anchor    *int16
	downgrade []byte
}

func columnsOf(w *wallet.Wallet) (columns, error) {
	queue := w.PendingDowngrades
	if queue == nil {
		queue = wallet.DowngradeQueue{}
	}
	raw, err := json.Marshal(queue)
	if err != nil {
		return columns{}, errors.Join(wallet.ErrCorruptRecord, err)
	}

	c := columns{
		plan:      w.Plan.String(),
		resetAt:   w.DailyResetDate.Time(time.UTC),
		downgrade: raw,
	}
	if w.BillingAnchorDay > 0 {
		a := int16(w.BillingAnchorDay)
		c.anchor = &a
	}
	return c, nil
}

func mapError(err error) error {
	switch {
	case pg.IsNotFoundError(err):
		return wallet.ErrNotFound
	case errors.Is(err, context.Canceled):
		return err
	case pg.IsCheckViolationError(err):
		return errors.Join(wallet.ErrCorruptRecord, err)
	default:
		return errors.Join(wallet.ErrStoreUnavailable, err)
	}
}
