package mongostore

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

// Field names shared by documents and filters.
const (
	fieldID        = "_id"
	fieldLimit     = "daily_builds_limit"
	fieldUsed      = "daily_builds_used"
	fieldResetAt   = "daily_builds_reset_at"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"
)

type document struct {
	ID                string                    `bson:"_id"`
	Plan              string                    `bson:"plan"`
	PlanExp           *time.Time                `bson:"plan_exp,omitempty"`
	DailyLimit        int                       `bson:"daily_builds_limit"`
	DailyUsed         int                       `bson:"daily_builds_used"`
	DailyResetAt      string                    `bson:"daily_builds_reset_at"`
	BillingAnchor     int                       `bson:"billing_cycle_anchor,omitempty"`
	FileRetentionDays int                       `bson:"file_retention_days"`
	BatchBuild        bool                      `bson:"batch_build_enabled"`
	Share             bool                      `bson:"share_enabled"`
	ShareDays         int                       `bson:"share_duration_days"`
	Pending           []wallet.PendingDowngrade `bson:"pending_downgrade"`
	Version           int64                     `bson:"version"`
	CreatedAt         time.Time                 `bson:"created_at"`
	UpdatedAt         time.Time                 `bson:"updated_at"`
}

func toDocument(w *wallet.Wallet) document {
	pending := []wallet.PendingDowngrade(w.PendingDowngrades.Clone())
	if pending == nil {
		pending = []wallet.PendingDowngrade{}
	}
	return document{
		ID:                w.UserID.String(),
		Plan:              w.Plan.String(),
		PlanExp:           w.PlanExpiresAt,
		DailyLimit:        w.DailyLimit,
		DailyUsed:         w.DailyUsed,
		DailyResetAt:      w.DailyResetDate.String(),
		BillingAnchor:     w.BillingAnchorDay,
		FileRetentionDays: w.FileRetentionDays,
		BatchBuild:        w.BatchBuildEnabled,
		Share:             w.ShareEnabled,
		ShareDays:         w.ShareDurationDays,
		Pending:           pending,
		Version:           w.Version,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}
}

func (d document) toWallet() (*wallet.Wallet, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, errors.Join(wallet.ErrCorruptRecord, err)
	}
	plan, err := planpolicy.ParsePlan(d.Plan)
	if err != nil {
		return nil, errors.Join(wallet.ErrCorruptRecord, err)
	}
	reset, err := billingclock.ParseDate(d.DailyResetAt)
	if err != nil {
		return nil, errors.Join(wallet.ErrCorruptRecord, err)
	}

	return &wallet.Wallet{
		UserID:            id,
		Plan:              plan,
		PlanExpiresAt:     d.PlanExp,
		DailyLimit:        d.DailyLimit,
		DailyUsed:         d.DailyUsed,
		DailyResetDate:    reset,
		BillingAnchorDay:  d.BillingAnchor,
		FileRetentionDays: d.FileRetentionDays,
		BatchBuildEnabled: d.BatchBuild,
		ShareEnabled:      d.Share,
		ShareDurationDays: d.ShareDays,
		PendingDowngrades: wallet.DowngradeQueue(d.Pending).Clone(),
		Version:           d.Version,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

// usageDocument is the projection read by Consume and Refund.
type usageDocument struct {
	DailyLimit   int    `bson:"daily_builds_limit"`
	DailyUsed    int    `bson:"daily_builds_used"`
	DailyResetAt string `bson:"daily_builds_reset_at"`
}

func (u usageDocument) usage() (wallet.Usage, error) {
	reset, err := billingclock.ParseDate(u.DailyResetAt)
	if err != nil {
		return wallet.Usage{}, errors.Join(wallet.ErrCorruptRecord, err)
	}
	return wallet.Usage{Used: u.DailyUsed, Limit: u.DailyLimit, ResetDate: reset}, nil
}
