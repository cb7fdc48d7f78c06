package redisstore

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

const (
	fieldUserID         = "user_id"
	fieldPlan           = "plan"
	fieldPlanExp        = "plan_exp"
	fieldLimit          = "daily_builds_limit"
	fieldUsed           = "daily_builds_used"
	fieldResetAt        = "daily_builds_reset_at"
	fieldAnchor         = "billing_cycle_anchor"
	fieldRetention      = "file_retention_days"
	fieldBatch          = "batch_build_enabled"
	fieldShare          = "share_enabled"
	fieldShareDays      = "share_duration_days"
	fieldPending        = "pending_downgrade"
	fieldVersion        = "version"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"
	timestampLayout     = time.RFC3339Nano
	walletFieldCapacity = 30
)

// encode returns field/value pairs for HSET. Version and created_at are
// left out; callers add them where the write owns them.
func encode(w *wallet.Wallet) ([]any, error) {
	queue := w.PendingDowngrades
	if queue == nil {
		queue = wallet.DowngradeQueue{}
	}
	pending, err := json.Marshal(queue)
	if err != nil {
		return nil, errors.Join(wallet.ErrCorruptRecord, err)
	}

	planExp := ""
	if w.PlanExpiresAt != nil {
		planExp = w.PlanExpiresAt.UTC().Format(timestampLayout)
	}

	args := make([]any, 0, walletFieldCapacity)
	args = append(args,
		fieldUserID, w.UserID.String(),
		fieldPlan, w.Plan.String(),
		fieldPlanExp, planExp,
		fieldLimit, w.DailyLimit,
		fieldUsed, w.DailyUsed,
		fieldResetAt, w.DailyResetDate.String(),
		fieldAnchor, w.BillingAnchorDay,
		fieldRetention, w.FileRetentionDays,
		fieldBatch, boolString(w.BatchBuildEnabled),
		fieldShare, boolString(w.ShareEnabled),
		fieldShareDays, w.ShareDurationDays,
		fieldPending, string(pending),
		fieldUpdatedAt, w.UpdatedAt.UTC().Format(timestampLayout),
	)
	return args, nil
}

func decode(h map[string]string) (*wallet.Wallet, error) {
	var (
		w   wallet.Wallet
		err error
	)
	corrupt := func(cause error) (*wallet.Wallet, error) {
		return nil, errors.Join(wallet.ErrCorruptRecord, cause)
	}

	if w.UserID, err = uuid.Parse(h[fieldUserID]); err != nil {
		return corrupt(err)
	}
	if w.Plan, err = planpolicy.ParsePlan(h[fieldPlan]); err != nil {
		return corrupt(err)
	}
	if s := h[fieldPlanExp]; s != "" {
		exp, err := time.Parse(timestampLayout, s)
		if err != nil {
			return corrupt(err)
		}
		w.PlanExpiresAt = &exp
	}
	if w.DailyResetDate, err = billingclock.ParseDate(h[fieldResetAt]); err != nil {
		return corrupt(err)
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{fieldLimit, &w.DailyLimit},
		{fieldUsed, &w.DailyUsed},
		{fieldAnchor, &w.BillingAnchorDay},
		{fieldRetention, &w.FileRetentionDays},
		{fieldShareDays, &w.ShareDurationDays},
	}
	for _, f := range ints {
		if *f.dst, err = strconv.Atoi(h[f.field]); err != nil {
			return corrupt(err)
		}
	}
	if w.Version, err = strconv.ParseInt(h[fieldVersion], 10, 64); err != nil {
		return corrupt(err)
	}

	w.BatchBuildEnabled = h[fieldBatch] == "1"
	w.ShareEnabled = h[fieldShare] == "1"

	if s := h[fieldPending]; s != "" {
		if err := json.Unmarshal([]byte(s), &w.PendingDowngrades); err != nil {
			return corrupt(err)
		}
		w.PendingDowngrades = w.PendingDowngrades.Clone()
	}
	if w.CreatedAt, err = time.Parse(timestampLayout, h[fieldCreatedAt]); err != nil {
		return corrupt(err)
	}
	if w.UpdatedAt, err = time.Parse(timestampLayout, h[fieldUpdatedAt]); err != nil {
		return corrupt(err)
	}
	return &w, nil
}

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
