package quotaapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/quota"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

type subscriptionRequest struct {
	Plan              string                    `json:"plan"`
	ExpiresAt         *time.Time                `json:"expires_at"`
	PendingDowngrades []wallet.PendingDowngrade `json:"pending_downgrades"`
	ResetAnchor       bool                      `json:"reset_anchor"`
}

type planChangeRequest struct {
	Plan   string `json:"plan"`
	Period string `json:"period"`
}

// walletView is the JSON shape of a wallet as observed on Today.
type walletView struct {
	UserID            uuid.UUID                 `json:"user_id"`
	Plan              string                    `json:"plan"`
	PlanExpiresAt     *time.Time                `json:"plan_expires_at,omitempty"`
	BillingAnchorDay  int                       `json:"billing_anchor_day,omitempty"`
	Today             billingclock.Date         `json:"today"`
	DailyLimit        int                       `json:"daily_limit"`
	DailyUsed         int                       `json:"daily_used"`
	DailyRemaining    int                       `json:"daily_remaining"`
	FileRetentionDays int                       `json:"file_retention_days"`
	BatchBuildEnabled bool                      `json:"batch_build_enabled"`
	ShareEnabled      bool                      `json:"share_enabled"`
	ShareDurationDays int                       `json:"share_duration_days"`
	PendingDowngrades []wallet.PendingDowngrade `json:"pending_downgrades"`
	Version           int64                     `json:"version"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

func newWalletView(w *wallet.Wallet, today billingclock.Date) walletView {
	queue := w.PendingDowngrades.Clone()
	if queue == nil {
		queue = wallet.DowngradeQueue{}
	}
	return walletView{
		UserID:            w.UserID,
		Plan:              w.Plan.String(),
		PlanExpiresAt:     w.PlanExpiresAt,
		BillingAnchorDay:  w.BillingAnchorDay,
		Today:             today,
		DailyLimit:        w.DailyLimit,
		DailyUsed:         w.UsedOn(today),
		DailyRemaining:    w.Remaining(today),
		FileRetentionDays: w.FileRetentionDays,
		BatchBuildEnabled: w.BatchBuildEnabled,
		ShareEnabled:      w.ShareEnabled,
		ShareDurationDays: w.ShareDurationDays,
		PendingDowngrades: queue,
		Version:           w.Version,
		UpdatedAt:         w.UpdatedAt,
	}
}

func parsePlan(s string) (planpolicy.Plan, error) {
	p, err := planpolicy.ParsePlan(s)
	if err != nil {
		return "", errors.Join(ErrInvalidArgument, errors.New("unknown plan"))
	}
	return p, nil
}

// parsePeriod treats an empty period as unset.
func parsePeriod(s string) (billingclock.Period, error) {
	if s == "" {
		return "", nil
	}
	p, err := billingclock.ParsePeriod(s)
	if err != nil {
		return "", errors.Join(ErrInvalidArgument, errors.New("unknown billing period"))
	}
	return p, nil
}

func (h *Handler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := parsePlan(req.Plan)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.ledger.UpdateSubscription(r.Context(), id, quota.SubscriptionUpdate{
		Plan:              plan,
		ExpiresAt:         req.ExpiresAt,
		PendingDowngrades: req.PendingDowngrades,
		ResetAnchor:       req.ResetAnchor,
	})
	h.respondWallet(w, r, updated, err)
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request) {
	id, req, err := h.planChangeParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := parsePlan(req.Plan)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.ledger.UpgradeQuota(r.Context(), id, plan, period)
	h.respondWallet(w, r, updated, err)
}

func (h *Handler) renew(w http.ResponseWriter, r *http.Request) {
	id, req, err := h.planChangeParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.ledger.RenewQuota(r.Context(), id, period)
	h.respondWallet(w, r, updated, err)
}

func (h *Handler) scheduleDowngrade(w http.ResponseWriter, r *http.Request) {
	id, req, err := h.planChangeParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := parsePlan(req.Plan)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.ledger.ScheduleDowngrade(r.Context(), id, plan, period)
	h.respondWallet(w, r, updated, err)
}

func (h *Handler) planChangeParams(r *http.Request) (uuid.UUID, planChangeRequest, error) {
	var req planChangeRequest
	id, err := userIDParam(r)
	if err != nil {
		return uuid.Nil, req, err
	}
	if err := decodeJSON(r, &req); err != nil {
		return uuid.Nil, req, err
	}
	return id, req, nil
}

func (h *Handler) respondWallet(w http.ResponseWriter, r *http.Request, updated *wallet.Wallet, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, newWalletView(updated, h.ledger.Today()))
}
