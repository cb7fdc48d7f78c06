package quotaapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/quota"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

// Ledger is the part of *quota.Ledger the API serves.
type Ledger interface {
	Check(ctx context.Context, userID uuid.UUID, count int) (quota.CheckResult, error)
	Consume(ctx context.Context, userID uuid.UUID, count int) (quota.ConsumeResult, error)
	Refund(ctx context.Context, userID uuid.UUID, count int) (quota.RefundResult, error)
	Snapshot(ctx context.Context, userID uuid.UUID) (quota.Snapshot, error)
	UpdateSubscription(ctx context.Context, userID uuid.UUID, upd quota.SubscriptionUpdate) (*wallet.Wallet, error)
	UpgradeQuota(ctx context.Context, userID uuid.UUID, plan planpolicy.Plan, period billingclock.Period) (*wallet.Wallet, error)
	RenewQuota(ctx context.Context, userID uuid.UUID, period billingclock.Period) (*wallet.Wallet, error)
	ScheduleDowngrade(ctx context.Context, userID uuid.UUID, plan planpolicy.Plan, period billingclock.Period) (*wallet.Wallet, error)
	Today() billingclock.Date
}

var _ Ledger = (*quota.Ledger)(nil)

// Handler translates HTTP requests into Ledger calls. Create it with New
// and mount it with Routes or serve Router.
type Handler struct {
	ledger Ledger
	log    *slog.Logger
}

// Option configures a Handler in New.
type Option func(*Handler)

// WithLogger sets the logger used for failed requests. A nil logger is
// ignored.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// New panics if ledger is nil.
func New(ledger Ledger, opts ...Option) *Handler {
	if ledger == nil {
		panic("quotaapi: ledger is required")
	}
	h := &Handler{ledger: ledger, log: logger.Discard()}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(logger.Component("quotaapi"))
	return h
}

// Routes mounts the API on r.
//
//	POST /v1/quota/{userID}/check
//	POST /v1/quota/{userID}/consume
//	POST /v1/quota/{userID}/refund
//	GET  /v1/wallets/{userID}
//	PUT  /v1/subscriptions/{userID}
//	POST /v1/subscriptions/{userID}/upgrade
//	POST /v1/subscriptions/{userID}/renew
//	POST /v1/subscriptions/{userID}/downgrades
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1/quota/{userID}", func(r chi.Router) {
		r.Post("/check", h.check)
		r.Post("/consume", h.consume)
		r.Post("/refund", h.refund)
	})
	r.Get("/v1/wallets/{userID}", h.snapshot)
	r.Route("/v1/subscriptions/{userID}", func(r chi.Router) {
		r.Put("/", h.updateSubscription)
		r.Post("/upgrade", h.upgrade)
		r.Post("/renew", h.renew)
		r.Post("/downgrades", h.scheduleDowngrade)
	})
}

// Router returns a standalone chi router serving the API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

// countRequest is the body of check, consume and refund. An omitted body or
// count means one build.
type countRequest struct {
	Count *int `json:"count"`
}

func (h *Handler) countParams(r *http.Request) (uuid.UUID, int, error) {
	id, err := userIDParam(r)
	if err != nil {
		return uuid.Nil, 0, err
	}
	var req countRequest
	if err := decodeJSON(r, &req); err != nil {
		return uuid.Nil, 0, err
	}
	if req.Count == nil {
		return id, 1, nil
	}
	return id, *req.Count, nil
}

type checkResponse struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Plan      string `json:"plan"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	id, count, err := h.countParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.ledger.Check(r.Context(), id, count)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, checkResponse{
		Allowed:   res.Allowed,
		Remaining: res.Remaining,
		Limit:     res.Limit,
		Used:      res.Used,
		Plan:      res.Plan.String(),
	})
}

type consumeResponse struct {
	Success   bool   `json:"success"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Reason    string `json:"reason,omitempty"`
}

func (h *Handler) consume(w http.ResponseWriter, r *http.Request) {
	id, count, err := h.countParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.ledger.Consume(r.Context(), id, count)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := consumeResponse{
		Success:   res.Success,
		Remaining: res.Remaining,
		Limit:     res.Limit,
		Used:      res.Used,
	}
	if err := res.Err(); err != nil {
		resp.Reason = reasonOf(err)
	}
	h.ok(w, resp)
}

type refundResponse struct {
	Success bool `json:"success"`
	Used    int  `json:"used"`
	Clamped bool `json:"clamped"`
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	id, count, err := h.countParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.ledger.Refund(r.Context(), id, count)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, refundResponse{Success: res.Success, Used: res.Used, Clamped: res.Clamped})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	snap, err := h.ledger.Snapshot(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, newWalletView(snap.Wallet, snap.Today))
}
