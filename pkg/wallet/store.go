package wallet

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
)

// Store persists wallets. All methods honour ctx cancellation and wrap
// backend failures with ErrStoreUnavailable.
type Store interface {
	// Get loads the wallet of userID or returns ErrNotFound.
	Get(ctx context.Context, userID uuid.UUID) (*Wallet, error)

	// Create inserts w if no wallet exists for w.UserID and returns the
	// stored wallet. When a wallet already exists it is returned unchanged,
	// so concurrent creators converge on one record.
	Create(ctx context.Context, w *Wallet) (*Wallet, error)

	// Replace writes next only if the stored Version equals prev.Version.
	// On success the stored Version is prev.Version+1 and next.Version is
	// updated to match. It reports false when the version did not match and
	// returns ErrNotFound if the wallet is gone.
	Replace(ctx context.Context, prev, next *Wallet) (bool, error)

	// Consume atomically rolls over a stale counter, checks
	// used+count <= limit and increments. A denied consume writes nothing.
	Consume(ctx context.Context, userID uuid.UUID, count int, today billingclock.Date) (ConsumeResult, error)

	// Refund atomically rolls over a stale counter and decrements it,
	// saturating at zero.
	Refund(ctx context.Context, userID uuid.UUID, count int, today billingclock.Date) (RefundResult, error)
}
