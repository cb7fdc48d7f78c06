package quota

import (
	"context"
	"errors"

	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/retry"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

// Errors returned by the Ledger. Store and policy errors are joined onto one
// of these, so callers match with errors.Is.
var (
	// ErrWalletNotFound means the user has no wallet and the operation does
	// not create one (Refund, Snapshot, RenewQuota, ScheduleDowngrade).
	ErrWalletNotFound = errors.New("quota: wallet not found")

	// ErrInvalidArgument covers a nil user id, a count outside
	// MinCount..MaxCount, an unknown plan or period and a subscription
	// change that would break the wallet invariants.
	ErrInvalidArgument = errors.New("quota: invalid argument")

	// ErrInsufficientQuota is never returned by a Ledger method. A denied
	// Consume reports Success=false and ConsumeResult.Err yields this error.
	ErrInsufficientQuota = errors.New("quota: insufficient quota")

	// ErrConcurrencyConflict means the retry budget ran out while other
	// writers kept changing the wallet.
	ErrConcurrencyConflict = errors.New("quota: concurrent update conflict")

	// ErrStoreUnavailable wraps any backend failure. The Ledger never grants
	// quota it could not record.
	ErrStoreUnavailable = errors.New("quota: store unavailable")
)

// classify maps store, retry and policy errors onto the ledger taxonomy.
// Context errors pass through so callers can tell a cancelled request apart.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrConcurrencyConflict), errors.Is(err, ErrStoreUnavailable):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, wallet.ErrNotFound):
		return errors.Join(ErrWalletNotFound, err)
	case errors.Is(err, wallet.ErrConflict), errors.Is(err, retry.ErrExhausted):
		return errors.Join(ErrConcurrencyConflict, err)
	case errors.Is(err, planpolicy.ErrUnknownPlan):
		return errors.Join(ErrInvalidArgument, err)
	default:
		return errors.Join(ErrStoreUnavailable, err)
	}
}

func invalid(msg string) error {
	return errors.Join(ErrInvalidArgument, errors.New(msg))
}
