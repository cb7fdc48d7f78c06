// Package quota is the daily build quota ledger.
//
// A Ledger answers three questions for the build dispatcher: may this user
// start count builds (Check), reserve them (Consume) and give them back
// after a failure (Refund). It also applies the plan changes reported by the
// payment side: UpdateSubscription, UpgradeQuota, RenewQuota and
// ScheduleDowngrade. Snapshot returns the wallet as the next call would see
// it.
//
// # Architecture
//
// The Ledger keeps no state between calls. Every mutating operation first
// reconciles the wallet: due downgrades, expiry and policy changes are
// applied in memory by pkg/lifecycle and written back with a single
// version-guarded Replace, retried through retry.Update when another writer
// gets there first. The accounting step that follows is delegated to the
// store's atomic Consume or Refund, so the daily rollover and the counter
// change always commit together. Any number of processes may share one
// store.
//
// Check and Snapshot never write. They run the same lifecycle and rollover
// logic on a copy so their numbers match what the next Consume would see.
//
// "Today" is the calendar date in the reference timezone of the Ledger's
// clock (QUOTA_TIMEZONE, UTC by default). A counter recorded on an earlier
// day reads as zero and is reset by the next write.
//
// # Usage
//
//	var cfg quota.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	ledger, err := quota.NewFromConfig(cfg, store, policy,
//		quota.WithLogger(log),
//		quota.WithObserver(metrics),
//	)
//	if err != nil {
//		return err
//	}
//
//	res, err := ledger.Consume(ctx, userID, 1)
//	switch {
//	case err != nil:
//		// fail closed: do not start the build
//	case !res.Success:
//		// out of builds for today, res.Limit tells the user why
//	default:
//		// start the build; call ledger.Refund(ctx, userID, 1) if it fails
//	}
//
// # Errors
//
// Running out of quota is not an error: Consume returns Success=false with
// a nil error, and ConsumeResult.Err maps that to ErrInsufficientQuota for
// callers that prefer errors.Is. Errors are reserved for bad input
// (ErrInvalidArgument), unknown wallets (ErrWalletNotFound), exhausted
// retries (ErrConcurrencyConflict) and backend failures
// (ErrStoreUnavailable). Context errors pass through unwrapped.
//
// Refund never fails because it asks for too much. It clamps at zero and
// logs a warning so a lost refund cannot leak quota.
package quota
