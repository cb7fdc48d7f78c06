// Package lifecycle applies plan transitions to a wallet in memory.
//
// Transitions are pure: they read the wallet and the time, mutate the
// wallet and report whether anything changed. Persisting the result is the
// caller's job, done by the quota ledger as one version-guarded write.
//
// # Transitions
//
//   - ApplyPendingDowngradeIfDue pops the head of the pending queue once its
//     effective time has come. A Free target clears the expiry. A paid target
//     gets a new expiry of one period after the effective time, kept on the
//     billing anchor day, or the expiry recorded with the entry when it has
//     no period. A paid entry with neither lapses at its effective time.
//     Usage resets either way.
//   - ExpireIfNeeded moves a paid plan whose expiry has passed to Free and
//     drops whatever was still queued. A Free wallet never expires.
//   - SyncPolicy copies the current plan limits into the wallet so a policy
//     change reaches wallets on their next load.
//
// Advance runs the canonical order: apply every due pending downgrade in
// FIFO order, then expire an overdue paid plan, then sync the policy.
// Downgrades go first so expiry is judged against the plan that is
// actually current. Running Advance twice at the same instant changes
// nothing the second time.
//
// Calendar arithmetic happens in the clock's location, the same reference
// timezone the ledger uses for "today".
//
// # Usage
//
//	lc := lifecycle.New(clock, policy)
//	next := w.Clone()
//	t, err := lc.Advance(next, clock.Now())
//	if err != nil {
//		return err
//	}
//	if t.Changed() {
//		// write next back with store.Replace(ctx, w, next)
//	}
package lifecycle
