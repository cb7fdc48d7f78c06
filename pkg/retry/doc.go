// Package retry implements optimistic concurrency control for single-record
// read/modify/write cycles against stores that only offer conditional
// writes.
//
// Update runs the loop every optimistic caller needs:
//
//  1. read the current record;
//  2. compute the next state from it (or decide nothing needs to change);
//  3. commit the next state with a write that only succeeds if the record
//     still matches what was read;
//  4. if another writer won the race, back off and start over, up to a
//     bounded number of attempts.
//
// The compare predicate lives inside the commit function, so the same helper
// serves a usage counter guarded by its previous value, a document guarded by
// a version number, or anything else a store can express as "update where".
//
// Backoff between attempts is linear with jitter by default (50ms × attempt,
// ±20%), which spreads retries from many handlers hammering the same hot
// record.
//
//	next, err := retry.Update(ctx, retry.DefaultPolicy(),
//	    func(ctx context.Context) (Counter, error) { return store.Get(ctx, id) },
//	    func(c Counter) (Counter, bool, error) { c.N++; return c, true, nil },
//	    func(ctx context.Context, prev, next Counter) (bool, error) {
//	        return store.UpdateWhere(ctx, id, prev.N, next)
//	    },
//	)
//	if errors.Is(err, retry.ErrExhausted) {
//	    // every attempt lost the race
//	}
package retry
