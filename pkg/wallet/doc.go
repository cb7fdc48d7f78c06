// Package wallet defines the per-user quota and billing record and the
// persistence contract every backing store must honour.
//
// A Wallet holds the user's plan, its expiry and billing anchor, the daily
// build counter with the calendar date it belongs to, cached copies of the
// plan limits and an ordered queue of scheduled downgrades. Wallets are
// created lazily with Free defaults and are never deleted.
//
// # Store contract
//
// Store hides two different concurrency primitives behind one interface:
//
//   - Consume and Refund are single atomic steps. The daily rollover (reset
//     the counter when the stored date is not today) and the increment or
//     decrement commit together or not at all. Stores with server-side
//     procedures (pgstore's PL/pgSQL function, redisstore's Lua script) run
//     them in one round trip, so N concurrent consumes against a limit of L
//     succeed exactly min(N, L) times. Stores limited to conditional writes
//     (mongostore) loop through retry.Update with a predicate on the
//     previously read counter; they never overshoot, and a caller that
//     loses every attempt gets ErrConflict rather than a denial.
//
//   - Replace overwrites plan state only when the stored Version still
//     equals the version that was read, and bumps it. Every write, including
//     Consume and Refund, bumps Version so a stale Replace always loses.
//
// PlanConsume and PlanRefund are the shared arithmetic all stores apply, so
// the backends cannot drift apart in how they count.
//
// MemoryStore is a mutex-guarded implementation for tests and local runs.
package wallet
