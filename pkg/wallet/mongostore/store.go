// Package mongostore implements wallet.Store on MongoDB.
//
// Wallets live one per document, keyed by the user id. Replace is a
// version-guarded ReplaceOne: a zero match on the (_id, version) filter
// means another writer got there first and the caller re-reads.
//
// MongoDB offers no server-side procedure here, so Consume and Refund are
// optimistic. Each attempt reads (used, limit, reset_at), computes the next
// counter with wallet.PlanConsume or wallet.PlanRefund and issues an
// UpdateOne filtered on what it read:
//
//	same day:  { _id, limit, used: <read>, reset_at: today }
//	rollover:  { _id, limit, reset_at: { $ne: today } }
//
// A zero match means another writer won. The loop runs through
// retry.Update with the policy set by WithRetryPolicy (retry.DefaultPolicy
// unless overridden: 3 attempts, 50ms × attempt with jitter) and reports
// wallet.ErrConflict once the budget is spent. Under that budget a burst of
// concurrent consumes never overshoots the limit, but some callers may get
// ErrConflict instead of a decision; the ledger surfaces it as
// quota.ErrConcurrencyConflict and the caller may retry.
//
// Usage:
//
//	client, err := mongo.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	coll := client.Database(cfg.Database).Collection(mongostore.DefaultCollection)
//	store := mongostore.New(coll, mongostore.WithRetryPolicy(quotaCfg.RetryPolicy()))
//	res, err := store.Consume(ctx, userID, 1, clock.Today())
package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/retry"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

// DefaultCollection is the collection quotad uses when none is configured.
const DefaultCollection = "wallets"

// Store is a wallet.Store backed by one MongoDB collection. It is safe for
// concurrent use.
type Store struct {
	coll   *mongo.Collection
	policy retry.Policy
	now    func() time.Time
}

var _ wallet.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRetryPolicy bounds the optimistic Consume and Refund loops.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithNow overrides the clock used for updated_at.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Store over coll. It panics when coll is nil.
func New(coll *mongo.Collection, opts ...Option) *Store {
	if coll == nil {
		panic("mongostore: nil collection")
	}
	s := &Store{coll: coll, policy: retry.DefaultPolicy(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads the wallet of userID.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	var doc document
	if err := s.coll.FindOne(ctx, bson.M{fieldID: userID.String()}).Decode(&doc); err != nil {
		return nil, mapError(err)
	}
	return doc.toWallet()
}

// Create inserts w with version 1. When the user already has a wallet the
// stored one wins and is returned.
func (s *Store) Create(ctx context.Context, w *wallet.Wallet) (*wallet.Wallet, error) {
	doc := toDocument(w)
	doc.Version = 1
	if _, err := s.coll.InsertOne(ctx, doc); err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, mapError(err)
	}
	return s.Get(ctx, w.UserID)
}

// Replace writes next over prev when the stored version still equals
// prev.Version. It reports false when another writer got there first.
func (s *Store) Replace(ctx context.Context, prev, next *wallet.Wallet) (bool, error) {
	doc := toDocument(next)
	doc.ID = prev.UserID.String()
	doc.Version = prev.Version + 1

	res, err := s.coll.ReplaceOne(ctx, bson.M{fieldID: doc.ID, fieldVersion: prev.Version}, doc)
	if err != nil {
		return false, mapError(err)
	}
	if res.MatchedCount == 0 {
		n, err := s.coll.CountDocuments(ctx, bson.M{fieldID: doc.ID}, options.Count().SetLimit(1))
		if err != nil {
			return false, mapError(err)
		}
		if n == 0 {
			return false, wallet.ErrNotFound
		}
		return false, nil
	}
	next.Version = doc.Version
	return true, nil
}

// Consume reads the counter, applies wallet.PlanConsume and commits with a
// filter on the values it read. A denial is decided from the read and
// writes nothing.
func (s *Store) Consume(ctx context.Context, userID uuid.UUID, count int, today billingclock.Date) (wallet.ConsumeResult, error) {
	var out wallet.ConsumeResult
	_, err := retry.Update(ctx, s.policy,
		s.readUsage(userID),
		func(current wallet.Usage) (wallet.Usage, bool, error) {
			next, _, allowed := wallet.PlanConsume(current, count, today)
			out = wallet.ConsumeResult{Allowed: allowed, Used: next.Used, Limit: next.Limit}
			return next, allowed, nil
		},
		s.commitUsage(userID, today),
	)
	if err != nil {
		return wallet.ConsumeResult{}, conflictOr(err)
	}
	return out, nil
}

// Refund reads the counter, applies wallet.PlanRefund and commits the same
// way as Consume.
func (s *Store) Refund(ctx context.Context, userID uuid.UUID, count int, today billingclock.Date) (wallet.RefundResult, error) {
	var out wallet.RefundResult
	_, err := retry.Update(ctx, s.policy,
		s.readUsage(userID),
		func(current wallet.Usage) (wallet.Usage, bool, error) {
			next, previous := wallet.PlanRefund(current, count, today)
			out = wallet.RefundResult{Previous: previous, Used: next.Used}
			// A refund always writes so the rollover and version bump persist.
			return next, true, nil
		},
		s.commitUsage(userID, today),
	)
	if err != nil {
		return wallet.RefundResult{}, conflictOr(err)
	}
	return out, nil
}

var usageProjection = bson.M{fieldLimit: 1, fieldUsed: 1, fieldResetAt: 1}

func (s *Store) readUsage(userID uuid.UUID) retry.ReadFunc[wallet.Usage] {
	return func(ctx context.Context) (wallet.Usage, error) {
		var doc usageDocument
		err := s.coll.FindOne(ctx, bson.M{fieldID: userID.String()}, options.FindOne().SetProjection(usageProjection)).Decode(&doc)
		if err != nil {
			return wallet.Usage{}, mapError(err)
		}
		return doc.usage()
	}
}

// commitUsage writes next only if the counter still looks like prev. On the
// rollover branch any writer that already moved the date to today wins.
func (s *Store) commitUsage(userID uuid.UUID, today billingclock.Date) retry.CommitFunc[wallet.Usage] {
	return func(ctx context.Context, prev, next wallet.Usage) (bool, error) {
		filter := bson.M{
			fieldID:    userID.String(),
			fieldLimit: prev.Limit,
		}
		if prev.ResetDate.Equal(today) {
			filter[fieldUsed] = prev.Used
			filter[fieldResetAt] = today.String()
		} else {
			filter[fieldResetAt] = bson.M{"$ne": today.String()}
		}

		update := bson.M{
			"$set": bson.M{
				fieldUsed:      next.Used,
				fieldResetAt:   today.String(),
				fieldUpdatedAt: s.now().UTC(),
			},
			"$inc": bson.M{fieldVersion: 1},
		}

		res, err := s.coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return false, mapError(err)
		}
		return res.MatchedCount == 1, nil
	}
}

func conflictOr(err error) error {
	if errors.Is(err, retry.ErrExhausted) {
		return errors.Join(wallet.ErrConflict, err)
	}
	return err
}

func mapError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return wallet.ErrNotFound
	case errors.Is(err, wallet.ErrCorruptRecord), errors.Is(err, context.Canceled):
		return err
	default:
		return errors.Join(wallet.ErrStoreUnavailable, err)
	}
}
