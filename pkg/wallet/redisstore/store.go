// Package redisstore implements wallet.Store on Redis.
//
// Each wallet is a hash under a configurable key prefix. Every mutation is
// a Lua script, so the rollover check and the counter update run as one
// atomic step on the server.
package redisstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

const DefaultKeyPrefix = "quotakit:wallet:"

// Client is the subset of go-redis clients the store needs.
type Client interface {
	redis.Scripter
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// Store is a wallet.Store keeping one hash per wallet. It is safe for
// concurrent use.
type Store struct {
	client Client
	prefix string
	now    func() time.Time
}

var _ wallet.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix namespaces the wallet hashes.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithNow overrides the clock used for updated_at.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Store over client. Keys default to DefaultKeyPrefix plus the
// user id. It panics when client is nil.
func New(client Client, opts ...Option) *Store {
	if client == nil {
		panic("redisstore: nil client")
	}
	s := &Store{client: client, prefix: DefaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(userID uuid.UUID) string {
	return s.prefix + userID.String()
}

// Get loads the wallet hash of userID.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	h, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, mapError(err)
	}
	if len(h) == 0 {
		return nil, wallet.ErrNotFound
	}
	return decode(h)
}

// Create writes w with version 1 unless the key already exists, then returns
// the stored wallet.
func (s *Store) Create(ctx context.Context, w *wallet.Wallet) (*wallet.Wallet, error) {
	args, err := encode(w)
	if err != nil {
		return nil, err
	}
	args = append(args,
		fieldVersion, 1,
		fieldCreatedAt, w.CreatedAt.UTC().Format(timestampLayout),
	)

	if err := createScript.Run(ctx, s.client, []string{s.key(w.UserID)}, args...).Err(); err != nil {
		return nil, mapError(err)
	}
	return s.Get(ctx, w.UserID)
}

// Replace rewrites the hash when its version still equals prev.Version.
func (s *Store) Replace(ctx context.Context, prev, next *wallet.Wallet) (bool, error) {
	fields, err := encode(next)
	if err != nil {
		return false, err
	}
	// The key and user_id always come from prev.
	fields[1] = prev.UserID.String()

	args := append([]any{strconv.FormatInt(prev.Version, 10)}, fields...)
	version, err := replaceScript.Run(ctx, s.client, []string{s.key(prev.UserID)}, args...).Int64()
	if err != nil {
		return false, mapError(err)
	}

	switch {
	case version < 0:
		return false, wallet.ErrNotFound
	case version == 0:
		return false, nil
	default:
		next.Version = version
		return true, nil
	}
}

// Consume runs the consume script: rollover, limit check and increment in
// one atomic step.
func (s *Store) Consume(ctx context.Context, userID uuid.UUID, count int, today billingclock.Date) (wallet.ConsumeResult, error) {
	vals, err := consumeScript.Run(ctx, s.client, []string{s.key(userID)},
		count, today.String(), s.now().UTC().Format(timestampLayout),
	).Int64Slice()
	if err != nil {
		return wallet.ConsumeResult{}, mapError(err)
	}
	if len(vals) != 3 {
		return wallet.ConsumeResult{}, wallet.ErrCorruptRecord
	}
	return wallet.ConsumeResult{Allowed: vals[0] == 1, Used: int(vals[1]), Limit: int(vals[2])}, nil
}

// Refund runs the refund script, saturating the counter at zero.
func (s *Store) Refund(ctx context.Context, userID uuid.UUID, count int, today billingclock.Date) (wallet.RefundResult, error) {
	vals, err := refundScript.Run(ctx, s.client, []string{s.key(userID)},
		count, today.String(), s.now().UTC().Format(timestampLayout),
	).Int64Slice()
	if err != nil {
		return wallet.RefundResult{}, mapError(err)
	}
	if len(vals) != 2 {
		return wallet.RefundResult{}, wallet.ErrCorruptRecord
	}
	return wallet.RefundResult{Previous: int(vals[0]), Used: int(vals[1])}, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, redis.Nil):
		return wallet.ErrNotFound
	case errors.Is(err, context.Canceled):
		return err
	default:
		return errors.Join(wallet.ErrStoreUnavailable, err)
	}
}
