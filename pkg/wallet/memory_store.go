package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
)

// MemoryStore is an in-process Store. A single mutex makes every method
// atomic, so it behaves like the procedure-backed stores.
type MemoryStore struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*Wallet
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets: make(map[uuid.UUID]*Wallet),
		now:     time.Now,
	}
}

// Get returns a copy of the stored wallet.
func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return w.Clone(), nil
}

// Create stores a copy of w unless the user already has a wallet.
func (s *MemoryStore) Create(ctx context.Context, w *Wallet) (*Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.wallets[w.UserID]; ok {
		return existing.Clone(), nil
	}

	stored := w.Clone()
	stored.Version = 1
	s.wallets[w.UserID] = stored
	return stored.Clone(), nil
}

// Replace swaps in a copy of next when the stored version matches prev.
func (s *MemoryStore) Replace(ctx context.Context, prev, next *Wallet) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.wallets[prev.UserID]
	if !ok {
		return false, ErrNotFound
	}
	if current.Version != prev.Version {
		return false, nil
	}

	stored := next.Clone()
	stored.UserID = prev.UserID
	stored.CreatedAt = current.CreatedAt
	stored.Version = prev.Version + 1
	s.wallets[prev.UserID] = stored
	next.Version = stored.Version
	return true, nil
}

// Consume applies PlanConsume under the store lock.
func (s *MemoryStore) Consume(ctx context.Context, userID uuid.UUID, count int, today billingclock.Date) (ConsumeResult, error) {
	if err := ctx.Err(); err != nil {
		return ConsumeResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return ConsumeResult{}, ErrNotFound
	}

	next, _, allowed := PlanConsume(UsageOf(w), count, today)
	if allowed {
		w.DailyUsed = next.Used
		w.DailyResetDate = next.ResetDate
		w.Version++
		w.UpdatedAt = s.now()
	}
	return ConsumeResult{Allowed: allowed, Used: next.Used, Limit: next.Limit}, nil
}

// Refund applies PlanRefund under the store lock.
func (s *MemoryStore) Refund(ctx context.Context, userID uuid.UUID, count int, today billingclock.Date) (RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return RefundResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return RefundResult{}, ErrNotFound
	}

	next, previous := PlanRefund(UsageOf(w), count, today)
	w.DailyUsed = next.Used
	w.DailyResetDate = next.ResetDate
	w.Version++
	w.UpdatedAt = s.now()
	return RefundResult{Previous: previous, Used: next.Used}, nil
}

// Put stores w as-is, overwriting any existing wallet. It is meant for
// seeding fixtures.
func (s *MemoryStore) Put(w *Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := w.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	s.wallets[w.UserID] = stored
}

// Len returns the number of stored wallets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wallets)
}
