package wallet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

var (
	today     = billingclock.MustParseDate("2024-06-15")
	yesterday = billingclock.MustParseDate("2024-06-14")
)

func TestPlanConsume(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		usage        wallet.Usage
		count        int
		wantUsed     int
		wantAllowed  bool
		wantRollover bool
	}{
		{"within limit", wallet.Usage{Used: 2, Limit: 5, ResetDate: today}, 2, 4, true, false},
		{"exactly at limit", wallet.Usage{Used: 4, Limit: 5, ResetDate: today}, 1, 5, true, false},
		{"over limit", wallet.Usage{Used: 5, Limit: 5, ResetDate: today}, 1, 5, false, false},
		{"stale counter rolls over then increments", wallet.Usage{Used: 5, Limit: 5, ResetDate: yesterday}, 1, 1, true, true},
		{"stale counter rolls over but request too large", wallet.Usage{Used: 5, Limit: 5, ResetDate: yesterday}, 6, 0, false, true},
		{"zero limit", wallet.Usage{Used: 0, Limit: 0, ResetDate: today}, 1, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			next, rolled, allowed := wallet.PlanConsume(tt.usage, tt.count, today)
			assert.Equal(t, tt.wantAllowed, allowed)
			assert.Equal(t, tt.wantRollover, rolled)
			assert.Equal(t, tt.wantUsed, next.Used)
			assert.Equal(t, today, next.ResetDate)
			assert.Equal(t, tt.usage.Limit, next.Limit)
		})
	}
}

func TestPlanRefund(t *testing.T) {
	t.Parallel()

	next, prev := wallet.PlanRefund(wallet.Usage{Used: 4, Limit: 5, ResetDate: today}, 3, today)
	assert.Equal(t, 1, next.Used)
	assert.Equal(t, 4, prev)

	next, prev = wallet.PlanRefund(wallet.Usage{Used: 2, Limit: 5, ResetDate: today}, 10, today)
	assert.Equal(t, 0, next.Used, "saturates at zero")
	assert.Equal(t, 2, prev)
	assert.True(t, wallet.RefundResult{Previous: prev}.Clamped(10))

	next, prev = wallet.PlanRefund(wallet.Usage{Used: 3, Limit: 5, ResetDate: yesterday}, 1, today)
	assert.Equal(t, 0, next.Used, "refund targets today's counter")
	assert.Equal(t, 0, prev)
	assert.Equal(t, today, next.ResetDate)
}

func TestConsumeResult_Remaining(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, wallet.ConsumeResult{Used: 1, Limit: 5}.Remaining())
	assert.Equal(t, 0, wallet.ConsumeResult{Used: 7, Limit: 5}.Remaining(), "never negative after a limit cut")
}
