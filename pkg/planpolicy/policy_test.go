package planpolicy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
)

func testPlans() map[planpolicy.Plan]planpolicy.Limits {
	return map[planpolicy.Plan]planpolicy.Limits{
		planpolicy.Free: {DailyLimit: 3, RetentionDays: 3},
		planpolicy.Pro:  {DailyLimit: 50, RetentionDays: 30, BatchBuildEnabled: true, ShareDurationDays: 7},
		planpolicy.Team: {DailyLimit: 200, RetentionDays: 90, BatchBuildEnabled: true, ShareDurationDays: 30},
	}
}

type failingSource struct{ err error }

func (s failingSource) Load(context.Context) (map[planpolicy.Plan]planpolicy.Limits, error) {
	return nil, s.err
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid table", func(t *testing.T) {
		t.Parallel()

		policy, err := planpolicy.New(context.Background(), planpolicy.NewInMemSource(testPlans()))
		require.NoError(t, err)

		limits, err := policy.LimitsFor(planpolicy.Pro)
		require.NoError(t, err)
		assert.Equal(t, 50, limits.DailyLimit)
		assert.True(t, limits.BatchBuildEnabled)
		assert.True(t, limits.ShareEnabled())
	})

	t.Run("free plan is required", func(t *testing.T) {
		t.Parallel()

		plans := testPlans()
		delete(plans, planpolicy.Free)

		_, err := planpolicy.New(context.Background(), planpolicy.NewInMemSource(plans))
		assert.ErrorIs(t, err, planpolicy.ErrInvalidPolicy)
	})

	t.Run("negative limits rejected", func(t *testing.T) {
		t.Parallel()

		plans := testPlans()
		plans[planpolicy.Pro] = planpolicy.Limits{DailyLimit: -1}

		_, err := planpolicy.New(context.Background(), planpolicy.NewInMemSource(plans))
		assert.ErrorIs(t, err, planpolicy.ErrInvalidPolicy)
	})

	t.Run("source error", func(t *testing.T) {
		t.Parallel()

		_, err := planpolicy.New(context.Background(), failingSource{err: errors.New("boom")})
		assert.ErrorIs(t, err, planpolicy.ErrFailedToLoadPolicy)
	})

	t.Run("unknown plan lookup", func(t *testing.T) {
		t.Parallel()

		plans := testPlans()
		delete(plans, planpolicy.Team)
		policy, err := planpolicy.New(context.Background(), planpolicy.NewInMemSource(plans))
		require.NoError(t, err)

		_, err = policy.LimitsFor(planpolicy.Team)
		assert.ErrorIs(t, err, planpolicy.ErrUnknownPlan)
	})
}

func TestInMemSource_IsolatedFromCaller(t *testing.T) {
	t.Parallel()

	plans := testPlans()
	src := planpolicy.NewInMemSource(plans)
	plans[planpolicy.Free] = planpolicy.Limits{DailyLimit: 999}

	loaded, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, loaded[planpolicy.Free].DailyLimit)
}

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "plans.yaml")
	doc := `
plans:
  free: {daily_limit: 5, retention_days: 1}
  Pro:
    daily_limit: 40
    retention_days: 14
    batch_build: true
    share_days: 3
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	policy, err := planpolicy.New(context.Background(), planpolicy.NewYAMLSource(path))
	require.NoError(t, err)

	free, err := policy.LimitsFor(planpolicy.Free)
	require.NoError(t, err)
	assert.Equal(t, planpolicy.Limits{DailyLimit: 5, RetentionDays: 1}, free)

	pro, err := policy.LimitsFor(planpolicy.Pro)
	require.NoError(t, err)
	assert.Equal(t, 40, pro.DailyLimit)
	assert.Equal(t, 3, pro.ShareDurationDays)

	t.Run("unknown plan name", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("plans:\n  gold: {daily_limit: 1}\n"), 0o600))

		_, err := planpolicy.New(context.Background(), planpolicy.NewYAMLSource(bad))
		assert.ErrorIs(t, err, planpolicy.ErrInvalidPolicy)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := planpolicy.New(context.Background(), planpolicy.NewYAMLSource(filepath.Join(dir, "nope.yaml")))
		assert.ErrorIs(t, err, planpolicy.ErrFailedToLoadPolicy)
	})
}

func TestEnvConfig_Plans(t *testing.T) {
	t.Parallel()

	cfg := planpolicy.EnvConfig{
		FreeDailyLimit: 2,
		ProDailyLimit:  20,
		ProShareDays:   7,
		TeamDailyLimit: 100,
	}
	plans := cfg.Plans()

	assert.Len(t, plans, 3)
	assert.Equal(t, 2, plans[planpolicy.Free].DailyLimit)
	assert.True(t, plans[planpolicy.Pro].ShareEnabled())
	assert.False(t, plans[planpolicy.Team].ShareEnabled())
}

func TestPlan(t *testing.T) {
	t.Parallel()

	p, err := planpolicy.ParsePlan(" TEAM ")
	require.NoError(t, err)
	assert.Equal(t, planpolicy.Team, p)

	_, err = planpolicy.ParsePlan("platinum")
	assert.ErrorIs(t, err, planpolicy.ErrUnknownPlan)

	assert.Less(t, planpolicy.Free.Rank(), planpolicy.Pro.Rank())
	assert.Less(t, planpolicy.Pro.Rank(), planpolicy.Team.Rank())
	assert.False(t, planpolicy.Free.IsPaid())
	assert.True(t, planpolicy.Pro.IsPaid())
}
