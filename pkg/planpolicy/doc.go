// Package planpolicy maps a subscription plan to the entitlements it grants:
// the daily build limit, how long uploaded files are retained, whether batch
// builds are allowed and how long share links stay valid.
//
// The mapping is configuration, not state. A Policy is loaded once from a
// Source (in-memory map, environment variables or a YAML file) and is then a
// pure lookup. Wallets keep cached copies of the limits for their current
// plan; the quota ledger re-syncs those copies whenever they differ from the
// policy, so a configuration change reaches existing wallets on their next
// access without a data migration.
//
// Usage:
//
//	src := planpolicy.NewYAMLSource("config/plans.yaml")
//	policy, err := planpolicy.New(ctx, src)
//	if err != nil {
//	    return err
//	}
//
//	limits, err := policy.LimitsFor(planpolicy.Pro)
package planpolicy
