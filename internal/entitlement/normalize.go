// Package entitlement resolves a user's effective feature limits from the
// plan catalog, per-user overrides, and active add-on grants. Resolution is
// request-scoped: every request computes its own immutable snapshot and no
// resolved value is cached or shared between requests.
package entitlement

// NormalizeLimit maps a raw numeric cap to the single unlimited
// representation. A nil or negative stored value means the cap is unlimited;
// any other value passes through unchanged (including zero, which means
// "none allowed").
//
// Applied once at the data-model boundary so downstream code never re-checks
// for missing or negative values.
func NormalizeLimit(v *int) *int {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}
