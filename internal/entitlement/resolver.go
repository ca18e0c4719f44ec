package entitlement

import (
	"dttools/internal/types"
)

// Input carries everything a single resolution needs. The resolver itself is
// pure: callers load the rows, Resolve combines them.
type Input struct {
	User *types.User

	// Plan is the plan attached to the user's active subscription, or the
	// free plan when no subscription is active. nil means the catalog has no
	// usable plan at all, which resolves to a nil Limits (configuration
	// fault, gates fail closed).
	Plan         *types.SubscriptionPlan
	Subscription *types.UserSubscription

	// Addons are the user's add-on rows; inactive and expired rows are
	// skipped, unknown keys are ignored.
	Addons []types.UserAddon
}

// aiTurboBonus is added to a finite AI chat limit when the ai_turbo add-on is
// active. An already unlimited AI chat limit stays unlimited.
const aiTurboBonus = 300

// resolutionRule applies one layer of the precedence chain to the limits
// under construction. Rules run in declaration order; later rules win.
type resolutionRule struct {
	name  string
	apply func(in Input, l *types.Limits)
}

// rules is the full precedence chain: plan defaults first, then per-user
// overrides, then add-on grants. Adding a layer means adding a rule, not
// editing the ones before it.
var rules = []resolutionRule{
	{name: "plan-defaults", apply: applyPlanDefaults},
	{name: "user-overrides", apply: applyUserOverrides},
	{name: "addon-ai-turbo", apply: applyAITurbo},
	{name: "addon-double-diamond-pro", apply: applyDoubleDiamondPro},
	{name: "addon-library-premium", apply: applyLibraryPremium},
	{name: "addon-export-pro", apply: applyExportPro},
	{name: "addon-collab-advanced", apply: applyCollabAdvanced},
}

// Resolve computes the effective entitlement for one request. The result is
// a fresh snapshot; nothing in it aliases the inputs' cap pointers, so a
// caller mutating the returned Limits cannot corrupt the catalog.
func Resolve(in Input) *types.Entitlement {
	ent := &types.Entitlement{
		Plan:         in.Plan,
		Subscription: in.Subscription,
		Addons:       activeAddonFlags(in.Addons),
	}
	if in.Plan == nil {
		return ent
	}

	l := &types.Limits{}
	for _, r := range rules {
		r.apply(in, l)
	}
	ent.Limits = l
	return ent
}

// activeAddonFlags folds the user's add-on rows into the known-key flag set.
// Rows must be pre-filtered to currently-active grants by the loader; here we
// only guard the Active bit so a stale row cannot grant anything.
func activeAddonFlags(addons []types.UserAddon) types.AddonFlags {
	var flags types.AddonFlags
	for _, a := range addons {
		if !a.Active {
			continue
		}
		switch a.AddonKey {
		case types.AddonDoubleDiamondPro:
			flags.DoubleDiamondPro = true
		case types.AddonExportPro:
			flags.ExportPro = true
		case types.AddonAITurbo:
			flags.AITurbo = true
		case types.AddonCollabAdvanced:
			flags.CollabAdvanced = true
		case types.AddonLibraryPremium:
			flags.LibraryPremium = true
		}
	}
	return flags
}

func applyPlanDefaults(in Input, l *types.Limits) {
	p := in.Plan
	l.MaxProjects = NormalizeLimit(copyCap(p.MaxProjects))
	l.MaxPersonasPerProject = NormalizeLimit(copyCap(p.MaxPersonasPerProject))
	l.MaxUsersPerTeam = NormalizeLimit(copyCap(p.MaxUsersPerTeam))
	l.AIChatLimit = NormalizeLimit(copyCap(p.AIChatLimit))
	l.LibraryArticlesCount = NormalizeLimit(copyCap(p.LibraryArticlesCount))
	l.MaxDoubleDiamondProjects = NormalizeLimit(copyCap(p.MaxDoubleDiamondProjects))
	l.MaxDoubleDiamondExports = NormalizeLimit(copyCap(p.MaxDoubleDiamondExports))

	l.CanExportPDF = p.AllowsExportFormat(types.FormatPDF)
	l.CanExportPNG = p.AllowsExportFormat(types.FormatPNG)
	l.CanExportCSV = p.AllowsExportFormat(types.FormatCSV)

	l.CanCollaborate = p.HasCollaboration
	l.HasSharedWorkspace = p.HasSharedWorkspace
	l.HasCommentsAndFeedback = p.HasCommentsAndFeedback
	l.HasPermissionManagement = p.HasPermissionManagement
}

// applyUserOverrides layers per-user caps over the plan defaults. An override
// is only consulted when set; a negative override means the support team
// granted that user unlimited use of the field.
func applyUserOverrides(in Input, l *types.Limits) {
	u := in.User
	if u == nil {
		return
	}
	if u.CustomMaxProjects != nil {
		l.MaxProjects = NormalizeLimit(copyCap(u.CustomMaxProjects))
	}
	if u.CustomAIChatLimit != nil {
		l.AIChatLimit = NormalizeLimit(copyCap(u.CustomAIChatLimit))
	}
	if u.CustomMaxDoubleDiamondProjects != nil {
		l.MaxDoubleDiamondProjects = NormalizeLimit(copyCap(u.CustomMaxDoubleDiamondProjects))
	}
	if u.CustomMaxDoubleDiamondExports != nil {
		l.MaxDoubleDiamondExports = NormalizeLimit(copyCap(u.CustomMaxDoubleDiamondExports))
	}
}

// applyAITurbo adds the turbo bonus to a finite AI chat limit. Unlimited
// stays unlimited rather than degrading to a large finite number.
func applyAITurbo(in Input, l *types.Limits) {
	if !hasActiveAddon(in.Addons, types.AddonAITurbo) {
		return
	}
	if l.AIChatLimit == nil {
		return
	}
	bumped := *l.AIChatLimit + aiTurboBonus
	l.AIChatLimit = &bumped
}

// applyDoubleDiamondPro lifts both Double Diamond caps entirely, regardless
// of what the plan or a per-user override set.
func applyDoubleDiamondPro(in Input, l *types.Limits) {
	if !hasActiveAddon(in.Addons, types.AddonDoubleDiamondPro) {
		return
	}
	l.MaxDoubleDiamondProjects = nil
	l.MaxDoubleDiamondExports = nil
}

func applyLibraryPremium(in Input, l *types.Limits) {
	if !hasActiveAddon(in.Addons, types.AddonLibraryPremium) {
		return
	}
	l.LibraryArticlesCount = nil
}

// applyExportPro grants every gated export format on top of whatever the
// plan already allowed. double_diamond_pro bundles the same grant. Grants
// only add; a plan's own formats are never revoked by an add-on.
func applyExportPro(in Input, l *types.Limits) {
	if !hasActiveAddon(in.Addons, types.AddonExportPro) &&
		!hasActiveAddon(in.Addons, types.AddonDoubleDiamondPro) {
		return
	}
	l.CanExportPDF = true
	l.CanExportPNG = true
	l.CanExportCSV = true
}

// applyCollabAdvanced ORs in the collaboration surface. Permission
// management stays a plan-only capability.
func applyCollabAdvanced(in Input, l *types.Limits) {
	if !hasActiveAddon(in.Addons, types.AddonCollabAdvanced) {
		return
	}
	l.CanCollaborate = true
	l.HasSharedWorkspace = true
	l.HasCommentsAndFeedback = true
}

func hasActiveAddon(addons []types.UserAddon, key types.AddonKey) bool {
	for _, a := range addons {
		if a.Active && a.AddonKey == key {
			return true
		}
	}
	return false
}

// copyCap detaches a cap pointer from its source row so the resolved Limits
// never aliases catalog or user storage.
func copyCap(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
