// Package billing provides the plan catalog, add-on pricing, and billing
// domain logic.
package billing

import (
	"dttools/internal/types"
)

// intp is a convenience for the catalog literals below.
func intp(v int) *int { return &v }

// DefaultPlans is the seed catalog for the four production tiers.
// These rows are inserted by cmd/seed on an empty database and are the
// single source of truth for default caps; administrators may edit the
// stored rows afterwards.
//
//	| Plan       | Projects | Personas | Team | AI Chat | Library | DD Proj | DD Exports |
//	|------------|----------|----------|------|---------|---------|---------|------------|
//	| Free       | 3        | 5        | 1    | 10      | 5       | 3       | 3          |
//	| Pro        | 25       | 20       | 1    | 100     | 50      | 25      | 50         |
//	| Team       | 100      | 50       | 10   | 500     | unlim   | 100     | 200        |
//	| Enterprise | unlim    | unlim    | unlim| unlim   | unlim   | unlim   | unlim      |
//
// Unlimited is stored as nil; the entitlement resolver also maps negative
// values to nil, so either representation in an edited row behaves the same.
func DefaultPlans() []types.SubscriptionPlan {
	return []types.SubscriptionPlan{
		{
			Name:                     string(types.PlanFree),
			DisplayName:              "Free",
			PriceCents:               0,
			MaxProjects:              intp(3),
			MaxPersonasPerProject:    intp(5),
			MaxUsersPerTeam:          intp(1),
			AIChatLimit:              intp(10),
			LibraryArticlesCount:     intp(5),
			MaxDoubleDiamondProjects: intp(3),
			MaxDoubleDiamondExports:  intp(3),
			ExportFormats:            []string{},
		},
		{
			Name:                     string(types.PlanPro),
			DisplayName:              "Pro",
			PriceCents:               1900,
			MaxProjects:              intp(25),
			MaxPersonasPerProject:    intp(20),
			MaxUsersPerTeam:          intp(1),
			AIChatLimit:              intp(100),
			LibraryArticlesCount:     intp(50),
			MaxDoubleDiamondProjects: intp(25),
			MaxDoubleDiamondExports:  intp(50),
			ExportFormats:            []string{"pdf", "png"},
		},
		{
			Name:                     string(types.PlanTeam),
			DisplayName:              "Team",
			PriceCents:               4900,
			MaxProjects:              intp(100),
			MaxPersonasPerProject:    intp(50),
			MaxUsersPerTeam:          intp(10),
			AIChatLimit:              intp(500),
			MaxDoubleDiamondProjects: intp(100),
			MaxDoubleDiamondExports:  intp(200),
			HasCollaboration:         true,
			HasSharedWorkspace:       true,
			HasCommentsAndFeedback:   true,
			ExportFormats:            []string{"pdf", "png", "csv"},
		},
		{
			Name:                    string(types.PlanEnterprise),
			DisplayName:             "Enterprise",
			PriceCents:              19900,
			HasCollaboration:        true,
			HasSharedWorkspace:      true,
			HasCommentsAndFeedback:  true,
			HasPermissionManagement: true,
			HasSso:                  true,
			HasCustomIntegrations:   true,
			Has24x7Support:          true,
			ExportFormats:           []string{"pdf", "png", "csv"},
		},
	}
}

// AddonDefinition describes a purchasable add-on: its closed key, the name
// shown at checkout, and its monthly price.
type AddonDefinition struct {
	Key         types.AddonKey `json:"key"`
	DisplayName string         `json:"displayName"`
	PriceCents  int64          `json:"priceCents"`
}

// addonCatalog holds the purchasable add-on set. Keys outside this map are
// rejected at checkout; the resolver independently ignores unknown keys read
// from storage.
var addonCatalog = map[types.AddonKey]AddonDefinition{
	types.AddonDoubleDiamondPro: {
		Key:         types.AddonDoubleDiamondPro,
		DisplayName: "Double Diamond Pro",
		PriceCents:  900,
	},
	types.AddonExportPro: {
		Key:         types.AddonExportPro,
		DisplayName: "Export Pro",
		PriceCents:  500,
	},
	types.AddonAITurbo: {
		Key:         types.AddonAITurbo,
		DisplayName: "AI Turbo",
		PriceCents:  700,
	},
	types.AddonCollabAdvanced: {
		Key:         types.AddonCollabAdvanced,
		DisplayName: "Advanced Collaboration",
		PriceCents:  600,
	},
	types.AddonLibraryPremium: {
		Key:         types.AddonLibraryPremium,
		DisplayName: "Library Premium",
		PriceCents:  400,
	},
}

// AddonByKey returns the purchasable definition for a key, or false for keys
// outside the closed set.
func AddonByKey(key types.AddonKey) (AddonDefinition, bool) {
	def, ok := addonCatalog[key]
	return def, ok
}

// Addons returns the purchasable add-on definitions in stable key order.
func Addons() []AddonDefinition {
	defs := make([]AddonDefinition, 0, len(addonCatalog))
	for _, key := range types.KnownAddonKeys {
		if def, ok := addonCatalog[key]; ok {
			defs = append(defs, def)
		}
	}
	return defs
}
