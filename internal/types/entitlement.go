package types

// Limits is the effective, fully-normalized limit set for one request.
// Every numeric cap uses nil as the single representation of "unlimited";
// after resolution, no consumer re-checks for negative or missing values.
type Limits struct {
	MaxProjects              *int `json:"maxProjects"`
	MaxPersonasPerProject    *int `json:"maxPersonasPerProject"`
	MaxUsersPerTeam          *int `json:"maxUsersPerTeam"`
	AIChatLimit              *int `json:"aiChatLimit"`
	LibraryArticlesCount     *int `json:"libraryArticlesCount"`
	MaxDoubleDiamondProjects *int `json:"maxDoubleDiamondProjects"`
	MaxDoubleDiamondExports  *int `json:"maxDoubleDiamondExports"`

	CanExportPDF bool `json:"canExportPDF"`
	CanExportPNG bool `json:"canExportPNG"`
	CanExportCSV bool `json:"canExportCSV"`

	CanCollaborate          bool `json:"canCollaborate"`
	HasSharedWorkspace      bool `json:"hasSharedWorkspace"`
	HasCommentsAndFeedback  bool `json:"hasCommentsAndFeedback"`
	HasPermissionManagement bool `json:"hasPermissionManagement"`
}

// CanExport reports whether the resolved limits grant the given format.
// Markdown exports are available on every plan.
func (l *Limits) CanExport(format ExportFormat) bool {
	switch format {
	case FormatPDF:
		return l.CanExportPDF
	case FormatPNG:
		return l.CanExportPNG
	case FormatCSV:
		return l.CanExportCSV
	case FormatMarkdown:
		return true
	default:
		return false
	}
}

// AddonFlags records which known add-ons are active for the request's user.
type AddonFlags struct {
	DoubleDiamondPro bool `json:"double_diamond_pro"`
	ExportPro        bool `json:"export_pro"`
	AITurbo          bool `json:"ai_turbo"`
	CollabAdvanced   bool `json:"collab_advanced"`
	LibraryPremium   bool `json:"library_premium"`
}

// Entitlement is the resolved, request-scoped combination of plan, per-user
// overrides, and add-ons. It is computed fresh for every request and never
// shared or mutated across requests.
//
// Limits is nil only on a configuration fault: no plan was resolvable at all
// (neither the active subscription's plan nor the free plan exists in the
// catalog). Gates treat that state as a 500, never as "allow".
type Entitlement struct {
	Plan         *SubscriptionPlan `json:"plan"`
	Subscription *UserSubscription `json:"subscription"`
	Limits       *Limits           `json:"limits"`
	Addons       AddonFlags        `json:"addons"`
}
