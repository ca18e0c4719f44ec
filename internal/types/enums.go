package types

// PlanName identifies a pricing tier in the plan catalog.
type PlanName string

const (
	PlanFree       PlanName = "free"
	PlanPro        PlanName = "pro"
	PlanTeam       PlanName = "team"
	PlanEnterprise PlanName = "enterprise"
)

// AddonKey identifies a separately purchasable add-on grant.
// The set of known keys is closed; unknown keys present in storage are
// ignored by the entitlement resolver (forward-compatible no-op).
type AddonKey string

const (
	AddonDoubleDiamondPro AddonKey = "double_diamond_pro"
	AddonExportPro        AddonKey = "export_pro"
	AddonAITurbo          AddonKey = "ai_turbo"
	AddonCollabAdvanced   AddonKey = "collab_advanced"
	AddonLibraryPremium   AddonKey = "library_premium"
)

// KnownAddonKeys lists every add-on key the resolver understands.
var KnownAddonKeys = []AddonKey{
	AddonDoubleDiamondPro,
	AddonExportPro,
	AddonAITurbo,
	AddonCollabAdvanced,
	AddonLibraryPremium,
}

// IsKnownAddonKey reports whether the key belongs to the closed add-on set.
func IsKnownAddonKey(key AddonKey) bool {
	for _, k := range KnownAddonKeys {
		if k == key {
			return true
		}
	}
	return false
}

// UserRole defines authorization levels. Admins bypass every limit gate.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// UserStatus represents the account lifecycle state of a user.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusInvited UserStatus = "invited"
)

// SubscriptionStatus mirrors the payment provider's subscription state.
type SubscriptionStatus string

const (
	SubStatusActive   SubscriptionStatus = "active"
	SubStatusTrialing SubscriptionStatus = "trialing"
	SubStatusPastDue  SubscriptionStatus = "past_due"
	SubStatusCanceled SubscriptionStatus = "canceled"
	SubStatusUnpaid   SubscriptionStatus = "unpaid"
)

// ExportFormat identifies a project export format. The pdf/png/csv formats
// are gated by the resolved entitlement; markdown is available on every plan.
type ExportFormat string

const (
	FormatPDF      ExportFormat = "pdf"
	FormatPNG      ExportFormat = "png"
	FormatCSV      ExportFormat = "csv"
	FormatMarkdown ExportFormat = "markdown"
)

// ProjectStatus represents the lifecycle state of a design thinking project.
type ProjectStatus string

const (
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusArchived   ProjectStatus = "archived"
)

// DiamondPhase identifies the Double Diamond phase a project is in.
type DiamondPhase string

const (
	PhaseDiscover DiamondPhase = "discover"
	PhaseDefine   DiamondPhase = "define"
	PhaseDevelop  DiamondPhase = "develop"
	PhaseDeliver  DiamondPhase = "deliver"
)

// ExportJobStatus tracks queued binary exports (pdf/png).
type ExportJobStatus string

const (
	ExportJobQueued    ExportJobStatus = "queued"
	ExportJobCompleted ExportJobStatus = "completed"
	ExportJobFailed    ExportJobStatus = "failed"
)
