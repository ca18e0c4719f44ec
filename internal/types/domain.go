package types

import "time"

// SubscriptionPlan is a named pricing tier with default feature caps.
// Numeric caps use *int where nil means "no value stored"; the entitlement
// resolver normalizes nil and negative values to the single unlimited
// representation. Plans are created and edited by administrators and are
// read-only to the resolver.
type SubscriptionPlan struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	DisplayName string `json:"displayName" db:"display_name"`
	PriceCents  int64  `json:"priceCents" db:"price_cents"`

	// Numeric caps. nil or negative means unlimited after normalization.
	MaxProjects              *int `json:"maxProjects" db:"max_projects"`
	MaxPersonasPerProject    *int `json:"maxPersonasPerProject" db:"max_personas_per_project"`
	MaxUsersPerTeam          *int `json:"maxUsersPerTeam" db:"max_users_per_team"`
	AIChatLimit              *int `json:"aiChatLimit" db:"ai_chat_limit"`
	LibraryArticlesCount     *int `json:"libraryArticlesCount" db:"library_articles_count"`
	MaxDoubleDiamondProjects *int `json:"maxDoubleDiamondProjects" db:"max_double_diamond_projects"`
	MaxDoubleDiamondExports  *int `json:"maxDoubleDiamondExports" db:"max_double_diamond_exports"`

	// Capability flags.
	HasCollaboration        bool `json:"hasCollaboration" db:"has_collaboration"`
	HasSharedWorkspace      bool `json:"hasSharedWorkspace" db:"has_shared_workspace"`
	HasCommentsAndFeedback  bool `json:"hasCommentsAndFeedback" db:"has_comments_and_feedback"`
	HasPermissionManagement bool `json:"hasPermissionManagement" db:"has_permission_management"`
	HasSso                  bool `json:"hasSso" db:"has_sso"`
	HasCustomIntegrations   bool `json:"hasCustomIntegrations" db:"has_custom_integrations"`
	Has24x7Support          bool `json:"has24x7Support" db:"has_24x7_support"`

	// ExportFormats lists the format tags the plan grants (pdf, png, csv).
	ExportFormats []string `json:"exportFormats" db:"export_formats"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// AllowsExportFormat reports whether the plan's exportFormats set contains
// the given tag. Add-on grants are layered on top by the resolver.
func (p *SubscriptionPlan) AllowsExportFormat(format ExportFormat) bool {
	for _, f := range p.ExportFormats {
		if f == string(format) {
			return true
		}
	}
	return false
}

// User is a DTTools account. The Custom* override fields, when present and
// non-negative, take precedence over the plan limits for that field.
type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`

	SubscriptionPlanID *string `json:"subscriptionPlanId,omitempty" db:"subscription_plan_id"`
	StripeCustomerID   string  `json:"-" db:"stripe_customer_id"`

	// Per-user limit overrides, set by support/admin tooling.
	CustomMaxProjects              *int `json:"customMaxProjects,omitempty" db:"custom_max_projects"`
	CustomAIChatLimit              *int `json:"customAiChatLimit,omitempty" db:"custom_ai_chat_limit"`
	CustomMaxDoubleDiamondProjects *int `json:"customMaxDoubleDiamondProjects,omitempty" db:"custom_max_double_diamond_projects"`
	CustomMaxDoubleDiamondExports  *int `json:"customMaxDoubleDiamondExports,omitempty" db:"custom_max_double_diamond_exports"`

	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	DeletedAt   *time.Time `json:"-" db:"deleted_at"`
}

// IsAdmin reports whether the user bypasses every limit gate.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserSubscription links a user to an active SubscriptionPlan.
// Absence of a subscription implies the free plan.
type UserSubscription struct {
	ID                   string             `json:"id" db:"id"`
	UserID               string             `json:"userId" db:"user_id"`
	PlanID               string             `json:"planId" db:"plan_id"`
	Status               SubscriptionStatus `json:"status" db:"status"`
	StripeSubscriptionID string             `json:"-" db:"stripe_subscription_id"`
	CurrentPeriodEnd     *time.Time         `json:"currentPeriodEnd,omitempty" db:"current_period_end"`
	CreatedAt            time.Time          `json:"createdAt" db:"created_at"`
	CanceledAt           *time.Time         `json:"canceledAt,omitempty" db:"canceled_at"`
}

// UserAddon is an active add-on grant for a user, keyed by AddonKey.
type UserAddon struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	AddonKey    AddonKey   `json:"addonKey" db:"addon_key"`
	Active      bool       `json:"active" db:"active"`
	ActivatedAt time.Time  `json:"activatedAt" db:"activated_at"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
}

// Project is a design thinking project moving through the five phases
// (empathize, define, ideate, prototype, test).
type Project struct {
	ID             string        `json:"id" db:"id"`
	UserID         string        `json:"userId" db:"user_id"`
	Name           string        `json:"name" db:"name"`
	Description    string        `json:"description,omitempty" db:"description"`
	Status         ProjectStatus `json:"status" db:"status"`
	CurrentPhase   int           `json:"currentPhase" db:"current_phase"`
	CompletionRate int           `json:"completionRate" db:"completion_rate"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
}

// Persona is an empathize-phase artifact describing a user archetype.
type Persona struct {
	ID           string    `json:"id" db:"id"`
	ProjectID    string    `json:"projectId" db:"project_id"`
	Name         string    `json:"name" db:"name"`
	Age          int       `json:"age" db:"age"`
	Occupation   string    `json:"occupation" db:"occupation"`
	Bio          string    `json:"bio,omitempty" db:"bio"`
	Goals        []string  `json:"goals" db:"goals"`
	Frustrations []string  `json:"frustrations" db:"frustrations"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// DoubleDiamondProject is a project run through the Double Diamond
// methodology. Creation and export are limit-gated separately from
// regular projects.
type DoubleDiamondProject struct {
	ID          string       `json:"id" db:"id"`
	UserID      string       `json:"userId" db:"user_id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description,omitempty" db:"description"`
	Phase       DiamondPhase `json:"phase" db:"phase"`
	ExportCount int          `json:"exportCount" db:"export_count"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

// ProjectInvite is a pending team invitation on a project.
// The raw token is returned once at creation; only its hash is stored.
type ProjectInvite struct {
	ID         string     `json:"id" db:"id"`
	ProjectID  string     `json:"projectId" db:"project_id"`
	Email      string     `json:"email" db:"email"`
	Role       string     `json:"role" db:"role"`
	TokenHash  string     `json:"-" db:"token_hash"`
	ExpiresAt  time.Time  `json:"expiresAt" db:"expires_at"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty" db:"accepted_at"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// ExportJob records a queued binary export (pdf/png). CSV and Markdown are
// rendered inline and never create jobs.
type ExportJob struct {
	ID        string          `json:"id" db:"id"`
	ProjectID string          `json:"projectId" db:"project_id"`
	UserID    string          `json:"userId" db:"user_id"`
	Format    ExportFormat    `json:"format" db:"format"`
	Status    ExportJobStatus `json:"status" db:"status"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// Session is an authenticated user session; the opaque token is stored hashed.
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"userId" db:"user_id"`
	TokenHash      string    `json:"-" db:"token_hash"`
	UserAgent      string    `json:"userAgent" db:"user_agent"`
	IPAddress      string    `json:"ipAddress" db:"ip_address"`
	ExpiresAt      time.Time `json:"expiresAt" db:"expires_at"`
	LastActivityAt time.Time `json:"lastActivityAt" db:"last_activity_at"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
