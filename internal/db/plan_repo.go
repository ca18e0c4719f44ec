package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dttools/internal/types"
)

// PlanRepository provides data access for the subscription_plans table.
// The stored rows are the live catalog; billing.DefaultPlans seeds them.
type PlanRepository struct {
	db DBTX
}

// NewPlanRepository creates a PlanRepository backed by the given database
// connection (pool or transaction).
func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

// planColumns is the standard column set for plan queries. Used consistently
// across all query methods to avoid column drift.
const planColumns = `p.id, p.name, p.display_name, p.price_cents,
	p.max_projects, p.max_personas_per_project, p.max_users_per_team,
	p.ai_chat_limit, p.library_articles_count,
	p.max_double_diamond_projects, p.max_double_diamond_exports,
	p.has_collaboration, p.has_shared_workspace, p.has_comments_and_feedback,
	p.has_permission_management, p.has_sso, p.has_custom_integrations,
	p.has_24x7_support, p.export_formats, p.created_at, p.updated_at`

// scanPlan scans a single plan row. The columns must match the order defined
// in planColumns. Numeric caps stay raw here; normalization belongs to the
// entitlement resolver, not the storage layer.
func scanPlan(row pgx.Row) (*types.SubscriptionPlan, error) {
	var p types.SubscriptionPlan
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.DisplayName,
		&p.PriceCents,
		&p.MaxProjects,
		&p.MaxPersonasPerProject,
		&p.MaxUsersPerTeam,
		&p.AIChatLimit,
		&p.LibraryArticlesCount,
		&p.MaxDoubleDiamondProjects,
		&p.MaxDoubleDiamondExports,
		&p.HasCollaboration,
		&p.HasSharedWorkspace,
		&p.HasCommentsAndFeedback,
		&p.HasPermissionManagement,
		&p.HasSso,
		&p.HasCustomIntegrations,
		&p.Has24x7Support,
		&p.ExportFormats,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.ExportFormats == nil {
		p.ExportFormats = []string{}
	}
	return &p, nil
}

// GetByID retrieves a plan by its ID.
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*types.SubscriptionPlan, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+planColumns+`
		 FROM subscription_plans p
		 WHERE p.id = $1`,
		id,
	)

	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPlan, "plan not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve plan", err)
	}
	return p, nil
}

// GetByName retrieves a plan by its unique tier name (free, pro, team,
// enterprise). The resolver uses this for the free-plan fallback.
func (r *PlanRepository) GetByName(ctx context.Context, name types.PlanName) (*types.SubscriptionPlan, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+planColumns+`
		 FROM subscription_plans p
		 WHERE p.name = $1`,
		string(name),
	)

	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPlan, "plan not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve plan by name", err)
	}
	return p, nil
}

// List returns every plan ordered by price, cheapest first.
func (r *PlanRepository) List(ctx context.Context) ([]*types.SubscriptionPlan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+planColumns+`
		 FROM subscription_plans p
		 ORDER BY p.price_cents ASC, p.name ASC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list plans", err)
	}
	defer rows.Close()

	var plans []*types.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan plan row", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate plan rows", err)
	}
	return plans, nil
}

// Create inserts a new plan. Generates an ID when the caller did not set one.
// Returns ErrCodeConflictPlan if a plan with the same name already exists.
func (r *PlanRepository) Create(ctx context.Context, plan *types.SubscriptionPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO subscription_plans (id, name, display_name, price_cents,
		 max_projects, max_personas_per_project, max_users_per_team,
		 ai_chat_limit, library_articles_count,
		 max_double_diamond_projects, max_double_diamond_exports,
		 has_collaboration, has_shared_workspace, has_comments_and_feedback,
		 has_permission_management, has_sso, has_custom_integrations,
		 has_24x7_support, export_formats, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		         $15, $16, $17, $18, $19, COALESCE($20, NOW()), NOW())`,
		plan.ID,
		plan.Name,
		plan.DisplayName,
		plan.PriceCents,
		plan.MaxProjects,
		plan.MaxPersonasPerProject,
		plan.MaxUsersPerTeam,
		plan.AIChatLimit,
		plan.LibraryArticlesCount,
		plan.MaxDoubleDiamondProjects,
		plan.MaxDoubleDiamondExports,
		plan.HasCollaboration,
		plan.HasSharedWorkspace,
		plan.HasCommentsAndFeedback,
		plan.HasPermissionManagement,
		plan.HasSso,
		plan.HasCustomIntegrations,
		plan.Has24x7Support,
		plan.ExportFormats,
		nilIfZeroTime(plan.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictPlan, "plan name already exists", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create plan", err)
	}
	return nil
}

// Update applies changes to all mutable plan fields.
func (r *PlanRepository) Update(ctx context.Context, plan *types.SubscriptionPlan) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscription_plans SET display_name = $1, price_cents = $2,
		 max_projects = $3, max_personas_per_project = $4, max_users_per_team = $5,
		 ai_chat_limit = $6, library_articles_count = $7,
		 max_double_diamond_projects = $8, max_double_diamond_exports = $9,
		 has_collaboration = $10, has_shared_workspace = $11,
		 has_comments_and_feedback = $12, has_permission_management = $13,
		 has_sso = $14, has_custom_integrations = $15, has_24x7_support = $16,
		 export_formats = $17, updated_at = NOW()
		 WHERE id = $18`,
		plan.DisplayName,
		plan.PriceCents,
		plan.MaxProjects,
		plan.MaxPersonasPerProject,
		plan.MaxUsersPerTeam,
		plan.AIChatLimit,
		plan.LibraryArticlesCount,
		plan.MaxDoubleDiamondProjects,
		plan.MaxDoubleDiamondExports,
		plan.HasCollaboration,
		plan.HasSharedWorkspace,
		plan.HasCommentsAndFeedback,
		plan.HasPermissionManagement,
		plan.HasSso,
		plan.HasCustomIntegrations,
		plan.Has24x7Support,
		plan.ExportFormats,
		plan.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update plan", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPlan, "plan not found", nil)
	}
	return nil
}

// SeedDefaults inserts any default plans that are not yet present, keyed by
// name. Existing rows are left untouched so admin edits survive reseeding.
func (r *PlanRepository) SeedDefaults(ctx context.Context, plans []types.SubscriptionPlan, now time.Time) (int, error) {
	inserted := 0
	for i := range plans {
		p := plans[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		tag, err := r.db.Exec(ctx,
			`INSERT INTO subscription_plans (id, name, display_name, price_cents,
			 max_projects, max_personas_per_project, max_users_per_team,
			 ai_chat_limit, library_articles_count,
			 max_double_diamond_projects, max_double_diamond_exports,
			 has_collaboration, has_shared_workspace, has_comments_and_feedback,
			 has_permission_management, has_sso, has_custom_integrations,
			 has_24x7_support, export_formats, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			         $15, $16, $17, $18, $19, $20, $20)
			 ON CONFLICT (name) DO NOTHING`,
			p.ID, p.Name, p.DisplayName, p.PriceCents,
			p.MaxProjects, p.MaxPersonasPerProject, p.MaxUsersPerTeam,
			p.AIChatLimit, p.LibraryArticlesCount,
			p.MaxDoubleDiamondProjects, p.MaxDoubleDiamondExports,
			p.HasCollaboration, p.HasSharedWorkspace, p.HasCommentsAndFeedback,
			p.HasPermissionManagement, p.HasSso, p.HasCustomIntegrations,
			p.Has24x7Support, p.ExportFormats, now,
		)
		if err != nil {
			return inserted, types.NewAppError(types.ErrCodeInternalDB, "failed to seed plan", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
