package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dttools/internal/types"
)

// UserRepository provides data access for the users table.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository backed by the given
// database connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// userColumns defines the standard set of columns selected for user queries.
// Used consistently across all query methods to avoid column drift.
const userColumns = `u.id, u.email, u.name, u.password_hash, u.role, u.status,
	u.subscription_plan_id, u.stripe_customer_id,
	u.custom_max_projects, u.custom_ai_chat_limit,
	u.custom_max_double_diamond_projects, u.custom_max_double_diamond_exports,
	u.created_at, u.last_login_at, u.deleted_at`

// scanUser scans a single user row into a types.User struct.
// The columns must match the order defined in userColumns. Uses nullable
// scan targets for columns that may be NULL (name, password_hash,
// stripe_customer_id).
func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	var (
		name         *string
		passwordHash *string
		stripeCustID *string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&name,
		&passwordHash,
		&u.Role,
		&u.Status,
		&u.SubscriptionPlanID,
		&stripeCustID,
		&u.CustomMaxProjects,
		&u.CustomAIChatLimit,
		&u.CustomMaxDoubleDiamondProjects,
		&u.CustomMaxDoubleDiamondExports,
		&u.CreatedAt,
		&u.LastLoginAt,
		&u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if name != nil {
		u.Name = *name
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	if stripeCustID != nil {
		u.StripeCustomerID = *stripeCustID
	}
	return &u, nil
}

// GetByID retrieves a user by ID. Returns ErrCodeNotFoundUser if no active
// user is found.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 WHERE u.id = $1 AND u.deleted_at IS NULL`,
		id,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email address for the login flow.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 WHERE u.email = $1 AND u.deleted_at IS NULL`,
		email,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeAuthUserNotFound, "user not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user by email", err)
	}
	return u, nil
}

// GetByStripeCustomerID retrieves a user from a Stripe customer reference.
// Used by the webhook handler to map provider events back to an account.
func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 WHERE u.stripe_customer_id = $1 AND u.deleted_at IS NULL`,
		customerID,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "no user for stripe customer", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user by stripe customer", err)
	}
	return u, nil
}

// Create inserts a new user row. Generates an ID when the caller did not set
// one. Returns ErrCodeConflictEmail (409) on a duplicate email.
func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, role, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		user.ID,
		user.Email,
		nilIfEmpty(user.Name),
		nilIfEmpty(user.PasswordHash),
		user.Role,
		user.Status,
		nilIfZeroTime(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictEmail, "user already exists", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create user", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login_at timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET last_login_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update last login", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}

// SetPlan points the user at a subscription plan. A nil planID clears the
// reference, which downgrades the user to the free plan on next resolution.
func (r *UserRepository) SetPlan(ctx context.Context, userID string, planID *string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET subscription_plan_id = $1 WHERE id = $2 AND deleted_at IS NULL`,
		planID,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to set user plan", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}

// SetStripeCustomerID stores the Stripe customer reference after first
// checkout for a user.
func (r *UserRepository) SetStripeCustomerID(ctx context.Context, userID string, customerID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET stripe_customer_id = $1 WHERE id = $2 AND deleted_at IS NULL`,
		customerID,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to set stripe customer id", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}

// UpdateOverrides replaces the per-user limit override fields. All four are
// written every time; a nil clears the override back to plan defaults.
// Support tooling is the only caller.
func (r *UserRepository) UpdateOverrides(ctx context.Context, userID string, maxProjects, aiChatLimit, maxDDProjects, maxDDExports *int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET custom_max_projects = $1, custom_ai_chat_limit = $2,
		 custom_max_double_diamond_projects = $3, custom_max_double_diamond_exports = $4
		 WHERE id = $5 AND deleted_at IS NULL`,
		maxProjects,
		aiChatLimit,
		maxDDProjects,
		maxDDExports,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update user overrides", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}
