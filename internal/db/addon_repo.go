package db

import (
	"context"

	"github.com/google/uuid"

	"dttools/internal/types"
)

// AddonRepository provides data access for the user_addons table. Rows carry
// arbitrary keys; filtering to the known closed set is the resolver's job.
type AddonRepository struct {
	db DBTX
}

func NewAddonRepository(db DBTX) *AddonRepository {
	return &AddonRepository{db: db}
}

// ListActiveByUserID returns the user's currently active add-on grants:
// active flag set and either no expiry or an expiry in the future. Expiry is
// evaluated in SQL so the decision uses the database clock.
func (r *AddonRepository) ListActiveByUserID(ctx context.Context, userID string) ([]types.UserAddon, error) {
	rows, err := r.db.Query(ctx,
		`SELECT a.id, a.user_id, a.addon_key, a.active, a.activated_at, a.expires_at
		 FROM user_addons a
		 WHERE a.user_id = $1 AND a.active = TRUE
		   AND (a.expires_at IS NULL OR a.expires_at > NOW())`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list addons", err)
	}
	defer rows.Close()

	var addons []types.UserAddon
	for rows.Next() {
		var a types.UserAddon
		if err := rows.Scan(&a.ID, &a.UserID, &a.AddonKey, &a.Active, &a.ActivatedAt, &a.ExpiresAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan addon row", err)
		}
		addons = append(addons, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate addon rows", err)
	}
	return addons, nil
}

// Grant activates an add-on for a user, reusing the existing row when the
// key was granted before. Purchase webhooks may replay, so activation is
// idempotent.
func (r *AddonRepository) Grant(ctx context.Context, userID string, key types.AddonKey) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_addons (id, user_id, addon_key, active, activated_at)
		 VALUES ($1, $2, $3, TRUE, NOW())
		 ON CONFLICT (user_id, addon_key) DO UPDATE SET
		   active = TRUE, activated_at = NOW(), expires_at = NULL`,
		uuid.NewString(),
		userID,
		key,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to grant addon", err)
	}
	return nil
}

// Revoke deactivates an add-on grant. The row is kept for audit; only the
// active flag changes.
func (r *AddonRepository) Revoke(ctx context.Context, userID string, key types.AddonKey) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_addons SET active = FALSE
		 WHERE user_id = $1 AND addon_key = $2 AND active = TRUE`,
		userID,
		key,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to revoke addon", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeValidationInvalidAddon, "addon not active for user", nil)
	}
	return nil
}
