package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dttools/internal/types"
)

// InviteRepository provides data access for the project_invites table.
// Only token hashes are stored; the raw token leaves the system once, in the
// invitation email.
type InviteRepository struct {
	db DBTX
}

func NewInviteRepository(db DBTX) *InviteRepository {
	return &InviteRepository{db: db}
}

const inviteColumns = `i.id, i.project_id, i.email, i.role, i.token_hash,
	i.expires_at, i.accepted_at, i.created_at`

func scanInvite(row pgx.Row) (*types.ProjectInvite, error) {
	var i types.ProjectInvite
	err := row.Scan(
		&i.ID,
		&i.ProjectID,
		&i.Email,
		&i.Role,
		&i.TokenHash,
		&i.ExpiresAt,
		&i.AcceptedAt,
		&i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create inserts a pending invite. Returns ErrCodeConflictInvite when the
// same email already has a pending invite on the project.
func (r *InviteRepository) Create(ctx context.Context, invite *types.ProjectInvite) error {
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO project_invites (id, project_id, email, role, token_hash,
		 expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		invite.ID,
		invite.ProjectID,
		invite.Email,
		invite.Role,
		invite.TokenHash,
		invite.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictInvite, "invite already pending for this email", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create invite", err)
	}
	return nil
}

// ListByProjectID returns a project's invites, newest first.
func (r *InviteRepository) ListByProjectID(ctx context.Context, projectID string) ([]*types.ProjectInvite, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+inviteColumns+`
		 FROM project_invites i
		 WHERE i.project_id = $1
		 ORDER BY i.created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list invites", err)
	}
	defer rows.Close()

	var invites []*types.ProjectInvite
	for rows.Next() {
		i, err := scanInvite(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan invite row", err)
		}
		invites = append(invites, i)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate invite rows", err)
	}
	return invites, nil
}

// GetByTokenHash retrieves a pending, unexpired invite from the SHA-256 hash
// of the raw token. Expired or accepted invites behave like missing ones.
func (r *InviteRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*types.ProjectInvite, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+inviteColumns+`
		 FROM project_invites i
		 WHERE i.token_hash = $1 AND i.accepted_at IS NULL AND i.expires_at > NOW()`,
		tokenHash,
	)

	i, err := scanInvite(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundInvite, "invalid or expired invite", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve invite", err)
	}
	return i, nil
}

// MarkAccepted stamps an invite as accepted. Only a pending invite can be
// accepted; a second accept on the same token reports it missing.
func (r *InviteRepository) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE project_invites SET accepted_at = $1
		 WHERE id = $2 AND accepted_at IS NULL`,
		at,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark invite accepted", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundInvite, "invite not found or already accepted", nil)
	}
	return nil
}

// CountTeamByProjectID returns the project's team size for the team cap:
// the owner plus accepted and still-pending invites.
func (r *InviteRepository) CountTeamByProjectID(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT 1 + COUNT(*)
		 FROM project_invites
		 WHERE project_id = $1
		   AND (accepted_at IS NOT NULL OR expires_at > NOW())`,
		projectID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count team members", err)
	}
	return count, nil
}
