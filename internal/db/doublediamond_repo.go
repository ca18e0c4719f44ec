package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dttools/internal/types"
)

// DoubleDiamondRepository provides data access for the
// double_diamond_projects table.
type DoubleDiamondRepository struct {
	db DBTX
}

func NewDoubleDiamondRepository(db DBTX) *DoubleDiamondRepository {
	return &DoubleDiamondRepository{db: db}
}

const ddColumns = `d.id, d.user_id, d.name, d.description, d.phase,
	d.export_count, d.created_at, d.updated_at`

func scanDoubleDiamond(row pgx.Row) (*types.DoubleDiamondProject, error) {
	var d types.DoubleDiamondProject
	var description *string
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Name,
		&description,
		&d.Phase,
		&d.ExportCount,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description != nil {
		d.Description = *description
	}
	return &d, nil
}

// Create inserts a Double Diamond project starting in the discover phase.
func (r *DoubleDiamondRepository) Create(ctx context.Context, project *types.DoubleDiamondProject) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.Phase == "" {
		project.Phase = types.PhaseDiscover
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO double_diamond_projects (id, user_id, name, description,
		 phase, export_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())`,
		project.ID,
		project.UserID,
		project.Name,
		nilIfEmpty(project.Description),
		project.Phase,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create double diamond project", err)
	}
	return nil
}

// GetByID retrieves a Double Diamond project scoped to its owner.
func (r *DoubleDiamondRepository) GetByID(ctx context.Context, id string, userID string) (*types.DoubleDiamondProject, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+ddColumns+`
		 FROM double_diamond_projects d
		 WHERE d.id = $1 AND d.user_id = $2`,
		id,
		userID,
	)

	d, err := scanDoubleDiamond(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundProject, "double diamond project not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve double diamond project", err)
	}
	return d, nil
}

// ListByUserID returns the user's Double Diamond projects, newest first.
func (r *DoubleDiamondRepository) ListByUserID(ctx context.Context, userID string) ([]*types.DoubleDiamondProject, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+ddColumns+`
		 FROM double_diamond_projects d
		 WHERE d.user_id = $1
		 ORDER BY d.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list double diamond projects", err)
	}
	defer rows.Close()

	var projects []*types.DoubleDiamondProject
	for rows.Next() {
		d, err := scanDoubleDiamond(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan double diamond row", err)
		}
		projects = append(projects, d)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate double diamond rows", err)
	}
	return projects, nil
}

// CountByUserID returns the user's Double Diamond project count for the gate.
func (r *DoubleDiamondRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM double_diamond_projects WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count double diamond projects", err)
	}
	return count, nil
}

// SumExportsByUserID returns the user's total Double Diamond export count
// across projects, feeding the export cap.
func (r *DoubleDiamondRepository) SumExportsByUserID(ctx context.Context, userID string) (int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(export_count), 0)
		 FROM double_diamond_projects WHERE user_id = $1`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to sum double diamond exports", err)
	}
	return total, nil
}

// IncrementExportCount bumps a project's export counter after a successful
// export.
func (r *DoubleDiamondRepository) IncrementExportCount(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE double_diamond_projects
		 SET export_count = export_count + 1, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to increment export count", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProject, "double diamond project not found", nil)
	}
	return nil
}

// UpdatePhase advances a project to the given phase.
func (r *DoubleDiamondRepository) UpdatePhase(ctx context.Context, id string, userID string, phase types.DiamondPhase) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE double_diamond_projects SET phase = $1, updated_at = NOW()
		 WHERE id = $2 AND user_id = $3`,
		phase,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update phase", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProject, "double diamond project not found", nil)
	}
	return nil
}
