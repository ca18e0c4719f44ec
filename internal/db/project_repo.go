package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dttools/internal/types"
)

// ProjectRepository provides data access for the projects table.
type ProjectRepository struct {
	db DBTX
}

func NewProjectRepository(db DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `p.id, p.user_id, p.name, p.description, p.status,
	p.current_phase, p.completion_rate, p.created_at, p.updated_at`

func scanProject(row pgx.Row) (*types.Project, error) {
	var p types.Project
	var description *string
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&description,
		&p.Status,
		&p.CurrentPhase,
		&p.CompletionRate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description != nil {
		p.Description = *description
	}
	return &p, nil
}

// Create inserts a new project owned by the given user.
func (r *ProjectRepository) Create(ctx context.Context, project *types.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.Status == "" {
		project.Status = types.ProjectStatusInProgress
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO projects (id, user_id, name, description, status,
		 current_phase, completion_rate, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		project.ID,
		project.UserID,
		project.Name,
		nilIfEmpty(project.Description),
		project.Status,
		project.CurrentPhase,
		project.CompletionRate,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create project", err)
	}
	return nil
}

// GetByID retrieves a project scoped to its owner. Ownership is part of the
// query so a foreign project id behaves exactly like a missing one.
func (r *ProjectRepository) GetByID(ctx context.Context, id string, userID string) (*types.Project, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+projectColumns+`
		 FROM projects p
		 WHERE p.id = $1 AND p.user_id = $2`,
		id,
		userID,
	)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundProject, "project not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve project", err)
	}
	return p, nil
}

// ListByUserID returns the user's projects, newest first.
func (r *ProjectRepository) ListByUserID(ctx context.Context, userID string) ([]*types.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+`
		 FROM projects p
		 WHERE p.user_id = $1
		 ORDER BY p.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list projects", err)
	}
	defer rows.Close()

	var projects []*types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan project row", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate project rows", err)
	}
	return projects, nil
}

// CountByUserID returns the user's current project count. The project gate
// compares this against the resolved limit; the count and the subsequent
// insert are separate statements, so two concurrent requests can both pass
// the gate at usage = limit-1.
func (r *ProjectRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM projects WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count projects", err)
	}
	return count, nil
}

// Update applies changes to the mutable project fields.
func (r *ProjectRepository) Update(ctx context.Context, project *types.Project) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE projects SET name = $1, description = $2, status = $3,
		 current_phase = $4, completion_rate = $5, updated_at = NOW()
		 WHERE id = $6 AND user_id = $7`,
		project.Name,
		nilIfEmpty(project.Description),
		project.Status,
		project.CurrentPhase,
		project.CompletionRate,
		project.ID,
		project.UserID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update project", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProject, "project not found", nil)
	}
	return nil
}

// Delete removes a project and everything hanging off it (personas, invites,
// export jobs cascade in the schema).
func (r *ProjectRepository) Delete(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM projects WHERE id = $1 AND user_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete project", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProject, "project not found", nil)
	}
	return nil
}
