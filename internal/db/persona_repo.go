package db

import (
	"context"

	"github.com/google/uuid"

	"dttools/internal/types"
)

// PersonaRepository provides data access for the personas table.
type PersonaRepository struct {
	db DBTX
}

func NewPersonaRepository(db DBTX) *PersonaRepository {
	return &PersonaRepository{db: db}
}

// Create inserts a persona under a project. Goals and frustrations are
// stored as text arrays.
func (r *PersonaRepository) Create(ctx context.Context, persona *types.Persona) error {
	if persona.ID == "" {
		persona.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO personas (id, project_id, name, age, occupation, bio,
		 goals, frustrations, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		persona.ID,
		persona.ProjectID,
		persona.Name,
		persona.Age,
		persona.Occupation,
		nilIfEmpty(persona.Bio),
		persona.Goals,
		persona.Frustrations,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create persona", err)
	}
	return nil
}

// ListByProjectID returns a project's personas in creation order.
func (r *PersonaRepository) ListByProjectID(ctx context.Context, projectID string) ([]*types.Persona, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.project_id, p.name, p.age, p.occupation, p.bio,
		        p.goals, p.frustrations, p.created_at
		 FROM personas p
		 WHERE p.project_id = $1
		 ORDER BY p.created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list personas", err)
	}
	defer rows.Close()

	var personas []*types.Persona
	for rows.Next() {
		var p types.Persona
		var bio *string
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Age, &p.Occupation, &bio,
			&p.Goals, &p.Frustrations, &p.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan persona row", err)
		}
		if bio != nil {
			p.Bio = *bio
		}
		personas = append(personas, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate persona rows", err)
	}
	return personas, nil
}

// CountByProjectID returns the persona count for one project, feeding the
// persona gate.
func (r *PersonaRepository) CountByProjectID(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM personas WHERE project_id = $1`,
		projectID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count personas", err)
	}
	return count, nil
}
