package db

import (
	"context"

	"github.com/google/uuid"

	"dttools/internal/types"
)

// ExportRepository provides data access for the export_jobs table. Only
// binary formats (pdf/png) create jobs; csv and markdown render inline.
type ExportRepository struct {
	db DBTX
}

func NewExportRepository(db DBTX) *ExportRepository {
	return &ExportRepository{db: db}
}

// CreateJob queues a binary export.
func (r *ExportRepository) CreateJob(ctx context.Context, job *types.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = types.ExportJobQueued
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO export_jobs (id, project_id, user_id, format, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		job.ID,
		job.ProjectID,
		job.UserID,
		job.Format,
		job.Status,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create export job", err)
	}
	return nil
}

// ListByProjectID returns a project's export jobs, newest first.
func (r *ExportRepository) ListByProjectID(ctx context.Context, projectID string, userID string) ([]*types.ExportJob, error) {
	rows, err := r.db.Query(ctx,
		`SELECT j.id, j.project_id, j.user_id, j.format, j.status, j.created_at
		 FROM export_jobs j
		 WHERE j.project_id = $1 AND j.user_id = $2
		 ORDER BY j.created_at DESC`,
		projectID,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list export jobs", err)
	}
	defer rows.Close()

	var jobs []*types.ExportJob
	for rows.Next() {
		var j types.ExportJob
		if err := rows.Scan(&j.ID, &j.ProjectID, &j.UserID, &j.Format, &j.Status, &j.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan export job row", err)
		}
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate export job rows", err)
	}
	return jobs, nil
}
