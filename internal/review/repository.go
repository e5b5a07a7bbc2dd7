package review

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTaskNotFound is returned when no pending task exists for a lead.
var ErrTaskNotFound = errors.New("review task not found")

// Repository is the pgx-backed task store. The unique index on lead_id makes
// Upsert a replace, which keeps the one-task-per-lead rule in storage rather
// than in application code.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a review task repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Upsert(ctx context.Context, task Task) (Task, error) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO cam_review_tasks (id, lead_id, campaign_id, review_type, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (lead_id) DO UPDATE
		 SET review_type = EXCLUDED.review_type,
		     reason = EXCLUDED.reason,
		     created_at = now()
		 RETURNING id, lead_id, campaign_id, review_type, reason, created_at`,
		task.ID, task.LeadID, task.CampaignID, task.Type, task.Reason)
	return scanTask(row)
}

func (r *Repository) GetByLeadID(ctx context.Context, leadID uuid.UUID) (Task, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, lead_id, campaign_id, review_type, reason, created_at
		 FROM cam_review_tasks WHERE lead_id = $1`, leadID)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrTaskNotFound
	}
	return task, err
}

func (r *Repository) ListPending(ctx context.Context, campaignID *uuid.UUID, limit int) ([]Task, error) {
	if limit < 1 {
		limit = 50
	}

	query := `SELECT id, lead_id, campaign_id, review_type, reason, created_at
		 FROM cam_review_tasks`
	args := []any{limit}
	if campaignID != nil {
		query += ` WHERE campaign_id = $2`
		args = append(args, *campaignID)
	}
	query += ` ORDER BY created_at ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, leadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cam_review_tasks WHERE lead_id = $1`, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var task Task
	err := row.Scan(&task.ID, &task.LeadID, &task.CampaignID, &task.Type,
		&task.Reason, &task.CreatedAt)
	return task, err
}

var _ TaskStore = (*Repository)(nil)
