// Package repository provides Postgres persistence for leads, their status
// transition audit log, and the append-only engagement event log.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cam_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a lead does not exist.
	ErrNotFound = errors.New("lead not found")
	// ErrDuplicateKey is returned when an insert collides on the dedup key.
	ErrDuplicateKey = errors.New("lead dedup key already exists")
	// ErrStatusConflict is returned when a compare-and-swap status update
	// observes a different current status than expected.
	ErrStatusConflict = errors.New("lead status changed concurrently")
)

// Repository persists leads in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a lead repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, campaign_id, dedup_key, email, phone, first_name,
	last_name, company, company_domain, company_size, industry, seniority,
	intent_signals, source, status, icp_fit, opportunity, score, tier,
	routing_sequence, sequence_start_at, sequence_step, requires_human_review,
	review_reason, review_type, attempt_count, last_action_at, created_at,
	updated_at`

// GetByID fetches one lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM cam_leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// GetByDedupKey fetches the lead holding the given dedup key within a campaign.
func (r *Repository) GetByDedupKey(ctx context.Context, campaignID uuid.UUID, key string) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM cam_leads WHERE campaign_id = $1 AND dedup_key = $2`,
		campaignID, key)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// QueryByStatus returns up to limit leads of one status in ascending id order.
func (r *Repository) QueryByStatus(ctx context.Context, campaignID uuid.UUID, status domain.Status, limit int) ([]domain.Lead, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+leadColumns+`
		 FROM cam_leads
		 WHERE campaign_id = $1 AND status = $2
		 ORDER BY id ASC
		 LIMIT $3`,
		campaignID, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, lead)
	}
	return results, rows.Err()
}

// FindByEmail returns every lead holding the given email, across campaigns.
func (r *Repository) FindByEmail(ctx context.Context, email string) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM cam_leads WHERE email = $1 ORDER BY id ASC`,
		email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, lead)
	}
	return results, rows.Err()
}

// ExistsByDedupKey reports whether a lead with the key exists in the campaign.
func (r *Repository) ExistsByDedupKey(ctx context.Context, campaignID uuid.UUID, key string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM cam_leads WHERE campaign_id = $1 AND dedup_key = $2)`,
		campaignID, key).Scan(&exists)
	return exists, err
}

// Insert persists a newly harvested lead. The unique index on
// (campaign_id, dedup_key) is the storage-level dedup guarantee.
func (r *Repository) Insert(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	if lead.DedupKey == "" {
		return domain.Lead{}, fmt.Errorf("dedup key is required")
	}
	if lead.Status == "" {
		lead.Status = domain.StatusHarvested
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO cam_leads
			(campaign_id, dedup_key, email, phone, first_name, last_name,
			 company, company_domain, company_size, industry, seniority,
			 intent_signals, source, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (campaign_id, dedup_key) DO NOTHING
		 RETURNING `+leadColumns,
		lead.CampaignID, lead.DedupKey, lead.Email, lead.Phone,
		lead.FirstName, lead.LastName, lead.Company, lead.CompanyDomain,
		lead.CompanySize, lead.Industry, lead.Seniority, lead.IntentSignals,
		lead.Source, string(lead.Status))

	inserted, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrDuplicateKey
	}
	return inserted, err
}

// Save persists all mutable lead fields without changing status. Status
// changes go through ApplyTransition only.
func (r *Repository) Save(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE cam_leads SET
			email = $2, phone = $3, first_name = $4, last_name = $5,
			company = $6, company_domain = $7, company_size = $8,
			industry = $9, seniority = $10, intent_signals = $11,
			icp_fit = $12, opportunity = $13, score = $14, tier = $15,
			routing_sequence = $16, sequence_start_at = $17, sequence_step = $18,
			attempt_count = $19, last_action_at = $20, updated_at = now()
		 WHERE id = $1
		 RETURNING `+leadColumns,
		lead.ID, lead.Email, lead.Phone, lead.FirstName, lead.LastName,
		lead.Company, lead.CompanyDomain, lead.CompanySize, lead.Industry,
		lead.Seniority, lead.IntentSignals, lead.ICPFit, lead.Opportunity,
		lead.Score, string(lead.Tier), lead.RoutingSequence,
		lead.SequenceStartAt, lead.SequenceStep, lead.AttemptCount,
		lead.LastActionAt)

	saved, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return saved, err
}

// ApplyTransition performs the compare-and-swap status update and writes the
// audit row in one transaction. The WHERE clause on the previous status is
// the serialization point for concurrent writers.
func (r *Repository) ApplyTransition(ctx context.Context, lead domain.Lead, record domain.TransitionRecord) (domain.Lead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`UPDATE cam_leads
		 SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = $2
		 RETURNING `+leadColumns,
		lead.ID, string(record.FromStatus), string(record.ToStatus))

	updated, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrStatusConflict
	}
	if err != nil {
		return domain.Lead{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO cam_lead_transitions (lead_id, from_status, to_status, reason)
		 VALUES ($1, $2, $3, $4)`,
		lead.ID, string(record.FromStatus), string(record.ToStatus), record.Reason)
	if err != nil {
		return domain.Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return updated, nil
}

// SetReviewFlag sets or clears the human review flag. Clearing is reserved
// for the review gate.
func (r *Repository) SetReviewFlag(ctx context.Context, id uuid.UUID, flagged bool, reviewType, reason string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cam_leads
		 SET requires_human_review = $2, review_type = $3, review_reason = $4,
		     updated_at = now()
		 WHERE id = $1`,
		id, flagged, reviewType, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendEngagement appends one event to the lead's engagement log.
func (r *Repository) AppendEngagement(ctx context.Context, event domain.EngagementEvent) error {
	meta, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal engagement metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO cam_engagement_events (lead_id, event_type, metadata)
		 VALUES ($1, $2, $3)`,
		event.LeadID, event.Type, meta)
	return err
}

// ListEngagement returns a lead's engagement events, oldest first.
func (r *Repository) ListEngagement(ctx context.Context, leadID uuid.UUID) ([]domain.EngagementEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lead_id, event_type, metadata, created_at
		 FROM cam_engagement_events
		 WHERE lead_id = $1
		 ORDER BY created_at ASC, id ASC`,
		leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.EngagementEvent
	for rows.Next() {
		var (
			event domain.EngagementEvent
			meta  []byte
		)
		if err := rows.Scan(&event.ID, &event.LeadID, &event.Type, &meta, &event.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal engagement metadata: %w", err)
			}
		}
		results = append(results, event)
	}
	return results, rows.Err()
}

// CountByStatus returns the lead count per status for one campaign.
func (r *Repository) CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*)
		 FROM cam_leads
		 WHERE campaign_id = $1
		 GROUP BY status`,
		campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var (
		lead   domain.Lead
		status string
		tier   *string
	)
	err := row.Scan(&lead.ID, &lead.CampaignID, &lead.DedupKey, &lead.Email,
		&lead.Phone, &lead.FirstName, &lead.LastName, &lead.Company,
		&lead.CompanyDomain, &lead.CompanySize, &lead.Industry,
		&lead.Seniority, &lead.IntentSignals, &lead.Source, &status,
		&lead.ICPFit, &lead.Opportunity, &lead.Score, &tier,
		&lead.RoutingSequence, &lead.SequenceStartAt, &lead.SequenceStep,
		&lead.RequiresHumanReview, &lead.ReviewReason, &lead.ReviewType,
		&lead.AttemptCount, &lead.LastActionAt, &lead.CreatedAt,
		&lead.UpdatedAt)
	if err != nil {
		return domain.Lead{}, err
	}

	lead.Status = domain.Status(status)
	if tier != nil {
		lead.Tier = domain.Tier(*tier)
	}
	return lead, nil
}

// Compile-time check that Repository implements the full store port.
var _ Store = (*Repository)(nil)
