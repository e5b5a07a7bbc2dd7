package campaigns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a campaign does not exist.
var ErrNotFound = errors.New("campaign not found")

// Repository persists campaigns in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a campaign repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateParams holds the fields for a new campaign.
type CreateParams struct {
	Name               string
	Niche              string
	Channels           []string
	ChannelCaps        map[string]ChannelCap
	Target             TargetProfile
	Qualification      QualificationRules
	Metrics            TargetMetrics
	MaxLeadsPerHarvest int
	PhoneRegion        string
}

const campaignColumns = `id, name, niche, active, paused, killed, channels,
	channel_caps, target_profile, qualification_rules, target_metrics,
	max_leads_per_harvest, phone_region, created_at, updated_at`

// Create inserts a new active campaign.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Campaign, error) {
	if p.Name == "" {
		return Campaign{}, fmt.Errorf("name is required")
	}
	if p.MaxLeadsPerHarvest <= 0 {
		p.MaxLeadsPerHarvest = 50
	}
	if p.Qualification == (QualificationRules{}) {
		p.Qualification = DefaultQualificationRules()
	}

	caps, err := json.Marshal(p.ChannelCaps)
	if err != nil {
		return Campaign{}, fmt.Errorf("marshal channel caps: %w", err)
	}
	target, err := json.Marshal(p.Target)
	if err != nil {
		return Campaign{}, fmt.Errorf("marshal target profile: %w", err)
	}
	rules, err := json.Marshal(p.Qualification)
	if err != nil {
		return Campaign{}, fmt.Errorf("marshal qualification rules: %w", err)
	}
	metrics, err := json.Marshal(p.Metrics)
	if err != nil {
		return Campaign{}, fmt.Errorf("marshal target metrics: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO cam_campaigns
			(name, niche, channels, channel_caps, target_profile,
			 qualification_rules, target_metrics, max_leads_per_harvest, phone_region)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+campaignColumns,
		p.Name, p.Niche, p.Channels, caps, target, rules, metrics,
		p.MaxLeadsPerHarvest, p.PhoneRegion,
	)
	return scanCampaign(row)
}

// GetByID fetches one campaign.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Campaign, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM cam_campaigns WHERE id = $1`, id)
	campaign, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return campaign, err
}

// ListActive returns campaigns eligible for automation, oldest first for a
// stable orchestration order.
func (r *Repository) ListActive(ctx context.Context) ([]Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+`
		 FROM cam_campaigns
		 WHERE active AND NOT paused AND NOT killed
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCampaigns(rows)
}

// List returns all campaigns, newest first.
func (r *Repository) List(ctx context.Context) ([]Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM cam_campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCampaigns(rows)
}

// SetFlags updates the automation flags. A flip takes effect from the next
// orchestrator tick; in-flight executions are allowed to finish.
func (r *Repository) SetFlags(ctx context.Context, id uuid.UUID, active, paused, killed bool) (Campaign, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE cam_campaigns
		 SET active = $2, paused = $3, killed = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING `+campaignColumns,
		id, active, paused, killed)
	campaign, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return campaign, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (Campaign, error) {
	var (
		c       Campaign
		caps    []byte
		target  []byte
		rules   []byte
		metrics []byte
	)
	err := row.Scan(&c.ID, &c.Name, &c.Niche, &c.Active, &c.Paused, &c.Killed,
		&c.Channels, &caps, &target, &rules, &metrics,
		&c.MaxLeadsPerHarvest, &c.PhoneRegion, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Campaign{}, err
	}

	if len(caps) > 0 {
		if err := json.Unmarshal(caps, &c.ChannelCaps); err != nil {
			return Campaign{}, fmt.Errorf("unmarshal channel caps: %w", err)
		}
	}
	if len(target) > 0 {
		if err := json.Unmarshal(target, &c.Target); err != nil {
			return Campaign{}, fmt.Errorf("unmarshal target profile: %w", err)
		}
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &c.Qualification); err != nil {
			return Campaign{}, fmt.Errorf("unmarshal qualification rules: %w", err)
		}
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &c.Metrics); err != nil {
			return Campaign{}, fmt.Errorf("unmarshal target metrics: %w", err)
		}
	}
	return c, nil
}

func collectCampaigns(rows pgx.Rows) ([]Campaign, error) {
	var results []Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, campaign)
	}
	return results, rows.Err()
}
