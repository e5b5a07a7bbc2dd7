// Package sources provides the lead source adapters consumed by the harvest
// stage: a MinIO-backed CSV import bucket and an operator-fed manual queue.
package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
	"cam_backend/platform/config"
	"cam_backend/platform/logger"
)

const processedPrefix = "processed/"

// MinIOCSVSource reads lead import files dropped into the campaign's folder
// of the lead imports bucket. Each object is a CSV with a header row; the
// object is moved under processed/ once it has been read so the next harvest
// does not re-ingest it.
type MinIOCSVSource struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// NewMinIOCSVSource creates the CSV import source. Returns an error when the
// MinIO endpoint is not configured; callers should fall back to leaving the
// source out of the chain.
func NewMinIOCSVSource(cfg config.LeadSourceConfig, log *logger.Logger) (*MinIOCSVSource, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOCSVSource{
		client: client,
		bucket: cfg.GetMinioBucketLeadImports(),
		log:    log,
	}, nil
}

// EnsureBucketExists creates the import bucket if it does not exist.
func (s *MinIOCSVSource) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *MinIOCSVSource) Name() string { return "csv_import" }

func (s *MinIOCSVSource) IsConfigured() bool { return s.client != nil }

func (s *MinIOCSVSource) FetchNewLeads(ctx context.Context, campaign campaigns.Campaign, maxLeads int) ([]domain.Lead, error) {
	prefix := campaign.ID.String() + "/"
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var leads []domain.Lead
	for object := range objects {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list import objects: %w", object.Err)
		}
		if strings.HasPrefix(object.Key, prefix+processedPrefix) {
			continue
		}
		if len(leads) >= maxLeads {
			break
		}

		parsed, err := s.readObject(ctx, object.Key, maxLeads-len(leads))
		if err != nil {
			// A malformed file never aborts the harvest; it stays in place
			// for the operator to inspect.
			s.log.Warn("failed to read lead import file", "bucket", s.bucket, "key", object.Key, "error", err)
			continue
		}
		leads = append(leads, parsed...)

		if err := s.markProcessed(ctx, campaign, object.Key); err != nil {
			s.log.Warn("failed to archive lead import file", "bucket", s.bucket, "key", object.Key, "error", err)
		}
	}
	return leads, nil
}

func (s *MinIOCSVSource) readObject(ctx context.Context, key string, maxLeads int) ([]domain.Lead, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	return ParseLeadCSV(obj, maxLeads)
}

// markProcessed moves an ingested file under the campaign's processed/ folder.
func (s *MinIOCSVSource) markProcessed(ctx context.Context, campaign campaigns.Campaign, key string) error {
	archived := campaign.ID.String() + "/" + processedPrefix + path.Base(key)
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: archived},
		minio.CopySrcOptions{Bucket: s.bucket, Object: key},
	)
	if err != nil {
		return fmt.Errorf("failed to copy object %s: %w", key, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

// ParseLeadCSV reads up to maxLeads rows from a CSV with a header row.
// Recognized columns: email, phone, first_name, last_name, company,
// company_domain, company_size, industry, seniority, intent_signals
// (semicolon separated). Unknown columns are ignored; rows with no usable
// identity are skipped where the harvester dedups them.
func ParseLeadCSV(r io.Reader, maxLeads int) ([]domain.Lead, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var leads []domain.Lead
	for len(leads) < maxLeads {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return leads, fmt.Errorf("failed to read csv row: %w", err)
		}

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		lead := domain.Lead{
			Email:         field("email"),
			Phone:         field("phone"),
			FirstName:     field("first_name"),
			LastName:      field("last_name"),
			Company:       field("company"),
			CompanyDomain: field("company_domain"),
			Industry:      field("industry"),
			Seniority:     field("seniority"),
		}
		if size := field("company_size"); size != "" {
			if parsed, err := strconv.Atoi(size); err == nil {
				lead.CompanySize = parsed
			}
		}
		if signals := field("intent_signals"); signals != "" {
			for _, signal := range strings.Split(signals, ";") {
				if trimmed := strings.TrimSpace(signal); trimmed != "" {
					lead.IntentSignals = append(lead.IntentSignals, trimmed)
				}
			}
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

var _ ports.LeadSource = (*MinIOCSVSource)(nil)
