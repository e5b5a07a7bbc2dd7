// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the operator auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
	GetOperatorEmail() string
	GetOperatorPasswordHash() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq-backed job dispatch.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SafetyConfig provides settings for the outbound safety limiter.
type SafetyConfig interface {
	GetRedisURL() string
	GetSafetyKeyPrefix() string
}

// OrchestratorConfig provides settings for the pipeline orchestrator loop.
type OrchestratorConfig interface {
	GetTickInterval() time.Duration
	GetMaxLeadsPerRun() int
	GetExecutionTimeout() time.Duration
	GetRecoverySweepInterval() time.Duration
}

// OutreachConfig provides settings for the SMTP outreach sender.
type OutreachConfig interface {
	GetOutreachEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetOutreachFromName() string
	GetOutreachFromAddress() string
}

// ReplyConfig provides settings for the inbound reply fetcher.
type ReplyConfig interface {
	GetIMAPHost() string
	GetIMAPPort() int
	GetIMAPUsername() string
	GetIMAPPassword() string
	GetIMAPFolder() string
	IsReplyIngestEnabled() bool
}

// ClassifierConfig provides settings for the AI reply classifier.
type ClassifierConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	IsAIClassifierEnabled() bool
}

// LeadSourceConfig provides settings for the CSV lead source bucket.
type LeadSourceConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketLeadImports() string
	IsMinIOEnabled() bool
}

// EnrichmentConfig provides settings for the enrichment provider.
type EnrichmentConfig interface {
	GetEnrichmentAPIURL() string
	GetEnrichmentAPIKey() string
	IsEnrichmentEnabled() bool
}

// SequenceConfig provides the nurture sequence template file location.
type SequenceConfig interface {
	GetSequenceTemplatePath() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	RedisURL              string
	RedisTLSInsecure      bool
	JWTAccessSecret       string
	AccessTokenTTL        time.Duration
	OperatorEmail         string
	OperatorPasswordHash  string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	AsynqQueueName        string
	AsynqConcurrency      int
	SafetyKeyPrefix       string
	TickInterval          time.Duration
	MaxLeadsPerRun        int
	ExecutionTimeout      time.Duration
	RecoverySweepInterval time.Duration
	OutreachEnabled       bool
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	OutreachFromName      string
	OutreachFromAddress   string
	IMAPHost              string
	IMAPPort              int
	IMAPUsername          string
	IMAPPassword          string
	IMAPFolder            string
	GeminiAPIKey          string
	GeminiModel           string
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	LeadImportsBucket     string
	EnrichmentAPIURL      string
	EnrichmentAPIKey      string
	SequenceTemplatePath  string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *Config) GetOperatorEmail() string          { return c.OperatorEmail }
func (c *Config) GetOperatorPasswordHash() string   { return c.OperatorPasswordHash }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// SafetyConfig implementation
func (c *Config) GetSafetyKeyPrefix() string { return c.SafetyKeyPrefix }

// OrchestratorConfig implementation
func (c *Config) GetTickInterval() time.Duration          { return c.TickInterval }
func (c *Config) GetMaxLeadsPerRun() int                  { return c.MaxLeadsPerRun }
func (c *Config) GetExecutionTimeout() time.Duration      { return c.ExecutionTimeout }
func (c *Config) GetRecoverySweepInterval() time.Duration { return c.RecoverySweepInterval }

// OutreachConfig implementation
func (c *Config) GetOutreachEnabled() bool       { return c.OutreachEnabled }
func (c *Config) GetSMTPHost() string            { return c.SMTPHost }
func (c *Config) GetSMTPPort() int               { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string        { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string        { return c.SMTPPassword }
func (c *Config) GetOutreachFromName() string    { return c.OutreachFromName }
func (c *Config) GetOutreachFromAddress() string { return c.OutreachFromAddress }

// ReplyConfig implementation
func (c *Config) GetIMAPHost() string        { return c.IMAPHost }
func (c *Config) GetIMAPPort() int           { return c.IMAPPort }
func (c *Config) GetIMAPUsername() string    { return c.IMAPUsername }
func (c *Config) GetIMAPPassword() string    { return c.IMAPPassword }
func (c *Config) GetIMAPFolder() string      { return c.IMAPFolder }
func (c *Config) IsReplyIngestEnabled() bool { return c.IMAPHost != "" && c.IMAPUsername != "" }

// ClassifierConfig implementation
func (c *Config) GetGeminiAPIKey() string     { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string      { return c.GeminiModel }
func (c *Config) IsAIClassifierEnabled() bool { return c.GeminiAPIKey != "" }

// LeadSourceConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketLeadImports() string {
	return c.LeadImportsBucket
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// EnrichmentConfig implementation
func (c *Config) GetEnrichmentAPIURL() string { return c.EnrichmentAPIURL }
func (c *Config) GetEnrichmentAPIKey() string { return c.EnrichmentAPIKey }
func (c *Config) IsEnrichmentEnabled() bool   { return c.EnrichmentAPIURL != "" }

// SequenceConfig implementation
func (c *Config) GetSequenceTemplatePath() string { return c.SequenceTemplatePath }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	outreachEnabled := strings.EqualFold(getEnv("OUTREACH_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:        mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		OperatorEmail:         getEnv("OPERATOR_EMAIL", ""),
		OperatorPasswordHash:  getEnv("OPERATOR_PASSWORD_HASH", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "cam"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SafetyKeyPrefix:       getEnv("SAFETY_KEY_PREFIX", "cam:cap"),
		TickInterval:          mustDuration(getEnv("ORCHESTRATOR_TICK_INTERVAL", "1m")),
		MaxLeadsPerRun:        mustInt(getEnv("MAX_LEADS_PER_RUN", "100")),
		ExecutionTimeout:      mustDuration(getEnv("EXECUTION_TIMEOUT", "30m")),
		RecoverySweepInterval: mustDuration(getEnv("RECOVERY_SWEEP_INTERVAL", "10m")),
		OutreachEnabled:       outreachEnabled && smtpHost != "",
		SMTPHost:              smtpHost,
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		OutreachFromName:      getEnv("OUTREACH_FROM_NAME", "CAM"),
		OutreachFromAddress:   getEnv("OUTREACH_FROM_ADDRESS", ""),
		IMAPHost:              getEnv("IMAP_HOST", ""),
		IMAPPort:              mustInt(getEnv("IMAP_PORT", "993")),
		IMAPUsername:          getEnv("IMAP_USERNAME", ""),
		IMAPPassword:          getEnv("IMAP_PASSWORD", ""),
		IMAPFolder:            getEnv("IMAP_FOLDER", "INBOX"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		LeadImportsBucket:     getEnv("MINIO_BUCKET_LEAD_IMPORTS", "lead-imports"),
		EnrichmentAPIURL:      getEnv("ENRICHMENT_API_URL", ""),
		EnrichmentAPIKey:      getEnv("ENRICHMENT_API_KEY", ""),
		SequenceTemplatePath:  getEnv("SEQUENCE_TEMPLATE_PATH", "sequences.yaml"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.OperatorEmail == "" || cfg.OperatorPasswordHash == "" {
		return nil, fmt.Errorf("OPERATOR_EMAIL and OPERATOR_PASSWORD_HASH are required")
	}
	if outreachEnabled && smtpHost != "" && cfg.OutreachFromAddress == "" {
		return nil, fmt.Errorf("OUTREACH_FROM_ADDRESS is required when outreach is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
