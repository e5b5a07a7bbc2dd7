// Package bootstrap wires the pipeline dependency graph shared by the api
// and orchestrator binaries. Each builder either returns a working component
// or panics; partially wired pipelines must not start.
package bootstrap

import (
	"context"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/enrichment"
	"cam_backend/internal/leads/ports"
	leadrepo "cam_backend/internal/leads/repository"
	"cam_backend/internal/outreach"
	"cam_backend/internal/pipeline"
	"cam_backend/internal/replies"
	"cam_backend/internal/safety"
	"cam_backend/internal/sources"
	"cam_backend/platform/config"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

// ProcessorDeps bundles the shared dependencies of the five stage processors.
type ProcessorDeps struct {
	Leads     leadrepo.Store
	Sources   []ports.LeadSource
	Limiter   safety.Limiter
	Sequences *pipeline.SequenceSet
	Renderer  pipeline.MessageRenderer
	Reviews   pipeline.ReviewFlagger
	Bus       events.Bus
}

// Processors builds the full stage processor map, keyed by job type.
func Processors(cfg *config.Config, log *logger.Logger, deps ProcessorDeps) map[string]pipeline.Processor {
	var enricher ports.Enricher = ports.NoopEnricher{}
	var verifier ports.EmailVerifier = ports.NoopVerifier{}
	if cfg.IsEnrichmentEnabled() {
		client := enrichment.New(cfg, log)
		enricher = client
		verifier = client
		log.Info("lead enrichment enabled", "url", cfg.GetEnrichmentAPIURL())
	}

	suppression := pipeline.NewStoreSuppression(deps.Leads)

	return map[string]pipeline.Processor{
		pipeline.JobHarvest: pipeline.NewHarvester(deps.Sources, deps.Leads, log),
		pipeline.JobScore:   pipeline.NewScorer(deps.Leads, enricher, verifier, deps.Bus, log),
		pipeline.JobQualify: pipeline.NewQualifier(deps.Leads, suppression, deps.Reviews, deps.Bus, log),
		pipeline.JobRoute:   pipeline.NewRouter(deps.Leads, deps.Sequences, deps.Bus, log),
		pipeline.JobNurture: pipeline.NewNurturer(deps.Leads, deps.Sequences, deps.Limiter, Senders(cfg, log), deps.Renderer, deps.Bus, log),
	}
}

// Senders builds the per-channel outreach senders. Channels without a
// configured provider fall back to acknowledged no-op sends.
func Senders(cfg *config.Config, log *logger.Logger) map[string]ports.OutreachSender {
	senders := map[string]ports.OutreachSender{
		campaigns.ChannelEmail:  ports.NoopSender{SenderChannel: campaigns.ChannelEmail},
		campaigns.ChannelSocial: ports.NoopSender{SenderChannel: campaigns.ChannelSocial},
	}
	if cfg.GetOutreachEnabled() && cfg.GetSMTPHost() != "" {
		senders[campaigns.ChannelEmail] = outreach.NewSMTPSender(cfg)
		log.Info("smtp outreach enabled", "host", cfg.GetSMTPHost())
	} else {
		log.Warn("smtp outreach disabled; email sends are no-ops")
	}
	return senders
}

// LeadSources builds the harvest inputs: the manual queue always, the MinIO
// CSV bucket when object storage is configured.
func LeadSources(ctx context.Context, cfg *config.Config, log *logger.Logger, manual *sources.ManualSource) []ports.LeadSource {
	leadSources := []ports.LeadSource{manual}
	if !cfg.IsMinIOEnabled() {
		log.Warn("minio not configured; csv lead imports disabled")
		return leadSources
	}

	csvSource, err := sources.NewMinIOCSVSource(cfg, log)
	if err != nil {
		log.Error("failed to initialize csv lead source", "error", err)
		panic("failed to initialize csv lead source: " + err.Error())
	}
	if err := csvSource.EnsureBucketExists(ctx); err != nil {
		log.Error("failed to ensure lead imports bucket", "error", err, "bucket", cfg.GetMinioBucketLeadImports())
		panic("failed to ensure lead imports bucket: " + err.Error())
	}
	return append(leadSources, csvSource)
}

// Limiter wires the Redis cap limiter. Outbound safety is not optional, so a
// missing or unparsable Redis URL halts startup.
func Limiter(cfg *config.Config, log *logger.Logger) safety.Limiter {
	client, err := safety.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize safety redis client", "error", err)
		panic("failed to initialize safety redis client: " + err.Error())
	}
	return safety.NewRedisLimiter(client, cfg.GetSafetyKeyPrefix())
}

// Sequences loads the nurture cadence file, falling back to the embedded
// defaults when no path is configured.
func Sequences(cfg *config.Config, log *logger.Logger) *pipeline.SequenceSet {
	path := cfg.GetSequenceTemplatePath()
	if path == "" {
		return pipeline.DefaultSequences()
	}

	sequences, err := pipeline.LoadSequences(path)
	if err != nil {
		log.Error("failed to load sequence file", "error", err, "path", path)
		panic("failed to load sequence file: " + err.Error())
	}
	log.Info("nurture sequences loaded", "path", path)
	return sequences
}

// Ingestor builds the reply ingestion service, or nil when IMAP is not
// configured. The Gemini classifier degrades to keyword rules on error.
func Ingestor(ctx context.Context, cfg *config.Config, log *logger.Logger, leads leadrepo.Store, bus events.Bus) *replies.Ingestor {
	if !cfg.IsReplyIngestEnabled() {
		log.Warn("imap not configured; reply ingestion disabled")
		return nil
	}

	source, err := replies.NewIMAPSource(cfg, log)
	if err != nil {
		log.Error("failed to initialize imap source", "error", err)
		panic("failed to initialize imap source: " + err.Error())
	}

	var classifier ports.ReplyClassifier = replies.KeywordClassifier{}
	if cfg.IsAIClassifierEnabled() {
		gemini, err := replies.NewGeminiClassifier(ctx, cfg, log)
		if err != nil {
			log.Warn("gemini classifier unavailable, falling back to keywords", "error", err)
		} else {
			classifier = gemini
			log.Info("gemini reply classifier enabled", "model", cfg.GetGeminiModel())
		}
	}

	return replies.NewIngestor(source, classifier, leads, bus, log)
}
