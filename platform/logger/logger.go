// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ExecutionIDKey is the context key for the job execution ID
	ExecutionIDKey contextKey = "execution_id"
	// CampaignIDKey is the context key for campaign ID
	CampaignIDKey contextKey = "campaign_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, execution_id, and campaign_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if executionID, ok := ctx.Value(ExecutionIDKey).(string); ok && executionID != "" {
		newLogger = newLogger.WithExecutionID(executionID)
	}

	if campaignID, ok := ctx.Value(CampaignIDKey).(string); ok && campaignID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("campaign_id", campaignID))}
	}

	return newLogger
}

// WithExecutionID returns a logger with the job execution ID attached.
func (l *Logger) WithExecutionID(executionID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("execution_id", executionID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// JobExecution logs the outcome of one orchestrated job run.
func (l *Logger) JobExecution(jobType, executionID, status string, processed, errored, deferred int, took time.Duration) {
	l.Info("job_execution",
		slog.String("job_type", jobType),
		slog.String("execution_id", executionID),
		slog.String("status", status),
		slog.Int("leads_processed", processed),
		slog.Int("leads_errored", errored),
		slog.Int("leads_deferred", deferred),
		slog.Float64("took_ms", float64(took.Milliseconds())),
	)
}

// LeadTransition logs a lead status transition for audit and reply analysis.
func (l *Logger) LeadTransition(leadID, from, to, reason string) {
	l.Info("lead_transition",
		slog.String("lead_id", leadID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("reason", reason),
	)
}

// CapExceeded logs a safety-cap veto. These are expected and non-fatal.
func (l *Logger) CapExceeded(campaignID, channel, windowKey string) {
	l.Warn("safety_cap_exceeded",
		slog.String("campaign_id", campaignID),
		slog.String("channel", channel),
		slog.String("window", windowKey),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
