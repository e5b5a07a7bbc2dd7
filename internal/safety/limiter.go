// Package safety enforces per-campaign, per-channel outbound caps. Counters
// live in Redis, keyed by calendar window, so the window reset is implicit:
// a new day or hour produces a new key and the old one expires.
package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cam_backend/internal/campaigns"
	"cam_backend/platform/config"
)

// Window identifiers reported on a denied reservation.
const (
	WindowDaily  = "daily"
	WindowHourly = "hourly"
)

// Decision is the outcome of one reservation attempt.
type Decision struct {
	Granted bool
	// Window names the cap that denied the reservation. Empty when granted.
	Window string
	// DailyUsed and HourlyUsed are the counter values after the attempt.
	DailyUsed  int64
	HourlyUsed int64
}

// Usage is a read-only snapshot of the current window counters.
type Usage struct {
	DailyUsed  int64
	HourlyUsed int64
}

// Limiter reserves one outbound action. The reservation must happen before
// the send; a granted reservation is consumed even if the send then fails,
// which keeps the limiter conservative.
type Limiter interface {
	Reserve(ctx context.Context, campaignID uuid.UUID, channel string, cap campaigns.ChannelCap) (Decision, error)
	CurrentUsage(ctx context.Context, campaignID uuid.UUID, channel string) (Usage, error)
}

// Both windows are checked before either is incremented, so a reservation
// never half-applies. A cap of zero or below means the window is unlimited.
const reserveScript = `
local dailyKey = KEYS[1]
local hourlyKey = KEYS[2]
local dailyCap = tonumber(ARGV[1])
local hourlyCap = tonumber(ARGV[2])
local dailyTTL = tonumber(ARGV[3])
local hourlyTTL = tonumber(ARGV[4])

local daily = tonumber(redis.call("GET", dailyKey) or "0")
local hourly = tonumber(redis.call("GET", hourlyKey) or "0")

if dailyCap > 0 and daily + 1 > dailyCap then
	return {0, "daily", daily, hourly}
end
if hourlyCap > 0 and hourly + 1 > hourlyCap then
	return {0, "hourly", daily, hourly}
end

local newDaily = redis.call("INCR", dailyKey)
if newDaily == 1 then
	redis.call("EXPIRE", dailyKey, dailyTTL)
end
local newHourly = redis.call("INCR", hourlyKey)
if newHourly == 1 then
	redis.call("EXPIRE", hourlyKey, hourlyTTL)
end
return {1, "", newDaily, newHourly}
`

// RedisLimiter implements Limiter on a shared Redis instance, so the cap
// holds across orchestrator replicas.
type RedisLimiter struct {
	client    *redis.Client
	script    *redis.Script
	keyPrefix string
	now       func() time.Time
}

// NewRedisLimiter creates a limiter using the given client.
func NewRedisLimiter(client *redis.Client, keyPrefix string) *RedisLimiter {
	if keyPrefix == "" {
		keyPrefix = "cam:safety"
	}
	return &RedisLimiter{
		client:    client,
		script:    redis.NewScript(reserveScript),
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// NewRedisClient builds a Redis client from the safety configuration.
func NewRedisClient(cfg config.SafetyConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Reserve performs the atomic check-and-increment across both windows.
func (l *RedisLimiter) Reserve(ctx context.Context, campaignID uuid.UUID, channel string, cap campaigns.ChannelCap) (Decision, error) {
	now := l.now().UTC()
	keys := []string{
		l.dailyKey(campaignID, channel, now),
		l.hourlyKey(campaignID, channel, now),
	}
	args := []any{
		cap.DailyCap,
		cap.HourlyCap,
		int((48 * time.Hour).Seconds()),
		int((2 * time.Hour).Seconds()),
	}

	raw, err := l.script.Run(ctx, l.client, keys, args...).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("safety reserve: %w", err)
	}
	if len(raw) != 4 {
		return Decision{}, fmt.Errorf("safety reserve: unexpected script reply of length %d", len(raw))
	}

	decision := Decision{
		Granted:    toInt64(raw[0]) == 1,
		DailyUsed:  toInt64(raw[2]),
		HourlyUsed: toInt64(raw[3]),
	}
	if !decision.Granted {
		decision.Window, _ = raw[1].(string)
	}
	return decision, nil
}

// CurrentUsage reads the live counters without consuming a reservation.
func (l *RedisLimiter) CurrentUsage(ctx context.Context, campaignID uuid.UUID, channel string) (Usage, error) {
	now := l.now().UTC()
	values, err := l.client.MGet(ctx,
		l.dailyKey(campaignID, channel, now),
		l.hourlyKey(campaignID, channel, now)).Result()
	if err != nil {
		return Usage{}, fmt.Errorf("safety usage: %w", err)
	}
	return Usage{
		DailyUsed:  parseCounter(values[0]),
		HourlyUsed: parseCounter(values[1]),
	}, nil
}

func (l *RedisLimiter) dailyKey(campaignID uuid.UUID, channel string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s:daily:%s", l.keyPrefix, campaignID, channel, now.Format("2006-01-02"))
}

func (l *RedisLimiter) hourlyKey(campaignID uuid.UUID, channel string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s:hourly:%s", l.keyPrefix, campaignID, channel, now.Format("2006-01-02T15"))
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		var parsed int64
		fmt.Sscanf(n, "%d", &parsed)
		return parsed
	default:
		return 0
	}
}

func parseCounter(v any) int64 {
	if v == nil {
		return 0
	}
	return toInt64(v)
}

var _ Limiter = (*RedisLimiter)(nil)
