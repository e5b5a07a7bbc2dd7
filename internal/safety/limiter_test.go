package safety

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cam_backend/internal/campaigns"
)

func newTestLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, "test:safety"), mr
}

func TestReserveGrantsUpToCap(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	campaignID := uuid.New()
	cap := campaigns.ChannelCap{DailyCap: 3, HourlyCap: 10}

	for i := 0; i < 3; i++ {
		decision, err := limiter.Reserve(ctx, campaignID, campaigns.ChannelEmail, cap)
		if err != nil {
			t.Fatalf("Reserve %d: %v", i, err)
		}
		if !decision.Granted {
			t.Fatalf("Reserve %d denied below cap", i)
		}
	}

	decision, err := limiter.Reserve(ctx, campaignID, campaigns.ChannelEmail, cap)
	if err != nil {
		t.Fatalf("Reserve over cap: %v", err)
	}
	if decision.Granted {
		t.Fatal("reservation granted past daily cap")
	}
	if decision.Window != WindowDaily {
		t.Fatalf("denied window = %q, want %q", decision.Window, WindowDaily)
	}
	if decision.DailyUsed != 3 {
		t.Fatalf("daily used = %d, want 3", decision.DailyUsed)
	}
}

func TestReserveHourlyCapTripsFirst(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	campaignID := uuid.New()
	cap := campaigns.ChannelCap{DailyCap: 100, HourlyCap: 2}

	for i := 0; i < 2; i++ {
		decision, err := limiter.Reserve(ctx, campaignID, campaigns.ChannelEmail, cap)
		if err != nil || !decision.Granted {
			t.Fatalf("Reserve %d: granted=%v err=%v", i, decision.Granted, err)
		}
	}

	decision, err := limiter.Reserve(ctx, campaignID, campaigns.ChannelEmail, cap)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if decision.Granted || decision.Window != WindowHourly {
		t.Fatalf("decision = %+v, want hourly denial", decision)
	}
}

func TestReserveZeroCapIsUnlimited(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	campaignID := uuid.New()
	cap := campaigns.ChannelCap{DailyCap: 0, HourlyCap: 0}

	for i := 0; i < 50; i++ {
		decision, err := limiter.Reserve(ctx, campaignID, campaigns.ChannelSocial, cap)
		if err != nil {
			t.Fatalf("Reserve %d: %v", i, err)
		}
		if !decision.Granted {
			t.Fatalf("Reserve %d denied with no cap configured", i)
		}
	}
}

func TestReserveConcurrentNeverOversells(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	campaignID := uuid.New()
	cap := campaigns.ChannelCap{DailyCap: 1, HourlyCap: 1}

	const attempts = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.Reserve(ctx, campaignID, campaigns.ChannelEmail, cap)
			if err != nil {
				t.Errorf("Reserve: %v", err)
				return
			}
			if decision.Granted {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 1 {
		t.Fatalf("%d concurrent reservations granted with cap 1, want exactly 1", granted)
	}
}

func TestReserveIndependentPerChannelAndCampaign(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()
	cap := campaigns.ChannelCap{DailyCap: 1, HourlyCap: 1}

	if d, err := limiter.Reserve(ctx, first, campaigns.ChannelEmail, cap); err != nil || !d.Granted {
		t.Fatalf("first campaign email: granted=%v err=%v", d.Granted, err)
	}
	// Same campaign, different channel: separate counter.
	if d, err := limiter.Reserve(ctx, first, campaigns.ChannelSocial, cap); err != nil || !d.Granted {
		t.Fatalf("first campaign social: granted=%v err=%v", d.Granted, err)
	}
	// Different campaign, same channel: separate counter.
	if d, err := limiter.Reserve(ctx, second, campaigns.ChannelEmail, cap); err != nil || !d.Granted {
		t.Fatalf("second campaign email: granted=%v err=%v", d.Granted, err)
	}
	// Original counter is exhausted.
	if d, err := limiter.Reserve(ctx, first, campaigns.ChannelEmail, cap); err != nil || d.Granted {
		t.Fatalf("first campaign email repeat: granted=%v err=%v", d.Granted, err)
	}
}

func TestReserveWindowRollsOverByClock(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	campaignID := uuid.New()
	cap := campaigns.ChannelCap{DailyCap: 100, HourlyCap: 1}

	base := time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	if d, err := limiter.Reserve(ctx, campaignID, campaigns.ChannelEmail, cap); err != nil || !d.Granted {
		t.Fatalf("first reserve: granted=%v err=%v", d.Granted, err)
	}
	if d, err := limiter.Reserve(ctx, campaignID, campaigns.ChannelEmail, cap); err != nil || d.Granted {
		t.Fatalf("second reserve in window: granted=%v err=%v", d.Granted, err)
	}

	// Next hour is a new key, so the hourly counter starts over.
	limiter.now = func() time.Time { return base.Add(time.Hour) }
	if d, err := limiter.Reserve(ctx, campaignID, campaigns.ChannelEmail, cap); err != nil || !d.Granted {
		t.Fatalf("reserve after rollover: granted=%v err=%v", d.Granted, err)
	}
}

func TestCurrentUsageReflectsReservations(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	campaignID := uuid.New()
	cap := campaigns.ChannelCap{DailyCap: 10, HourlyCap: 10}

	usage, err := limiter.CurrentUsage(ctx, campaignID, campaigns.ChannelEmail)
	if err != nil {
		t.Fatalf("CurrentUsage: %v", err)
	}
	if usage.DailyUsed != 0 || usage.HourlyUsed != 0 {
		t.Fatalf("fresh usage = %+v, want zeros", usage)
	}

	for i := 0; i < 4; i++ {
		if _, err := limiter.Reserve(ctx, campaignID, campaigns.ChannelEmail, cap); err != nil {
			t.Fatalf("Reserve %d: %v", i, err)
		}
	}

	usage, err = limiter.CurrentUsage(ctx, campaignID, campaigns.ChannelEmail)
	if err != nil {
		t.Fatalf("CurrentUsage: %v", err)
	}
	if usage.DailyUsed != 4 || usage.HourlyUsed != 4 {
		t.Fatalf("usage = %+v, want 4/4", usage)
	}
}
