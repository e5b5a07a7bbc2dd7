package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	camevents "cam_backend/internal/events"
	"cam_backend/internal/leads/repository"
	"cam_backend/internal/pipeline"
	"cam_backend/internal/ledger"
	"cam_backend/internal/review"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

func publishCapVeto(t *testing.T, bus events.Bus, campaignID uuid.UUID, channel string) {
	t.Helper()
	err := bus.PublishSync(context.Background(), camevents.CapExceeded{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: campaignID,
		Channel:    channel,
		Window:     "2026-08-30",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
}

func TestActivityLogCountsCapVetoesPerChannel(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("test"))
	activity := NewActivityLog()
	activity.Register(bus)
	campaignID := uuid.New()

	for i := 0; i < 3; i++ {
		publishCapVeto(t, bus, campaignID, "email")
	}
	publishCapVeto(t, bus, campaignID, "social")

	vetoes := activity.CapVetoes(campaignID)
	if vetoes["email"] != 3 || vetoes["social"] != 1 {
		t.Fatalf("cap vetoes = %v, want email 3 and social 1", vetoes)
	}
	if other := activity.CapVetoes(uuid.New()); len(other) != 0 {
		t.Fatalf("vetoes leaked across campaigns: %v", other)
	}
	if feed := activity.Recent(campaignID); len(feed) != 4 {
		t.Fatalf("activity feed = %d entries, want 4", len(feed))
	}
}

func TestActivityFeedIsBounded(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("test"))
	activity := NewActivityLog()
	activity.Register(bus)
	campaignID := uuid.New()

	for i := 0; i < activityFeedSize+10; i++ {
		publishCapVeto(t, bus, campaignID, "email")
	}

	if feed := activity.Recent(campaignID); len(feed) != activityFeedSize {
		t.Fatalf("activity feed = %d entries, want %d", len(feed), activityFeedSize)
	}
}

func TestDashboardSurfacesDeferredCounts(t *testing.T) {
	store := repository.NewMemoryStore()
	ldg := ledger.NewMemory()
	campaignID := uuid.New()
	ctx := context.Background()

	scheduled := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	execution := ledger.JobExecution{
		ExecutionID: ledger.ExecutionID(pipeline.JobNurture, campaignID, scheduled),
		JobType:     pipeline.JobNurture,
		CampaignID:  campaignID,
		ScheduledAt: scheduled,
	}
	if _, _, err := ldg.TryBegin(ctx, execution); err != nil {
		t.Fatalf("TryBegin: %v", err)
	}
	if err := ldg.Complete(ctx, execution.ExecutionID, 5, 0, 4); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	bus := events.NewInMemoryBus(logger.New("test"))
	activity := NewActivityLog()
	activity.Register(bus)
	publishCapVeto(t, bus, campaignID, "email")

	dashboard := NewDashboard(store, ldg, review.NewMemoryTaskStore(), activity, nil)
	view, err := dashboard.View(ctx, campaignID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	if view.DeferredLastRun[pipeline.JobNurture] != 4 {
		t.Fatalf("deferred last run = %v, want nurture 4", view.DeferredLastRun)
	}
	if view.CapVetoes["email"] != 1 {
		t.Fatalf("cap vetoes = %v, want email 1", view.CapVetoes)
	}
	if len(view.RecentActivity) == 0 {
		t.Fatal("recent activity feed is empty")
	}
}
