package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	camevents "cam_backend/internal/events"
	"cam_backend/platform/events"
)

// activityFeedSize bounds the per-campaign entry ring.
const activityFeedSize = 50

// ActivityEntry is one line of the dashboard's recent-activity feed.
type ActivityEntry struct {
	At     time.Time `json:"at"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
}

// ActivityLog subscribes to the domain event bus and keeps a bounded
// in-process account of recent pipeline activity per campaign: cap-veto
// counters per channel plus a newest-last feed of what happened. It is the
// dashboard's read path for events that never touch storage.
type ActivityLog struct {
	mu        sync.Mutex
	capVetoes map[uuid.UUID]map[string]int
	entries   map[uuid.UUID][]ActivityEntry
}

// NewActivityLog creates an empty activity log.
func NewActivityLog() *ActivityLog {
	return &ActivityLog{
		capVetoes: make(map[uuid.UUID]map[string]int),
		entries:   make(map[uuid.UUID][]ActivityEntry),
	}
}

// Register subscribes the log to every event kind it aggregates.
func (a *ActivityLog) Register(bus events.Bus) {
	bus.Subscribe(camevents.CapExceededName, events.HandlerFunc(a.onCapExceeded))
	bus.Subscribe(camevents.JobCompletedName, events.HandlerFunc(a.onJobCompleted))
	bus.Subscribe(camevents.LeadTransitionedName, events.HandlerFunc(a.onLeadTransitioned))
	bus.Subscribe(camevents.ReviewResolvedName, events.HandlerFunc(a.onReviewResolved))
	bus.Subscribe(camevents.ReplyReceivedName, events.HandlerFunc(a.onReplyReceived))
}

// CapVetoes returns the per-channel veto counts recorded for a campaign
// since process start.
func (a *ActivityLog) CapVetoes(campaignID uuid.UUID) map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	counts := make(map[string]int, len(a.capVetoes[campaignID]))
	for channel, n := range a.capVetoes[campaignID] {
		counts[channel] = n
	}
	return counts
}

// Recent returns the campaign's activity feed, newest last.
func (a *ActivityLog) Recent(campaignID uuid.UUID) []ActivityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ActivityEntry(nil), a.entries[campaignID]...)
}

func (a *ActivityLog) onCapExceeded(_ context.Context, event events.Event) error {
	capped, ok := event.(camevents.CapExceeded)
	if !ok {
		return nil
	}

	a.mu.Lock()
	if a.capVetoes[capped.CampaignID] == nil {
		a.capVetoes[capped.CampaignID] = make(map[string]int)
	}
	a.capVetoes[capped.CampaignID][capped.Channel]++
	a.mu.Unlock()

	a.record(capped.CampaignID, event.OccurredAt(), "cap_veto",
		fmt.Sprintf("outreach on %s deferred, window %s full", capped.Channel, capped.Window))
	return nil
}

func (a *ActivityLog) onJobCompleted(_ context.Context, event events.Event) error {
	job, ok := event.(camevents.JobCompleted)
	if !ok {
		return nil
	}
	a.record(job.CampaignID, event.OccurredAt(), "job",
		fmt.Sprintf("%s %s: %d processed, %d errored, %d deferred",
			job.JobType, job.Status, job.Processed, job.Errored, job.Deferred))
	return nil
}

func (a *ActivityLog) onLeadTransitioned(_ context.Context, event events.Event) error {
	moved, ok := event.(camevents.LeadTransitioned)
	if !ok {
		return nil
	}
	a.record(moved.CampaignID, event.OccurredAt(), "transition",
		fmt.Sprintf("lead %s: %s to %s (%s)", moved.LeadID, moved.FromStatus, moved.ToStatus, moved.Reason))
	return nil
}

func (a *ActivityLog) onReviewResolved(_ context.Context, event events.Event) error {
	resolved, ok := event.(camevents.ReviewResolved)
	if !ok {
		return nil
	}
	a.record(resolved.CampaignID, event.OccurredAt(), "review",
		fmt.Sprintf("lead %s %s by operator", resolved.LeadID, resolved.Resolution))
	return nil
}

func (a *ActivityLog) onReplyReceived(_ context.Context, event events.Event) error {
	reply, ok := event.(camevents.ReplyReceived)
	if !ok {
		return nil
	}
	a.record(reply.CampaignID, event.OccurredAt(), "reply",
		fmt.Sprintf("lead %s replied, classified %s", reply.LeadID, reply.Classification))
	return nil
}

func (a *ActivityLog) record(campaignID uuid.UUID, at time.Time, kind, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	feed := append(a.entries[campaignID], ActivityEntry{At: at, Kind: kind, Detail: detail})
	if len(feed) > activityFeedSize {
		feed = feed[len(feed)-activityFeedSize:]
	}
	a.entries[campaignID] = feed
}
