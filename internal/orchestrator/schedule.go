// Package orchestrator is the top-level scheduler. It decides which jobs are
// due each tick, gates every run through the execution ledger, and drives the
// stage processors over bounded batches.
package orchestrator

import (
	"time"

	"cam_backend/internal/pipeline"
)

// Schedule defines the cadence of one job type. ScheduledTimeFor truncates
// the clock to the interval, so every tick inside a window derives the same
// scheduled time and therefore the same execution id.
type Schedule struct {
	JobType  string
	Interval time.Duration
}

// ScheduledTimeFor returns the window boundary the given instant falls in.
func (s Schedule) ScheduledTimeFor(now time.Time) time.Time {
	return now.UTC().Truncate(s.Interval)
}

// NextRunAfter returns the boundary of the window after the given instant.
func (s Schedule) NextRunAfter(now time.Time) time.Time {
	return s.ScheduledTimeFor(now).Add(s.Interval)
}

// DefaultSchedules staggers the stages: upstream stages run less often than
// downstream ones, so the pipeline drains faster than it fills.
func DefaultSchedules() []Schedule {
	return []Schedule{
		{JobType: pipeline.JobHarvest, Interval: 6 * time.Hour},
		{JobType: pipeline.JobScore, Interval: time.Hour},
		{JobType: pipeline.JobQualify, Interval: time.Hour},
		{JobType: pipeline.JobRoute, Interval: 30 * time.Minute},
		{JobType: pipeline.JobNurture, Interval: 15 * time.Minute},
	}
}
