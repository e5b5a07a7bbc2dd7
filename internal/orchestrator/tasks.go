package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TaskJobRun carries one scheduled job run to the worker.
const TaskJobRun = "cam.job.run"

// JobRunPayload identifies one (jobType, campaign, window) run.
type JobRunPayload struct {
	JobType     string    `json:"jobType"`
	CampaignID  string    `json:"campaignId"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

func NewJobRunTask(payload JobRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskJobRun, data), nil
}

func ParseJobRunPayload(task *asynq.Task) (JobRunPayload, error) {
	var payload JobRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return JobRunPayload{}, err
	}
	return payload, nil
}
