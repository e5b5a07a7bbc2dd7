package review

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTaskStore is an in-process TaskStore for tests and local development.
type MemoryTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]Task
}

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[uuid.UUID]Task)}
}

func (s *MemoryTaskStore) Upsert(_ context.Context, task Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.LeadID]
	if ok {
		task.ID = existing.ID
	} else if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.CreatedAt = time.Now().UTC()
	s.tasks[task.LeadID] = task
	return task, nil
}

func (s *MemoryTaskStore) GetByLeadID(_ context.Context, leadID uuid.UUID) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[leadID]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return task, nil
}

func (s *MemoryTaskStore) ListPending(_ context.Context, campaignID *uuid.UUID, limit int) ([]Task, error) {
	if limit < 1 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var results []Task
	for _, task := range s.tasks {
		if campaignID == nil || task.CampaignID == *campaignID {
			results = append(results, task)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryTaskStore) Delete(_ context.Context, leadID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[leadID]; !ok {
		return ErrTaskNotFound
	}
	delete(s.tasks, leadID)
	return nil
}

var _ TaskStore = (*MemoryTaskStore)(nil)
