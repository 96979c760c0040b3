package repository

import (
	"context"
	"sync"

	"credit-risk/domain"
)

// AssessmentRepositoryMemory is an in-memory implementation of AssessmentRepository.
type AssessmentRepositoryMemory struct {
	mu   sync.RWMutex
	data []domain.Assessment
}

// NewAssessmentRepositoryMemory creates a new in-memory assessment repository.
func NewAssessmentRepositoryMemory() *AssessmentRepositoryMemory {
	return &AssessmentRepositoryMemory{
		data: []domain.Assessment{},
	}
}

// Save stores the assessment in memory.
func (r *AssessmentRepositoryMemory) Save(
	_ context.Context,
	assessment domain.Assessment,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = append(r.data, assessment)
	return nil
}

func (r *AssessmentRepositoryMemory) List(_ context.Context, limit int) ([]domain.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.data)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Assessment, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.data[i])
	}
	return out, nil
}
