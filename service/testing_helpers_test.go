package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"credit-risk/domain"
	"credit-risk/ml"

	"github.com/stretchr/testify/require"
)

const sampleModelPath = "../models/credit_risk.json"

func loadSampleModel(t *testing.T) *ml.Ensemble {
	t.Helper()
	model, err := ml.LoadModel(sampleModelPath)
	require.NoError(t, err)
	return model
}

type MockAssessmentRepository struct {
	mu         sync.Mutex
	SaveCalled int
	ForceError bool
	Saved      []domain.Assessment
}

func (m *MockAssessmentRepository) Save(_ context.Context, a domain.Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalled++
	if m.ForceError {
		return errors.New("save error")
	}
	m.Saved = append(m.Saved, a)
	return nil
}

func (m *MockAssessmentRepository) List(_ context.Context, limit int) ([]domain.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Assessment{}
	for i := len(m.Saved) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.Saved[i])
	}
	return out, nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string]string{}}
}

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

type countingNarrator struct {
	calls int
}

func (n *countingNarrator) Narrate(_ context.Context, a domain.Assessment) string {
	n.calls++
	return "narrative for " + a.RiskLabel
}

// riskyProfile scores as high risk with the sample model (raw 3.08).
func riskyProfile() domain.ClientProfile {
	return domain.ClientProfile{
		Age:             22,
		Income:          1800,
		Children:        "4+",
		CreditHistory:   "No History",
		OverduePayments: "4+ Late Payments",
		ActiveLoans:     3,
		YearsInJob:      0,
		EmploymentType:  "None",
		OwnsProperty:    "No",
		AssetsValue:     0,
		OtherLoans:      2,
		Education:       "Primary",
		City:            "Small",
		MaritalStatus:   "Divorced",
	}
}
