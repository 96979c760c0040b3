package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"credit-risk/domain"
	"credit-risk/metrics"
	"credit-risk/ml"
	"credit-risk/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, repo *MockAssessmentRepository) (*AssessmentService, *countingNarrator, *metrics.Metrics) {
	t.Helper()
	narrator := &countingNarrator{}
	m := metrics.New()
	svc := NewAssessmentService(ml.NewStaticHolder(loadSampleModel(t)), repo, newMapCache(), narrator, m, nil)
	return svc, narrator, m
}

func TestAssess_DefaultProfileIsLowRisk(t *testing.T) {
	repo := &MockAssessmentRepository{}
	svc, narrator, m := newTestService(t, repo)

	a, err := svc.Assess(context.Background(), domain.DefaultProfile())
	require.NoError(t, err)

	assert.Equal(t, domain.LowRisk, a.RiskClass)
	assert.InDelta(t, 0.186942, a.Probability, 1e-5)
	assert.InDelta(t, 1-a.Probability, a.Confidence, 1e-12)
	assert.Equal(t, "Low Risk Client (Probability: 81.31%)", a.Summary)
	assert.Equal(t, "2024.06-demo", a.ModelVersion)
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.Cached)
	assert.Equal(t, "narrative for Low Risk Client", a.Narrative)
	assert.Equal(t, 1, narrator.calls)
	assert.Equal(t, 1, repo.SaveCalled)
	assert.Len(t, a.Inputs, len(domain.Schema))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Assessments.WithLabelValues("low")))
}

func TestAssess_RiskyProfileIsHighRisk(t *testing.T) {
	svc, _, _ := newTestService(t, &MockAssessmentRepository{})

	a, err := svc.Assess(context.Background(), riskyProfile())
	require.NoError(t, err)

	assert.Equal(t, domain.HighRisk, a.RiskClass)
	assert.Equal(t, "High Risk Client", a.RiskLabel)
	assert.InDelta(t, 0.956061, a.Probability, 1e-5)
	assert.Equal(t, a.Probability, a.Confidence)
	assert.Equal(t, "High Risk Client (Probability: 95.61%)", a.Summary)
}

func TestAssess_ExplanationAddsUpToOutput(t *testing.T) {
	svc, _, _ := newTestService(t, &MockAssessmentRepository{})

	a, err := svc.Assess(context.Background(), riskyProfile())
	require.NoError(t, err)

	ex := a.Explanation
	assert.InDelta(t, -1.2289944444444445, ex.BaseValue, 1e-9)
	assert.InDelta(t, 3.08, ex.OutputValue, 1e-9)

	sum := ex.BaseValue
	for _, v := range ex.Values {
		sum += v
	}
	assert.InDelta(t, ex.OutputValue, sum, 1e-9)
	assert.InDelta(t, 1.5811, ex.Values[domain.FieldOverduePayments], 1e-4)

	require.Len(t, ex.Contributions, MaxDisplayFeatures)
	assert.Equal(t, "5 other features", ex.Contributions[MaxDisplayFeatures-1].Feature)
	assert.InDelta(t, ex.OutputValue, ex.Contributions[0].End, 1e-9)
	assert.InDelta(t, ex.BaseValue, ex.Contributions[MaxDisplayFeatures-1].Start, 1e-9)

	top := ex.Contributions[0]
	assert.Equal(t, "Overdue Payments", top.Feature)
	assert.Equal(t, "4+ Late Payments", top.Value)
}

func TestAssess_InputsKeepFormValues(t *testing.T) {
	svc, _, _ := newTestService(t, &MockAssessmentRepository{})
	profile := riskyProfile()

	a, err := svc.Assess(context.Background(), profile)
	require.NoError(t, err)

	for _, row := range a.Inputs {
		if v, ok := profile.Option(row.Field); ok {
			assert.Equal(t, v, row.Value, row.Field)
		}
	}
	assert.Equal(t, profile, a.Profile)
}

func TestAssess_ValidationError(t *testing.T) {
	repo := &MockAssessmentRepository{}
	svc, _, m := newTestService(t, repo)

	profile := domain.DefaultProfile()
	profile.Age = 17

	_, err := svc.Assess(context.Background(), profile)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOutOfRange))

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.FieldAge, verr.Field)
	assert.Equal(t, 0, repo.SaveCalled)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("validation")))
}

func TestAssess_UnknownOption(t *testing.T) {
	svc, _, _ := newTestService(t, &MockAssessmentRepository{})

	profile := domain.DefaultProfile()
	profile.City = "Huge"

	_, err := svc.Assess(context.Background(), profile)
	assert.True(t, errors.Is(err, domain.ErrUnknownLabel))
}

func TestAssess_SaveErrorIsNotFatal(t *testing.T) {
	repo := &MockAssessmentRepository{ForceError: true}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Assess(context.Background(), domain.DefaultProfile())
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.SaveCalled)
}

func TestAssess_CacheHit(t *testing.T) {
	repo := &MockAssessmentRepository{}
	svc, narrator, m := newTestService(t, repo)

	first, err := svc.Assess(context.Background(), riskyProfile())
	require.NoError(t, err)
	second, err := svc.Assess(context.Background(), riskyProfile())
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Probability, second.Probability)
	assert.Equal(t, first.Explanation, second.Explanation)
	assert.Equal(t, 1, narrator.calls)
	assert.Equal(t, 2, repo.SaveCalled)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
}

func TestAssess_NoModel(t *testing.T) {
	svc := NewAssessmentService(ml.NewStaticHolder(nil), &MockAssessmentRepository{}, nil, nil, nil, nil)

	_, err := svc.Assess(context.Background(), domain.DefaultProfile())
	assert.True(t, errors.Is(err, domain.ErrModelNotLoaded))
}

func TestHistory_ClampsLimit(t *testing.T) {
	repo := &MockAssessmentRepository{}
	svc, _, _ := newTestService(t, repo)

	for i := 0; i < 3; i++ {
		_, err := svc.Assess(context.Background(), domain.DefaultProfile())
		require.NoError(t, err)
	}

	all, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	one, err := svc.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, repo.Saved[2].ID, one[0].ID)
}

func TestCacheKey_DependsOnModelAndRecord(t *testing.T) {
	a, err := BuildRecord(domain.DefaultProfile())
	require.NoError(t, err)
	b, err := BuildRecord(riskyProfile())
	require.NoError(t, err)

	assert.Equal(t, cacheKey("v1", a), cacheKey("v1", a))
	assert.NotEqual(t, cacheKey("v1", a), cacheKey("v2", a))
	assert.NotEqual(t, cacheKey("v1", a), cacheKey("v1", b))
}

func TestAssess_ReloadedModelWithSameVersionMissesCache(t *testing.T) {
	payload, err := os.ReadFile(sampleModelPath)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	holder, err := ml.NewHolder(path, nil)
	require.NoError(t, err)
	svc := NewAssessmentService(holder, &MockAssessmentRepository{}, repository.NewLRUCache(16, time.Minute), &countingNarrator{}, nil, nil)

	first, err := svc.Assess(context.Background(), domain.DefaultProfile())
	require.NoError(t, err)
	assert.Equal(t, domain.LowRisk, first.RiskClass)

	var artifact map[string]any
	require.NoError(t, json.Unmarshal(payload, &artifact))
	artifact["bias"] = 5.0
	changed, err := json.Marshal(artifact)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, changed, 0o644))
	require.NoError(t, holder.Reload())

	second, err := svc.Assess(context.Background(), domain.DefaultProfile())
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.Equal(t, first.ModelVersion, second.ModelVersion)
	assert.Equal(t, domain.HighRisk, second.RiskClass)
	assert.Greater(t, second.Probability, 0.95)
}
