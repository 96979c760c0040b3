package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"credit-risk/domain"
	"credit-risk/metrics"
	"credit-risk/ml"
	"credit-risk/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ModelProvider hands out the model to score with. *ml.Holder implements it.
type ModelProvider interface {
	Current() (*ml.Ensemble, error)
}

type Narrator interface {
	Narrate(ctx context.Context, a domain.Assessment) string
}

type AssessmentService struct {
	models   ModelProvider
	repo     repository.AssessmentRepository
	cache    repository.CacheRepository
	narrator Narrator
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewAssessmentService wires the scoring pipeline. cache, narrator and m may be nil.
func NewAssessmentService(
	models ModelProvider,
	repo repository.AssessmentRepository,
	cache repository.CacheRepository,
	narrator Narrator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AssessmentService {
	if cache == nil {
		cache = repository.NewNoopCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{
		models:   models,
		repo:     repo,
		cache:    cache,
		narrator: narrator,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Assess scores one client and explains the score.
func (s *AssessmentService) Assess(ctx context.Context, profile domain.ClientProfile) (domain.Assessment, error) {
	started := time.Now()

	if err := Validate(profile); err != nil {
		s.fail("validation")
		return domain.Assessment{}, err
	}

	model, err := s.models.Current()
	if err != nil {
		s.fail("model_unavailable")
		return domain.Assessment{}, err
	}

	record, err := BuildRecord(profile)
	if err != nil {
		s.fail("validation")
		return domain.Assessment{}, err
	}

	key := cacheKey(model.Fingerprint(), record)
	assessment, hit := s.fromCache(key)
	if !hit {
		assessment, err = s.score(ctx, model, profile, record)
		if err != nil {
			s.fail("scoring")
			return domain.Assessment{}, err
		}
		s.toCache(key, assessment)
	}

	assessment.ID = uuid.NewString()
	assessment.CreatedAt = s.now().UTC()
	assessment.Cached = hit

	// the audit trail is best effort
	if err := s.repo.Save(ctx, assessment); err != nil {
		s.logger.Warn("failed to save assessment", zap.String("id", assessment.ID), zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.Assessments.WithLabelValues(assessment.RiskClass.String()).Inc()
		s.metrics.Duration.Observe(time.Since(started).Seconds())
	}
	s.logger.Debug("assessment completed",
		zap.String("id", assessment.ID),
		zap.String("model_version", assessment.ModelVersion),
		zap.String("risk_class", assessment.RiskClass.String()),
		zap.Float64("probability", assessment.Probability),
		zap.Bool("cached", hit),
	)
	return assessment, nil
}

func (s *AssessmentService) score(
	ctx context.Context,
	model *ml.Ensemble,
	profile domain.ClientProfile,
	record domain.Record,
) (domain.Assessment, error) {
	x, err := model.Encode(record)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("encode record: %w", err)
	}
	label, pRisk, err := model.Predict(x)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("predict: %w", err)
	}
	raw, err := model.RawScore(x)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("predict: %w", err)
	}
	phi, err := model.ShapValues(x)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("explain: %w", err)
	}

	rows, err := DisplayRows(record)
	if err != nil {
		return domain.Assessment{}, err
	}

	features := model.Features()
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = f.Name
	}

	class := domain.RiskClass(label)
	confidence := Confidence(class, pRisk)
	assessment := domain.Assessment{
		ModelVersion: model.Version(),
		Profile:      profile,
		RiskClass:    class,
		RiskLabel:    class.Headline(),
		Probability:  pRisk,
		Confidence:   confidence,
		Summary:      Summary(class, confidence),
		Inputs:       rows,
		Explanation:  BuildExplanation(model.ExpectedValue(), raw, names, phi, rows),
	}
	if s.narrator != nil {
		assessment.Narrative = s.narrator.Narrate(ctx, assessment)
	}
	return assessment, nil
}

func (s *AssessmentService) fromCache(key string) (domain.Assessment, bool) {
	raw, ok := s.cache.Get(key)
	if ok {
		var a domain.Assessment
		if err := json.Unmarshal([]byte(raw), &a); err == nil {
			s.lookup("hit")
			return a, true
		}
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}
	s.lookup("miss")
	return domain.Assessment{}, false
}

func (s *AssessmentService) toCache(key string, a domain.Assessment) {
	payload, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := s.cache.Set(key, string(payload)); err != nil {
		s.logger.Warn("failed to cache assessment", zap.Error(err))
	}
}

// History returns recent assessments, newest first.
func (s *AssessmentService) History(ctx context.Context, limit int) ([]domain.Assessment, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.repo.List(ctx, limit)
}

func (s *AssessmentService) fail(reason string) {
	if s.metrics != nil {
		s.metrics.Failures.WithLabelValues(reason).Inc()
	}
}

func (s *AssessmentService) lookup(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// cacheKey identifies a record scored by a given model content.
func cacheKey(model string, record domain.Record) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	_ = json.NewEncoder(h).Encode(record)
	return "assessment:" + hex.EncodeToString(h.Sum(nil))
}
