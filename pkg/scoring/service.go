// Package scoring serves churn probabilities for customer profiles from a
// stored pipeline artifact.
package scoring

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"telcochurn/pkg/apperr"
	"telcochurn/pkg/artifact"
	"telcochurn/pkg/metrics"
	"telcochurn/pkg/pipeline"
)

// ErrModelUnavailable matches any error carrying the MODEL_UNAVAILABLE code.
var ErrModelUnavailable = &apperr.Error{Code: apperr.CodeModelUnavailable}

// Risk is the display band of a churn probability.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskModerate Risk = "moderate"
	RiskHigh     Risk = "high"
)

// RiskLevel bands a probability: above 0.5 is high, above 0.25 moderate.
func RiskLevel(p float64) Risk {
	switch {
	case p > 0.5:
		return RiskHigh
	case p > 0.25:
		return RiskModerate
	default:
		return RiskLow
	}
}

// Result is one scored profile.
type Result struct {
	Probability float64 `json:"probability"`
	Risk        Risk    `json:"risk"`
	ModelID     string  `json:"model_id"`
}

// Service scores profiles against the currently loaded pipeline.
type Service struct {
	store artifact.Store
	name  string
	log   *zap.Logger

	current atomic.Pointer[pipeline.Pipeline]
}

func NewService(store artifact.Store, name string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if name == "" {
		name = artifact.DefaultName
	}
	return &Service{store: store, name: name, log: log}
}

// Load fetches the artifact. A failed load keeps the previously loaded
// pipeline, if any, and returns a MODEL_UNAVAILABLE error.
func (s *Service) Load(ctx context.Context) error {
	p, err := artifact.Load(ctx, s.store, s.name)
	if err != nil {
		metrics.ModelReloads.WithLabelValues("failed").Inc()
		s.log.Error("model load failed",
			zap.String("location", s.store.Location(s.name)),
			zap.Error(err),
		)
		return apperr.NewModelUnavailableError(err)
	}
	s.current.Store(p)
	metrics.ModelReloads.WithLabelValues("loaded").Inc()
	s.log.Info("model loaded",
		zap.String("location", s.store.Location(s.name)),
		zap.String("model_id", p.Meta.ID),
		zap.Time("trained_at", p.Meta.CreatedAt),
	)
	return nil
}

// Reload is Load under the name used by the admin surface.
func (s *Service) Reload(ctx context.Context) error { return s.Load(ctx) }

// Use installs an in-memory pipeline, bypassing the store.
func (s *Service) Use(p *pipeline.Pipeline) { s.current.Store(p) }

// Pipeline returns the loaded pipeline or nil.
func (s *Service) Pipeline() *pipeline.Pipeline { return s.current.Load() }

func (s *Service) Loaded() bool { return s.current.Load() != nil }

// Score validates a request mapping and scores it.
func (s *Service) Score(ctx context.Context, in map[string]any) (Result, error) {
	p, err := ParseProfile(in)
	if err != nil {
		metrics.ScoreFailures.WithLabelValues(string(apperr.CodeOf(err))).Inc()
		return Result{}, err
	}
	return s.ScoreProfile(ctx, p)
}

// ScoreProfile scores an already validated profile.
func (s *Service) ScoreProfile(_ context.Context, prof Profile) (Result, error) {
	start := time.Now()
	p := s.current.Load()
	if p == nil {
		metrics.ScoreFailures.WithLabelValues(string(apperr.CodeModelUnavailable)).Inc()
		return Result{}, apperr.NewModelUnavailableError(nil)
	}

	proba, err := p.PredictProba(prof.Features())
	if err != nil {
		metrics.ScoreFailures.WithLabelValues(string(apperr.CodeOf(err))).Inc()
		return Result{}, err
	}

	res := Result{Probability: proba, Risk: RiskLevel(proba), ModelID: p.Meta.ID}
	metrics.ScoresTotal.WithLabelValues(string(res.Risk)).Inc()
	metrics.ScoreDuration.Observe(time.Since(start).Seconds())
	return res, nil
}
