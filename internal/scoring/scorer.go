package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/essayscore/internal/embedding"
	"github.com/hyperjump/essayscore/internal/metrics"
	"go.uber.org/zap"
)

// Acquirer hands out the shared embedding provider.
type Acquirer interface {
	Acquire(ctx context.Context) (embedding.Provider, error)
}

// OutcomeKind says how an answer's score was obtained.
type OutcomeKind string

const (
	// OutcomeEmpty means the key or student answer was blank; no model was used.
	OutcomeEmpty OutcomeKind = "empty"
	// OutcomeScored means the similarity was computed and calibrated.
	OutcomeScored OutcomeKind = "scored"
	// OutcomeDegraded means similarity failed and the answer scored zero.
	OutcomeDegraded OutcomeKind = "degraded"
)

// Outcome is the result of scoring one answer. Similarity is the raw provider
// value; callers clamp it for display.
type Outcome struct {
	Similarity float64
	FinalScore int
	Kind       OutcomeKind
}

// Scorer scores one answer against its key.
type Scorer struct {
	models  Acquirer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scorer) { s.metrics = m }
}

// NewScorer returns a Scorer that takes its provider from models.
func NewScorer(models Acquirer, opts ...Option) *Scorer {
	s := &Scorer{models: models, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score compares student to key and calibrates the result to maxScore.
//
// A blank answer on either side scores zero without touching the model. A
// similarity failure also scores zero and is logged. Errors are returned only
// when the model cannot be acquired or ctx ends before similarity completes.
func (s *Scorer) Score(ctx context.Context, key, student string, maxScore int) (Outcome, error) {
	key = strings.TrimSpace(key)
	student = strings.TrimSpace(student)
	if key == "" || student == "" {
		s.metrics.ObserveScore(string(OutcomeEmpty), 0)
		return Outcome{Kind: OutcomeEmpty}, nil
	}

	provider, err := s.models.Acquire(ctx)
	if err != nil {
		return Outcome{}, err
	}

	sim, err := provider.Similarity(ctx, key, student)
	if err != nil {
		// A zero caused by the caller giving up is not a grade.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, fmt.Errorf("similarity interrupted: %w", ctxErr)
		}
		s.logger.Warn("similarity failed, scoring zero",
			zap.String("model_id", provider.ModelID()),
			zap.Error(err),
		)
		s.metrics.ObserveScore(string(OutcomeDegraded), 0)
		return Outcome{Kind: OutcomeDegraded}, nil
	}

	s.metrics.ObserveScore(string(OutcomeScored), sim)
	return Outcome{
		Similarity: sim,
		FinalScore: Calibrate(sim, maxScore),
		Kind:       OutcomeScored,
	}, nil
}
