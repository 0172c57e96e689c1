package scoring

import (
	"context"
	"fmt"

	"github.com/hyperjump/essayscore/internal/models"
	"github.com/hyperjump/essayscore/pkg/utils"
	"go.uber.org/zap"
)

// similarityPlaces is the precision of reported similarity scores.
const similarityPlaces = 4

// Coordinator scores exams answer by answer, in request order.
type Coordinator struct {
	scorer *Scorer
	logger *zap.Logger
}

// NewCoordinator returns a Coordinator backed by scorer.
func NewCoordinator(scorer *Scorer, logger *zap.Logger) *Coordinator {
	return &Coordinator{scorer: scorer, logger: utils.OrNop(logger)}
}

// ScoreOne scores a single request after applying defaults.
func (c *Coordinator) ScoreOne(ctx context.Context, req models.ScoringRequest) (models.ScoringResult, error) {
	req.Normalize()
	out, err := c.scorer.Score(ctx, req.KeyAnswer, req.StudentAnswer, req.MaxScore)
	if err != nil {
		return models.ScoringResult{}, err
	}
	return models.ScoringResult{
		QuestionID:      req.QuestionID,
		SimilarityScore: ReportedSimilarity(out.Similarity),
		FinalScore:      out.FinalScore,
		MaxScore:        req.MaxScore,
	}, nil
}

// ScoreBatch scores reqs sequentially. Results keep the input order and the
// totals are running sums of the per-answer scores. A failure to acquire the
// model or a cancelled ctx aborts the batch; every other failure scores the
// affected answer zero.
func (c *Coordinator) ScoreBatch(ctx context.Context, reqs []models.ScoringRequest) (*models.BatchResult, error) {
	result := &models.BatchResult{
		Results: make([]models.ScoringResult, 0, len(reqs)),
		Status:  models.StatusSuccess,
	}
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch aborted at answer %d: %w", i, err)
		}
		r, err := c.ScoreOne(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("answer %d: %w", i, err)
		}
		result.Results = append(result.Results, r)
		result.TotalScore += r.FinalScore
		result.TotalMaxScore += r.MaxScore
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch aborted after %d answers: %w", len(reqs), err)
	}
	c.logger.Debug("batch scored",
		zap.Int("answers", len(reqs)),
		zap.Int("total_score", result.TotalScore),
		zap.Int("total_max_score", result.TotalMaxScore),
	)
	return result, nil
}

// ReportedSimilarity clamps a raw similarity to [0, 1] and rounds it for display.
func ReportedSimilarity(sim float64) float64 {
	return utils.RoundTo(utils.Clamp(sim, 0, 1), similarityPlaces)
}
