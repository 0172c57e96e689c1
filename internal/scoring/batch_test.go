package scoring

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hyperjump/essayscore/internal/embedding"
	"github.com/hyperjump/essayscore/internal/metrics"
	"github.com/hyperjump/essayscore/internal/models"
	"github.com/hyperjump/essayscore/internal/modelres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableProvider returns a fixed similarity per student answer.
type tableProvider struct {
	sims  map[string]float64
	fail  map[string]error
	calls []string
}

func (p *tableProvider) Similarity(_ context.Context, key, student string) (float64, error) {
	p.calls = append(p.calls, student)
	if err := p.fail[student]; err != nil {
		return 0, err
	}
	return p.sims[student], nil
}

func (p *tableProvider) ModelID() string { return "table" }
func (p *tableProvider) Close() error    { return nil }

type fixedAcquirer struct {
	provider embedding.Provider
	err      error
	calls    int
}

func (a *fixedAcquirer) Acquire(context.Context) (embedding.Provider, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.provider, nil
}

func newCoordinator(p embedding.Provider) (*Coordinator, *fixedAcquirer) {
	acq := &fixedAcquirer{provider: p}
	return NewCoordinator(NewScorer(acq, WithMetrics(metrics.New())), nil), acq
}

func TestScorer_EmptyAnswersSkipModel(t *testing.T) {
	for _, tc := range []struct{ key, student string }{
		{"Inflation is a rise in prices", ""},
		{"", "anything"},
		{"   ", "anything"},
		{"key", "\n\t "},
	} {
		acq := &fixedAcquirer{err: errors.New("must not be called")}
		out, err := NewScorer(acq).Score(context.Background(), tc.key, tc.student, 20)
		require.NoError(t, err)
		assert.Equal(t, Outcome{Kind: OutcomeEmpty}, out)
		assert.Equal(t, 0, acq.calls)
	}
}

func TestScorer_DegradesOnSimilarityError(t *testing.T) {
	p := &tableProvider{fail: map[string]error{"boom": errors.New("inference failed")}}
	out, err := NewScorer(&fixedAcquirer{provider: p}).Score(context.Background(), "key", "boom", 10)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: OutcomeDegraded}, out)
}

func TestScorer_PropagatesModelUnavailable(t *testing.T) {
	acq := &fixedAcquirer{err: fmt.Errorf("%w: hub offline", modelres.ErrModelUnavailable)}
	_, err := NewScorer(acq).Score(context.Background(), "key", "answer", 10)
	assert.ErrorIs(t, err, modelres.ErrModelUnavailable)
}

func TestScoreBatch_OrderAndTotals(t *testing.T) {
	p := &tableProvider{sims: map[string]float64{"a1": 0.85, "a2": 0.70, "a3": 1.0}}
	c, _ := newCoordinator(p)

	res, err := c.ScoreBatch(context.Background(), []models.ScoringRequest{
		{QuestionID: "q1", KeyAnswer: "k", StudentAnswer: "a1", MaxScore: 20},
		{QuestionID: "q2", KeyAnswer: "k", StudentAnswer: "a2", MaxScore: 10},
		{QuestionID: "q1", KeyAnswer: "k", StudentAnswer: "a3", MaxScore: 20},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 3)

	assert.Equal(t, []string{"a1", "a2", "a3"}, p.calls)
	assert.Equal(t, "q1", res.Results[0].QuestionID)
	assert.Equal(t, "q2", res.Results[1].QuestionID)
	assert.Equal(t, "q1", res.Results[2].QuestionID)
	assert.Equal(t, []int{18, 7, 20}, []int{res.Results[0].FinalScore, res.Results[1].FinalScore, res.Results[2].FinalScore})
	assert.Equal(t, 45, res.TotalScore)
	assert.Equal(t, 50, res.TotalMaxScore)
	assert.Equal(t, models.StatusSuccess, res.Status)
}

func TestScoreBatch_EmptyAndDegradedItems(t *testing.T) {
	p := &tableProvider{
		sims: map[string]float64{"good": 0.85},
		fail: map[string]error{"bad": errors.New("nan")},
	}
	c, _ := newCoordinator(p)

	res, err := c.ScoreBatch(context.Background(), []models.ScoringRequest{
		{QuestionID: "q1", KeyAnswer: "k", StudentAnswer: "", MaxScore: 10},
		{QuestionID: "q2", KeyAnswer: "k", StudentAnswer: "bad", MaxScore: 10},
		{QuestionID: "q3", KeyAnswer: "k", StudentAnswer: "good"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Results[0].FinalScore)
	assert.Equal(t, 0.0, res.Results[0].SimilarityScore)
	assert.Equal(t, 0, res.Results[1].FinalScore)
	assert.Equal(t, 100, res.Results[2].MaxScore)
	assert.Equal(t, 90, res.Results[2].FinalScore)
	assert.Equal(t, 90, res.TotalScore)
	assert.Equal(t, 120, res.TotalMaxScore)
	assert.Equal(t, []string{"bad", "good"}, p.calls)
}

func TestScoreBatch_Empty(t *testing.T) {
	c, acq := newCoordinator(&tableProvider{})
	res, err := c.ScoreBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Results)
	assert.Equal(t, 0, res.TotalScore)
	assert.Equal(t, 0, res.TotalMaxScore)
	assert.Equal(t, 0, acq.calls)
}

func TestScoreBatch_AbortsOnModelUnavailable(t *testing.T) {
	acq := &fixedAcquirer{err: modelres.ErrModelUnavailable}
	c := NewCoordinator(NewScorer(acq), nil)
	_, err := c.ScoreBatch(context.Background(), []models.ScoringRequest{
		{KeyAnswer: "k", StudentAnswer: "s", MaxScore: 10},
	})
	assert.ErrorIs(t, err, modelres.ErrModelUnavailable)
}

func TestScoreBatch_Cancelled(t *testing.T) {
	c, _ := newCoordinator(&tableProvider{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ScoreBatch(ctx, []models.ScoringRequest{{KeyAnswer: "k", StudentAnswer: "s"}})
	assert.ErrorIs(t, err, context.Canceled)
}

// slowProvider blocks until ctx ends, like an embedder that checks ctx.Err.
type slowProvider struct{}

func (slowProvider) Similarity(ctx context.Context, _, _ string) (float64, error) {
	<-ctx.Done()
	return 0, fmt.Errorf("embed: %w", ctx.Err())
}

func (slowProvider) ModelID() string { return "slow" }
func (slowProvider) Close() error    { return nil }

// cancellingProvider succeeds but cancels the caller's context on the way out.
type cancellingProvider struct{ cancel context.CancelFunc }

func (p cancellingProvider) Similarity(context.Context, string, string) (float64, error) {
	p.cancel()
	return 1, nil
}

func (cancellingProvider) ModelID() string { return "cancelling" }
func (cancellingProvider) Close() error    { return nil }

func TestScorer_DeadlineIsNotAZeroGrade(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out, err := NewScorer(&fixedAcquirer{provider: slowProvider{}}).Score(ctx, "same text", "same text", 20)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Outcome{}, out)
}

func TestScoreOne_DeadlinePropagates(t *testing.T) {
	c, _ := newCoordinator(slowProvider{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.ScoreOne(ctx, models.ScoringRequest{KeyAnswer: "k", StudentAnswer: "k", MaxScore: 20})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScoreBatch_CancelledDuringLastAnswer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, _ := newCoordinator(cancellingProvider{cancel: cancel})
	res, err := c.ScoreBatch(ctx, []models.ScoringRequest{{KeyAnswer: "k", StudentAnswer: "s", MaxScore: 10}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestScoreOne_ReportedSimilarity(t *testing.T) {
	p := &tableProvider{sims: map[string]float64{"neg": -0.3, "fine": 0.123456, "over": 1.0000001}}
	c, _ := newCoordinator(p)
	ctx := context.Background()

	r, err := c.ScoreOne(ctx, models.ScoringRequest{KeyAnswer: "k", StudentAnswer: "neg", MaxScore: 10})
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.SimilarityScore)
	assert.Equal(t, 0, r.FinalScore)

	r, err = c.ScoreOne(ctx, models.ScoringRequest{KeyAnswer: "k", StudentAnswer: "fine", MaxScore: 10})
	require.NoError(t, err)
	assert.Equal(t, 0.1235, r.SimilarityScore)

	r, err = c.ScoreOne(ctx, models.ScoringRequest{KeyAnswer: "k", StudentAnswer: "over", MaxScore: 10})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.SimilarityScore)
	assert.Equal(t, 10, r.FinalScore)
}

func TestScoreOne_MockModelIdenticalAnswers(t *testing.T) {
	p := embedding.NewProvider(embedding.NewMockEmbedder(32), "mock")
	c, _ := newCoordinator(p)
	r, err := c.ScoreOne(context.Background(), models.ScoringRequest{
		KeyAnswer:     "Diversification reduces unsystematic risk",
		StudentAnswer: "Diversification reduces unsystematic risk",
		MaxScore:      20,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, r.FinalScore)
	assert.InDelta(t, 1.0, r.SimilarityScore, 1e-4)
}
