package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/essayscore/internal/embedding"
	"github.com/hyperjump/essayscore/internal/models"
	"github.com/hyperjump/essayscore/internal/scoring"
	"github.com/hyperjump/essayscore/internal/vector"
)

type staticAcquirer struct{ p embedding.Provider }

func (a staticAcquirer) Acquire(context.Context) (embedding.Provider, error) { return a.p, nil }

func BenchmarkCalibrate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = scoring.Calibrate(float64(i%1000)/1000, 20)
	}
}

func BenchmarkCosine384(b *testing.B) {
	a := make([]float32, 384)
	c := make([]float32, 384)
	for i := range a {
		a[i] = float32(i) / 384
		c[i] = float32(384-i) / 384
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = vector.Cosine(a, c)
	}
}

func BenchmarkScoreBatch_Mock(b *testing.B) {
	p := embedding.NewProvider(embedding.NewMockEmbedder(384), "mock")
	coord := scoring.NewCoordinator(scoring.NewScorer(staticAcquirer{p}), nil)
	reqs := make([]models.ScoringRequest, 50)
	for i := range reqs {
		reqs[i] = models.ScoringRequest{
			QuestionID:    fmt.Sprintf("q%d", i),
			KeyAnswer:     "Diversification lowers unsystematic risk across a portfolio",
			StudentAnswer: fmt.Sprintf("answer number %d about spreading risk", i),
			MaxScore:      20,
		}
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := coord.ScoreBatch(ctx, reqs); err != nil {
			b.Fatal(err)
		}
	}
}
