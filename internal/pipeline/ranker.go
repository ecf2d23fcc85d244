package pipeline

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/providers/embed"
)

// Ranker annotates segments with a relevance score in [0,1] and returns
// them ordered by descending score. Scoring is an embedding-variance
// heuristic; the contract is what matters: the output is a permutation of
// the input, ties keep chronological order, and when embeddings are
// unavailable the input comes back unchanged rather than erroring.
type Ranker struct {
	Embedder embed.Embedder
	Log      *logrus.Logger
}

func (r *Ranker) Rank(ctx context.Context, segments []models.Segment) []models.Segment {
	if len(segments) == 0 || r.Embedder == nil {
		return segments
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	vecs, err := r.Embedder.Embed(ctx, texts)
	if err != nil || len(vecs) != len(segments) {
		if r.Log != nil && err != nil {
			r.Log.WithError(err).Warn("segment ranking degraded to no-op")
		}
		return segments
	}

	scores := make([]float64, len(segments))
	for i, v := range vecs {
		scores[i] = variance(v)
	}
	normalize(scores)

	out := make([]models.Segment, len(segments))
	copy(out, segments)
	for i := range out {
		out[i].RelevanceScore = scores[i]
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].RelevanceScore > out[b].RelevanceScore
	})
	return out
}

func variance(v []float32) float64 {
	if len(v) == 0 {
		return 0
	}
	var mean float64
	for _, x := range v {
		mean += float64(x)
	}
	mean /= float64(len(v))

	var sum float64
	for _, x := range v {
		d := float64(x) - mean
		sum += d * d
	}
	return sum / float64(len(v))
}

// normalize min-max scales scores into [0,1] in place. A constant batch
// maps to 1.0 everywhere; no division by zero.
func normalize(scores []float64) {
	if len(scores) == 0 {
		return
	}
	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if max == min {
		for i := range scores {
			scores[i] = 1.0
		}
		return
	}
	for i := range scores {
		scores[i] = (scores[i] - min) / (max - min)
	}
}
