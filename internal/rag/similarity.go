package rag

import (
	"math"
	"sort"

	"github.com/cozee/docchat/internal/model"
)

// CosineSimilarity scores two vectors by the angle between them. Returns 0
// for mismatched lengths or when either vector has zero norm.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

type ScoredVector struct {
	Vector *model.Vector
	Score  float32
}

// Rank scores every candidate against the query embedding and returns the
// top k, highest first. Ties keep the candidates' input order. Brute force
// over all candidates; callers own any future index. k <= 0 yields nil.
func Rank(query []float32, candidates []*model.Vector, k int) []ScoredVector {
	if k <= 0 {
		return nil
	}
	scored := make([]ScoredVector, 0, len(candidates))
	for _, v := range candidates {
		scored = append(scored, ScoredVector{Vector: v, Score: CosineSimilarity(query, v.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}
