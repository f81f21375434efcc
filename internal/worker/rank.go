package worker

import (
	"math"
	"sort"

	"github.com/kailas-cloud/makan/internal/domain"
)

// normalize scales v to unit length in place. Zero vectors are left untouched.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) * inv)
	}
	return v
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type scored struct {
	id    string
	score float64
}

// rankTopK scores every cached embedding against query (linear scan) and returns
// the IDs of the k best, most similar first. Ties keep cache order.
func rankTopK(query []float32, cache []domain.Embedding, k int) []string {
	if k <= 0 || len(cache) == 0 {
		return []string{}
	}

	hits := make([]scored, len(cache))
	for i, e := range cache {
		hits[i] = scored{id: e.DocumentID, score: cosineSimilarity(query, e.Vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if k > len(hits) {
		k = len(hits)
	}
	ids := make([]string, k)
	for i := range ids {
		ids[i] = hits[i].id
	}
	return ids
}
