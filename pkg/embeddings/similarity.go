package embeddings

import "math"

// Score is the similarity of one target to a query.
type Score struct {
	Target string  `json:"target"`
	Value  float64 `json:"score"`
}

// CosineSimilarity returns the cosine of the angle between a and b. Vectors
// of different length or with zero magnitude score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Best returns the highest score. Ties go to the earliest entry. ok is false
// for an empty slice.
func Best(scores []Score) (best Score, ok bool) {
	for i, s := range scores {
		if i == 0 || s.Value > best.Value {
			best = s
		}
	}
	return best, len(scores) > 0
}

// Select returns the best target when its score reaches threshold.
func Select(scores []Score, threshold float64) (string, bool) {
	best, ok := Best(scores)
	if !ok || best.Value < threshold {
		return "", false
	}
	return best.Target, true
}
