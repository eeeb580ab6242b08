package search

// minMaxNormalize maps raw scores onto [0,1] by min-max scaling over the
// candidate set of a single query (a local renormalization, not a
// corpus-global one). Identical raw scores can therefore normalize
// differently across queries; that is intentional and must be preserved
// for reproducible fixtures.
//
// A single candidate, or a zero score range, collapses every normalized
// score to 1.0 to avoid division by zero.
func minMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return []float64{}
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

	normalized := make([]float64, len(scores))
	if max == min {
		for i := range normalized {
			normalized[i] = 1.0
		}
		return normalized
	}

	span := max - min
	for i, s := range scores {
		normalized[i] = (s - min) / span
	}
	return normalized
}
