package normalize

import "math"

// MidpointRisk is assigned to every element of a zero-variance batch,
// where min-max inversion would divide by zero.
const MidpointRisk = 50.0

// Normalize maps raw anomaly scores to risk scores in [0,100] using linear
// min-max inversion over the batch: the minimum raw score (most anomalous
// under the isolation-forest convention) maps to 100.0 and the maximum to
// 0.0. Scores are rounded to two decimals. The transform is total and
// order-reversing within the batch.
func Normalize(raw []float64) []float64 {
	if len(raw) == 0 {
		return nil
	}

	min, max := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	out := make([]float64, len(raw))
	if min == max {
		for i := range out {
			out[i] = MidpointRisk
		}
		return out
	}

	span := max - min
	for i, v := range raw {
		out[i] = clamp(round2((max - v) / span * 100))
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// clamp guards against floating-point overshoot at the batch edges.
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
