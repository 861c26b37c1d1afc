package normalize

import "testing"

func TestNormalizeInvertsMinMax(t *testing.T) {
	got := Normalize([]float64{-0.5, 0, 0.5})
	want := []float64{100.0, 50.0, 0.0}

	if len(got) != len(want) {
		t.Fatalf("expected %d scores, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("score %d: expected %.2f, got %.2f", i, want[i], got[i])
		}
	}
}

func TestNormalizeReversesOrder(t *testing.T) {
	raw := []float64{-0.9, -0.3, 0.1, 0.4}
	got := Normalize(raw)

	for i := 1; i < len(got); i++ {
		if got[i] > got[i-1] {
			t.Fatalf("expected non-increasing scores for increasing raw input, got %v", got)
		}
	}
	if got[0] != 100.0 {
		t.Fatalf("expected minimum raw score to map to 100.0, got %.2f", got[0])
	}
	if got[len(got)-1] != 0.0 {
		t.Fatalf("expected maximum raw score to map to 0.0, got %.2f", got[len(got)-1])
	}
}

func TestNormalizeDegenerateBatch(t *testing.T) {
	for _, raw := range [][]float64{
		{0.42},
		{-0.3, -0.3, -0.3},
	} {
		got := Normalize(raw)
		if len(got) != len(raw) {
			t.Fatalf("expected %d scores, got %d", len(raw), len(got))
		}
		for i, v := range got {
			if v != MidpointRisk {
				t.Fatalf("score %d: expected midpoint %.1f, got %.2f", i, MidpointRisk, v)
			}
		}
	}
}

func TestNormalizeEmptyBatch(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestNormalizeRoundsToTwoDecimals(t *testing.T) {
	got := Normalize([]float64{0, 1, 3})
	// (3-1)/3*100 = 66.666... rounds to 66.67
	if got[1] != 66.67 {
		t.Fatalf("expected 66.67, got %v", got[1])
	}
}

func TestNormalizeBounds(t *testing.T) {
	got := Normalize([]float64{-1e9, 0, 1e9})
	for i, v := range got {
		if v < 0 || v > 100 {
			t.Fatalf("score %d out of range: %v", i, v)
		}
	}
}
