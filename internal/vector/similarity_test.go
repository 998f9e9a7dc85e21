package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0}, []float32{5, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"diagonal", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
		{"mismatched dims", []float32{1, 0}, []float32{1}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0}); math.Abs(d) > 1e-9 {
		t.Errorf("identical distance = %f", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Errorf("orthogonal distance = %f", d)
	}
}

func TestMean(t *testing.T) {
	m := Mean([][]float32{{1, 0}, {0, 1}})
	if m[0] != 0.5 || m[1] != 0.5 {
		t.Errorf("mean = %v", m)
	}

	if Mean(nil) != nil {
		t.Error("empty input should yield nil")
	}

	// Mismatched vectors are skipped, not averaged in.
	m = Mean([][]float32{{2, 4}, {1, 2, 3}})
	if m[0] != 2 || m[1] != 4 {
		t.Errorf("mean with skip = %v", m)
	}

	m = Mean([][]float32{{3, 6}})
	if m[0] != 3 || m[1] != 6 {
		t.Errorf("single vector mean = %v", m)
	}
}
