package topwords

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestRankOrdersByRelevance(t *testing.T) {
	// Topic 0: word 0 is common to the whole corpus (p(w)=0.5), word 1
	// is distinctive to this topic despite a lower raw probability.
	dist := mat.NewDense(1, 2, []float64{0.6, 0.4})
	freq := []float64{0.5, 0.05}

	ranked := Rank(dist, 0, freq, 0.0, 0)
	if len(ranked) != 2 {
		t.Fatalf("Rank returned %d entries, want 2", len(ranked))
	}
	if ranked[0].Term != 1 {
		t.Fatalf("most relevant term = %d, want 1 (lift-favored)", ranked[0].Term)
	}
}

func TestRankRespectsTopBound(t *testing.T) {
	dist := mat.NewDense(1, 3, []float64{0.5, 0.3, 0.2})
	freq := []float64{0.3, 0.3, 0.3}
	ranked := Rank(dist, 0, freq, 1.0, 2)
	if len(ranked) != 2 {
		t.Fatalf("Rank with top=2 returned %d entries", len(ranked))
	}
	if ranked[0].Term != 0 {
		t.Fatalf("top term under lambda=1 (pure probability) = %d, want 0", ranked[0].Term)
	}
}

func TestCorpusFrequencySumsToOne(t *testing.T) {
	freq := CorpusFrequency([]int64{3, 1, 6})
	var sum float64
	for _, f := range freq {
		sum += f
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("CorpusFrequency does not sum to 1: %f", sum)
	}
	if freq[2] <= freq[0] {
		t.Fatalf("freq[2]=%f should exceed freq[0]=%f", freq[2], freq[0])
	}
}

func TestCorpusFrequencyHandlesAllZero(t *testing.T) {
	freq := CorpusFrequency([]int64{0, 0})
	for _, f := range freq {
		if f != 0 {
			t.Fatalf("expected all-zero frequencies, got %v", freq)
		}
	}
}
