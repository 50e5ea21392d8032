package priors

import (
	"math/rand"
	"testing"

	"github.com/nlpkit/warplda/core/counts"
	"github.com/nlpkit/warplda/core/token"
	"github.com/nlpkit/warplda/dtm"
)

func buildFixture(t *testing.T) (*token.Store, *counts.Table) {
	m, err := dtm.NewMatrix(
		[]string{"a", "b", "c"},
		[]string{"d0", "d1"},
		[][]dtm.Cell{
			{{Column: 0, Count: 6}, {Column: 1, Count: 2}},
			{{Column: 1, Count: 1}, {Column: 2, Count: 7}},
		},
	)
	if err != nil {
		t.Fatalf("dtm.NewMatrix: %v", err)
	}
	s := token.Build(m, 3, rand.New(rand.NewSource(1)))
	tbl, err := counts.New(3, 3, 2, 0.1, 0.1)
	if err != nil {
		t.Fatalf("counts.New: %v", err)
	}
	counts.InitFromStore(tbl, s)
	return s, tbl
}

func TestOptimizeKeepsAlphaPositive(t *testing.T) {
	s, tbl := buildFixture(t)
	opt := New(tbl.K)
	opt.Collect(tbl, s)
	opt.Optimize(tbl, 1.0, 1e7, 5)

	for k, a := range tbl.Alpha {
		if a <= 0 {
			t.Fatalf("Alpha[%d] = %f, want > 0 after optimization", k, a)
		}
	}
	sum := 0.0
	for _, a := range tbl.Alpha {
		sum += a
	}
	if sum != tbl.AlphaSum {
		t.Fatalf("AlphaSum = %f, want %f (sum of Alpha)", tbl.AlphaSum, sum)
	}
}

func TestApproximateHistEmptyIsNil(t *testing.T) {
	if h := approximateHist(map[int32]int32{}); h != nil {
		t.Fatalf("approximateHist of an empty map = %v, want nil", h)
	}
}
