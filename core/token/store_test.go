package token

import (
	"math/rand"
	"testing"

	"github.com/nlpkit/warplda/dtm"
)

func buildTestMatrix(t *testing.T) *dtm.Matrix {
	m, err := dtm.NewMatrix(
		[]string{"a", "b", "c"},
		[]string{"d0", "d1"},
		[][]dtm.Cell{
			{{Column: 0, Count: 2}, {Column: 1, Count: 1}},
			{{Column: 2, Count: 3}},
		},
	)
	if err != nil {
		t.Fatalf("dtm.NewMatrix: %v", err)
	}
	return m
}

func TestBuildShapeAndOffsets(t *testing.T) {
	m := buildTestMatrix(t)
	rng := rand.New(rand.NewSource(1))
	s := Build(m, 4, rng)

	if s.NumTokens() != 6 {
		t.Fatalf("NumTokens() = %d, want 6", s.NumTokens())
	}
	if s.DocLen(0) != 3 || s.DocLen(1) != 3 {
		t.Fatalf("DocLen = (%d, %d), want (3, 3)", s.DocLen(0), s.DocLen(1))
	}
	if s.WordCount(0) != 2 || s.WordCount(1) != 1 || s.WordCount(2) != 3 {
		t.Fatalf("WordCount = (%d, %d, %d), want (2, 1, 3)", s.WordCount(0), s.WordCount(1), s.WordCount(2))
	}
	for _, tok := range s.DocTokens(0) {
		if s.Doc[tok] != 0 {
			t.Fatalf("token %d claimed by doc view 0 but Doc[%d] = %d", tok, tok, s.Doc[tok])
		}
	}
	for _, tok := range s.WordTokens(2) {
		if s.W[tok] != 2 {
			t.Fatalf("token %d claimed by word view 2 but W[%d] = %d", tok, tok, s.W[tok])
		}
	}
}

func TestMutationVisibleThroughBothViews(t *testing.T) {
	m := buildTestMatrix(t)
	rng := rand.New(rand.NewSource(7))
	s := Build(m, 4, rng)

	tok := s.WordTokens(2)[0]
	s.ZNew[tok] = 3

	found := false
	for _, t2 := range s.DocTokens(s.Doc[tok]) {
		if t2 == tok && s.ZNew[t2] == 3 {
			found = true
		}
	}
	if !found {
		t.Fatal("mutation through WordTokens view not visible through DocTokens view")
	}
}

func TestZOldZNewInRange(t *testing.T) {
	m := buildTestMatrix(t)
	rng := rand.New(rand.NewSource(3))
	k := 5
	s := Build(m, k, rng)
	for i := 0; i < s.NumTokens(); i++ {
		if s.ZOld[i] < 0 || int(s.ZOld[i]) >= k {
			t.Fatalf("ZOld[%d] = %d out of range [0, %d)", i, s.ZOld[i], k)
		}
		if s.ZNew[i] < 0 || int(s.ZNew[i]) >= k {
			t.Fatalf("ZNew[%d] = %d out of range [0, %d)", i, s.ZNew[i], k)
		}
	}
}
