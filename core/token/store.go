// Package token holds the corpus token store (C1): a flat array of
// token records plus two index structures — one grouping tokens by
// document, one grouping them by word — so the sweep engine can walk
// either order without re-sorting and see the same mutable topic
// assignment through both views.
package token

import (
	"math/rand"

	"github.com/nlpkit/warplda/dtm"
)

// Store is the corpus expanded into one record per token occurrence.
// W, Doc, ZOld and ZNew are parallel arrays indexed by token id.
// DocOffset/DocOrder and WordOffset/WordOrder are CSR/CSC-style index
// arrays of token ids: both index arrays address the very same W,
// ZOld, ZNew slices, so a topic written through the by-word view is
// immediately visible through the by-doc view and vice versa.
type Store struct {
	D, V, K int

	W    []int32 // word id of token t
	Doc  []int32 // document id of token t
	ZOld []int32 // previous topic assignment
	ZNew []int32 // current topic assignment

	DocOffset []int32 // len D+1
	DocOrder  []int32 // token ids grouped by document

	WordOffset []int32 // len V+1
	WordOrder  []int32 // token ids grouped by word
}

// Build expands a CSR document-term matrix into a token store with
// K topics, assigning z_old and z_new independently and uniformly at
// random for every token.
func Build(m *dtm.Matrix, k int, rng *rand.Rand) *Store {
	T := m.NumTokens()
	s := &Store{
		D: m.NumRows(),
		V: m.NumCols(),
		K: k,

		W:    make([]int32, 0, T),
		Doc:  make([]int32, 0, T),
		ZOld: make([]int32, 0, T),
		ZNew: make([]int32, 0, T),

		DocOffset: make([]int32, m.NumRows()+1),
	}

	for d := 0; d < m.NumRows(); d++ {
		cols, counts := m.Row(d)
		for i, col := range cols {
			for c := uint32(0); c < counts[i]; c++ {
				s.W = append(s.W, col)
				s.Doc = append(s.Doc, int32(d))
				s.ZOld = append(s.ZOld, int32(rng.Intn(k)))
				s.ZNew = append(s.ZNew, int32(rng.Intn(k)))
			}
		}
		s.DocOffset[d+1] = int32(len(s.W))
	}

	s.DocOrder = identityOrder(len(s.W))
	s.buildWordIndex()
	return s
}

func identityOrder(n int) []int32 {
	order := make([]int32, n)
	for i := range order {
		order[i] = int32(i)
	}
	return order
}

// buildWordIndex constructs WordOffset/WordOrder, the CSC-style view
// over the same token ids used by DocOrder. It is a counting sort by
// word id, stable with respect to nothing in particular — WarpLDA
// does not require any ordering within a word's token list.
func (s *Store) buildWordIndex() {
	s.WordOffset = make([]int32, s.V+1)
	for _, w := range s.W {
		s.WordOffset[w+1]++
	}
	for v := 0; v < s.V; v++ {
		s.WordOffset[v+1] += s.WordOffset[v]
	}

	s.WordOrder = make([]int32, len(s.W))
	cursor := append([]int32(nil), s.WordOffset...)
	for t, w := range s.W {
		s.WordOrder[cursor[w]] = int32(t)
		cursor[w]++
	}
}

// NumTokens returns T.
func (s *Store) NumTokens() int { return len(s.W) }

// DocTokens returns the token ids of document d, in document order.
func (s *Store) DocTokens(d int32) []int32 {
	return s.DocOrder[s.DocOffset[d]:s.DocOffset[d+1]]
}

// DocLen returns the length (token count) of document d.
func (s *Store) DocLen(d int32) int {
	return int(s.DocOffset[d+1] - s.DocOffset[d])
}

// WordTokens returns the token ids carrying word w.
func (s *Store) WordTokens(w int32) []int32 {
	return s.WordOrder[s.WordOffset[w]:s.WordOffset[w+1]]
}

// WordCount returns the number of token occurrences of word w.
func (s *Store) WordCount(w int32) int {
	return int(s.WordOffset[w+1] - s.WordOffset[w])
}
