// Package topwords ranks each topic's vocabulary by relevance rather
// than raw probability, the lift-adjusted score from Sievert & Shirley,
// "LDAvis: A method for visualizing and interpreting topics" (2014):
//
//	relevance(w, k) = lambda*log(p(w|k)) + (1-lambda)*log(p(w|k)/p(w))
//
// Pure probability ranking (lambda=1) tends to surface the same
// high-frequency words in every topic; the lift term favors words that
// are distinctive to a topic even if individually less probable.
//
// The package depends only on a topic-word matrix and corpus term
// frequencies, not on any sampler internals, so it works equally well
// against a freshly fitted model or one reloaded from a snapshot.
package topwords

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Ranked is one entry in a per-topic ranking.
type Ranked struct {
	Term      int32
	Relevance float64
	Prob      float64
}

// Rank scores every term of topic k using distribution, the K x V
// row-stochastic topic-word matrix, and corpusFreq, the term's
// marginal probability in the training corpus (p(w), indexed by term
// id). lambda in [0, 1] trades off raw probability (lambda=1) against
// lift over the corpus marginal (lambda=0); Sievert & Shirley found
// lambda around 0.6 works well in practice. top bounds how many terms
// are returned; top<=0 returns every term with p(w|k) > 0 sorted by
// relevance. Terms with p(w|k) <= 0 are never returned.
func Rank(distribution *mat.Dense, k int, corpusFreq []float64, lambda float64, top int) []Ranked {
	_, v := distribution.Dims()
	out := make([]Ranked, 0, v)
	for w := 0; w < v; w++ {
		p := distribution.At(k, w)
		if p <= 0 {
			continue
		}
		rel := lambda * safeLog(p)
		if corpusFreq[w] > 0 {
			rel += (1 - lambda) * safeLog(p/corpusFreq[w])
		}
		out = append(out, Ranked{Term: int32(w), Relevance: rel, Prob: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	if top > 0 && top < len(out) {
		out = out[:top]
	}
	return out
}

// CorpusFrequency computes p(w) over a document-term matrix's implicit
// token stream: each word's total occurrence count divided by the
// total number of tokens. wordTotals is indexed by term id, the same
// layout dtm.Matrix.Densify's columns use.
func CorpusFrequency(wordTotals []int64) []float64 {
	var total int64
	for _, c := range wordTotals {
		total += c
	}
	freq := make([]float64, len(wordTotals))
	if total == 0 {
		return freq
	}
	for w, c := range wordTotals {
		freq[w] = float64(c) / float64(total)
	}
	return freq
}

func safeLog(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Log(x)
}
