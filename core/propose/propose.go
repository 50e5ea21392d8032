// Package propose implements WarpLDA's two O(1) proposal
// distributions and the Metropolis-Hastings acceptance ratio that
// turns a proposed topic into a valid draw from the collapsed Gibbs
// target.
package propose

import (
	"math/rand"

	"github.com/nlpkit/warplda/core/counts"
	"github.com/nlpkit/warplda/core/token"
)

// DocProposal draws k' ~ q_d(k) ∝ n_dk[d][k] + alpha[k] in O(1)
// time for the dominant branch: with probability
// len(d)/(len(d)+alphaSum) it returns the topic of a uniformly chosen
// existing token of d (which realizes the n_dk term exactly, since
// n_dk[d][k] counts exactly those tokens); otherwise it draws from the
// alpha prior directly, a linear scan over K.
func DocProposal(s *token.Store, t *counts.Table, d int32, rng *rand.Rand) int32 {
	length := s.DocLen(d)
	r := rng.Float64() * (float64(length) + t.AlphaSum)
	if r < float64(length) {
		toks := s.DocTokens(d)
		pick := toks[rng.Intn(len(toks))]
		return s.ZNew[pick]
	}
	return sampleCategorical(t.Alpha, t.AlphaSum, rng)
}

// WordProposal draws k' ~ q_w(k) ∝ (n_wk[w][k]+beta)/(n_k[k]+betaSum)
// in O(1) amortized time for the dominant branch: with probability
// cnt/(cnt+K*beta) (cnt = the word's token count) it returns the
// topic of a uniformly chosen existing token of w. The smoothing
// branch samples k with weight 1/(n_k[k]+betaSum), a linear-scan
// weighted draw rather than an alias table — it only fires a
// K*beta/(cnt+K*beta) fraction of the time.
func WordProposal(s *token.Store, t *counts.Table, w int32, rng *rand.Rand) int32 {
	toks := s.WordTokens(w)
	cnt := len(toks)
	smoothingMass := float64(t.K) * t.Beta
	r := rng.Float64() * (float64(cnt) + smoothingMass)
	if r < float64(cnt) {
		pick := toks[rng.Intn(cnt)]
		return s.ZNew[pick]
	}

	weights := make([]float64, t.K)
	var total float64
	for k := 0; k < t.K; k++ {
		weights[k] = 1.0 / (float64(t.NK.At(k)) + t.BetaSum)
		total += weights[k]
	}
	return sampleCategorical(weights, total, rng)
}

// sampleCategorical draws an index in [0, len(weights)) with
// probability weights[i]/total via a linear scan. It is not O(1) in
// K, but it only runs on the smoothing branches above.
func sampleCategorical(weights []float64, total float64, rng *rand.Rand) int32 {
	r := rng.Float64() * total
	for k, w := range weights {
		r -= w
		if r <= 0 {
			return int32(k)
		}
	}
	return int32(len(weights) - 1)
}

// AcceptRatio computes the Metropolis-Hastings acceptance probability
// for moving a token of document d, word w, currently at topic s, to
// proposed topic cand. proposal selects which proposal distribution
// (document or word) generated cand, since q(s)/q(cand) depends on
// which one was used. Callers must have already removed the token's
// own contribution from whichever table is "live" for the current
// sweep before calling AcceptRatio, so p(s) and p(cand) are evaluated
// against counts that exclude the token being resampled.
func AcceptRatio(t *counts.Table, d, w, s, cand int32, proposal Kind) float64 {
	if s == cand {
		return 1
	}

	pRatio := targetRatio(t, d, w, s, cand)
	var qRatio float64
	switch proposal {
	case DocProposalKind:
		qRatio = docProposalRatio(t, d, s, cand)
	case WordProposalKind:
		qRatio = wordProposalRatio(t, w, s, cand)
	}

	pi := pRatio * qRatio
	if pi > 1 {
		return 1
	}
	return pi
}

// Kind identifies which proposal distribution produced a candidate
// topic, so AcceptRatio knows which q(s)/q(cand) to evaluate.
type Kind int

const (
	DocProposalKind Kind = iota
	WordProposalKind
)

// targetRatio computes p(cand)/p(s) where
// p(k) ∝ (n_dk[d][k]+alpha[k])(n_wk[w][k]+beta)/(n_k[k]+betaSum).
func targetRatio(t *counts.Table, d, w, s, cand int32) float64 {
	num := (float64(t.NDK[d].At(int(cand))) + t.Alpha[cand]) *
		(float64(t.NWK[w].At(int(cand))) + t.Beta) /
		(float64(t.NK.At(int(cand))) + t.BetaSum)
	den := (float64(t.NDK[d].At(int(s))) + t.Alpha[s]) *
		(float64(t.NWK[w].At(int(s))) + t.Beta) /
		(float64(t.NK.At(int(s))) + t.BetaSum)
	return num / den
}

// docProposalRatio computes q_d(s)/q_d(cand); the len(d)+alphaSum
// normalizer cancels, leaving raw proportional weights.
func docProposalRatio(t *counts.Table, d, s, cand int32) float64 {
	num := float64(t.NDK[d].At(int(s))) + t.Alpha[s]
	den := float64(t.NDK[d].At(int(cand))) + t.Alpha[cand]
	return num / den
}

// wordProposalRatio computes q_w(s)/q_w(cand); the cnt+K*beta
// normalizer cancels, leaving raw proportional weights.
func wordProposalRatio(t *counts.Table, w, s, cand int32) float64 {
	num := (float64(t.NWK[w].At(int(s))) + t.Beta) / (float64(t.NK.At(int(s))) + t.BetaSum)
	den := (float64(t.NWK[w].At(int(cand))) + t.Beta) / (float64(t.NK.At(int(cand))) + t.BetaSum)
	return num / den
}
