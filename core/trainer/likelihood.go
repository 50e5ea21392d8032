package trainer

import (
	"math"

	"github.com/nlpkit/warplda/core/counts"
)

// PseudoLogLikelihood computes a convergence probe: the collapsed
// log-marginal of the topic-word Dirichlet,
//
//	ℓ = Σ_w Σ_k lgamma(n_wk[w][k]+β) − Σ_k lgamma(n_k[k]+Vβ) + K·(lgamma(Vβ) − V·lgamma(β))
//
// Per-document terms are omitted by design: they dominate the
// convergence signal less than the word side and are expensive to
// recompute every check. The constant term K·(lgamma(Vβ)−V·lgamma(β))
// is the same every call for a fixed (K, V, β), so it does not affect
// which iteration the trainer converges at — it is kept anyway so
// that ℓ is the true log-marginal rather than an arbitrary shift, and
// so that ℓ stays negative for any non-degenerate model: both ℓ
// values compared by the convergence check are negative, which is
// what makes the ratio prev/curr − 1 well defined.
func PseudoLogLikelihood(t *counts.Table) float64 {
	ll := 0.0
	for w := 0; w < t.V; w++ {
		t.NWK[w].ForEach(func(k int, c int64) error {
			ll += lgamma(float64(c) + t.Beta)
			return nil
		})
		// ForEach skips the topics where n_wk is zero; each of them
		// still contributes lgamma(beta) to the double sum, added here
		// (K*lgamma(beta) for a word with zero count in every topic).
		zeros := t.K - t.NWK[w].Len()
		ll += float64(zeros) * lgamma(t.Beta)
	}
	for k := 0; k < t.K; k++ {
		ll -= lgamma(float64(t.NK.At(k)) + t.BetaSum)
	}
	ll += float64(t.K) * (lgamma(t.BetaSum) - float64(t.V)*lgamma(t.Beta))
	return ll
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
