// Package priors implements optional asymmetric Dirichlet doc-topic
// prior optimization. The default fit path leaves alpha fixed; this
// is an opt-in capability (warplda.Options.OptimizePriorEvery) that
// costs nothing when unused.
//
// Uses Minka's fixed-point iteration over the digamma recurrence, as
// described in Hanna M. Wallach, Structured Topic Models for
// Language, Ph.D. thesis, University of Cambridge, 2008.
package priors

import (
	"github.com/nlpkit/warplda/core/counts"
	"github.com/nlpkit/warplda/core/hist"
	"github.com/nlpkit/warplda/core/token"
)

// Optimizer collects per-document topic-occupancy statistics across a
// corpus and uses them to re-estimate an asymmetric alpha.
type Optimizer struct {
	docLenHist    hist.SparseRow
	topicDocHists []hist.SparseRow
}

// New allocates an Optimizer for a K-topic model.
func New(k int) *Optimizer {
	o := &Optimizer{
		docLenHist:    hist.NewSparseRow(),
		topicDocHists: make([]hist.SparseRow, k),
	}
	for i := range o.topicDocHists {
		o.topicDocHists[i] = hist.NewSparseRow()
	}
	return o
}

// Collect gathers statistics from every document's current n_dk row.
func (o *Optimizer) Collect(t *counts.Table, s *token.Store) {
	for d := int32(0); d < int32(s.D); d++ {
		row := t.NDK[d]
		row.ForEach(func(k int, c int64) error {
			o.topicDocHists[k][int32(c)]++
			return nil
		})
		o.docLenHist[int32(s.DocLen(d))]++
	}
}

// approximateHist builds a dense histogram over [0, maxIdx] from a
// sparse one, used only to walk the digamma recurrence.
func approximateHist(sp hist.SparseRow) hist.Row {
	if len(sp) == 0 {
		return nil
	}
	var maxIdx int32
	for k := range sp {
		if k > maxIdx {
			maxIdx = k
		}
	}
	d := hist.NewRow(int(maxIdx) + 1)
	sp.ForEach(func(k int, v int64) error {
		d.Inc(k, int(v))
		return nil
	})
	return d
}

// Optimize re-estimates t.Alpha and t.AlphaSum in place using shape
// and scale as the Gamma hyperprior's parameters, iterating the
// fixed-point update `iterations` times.
func (o *Optimizer) Optimize(t *counts.Table, shape, scale float64, iterations int) {
	for it := 0; it < iterations; it++ {
		diffDigamma, denominator := 0.0, 0.0
		d := approximateHist(o.docLenHist)
		for i := 1; i < len(d); i++ {
			diffDigamma += 1.0 / (float64(i) - 1.0 + t.AlphaSum)
			denominator += float64(d[i]) * diffDigamma
		}
		denominator -= 1.0 / scale

		t.AlphaSum = 0.0
		for k, h := range o.topicDocHists {
			diffDigamma, numerator := 0.0, 0.0
			d := approximateHist(h)
			for i := 1; i < len(d); i++ {
				diffDigamma += 1.0 / (float64(i) - 1.0 + t.Alpha[k])
				numerator += float64(d[i]) * diffDigamma
			}
			t.Alpha[k] = (t.Alpha[k]*numerator + shape) / denominator
			t.AlphaSum += t.Alpha[k]
		}
	}
}
