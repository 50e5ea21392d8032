// Package counts implements the global count tables (C2): n_wk
// (word×topic), n_dk (doc×topic) and n_k (topic totals), plus the
// local-delta bookkeeping the distributed coordinator merges across
// shards.
//
// Each table picks the histogram representation that matches its
// access pattern: n_k is hist.Row (small, touched every token), n_wk
// rows are hist.SparseRow (a word rarely occupies more than a few
// topics), and n_dk rows are hist.RankedRow (documents are short,
// and having counts pre-sorted by size is useful when inspecting a
// document's dominant topics).
package counts

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/nlpkit/warplda/core/hist"
	"github.com/nlpkit/warplda/core/token"
)

// Table holds the three count tables and the fixed hyperparameters
// they are smoothed with.
type Table struct {
	K, V int

	Alpha    []float64 // per-topic doc-topic prior, len K (symmetric unless priors.Optimizer is in use)
	AlphaSum float64
	Beta     float64 // symmetric topic-word prior
	BetaSum  float64 // V * Beta

	NWK []hist.Counter // len V, each a hist.SparseRow entry (word-topic counts)
	NDK []hist.Counter // len D, each a *hist.RankedRow entry (doc-topic counts)
	NK  hist.Row       // len K (topic totals)

	// Local delta bookkeeping for distributed shards.
	// deltaNWK and deltaNK accumulate changes since the last
	// ResetLocal call; they mirror NWK/NK but only carry the touched
	// entries.
	trackDelta bool
	deltaNWK   map[int32]hist.SparseRow
	deltaNK    hist.Row
}

// New allocates an empty table for a fixed (K, V, D) shape and
// hyperparameters. Alpha is filled symmetrically; callers that enable
// priors.Optimizer later mutate Alpha/AlphaSum in place.
func New(k, v, d int, alpha, beta float64) (*Table, error) {
	if k < 1 {
		return nil, fmt.Errorf("counts: InvalidHyperparameter: K=%d must be >= 1", k)
	}
	if alpha <= 0 {
		return nil, fmt.Errorf("counts: InvalidHyperparameter: alpha=%g must be > 0", alpha)
	}
	if beta <= 0 {
		return nil, fmt.Errorf("counts: InvalidHyperparameter: beta=%g must be > 0", beta)
	}

	t := &Table{
		K:       k,
		V:       v,
		Alpha:   make([]float64, k),
		Beta:    beta,
		BetaSum: beta * float64(v),
		NWK:     make([]hist.Counter, v),
		NDK:     make([]hist.Counter, d),
		NK:      hist.NewRow(k),
	}
	for i := range t.Alpha {
		t.Alpha[i] = alpha
	}
	t.AlphaSum = alpha * float64(k)

	for w := 0; w < v; w++ {
		t.NWK[w] = hist.NewSparseRow()
	}
	for doc := 0; doc < d; doc++ {
		t.NDK[doc] = hist.NewRankedRow()
	}
	return t, nil
}

// InitFromStore builds the initial counts from a token store's
// z_new assignments.
func InitFromStore(t *Table, s *token.Store) {
	for tok := 0; tok < s.NumTokens(); tok++ {
		t.Add(s.Doc[tok], s.W[tok], s.ZNew[tok])
	}
}

// Add records one token occurrence of word w in document d as topic
// k, keeping n_wk, n_dk and n_k mutually consistent.
func (t *Table) Add(d, w, k int32) {
	t.NDK[d].Inc(int(k), 1)
	t.NWK[w].Inc(int(k), 1)
	t.NK.Inc(int(k), 1)
	if t.trackDelta {
		t.deltaEntry(w).Inc(int(k), 1)
		t.deltaNK.Inc(int(k), 1)
	}
}

// Remove undoes one token occurrence, the inverse of Add.
func (t *Table) Remove(d, w, k int32) {
	t.NDK[d].Dec(int(k), 1)
	t.NWK[w].Dec(int(k), 1)
	t.NK.Dec(int(k), 1)
	if t.trackDelta {
		t.deltaEntry(w).Dec(int(k), 1)
		t.deltaNK.Dec(int(k), 1)
	}
}

// AddWordTopic and RemoveWordTopic mutate n_wk/n_k only, leaving n_dk
// untouched — what the word sweep uses in training mode, where n_dk
// is the stale side.
func (t *Table) AddWordTopic(w, k int32) {
	t.NWK[w].Inc(int(k), 1)
	t.NK.Inc(int(k), 1)
	if t.trackDelta {
		t.deltaEntry(w).Inc(int(k), 1)
		t.deltaNK.Inc(int(k), 1)
	}
}

func (t *Table) RemoveWordTopic(w, k int32) {
	t.NWK[w].Dec(int(k), 1)
	t.NK.Dec(int(k), 1)
	if t.trackDelta {
		t.deltaEntry(w).Dec(int(k), 1)
		t.deltaNK.Dec(int(k), 1)
	}
}

// AddDocTopic and RemoveDocTopic mutate n_dk only — what the doc
// sweep always uses, and what the word sweep uses in inference mode
// once n_wk/n_k are frozen.
func (t *Table) AddDocTopic(d, k int32) { t.NDK[d].Inc(int(k), 1) }
func (t *Table) RemoveDocTopic(d, k int32) { t.NDK[d].Dec(int(k), 1) }

func (t *Table) deltaEntry(w int32) hist.SparseRow {
	if d, ok := t.deltaNWK[w]; ok {
		return d
	}
	d := hist.NewSparseRow()
	t.deltaNWK[w] = d
	return d
}

// TrackLocalDelta switches on delta bookkeeping for distributed use.
func (t *Table) TrackLocalDelta() {
	t.trackDelta = true
	t.deltaNWK = make(map[int32]hist.SparseRow)
	t.deltaNK = hist.NewRow(t.K)
}

// Delta is a table of per-sweep count changes, additive across
// disjoint shards.
type Delta struct {
	NWK map[int32]hist.SparseRow
	NK  hist.Row
}

// LocalDelta returns the changes accumulated since the last
// ResetLocal call.
func (t *Table) LocalDelta() Delta {
	return Delta{NWK: t.deltaNWK, NK: t.deltaNK}
}

// ResetLocal clears the delta accumulator without touching the live
// tables.
func (t *Table) ResetLocal() {
	t.deltaNWK = make(map[int32]hist.SparseRow)
	t.deltaNK = hist.NewRow(t.K)
}

// SnapshotGlobal returns a deep copy of n_wk and n_k — the portion of
// the table a distributed coordinator broadcasts to workers. n_dk is
// never shared: documents are partitioned across workers.
func (t *Table) SnapshotGlobal() (nwk []hist.Counter, nk hist.Row) {
	nwk = make([]hist.Counter, len(t.NWK))
	for w, h := range t.NWK {
		nwk[w] = h.Clone()
	}
	return nwk, t.NK.Clone().(hist.Row)
}

// ApplyDelta merges a shard's delta onto this table by element-wise
// addition, which is correct because each shard's delta is disjoint
// from every other shard's (documents are partitioned across shards).
func (t *Table) ApplyDelta(d Delta) {
	for w, sparse := range d.NWK {
		sparse.ForEach(func(k int, c int64) error {
			if c > 0 {
				t.NWK[w].Inc(k, int(c))
			} else if c < 0 {
				t.NWK[w].Dec(k, int(-c))
			}
			return nil
		})
	}
	d.NK.ForEach(func(k int, c int64) error {
		if c > 0 {
			t.NK.Inc(k, int(c))
		} else if c < 0 {
			t.NK.Dec(k, int(-c))
		}
		return nil
	})
}

// DocTopicDistribution returns the row-stochastic document-topic
// matrix P(topic|doc) implied by t's current n_dk and its own
// alpha/alphaSum, D x K.
func DocTopicDistribution(t *Table) *mat.Dense {
	d := len(t.NDK)
	out := mat.NewDense(d, t.K, nil)
	for doc := 0; doc < d; doc++ {
		total := t.AlphaSum
		t.NDK[doc].ForEach(func(topic int, c int64) error {
			total += float64(c)
			return nil
		})
		for topic := 0; topic < t.K; topic++ {
			out.Set(doc, topic, (float64(t.NDK[doc].At(topic))+t.Alpha[topic])/total)
		}
	}
	return out
}

// ResetFromSnapshot replaces this table's n_wk/n_k with a broadcast
// snapshot, leaving n_dk untouched — how a worker adopts the global
// state at the start of an outer iteration.
func (t *Table) ResetFromSnapshot(nwk []hist.Counter, nk hist.Row) {
	t.NWK = nwk
	t.NK = nk
}
