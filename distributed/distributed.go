// Package distributed implements the shard-parallel coordinator (C7):
// several workers each own a disjoint shard of documents, the
// coordinator broadcasts a snapshot of the global word-topic counts
// to every worker at the start of each iteration, and workers report
// back a local count delta and a local pseudo-log-likelihood for the
// coordinator to reduce.
//
// Coordination is explicit message passing over channels rather than
// a table workers mutate concurrently: the n_dk of every shard lives
// only inside that shard's own worker and is never touched by the
// coordinator or by any other worker, which is what makes additive
// delta-merging correct. Every worker samples against a stale but
// internally consistent snapshot, and the coordinator only reduces
// deltas once every worker's sweep has finished.
package distributed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/nlpkit/warplda/core/counts"
	"github.com/nlpkit/warplda/core/hist"
	"github.com/nlpkit/warplda/core/sweep"
	"github.com/nlpkit/warplda/core/token"
	"github.com/nlpkit/warplda/core/trainer"
	"github.com/nlpkit/warplda/dtm"
)

// snapshotCmd is the message the coordinator sends to a worker at the
// start of every iteration: a private copy of the global n_wk/n_k,
// and the seed to derive that worker's RNG state from for this round.
type snapshotCmd struct {
	nwk  []hist.Counter
	nk   hist.Row
	seed int64
}

// Result is what a worker reports back after one local doc+word sweep.
type Result struct {
	Delta counts.Delta
	LL    float64
}

// Worker owns one document shard: its own token store and its own
// count table, the latter tracking a local delta against whatever
// global snapshot the coordinator last broadcast.
type Worker struct {
	id    int
	store *token.Store
	table *counts.Table

	cmds    chan snapshotCmd
	results chan Result
}

// NewWorker builds a worker over one shard of the corpus. k, alpha
// and beta must match every other worker's and the coordinator's.
func NewWorker(id int, shard *dtm.Matrix, k int, alpha []float64, beta float64, seed int64) (*Worker, error) {
	t, err := counts.New(k, shard.NumCols(), shard.NumRows(), 1.0, beta)
	if err != nil {
		return nil, fmt.Errorf("distributed: worker %d: %w", id, err)
	}
	copy(t.Alpha, alpha)
	t.AlphaSum = alphaSum(alpha)
	t.TrackLocalDelta()

	rng := rand.New(rand.NewSource(seed))
	s := token.Build(shard, k, rng)
	counts.InitFromStore(t, s)

	return &Worker{
		id:      id,
		store:   s,
		table:   t,
		cmds:    make(chan snapshotCmd),
		results: make(chan Result),
	}, nil
}

// Loop runs until ctx is cancelled or its command channel is closed,
// applying one broadcast snapshot and running one doc+word sweep per
// command received.
func (w *Worker) Loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-w.cmds:
			if !ok {
				return
			}
			w.table.ResetFromSnapshot(cmd.nwk, cmd.nk)
			w.table.ResetLocal()

			res := Result{}
			if err := sweep.Doc(w.store, w.table, sweep.Workers(1), cmd.seed); err != nil {
				w.send(ctx, res)
				continue
			}
			if err := sweep.Word(w.store, w.table, true, sweep.Workers(1), cmd.seed+1); err != nil {
				w.send(ctx, res)
				continue
			}
			res.Delta = w.table.LocalDelta()
			res.LL = trainer.PseudoLogLikelihood(w.table)
			w.send(ctx, res)
		}
	}
}

// send reports res to the coordinator, abandoning the send if ctx is
// cancelled first, so a worker can never block forever on a result
// the coordinator has stopped reading.
func (w *Worker) send(ctx context.Context, res Result) {
	select {
	case w.results <- res:
	case <-ctx.Done():
	}
}

// DocTopicDistribution returns this worker's local document-topic
// matrix for its own shard's documents.
func (w *Worker) DocTopicDistribution() *mat.Dense {
	return counts.DocTopicDistribution(w.table)
}

// Coordinator drives W workers through synchronized iterations,
// reducing their per-iteration deltas into a global table that never
// carries a document dimension of its own: n_dk is never shared, only
// n_wk and n_k are.
type Coordinator struct {
	// ID tags this coordinator's run with a sortable, unique
	// identifier, so a caller running several fits in the same
	// process can tell their log lines apart without threading a
	// label through every call.
	ID string

	Table   *counts.Table
	workers []*Worker
}

// NewCoordinator builds a coordinator over len(shards) workers, one
// per shard, each built with NewWorker, and seeds the global table
// from every worker's initial random assignment so the first
// broadcast snapshot is consistent with what the workers already
// hold.
func NewCoordinator(shards []*dtm.Matrix, k int, alpha []float64, beta float64, seed int64) (*Coordinator, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("distributed: EmptyCorpus: no shards provided")
	}
	v := shards[0].NumCols()
	for i, shard := range shards {
		if shard.NumCols() != v {
			return nil, fmt.Errorf("distributed: VocabularyMismatch: shard %d has %d columns, shard 0 has %d", i, shard.NumCols(), v)
		}
	}
	global, err := counts.New(k, v, 0, 1.0, beta)
	if err != nil {
		return nil, err
	}
	copy(global.Alpha, alpha)
	global.AlphaSum = alphaSum(alpha)

	workers := make([]*Worker, len(shards))
	for i, shard := range shards {
		w, err := NewWorker(i, shard, k, alpha, beta, seed+int64(i))
		if err != nil {
			return nil, err
		}
		workers[i] = w
	}

	for w := 0; w < v; w++ {
		for _, worker := range workers {
			worker.table.NWK[w].ForEach(func(topic int, c int64) error {
				global.NWK[w].Inc(topic, int(c))
				global.NK.Inc(topic, int(c))
				return nil
			})
		}
	}

	entropy := rand.New(rand.NewSource(seed))
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()

	return &Coordinator{ID: id, Table: global, workers: workers}, nil
}

// Run executes iterations rounds of broadcast/sweep/reduce, starting
// every worker's Loop in its own goroutine and tearing them down when
// ctx is cancelled or Run returns. It returns, per iteration, the sum
// of every worker's pseudo-log-likelihood as that iteration's score.
func (c *Coordinator) Run(ctx context.Context, iterations int, seed int64) ([]float64, error) {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range c.workers {
		w := w
		g.Go(func() error {
			w.Loop(ctx)
			return nil
		})
	}

	scores := make([]float64, 0, iterations)
iterations_loop:
	for iter := 0; iter < iterations; iter++ {
		select {
		case <-ctx.Done():
			break iterations_loop
		default:
		}

		for _, w := range c.workers {
			nwk, nk := c.Table.SnapshotGlobal()
			select {
			case w.cmds <- snapshotCmd{nwk: nwk, nk: nk, seed: seed + int64(iter)}:
			case <-ctx.Done():
				break iterations_loop
			}
		}

		total := 0.0
		deltas := make([]counts.Delta, 0, len(c.workers))
		for _, w := range c.workers {
			select {
			case res := <-w.results:
				deltas = append(deltas, res.Delta)
				total += res.LL
			case <-ctx.Done():
				break iterations_loop
			}
		}
		for _, d := range deltas {
			c.Table.ApplyDelta(d)
		}
		scores = append(scores, total)
	}

	for _, w := range c.workers {
		close(w.cmds)
	}
	return scores, g.Wait()
}

// DocTopicDistribution concatenates every worker's local n_dk rows, in
// shard order, into one combined D x K matrix: row i of shard s's
// block is the same document as the i-th row of the dtm.Matrix that
// shard was built from in NewCoordinator's shards argument.
//
// Gathering n_dk this way, rather than leaving it worker-local, is a
// deliberate design choice for this package, since the shard
// boundaries are exactly the boundaries a caller already knows.
func (c *Coordinator) DocTopicDistribution() *mat.Dense {
	rows := 0
	mats := make([]*mat.Dense, len(c.workers))
	for i, w := range c.workers {
		mats[i] = w.DocTopicDistribution()
		r, _ := mats[i].Dims()
		rows += r
	}
	out := mat.NewDense(rows, c.Table.K, nil)
	offset := 0
	for _, m := range mats {
		r, k := m.Dims()
		dst := out.Slice(offset, offset+r, 0, k).(*mat.Dense)
		dst.Copy(m)
		offset += r
	}
	return out
}

func alphaSum(alpha []float64) float64 {
	var s float64
	for _, a := range alpha {
		s += a
	}
	return s
}
