// Package warplda fits a Latent Dirichlet Allocation topic model with
// WarpLDA, a Metropolis-Hastings-within-Gibbs sampler whose two
// proposal distributions take O(1) time per token on their dominant
// branch; only their smoothing branches scan all K topics.
//
// LDA is the package's single entry point: construct one with New,
// fit it against a document-term matrix with FitTransform, and read
// back the per-document and per-topic distributions. A fitted LDA
// also Transforms new documents against the vocabulary it was fit
// on, without touching the topic-word distribution it learned.
package warplda

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/nlpkit/warplda/core/counts"
	"github.com/nlpkit/warplda/core/hist"
	"github.com/nlpkit/warplda/core/priors"
	"github.com/nlpkit/warplda/core/token"
	"github.com/nlpkit/warplda/core/trainer"
	"github.com/nlpkit/warplda/dtm"
	"github.com/nlpkit/warplda/persist"
)

// state tags an LDA's lifecycle: a freshly constructed LDA is
// Uninitialized and becomes Fitted once FitTransform completes
// without error. Transform and the distribution accessors return a
// NotFitted error on an Uninitialized model; Perplexity, Vocabulary
// and Snapshot panic on one.
type state int

const (
	uninitialized state = iota
	fitted
)

// Options configures one FitTransform or Transform call. The zero value is
// not valid; use NewOptions for sensible defaults.
type Options struct {
	NIter             int                  `yaml:"iter"`             // Gibbs sweeps to run
	ConvergenceTol    float64              `yaml:"convergence_tol"`  // negative disables the early-stop probe
	NCheckConvergence int                  `yaml:"check_every"`      // check pseudo-log-likelihood every N iterations
	Workers           int                  `yaml:"workers"`          // goroutines per sweep; <=1 runs serially
	Seed              int64                `yaml:"seed"`
	Sink              trainer.ProgressSink `yaml:"-"`

	// OptimizePriorEvery, if > 0, re-estimates an asymmetric alpha
	// with priors.Optimizer every that many iterations, starting
	// after the first one. Zero (the default) keeps alpha symmetric
	// and fixed, matching a standard WarpLDA fit.
	OptimizePriorEvery int     `yaml:"optimize_prior_every"`
	OptimShape         float64 `yaml:"optim_shape"`
	OptimScale         float64 `yaml:"optim_scale"`
	OptimIterations    int     `yaml:"optim_iter"`
}

// LoadOptions reads Options from a YAML file, starting from
// NewOptions' defaults so the file only needs to set what it wants to
// override. Sink cannot be set from YAML and is left nil.
func LoadOptions(path string) (Options, error) {
	opts := NewOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("warplda: reading options file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("warplda: parsing options file %s: %w", path, err)
	}
	return opts, nil
}

// NewOptions returns reasonable defaults for command-line use: 100
// iterations, convergence checked every iteration with a 1e-4
// relative tolerance, hyperparameter optimization off.
func NewOptions() Options {
	return Options{
		NIter:             100,
		ConvergenceTol:    1e-4,
		NCheckConvergence: 1,
		Workers:           1,
		Seed:              1,
		OptimShape:        0,
		OptimScale:        1e7,
		OptimIterations:   10,
	}
}

// LDA is a topic model: K topics over a fixed vocabulary, fit by
// WarpLDA Gibbs sampling against a training corpus.
type LDA struct {
	K     int
	Alpha []float64
	Beta  float64

	vocab *dtm.Vocabulary
	table *counts.Table
	store *token.Store // last-used store; nil on a model restored from a Snapshot

	state state
}

// NumTokens returns the token count of the corpus last passed to
// FitTransform or Transform. It panics on a model restored from a
// Snapshot until Transform has been called on it, since a restored
// model carries no token store.
func (l *LDA) NumTokens() int {
	if l.store == nil {
		panic("warplda: NumTokens has no token store (model was restored from a Snapshot)")
	}
	return l.store.NumTokens()
}

// New constructs an unfitted model with K topics and symmetric
// Dirichlet priors alpha, beta.
func New(k int, alpha, beta float64) (*LDA, error) {
	if k < 1 {
		return nil, fmt.Errorf("warplda: InvalidHyperparameter: K=%d must be >= 1", k)
	}
	if alpha <= 0 {
		return nil, fmt.Errorf("warplda: InvalidHyperparameter: alpha=%g must be > 0", alpha)
	}
	if beta <= 0 {
		return nil, fmt.Errorf("warplda: InvalidHyperparameter: beta=%g must be > 0", beta)
	}
	a := make([]float64, k)
	for i := range a {
		a[i] = alpha
	}
	return &LDA{K: k, Alpha: a, Beta: beta, state: uninitialized}, nil
}

// FitTransform fits the model against m and returns the document-topic
// distribution for m's own rows — the matrix one would get by calling
// Transform(m) immediately afterward, but computed without re-running
// the doc sweep from a cold, uniform initialization.
func (l *LDA) FitTransform(ctx context.Context, m *dtm.Matrix, opts Options) (*mat.Dense, error) {
	if m.NumRows() == 0 {
		return nil, fmt.Errorf("warplda: EmptyCorpus: matrix has no rows")
	}
	vocab, err := dtm.NewVocabulary(m.ColumnLabels)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	s := token.Build(m, l.K, rng)
	t, err := counts.New(l.K, m.NumCols(), m.NumRows(), 1.0, l.Beta)
	if err != nil {
		return nil, err
	}
	copy(t.Alpha, l.Alpha)
	t.AlphaSum = sum(l.Alpha)
	counts.InitFromStore(t, s)

	if err := l.run(ctx, s, t, opts, true); err != nil {
		return nil, err
	}

	l.vocab = vocab
	l.table = t
	l.store = s
	l.state = fitted

	return counts.DocTopicDistribution(t), nil
}

// Transform infers the document-topic distribution for m against a
// model already fit with FitTransform, leaving the topic-word
// distribution untouched (updateTopics=false): both sweeps run every
// iteration, and the word sweep updates n_dk instead of n_wk/n_k.
func (l *LDA) Transform(ctx context.Context, m *dtm.Matrix, opts Options) (*mat.Dense, error) {
	if l.state != fitted {
		return nil, fmt.Errorf("warplda: NotFitted: Transform called before FitTransform")
	}
	if !l.vocab.MatchesExactly(m.ColumnLabels) {
		return nil, fmt.Errorf("warplda: VocabularyMismatch: matrix columns do not match the fitted vocabulary")
	}
	if m.NumRows() == 0 {
		return nil, fmt.Errorf("warplda: EmptyCorpus: matrix has no rows")
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	s := token.Build(m, l.K, rng)

	nwk, nk := l.table.SnapshotGlobal()
	t, err := counts.New(l.K, m.NumCols(), m.NumRows(), 1.0, l.Beta)
	if err != nil {
		return nil, err
	}
	copy(t.Alpha, l.Alpha)
	t.AlphaSum = sum(l.Alpha)
	t.ResetFromSnapshot(nwk, nk)
	for tok := 0; tok < s.NumTokens(); tok++ {
		t.AddDocTopic(s.Doc[tok], s.ZNew[tok])
	}

	opts.OptimizePriorEvery = 0 // never relearn priors during inference
	if err := l.run(ctx, s, t, opts, false); err != nil {
		return nil, err
	}
	l.store = s
	return counts.DocTopicDistribution(t), nil
}

func (l *LDA) run(ctx context.Context, s *token.Store, t *counts.Table, opts Options, updateTopics bool) error {
	if opts.OptimizePriorEvery > 0 {
		return l.runWithPriorOptimization(ctx, s, t, opts, updateTopics)
	}
	return trainer.Run(ctx, s, t, trainer.Options{
		NIter:             opts.NIter,
		ConvergenceTol:    opts.ConvergenceTol,
		NCheckConvergence: opts.NCheckConvergence,
		UpdateTopics:      updateTopics,
		Workers:           opts.Workers,
		Seed:              opts.Seed,
		Sink:              opts.Sink,
	})
}

// runWithPriorOptimization re-estimates alpha every OptimizePriorEvery
// iterations by running the trainer in short bursts between
// optimization passes, since trainer.Run's inner loop has no hook for
// mutating hyperparameters mid-run.
func (l *LDA) runWithPriorOptimization(ctx context.Context, s *token.Store, t *counts.Table, opts Options, updateTopics bool) error {
	remaining := opts.NIter
	burst := opts.OptimizePriorEvery
	for remaining > 0 {
		n := burst
		if n > remaining {
			n = remaining
		}
		if err := trainer.Run(ctx, s, t, trainer.Options{
			NIter:             n,
			ConvergenceTol:    opts.ConvergenceTol,
			NCheckConvergence: opts.NCheckConvergence,
			UpdateTopics:      updateTopics,
			Workers:           opts.Workers,
			Seed:              opts.Seed,
			Sink:              opts.Sink,
		}); err != nil {
			return err
		}
		remaining -= n

		opt := priors.New(l.K)
		opt.Collect(t, s)
		opt.Optimize(t, opts.OptimShape, opts.OptimScale, opts.OptimIterations)
		copy(l.Alpha, t.Alpha)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
	return nil
}

// DocTopicDistribution returns the row-stochastic document-topic
// matrix, P(topic|doc), for the corpus passed to FitTransform. It is
// unaffected by later Transform calls, which resample their own
// n_dk against a snapshot of the fitted n_wk/n_k and return their
// result directly rather than mutating the fitted model.
func (l *LDA) DocTopicDistribution() (*mat.Dense, error) {
	if l.state != fitted {
		return nil, fmt.Errorf("warplda: NotFitted: DocTopicDistribution called before FitTransform")
	}
	return counts.DocTopicDistribution(l.table), nil
}

// TopicWordDistribution returns the row-stochastic topic-word matrix,
// P(word|topic), K x V.
func (l *LDA) TopicWordDistribution() (*mat.Dense, error) {
	if l.state != fitted {
		return nil, fmt.Errorf("warplda: NotFitted: TopicWordDistribution called before FitTransform")
	}
	t := l.table
	out := mat.NewDense(l.K, t.V, nil)
	for w := 0; w < t.V; w++ {
		t.NWK[w].ForEach(func(k int, c int64) error {
			out.Set(k, w, float64(c))
			return nil
		})
	}
	for k := 0; k < l.K; k++ {
		denom := float64(t.NK.At(k)) + t.BetaSum
		for w := 0; w < t.V; w++ {
			out.Set(k, w, (out.At(k, w)+t.Beta)/denom)
		}
	}
	return out, nil
}

// Perplexity computes exp(-loglikelihood/token) over the fitted
// model's word-topic counts (Transform calls do not change it), using
// the trainer's pseudo-log-likelihood convergence probe as the
// log-likelihood estimate.
func (l *LDA) Perplexity() float64 {
	if l.state != fitted {
		panic("warplda: Perplexity called before FitTransform")
	}
	ll := trainer.PseudoLogLikelihood(l.table)
	n := l.table.NK.Sum()
	if n == 0 {
		return math.Inf(1)
	}
	return math.Exp(-ll / float64(n))
}

// Vocabulary returns the vocabulary the model was fit on.
func (l *LDA) Vocabulary() *dtm.Vocabulary {
	if l.state != fitted {
		panic("warplda: Vocabulary called before FitTransform")
	}
	return l.vocab
}

// Snapshot packages the model's persistent state for persist.Save.
func (l *LDA) Snapshot() persist.Snapshot {
	if l.state != fitted {
		panic("warplda: Snapshot called before FitTransform")
	}
	nwk := make([]hist.SparseRow, len(l.table.NWK))
	for w, h := range l.table.NWK {
		nwk[w] = h.(hist.SparseRow)
	}
	return persist.Snapshot{
		Vocabulary: l.vocab.Tokens,
		K:          l.K,
		Alpha:      append([]float64(nil), l.Alpha...),
		Beta:       l.Beta,
		NWK:        nwk,
		NK:         l.table.NK,
	}
}

// Restore rebuilds an LDA from a Snapshot previously produced by
// Snapshot, ready for Transform, TopicWordDistribution and Perplexity.
// NumTokens panics on the result until Transform is called, since a
// restored model carries no token store.
func Restore(snap persist.Snapshot) (*LDA, error) {
	l, err := New(snap.K, 1.0, snap.Beta)
	if err != nil {
		return nil, err
	}
	copy(l.Alpha, snap.Alpha)

	vocab, err := dtm.NewVocabulary(snap.Vocabulary)
	if err != nil {
		return nil, err
	}

	t, err := counts.New(snap.K, len(snap.Vocabulary), 0, 1.0, snap.Beta)
	if err != nil {
		return nil, err
	}
	copy(t.Alpha, l.Alpha)
	t.AlphaSum = sum(l.Alpha)
	nwk := make([]hist.Counter, len(snap.NWK))
	for w, s := range snap.NWK {
		nwk[w] = s
	}
	t.ResetFromSnapshot(nwk, snap.NK)

	l.vocab = vocab
	l.table = t
	l.state = fitted
	return l, nil
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
