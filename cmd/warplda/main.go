// warplda is a command line trainer: given a vocabulary file and a
// one-document-per-line corpus file, it fits an LDA topic model with
// WarpLDA and writes the fitted model to disk.
//
// Usage:
//
//	warplda -vocab=./testdata/vocab -corpus=./testdata/corpus -topics=10 -model=model.bin
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/nlpkit/warplda"
	"github.com/nlpkit/warplda/core/trainer"
	"github.com/nlpkit/warplda/dtm"
	"github.com/nlpkit/warplda/persist"
	"github.com/nlpkit/warplda/topwords"
)

// config mirrors the command line flags below and can be supplied as a
// YAML file via -config, for runs where the flag list is unwieldy.
// Flags explicitly set on the command line still win over the file.
type config struct {
	Vocab              string  `yaml:"vocab"`
	Corpus             string  `yaml:"corpus"`
	MinDocLen          int     `yaml:"minlen"`
	MaxDocLen          int     `yaml:"maxlen"`
	Topics             int     `yaml:"topics"`
	Iter               int     `yaml:"iter"`
	Alpha              float64 `yaml:"alpha"`
	Beta               float64 `yaml:"beta"`
	Workers            int     `yaml:"workers"`
	Seed               int64   `yaml:"seed"`
	Tol                float64 `yaml:"tol"`
	CheckEvery         int     `yaml:"check_every"`
	OptimizePriorEvery int     `yaml:"optimize_prior_every"`
	OptimShape         float64 `yaml:"optim_shape"`
	OptimScale         float64 `yaml:"optim_scale"`
	OptimIter          int     `yaml:"optim_iter"`
	Model              string  `yaml:"model"`
	Load               string  `yaml:"load"`
	TopWords           int     `yaml:"top_words"`
}

func defaultConfig() config {
	return config{
		Vocab: "./testdata/vocab", Corpus: "./testdata/corpus",
		MinDocLen: 1, MaxDocLen: -1,
		Topics: 10, Iter: 100, Alpha: 0.01, Beta: 0.01,
		Workers: 1, Seed: 1, Tol: 1e-4, CheckEvery: 1,
		OptimScale: 1e7, OptimIter: 10, TopWords: 10,
	}
}

// loadConfigFile overrides cfg's fields with anything set in the YAML
// file at path; any field the file omits keeps cfg's value.
func loadConfigFile(path string, cfg *config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return yaml.Unmarshal(data, cfg)
}

// scanConfigPath finds a -config/--config value in argv without going
// through flag.Parse, since the real flag set's defaults (below) need
// the config file's values before they can be declared.
func scanConfigPath(args []string) string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-config="):
			return strings.TrimPrefix(a, "-config=")
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

func main() {
	preset := defaultConfig()
	if path := scanConfigPath(os.Args[1:]); path != "" {
		if err := loadConfigFile(path, &preset); err != nil {
			log.Fatalf("warplda: %v", err)
		}
	}

	flag.String("config", "", "optional YAML config file; command-line flags override its values")
	flagVocab := flag.String("vocab", preset.Vocab, "Vocabulary file, one term per line")
	flagCorpus := flag.String("corpus", preset.Corpus, "Corpus file, one whitespace-tokenized document per line")
	flagMinDocLen := flag.Int("minlen", preset.MinDocLen, "minimum document length, in tokens")
	flagMaxDocLen := flag.Int("maxlen", preset.MaxDocLen, "maximum document length, in tokens; -1 disables")
	flagTopics := flag.Int("topics", preset.Topics, "number of topics to learn")
	flagIter := flag.Int("iter", preset.Iter, "Gibbs sampling iterations")
	flagAlpha := flag.Float64("alpha", preset.Alpha, "doc-topic Dirichlet prior")
	flagBeta := flag.Float64("beta", preset.Beta, "topic-word Dirichlet prior")
	flagWorkers := flag.Int("workers", preset.Workers, "goroutines per sweep")
	flagSeed := flag.Int64("seed", preset.Seed, "RNG seed")
	flagTol := flag.Float64("tol", preset.Tol, "relative pseudo-log-likelihood tolerance for early stop; negative disables")
	flagCheck := flag.Int("check_every", preset.CheckEvery, "check convergence every N iterations")
	flagOptimizeEvery := flag.Int("optimize_prior_every", preset.OptimizePriorEvery, "re-estimate an asymmetric alpha every N iterations; 0 disables")
	flagOptimShape := flag.Float64("optim_shape", preset.OptimShape, "Gamma hyperprior shape for prior optimization")
	flagOptimScale := flag.Float64("optim_scale", preset.OptimScale, "Gamma hyperprior scale for prior optimization")
	flagOptimIter := flag.Int("optim_iter", preset.OptimIter, "fixed-point iterations per prior optimization pass")
	flagModel := flag.String("model", preset.Model, "path to write the fitted model snapshot to")
	flagLoad := flag.String("load", preset.Load, "path to a model snapshot to load instead of fitting; switches to inference mode")
	flagTopWords := flag.Int("top_words", preset.TopWords, "top words to print per topic after fitting")
	flag.Parse()

	runID := newRunID()
	log.Printf("run %s starting", runID)

	vocab, err := loadVocab(*flagVocab)
	if err != nil {
		log.Fatalf("warplda: %v", err)
	}
	matrix, err := loadCorpus(*flagCorpus, vocab)
	if err != nil {
		log.Fatalf("warplda: %v", err)
	}
	matrix = matrix.FilterByLength(*flagMinDocLen, *flagMaxDocLen)
	log.Printf("Loaded %d documents over a vocabulary of %d terms.", matrix.NumRows(), matrix.NumCols())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := warplda.NewOptions()
	opts.NIter = *flagIter
	opts.ConvergenceTol = *flagTol
	opts.NCheckConvergence = *flagCheck
	opts.Workers = *flagWorkers
	opts.Seed = *flagSeed
	opts.OptimizePriorEvery = *flagOptimizeEvery
	opts.OptimShape = *flagOptimShape
	opts.OptimScale = *flagOptimScale
	opts.OptimIterations = *flagOptimIter
	opts.Sink = logSink{}

	var model *warplda.LDA
	if *flagLoad != "" {
		model, err = loadModel(*flagLoad)
		if err != nil {
			log.Fatalf("warplda: %v", err)
		}
		if _, err := model.Transform(ctx, matrix, opts); err != nil {
			log.Fatalf("warplda: %v", err)
		}
	} else {
		model, err = warplda.New(*flagTopics, *flagAlpha, *flagBeta)
		if err != nil {
			log.Fatalf("warplda: %v", err)
		}
		if _, err := model.FitTransform(ctx, matrix, opts); err != nil {
			log.Fatalf("warplda: %v", err)
		}
	}

	printTopWords(model, vocab, matrix, *flagTopWords)

	if *flagModel != "" {
		if err := saveModel(model, *flagModel); err != nil {
			log.Fatalf("warplda: %v", err)
		}
		log.Printf("Saved model to %s.", *flagModel)
	}
}

// newRunID generates a sortable, unique identifier for this invocation,
// logged at startup so separate runs are distinguishable in shared logs.
func newRunID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func loadModel(filename string) (*warplda.LDA, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}
	defer f.Close()
	snap, err := persist.Load(f)
	if err != nil {
		return nil, err
	}
	return warplda.Restore(snap)
}

type logSink struct{}

func (logSink) Observe(p trainer.Progress) {
	if p.LL != 0 {
		log.Printf("iteration %04d done in %s, pseudo-log-likelihood %f", p.Iter, p.Elapsed, p.LL)
	} else {
		log.Printf("iteration %04d done in %s", p.Iter, p.Elapsed)
	}
}

func printTopWords(model *warplda.LDA, vocab []string, m *dtm.Matrix, topN int) {
	dist, err := model.TopicWordDistribution()
	if err != nil {
		log.Fatalf("warplda: %v", err)
	}
	freq := topwords.CorpusFrequency(wordTotals(m))
	for k := 0; k < model.K; k++ {
		ranked := topwords.Rank(dist, k, freq, 0.6, topN)
		var words []string
		for _, r := range ranked {
			words = append(words, vocab[r.Term])
		}
		fmt.Printf("topic %03d: %s\n", k, strings.Join(words, " "))
	}
}

func wordTotals(m *dtm.Matrix) []int64 {
	totals := make([]int64, m.NumCols())
	for r := 0; r < m.NumRows(); r++ {
		cols, counts := m.Row(r)
		for i, c := range cols {
			totals[c] += int64(counts[i])
		}
	}
	return totals
}

func saveModel(model *warplda.LDA, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	defer f.Close()
	return persist.Save(f, model.Snapshot())
}

// loadVocab reads one vocabulary term per line, transparently
// gunzipping files whose name ends in .gz.
func loadVocab(filename string) ([]string, error) {
	r, err := openMaybeGzip(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var tokens []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line != "" {
			tokens = append(tokens, line)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading vocab %s: %w", filename, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("MissingVocabulary: %s has no terms", filename)
	}
	return tokens, nil
}

// loadCorpus reads one whitespace-tokenized document per line.
// Tokens not present in vocab are silently dropped, matching the
// common convention that the vocabulary has already been pruned
// upstream of this trainer.
func loadCorpus(filename string, vocab []string) (*dtm.Matrix, error) {
	ids := make(map[string]int32, len(vocab))
	for i, t := range vocab {
		ids[t] = int32(i)
	}

	r, err := openMaybeGzip(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var rowLabels []string
	var cells [][]dtm.Cell
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	doc := 0
	for s.Scan() {
		counts := make(map[int32]uint32)
		for _, f := range strings.Fields(s.Text()) {
			if id, ok := ids[f]; ok {
				counts[id]++
			}
		}
		row := make([]dtm.Cell, 0, len(counts))
		for id, c := range counts {
			row = append(row, dtm.Cell{Column: id, Count: c})
		}
		cells = append(cells, row)
		rowLabels = append(rowLabels, fmt.Sprintf("doc-%d", doc))
		doc++
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", filename, err)
	}

	return dtm.NewMatrix(vocab, rowLabels, cells)
}

func openMaybeGzip(filename string) (io.ReadCloser, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}
	if strings.HasSuffix(filename, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gunzipping %s: %w", filename, err)
		}
		return readCloser{gz, f}, nil
	}
	return f, nil
}

// readCloser pairs a decompressing reader with the underlying file so
// closing it closes both.
type readCloser struct {
	io.ReadCloser
	file *os.File
}

func (r readCloser) Close() error {
	err := r.ReadCloser.Close()
	if ferr := r.file.Close(); err == nil {
		err = ferr
	}
	return err
}
