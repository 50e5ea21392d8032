package trainer

import (
	"context"
	"math/rand"
	"testing"

	"github.com/nlpkit/warplda/core/counts"
	"github.com/nlpkit/warplda/core/token"
	"github.com/nlpkit/warplda/dtm"
)

func buildFixture(t *testing.T) (*token.Store, *counts.Table) {
	m, err := dtm.NewMatrix(
		[]string{"a", "b", "c"},
		[]string{"d0", "d1", "d2"},
		[][]dtm.Cell{
			{{Column: 0, Count: 4}, {Column: 1, Count: 2}},
			{{Column: 1, Count: 3}, {Column: 2, Count: 1}},
			{{Column: 0, Count: 2}, {Column: 2, Count: 5}},
		},
	)
	if err != nil {
		t.Fatalf("dtm.NewMatrix: %v", err)
	}
	s := token.Build(m, 3, rand.New(rand.NewSource(1)))
	tbl, err := counts.New(3, 3, 3, 0.5, 0.1)
	if err != nil {
		t.Fatalf("counts.New: %v", err)
	}
	counts.InitFromStore(tbl, s)
	return s, tbl
}

func TestPseudoLogLikelihoodIsNegative(t *testing.T) {
	_, tbl := buildFixture(t)
	ll := PseudoLogLikelihood(tbl)
	if ll >= 0 {
		t.Fatalf("PseudoLogLikelihood = %f, want < 0", ll)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	s, tbl := buildFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, s, tbl, Options{NIter: 100, NCheckConvergence: 1, UpdateTopics: true, Workers: 1, Seed: 1})
	if err != nil {
		t.Fatalf("Run returned an error on cancellation: %v", err)
	}
}

func TestRunReportsProgress(t *testing.T) {
	s, tbl := buildFixture(t)
	var seen []Progress
	sink := sinkFunc(func(p Progress) { seen = append(seen, p) })
	err := Run(context.Background(), s, tbl, Options{
		NIter: 3, NCheckConvergence: 1, UpdateTopics: true, Workers: 1, Seed: 1, Sink: sink,
		ConvergenceTol: -1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("sink observed %d iterations, want 3", len(seen))
	}
	for i, p := range seen {
		if p.Iter != i+1 {
			t.Fatalf("progress[%d].Iter = %d, want %d", i, p.Iter, i+1)
		}
	}
}

func TestRunStopsEarlyOnConvergence(t *testing.T) {
	s, tbl := buildFixture(t)
	var seen []Progress
	sink := sinkFunc(func(p Progress) { seen = append(seen, p) })
	err := Run(context.Background(), s, tbl, Options{
		NIter: 100, NCheckConvergence: 1, UpdateTopics: true, Workers: 1, Seed: 1, Sink: sink,
		ConvergenceTol: 10, // loose enough that the second checked iteration always satisfies it
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) >= 100 {
		t.Fatalf("Run ran all %d iterations, want an early stop once the convergence probe is satisfied", len(seen))
	}
	if len(seen) < 2 {
		t.Fatalf("Run stopped after %d iteration(s), want at least 2 (a prior likelihood is needed before the probe can trigger)", len(seen))
	}
}

type sinkFunc func(Progress)

func (f sinkFunc) Observe(p Progress) { f(p) }
