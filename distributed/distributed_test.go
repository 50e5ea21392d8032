package distributed

import (
	"context"
	"testing"
	"time"

	"github.com/nlpkit/warplda/dtm"
)

func buildShards(t *testing.T) []*dtm.Matrix {
	vocab := []string{"a", "b", "c"}
	s0, err := dtm.NewMatrix(vocab, []string{"d0", "d1"}, [][]dtm.Cell{
		{{Column: 0, Count: 4}, {Column: 1, Count: 2}},
		{{Column: 1, Count: 3}, {Column: 2, Count: 1}},
	})
	if err != nil {
		t.Fatalf("dtm.NewMatrix: %v", err)
	}
	s1, err := dtm.NewMatrix(vocab, []string{"d2", "d3"}, [][]dtm.Cell{
		{{Column: 0, Count: 2}, {Column: 2, Count: 5}},
		{{Column: 1, Count: 1}, {Column: 2, Count: 3}},
	})
	if err != nil {
		t.Fatalf("dtm.NewMatrix: %v", err)
	}
	return []*dtm.Matrix{s0, s1}
}

func TestNewCoordinatorSeedsGlobalFromWorkers(t *testing.T) {
	shards := buildShards(t)
	alpha := []float64{0.5, 0.5, 0.5}
	c, err := NewCoordinator(shards, 3, alpha, 0.1, 1)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	if c.ID == "" {
		t.Fatal("NewCoordinator did not assign an ID")
	}

	var total int64
	c.Table.NK.ForEach(func(_ int, cnt int64) error {
		total += cnt
		return nil
	})
	wantTokens := int64(shards[0].NumTokens() + shards[1].NumTokens())
	if total != wantTokens {
		t.Fatalf("global NK total = %d, want %d (sum of shard token counts)", total, wantTokens)
	}
}

func TestCoordinatorRunPreservesTotalCounts(t *testing.T) {
	shards := buildShards(t)
	alpha := []float64{0.5, 0.5, 0.5}
	c, err := NewCoordinator(shards, 3, alpha, 0.1, 1)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	var before int64
	c.Table.NK.ForEach(func(_ int, cnt int64) error {
		before += cnt
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	scores, err := c.Run(ctx, 2, 7)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("Run returned %d scores, want 2", len(scores))
	}

	var after int64
	c.Table.NK.ForEach(func(_ int, cnt int64) error {
		after += cnt
		return nil
	})
	if before != after {
		t.Fatalf("total token count changed across distributed iterations: %d -> %d", before, after)
	}
}

func TestCoordinatorDocTopicDistributionDims(t *testing.T) {
	shards := buildShards(t)
	alpha := []float64{0.5, 0.5, 0.5}
	c, err := NewCoordinator(shards, 3, alpha, 0.1, 1)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	dist := c.DocTopicDistribution()
	r, k := dist.Dims()
	if r != 4 || k != 3 {
		t.Fatalf("dims = (%d, %d), want (4, 3)", r, k)
	}
}
