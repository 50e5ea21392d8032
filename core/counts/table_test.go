package counts

import (
	"math/rand"
	"testing"

	"github.com/nlpkit/warplda/core/token"
	"github.com/nlpkit/warplda/dtm"
)

func TestNewRejectsInvalidHyperparameters(t *testing.T) {
	if _, err := New(0, 2, 2, 0.1, 0.1); err == nil {
		t.Fatal("expected an error for K=0")
	}
	if _, err := New(2, 2, 2, 0, 0.1); err == nil {
		t.Fatal("expected an error for alpha=0")
	}
	if _, err := New(2, 2, 2, 0.1, -1); err == nil {
		t.Fatal("expected an error for beta<0")
	}
}

func TestAddRemoveConsistency(t *testing.T) {
	tbl, err := New(3, 2, 2, 0.1, 0.1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tbl.Add(0, 1, 2)
	if got := tbl.NDK[0].At(2); got != 1 {
		t.Fatalf("NDK[0].At(2) = %d, want 1", got)
	}
	if got := tbl.NWK[1].At(2); got != 1 {
		t.Fatalf("NWK[1].At(2) = %d, want 1", got)
	}
	if got := tbl.NK.At(2); got != 1 {
		t.Fatalf("NK.At(2) = %d, want 1", got)
	}
	tbl.Remove(0, 1, 2)
	if got := tbl.NDK[0].At(2); got != 0 {
		t.Fatalf("NDK[0].At(2) after Remove = %d, want 0", got)
	}
	if got := tbl.NWK[1].At(2); got != 0 {
		t.Fatalf("NWK[1].At(2) after Remove = %d, want 0", got)
	}
	if got := tbl.NK.At(2); got != 0 {
		t.Fatalf("NK.At(2) after Remove = %d, want 0", got)
	}
}

func TestInitFromStoreMatchesAssignments(t *testing.T) {
	m, err := dtm.NewMatrix([]string{"a", "b"}, []string{"d0"}, [][]dtm.Cell{{{Column: 0, Count: 2}, {Column: 1, Count: 1}}})
	if err != nil {
		t.Fatalf("dtm.NewMatrix: %v", err)
	}
	s := token.Build(m, 2, rand.New(rand.NewSource(1)))
	tbl, err := New(2, 2, 1, 0.1, 0.1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	InitFromStore(tbl, s)

	var total int64
	tbl.NDK[0].ForEach(func(_ int, c int64) error {
		total += c
		return nil
	})
	if int(total) != s.NumTokens() {
		t.Fatalf("sum of NDK[0] = %d, want %d", total, s.NumTokens())
	}

	var nk int64
	tbl.NK.ForEach(func(_ int, c int64) error {
		nk += c
		return nil
	})
	if int(nk) != s.NumTokens() {
		t.Fatalf("sum of NK = %d, want %d", nk, s.NumTokens())
	}
}

func TestSnapshotAndDeltaRoundTrip(t *testing.T) {
	tbl, err := New(2, 2, 1, 0.1, 0.1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tbl.Add(0, 0, 0)
	tbl.Add(0, 1, 1)

	nwk, nk := tbl.SnapshotGlobal()

	shard, err := New(2, 2, 0, 0.1, 0.1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	shard.ResetFromSnapshot(nwk, nk)
	shard.TrackLocalDelta()
	shard.AddWordTopic(0, 1)
	shard.RemoveWordTopic(0, 0)

	delta := shard.LocalDelta()
	tbl.ApplyDelta(delta)

	if got := tbl.NWK[0].At(0); got != 0 {
		t.Fatalf("NWK[0].At(0) after ApplyDelta = %d, want 0", got)
	}
	if got := tbl.NWK[0].At(1); got != 1 {
		t.Fatalf("NWK[0].At(1) after ApplyDelta = %d, want 1", got)
	}
	if got := tbl.NK.At(0); got != 0 {
		t.Fatalf("NK.At(0) after ApplyDelta = %d, want 0", got)
	}
	if got := tbl.NK.At(1); got != 2 {
		t.Fatalf("NK.At(1) after ApplyDelta = %d, want 2", got)
	}
}

func TestSnapshotExcludesDocTopics(t *testing.T) {
	tbl, err := New(2, 2, 1, 0.1, 0.1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tbl.Add(0, 0, 1)
	nwk, _ := tbl.SnapshotGlobal()
	if len(nwk) != 2 {
		t.Fatalf("snapshot carries %d word rows, want 2 (V)", len(nwk))
	}
	// There is no NDK field on the snapshot at all -- this test exists
	// to document that fact for future readers, not to exercise any
	// runtime behavior beyond what TestSnapshotAndDeltaRoundTrip covers.
}

func TestDocTopicDistributionIsRowStochastic(t *testing.T) {
	tbl, err := New(2, 2, 1, 0.5, 0.1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tbl.AddDocTopic(0, 0)
	tbl.AddDocTopic(0, 0)
	tbl.AddDocTopic(0, 1)

	dist := DocTopicDistribution(tbl)
	r, c := dist.Dims()
	if r != 1 || c != 2 {
		t.Fatalf("dims = (%d, %d), want (1, 2)", r, c)
	}
	sum := dist.At(0, 0) + dist.At(0, 1)
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("row does not sum to 1: %f", sum)
	}
}
