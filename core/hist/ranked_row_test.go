package hist

import "testing"

func TestRankedRowStaysSortedDescendingAfterInc(t *testing.T) {
	r := NewRankedRow()
	r.Inc(0, 3)
	r.Inc(1, 7)
	r.Inc(2, 5)

	want := []struct {
		topic int32
		count int32
	}{{1, 7}, {2, 5}, {0, 3}}
	if r.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", r.Len(), len(want))
	}
	for i, w := range want {
		if r.Topics[i] != w.topic || r.Counts[i] != w.count {
			t.Fatalf("entry %d = (%d, %d), want (%d, %d)", i, r.Topics[i], r.Counts[i], w.topic, w.count)
		}
	}
}

func TestRankedRowIncOnExistingTopicReorders(t *testing.T) {
	r := NewRankedRow()
	r.Inc(0, 1)
	r.Inc(1, 5)
	r.Inc(0, 10) // topic 0 now leads with 11

	if r.Topics[0] != 0 || r.Counts[0] != 11 {
		t.Fatalf("leading entry = (%d, %d), want (0, 11)", r.Topics[0], r.Counts[0])
	}
}

func TestRankedRowDecDropsZeroEntryAndReorders(t *testing.T) {
	r := NewRankedRow()
	r.Inc(0, 4)
	r.Inc(1, 9)
	r.Dec(1, 9)

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after the leading entry hits zero", r.Len())
	}
	if r.Topics[0] != 0 || r.Counts[0] != 4 {
		t.Fatalf("remaining entry = (%d, %d), want (0, 4)", r.Topics[0], r.Counts[0])
	}
}

func TestRankedRowForEachVisitsDescending(t *testing.T) {
	r := NewRankedRow()
	r.Inc(0, 1)
	r.Inc(1, 9)
	r.Inc(2, 4)

	var counts []int64
	r.ForEach(func(_ int, count int64) error {
		counts = append(counts, count)
		return nil
	})
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[i-1] {
			t.Fatalf("ForEach order not descending: %v", counts)
		}
	}
}

func TestRankedRowAddDiffAppliesBothSides(t *testing.T) {
	r := NewRankedRow()
	r.Inc(0, 5)
	r.Inc(1, 3)

	added := NewRankedRow()
	added.Inc(2, 6)
	removed := NewRankedRow()
	removed.Inc(0, 5)

	r.AddDiff(added, removed)

	if got := r.At(0); got != 0 {
		t.Fatalf("At(0) after AddDiff = %d, want 0 (fully removed)", got)
	}
	if got := r.At(1); got != 3 {
		t.Fatalf("At(1) after AddDiff = %d, want 3 (untouched)", got)
	}
	if got := r.At(2); got != 6 {
		t.Fatalf("At(2) after AddDiff = %d, want 6 (newly added)", got)
	}
}

func TestRankedRowCloneIsIndependent(t *testing.T) {
	r := NewRankedRow()
	r.Inc(0, 2)
	clone := r.Clone()
	r.Inc(0, 5)
	if got := clone.At(0); got != 2 {
		t.Fatalf("clone.At(0) = %d, want 2 (unaffected by later mutation of the original)", got)
	}
}

func TestNewRankedRowWithCapacityStartsEmpty(t *testing.T) {
	r := NewRankedRowWithCapacity(8)
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
	if cap(r.Topics) < 8 {
		t.Fatalf("cap(Topics) = %d, want at least 8", cap(r.Topics))
	}
}
