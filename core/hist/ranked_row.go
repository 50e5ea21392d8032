package hist

import (
	"fmt"
	"math"
	"sort"
)

// RankedRow is a per-topic row kept sorted by descending count,
// backed by two parallel slices. It represents n_dk: documents are
// short, so the row is small, and keeping it ranked puts a
// document's dominant topic first when the row is inspected.
type RankedRow struct {
	Topics []int32
	Counts []int32
}

// NewRankedRow returns an empty RankedRow.
func NewRankedRow() *RankedRow {
	return &RankedRow{}
}

// NewRankedRowWithCapacity preallocates for up to cap distinct
// topics, avoiding reallocation when the caller already knows an
// upper bound — for a document's n_dk row that bound is
// min(K, document length).
func NewRankedRowWithCapacity(cap int) *RankedRow {
	return &RankedRow{
		Topics: make([]int32, 0, cap),
		Counts: make([]int32, 0, cap),
	}
}

// Len, Less and Swap satisfy sort.Interface, ordering entries by
// descending count and, within a tie, ascending topic id.
func (r *RankedRow) Len() int { return len(r.Topics) }

func (r *RankedRow) Less(i, j int) bool {
	return r.Counts[i] > r.Counts[j] ||
		(r.Counts[i] == r.Counts[j] && r.Topics[i] < r.Topics[j])
}

func (r *RankedRow) Swap(i, j int) {
	r.Topics[i], r.Topics[j] = r.Topics[j], r.Topics[i]
	r.Counts[i], r.Counts[j] = r.Counts[j], r.Counts[i]
}

// Assign clears r and repopulates it from c, sorted by descending
// count.
func (r *RankedRow) Assign(c Counter) *RankedRow {
	r.Topics = make([]int32, 0, c.Len())
	r.Counts = make([]int32, 0, c.Len())
	c.ForEach(func(topic int, count int64) error {
		r.Topics = append(r.Topics, int32(topic))
		r.Counts = append(r.Counts, int32(count))
		return nil
	})
	sort.Sort(r)
	return r
}

// AddDiff sets r to r + (added - removed), re-ranking the result.
// Used when a document's n_dk row needs to reflect a batch of topic
// reassignments rather than one Inc/Dec pair at a time.
func (r *RankedRow) AddDiff(added, removed *RankedRow) {
	merged := NewSparseRow().AssignRanked(r)
	for i, topic := range added.Topics {
		merged[topic] += added.Counts[i]
	}
	for i, topic := range removed.Topics {
		merged[topic] -= removed.Counts[i]
	}
	for topic, count := range merged {
		if count == 0 {
			delete(merged, topic)
		}
	}
	r.Assign(merged)
}

func (r RankedRow) String() string {
	out := "[ "
	for i, topic := range r.Topics {
		out += fmt.Sprintf("%d:%d ", topic, r.Counts[i])
	}
	return out + "]"
}

// indexOf returns the position of topic in r.Topics, or -1 if absent.
func (r *RankedRow) indexOf(topic int32) int {
	for i, t := range r.Topics {
		if t == topic {
			return i
		}
	}
	return -1
}

func (r RankedRow) At(topic int) int64 {
	if i := (&r).indexOf(int32(topic)); i >= 0 {
		return int64(r.Counts[i])
	}
	return 0
}

// Inc increases topic's count by count, appending a new entry if
// topic was absent, then bubbling it up past any now-smaller entry to
// keep Counts sorted descending.
func (r *RankedRow) Inc(topic, count int) {
	if topic < 0 {
		panic(fmt.Sprintf("hist: RankedRow.Inc: topic %d < 0", topic))
	}
	if count <= 0 {
		panic(fmt.Sprintf("hist: RankedRow.Inc: count %d <= 0", count))
	}
	if count > int(math.MaxInt32) {
		panic(fmt.Sprintf("hist: count %d exceeds MaxInt32", count))
	}

	t, c := int32(topic), int32(count)
	i := r.indexOf(t)
	if i < 0 {
		r.Topics = append(r.Topics, t)
		r.Counts = append(r.Counts, c)
		i = len(r.Topics) - 1
	} else {
		if r.Counts[i] >= math.MaxInt32-c {
			panic(fmt.Sprintf("hist: RankedRow[%d] = %d would overflow", topic, r.Counts[i]))
		}
		r.Counts[i] += c
	}
	r.bubbleUp(i)
}

// Dec decreases topic's count by count, bubbling the entry down and
// dropping it once it hits zero.
func (r *RankedRow) Dec(topic, count int) {
	if topic < 0 {
		panic(fmt.Sprintf("hist: RankedRow.Dec: topic %d < 0", topic))
	}
	if count <= 0 {
		panic(fmt.Sprintf("hist: RankedRow.Dec: count %d <= 0", count))
	}

	i := r.indexOf(int32(topic))
	if i < 0 {
		panic(fmt.Sprintf("hist: RankedRow.Dec: topic %d not present", topic))
	}
	if r.Counts[i] < int32(count) {
		panic(fmt.Sprintf("hist: RankedRow.Dec: count %d < existing %d", count, r.Counts[i]))
	}
	r.Counts[i] -= int32(count)
	i = r.bubbleDown(i)

	if r.Counts[i] == 0 {
		r.Topics = r.Topics[:i]
		r.Counts = r.Counts[:i]
	}
}

func (r *RankedRow) bubbleUp(i int) {
	for i > 0 && r.Counts[i] > r.Counts[i-1] {
		r.Swap(i, i-1)
		i--
	}
}

func (r *RankedRow) bubbleDown(i int) int {
	for i+1 < len(r.Topics) && r.Counts[i] < r.Counts[i+1] {
		r.Swap(i, i+1)
		i++
	}
	return i
}

// ForEach visits entries from the largest count to the smallest.
func (r *RankedRow) ForEach(p func(topic int, count int64) error) error {
	for i := range r.Topics {
		if err := p(int(r.Topics[i]), int64(r.Counts[i])); err != nil {
			return err
		}
	}
	return nil
}

func (r *RankedRow) Clone() Counter {
	n := &RankedRow{
		Topics: append([]int32(nil), r.Topics...),
		Counts: append([]int32(nil), r.Counts...),
	}
	return n
}
