package hist

import (
	"encoding/gob"
	"fmt"
	"math"
)

// SparseRow is a map-backed per-topic row, used for n_wk: most words
// only ever land in a handful of the K topics over a training run,
// so a map stays far smaller than a K-wide array would. Package
// priors also reuses SparseRow for frequency-of-frequency tables
// (how many documents have length L), since both are "mostly zero,
// occasionally not" counters over a bounded-but-unknown-size domain.
type SparseRow map[int32]int32

func init() {
	gob.Register(SparseRow{})
}

// NewSparseRow allocates an empty SparseRow.
func NewSparseRow() SparseRow {
	return make(SparseRow)
}

// Reset removes every entry without reallocating the backing map.
func (s SparseRow) Reset() {
	for k := range s {
		delete(s, k)
	}
}

// AssignRanked overwrites s with r's entries, discarding s's rank
// ordering since a map carries none.
func (s SparseRow) AssignRanked(r *RankedRow) SparseRow {
	s.Reset()
	for i := 0; i < r.Len(); i++ {
		s[r.Topics[i]] = r.Counts[i]
	}
	return s
}

// Merge adds every entry of o into s in place.
func (s SparseRow) Merge(o SparseRow) {
	for topic, count := range o {
		s[topic] += count
	}
}

func (s SparseRow) Len() int {
	return len(s)
}

func (s SparseRow) At(topic int) int64 {
	return int64(s[int32(topic)])
}

func (s SparseRow) Inc(topic, count int) {
	if count <= 0 {
		panic(fmt.Sprintf("hist: SparseRow.Inc(topic=%d, count=%d): count must be > 0", topic, count))
	}
	if count > int(math.MaxInt32) {
		panic(fmt.Sprintf("hist: count %d exceeds MaxInt32", count))
	}
	t := int32(topic)
	if s[t] >= math.MaxInt32-int32(count) {
		panic(fmt.Sprintf("hist: SparseRow[%d] = %d would overflow", topic, s[t]))
	}
	s[t] += int32(count)
}

func (s SparseRow) Dec(topic, count int) {
	if count <= 0 {
		panic(fmt.Sprintf("hist: SparseRow.Dec(topic=%d, count=%d): count must be > 0", topic, count))
	}
	t := int32(topic)
	s[t] -= int32(count)
	if s[t] == 0 {
		delete(s, t)
	}
}

func (s SparseRow) ForEach(p func(topic int, count int64) error) error {
	for topic, count := range s {
		if err := p(int(topic), int64(count)); err != nil {
			return err
		}
	}
	return nil
}

func (s SparseRow) Clone() Counter {
	n := NewSparseRow()
	for topic, count := range s {
		n[topic] = count
	}
	return n
}
