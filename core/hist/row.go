package hist

import (
	"encoding/gob"
	"fmt"
	"math"
)

// Row is a fixed-size per-topic count array, used for n_k: K is
// small and n_k is incremented or decremented on every single token
// resample, so a flat array beats any map-based representation here.
type Row []int64

func init() {
	gob.Register(Row{})
}

// NewRow allocates a zeroed Row over k topics.
func NewRow(k int) Row {
	return make(Row, k)
}

func (r Row) At(topic int) int64 {
	return r[topic]
}

func (r Row) Inc(topic, count int) {
	if count < 0 {
		panic(fmt.Sprintf("hist: Inc(topic=%d, count=%d): count must be >= 0", topic, count))
	}
	if r[topic] >= math.MaxInt64-int64(count) {
		panic(fmt.Sprintf("hist: Row[%d] = %d would overflow", topic, r[topic]))
	}
	r[topic] += int64(count)
}

func (r Row) Dec(topic, count int) {
	if count < 0 {
		panic(fmt.Sprintf("hist: Dec(topic=%d, count=%d): count must be >= 0", topic, count))
	}
	r[topic] -= int64(count)
}

func (r Row) Len() int {
	return len(r)
}

// Sum returns the total mass across every topic, the token count the
// row's counts must add up to.
func (r Row) Sum() int64 {
	var total int64
	for _, c := range r {
		total += c
	}
	return total
}

func (r Row) ForEach(p func(topic int, count int64) error) error {
	for topic, count := range r {
		if err := p(topic, count); err != nil {
			return err
		}
	}
	return nil
}

func (r Row) Clone() Counter {
	n := NewRow(r.Len())
	copy(n, r)
	return n
}
