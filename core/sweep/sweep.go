// Package sweep implements the two passes at the core of WarpLDA: a
// doc sweep that regroups tokens by document and resamples with the
// document proposal, and a word sweep that regroups by word and
// resamples with the word proposal.
//
// Both sweeps partition work across goroutines by the "active side"
// key — the row of the count table that sweep mutates — so that no
// two goroutines ever touch the same row concurrently and no locks
// are needed.
package sweep

import (
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/nlpkit/warplda/core/counts"
	"github.com/nlpkit/warplda/core/propose"
	"github.com/nlpkit/warplda/core/token"
)

// Workers bounds how many goroutines a sweep fans out across. A
// value <= 1 runs the sweep on the calling goroutine.
type Workers int

// Doc resamples every token by document, mutating only n_dk; n_wk and
// n_k are read-only for the whole sweep (they stay exactly as the
// previous word sweep left them, which is the "stale" snapshot the
// doc sweep's MH ratio is evaluated against). This holds in both fit
// and transform mode, so Doc takes no update_topics flag.
func Doc(s *token.Store, t *counts.Table, workers Workers, seed int64) error {
	return partition(int(s.D), int(workers), seed, func(d int32, rng *rand.Rand) {
		resampleDoc(s, t, d, rng)
	})
}

func resampleDoc(s *token.Store, t *counts.Table, d int32, rng *rand.Rand) {
	for _, tok := range s.DocTokens(d) {
		cur := s.ZNew[tok]
		w := s.W[tok]
		cand := propose.DocProposal(s, t, d, rng)

		t.RemoveDocTopic(d, cur)
		pi := propose.AcceptRatio(t, d, w, cur, cand, propose.DocProposalKind)
		next := cur
		if rng.Float64() < pi {
			next = cand
		}
		t.AddDocTopic(d, next)

		s.ZOld[tok] = cur
		s.ZNew[tok] = next
	}
}

// Word resamples every token by word. When updateTopics is true
// (fit mode) it mutates n_wk and n_k and leaves n_dk as the stale
// side, which is exactly what word-keyed partitioning is safe for.
// When updateTopics is false (inference mode), n_wk/n_k are frozen,
// so the active side flips to n_dk — which is document-keyed, not
// word-keyed. Partitioning by word would then let two goroutines
// touch the same document's row, so in that mode Word runs on a
// single goroutine regardless of workers.
func Word(s *token.Store, t *counts.Table, updateTopics bool, workers Workers, seed int64) error {
	if !updateTopics {
		workers = 1
	}
	return partition(int(s.V), int(workers), seed, func(w int32, rng *rand.Rand) {
		resampleWord(s, t, w, updateTopics, rng)
	})
}

func resampleWord(s *token.Store, t *counts.Table, w int32, updateTopics bool, rng *rand.Rand) {
	for _, tok := range s.WordTokens(w) {
		cur := s.ZNew[tok]
		d := s.Doc[tok]
		cand := propose.WordProposal(s, t, w, rng)

		if updateTopics {
			t.RemoveWordTopic(w, cur)
		} else {
			t.RemoveDocTopic(d, cur)
		}

		pi := propose.AcceptRatio(t, d, w, cur, cand, propose.WordProposalKind)
		next := cur
		if rng.Float64() < pi {
			next = cand
		}

		if updateTopics {
			t.AddWordTopic(w, next)
		} else {
			t.AddDocTopic(d, next)
		}

		s.ZOld[tok] = cur
		s.ZNew[tok] = next
	}
}

// partition runs fn(i, rng) for every i in [0, n), fanning out across
// at most workers goroutines, each with its own *rand.Rand seeded
// deterministically from seed and the first index of its chunk, so a
// fixed seed and worker count reproduce the same sweep. Changing the
// worker count moves the chunk boundaries and so changes the draws.
func partition(n, workers int, seed int64, fn func(int32, *rand.Rand)) error {
	if n == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	var g errgroup.Group
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		start, end := start, end
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(start) + 1))
			for i := start; i < end; i++ {
				fn(int32(i), rng)
			}
			return nil
		})
	}
	return g.Wait()
}
