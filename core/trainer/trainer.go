// Package trainer drives the alternating doc/word sweeps for N
// iterations, probing convergence every few iterations via the
// pseudo-log-likelihood, and yielding to cancellation between sweeps.
package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/nlpkit/warplda/core/counts"
	"github.com/nlpkit/warplda/core/sweep"
	"github.com/nlpkit/warplda/core/token"
)

// Progress is one (iter, ℓ, elapsed) tuple handed to a ProgressSink.
// ℓ is 0 on iterations where the convergence probe was not computed.
type Progress struct {
	Iter    int
	LL      float64
	Elapsed time.Duration
}

// ProgressSink receives one Progress per iteration. nil is a valid
// sink (no-op).
type ProgressSink interface {
	Observe(Progress)
}

// Options configures one call to Run.
type Options struct {
	NIter             int
	ConvergenceTol    float64 // negative disables early stop
	NCheckConvergence int
	UpdateTopics      bool // false for inference (transform) mode
	Workers           int  // goroutines per sweep; <=1 means serial
	Seed              int64
	Sink              ProgressSink
}

// Run alternates doc and word sweeps for opts.NIter iterations over
// (s, t), checking convergence every opts.NCheckConvergence
// iterations and returning early — with the partial, invariant-
// consistent state — on convergence, cancellation, or a non-finite
// likelihood.
func Run(ctx context.Context, s *token.Store, t *counts.Table, opts Options) error {
	if opts.NCheckConvergence < 1 {
		opts.NCheckConvergence = 1
	}

	var prevLL float64
	havePrev := false

	for iter := 1; iter <= opts.NIter; iter++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		if err := sweep.Doc(s, t, sweep.Workers(opts.Workers), opts.Seed+int64(iter)*2); err != nil {
			return fmt.Errorf("trainer: doc sweep at iteration %d: %w", iter, err)
		}
		if err := sweep.Word(s, t, opts.UpdateTopics, sweep.Workers(opts.Workers), opts.Seed+int64(iter)*2+1); err != nil {
			return fmt.Errorf("trainer: word sweep at iteration %d: %w", iter, err)
		}

		ll := 0.0
		checked := false
		if iter%opts.NCheckConvergence == 0 {
			ll = PseudoLogLikelihood(t)
			checked = true
			if isNonFinite(ll) {
				return fmt.Errorf("trainer: Numerical: non-finite pseudo-log-likelihood at iteration %d", iter)
			}
		}

		if opts.Sink != nil {
			opts.Sink.Observe(Progress{Iter: iter, LL: ll, Elapsed: time.Since(start)})
		}

		if checked {
			if havePrev && opts.ConvergenceTol >= 0 && prevLL < 0 && ll < 0 {
				if prevLL/ll-1 < opts.ConvergenceTol {
					return nil
				}
			}
			prevLL = ll
			havePrev = true
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
	return nil
}

func isNonFinite(f float64) bool {
	return f != f || f > 1e308 || f < -1e308
}
