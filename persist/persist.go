// Package persist saves and restores a fitted model's state: the
// vocabulary, hyperparameters, and the two count tables that are
// never shard-local (n_wk, n_k). n_dk is intentionally excluded — it
// is one row per training document and is reconstructed by Transform
// on demand rather than carried across a save/load boundary.
//
// Snapshots are gob-encoded and gzip-compressed, using
// klauspost/compress/gzip rather than the standard library's gzip for
// its faster decoder.
package persist

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/nlpkit/warplda/core/hist"
)

// Snapshot is the on-disk representation of a fitted model.
type Snapshot struct {
	Vocabulary []string
	K          int
	Alpha      []float64
	Beta       float64
	NWK        []hist.SparseRow
	NK         hist.Row
}

// Save writes snap to w as a gzip-compressed gob stream.
func Save(w io.Writer, snap Snapshot) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		return fmt.Errorf("persist: Save: %w", err)
	}
	if err := gob.NewEncoder(gz).Encode(snap); err != nil {
		gz.Close()
		return fmt.Errorf("persist: Save: encode: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("persist: Save: %w", err)
	}
	return nil
}

// Load reads a Snapshot previously written by Save.
func Load(r io.Reader) (Snapshot, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("persist: Load: %w", err)
	}
	defer gz.Close()

	var snap Snapshot
	if err := gob.NewDecoder(gz).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("persist: Load: decode: %w", err)
	}
	return snap, nil
}
