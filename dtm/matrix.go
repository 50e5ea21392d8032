// Package dtm defines the document-term matrix that a tokenizer or
// vectorizer hands to the engine, and the labeled vocabulary that
// comes with it. Assembling this matrix from raw text is outside the
// scope of this module; dtm only defines the wire shape the sampler
// consumes and a handful of pure helpers over it.
package dtm

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a compressed-sparse-row matrix of non-negative integer
// cell counts over a fixed, labeled vocabulary. It mirrors the shape
// produced by a CountVectorizer-style collaborator: rows are
// documents, columns are vocabulary terms, and RowLabels/ColumnLabels
// carry the caller's identifiers through to the engine's outputs
// unchanged.
//
// Storage follows the usual row-major CSR convention: RowOffsets has
// len(RowLabels)+1 entries, and for row r the non-zero columns live in
// ColumnIndex[RowOffsets[r]:RowOffsets[r+1]] with counts in the same
// slice range of Data.
type Matrix struct {
	RowOffsets  []int32
	ColumnIndex []int32
	Data        []uint32

	ColumnLabels []string
	RowLabels    []string
}

// NewMatrix builds a CSR matrix from per-row (column, count) pairs.
// cells[r] need not be sorted by column; NewMatrix sorts each row so
// that ColumnIndex is ascending within every row.
func NewMatrix(columnLabels []string, rowLabels []string, cells [][]Cell) (*Matrix, error) {
	if len(columnLabels) == 0 {
		return nil, fmt.Errorf("dtm: MissingVocabulary: no column labels provided")
	}
	if len(rowLabels) != len(cells) {
		return nil, fmt.Errorf("dtm: %d row labels but %d rows of cells", len(rowLabels), len(cells))
	}

	m := &Matrix{
		RowOffsets:   make([]int32, len(cells)+1),
		ColumnLabels: columnLabels,
		RowLabels:    rowLabels,
	}
	for r, row := range cells {
		sorted := append([]Cell(nil), row...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Column < sorted[j].Column })
		for _, c := range sorted {
			if c.Column < 0 || int(c.Column) >= len(columnLabels) {
				return nil, fmt.Errorf("dtm: row %d: column %d out of range [0, %d)", r, c.Column, len(columnLabels))
			}
			m.ColumnIndex = append(m.ColumnIndex, c.Column)
			m.Data = append(m.Data, c.Count)
		}
		m.RowOffsets[r+1] = int32(len(m.ColumnIndex))
	}
	return m, nil
}

// Cell is one non-zero entry of a CSR row: a column (vocabulary term
// id) and its count in that row.
type Cell struct {
	Column int32
	Count  uint32
}

// NumRows returns the number of documents.
func (m *Matrix) NumRows() int { return len(m.RowOffsets) - 1 }

// NumCols returns the vocabulary size.
func (m *Matrix) NumCols() int { return len(m.ColumnLabels) }

// Row returns the non-zero cells of row r without allocating a copy
// of the underlying slices.
func (m *Matrix) Row(r int) (columns []int32, counts []uint32) {
	lo, hi := m.RowOffsets[r], m.RowOffsets[r+1]
	return m.ColumnIndex[lo:hi], m.Data[lo:hi]
}

// RowLength returns the total token count (sum of cell counts) in row r.
func (m *Matrix) RowLength(r int) int {
	_, counts := m.Row(r)
	total := 0
	for _, c := range counts {
		total += int(c)
	}
	return total
}

// NumTokens returns T, the total number of token occurrences across
// the whole matrix.
func (m *Matrix) NumTokens() int {
	total := 0
	for r := 0; r < m.NumRows(); r++ {
		total += m.RowLength(r)
	}
	return total
}

// Densify projects the matrix into a gonum dense matrix, mainly
// useful for small corpora in tests or for callers that want to run
// gonum linear algebra (e.g. a cross-check SVD/LSA baseline) over the
// same document-term matrix the sampler consumes.
func (m *Matrix) Densify() *mat.Dense {
	d := mat.NewDense(m.NumRows(), m.NumCols(), nil)
	for r := 0; r < m.NumRows(); r++ {
		cols, counts := m.Row(r)
		for i, c := range cols {
			d.Set(r, int(c), float64(counts[i]))
		}
	}
	return d
}

// FilterByLength returns a new matrix containing only the rows of m
// whose token count falls in [minLen, maxLen]. A non-positive bound
// disables that side of the range, matching the -minlen/-maxlen
// corpus-loading flags.
func (m *Matrix) FilterByLength(minLen, maxLen int) *Matrix {
	out := &Matrix{
		RowOffsets:   []int32{0},
		ColumnLabels: m.ColumnLabels,
	}
	for r := 0; r < m.NumRows(); r++ {
		length := m.RowLength(r)
		if minLen > 0 && length < minLen {
			continue
		}
		if maxLen > 0 && length > maxLen {
			continue
		}
		cols, counts := m.Row(r)
		out.ColumnIndex = append(out.ColumnIndex, cols...)
		out.Data = append(out.Data, counts...)
		out.RowLabels = append(out.RowLabels, m.RowLabels[r])
		out.RowOffsets = append(out.RowOffsets, int32(len(out.ColumnIndex)))
	}
	return out
}
