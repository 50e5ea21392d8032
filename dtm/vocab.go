package dtm

import "fmt"

// Vocabulary is the bi-directional mapping between a term string and
// its column id in a Matrix. K, V, and the token set are immutable
// once fitting begins. It is built from Matrix.ColumnLabels rather
// than loaded from a standalone file — vocabulary construction and
// pruning from raw text is an external collaborator's job; this type
// only carries the labels the collaborator already produced.
type Vocabulary struct {
	Tokens []string
	ids    map[string]int32
}

// NewVocabulary builds a Vocabulary from an ordered list of column
// labels, as found on a freshly assembled Matrix.
func NewVocabulary(labels []string) (*Vocabulary, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("dtm: MissingVocabulary: vocabulary has no labels")
	}
	v := &Vocabulary{
		Tokens: labels,
		ids:    make(map[string]int32, len(labels)),
	}
	for i, t := range labels {
		v.ids[t] = int32(i)
	}
	return v, nil
}

// Len returns the vocabulary size V.
func (v *Vocabulary) Len() int { return len(v.Tokens) }

// Token returns the term string for a column id.
func (v *Vocabulary) Token(id int32) string {
	if int(id) < 0 || int(id) >= len(v.Tokens) {
		panic(fmt.Sprintf("dtm: token id %d out of range [0, %d)", id, len(v.Tokens)))
	}
	return v.Tokens[id]
}

// Id returns the column id of a term, or -1 if it is not present.
func (v *Vocabulary) Id(term string) int32 {
	if id, ok := v.ids[term]; ok {
		return id
	}
	return -1
}

// MatchesExactly reports whether other carries exactly the same
// column labels, in the same order, as v. Transform requires this;
// any drift is reported as a VocabularyMismatch.
func (v *Vocabulary) MatchesExactly(other []string) bool {
	if len(v.Tokens) != len(other) {
		return false
	}
	for i, t := range v.Tokens {
		if other[i] != t {
			return false
		}
	}
	return true
}
