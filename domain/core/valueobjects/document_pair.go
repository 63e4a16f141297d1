package valueobjects

import (
	"strings"

	pkgerrors "docgraph/pkg/errors"
)

// DocumentPair is an unordered pair of document ids. A→B and B→A produce the
// same pair, which is what connection dedup keys on.
type DocumentPair struct {
	low  string
	high string
}

// NewDocumentPair normalizes two document ids into an unordered pair
func NewDocumentPair(a, b string) (DocumentPair, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return DocumentPair{}, pkgerrors.NewInvalidArgumentError("document ids cannot be empty")
	}
	if a == b {
		return DocumentPair{}, pkgerrors.NewInvalidArgumentError("a document cannot be connected to itself")
	}
	if b < a {
		a, b = b, a
	}
	return DocumentPair{low: a, high: b}, nil
}

// Low returns the lexicographically smaller id
func (p DocumentPair) Low() string { return p.low }

// High returns the lexicographically larger id
func (p DocumentPair) High() string { return p.high }

// Key returns a stable string form of the pair
func (p DocumentPair) Key() string {
	return p.low + "#" + p.high
}

// Contains reports whether id is one of the pair's members
func (p DocumentPair) Contains(id string) bool {
	return id == p.low || id == p.high
}

// Other returns the member that is not id
func (p DocumentPair) Other(id string) string {
	if id == p.low {
		return p.high
	}
	return p.low
}
