package models

import "fmt"

// Fragment is a bounded span of source document text with its embedding.
// Fragments are created during index build and never mutated afterwards;
// a rebuild replaces the whole set.
type Fragment struct {
	ID       string    `json:"id"`       // <doc_id>:<ordinal>
	DocID    string    `json:"doc_id"`   // Source document identifier
	Ordinal  int       `json:"ordinal"`  // Position within the source document
	Text     string    `json:"text"`     // Fragment text content
	Language Language  `json:"language"` // Language tag of the source text
	Insurer  Insurer   `json:"insurer"`  // Insurer tag, InsurerGeneric when not insurer-specific
	Tier     Tier      `json:"tier"`     // Coverage tier tag, empty when not tier-specific
	Category string    `json:"category"` // Free-form service category (dental, optometry, ...)
	Embedding []float32 `json:"embedding"`
}

// FragmentID builds the deterministic fragment identifier from the source
// document id and the fragment's ordinal position.
func FragmentID(docID string, ordinal int) string {
	return fmt.Sprintf("%s:%d", docID, ordinal)
}

// ScoredFragment pairs a fragment with its relevance score for one query.
type ScoredFragment struct {
	Fragment *Fragment `json:"fragment"`
	Score    float64   `json:"score"`
}

// ContextBundle is the ordered set of fragments selected to ground one
// answer, highest relevance first. It is produced fresh per query and
// never cached.
type ContextBundle struct {
	Fragments []ScoredFragment `json:"fragments"`
}

// Empty reports whether no fragment was selected for the query.
func (b *ContextBundle) Empty() bool {
	return b == nil || len(b.Fragments) == 0
}

// Section is one extracted span of a source document. Table-derived
// sections carry the insurer and tier of the table cell they came from;
// introductions and contact details stay generic.
type Section struct {
	Text    string  `json:"text"`
	Insurer Insurer `json:"insurer"`
	Tier    Tier    `json:"tier"`
}

// SourceDocument is a processed knowledge-base document ready for chunking.
type SourceDocument struct {
	ID       string    `json:"id"`    // Derived from the source file name
	Title    string    `json:"title"` //
	Sections []Section `json:"sections"`
	Language Language  `json:"language"`
	Category string    `json:"category"`
}
