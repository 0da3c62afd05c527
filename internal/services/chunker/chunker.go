package chunker

import (
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/common"
	"github.com/ternarybob/salus/internal/models"
)

// Chunker splits processed source documents into bounded fragments ready
// for embedding. Splitting is pure: the same document always yields the
// same fragments with the same ordinals.
type Chunker struct {
	maxLen  int
	overlap int
	logger  arbor.ILogger
}

// NewChunker creates a chunker from the knowledge configuration.
func NewChunker(config *common.KnowledgeConfig, logger arbor.ILogger) *Chunker {
	maxLen := config.ChunkSize
	if maxLen <= 0 {
		maxLen = 500
	}
	overlap := config.ChunkOverlap
	if overlap < 0 || overlap >= maxLen {
		overlap = 0
	}

	return &Chunker{
		maxLen:  maxLen,
		overlap: overlap,
		logger:  logger,
	}
}

// Split converts a source document into fragments. Each section is split
// independently so insurer and tier tags never bleed across sections;
// ordinals run sequentially over the whole document.
func (c *Chunker) Split(doc *models.SourceDocument) []*models.Fragment {
	if doc == nil {
		return nil
	}

	var fragments []*models.Fragment
	ordinal := 0
	for _, section := range doc.Sections {
		for _, text := range c.splitText(section.Text) {
			fragments = append(fragments, &models.Fragment{
				ID:       models.FragmentID(doc.ID, ordinal),
				DocID:    doc.ID,
				Ordinal:  ordinal,
				Text:     text,
				Language: doc.Language,
				Insurer:  section.Insurer,
				Tier:     section.Tier,
				Category: doc.Category,
			})
			ordinal++
		}
	}

	if len(fragments) > 0 {
		c.logger.Debug().
			Str("doc_id", doc.ID).
			Int("sections", len(doc.Sections)).
			Int("fragments", len(fragments)).
			Msg("Document split into fragments")
	}

	return fragments
}

// splitText cuts text into rune-bounded pieces. Cut points prefer a
// paragraph break, then a sentence end, inside the second half of the
// window; otherwise the cut is hard. Consecutive pieces overlap so a
// sentence straddling a cut still appears whole in one piece.
func (c *Chunker) splitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.maxLen {
		return []string{text}
	}

	var pieces []string
	pos := 0
	for pos < len(runes) {
		end := pos + c.maxLen
		if end >= len(runes) {
			pieces = append(pieces, string(runes[pos:]))
			break
		}

		cut := findBoundary(runes, pos, end)
		pieces = append(pieces, string(runes[pos:cut]))

		next := cut - c.overlap
		if next <= pos {
			next = cut
		}
		pos = next
	}

	return pieces
}

// findBoundary looks backward from end for a paragraph break, then a
// sentence end. The search stops at the window midpoint so a boundary-free
// stretch still produces a full-size piece.
func findBoundary(runes []rune, start, end int) int {
	min := start + (end-start)/2

	for i := end - 1; i > min; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > min; i-- {
		if isSentenceEnd(runes, i) {
			return i + 1
		}
	}
	return end
}

// isSentenceEnd reports whether the rune at i terminates a sentence: a
// terminator followed by whitespace or end of text.
func isSentenceEnd(runes []rune, i int) bool {
	switch runes[i] {
	case '.', '!', '?', ':':
	default:
		return false
	}
	if i+1 >= len(runes) {
		return true
	}
	next := runes[i+1]
	return next == ' ' || next == '\n' || next == '\t'
}
