package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/common"
	"github.com/ternarybob/salus/internal/interfaces"
	"github.com/ternarybob/salus/internal/models"
	"github.com/ternarybob/salus/internal/services/index"
)

// Retriever selects grounding fragments for a question against the
// published index snapshot, filtered to the member's profile.
type Retriever struct {
	catalog *index.Catalog
	llm     interfaces.LLMService
	config  *common.RetrievalConfig
	logger  arbor.ILogger
}

// NewRetriever creates a retriever over the catalog's published snapshots.
func NewRetriever(catalog *index.Catalog, llm interfaces.LLMService, config *common.RetrievalConfig, logger arbor.ILogger) *Retriever {
	return &Retriever{
		catalog: catalog,
		llm:     llm,
		config:  config,
		logger:  logger,
	}
}

// Retrieve embeds the query, searches the current snapshot, and filters
// the hits to the member's insurer and the query language. An unpublished
// or empty index yields an empty bundle, not an error; an embedding
// failure wraps models.ErrRetrievalUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, query string, profile *models.Profile, topK int) (*models.ContextBundle, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}

	snapshot := r.catalog.Current()
	if snapshot == nil || snapshot.Index.Len() == 0 {
		r.logger.Debug().Msg("No index published, returning empty bundle")
		return &models.ContextBundle{}, nil
	}

	queryVector, err := r.llm.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w: %w", models.ErrRetrievalUnavailable, err)
	}

	hits, err := snapshot.Index.Search(queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w: %w", models.ErrRetrievalUnavailable, err)
	}

	queryLanguage := models.DetectLanguage(query)

	candidates := make([]models.ScoredFragment, 0, len(hits))
	for _, hit := range hits {
		frag := snapshot.Metadata.Get(hit.ID)
		if frag == nil {
			return nil, fmt.Errorf("indexed id %s has no metadata in build %s: %w", hit.ID, snapshot.BuildID, models.ErrCorruptIndex)
		}

		if profile != nil && frag.Insurer != models.InsurerGeneric && frag.Insurer != profile.Insurer {
			continue
		}

		score := hit.Score
		if profile != nil && r.config.TierWeight > 0 && frag.Tier == profile.Tier {
			score += r.config.TierWeight
		}

		candidates = append(candidates, models.ScoredFragment{Fragment: frag, Score: score})
	}

	selected := selectByLanguage(candidates, queryLanguage, r.config.RelevanceFloor, r.config.MinimumFloor)
	sortFragments(selected)

	r.logger.Debug().
		Str("build_id", snapshot.BuildID).
		Str("language", string(queryLanguage)).
		Int("hits", len(hits)).
		Int("selected", len(selected)).
		Msg("Retrieval completed")

	return &models.ContextBundle{Fragments: selected}, nil
}

// selectByLanguage keeps query-language fragments clearing the relevance
// floor. When none clears it, any fragment clearing the hard minimum is
// kept regardless of language, so the bundle is only empty when nothing
// is even loosely relevant.
func selectByLanguage(candidates []models.ScoredFragment, language models.Language, floor, minimum float64) []models.ScoredFragment {
	var preferred []models.ScoredFragment
	for _, c := range candidates {
		if c.Fragment.Language == language && c.Score >= floor {
			preferred = append(preferred, c)
		}
	}
	if len(preferred) > 0 {
		return preferred
	}

	var fallback []models.ScoredFragment
	for _, c := range candidates {
		if c.Score >= minimum {
			fallback = append(fallback, c)
		}
	}
	return fallback
}

// sortFragments orders by descending score; equal scores put an
// insurer-specific fragment before a generic one, then the lower ordinal.
func sortFragments(fragments []models.ScoredFragment) {
	sort.SliceStable(fragments, func(a, b int) bool {
		if fragments[a].Score != fragments[b].Score {
			return fragments[a].Score > fragments[b].Score
		}
		aSpecific := fragments[a].Fragment.Insurer != models.InsurerGeneric
		bSpecific := fragments[b].Fragment.Insurer != models.InsurerGeneric
		if aSpecific != bSpecific {
			return aSpecific
		}
		return fragments[a].Fragment.Ordinal < fragments[b].Fragment.Ordinal
	})
}
