package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/common"
	"github.com/ternarybob/salus/internal/interfaces"
	"github.com/ternarybob/salus/internal/models"
	"github.com/ternarybob/salus/internal/services/index"
)

// stubLLM answers every embed call with a fixed query vector.
type stubLLM struct {
	vector   []float32
	embedErr error
}

func (s *stubLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return s.vector, nil
}

func (s *stubLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return "", nil
}

func (s *stubLLM) HealthCheck(ctx context.Context) error { return nil }
func (s *stubLLM) GetMode() interfaces.LLMMode           { return interfaces.LLMModeCloud }
func (s *stubLLM) Close() error                          { return nil }

// vectorAt builds a unit vector at the given angle so cosine similarity
// against [1,0] is exactly cos(angle).
func vectorAt(angle float64) []float32 {
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

type testFrag struct {
	id       string
	ordinal  int
	insurer  models.Insurer
	tier     models.Tier
	language models.Language
	vector   []float32
}

func publishSnapshot(t *testing.T, catalog *index.Catalog, frags []testFrag) {
	t.Helper()

	idx := index.NewVectorIndex(2)
	meta := index.NewMetadataStore()
	for _, f := range frags {
		require.NoError(t, idx.Add(f.id, f.vector))
		require.NoError(t, meta.Put(&models.Fragment{
			ID:        f.id,
			DocID:     "doc",
			Ordinal:   f.ordinal,
			Text:      "fragment " + f.id,
			Language:  f.language,
			Insurer:   f.insurer,
			Tier:      f.tier,
			Embedding: f.vector,
		}))
	}
	catalog.Swap(&index.Snapshot{BuildID: "build-test", Index: idx, Metadata: meta})
}

func newTestRetriever(catalog *index.Catalog, llm interfaces.LLMService) *Retriever {
	cfg := &common.RetrievalConfig{
		TopK:           5,
		RelevanceFloor: 0.30,
		MinimumFloor:   0.05,
	}
	return NewRetriever(catalog, llm, cfg, arbor.NewLogger())
}

func maccabiGold() *models.Profile {
	return &models.Profile{
		FirstName:  "Dana",
		LastName:   "Levi",
		IDNumber:   "12345",
		Gender:     "female",
		Age:        34,
		Insurer:    models.InsurerMaccabi,
		CardNumber: "998877",
		Tier:       models.TierGold,
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r := newTestRetriever(index.NewCatalog(), &stubLLM{vector: []float32{1, 0}})

	bundle, err := r.Retrieve(context.Background(), "dental coverage", maccabiGold(), 5)
	require.NoError(t, err)
	assert.True(t, bundle.Empty())
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	catalog := index.NewCatalog()
	publishSnapshot(t, catalog, []testFrag{
		{id: "doc:0", insurer: models.InsurerGeneric, language: models.LanguageEnglish, vector: vectorAt(0)},
	})

	r := newTestRetriever(catalog, &stubLLM{embedErr: fmt.Errorf("503 backend")})

	_, err := r.Retrieve(context.Background(), "dental coverage", maccabiGold(), 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRetrievalUnavailable))
}

func TestRetrieveFiltersOtherInsurers(t *testing.T) {
	catalog := index.NewCatalog()
	publishSnapshot(t, catalog, []testFrag{
		{id: "doc:0", ordinal: 0, insurer: models.InsurerMaccabi, language: models.LanguageEnglish, vector: vectorAt(0)},
		{id: "doc:1", ordinal: 1, insurer: models.InsurerClalit, language: models.LanguageEnglish, vector: vectorAt(0.1)},
		{id: "doc:2", ordinal: 2, insurer: models.InsurerGeneric, language: models.LanguageEnglish, vector: vectorAt(0.2)},
	})

	r := newTestRetriever(catalog, &stubLLM{vector: []float32{1, 0}})

	bundle, err := r.Retrieve(context.Background(), "dental coverage", maccabiGold(), 5)
	require.NoError(t, err)
	require.Len(t, bundle.Fragments, 2)

	for _, sf := range bundle.Fragments {
		assert.NotEqual(t, models.InsurerClalit, sf.Fragment.Insurer)
	}
	// Descending score order.
	assert.Equal(t, "doc:0", bundle.Fragments[0].Fragment.ID)
	assert.Equal(t, "doc:2", bundle.Fragments[1].Fragment.ID)
}

func TestRetrieveRelevanceFloor(t *testing.T) {
	catalog := index.NewCatalog()
	publishSnapshot(t, catalog, []testFrag{
		{id: "doc:0", ordinal: 0, insurer: models.InsurerGeneric, language: models.LanguageEnglish, vector: vectorAt(0)},
		// cos(1.4) ~ 0.17, below the 0.30 floor.
		{id: "doc:1", ordinal: 1, insurer: models.InsurerGeneric, language: models.LanguageEnglish, vector: vectorAt(1.4)},
	})

	r := newTestRetriever(catalog, &stubLLM{vector: []float32{1, 0}})

	bundle, err := r.Retrieve(context.Background(), "dental coverage", maccabiGold(), 5)
	require.NoError(t, err)
	require.Len(t, bundle.Fragments, 1)
	assert.Equal(t, "doc:0", bundle.Fragments[0].Fragment.ID)
}

func TestRetrieveLanguageFallback(t *testing.T) {
	catalog := index.NewCatalog()
	// Hebrew query, only English fragments in the index.
	publishSnapshot(t, catalog, []testFrag{
		{id: "doc:0", ordinal: 0, insurer: models.InsurerGeneric, language: models.LanguageEnglish, vector: vectorAt(0.2)},
	})

	r := newTestRetriever(catalog, &stubLLM{vector: []float32{1, 0}})

	bundle, err := r.Retrieve(context.Background(), "מה הכיסוי לטיפולי שיניים", maccabiGold(), 5)
	require.NoError(t, err)
	require.Len(t, bundle.Fragments, 1)
	assert.Equal(t, "doc:0", bundle.Fragments[0].Fragment.ID)
}

func TestRetrieveNothingClearsMinimum(t *testing.T) {
	catalog := index.NewCatalog()
	// cos(1.55) ~ 0.02, below the 0.05 hard minimum.
	publishSnapshot(t, catalog, []testFrag{
		{id: "doc:0", ordinal: 0, insurer: models.InsurerGeneric, language: models.LanguageEnglish, vector: vectorAt(1.55)},
	})

	r := newTestRetriever(catalog, &stubLLM{vector: []float32{1, 0}})

	bundle, err := r.Retrieve(context.Background(), "dental coverage", maccabiGold(), 5)
	require.NoError(t, err)
	assert.True(t, bundle.Empty())
}

func TestRetrieveTieBreaks(t *testing.T) {
	catalog := index.NewCatalog()
	same := vectorAt(0.3)
	publishSnapshot(t, catalog, []testFrag{
		{id: "doc:0", ordinal: 0, insurer: models.InsurerGeneric, language: models.LanguageEnglish, vector: same},
		{id: "doc:1", ordinal: 1, insurer: models.InsurerMaccabi, language: models.LanguageEnglish, vector: same},
		{id: "doc:2", ordinal: 2, insurer: models.InsurerMaccabi, language: models.LanguageEnglish, vector: same},
	})

	r := newTestRetriever(catalog, &stubLLM{vector: []float32{1, 0}})

	bundle, err := r.Retrieve(context.Background(), "dental coverage", maccabiGold(), 5)
	require.NoError(t, err)
	require.Len(t, bundle.Fragments, 3)

	// Specific insurer first, then the lower ordinal, generic last.
	assert.Equal(t, "doc:1", bundle.Fragments[0].Fragment.ID)
	assert.Equal(t, "doc:2", bundle.Fragments[1].Fragment.ID)
	assert.Equal(t, "doc:0", bundle.Fragments[2].Fragment.ID)
}

func TestRetrieveTierWeight(t *testing.T) {
	catalog := index.NewCatalog()
	publishSnapshot(t, catalog, []testFrag{
		{id: "doc:0", ordinal: 0, insurer: models.InsurerMaccabi, tier: models.TierSilver, language: models.LanguageEnglish, vector: vectorAt(0.2)},
		{id: "doc:1", ordinal: 1, insurer: models.InsurerMaccabi, tier: models.TierGold, language: models.LanguageEnglish, vector: vectorAt(0.4)},
	})

	cfg := &common.RetrievalConfig{
		TopK:           5,
		RelevanceFloor: 0.30,
		MinimumFloor:   0.05,
		TierWeight:     0.2,
	}
	r := NewRetriever(catalog, &stubLLM{vector: []float32{1, 0}}, cfg, arbor.NewLogger())

	bundle, err := r.Retrieve(context.Background(), "dental coverage", maccabiGold(), 5)
	require.NoError(t, err)
	require.Len(t, bundle.Fragments, 2)

	// cos(0.4)+0.2 > cos(0.2), so the gold fragment wins for a gold member.
	assert.Equal(t, "doc:1", bundle.Fragments[0].Fragment.ID)
}
