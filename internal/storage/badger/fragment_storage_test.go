package badger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/interfaces"
	"github.com/ternarybob/salus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestStorage(t *testing.T) (interfaces.FragmentStorage, *BadgerDB) {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	logger := arbor.NewLogger()
	return NewFragmentStorage(db, logger), db
}

func testFragments(buildPrefix string, n int) []*models.Fragment {
	frags := make([]*models.Fragment, 0, n)
	for i := 0; i < n; i++ {
		frags = append(frags, &models.Fragment{
			ID:        models.FragmentID(buildPrefix, i),
			DocID:     buildPrefix,
			Ordinal:   i,
			Text:      "dental coverage details",
			Language:  models.LanguageEnglish,
			Insurer:   models.InsurerMaccabi,
			Tier:      models.TierGold,
			Category:  "dental",
			Embedding: []float32{0.1, 0.2, 0.3},
		})
	}
	return frags
}

func TestFragmentStorageRoundtrip(t *testing.T) {
	storage, _ := newTestStorage(t)

	fragments := testFragments("doc-dental", 3)
	manifest := interfaces.IndexManifest{
		BuildID:   "build-1",
		Fragments: len(fragments),
		Dimension: 3,
	}

	require.NoError(t, storage.SaveBuild(manifest, fragments))

	loaded, loadedFrags, err := storage.LoadBuild()
	require.NoError(t, err)
	assert.Equal(t, manifest, loaded)
	require.Len(t, loadedFrags, 3)

	byID := make(map[string]*models.Fragment, len(loadedFrags))
	for _, f := range loadedFrags {
		byID[f.ID] = f
	}
	for _, want := range fragments {
		got, ok := byID[want.ID]
		require.True(t, ok, "fragment %s missing after reload", want.ID)
		assert.Equal(t, *want, *got)
	}
}

func TestFragmentStorageEmpty(t *testing.T) {
	storage, _ := newTestStorage(t)

	manifest, fragments, err := storage.LoadBuild()
	require.NoError(t, err)
	assert.Empty(t, manifest.BuildID)
	assert.Empty(t, fragments)
}

func TestFragmentStorageReplacesPreviousBuild(t *testing.T) {
	storage, _ := newTestStorage(t)

	first := testFragments("doc-first", 4)
	require.NoError(t, storage.SaveBuild(interfaces.IndexManifest{
		BuildID:   "build-1",
		Fragments: len(first),
		Dimension: 3,
	}, first))

	second := testFragments("doc-second", 2)
	require.NoError(t, storage.SaveBuild(interfaces.IndexManifest{
		BuildID:   "build-2",
		Fragments: len(second),
		Dimension: 3,
	}, second))

	manifest, fragments, err := storage.LoadBuild()
	require.NoError(t, err)
	assert.Equal(t, "build-2", manifest.BuildID)
	require.Len(t, fragments, 2)
	for _, f := range fragments {
		assert.Equal(t, "doc-second", f.DocID)
	}
}

func TestFragmentStorageCountMismatch(t *testing.T) {
	storage, _ := newTestStorage(t)

	err := storage.SaveBuild(interfaces.IndexManifest{
		BuildID:   "build-1",
		Fragments: 5,
		Dimension: 3,
	}, testFragments("doc", 2))
	assert.Error(t, err)
}

func TestFragmentStorageCorruptOnOrphanRecords(t *testing.T) {
	storage, db := newTestStorage(t)

	fragments := testFragments("doc", 2)
	require.NoError(t, storage.SaveBuild(interfaces.IndexManifest{
		BuildID:   "build-1",
		Fragments: len(fragments),
		Dimension: 3,
	}, fragments))

	// Simulate a crash that wiped the manifest but left fragment records.
	require.NoError(t, db.Store().Delete(manifestKey, &interfaces.IndexManifest{}))

	_, _, err := storage.LoadBuild()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCorruptIndex))
}

func TestFragmentStorageCorruptOnMissingRecord(t *testing.T) {
	storage, db := newTestStorage(t)

	fragments := testFragments("doc", 3)
	require.NoError(t, storage.SaveBuild(interfaces.IndexManifest{
		BuildID:   "build-1",
		Fragments: len(fragments),
		Dimension: 3,
	}, fragments))

	require.NoError(t, db.Store().Delete(fragments[0].ID, &fragmentRecord{}))

	_, _, err := storage.LoadBuild()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCorruptIndex))
}

func TestFragmentStorageCorruptOnBuildMismatch(t *testing.T) {
	storage, db := newTestStorage(t)

	fragments := testFragments("doc", 2)
	require.NoError(t, storage.SaveBuild(interfaces.IndexManifest{
		BuildID:   "build-1",
		Fragments: len(fragments),
		Dimension: 3,
	}, fragments))

	stale := fragmentRecord{
		Key:      fragments[0].ID,
		BuildID:  "build-0",
		Fragment: *fragments[0],
	}
	require.NoError(t, db.Store().Upsert(stale.Key, &stale))

	_, _, err := storage.LoadBuild()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCorruptIndex))
}
