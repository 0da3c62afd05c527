package index

import (
	"fmt"

	"github.com/ternarybob/salus/internal/models"
)

// MetadataStore maps fragment ids to their full records. A store is built
// together with its vector index and published as one snapshot; after
// publication it is read-only.
type MetadataStore struct {
	fragments map[string]*models.Fragment
}

// NewMetadataStore creates an empty metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{fragments: make(map[string]*models.Fragment)}
}

// Put stores a fragment record. Duplicate ids are an error so a build bug
// cannot silently shadow a fragment.
func (m *MetadataStore) Put(frag *models.Fragment) error {
	if frag.ID == "" {
		return fmt.Errorf("fragment ID is required")
	}
	if _, exists := m.fragments[frag.ID]; exists {
		return fmt.Errorf("duplicate fragment id %s", frag.ID)
	}
	m.fragments[frag.ID] = frag
	return nil
}

// Get returns the fragment for an id, or nil when unknown.
func (m *MetadataStore) Get(id string) *models.Fragment {
	return m.fragments[id]
}

// Count returns the number of stored fragments.
func (m *MetadataStore) Count() int {
	return len(m.fragments)
}

// Verify checks that the store and the index describe the same fragment
// set: equal cardinality and every indexed id resolvable.
func (m *MetadataStore) Verify(idx *VectorIndex) error {
	if idx.Len() != m.Count() {
		return fmt.Errorf("index holds %d entries, metadata holds %d: %w", idx.Len(), m.Count(), models.ErrCorruptIndex)
	}
	for _, id := range idx.IDs() {
		if m.fragments[id] == nil {
			return fmt.Errorf("indexed id %s has no metadata record: %w", id, models.ErrCorruptIndex)
		}
	}
	return nil
}
