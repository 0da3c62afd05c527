package index

import (
	"fmt"
	"sync/atomic"

	"github.com/ternarybob/salus/internal/interfaces"
	"github.com/ternarybob/salus/internal/models"
)

// Snapshot is one complete, immutable index build: the vector index, its
// metadata store, and the build identifier that versions them both.
type Snapshot struct {
	BuildID  string
	Index    *VectorIndex
	Metadata *MetadataStore
}

// CheckDimension verifies the snapshot's vectors match the configured
// embedding dimensionality. A mismatch means the build predates a
// configuration change and queries would embed at the wrong size, so the
// operator must rebuild.
func (s *Snapshot) CheckDimension(expected int) error {
	if s == nil {
		return nil
	}
	if d := s.Index.Dimension(); d != expected {
		return fmt.Errorf("index build %s has dimension %d but configuration expects %d", s.BuildID, d, expected)
	}
	return nil
}

// Catalog publishes index snapshots to readers. A swap is atomic: a reader
// sees the previous snapshot or the new one, never a mixture.
type Catalog struct {
	current atomic.Pointer[Snapshot]
}

// NewCatalog creates a catalog with no published snapshot.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Swap publishes a snapshot, replacing any previous one.
func (c *Catalog) Swap(snapshot *Snapshot) {
	c.current.Store(snapshot)
}

// Current returns the published snapshot, or nil before the first build.
func (c *Catalog) Current() *Snapshot {
	return c.current.Load()
}

// Restore rebuilds a snapshot from persisted fragments and publishes it.
// Storage corruption surfaces as models.ErrCorruptIndex; an empty store
// leaves the catalog unpublished and returns nil.
func (c *Catalog) Restore(storage interfaces.FragmentStorage) (*Snapshot, error) {
	manifest, fragments, err := storage.LoadBuild()
	if err != nil {
		return nil, err
	}
	if manifest.BuildID == "" {
		return nil, nil
	}

	snapshot, err := snapshotFromFragments(manifest.BuildID, manifest.Dimension, fragments)
	if err != nil {
		return nil, err
	}

	c.Swap(snapshot)
	return snapshot, nil
}

// snapshotFromFragments assembles and verifies a snapshot from finished
// fragment records.
func snapshotFromFragments(buildID string, dimension int, fragments []*models.Fragment) (*Snapshot, error) {
	idx := NewVectorIndex(dimension)
	meta := NewMetadataStore()

	for _, frag := range fragments {
		if err := idx.Add(frag.ID, frag.Embedding); err != nil {
			return nil, err
		}
		if err := meta.Put(frag); err != nil {
			return nil, err
		}
	}

	if err := meta.Verify(idx); err != nil {
		return nil, err
	}

	return &Snapshot{
		BuildID:  buildID,
		Index:    idx,
		Metadata: meta,
	}, nil
}
