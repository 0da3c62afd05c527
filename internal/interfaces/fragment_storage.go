package interfaces

import (
	"github.com/ternarybob/salus/internal/models"
)

// IndexManifest co-versions the persisted vector index with its metadata
// store. A consumer must reject a build whose fragment records do not
// exactly match the manifest.
type IndexManifest struct {
	BuildID   string `json:"build_id"`
	Fragments int    `json:"fragments"`
	Dimension int    `json:"dimension"`
}

// FragmentStorage persists one complete index build: every fragment record
// (metadata plus embedding) under a build version, together with the
// manifest describing the build.
type FragmentStorage interface {
	// SaveBuild atomically replaces the persisted build with the given
	// fragments and manifest.
	SaveBuild(manifest IndexManifest, fragments []*models.Fragment) error

	// LoadBuild returns the persisted manifest and fragment records.
	// Implementations must verify referential sync between the two and
	// return models.ErrCorruptIndex on any mismatch.
	LoadBuild() (IndexManifest, []*models.Fragment, error)

	// Close releases the underlying store.
	Close() error
}
