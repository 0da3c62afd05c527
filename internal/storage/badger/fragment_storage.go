package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/interfaces"
	"github.com/ternarybob/salus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

const manifestKey = "index_manifest"

// fragmentRecord is the persisted form of a fragment. Each record carries the
// build ID it belongs to so a load can detect records left behind by a
// partial write.
type fragmentRecord struct {
	Key      string `badgerhold:"key"`
	BuildID  string
	Fragment models.Fragment
}

// FragmentStorage persists embedded fragments together with the index
// manifest that versions them. The manifest is written last on save and
// checked first on load, so a crash mid-save is always detectable.
type FragmentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFragmentStorage creates a new FragmentStorage instance
func NewFragmentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FragmentStorage {
	return &FragmentStorage{
		db:     db,
		logger: logger,
	}
}

// SaveBuild replaces the persisted index contents with a fresh build. The
// previous manifest is removed first so readers that race a crash see a
// missing manifest rather than a stale one pointing at new records.
func (s *FragmentStorage) SaveBuild(manifest interfaces.IndexManifest, fragments []*models.Fragment) error {
	if manifest.BuildID == "" {
		return fmt.Errorf("manifest build ID is required")
	}
	if manifest.Fragments != len(fragments) {
		return fmt.Errorf("manifest fragment count %d does not match %d fragments", manifest.Fragments, len(fragments))
	}

	if err := s.db.Store().Delete(manifestKey, &interfaces.IndexManifest{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to clear previous manifest: %w", err)
	}
	if err := s.db.Store().DeleteMatching(&fragmentRecord{}, nil); err != nil {
		return fmt.Errorf("failed to clear previous fragments: %w", err)
	}

	for _, frag := range fragments {
		if frag.ID == "" {
			return fmt.Errorf("fragment ID is required")
		}
		record := fragmentRecord{
			Key:      frag.ID,
			BuildID:  manifest.BuildID,
			Fragment: *frag,
		}
		if err := s.db.Store().Upsert(frag.ID, &record); err != nil {
			return fmt.Errorf("failed to save fragment %s: %w", frag.ID, err)
		}
	}

	if err := s.db.Store().Upsert(manifestKey, &manifest); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}

	if err := s.db.RunGC(); err != nil {
		s.logger.Warn().Err(err).Msg("Value log GC after build failed")
	}

	s.logger.Info().
		Str("build_id", manifest.BuildID).
		Int("fragments", manifest.Fragments).
		Int("dimension", manifest.Dimension).
		Msg("Index build persisted")

	return nil
}

// LoadBuild reads the persisted manifest and its fragments. A missing
// manifest with no fragment records means no build has been saved yet and
// returns an empty result. Any disagreement between manifest and records
// returns models.ErrCorruptIndex.
func (s *FragmentStorage) LoadBuild() (interfaces.IndexManifest, []*models.Fragment, error) {
	var manifest interfaces.IndexManifest
	manifestErr := s.db.Store().Get(manifestKey, &manifest)

	var records []fragmentRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return interfaces.IndexManifest{}, nil, fmt.Errorf("failed to load fragments: %w", err)
	}

	if manifestErr == badgerhold.ErrNotFound {
		if len(records) > 0 {
			return interfaces.IndexManifest{}, nil, fmt.Errorf("%d fragment records with no manifest: %w", len(records), models.ErrCorruptIndex)
		}
		return interfaces.IndexManifest{}, nil, nil
	}
	if manifestErr != nil {
		return interfaces.IndexManifest{}, nil, fmt.Errorf("failed to load manifest: %w", manifestErr)
	}

	if len(records) != manifest.Fragments {
		return interfaces.IndexManifest{}, nil, fmt.Errorf("manifest expects %d fragments, found %d: %w", manifest.Fragments, len(records), models.ErrCorruptIndex)
	}

	fragments := make([]*models.Fragment, 0, len(records))
	for i := range records {
		if records[i].BuildID != manifest.BuildID {
			return interfaces.IndexManifest{}, nil, fmt.Errorf("fragment %s belongs to build %s, manifest is build %s: %w",
				records[i].Key, records[i].BuildID, manifest.BuildID, models.ErrCorruptIndex)
		}
		if len(records[i].Fragment.Embedding) != manifest.Dimension {
			return interfaces.IndexManifest{}, nil, fmt.Errorf("fragment %s has dimension %d, manifest expects %d: %w",
				records[i].Key, len(records[i].Fragment.Embedding), manifest.Dimension, models.ErrCorruptIndex)
		}
		frag := records[i].Fragment
		fragments = append(fragments, &frag)
	}

	s.logger.Debug().
		Str("build_id", manifest.BuildID).
		Int("fragments", len(fragments)).
		Msg("Index build loaded")

	return manifest, fragments, nil
}

// Close closes the underlying database connection
func (s *FragmentStorage) Close() error {
	return s.db.Close()
}
