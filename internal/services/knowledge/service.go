package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/common"
	"github.com/ternarybob/salus/internal/models"
)

// Service loads and processes the knowledge-base corpus directory.
type Service struct {
	config    *common.KnowledgeConfig
	logger    arbor.ILogger
	processor *HTMLProcessor
}

// NewService creates a new knowledge service
func NewService(config *common.KnowledgeConfig, logger arbor.ILogger) *Service {
	return &Service{
		config:    config,
		logger:    logger,
		processor: NewHTMLProcessor(logger),
	}
}

// LoadCorpus reads every HTML file in the corpus directory, processes it
// into a tagged source document, and applies any manifest overrides. Files
// are processed in name order so repeated builds see the same input
// sequence.
func (s *Service) LoadCorpus() ([]*models.SourceDocument, error) {
	if s.config.Dir == "" {
		return nil, fmt.Errorf("knowledge directory is not configured")
	}
	if _, err := os.Stat(s.config.Dir); err != nil {
		return nil, fmt.Errorf("knowledge directory %s is not accessible: %w", s.config.Dir, err)
	}

	pattern := filepath.Join(s.config.Dir, "*.html")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no HTML files found in knowledge directory %s", s.config.Dir)
	}
	sort.Strings(files)

	manifestPath := s.config.ManifestFile
	if manifestPath == "" {
		manifestPath = "sources.yaml"
	}
	if !filepath.IsAbs(manifestPath) {
		// Relative manifest paths resolve against the corpus directory.
		manifestPath = filepath.Join(s.config.Dir, manifestPath)
	}
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("dir", s.config.Dir).
		Int("files", len(files)).
		Int("overrides", len(manifest.Sources)).
		Msg("Loading knowledge corpus")

	documents := make([]*models.SourceDocument, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		filename := filepath.Base(file)
		docID := strings.TrimSuffix(filename, filepath.Ext(filename))

		doc, err := s.processor.Process(docID, string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to process %s: %w", file, err)
		}

		if override, ok := manifest.Sources[filename]; ok {
			if err := applyOverride(doc, override); err != nil {
				return nil, err
			}
		}

		documents = append(documents, doc)
	}

	s.logger.Info().Int("documents", len(documents)).Msg("Knowledge corpus loaded")
	return documents, nil
}

func applyOverride(doc *models.SourceDocument, override SourceOverride) error {
	if override.Title != "" {
		doc.Title = override.Title
	}
	if override.Category != "" {
		doc.Category = override.Category
	}
	if override.Language != "" {
		doc.Language = models.Language(override.Language)
	}
	if override.Insurer != "" {
		insurer, err := models.ParseInsurer(override.Insurer)
		if err != nil {
			return fmt.Errorf("manifest override for %s: %w", doc.ID, err)
		}
		for i := range doc.Sections {
			doc.Sections[i].Insurer = insurer
		}
	}
	return nil
}
