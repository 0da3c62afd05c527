package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/common"
	"github.com/ternarybob/salus/internal/interfaces"
	"github.com/ternarybob/salus/internal/services/chunker"
	"github.com/ternarybob/salus/internal/services/composer"
	"github.com/ternarybob/salus/internal/services/conversation"
	"github.com/ternarybob/salus/internal/services/index"
	"github.com/ternarybob/salus/internal/services/knowledge"
	"github.com/ternarybob/salus/internal/services/llm"
	"github.com/ternarybob/salus/internal/services/retriever"
	"github.com/ternarybob/salus/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	LLMService interfaces.LLMService
	Storage    interfaces.FragmentStorage

	KnowledgeService *knowledge.Service
	Chunker          *chunker.Chunker
	Catalog          *index.Catalog
	Builder          *index.Builder
	Retriever        *retriever.Retriever
	Composer         *composer.Composer
	Machine          *conversation.Machine

	db *badger.BadgerDB
}

// New wires all services from configuration. A previously persisted index
// build is restored into the catalog when one exists; a corrupted store
// fails startup so the operator rebuilds instead of serving bad data.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	llmService, err := llm.NewLLMService(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}

	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		llmService.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	storage := badger.NewFragmentStorage(db, logger)
	catalog := index.NewCatalog()

	knowledgeService := knowledge.NewService(&config.Knowledge, logger)
	chunkerService := chunker.NewChunker(&config.Knowledge, logger)
	builder := index.NewBuilder(config, knowledgeService, chunkerService, llmService, storage, catalog, logger)

	retrieverService := retriever.NewRetriever(catalog, llmService, &config.Retrieval, logger)
	composerService := composer.NewComposer(llmService, logger)
	machine := conversation.NewMachine(retrieverService, composerService, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		LLMService:       llmService,
		Storage:          storage,
		KnowledgeService: knowledgeService,
		Chunker:          chunkerService,
		Catalog:          catalog,
		Builder:          builder,
		Retriever:        retrieverService,
		Composer:         composerService,
		Machine:          machine,
		db:               db,
	}

	snapshot, err := catalog.Restore(storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to restore persisted index: %w", err)
	}
	if err := snapshot.CheckDimension(config.Gemini.EmbedDimension); err != nil {
		a.Close()
		return nil, fmt.Errorf("persisted index needs a rebuild, run 'salus index': %w", err)
	}
	if snapshot != nil {
		logger.Info().
			Str("build_id", snapshot.BuildID).
			Int("fragments", snapshot.Index.Len()).
			Msg("Restored persisted index build")
	} else {
		logger.Info().Msg("No persisted index build found")
	}

	return a, nil
}

// Close releases the LLM client and the storage connection.
func (a *App) Close() {
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}
