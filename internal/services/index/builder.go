package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/common"
	"github.com/ternarybob/salus/internal/interfaces"
	"github.com/ternarybob/salus/internal/models"
	"github.com/ternarybob/salus/internal/services/chunker"
	"github.com/ternarybob/salus/internal/services/knowledge"
	"golang.org/x/time/rate"
)

// Builder turns the knowledge corpus into a published index snapshot:
// load, chunk, embed, verify, persist, swap. A build failure leaves the
// previously published snapshot untouched.
type Builder struct {
	knowledge *knowledge.Service
	chunker   *chunker.Chunker
	llm       interfaces.LLMService
	storage   interfaces.FragmentStorage
	catalog   *Catalog
	logger    arbor.ILogger

	workers   int
	dimension int
	limiter   *rate.Limiter
}

// NewBuilder creates an index builder. Storage may be nil, in which case
// builds are published in memory only.
func NewBuilder(
	cfg *common.Config,
	knowledgeSvc *knowledge.Service,
	chunkerSvc *chunker.Chunker,
	llm interfaces.LLMService,
	storage interfaces.FragmentStorage,
	catalog *Catalog,
	logger arbor.ILogger,
) *Builder {
	workers := cfg.Knowledge.BuildWorkers
	if workers <= 0 {
		workers = 1
	}

	limit := rate.Inf
	if cfg.Gemini.RateLimit != "" {
		if interval, err := time.ParseDuration(cfg.Gemini.RateLimit); err == nil && interval > 0 {
			limit = rate.Every(interval)
		}
	}

	return &Builder{
		knowledge: knowledgeSvc,
		chunker:   chunkerSvc,
		llm:       llm,
		storage:   storage,
		catalog:   catalog,
		logger:    logger,
		workers:   workers,
		dimension: cfg.Gemini.EmbedDimension,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Build runs a full index build and publishes the result. Any failure
// aborts the whole build; no partial snapshot is ever published or
// persisted.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	buildID := common.NewBuildID()

	docs, err := b.knowledge.LoadCorpus()
	if err != nil {
		return nil, fmt.Errorf("corpus load failed: %w", err)
	}

	var fragments []*models.Fragment
	for _, doc := range docs {
		fragments = append(fragments, b.chunker.Split(doc)...)
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("corpus produced no fragments")
	}

	b.logger.Info().
		Str("build_id", buildID).
		Int("documents", len(docs)).
		Int("fragments", len(fragments)).
		Int("workers", b.workers).
		Msg("Starting index build")

	if err := b.embedAll(ctx, fragments); err != nil {
		return nil, err
	}

	snapshot, err := snapshotFromFragments(buildID, b.dimension, fragments)
	if err != nil {
		return nil, fmt.Errorf("snapshot assembly failed: %w", err)
	}

	if b.storage != nil {
		manifest := interfaces.IndexManifest{
			BuildID:   buildID,
			Fragments: len(fragments),
			Dimension: b.dimension,
		}
		if err := b.storage.SaveBuild(manifest, fragments); err != nil {
			return nil, fmt.Errorf("build persistence failed: %w", err)
		}
	}

	b.catalog.Swap(snapshot)

	b.logger.Info().
		Str("build_id", buildID).
		Int("fragments", len(fragments)).
		Dur("duration", time.Since(start)).
		Msg("Index build published")

	return snapshot, nil
}

// embedAll fills fragment embeddings with a bounded worker pool. The first
// embedding error cancels the remaining work.
func (b *Builder) embedAll(ctx context.Context, fragments []*models.Fragment) error {
	embedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := b.limiter.Wait(embedCtx); err != nil {
					fail(err)
					return
				}

				embedding, err := b.llm.Embed(embedCtx, fragments[i].Text)
				if err != nil {
					fail(fmt.Errorf("embedding failed for fragment %s: %w", fragments[i].ID, err))
					return
				}
				if len(embedding) != b.dimension {
					fail(fmt.Errorf("fragment %s embedded with dimension %d, expected %d",
						fragments[i].ID, len(embedding), b.dimension))
					return
				}
				fragments[i].Embedding = embedding
			}
		}()
	}

dispatch:
	for i := range fragments {
		select {
		case jobs <- i:
		case <-embedCtx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return embedCtx.Err()
}
