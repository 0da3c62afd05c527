package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/salus/internal/app"
)

// runIndex performs a full knowledge index build: load the corpus, chunk,
// embed, persist, and publish. Ctrl+C cancels the build; the previously
// persisted build stays intact.
func runIndex(application *app.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	snapshot, err := application.Builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	fmt.Printf("Index built: %d fragments (build %s) in %s\n",
		snapshot.Index.Len(), snapshot.BuildID, time.Since(start).Round(time.Millisecond))
	return nil
}
