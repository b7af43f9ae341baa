// recompute-costs re-runs the costing engine over every stored recipe and
// rewrites cost and pricing columns that no longer match. Use it after a
// change to the default labor rate or overhead percentage.
//
// Usage:
//   go run ./cmd/recompute-costs -dry-run
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/models"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Only count recipes whose stored cost differs")
	timeout := flag.Duration("timeout", 30*time.Minute, "Abort after this long")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	// Cached recipes are only invalidated when Redis is reachable.
	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry()
		defer config.GetRedisDB().Close()
	}
	logger := config.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	changed, err := models.RecomputeAllRecipes(ctx, *dryRun)
	if err != nil {
		config.LogError(logger, "RecomputeCosts", "main", "recompute", nil, err)
		os.Exit(1)
	}
	config.LogInfo(logger, "RecomputeCosts", "main", "recompute finished", map[string]any{
		"changed": changed,
		"dryRun":  *dryRun,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	})
}
