package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/services"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the Qdrant embedding cache",
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm FILE...",
	Short: "Embed documents ahead of time so later matches skip the provider",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCache(cmd, args, warmDocument)
	},
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict FILE...",
	Short: "Remove the cached embeddings of documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCache(cmd, args, evictDocument)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheWarmCmd, cacheEvictCmd)
}

type cacheAction func(ctx context.Context, a *application, text string) error

func runCache(cmd *cobra.Command, paths []string, action cacheAction) error {
	ctx := cmd.Context()

	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Qdrant.Enabled {
		return errors.New("qdrant is disabled (set QDRANT_ENABLED=true)")
	}
	if err := a.withProviders(ctx); err != nil {
		return err
	}
	if a.cache == nil {
		return errors.New("qdrant is not reachable")
	}

	successCount, failCount := 0, 0
	for _, path := range paths {
		log := a.log.With(zap.String("document", path))

		doc, err := a.loader.LoadDocument(path, "")
		if err != nil {
			log.Warn("skipping document", zap.Error(err))
			failCount++
			continue
		}
		text, err := a.extractor.Extract(ctx, doc)
		if err != nil {
			log.Warn("skipping document", zap.Error(err))
			failCount++
			continue
		}

		if err := action(ctx, a, text); err != nil {
			log.Warn("cache update failed", zap.Error(err))
			failCount++
			continue
		}

		log.Info("cache updated", zap.String("key", services.EmbeddingCacheKey(a.embedModel, text, a.cfg.Embedding.MaxChars)))
		successCount++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d succeeded, %d failed\n", successCount, failCount)
	if successCount == 0 {
		return errors.New("no document was processed")
	}
	return nil
}

// warmDocument embeds text through the cached provider, which stores the
// vector on a miss.
func warmDocument(ctx context.Context, a *application, text string) error {
	_, err := a.embedder.Embed(ctx, text)
	return err
}

func evictDocument(ctx context.Context, a *application, text string) error {
	return a.cache.DeleteVector(ctx, services.EmbeddingCacheKey(a.embedModel, text, a.cfg.Embedding.MaxChars))
}
