package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/petrikoro/tally/internal/config"
	"github.com/petrikoro/tally/internal/embed"
	"github.com/petrikoro/tally/internal/engine"
	"github.com/petrikoro/tally/internal/index"
	"github.com/petrikoro/tally/internal/llm"
	"github.com/petrikoro/tally/internal/storage"
	"github.com/petrikoro/tally/internal/taxsync"
)

// initStorage opens the configured database and runs migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEmbedder constructs the local ONNX embedder. The model loads lazily,
// so this never fails up front; a missing model surfaces on first embed.
func initEmbedder() *embed.ONNXEmbedder {
	return embed.NewONNXEmbedder(config.LoadEmbedConfig())
}

// initArbitrator builds the optional LLM arbitrator. With no provider
// configured it returns a disabled arbitrator and the waterfall falls back
// to raw vector distance.
func initArbitrator(store *storage.SQLiteStorage) (*llm.Arbitrator, error) {
	llmCfg := config.LoadLLMConfig()
	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return llm.NewArbitrator(client, store, llmCfg, slog.Default()), nil
}

// buildEngine assembles the full classification stack: storage, the
// in-memory taxonomy index, the embedder, and the arbitrator.
func buildEngine(ctx context.Context, store *storage.SQLiteStorage) (*engine.Engine, error) {
	idx := index.New()
	loaded, err := taxsync.LoadIndex(ctx, store, idx)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy index: %w", err)
	}
	if loaded == 0 {
		slog.Warn("Taxonomy index is empty; run 'tally taxonomy sync' first")
	}

	arbitrator, err := initArbitrator(store)
	if err != nil {
		return nil, err
	}

	engineCfg := engine.Config{
		NameSearchK: viper.GetInt("engine.name_search_k"),
		TypeSearchK: viper.GetInt("engine.type_search_k"),
		MaxDistance: viper.GetFloat64("engine.max_distance"),
	}

	return engine.NewWithConfig(store, idx, initEmbedder(), arbitrator, engineCfg), nil
}
