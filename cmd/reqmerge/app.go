package main

import (
	"context"
	"fmt"

	"github.com/hyperjump/reqmerge/internal/config"
	"github.com/hyperjump/reqmerge/internal/extract"
	"github.com/hyperjump/reqmerge/internal/indexer"
	"github.com/hyperjump/reqmerge/internal/keyword"
	"github.com/hyperjump/reqmerge/internal/requirements"
	"github.com/hyperjump/reqmerge/internal/search"
	"github.com/hyperjump/reqmerge/internal/storage"
	"github.com/hyperjump/reqmerge/pkg/utils"
	"go.uber.org/zap"
)

// app holds the wired components shared by the subcommands.
type app struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zap.Logger

	Storage      storage.Storage
	KeywordIndex *keyword.BleveIndex
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

// newApp loads the config named by the persistent flags and opens every component.
func newApp(ctx context.Context) (*app, error) {
	cfg, path, err := loadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", debugMode))

	a, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	a.ConfigPath = path
	return a, nil
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	engine, err := requirements.NewEngine(&cfg.Extraction,
		requirements.WithLogger(logger),
		requirements.WithWorkers(cfg.Extraction.Workers))
	if err != nil {
		_ = keywordIndex.Close()
		_ = store.Close()
		return nil, fmt.Errorf("invalid extraction config: %w", err)
	}
	extractor := extract.NewExtractor(
		extract.WithExtensions(cfg.Extraction.Extensions),
		extract.WithCacheTTL(cfg.Extraction.CacheTTL),
		extract.WithLogger(logger),
	)
	spell := keyword.NewSpellChecker(keywordIndex)

	a := &app{
		Config:       cfg,
		Logger:       logger,
		Storage:      store,
		KeywordIndex: keywordIndex,
		Engine:       search.NewEngine(store, keywordIndex, search.WithSpellChecker(spell), search.WithLogger(logger)),
		Indexer: indexer.NewIndexer(store, keywordIndex, engine, extractor,
			indexer.WithSpellChecker(spell), indexer.WithLogger(logger)),
	}
	if err := a.syncKeywordIndex(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// syncKeywordIndex rebuilds the keyword index when it does not match storage, e.g.
// when it is kept in memory or its directory was removed.
func (a *app) syncKeywordIndex(ctx context.Context) error {
	stored, err := a.Storage.CountRequirements(ctx)
	if err != nil {
		return err
	}
	indexed, err := a.KeywordIndex.DocCount()
	if err != nil {
		return err
	}
	if uint64(stored) == indexed {
		return nil
	}
	a.Logger.Debug("keyword index out of date; rebuilding",
		zap.Int64("stored", stored), zap.Uint64("indexed", indexed))
	return a.Indexer.Rebuild(ctx)
}

// Close releases every component.
func (a *app) Close() {
	if a.KeywordIndex != nil {
		_ = a.KeywordIndex.Close()
	}
	if a.Storage != nil {
		_ = a.Storage.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
