package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/authrax/trending/internal/config"
	"github.com/authrax/trending/internal/database"
	"github.com/authrax/trending/internal/feeds"
	"github.com/authrax/trending/internal/llm"
	"github.com/authrax/trending/internal/opml"
	"github.com/authrax/trending/internal/recommend"
	"github.com/authrax/trending/internal/server"
	"github.com/authrax/trending/internal/trending"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := config.FromEnv()

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("opening store failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	var fetcherOpts []feeds.Option
	if cfg.FeedsOPMLPath != "" {
		sources, err := loadOPMLSources(cfg.FeedsOPMLPath)
		if err != nil {
			logger.Error("loading feed list failed", "path", cfg.FeedsOPMLPath, "err", err)
			os.Exit(1)
		}
		fetcherOpts = append(fetcherOpts, feeds.WithNewsSources(sources))
	}
	fetcher := feeds.NewFetcher(logger, fetcherOpts...)

	aggregator := trending.New(store, fetcher, logger)
	chat := llm.NewClient(cfg.LLMAPIKey, llm.WithBaseURL(cfg.LLMBaseURL))
	generator := recommend.New(store, aggregator, chat, cfg.LLMModel, logger)

	srv := server.New(aggregator, generator, store, logger)
	logger.Info("trending service starting", "addr", cfg.ListenAddr, "database", store.DatabaseType())
	if err := srv.Start(cfg.ListenAddr); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func openStore(cfg config.Config) (database.Store, error) {
	if cfg.DatabaseURL != "" {
		return database.NewPostgres(cfg.DatabaseURL)
	}
	return database.New(cfg.SQLitePath)
}

func loadOPMLSources(path string) ([]feeds.NewsSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	parsed, err := opml.ParseSources(f)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("no feeds in %s", path)
	}
	sources := make([]feeds.NewsSource, 0, len(parsed))
	for _, p := range parsed {
		sources = append(sources, feeds.NewsSource{Name: p.Name, URL: p.URL})
	}
	return sources, nil
}
