package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matthall00/wikiscroll/internal/config"
	"github.com/matthall00/wikiscroll/internal/feed"
	"github.com/matthall00/wikiscroll/internal/store"
	"github.com/matthall00/wikiscroll/internal/tui"
	"github.com/matthall00/wikiscroll/internal/wiki"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagLang != "" {
		cfg.Language = flagLang
	}

	log, err := newFileLogger(config.LogPath())
	if err != nil {
		// The TUI owns the terminal; logging falls back to nop rather
		// than writing over the screen.
		log = zap.NewNop()
	}
	defer log.Sync()

	db := store.New(config.StorePath(), log.Named("store"))
	defer db.Close()

	client := wiki.NewClient(wiki.Options{
		Language:  cfg.Lang(),
		PageSize:  cfg.BatchSize(),
		RateFloor: cfg.RateFloorDuration(),
		RetryMax:  cfg.Retries(),
		CacheTTL:  cfg.CacheTTLDuration(),
		Logger:    log.Named("wiki"),
	})

	orch := feed.New(client, db, feed.Options{
		PreloadDistance: cfg.Preload(),
		RetryCap:        cfg.Retries(),
		Logger:          log.Named("feed"),
	})

	if flagCategory != "" {
		orch.SelectCategory(flagCategory)
	}
	if flagSearch != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		articles, err := client.Search(ctx, flagSearch, 20)
		cancel()
		if err != nil {
			return fmt.Errorf("searching %q: %w", flagSearch, err)
		}
		orch.SetSearchResults(articles)
	}

	return tui.Run(tui.RunOpts{
		Cfg:          cfg,
		Orchestrator: orch,
		Client:       client,
		Store:        db,
		Logger:       log,
		Category:     flagCategory,
		SearchTerm:   flagSearch,
	})
}

// newFileLogger writes structured logs to the state directory so the
// alternate screen stays clean.
func newFileLogger(path string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zap.InfoLevel)
	return zap.New(core), nil
}
