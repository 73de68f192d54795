package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nao1215/onioncrawl/internal/config"
	"github.com/nao1215/onioncrawl/internal/log"
	"github.com/nao1215/onioncrawl/internal/storage"
)

// errNoCrawlData is returned by stats and report when the file backend has
// not been written yet.
var errNoCrawlData = errors.New("no crawl data found")

// addConfigFlags registers the flags shared by every command that reads the
// configuration.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: ./config.yaml or the XDG config directory)")
	cmd.Flags().StringP("storage", "s", "",
		"Storage backend: jsonl, sqlite or postgres")
	cmd.Flags().String("output-dir", "",
		"Directory of the jsonl and sqlite files")
}

// loadConfig builds the configuration from defaults, the config file, the
// environment and the shared flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, _, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("storage") {
		if cfg.Storage.StorageType, err = cmd.Flags().GetString("storage"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("output-dir") {
		if cfg.Storage.OutputDir, err = cmd.Flags().GetString("output-dir"); err != nil {
			return nil, err
		}
	}
	if getVerboseFlag(cmd) {
		cfg.LogLevel = "DEBUG"
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger creates the run logger. Colour is used only when w is a
// terminal and NO_COLOR is unset.
func newLogger(w io.Writer, levelName string, jsonOutput bool, redactKeys ...string) (*slog.Logger, error) {
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	return log.New(w, log.Options{
		Level:      level,
		JSON:       jsonOutput,
		NoColor:    !colorEnabled(w),
		RedactKeys: redactKeys,
	}), nil
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// storeSource names the store in output without exposing credentials.
func storeSource(cfg storage.Config) string {
	if p := cfg.Path(); p != "" {
		return p
	}
	return string(cfg.Type)
}

// openExistingStore opens the configured backend for reading. File backends
// must already exist so that stats and report do not create empty stores.
func openExistingStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, storage.Config, error) {
	storeCfg := cfg.StoreConfig()
	storeCfg.Logger = logger

	if p := storeCfg.Path(); p != "" {
		if _, err := os.Stat(p); err != nil {
			return nil, storeCfg, fmt.Errorf("%w at %s", errNoCrawlData, p)
		}
	}

	store, err := storage.Open(ctx, storeCfg)
	if err != nil {
		return nil, storeCfg, fmt.Errorf("failed to open %s storage: %w", storeCfg.Type, err)
	}
	return store, storeCfg, nil
}
